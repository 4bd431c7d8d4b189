package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusBadRequest, "Invalid content")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Invalid content", body["error"])
}

func TestWriteStoreError(t *testing.T) {
	t.Run("ordinary store failure is a 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteStoreError(rec, errors.New("connection refused"), "Failed to fetch posts")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Failed to fetch posts", body["error"])
	})

	t.Run("deadline and cancellation get a retry hint", func(t *testing.T) {
		for _, err := range []error{
			context.DeadlineExceeded,
			fmt.Errorf("query failed: %w", context.DeadlineExceeded),
			context.Canceled,
		} {
			rec := httptest.NewRecorder()
			WriteStoreError(rec, err, "Failed to fetch posts")

			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
			assert.Equal(t, "1", rec.Header().Get("Retry-After"))
		}
	})
}
