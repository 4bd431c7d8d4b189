package user

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kaglah/ripple-server/cmd/models"
	"github.com/kaglah/ripple-server/service/auth"
	"github.com/kaglah/ripple-server/service/engagement"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "Failed to connect to in-memory SQLite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&models.User{}, &models.Post{}, &models.Like{}, &models.Follow{})
	require.NoError(t, err, "Failed to migrate database schema")

	return db
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestRouter(db *gorm.DB) *mux.Router {
	router := mux.NewRouter()
	sub := router.PathPrefix("/api").Subrouter()
	NewHandler(db, testLogger()).RegisterRoutes(sub)
	return router
}

func doJSON(router *mux.Router, method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	var body io.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

type sessionEnvelope struct {
	User struct {
		ID       uint   `json:"id"`
		Email    string `json:"email"`
		Username string `json:"username"`
	} `json:"user"`
	Token string `json:"token"`
}

func register(router *mux.Router, email, username, password string) *httptest.ResponseRecorder {
	return doJSON(router, http.MethodPost, "/api/register", "", map[string]string{
		"email":    email,
		"username": username,
		"password": password,
	})
}

func TestHandleRegister(t *testing.T) {
	t.Setenv("SECRET_KEY", "user-test-secret")

	t.Run("creates the user and issues a session", func(t *testing.T) {
		db := setupTestDB(t)
		router := newTestRouter(db)

		rec := register(router, "alice@example.com", "alice", "password1")
		require.Equal(t, http.StatusCreated, rec.Code)

		var envelope sessionEnvelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		assert.Equal(t, "alice@example.com", envelope.User.Email)
		assert.Equal(t, "alice", envelope.User.Username)
		require.NotEmpty(t, envelope.Token)

		// the token must decode back to the stored user
		subject, err := auth.ResolveSession(envelope.Token)
		require.NoError(t, err)
		assert.Equal(t, envelope.User.ID, subject)

		// and the password hash must not be the plaintext
		var stored models.User
		require.NoError(t, db.First(&stored, envelope.User.ID).Error)
		assert.NotEqual(t, "password1", stored.PasswordHash)
	})

	t.Run("duplicate email is rejected, first registration wins", func(t *testing.T) {
		db := setupTestDB(t)
		router := newTestRouter(db)

		require.Equal(t, http.StatusCreated, register(router, "alice@example.com", "alice", "password1").Code)

		rec := register(router, "alice@example.com", "alice2", "password2")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Email or username already taken", errorBody(t, rec))

		var count int64
		require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("duplicate username is rejected", func(t *testing.T) {
		db := setupTestDB(t)
		router := newTestRouter(db)

		require.Equal(t, http.StatusCreated, register(router, "alice@example.com", "alice", "password1").Code)

		rec := register(router, "alice2@example.com", "alice", "password2")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Email or username already taken", errorBody(t, rec))
	})

	t.Run("malformed payloads are rejected", func(t *testing.T) {
		db := setupTestDB(t)
		router := newTestRouter(db)

		cases := []map[string]string{
			{"email": "not-an-email", "username": "alice", "password": "password1"},
			{"email": "alice@example.com", "username": "al", "password": "password1"},
			{"email": "alice@example.com", "username": "alice", "password": "shrt"},
			{"username": "alice", "password": "password1"},
		}
		for i, payload := range cases {
			rec := doJSON(router, http.MethodPost, "/api/register", "", payload)
			assert.Equal(t, http.StatusBadRequest, rec.Code, "case %d", i)
		}
	})
}

func TestHandleLogin(t *testing.T) {
	t.Setenv("SECRET_KEY", "user-test-secret")

	db := setupTestDB(t)
	router := newTestRouter(db)
	require.Equal(t, http.StatusCreated, register(router, "alice@example.com", "alice", "password1").Code)

	t.Run("valid credentials issue a session", func(t *testing.T) {
		rec := doJSON(router, http.MethodPost, "/api/login", "", map[string]string{
			"email":    "alice@example.com",
			"password": "password1",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var envelope sessionEnvelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		assert.Equal(t, "alice", envelope.User.Username)
		assert.NotEmpty(t, envelope.Token)
	})

	t.Run("wrong password and unknown email fail identically", func(t *testing.T) {
		for _, payload := range []map[string]string{
			{"email": "alice@example.com", "password": "wrong"},
			{"email": "nobody@example.com", "password": "password1"},
		} {
			rec := doJSON(router, http.MethodPost, "/api/login", "", payload)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Invalid credentials", errorBody(t, rec))
		}
	})
}

func TestGetProfile(t *testing.T) {
	t.Setenv("SECRET_KEY", "user-test-secret")

	db := setupTestDB(t)
	router := newTestRouter(db)

	alice := &models.User{Email: "alice@example.com", Username: "alice", PasswordHash: "x"}
	require.NoError(t, db.Create(alice).Error)
	bob := &models.User{Email: "bob@example.com", Username: "bob", PasswordHash: "x"}
	require.NoError(t, db.Create(bob).Error)

	require.NoError(t, db.Create(&models.Post{UserID: alice.ID, Content: "one"}).Error)
	require.NoError(t, db.Create(&models.Post{UserID: alice.ID, Content: "two"}).Error)
	_, err := engagement.ToggleFollow(context.Background(), db, bob.ID, alice.ID)
	require.NoError(t, err)
	_, err = engagement.ToggleFollow(context.Background(), db, alice.ID, bob.ID)
	require.NoError(t, err)

	t.Run("profile carries live counts", func(t *testing.T) {
		rec := doJSON(router, http.MethodGet, fmt.Sprintf("/api/users/%d", alice.ID), "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var profile models.Profile
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
		assert.Equal(t, alice.ID, profile.ID)
		assert.Equal(t, "alice", profile.Username)
		assert.Equal(t, int64(2), profile.PostsCount)
		assert.Equal(t, int64(1), profile.FollowersCount)
		assert.Equal(t, int64(1), profile.FollowingCount)
	})

	t.Run("unknown user is a 404", func(t *testing.T) {
		rec := doJSON(router, http.MethodGet, "/api/users/424242", "", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "User not found", errorBody(t, rec))
	})
}

func TestToggleFollowRoute(t *testing.T) {
	t.Setenv("SECRET_KEY", "user-test-secret")

	db := setupTestDB(t)
	router := newTestRouter(db)

	alice := &models.User{Email: "alice@example.com", Username: "alice", PasswordHash: "x"}
	require.NoError(t, db.Create(alice).Error)
	bob := &models.User{Email: "bob@example.com", Username: "bob", PasswordHash: "x"}
	require.NoError(t, db.Create(bob).Error)

	token, err := auth.IssueSession(alice.ID)
	require.NoError(t, err)

	t.Run("toggles the edge on and off", func(t *testing.T) {
		path := fmt.Sprintf("/api/users/%d/follow", bob.ID)
		expected := []bool{true, false, true}
		for i, want := range expected {
			rec := doJSON(router, http.MethodPost, path, token, nil)
			require.Equal(t, http.StatusOK, rec.Code, "toggle %d", i)

			var body struct {
				Success   bool `json:"success"`
				Following bool `json:"following"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.True(t, body.Success)
			assert.Equal(t, want, body.Following, "toggle %d", i)
		}
	})

	t.Run("self-follow is rejected", func(t *testing.T) {
		rec := doJSON(router, http.MethodPost, fmt.Sprintf("/api/users/%d/follow", alice.ID), token, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Cannot follow yourself", errorBody(t, rec))
	})

	t.Run("expired and tampered credentials never reach the handler", func(t *testing.T) {
		claims := &jwt.RegisteredClaims{
			Subject:   fmt.Sprint(alice.ID),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}
		expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("user-test-secret"))
		require.NoError(t, err)

		path := fmt.Sprintf("/api/users/%d/follow", bob.ID)
		for _, bad := range []string{expired, token[:len(token)-2] + "xx", "garbage"} {
			rec := doJSON(router, http.MethodPost, path, bad, nil)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Please authenticate", errorBody(t, rec))
		}

		var count int64
		require.NoError(t, db.Model(&models.Follow{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}
