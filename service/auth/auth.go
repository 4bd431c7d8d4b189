package auth

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/kaglah/ripple-server/cmd/models"
	"github.com/kaglah/ripple-server/cmd/utils"
)

// SessionDuration is how long an issued token stays valid.
const SessionDuration = 24 * time.Hour

// ErrInvalidSession covers every way a token can fail: malformed, tampered,
// expired, or carrying a subject that is not a user ID. Callers must not
// distinguish between these cases.
var ErrInvalidSession = errors.New("invalid session")

func secretKey() []byte {
	return []byte(os.Getenv("SECRET_KEY"))
}

func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// IssueSession signs a token whose subject is the user ID.
func IssueSession(userID uint) (string, error) {
	claims := &jwt.RegisteredClaims{
		Subject:   fmt.Sprint(userID),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(SessionDuration)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secretKey())
}

// ResolveSession verifies a token and returns the user ID it was issued for.
func ResolveSession(tokenString string) (uint, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secretKey(), nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidSession
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidSession
	}
	return uint(userID), nil
}

// Middleware authenticates the request and stores the acting user ID in the
// request context. Every failure mode, including a valid token whose subject
// no longer exists, yields the same 401 body.
func Middleware(db *gorm.DB) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			tokenString := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if tokenString == "" {
				utils.WriteError(w, http.StatusUnauthorized, "Please authenticate")
				return
			}

			userID, err := ResolveSession(tokenString)
			if err != nil {
				utils.WriteError(w, http.StatusUnauthorized, "Please authenticate")
				return
			}

			var user models.User
			if err := db.WithContext(r.Context()).First(&user, userID).Error; err != nil {
				utils.WriteError(w, http.StatusUnauthorized, "Please authenticate")
				return
			}

			next(w, r.WithContext(utils.WithUserID(r.Context(), user.ID)))
		}
	}
}
