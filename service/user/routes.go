package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/kaglah/ripple-server/cmd/models"
	"github.com/kaglah/ripple-server/cmd/utils"
	"github.com/kaglah/ripple-server/service/auth"
	"github.com/kaglah/ripple-server/service/engagement"
)

type Handler struct {
	db       *gorm.DB
	logger   *logrus.Logger
	validate *validator.Validate
}

func NewHandler(db *gorm.DB, logger *logrus.Logger) *Handler {
	return &Handler{db: db, logger: logger, validate: validator.New()}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	authed := auth.Middleware(h.db)
	router.HandleFunc("/register", h.HandleRegister).Methods("POST")
	router.HandleFunc("/login", h.HandleLogin).Methods("POST")
	router.HandleFunc("/users/{userId}", h.GetProfile).Methods("GET")
	router.HandleFunc("/users/{userId}/follow", authed(h.ToggleFollow)).Methods("POST")
}

type userPayload struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

func sessionResponse(user *models.User, token string) map[string]interface{} {
	return map[string]interface{}{
		"user": userPayload{
			ID:       user.ID,
			Email:    user.Email,
			Username: user.Username,
		},
		"token": token,
	}
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email" validate:"required,email"`
		Username string `json:"username" validate:"required,min=3,max=32"`
		Password string `json:"password" validate:"required,min=6"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid registration details")
		return
	}

	tx := h.db.WithContext(r.Context())

	// Friendly pre-check. The unique indexes on email and username remain the
	// arbiter for requests racing past it.
	var existing models.User
	if result := tx.Where("email = ? OR username = ?", payload.Email, payload.Username).First(&existing); !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		if result.Error != nil {
			utils.WriteStoreError(w, result.Error, "Registration failed")
			return
		}
		utils.WriteError(w, http.StatusBadRequest, "Email or username already taken")
		return
	}

	passwordHash, err := auth.HashPassword(payload.Password)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	user := models.User{
		Email:        payload.Email,
		Username:     payload.Username,
		PasswordHash: passwordHash,
	}
	if err := tx.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.WriteError(w, http.StatusBadRequest, "Email or username already taken")
			return
		}
		h.logger.WithFields(logrus.Fields{
			"request_id": utils.GetRequestIDFromContext(r.Context()),
		}).WithError(err).Error("registration failed")
		utils.WriteStoreError(w, err, "Registration failed")
		return
	}

	token, err := auth.IssueSession(user.ID)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, sessionResponse(&user, token))
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var user models.User
	if err := h.db.WithContext(r.Context()).Where("email = ?", payload.Email).First(&user).Error; err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if !auth.CheckPassword(payload.Password, user.PasswordHash) {
		utils.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := auth.IssueSession(user.ID)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	utils.WriteJSON(w, http.StatusOK, sessionResponse(&user, token))
}

// GetProfile returns a public profile with live counts.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, err := strconv.ParseUint(vars["userId"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var user models.User
	if err := h.db.WithContext(r.Context()).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteError(w, http.StatusNotFound, "User not found")
			return
		}
		utils.WriteStoreError(w, err, "Failed to fetch user profile")
		return
	}

	posts, followers, following, err := engagement.ProfileCounts(r.Context(), h.db, user.ID)
	if err != nil {
		utils.WriteStoreError(w, err, "Failed to fetch user profile")
		return
	}

	utils.WriteJSON(w, http.StatusOK, models.Profile{
		ID:             user.ID,
		Username:       user.Username,
		CreatedAt:      user.CreatedAt,
		PostsCount:     posts,
		FollowersCount: followers,
		FollowingCount: following,
	})
}

// ToggleFollow follows the target if no edge exists, unfollows otherwise.
// The acting identity is always the follower side.
func (h *Handler) ToggleFollow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	followeeID, err := strconv.ParseUint(vars["userId"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	followerID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Please authenticate")
		return
	}

	following, err := engagement.ToggleFollow(r.Context(), h.db, followerID, uint(followeeID))
	if err != nil {
		if errors.Is(err, engagement.ErrSelfFollow) {
			utils.WriteError(w, http.StatusBadRequest, "Cannot follow yourself")
			return
		}
		h.logger.WithFields(logrus.Fields{
			"request_id":  utils.GetRequestIDFromContext(r.Context()),
			"follower_id": followerID,
			"followee_id": followeeID,
		}).WithError(err).Error("toggle follow failed")
		utils.WriteStoreError(w, err, "Failed to follow/unfollow user")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"following": following,
	})
}
