package post

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

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
	router.HandleFunc("/posts", authed(h.CreatePost)).Methods("POST")
	router.HandleFunc("/posts", h.GetPosts).Methods("GET")
	router.HandleFunc("/posts/{postId}/replies", h.GetReplies).Methods("GET")
	router.HandleFunc("/posts/{postId}/like", authed(h.ToggleLike)).Methods("POST")
}

// CreatePost creates a root post, or a reply when replyToId is given.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Please authenticate")
		return
	}

	var payload struct {
		Content   string `json:"content" validate:"required"`
		ReplyToID *uint  `json:"replyToId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validate.Struct(payload); err != nil || strings.TrimSpace(payload.Content) == "" {
		utils.WriteError(w, http.StatusBadRequest, "Content is required")
		return
	}

	tx := h.db.WithContext(r.Context())

	if payload.ReplyToID != nil {
		var target models.Post
		if err := tx.First(&target, *payload.ReplyToID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.WriteError(w, http.StatusBadRequest, "Reply target not found")
				return
			}
			utils.WriteStoreError(w, err, "Failed to create post")
			return
		}
	}

	post := models.Post{
		UserID:    userID,
		Content:   payload.Content,
		ReplyToID: payload.ReplyToID,
	}
	if err := tx.Create(&post).Error; err != nil {
		h.logger.WithFields(logrus.Fields{
			"request_id": utils.GetRequestIDFromContext(r.Context()),
			"user_id":    userID,
		}).WithError(err).Error("create post failed")
		utils.WriteStoreError(w, err, "Failed to create post")
		return
	}

	if err := tx.Preload("User").First(&post, post.ID).Error; err != nil {
		utils.WriteStoreError(w, err, "Failed to create post")
		return
	}

	views, err := BuildViews(r.Context(), h.db, []models.Post{post})
	if err != nil {
		utils.WriteStoreError(w, err, "Failed to create post")
		return
	}
	utils.WriteJSON(w, http.StatusCreated, views[0])
}

// GetPosts lists root posts, newest first.
func (h *Handler) GetPosts(w http.ResponseWriter, r *http.Request) {
	page, limit := utils.ParsePagination(r)

	var posts []models.Post
	err := h.db.WithContext(r.Context()).
		Preload("User").
		Where("reply_to_id IS NULL").
		Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		utils.WriteStoreError(w, err, "Failed to fetch posts")
		return
	}

	views, err := BuildViews(r.Context(), h.db, posts)
	if err != nil {
		utils.WriteStoreError(w, err, "Failed to fetch posts")
		return
	}
	utils.WriteJSON(w, http.StatusOK, views)
}

// GetReplies lists the replies to a post, newest first. A post nobody has
// replied to, or one that does not exist at all, yields an empty page.
func (h *Handler) GetReplies(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["postId"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid post ID")
		return
	}

	page, limit := utils.ParsePagination(r)

	var replies []models.Post
	err = h.db.WithContext(r.Context()).
		Preload("User").
		Where("reply_to_id = ?", uint(postID)).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&replies).Error
	if err != nil {
		utils.WriteStoreError(w, err, "Failed to fetch replies")
		return
	}

	views, err := BuildViews(r.Context(), h.db, replies)
	if err != nil {
		utils.WriteStoreError(w, err, "Failed to fetch replies")
		return
	}
	utils.WriteJSON(w, http.StatusOK, views)
}

// ToggleLike likes the post if the caller has not liked it, unlikes otherwise.
func (h *Handler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["postId"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid post ID")
		return
	}

	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Please authenticate")
		return
	}

	liked, err := engagement.ToggleLike(r.Context(), h.db, userID, uint(postID))
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"request_id": utils.GetRequestIDFromContext(r.Context()),
			"user_id":    userID,
			"post_id":    postID,
		}).WithError(err).Error("toggle like failed")
		utils.WriteStoreError(w, err, "Failed to like/unlike post")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"liked":   liked,
	})
}
