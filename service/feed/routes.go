package feed

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/kaglah/ripple-server/cmd/utils"
	"github.com/kaglah/ripple-server/service/auth"
)

type Handler struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewHandler(db *gorm.DB, logger *logrus.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	authed := auth.Middleware(h.db)
	router.HandleFunc("/feed", authed(h.GetFeed)).Methods("GET")
}

// GetFeed returns the viewer's paginated feed.
func (h *Handler) GetFeed(w http.ResponseWriter, r *http.Request) {
	viewerID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Please authenticate")
		return
	}

	page, limit := utils.ParsePagination(r)

	views, err := Compose(r.Context(), h.db, viewerID, page, limit)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"request_id": utils.GetRequestIDFromContext(r.Context()),
			"viewer_id":  viewerID,
		}).WithError(err).Error("feed composition failed")
		utils.WriteStoreError(w, err, "Failed to fetch feed")
		return
	}

	utils.WriteJSON(w, http.StatusOK, views)
}
