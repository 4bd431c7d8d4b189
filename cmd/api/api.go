package api

import (
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/kaglah/ripple-server/service/feed"
	"github.com/kaglah/ripple-server/service/post"
	"github.com/kaglah/ripple-server/service/user"
)

const requestTimeout = 10 * time.Second

type APIServer struct {
	address string
	db      *gorm.DB
	logger  *logrus.Logger
}

func NewApiServer(address string, db *gorm.DB, logger *logrus.Logger) *APIServer {
	return &APIServer{
		address: address,
		db:      db,
		logger:  logger,
	}
}

func (s *APIServer) Run() error {
	s.logger.WithField("address", s.address).Info("server running")
	return http.ListenAndServe(s.address, s.Router())
}

// Router assembles the full handler chain.
func (s *APIServer) Router() http.Handler {
	router := mux.NewRouter()
	router.Use(RequestIDMiddleware)
	router.Use(DeadlineMiddleware(requestTimeout))

	subrouter := router.PathPrefix("/api").Subrouter()

	userHandler := user.NewHandler(s.db, s.logger)
	userHandler.RegisterRoutes(subrouter)

	postHandler := post.NewHandler(s.db, s.logger)
	postHandler.RegisterRoutes(subrouter)

	feedHandler := feed.NewHandler(s.db, s.logger)
	feedHandler.RegisterRoutes(subrouter)

	// Anything unrouted gets the friendly fallback, status 200.
	router.PathPrefix("/").HandlerFunc(fallbackHandler)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	return handlers.RecoveryHandler()(cors(router))
}

func fallbackHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("This is not the page you are looking for. Please check the URL and try again."))
}
