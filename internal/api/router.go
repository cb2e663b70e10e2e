package api

import (
	"net/http"
	"time"

	// This blank import is required by swaggo to find the API definitions.
	_ "chatbridge/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter creates and configures the chi router with all application routes.
func NewRouter(chatHandler *ChatHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Swagger UI for the API documentation.
	r.Get("/api/swagger/*", httpSwagger.WrapHandler)

	// The service's own liveness endpoint, distinct from the proxied
	// backend probe under /api/v1/backend/health.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// Standard JSON routes get a request timeout so client connections
		// never hang indefinitely.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Get("/backend/health", chatHandler.HandleBackendHealth)

			r.Post("/sessions", chatHandler.HandleCreateSession)
			r.Get("/sessions", chatHandler.HandleListSessions)
			r.Get("/sessions/{sessionID}", chatHandler.HandleGetSession)
			r.Delete("/sessions/{sessionID}", chatHandler.HandleDeleteSession)
			r.Post("/sessions/{sessionID}/stop", chatHandler.HandleStopSession)
		})

		// The streaming route must NOT have a timeout: it holds the
		// connection open for the whole word-by-word reveal.
		r.Group(func(r chi.Router) {
			r.Post("/sessions/{sessionID}/messages", chatHandler.HandleStreamMessage)
		})
	})

	return r
}
