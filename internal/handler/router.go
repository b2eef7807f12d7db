package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/caseprep/interview-live/internal/handler/live"
	"github.com/caseprep/interview-live/internal/handler/tts"
	middlewarePkg "github.com/caseprep/interview-live/internal/middleware"
	"github.com/caseprep/interview-live/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(liveHandler *live.Handler, ttsCacheDir string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	ttsHandler := tts.New(ttsCacheDir)

	r.Route("/api", func(api chi.Router) {
		api.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]any{
				"status": "ok",
				"time":   time.Now().UTC().Format(time.RFC3339),
			})
		})

		liveHandler.RegisterRoutes(api)
		ttsHandler.RegisterRoutes(api)
	})

	return r
}
