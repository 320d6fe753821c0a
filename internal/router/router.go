package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"slidecraft-backend/internal/handlers"
	"slidecraft-backend/internal/middleware"
	"slidecraft-backend/internal/websocket"
)

func New(
	sessions *middleware.Sessions,
	workspaceHandler *handlers.WorkspaceHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{frontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Group(func(r chi.Router) {
		r.Use(sessions.Middleware)

		r.Get("/", workspaceHandler.Page)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/state", workspaceHandler.State)
			r.Get("/templates", workspaceHandler.Templates)
			r.Post("/key", workspaceHandler.SelectKey)
			r.Put("/settings", workspaceHandler.UpdateSettings)
			r.Delete("/error", workspaceHandler.DismissError)

			// ──── Deck Routes ────
			r.Route("/deck", func(r chi.Router) {
				r.Post("/", workspaceHandler.GenerateDeck)
				r.Put("/active", workspaceHandler.SelectSlide)
				r.Put("/slides/active", workspaceHandler.EditSlide)
				r.Post("/slides/active/image", workspaceHandler.GenerateImage)
				r.Get("/slides/{index}/render", workspaceHandler.RenderSlide)
			})

			// ──── Reference Document ────
			r.Post("/document", workspaceHandler.AttachDocument)
			r.Delete("/document", workspaceHandler.ClearDocument)

			// ──── Image Analysis ────
			r.Get("/analysis", workspaceHandler.GetAnalysis)
			r.Post("/analysis", workspaceHandler.AnalyzeImage)
			r.Delete("/analysis", workspaceHandler.DismissAnalysis)

			// ──── WebSocket ────
			r.Get("/ws", wsHub.HandleWebSocket)
		})
	})

	return r
}
