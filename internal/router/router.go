package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/mch-billing/terminal/internal/config"
	"github.com/mch-billing/terminal/internal/handler"
	mw "github.com/mch-billing/terminal/internal/middleware"
	"github.com/mch-billing/terminal/internal/service"
	"github.com/mch-billing/terminal/internal/settings"
	"github.com/mch-billing/terminal/internal/ws"
)

// New creates a Chi router with all terminal routes wired up.
func New(cfg *config.Config, log zerolog.Logger, term *service.Terminal, repo *settings.Repository, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(mw.Logger(log))
	r.Use(mw.Recovery(log))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", handler.Health(term.Loading))

	// Change notifications; topic is one of catalog, bill, settings.
	r.Get("/ws/{topic}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, chi.URLParam(r, "topic"), w, r)
	})

	catalogHandler := handler.NewCatalogHandler(term, log)
	r.Route("/catalog", catalogHandler.RegisterRoutes)

	billHandler := handler.NewBillHandler(term, log)
	r.Route("/bill", billHandler.RegisterRoutes)

	viewHandler := handler.NewViewHandler(term, repo)
	r.Route("/views", viewHandler.RegisterRoutes)

	settingsHandler := handler.NewSettingsHandler(repo, hub, log)
	r.Route("/settings", settingsHandler.RegisterRoutes)

	log.Debug().Msg("router initialized")
	return r
}
