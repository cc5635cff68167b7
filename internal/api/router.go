package api

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sdr-enthusiasts/acarshub-server/internal/config"
	"github.com/sdr-enthusiasts/acarshub-server/internal/datalink"
	"github.com/sdr-enthusiasts/acarshub-server/internal/storage/sqlite"
	"github.com/sdr-enthusiasts/acarshub-server/internal/websocket"
	"github.com/sdr-enthusiasts/acarshub-server/pkg/logger"
)

// Router wires the API handlers into a chi mux
type Router struct {
	handler *Handler
	config  *config.Config
	logger  *logger.Logger
}

// NewRouter creates a new API router
func NewRouter(engine *datalink.MessageHandler, settings *datalink.SettingsStore, storage *sqlite.MessageStorage, cfg *config.Config, log *logger.Logger, wsServer *websocket.Server) *Router {
	return &Router{
		handler: NewHandler(engine, settings, storage, cfg, log, wsServer),
		config:  cfg,
		logger:  log.Named("api-router"),
	}
}

// Routes returns the HTTP handler for the server
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if secs := rt.config.Server.ReadTimeoutSecs; secs > 0 {
		r.Use(middleware.Timeout(time.Duration(secs) * time.Second))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/planes", rt.handler.GetPlanes)
		r.Get("/planes/{uid}", rt.handler.GetPlaneByUID)
		r.Post("/planes/{uid}/tab/{direction}", rt.handler.NavigateTab)
		r.Get("/messages/recent", rt.handler.GetRecentMessages)
		r.Get("/messages/search", rt.handler.SearchMessages)
		r.Get("/settings", rt.handler.GetSettings)
		r.Put("/settings", rt.handler.UpdateSettings)
		r.Get("/status", rt.handler.GetStatus)
	})

	r.Get("/ws", rt.handler.HandleWebSocket)

	if dir := rt.config.Server.StaticFilesDir; dir != "" {
		rt.serveStatic(r, dir)
	}

	return r
}

// serveStatic serves the dashboard files, falling back to index.html so
// client side routes resolve after a page reload
func (rt *Router) serveStatic(r chi.Router, dir string) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		rt.logger.Warn("Failed to resolve static files directory",
			logger.Error(err),
			logger.String("dir", dir))
		return
	}
	if _, err := os.Stat(absDir); err != nil {
		rt.logger.Warn("Static files directory not found, skipping",
			logger.String("dir", absDir))
		return
	}

	rt.logger.Info("Serving static files", logger.String("dir", absDir))

	fileServer := http.FileServer(http.Dir(absDir))
	r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
		path := filepath.Join(absDir, filepath.Clean("/"+req.URL.Path))
		if _, err := os.Stat(path); os.IsNotExist(err) {
			http.ServeFile(w, req, filepath.Join(absDir, "index.html"))
			return
		}
		fileServer.ServeHTTP(w, req)
	})
}
