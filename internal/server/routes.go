package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/foliokit/folio/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)

	// Portfolio composition
	mux.HandleFunc("/api/portfolio/assets/", s.handleAssetBySymbol)
	mux.HandleFunc("/api/portfolio/assets", s.handleAssets)
	mux.HandleFunc("/api/portfolio/weights", s.handleWeights)

	// Analytics
	mux.HandleFunc("/api/portfolio/statistics", s.handleStatistics)
	mux.HandleFunc("/api/portfolio/returns", s.handleReturns)
	mux.HandleFunc("/api/portfolio/returns/chart", s.handleReturnsChart)
	mux.HandleFunc("/api/portfolio/optimize", s.handleOptimize)
	mux.HandleFunc("/api/portfolio/simulation", s.handleSimulation)
	mux.HandleFunc("/api/portfolio/simulation/chart", s.handleSimulationChart)

	// Market data
	mux.HandleFunc("/api/market/history/", s.handleMarketHistory)
	mux.HandleFunc("/api/symbol-search", s.handleSymbolSearch)

	// Static frontend, when a build directory is configured
	if dir := s.app.Config.Server.StaticDir; dir != "" {
		if _, err := os.Stat(dir); err == nil {
			mux.Handle("/", spaHandler(dir))
			s.logger.Info().Str("dir", dir).Msg("Serving static frontend")
		} else {
			s.logger.Warn().Str("dir", dir).Msg("Static directory not found, frontend disabled")
		}
	}
}

// spaHandler serves files from dir, falling back to index.html for
// client-side routes. API paths never reach this handler.
func spaHandler(dir string) http.Handler {
	fileServer := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			WriteError(w, http.StatusNotFound, "Not found")
			return
		}

		path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			if r.URL.Path != "/" {
				http.ServeFile(w, r, filepath.Join(dir, "index.html"))
				return
			}
		}
		fileServer.ServeHTTP(w, r)
	})
}

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
	})
}
