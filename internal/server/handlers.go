package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/foliokit/folio/internal/models"
	"github.com/foliokit/folio/internal/portfolio"
)

const dateLayout = "2006-01-02"

// --- Portfolio composition handlers ---

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"assets": s.app.Portfolio.Assets(),
		})

	case http.MethodPost:
		var asset models.Asset
		if !DecodeJSON(w, r, &asset) {
			return
		}
		if asset.Symbol == "" {
			WriteError(w, http.StatusBadRequest, "symbol is required")
			return
		}

		added, err := s.app.Portfolio.AddAsset(r.Context(), asset)
		if err != nil {
			WriteServiceError(w, s.logger, err)
			return
		}

		WriteJSON(w, http.StatusCreated, map[string]interface{}{
			"asset":  added,
			"assets": s.app.Portfolio.Assets(),
		})

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleAssetBySymbol(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	symbol := PathParam(r, "/api/portfolio/assets/", "")
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "symbol is required in path")
		return
	}

	removed, err := s.app.Portfolio.RemoveAsset(r.Context(), normalizeSymbol(symbol))
	if err != nil {
		WriteServiceError(w, s.logger, err)
		return
	}
	if !removed {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("Asset '%s' not found in portfolio", symbol))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"removed": symbol,
		"assets":  s.app.Portfolio.Assets(),
	})
}

func (s *Server) handleWeights(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPut) {
		return
	}

	var req struct {
		Weights []models.WeightUpdate `json:"weights"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if len(req.Weights) == 0 {
		WriteError(w, http.StatusBadRequest, "weights is required")
		return
	}

	skipped, err := s.app.Portfolio.SetWeights(r.Context(), req.Weights)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"assets":  s.app.Portfolio.Assets(),
		"skipped": skipped,
	})
}

// --- Analytics handlers ---

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	stats, err := s.app.Portfolio.Statistics(r.Context())
	if err != nil {
		WriteServiceError(w, s.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}

func (s *Server) handleReturns(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	start, ok := parseDateParam(w, r, "start", time.Now().UTC().AddDate(0, -1, 0))
	if !ok {
		return
	}

	points, err := s.app.Portfolio.CumulativeReturns(r.Context(), start)
	if err != nil {
		WriteServiceError(w, s.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"returns": points,
		"count":   len(points),
	})
}

func (s *Server) handleReturnsChart(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	start, ok := parseDateParam(w, r, "start", time.Now().UTC().AddDate(-1, 0, 0))
	if !ok {
		return
	}

	points, err := s.app.Portfolio.CumulativeReturns(r.Context(), start)
	if err != nil {
		WriteServiceError(w, s.logger, err)
		return
	}

	if len(points) < 2 {
		WriteError(w, http.StatusBadRequest, "Not enough return data to chart")
		return
	}

	png, err := portfolio.RenderReturnsChart(points)
	if err != nil {
		s.logger.Error().Err(err).Msg("Returns chart render failed")
		WriteError(w, http.StatusInternalServerError, "Chart rendering failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		StartDate    string   `json:"start_date"`
		TargetReturn *float64 `json:"target_return"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.StartDate == "" {
		WriteError(w, http.StatusBadRequest, "start_date is required (format: YYYY-MM-DD)")
		return
	}

	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid start_date '%s', use YYYY-MM-DD", req.StartDate))
		return
	}

	assets, err := s.app.Portfolio.Optimize(r.Context(), start, req.TargetReturn)
	if err != nil {
		WriteServiceError(w, s.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"assets": assets,
	})
}

func (s *Server) handleSimulation(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	nSimulations, nDays, ok := parseSimulationParams(w, r)
	if !ok {
		return
	}

	result, err := s.app.Portfolio.Simulate(r.Context(), nSimulations, nDays)
	if err != nil {
		WriteServiceError(w, s.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleSimulationChart(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	nSimulations, nDays, ok := parseSimulationParams(w, r)
	if !ok {
		return
	}

	result, err := s.app.Portfolio.Simulate(r.Context(), nSimulations, nDays)
	if err != nil {
		WriteServiceError(w, s.logger, err)
		return
	}

	if result.Percentiles == nil {
		WriteError(w, http.StatusBadRequest, "Not enough simulated data to chart")
		return
	}

	png, err := portfolio.RenderSimulationChart(result)
	if err != nil {
		s.logger.Error().Err(err).Msg("Simulation chart render failed")
		WriteError(w, http.StatusInternalServerError, "Chart rendering failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// --- Market data handlers ---

func (s *Server) handleMarketHistory(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	symbol := PathParam(r, "/api/market/history/", "")
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "symbol is required in path")
		return
	}

	end, ok := parseDateParam(w, r, "end", time.Now().UTC())
	if !ok {
		return
	}
	start, ok := parseDateParam(w, r, "start", end.AddDate(0, -1, 0))
	if !ok {
		return
	}
	if !start.Before(end) {
		WriteError(w, http.StatusBadRequest, "start must be before end")
		return
	}

	table, err := s.app.Portfolio.HistoricalPrices(r.Context(), normalizeSymbol(symbol), start, end)
	if err != nil {
		WriteServiceError(w, s.logger, err)
		return
	}

	points := make([]models.TimeSeriesPoint, 0, len(table.Dates))
	closes := table.Column(table.Symbols[0])
	for i, date := range table.Dates {
		points = append(points, models.TimeSeriesPoint{Date: date, Value: closes[i]})
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": normalizeSymbol(symbol),
		"prices": points,
		"count":  len(points),
	})
}

func (s *Server) handleSymbolSearch(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	query := r.URL.Query().Get("query")
	if query == "" {
		WriteError(w, http.StatusBadRequest, "query parameter is required")
		return
	}

	if s.app.SymbolSearch == nil {
		WriteError(w, http.StatusServiceUnavailable, "Symbol search is not configured")
		return
	}

	matches, err := s.app.SymbolSearch.Search(r.Context(), query)
	if err != nil {
		WriteServiceError(w, s.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"result": matches,
		"count":  len(matches),
	})
}

// --- Request parsing helpers ---

func normalizeSymbol(symbol string) string {
	a := models.Asset{Symbol: symbol}
	a.Normalize()
	return a.Symbol
}

// parseDateParam reads a YYYY-MM-DD query parameter, falling back to
// def when absent. Writes a 400 and returns ok=false on a bad value.
func parseDateParam(w http.ResponseWriter, r *http.Request, name string, def time.Time) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s date '%s', use YYYY-MM-DD", name, raw))
		return time.Time{}, false
	}
	return t, true
}

// parseSimulationParams reads simulations and days with the reference
// defaults of 1000 paths over 252 trading days.
func parseSimulationParams(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	nSimulations := 1000
	nDays := 252

	if raw := r.URL.Query().Get("simulations"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid simulations value '%s'", raw))
			return 0, 0, false
		}
		nSimulations = v
	}
	if raw := r.URL.Query().Get("days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid days value '%s'", raw))
			return 0, 0, false
		}
		nDays = v
	}

	return nSimulations, nDays, true
}
