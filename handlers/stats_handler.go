package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/scrimverse/tournament-engine/services"
)

type StatsHandler struct {
	responder
	statsService services.StatsService
}

func NewStatsHandler(statsService services.StatsService, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{responder: responder{logger: logger}, statsService: statsService}
}

func (h *StatsHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	game := r.URL.Query().Get("game")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	board, err := h.statsService.Leaderboard(r.Context(), game, limit)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": board}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

func (h *StatsHandler) TeamStatistics(w http.ResponseWriter, r *http.Request) {
	teamID, err := urlParamInt(r, "teamID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	game := r.URL.Query().Get("game")
	if game == "" {
		h.errorResponse(w, r, http.StatusBadRequest, "game query parameter is required")
		return
	}
	stats, err := h.statsService.TeamStatistics(r.Context(), teamID, game)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"statistics": stats}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}
