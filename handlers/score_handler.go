package handlers

import (
	"log/slog"
	"net/http"

	"github.com/scrimverse/tournament-engine/middleware"
	"github.com/scrimverse/tournament-engine/services"
)

type ScoreHandler struct {
	responder
	scoreService services.ScoreService
}

func NewScoreHandler(scoreService services.ScoreService, logger *slog.Logger) *ScoreHandler {
	return &ScoreHandler{responder: responder{logger: logger}, scoreService: scoreService}
}

type setRoomRequest struct {
	RoomID       *string `json:"room_id"`
	RoomPassword *string `json:"room_password"`
}

func (h *ScoreHandler) SetMatchRoom(w http.ResponseWriter, r *http.Request) {
	hostID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		h.unauthorizedResponse(w, r, err.Error())
		return
	}
	matchID, err := urlParamInt(r, "matchID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	var input setRoomRequest
	if err := readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	match, err := h.scoreService.SetMatchRoom(r.Context(), hostID, matchID, input.RoomID, input.RoomPassword)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

func (h *ScoreHandler) StartMatch(w http.ResponseWriter, r *http.Request) {
	hostID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		h.unauthorizedResponse(w, r, err.Error())
		return
	}
	matchID, err := urlParamInt(r, "matchID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	match, err := h.scoreService.StartMatch(r.Context(), hostID, matchID)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

type submitScoreRequest struct {
	EntryID         int `json:"entry_id"`
	KillPoints      int `json:"kill_points"`
	PlacementPoints int `json:"placement_points"`
}

func (h *ScoreHandler) SubmitScore(w http.ResponseWriter, r *http.Request) {
	hostID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		h.unauthorizedResponse(w, r, err.Error())
		return
	}
	matchID, err := urlParamInt(r, "matchID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	var input submitScoreRequest
	if err := readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	score, err := h.scoreService.SubmitScore(r.Context(), hostID, matchID, input.EntryID, input.KillPoints, input.PlacementPoints)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"score": score}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

func (h *ScoreHandler) FinalizeMatch(w http.ResponseWriter, r *http.Request) {
	hostID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		h.unauthorizedResponse(w, r, err.Error())
		return
	}
	matchID, err := urlParamInt(r, "matchID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	standings, err := h.scoreService.FinalizeMatch(r.Context(), hostID, matchID)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

func (h *ScoreHandler) ReopenMatch(w http.ResponseWriter, r *http.Request) {
	hostID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		h.unauthorizedResponse(w, r, err.Error())
		return
	}
	matchID, err := urlParamInt(r, "matchID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	if err := h.scoreService.ReopenMatch(r.Context(), hostID, matchID); err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "ok"}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

func (h *ScoreHandler) GetGroupStandings(w http.ResponseWriter, r *http.Request) {
	roundID, err := urlParamInt(r, "roundID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	views, err := h.scoreService.GetGroupStandings(r.Context(), roundID)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"groups": views}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

func (h *ScoreHandler) GetMatchSchedule(w http.ResponseWriter, r *http.Request) {
	roundID, err := urlParamInt(r, "roundID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	schedule, err := h.scoreService.GetMatchSchedule(r.Context(), roundID)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"schedule": schedule}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}
