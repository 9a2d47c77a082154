package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/scrimverse/tournament-engine/middleware"
	"github.com/scrimverse/tournament-engine/models"
	"github.com/scrimverse/tournament-engine/repositories"
	"github.com/scrimverse/tournament-engine/services"
)

type TournamentHandler struct {
	responder
	tournamentService services.TournamentService
}

func NewTournamentHandler(tournamentService services.TournamentService, logger *slog.Logger) *TournamentHandler {
	return &TournamentHandler{responder: responder{logger: logger}, tournamentService: tournamentService}
}

type createTournamentRequest struct {
	Title           string    `json:"title"`
	GameName        string    `json:"game_name"`
	GameMode        string    `json:"game_mode"`
	EventMode       string    `json:"event_mode"`
	MaxParticipants int       `json:"max_participants"`
	EntryFee        int       `json:"entry_fee"`
	PrizePool       int       `json:"prize_pool"`
	TotalRounds     int       `json:"total_rounds"`
	RegStart        time.Time `json:"reg_start"`
	RegEnd          time.Time `json:"reg_end"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
}

func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	hostID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		h.unauthorizedResponse(w, r, err.Error())
		return
	}

	var input createTournamentRequest
	if err := readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	tournament := &models.Tournament{
		HostID:          hostID,
		Title:           input.Title,
		GameName:        input.GameName,
		GameMode:        input.GameMode,
		EventMode:       models.EventMode(input.EventMode),
		MaxParticipants: input.MaxParticipants,
		EntryFee:        float64(input.EntryFee),
		PrizePool:       float64(input.PrizePool),
		TotalRounds:     input.TotalRounds,
		RegStart:        input.RegStart,
		RegEnd:          input.RegEnd,
		StartDate:       input.StartDate,
		EndDate:         input.EndDate,
	}

	if err := h.tournamentService.CreateTournament(r.Context(), tournament); err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) Get(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	tournament, err := h.tournamentService.GetTournament(r.Context(), tournamentID)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repositories.ListTournamentsFilter{Limit: 50}
	q := r.URL.Query()
	if game := q.Get("game"); game != "" {
		filter.GameName = &game
	}
	if rawStatus := q.Get("status"); rawStatus != "" {
		status := models.TournamentStatus(rawStatus)
		filter.Status = &status
	}

	tournaments, err := h.tournamentService.ListTournaments(r.Context(), filter)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// hostAction factors the shared shape of the state-machine endpoints: resolve
// the caller, resolve the tournament ID, run one service call.
func (h *TournamentHandler) hostAction(action func(r *http.Request, hostID, tournamentID int) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hostID, err := middleware.GetUserIDFromContext(r.Context())
		if err != nil {
			h.unauthorizedResponse(w, r, err.Error())
			return
		}
		tournamentID, err := urlParamInt(r, "tournamentID")
		if err != nil {
			h.badRequestResponse(w, r, err)
			return
		}
		if err := action(r, hostID, tournamentID); err != nil {
			h.mapServiceErrorToHTTP(w, r, err)
			return
		}
		if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "ok"}, nil); err != nil {
			h.serverErrorResponse(w, r, err)
		}
	}
}

func (h *TournamentHandler) OpenRegistration(w http.ResponseWriter, r *http.Request) {
	h.hostAction(func(r *http.Request, hostID, tournamentID int) error {
		return h.tournamentService.OpenRegistration(r.Context(), hostID, tournamentID)
	})(w, r)
}

func (h *TournamentHandler) CloseRegistration(w http.ResponseWriter, r *http.Request) {
	h.hostAction(func(r *http.Request, hostID, tournamentID int) error {
		return h.tournamentService.CloseRegistration(r.Context(), hostID, tournamentID)
	})(w, r)
}

func (h *TournamentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.hostAction(func(r *http.Request, hostID, tournamentID int) error {
		return h.tournamentService.CancelTournament(r.Context(), hostID, tournamentID)
	})(w, r)
}

type registerEntryRequest struct {
	TeamID      int    `json:"team_id"`
	DisplayName string `json:"display_name"`
}

func (h *TournamentHandler) RegisterEntry(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	var input registerEntryRequest
	if err := readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	entry, err := h.tournamentService.RegisterEntry(r.Context(), tournamentID, input.TeamID, input.DisplayName)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"entry": entry}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	entries, err := h.tournamentService.ListEntries(r.Context(), tournamentID)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"entries": entries}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) ConfigureRound(w http.ResponseWriter, r *http.Request) {
	hostID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		h.unauthorizedResponse(w, r, err.Error())
		return
	}
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	var cfg services.RoundConfig
	if err := readJSON(w, r, &cfg); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	round, err := h.tournamentService.ConfigureRound(r.Context(), hostID, tournamentID, cfg)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"round": round}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) StartRound(w http.ResponseWriter, r *http.Request) {
	hostID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		h.unauthorizedResponse(w, r, err.Error())
		return
	}
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	roundNumber, err := urlParamInt(r, "roundNumber")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	round, err := h.tournamentService.StartRound(r.Context(), hostID, tournamentID, roundNumber)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"round": round}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) CloseRound(w http.ResponseWriter, r *http.Request) {
	hostID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		h.unauthorizedResponse(w, r, err.Error())
		return
	}
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	roundNumber, err := urlParamInt(r, "roundNumber")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	result, err := h.tournamentService.CloseRound(r.Context(), hostID, tournamentID, roundNumber)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"result": result}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) AbortRound(w http.ResponseWriter, r *http.Request) {
	roundNumber, err := urlParamInt(r, "roundNumber")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	h.hostAction(func(r *http.Request, hostID, tournamentID int) error {
		return h.tournamentService.AbortRound(r.Context(), hostID, tournamentID, roundNumber)
	})(w, r)
}

func (h *TournamentHandler) Results(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	placements, err := h.tournamentService.FinalPlacements(r.Context(), tournamentID)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"placements": placements}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) UploadBanner(w http.ResponseWriter, r *http.Request) {
	hostID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		h.unauthorizedResponse(w, r, err.Error())
		return
	}
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	contentType := r.Header.Get("Content-Type")
	url, err := h.tournamentService.UploadBanner(r.Context(), hostID, tournamentID, contentType, r.Body)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"banner_url": url}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}
