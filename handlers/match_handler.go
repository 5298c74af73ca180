package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/services"
	"github.com/go-chi/chi/v5"
)

type MatchHandler struct {
	errorHelpers
	matchService services.MatchService
}

func NewMatchHandler(matchService services.MatchService, logger *slog.Logger) *MatchHandler {
	return &MatchHandler{
		errorHelpers: errorHelpers{logger: logger},
		matchService: matchService,
	}
}

type reportResultRequest struct {
	TeamAScore      int  `json:"team_a_score"`
	TeamBScore      int  `json:"team_b_score"`
	WinnerTeamID    *int `json:"winner_team_id"`
	ExpectedVersion *int `json:"expected_version"`
}

func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	m, err := h.matchService.GetMatch(r.Context(), chi.URLParam(r, "matchID"))
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.writeResponse(w, r, http.StatusOK, m)
}

func (h *MatchHandler) StartMatch(w http.ResponseWriter, r *http.Request) {
	out, err := h.matchService.StartMatch(r.Context(), chi.URLParam(r, "matchID"))
	h.respondOutcome(w, r, out, err)
}

func (h *MatchHandler) ReportResult(w http.ResponseWriter, r *http.Request) {
	var req reportResultRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	out, err := h.matchService.ReportResult(r.Context(), services.ReportResultInput{
		MatchID:         chi.URLParam(r, "matchID"),
		TeamAScore:      req.TeamAScore,
		TeamBScore:      req.TeamBScore,
		WinnerTeamID:    req.WinnerTeamID,
		ExpectedVersion: req.ExpectedVersion,
	})
	h.respondOutcome(w, r, out, err)
}

func (h *MatchHandler) CancelMatch(w http.ResponseWriter, r *http.Request) {
	out, err := h.matchService.CancelMatch(r.Context(), chi.URLParam(r, "matchID"))
	h.respondOutcome(w, r, out, err)
}

func (h *MatchHandler) respondOutcome(w http.ResponseWriter, r *http.Request, out *brackets.Outcome, err error) {
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.writeResponse(w, r, http.StatusOK, out)
}
