package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/services"
)

type BracketHandler struct {
	errorHelpers
	bracketService services.BracketService
}

func NewBracketHandler(bracketService services.BracketService, logger *slog.Logger) *BracketHandler {
	return &BracketHandler{
		errorHelpers:   errorHelpers{logger: logger},
		bracketService: bracketService,
	}
}

type generateBracketRequest struct {
	Teams                []models.Team        `json:"teams"`
	Format               models.Format        `json:"format"`
	SeedingPolicy        models.SeedingPolicy `json:"seeding_policy"`
	BestOf               int                  `json:"best_of"`
	FinalsBestOf         int                  `json:"finals_best_of"`
	RoundRobinLegs       int                  `json:"round_robin_legs"`
	SwissRounds          int                  `json:"swiss_rounds"`
	StartAt              *time.Time           `json:"start_at"`
	RoundIntervalMinutes int                  `json:"round_interval_minutes"`
	RandomSeed           *int64               `json:"random_seed"`
}

func (h *BracketHandler) GenerateBracket(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := parseTournamentID(r)
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	var req generateBracketRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	switch {
	case req.Format == "":
		h.badRequestResponse(w, r, errors.New("format is required"))
		return
	case !req.Format.Valid():
		h.badRequestResponse(w, r, fmt.Errorf("unknown format %q", req.Format))
		return
	}

	view, err := h.bracketService.GenerateBracket(r.Context(), services.GenerateBracketInput{
		TournamentID:   tournamentID,
		Teams:          req.Teams,
		Format:         req.Format,
		SeedingPolicy:  req.SeedingPolicy,
		BestOf:         req.BestOf,
		FinalsBestOf:   req.FinalsBestOf,
		RoundRobinLegs: req.RoundRobinLegs,
		SwissRounds:    req.SwissRounds,
		StartAt:        req.StartAt,
		RoundInterval:  time.Duration(req.RoundIntervalMinutes) * time.Minute,
		RandomSeed:     req.RandomSeed,
	})
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.writeResponse(w, r, http.StatusCreated, view)
}

func (h *BracketHandler) GetBracket(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := parseTournamentID(r)
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	view, err := h.bracketService.GetBracketView(r.Context(), tournamentID)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.writeResponse(w, r, http.StatusOK, view)
}

func (h *BracketHandler) GetStandings(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := parseTournamentID(r)
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	standings, err := h.bracketService.GetStandings(r.Context(), tournamentID)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.writeResponse(w, r, http.StatusOK, standings)
}

func (h *BracketHandler) NextSwissRound(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := parseTournamentID(r)
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	created, err := h.bracketService.GenerateNextSwissRound(r.Context(), tournamentID)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.writeResponse(w, r, http.StatusCreated, jsonResponse{"matches": created})
}
