package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/go-chi/chi/v5"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func parseTournamentID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "tournamentID"))
	if err != nil || id <= 0 {
		return 0, errors.New("invalid tournament id")
	}
	return id, nil
}

// errorHelpers carries the logger every handler reports failures through.
type errorHelpers struct {
	logger *slog.Logger
}

func (h errorHelpers) errorResponse(w http.ResponseWriter, r *http.Request, status int, kind, message string) {
	env := jsonResponse{"error": map[string]string{"kind": kind, "message": message}}
	if err := writeJSON(w, status, env, nil); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (h errorHelpers) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	h.errorResponse(w, r, http.StatusInternalServerError, string(brackets.KindInternal),
		"the server encountered a problem and could not process your request")
}

func (h errorHelpers) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	h.errorResponse(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error())
}

func (h errorHelpers) writeResponse(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if err := writeJSON(w, status, data, nil); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write response", slog.Any("error", err))
	}
}

var kindStatus = map[brackets.Kind]int{
	brackets.KindInsufficientTeams:        http.StatusUnprocessableEntity,
	brackets.KindInvalidSeedSet:           http.StatusUnprocessableEntity,
	brackets.KindInvalidResult:            http.StatusUnprocessableEntity,
	brackets.KindInvalidGenerationRequest: http.StatusBadRequest,
	brackets.KindBracketLocked:            http.StatusConflict,
	brackets.KindGenerationInProgress:     http.StatusConflict,
	brackets.KindInvalidMatchState:        http.StatusConflict,
	brackets.KindStaleMatchState:          http.StatusConflict,
	brackets.KindUnknownMatch:             http.StatusNotFound,
	brackets.KindBracketNotFound:          http.StatusNotFound,
}

// mapServiceErrorToHTTP turns an engine error into its status code and
// machine-readable kind.
func (h errorHelpers) mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	kind := brackets.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		h.serverErrorResponse(w, r, err)
		return
	}
	h.errorResponse(w, r, status, string(kind), err.Error())
}
