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

	"github.com/go-chi/chi/v5"
	"github.com/scrimverse/tournament-engine/repositories"
	"github.com/scrimverse/tournament-engine/services"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
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

func urlParamInt(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s parameter: %q", name, raw)
	}
	return id, nil
}

// responder owns the error-response helpers so every handler logs through the
// logger configured at startup rather than the package-level default.
type responder struct {
	logger *slog.Logger
}

func (rs responder) errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}) {
	env := jsonResponse{"error": message}
	if err := writeJSON(w, status, env, nil); err != nil {
		rs.logger.Error("failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (rs responder) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	rs.logger.Error("internal server error", slog.String("path", r.URL.Path), slog.Any("error", err))
	rs.errorResponse(w, r, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
}

func (rs responder) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	rs.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (rs responder) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	rs.errorResponse(w, r, http.StatusNotFound, "the requested resource could not be found")
}

func (rs responder) conflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	rs.errorResponse(w, r, http.StatusConflict, message)
}

func (rs responder) unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	rs.errorResponse(w, r, http.StatusUnauthorized, message)
}

func (rs responder) forbiddenResponse(w http.ResponseWriter, r *http.Request, message string) {
	rs.errorResponse(w, r, http.StatusForbidden, message)
}

// mapServiceErrorToHTTP translates service-layer sentinel errors into HTTP
// responses.
func (rs responder) mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, repositories.ErrTournamentNotFound),
		errors.Is(err, repositories.ErrRoundNotFound),
		errors.Is(err, repositories.ErrGroupNotFound),
		errors.Is(err, repositories.ErrMatchNotFound),
		errors.Is(err, repositories.ErrEntryNotFound):
		rs.notFoundResponse(w, r)

	// Conflicts: duplicate formation, frozen matches, unsafe aborts.
	case errors.Is(err, services.ErrRoundAlreadyFormed),
		errors.Is(err, services.ErrMatchFinalized),
		errors.Is(err, services.ErrAbortNotAllowed),
		errors.Is(err, repositories.ErrRoundConflict),
		errors.Is(err, repositories.ErrEntryConflict),
		errors.Is(err, repositories.ErrTournamentTitleConflict):
		rs.conflictResponse(w, r, err.Error())

	// Validation and business-rule violations.
	case errors.Is(err, services.ErrValidationFailed),
		errors.Is(err, services.ErrInvalidStrategy),
		errors.Is(err, services.ErrInvalidQualification),
		errors.Is(err, services.ErrInvalidMatchCount),
		errors.Is(err, services.ErrInvalidQualifierCount),
		errors.Is(err, services.ErrInvalidRoundNumber),
		errors.Is(err, services.ErrUnknownParticipant),
		errors.Is(err, services.ErrIncompleteScores),
		errors.Is(err, services.ErrRoundIncomplete),
		errors.Is(err, services.ErrInsufficientGroups),
		errors.Is(err, services.ErrSequentialMatchOrder),
		errors.Is(err, services.ErrMatchNotFinalized),
		errors.Is(err, services.ErrMatchNotLive),
		errors.Is(err, services.ErrIllegalTransition):
		rs.badRequestResponse(w, r, err)

	// Terminal tournaments reject all mutations.
	case errors.Is(err, services.ErrTournamentClosed):
		rs.conflictResponse(w, r, err.Error())

	case errors.Is(err, services.ErrHostOnly),
		errors.Is(err, services.ErrForbiddenOperation):
		rs.forbiddenResponse(w, r, err.Error())

	default:
		rs.serverErrorResponse(w, r, err)
	}
}
