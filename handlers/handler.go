package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/pkg/errors"

	"github.com/andrewpaige1/prepass-api/analysis"
	"github.com/andrewpaige1/prepass-api/apperr"
	"github.com/andrewpaige1/prepass-api/middleware"
	"github.com/andrewpaige1/prepass-api/models"
	"github.com/andrewpaige1/prepass-api/repository"
	"github.com/andrewpaige1/prepass-api/session"
	"github.com/andrewpaige1/prepass-api/study"
)

// Store is the record store the handlers need.
type Store interface {
	LoadLibrary(ctx context.Context, userID string) (*repository.Library, error)
	ListFlashcards(ctx context.Context, userID string) ([]models.Flashcard, error)
	CreateFlashcards(ctx context.Context, userID string, drafts []models.FlashcardDraft) ([]models.Flashcard, error)
	UpdateFlashcardStrength(ctx context.Context, userID, publicID string, strength models.Strength) (*models.Flashcard, error)
	SaveFlashcard(ctx context.Context, card *models.Flashcard) error
	ListQuizzes(ctx context.Context, userID string) ([]models.Quiz, error)
	ListImportantPoints(ctx context.Context, userID string) ([]models.ImportantPoint, error)
	SaveAnalysis(ctx context.Context, userID string, gen repository.Generated) (*repository.Library, *models.Note, error)
	DeleteAll(ctx context.Context, userID string) error
	ListNotes(ctx context.Context, userID string) ([]models.Note, error)
	DeleteNote(ctx context.Context, userID, publicID string) error
	RecordQuizResult(ctx context.Context, userID string, correct, total, percentage int) (*models.QuizResult, error)
	CountQuizResults(ctx context.Context, userID string) (int, error)
}

// Handler serves the API.
type Handler struct {
	Store    Store
	Analyzer analysis.Analyzer
	Sessions *session.Registry
	Limits   analysis.Limits
	Logger   *slog.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// respondErr maps err to a status and a message the user may see.
func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := apperr.UserMessage(err, "Something went wrong")
	if code == "" {
		if sessionRule(err) {
			msg = err.Error()
		}
	}

	if status >= http.StatusInternalServerError {
		h.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		h.Logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

var sessionErrors = []error{
	study.ErrInvalidStrength,
	study.ErrNoQuestions,
	study.ErrQuizComplete,
	study.ErrAnswerLocked,
	study.ErrAlreadyAnswered,
	study.ErrNoSelection,
	study.ErrNotAnswered,
	study.ErrOptionOutOfRange,
	errNoSession,
}

func sessionRule(err error) bool {
	for _, target := range sessionErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func statusFor(err error) (int, string) {
	if appErr, ok := apperr.As(err); ok {
		code := string(appErr.Kind)
		if appErr.Reason != apperr.ReasonNone {
			code = string(appErr.Reason)
		}
		switch appErr.Kind {
		case apperr.KindInput, apperr.KindValidation:
			return http.StatusBadRequest, code
		case apperr.KindNotFound:
			return http.StatusNotFound, code
		case apperr.KindService:
			switch appErr.Reason {
			case apperr.ReasonRateLimited:
				return http.StatusTooManyRequests, code
			case apperr.ReasonQuotaExhausted:
				return http.StatusPaymentRequired, code
			}
			return http.StatusBadGateway, code
		default:
			return http.StatusInternalServerError, code
		}
	}
	if errors.Is(err, study.ErrInvalidStrength) || errors.Is(err, study.ErrOptionOutOfRange) {
		return http.StatusBadRequest, ""
	}
	if sessionRule(err) {
		return http.StatusConflict, ""
	}
	return http.StatusInternalServerError, ""
}

// currentUser returns the auth subject of the synced user.
func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok || user.AuthID == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return "", false
	}
	return user.AuthID, true
}

func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return apperr.Validation("Could not decode request")
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for bodies that may be absent, including an
// empty chunked body. v is left untouched when there is no body.
func decodeOptionalJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Validation("Could not decode request")
	}
	return nil
}
