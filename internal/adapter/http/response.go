package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aiverse-platform/publish-engine/internal/domain"
)

type envelope struct {
	Data    any            `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Data: data})
}

func writeError(w http.ResponseWriter, err error) {
	status, body := errorResponse(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func errorResponse(err error) (int, envelope) {
	if e, ok := domain.AsError(err); ok {
		status := statusFor(e)
		if status >= http.StatusInternalServerError {
			slog.Error("publish error", "kind", e.Kind.String(), "code", string(e.Code), "error", err)
		}
		return status, envelope{Error: e.Message, Code: string(e.Code), Details: e.Details}
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, envelope{Error: err.Error()}
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, envelope{Error: err.Error()}
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, envelope{Error: err.Error()}
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden, envelope{Error: err.Error()}
	}
	slog.Error("internal error", "error", err)
	return http.StatusInternalServerError, envelope{Error: "internal server error"}
}

func statusFor(e *domain.Error) int {
	if e.Kind == domain.KindProcessing {
		return http.StatusBadGateway
	}
	switch e.Code {
	case domain.CodeValidation, domain.CodeInvalidIconURL, domain.CodeInvalidRepoURL, domain.CodeInvalidScreenshotURL:
		return http.StatusBadRequest
	case domain.CodeProfileNotFound:
		return http.StatusNotFound
	case domain.CodePermissionDenied, domain.CodePermissionError:
		return http.StatusForbidden
	case domain.CodeInactiveAccount:
		return http.StatusPaymentRequired
	case domain.CodeDuplicateAppName:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
