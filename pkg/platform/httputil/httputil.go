// Package httputil centralizes JSON encoding and domain error translation for
// the HTTP layer, so handlers never map status codes by hand.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	domainerrors "registrar/pkg/domain-errors"
)

// Validatable is implemented by request bodies that check their own fields.
type Validatable interface {
	Validate() error
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// WriteError maps the error's domain code onto a status line. Internal errors
// omit the description so infrastructure details never leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	code := domainerrors.CodeOf(err)
	status := StatusForCode(code)
	body := map[string]string{"error": string(code)}
	var de *domainerrors.Error
	if status < http.StatusInternalServerError && errors.As(err, &de) {
		body["error_description"] = de.Message
	}
	WriteJSON(w, status, body)
}

func StatusForCode(code domainerrors.Code) int {
	switch code {
	case domainerrors.CodeBadRequest:
		return http.StatusBadRequest
	case domainerrors.CodeUnauthorized, domainerrors.CodeAuth:
		return http.StatusUnauthorized
	case domainerrors.CodeNotFound:
		return http.StatusNotFound
	case domainerrors.CodeConflict, domainerrors.CodeInvalidState:
		return http.StatusConflict
	case domainerrors.CodeParse, domainerrors.CodeInvalidProposal:
		return http.StatusUnprocessableEntity
	case domainerrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case domainerrors.CodeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// DecodeAndPrepare decodes the JSON body into T and validates it when T
// implements Validatable. On failure it writes the error response itself and
// returns ok=false.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "request body did not decode", "request_id", requestID, "error", err)
		WriteError(w, domainerrors.Wrap(domainerrors.CodeBadRequest, "invalid JSON body", err))
		return nil, false
	}
	if v, ok := any(&req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			WriteError(w, err)
			return nil, false
		}
	}
	return &req, true
}
