// Package respond writes JSON bodies and maps moderation errors to HTTP.
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dalemusser/directoryhub/internal/app/system/apperr"
	"github.com/dalemusser/directoryhub/internal/app/system/limits"
	"go.uber.org/zap"
)

// ErrorBody is the JSON shape of every error response.
//
//	{ "error": "invalid_state", "message": "claim is not pending" }
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// StatusFor maps an error kind to an HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict, apperr.KindInvalidState:
		return http.StatusConflict
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as an ErrorBody. Internal errors are logged with their
// cause and the caller only sees "internal error".
func Error(w http.ResponseWriter, log *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal && log != nil {
		log.Error("request failed", zap.Error(err))
	}
	JSON(w, StatusFor(kind), ErrorBody{Error: string(kind), Message: apperr.Message(err)})
}

// Decode reads a JSON request body into dst. Unknown fields are rejected.
func Decode(r *http.Request, dst any) error {
	if err := decode(r, dst); err != nil {
		return apperr.Validation("request body is not valid JSON")
	}
	return nil
}

// DecodeOptional is Decode for endpoints whose body may be omitted; an empty
// body leaves dst untouched.
func DecodeOptional(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	if err := decode(r, dst); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Validation("request body is not valid JSON")
	}
	return nil
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, limits.MaxJSONBody))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
