package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/directoryhub/internal/app/system/apperr"
	"github.com/dalemusser/directoryhub/internal/app/system/limits"
	"go.uber.org/zap"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind apperr.Kind
		want int
	}{
		{apperr.KindNotFound, http.StatusNotFound},
		{apperr.KindConflict, http.StatusConflict},
		{apperr.KindInvalidState, http.StatusConflict},
		{apperr.KindForbidden, http.StatusForbidden},
		{apperr.KindValidation, http.StatusBadRequest},
		{apperr.KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := StatusFor(tt.kind); got != tt.want {
				t.Errorf("StatusFor(%s) = %d, want %d", tt.kind, got, tt.want)
			}
		})
	}
}

func TestError_Typed(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, zap.NewNop(), apperr.InvalidState("claim is not pending"))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	var body ErrorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "invalid_state" || body.Message != "claim is not pending" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestError_InternalHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, zap.NewNop(), errors.New("connection reset by peer"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection reset") {
		t.Error("internal error details leaked to response")
	}
}

func TestDecode(t *testing.T) {
	type in struct {
		Message string `json:"message"`
	}

	var ok in
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"message":"hi"}`))
	if err := Decode(req, &ok); err != nil || ok.Message != "hi" {
		t.Fatalf("Decode valid body: %v, %+v", err, ok)
	}

	var bad in
	req = httptest.NewRequest("POST", "/", strings.NewReader(`{"message":"hi","extra":1}`))
	if err := Decode(req, &bad); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error for unknown field, got %v", err)
	}

	huge := `{"message":"` + strings.Repeat("x", limits.MaxJSONBody) + `"}`
	req = httptest.NewRequest("POST", "/", strings.NewReader(huge))
	if err := Decode(req, &bad); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error for oversized body, got %v", err)
	}
}

func TestDecodeOptional(t *testing.T) {
	type in struct {
		Note *string `json:"note"`
	}

	var empty in
	if err := DecodeOptional(httptest.NewRequest("POST", "/", nil), &empty); err != nil || empty.Note != nil {
		t.Fatalf("DecodeOptional(no body) = %v, %+v", err, empty)
	}

	var withNote in
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"note":"ok"}`))
	if err := DecodeOptional(req, &withNote); err != nil || withNote.Note == nil || *withNote.Note != "ok" {
		t.Fatalf("DecodeOptional(body) = %v, %+v", err, withNote)
	}

	req = httptest.NewRequest("POST", "/", strings.NewReader(`{"note":`))
	if err := DecodeOptional(req, &withNote); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error for truncated body, got %v", err)
	}
}
