package apperr_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dalemusser/directoryhub/internal/app/system/apperr"
	"github.com/dalemusser/directoryhub/internal/app/system/sentinel"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{"not found", apperr.NotFound("claim not found"), apperr.KindNotFound},
		{"conflict", apperr.Conflict("dup"), apperr.KindConflict},
		{"invalid state", apperr.InvalidState("not pending"), apperr.KindInvalidState},
		{"forbidden", apperr.Forbidden("admin only"), apperr.KindForbidden},
		{"validation", apperr.Validation("rating"), apperr.KindValidation},
		{"wrapped typed", fmt.Errorf("approve: %w", apperr.InvalidState("x")), apperr.KindInvalidState},
		{"untyped", errors.New("connection reset"), apperr.KindInternal},
		{"context", context.DeadlineExceeded, apperr.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apperr.KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestWrap_KeepsCause(t *testing.T) {
	err := apperr.Wrap(apperr.KindConflict, "claim already pending", sentinel.ErrDuplicate)
	if !errors.Is(err, sentinel.ErrDuplicate) {
		t.Error("expected wrapped sentinel to be reachable with errors.Is")
	}
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Error("expected conflict kind")
	}
}

func TestMessage_HidesInfrastructureErrors(t *testing.T) {
	if got := apperr.Message(errors.New("server selection timeout")); got != "internal error" {
		t.Errorf("Message(untyped) = %q, want %q", got, "internal error")
	}
	if got := apperr.Message(apperr.NotFound("business not found")); got != "business not found" {
		t.Errorf("Message(typed) = %q", got)
	}
}
