package apperror_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/fd1az/lendscope/internal/apperror"
)

func TestNew_UsesCatalogMessage(t *testing.T) {
	err := apperror.New(apperror.CodeUnknownUnderlying,
		apperror.WithContextf("chain %s: token %s", "BASE", "0xabc"))

	if err.Message != "Pool underlying token is not mapped to an asset" {
		t.Errorf("unexpected message %q", err.Message)
	}
	if !strings.Contains(err.Error(), "chain BASE: token 0xabc") {
		t.Errorf("expected context in error string, got %q", err.Error())
	}
}

func TestHasCode_ThroughWrapping(t *testing.T) {
	cause := errors.New("connection reset")
	err := apperror.New(apperror.CodeRPCRetriesExhausted, apperror.WithCause(cause))
	wrapped := fmt.Errorf("extract BASE: %w", err)

	if !apperror.HasCode(wrapped, apperror.CodeRPCRetriesExhausted) {
		t.Error("expected code to be found through fmt wrapping")
	}
	if apperror.HasCode(wrapped, apperror.CodeDuplicateDeposit) {
		t.Error("unexpected code match")
	}
	if !errors.Is(wrapped, cause) {
		t.Error("expected cause to be reachable")
	}
	if apperror.GetCode(wrapped) != apperror.CodeRPCRetriesExhausted {
		t.Errorf("unexpected code %s", apperror.GetCode(wrapped))
	}
}

func TestWrap_KeepsExistingAppError(t *testing.T) {
	orig := apperror.New(apperror.CodePriceUnavailable)
	got := apperror.Wrap(orig, apperror.CodeInternalError, "pricing OX")

	if got != orig {
		t.Fatal("expected the same AppError back")
	}
	if got.Context != "pricing OX" {
		t.Errorf("expected context to be filled, got %q", got.Context)
	}
	if apperror.Wrap(nil, apperror.CodeInternalError, "x") != nil {
		t.Error("expected nil for nil error")
	}
}
