package circuitbreaker_test

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/fd1az/lendscope/internal/apperror"
	"github.com/fd1az/lendscope/internal/circuitbreaker"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cfg := circuitbreaker.DefaultConfig("rpc:test")
	cfg.FailureThreshold = 2
	cfg.Timeout = time.Hour

	var transitions []gobreaker.State
	cfg.OnStateChange = func(_ string, _, to gobreaker.State) {
		transitions = append(transitions, to)
	}

	cb := circuitbreaker.New[int](cfg)
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		if _, err := cb.Execute(func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
			t.Fatalf("attempt %d: expected boom, got %v", i, err)
		}
	}

	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("expected open state, got %s", cb.State())
	}

	called := false
	_, err := cb.Execute(func() (int, error) {
		called = true
		return 1, nil
	})
	if called {
		t.Error("expected call to be rejected while open")
	}
	if apperror.GetCode(err) != apperror.CodeCircuitOpen {
		t.Errorf("expected CodeCircuitOpen, got %v", err)
	}
	if len(transitions) != 1 || transitions[0] != gobreaker.StateOpen {
		t.Errorf("expected a single transition to open, got %v", transitions)
	}
}

func TestCircuitBreaker_PassesResults(t *testing.T) {
	cb := circuitbreaker.New[string](circuitbreaker.DefaultConfig("ok"))

	got, err := cb.Execute(func() (string, error) { return "gm", nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "gm" {
		t.Errorf("expected gm, got %q", got)
	}
	if cb.Name() != "ok" {
		t.Errorf("unexpected name %q", cb.Name())
	}
}
