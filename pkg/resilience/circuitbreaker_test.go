package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/medsift/adr-engine/pkg/fn"
)

var errModel = errors.New("model unavailable")

func failing(context.Context) fn.Result[string] { return fn.Err[string](errModel) }

func succeeding(context.Context) fn.Result[string] { return fn.Ok("reply") }

func TestBreakerStartsClosed(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 3, Timeout: time.Second})
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed", b.State())
	}
}

func TestBreakerTripsAfterThreshold(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 3, Timeout: time.Second})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = CallResult(b, ctx, failing)
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	r := CallResult(b, ctx, succeeding)
	_, err := r.Unwrap()
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("open breaker should reject, got %v", err)
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 3, Timeout: time.Second})
	ctx := context.Background()

	_ = CallResult(b, ctx, failing)
	_ = CallResult(b, ctx, failing)
	_ = CallResult(b, ctx, succeeding)
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed after success", b.State())
	}

	// A full threshold of fresh failures is needed to trip again.
	_ = CallResult(b, ctx, failing)
	_ = CallResult(b, ctx, failing)
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want still closed", b.State())
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	now := time.Now()
	b := NewBreaker(BreakerOpts{FailThreshold: 2, Timeout: 5 * time.Second, HalfOpenMax: 1})
	b.now = func() time.Time { return now }
	ctx := context.Background()

	_ = CallResult(b, ctx, failing)
	_ = CallResult(b, ctx, failing)
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	now = now.Add(6 * time.Second)
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open after timeout", b.State())
	}

	if r := CallResult(b, ctx, succeeding); r.IsErr() {
		t.Fatal("half-open breaker should admit a call")
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed after successful recovery", b.State())
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(BreakerOpts{FailThreshold: 2, Timeout: 5 * time.Second, HalfOpenMax: 1})
	b.now = func() time.Time { return now }
	ctx := context.Background()

	_ = CallResult(b, ctx, failing)
	_ = CallResult(b, ctx, failing)
	now = now.Add(6 * time.Second)

	_ = CallResult(b, ctx, failing)
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open again", b.State())
	}
}

func TestBreakerHalfOpenCapsAdmissions(t *testing.T) {
	now := time.Now()
	b := NewBreaker(BreakerOpts{FailThreshold: 1, Timeout: 5 * time.Second, HalfOpenMax: 1})
	b.now = func() time.Time { return now }
	ctx := context.Background()

	_ = CallResult(b, ctx, failing)
	now = now.Add(6 * time.Second)

	blocked := CallResult(b, ctx, func(ctx context.Context) fn.Result[string] {
		// While this admitted call is in flight, a second call must be rejected.
		r := CallResult(b, ctx, succeeding)
		_, err := r.Unwrap()
		if !errors.Is(err, ErrCircuitOpen) {
			t.Errorf("second half-open call should be rejected, got %v", err)
		}
		return fn.Ok("reply")
	})
	if blocked.IsErr() {
		t.Fatal("first half-open call should be admitted")
	}
}

func TestBreakerStage(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 2, Timeout: time.Second})
	ctx := context.Background()

	stage := BreakerStage(b, func(ctx context.Context, prompt string) fn.Result[string] {
		return fn.Err[string](errModel)
	})

	_ = stage(ctx, "prompt one")
	_ = stage(ctx, "prompt two")

	r := stage(ctx, "prompt three")
	if r.IsOk() {
		t.Fatal("tripped breaker should fail the stage")
	}
	_, err := r.Unwrap()
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}
