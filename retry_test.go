package disparo

import (
	"testing"
	"time"
)

func TestRetryClampsAttempts(t *testing.T) {
	if got := Retry(0).Policy().MaxAttempts; got != 1 {
		t.Errorf("Retry(0): expected 1 attempt, got %d", got)
	}
	if got := Retry(-5).Policy().MaxAttempts; got != 1 {
		t.Errorf("Retry(-5): expected 1 attempt, got %d", got)
	}
	if got := Retry(4).Policy().MaxAttempts; got != 4 {
		t.Errorf("Retry(4): expected 4 attempts, got %d", got)
	}
}

func TestWithExponentialBackoff(t *testing.T) {
	p := Retry(3).WithExponentialBackoff(100*time.Millisecond, 3.0, 2*time.Second).Policy()

	if p.MaxAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", p.MaxAttempts)
	}
	if p.InitialBackoff != 100*time.Millisecond {
		t.Errorf("unexpected initial backoff: %v", p.InitialBackoff)
	}
	if p.BackoffMultiplier != 3.0 {
		t.Errorf("unexpected multiplier: %v", p.BackoffMultiplier)
	}
	if p.MaxBackoff != 2*time.Second {
		t.Errorf("unexpected max backoff: %v", p.MaxBackoff)
	}
}

func TestExponentialBackoffDefaultsMultiplier(t *testing.T) {
	p := Retry(2).WithExponentialBackoff(time.Millisecond, 0, 0).Policy()
	if p.BackoffMultiplier != 2.0 {
		t.Fatalf("expected default multiplier 2.0, got %v", p.BackoffMultiplier)
	}
}

func TestWithConstantBackoff(t *testing.T) {
	p := Retry(5).WithConstantBackoff(250 * time.Millisecond).Policy()

	if p.InitialBackoff != 250*time.Millisecond {
		t.Errorf("unexpected initial backoff: %v", p.InitialBackoff)
	}
	if p.BackoffMultiplier != 1.0 {
		t.Errorf("expected multiplier 1.0, got %v", p.BackoffMultiplier)
	}
	if p.MaxBackoff != 0 {
		t.Errorf("expected no max cap, got %v", p.MaxBackoff)
	}
}

func TestImmediate(t *testing.T) {
	p := Retry(3).WithConstantBackoff(time.Second).Immediate().Policy()

	if p.MaxAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", p.MaxAttempts)
	}
	if p.InitialBackoff != 0 || p.MaxBackoff != 0 || p.BackoffMultiplier != 0 {
		t.Fatalf("expected zeroed backoff, got %+v", p)
	}
}
