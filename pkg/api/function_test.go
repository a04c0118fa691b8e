package api

import (
	"context"
	"errors"
	"testing"
	"time"
)

type greeting struct {
	Who string
}

func TestTypedStep(t *testing.T) {
	step := TypedStep(func(ctx context.Context, g greeting) (string, error) {
		return "hi " + g.Who, nil
	})

	out, err := step(context.Background(), greeting{Who: "alice"})
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if out != "hi alice" {
		t.Fatalf("unexpected output: %v", out)
	}
}

func TestTypedStepRejectsWrongInput(t *testing.T) {
	step := TypedStep(func(ctx context.Context, g greeting) (string, error) {
		return "", nil
	})

	_, err := step(context.Background(), 42)
	if err == nil {
		t.Fatal("expected type error")
	}
	var inputErr *StepInputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("expected StepInputError, got %T", err)
	}
	if inputErr.Got != 42 {
		t.Fatalf("expected Got to carry the input, got %v", inputErr.Got)
	}
}

func TestTypedStepNilInputYieldsZeroValue(t *testing.T) {
	step := TypedStep(func(ctx context.Context, g greeting) (string, error) {
		return "who=" + g.Who, nil
	})

	out, err := step(context.Background(), nil)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if out != "who=" {
		t.Fatalf("expected zero-value input, got %v", out)
	}
}

func TestSleepStepPassesInputThrough(t *testing.T) {
	step := SleepStep(time.Millisecond)

	out, err := step(context.Background(), "payload")
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if out != "payload" {
		t.Fatalf("expected input passthrough, got %v", out)
	}
}

func TestSleepStepHonorsCancellation(t *testing.T) {
	step := SleepStep(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := step(ctx, "payload")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEventString(t *testing.T) {
	evt := Event{
		Name: "test/hello.world",
		Data: map[string]any{"name": "alice", "count": 3},
	}

	if got := evt.String("name"); got != "alice" {
		t.Fatalf("expected alice, got %q", got)
	}
	if got := evt.String("count"); got != "" {
		t.Fatalf("expected empty string for non-string value, got %q", got)
	}
	if got := evt.String("missing"); got != "" {
		t.Fatalf("expected empty string for missing key, got %q", got)
	}
}
