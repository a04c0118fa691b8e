package disparo

import (
	"context"
	"strings"
	"testing"
	"time"
)

func noopStep(ctx context.Context, input any) (any, error) {
	return input, nil
}

func TestBuilderAccumulatesSteps(t *testing.T) {
	fn := NewFunction("order-processor", "order/created").
		Step("charge", noopStep).
		StepWithRetry("notify", noopStep, Retry(3).WithConstantBackoff(10*time.Millisecond).Policy())

	if fn.Name() != "order-processor" {
		t.Errorf("expected name order-processor, got %s", fn.Name())
	}
	if fn.Event() != "order/created" {
		t.Errorf("expected event order/created, got %s", fn.Event())
	}

	def := fn.Definition()
	if len(def.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(def.Steps))
	}
	if def.Steps[0].Name != "charge" || def.Steps[0].Retry != nil {
		t.Errorf("unexpected first step: %+v", def.Steps[0])
	}
	if def.Steps[1].Name != "notify" || def.Steps[1].Retry == nil {
		t.Fatalf("unexpected second step: %+v", def.Steps[1])
	}
	if def.Steps[1].Retry.MaxAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", def.Steps[1].Retry.MaxAttempts)
	}
}

func TestStepWithRetryCopiesPolicy(t *testing.T) {
	policy := Retry(2).WithConstantBackoff(time.Millisecond).Policy()
	fn := NewFunction("f", "e").StepWithRetry("s", noopStep, policy)

	policy.MaxAttempts = 99

	if got := fn.Definition().Steps[0].Retry.MaxAttempts; got != 2 {
		t.Fatalf("stored policy changed after caller mutation: %d", got)
	}
}

func TestBuilderPanics(t *testing.T) {
	tests := []struct {
		name    string
		build   func()
		message string
	}{
		{
			"empty step name",
			func() { NewFunction("f", "e").Step("", noopStep) },
			"step name must not be empty",
		},
		{
			"nil step func",
			func() { NewFunction("f", "e").Step("s", nil) },
			`step "s" has nil function`,
		},
		{
			"empty name with retry",
			func() { NewFunction("f", "e").StepWithRetry("", noopStep, Retry(1).Policy()) },
			"step name must not be empty",
		},
		{
			"nil func with retry",
			func() { NewFunction("f", "e").StepWithRetry("s", nil, Retry(1).Policy()) },
			`step "s" has nil function`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				r := recover()
				if r == nil {
					t.Fatal("expected a panic")
				}
				msg, ok := r.(string)
				if !ok || !strings.Contains(msg, tt.message) {
					t.Fatalf("unexpected panic value: %v", r)
				}
			}()
			tt.build()
		})
	}
}

func TestRegister(t *testing.T) {
	eng := NewInMemoryEngine()

	fn := NewFunction("greeter", "test/hello.world").Step("greet", noopStep)
	if err := fn.Register(eng); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// Registering the same name again fails, so MustRegister panics.
	defer func() {
		if recover() == nil {
			t.Fatal("expected MustRegister to panic on duplicate registration")
		}
	}()
	fn.MustRegister(eng)
}

func TestMustRegisterInvalidDefinition(t *testing.T) {
	eng := NewInMemoryEngine()

	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic for a function with no steps")
		}
	}()
	NewFunction("empty", "some/event").MustRegister(eng)
}
