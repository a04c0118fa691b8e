package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/petrijr/disparo/internal/persistence"
	"github.com/petrijr/disparo/pkg/api"
)

// engineImpl is a synchronous, in-process engine implementation.
// Asynchrony comes from the dispatch layer feeding it from a queue.
type engineImpl struct {
	registry *functionRegistry
	runs     persistence.RunStore
	history  persistence.HistoryStore
	observer api.Observer
}

// Config describes how to construct an engineImpl. Only used inside
// this package; external callers use the helper constructors.
type Config struct {
	Persistence persistence.Persistence
	Observer    api.Observer
}

// NewEngineWithConfig creates a new Engine using the given configuration.
func NewEngineWithConfig(cfg Config) api.Engine {
	obs := cfg.Observer
	if obs == nil {
		obs = api.NoopObserver{}
	}
	history := cfg.Persistence.History
	if history == nil {
		history = persistence.NoopHistoryStore{}
	}
	return &engineImpl{
		registry: newFunctionRegistry(),
		runs:     cfg.Persistence.Runs,
		history:  history,
		observer: obs,
	}
}

// NewEngine returns an Engine backed by the given persistence bundle.
func NewEngine(p persistence.Persistence) api.Engine {
	return NewEngineWithConfig(Config{Persistence: p})
}

// NewInMemoryEngine returns an Engine backed entirely by in-memory stores.
func NewInMemoryEngine() api.Engine {
	mem := persistence.NewInMemoryStore()
	return NewEngine(persistence.Persistence{
		Runs:    mem,
		History: mem,
	})
}

// NewInMemoryEngineWithObserver returns an in-memory Engine with the
// given Observer.
func NewInMemoryEngineWithObserver(obs api.Observer) api.Engine {
	mem := persistence.NewInMemoryStore()
	return NewEngineWithConfig(Config{
		Persistence: persistence.Persistence{Runs: mem, History: mem},
		Observer:    obs,
	})
}

// NewSQLiteEngine returns an Engine that persists runs and history in a
// SQLite database.
func NewSQLiteEngine(db *sql.DB) (api.Engine, error) {
	return NewSQLiteEngineWithObserver(db, nil)
}

// NewSQLiteEngineWithObserver returns a SQLite-backed Engine with the
// given Observer.
func NewSQLiteEngineWithObserver(db *sql.DB, obs api.Observer) (api.Engine, error) {
	runs, err := persistence.NewSQLiteRunStore(db)
	if err != nil {
		return nil, err
	}
	history, err := persistence.NewSQLiteHistoryStore(db)
	if err != nil {
		return nil, err
	}
	return NewEngineWithConfig(Config{
		Persistence: persistence.Persistence{Runs: runs, History: history},
		Observer:    obs,
	}), nil
}

// NewPostgresEngine returns an Engine that persists runs in PostgreSQL.
// Run history is kept in-memory.
func NewPostgresEngine(db *sql.DB) (api.Engine, error) {
	return NewPostgresEngineWithObserver(db, nil)
}

// NewPostgresEngineWithObserver returns a Postgres-backed Engine with
// the given Observer.
func NewPostgresEngineWithObserver(db *sql.DB, obs api.Observer) (api.Engine, error) {
	runs, err := persistence.NewPostgresRunStore(db)
	if err != nil {
		return nil, err
	}
	return NewEngineWithConfig(Config{
		Persistence: persistence.Persistence{
			Runs:    runs,
			History: persistence.NewInMemoryStore(),
		},
		Observer: obs,
	}), nil
}

// NewRedisEngine returns an Engine that persists runs in Redis. Run
// history is kept in-memory.
func NewRedisEngine(client *redis.Client) api.Engine {
	return NewRedisEngineWithObserver(client, nil)
}

// NewRedisEngineWithObserver returns a Redis-backed Engine with the
// given Observer.
func NewRedisEngineWithObserver(client *redis.Client, obs api.Observer) api.Engine {
	return NewEngineWithConfig(Config{
		Persistence: persistence.Persistence{
			Runs:    persistence.NewRedisRunStore(client, "disparo:"),
			History: persistence.NewInMemoryStore(),
		},
		Observer: obs,
	})
}

func (e *engineImpl) RegisterFunction(def api.FunctionDefinition) error {
	if def.Name == "" {
		return errors.New("function name is required")
	}
	if def.Event == "" {
		return errors.New("function must be bound to an event")
	}
	if len(def.Steps) == 0 {
		return errors.New("function must have at least one step")
	}
	for _, step := range def.Steps {
		if step.Name == "" {
			return fmt.Errorf("function %s has an unnamed step", def.Name)
		}
		if step.Fn == nil {
			return fmt.Errorf("function %s step %q has nil function", def.Name, step.Name)
		}
	}

	return e.registry.Register(def)
}

func (e *engineImpl) FunctionsForEvent(event string) []api.FunctionDefinition {
	return e.registry.ForEvent(event)
}

func (e *engineImpl) Run(ctx context.Context, function string, evt api.Event) (*api.FunctionRun, error) {
	def, err := e.registry.Get(function)
	if err != nil {
		return nil, err
	}

	if evt.Name != "" && evt.Name != def.Event {
		return nil, fmt.Errorf("function %s is bound to event %s, not %s", def.Name, def.Event, evt.Name)
	}
	if evt.Name == "" {
		evt.Name = def.Event
	}

	run := &api.FunctionRun{
		ID:        uuid.NewString(),
		Function:  def.Name,
		Event:     evt,
		Status:    api.StatusPending,
		CreatedAt: time.Now(),
	}

	// Persist the run before the first step so a crash leaves a record.
	if err := e.runs.SaveRun(run); err != nil {
		return nil, err
	}

	run.Status = api.StatusRunning
	if err := e.runs.UpdateRun(run); err != nil {
		return run, err
	}

	e.observer.OnRunStart(ctx, run)
	e.appendHistory(ctx, run, api.RunEventStarted, "", "")

	return e.executeSteps(ctx, def, run)
}

func (e *engineImpl) GetRun(ctx context.Context, id string) (*api.FunctionRun, error) {
	run, err := e.runs.GetRun(id)
	if err != nil {
		if errors.Is(err, persistence.ErrRunNotFound) {
			return nil, fmt.Errorf("%w: %s", api.ErrRunNotFound, id)
		}
		return nil, err
	}
	return run, nil
}

func (e *engineImpl) ListRuns(ctx context.Context, opts api.RunListOptions) ([]*api.FunctionRun, error) {
	filter := persistence.RunFilter{
		Function: opts.Function,
		Event:    opts.Event,
		Status:   opts.Status,
	}
	return e.runs.ListRuns(filter)
}

func (e *engineImpl) Resume(ctx context.Context, id string) (*api.FunctionRun, error) {
	run, err := e.runs.GetRun(id)
	if err != nil {
		if errors.Is(err, persistence.ErrRunNotFound) {
			return nil, fmt.Errorf("%w: %s", api.ErrRunNotFound, id)
		}
		return nil, err
	}

	if run.Status != api.StatusFailed {
		return nil, fmt.Errorf("cannot resume run %s in status %s", id, run.Status)
	}

	def, err := e.registry.Get(run.Function)
	if err != nil {
		return nil, fmt.Errorf("function definition not found for run %s (function=%s)", id, run.Function)
	}

	// Reset runtime fields and replay from the beginning with the
	// stored event.
	run.Status = api.StatusRunning
	run.Err = nil
	run.Output = nil
	run.Steps = nil
	run.CurrentStep = 0

	if err := e.runs.UpdateRun(run); err != nil {
		return run, err
	}

	e.appendHistory(ctx, run, api.RunEventResumed, "", "")

	return e.executeSteps(ctx, def, run)
}

func (e *engineImpl) RecoverStuckRuns(ctx context.Context) (int, error) {
	stuck, err := e.runs.ListRuns(persistence.RunFilter{Status: api.StatusRunning})
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, run := range stuck {
		run.Status = api.StatusFailed
		run.Err = errors.New("run interrupted: marked failed on recovery")
		if err := e.runs.UpdateRun(run); err != nil {
			return recovered, err
		}
		e.appendHistory(ctx, run, api.RunEventFailed, "", "interrupted")
		recovered++
	}

	return recovered, nil
}

// ListRunEvents implements api.HistoryReader.
func (e *engineImpl) ListRunEvents(ctx context.Context, runID string) ([]api.RunEvent, error) {
	return e.history.ListEvents(ctx, runID)
}

func (e *engineImpl) executeSteps(
	ctx context.Context,
	def api.FunctionDefinition,
	run *api.FunctionRun,
) (*api.FunctionRun, error) {
	var current any = run.Event.Data

	for i := run.CurrentStep; i < len(def.Steps); i++ {
		step := def.Steps[i]

		run.CurrentStep = i
		_ = e.runs.UpdateRun(run)

		maxAttempts := 1
		var (
			backoff    time.Duration
			maxBackoff time.Duration
			multiplier float64
		)

		if step.Retry != nil {
			if step.Retry.MaxAttempts > 0 {
				maxAttempts = step.Retry.MaxAttempts
			}
			backoff = step.Retry.InitialBackoff
			maxBackoff = step.Retry.MaxBackoff

			// Default to standard exponential backoff.
			multiplier = step.Retry.BackoffMultiplier
			if multiplier <= 0 {
				multiplier = 2.0
			}
		}

		e.appendHistory(ctx, run, api.RunEventStepStarted, step.Name, "")

		result := api.StepResult{
			Name:      step.Name,
			StartedAt: time.Now(),
		}

		var lastErr error

		for attempt := 1; attempt <= maxAttempts; attempt++ {
			select {
			case <-ctx.Done():
				result.Attempts = attempt - 1
				result.Error = ctx.Err().Error()
				result.Duration = time.Since(result.StartedAt)
				run.Steps = append(run.Steps, result)
				return e.failRun(ctx, run, step.Name, ctx.Err())
			default:
			}

			startTime := time.Now()
			e.observer.OnStepStart(ctx, run, step.Name, i)

			next, err := step.Fn(ctx, current)

			duration := time.Since(startTime)
			e.observer.OnStepCompleted(ctx, run, step.Name, i, err, duration)

			result.Attempts = attempt

			if err == nil {
				current = next
				lastErr = nil
				result.Output = next
				break
			}

			lastErr = err

			if attempt == maxAttempts {
				break
			}

			// Wait before the next attempt, if backoff is configured.
			if backoff > 0 {
				delay := backoff
				if maxBackoff > 0 && delay > maxBackoff {
					delay = maxBackoff
				}

				select {
				case <-ctx.Done():
					result.Error = ctx.Err().Error()
					result.Duration = time.Since(result.StartedAt)
					run.Steps = append(run.Steps, result)
					return e.failRun(ctx, run, step.Name, ctx.Err())
				case <-time.After(delay):
				}

				// Increase backoff for the next retry.
				nextBackoff := time.Duration(float64(backoff) * multiplier)
				if maxBackoff > 0 && nextBackoff > maxBackoff {
					backoff = maxBackoff
				} else {
					backoff = nextBackoff
				}
			}
		}

		result.Duration = time.Since(result.StartedAt)

		if lastErr != nil {
			result.Error = lastErr.Error()
			run.Steps = append(run.Steps, result)
			e.appendHistory(ctx, run, api.RunEventStepFailed, step.Name, lastErr.Error())
			return e.failRun(ctx, run, step.Name, lastErr)
		}

		run.Steps = append(run.Steps, result)
		_ = e.runs.UpdateRun(run)
		e.appendHistory(ctx, run, api.RunEventStepCompleted, step.Name, "")
	}

	run.Status = api.StatusCompleted
	run.Output = current
	run.CurrentStep = len(def.Steps)
	_ = e.runs.UpdateRun(run)

	e.observer.OnRunCompleted(ctx, run)
	e.appendHistory(ctx, run, api.RunEventCompleted, "", "")

	return run, nil
}

func (e *engineImpl) failRun(ctx context.Context, run *api.FunctionRun, step string, err error) (*api.FunctionRun, error) {
	run.Status = api.StatusFailed
	run.Err = err
	run.Output = nil
	_ = e.runs.UpdateRun(run)

	e.observer.OnRunFailed(ctx, run, err)
	e.appendHistory(ctx, run, api.RunEventFailed, step, err.Error())

	return run, err
}

func (e *engineImpl) appendHistory(ctx context.Context, run *api.FunctionRun, typ api.RunEventType, step, detail string) {
	// History is best-effort; a failed append never fails the run.
	_ = e.history.AppendEvent(ctx, api.RunEvent{
		RunID:    run.ID,
		At:       time.Now(),
		Type:     typ,
		Function: run.Function,
		Step:     step,
		Detail:   detail,
	})
}
