package disparo

import "time"

// RetryBuilder composes a RetryPolicy for FunctionBuilder.StepWithRetry.
//
//	Retry(3).WithExponentialBackoff(100*time.Millisecond, 2.0, 2*time.Second).Policy()
type RetryBuilder struct {
	policy RetryPolicy
}

// Retry starts a builder allowing up to maxAttempts invocations of the
// step, including the first one. Values below 1 mean "run once, never
// retry".
func Retry(maxAttempts int) RetryBuilder {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return RetryBuilder{policy: RetryPolicy{MaxAttempts: maxAttempts}}
}

// WithExponentialBackoff sleeps initial before the first retry and
// multiplies the delay by multiplier for each retry after that, capped
// at max. A multiplier of zero or less falls back to 2.0; a max of zero
// or less leaves the delay uncapped.
func (r RetryBuilder) WithExponentialBackoff(initial time.Duration, multiplier float64, max time.Duration) RetryBuilder {
	if multiplier <= 0 {
		multiplier = 2.0
	}
	r.policy.InitialBackoff = initial
	r.policy.BackoffMultiplier = multiplier
	r.policy.MaxBackoff = max
	return r
}

// WithConstantBackoff sleeps the same delay before every retry.
func (r RetryBuilder) WithConstantBackoff(delay time.Duration) RetryBuilder {
	r.policy.InitialBackoff = delay
	r.policy.BackoffMultiplier = 1.0
	r.policy.MaxBackoff = 0
	return r
}

// Immediate retries without sleeping. MaxAttempts still applies.
func (r RetryBuilder) Immediate() RetryBuilder {
	r.policy.InitialBackoff = 0
	r.policy.BackoffMultiplier = 0
	r.policy.MaxBackoff = 0
	return r
}

// Policy returns the assembled RetryPolicy.
func (r RetryBuilder) Policy() RetryPolicy {
	return r.policy
}
