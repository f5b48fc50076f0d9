package saga

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// CompensationTimeout bounds the rollback pass once a step has failed, run
// in its own context so a canceled parent doesn't also abort cleanup.
const CompensationTimeout = 10 * time.Minute

// Config tunes a saga's per-step retry behavior.
type Config struct {
	RetryCount uint64
	RetryDelay time.Duration
}

// DefaultConfig matches the teacher's production retry defaults: three
// retries (up to four attempts in all) with exponential backoff starting at
// one second.
var DefaultConfig = Config{RetryCount: 3, RetryDelay: time.Second}

// Saga is an executable, frozen chain of steps for context C, taking input
// I and producing output O. Build it with First/Then/Build.
type Saga[C any, I any, O any] struct {
	steps      []erasedStep
	retryCount uint64
	retryDelay time.Duration
}

// WithRetry overrides the retry count and initial backoff delay used for
// every step's Execute call. Compensate calls run once, without retry.
func (s *Saga[C, I, O]) WithRetry(count uint64, delay time.Duration) *Saga[C, I, O] {
	s.retryCount = count
	s.retryDelay = delay
	return s
}

// Execute runs every step in order, applying LIFO compensation on failure,
// and returns the final step's output.
func (s *Saga[C, I, O]) Execute(ctx context.Context, container C, input I) (O, error) {
	out, _, err := s.run(ctx, container, input, nil)
	var zero O
	if err != nil {
		return zero, err
	}
	return out.(O), nil
}

// ExecuteWithAudit runs the saga exactly as Execute does, additionally
// returning the full per-step audit trail.
func (s *Saga[C, I, O]) ExecuteWithAudit(ctx context.Context, container C, input I) (O, *AuditLog, error) {
	log := NewAuditLog()
	out, _, err := s.run(ctx, container, input, log)
	var zero O
	if err != nil {
		return zero, log, err
	}
	return out.(O), log, nil
}

type compensationEntry struct {
	idx   int
	input any
}

func (s *Saga[C, I, O]) run(ctx context.Context, container C, input I, log *AuditLog) (any, *AuditLog, error) {
	retryCount := s.retryCount
	if retryCount == 0 {
		retryCount = DefaultConfig.RetryCount
	}
	retryDelay := s.retryDelay
	if retryDelay == 0 {
		retryDelay = DefaultConfig.RetryDelay
	}

	var current any = input
	var stack []compensationEntry

	for i, step := range s.steps {
		var auditIdx int
		if log != nil {
			auditIdx = log.push(step.name)
		}

		stepInput := current
		out, err := executeWithRetry(ctx, step, container, stepInput, retryCount, retryDelay)
		if err != nil {
			stepErr := &StepError{Step: step.name, Err: err}
			if log != nil {
				log.update(auditIdx, StatusFailed, stepErr)
			}
			if compErrs := s.compensate(ctx, container, stack, log); len(compErrs) > 0 {
				return nil, log, &CompensationFailedError{Original: stepErr, CompensationErrors: compErrs}
			}
			return nil, log, stepErr
		}

		if log != nil {
			log.update(auditIdx, StatusExecuted, nil)
		}
		stack = append(stack, compensationEntry{idx: i, input: stepInput})
		current = out
	}
	return current, log, nil
}

func executeWithRetry(
	ctx context.Context,
	step erasedStep,
	container any,
	input any,
	retryCount uint64,
	retryDelay time.Duration,
) (any, error) {
	var out any
	strategy := retry.WithMaxRetries(retryCount, retry.NewExponential(retryDelay))
	err := retry.Do(ctx, strategy, func(retryCtx context.Context) error {
		select {
		case <-retryCtx.Done():
			return retryCtx.Err()
		default:
		}
		o, execErr := step.execute(retryCtx, container, input)
		if execErr != nil {
			return retry.RetryableError(execErr)
		}
		out = o
		return nil
	})
	return out, err
}

// compensate unwinds the completed-steps stack in LIFO order. A failed
// compensation does not stop the unwind: every completed step still gets a
// chance to clean up, and every failure is collected.
func (s *Saga[C, I, O]) compensate(ctx context.Context, container any, stack []compensationEntry, log *AuditLog) []*CompensationError {
	if len(stack) == 0 {
		return nil
	}
	compCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), CompensationTimeout)
	defer cancel()

	var errs []*CompensationError
	for i := len(stack) - 1; i >= 0; i-- {
		entry := stack[i]
		step := s.steps[entry.idx]

		var auditIdx int
		if log != nil {
			auditIdx = log.push(step.name + " (compensate)")
		}

		if err := step.compensate(compCtx, container, entry.input); err != nil {
			ce := &CompensationError{Step: step.name, Err: err}
			errs = append(errs, ce)
			if log != nil {
				log.update(auditIdx, StatusCompensationFailed, ce)
			}
			continue
		}
		if log != nil {
			log.update(auditIdx, StatusCompensated, nil)
		}
	}
	return errs
}
