// Package saga implements a generic, compile-time-checked saga pipeline:
// an ordered chain of steps, each with an optional compensating action,
// executed in order with automatic LIFO rollback on failure (spec §3/§4.5),
// grounded on the original implementation's saga crate and on the teacher's
// internal/orchestrator.SagaExecutor for the retry and audit mechanics.
//
// Go cannot add type parameters inside a method (there is no equivalent of
// Rust's `impl<...> Builder<...> { fn then<Next>(self, ...) -> Builder<...,
// Next> }`), so the type-state chain is built with package-level generic
// functions instead: First starts it, Then extends it, Build freezes it
// into an executable Saga. The compiler still checks that each step's input
// type matches the previous step's output type at every call site.
package saga

import "context"

// Step is one stage of a saga: Execute transforms an input into an output
// for context C, and Compensate (optional; nil means no-op) undoes the
// effect of a successful Execute given the same input it was called with.
type Step[C any, I any, O any] struct {
	Name       string
	Execute    func(ctx context.Context, container C, input I) (O, error)
	Compensate func(ctx context.Context, container C, input I) error
}

// erasedStep is the type-erased form stored inside a Saga/Builder. The
// downcasts inside execute/compensate are safe by construction: adapt is
// the only producer, and it closes over the concrete I/O types at the call
// site where the step was added.
type erasedStep struct {
	name       string
	execute    func(ctx context.Context, container any, input any) (any, error)
	compensate func(ctx context.Context, container any, input any) error
}

func adapt[C any, I any, O any](step Step[C, I, O]) erasedStep {
	return erasedStep{
		name: step.Name,
		execute: func(ctx context.Context, container any, input any) (any, error) {
			return step.Execute(ctx, container.(C), input.(I))
		},
		compensate: func(ctx context.Context, container any, input any) error {
			if step.Compensate == nil {
				return nil
			}
			return step.Compensate(ctx, container.(C), input.(I))
		},
	}
}

// Builder accumulates steps for context C, starting from initial-input type
// I, with Last the output type of the most recently appended step — the
// type that the next Then call must accept as its step's input.
type Builder[C any, I any, Last any] struct {
	steps []erasedStep
}

// First begins a saga with step as its only stage so far.
func First[C any, I any, O any](step Step[C, I, O]) *Builder[C, I, O] {
	return &Builder[C, I, O]{steps: []erasedStep{adapt(step)}}
}

// Then appends step to the chain. step's input type must match Prev, the
// output type of the builder returned so far; the result's Last becomes
// Next.
func Then[C any, I any, Prev any, Next any](b *Builder[C, I, Prev], step Step[C, Prev, Next]) *Builder[C, I, Next] {
	steps := make([]erasedStep, len(b.steps), len(b.steps)+1)
	copy(steps, b.steps)
	steps = append(steps, adapt(step))
	return &Builder[C, I, Next]{steps: steps}
}

// Build freezes the chain into an executable Saga.
func (b *Builder[C, I, Last]) Build() *Saga[C, I, Last] {
	steps := make([]erasedStep, len(b.steps))
	copy(steps, b.steps)
	return &Saga[C, I, Last]{steps: steps}
}
