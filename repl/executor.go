package repl

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrSyntax marks evaluation failures caused by unparsable input. Callers
// classify with errors.Is to decide where the report goes.
var ErrSyntax = errors.New("syntax error")

// Result is one intermediate outcome of an evaluation. A result carries a
// value and its rendering, plain output (Repr without Value), or an error.
type Result struct {
	// Value is the produced value; nil for plain output or errors.
	Value any
	// Repr is the rendered representation shown in chat.
	Repr string
	// HasValue distinguishes a nil value from no value at all.
	HasValue bool
	// Err terminates the stream when set.
	Err error
}

// Executor evaluates code incrementally against a scope, streaming
// intermediate results as top-level statements complete. The channel closes
// when evaluation finishes; a Result with Err set is always the final one.
// Eval itself returns an error only for input that could not start executing
// (wrapped ErrSyntax).
type Executor interface {
	Name() string
	Eval(ctx context.Context, code string, scope *Scope, env map[string]any) (<-chan Result, error)
}

// PanicError wraps a panic recovered inside an evaluation, preserving the
// goroutine stack for verbose reporting.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// emit delivers a result unless the context is gone.
func emit(ctx context.Context, out chan<- Result, r Result) bool {
	select {
	case out <- r:
		return true
	case <-ctx.Done():
		return false
	}
}

// emitFinal delivers a terminal result even when the context is already
// cancelled, bounded so an abandoned consumer cannot leak the goroutine.
func emitFinal(out chan<- Result, r Result) {
	select {
	case out <- r:
	case <-time.After(5 * time.Second):
	}
}
