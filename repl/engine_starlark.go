package repl

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

const starlarkStateKey = "starlark"

// StarlarkExecutor evaluates Starlark snippets statement by statement,
// streaming the value of each top-level expression. Module globals persist in
// the scope so retained sessions accumulate definitions. Injected env
// bindings persist only when the evaluated code rebinds them.
type StarlarkExecutor struct {
	predeclared starlark.StringDict
}

// NewStarlarkExecutor returns the Starlark engine with the REPL builtins
// predeclared.
func NewStarlarkExecutor() *StarlarkExecutor {
	return &StarlarkExecutor{
		predeclared: starlark.StringDict{
			"fetch": starlark.NewBuiltin("fetch", starlarkFetch),
		},
	}
}

func (e *StarlarkExecutor) Name() string { return "starlark" }

func (e *StarlarkExecutor) persisted(scope *Scope) starlark.StringDict {
	if g, ok := scope.State(starlarkStateKey).(starlark.StringDict); ok && g != nil {
		return g
	}
	g := starlark.StringDict{}
	scope.SetState(starlarkStateKey, g)
	return g
}

// Eval parses code, groups its top-level statements into line chunks, and
// executes them in order against the scope's persistent globals.
func (e *StarlarkExecutor) Eval(ctx context.Context, code string, scope *Scope, env map[string]any) (<-chan Result, error) {
	file, err := syntax.Parse("<repl>", code, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	chunks := splitStarlarkChunks(code, file)

	persisted := e.persisted(scope)
	globals := starlark.StringDict{}
	for k, v := range e.predeclared {
		globals[k] = v
	}
	for k, v := range persisted {
		globals[k] = v
	}
	envKeys := make(map[string]bool, len(env))
	for k, v := range env {
		globals[k] = ToStarlark(v)
		envKeys[k] = true
	}

	out := make(chan Result, 8)
	go func() {
		defer close(out)
		defer func() {
			if r := recover(); r != nil {
				emitFinal(out, Result{Err: &PanicError{Value: r, Stack: debug.Stack()}})
			}
		}()

		thread := &starlark.Thread{
			Name: "jsk-repl",
			Print: func(_ *starlark.Thread, msg string) {
				emit(ctx, out, Result{Repr: msg})
			},
		}
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			select {
			case <-ctx.Done():
				thread.Cancel("context canceled")
			case <-stop:
			}
		}()

		for _, chunk := range chunks {
			if chunk.isExpr {
				v, err := starlark.Eval(thread, "<repl>", chunk.src, globals)
				if err != nil {
					emitFinal(out, Result{Err: evalErr(ctx, err)})
					return
				}
				if v != starlark.None {
					if !emit(ctx, out, Result{Value: FromStarlark(v), Repr: v.String(), HasValue: true}) {
						return
					}
				}
				continue
			}

			f, err := syntax.Parse("<repl>", chunk.src, 0)
			if err != nil {
				emitFinal(out, Result{Err: fmt.Errorf("%w: %v", ErrSyntax, err)})
				return
			}
			if err := starlark.ExecREPLChunk(f, thread, globals); err != nil {
				emitFinal(out, Result{Err: evalErr(ctx, err)})
				return
			}
		}

		// Persist module globals, dropping the untouched builtins. Injected
		// env bindings go through the scope: Update then ClearIntersection
		// keeps only the ones the code rebound.
		final := make(map[string]any, len(envKeys))
		for k := range envKeys {
			if v, ok := globals[k]; ok {
				final[k] = FromStarlark(v)
			}
		}
		scope.Update(final)
		scope.ClearIntersection(env)
		for k, v := range globals {
			if b, ok := e.predeclared[k]; ok && b == v {
				continue
			}
			if envKeys[k] {
				if _, kept := scope.Get(k); !kept {
					continue
				}
			}
			persisted[k] = v
		}
	}()
	return out, nil
}

func evalErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ctx.Err(), err)
	}
	if ee, ok := err.(*starlark.EvalError); ok {
		return fmt.Errorf("%s\n%s", ee.Msg, strings.TrimRight(ee.Backtrace(), "\n"))
	}
	return err
}

type starlarkChunk struct {
	src    string
	isExpr bool
}

// splitStarlarkChunks slices code by the line spans of its top-level
// statements. Statements sharing a line collapse into one chunk and lose
// expression streaming.
func splitStarlarkChunks(code string, file *syntax.File) []starlarkChunk {
	lines := strings.Split(code, "\n")
	var chunks []starlarkChunk

	startLine, endLine := 0, 0
	exprOnly := false
	flush := func() {
		if startLine == 0 {
			return
		}
		src := strings.Join(lines[startLine-1:endLine], "\n")
		chunks = append(chunks, starlarkChunk{src: src, isExpr: exprOnly})
		startLine, endLine = 0, 0
	}

	for _, stmt := range file.Stmts {
		s, e := stmt.Span()
		_, isExpr := stmt.(*syntax.ExprStmt)
		if startLine != 0 && int(s.Line) <= endLine {
			// shares a line with the previous statement
			if int(e.Line) > endLine {
				endLine = int(e.Line)
			}
			exprOnly = false
			continue
		}
		flush()
		startLine, endLine = int(s.Line), int(e.Line)
		exprOnly = isExpr
	}
	flush()
	return chunks
}
