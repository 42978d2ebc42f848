package repl

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"reflect"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

const goStateKey = "go"

// GoExecutor evaluates Go snippets with a persistent yaegi interpreter per
// scope. Top-level statements run one at a time; expression statement values
// are streamed as intermediate results.
type GoExecutor struct{}

// NewGoExecutor returns the Go engine.
func NewGoExecutor() *GoExecutor { return &GoExecutor{} }

func (e *GoExecutor) Name() string { return "go" }

// goState is the per-scope interpreter plus the mutable binding the exported
// jsk package reads from.
type goState struct {
	interp *interp.Interpreter
	holder *envHolder
}

// envHolder exposes the ambient chat bindings to interpreted code. The scope
// and env fields are swapped before each evaluation.
type envHolder struct {
	mu    sync.Mutex
	scope *Scope
	env   map[string]any
}

// Var reads an ambient binding (message, author, channel, last result) or a
// scope variable by name. Returns nil when absent.
func (h *envHolder) Var(name string) any {
	h.mu.Lock()
	defer h.mu.Unlock()
	if v, ok := h.env[name]; ok {
		return v
	}
	if h.scope != nil {
		if v, ok := h.scope.Get(name); ok {
			return v
		}
	}
	return nil
}

// Set stores a scope variable from interpreted code.
func (h *envHolder) Set(name string, v any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.scope != nil {
		h.scope.Set(name, v)
	}
}

func (h *envHolder) bind(scope *Scope, env map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scope = scope
	h.env = env
}

func (e *GoExecutor) state(scope *Scope) (*goState, error) {
	if st, ok := scope.State(goStateKey).(*goState); ok && st != nil {
		return st, nil
	}

	holder := &envHolder{}
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("load stdlib symbols: %w", err)
	}
	exports := interp.Exports{
		"jsk/jsk": {
			"Var":   reflect.ValueOf(holder.Var),
			"Set":   reflect.ValueOf(holder.Set),
			"Fetch": reflect.ValueOf(Fetch),
		},
	}
	if err := i.Use(exports); err != nil {
		return nil, fmt.Errorf("load jsk symbols: %w", err)
	}
	if _, err := i.Eval(`import "jsk"`); err != nil {
		return nil, fmt.Errorf("prime interpreter: %w", err)
	}

	st := &goState{interp: i, holder: holder}
	scope.SetState(goStateKey, st)
	return st, nil
}

// Eval splits code into top-level statements and evaluates them in order.
// Snippets carrying their own package clause or top-level declarations run in
// a single shot instead.
func (e *GoExecutor) Eval(ctx context.Context, code string, scope *Scope, env map[string]any) (<-chan Result, error) {
	st, err := e.state(scope)
	if err != nil {
		return nil, err
	}
	st.holder.bind(scope, env)

	chunks, splitErr := splitGoStatements(code)
	if splitErr != nil {
		if !parsableAsGoSource(code) {
			return nil, fmt.Errorf("%w: %v", ErrSyntax, splitErr)
		}
		chunks = []goChunk{{src: code}}
	}

	out := make(chan Result, 8)
	go func() {
		defer close(out)
		defer func() {
			if r := recover(); r != nil {
				emitFinal(out, Result{Err: &PanicError{Value: r, Stack: debug.Stack()}})
			}
		}()

		for _, chunk := range chunks {
			v, err := st.interp.EvalWithContext(ctx, chunk.src)
			if err != nil {
				if ctx.Err() != nil {
					err = fmt.Errorf("%w: %v", ctx.Err(), err)
				}
				emitFinal(out, Result{Err: err})
				return
			}
			if !chunk.isExpr || !v.IsValid() || !v.CanInterface() {
				continue
			}
			value := v.Interface()
			if !emit(ctx, out, Result{Value: value, Repr: Repr(value), HasValue: true}) {
				return
			}
		}
	}()
	return out, nil
}

const goWrapHeader = "package repl\nfunc _jsk() {\n"

type goChunk struct {
	src    string
	isExpr bool
}

// splitGoStatements parses code as the body of a function and returns the
// source slice of each top-level statement.
func splitGoStatements(code string) ([]goChunk, error) {
	src := goWrapHeader + code + "\n}\n"
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "repl.go", src, 0)
	if err != nil {
		return nil, err
	}

	var chunks []goChunk
	for _, decl := range f.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Name.Name != "_jsk" || fd.Body == nil {
			continue
		}
		for _, stmt := range fd.Body.List {
			start := fset.Position(stmt.Pos()).Offset - len(goWrapHeader)
			end := fset.Position(stmt.End()).Offset - len(goWrapHeader)
			if start < 0 || end > len(code) || start >= end {
				return nil, fmt.Errorf("statement out of range")
			}
			_, isExpr := stmt.(*ast.ExprStmt)
			chunks = append(chunks, goChunk{src: code[start:end], isExpr: isExpr})
		}
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no statements")
	}
	return chunks, nil
}

// parsableAsGoSource reports whether code stands alone as a Go file, with or
// without its package clause. Used for snippets declaring funcs or types.
func parsableAsGoSource(code string) bool {
	fset := token.NewFileSet()
	if _, err := parser.ParseFile(fset, "repl.go", code, 0); err == nil {
		return true
	}
	if strings.Contains(code, "package ") {
		return false
	}
	_, err := parser.ParseFile(fset, "repl.go", "package repl\n"+code, 0)
	return err == nil
}
