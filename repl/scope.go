package repl

import (
	"reflect"
	"sort"
	"sync"
)

// Scope is a persistent variable scope shared across evaluations. Engines
// additionally park their own interpreter state here so that retained scopes
// keep interpreter globals alive between runs.
type Scope struct {
	mu    sync.Mutex
	vars  map[string]any
	state map[string]any
}

// NewScope returns an empty scope.
func NewScope() *Scope {
	return &Scope{
		vars:  make(map[string]any),
		state: make(map[string]any),
	}
}

// Get reads a variable.
func (s *Scope) Get(name string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vars[name]
	return v, ok
}

// Set writes a variable.
func (s *Scope) Set(name string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vars[name] = v
}

// Update merges vars into the scope.
func (s *Scope) Update(vars map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range vars {
		s.vars[k] = v
	}
}

// ClearIntersection removes every key of vars whose scope value is still the
// injected one. A variable the evaluated code reassigned survives.
func (s *Scope) ClearIntersection(vars map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, injected := range vars {
		current, ok := s.vars[k]
		if !ok {
			continue
		}
		if reflect.DeepEqual(current, injected) {
			delete(s.vars, k)
		}
	}
}

// Snapshot copies the variable map.
func (s *Scope) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.vars))
	for k, v := range s.vars {
		out[k] = v
	}
	return out
}

// Names lists variable names in sorted order.
func (s *Scope) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.vars))
	for k := range s.vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Len reports the number of variables.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.vars)
}

// Reset drops all variables and parked engine state.
func (s *Scope) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vars = make(map[string]any)
	s.state = make(map[string]any)
}

// State reads engine-private state parked under key.
func (s *Scope) State(key string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state[key]
}

// SetState parks engine-private state under key.
func (s *Scope) SetState(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[key] = v
}
