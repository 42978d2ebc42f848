package repl

import "testing"

func TestScopeClearIntersection(t *testing.T) {
	s := NewScope()
	injected := map[string]any{"_msg": "hello", "_author": "u1"}
	s.Update(injected)
	s.Set("kept", 42)

	// Simulate the evaluated code reassigning one injected variable.
	s.Set("_msg", "changed")

	s.ClearIntersection(injected)

	if _, ok := s.Get("_author"); ok {
		t.Fatal("_author should have been cleared")
	}
	if v, ok := s.Get("_msg"); !ok || v != "changed" {
		t.Fatalf("_msg=%v ok=%v, want reassigned value kept", v, ok)
	}
	if v, ok := s.Get("kept"); !ok || v != 42 {
		t.Fatalf("kept=%v ok=%v", v, ok)
	}
}

func TestScopeReset(t *testing.T) {
	s := NewScope()
	s.Set("a", 1)
	s.SetState("engine", "state")
	s.Reset()
	if s.Len() != 0 {
		t.Fatalf("Len=%d after reset", s.Len())
	}
	if s.State("engine") != nil {
		t.Fatal("engine state survived reset")
	}
}

func TestScopeNamesSorted(t *testing.T) {
	s := NewScope()
	s.Set("b", 1)
	s.Set("a", 2)
	s.Set("c", 3)
	names := s.Names()
	want := []string{"a", "b", "c"}
	if len(names) != len(want) {
		t.Fatalf("names=%v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names=%v, want %v", names, want)
		}
	}
}
