package repl

import (
	"errors"
	"strings"
	"testing"
)

func TestRepr(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{name: "nil", in: nil, want: "nil"},
		{name: "string", in: "hi", want: `"hi"`},
		{name: "int", in: 42, want: "42"},
		{name: "float", in: 1.5, want: "1.5"},
		{name: "bool", in: true, want: "true"},
		{name: "error", in: errors.New("boom"), want: `error("boom")`},
		{name: "slice", in: []int{1, 2}, want: "[]int{1, 2}"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Repr(tc.in); got != tc.want {
				t.Fatalf("Repr(%v)=%q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestReprBounded(t *testing.T) {
	long := strings.Repeat("x", maxReprLen*2)
	got := Repr(long)
	if len(got) > maxReprLen+16 {
		t.Fatalf("Repr output unbounded: %d bytes", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected truncation marker, got suffix %q", got[len(got)-8:])
	}
}

func TestInspect(t *testing.T) {
	got := Inspect("hello")
	byName := map[string]string{}
	for _, ins := range got {
		byName[ins.Name] = ins.Value
	}
	if byName["Type"] != "string" {
		t.Fatalf("Type=%q", byName["Type"])
	}
	if byName["Kind"] != "string" {
		t.Fatalf("Kind=%q", byName["Kind"])
	}
	if byName["Length"] != "5" {
		t.Fatalf("Length=%q", byName["Length"])
	}
}

func TestInspectStructAndError(t *testing.T) {
	type point struct{ X, Y int }
	byName := map[string]string{}
	for _, ins := range Inspect(point{1, 2}) {
		byName[ins.Name] = ins.Value
	}
	if byName["Fields"] != "2" {
		t.Fatalf("Fields=%q", byName["Fields"])
	}

	byName = map[string]string{}
	for _, ins := range Inspect(errors.New("x")) {
		byName[ins.Name] = ins.Value
	}
	if !strings.Contains(byName["Implements"], "error") {
		t.Fatalf("Implements=%q", byName["Implements"])
	}
}

func TestFormatInspections(t *testing.T) {
	out := FormatInspections("42", []Inspection{{Name: "Type", Value: "int"}})
	if !strings.HasPrefix(out, "=== 42 ===") {
		t.Fatalf("header missing: %q", out)
	}
	if !strings.Contains(out, "Type") || !strings.Contains(out, ":: int") {
		t.Fatalf("row missing: %q", out)
	}
}
