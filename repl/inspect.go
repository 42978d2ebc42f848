package repl

import (
	"fmt"
	"reflect"
	"strings"
)

// Inspection is one labelled fact about a value.
type Inspection struct {
	Name  string
	Value string
}

// Inspect reports reflection facts about a value: type, kind, size, length,
// method set, struct shape, interface conformance.
func Inspect(v any) []Inspection {
	if v == nil {
		return []Inspection{{Name: "Type", Value: "nil"}}
	}

	rv := reflect.ValueOf(v)
	rt := rv.Type()

	out := []Inspection{
		{Name: "Type", Value: rt.String()},
		{Name: "Kind", Value: rt.Kind().String()},
		{Name: "Size", Value: fmt.Sprintf("%d bytes", rt.Size())},
	}
	if pkg := rt.PkgPath(); pkg != "" {
		out = append(out, Inspection{Name: "Package", Value: pkg})
	}

	switch rt.Kind() {
	case reflect.String:
		out = append(out, Inspection{Name: "Length", Value: fmt.Sprintf("%d", rv.Len())})
	case reflect.Slice, reflect.Chan:
		out = append(out,
			Inspection{Name: "Length", Value: fmt.Sprintf("%d", rv.Len())},
			Inspection{Name: "Capacity", Value: fmt.Sprintf("%d", rv.Cap())},
		)
	case reflect.Array, reflect.Map:
		out = append(out, Inspection{Name: "Length", Value: fmt.Sprintf("%d", rv.Len())})
	case reflect.Struct:
		out = append(out, Inspection{Name: "Fields", Value: fmt.Sprintf("%d", rt.NumField())})
	case reflect.Ptr:
		if !rv.IsNil() {
			out = append(out, Inspection{Name: "Points To", Value: rt.Elem().String()})
		}
	case reflect.Func:
		out = append(out, Inspection{Name: "Signature", Value: rt.String()})
	}

	if n := rt.NumMethod(); n > 0 {
		names := make([]string, 0, n)
		for i := 0; i < n && i < 12; i++ {
			names = append(names, rt.Method(i).Name)
		}
		if n > 12 {
			names = append(names, fmt.Sprintf("(+%d more)", n-12))
		}
		out = append(out, Inspection{Name: "Methods", Value: strings.Join(names, ", ")})
	}

	var conformance []string
	if _, ok := v.(error); ok {
		conformance = append(conformance, "error")
	}
	if _, ok := v.(fmt.Stringer); ok {
		conformance = append(conformance, "fmt.Stringer")
	}
	if len(conformance) > 0 {
		out = append(out, Inspection{Name: "Implements", Value: strings.Join(conformance, ", ")})
	}

	return out
}

// FormatInspections renders inspections in the aligned two-column layout the
// inspect command pages through.
func FormatInspections(header string, inspections []Inspection) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== %s ===\n\n", header)
	for _, ins := range inspections {
		fmt.Fprintf(&b, "%-16.16s :: %s\n", ins.Name, ins.Value)
	}
	return strings.TrimRight(b.String(), "\n")
}
