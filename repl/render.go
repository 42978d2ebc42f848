package repl

import (
	"fmt"
	"reflect"
	"strings"
)

const maxReprLen = 8 * 1024

// Repr renders a value the way the REPL displays it: strings quoted,
// composites in Go literal syntax, everything bounded in size.
func Repr(v any) string {
	var s string
	switch x := v.(type) {
	case nil:
		s = "nil"
	case string:
		s = fmt.Sprintf("%q", x)
	case error:
		s = fmt.Sprintf("error(%q)", x.Error())
	case fmt.Stringer:
		s = x.String()
	default:
		s = reprDefault(v)
	}
	if len(s) > maxReprLen {
		s = s[:maxReprLen] + "..."
	}
	return s
}

func reprDefault(v any) string {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return fmt.Sprintf("%v", v)
	case reflect.Func:
		return fmt.Sprintf("%s(%p)", rv.Type(), v)
	case reflect.Chan:
		return fmt.Sprintf("%s(len=%d, cap=%d)", rv.Type(), rv.Len(), rv.Cap())
	default:
		s := fmt.Sprintf("%#v", v)
		// %#v on deeply nested values produces one long token; keep it
		// but trim the module-path noise on type names.
		return strings.ReplaceAll(s, "interface {}", "any")
	}
}
