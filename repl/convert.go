package repl

import (
	"fmt"
	"reflect"
	"sort"

	"go.starlark.net/starlark"
)

// ToStarlark converts a Go value into its Starlark counterpart. Values with
// no natural counterpart are rendered as their string form so interpreted
// code can still look at them.
func ToStarlark(v any) starlark.Value {
	switch v := v.(type) {
	case nil:
		return starlark.None
	case starlark.Value:
		return v
	case bool:
		return starlark.Bool(v)
	case []byte:
		return starlark.Bytes(v)
	case string:
		return starlark.String(v)
	case int:
		return starlark.MakeInt(v)
	case int8:
		return starlark.MakeInt(int(v))
	case int16:
		return starlark.MakeInt(int(v))
	case int32:
		return starlark.MakeInt(int(v))
	case int64:
		return starlark.MakeInt64(v)
	case uint:
		return starlark.MakeUint(v)
	case uint8:
		return starlark.MakeUint(uint(v))
	case uint16:
		return starlark.MakeUint(uint(v))
	case uint32:
		return starlark.MakeUint(uint(v))
	case uint64:
		return starlark.MakeUint64(v)
	case float32:
		return starlark.Float(v)
	case float64:
		return starlark.Float(v)
	case []any:
		elems := make([]starlark.Value, len(v))
		for i, e := range v {
			elems[i] = ToStarlark(e)
		}
		return starlark.NewList(elems)
	case map[string]any:
		d := starlark.NewDict(len(v))
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			_ = d.SetKey(starlark.String(k), ToStarlark(v[k]))
		}
		return d
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		elems := make([]starlark.Value, rv.Len())
		for i := range elems {
			elems[i] = ToStarlark(rv.Index(i).Interface())
		}
		return starlark.NewList(elems)
	case reflect.Map:
		d := starlark.NewDict(rv.Len())
		for _, k := range rv.MapKeys() {
			_ = d.SetKey(ToStarlark(k.Interface()), ToStarlark(rv.MapIndex(k).Interface()))
		}
		return d
	case reflect.Ptr:
		if rv.IsNil() {
			return starlark.None
		}
		return ToStarlark(rv.Elem().Interface())
	case reflect.Struct:
		d := starlark.NewDict(rv.NumField())
		t := rv.Type()
		for i := 0; i < rv.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			_ = d.SetKey(starlark.String(f.Name), ToStarlark(rv.Field(i).Interface()))
		}
		return d
	default:
		return starlark.String(fmt.Sprintf("%v", v))
	}
}

// FromStarlark converts a Starlark value back into a plain Go value for
// storage as the last result.
func FromStarlark(v starlark.Value) any {
	switch v := v.(type) {
	case starlark.NoneType:
		return nil
	case starlark.Bool:
		return bool(v)
	case starlark.String:
		return string(v)
	case starlark.Bytes:
		return []byte(v)
	case starlark.Int:
		if i, ok := v.Int64(); ok {
			return i
		}
		return v.String()
	case starlark.Float:
		return float64(v)
	case *starlark.List:
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			out[i] = FromStarlark(v.Index(i))
		}
		return out
	case starlark.Tuple:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = FromStarlark(e)
		}
		return out
	case *starlark.Dict:
		out := make(map[string]any, v.Len())
		for _, item := range v.Items() {
			key, ok := starlark.AsString(item[0])
			if !ok {
				key = item[0].String()
			}
			out[key] = FromStarlark(item[1])
		}
		return out
	default:
		return v
	}
}
