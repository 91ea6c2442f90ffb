package cache

import (
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
)

// fallbackSize is charged for values that defeat both serialization and
// reflection (functions, channels, cyclic graphs hidden behind
// interfaces, ...).
const fallbackSize = 100

// estimateSize returns a best-effort byte footprint for v. It never
// fails; a wrong estimate only changes how aggressively the cache
// evicts, never correctness.
func estimateSize(v any) int64 {
	switch t := v.(type) {
	case nil:
		return 0
	case string:
		return int64(len(t))
	case []byte:
		return int64(len(t))
	case bool:
		return 1
	case int, int64, uint, uint64, float64:
		return 8
	case int32, uint32, float32:
		return 4
	case int16, uint16:
		return 2
	case int8, uint8:
		return 1
	}

	// Exact serialized size when the value is representable.
	if b, err := msgpack.Marshal(v); err == nil {
		return int64(len(b))
	}

	return reflectSize(reflect.ValueOf(v), 0)
}

// maxSizeDepth bounds recursion through nested containers.
const maxSizeDepth = 8

func reflectSize(rv reflect.Value, depth int) int64 {
	if depth > maxSizeDepth {
		return fallbackSize
	}

	switch rv.Kind() {
	case reflect.String:
		return int64(rv.Len())
	case reflect.Slice, reflect.Array:
		var total int64
		for i := 0; i < rv.Len(); i++ {
			total += reflectSize(rv.Index(i), depth+1)
		}
		return total
	case reflect.Map:
		var total int64
		iter := rv.MapRange()
		for iter.Next() {
			total += reflectSize(iter.Key(), depth+1)
			total += reflectSize(iter.Value(), depth+1)
		}
		return total
	case reflect.Struct:
		var total int64
		for i := 0; i < rv.NumField(); i++ {
			total += reflectSize(rv.Field(i), depth+1)
		}
		return total
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return 0
		}
		return reflectSize(rv.Elem(), depth+1)
	case reflect.Bool:
		return 1
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return int64(rv.Type().Size())
	default:
		return fallbackSize
	}
}
