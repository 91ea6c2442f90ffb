package memoize

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/zeebo/xxh3"
)

// KeyFunc derives a cache key from a call's arguments. The default
// hashes the fmt rendering of the arguments, which is best-effort:
// pointer arguments render as addresses, so calls passing freshly
// allocated values get identity-based keys and defeat cross-call
// memoization. Supply a custom KeyFunc for argument types whose
// rendering is unstable.
type KeyFunc func(args []any) string

// DefaultKeyFunc returns the hash-of-rendering key derivation bound to
// a prefix.
func DefaultKeyFunc(prefix string) KeyFunc {
	return func(args []any) string {
		return HashKey(prefix, args)
	}
}

// HashKey builds a stable key by hashing prefix and the rendered
// arguments with xxh3-128.
func HashKey(prefix string, args []any) string {
	h := xxh3.Hash128([]byte(fmt.Sprintf("%s:%v", prefix, args)))
	return fmt.Sprintf("%s:%016x%016x", prefix, h.Hi, h.Lo)
}

// funcName resolves the qualified runtime name of fn, e.g.
// "github.com/acme/app/store.LoadUser". Falls back to "anonymous" for
// values the runtime cannot resolve.
func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return "anonymous"
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return "anonymous"
	}
	return f.Name()
}

// baseName returns the last path-free segment of a qualified function
// name, without the "-fm" suffix the runtime appends to method values.
func baseName(qualified string) string {
	name := qualified
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}
