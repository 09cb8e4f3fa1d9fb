// Package validation provides helpers for defensive programming and contract enforcement.
package validation

import (
	"fmt"
	"reflect"
)

// AssertNotNil panics if the provided pointer is nil.
// It is intended for use in constructors where dependencies are mandatory.
//
// Usage:
//
//	validation.AssertNotNil(pool, "database pool")
func AssertNotNil[T any](ptr *T, name string) {
	if ptr == nil {
		panic(fmt.Sprintf("critical error: %s cannot be nil", name))
	}
}

// AssertPresent panics if v is nil or an interface holding a nil pointer,
// map, func or channel. Use it for interface-typed dependencies.
//
//	validation.AssertPresent(resolver, "shader resolver")
func AssertPresent(v any, name string) {
	if v == nil {
		panic(fmt.Sprintf("critical error: %s cannot be nil", name))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Chan, reflect.Interface, reflect.Slice:
		if rv.IsNil() {
			panic(fmt.Sprintf("critical error: %s cannot be nil", name))
		}
	}
}

// Note: panics here signal programmer error (misconfiguration), not runtime
// failures such as an unreachable database.
