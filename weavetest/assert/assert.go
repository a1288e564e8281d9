// Package assert provides the small set of test assertions used across the
// repository. Each assertion stops the test on failure.
package assert

import (
	"reflect"
	"testing"

	"github.com/iov-one/quickhold/errors"
)

// Tester is the minimal subset of testing.TB needed by the assertions.
type Tester interface {
	Helper()
	Fatalf(string, ...interface{})
	Logf(string, ...interface{})
}

// Nil fails the test if given value is not nil.
func Nil(t Tester, value interface{}) {
	t.Helper()
	if !isNil(value) {
		// Use %+v so that if we are printing an error that supports
		// stack traces then a full stack trace is shown.
		t.Fatalf("want a nil value, got %+v", value)
	}
}

func isNil(value interface{}) (isnil bool) {
	if value == nil {
		return true
	}
	defer func() {
		if recover() != nil {
			isnil = false
		}
	}()
	// The argument must be a chan, func, interface, map, pointer, or slice
	// value; if it is not, IsNil panics.
	return reflect.ValueOf(value).IsNil()
}

// Equal fails the test if two values are not deeply equal.
func Equal(t Tester, want, got interface{}) {
	t.Helper()
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("values not equal \nwant %T %v\n got %T %v", want, want, got, got)
	}
}

// IsErr fails the test if got is not of the kind described by want. A nil
// want expects no error.
func IsErr(t Tester, want *errors.Error, got error) {
	t.Helper()
	if !want.Is(got) {
		t.Fatalf("want %q error, got %+v", want, got)
	}
}

// FieldError ensures that given error contains a single error for given
// field and that it is of the wanted kind. Use nil want to require no error
// for that field.
func FieldError(t testing.TB, err error, fieldName string, want *errors.Error) {
	t.Helper()

	errs := errors.FieldErrors(err, fieldName)
	if want == nil {
		if len(errs) != 0 {
			t.Fatalf("expected no %q field error, got %v", fieldName, errs)
		}
		return
	}
	switch len(errs) {
	case 0:
		t.Fatalf("no %q field error found in %+v", fieldName, err)
	case 1:
		if !want.Is(errs[0]) {
			t.Fatalf("unexpected %q field error: %q", fieldName, errs[0])
		}
	default:
		for i, e := range errs {
			t.Logf("\terror %d: %q", i+1, e)
		}
		t.Fatalf("want one %q field error, got %d", fieldName, len(errs))
	}
}

// Panics fails the test if given function call does not panic.
func Panics(t Tester, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("panic expected")
		}
	}()
	fn()
}
