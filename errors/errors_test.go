package errors

import (
	stdlib "errors"
	"fmt"
	"testing"

	"github.com/pkg/errors"
)

func TestCause(t *testing.T) {
	std := stdlib.New("this is a stdlib error")

	cases := map[string]struct {
		err  error
		root error
	}{
		"Errors are self-causing": {
			err:  ErrNotFound,
			root: ErrNotFound,
		},
		"Wrap reveals root cause": {
			err:  Wrap(ErrNotFound, "foo"),
			root: ErrNotFound,
		},
		"Cause works for stderr as root": {
			err:  Wrap(std, "Some helpful text"),
			root: std,
		},
		"Field error reveals root cause": {
			err:  Field("Amount", Wrap(ErrInvalidAmount, "negative"), "bad"),
			root: ErrInvalidAmount,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			if got := Cause(tc.err); got != tc.root {
				t.Fatalf("unexpected result: %v", got)
			}
		})
	}
}

func TestErrorIs(t *testing.T) {
	cases := map[string]struct {
		a      *Error
		b      error
		wantIs bool
	}{
		"instance of the same error": {
			a:      ErrNotFound,
			b:      ErrNotFound,
			wantIs: true,
		},
		"two different coded errors": {
			a:      ErrNotFound,
			b:      ErrModel,
			wantIs: false,
		},
		"successful comparison to a wrapped error": {
			a:      ErrNotFound,
			b:      errors.Wrap(ErrNotFound, "gone"),
			wantIs: true,
		},
		"unsuccessful comparison to a wrapped error": {
			a:      ErrNotFound,
			b:      errors.Wrap(ErrOverflow, "too big"),
			wantIs: false,
		},
		"not equal to stdlib error": {
			a:      ErrNotFound,
			b:      fmt.Errorf("stdlib error"),
			wantIs: false,
		},
		"nil is nil": {
			a:      nil,
			b:      nil,
			wantIs: true,
		},
		"nil is any error nil": {
			a:      nil,
			b:      (*wrappedError)(nil),
			wantIs: true,
		},
		"nil is not not-nil": {
			a:      nil,
			b:      ErrNotFound,
			wantIs: false,
		},
		"not-nil is not nil": {
			a:      ErrNotFound,
			b:      nil,
			wantIs: false,
		},
		"collection with the same error": {
			a:      ErrNotFound,
			b:      Append(ErrState, Wrap(ErrNotFound, "test")),
			wantIs: true,
		},
		"collection with different errors": {
			a:      ErrNotFound,
			b:      Append(ErrState, ErrExpired),
			wantIs: false,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			if got := tc.a.Is(tc.b); got != tc.wantIs {
				t.Fatalf("unexpected result - got:%v want: %v", got, tc.wantIs)
			}
		})
	}
}

func TestWrapEmpty(t *testing.T) {
	if err := Wrap(nil, "wrapping <nil>"); err != nil {
		t.Fatal(err)
	}
}

func TestRegisterTwicePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("panic expected")
		}
	}()
	Register(ErrExpired.code, "expired again")
}

func TestRecover(t *testing.T) {
	fn := func() (err error) {
		defer Recover(&err)
		panic("boom")
	}
	if err := fn(); !ErrPanic.Is(err) {
		t.Fatalf("want panic error, got %+v", err)
	}
}

func TestAppend(t *testing.T) {
	if err := Append(nil, nil); err != nil {
		t.Fatalf("want nil, got %v", err)
	}
	if err := Append(nil, ErrState); err != ErrState {
		t.Fatalf("single error must be returned as is, got %v", err)
	}
	err := Append(ErrState, Append(ErrEmpty, ErrInput))
	m, ok := err.(multiErr)
	if !ok {
		t.Fatalf("want a collection, got %T", err)
	}
	if len(m) != 3 {
		t.Fatalf("collections must be flattened, got %d errors", len(m))
	}
	if code := ABCICode(err); code != ErrState.code {
		t.Fatalf("want code of the first error, got %d", code)
	}
}

func TestFieldErrors(t *testing.T) {
	err := Append(
		Field("Amount", ErrInvalidAmount, "must be positive"),
		Field("Condition", ErrInput, "cannot parse"),
		Field("Amount", ErrCurrency, "unknown ticker"),
	)

	amount := FieldErrors(err, "Amount")
	if len(amount) != 2 {
		t.Fatalf("want 2 Amount errors, got %d", len(amount))
	}
	if !ErrInvalidAmount.Is(amount[0]) || !ErrCurrency.Is(amount[1]) {
		t.Fatalf("unexpected errors: %v", amount)
	}
	if got := FieldErrors(err, "Owner"); len(got) != 0 {
		t.Fatalf("want no Owner errors, got %v", got)
	}
	if got := FieldErrors(nil, "Amount"); got != nil {
		t.Fatalf("want nil for nil error, got %v", got)
	}
	if msg := Field("Memo", ErrInput, "too long").Error(); msg != `field "Memo": too long: invalid input` {
		t.Fatalf("unexpected message: %q", msg)
	}
}
