package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStackTrace(t *testing.T) {
	cases := map[string]struct {
		err       error
		wantError string
	}{
		"New gives us a stacktrace": {
			err:       Wrap(ErrDuplicate, "name"),
			wantError: "name: duplicate",
		},
		"Wrapping stderr gives us a stacktrace": {
			err:       Wrap(fmt.Errorf("foo"), "standard"),
			wantError: "standard: foo",
		},
		"Wrapping stdlib errors gives us clean stacktrace": {
			err:       Wrap(errors.New("bar"), "pkg"),
			wantError: "pkg: bar",
		},
	}

	const thisTestFn = "quickhold/errors.TestStackTrace"

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			assert.Equal(t, tc.err.Error(), tc.wantError)
			assert.NotNil(t, stackTrace(tc.err))

			fullStack := fmt.Sprintf("%+v", tc.err)
			assert.Contains(t, fullStack, thisTestFn)
			assert.Contains(t, fullStack, tc.wantError)

			tinyStack := fmt.Sprintf("%v", tc.err)
			assert.True(t, strings.HasPrefix(tinyStack, tc.wantError))
			assert.False(t, strings.Contains(tinyStack, "\n"), "only one line is expected")
			assert.Contains(t, tinyStack, "[errors/stacktrace_test.go:")
		})
	}
}
