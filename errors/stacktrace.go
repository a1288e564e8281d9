package errors

import (
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// stackTrace returns the first found stack trace frame carried by given error
// or any wrapped error. It returns nil if no stack trace is found.
func stackTrace(err error) errors.StackTrace {
	for {
		if st, ok := err.(stackTracer); ok {
			return st.StackTrace()
		}
		if c, ok := err.(causer); ok {
			err = c.Cause()
		} else {
			return nil
		}
	}
}

// Format works like pkg/errors, with additions.
//   %s is just the error message
//   %+v is the full stack trace
//   %v appends a compressed [filename:line] where the error was created
func (e *wrappedError) Format(s fmt.State, verb rune) {
	io.WriteString(s, e.Error())
	if verb != 'v' {
		return
	}
	st := trimInternal(stackTrace(e))
	if len(st) == 0 {
		return
	}
	if s.Flag('+') {
		fmt.Fprintf(s, "%+v", st)
		return
	}
	_, file, line := frameInfo(st[0])
	dir, name := filepath.Split(file)
	fmt.Fprintf(s, " [%s:%d]", filepath.Join(filepath.Base(dir), name), line)
}

// trimInternal removes frames of this package and the runtime from the top
// of the stack.
func trimInternal(st errors.StackTrace) errors.StackTrace {
	for len(st) > 0 {
		fn, file, _ := frameInfo(st[0])
		internal := strings.HasPrefix(fn, pkgPath) && !strings.HasSuffix(file, "_test.go")
		if !internal && !strings.HasPrefix(fn, "runtime.") {
			break
		}
		st = st[1:]
	}
	return st
}

const pkgPath = "github.com/iov-one/quickhold/errors."

func frameInfo(f errors.Frame) (string, string, int) {
	pc := uintptr(f) - 1
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown", "unknown", 0
	}
	file, line := fn.FileLine(pc)
	return fn.Name(), file, line
}
