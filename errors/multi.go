package errors

import (
	"fmt"
	"strings"
)

// Append clubs together all provided errors. Nil values are ignored.
//
// If no non-nil error is provided, nil is returned. If only a single non-nil
// error is provided, it is returned as it is. Otherwise an error collection
// is returned that matches with Is any of the contained errors.
func Append(errs ...error) error {
	var res multiErr
	for _, e := range errs {
		if isNilErr(e) {
			continue
		}
		if m, ok := e.(multiErr); ok {
			res = append(res, m...)
		} else {
			res = append(res, e)
		}
	}
	switch len(res) {
	case 0:
		return nil
	case 1:
		return res[0]
	}
	return res
}

type multiErr []error

func (m multiErr) Error() string {
	points := make([]string, len(m))
	for i, err := range m {
		points[i] = fmt.Sprintf("* %s", err)
	}
	return fmt.Sprintf("%d errors occurred:\n\t%s", len(m), strings.Join(points, "\n\t"))
}

// Unpack returns all errors of this collection.
func (m multiErr) Unpack() []error {
	return m
}

// ABCICode returns the code of the first error, consistent with a fail-fast
// approach.
func (m multiErr) ABCICode() uint32 {
	return abciCode(m[0])
}

type unpacker interface {
	Unpack() []error
}

var (
	_ coder    = multiErr(nil)
	_ unpacker = multiErr(nil)
)
