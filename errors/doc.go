/*
Package errors implements coded errors shared by the ledger and its clients.

Reuse the errors declared in this package whenever possible and register a
custom root error only when it is meaningful to tell it apart on the client
side, using Register(code, description). Extensions use codes starting at
1000.

The code of the root error is the ABCI result code of a rejected
transaction. ABCIInfo converts an error into code and log, ABCIError does the
opposite on the client side, so that

	errors.ErrExpired.Is(errors.ABCIError(errors.ABCIInfo(err, false)))

holds for any err that wraps ErrExpired.

Create errors with ErrXyz.New("...") or errors.Wrap(err, "...") at the point
of failure to attach a stack trace. Only the most inner wrap records one.
*/
package errors
