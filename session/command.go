package session

import (
	"regexp"
	"strings"

	"github.com/iov-one/quickhold/coin"
	"github.com/iov-one/quickhold/errors"
)

// CommandFormat describes the accepted escrow command.
const CommandFormat = `escrow <amount> "your secret phrase here"`

// Command is a parsed escrow command.
type Command struct {
	// Amount to lock. The ticker is not set, the session uses the
	// currency of the ledger.
	Amount coin.Coin
	// Phrase unlocks the funds. It is never empty.
	Phrase string
}

var commandRx = regexp.MustCompile(`^escrow\s+(\d+(?:\.\d+)?)\s+"((?:[^"\\]|\\"|\\)+)"$`)

// ParseCommand parses a line of the form
//   escrow <amount> "<phrase>"
// A quote inside the phrase is written \", any other backslash is part of
// the phrase as typed. Surrounding whitespace is ignored.
func ParseCommand(line string) (Command, error) {
	m := commandRx.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return Command{}, errors.Wrapf(errors.ErrInput, "want %s", CommandFormat)
	}
	amount, err := coin.ParseAmount(m[1], "")
	if err != nil {
		return Command{}, errors.Wrapf(errors.ErrInput, "amount %q: %s", m[1], err)
	}
	if !amount.IsPositive() {
		return Command{}, errors.Wrap(errors.ErrInput, "amount must be positive")
	}
	return Command{Amount: amount, Phrase: unescape(m[2])}, nil
}

func unescape(s string) string {
	return strings.Replace(s, `\"`, `"`, -1)
}
