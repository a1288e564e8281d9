package coin

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/iov-one/quickhold/errors"
)

// IsCC is the RegExp to ensure valid currency codes
var IsCC = regexp.MustCompile(`^[A-Z]{3,4}$`).MatchString

const (
	// FracDigits is the number of decimal places of the native currency.
	FracDigits = 6

	// FracUnit is the number of drops in one whole unit. A drop is the
	// smallest indivisible amount of the native currency and the unit
	// that the ledger accounts in.
	FracUnit int64 = 1000000
	// MaxFrac is the highest possible fractional value
	MaxFrac = FracUnit - 1
	// MinFrac is the lowest possible fractional value
	MinFrac = -MaxFrac

	// MaxInt is the largest whole value we accept. It is chosen so that
	// any valid coin converts to drops without overflowing int64.
	MaxInt int64 = 999999999999 // 10^12-1
	// MinInt is the lowest whole value we accept
	MinInt = -MaxInt
)

// Coin is an amount of a single currency, split into whole and fractional
// (drops) parts. Both parts always share the same sign.
type Coin struct {
	Whole      int64  `protobuf:"varint,1,opt,name=whole,proto3" json:"whole,omitempty"`
	Fractional int64  `protobuf:"varint,2,opt,name=fractional,proto3" json:"fractional,omitempty"`
	Ticker     string `protobuf:"bytes,3,opt,name=ticker,proto3" json:"ticker,omitempty"`
}

func (c *Coin) Reset()      { *c = Coin{} }
func (*Coin) ProtoMessage() {}

// NewCoin creates a new coin object
func NewCoin(whole int64, fractional int64, ticker string) Coin {
	return Coin{
		Whole:      whole,
		Fractional: fractional,
		Ticker:     ticker,
	}
}

// NewCoinp returns a pointer to a new coin.
func NewCoinp(whole, fractional int64, ticker string) *Coin {
	c := NewCoin(whole, fractional, ticker)
	return &c
}

// FromDrops converts an amount of drops into a normalized coin.
func FromDrops(drops int64, ticker string) Coin {
	return Coin{
		Whole:      drops / FracUnit,
		Fractional: drops % FracUnit,
		Ticker:     ticker,
	}
}

// Drops returns the value of this coin expressed in drops. The coin is
// expected to be valid.
func (c Coin) Drops() int64 {
	return c.Whole*FracUnit + c.Fractional
}

// Add combines two coins.
// Returns error if they are of different
// currencies, or if the combination would cause
// an overflow
func (c Coin) Add(o Coin) (Coin, error) {
	// If any of the coins represents no value and does not have a ticker
	// set then it has no influence on the addition result.
	if c.Ticker == "" && c.IsZero() {
		return o, nil
	}
	if o.Ticker == "" && o.IsZero() {
		return c, nil
	}

	if !c.SameType(o) {
		err := errors.Wrapf(errors.ErrCurrency, "adding %s to %s", c.Ticker, o.Ticker)
		return Coin{}, err
	}

	c.Whole += o.Whole
	c.Fractional += o.Fractional
	return c.normalize()
}

// Negative returns the opposite coins value
//   c.Add(c.Negative()).IsZero() == true
func (c Coin) Negative() Coin {
	return Coin{
		Ticker:     c.Ticker,
		Whole:      -1 * c.Whole,
		Fractional: -1 * c.Fractional,
	}
}

// Subtract given amount.
func (c Coin) Subtract(amount Coin) (Coin, error) {
	return c.Add(amount.Negative())
}

// Compare will check values of two coins, without
// inspecting the currency code. It is up to the caller
// to determine if they want to check this.
// It also assumes they were already normalized.
//
// Returns 1 if c is larger, -1 if o is larger, 0 if equal
func (c Coin) Compare(o Coin) int {
	switch a, b := c.Drops(), o.Drops(); {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

// Equals returns true if all fields are identical
func (c Coin) Equals(o Coin) bool {
	return c.Ticker == o.Ticker &&
		c.Whole == o.Whole &&
		c.Fractional == o.Fractional
}

// IsEmpty returns true on null or zero amount
func IsEmpty(c *Coin) bool {
	return c == nil || c.IsZero()
}

// IsZero returns true amounts are 0
func (c Coin) IsZero() bool {
	return c.Whole == 0 && c.Fractional == 0
}

// IsPositive returns true if the value is greater than 0
func (c Coin) IsPositive() bool {
	return c.Whole > 0 ||
		(c.Whole == 0 && c.Fractional > 0)
}

// IsNonNegative returns true if the value is 0 or higher
func (c Coin) IsNonNegative() bool {
	return c.Whole >= 0 && c.Fractional >= 0
}

// IsGTE returns true if c is same type and at least as large as o.
func (c Coin) IsGTE(o Coin) bool {
	return c.SameType(o) && c.Compare(o) >= 0
}

// SameType returns true if they have the same currency
func (c Coin) SameType(o Coin) bool {
	return c.Ticker == o.Ticker
}

// Clone provides an independent copy of a coin pointer
func (c *Coin) Clone() *Coin {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// Validate ensures that the coin is in the valid range
// and valid currency code. It accepts negative values,
// so you may want to make other checks in your business
// logic
func (c Coin) Validate() error {
	var err error
	if !IsCC(c.Ticker) {
		err = errors.AppendField(err, "Ticker", errors.Wrapf(errors.ErrCurrency, "invalid currency: %s", c.Ticker))
	}
	if c.Whole < MinInt || c.Whole > MaxInt {
		err = errors.AppendField(err, "Whole", errors.ErrOverflow)
	}
	if c.Fractional < MinFrac || c.Fractional > MaxFrac {
		err = errors.AppendField(err, "Fractional", errors.ErrOverflow)
	}
	// make sure signs match
	if c.Whole != 0 && c.Fractional != 0 &&
		((c.Whole > 0) != (c.Fractional > 0)) {
		err = errors.AppendField(err, "Fractional", errors.Wrap(errors.ErrState, "mismatched sign"))
	}
	return err
}

// normalize will adjust the fractional parts to
// correspond to the range and the integer parts.
//
// If the normalized coin is outside of the range,
// returns an error
func (c Coin) normalize() (Coin, error) {
	// keep fraction in range
	for c.Fractional < MinFrac {
		c.Whole--
		c.Fractional += FracUnit
	}
	for c.Fractional > MaxFrac {
		c.Whole++
		c.Fractional -= FracUnit
	}

	// make sure the signs correspond
	if (c.Whole > 0) && (c.Fractional < 0) {
		c.Whole--
		c.Fractional += FracUnit
	} else if (c.Whole < 0) && (c.Fractional > 0) {
		c.Whole++
		c.Fractional -= FracUnit
	}

	// return error if integer is out of range
	if c.Whole < MinInt || c.Whole > MaxInt {
		return Coin{}, errors.ErrOverflow
	}
	return c, nil
}

// String provides a human readable representation of the coin, for example
// "10.5 IOV". For a valid coin the result can be parsed back with
// ParseHumanFormat.
func (c Coin) String() string {
	if n, err := c.normalize(); err == nil {
		c = n
	}
	s := c.Decimal()
	if c.Ticker != "" {
		s += " " + c.Ticker
	}
	return s
}

// Decimal returns the value of the coin as a decimal number without the
// ticker, for example "10.5".
func (c Coin) Decimal() string {
	var sign string
	whole, frac := c.Whole, c.Fractional
	if whole < 0 || frac < 0 {
		sign = "-"
		whole, frac = -whole, -frac
	}
	s := sign + strconv.FormatInt(whole, 10)
	if frac != 0 {
		f := strconv.FormatInt(frac, 10)
		f = strings.Repeat("0", FracDigits-len(f)) + f
		s += "." + strings.TrimRight(f, "0")
	}
	return s
}

// ParseHumanFormat parse a human readable coin representation. Accepted format
// is a string:
//   "<whole>[.<fractional>] <ticker>"
func ParseHumanFormat(h string) (Coin, error) {
	m := humanCoinFormatRx.FindStringSubmatch(strings.TrimSpace(h))
	if m == nil {
		return Coin{}, errors.Wrapf(errors.ErrInput, "invalid coin format %q", h)
	}
	c, err := ParseAmount(m[2], m[3])
	if err != nil {
		return Coin{}, err
	}
	if m[1] == "-" {
		c = c.Negative()
	}
	return c, nil
}

var humanCoinFormatRx = regexp.MustCompile(`^(\-?)\s*(\d+(?:\.\d+)?)\s*([A-Z]{3,4})$`)

// ParseAmount parse a non-negative decimal number, for example "10" or
// "0.25", into a coin of given ticker. More than FracDigits fractional digits
// cannot be represented in drops and are rejected.
func ParseAmount(amount, ticker string) (Coin, error) {
	m := amountRx.FindStringSubmatch(amount)
	if m == nil {
		return Coin{}, errors.Wrapf(errors.ErrInvalidAmount, "not a decimal number: %q", amount)
	}
	whole, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || whole > MaxInt {
		return Coin{}, errors.Wrapf(errors.ErrOverflow, "whole value %q", m[1])
	}
	var frac int64
	if digits := m[2]; digits != "" {
		digits = strings.TrimRight(digits, "0")
		if len(digits) > FracDigits {
			return Coin{}, errors.Wrapf(errors.ErrInvalidAmount,
				"more than %d fractional digits: %q", FracDigits, amount)
		}
		if digits != "" {
			digits += strings.Repeat("0", FracDigits-len(digits))
			// At most FracDigits digits always fit.
			frac, _ = strconv.ParseInt(digits, 10, 64)
		}
	}
	return Coin{Whole: whole, Fractional: frac, Ticker: ticker}, nil
}

var amountRx = regexp.MustCompile(`^(\d+)(?:\.(\d+))?$`)

// Set updates this coin value to what is provided. This method implements
// flag.Value interface.
func (c *Coin) Set(raw string) error {
	val, err := ParseHumanFormat(raw)
	if err != nil {
		return err
	}
	*c = val
	return nil
}

// MarshalJSON serialize the coin using the human readable format.
func (c Coin) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts both the human readable format, a string
// "<whole>[.<fractional>] <ticker>", and an object with whole, fractional and
// ticker attributes.
func (c *Coin) UnmarshalJSON(raw []byte) error {
	var human string
	if err := json.Unmarshal(raw, &human); err == nil {
		parsed, err := ParseHumanFormat(human)
		if err != nil {
			// A coin without a ticker is rendered as a bare number.
			if bare, e := ParseAmount(human, ""); e == nil {
				*c = bare
				return nil
			}
			return err
		}
		*c = parsed
		return nil
	}

	// Because UnmarshalJSON method is provided, we can no longer use Coin
	// type for this.
	var coin struct {
		Whole      int64
		Fractional int64
		Ticker     string
	}
	if err := json.Unmarshal(raw, &coin); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	*c = NewCoin(coin.Whole, coin.Fractional, coin.Ticker)
	return nil
}
