package coin

import (
	"encoding/json"
	"testing"

	"github.com/iov-one/quickhold/errors"
	"github.com/iov-one/quickhold/weavetest/assert"
)

func TestCompareCoin(t *testing.T) {
	cases := map[string]struct {
		a       Coin
		b       Coin
		wantRes int
	}{
		"a greater than b": {
			a:       NewCoin(20, 1234, "ABC"),
			b:       NewCoin(19, 999999, "ABC"),
			wantRes: 1,
		},
		"a smaller than b": {
			a:       NewCoin(0, -2, "FOO"),
			b:       NewCoin(0, 1, "FOO"),
			wantRes: -1,
		},
		"a greater than b and both negative": {
			a:       NewCoin(-4, -2456, "BAR"),
			b:       NewCoin(-4, -4567, "BAR"),
			wantRes: 1,
		},
		"zero value coins": {
			a:       Coin{},
			b:       Coin{},
			wantRes: 0,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			assert.Equal(t, tc.wantRes, tc.a.Compare(tc.b))
		})
	}
}

func TestCoinNegative(t *testing.T) {
	a := NewCoin(456, 985, "ABC")
	n := a.Negative()

	assert.Equal(t, a.Ticker, n.Ticker)
	assert.Equal(t, a.Whole, -n.Whole)
	assert.Equal(t, a.Fractional, -n.Fractional)

	if nn := a.Negative().Negative(); !a.Equals(nn) {
		t.Fatal("double negation malformed the coin")
	}
}

func TestAddCoin(t *testing.T) {
	cases := map[string]struct {
		a       Coin
		b       Coin
		want    Coin
		wantErr *errors.Error
	}{
		"fractional overflow moves to whole": {
			a:    NewCoin(1, 600000, "IOV"),
			b:    NewCoin(0, 500000, "IOV"),
			want: NewCoin(2, 100000, "IOV"),
		},
		"subtract below zero": {
			a:    NewCoin(1, 0, "IOV"),
			b:    NewCoin(-1, -1, "IOV"),
			want: NewCoin(0, -1, "IOV"),
		},
		"zero value without ticker is neutral": {
			a:    Coin{},
			b:    NewCoin(3, 0, "IOV"),
			want: NewCoin(3, 0, "IOV"),
		},
		"different currencies": {
			a:       NewCoin(1, 0, "IOV"),
			b:       NewCoin(1, 0, "ETH"),
			wantErr: errors.ErrCurrency,
		},
		"overflow": {
			a:       NewCoin(MaxInt, 0, "IOV"),
			b:       NewCoin(1, 0, "IOV"),
			wantErr: errors.ErrOverflow,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			got, err := tc.a.Add(tc.b)
			assert.IsErr(t, tc.wantErr, err)
			if tc.wantErr == nil {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestDrops(t *testing.T) {
	cases := map[string]struct {
		c     Coin
		drops int64
	}{
		"whole":      {c: NewCoin(10, 0, "IOV"), drops: 10000000},
		"fractional": {c: NewCoin(0, 12, "IOV"), drops: 12},
		"mixed":      {c: NewCoin(3, 500000, "IOV"), drops: 3500000},
		"negative":   {c: NewCoin(-1, -1, "IOV"), drops: -1000001},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			assert.Equal(t, tc.drops, tc.c.Drops())
			assert.Equal(t, tc.c, FromDrops(tc.drops, "IOV"))
		})
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]struct {
		c         Coin
		wantField string
		wantErr   *errors.Error
	}{
		"valid": {
			c: NewCoin(1, 1, "IOV"),
		},
		"bad ticker": {
			c:         NewCoin(1, 1, "iov"),
			wantField: "Ticker",
			wantErr:   errors.ErrCurrency,
		},
		"too big": {
			c:         NewCoin(MaxInt+1, 0, "IOV"),
			wantField: "Whole",
			wantErr:   errors.ErrOverflow,
		},
		"fractional out of range": {
			c:         NewCoin(1, FracUnit, "IOV"),
			wantField: "Fractional",
			wantErr:   errors.ErrOverflow,
		},
		"mismatched sign": {
			c:         NewCoin(1, -1, "IOV"),
			wantField: "Fractional",
			wantErr:   errors.ErrState,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			err := tc.c.Validate()
			if tc.wantErr == nil {
				assert.Nil(t, err)
				return
			}
			assert.FieldError(t, err, tc.wantField, tc.wantErr)
		})
	}
}

func TestCoinString(t *testing.T) {
	cases := map[string]struct {
		c    Coin
		want string
	}{
		"whole":      {c: NewCoin(10, 0, "IOV"), want: "10 IOV"},
		"fractional": {c: NewCoin(0, 1, "IOV"), want: "0.000001 IOV"},
		"trailing":   {c: NewCoin(2, 500000, "IOV"), want: "2.5 IOV"},
		"negative":   {c: NewCoin(-2, -500000, "IOV"), want: "-2.5 IOV"},
		"no ticker":  {c: NewCoin(7, 0, ""), want: "7"},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.c.String())
		})
	}
}

func TestCoinJSON(t *testing.T) {
	raw, err := json.Marshal(NewCoin(2, 500000, "IOV"))
	assert.Nil(t, err)
	assert.Equal(t, `"2.5 IOV"`, string(raw))

	var c Coin
	assert.Nil(t, json.Unmarshal(raw, &c))
	assert.Equal(t, NewCoin(2, 500000, "IOV"), c)

	assert.Nil(t, json.Unmarshal([]byte(`{"whole": 3, "ticker": "IOV"}`), &c))
	assert.Equal(t, NewCoin(3, 0, "IOV"), c)

	// A zero coin without a ticker survives the round trip.
	raw, err = json.Marshal(Coin{})
	assert.Nil(t, err)
	assert.Equal(t, `"0"`, string(raw))
	assert.Nil(t, json.Unmarshal(raw, &c))
	assert.Equal(t, Coin{}, c)

	assert.IsErr(t, errors.ErrInput, json.Unmarshal([]byte(`"ten IOV"`), &c))
}
