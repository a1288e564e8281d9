package session

import (
	"testing"

	"github.com/iov-one/quickhold/coin"
	"github.com/iov-one/quickhold/errors"
	"github.com/iov-one/quickhold/weavetest/assert"
)

func TestParseCommand(t *testing.T) {
	cases := map[string]struct {
		line    string
		want    Command
		wantErr *errors.Error
	}{
		"whole amount": {
			line: `escrow 10 "package delivered safely"`,
			want: Command{Amount: coin.NewCoin(10, 0, ""), Phrase: "package delivered safely"},
		},
		"fractional amount": {
			line: `escrow 0.25 "x"`,
			want: Command{Amount: coin.NewCoin(0, 250000, ""), Phrase: "x"},
		},
		"smallest amount": {
			line: `escrow 0.000001 "x"`,
			want: Command{Amount: coin.NewCoin(0, 1, ""), Phrase: "x"},
		},
		"surrounding whitespace": {
			line: "  \tescrow   5   \"secret\"  \r",
			want: Command{Amount: coin.NewCoin(5, 0, ""), Phrase: "secret"},
		},
		"phrase whitespace is kept": {
			line: `escrow 5 " secret "`,
			want: Command{Amount: coin.NewCoin(5, 0, ""), Phrase: " secret "},
		},
		"escaped quote": {
			line: `escrow 1 "say \"hi\""`,
			want: Command{Amount: coin.NewCoin(1, 0, ""), Phrase: `say "hi"`},
		},
		"backslashes are kept": {
			line: `escrow 1 "C:\\tmp\n"`,
			want: Command{Amount: coin.NewCoin(1, 0, ""), Phrase: `C:\\tmp\n`},
		},
		"trailing backslash": {
			line: `escrow 1 "a\"`,
			want: Command{Amount: coin.NewCoin(1, 0, ""), Phrase: `a\`},
		},
		"amount not numeric": {
			line:    `escrow abc "x"`,
			wantErr: errors.ErrInput,
		},
		"missing quotes": {
			line:    `escrow 5 hello`,
			wantErr: errors.ErrInput,
		},
		"empty phrase": {
			line:    `escrow 5 ""`,
			wantErr: errors.ErrInput,
		},
		"unescaped quote inside phrase": {
			line:    `escrow 5 "a"b"`,
			wantErr: errors.ErrInput,
		},
		"unterminated phrase": {
			line:    `escrow 5 "a`,
			wantErr: errors.ErrInput,
		},
		"zero amount": {
			line:    `escrow 0 "x"`,
			wantErr: errors.ErrInput,
		},
		"negative amount": {
			line:    `escrow -1 "x"`,
			wantErr: errors.ErrInput,
		},
		"too many fractional digits": {
			line:    `escrow 1.0000001 "x"`,
			wantErr: errors.ErrInput,
		},
		"trailing text": {
			line:    `escrow 1 "x" now`,
			wantErr: errors.ErrInput,
		},
		"wrong keyword": {
			line:    `Escrow 1 "x"`,
			wantErr: errors.ErrInput,
		},
		"empty line": {
			line:    "",
			wantErr: errors.ErrInput,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			got, err := ParseCommand(tc.line)
			if tc.wantErr != nil {
				assert.IsErr(t, tc.wantErr, err)
				return
			}
			assert.Nil(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
