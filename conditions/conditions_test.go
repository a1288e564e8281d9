package conditions

import (
	"encoding/hex"
	"testing"

	"github.com/iov-one/quickhold/errors"
	"github.com/iov-one/quickhold/weavetest/assert"
)

func TestFromPhrase(t *testing.T) {
	cases := map[string]struct {
		phrase          string
		wantFulfillment string
		wantCondition   string
	}{
		"package delivered safely": {
			phrase:          "package delivered safely",
			wantFulfillment: "A0228020E3F1F111CED00F6AACDFF1F70033EDCE60FCF5DCF152DAE8C3ACF8834BCBBFF7",
			wantCondition:   "A02580206F75C6B031BDED420D605A616DBBB2D726040C4290BE1013A99B3272B9ABF222810120",
		},
		"secret": {
			phrase:          "secret",
			wantFulfillment: "A02280202BB80D537B1DA3E38BD30361AA855686BDE0EACD7162FEF6A25FE97BF527A25B",
			wantCondition:   "A02580203881219D087DD9C634373FD33DFA33A2CB6BFC6C520B64B8BB60EF2CEB534AE7810120",
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			ful, cond := FromPhrase(tc.phrase)
			assert.Equal(t, tc.wantFulfillment, ful.Hex())
			assert.Equal(t, tc.wantCondition, cond.Hex())

			// Recomputing gives byte identical results.
			ful2, cond2 := FromPhrase(tc.phrase)
			assert.Equal(t, ful.Hex(), ful2.Hex())
			assert.Equal(t, cond.Hex(), cond2.Hex())

			assert.Nil(t, Validate(ful, cond))
		})
	}
}

func TestDistinctPhrases(t *testing.T) {
	phrases := []string{"", "a", "A", "a ", "secret", "wrong", "package delivered safely"}
	seen := make(map[string]string)
	for _, p := range phrases {
		_, cond := FromPhrase(p)
		if other, ok := seen[cond.Hex()]; ok {
			t.Fatalf("phrases %q and %q share a condition", p, other)
		}
		seen[cond.Hex()] = p
	}
}

func TestEmptyPreimageVector(t *testing.T) {
	ful, err := NewPreimageSha256(nil)
	assert.Nil(t, err)
	assert.Equal(t, "A0028000", ful.Hex())

	cond, err := ful.Condition()
	assert.Nil(t, err)
	assert.Equal(t, "A0258020E3B0C44298FC1C149AFBF4C8996FB92427AE41E4649B934CA495991B7852B855810100", cond.Hex())

	_, cost, err := cond.Fingerprint()
	assert.Nil(t, err)
	assert.Equal(t, uint64(0), cost)
}

func TestValidateForeignCondition(t *testing.T) {
	ful, _ := FromPhrase("secret")
	_, other := FromPhrase("wrong")
	assert.IsErr(t, ErrMismatch, Validate(ful, other))
}

func TestParse(t *testing.T) {
	ful, cond := FromPhrase("secret")

	cases := map[string]struct {
		raw     string
		parse   func([]byte) error
		wantErr *errors.Error
	}{
		"valid fulfillment": {
			raw:   ful.Hex(),
			parse: parseFulfillment,
		},
		"valid condition": {
			raw:   cond.Hex(),
			parse: parseCondition,
		},
		"condition is not a fulfillment": {
			raw:     cond.Hex(),
			parse:   parseFulfillment,
			wantErr: ErrEncoding,
		},
		"fulfillment is not a condition": {
			raw:     ful.Hex(),
			parse:   parseCondition,
			wantErr: ErrEncoding,
		},
		"trailing bytes": {
			raw:     cond.Hex() + "00",
			parse:   parseCondition,
			wantErr: ErrEncoding,
		},
		"truncated": {
			raw:     cond.Hex()[:20],
			parse:   parseCondition,
			wantErr: ErrEncoding,
		},
		"empty": {
			raw:     "",
			parse:   parseFulfillment,
			wantErr: ErrEncoding,
		},
		"prefix sha256 type": {
			raw:     "A1" + cond.Hex()[2:],
			parse:   parseCondition,
			wantErr: ErrUnsupported,
		},
		"negative cost": {
			raw:     cond.Hex()[:len(cond.Hex())-2] + "80",
			parse:   parseCondition,
			wantErr: ErrEncoding,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			raw, err := hex.DecodeString(tc.raw)
			assert.Nil(t, err)
			assert.IsErr(t, tc.wantErr, tc.parse(raw))
		})
	}
}

func parseFulfillment(raw []byte) error {
	_, err := ParseFulfillment(raw)
	return err
}

func parseCondition(raw []byte) error {
	_, err := ParseCondition(raw)
	return err
}

func TestCostEncoding(t *testing.T) {
	cases := map[string]struct {
		n    uint64
		want []byte
	}{
		"zero":     {n: 0, want: []byte{0}},
		"small":    {n: 32, want: []byte{0x20}},
		"high bit": {n: 128, want: []byte{0, 0x80}},
		"two":      {n: 1024, want: []byte{0x04, 0}},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			got := encodeCost(tc.n)
			assert.Equal(t, tc.want, got)
			n, ok := decodeCost(got)
			if !ok {
				t.Fatal("cannot decode")
			}
			assert.Equal(t, tc.n, n)
		})
	}
}
