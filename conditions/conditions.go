package conditions

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/iov-one/quickhold/errors"
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

var (
	// ErrEncoding is returned when a condition or a fulfillment cannot be
	// decoded.
	ErrEncoding = errors.Register(1000, "malformed crypto-condition")

	// ErrUnsupported is returned for a well formed condition of a type
	// other than PREIMAGE-SHA-256.
	ErrUnsupported = errors.Register(1001, "unsupported crypto-condition type")

	// ErrMismatch is returned when a fulfillment does not fulfill the
	// condition it is presented with.
	ErrMismatch = errors.Register(1002, "fulfillment does not match condition")
)

const (
	// TypePreimageSha256 is the type ID of PREIMAGE-SHA-256 conditions.
	TypePreimageSha256 = 0

	// MaxPreimageSize is the largest preimage this package handles.
	MaxPreimageSize = 1024

	fingerprintSize = sha256.Size
)

var (
	typeTag     = asn1.Tag(TypePreimageSha256).ContextSpecific().Constructed()
	preimageTag = asn1.Tag(0).ContextSpecific()
	printTag    = asn1.Tag(0).ContextSpecific()
	costTag     = asn1.Tag(1).ContextSpecific()
)

// Fulfillment is a DER encoded PREIMAGE-SHA-256 fulfillment. It reveals the
// preimage and must be kept private until the hold it unlocks is finished.
type Fulfillment []byte

// Condition is a DER encoded PREIMAGE-SHA-256 condition. It is safe to
// publish.
type Condition []byte

// NewPreimageSha256 returns the fulfillment revealing given preimage.
func NewPreimageSha256(preimage []byte) (Fulfillment, error) {
	if len(preimage) > MaxPreimageSize {
		return nil, errors.Wrapf(ErrEncoding, "preimage of %d bytes", len(preimage))
	}
	var b cryptobyte.Builder
	b.AddASN1(typeTag, func(b *cryptobyte.Builder) {
		b.AddASN1(preimageTag, func(b *cryptobyte.Builder) {
			b.AddBytes(preimage)
		})
	})
	raw, err := b.Bytes()
	if err != nil {
		return nil, errors.Wrap(ErrEncoding, err.Error())
	}
	return raw, nil
}

// FromPhrase builds the fulfillment and condition locking funds behind a
// secret phrase. The preimage is the SHA-256 digest of the phrase bytes, so
// the result depends on nothing but the phrase.
func FromPhrase(phrase string) (Fulfillment, Condition) {
	preimage := sha256.Sum256([]byte(phrase))
	ful, err := NewPreimageSha256(preimage[:])
	if err != nil {
		// A 32 byte preimage always encodes.
		panic(err)
	}
	cond, err := ful.Condition()
	if err != nil {
		panic(err)
	}
	return ful, cond
}

// ParseFulfillment decodes a DER encoded fulfillment.
func ParseFulfillment(raw []byte) (Fulfillment, error) {
	if _, err := Fulfillment(raw).Preimage(); err != nil {
		return nil, err
	}
	return Fulfillment(raw), nil
}

// Preimage returns the preimage revealed by this fulfillment.
func (f Fulfillment) Preimage() ([]byte, error) {
	s := cryptobyte.String(f)
	var body, preimage cryptobyte.String
	if !s.ReadASN1(&body, typeTag) {
		if isOtherType(f) {
			return nil, errors.Wrapf(ErrUnsupported, "fulfillment tag %X", f[0])
		}
		return nil, errors.Wrap(ErrEncoding, "fulfillment")
	}
	if !s.Empty() {
		return nil, errors.Wrap(ErrEncoding, "trailing data after fulfillment")
	}
	if !body.ReadASN1(&preimage, preimageTag) || !body.Empty() {
		return nil, errors.Wrap(ErrEncoding, "preimage")
	}
	if len(preimage) > MaxPreimageSize {
		return nil, errors.Wrapf(ErrEncoding, "preimage of %d bytes", len(preimage))
	}
	return preimage, nil
}

// Condition derives the condition that this fulfillment fulfills.
func (f Fulfillment) Condition() (Condition, error) {
	preimage, err := f.Preimage()
	if err != nil {
		return nil, err
	}
	fingerprint := sha256.Sum256(preimage)
	var b cryptobyte.Builder
	b.AddASN1(typeTag, func(b *cryptobyte.Builder) {
		b.AddASN1(printTag, func(b *cryptobyte.Builder) {
			b.AddBytes(fingerprint[:])
		})
		b.AddASN1(costTag, func(b *cryptobyte.Builder) {
			b.AddBytes(encodeCost(uint64(len(preimage))))
		})
	})
	raw, err := b.Bytes()
	if err != nil {
		return nil, errors.Wrap(ErrEncoding, err.Error())
	}
	return raw, nil
}

// Hex returns the uppercase hexadecimal representation.
func (f Fulfillment) Hex() string {
	return strings.ToUpper(hex.EncodeToString(f))
}

// ParseCondition decodes a DER encoded condition.
func ParseCondition(raw []byte) (Condition, error) {
	if _, _, err := Condition(raw).Fingerprint(); err != nil {
		return nil, err
	}
	return Condition(raw), nil
}

// Fingerprint returns the SHA-256 fingerprint and the cost published by this
// condition.
func (c Condition) Fingerprint() ([]byte, uint64, error) {
	s := cryptobyte.String(c)
	var body, fp, cost cryptobyte.String
	if !s.ReadASN1(&body, typeTag) {
		if isOtherType(c) {
			return nil, 0, errors.Wrapf(ErrUnsupported, "condition tag %X", c[0])
		}
		return nil, 0, errors.Wrap(ErrEncoding, "condition")
	}
	if !s.Empty() {
		return nil, 0, errors.Wrap(ErrEncoding, "trailing data after condition")
	}
	if !body.ReadASN1(&fp, printTag) || len(fp) != fingerprintSize {
		return nil, 0, errors.Wrap(ErrEncoding, "fingerprint")
	}
	if !body.ReadASN1(&cost, costTag) || !body.Empty() {
		return nil, 0, errors.Wrap(ErrEncoding, "cost")
	}
	n, ok := decodeCost(cost)
	if !ok {
		return nil, 0, errors.Wrap(ErrEncoding, "cost")
	}
	return fp, n, nil
}

// Equals returns true if both conditions are byte identical.
func (c Condition) Equals(o Condition) bool {
	return bytes.Equal(c, o)
}

// Hex returns the uppercase hexadecimal representation.
func (c Condition) Hex() string {
	return strings.ToUpper(hex.EncodeToString(c))
}

// Validate returns nil if the fulfillment fulfills the condition.
func Validate(f Fulfillment, c Condition) error {
	if _, _, err := c.Fingerprint(); err != nil {
		return err
	}
	derived, err := f.Condition()
	if err != nil {
		return err
	}
	if !derived.Equals(c) {
		return errors.Wrapf(ErrMismatch, "fulfillment of %s", derived.Hex())
	}
	return nil
}

// isOtherType returns true if the encoding starts with the tag of a
// condition type other than the preimage one.
func isOtherType(raw []byte) bool {
	if len(raw) == 0 {
		return false
	}
	tag := raw[0]
	return tag != uint8(typeTag) && tag&0xe0 == 0xa0
}

// encodeCost returns the minimal DER integer content octets of an unsigned
// value.
func encodeCost(n uint64) []byte {
	var out []byte
	for {
		out = append([]byte{byte(n)}, out...)
		n >>= 8
		if n == 0 {
			break
		}
	}
	if out[0]&0x80 != 0 {
		out = append([]byte{0}, out...)
	}
	return out
}

func decodeCost(raw []byte) (uint64, bool) {
	if len(raw) == 0 || len(raw) > 9 {
		return 0, false
	}
	if raw[0]&0x80 != 0 {
		// negative
		return 0, false
	}
	if len(raw) > 1 && raw[0] == 0 && raw[1]&0x80 == 0 {
		// not minimal
		return 0, false
	}
	var n uint64
	for _, b := range raw {
		if n > (1<<56)-1 {
			return 0, false
		}
		n = n<<8 | uint64(b)
	}
	return n, true
}
