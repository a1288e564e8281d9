package quickhold

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/iov-one/quickhold/errors"
)

const (
	// AddressLength is the length of all addresses.
	AddressLength = 20

	// AddressPrefix is the human readable part of a bech32 rendered
	// address.
	AddressPrefix = "hold"
)

// it must have (?s) flags, otherwise it errors when last section contains 0x20 (newline)
var perm = regexp.MustCompile(`(?s)^([a-zA-Z0-9_\-]{3,8})/([a-zA-Z0-9_\-]{3,8})/(.+)$`)

// Permission is a specially formatted array, containing information on who
// can authorize an action. It is of the format:
//
//   sprintf("%s/%s/%s", extension, type, data)
//
// A signature permission is "sigs/ed25519/<public key>".
type Permission []byte

// NewPermission returns a permission for given extension, type and data.
func NewPermission(ext, typ string, data []byte) Permission {
	pre := fmt.Sprintf("%s/%s/", ext, typ)
	return append([]byte(pre), data...)
}

// Parse will extract the sections from the Permission bytes and verify it is
// properly formatted.
func (p Permission) Parse() (string, string, []byte, error) {
	chunks := perm.FindSubmatch(p)
	if len(chunks) == 0 {
		return "", "", nil, errors.ErrInput.Newf("permission: %X", []byte(p))
	}
	// returns [all, match1, match2, match3]
	return string(chunks[1]), string(chunks[2]), chunks[3], nil
}

// Address will convert a Permission into an Address.
func (p Permission) Address() Address {
	return NewAddress(p)
}

// Equals checks if two permissions are the same.
func (p Permission) Equals(o Permission) bool {
	return bytes.Equal(p, o)
}

// String keeps the extension and type in ascii and hex-encodes the data.
func (p Permission) String() string {
	ext, typ, data, err := p.Parse()
	if err != nil {
		return fmt.Sprintf("Invalid Permission: %X", []byte(p))
	}
	return fmt.Sprintf("%s/%s/%X", ext, typ, data)
}

// Validate returns an error if the Permission is not the proper format.
func (p Permission) Validate() error {
	if !perm.Match(p) {
		return errors.ErrInput.Newf("permission: %X", []byte(p))
	}
	return nil
}

// Address represents a collision-free, one-way digest of a Permission.
//
// It will be of size AddressLength.
type Address []byte

// NewAddress hashes and truncates into the proper size.
func NewAddress(data []byte) Address {
	if data == nil {
		return nil
	}
	h := sha256.Sum256(data)
	return h[:AddressLength]
}

// ParseAddress decodes an address in its bech32 ("hold1...") or hex form.
func ParseAddress(raw string) (Address, error) {
	raw = strings.TrimSpace(raw)
	var addr Address
	if strings.HasPrefix(strings.ToLower(raw), AddressPrefix+"1") {
		hrp, data, err := bech32.Decode(raw)
		if err != nil {
			return nil, errors.Wrap(errors.ErrInput, err.Error())
		}
		if hrp != AddressPrefix {
			return nil, errors.Wrapf(errors.ErrInput, "unexpected prefix %q", hrp)
		}
		payload, err := bech32.ConvertBits(data, 5, 8, false)
		if err != nil {
			return nil, errors.Wrap(errors.ErrInput, err.Error())
		}
		addr = payload
	} else {
		payload, err := hex.DecodeString(raw)
		if err != nil {
			return nil, errors.Wrap(errors.ErrInput, "neither bech32 nor hex")
		}
		addr = payload
	}
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	return addr, nil
}

// Equals checks if two addresses are the same.
func (a Address) Equals(b Address) bool {
	return bytes.Equal(a, b)
}

// String returns the bech32 representation of the address.
func (a Address) String() string {
	if len(a) == 0 {
		return "(nil)"
	}
	data, err := bech32.ConvertBits(a, 8, 5, true)
	if err != nil {
		return strings.ToUpper(hex.EncodeToString(a))
	}
	s, err := bech32.Encode(AddressPrefix, data)
	if err != nil {
		return strings.ToUpper(hex.EncodeToString(a))
	}
	return s
}

// Validate returns an error if the address is not the valid size.
func (a Address) Validate() error {
	if len(a) != AddressLength {
		return errors.Wrapf(errors.ErrInput, "address length %d", len(a))
	}
	return nil
}

// Set implements flag.Value interface.
func (a *Address) Set(raw string) error {
	addr, err := ParseAddress(raw)
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// MarshalJSON provides a bech32 representation for JSON, to override the
// standard base64 []byte encoding.
func (a Address) MarshalJSON() ([]byte, error) {
	if len(a) == 0 {
		return json.Marshal("")
	}
	return json.Marshal(a.String())
}

func (a *Address) UnmarshalJSON(raw []byte) error {
	var enc string
	if err := json.Unmarshal(raw, &enc); err != nil {
		return errors.Wrap(errors.ErrInput, "cannot decode json")
	}
	// No value zero the address.
	if enc == "" {
		*a = nil
		return nil
	}
	return a.Set(enc)
}
