package types

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressLength is the byte length of an account address.
const AddressLength = 20

// Address identifies an account: merchants, holders and approved operators.
// The zero value is the null address, which can never hold a subscription
// or merchant rights.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type Address [AddressLength]byte

// ZeroAddress is the null address.
var ZeroAddress Address

// ParseAddress decodes a hex address with or without the "0x" prefix.
func ParseAddress(s string) (Address, error) {
	var a Address

	raw := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if len(raw) != AddressLength*2 {
		return a, fmt.Errorf("address: parse %q: want %d hex digits, got %d", s, AddressLength*2, len(raw))
	}

	if _, err := hex.Decode(a[:], []byte(raw)); err != nil {
		return ZeroAddress, fmt.Errorf("address: parse %q: %w", s, err)
	}

	return a, nil
}

// MustParseAddress is like ParseAddress but panics on error. Use for
// hardcoded fixtures.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// BytesToAddress right-aligns b into an Address, keeping the last 20 bytes
// when b is longer.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// IsZero reports whether a is the null address.
func (a Address) IsZero() bool { return a == ZeroAddress }

// Hex returns the lowercase "0x"-prefixed encoding.
func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

// String implements fmt.Stringer.
func (a Address) String() string { return a.Hex() }

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) { return []byte(a.Hex()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*a = ZeroAddress
		return nil
	}

	parsed, err := ParseAddress(string(data))
	if err != nil {
		return err
	}

	*a = parsed
	return nil
}

// Value implements driver.Valuer.
func (a Address) Value() (driver.Value, error) { return a.Hex(), nil }

// Scan implements sql.Scanner.
func (a *Address) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = ZeroAddress
		return nil
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	default:
		return fmt.Errorf("address: cannot scan %T into Address", src)
	}
}
