// Package principal implements the opaque backend-id identifier used to
// address a compute canister on the target platform: raw bytes plus a
// textual encoding of CRC32 checksum + base32, grouped into dash-separated
// five-character blocks.
package principal

import (
	"encoding/base32"
	"errors"
	"hash/crc32"
	"strings"
)

// MaxLength is the largest number of raw bytes a Principal may hold.
const MaxLength = 29

var ErrTooLong = errors.New("principal: raw value exceeds maximum length")
var ErrMalformed = errors.New("principal: malformed textual encoding")

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// Principal is an opaque, comparable backend identifier.
type Principal struct {
	raw string // immutable raw bytes, stored as a string for cheap equality/hash
}

// FromBytes wraps raw bytes as a Principal, validating length.
func FromBytes(b []byte) (Principal, error) {
	if len(b) > MaxLength {
		return Principal{}, ErrTooLong
	}
	return Principal{raw: string(b)}, nil
}

// Bytes returns the underlying raw value.
func (p Principal) Bytes() []byte {
	return []byte(p.raw)
}

// IsZero reports whether p is the zero value (not a valid principal).
func (p Principal) IsZero() bool {
	return p.raw == ""
}

// Equal reports whether two principals wrap the same raw bytes.
func (p Principal) Equal(o Principal) bool {
	return p.raw == o.raw
}

// String renders the canonical dash-grouped textual encoding:
// base32(crc32(raw) || raw), lowercased, split into 5-char groups
// joined by "-".
func (p Principal) String() string {
	sum := crc32.ChecksumIEEE([]byte(p.raw))
	buf := make([]byte, 4+len(p.raw))
	buf[0] = byte(sum >> 24)
	buf[1] = byte(sum >> 16)
	buf[2] = byte(sum >> 8)
	buf[3] = byte(sum)
	copy(buf[4:], p.raw)

	enc := strings.ToLower(b32.EncodeToString(buf))
	var sb strings.Builder
	for i := 0; i < len(enc); i += 5 {
		if i > 0 {
			sb.WriteByte('-')
		}
		end := i + 5
		if end > len(enc) {
			end = len(enc)
		}
		sb.WriteString(enc[i:end])
	}
	return sb.String()
}

// Parse decodes the canonical textual form produced by String, verifying
// the embedded CRC32 checksum.
func Parse(s string) (Principal, error) {
	compact := strings.ToUpper(strings.ReplaceAll(s, "-", ""))
	if compact == "" {
		return Principal{}, ErrMalformed
	}
	decoded, err := b32.DecodeString(compact)
	if err != nil {
		return Principal{}, ErrMalformed
	}
	if len(decoded) < 4 {
		return Principal{}, ErrMalformed
	}

	want := uint32(decoded[0])<<24 | uint32(decoded[1])<<16 | uint32(decoded[2])<<8 | uint32(decoded[3])
	raw := decoded[4:]
	if len(raw) > MaxLength {
		return Principal{}, ErrTooLong
	}
	got := crc32.ChecksumIEEE(raw)
	if got != want {
		return Principal{}, ErrMalformed
	}
	return Principal{raw: string(raw)}, nil
}

// ManagementCanisterID is the well-known all-zero-length principal used
// throughout the platform's tooling as a canonical test/placeholder value
// (mirrors the "aaaaa-aa" literal used pervasively in fixtures).
var ManagementCanisterID = Principal{raw: ""}
