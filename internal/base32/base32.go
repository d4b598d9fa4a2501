package base32

import (
	stdbase32 "encoding/base32"
	"errors"
	"strings"
	"unicode"
)

// ErrInvalidEncoding is returned when a seed contains characters outside A-Z2-7 or decodes to nothing.
var ErrInvalidEncoding = errors.New("invalid base32 encoding")

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

var noPadding = stdbase32.StdEncoding.WithPadding(stdbase32.NoPadding)

// Normalize removes all whitespace and upper-cases s.
func Normalize(s string) string {
	return strings.ToUpper(StripSpace(s))
}

// StripSpace removes every whitespace rune from s, including inner spaces
// used to group seeds for readability ("JBSW Y3DP ...").
func StripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Valid reports whether s is non-empty and uses only the A-Z2-7 alphabet.
// Padding and lowercase are not accepted.
func Valid(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if value(s[i]) < 0 {
			return false
		}
	}
	return true
}

// Decode strips whitespace and padding, upper-cases and decodes seed.
// Bits left over after the last full byte are dropped, so seeds whose
// length is not a multiple of 8 still decode.
func Decode(seed string) ([]byte, error) {
	clean := strings.TrimRight(Normalize(seed), "=")
	out := make([]byte, 0, len(clean)*5/8)
	var buf uint32
	var bits uint
	for i := 0; i < len(clean); i++ {
		v := value(clean[i])
		if v < 0 {
			return nil, ErrInvalidEncoding
		}
		buf = buf<<5 | uint32(v)
		bits += 5
		if bits >= 8 {
			bits -= 8
			out = append(out, byte(buf>>bits))
			buf &= 1<<bits - 1
		}
	}
	if len(out) == 0 {
		return nil, ErrInvalidEncoding
	}
	return out, nil
}

// Encode returns the unpadded base32 form of b.
func Encode(b []byte) string {
	return noPadding.EncodeToString(b)
}

func value(c byte) int {
	return strings.IndexByte(alphabet, c)
}
