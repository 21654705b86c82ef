// Package basketcode generates and normalizes the short codes participants
// share to reach a basket.
//
// A code is DefaultLength characters from Alphabet. The alphabet leaves out
// I, O, 0 and 1 so codes read back over the phone without ambiguity. It has
// 32 symbols, so each character takes the low five bits of one random byte
// and the distribution stays uniform.
package basketcode

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	Alphabet      = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	DefaultLength = 6
	MinLength     = 4
	MaxLength     = 12
)

// randomBytes lists the uuid v4 byte positions that carry no version or
// variant bits.
var randomBytes = []int{0, 1, 2, 3, 4, 5, 7, 9, 10, 11, 12, 13, 14, 15}

// Generator produces candidate codes. The registry retries on collision, so a
// Generator only has to be random, not unique.
type Generator func() (string, error)

// NewGenerator returns a Generator for codes of the given length.
func NewGenerator(length int) (Generator, error) {
	if length < MinLength || length > MaxLength {
		return nil, fmt.Errorf("code length must be between %d and %d, got %d", MinLength, MaxLength, length)
	}
	return func() (string, error) {
		return Generate(length)
	}, nil
}

func Generate(length int) (string, error) {
	if length < MinLength || length > MaxLength {
		return "", fmt.Errorf("code length must be between %d and %d, got %d", MinLength, MaxLength, length)
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to read randomness: %w", err)
	}

	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(Alphabet[id[randomBytes[i]]&0x1f])
	}
	return b.String(), nil
}

// Normalize trims and upper-cases a user supplied code so lookups are
// case-insensitive.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether code is a well formed, normalized code.
func Valid(code string) bool {
	if len(code) < MinLength || len(code) > MaxLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(Alphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}
