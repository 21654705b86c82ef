package basketcode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	for _, length := range []int{MinLength, DefaultLength, MaxLength} {
		code, err := Generate(length)
		require.NoError(t, err)
		assert.Len(t, code, length)
		assert.True(t, Valid(code), "generated code %q should be valid", code)
	}
}

func TestGenerate_NoAmbiguousCharacters(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := Generate(MaxLength)
		require.NoError(t, err)
		assert.False(t, strings.ContainsAny(code, "IO01"), "code %q contains ambiguous characters", code)
	}
}

func TestGenerate_RejectsBadLength(t *testing.T) {
	_, err := Generate(MinLength - 1)
	assert.Error(t, err)
	_, err = Generate(MaxLength + 1)
	assert.Error(t, err)

	_, err = NewGenerator(0)
	assert.Error(t, err)
}

func TestGenerate_Spread(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		code, err := Generate(DefaultLength)
		require.NoError(t, err)
		seen[code] = struct{}{}
	}
	// 32^6 codes; a handful of collisions in 1000 draws would point at a bias.
	assert.Greater(t, len(seen), 995)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ab12cd", "AB12CD"},
		{"  xyz789 ", "XYZ789"},
		{"AB12CD", "AB12CD"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in))
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("ABCD"))
	assert.False(t, Valid("abcd"))
	assert.False(t, Valid("ABC"))
	assert.False(t, Valid("ABCDEFGHJKLMN"))
	assert.False(t, Valid("AB0D"))
}
