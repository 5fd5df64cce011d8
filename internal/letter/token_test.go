package letter_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnhsh/letterbox/internal/apperr"
	"github.com/mnhsh/letterbox/internal/letter"
)

func TestNewToken(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		tok, err := letter.NewToken()
		require.NoError(t, err)
		assert.Len(t, tok, 43)
		assert.NoError(t, letter.ValidateToken(tok))
		_, dup := seen[tok]
		assert.False(t, dup, "token repeated")
		seen[tok] = struct{}{}
	}
}

func TestValidateToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		ok    bool
	}{
		{"empty", "", false},
		{"short", "abcdefghij", false},
		{"min length", strings.Repeat("a", letter.MinTokenLength), true},
		{"max length", strings.Repeat("Z", letter.MaxTokenLength), true},
		{"too long", strings.Repeat("Z", letter.MaxTokenLength+1), false},
		{"url safe", strings.Repeat("a-b_C9", 8), true},
		{"padding", strings.Repeat("a", 40) + "==", false},
		{"slash", strings.Repeat("a", 40) + "/x", false},
		{"space", strings.Repeat("a", 40) + " x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := letter.ValidateToken(tt.token)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, apperr.ErrInvalidToken)
		})
	}
}

func TestNormalizePair(t *testing.T) {
	a, b := letter.NormalizePair(
		[16]byte{0x01},
		[16]byte{0x02},
	)
	c, d := letter.NormalizePair(b, a)
	assert.Equal(t, a, c)
	assert.Equal(t, b, d)
	assert.Equal(t, byte(0x01), a[0])
}
