package validation

import (
	"testing"

	"github.com/Davincible/polysecret/pkg/crypto/basen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateThreshold(t *testing.T) {
	tests := []struct {
		name      string
		n, k      int
		wantError bool
	}{
		{"Valid 3 of 4", 4, 3, false},
		{"Valid 1 of 1", 1, 1, false},
		{"All shares required", 5, 5, false},
		{"Zero threshold", 3, 0, true},
		{"Threshold above count", 3, 4, true},
		{"Threshold too large", MaxThreshold + 1, MaxThreshold + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateThreshold(tt.n, tt.k)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseShareIndex(t *testing.T) {
	idx, err := ParseShareIndex("6")
	require.NoError(t, err)
	assert.Equal(t, 6, idx)

	idx, err = ParseShareIndex(" 12 ")
	require.NoError(t, err)
	assert.Equal(t, 12, idx)

	for _, bad := range []string{"0", "-1", "a", "1.5", "", "keys", "99999999999999999999999"} {
		_, err := ParseShareIndex(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseBase(t *testing.T) {
	base, err := ParseBase("16")
	require.NoError(t, err)
	assert.Equal(t, 16, base)

	for _, bad := range []string{"1", "37", "x", "", "100", "-2"} {
		_, err := ParseBase(bad)
		assert.ErrorIs(t, err, basen.ErrInvalidBase, bad)
	}
}

func TestValidateParallelism(t *testing.T) {
	assert.NoError(t, ValidateParallelism(1))
	assert.NoError(t, ValidateParallelism(8))
	assert.Error(t, ValidateParallelism(0))
	assert.Error(t, ValidateParallelism(2048))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword([]byte("correct horse")))
	assert.Error(t, ValidatePassword(nil))
	assert.Error(t, ValidatePassword([]byte{'a', 0, 'b'}))
	assert.Error(t, ValidatePassword(make([]byte, 300)))
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "abc", SanitizeInput("  abc \r\n"))
	assert.Equal(t, "a\nb", SanitizeInput("a \r b"))
}
