package businessflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	t.Run("LengthAndAlphabet", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			code, err := GenerateCode()
			require.NoError(t, err)
			assert.Len(t, code, GeneratedCodeLength)
			for _, ch := range code {
				assert.Contains(t, codeAlphabet, string(ch))
			}
		}
	})

	t.Run("CodesVary", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 50; i++ {
			code, err := GenerateCode()
			require.NoError(t, err)
			seen[code] = true
		}
		// 50 draws from 36^6 values should not collapse to a handful
		assert.Greater(t, len(seen), 45)
	})
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "abc123", NormalizeCode("  ABC123  "))
	assert.Equal(t, "my-link", NormalizeCode("My-Link"))
	assert.Equal(t, "", NormalizeCode("   "))
}

func TestValidateDestination(t *testing.T) {
	t.Run("ValidURLs", func(t *testing.T) {
		valid := []string{
			"https://example.com",
			"http://example.com/path?q=1",
			"https://sub.example.com:8443/deep/path#frag",
		}
		for _, u := range valid {
			assert.NoError(t, ValidateDestination(u), u)
		}
	})

	t.Run("InvalidURLs", func(t *testing.T) {
		invalid := []string{
			"",
			"   ",
			"ftp://example.com",
			"javascript:alert(1)",
			"example.com/no-scheme",
			"https://",
			"//relative.example.com",
		}
		for _, u := range invalid {
			assert.ErrorIs(t, ValidateDestination(u), ErrInvalidDestination, u)
		}
	})

	t.Run("LengthCap", func(t *testing.T) {
		long := "https://example.com/" + strings.Repeat("a", MaxDestinationLength)
		assert.ErrorIs(t, ValidateDestination(long), ErrInvalidDestination)

		// Exactly at the cap is fine
		atCap := "https://example.com/" + strings.Repeat("a", MaxDestinationLength-len("https://example.com/"))
		assert.NoError(t, ValidateDestination(atCap))
	})
}

func TestValidateCustomCode(t *testing.T) {
	t.Run("ValidCodes", func(t *testing.T) {
		valid := []string{"my-link", "abc", "A1-b2", "x", strings.Repeat("a", MaxCustomCodeLength)}
		for _, code := range valid {
			assert.NoError(t, ValidateCustomCode(code), code)
		}
	})

	t.Run("InvalidSyntax", func(t *testing.T) {
		invalid := []string{"", "  ", "has space", "under_score", "slash/code", "커스텀", strings.Repeat("a", MaxCustomCodeLength+1)}
		for _, code := range invalid {
			assert.ErrorIs(t, ValidateCustomCode(code), ErrInvalidCustomCode, code)
		}
	})

	t.Run("ReservedWords", func(t *testing.T) {
		for _, code := range []string{"admin", "api", "login", "Analytics", "DASHBOARD"} {
			assert.ErrorIs(t, ValidateCustomCode(code), ErrInvalidCustomCode, code)
		}
	})
}

func TestIsReservedCode(t *testing.T) {
	assert.True(t, IsReservedCode("admin"))
	assert.True(t, IsReservedCode("API"))
	assert.False(t, IsReservedCode("adm1n"))
	assert.False(t, IsReservedCode("my-link"))
}
