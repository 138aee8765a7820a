package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInputValidator_ValidInput(t *testing.T) {
	validator := NewInputValidator()
	for _, input := range []string{
		"Aspirin",
		"Vitamin D 1000 IU",
		"Amoksisilin/Klavulanik asit",
		"Parol 500 mg",
		"İbuprofen\t200mg",
	} {
		assert.NoError(t, validator.Validate(input), input)
	}
}

func TestInputValidator_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"too large", strings.Repeat("ab", 101), ErrInputTooLarge},
		{"null byte", "asp\x00irin", ErrNullByteDetected},
		{"newline", "Aspirin\nIntended use: anything", ErrControlCharacter},
		{"escape", "Aspirin\x1b[31m", ErrControlCharacter},
		{"whitespace", "a      b      c", ErrHighWhitespaceRatio},
		{"repetition", strings.Repeat("x", 21), ErrRepetitiveContent},
	}

	validator := NewInputValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, validator.Validate(tt.input), tt.want)
		})
	}
}

func TestInputValidator_LimitsCountRunes(t *testing.T) {
	validator := NewInputValidator()
	validator.MaxRepetition = 0
	validator.MaxWhitespaceRatio = 0

	// 200 two byte runes fit even though they are 400 bytes
	assert.NoError(t, validator.Validate(strings.Repeat("ış", 100)))
	assert.ErrorIs(t, validator.Validate(strings.Repeat("ş", 201)), ErrInputTooLarge)
}

func TestHasExcessiveRepetition(t *testing.T) {
	assert.False(t, hasExcessiveRepetition("aaaa", 5))
	assert.False(t, hasExcessiveRepetition("aaaaabaaaaa", 5))
	assert.True(t, hasExcessiveRepetition("baaaaaa", 5))
}
