package security

import (
	"errors"
	"unicode"
	"unicode/utf8"
)

var (
	ErrInputTooLarge       = errors.New("input exceeds maximum size")
	ErrNullByteDetected    = errors.New("null byte detected in input")
	ErrControlCharacter    = errors.New("control character in input")
	ErrHighWhitespaceRatio = errors.New("suspicious whitespace ratio")
	ErrRepetitiveContent   = errors.New("excessive repetition detected")
)

// InputValidator checks short free text form fields
type InputValidator struct {
	MaxRunes           int
	MaxWhitespaceRatio float64
	MaxRepetition      int
}

// NewInputValidator returns limits sized for a medicine name or dosage
func NewInputValidator() *InputValidator {
	return &InputValidator{
		MaxRunes:           200,
		MaxWhitespaceRatio: 0.5,
		MaxRepetition:      20,
	}
}

func (v *InputValidator) Validate(input string) error {
	if v.MaxRunes > 0 && utf8.RuneCountInString(input) > v.MaxRunes {
		return ErrInputTooLarge
	}

	whitespace := 0
	total := 0
	for _, r := range input {
		total++
		switch {
		case r == 0:
			return ErrNullByteDetected
		case r == ' ':
			whitespace++
		case unicode.IsSpace(r):
			whitespace++
			if r == '\n' || r == '\r' {
				return ErrControlCharacter
			}
		case unicode.IsControl(r):
			return ErrControlCharacter
		}
	}

	if v.MaxWhitespaceRatio > 0 && total > 4 {
		if float64(whitespace)/float64(total) > v.MaxWhitespaceRatio {
			return ErrHighWhitespaceRatio
		}
	}

	if v.MaxRepetition > 0 && hasExcessiveRepetition(input, v.MaxRepetition) {
		return ErrRepetitiveContent
	}

	return nil
}

func hasExcessiveRepetition(input string, maxLen int) bool {
	if utf8.RuneCountInString(input) <= maxLen {
		return false
	}

	consecutive := 0
	var prev rune = -1
	for _, r := range input {
		if r == prev {
			consecutive++
			if consecutive > maxLen {
				return true
			}
		} else {
			consecutive = 1
			prev = r
		}
	}

	return false
}
