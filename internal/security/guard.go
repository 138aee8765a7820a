// Package security screens user text before it reaches the generative
// endpoint and masks credentials in anything that may be logged.
package security

import (
	"fmt"
	"strings"
)

type Guard struct {
	input     *InputValidator
	injection *PromptInjectionDetector
	secrets   *SecretScanner
}

func NewGuard() *Guard {
	return &Guard{
		input:     NewInputValidator(),
		injection: NewPromptInjectionDetector(),
		secrets:   NewSecretScanner(),
	}
}

// CheckLeafletQuery validates the name and dosage that are embedded in
// the leaflet prompt. The error names the offending field.
func (g *Guard) CheckLeafletQuery(name, dosage string) error {
	fields := []struct {
		label string
		value string
	}{
		{"name", name},
		{"dosage", dosage},
	}

	for _, f := range fields {
		v := strings.TrimSpace(f.value)
		if v == "" {
			continue
		}
		if err := g.input.Validate(v); err != nil {
			return fmt.Errorf("%s: %w", f.label, err)
		}
		if err := g.injection.Validate(v); err != nil {
			return fmt.Errorf("%s: %w", f.label, err)
		}
	}
	return nil
}

func (g *Guard) Redact(s string) string {
	return g.secrets.Redact(s)
}

// redactedError masks credentials in the message and keeps the chain
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

// RedactError wraps err so its message carries no credentials. errors.Is
// and errors.As still see the original.
func (g *Guard) RedactError(err error) error {
	if err == nil {
		return nil
	}
	return &redactedError{msg: g.secrets.Redact(err.Error()), err: err}
}

var DefaultGuard = NewGuard()

func CheckLeafletQuery(name, dosage string) error {
	return DefaultGuard.CheckLeafletQuery(name, dosage)
}

func Redact(s string) string {
	return DefaultGuard.Redact(s)
}

func RedactError(err error) error {
	return DefaultGuard.RedactError(err)
}
