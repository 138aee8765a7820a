package medicine

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/gmsas95/medreminder/internal/errors"
)

// NewID returns a time ordered identifier.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// New builds a medicine from form input, assigning a fresh ID.
func New(in Input) (Medicine, error) {
	return Build(NewID(), in)
}

// Build builds a medicine with an existing ID. Edits go through here so the
// record is always replaced wholesale.
func Build(id string, in Input) (Medicine, error) {
	m := Medicine{
		ID:     id,
		Name:   strings.TrimSpace(in.Name),
		Dosage: strings.TrimSpace(in.Dosage),
		Schedule: Schedule{
			Days:  NormalizeDays(in.Days),
			Times: dedupeTimes(in.Times),
		},
	}

	if err := Validate(m); err != nil {
		return Medicine{}, err
	}
	return m, nil
}

// Validate checks the fields the forms require.
func Validate(m Medicine) error {
	if strings.TrimSpace(m.ID) == "" {
		return apperrors.Validation(apperrors.ErrInvalidMedicine, "medicine id is required")
	}
	if strings.TrimSpace(m.Name) == "" {
		return apperrors.Validation(apperrors.ErrInvalidMedicine, "please enter a medicine name")
	}
	if len(m.Schedule.Days) == 0 {
		return apperrors.Validation(apperrors.ErrInvalidMedicine, "please select at least one day")
	}
	if len(m.Schedule.Times) == 0 {
		return apperrors.Validation(apperrors.ErrInvalidMedicine, "please select at least one time")
	}

	for _, d := range m.Schedule.Days {
		if _, ok := CanonicalDay(d); !ok {
			return apperrors.Validation(apperrors.ErrInvalidMedicine, fmt.Sprintf("unknown day %q", d))
		}
	}
	for _, t := range m.Schedule.Times {
		if _, err := ParseClock(t); err != nil {
			return apperrors.Validation(apperrors.ErrInvalidTime, err.Error())
		}
	}

	return nil
}

// dedupeTimes normalises "8:5" style input to HH:MM and drops repeats.
// Unparsable values are kept verbatim so Validate can report them.
func dedupeTimes(times []string) []string {
	seen := make(map[string]bool, len(times))
	out := make([]string, 0, len(times))
	for _, t := range times {
		if c, err := ParseClock(t); err == nil {
			t = c.String()
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
