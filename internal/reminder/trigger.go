// Package reminder turns a medicine's schedule into recurring notification
// registrations and keeps them in step with the stored record.
package reminder

import (
	"fmt"

	"github.com/gmsas95/medreminder/internal/medicine"
)

// TriggerKind is the recurrence shape of a registration
type TriggerKind string

const (
	Daily  TriggerKind = "DAILY"
	Weekly TriggerKind = "WEEKLY"
)

// DefaultPreDoseMinutes is how far ahead of the dose the early reminder fires.
const DefaultPreDoseMinutes = 10

// daysOfWeek is ordered so that index+1 is the registry weekday (Sunday=1).
var daysOfWeek = []string{
	medicine.Sunday,
	medicine.Monday,
	medicine.Tuesday,
	medicine.Wednesday,
	medicine.Thursday,
	medicine.Friday,
	medicine.Saturday,
}

// Trigger is the recurrence a registration fires on. Weekday is only set
// for Weekly triggers and runs 1..7 starting on Sunday.
type Trigger struct {
	Kind    TriggerKind `json:"kind"`
	Weekday int         `json:"weekday,omitempty"`
	Hour    int         `json:"hour"`
	Minute  int         `json:"minute"`
}

func (t Trigger) String() string {
	if t.Kind == Weekly {
		return fmt.Sprintf("WEEKLY(%d) %02d:%02d", t.Weekday, t.Hour, t.Minute)
	}
	return fmt.Sprintf("DAILY %02d:%02d", t.Hour, t.Minute)
}

// CalculateTrigger maps a day tag and clock time to a trigger. "Every Day"
// and unrecognised tags both yield a Daily trigger; the second return is
// false only for the unrecognised case so callers can report it.
// Turkish tags are accepted.
func CalculateTrigger(day string, hour, minute int) (Trigger, bool) {
	canon, ok := medicine.CanonicalDay(day)
	if ok && canon != medicine.EveryDay {
		for i, d := range daysOfWeek {
			if d == canon {
				return Trigger{Kind: Weekly, Weekday: i + 1, Hour: hour, Minute: minute}, true
			}
		}
	}
	return Trigger{Kind: Daily, Hour: hour, Minute: minute}, ok
}

// PreDoseTime subtracts offset minutes from hour:minute, wrapping around
// midnight. The day is not shifted.
func PreDoseTime(hour, minute, offset int) (int, int) {
	const day = 24 * 60
	total := ((hour*60+minute-offset)%day + day) % day
	return total / 60, total % 60
}
