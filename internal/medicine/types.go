// Package medicine holds the medicine record, its schedule model and the
// validation rules applied before anything is stored.
package medicine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Day tags as stored. Turkish tags are accepted on input and mapped to these.
const (
	EveryDay  = "Every Day"
	Monday    = "Monday"
	Tuesday   = "Tuesday"
	Wednesday = "Wednesday"
	Thursday  = "Thursday"
	Friday    = "Friday"
	Saturday  = "Saturday"
	Sunday    = "Sunday"
)

// Weekdays lists the individual weekday tags in display order.
var Weekdays = []string{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// PredefinedTimes is the catalog offered by the time picker.
var PredefinedTimes = []string{"08:00", "10:00", "12:00", "15:00", "18:00", "20:00", "22:00"}

var turkishDays = map[string]string{
	"Her Gün":   EveryDay,
	"Pazartesi": Monday,
	"Salı":      Tuesday,
	"Çarşamba":  Wednesday,
	"Perşembe":  Thursday,
	"Cuma":      Friday,
	"Cumartesi": Saturday,
	"Pazar":     Sunday,
}

// Medicine is a tracked medication and its reminder schedule
type Medicine struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Dosage   string   `json:"dosage" yaml:"dosage"`
	Schedule Schedule `json:"schedule" yaml:"schedule"`
}

// Schedule is the recurrence rule: a set of day tags crossed with a set of clock times
type Schedule struct {
	Days  []string `json:"days" yaml:"days"`
	Times []string `json:"times" yaml:"times"`
}

// Input is the payload of the add and edit forms
type Input struct {
	Name   string   `json:"name"`
	Dosage string   `json:"dosage"`
	Days   []string `json:"days"`
	Times  []string `json:"times"`
}

// Clock is a parsed HH:MM value
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ParseClock parses a 24-hour HH:MM string.
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return Clock{}, fmt.Errorf("time %q is not in HH:MM format", s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return Clock{}, fmt.Errorf("time %q has an invalid hour", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return Clock{}, fmt.Errorf("time %q has an invalid minute", s)
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("time %q is out of range", s)
	}

	return Clock{Hour: hour, Minute: minute}, nil
}

// SortTimes returns a copy of times ordered by (hour, minute). Values that do
// not parse keep their relative order after all valid ones.
func SortTimes(times []string) []string {
	sorted := make([]string, len(times))
	copy(sorted, times)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, errA := ParseClock(sorted[i])
		b, errB := ParseClock(sorted[j])
		switch {
		case errA != nil && errB != nil:
			return false
		case errA != nil:
			return false
		case errB != nil:
			return true
		}
		if a.Hour != b.Hour {
			return a.Hour < b.Hour
		}
		return a.Minute < b.Minute
	})

	return sorted
}

// IsCustomTime reports whether t is outside the predefined catalog.
func IsCustomTime(t string) bool {
	for _, p := range PredefinedTimes {
		if p == t {
			return false
		}
	}
	return true
}

// CanonicalDay maps a Turkish or English day tag to its stored English form.
// The second return is false for unrecognised tags.
func CanonicalDay(day string) (string, bool) {
	day = strings.TrimSpace(day)
	if en, ok := turkishDays[day]; ok {
		return en, true
	}
	if day == EveryDay {
		return day, true
	}
	for _, d := range Weekdays {
		if d == day {
			return d, true
		}
	}
	return day, false
}

// TurkishDay returns the Turkish label for a stored day tag.
func TurkishDay(day string) string {
	for tr, en := range turkishDays {
		if en == day {
			return tr
		}
	}
	return day
}

// NormalizeDays maps tags to English, drops duplicates, and applies the
// "Every Day" rule: it is exclusive, and all seven weekdays collapse to it.
func NormalizeDays(days []string) []string {
	seen := make(map[string]bool, len(days))
	out := make([]string, 0, len(days))

	for _, d := range days {
		canon, _ := CanonicalDay(d)
		if canon == EveryDay {
			return []string{EveryDay}
		}
		if seen[canon] {
			continue
		}
		seen[canon] = true
		out = append(out, canon)
	}

	all := true
	for _, w := range Weekdays {
		if !seen[w] {
			all = false
			break
		}
	}
	if all {
		return []string{EveryDay}
	}

	return out
}

// ExpandDays returns the individual weekdays a schedule covers.
func ExpandDays(days []string) []string {
	for _, d := range days {
		if d == EveryDay {
			return append([]string(nil), Weekdays...)
		}
	}
	return append([]string(nil), days...)
}

// CustomTimes returns the schedule's times that are not in the catalog.
func (s Schedule) CustomTimes() []string {
	var custom []string
	for _, t := range s.Times {
		if IsCustomTime(t) {
			custom = append(custom, t)
		}
	}
	return custom
}

// Equal reports field-wise equality, order sensitive.
func (m Medicine) Equal(other Medicine) bool {
	if m.ID != other.ID || m.Name != other.Name || m.Dosage != other.Dosage {
		return false
	}
	return equalStrings(m.Schedule.Days, other.Schedule.Days) &&
		equalStrings(m.Schedule.Times, other.Schedule.Times)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
