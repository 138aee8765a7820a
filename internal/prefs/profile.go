// Package prefs holds the user profile and language preference as injected
// stores that notify subscribers on change.
package prefs

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/gmsas95/medreminder/internal/errors"
	"github.com/gmsas95/medreminder/internal/leaflet"
	"github.com/gmsas95/medreminder/internal/store"
)

const profileID = "default"

// Profile personalises leaflet summaries
type Profile struct {
	Age         float64 `json:"age" yaml:"age"`
	Height      float64 `json:"height" yaml:"height"`
	Weight      float64 `json:"weight" yaml:"weight"`
	LastUpdated string  `json:"lastUpdated" yaml:"last_updated"`
}

// Leaflet converts the profile for prompt building. Nil stays nil.
func (p *Profile) Leaflet() *leaflet.Profile {
	if p == nil {
		return nil
	}
	return &leaflet.Profile{Age: p.Age, Height: p.Height, Weight: p.Weight}
}

// ParseProfile validates the profile form. Every field is required and must
// be a positive number.
func ParseProfile(age, height, weight string) (Profile, error) {
	fields := []struct {
		name  string
		value string
	}{
		{"age", age},
		{"height", height},
		{"weight", weight},
	}

	values := make([]float64, len(fields))
	for i, f := range fields {
		v := strings.TrimSpace(f.value)
		if v == "" {
			return Profile{}, apperrors.Validation(apperrors.ErrInvalidProfile, "please fill in all fields")
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Profile{}, apperrors.Validation(apperrors.ErrInvalidProfile, "please enter valid numbers")
		}
		if n <= 0 {
			return Profile{}, apperrors.Validation(apperrors.ErrInvalidProfile, fmt.Sprintf("%s must be positive", f.name))
		}
		values[i] = n
	}

	return Profile{
		Age:         values[0],
		Height:      values[1],
		Weight:      values[2],
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// ProfilePersister is the storage behind a ProfileStore
type ProfilePersister interface {
	SaveProfile(rec *store.ProfileRecord) error
	LoadProfile() (*store.ProfileRecord, error)
	DeleteProfile() error
}

// ProfileStore holds the single user profile
type ProfileStore struct {
	persist ProfilePersister
	logger  *zap.Logger

	mu      sync.RWMutex
	profile *Profile
	subs    subscribers[*Profile]
}

// NewProfileStore creates a store and loads any saved profile. persist may
// be nil for an in-memory store.
func NewProfileStore(persist ProfilePersister, logger *zap.Logger) (*ProfileStore, error) {
	s := &ProfileStore{persist: persist, logger: logger}

	if persist == nil {
		return s, nil
	}

	rec, err := persist.LoadProfile()
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if rec != nil {
		s.profile = &Profile{
			Age:         rec.Age,
			Height:      rec.Height,
			Weight:      rec.Weight,
			LastUpdated: rec.LastUpdated,
		}
	}
	return s, nil
}

// Get returns a copy of the profile, or nil when none is saved
func (s *ProfileStore) Get() *Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil
	}
	p := *s.profile
	return &p
}

// Has reports whether a profile is saved
func (s *ProfileStore) Has() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile != nil
}

// Set replaces the profile and notifies subscribers
func (s *ProfileStore) Set(p Profile) error {
	if p.LastUpdated == "" {
		p.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	}

	if s.persist != nil {
		err := s.persist.SaveProfile(&store.ProfileRecord{
			ID:          profileID,
			Age:         p.Age,
			Height:      p.Height,
			Weight:      p.Weight,
			LastUpdated: p.LastUpdated,
		})
		if err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}
	}

	s.mu.Lock()
	s.profile = &p
	s.mu.Unlock()

	s.logger.Debug("Profile updated", zap.String("last_updated", p.LastUpdated))
	s.subs.publish(s.Get())
	return nil
}

// Clear removes the profile and notifies subscribers with nil
func (s *ProfileStore) Clear() error {
	if s.persist != nil {
		if err := s.persist.DeleteProfile(); err != nil {
			return fmt.Errorf("failed to delete profile: %w", err)
		}
	}

	s.mu.Lock()
	s.profile = nil
	s.mu.Unlock()

	s.subs.publish(nil)
	return nil
}

// Subscribe registers fn for changes. Call the returned func to stop.
func (s *ProfileStore) Subscribe(fn func(*Profile)) func() {
	return s.subs.add(fn)
}
