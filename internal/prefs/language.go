package prefs

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Language is a UI language code
type Language string

const (
	English Language = "en"
	Turkish Language = "tr"
)

const languageKey = "language"

// ParseLanguage accepts "en" or "tr"
func ParseLanguage(s string) (Language, error) {
	switch Language(s) {
	case English, Turkish:
		return Language(s), nil
	default:
		return "", fmt.Errorf("unsupported language %q", s)
	}
}

// KV is the storage behind a LanguageStore
type KV interface {
	SetKV(key string, value []byte) error
	GetKV(key string) ([]byte, error)
}

// LanguageStore holds the current language. English is the default.
type LanguageStore struct {
	kv     KV
	logger *zap.Logger

	mu   sync.RWMutex
	lang Language
	subs subscribers[Language]
}

// NewLanguageStore loads the saved language. kv may be nil.
func NewLanguageStore(kv KV, logger *zap.Logger) (*LanguageStore, error) {
	s := &LanguageStore{kv: kv, logger: logger, lang: English}
	if kv == nil {
		return s, nil
	}

	data, err := kv.GetKV(languageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load language: %w", err)
	}
	if data != nil {
		if lang, err := ParseLanguage(string(data)); err == nil {
			s.lang = lang
		} else {
			logger.Warn("Ignoring stored language", zap.String("value", string(data)))
		}
	}
	return s, nil
}

func (s *LanguageStore) Get() Language {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lang
}

func (s *LanguageStore) IsTurkish() bool {
	return s.Get() == Turkish
}

// Set changes the language. Setting the current value notifies nobody.
func (s *LanguageStore) Set(lang Language) error {
	if _, err := ParseLanguage(string(lang)); err != nil {
		return err
	}
	if s.Get() == lang {
		return nil
	}

	if s.kv != nil {
		if err := s.kv.SetKV(languageKey, []byte(lang)); err != nil {
			return fmt.Errorf("failed to save language: %w", err)
		}
	}

	s.mu.Lock()
	s.lang = lang
	s.mu.Unlock()

	s.logger.Debug("Language changed", zap.String("language", string(lang)))
	s.subs.publish(lang)
	return nil
}

// Toggle switches between English and Turkish and returns the new value
func (s *LanguageStore) Toggle() (Language, error) {
	next := Turkish
	if s.IsTurkish() {
		next = English
	}
	if err := s.Set(next); err != nil {
		return s.Get(), err
	}
	return next, nil
}

// Subscribe registers fn for changes. Call the returned func to stop.
func (s *LanguageStore) Subscribe(fn func(Language)) func() {
	return s.subs.add(fn)
}
