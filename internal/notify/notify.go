// Package notify provides the in-process notification registry and the
// channels fired reminders are delivered through.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Notification is a fired reminder on its way to the user
type Notification struct {
	ID            string    `json:"id"`
	MedicineID    string    `json:"medicineId"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	IsCustomTime  bool      `json:"isCustomTime"`
	OffsetMinutes int       `json:"offsetMinutes"`
	FiredAt       time.Time `json:"firedAt"`
}

// Text renders the notification as a plain chat message
func (n Notification) Text() string {
	return fmt.Sprintf("%s\n%s", n.Title, n.Body)
}

// Sender delivers notifications to one channel
type Sender interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// MultiSender fans a notification out to every sender. One failing channel
// does not stop the others.
type MultiSender struct {
	mu      sync.RWMutex
	senders []Sender
}

// NewMultiSender skips nil senders
func NewMultiSender(senders ...Sender) *MultiSender {
	m := &MultiSender{}
	for _, s := range senders {
		if s != nil {
			m.senders = append(m.senders, s)
		}
	}
	return m
}

func (m *MultiSender) Name() string {
	return "multi"
}

// Add registers another channel. Nil is ignored.
func (m *MultiSender) Add(s Sender) {
	if s == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.senders = append(m.senders, s)
}

// Len returns the number of configured senders
func (m *MultiSender) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.senders)
}

// Names lists the configured channels
func (m *MultiSender) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.senders))
	for _, s := range m.senders {
		names = append(names, s.Name())
	}
	return names
}

func (m *MultiSender) Send(ctx context.Context, n Notification) error {
	m.mu.RLock()
	senders := append([]Sender(nil), m.senders...)
	m.mu.RUnlock()

	var errs []error
	for _, s := range senders {
		if err := s.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// LogSender writes notifications to the service log
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (l *LogSender) Name() string {
	return "log"
}

func (l *LogSender) Send(ctx context.Context, n Notification) error {
	l.logger.Info("Reminder",
		zap.String("notification_id", n.ID),
		zap.String("medicine_id", n.MedicineID),
		zap.String("title", n.Title),
		zap.String("body", n.Body),
		zap.Int("offset", n.OffsetMinutes))
	return nil
}
