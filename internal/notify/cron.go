package notify

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/gmsas95/medreminder/internal/metrics"
	"github.com/gmsas95/medreminder/internal/reminder"
	"github.com/gmsas95/medreminder/internal/store"
)

const deliveryTimeout = 30 * time.Second

// EntryStore persists registry entries across restarts
type EntryStore interface {
	SaveNotification(rec *store.NotificationRecord) error
	ListNotifications() ([]store.NotificationRecord, error)
	DeleteNotification(id string) error
}

type entry struct {
	scheduled reminder.Scheduled
	cronID    cron.EntryID
	created   time.Time
}

// CronRegistry is a notification registry driven by an in-process cron
// engine. Fired entries are handed to the sender.
type CronRegistry struct {
	cron    *cron.Cron
	store   EntryStore
	sender  Sender
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	entries map[string]*entry
	running bool
}

// NewCronRegistry creates a registry. store and sender may be nil; without
// a sender authorization is never granted.
func NewCronRegistry(st EntryStore, sender Sender, loc *time.Location, logger *zap.Logger) *CronRegistry {
	if loc == nil {
		loc = time.Local
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cron.DefaultLogger)),
	)

	return &CronRegistry{
		cron:    c,
		store:   st,
		sender:  sender,
		logger:  logger,
		entries: make(map[string]*entry),
	}
}

// WithMetrics attaches collectors
func (r *CronRegistry) WithMetrics(m *metrics.Metrics) *CronRegistry {
	r.metrics = m
	return r
}

// CronSpec converts a trigger to a five field cron expression.
// Weekly weekdays run 1..7 from Sunday; cron counts 0..6.
func CronSpec(t reminder.Trigger) (string, error) {
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return "", fmt.Errorf("trigger time %02d:%02d out of range", t.Hour, t.Minute)
	}

	switch t.Kind {
	case reminder.Daily:
		return fmt.Sprintf("%d %d * * *", t.Minute, t.Hour), nil
	case reminder.Weekly:
		if t.Weekday < 1 || t.Weekday > 7 {
			return "", fmt.Errorf("weekday %d out of range", t.Weekday)
		}
		return fmt.Sprintf("%d %d * * %d", t.Minute, t.Hour, t.Weekday-1), nil
	default:
		return "", fmt.Errorf("unknown trigger kind %q", t.Kind)
	}
}

// Start runs the cron engine
func (r *CronRegistry) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.cron.Start()
	r.logger.Info("Notification registry started", zap.Int("entries", len(r.entries)))
}

// Stop halts the engine and waits for running deliveries
func (r *CronRegistry) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	<-r.cron.Stop().Done()
	r.logger.Info("Notification registry stopped")
}

// Restore loads persisted entries into the engine. Entries that no longer
// convert to a valid schedule are dropped from the store.
func (r *CronRegistry) Restore(ctx context.Context) (int, error) {
	if r.store == nil {
		return 0, nil
	}

	recs, err := r.store.ListNotifications()
	if err != nil {
		return 0, fmt.Errorf("failed to load notifications: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	restored := 0
	for _, rec := range recs {
		if _, ok := r.entries[rec.ID]; ok {
			continue
		}
		sched := fromRecord(rec)
		cronID, err := r.addLocked(sched)
		if err != nil {
			r.logger.Warn("Dropping unrestorable notification",
				zap.String("notification_id", rec.ID),
				zap.Error(err))
			if derr := r.store.DeleteNotification(rec.ID); derr != nil {
				r.logger.Error("Failed to delete notification", zap.String("notification_id", rec.ID), zap.Error(derr))
			}
			continue
		}
		r.entries[rec.ID] = &entry{scheduled: sched, cronID: cronID, created: rec.CreatedAt}
		restored++
	}

	r.metrics.SetActiveReminders(len(r.entries))
	r.logger.Info("Restored notifications", zap.Int("count", restored))
	return restored, nil
}

func (r *CronRegistry) addLocked(s reminder.Scheduled) (cron.EntryID, error) {
	spec, err := CronSpec(s.Trigger)
	if err != nil {
		return 0, err
	}
	id := s.ID
	return r.cron.AddFunc(spec, func() { r.fire(id) })
}

func (r *CronRegistry) IsSupported() bool {
	return true
}

// RequestAuthorization grants delivery when a sender is configured
func (r *CronRegistry) RequestAuthorization(ctx context.Context) (bool, error) {
	if r.sender == nil {
		return false, nil
	}
	if m, ok := r.sender.(*MultiSender); ok {
		return m.Len() > 0, nil
	}
	return true, nil
}

func (r *CronRegistry) Schedule(ctx context.Context, content reminder.Content, trigger reminder.Trigger) (string, error) {
	sched := reminder.Scheduled{
		ID:      uuid.NewString(),
		Content: content,
		Trigger: trigger,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cronID, err := r.addLocked(sched)
	if err != nil {
		return "", fmt.Errorf("invalid trigger: %w", err)
	}

	now := time.Now()
	if r.store != nil {
		rec := toRecord(sched)
		rec.CreatedAt = now
		if err := r.store.SaveNotification(&rec); err != nil {
			r.cron.Remove(cronID)
			return "", fmt.Errorf("failed to persist notification: %w", err)
		}
	}

	r.entries[sched.ID] = &entry{scheduled: sched, cronID: cronID, created: now}

	r.logger.Debug("Notification scheduled",
		zap.String("notification_id", sched.ID),
		zap.String("medicine_id", content.Data.MedicineID),
		zap.String("trigger", trigger.String()))

	return sched.ID, nil
}

// List returns entries in creation order
func (r *CronRegistry) List(ctx context.Context) ([]reminder.Scheduled, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		all = append(all, e)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].created.Equal(all[j].created) {
			return all[i].cronID < all[j].cronID
		}
		return all[i].created.Before(all[j].created)
	})

	out := make([]reminder.Scheduled, 0, len(all))
	for _, e := range all {
		out = append(out, e.scheduled)
	}
	return out, nil
}

// Cancel removes an entry. Unknown ids are ignored.
func (r *CronRegistry) Cancel(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil
	}

	if r.store != nil {
		if err := r.store.DeleteNotification(id); err != nil {
			return fmt.Errorf("failed to delete notification: %w", err)
		}
	}

	r.cron.Remove(e.cronID)
	delete(r.entries, id)
	return nil
}

// NextRun reports when an entry fires next. Zero until the engine runs.
func (r *CronRegistry) NextRun(id string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return time.Time{}, false
	}
	return r.cron.Entry(e.cronID).Next, true
}

func (r *CronRegistry) fire(id string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	r.mu.Unlock()
	if !ok {
		return
	}

	r.deliver(e.scheduled, time.Now())
}

func (r *CronRegistry) deliver(s reminder.Scheduled, at time.Time) {
	if r.sender == nil {
		return
	}

	n := Notification{
		ID:            s.ID,
		MedicineID:    s.Content.Data.MedicineID,
		Title:         s.Content.Title,
		Body:          s.Content.Body,
		IsCustomTime:  s.Content.Data.IsCustomTime,
		OffsetMinutes: s.Content.Data.OffsetMinutes,
		FiredAt:       at,
	}

	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	if err := r.sender.Send(ctx, n); err != nil {
		r.logger.Error("Reminder delivery failed",
			zap.String("notification_id", s.ID),
			zap.String("medicine_id", n.MedicineID),
			zap.Error(err))
		r.metrics.RecordDelivery(false)
		return
	}
	r.metrics.RecordDelivery(true)
}

func toRecord(s reminder.Scheduled) store.NotificationRecord {
	kind := "daily"
	if s.Trigger.Kind == reminder.Weekly {
		kind = "weekly"
	}
	return store.NotificationRecord{
		ID:            s.ID,
		MedicineID:    s.Content.Data.MedicineID,
		Title:         s.Content.Title,
		Body:          s.Content.Body,
		IsCustomTime:  s.Content.Data.IsCustomTime,
		OffsetMinutes: s.Content.Data.OffsetMinutes,
		Kind:          kind,
		Weekday:       s.Trigger.Weekday,
		Hour:          s.Trigger.Hour,
		Minute:        s.Trigger.Minute,
	}
}

func fromRecord(rec store.NotificationRecord) reminder.Scheduled {
	trigger := reminder.Trigger{Kind: reminder.Daily, Hour: rec.Hour, Minute: rec.Minute}
	if rec.Kind == "weekly" {
		trigger.Kind = reminder.Weekly
		trigger.Weekday = rec.Weekday
	}
	return reminder.Scheduled{
		ID: rec.ID,
		Content: reminder.Content{
			Title: rec.Title,
			Body:  rec.Body,
			Data: reminder.Data{
				MedicineID:    rec.MedicineID,
				IsCustomTime:  rec.IsCustomTime,
				OffsetMinutes: rec.OffsetMinutes,
			},
		},
		Trigger: trigger,
	}
}

var _ reminder.Registry = (*CronRegistry)(nil)
