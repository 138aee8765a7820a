package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/gmsas95/medreminder/internal/errors"
	"github.com/gmsas95/medreminder/internal/medicine"
	"github.com/gmsas95/medreminder/internal/metrics"
)

// ItemResult is the outcome of one registration attempt
type ItemResult struct {
	Day            string  `json:"day"`
	Time           string  `json:"time"`
	OffsetMinutes  int     `json:"offsetMinutes"`
	Trigger        Trigger `json:"trigger"`
	NotificationID string  `json:"notificationId,omitempty"`
	Err            error   `json:"-"`
	Error          string  `json:"error,omitempty"`
}

// BatchResult reports what ScheduleReminders did for one medicine.
type BatchResult struct {
	MedicineID  string       `json:"medicineId"`
	Unsupported bool         `json:"unsupported,omitempty"`
	Cancelled   int          `json:"cancelled"`
	CancelErr   error        `json:"-"`
	Items       []ItemResult `json:"items"`
}

// Scheduled counts items that were registered.
func (b BatchResult) Scheduled() int {
	n := 0
	for _, it := range b.Items {
		if it.Err == nil {
			n++
		}
	}
	return n
}

// Failed counts items the registry did not accept.
func (b BatchResult) Failed() int {
	return len(b.Items) - b.Scheduled()
}

// Err joins the cancel error and every item error.
func (b BatchResult) Err() error {
	errs := []error{b.CancelErr}
	for _, it := range b.Items {
		errs = append(errs, it.Err)
	}
	return errors.Join(errs...)
}

// Scheduler materialises medicine schedules into registry entries
type Scheduler struct {
	registry    Registry
	logger      *zap.Logger
	metrics     *metrics.Metrics
	preDose     int
	concurrency int
}

// NewScheduler creates a scheduler over the given registry
func NewScheduler(registry Registry, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		registry:    registry,
		logger:      logger,
		preDose:     DefaultPreDoseMinutes,
		concurrency: 1,
	}
}

// WithPreDoseMinutes sets the lead time of the early reminder
func (s *Scheduler) WithPreDoseMinutes(minutes int) *Scheduler {
	if minutes > 0 {
		s.preDose = minutes
	}
	return s
}

// WithConcurrency bounds parallel registrations. 1 keeps them sequential.
func (s *Scheduler) WithConcurrency(n int) *Scheduler {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// WithMetrics attaches collectors
func (s *Scheduler) WithMetrics(m *metrics.Metrics) *Scheduler {
	s.metrics = m
	return s
}

// PreDoseMinutes returns the configured lead time
func (s *Scheduler) PreDoseMinutes() int {
	return s.preDose
}

type job struct {
	index   int
	day     string
	time    string
	offset  int
	content Content
}

// ScheduleReminders replaces every registration for med with a fresh set:
// for each day and time, one reminder at the dose time and one ahead of it.
// Existing registrations are cancelled before any new one is created.
// A failed item does not stop the others.
func (s *Scheduler) ScheduleReminders(ctx context.Context, med medicine.Medicine) BatchResult {
	result := BatchResult{MedicineID: med.ID}

	if !s.registry.IsSupported() {
		s.logger.Debug("Notifications not supported, skipping schedule",
			zap.String("medicine_id", med.ID))
		result.Unsupported = true
		return result
	}

	cancelled, err := s.CancelReminders(ctx, med.ID)
	result.Cancelled = cancelled
	if err != nil {
		// Scheduling on top of entries we could not remove would duplicate them.
		result.CancelErr = err
		s.logger.Error("Failed to clear existing reminders, not rescheduling",
			zap.String("medicine_id", med.ID),
			zap.Error(err))
		return result
	}

	jobs := s.plan(med)
	result.Items = make([]ItemResult, len(jobs))

	if s.concurrency <= 1 {
		for _, j := range jobs {
			result.Items[j.index] = s.register(ctx, med, j)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.concurrency)
		for _, j := range jobs {
			j := j
			g.Go(func() error {
				result.Items[j.index] = s.register(gctx, med, j)
				return nil
			})
		}
		_ = g.Wait()
	}

	s.logger.Info("Scheduled medicine reminders",
		zap.String("medicine_id", med.ID),
		zap.String("name", med.Name),
		zap.Int("cancelled", result.Cancelled),
		zap.Int("scheduled", result.Scheduled()),
		zap.Int("failed", result.Failed()))

	return result
}

// plan enumerates days x sorted times, at-time reminder first.
func (s *Scheduler) plan(med medicine.Medicine) []job {
	times := medicine.SortTimes(med.Schedule.Times)
	jobs := make([]job, 0, len(med.Schedule.Days)*len(times)*2)

	for _, day := range med.Schedule.Days {
		for _, t := range times {
			for _, offset := range []int{0, s.preDose} {
				jobs = append(jobs, job{
					index:   len(jobs),
					day:     day,
					time:    t,
					offset:  offset,
					content: s.content(med, t, offset),
				})
			}
		}
	}
	return jobs
}

func (s *Scheduler) content(med medicine.Medicine, t string, offset int) Content {
	data := Data{
		MedicineID:    med.ID,
		IsCustomTime:  medicine.IsCustomTime(t),
		OffsetMinutes: offset,
	}
	dose := strings.TrimSpace(med.Name + " " + med.Dosage)

	if offset == 0 {
		return Content{
			Title: "Medicine Reminder: " + med.Name,
			Body:  "It's time to take " + dose,
			Data:  data,
		}
	}
	return Content{
		Title: "Upcoming Medicine: " + med.Name,
		Body:  fmt.Sprintf("Remember to take %s in %d minutes", dose, offset),
		Data:  data,
	}
}

func (s *Scheduler) register(ctx context.Context, med medicine.Medicine, j job) ItemResult {
	item := ItemResult{Day: j.day, Time: j.time, OffsetMinutes: j.offset}

	clock, err := medicine.ParseClock(j.time)
	if err != nil {
		s.logger.Warn("Invalid time format, skipping reminder",
			zap.String("medicine_id", med.ID),
			zap.String("time", j.time),
			zap.Error(err))
		return s.fail(item, apperrors.Wrap(err, apperrors.ErrInvalidTime.Code, "invalid time "+j.time))
	}

	hour, minute := clock.Hour, clock.Minute
	if j.offset > 0 {
		hour, minute = PreDoseTime(hour, minute, j.offset)
	}

	trigger, ok := CalculateTrigger(j.day, hour, minute)
	if !ok {
		s.logger.Warn("Unrecognised day, defaulting to daily",
			zap.String("medicine_id", med.ID),
			zap.String("day", j.day))
	}
	item.Trigger = trigger

	id, err := s.registry.Schedule(ctx, j.content, trigger)
	if err != nil {
		s.logger.Error("Failed to schedule reminder",
			zap.String("medicine_id", med.ID),
			zap.String("day", j.day),
			zap.String("time", j.time),
			zap.Int("offset", j.offset),
			zap.Error(err))
		return s.fail(item, apperrors.Wrap(err, apperrors.ErrRegistryFailure.Code, "schedule failed"))
	}

	item.NotificationID = id
	s.metrics.RecordReminderScheduled(kindLabel(j.offset))
	return item
}

func (s *Scheduler) fail(item ItemResult, err error) ItemResult {
	item.Err = err
	item.Error = err.Error()
	s.metrics.RecordReminderFailure("schedule")
	return item
}

func kindLabel(offset int) string {
	if offset == 0 {
		return "at_time"
	}
	return "pre_dose"
}

// CancelReminders removes every registration correlated with medicineID and
// returns how many were cancelled. Individual cancel failures do not stop
// the rest; they are joined into the returned error.
func (s *Scheduler) CancelReminders(ctx context.Context, medicineID string) (int, error) {
	if !s.registry.IsSupported() {
		return 0, nil
	}

	entries, err := s.registry.List(ctx)
	if err != nil {
		s.metrics.RecordReminderFailure("cancel")
		return 0, apperrors.Wrap(err, apperrors.ErrRegistryFailure.Code, "list scheduled notifications")
	}

	var errs []error
	cancelled := 0
	for _, e := range entries {
		if e.Content.Data.MedicineID != medicineID {
			continue
		}
		if err := s.registry.Cancel(ctx, e.ID); err != nil {
			s.logger.Error("Failed to cancel reminder",
				zap.String("medicine_id", medicineID),
				zap.String("notification_id", e.ID),
				zap.Error(err))
			s.metrics.RecordReminderFailure("cancel")
			errs = append(errs, fmt.Errorf("cancel %s: %w", e.ID, err))
			continue
		}
		cancelled++
		s.metrics.RecordReminderCancelled()
	}

	if cancelled > 0 {
		s.logger.Debug("Cancelled medicine reminders",
			zap.String("medicine_id", medicineID),
			zap.Int("count", cancelled))
	}

	if len(errs) > 0 {
		return cancelled, apperrors.Wrap(errors.Join(errs...), apperrors.ErrRegistryFailure.Code, "cancel reminders")
	}
	return cancelled, nil
}

// RequestPermissions asks the registry for delivery authorization. It never
// fails outward; any problem reads as "not granted".
func (s *Scheduler) RequestPermissions(ctx context.Context) bool {
	if !s.registry.IsSupported() {
		return false
	}

	granted, err := s.registry.RequestAuthorization(ctx)
	if err != nil {
		s.logger.Warn("Notification authorization failed", zap.Error(err))
		return false
	}
	if !granted {
		s.logger.Info("Notification permission not granted")
	}
	return granted
}

// RescheduleAll rebuilds registrations for every medicine, in order.
func (s *Scheduler) RescheduleAll(ctx context.Context, meds []medicine.Medicine) []BatchResult {
	results := make([]BatchResult, 0, len(meds))
	for _, med := range meds {
		if ctx.Err() != nil {
			break
		}
		results = append(results, s.ScheduleReminders(ctx, med))
	}
	return results
}
