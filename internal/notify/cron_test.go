package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gmsas95/medreminder/internal/config"
	"github.com/gmsas95/medreminder/internal/reminder"
	"github.com/gmsas95/medreminder/internal/store"
)

type recordingSender struct {
	mu   sync.Mutex
	name string
	err  error
	sent []Notification
}

func (s *recordingSender) Name() string {
	if s.name == "" {
		return "recording"
	}
	return s.name
}

func (s *recordingSender) Send(ctx context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	return s.err
}

func setupStore(t *testing.T) *store.Store {
	cfg := &config.Config{}
	cfg.Storage.InMemory = true
	st, err := store.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func testContent(medicineID string) reminder.Content {
	return reminder.Content{
		Title: "Medicine Reminder: Aspirin",
		Body:  "It's time to take Aspirin 100mg",
		Data:  reminder.Data{MedicineID: medicineID, IsCustomTime: false},
	}
}

func TestCronSpec(t *testing.T) {
	tests := []struct {
		trigger reminder.Trigger
		want    string
	}{
		{reminder.Trigger{Kind: reminder.Daily, Hour: 8, Minute: 0}, "0 8 * * *"},
		{reminder.Trigger{Kind: reminder.Daily, Hour: 23, Minute: 55}, "55 23 * * *"},
		{reminder.Trigger{Kind: reminder.Weekly, Weekday: 1, Hour: 9, Minute: 30}, "30 9 * * 0"},
		{reminder.Trigger{Kind: reminder.Weekly, Weekday: 7, Hour: 20, Minute: 0}, "0 20 * * 6"},
	}
	for _, tt := range tests {
		got, err := CronSpec(tt.trigger)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := CronSpec(reminder.Trigger{Kind: reminder.Weekly, Weekday: 0, Hour: 8})
	assert.Error(t, err)
	_, err = CronSpec(reminder.Trigger{Kind: reminder.Daily, Hour: 24})
	assert.Error(t, err)
	_, err = CronSpec(reminder.Trigger{Kind: "MONTHLY"})
	assert.Error(t, err)
}

func TestCronRegistry_ScheduleListCancel(t *testing.T) {
	st := setupStore(t)
	reg := NewCronRegistry(st, &recordingSender{}, time.UTC, zap.NewNop())
	ctx := context.Background()

	id1, err := reg.Schedule(ctx, testContent("m1"), reminder.Trigger{Kind: reminder.Daily, Hour: 8})
	require.NoError(t, err)
	id2, err := reg.Schedule(ctx, testContent("m2"), reminder.Trigger{Kind: reminder.Weekly, Weekday: 2, Hour: 7, Minute: 50})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	list, err := reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, id1, list[0].ID)
	assert.Equal(t, "m2", list[1].Content.Data.MedicineID)

	recs, err := st.ListNotifications()
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	require.NoError(t, reg.Cancel(ctx, id1))
	require.NoError(t, reg.Cancel(ctx, "unknown"))

	list, _ = reg.List(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, id2, list[0].ID)

	recs, _ = st.ListNotifications()
	require.Len(t, recs, 1)
	assert.Equal(t, "weekly", recs[0].Kind)
	assert.Equal(t, 2, recs[0].Weekday)
}

func TestCronRegistry_RejectsInvalidTrigger(t *testing.T) {
	reg := NewCronRegistry(nil, nil, time.UTC, zap.NewNop())

	_, err := reg.Schedule(context.Background(), testContent("m1"), reminder.Trigger{Kind: reminder.Weekly, Weekday: 9})
	assert.Error(t, err)

	list, _ := reg.List(context.Background())
	assert.Empty(t, list)
}

func TestCronRegistry_Restore(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	first := NewCronRegistry(st, nil, time.UTC, zap.NewNop())
	id, err := first.Schedule(ctx, testContent("m1"), reminder.Trigger{Kind: reminder.Weekly, Weekday: 4, Hour: 20})
	require.NoError(t, err)

	require.NoError(t, st.SaveNotification(&store.NotificationRecord{
		ID: "broken", MedicineID: "m1", Kind: "weekly", Weekday: 12, Hour: 8, CreatedAt: time.Now(),
	}))

	second := NewCronRegistry(st, nil, time.UTC, zap.NewNop())
	n, err := second.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, _ := second.List(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, reminder.Trigger{Kind: reminder.Weekly, Weekday: 4, Hour: 20}, list[0].Trigger)
	assert.Equal(t, "Medicine Reminder: Aspirin", list[0].Content.Title)

	recs, _ := st.ListNotifications()
	assert.Len(t, recs, 1)
}

func TestCronRegistry_NextRun(t *testing.T) {
	reg := NewCronRegistry(nil, nil, time.UTC, zap.NewNop())
	id, err := reg.Schedule(context.Background(), testContent("m1"), reminder.Trigger{Kind: reminder.Daily, Hour: 6})
	require.NoError(t, err)

	reg.Start()
	defer reg.Stop()

	next, ok := reg.NextRun(id)
	require.True(t, ok)
	assert.False(t, next.IsZero())
	assert.Equal(t, 6, next.In(time.UTC).Hour())

	_, ok = reg.NextRun("missing")
	assert.False(t, ok)
}

func TestCronRegistry_Deliver(t *testing.T) {
	sender := &recordingSender{}
	reg := NewCronRegistry(nil, sender, time.UTC, zap.NewNop())

	id, err := reg.Schedule(context.Background(), testContent("m1"), reminder.Trigger{Kind: reminder.Daily, Hour: 8})
	require.NoError(t, err)

	reg.fire(id)
	reg.fire("missing")

	require.Len(t, sender.sent, 1)
	assert.Equal(t, id, sender.sent[0].ID)
	assert.Equal(t, "m1", sender.sent[0].MedicineID)
	assert.Equal(t, "It's time to take Aspirin 100mg", sender.sent[0].Body)
}

func TestCronRegistry_DeliverFailureLogged(t *testing.T) {
	sender := &recordingSender{err: errors.New("offline")}
	reg := NewCronRegistry(nil, sender, time.UTC, zap.NewNop())

	id, _ := reg.Schedule(context.Background(), testContent("m1"), reminder.Trigger{Kind: reminder.Daily, Hour: 8})
	assert.NotPanics(t, func() { reg.fire(id) })
	assert.Len(t, sender.sent, 1)
}

func TestCronRegistry_RequestAuthorization(t *testing.T) {
	ctx := context.Background()

	ok, err := NewCronRegistry(nil, nil, nil, zap.NewNop()).RequestAuthorization(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, _ = NewCronRegistry(nil, NewMultiSender(), nil, zap.NewNop()).RequestAuthorization(ctx)
	assert.False(t, ok)

	ok, _ = NewCronRegistry(nil, NewMultiSender(NewLogSender(zap.NewNop())), nil, zap.NewNop()).RequestAuthorization(ctx)
	assert.True(t, ok)
}

func TestCronRegistry_WithScheduler(t *testing.T) {
	st := setupStore(t)
	reg := NewCronRegistry(st, NewLogSender(zap.NewNop()), time.UTC, zap.NewNop())
	s := reminder.NewScheduler(reg, zap.NewNop())
	ctx := context.Background()

	assert.True(t, s.RequestPermissions(ctx))

	med := aspirinMedicine()
	result := s.ScheduleReminders(ctx, med)
	require.NoError(t, result.Err())
	assert.Equal(t, 4, result.Scheduled())

	result = s.ScheduleReminders(ctx, med)
	assert.Equal(t, 4, result.Cancelled)

	list, _ := reg.List(ctx)
	assert.Len(t, list, 4)
	recs, _ := st.ListNotifications()
	assert.Len(t, recs, 4)

	n, err := s.CancelReminders(ctx, med.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	recs, _ = st.ListNotifications()
	assert.Empty(t, recs)
}

func TestUnsupported(t *testing.T) {
	var reg reminder.Registry = Unsupported{}
	s := reminder.NewScheduler(reg, zap.NewNop())

	result := s.ScheduleReminders(context.Background(), aspirinMedicine())
	assert.True(t, result.Unsupported)
	assert.False(t, s.RequestPermissions(context.Background()))
}
