package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gmsas95/medreminder/internal/medicine"
)

func aspirinMedicine() medicine.Medicine {
	return medicine.Medicine{
		ID:     "med-1",
		Name:   "Aspirin",
		Dosage: "100mg",
		Schedule: medicine.Schedule{
			Days:  []string{"Monday"},
			Times: []string{"08:00", "20:00"},
		},
	}
}

type fakeClient struct {
	err      error
	messages []interface{}
}

func (c *fakeClient) WriteJSON(v interface{}) error {
	if c.err != nil {
		return c.err
	}
	c.messages = append(c.messages, v)
	return nil
}

func TestMultiSender(t *testing.T) {
	a := &recordingSender{name: "a"}
	b := &recordingSender{name: "b", err: errors.New("down")}
	c := &recordingSender{name: "c"}

	m := NewMultiSender(a, nil, b, c)
	assert.Equal(t, 3, m.Len())
	assert.Equal(t, []string{"a", "b", "c"}, m.Names())

	err := m.Send(context.Background(), Notification{ID: "n1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b: down")
	assert.Len(t, a.sent, 1)
	assert.Len(t, c.sent, 1)
}

func TestMultiSender_Add(t *testing.T) {
	m := NewMultiSender()
	assert.Equal(t, 0, m.Len())

	m.Add(nil)
	assert.Equal(t, 0, m.Len())

	late := &recordingSender{name: "late"}
	m.Add(late)
	require.NoError(t, m.Send(context.Background(), Notification{ID: "n1"}))
	assert.Len(t, late.sent, 1)
}

func TestLogSender(t *testing.T) {
	s := NewLogSender(zap.NewNop())
	assert.Equal(t, "log", s.Name())
	assert.NoError(t, s.Send(context.Background(), Notification{ID: "n1"}))
}

func TestHub_Broadcast(t *testing.T) {
	h := NewHub(zap.NewNop())
	good := &fakeClient{}
	bad := &fakeClient{err: errors.New("closed")}

	unregister := h.Register(good)
	h.Register(bad)
	assert.Equal(t, 2, h.Count())

	require.NoError(t, h.Send(context.Background(), Notification{ID: "n1", Title: "t"}))
	assert.Len(t, good.messages, 1)
	assert.Equal(t, 1, h.Count())

	unregister()
	assert.Equal(t, 0, h.Count())
	assert.NoError(t, h.Send(context.Background(), Notification{ID: "n2"}))
}

func TestHub_BroadcastMessageShape(t *testing.T) {
	h := NewHub(zap.NewNop())
	c := &fakeClient{}
	h.Register(c)

	h.Broadcast("language", "language", "tr")

	require.Len(t, c.messages, 1)
	assert.Equal(t, map[string]interface{}{"type": "language", "language": "tr"}, c.messages[0])
}

func TestNotification_Text(t *testing.T) {
	n := Notification{Title: "Medicine Reminder: Aspirin", Body: "It's time to take Aspirin 100mg"}
	assert.Equal(t, "Medicine Reminder: Aspirin\nIt's time to take Aspirin 100mg", n.Text())
}
