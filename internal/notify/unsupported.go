package notify

import (
	"context"

	"github.com/gmsas95/medreminder/internal/reminder"
)

// Unsupported is the registry used where notifications are switched off.
// Every operation is a no-op.
type Unsupported struct{}

func (Unsupported) IsSupported() bool { return false }

func (Unsupported) RequestAuthorization(ctx context.Context) (bool, error) { return false, nil }

func (Unsupported) Schedule(ctx context.Context, c reminder.Content, t reminder.Trigger) (string, error) {
	return "", nil
}

func (Unsupported) List(ctx context.Context) ([]reminder.Scheduled, error) { return nil, nil }

func (Unsupported) Cancel(ctx context.Context, id string) error { return nil }

var _ reminder.Registry = Unsupported{}
