package reminder

import "context"

// Data is the correlation payload attached to every registration.
// MedicineID is how cancellation finds a medicine's reminders.
type Data struct {
	MedicineID    string `json:"medicineId"`
	IsCustomTime  bool   `json:"isCustomTime"`
	OffsetMinutes int    `json:"offsetMinutes"`
}

// Content is what the user sees when a reminder fires
type Content struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Data  Data   `json:"data"`
}

// Scheduled is a registration as reported by the registry
type Scheduled struct {
	ID      string  `json:"id"`
	Content Content `json:"content"`
	Trigger Trigger `json:"trigger"`
}

// Registry is the platform facility that owns recurring notifications.
type Registry interface {
	// IsSupported reports whether notifications work at all here.
	IsSupported() bool
	RequestAuthorization(ctx context.Context) (bool, error)
	Schedule(ctx context.Context, content Content, trigger Trigger) (string, error)
	List(ctx context.Context) ([]Scheduled, error)
	Cancel(ctx context.Context, id string) error
}
