package store

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"gorm.io/gorm"
)

// ProfileRecord is the persisted user profile. There is one row, id "default".
type ProfileRecord struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Age         float64   `json:"age"`
	Height      float64   `json:"height"`
	Weight      float64   `json:"weight"`
	LastUpdated string    `json:"last_updated"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName overrides the table name for ProfileRecord
func (ProfileRecord) TableName() string {
	return "profiles"
}

// NotificationRecord is a reminder registered with the notification registry
type NotificationRecord struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	MedicineID    string    `gorm:"index" json:"medicine_id"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	IsCustomTime  bool      `json:"is_custom_time"`
	OffsetMinutes int       `json:"offset_minutes"`
	Kind          string    `json:"kind"` // daily, weekly
	Weekday       int       `json:"weekday,omitempty"`
	Hour          int       `json:"hour"`
	Minute        int       `json:"minute"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName overrides the table name for NotificationRecord
func (NotificationRecord) TableName() string {
	return "scheduled_notifications"
}

// BeforeCreate hook for NotificationRecord
func (n *NotificationRecord) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = generateID("ntf")
	}
	return nil
}

// generateID creates a unique ID with second precision and a random suffix
func generateID(prefix string) string {
	return prefix + "_" + time.Now().Format("20060102150405") + "_" + randomString(8)
}

func randomString(n int) string {
	b := make([]byte, (n+1)/2)
	rand.Read(b)
	return hex.EncodeToString(b)[:n]
}
