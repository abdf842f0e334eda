package model

import "time"

// ScanOutcome is the terminal state a scan request reached.
type ScanOutcome string

const (
	ScanRedirected ScanOutcome = "redirected" // record found, 302 to player
	ScanNotFound   ScanOutcome = "not_found"  // no record for the order id
)

// ScanEvent records one hit on a QR scan link, for analytics only.
type ScanEvent struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	CreatedAt time.Time `json:"created_at"`

	// EventID is generated at scan time and makes consumer writes idempotent.
	EventID   string      `gorm:"size:64;uniqueIndex;not null" json:"event_id"`
	OrderID   string      `gorm:"type:text;not null;index" json:"order_id"`
	PhoneTag  string      `gorm:"size:16;not null" json:"phone_tag"`
	Outcome   ScanOutcome `gorm:"size:16;not null;index" json:"outcome"`
	UserAgent string      `gorm:"size:255" json:"user_agent"`
	ScannedAt time.Time   `gorm:"not null;index" json:"scanned_at"`
}

func (ScanEvent) TableName() string { return "scan_events" }
