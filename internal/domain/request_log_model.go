package domain

import "time"

// RequestLog is one row per tracked inbound request. Rows are append-only:
// nothing in the pipeline updates or deletes them, retention is an external
// concern.
type RequestLog struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	// IPAddress holds the validated client address (IPv4 or IPv6).
	IPAddress string `gorm:"size:45;not null;index"`

	Timestamp time.Time `gorm:"autoCreateTime;index"`

	Path      string `gorm:"size:255;not null;index"`
	Method    string `gorm:"size:10;not null;default:GET"`
	UserAgent string `gorm:"size:500"`

	// Country and City stay "Unknown" when enrichment could not resolve them.
	Country string `gorm:"size:255;not null;default:Unknown"`
	City    string `gorm:"size:255;not null;default:Unknown"`
}

func (RequestLog) TableName() string {
	return "request_logs"
}
