package domain

import "time"

// Classification reasons persisted on SuspiciousIP rows.
const (
	ReasonHighVolume     = "high_volume"
	ReasonSensitivePaths = "sensitive_paths"

	// ReasonMultipleReasons is reserved for manual consolidation of IPs that
	// were flagged by more than one pass. No detector pass assigns it.
	ReasonMultipleReasons = "multiple_reasons"
)

// SuspiciousIP is a detector classification record. At most one row exists per
// (ip_address, reason) pair; repeated detection cycles refresh the existing
// row instead of creating duplicates.
type SuspiciousIP struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	IPAddress string `gorm:"size:45;not null;uniqueIndex:idx_suspicious_ip_reason,priority:1"`
	Reason    string `gorm:"size:32;not null;uniqueIndex:idx_suspicious_ip_reason,priority:2"`

	DetectedAt time.Time `gorm:"index"`
	IsActive   bool      `gorm:"not null;default:true"`

	// Details carries the per-reason evidence payload, e.g. request counts or
	// the list of sensitive paths that were probed.
	Details JSONMap `gorm:"type:jsonb"`
}

func (SuspiciousIP) TableName() string {
	return "suspicious_ips"
}
