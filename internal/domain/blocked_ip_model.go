package domain

import "time"

// BlockedIP is the authoritative blocklist entry for one address. Unblocking
// flips IsActive instead of deleting the row so the audit trail survives.
type BlockedIP struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	IPAddress string    `gorm:"size:45;uniqueIndex;not null"`
	Reason    string    `gorm:"type:text"`
	IsActive  bool      `gorm:"not null;default:true;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (BlockedIP) TableName() string {
	return "blocked_ips"
}
