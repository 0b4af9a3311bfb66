package database

import (
	"context"
	"errors"

	"watchtower/internal/domain"

	"gorm.io/gorm/clause"
)

// UpsertSuspiciousIP stores a classification keyed on (ip_address, reason).
// A re-detection refreshes the existing row, so overlapping or retried
// detector runs converge instead of duplicating.
func UpsertSuspiciousIP(ctx context.Context, entry *domain.SuspiciousIP) error {
	if DB == nil {
		return errors.New("database not initialised")
	}

	db := DB
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	details, err := entry.Details.Value()
	if err != nil {
		return err
	}

	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "ip_address"}, {Name: "reason"}},
		DoUpdates: clause.Assignments(map[string]any{
			"detected_at": entry.DetectedAt,
			"is_active":   true,
			"details":     details,
		}),
	}).Create(entry).Error
}

// ListSuspiciousIPs returns classification rows, most recent detection first.
func ListSuspiciousIPs(ctx context.Context, activeOnly bool) ([]domain.SuspiciousIP, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}

	db := DB
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	query := db.Model(&domain.SuspiciousIP{}).Order("detected_at DESC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var rows []domain.SuspiciousIP
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetSuspiciousIP fetches the row for one (ip, reason) pair.
func GetSuspiciousIP(ctx context.Context, ip, reason string) (*domain.SuspiciousIP, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}

	db := DB
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	var row domain.SuspiciousIP
	if err := db.Where("ip_address = ? AND reason = ?", ip, reason).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
