package database

import (
	"context"
	"errors"

	"watchtower/internal/domain"

	"gorm.io/gorm/clause"
)

// ErrIPNotBlocked is returned by DeactivateBlockedIP when no row exists for
// the address.
var ErrIPNotBlocked = errors.New("database: ip not found in blocklist")

// IsIPBlocked reports whether an active blocklist row exists for the address.
func IsIPBlocked(ctx context.Context, ip string) (bool, error) {
	if DB == nil {
		return false, errors.New("database not initialised")
	}

	db := DB
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	var count int64
	err := db.Model(&domain.BlockedIP{}).
		Where("ip_address = ? AND is_active = ?", ip, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpsertBlockedIP creates or reactivates the blocklist row for the address,
// overwriting the stored reason. The returned flag reports whether a new row
// was created; it is derived from the insert itself, so concurrent blocks of
// the same address report exactly one creation.
func UpsertBlockedIP(ctx context.Context, ip, reason string) (bool, error) {
	if DB == nil {
		return false, errors.New("database not initialised")
	}

	db := DB
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	record := domain.BlockedIP{
		IPAddress: ip,
		Reason:    reason,
		IsActive:  true,
	}

	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ip_address"}},
		DoNothing: true,
	}).Create(&record)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 1 {
		return true, nil
	}

	// Row already existed: refresh reason and reactivate.
	err := db.Model(&domain.BlockedIP{}).
		Where("ip_address = ?", ip).
		Updates(map[string]any{
			"reason":    reason,
			"is_active": true,
		}).Error
	if err != nil {
		return false, err
	}
	return false, nil
}

// DeactivateBlockedIP performs a logical unblock: every row for the address
// loses its active flag; the rows themselves stay for auditing.
func DeactivateBlockedIP(ctx context.Context, ip string) error {
	if DB == nil {
		return errors.New("database not initialised")
	}

	db := DB
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	result := db.Model(&domain.BlockedIP{}).
		Where("ip_address = ?", ip).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrIPNotBlocked
	}
	return nil
}

// ListBlockedIPs returns blocklist rows, newest first. With activeOnly set,
// logically unblocked rows are filtered out.
func ListBlockedIPs(ctx context.Context, activeOnly bool) ([]domain.BlockedIP, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}

	db := DB
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	query := db.Model(&domain.BlockedIP{}).Order("created_at DESC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var rows []domain.BlockedIP
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// BlockStore adapts the package-level blocklist functions to the interfaces
// consumed by the tracking pipeline.
type BlockStore struct{}

func (BlockStore) IsIPBlocked(ctx context.Context, ip string) (bool, error) {
	return IsIPBlocked(ctx, ip)
}
