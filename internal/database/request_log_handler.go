package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"watchtower/internal/domain"
)

// loopbackAddresses never count toward sensitive-path detection: local health
// probes and smoke tests routinely hit those paths.
var loopbackAddresses = []string{"127.0.0.1", "localhost", "::1"}

// InsertRequestLog appends one immutable request log row.
func InsertRequestLog(ctx context.Context, entry *domain.RequestLog) error {
	if DB == nil {
		return errors.New("database not initialised")
	}

	db := DB
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	return db.Create(entry).Error
}

// IPRequestCount is one row of the per-IP volume aggregation.
type IPRequestCount struct {
	IPAddress    string
	RequestCount int64
}

// CountRequestsByIP groups log rows inside [since, until) by IP and returns
// the groups whose count exceeds threshold, most requests first.
func CountRequestsByIP(ctx context.Context, since, until time.Time, threshold int64) ([]IPRequestCount, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}

	db := DB
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	var counts []IPRequestCount
	err := db.Model(&domain.RequestLog{}).
		Select("ip_address, COUNT(*) AS request_count").
		Where("timestamp >= ? AND timestamp < ?", since, until).
		Group("ip_address").
		Having("COUNT(*) > ?", threshold).
		Order("request_count DESC").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// SensitivePathHit is one row of the per-IP sensitive-path aggregation.
type SensitivePathHit struct {
	IPAddress    string
	RequestCount int64
	UniquePaths  int64
}

// CountSensitivePathHits groups log rows inside [since, until) whose path
// starts with any of the given prefixes, excluding loopback callers. Results
// are ordered by request count descending.
func CountSensitivePathHits(ctx context.Context, since, until time.Time, prefixes []string) ([]SensitivePathHit, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}
	if len(prefixes) == 0 {
		return nil, nil
	}

	db := DB
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	cond, args := pathPrefixCondition(prefixes)

	var hits []SensitivePathHit
	err := db.Model(&domain.RequestLog{}).
		Select("ip_address, COUNT(*) AS request_count, COUNT(DISTINCT path) AS unique_paths").
		Where("timestamp >= ? AND timestamp < ?", since, until).
		Where(cond, args...).
		Where("ip_address NOT IN ?", loopbackAddresses).
		Group("ip_address").
		Order("request_count DESC").
		Scan(&hits).Error
	if err != nil {
		return nil, err
	}
	return hits, nil
}

// ListSensitivePathsForIP returns the distinct sensitive paths one IP accessed
// inside [since, until), for the detection details payload.
func ListSensitivePathsForIP(ctx context.Context, since, until time.Time, ip string, prefixes []string) ([]string, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}
	if len(prefixes) == 0 {
		return nil, nil
	}

	db := DB
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	cond, args := pathPrefixCondition(prefixes)

	var paths []string
	err := db.Model(&domain.RequestLog{}).
		Distinct("path").
		Where("timestamp >= ? AND timestamp < ?", since, until).
		Where("ip_address = ?", ip).
		Where(cond, args...).
		Order("path ASC").
		Pluck("path", &paths).Error
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// RequestLogStore adapts the package-level log functions to the interface
// consumed by the tracking pipeline.
type RequestLogStore struct{}

func (RequestLogStore) InsertRequestLog(ctx context.Context, entry *domain.RequestLog) error {
	return InsertRequestLog(ctx, entry)
}

func pathPrefixCondition(prefixes []string) (string, []any) {
	clauses := make([]string, 0, len(prefixes))
	args := make([]any, 0, len(prefixes))
	for _, prefix := range prefixes {
		clauses = append(clauses, `path LIKE ? ESCAPE '\'`)
		args = append(args, escapeLike(prefix)+"%")
	}
	return "(" + strings.Join(clauses, " OR ") + ")", args
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}
