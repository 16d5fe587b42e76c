// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides aggregate/statistics queries used for
// conditional responses (ETag generation) and the analytics summary. Each
// function is context-aware and safe to call from services or handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-ticket-backend/internal/domain"
)

// TicketsStats returns aggregate metadata for the tickets table: the total
// number of rows and the maximum UpdatedAt timestamp among those rows.
// When there are no tickets, the returned count is 0 and maxUpdatedAt is nil.
func TicketsStats(ctx context.Context, db *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Ticket{})

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// groupableColumns whitelists columns accepted by CountTicketsGrouped so the
// column name is never interpolated from caller input.
var groupableColumns = map[string]struct{}{
	"status":   {},
	"priority": {},
	"category": {},
	"assignee": {},
}

// CountTicketsGrouped returns row counts keyed by the distinct values of the
// given column. Unknown columns yield an empty map rather than raw SQL.
func CountTicketsGrouped(ctx context.Context, db *gorm.DB, column string) (map[string]int64, error) {
	if _, ok := groupableColumns[column]; !ok {
		return map[string]int64{}, nil
	}
	var rows []struct {
		Value string
		Total int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Select(column + " AS value, COUNT(*) AS total").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Value] = r.Total
	}
	return out, nil
}

// OpenClosedCounts returns the number of tickets still in flight (open,
// in_progress, pending) and the number finished (resolved, closed).
func OpenClosedCounts(ctx context.Context, db *gorm.DB) (open, closed int64, err error) {
	terminal := []domain.Status{domain.StatusResolved, domain.StatusClosed}

	if err = db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Where("status NOT IN ?", terminal).
		Count(&open).Error; err != nil {
		return 0, 0, err
	}
	err = db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Where("status IN ?", terminal).
		Count(&closed).Error
	return open, closed, err
}

// AvgResolutionHours returns the mean time from creation to resolution over
// all resolved tickets, in hours. ok is false when no ticket has a
// resolution timestamp.
func AvgResolutionHours(ctx context.Context, db *gorm.DB) (hours float64, ok bool, err error) {
	var rows []struct {
		CreatedAt  time.Time
		ResolvedAt *time.Time
	}
	err = db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Select("created_at, resolved_at").
		Where("resolved_at IS NOT NULL").
		Scan(&rows).Error
	if err != nil {
		return 0, false, err
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	var total float64
	for _, r := range rows {
		total += r.ResolvedAt.Sub(r.CreatedAt).Hours()
	}
	return total / float64(len(rows)), true, nil
}

// ActivityEntry is one row of the recent-activity feed.
type ActivityEntry struct {
	ID        int64         `json:"id"`
	Title     string        `json:"title"`
	Status    domain.Status `json:"status"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// RecentActivity returns the most recently updated tickets, newest first.
func RecentActivity(ctx context.Context, db *gorm.DB, limit int) ([]ActivityEntry, error) {
	if limit < 1 {
		return nil, nil
	}
	var out []ActivityEntry
	err := db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Select("id, title, status, updated_at").
		Order("updated_at DESC").
		Limit(limit).
		Scan(&out).Error
	return out, err
}
