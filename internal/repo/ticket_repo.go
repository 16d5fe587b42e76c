// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Ticket model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a ticket is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// This repository is designed to be wrapped by a higher-level service
// (see services.TicketService) which enforces business rules, keeps the
// search index in sync, and shapes responses.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-ticket-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// TicketFilter narrows list queries. Zero-valued fields are ignored; slice
// fields translate to IN clauses and scalar fields to exact matches.
type TicketFilter struct {
	Statuses   []domain.Status
	Priorities []domain.Priority
	Categories []domain.Category
	Assignee   string
	Reporter   string
}

func (f TicketFilter) apply(q *gorm.DB) *gorm.DB {
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if len(f.Priorities) > 0 {
		q = q.Where("priority IN ?", f.Priorities)
	}
	if len(f.Categories) > 0 {
		q = q.Where("category IN ?", f.Categories)
	}
	if f.Assignee != "" {
		q = q.Where("assignee = ?", f.Assignee)
	}
	if f.Reporter != "" {
		q = q.Where("reporter = ?", f.Reporter)
	}
	return q
}

// CreateTicket inserts a new ticket row. CreatedAt/UpdatedAt are set to UTC
// explicitly so the values round-trip unchanged through SQLite.
func CreateTicket(ctx context.Context, db *gorm.DB, t *domain.Ticket) error {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	return db.WithContext(ctx).Create(t).Error
}

// GetTicket fetches a single ticket by id, or ErrNotFound if missing.
func GetTicket(ctx context.Context, db *gorm.DB, id int64) (*domain.Ticket, error) {
	var t domain.Ticket
	if err := db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// SaveTicket persists all fields of an existing ticket and refreshes
// UpdatedAt. The ticket must already have an id.
func SaveTicket(ctx context.Context, db *gorm.DB, t *domain.Ticket) error {
	t.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(t).Error
}

// DeleteTicket removes a ticket by id. If no rows are affected it returns
// ErrNotFound.
func DeleteTicket(ctx context.Context, db *gorm.DB, id int64) error {
	res := db.WithContext(ctx).Delete(&domain.Ticket{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListTickets returns a paginated slice of tickets matching the filter,
// ordered by creation time descending (most recent first). Use CountTickets
// to obtain the total for pagination metadata.
func ListTickets(ctx context.Context, db *gorm.DB, f TicketFilter, offset, limit int) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := f.apply(db.WithContext(ctx).Model(&domain.Ticket{})).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountTickets returns the number of tickets matching the filter.
func CountTickets(ctx context.Context, db *gorm.DB, f TicketFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.Ticket{})).
		Count(&total).Error
	return total, err
}

// ListTicketsByIDs fetches the given tickets in one query. The result order
// is unspecified; callers preserving a ranking must reorder.
func ListTicketsByIDs(ctx context.Context, db *gorm.DB, ids []int64) ([]domain.Ticket, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []domain.Ticket
	err := db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&out).Error
	return out, err
}

// ListAllTickets streams every ticket row, ordered by id. Used to rebuild
// the in-memory search index at startup.
func ListAllTickets(ctx context.Context, db *gorm.DB) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := db.WithContext(ctx).
		Order("id asc").
		Find(&out).Error
	return out, err
}
