// Package domain defines the persistence models for incident tickets.
// These types are mapped with GORM and form the core data layer of the
// ticketing application.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Status is the lifecycle state of a ticket.
type Status string

// Ticket statuses.
const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusPending    Status = "pending"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// Statuses lists every valid ticket status.
func Statuses() []Status {
	return []Status{StatusOpen, StatusInProgress, StatusPending, StatusResolved, StatusClosed}
}

// Valid reports whether s is a known ticket status.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusPending, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// Terminal reports whether s represents a finished ticket
// (resolved or closed).
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusClosed
}

// Priority is the urgency level of a ticket.
type Priority string

// Ticket priorities.
const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Priorities lists every valid ticket priority.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}
}

// Valid reports whether p is a known ticket priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Category is the issue classification of a ticket.
type Category string

// Ticket categories.
const (
	CategoryHardware    Category = "hardware"
	CategorySoftware    Category = "software"
	CategoryNetwork     Category = "network"
	CategoryAccess      Category = "access"
	CategoryPerformance Category = "performance"
	CategorySecurity    Category = "security"
	CategoryOther       Category = "other"
)

// Categories lists every valid ticket category.
func Categories() []Category {
	return []Category{
		CategoryHardware, CategorySoftware, CategoryNetwork, CategoryAccess,
		CategoryPerformance, CategorySecurity, CategoryOther,
	}
}

// Valid reports whether c is a known ticket category.
func (c Category) Valid() bool {
	switch c {
	case CategoryHardware, CategorySoftware, CategoryNetwork, CategoryAccess,
		CategoryPerformance, CategorySecurity, CategoryOther:
		return true
	}
	return false
}

// TagList stores a ticket's tags as a JSON array in a single TEXT column.
// A nil list is stored as "[]" so the column is never NULL-ambiguous.
type TagList []string

// Value implements driver.Valuer.
func (t TagList) Value() (driver.Value, error) {
	if t == nil {
		t = TagList{}
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner. Malformed or empty stored values decode to an
// empty list rather than failing the row read.
func (t *TagList) Scan(src any) error {
	if src == nil {
		*t = TagList{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("tags: unsupported column type")
	}
	if len(raw) == 0 {
		*t = TagList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		*t = TagList{}
		return nil
	}
	*t = out
	return nil
}

// Ticket represents a single incident ticket. Title and description carry the
// free text that the search index ranks over; status, priority, category,
// assignee and reporter are the filterable attributes.
//
// Fields:
//   - ID: autoincrement integer primary key.
//   - Title / Description: required free text.
//   - Status / Priority / Category: constrained enum strings (indexed).
//   - Assignee: optional; Reporter: required.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - ResolvedAt: set when the ticket first transitions to resolved/closed.
//   - Tags: JSON-encoded list of free-form labels.
//   - ResolutionNotes: optional closing notes.
type Ticket struct {
	ID              int64      `json:"id"                 gorm:"primaryKey;autoIncrement"`
	Title           string     `json:"title"              gorm:"type:varchar(255);not null;index"`
	Description     string     `json:"description"        gorm:"type:text;not null"`
	Status          Status     `json:"status"             gorm:"type:varchar(16);not null;default:'open';index"`
	Priority        Priority   `json:"priority"           gorm:"type:varchar(16);not null;default:'medium';index"`
	Category        Category   `json:"category"           gorm:"type:varchar(16);not null;default:'other';index"`
	Assignee        string     `json:"assignee,omitempty" gorm:"type:varchar(100);index"`
	Reporter        string     `json:"reporter"           gorm:"type:varchar(100);not null;index"`
	CreatedAt       time.Time  `json:"created_at"         gorm:"index"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	Tags            TagList    `json:"tags"               gorm:"type:text"`
	ResolutionNotes string     `json:"resolution_notes,omitempty" gorm:"type:text"`
}

// TableName returns the database table name for Ticket.
func (Ticket) TableName() string { return "tickets" }
