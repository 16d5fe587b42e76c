// Package services defines the business logic for tickets, search, and
// insights. This file centralizes common service-level error values so that
// they can be consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes should be performed at the
// handler layer.
package services

import "errors"

// Ticket-related errors.
var (
	// ErrTicketNotFound indicates that the requested ticket does not exist.
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrEmptyTitle is returned when a create request carries a blank title.
	ErrEmptyTitle = errors.New("title is empty")

	// ErrEmptyDescription is returned when a create request carries a blank
	// description.
	ErrEmptyDescription = errors.New("description is empty")

	// ErrEmptyReporter is returned when a create request carries a blank
	// reporter.
	ErrEmptyReporter = errors.New("reporter is empty")

	// ErrInvalidStatus is returned when a status value is outside the allowed
	// enum.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidPriority is returned when a priority value is outside the
	// allowed enum.
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrInvalidCategory is returned when a category value is outside the
	// allowed enum.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrEmptyQuery is returned when a search request carries a blank query
	// string.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrNoFieldsToUpdate is returned when an update request carries no
	// recognized fields.
	ErrNoFieldsToUpdate = errors.New("no fields to update")
)
