// Package apperr holds the sentinel errors shared across gittodo packages.
package apperr

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrPositionOutOfRange = errors.New("position out of range")
	ErrNotDeletable       = errors.New("line can't be deleted")

	ErrMalformedReminder    = errors.New("malformed reminder expression")
	ErrInvalidReminderValue = errors.New("invalid reminder value")
)
