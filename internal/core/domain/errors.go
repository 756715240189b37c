package domain

import "errors"

var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrInvalidCollection   = errors.New("invalid collection")
	ErrCorruptStore        = errors.New("corrupt collection file")
	ErrSyncInFlight        = errors.New("sync already in progress")
	ErrRemoteNotConfigured = errors.New("remote store not configured")
	ErrLockedAttendance    = errors.New("attendance record is locked")
	ErrSandboxRequired     = errors.New("operation requires sandbox mode")
)
