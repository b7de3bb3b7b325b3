package core

import "errors"

// Errors returned by the sync, member and schedule services.
var (
	ErrInvalidField    = errors.New("unknown trip field")
	ErrValidation      = errors.New("invalid field value")
	ErrIdentity        = errors.New("failed to establish identity")
	ErrMemberNotFound  = errors.New("member not found")
	ErrMissingMemberID = errors.New("no member id found, upload aborted")
	ErrDateNotFound    = errors.New("date not found in schedule")
	ErrDateExists      = errors.New("date already exists in schedule")
	ErrItemNotFound    = errors.New("schedule item not found")
	ErrServiceNotReady = errors.New("sync service: component not initialized")
)
