package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency.
// Absent state and idempotent skips are not errors and have no sentinel.

var (
	// Input errors, rejected at the service boundary
	ErrNegativeXP        = errors.New("xp amount must not be negative")
	ErrNegativeIncrement = errors.New("challenge increment must not be negative")
	ErrXPOutOfRange      = errors.New("xp amount exceeds the per-grant limit")
	ErrIncrementTooLarge = errors.New("challenge increment exceeds the limit")
	ErrXPAmountMismatch  = errors.New("xp amount does not match the source's fixed grant")
	ErrNoFixedGrant      = errors.New("xp source has no fixed grant")
	ErrEmptyUserID       = errors.New("user id is required")

	// Lookup errors
	ErrTemplateNotFound     = errors.New("challenge template not found")
	ErrChallengeNotFound    = errors.New("challenge not found")
	ErrNotificationNotFound = errors.New("notification not found")

	// Persistence errors
	ErrCorruptDocument = errors.New("stored document could not be decoded")
)
