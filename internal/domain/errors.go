package domain

import "errors"

// Domain errors, grouped by taxonomy. Every failed operation surfaces exactly
// one of these (possibly wrapped with context); none are retried internally.
var (
	// Authorization
	ErrUnauthorized = errors.New("unauthorized")

	// State
	ErrPaused                   = errors.New("engine is paused")
	ErrNotPaused                = errors.New("engine is not paused")
	ErrScheduleNotActive        = errors.New("schedule is not active")
	ErrScheduleAlreadyPaused    = errors.New("schedule is already paused")
	ErrScheduleNotPaused        = errors.New("schedule is not paused")
	ErrScheduleAlreadyCancelled = errors.New("schedule is already cancelled")
	ErrAlreadyDelegated         = errors.New("account is already delegated")
	ErrNotDelegated             = errors.New("account is not delegated")

	// Validation
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrInvalidAsset         = errors.New("invalid asset type")
	ErrInvalidAccount       = errors.New("invalid token account")
	ErrInvalidAuthority     = errors.New("invalid authority")
	ErrInvalidMaxRecipients = errors.New("max recipients must be greater than 0")
	ErrInvalidBatchTimeout  = errors.New("batch timeout must be between 1 hour and 30 days")
	ErrInvalidInterval      = errors.New("interval out of range")
	ErrVaultExists          = errors.New("vault already initialized")
	ErrScheduleExists       = errors.New("schedule already exists")
	ErrConfigExists         = errors.New("config already initialized")

	// Not found
	ErrConfigNotFound   = errors.New("config not found")
	ErrVaultNotFound    = errors.New("vault not found")
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrAccountNotFound  = errors.New("token account not found")

	// Integrity
	ErrInsufficientFunds = errors.New("insufficient available funds")
	ErrVaultMismatch     = errors.New("vault balance mismatch")

	// Proof
	ErrInvalidMerkleProof = errors.New("invalid merkle proof")
	ErrInvalidLeafIndex   = errors.New("invalid leaf index")
	ErrAlreadyPaid        = errors.New("recipient already paid")
	ErrReplayDetected     = errors.New("replay detected: stale batch counter")

	// Timing
	ErrExecutionTooEarly = errors.New("execution too early: next execution time not reached")
)
