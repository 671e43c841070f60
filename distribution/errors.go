package distribution

import "errors"

var (
	ErrInvalidFeeShare    = errors.New("investor fee share must be <= 10000 bps")
	ErrInvalidBaseline    = errors.New("y0 must be greater than zero")
	ErrBaseFeeDetected    = errors.New("claim produced base-denominated fees")
	ErrCursorMismatch     = errors.New("page cursor mismatch")
	ErrTooEarly           = errors.New("distribution day not yet available")
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	ErrAccountMismatch    = errors.New("account mismatch")

	ErrUnauthorized       = errors.New("unauthorized authority for this policy")
	ErrAlreadyConfigured  = errors.New("honorary position already configured")
	ErrPositionNotReady   = errors.New("honorary position not yet configured")
	ErrInvalidPool        = errors.New("pool must collect fees in the quote token only")
	ErrPolicyExists       = errors.New("policy already exists")
	ErrPolicyNotFound     = errors.New("policy not found")
	ErrVersionConflict    = errors.New("record version conflict")
	ErrInvalidTimestamp   = errors.New("unix timestamp must be non-negative")
	ErrPageOverflow       = errors.New("page cursor exceeds max page cursor")
	ErrEmptyPage          = errors.New("page contains no investors but is not marked last")
	ErrInsufficientFunds  = errors.New("insufficient treasury balance")
	ErrUnsupportedVersion = errors.New("unsupported record schema version")
	ErrLockHeld           = errors.New("pool is locked by another crank")
	ErrCommitPending      = errors.New("a commit for this pool is still in flight")
)
