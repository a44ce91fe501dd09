package domain

import "errors"

// Core failure kinds. Every mutating operation in the settlement core aborts
// atomically with exactly one of these sentinels; callers match them with
// errors.Is.
var (
	// Store-level.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrLockHeld      = errors.New("lock already held")

	// AMM engine.
	ErrUnknownMarket      = errors.New("unknown market")
	ErrMarketExists       = errors.New("market already exists")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidSide        = errors.New("invalid side")
	ErrSlippageExceeded   = errors.New("slippage exceeded")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrExceedsClaimable   = errors.New("exceeds claimable")
	ErrSettleFirst        = errors.New("settle first")
	ErrNotWinningSide     = errors.New("not the winning side")
	ErrAlreadySettled     = errors.New("already settled")

	// Oracle settlement protocol and proof verifier.
	ErrUnauthorized        = errors.New("unauthorized")
	ErrProofRequired       = errors.New("proof required")
	ErrProofInvalid        = errors.New("proof verification failed")
	ErrProofTypeNotAllowed = errors.New("proof type not allowed")
	ErrInvalidStake        = errors.New("invalid stake")
	ErrNotProposed         = errors.New("no outcome proposed")
	ErrAlreadyProposed     = errors.New("outcome already proposed")
	ErrAlreadyChallenged   = errors.New("outcome already challenged")
	ErrAlreadyFinalized    = errors.New("outcome already finalized")
	ErrNotChallenged       = errors.New("outcome not challenged")
	ErrWindowNotElapsed    = errors.New("window not elapsed")
	ErrWindowExpired       = errors.New("window expired")
)
