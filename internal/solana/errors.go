package solana

import "errors"

var (
	// ErrBlockUnavailable is returned for skipped slots and blocks the node no longer has.
	ErrBlockUnavailable = errors.New("block unavailable")

	// ErrAccountNotFound is returned when getAccountInfo reports no account.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidAddress is returned for strings that are not base58 public keys.
	ErrInvalidAddress = errors.New("invalid address")
)
