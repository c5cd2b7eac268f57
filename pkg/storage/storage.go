package storage

import (
	"context"
	"errors"
)

// ErrAttemptNotFound is returned when no attempt has the requested ID
var ErrAttemptNotFound = errors.New("mint attempt not found")

// Storage is the mint ledger
type Storage interface {
	// RecordAttempt inserts a new attempt
	RecordAttempt(ctx context.Context, attempt *MintAttempt) error

	// UpdateAttempt saves the attempt's stage, hash, status, error, token IDs
	// and unresolved flag
	UpdateAttempt(ctx context.Context, attempt *MintAttempt) error

	GetAttempt(ctx context.Context, id string) (*MintAttempt, error)

	// ListUnresolved returns attempts flagged Unresolved that have not settled,
	// oldest first
	ListUnresolved(ctx context.Context) ([]*MintAttempt, error)

	Close() error
}
