package ledger

import "errors"

// Sentinel errors surfaced to feature modules. All are recoverable
// conditions the caller is expected to branch on with errors.Is.
var (
	// ErrNotFound indicates the user id has no ledger record. Distinct from
	// ErrInsufficientFunds: the caller may Upsert and retry.
	ErrNotFound = errors.New("ledger: record not found")

	// ErrInsufficientFunds indicates a currency adjustment was rejected
	// because it would drive the balance negative. The balance is unchanged.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrNegativeScore indicates an attempt to decrease the cumulative
	// score, which only ever increases.
	ErrNegativeScore = errors.New("ledger: score increments must be non-negative")
)
