package domain

import "context"

// CreditLedger reads and mutates per-user balances.
type CreditLedger interface {
	Balance(ctx context.Context, userID string) (int, error)
	// Deduct subtracts amount from the user's balance, failing with
	// ErrInsufficientCredits when the balance is too low. The subtraction is
	// a single conditional update so concurrent deducts cannot double-spend.
	Deduct(ctx context.Context, userID string, amount int) error
	// Restore adds amount back to the balance. It carries no guard of its
	// own; callers gate it on owning the task being compensated.
	Restore(ctx context.Context, userID string, amount int) error
}

// HistoryStore persists completed generations.
type HistoryStore interface {
	Append(ctx context.Context, userID, prompt string, imageURLs []string) (*HistoryRecord, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]HistoryRecord, error)
}
