package domain

import "time"

// HistoryRecord is an append-only row written once per successfully completed
// generation. It is never mutated or deleted.
type HistoryRecord struct {
	ID        string
	UserID    string
	Prompt    string
	ImageURLs []string
	CreatedAt time.Time
}
