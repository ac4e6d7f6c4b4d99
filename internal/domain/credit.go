package domain

import "time"

// CreditBalance holds the prepaid balance for one user. Credits never go
// negative at rest: deductions are refused when the balance is insufficient
// and restores are additive, never a reset.
type CreditBalance struct {
	UserID    string
	Credits   int
	UpdatedAt time.Time
}
