package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/YuppyChen/ai-images-creator/internal/domain"
)

// CreditLedgerPG implements domain.CreditLedger backed by PostgreSQL.
//
// Deduct relies on a single conditional UPDATE rather than a read-then-write
// pair, so two concurrent deducts for the same user cannot both observe a
// sufficient balance and double-spend.
type CreditLedgerPG struct {
	pool           *pgxpool.Pool
	defaultCredits int
}

// NewCreditLedger creates a ledger. Users without a row read as holding
// defaultCredits; the row is materialized on first mutation.
func NewCreditLedger(pool *pgxpool.Pool, defaultCredits int) *CreditLedgerPG {
	return &CreditLedgerPG{pool: pool, defaultCredits: defaultCredits}
}

// Balance returns the stored balance, or the default grant when no row exists.
func (r *CreditLedgerPG) Balance(ctx context.Context, userID string) (int, error) {
	row := r.pool.QueryRow(ctx, `SELECT credits FROM ai_images_creator_credits WHERE user_id = $1`, userID)
	var credits int
	if err := row.Scan(&credits); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.defaultCredits, nil
		}
		return 0, err
	}
	return credits, nil
}

// Deduct subtracts amount, failing with domain.ErrInsufficientCredits when the
// balance is too low.
func (r *CreditLedgerPG) Deduct(ctx context.Context, userID string, amount int) error {
	if err := r.ensureRow(ctx, userID); err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
UPDATE ai_images_creator_credits
SET credits = credits - $2,
    updated_at = NOW()
WHERE user_id = $1
  AND credits >= $2;
`, userID, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientCredits
	}
	return nil
}

// Restore adds amount back to the balance. The update is additive, never a
// reset, so a restore can never push the balance below an earlier value.
func (r *CreditLedgerPG) Restore(ctx context.Context, userID string, amount int) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO ai_images_creator_credits (user_id, credits)
VALUES ($1, $2)
ON CONFLICT (user_id) DO UPDATE
SET credits = ai_images_creator_credits.credits + EXCLUDED.credits,
    updated_at = NOW();
`, userID, amount)
	return err
}

func (r *CreditLedgerPG) ensureRow(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO ai_images_creator_credits (user_id, credits)
VALUES ($1, $2)
ON CONFLICT (user_id) DO NOTHING;
`, userID, r.defaultCredits)
	return err
}

var _ domain.CreditLedger = (*CreditLedgerPG)(nil)
