package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/YuppyChen/ai-images-creator/internal/domain"
)

// HistoryStorePG implements domain.HistoryStore backed by PostgreSQL.
type HistoryStorePG struct {
	pool *pgxpool.Pool
}

// NewHistoryStore creates a new history store.
func NewHistoryStore(pool *pgxpool.Pool) *HistoryStorePG {
	return &HistoryStorePG{pool: pool}
}

// Append inserts one immutable record for a completed generation.
func (r *HistoryStorePG) Append(ctx context.Context, userID, prompt string, imageURLs []string) (*domain.HistoryRecord, error) {
	query := `
INSERT INTO ai_images_creator_history (id, user_id, prompt, image_urls)
VALUES ($1, $2, $3, $4)
RETURNING id, user_id, prompt, image_urls, created_at;
`
	row := r.pool.QueryRow(ctx, query, uuid.NewString(), userID, prompt, imageURLs)
	var rec domain.HistoryRecord
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Prompt, &rec.ImageURLs, &rec.CreatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByUser returns the user's records newest first.
func (r *HistoryStorePG) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.HistoryRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	query := `
SELECT id, user_id, prompt, image_urls, created_at
FROM ai_images_creator_history
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3;
`
	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.HistoryRecord
	for rows.Next() {
		var rec domain.HistoryRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Prompt, &rec.ImageURLs, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

var _ domain.HistoryStore = (*HistoryStorePG)(nil)
