package handlers

import (
	"net/http"
	"strconv"
	"time"
)

type historyItem struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	ImageURLs []string  `json:"image_urls"`
	CreatedAt time.Time `json:"created_at"`
}

// MeCredits returns the authenticated user's remaining balance.
func (a *App) MeCredits(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, r, http.StatusUnauthorized, codeUnauthenticated, "")
		return
	}
	credits, err := a.Ledger.Balance(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("balance lookup failed")
		a.error(w, r, http.StatusInternalServerError, codeInternal, "")
		return
	}
	a.json(w, http.StatusOK, map[string]int{"credits": credits})
}

// MeHistory lists the authenticated user's past generations, newest first.
func (a *App) MeHistory(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, r, http.StatusUnauthorized, codeUnauthenticated, "")
		return
	}
	limit := queryInt(r, "limit", a.HistoryPageSize)
	if limit > 50 {
		limit = 50
	}
	offset := queryInt(r, "offset", 0)

	records, err := a.History.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("history lookup failed")
		a.error(w, r, http.StatusInternalServerError, codeInternal, "")
		return
	}
	items := make([]historyItem, 0, len(records))
	for _, rec := range records {
		items = append(items, historyItem{
			ID:        rec.ID,
			Prompt:    rec.Prompt,
			ImageURLs: rec.ImageURLs,
			CreatedAt: rec.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"history": items})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
