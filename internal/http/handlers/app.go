package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/YuppyChen/ai-images-creator/internal/domain"
	"github.com/YuppyChen/ai-images-creator/internal/middleware"
)

// GenerationService is the orchestrator surface the handlers depend on.
type GenerationService interface {
	Start(ctx context.Context, userID, prompt string) (string, error)
	Outcome(ctx context.Context, taskID string) (domain.GenerationOutcome, error)
}

// App bundles the handler dependencies.
type App struct {
	Generations GenerationService
	Ledger      domain.CreditLedger
	History     domain.HistoryStore
	Logger      zerolog.Logger
	Validate    *validator.Validate

	HistoryPageSize int
}

// NewApp constructs the handler container.
func NewApp(generations GenerationService, ledger domain.CreditLedger, history domain.HistoryStore, logger zerolog.Logger) *App {
	return &App{
		Generations:     generations,
		Ledger:          ledger,
		History:         history,
		Logger:          logger,
		Validate:        validator.New(),
		HistoryPageSize: 10,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// error writes the standard error envelope. An empty msg falls back to the
// localized default for the code.
func (a *App) error(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	if msg == "" {
		msg = localizedMessage(code, middleware.LocaleFromContext(r.Context()))
	}
	a.json(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": msg},
	})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}
