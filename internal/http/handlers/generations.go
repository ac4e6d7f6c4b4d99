package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/YuppyChen/ai-images-creator/internal/domain"
)

type generateRequest struct {
	Prompt string `json:"prompt" validate:"required,max=1000"`
}

type generateResponse struct {
	TaskID string `json:"task_id"`
}

type outcomeResponse struct {
	Status    string   `json:"status"`
	ImageURLs []string `json:"image_urls,omitempty"`
	Message   string   `json:"message,omitempty"`
}

// GenerationsCreate starts an asynchronous generation task for the
// authenticated user. One credit is debited up front; a provider failure
// restores it before the error reaches the client.
func (a *App) GenerationsCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, r, http.StatusUnauthorized, codeUnauthenticated, "")
		return
	}
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, r, http.StatusBadRequest, codeInvalidArgument, "invalid payload")
		return
	}
	if err := a.Validate.Struct(req); err != nil {
		a.error(w, r, http.StatusBadRequest, codeInvalidArgument, "")
		return
	}

	taskID, err := a.Generations.Start(r.Context(), userID, req.Prompt)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidPrompt):
			a.error(w, r, http.StatusBadRequest, codeInvalidArgument, "")
		case errors.Is(err, domain.ErrInsufficientCredits):
			a.error(w, r, http.StatusForbidden, codeInsufficientCredits, "")
		case errors.Is(err, domain.ErrProviderFailure):
			a.error(w, r, http.StatusBadGateway, codeUpstreamError, err.Error())
		default:
			a.Logger.Error().Err(err).Str("user_id", userID).Msg("start generation failed")
			a.error(w, r, http.StatusInternalServerError, codeInternal, "")
		}
		return
	}
	a.json(w, http.StatusAccepted, generateResponse{TaskID: taskID})
}

// GenerationOutcome reports the tagged outcome for a task. A pending status
// is the steady state during polling and carries no side effects.
func (a *App) GenerationOutcome(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, r, http.StatusUnauthorized, codeUnauthenticated, "")
		return
	}
	taskID := chi.URLParam(r, "task_id")
	if taskID == "" {
		a.error(w, r, http.StatusBadRequest, codeInvalidArgument, "task_id required")
		return
	}

	outcome, err := a.Generations.Outcome(r.Context(), taskID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			a.error(w, r, http.StatusNotFound, codeNotFound, "")
		case errors.Is(err, domain.ErrMalformedResponse):
			a.error(w, r, http.StatusBadGateway, codeMalformedUpstream, "")
		case errors.Is(err, domain.ErrProviderFailure):
			a.error(w, r, http.StatusBadGateway, codeUpstreamError, err.Error())
		default:
			a.Logger.Error().Err(err).Str("task_id", taskID).Msg("task outcome failed")
			a.error(w, r, http.StatusInternalServerError, codeInternal, "")
		}
		return
	}
	a.json(w, http.StatusOK, outcomeResponse{
		Status:    string(outcome.State),
		ImageURLs: outcome.ImageURLs,
		Message:   outcome.Message,
	})
}
