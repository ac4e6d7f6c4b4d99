package gen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/YuppyChen/ai-images-creator/internal/domain"
	"github.com/YuppyChen/ai-images-creator/internal/providers/wanx"
)

const (
	// TaskCost is the number of credits debited per generation attempt and
	// restored when the attempt ultimately fails.
	TaskCost = 1
	// ImagesPerTask is the fixed number of images requested from the provider.
	ImagesPerTask = 4
	// ImageSize is the fixed square output requested from the provider.
	ImageSize = "1024*1024"
)

type taskClient interface {
	CreateTask(ctx context.Context, req wanx.TaskRequest) (string, error)
	GetTask(ctx context.Context, taskID string) (*wanx.TaskResult, error)
}

// Orchestrator drives one generation request end to end: it debits the credit
// ledger, submits the job to the remote provider, correlates the returned
// task id through the registry, and on a terminal status reconciles exactly
// once: history append on success, compensating credit restore on failure.
type Orchestrator struct {
	ledger   domain.CreditLedger
	history  domain.HistoryStore
	registry *Registry
	client   taskClient
	logger   zerolog.Logger
}

// NewOrchestrator wires the orchestrator with its collaborators.
func NewOrchestrator(ledger domain.CreditLedger, history domain.HistoryStore, registry *Registry, client taskClient, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		ledger:   ledger,
		history:  history,
		registry: registry,
		client:   client,
		logger:   logger,
	}
}

// Start validates the prompt, debits one credit, and creates the provider
// task. A provider failure after the debit restores the credit before the
// error is surfaced, so the caller never has to compensate.
func (o *Orchestrator) Start(ctx context.Context, userID, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", domain.ErrInvalidPrompt
	}

	if err := o.ledger.Deduct(ctx, userID, TaskCost); err != nil {
		return "", err
	}

	taskID, err := o.client.CreateTask(ctx, wanx.TaskRequest{
		Prompt: prompt,
		N:      ImagesPerTask,
		Size:   ImageSize,
	})
	if err != nil {
		if rerr := o.ledger.Restore(ctx, userID, TaskCost); rerr != nil {
			o.logger.Error().Err(rerr).Str("user_id", userID).
				Msg("credit restore failed after provider error; reconciliation gap")
		}
		return "", fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}

	o.registry.Put(domain.Task{
		ID:        taskID,
		UserID:    userID,
		Prompt:    prompt,
		CreatedAt: time.Now(),
	})
	o.logger.Info().Str("task_id", taskID).Str("user_id", userID).Msg("generation task started")
	return taskID, nil
}

// Outcome queries the provider for the task's status and reconciles terminal
// outcomes. Once a terminal outcome has been reconciled the association is
// gone, so a repeated call for the same task id applies no side effect twice.
func (o *Orchestrator) Outcome(ctx context.Context, taskID string) (domain.GenerationOutcome, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return domain.GenerationOutcome{}, domain.ErrNotFound
	}

	result, err := o.client.GetTask(ctx, taskID)
	if err != nil {
		// A transport or non-success response counts as a failed task for
		// anyone we are still tracking.
		if task, ok := o.registry.Claim(taskID); ok {
			o.restore(ctx, task)
		}
		return domain.GenerationOutcome{}, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}

	switch result.Status {
	case wanx.StatusSucceeded:
		if len(result.ImageURLs) == 0 {
			return domain.GenerationOutcome{}, domain.ErrMalformedResponse
		}
		if task, ok := o.registry.Claim(taskID); ok {
			if _, err := o.history.Append(ctx, task.UserID, task.Prompt, result.ImageURLs); err != nil {
				o.logger.Error().Err(err).Str("task_id", taskID).Str("user_id", task.UserID).
					Msg("history append failed; reconciliation gap")
				return domain.GenerationOutcome{}, fmt.Errorf("append history: %w", err)
			}
			o.logger.Info().Str("task_id", taskID).Str("user_id", task.UserID).
				Int("images", len(result.ImageURLs)).Msg("generation task succeeded")
		}
		return domain.GenerationOutcome{State: domain.OutcomeSucceeded, ImageURLs: result.ImageURLs}, nil

	case wanx.StatusFailed:
		if task, ok := o.registry.Claim(taskID); ok {
			o.restore(ctx, task)
			o.logger.Info().Str("task_id", taskID).Str("user_id", task.UserID).
				Str("reason", result.Message).Msg("generation task failed")
		}
		return domain.GenerationOutcome{State: domain.OutcomeFailed, Message: result.Message}, nil

	default:
		// PENDING, RUNNING, and anything the provider invents later: keep
		// polling, no registry or ledger change.
		return domain.GenerationOutcome{State: domain.OutcomePending}, nil
	}
}

func (o *Orchestrator) restore(ctx context.Context, task domain.Task) {
	if err := o.ledger.Restore(ctx, task.UserID, TaskCost); err != nil {
		o.logger.Error().Err(err).Str("task_id", task.ID).Str("user_id", task.UserID).
			Msg("credit restore failed; reconciliation gap")
	}
}
