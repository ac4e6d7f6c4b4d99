package gen

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/YuppyChen/ai-images-creator/internal/domain"
	"github.com/YuppyChen/ai-images-creator/internal/providers/wanx"
)

type stubLedger struct {
	mu       sync.Mutex
	balances map[string]int
	deducts  int
	restores int
}

func newStubLedger(balances map[string]int) *stubLedger {
	return &stubLedger{balances: balances}
}

func (l *stubLedger) Balance(ctx context.Context, userID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[userID], nil
}

func (l *stubLedger) Deduct(ctx context.Context, userID string, amount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[userID] < amount {
		return domain.ErrInsufficientCredits
	}
	l.deducts++
	l.balances[userID] -= amount
	return nil
}

func (l *stubLedger) Restore(ctx context.Context, userID string, amount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.restores++
	l.balances[userID] += amount
	return nil
}

type stubHistory struct {
	mu      sync.Mutex
	records []domain.HistoryRecord
	err     error
}

func (h *stubHistory) Append(ctx context.Context, userID, prompt string, imageURLs []string) (*domain.HistoryRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return nil, h.err
	}
	rec := domain.HistoryRecord{ID: "H1", UserID: userID, Prompt: prompt, ImageURLs: imageURLs}
	h.records = append(h.records, rec)
	return &rec, nil
}

func (h *stubHistory) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.HistoryRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.records, nil
}

type stubTaskClient struct {
	taskID      string
	createErr   error
	createCalls int
	result      *wanx.TaskResult
	getErr      error
	getCalls    int
}

func (c *stubTaskClient) CreateTask(ctx context.Context, req wanx.TaskRequest) (string, error) {
	c.createCalls++
	if c.createErr != nil {
		return "", c.createErr
	}
	return c.taskID, nil
}

func (c *stubTaskClient) GetTask(ctx context.Context, taskID string) (*wanx.TaskResult, error) {
	c.getCalls++
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.result, nil
}

func newTestOrchestrator(ledger *stubLedger, history *stubHistory, client *stubTaskClient) (*Orchestrator, *Registry) {
	registry := NewRegistry()
	o := NewOrchestrator(ledger, history, registry, client, zerolog.New(io.Discard))
	return o, registry
}

func TestStartRejectsEmptyPrompt(t *testing.T) {
	ledger := newStubLedger(map[string]int{"u1": 5})
	client := &stubTaskClient{taskID: "T1"}
	o, _ := newTestOrchestrator(ledger, &stubHistory{}, client)

	if _, err := o.Start(context.Background(), "u1", "   "); !errors.Is(err, domain.ErrInvalidPrompt) {
		t.Fatalf("err = %v, want ErrInvalidPrompt", err)
	}
	if client.createCalls != 0 {
		t.Fatal("provider must not be called for an empty prompt")
	}
	if ledger.deducts != 0 {
		t.Fatal("no credits may be deducted for an empty prompt")
	}
}

func TestStartWithZeroCreditsNeverCallsProvider(t *testing.T) {
	ledger := newStubLedger(map[string]int{"u1": 0})
	client := &stubTaskClient{taskID: "T1"}
	o, _ := newTestOrchestrator(ledger, &stubHistory{}, client)

	if _, err := o.Start(context.Background(), "u1", "red tower"); !errors.Is(err, domain.ErrInsufficientCredits) {
		t.Fatalf("err = %v, want ErrInsufficientCredits", err)
	}
	if client.createCalls != 0 {
		t.Fatal("provider must not be called with insufficient credits")
	}
}

func TestStartRestoresCreditOnProviderFailure(t *testing.T) {
	ledger := newStubLedger(map[string]int{"u1": 5})
	client := &stubTaskClient{createErr: errors.New("boom")}
	o, registry := newTestOrchestrator(ledger, &stubHistory{}, client)

	_, err := o.Start(context.Background(), "u1", "red tower")
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("err = %v, want ErrProviderFailure", err)
	}
	if got, _ := ledger.Balance(context.Background(), "u1"); got != 5 {
		t.Fatalf("balance = %d, want net-zero 5", got)
	}
	if registry.Len() != 0 {
		t.Fatal("no task may be registered on provider failure")
	}
}

func TestStartRegistersTaskAndDebitsCredit(t *testing.T) {
	ledger := newStubLedger(map[string]int{"u1": 5})
	client := &stubTaskClient{taskID: "T1"}
	o, registry := newTestOrchestrator(ledger, &stubHistory{}, client)

	taskID, err := o.Start(context.Background(), "u1", "red tower")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if taskID != "T1" {
		t.Fatalf("taskID = %q, want T1", taskID)
	}
	if got, _ := ledger.Balance(context.Background(), "u1"); got != 4 {
		t.Fatalf("balance = %d, want 4", got)
	}
	task, ok := registry.Get("T1")
	if !ok || task.UserID != "u1" || task.Prompt != "red tower" {
		t.Fatalf("registry association wrong: %#v ok=%v", task, ok)
	}
}

func TestOutcomePendingHasNoSideEffects(t *testing.T) {
	ledger := newStubLedger(map[string]int{"u1": 5})
	client := &stubTaskClient{taskID: "T1", result: &wanx.TaskResult{Status: wanx.StatusRunning}}
	o, registry := newTestOrchestrator(ledger, &stubHistory{}, client)

	if _, err := o.Start(context.Background(), "u1", "red tower"); err != nil {
		t.Fatalf("start: %v", err)
	}
	outcome, err := o.Outcome(context.Background(), "T1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.State != domain.OutcomePending {
		t.Fatalf("state = %s, want pending", outcome.State)
	}
	if registry.Len() != 1 {
		t.Fatal("pending outcome must not remove the association")
	}
	if got, _ := ledger.Balance(context.Background(), "u1"); got != 4 {
		t.Fatalf("balance = %d, want 4", got)
	}
}

func TestOutcomeSucceededAppendsHistoryExactlyOnce(t *testing.T) {
	urls := []string{"u1.png", "u2.png", "u3.png", "u4.png"}
	ledger := newStubLedger(map[string]int{"u1": 5})
	history := &stubHistory{}
	client := &stubTaskClient{taskID: "T1", result: &wanx.TaskResult{Status: wanx.StatusSucceeded, ImageURLs: urls}}
	o, _ := newTestOrchestrator(ledger, history, client)

	if _, err := o.Start(context.Background(), "u1", "red tower"); err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < 2; i++ {
		outcome, err := o.Outcome(context.Background(), "T1")
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		if outcome.State != domain.OutcomeSucceeded {
			t.Fatalf("call %d: state = %s, want succeeded", i, outcome.State)
		}
		if len(outcome.ImageURLs) != 4 || outcome.ImageURLs[0] != "u1.png" {
			t.Fatalf("call %d: urls = %#v", i, outcome.ImageURLs)
		}
	}

	if len(history.records) != 1 {
		t.Fatalf("history records = %d, want exactly 1", len(history.records))
	}
	rec := history.records[0]
	if rec.UserID != "u1" || rec.Prompt != "red tower" || len(rec.ImageURLs) != 4 {
		t.Fatalf("unexpected record: %#v", rec)
	}
	if got, _ := ledger.Balance(context.Background(), "u1"); got != 4 {
		t.Fatalf("balance = %d, want 4 after success", got)
	}
}

func TestOutcomeFailedRestoresCreditExactlyOnce(t *testing.T) {
	ledger := newStubLedger(map[string]int{"u1": 5})
	client := &stubTaskClient{taskID: "T1", result: &wanx.TaskResult{Status: wanx.StatusFailed, Message: "content policy"}}
	o, _ := newTestOrchestrator(ledger, &stubHistory{}, client)

	if _, err := o.Start(context.Background(), "u1", "red tower"); err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < 2; i++ {
		outcome, err := o.Outcome(context.Background(), "T1")
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		if outcome.State != domain.OutcomeFailed || outcome.Message != "content policy" {
			t.Fatalf("call %d: outcome = %#v", i, outcome)
		}
	}

	if ledger.restores != 1 {
		t.Fatalf("restores = %d, want exactly 1", ledger.restores)
	}
	if got, _ := ledger.Balance(context.Background(), "u1"); got != 5 {
		t.Fatalf("balance = %d, want restored 5", got)
	}
}

func TestOutcomeTransportErrorRestoresTrackedTask(t *testing.T) {
	ledger := newStubLedger(map[string]int{"u1": 5})
	client := &stubTaskClient{taskID: "T1"}
	o, registry := newTestOrchestrator(ledger, &stubHistory{}, client)

	if _, err := o.Start(context.Background(), "u1", "red tower"); err != nil {
		t.Fatalf("start: %v", err)
	}
	client.getErr = errors.New("connection reset")

	_, err := o.Outcome(context.Background(), "T1")
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("err = %v, want ErrProviderFailure", err)
	}
	if got, _ := ledger.Balance(context.Background(), "u1"); got != 5 {
		t.Fatalf("balance = %d, want restored 5", got)
	}
	if registry.Len() != 0 {
		t.Fatal("association must be removed after failure reconciliation")
	}

	// A later status call for the no-longer-tracked task forwards the raw
	// provider view without touching the ledger again.
	client.getErr = nil
	client.result = &wanx.TaskResult{Status: wanx.StatusFailed, Message: "gone"}
	if _, err := o.Outcome(context.Background(), "T1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ledger.restores != 1 {
		t.Fatalf("restores = %d, want exactly 1", ledger.restores)
	}
}

func TestOutcomeSucceededWithoutURLsIsMalformed(t *testing.T) {
	ledger := newStubLedger(map[string]int{"u1": 5})
	client := &stubTaskClient{taskID: "T1", result: &wanx.TaskResult{Status: wanx.StatusSucceeded}}
	o, registry := newTestOrchestrator(ledger, &stubHistory{}, client)

	if _, err := o.Start(context.Background(), "u1", "red tower"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := o.Outcome(context.Background(), "T1"); !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("err = %v, want ErrMalformedResponse", err)
	}
	if registry.Len() != 1 {
		t.Fatal("malformed payload must not consume the association")
	}
}

func TestOutcomeUntrackedSucceededStillReturnsImages(t *testing.T) {
	urls := []string{"a.png", "b.png"}
	ledger := newStubLedger(map[string]int{})
	history := &stubHistory{}
	client := &stubTaskClient{result: &wanx.TaskResult{Status: wanx.StatusSucceeded, ImageURLs: urls}}
	o, _ := newTestOrchestrator(ledger, history, client)

	outcome, err := o.Outcome(context.Background(), "unknown-task")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.State != domain.OutcomeSucceeded || len(outcome.ImageURLs) != 2 {
		t.Fatalf("outcome = %#v", outcome)
	}
	if len(history.records) != 0 {
		t.Fatal("untracked task must not write history")
	}
}

func TestOutcomeEmptyTaskIDIsNotFound(t *testing.T) {
	o, _ := newTestOrchestrator(newStubLedger(map[string]int{}), &stubHistory{}, &stubTaskClient{})
	if _, err := o.Outcome(context.Background(), "  "); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeductThenRestoreRoundTrips(t *testing.T) {
	ledger := newStubLedger(map[string]int{"u1": 3})
	if err := ledger.Deduct(context.Background(), "u1", 1); err != nil {
		t.Fatalf("deduct: %v", err)
	}
	if err := ledger.Restore(context.Background(), "u1", 1); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got, _ := ledger.Balance(context.Background(), "u1"); got != 3 {
		t.Fatalf("balance = %d, want 3", got)
	}
}
