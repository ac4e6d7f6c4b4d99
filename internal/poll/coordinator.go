package poll

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/YuppyChen/ai-images-creator/internal/domain"
)

// DefaultInterval is the cadence between status checks once a task is polling.
const DefaultInterval = 3 * time.Second

// State enumerates the coordinator's lifecycle for the active task.
type State int32

const (
	StateIdle State = iota
	StateSubmitting
	StatePolling
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StatePolling:
		return "polling"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// API is the server surface the coordinator drives.
type API interface {
	StartGeneration(ctx context.Context, prompt string) (string, error)
	TaskOutcome(ctx context.Context, taskID string) (domain.GenerationOutcome, error)
}

// Options configures a Coordinator.
type Options struct {
	Interval time.Duration
	Logger   zerolog.Logger
	// OnTerminal receives the terminal outcome exactly once per task. It is
	// not invoked for tasks superseded by a newer Start call.
	OnTerminal func(taskID string, outcome domain.GenerationOutcome)
}

// Coordinator runs the client-side polling loop for one task at a time:
// submit, check once immediately, then check on a fixed cadence until a
// terminal status wins the state transition. The terminal transition is a
// compare-and-swap on the run's state, so two interleaved checks that both
// observe a terminal status apply the outcome exactly once.
type Coordinator struct {
	api        API
	interval   time.Duration
	logger     zerolog.Logger
	onTerminal func(string, domain.GenerationOutcome)

	mu      sync.Mutex
	current *run
}

// Each Start call creates a fresh run; stale runs keep their own state, so a
// late result from a superseded task can never flip the current one.
type run struct {
	taskID string
	cancel context.CancelFunc
	state  atomic.Int32
}

// NewCoordinator creates a coordinator over the given API.
func NewCoordinator(a API, opts Options) *Coordinator {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Coordinator{
		api:        a,
		interval:   interval,
		logger:     opts.Logger,
		onTerminal: opts.OnTerminal,
	}
}

// Start submits a prompt and begins polling. Any task from a previous Start
// is cancelled and its outcome discarded: a new submission always supersedes
// an old one. The returned task id is empty when submission itself fails.
func (c *Coordinator) Start(ctx context.Context, prompt string) (string, error) {
	runCtx, cancel := context.WithCancel(ctx)
	r := &run{cancel: cancel}
	r.state.Store(int32(StateSubmitting))

	c.mu.Lock()
	if c.current != nil {
		c.current.cancel()
	}
	c.current = r
	c.mu.Unlock()

	taskID, err := c.api.StartGeneration(runCtx, prompt)
	if err != nil {
		c.finish(r, StateSubmitting, domain.GenerationOutcome{State: domain.OutcomeFailed, Message: err.Error()})
		return "", err
	}
	r.taskID = taskID
	if !r.state.CompareAndSwap(int32(StateSubmitting), int32(StatePolling)) {
		// Superseded while the submission was in flight.
		return taskID, nil
	}
	c.logger.Debug().Str("task_id", taskID).Msg("polling started")

	// One immediate check keeps fast jobs from waiting a full interval.
	c.check(runCtx, r)
	if State(r.state.Load()) == StatePolling {
		go c.loop(runCtx, r)
	}
	return taskID, nil
}

// Stop cancels the active polling loop. Cancellation is cooperative: it stops
// future checks but does not reach into the provider or reverse any side
// effect already committed on the server.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		c.current.cancel()
	}
}

// State reports the current run's state, or StateIdle before the first Start.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return StateIdle
	}
	return State(c.current.state.Load())
}

// TaskID returns the current run's task id, if any.
func (c *Coordinator) TaskID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return ""
	}
	return c.current.taskID
}

func (c *Coordinator) loop(ctx context.Context, r *run) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if State(r.state.Load()) != StatePolling {
				return
			}
			c.check(ctx, r)
			if State(r.state.Load()) != StatePolling {
				return
			}
		}
	}
}

func (c *Coordinator) check(ctx context.Context, r *run) {
	// Guard before issuing: an earlier check may already have gone terminal.
	if State(r.state.Load()) != StatePolling {
		return
	}
	outcome, err := c.api.TaskOutcome(ctx, r.taskID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.finish(r, StatePolling, domain.GenerationOutcome{State: domain.OutcomeFailed, Message: err.Error()})
		return
	}
	switch outcome.State {
	case domain.OutcomeSucceeded, domain.OutcomeFailed:
		c.finish(r, StatePolling, outcome)
	default:
		// Pending: schedule keeps running.
	}
}

// finish attempts the terminal transition. Only the caller that wins the
// compare-and-swap cancels the schedule and delivers the outcome.
func (c *Coordinator) finish(r *run, from State, outcome domain.GenerationOutcome) {
	target := StateFailed
	if outcome.State == domain.OutcomeSucceeded {
		target = StateSucceeded
	}
	if !r.state.CompareAndSwap(int32(from), int32(target)) {
		return
	}
	r.cancel()

	c.mu.Lock()
	isCurrent := c.current == r
	c.mu.Unlock()
	if !isCurrent {
		return
	}
	c.logger.Debug().Str("task_id", r.taskID).Str("state", target.String()).Msg("polling finished")
	if c.onTerminal != nil {
		c.onTerminal(r.taskID, outcome)
	}
}
