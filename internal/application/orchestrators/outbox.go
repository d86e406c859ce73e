package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	emailAdapter "kinesis/internal/adapters/email"
	"kinesis/internal/adapters/events"
	domain "kinesis/internal/domain/outbox"
	"kinesis/internal/observability"
)

// OutboxStore is the store interface needed by the outbox processor.
type OutboxStore interface {
	GetByID(ctx context.Context, id string) (domain.Entry, error)
	Save(ctx context.Context, e domain.Entry) error
	ListPending(ctx context.Context, limit int) ([]domain.Entry, error)
}

// OutboxStoreForEnqueue is the store interface needed to queue side effects.
type OutboxStoreForEnqueue interface {
	Save(ctx context.Context, e domain.Entry) error
}

// ErrTerminalEntry is returned when a manual retry targets a finished entry.
var ErrTerminalEntry = errors.New("outbox entry is in a terminal state")

// ActionExecutor executes a specific type of external action.
type ActionExecutor interface {
	// Execute runs the external action with the given payload.
	// Returns the external ID (e.g. provider message id) and any error.
	Execute(ctx context.Context, payload string) (string, error)
}

// OutboxConfig tunes the processor. Zero fields take defaults.
type OutboxConfig struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
	BatchSize int
}

// OutboxProcessor delivers queued side effects with exponential backoff.
type OutboxProcessor struct {
	store     OutboxStore
	executors map[string]ActionExecutor
	baseDelay time.Duration
	maxDelay  time.Duration
	batchSize int
	now       func() time.Time
}

// NewOutboxProcessor creates a new outbox processor.
func NewOutboxProcessor(store OutboxStore, executors map[string]ActionExecutor, cfg OutboxConfig) *OutboxProcessor {
	p := &OutboxProcessor{
		store:     store,
		executors: executors,
		baseDelay: 30 * time.Second,
		maxDelay:  1 * time.Hour,
		batchSize: 50,
		now:       time.Now,
	}
	if cfg.BaseDelay > 0 {
		p.baseDelay = cfg.BaseDelay
	}
	if cfg.MaxDelay > 0 {
		p.maxDelay = cfg.MaxDelay
	}
	if cfg.BatchSize > 0 {
		p.batchSize = cfg.BatchSize
	}
	return p
}

// ProcessPending attempts every due entry in one batch.
// PRE: Context is valid
// POST: Due entries are attempted; entries in backoff are left untouched
func (p *OutboxProcessor) ProcessPending(ctx context.Context) error {
	entries, err := p.store.ListPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("list pending outbox entries: %w", err)
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if p.now().Before(entry.DueAt(p.baseDelay, p.maxDelay)) {
			continue
		}
		if err := p.attempt(ctx, entry); err != nil {
			slog.Error("outbox_process_failed", "entry_id", entry.ID, "action_type", entry.ActionType, "error", err.Error())
		}
	}
	return nil
}

// ProcessSingle manually attempts one entry regardless of backoff.
// PRE: entryID is non-empty
// POST: Entry is attempted, status updated
func (p *OutboxProcessor) ProcessSingle(ctx context.Context, entryID string) error {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return fmt.Errorf("get outbox entry: %w", err)
	}
	if entry.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrTerminalEntry, entryID)
	}
	return p.attempt(ctx, entry)
}

// AbandonEntry stops further attempts for an entry.
// PRE: entryID is non-empty
// POST: Entry status set to abandoned
func (p *OutboxProcessor) AbandonEntry(ctx context.Context, entryID string) error {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return fmt.Errorf("get outbox entry: %w", err)
	}
	entry.MarkAbandoned()
	return p.store.Save(ctx, entry)
}

func (p *OutboxProcessor) attempt(ctx context.Context, entry domain.Entry) error {
	entry.MarkAttempt(p.now())

	executor, ok := p.executors[entry.ActionType]
	if !ok {
		entry.MarkFailed(fmt.Errorf("no executor registered for action type: %s", entry.ActionType))
		observability.RecordOutboxFailed(entry.ActionType)
		return p.store.Save(ctx, entry)
	}

	externalID, err := executor.Execute(ctx, entry.Payload)
	if err != nil {
		entry.MarkFailed(err)
		observability.RecordOutboxFailed(entry.ActionType)
		slog.Warn("outbox_action_failed", "entry_id", entry.ID, "action_type", entry.ActionType, "attempt", entry.Attempts, "error", err.Error())
	} else {
		entry.MarkSuccess(externalID)
		observability.RecordOutboxDelivered(entry.ActionType)
		slog.Info("outbox_action_succeeded", "entry_id", entry.ID, "action_type", entry.ActionType, "external_id", externalID)
	}
	return p.store.Save(ctx, entry)
}

// StartBackgroundWorker starts a goroutine that periodically processes pending outbox entries.
// PRE: stopCh is provided to signal shutdown
// POST: Worker runs until stopCh is closed
func StartBackgroundWorker(processor *OutboxProcessor, interval time.Duration, stopCh <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				if err := processor.ProcessPending(ctx); err != nil {
					slog.Error("outbox_background_process_failed", "error", err.Error())
				}
				cancel()
			case <-stopCh:
				slog.Info("outbox_background_worker_stopped")
				return
			}
		}
	}()
}

// enqueue queues a side effect after a core write has committed. Failure is
// logged and swallowed: the core write stands either way.
func enqueue(ctx context.Context, store OutboxStoreForEnqueue, id, actionType string, payload any, now time.Time) {
	if store == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		slog.Error("outbox_enqueue_failed", "action_type", actionType, "error", err.Error())
		return
	}
	entry := domain.Entry{
		ID:         id,
		ActionType: actionType,
		Payload:    string(raw),
		Status:     domain.StatusPending,
		CreatedAt:  now,
	}
	if err := entry.Validate(); err != nil {
		slog.Error("outbox_enqueue_failed", "action_type", actionType, "error", err.Error())
		return
	}
	if err := store.Save(ctx, entry); err != nil {
		slog.Error("outbox_enqueue_failed", "entry_id", id, "action_type", actionType, "error", err.Error())
		return
	}
	slog.Debug("outbox_enqueued", "entry_id", id, "action_type", actionType)
}

// --- Email Executor ---

// EmailExecutor sends a pre-rendered email queued as an email.SendRequest.
type EmailExecutor struct {
	Sender  emailAdapter.Sender
	ReplyTo string // applied when the queued request carries none
}

// Execute sends the email in payload.
// PRE: payload is JSON of an email.SendRequest
// POST: email accepted by the provider, returns its message ID
func (e *EmailExecutor) Execute(ctx context.Context, payload string) (string, error) {
	var req emailAdapter.SendRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", fmt.Errorf("unmarshal payload: %w", err)
	}
	if len(req.To) == 0 {
		return "", errors.New("email payload has no recipient")
	}
	if req.ReplyTo == "" {
		req.ReplyTo = e.ReplyTo
	}
	res, err := e.Sender.Send(ctx, req)
	if err != nil {
		return "", err
	}
	return res.MessageID, nil
}

// --- Event Executor ---

// EventExecutor publishes a queued events.Envelope.
type EventExecutor struct {
	Publisher events.Publisher
}

// Execute publishes the envelope in payload.
// PRE: payload is JSON of an events.Envelope
// POST: event acknowledged by the broker; the external ID is the event type
func (e *EventExecutor) Execute(ctx context.Context, payload string) (string, error) {
	var env events.Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return "", fmt.Errorf("unmarshal payload: %w", err)
	}
	if err := e.Publisher.Publish(ctx, env); err != nil {
		return "", err
	}
	return env.Type + ":" + env.Key, nil
}
