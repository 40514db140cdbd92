// Package advisor implements the chat advisor that gives a conversation its
// memory: prior turns are prepended before the completion and the new user and
// assistant turns are recorded once it finishes.
package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/recall/pkg/chat"
	"github.com/papercomputeco/recall/pkg/eventstream"
	"github.com/papercomputeco/recall/pkg/llm"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/metrics"
	"github.com/papercomputeco/recall/pkg/worker"
)

// DefaultConversationID is used when a request carries no conversation ID.
const DefaultConversationID = "default"

// Enqueuer accepts turn events for asynchronous publishing.
type Enqueuer interface {
	Enqueue(job worker.Job) bool
}

// Config is the configuration for a memory advisor.
type Config struct {
	// Store holds the conversation turns.
	Store memory.Store

	// Backend names the store in logs, metrics and events.
	Backend string

	// Events is optional; when set, every recorded turn is enqueued.
	Events Enqueuer

	// Metrics is optional.
	Metrics *metrics.Metrics

	Logger *slog.Logger
}

// Advisor is a chat.Advisor backed by a memory.Store.
type Advisor struct {
	store   memory.Store
	backend string
	events  Enqueuer
	metrics *metrics.Metrics
	logger  *slog.Logger
}

var _ chat.Advisor = (*Advisor)(nil)

// New creates a memory advisor.
func New(cfg Config) (*Advisor, error) {
	if cfg.Store == nil {
		return nil, memory.ErrNotConfigured
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Advisor{
		store:   cfg.Store,
		backend: cfg.Backend,
		events:  cfg.Events,
		metrics: cfg.Metrics,
		logger:  logger,
	}, nil
}

func (a *Advisor) Name() string {
	return "memory"
}

// Before prepends up to Params.RetrieveSize prior turns to the request.
func (a *Advisor) Before(ctx context.Context, req *chat.AdvisedRequest) error {
	id := conversationID(req.Params)
	size := req.Params.RetrieveSize
	if size <= 0 {
		size = chat.DefaultRetrieveSize
	}

	started := time.Now()
	history, err := a.store.Retrieve(ctx, id, size)
	a.metrics.ObserveMemoryOp(a.backend, "retrieve", started, err)
	if err != nil {
		return fmt.Errorf("retrieving %s memory: %w", a.backend, err)
	}

	a.logger.Debug("memory retrieved",
		"backend", a.backend,
		"conversation_id", id,
		"retrieve_size", size,
		"turns", len(history),
	)

	if len(history) > 0 {
		req.Request.Messages = append(history, req.Request.Messages...)
	}
	return nil
}

// After records the prompt and the completion as two new turns.
func (a *Advisor) After(ctx context.Context, req *chat.AdvisedRequest, resp *llm.ChatResponse) error {
	id := conversationID(req.Params)
	turns := []llm.Message{req.Prompt, resp.Message}

	started := time.Now()
	err := a.store.Append(ctx, id, turns...)
	a.metrics.ObserveMemoryOp(a.backend, "append", started, err)
	if err != nil {
		return fmt.Errorf("recording %s memory: %w", a.backend, err)
	}

	a.logger.Debug("memory recorded",
		"backend", a.backend,
		"conversation_id", id,
	)

	if a.events != nil {
		source := eventstream.EventSource{Backend: a.backend, Model: resp.Model}
		a.events.Enqueue(worker.Job{
			Event: eventstream.NewTurnRecordedEvent(source, id, resp, turns...),
		})
	}
	return nil
}

func conversationID(params chat.MemoryParams) string {
	if params.ConversationID == "" {
		return DefaultConversationID
	}
	return params.ConversationID
}
