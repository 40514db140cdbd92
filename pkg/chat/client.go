// Package chat is a fluent chat client: build a prompt, attach advisors and
// memory params, then either Stream the completion or Call for a single string.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/recall/pkg/llm"
	"github.com/papercomputeco/recall/pkg/llm/provider"
	"github.com/papercomputeco/recall/pkg/utils"
)

var (
	// ErrEmptyPrompt is returned by terminal operations on a blank prompt.
	ErrEmptyPrompt = errors.New("prompt must not be empty")

	// ErrNoProvider is returned by NewClient when no provider is configured.
	ErrNoProvider = errors.New("chat client requires a provider")
)

// Config is the chat client configuration.
type Config struct {
	Provider provider.Provider
	Model    string
	Logger   *slog.Logger
}

// Client issues chat requests against a single provider and model.
// A Client is safe for concurrent use; each Prompt builds an independent Request.
type Client struct {
	provider provider.Provider
	model    string
	logger   *slog.Logger
}

// NewClient creates a chat client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Provider == nil {
		return nil, ErrNoProvider
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		provider: cfg.Provider,
		model:    cfg.Model,
		logger:   logger,
	}, nil
}

// ProviderName names the provider behind the client.
func (c *Client) ProviderName() string {
	return c.provider.Name()
}

// Prompt starts a request with text as the user message.
func (c *Client) Prompt(text string) *Request {
	return &Request{client: c, text: text}
}

// Request is a single chat call under construction.
type Request struct {
	client   *Client
	text     string
	advisors []Advisor
	params   MemoryParams
}

// Advisors appends advisors to the request.
func (r *Request) Advisors(advisors ...Advisor) *Request {
	r.advisors = append(r.advisors, advisors...)
	return r
}

// Params sets the memory parameters handed to advisors.
func (r *Request) Params(params MemoryParams) *Request {
	r.params = params
	return r
}

// Call performs a blocking completion and returns the assistant text.
func (r *Request) Call(ctx context.Context) (string, error) {
	advised, err := r.advise(ctx, false)
	if err != nil {
		return "", err
	}

	resp, err := r.client.provider.Chat(ctx, advised.Request)
	if err != nil {
		return "", fmt.Errorf("%s chat: %w", r.client.provider.Name(), err)
	}

	if err := r.after(ctx, advised, resp); err != nil {
		return "", err
	}

	return resp.Message.GetText(), nil
}

// Stream starts a streaming completion. The returned Stream must be drained
// or closed. Errors from advisors' Before are returned directly; provider
// errors surface through Stream.Err.
func (r *Request) Stream(ctx context.Context) (*Stream, error) {
	advised, err := r.advise(ctx, true)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	chunks := make(chan llm.StreamChunk)
	produced := make(chan error, 1)

	go func() {
		produced <- r.client.provider.ChatStream(ctx, advised.Request, chunks)
		close(chunks)
	}()

	s := &Stream{
		content: make(chan string),
		cancel:  cancel,
	}
	go s.relay(ctx, r, advised, chunks, produced)

	return s, nil
}

func (r *Request) advise(ctx context.Context, stream bool) (*AdvisedRequest, error) {
	if r.text == "" {
		return nil, ErrEmptyPrompt
	}

	prompt := llm.NewTextMessage(llm.RoleUser, r.text)
	advised := &AdvisedRequest{
		Request: &llm.ChatRequest{
			Model:    r.client.model,
			Messages: []llm.Message{prompt},
			Stream:   stream,
		},
		Prompt: prompt,
		Params: r.params,
	}

	for _, a := range r.advisors {
		if err := a.Before(ctx, advised); err != nil {
			return nil, fmt.Errorf("advisor %s: %w", a.Name(), err)
		}
	}

	r.client.logger.Debug("chat request",
		"provider", r.client.provider.Name(),
		"model", r.client.model,
		"stream", stream,
		"conversation_id", r.params.ConversationID,
		"messages", len(advised.Request.Messages),
		"prompt", utils.Truncate(r.text, 80),
	)

	return advised, nil
}

func (r *Request) after(ctx context.Context, advised *AdvisedRequest, resp *llm.ChatResponse) error {
	for i := len(r.advisors) - 1; i >= 0; i-- {
		a := r.advisors[i]
		if err := a.After(ctx, advised, resp); err != nil {
			return fmt.Errorf("advisor %s: %w", a.Name(), err)
		}
	}
	return nil
}
