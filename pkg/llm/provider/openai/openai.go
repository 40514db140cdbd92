// Package openai talks to OpenAI-compatible chat completion APIs through the
// official openai-go client.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/papercomputeco/recall/pkg/llm"
)

// DefaultBaseURL is the public OpenAI API.
const DefaultBaseURL = "https://api.openai.com/v1/"

// ErrNoChoices is returned when the API answers without any choices.
var ErrNoChoices = errors.New("openai returned no choices")

// Provider implements the provider.Provider interface for the OpenAI API.
type Provider struct {
	client *openai.Client
}

// New creates an OpenAI provider. An empty baseURL falls back to DefaultBaseURL.
func New(baseURL, apiKey string, httpClient *http.Client) *Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	// openai-go resolves paths relative to the base URL
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &Provider{client: openai.NewClient(opts...)}
}

func (p *Provider) Name() string {
	return "openai"
}

func (p *Provider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	completion, err := p.client.Chat.Completions.New(ctx, toParams(req))
	if err != nil {
		return nil, fmt.Errorf("calling openai: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, ErrNoChoices
	}

	choice := completion.Choices[0]
	return &llm.ChatResponse{
		Model:      completion.Model,
		CreatedAt:  time.Unix(completion.Created, 0),
		Message:    llm.NewTextMessage(llm.RoleAssistant, choice.Message.Content),
		Done:       true,
		StopReason: string(choice.FinishReason),
		Usage: &llm.Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}, nil
}

func (p *Provider) ChatStream(ctx context.Context, req *llm.ChatRequest, chunks chan<- llm.StreamChunk) error {
	stream := p.client.Chat.Completions.NewStreaming(ctx, toParams(req))
	defer stream.Close()

	for stream.Next() {
		current := stream.Current()
		if len(current.Choices) == 0 {
			continue
		}

		choice := current.Choices[0]
		chunk := llm.StreamChunk{
			Model:      current.Model,
			CreatedAt:  time.Unix(current.Created, 0),
			Message:    llm.NewTextMessage(llm.RoleAssistant, choice.Delta.Content),
			Done:       choice.FinishReason != "",
			StopReason: string(choice.FinishReason),
		}

		select {
		case chunks <- chunk:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := stream.Err(); err != nil {
		return fmt.Errorf("reading openai stream: %w", err)
	}
	return nil
}

func toParams(req *llm.ChatRequest) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		text := msg.GetText()
		switch msg.Role {
		case llm.RoleSystem:
			messages = append(messages, openai.SystemMessage(text))
		case llm.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(text))
		default:
			messages = append(messages, openai.UserMessage(text))
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages: openai.F(messages),
		Model:    openai.F(req.Model),
	}
	if req.Temperature != nil {
		params.Temperature = openai.F(*req.Temperature)
	}
	if req.MaxTokens != nil {
		params.MaxTokens = openai.F(int64(*req.MaxTokens))
	}
	return params
}
