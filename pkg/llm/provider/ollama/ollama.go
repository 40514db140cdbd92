package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/papercomputeco/recall/pkg/llm"
)

// DefaultBaseURL is the address of a local Ollama daemon.
const DefaultBaseURL = "http://localhost:11434"

// Provider implements the provider.Provider interface for Ollama's API.
type Provider struct {
	baseURL    string
	httpClient *http.Client
}

// New creates an Ollama provider. An empty baseURL falls back to DefaultBaseURL.
func New(baseURL string, httpClient *http.Client) *Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Provider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (p *Provider) Name() string {
	return "ollama"
}

func (p *Provider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	resp, err := p.post(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding ollama response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("ollama: %s", parsed.Error)
	}

	return &llm.ChatResponse{
		Model:      parsed.Model,
		CreatedAt:  parsed.CreatedAt,
		Message:    llm.NewTextMessage(llm.RoleAssistant, parsed.Message.Content),
		Done:       true,
		StopReason: parsed.DoneReason,
		Usage:      usage(parsed),
	}, nil
}

func (p *Provider) ChatStream(ctx context.Context, req *llm.ChatRequest, chunks chan<- llm.StreamChunk) error {
	resp, err := p.post(ctx, req, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var parsed ollamaResponse
		if err := json.Unmarshal(line, &parsed); err != nil {
			return fmt.Errorf("decoding ollama stream chunk: %w", err)
		}
		if parsed.Error != "" {
			return fmt.Errorf("ollama: %s", parsed.Error)
		}

		chunk := llm.StreamChunk{
			Model:      parsed.Model,
			CreatedAt:  parsed.CreatedAt,
			Message:    llm.NewTextMessage(llm.RoleAssistant, parsed.Message.Content),
			Done:       parsed.Done,
			StopReason: parsed.DoneReason,
		}
		if parsed.Done {
			chunk.Usage = usage(parsed)
		}

		select {
		case chunks <- chunk:
		case <-ctx.Done():
			return ctx.Err()
		}

		if parsed.Done {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading ollama stream: %w", err)
	}
	return errors.New("ollama stream ended before done")
}

func (p *Provider) post(ctx context.Context, req *llm.ChatRequest, stream bool) (*http.Response, error) {
	body, err := json.Marshal(toOllamaRequest(req, stream))
	if err != nil {
		return nil, fmt.Errorf("marshaling ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling ollama: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	return resp, nil
}

func toOllamaRequest(req *llm.ChatRequest, stream bool) ollamaRequest {
	messages := make([]ollamaMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, ollamaMessage{
			Role:    msg.Role,
			Content: msg.GetText(),
		})
	}

	out := ollamaRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   &stream,
	}
	if req.Temperature != nil || req.MaxTokens != nil {
		out.Options = &ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		}
	}
	return out
}

func usage(resp ollamaResponse) *llm.Usage {
	if resp.PromptEvalCount == 0 && resp.EvalCount == 0 {
		return nil
	}
	return &llm.Usage{
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
		TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
	}
}
