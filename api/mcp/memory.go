package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/recall/pkg/chat"
	"github.com/papercomputeco/recall/pkg/memory"
)

var (
	memoryRecallToolName    = "memory_recall"
	memoryRecallDescription = "Recall the stored turns of a recall conversation. Given a memory backend (in-memory, sqlite, redis, postgres) and a chat ID, returns the most recent turns oldest first. Use this to see what was said earlier in a conversation."
)

// MemoryRecallInput represents the input arguments for the MCP memory_recall tool.
type MemoryRecallInput struct {
	Backend string `json:"backend" jsonschema:"the memory backend holding the conversation, e.g. sqlite or redis"`
	ChatID  string `json:"chat_id" jsonschema:"the conversation identifier"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of turns to return, defaults to 100"`
}

// RecalledTurn is a single conversation turn in tool output.
type RecalledTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// MemoryRecallOutput represents the structured output of a memory recall.
type MemoryRecallOutput struct {
	Backend string         `json:"backend"`
	ChatID  string         `json:"chat_id"`
	Turns   []RecalledTurn `json:"turns"`
}

// handleMemoryRecall processes a memory recall request via MCP.
func (s *Server) handleMemoryRecall(ctx context.Context, _ *mcp.CallToolRequest, input MemoryRecallInput) (*mcp.CallToolResult, MemoryRecallOutput, error) {
	if input.ChatID == "" {
		return toolError("chat_id is required"), MemoryRecallOutput{}, nil
	}

	factory, ok := s.config.Backends[input.Backend]
	if !ok {
		err := &memory.UnknownBackendError{Backend: input.Backend}
		return toolError(err.Error()), MemoryRecallOutput{}, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = chat.DefaultRetrieveSize
	}

	history, err := factory().Retrieve(ctx, input.ChatID, limit)
	if err != nil {
		s.config.Logger.Error("memory recall failed",
			"backend", input.Backend,
			"chat_id", input.ChatID,
			"error", err,
		)
		return toolError(fmt.Sprintf("Memory recall failed: %v", err)), MemoryRecallOutput{}, nil
	}

	turns := make([]RecalledTurn, 0, len(history))
	for _, msg := range history {
		turns = append(turns, RecalledTurn{Role: msg.Role, Text: msg.GetText()})
	}

	output := MemoryRecallOutput{
		Backend: input.Backend,
		ChatID:  input.ChatID,
		Turns:   turns,
	}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return toolError(fmt.Sprintf("Failed to serialize results: %v", err)), MemoryRecallOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
