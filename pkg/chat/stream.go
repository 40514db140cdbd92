package chat

import (
	"context"
	"strings"

	"github.com/papercomputeco/recall/pkg/llm"
)

// Stream is a lazily produced sequence of completion text fragments.
// Fragments are delivered on an unbuffered channel, so a slow reader holds
// back the provider.
type Stream struct {
	content chan string
	cancel  context.CancelFunc

	// written before content is closed
	err error
}

// Content returns the fragment channel. It is closed when the completion
// finishes, fails or is cancelled.
func (s *Stream) Content() <-chan string {
	return s.content
}

// Err returns the terminal error. Only valid once Content has been closed.
func (s *Stream) Err() error {
	return s.err
}

// Close stops the completion and waits for the producer to finish.
// Close is safe to call after the stream has been drained.
func (s *Stream) Close() {
	s.cancel()
	for range s.content {
	}
}

// Collect drains the stream and returns the concatenated text.
func (s *Stream) Collect() (string, error) {
	var b strings.Builder
	for fragment := range s.content {
		b.WriteString(fragment)
	}
	return b.String(), s.err
}

func (s *Stream) relay(
	ctx context.Context,
	r *Request,
	advised *AdvisedRequest,
	chunks <-chan llm.StreamChunk,
	produced <-chan error,
) {
	defer close(s.content)
	defer s.cancel()

	var (
		text       strings.Builder
		model      string
		stopReason string
		usage      *llm.Usage
		stopped    bool
	)

	// Keep draining after the reader goes away so the producer can exit.
	for chunk := range chunks {
		if chunk.Model != "" {
			model = chunk.Model
		}
		if chunk.StopReason != "" {
			stopReason = chunk.StopReason
		}
		if chunk.Usage != nil {
			usage = chunk.Usage
		}

		fragment := chunk.Message.GetText()
		if fragment == "" || stopped {
			continue
		}
		text.WriteString(fragment)

		select {
		case s.content <- fragment:
		case <-ctx.Done():
			stopped = true
		}
	}

	err := <-produced
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		r.client.logger.Debug("chat stream ended with error",
			"provider", r.client.provider.Name(),
			"conversation_id", advised.Params.ConversationID,
			"error", err,
		)
		s.err = err
		return
	}

	resp := &llm.ChatResponse{
		Model:      model,
		Message:    llm.NewTextMessage(llm.RoleAssistant, text.String()),
		Done:       true,
		StopReason: stopReason,
		Usage:      usage,
	}
	s.err = r.after(ctx, advised, resp)
}
