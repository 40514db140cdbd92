// Package chatcmder provides the chat command, an interactive client for a
// recall server's chat-memory endpoints.
package chatcmder

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/api"
	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/dotdir"
	"github.com/papercomputeco/recall/pkg/llm"
	"github.com/papercomputeco/recall/pkg/logger"
)

type chatCommander struct {
	apiTarget  string
	backend    string
	chatID     string
	newSession bool
	configDir  string
	debug      bool

	backendChanged bool

	in     io.Reader
	out    io.Writer
	client *http.Client
	logger *slog.Logger
}

const chatLongDesc string = `Start an interactive chat session against a running recall server.

Each message is sent to /chat-memory/<backend> and the reply is streamed back
as it is generated. The server keeps the conversation history in the chosen
memory backend, keyed by a conversation ID. The ID is saved in
.recall/session.json so the next "recall chat" resumes the same conversation.

Commands inside the session:
  /history  show the turns stored for this conversation
  /forget   clear the stored turns
  /new      start a new conversation
  /exit     quit (Ctrl+D also works)

Examples:
  recall chat
  recall chat --backend redis
  recall chat --chat-id support-42 --api-target http://localhost:8080`

const chatShortDesc string = "Interactive chat with server-side memory"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.ClientFlags, []string{config.FlagAPITarget})
			cmder.apiTarget = config.FromViper(v).Client.APITarget
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.backendChanged = cmd.Flags().Changed("backend")
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.ClientFlags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().StringVarP(&cmder.backend, "backend", "b", api.BackendSQLite,
		"Memory backend (in-memory, sqlite, redis, postgres)")
	cmd.Flags().StringVar(&cmder.chatID, "chat-id", "", "Conversation ID to use instead of the saved session")
	cmd.Flags().BoolVar(&cmder.newSession, "new", false, "Start a new conversation")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true), logger.WithComponent("chat-cli"))
	if c.client == nil {
		// LLM responses can be slow
		c.client = &http.Client{Timeout: 5 * time.Minute}
	}
	c.apiTarget = strings.TrimRight(c.apiTarget, "/")

	manager := dotdir.NewManager()
	resumed, err := c.resolveSession(manager)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out)
	if resumed {
		fmt.Fprintf(c.out, "  %s Resuming conversation %s\n", cliui.SuccessMark, cliui.ValueStyle.Render(c.chatID))
	} else {
		fmt.Fprintf(c.out, "  %s New conversation %s\n", cliui.DimStyle.Render("●"), cliui.ValueStyle.Render(c.chatID))
	}
	fmt.Fprintf(c.out, "  %s %s\n\n", cliui.KeyStyle.Render("Backend:"), cliui.ValueStyle.Render(c.backend))
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(c.in)
	for {
		fmt.Fprint(c.out, cliui.RoleStyle.Render("you> "))
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/exit":
			fmt.Fprintln(c.out)
			return nil
		case "/new":
			c.chatID = uuid.NewString()
			if err := c.saveSession(manager); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "  %s New conversation %s\n\n", cliui.DimStyle.Render("●"), cliui.ValueStyle.Render(c.chatID))
			continue
		case "/history":
			if err := c.printHistory(ctx); err != nil {
				fmt.Fprintf(c.out, "  %s %v\n\n", cliui.FailMark, err)
			}
			continue
		case "/forget":
			if err := c.forget(ctx); err != nil {
				fmt.Fprintf(c.out, "  %s %v\n\n", cliui.FailMark, err)
			} else {
				fmt.Fprintf(c.out, "  %s Conversation cleared\n\n", cliui.SuccessMark)
			}
			continue
		}

		if err := c.sendAndStream(ctx, input); err != nil {
			fmt.Fprintf(c.out, "  %s %v\n\n", cliui.FailMark, err)
			continue
		}
		fmt.Fprint(c.out, "\n\n")
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out)
	return nil
}

// resolveSession picks the conversation ID: an explicit --chat-id, a fresh one
// for --new, or the saved session. It reports whether a saved session was
// resumed and persists the choice.
func (c *chatCommander) resolveSession(manager *dotdir.Manager) (bool, error) {
	resumed := false

	switch {
	case c.chatID != "":
	case c.newSession:
		c.chatID = uuid.NewString()
	default:
		session, err := manager.LoadSession(c.configDir)
		if err != nil {
			return false, fmt.Errorf("loading session: %w", err)
		}

		if session != nil && session.ConversationID != "" {
			c.chatID = session.ConversationID
			if !c.backendChanged && session.Backend != "" {
				c.backend = session.Backend
			}
			resumed = true
		} else {
			c.chatID = uuid.NewString()
		}
	}

	return resumed, c.saveSession(manager)
}

func (c *chatCommander) saveSession(manager *dotdir.Manager) error {
	err := manager.SaveSession(&dotdir.SessionState{
		ConversationID: c.chatID,
		Backend:        c.backend,
	}, c.configDir)
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// sendAndStream sends one prompt and copies the streamed reply to the output
// as it arrives.
func (c *chatCommander) sendAndStream(ctx context.Context, prompt string) error {
	q := url.Values{}
	q.Set("prompt", prompt)
	q.Set("chatId", c.chatID)
	target := fmt.Sprintf("%s/chat-memory/%s?%s", c.apiTarget, url.PathEscape(c.backend), q.Encode())

	c.logger.Debug("sending chat request",
		"backend", c.backend,
		"chat_id", c.chatID,
	)

	resp, err := c.do(ctx, http.MethodGet, target)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return responseError(resp)
	}

	fmt.Fprint(c.out, cliui.RoleStyle.Render("assistant> "))
	if _, err := io.Copy(c.out, resp.Body); err != nil {
		return fmt.Errorf("reading stream: %w", err)
	}
	return nil
}

func (c *chatCommander) printHistory(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, c.historyURL())
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return responseError(resp)
	}

	var history api.HistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		return fmt.Errorf("decoding history: %w", err)
	}

	if history.Count == 0 {
		fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("No stored turns."))
		return nil
	}

	for i := range history.Turns {
		turn := &history.Turns[i]
		fmt.Fprintln(c.out, cliui.Turn(turn.Role, turn.GetText()))
	}
	fmt.Fprintln(c.out)
	return nil
}

func (c *chatCommander) forget(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodDelete, c.historyURL())
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return responseError(resp)
	}
	return nil
}

func (c *chatCommander) historyURL() string {
	q := url.Values{}
	q.Set("chatId", c.chatID)
	return fmt.Sprintf("%s/chat-memory/%s/history?%s", c.apiTarget, url.PathEscape(c.backend), q.Encode())
}

func (c *chatCommander) do(ctx context.Context, method, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request to recall server: %w", err)
	}
	return resp, nil
}

// responseError turns a non-success response into an error, preferring the
// server's JSON error message.
func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp llm.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return fmt.Errorf("recall server returned status %d: %s", resp.StatusCode, errResp.Error)
	}
	return fmt.Errorf("recall server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
