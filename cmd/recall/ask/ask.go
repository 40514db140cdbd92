// Package askcmder provides the ask command, a client for the recall server's
// prompt-stuffing endpoint.
package askcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/api"
	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/llm"
)

type askCommander struct {
	apiTarget string
	stuff     bool
	raw       bool

	out    io.Writer
	client *http.Client
}

const askLongDesc string = `Ask a question through the recall server's prompt-stuffing endpoint.

The question is rendered into the server's QA prompt template. With --stuff
the reference document is placed into the template's context, otherwise the
context is left empty. Without a question the server's default question is
used.

The answer is rendered as markdown when writing to a terminal. Use --raw to
print it as-is.

Examples:
  recall ask
  recall ask --stuff "Which athletes won the mixed doubles gold medal in curling?"
  recall ask --raw "Who won?" --api-target http://localhost:8080`

const askShortDesc string = "Ask a question with optional document stuffing"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.ClientFlags, []string{config.FlagAPITarget})
			cmder.apiTarget = config.FromViper(v).Client.APITarget
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			question := ""
			if len(args) == 1 {
				question = args[0]
			}

			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context(), question)
		},
	}

	config.AddStringFlag(cmd, config.ClientFlags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().BoolVar(&cmder.stuff, "stuff", false, "Stuff the reference document into the prompt")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the answer without markdown rendering")

	return cmd
}

func (c *askCommander) run(ctx context.Context, question string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: 5 * time.Minute}
	}

	answer, err := c.ask(ctx, question)
	if err != nil {
		return err
	}

	if c.raw || !cliui.IsTerminal(c.out) {
		fmt.Fprintln(c.out, answer)
		return nil
	}

	rendered, err := cliui.RenderMarkdown(answer)
	if err != nil {
		rendered = answer + "\n"
	}
	fmt.Fprint(c.out, rendered)
	return nil
}

func (c *askCommander) ask(ctx context.Context, question string) (string, error) {
	q := url.Values{}
	if question != "" {
		q.Set("message", question)
	}
	q.Set("stuffit", strconv.FormatBool(c.stuff))
	target := fmt.Sprintf("%s/example/ai/stuff?%s", strings.TrimRight(c.apiTarget, "/"), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request to recall server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp llm.ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return "", fmt.Errorf("recall server returned status %d: %s", resp.StatusCode, errResp.Error)
		}
		return "", fmt.Errorf("recall server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out api.StuffResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return out.Text, nil
}
