// Package recallcmder
package recallcmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/recall/cmd/recall/ask"
	authcmder "github.com/papercomputeco/recall/cmd/recall/auth"
	chatcmder "github.com/papercomputeco/recall/cmd/recall/chat"
	configcmder "github.com/papercomputeco/recall/cmd/recall/config"
	initcmder "github.com/papercomputeco/recall/cmd/recall/init"
	servecmder "github.com/papercomputeco/recall/cmd/recall/serve"
	versioncmder "github.com/papercomputeco/recall/cmd/version"
)

const recallLongDesc string = `recall serves chat completions with swappable conversation memory.

Run the server and talk to it using:
  recall serve         Run the HTTP server
  recall chat          Interactive chat with conversation memory
  recall ask           Ask a question through the prompt-stuffing endpoint
  recall config        Manage persistent configuration
  recall auth          Store model provider API keys`

const recallShortDesc string = "recall - chat with memory"

func NewRecallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "recall",
		Short:        recallShortDesc,
		Long:         recallLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .recall/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
