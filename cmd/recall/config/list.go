package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/config"
)

const listLongDesc string = `List all configuration values.

Prints every key grouped by section (server, model, memory, prompt,
events, client) with the value recall serve and the client commands
would use. Credentials are masked unless --reveal is given.

Examples:
  recall config list
  recall config list --reveal`

const listShortDesc string = "List all configuration values"

func newListCmd() *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runList(configDir, reveal)
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print credentials unmasked")

	return cmd
}

func runList(configDir string, reveal bool) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if target := cfger.GetTarget(); target != "" {
		fmt.Printf("\n  %s %s\n", cliui.KeyStyle.Render("Config file:"), cliui.DimStyle.Render(target))
	} else {
		fmt.Printf("\n  %s\n", cliui.DimStyle.Render("No .recall/ directory found. Showing defaults."))
	}

	keys := config.ValidConfigKeys()

	maxLen := 0
	for _, k := range keys {
		maxLen = max(maxLen, len(k))
	}

	section := ""
	for _, key := range keys {
		if s := config.Section(key); s != section {
			section = s
			fmt.Printf("\n  %s\n", cliui.HeaderStyle.Render("["+section+"]"))
		}

		value, err := cfger.GetConfigValue(key)
		if err != nil {
			return err
		}

		fmt.Printf("    %-*s  %s\n", maxLen, key, displayValue(key, value, reveal))
	}

	fmt.Println()
	return nil
}
