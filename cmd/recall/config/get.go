package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/config"
)

const getLongDesc string = `Get a configuration value.

Reads the value for the given key from config.toml in the .recall/
directory, falling back to the built-in default. Credentials
(model.api_key, memory.redis_password, memory.postgres_dsn) are masked
unless --reveal is given.

Examples:
  recall config get model.provider
  recall config get memory.sqlite_path
  recall config get memory.redis_addr
  recall config get model.api_key --reveal`

const getShortDesc string = "Get a configuration value"

func newGetCmd() *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: getShortDesc,
		Long:  getLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runGet(args[0], configDir, reveal)
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print credentials unmasked")

	return cmd
}

func runGet(key, configDir string, reveal bool) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if target := cfger.GetTarget(); target != "" {
		fmt.Printf("\n  %s %s\n\n", cliui.KeyStyle.Render("Config file:"), cliui.DimStyle.Render(target))
	} else {
		fmt.Printf("\n  %s\n\n", cliui.DimStyle.Render("No .recall/ directory found. Showing defaults."))
	}

	value, err := cfger.GetConfigValue(key)
	if err != nil {
		return err
	}

	fmt.Printf("  %s  %s\n\n", cliui.KeyStyle.Render(key), displayValue(key, value, reveal))
	return nil
}

// displayValue styles a value for output, masking credentials unless reveal.
func displayValue(key, value string, reveal bool) string {
	switch {
	case value == "":
		return cliui.DimStyle.Render("<not set>")
	case config.IsSecretKey(key) && !reveal:
		return cliui.WarnStyle.Render(config.MaskSecret(value))
	default:
		return cliui.ValueStyle.Render(value)
	}
}
