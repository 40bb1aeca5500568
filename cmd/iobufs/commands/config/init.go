package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/iobufs/internal/cli/prompt"
	"github.com/marmos91/iobufs/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a configuration file with every default spelled out.

Examples:
  # Default location ($XDG_CONFIG_HOME/iobufs/config.yaml)
  iobufs config init

  # Custom location, replacing an existing file
  iobufs config init --config ./iobufs.yaml --force`,
	RunE: runConfigInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")

	configPath := configFile
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	force := initForce
	if _, err := os.Stat(configPath); err == nil && !force {
		ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Overwrite %s", configPath), false)
		if err != nil {
			return err
		}
		force = ok
	}

	if err := config.InitConfigToPath(configPath, force); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Edit pool.header, pool.body and pool.direct_budget to taste")
	_, _ = fmt.Fprintf(out, "  2. Run a load test: iobufs soak --config %s\n", configPath)
	return nil
}
