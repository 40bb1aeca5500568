// Package commands implements the iobufs CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/iobufs/cmd/iobufs/commands/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "iobufs",
	Short: "iobufs - pooled I/O buffers",
	Long: `iobufs exercises a pool of reusable header, body and other-sized I/O
buffers backed by heap or direct (off-heap) memory.

Configuration is read from $XDG_CONFIG_HOME/iobufs/config.yaml (or --config)
and IOBUFS_* environment variables, e.g. IOBUFS_POOL_DIRECT_BUDGET=40KiB.
A .env file in the working directory is loaded first.

Use "iobufs [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/iobufs/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(soakCmd)
	rootCmd.AddCommand(countersCmd)
	rootCmd.AddCommand(config.Cmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
