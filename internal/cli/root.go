// Package cli wires the command surface: setup, teardown, status and invoke.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/agentrig/agentrig/internal/config"
	"github.com/agentrig/agentrig/internal/logging"
)

var (
	flagConfig   string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "agentrig",
	Short: "Staged provisioning for agent infrastructure",
	Long: `Agentrig provisions the chain of resources an agent deployment needs
(execution role, OAuth authorizer, protected endpoint, gateway, memory store),
persisting progress after every step so an interrupted run resumes exactly
where it stopped, and tears everything down in reverse dependency order.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(flagLogLevel)
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", config.DefaultFileName, "Path to the project configuration file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(teardownCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(invokeCmd)
	rootCmd.AddCommand(versionCmd)
}
