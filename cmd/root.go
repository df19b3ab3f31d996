package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "aquabot",
	Short: "Slack bot that answers when it is addressed",
	Long: `aquabot keeps a socket-mode connection to Slack, watches messages that
mention it (or arrive in a direct message), and answers through a small
table of pattern-matched commands.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default: $AQUA_CONFIG, ./config.json, ./config/config.json)")
}
