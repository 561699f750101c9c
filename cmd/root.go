package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

var (
	configPath string
	backendURL string
	verbose    bool
)

// rootCmd starts the terminal client when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "slash",
	Short: "Slash Messenger terminal client",
	Long: `Slash Messenger in your terminal: sign in, find people by name,
username or phone, chat one-to-one, and, for administrators, manage accounts
and export backups.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

// Execute runs the CLI. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default is $HOME/.slash/config.yml)")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "messaging service URL (overrides config and SLASH_BACKEND_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr (ignored by the interactive client)")
}
