package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev" // set during build

var rootCmd = &cobra.Command{
	Use:   "hooknotify",
	Short: "Webhook listener that notifies a consumer",
	Long: `hooknotify listens for webhook requests on a single endpoint and hands every
accepted request to a consumer, either an external command or the log.

Configuration is read from hooknotify.yml and merged over the built-in defaults.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", getEnvOrDefault("HOOKNOTIFY_CONFIG_FILE", ""), "Path to hooknotify.yml")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(githubHookCmd)
	rootCmd.AddCommand(secretCmd)
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(versionCmd)
}
