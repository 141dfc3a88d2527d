package main

import (
	"fmt"
	"strings"

	"hooknotify/internal/provision"
	"hooknotify/pkg/config"

	"github.com/spf13/cobra"
)

var (
	hookURL      string
	hookEvents   []string
	githubToken  string
	githubAPIURL string
	hookInsecure bool
)

var githubHookCmd = &cobra.Command{
	Use:   "github-hook OWNER/REPO",
	Short: "Register the listener as a GitHub repository webhook",
	Long: `Create a repository webhook pointing at the listener unless one with the same
URL already exists. listener.secret is used as the webhook secret.

Example:
  hooknotify github-hook acme/app --url https://hooks.example.com/webhook`,
	Args: cobra.ExactArgs(1),
	RunE: runGitHubHook,
}

func init() {
	githubHookCmd.Flags().StringVar(&hookURL, "url", "", "Public URL of the webhook endpoint (required)")
	githubHookCmd.Flags().StringSliceVar(&hookEvents, "events", provision.DefaultEvents, "Events to subscribe to")
	githubHookCmd.Flags().StringVar(&githubToken, "token", getEnvOrDefault("GITHUB_TOKEN", ""), "GitHub token with admin:repo_hook scope")
	githubHookCmd.Flags().StringVar(&githubAPIURL, "api-url", getEnvOrDefault("GITHUB_API_URL", ""), "GitHub Enterprise base URL")
	githubHookCmd.Flags().BoolVar(&hookInsecure, "insecure-ssl", false, "Let GitHub skip TLS verification")
	githubHookCmd.MarkFlagRequired("url")
}

func runGitHubHook(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	secret := cfg.String(config.ListenerKey + ".secret")
	if secret == "" {
		fmt.Fprintln(cmd.ErrOrStderr(), "Warning: listener.secret is not set, the webhook will be unsigned")
	}

	gh, err := provision.NewGitHub(cmd.Context(), githubToken, githubAPIURL)
	if err != nil {
		return err
	}

	result, err := gh.EnsureHook(cmd.Context(), provision.HookRequest{
		OwnerRepo: args[0],
		URL:       hookURL,
		Secret:    secret,
		Events:    hookEvents,
		Insecure:  hookInsecure,
	})
	if err != nil {
		return err
	}

	if result.Created {
		fmt.Fprintf(cmd.OutOrStdout(), "Created webhook %d on %s for %s (%s)\n", result.ID, args[0], hookURL, strings.Join(hookEvents, ", "))
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Webhook %d already exists on %s\n", result.ID, args[0])
	}
	return nil
}
