package main

import (
	"fmt"
	"os"

	"hooknotify/internal/security"
	"hooknotify/pkg/cmdutil"
	"hooknotify/pkg/config"

	"github.com/spf13/cobra"
)

var strictSecret bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration file",
	Long: `Load the configuration, merge it over the defaults and validate every section
without binding a port.

A weak listener.secret is reported as a warning, or as an error with --strict.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&strictSecret, "strict", false, "Treat a weak secret as an error")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	listenerSettings, err := config.DecodeListener(cfg)
	if err != nil {
		return err
	}
	consumerSettings, err := config.DecodeConsumer(cfg)
	if err != nil {
		return err
	}
	journalSettings, err := config.DecodeJournal(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration: %s\n", displayPath(path))
	fmt.Fprintf(out, "  Listener:  %s:%d%s %v\n", listenerSettings.Host, listenerSettings.Port, listenerSettings.Endpoint, listenerSettings.Methods)

	if consumerSettings.Exec != nil {
		command, err := cmdutil.ParseCommandList(consumerSettings.Exec)
		if err != nil {
			return fmt.Errorf("invalid consumer.exec: %w", err)
		}
		fmt.Fprintf(out, "  Consumer:  %s (timeout %ds)\n", cmdutil.FormatCommand(command), consumerSettings.Timeout)
	} else {
		fmt.Fprintf(out, "  Consumer:  log\n")
	}

	if journalSettings.Path != "" {
		fmt.Fprintf(out, "  Journal:   %s\n", journalSettings.Path)
	}

	switch {
	case listenerSettings.Secret == "":
		fmt.Fprintf(out, "  Signature: disabled\n")
	default:
		fmt.Fprintf(out, "  Signature: %s\n", listenerSettings.SignatureHeader)
		if err := security.ValidateSecret(listenerSettings.Secret); err != nil {
			if strictSecret {
				return fmt.Errorf("listener.secret: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Warning: listener.secret: %v\n", err)
		}
	}

	fmt.Fprintln(out, "OK")
	return nil
}
