package main

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"hooknotify/pkg/config"
	"hooknotify/pkg/templates"

	"github.com/spf13/cobra"
)

var templateCmd = &cobra.Command{
	Use:   "template NAME",
	Short: "Render a deployment snippet for this configuration",
	Long: fmt.Sprintf(`Render a deployment snippet filled in from the configuration.

Available templates: %s`, strings.Join(templates.ListTemplates(), ", ")),
	Args:      cobra.ExactArgs(1),
	ValidArgs: templates.ListTemplates(),
	RunE:      runTemplate,
}

func runTemplate(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	settings, err := config.DecodeListener(cfg)
	if err != nil {
		return err
	}

	data := templates.Data{
		Binary:     "hooknotify",
		ConfigPath: path,
		Host:       settings.Host,
		Port:       settings.Port,
		Endpoint:   settings.Endpoint,
	}
	if exe, err := os.Executable(); err == nil {
		data.Binary = exe
	}
	if path != "" {
		if abs, err := filepath.Abs(path); err == nil {
			data.ConfigPath = abs
		}
	}
	if wd, err := os.Getwd(); err == nil {
		data.WorkingDir = wd
	}
	if u, err := user.Current(); err == nil {
		data.User = u.Username
	}

	rendered, err := templates.Render(args[0], data)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), rendered)
	return nil
}
