// Package templates renders deployment snippets for a hooknotify listener.
//
// Built-in templates can be overridden by files named <name>.template in
// ./templates, ./config/templates or /etc/hooknotify/templates.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
)

// Template names
const (
	SystemdService = "systemd-service"
	NginxLocation  = "nginx-location"
)

//go:embed builtin/*.template
var builtin embed.FS

// Data holds the values available to templates
type Data struct {
	Binary     string
	ConfigPath string
	User       string
	WorkingDir string
	Host       string
	Port       int
	Endpoint   string
}

// GetTemplatePaths returns the override locations for a template
func GetTemplatePaths(name string) []string {
	filename := name + ".template"
	return []string{
		filepath.Join(".", "templates", filename),
		filepath.Join(".", "config", "templates", filename),
		filepath.Join("/etc", "hooknotify", "templates", filename),
	}
}

// GetTemplate returns the raw template, preferring an override file
func GetTemplate(name string) (string, error) {
	if !ValidateTemplate(name) {
		return "", fmt.Errorf("unknown template: %s", name)
	}

	for _, path := range GetTemplatePaths(name) {
		if content, err := os.ReadFile(path); err == nil {
			return string(content), nil
		}
	}

	content, err := builtin.ReadFile("builtin/" + name + ".template")
	if err != nil {
		return "", fmt.Errorf("template %s not found: %w", name, err)
	}
	return string(content), nil
}

// Render executes the named template with data
func Render(name string, data Data) (string, error) {
	content, err := GetTemplate(name)
	if err != nil {
		return "", err
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(content)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	return buf.String(), nil
}

// ListTemplates returns the available template names, sorted
func ListTemplates() []string {
	entries, err := builtin.ReadDir("builtin")
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".template"))
	}
	sort.Strings(names)
	return names
}

// ValidateTemplate reports whether name is a known template
func ValidateTemplate(name string) bool {
	for _, n := range ListTemplates() {
		if n == name {
			return true
		}
	}
	return false
}
