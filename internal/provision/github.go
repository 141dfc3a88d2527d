// Package provision registers the listener as a repository webhook on GitHub.
package provision

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// DefaultEvents are subscribed when none are given
var DefaultEvents = []string{"push"}

// HookRequest describes the webhook to ensure on a repository
type HookRequest struct {
	OwnerRepo string // "owner/repo"
	URL       string
	Secret    string
	Events    []string
	Insecure  bool
}

// Result reports what EnsureHook did
type Result struct {
	ID      int64
	Created bool
}

// GitHub provisions repository webhooks
type GitHub struct {
	client *github.Client
}

// NewGitHub creates a client authenticated with token.
// baseURL selects a GitHub Enterprise API; empty means github.com.
func NewGitHub(ctx context.Context, token, baseURL string) (*GitHub, error) {
	if token == "" {
		return nil, errors.New("GitHub token is required")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return newGitHub(oauth2.NewClient(ctx, ts), baseURL)
}

func newGitHub(httpClient *http.Client, baseURL string) (*GitHub, error) {
	client := github.NewClient(httpClient)
	if baseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub URL: %w", err)
		}
	}
	return &GitHub{client: client}, nil
}

// EnsureHook creates the webhook unless one with the same URL exists
func (g *GitHub) EnsureHook(ctx context.Context, req HookRequest) (*Result, error) {
	owner, repo, err := splitOwnerRepo(req.OwnerRepo)
	if err != nil {
		return nil, err
	}
	if req.URL == "" {
		return nil, errors.New("webhook URL is required")
	}

	existing, err := g.findHook(ctx, owner, repo, req.URL)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &Result{ID: existing.GetID()}, nil
	}

	events := req.Events
	if len(events) == 0 {
		events = DefaultEvents
	}

	insecureSSL := "0"
	if req.Insecure {
		insecureSSL = "1"
	}

	hookConfig := map[string]interface{}{
		"url":          req.URL,
		"content_type": "json",
		"insecure_ssl": insecureSSL,
	}
	if req.Secret != "" {
		hookConfig["secret"] = req.Secret
	}

	hook, _, err := g.client.Repositories.CreateHook(ctx, owner, repo, &github.Hook{
		Events: events,
		Active: github.Bool(true),
		Config: hookConfig,
	})
	if err != nil {
		return nil, fmt.Errorf("creating webhook: %w", err)
	}

	return &Result{ID: hook.GetID(), Created: true}, nil
}

// findHook pages through the repository hooks looking for url
func (g *GitHub) findHook(ctx context.Context, owner, repo, url string) (*github.Hook, error) {
	opts := &github.ListOptions{PerPage: 100}
	for {
		hooks, resp, err := g.client.Repositories.ListHooks(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing webhooks: %w", err)
		}

		for _, hook := range hooks {
			if hookURL, ok := hook.Config["url"].(string); ok && hookURL == url {
				return hook, nil
			}
		}

		if resp == nil || resp.NextPage == 0 {
			return nil, nil
		}
		opts.Page = resp.NextPage
	}
}

func splitOwnerRepo(ownerRepo string) (string, string, error) {
	parts := strings.Split(ownerRepo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid owner/repo format: %s", ownerRepo)
	}
	return parts[0], parts[1], nil
}
