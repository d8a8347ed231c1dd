// Package contrib fetches contributor statistics for a hosted repository.
// Anonymous operation is deliberate: without an auth token no request is
// ever attempted, since unauthenticated quota evaporates instantly at the
// batch sizes this tool runs at.
package contrib

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fulmenhq/pkgscout/pkg/logger"
)

// Contributor is one row of the contributor table. Anonymous contributors
// carry a name instead of a login and have no ID.
type Contributor struct {
	Login         string `json:"login"`
	ID            int64  `json:"id"`
	Type          string `json:"type"`
	Contributions int    `json:"contributions"`
}

// Fetcher abstracts HTTP for testability. The production fetcher in the
// acquire package satisfies it.
type Fetcher interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client queries the forge contributors API.
type Client struct {
	fetcher Fetcher
	token   string
	// delay is an optional politeness pause before each request, to stay
	// clear of upstream rate limits. Not a correctness mechanism.
	delay time.Duration
}

// NewClient builds a contributor client. An empty token produces a client
// that always returns an empty list.
func NewClient(fetcher Fetcher, token string, delay time.Duration) *Client {
	return &Client{fetcher: fetcher, token: token, delay: delay}
}

// Contributors returns contribution counts for a "user/repo" slug. With no
// auth token configured it returns an empty list without touching the
// network.
func (c *Client) Contributors(ctx context.Context, slug string) ([]Contributor, error) {
	if c.token == "" {
		return nil, nil
	}
	if strings.Count(slug, "/") != 1 {
		return nil, fmt.Errorf("invalid repository slug %q", slug)
	}

	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	url := fmt.Sprintf("https://api.github.com/repos/%s/contributors?anon=1&per_page=100", slug)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build contributors request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.fetcher.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contributors request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("contributors request for %s: HTTP %d", slug, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read contributors response: %w", err)
	}

	var raw []struct {
		Login         string `json:"login"`
		Name          string `json:"name"`
		ID            int64  `json:"id"`
		Type          string `json:"type"`
		Contributions int    `json:"contributions"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse contributors response: %w", err)
	}

	out := make([]Contributor, 0, len(raw))
	for _, r := range raw {
		login := r.Login
		if login == "" {
			login = r.Name
		}
		out = append(out, Contributor{
			Login:         login,
			ID:            r.ID,
			Type:          r.Type,
			Contributions: r.Contributions,
		})
	}
	logger.Debug("fetched contributors", logger.String("slug", slug), logger.Int("count", len(out)))
	return out, nil
}

// SlugFromURL extracts "owner/repo" from a github.com repository URL.
// Returns false for other hosts.
func SlugFromURL(repoURL string) (string, bool) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(repoURL), "/")
	trimmed = strings.TrimSuffix(trimmed, ".git")

	for _, prefix := range []string{"https://github.com/", "http://github.com/", "git://github.com/", "git@github.com:"} {
		if rest, found := strings.CutPrefix(trimmed, prefix); found {
			parts := strings.Split(rest, "/")
			if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
				return "", false
			}
			return parts[0] + "/" + parts[1], true
		}
	}
	return "", false
}
