// Package spam holds the two comment spam filters: the Akismet service and
// the arithmetic question.
package spam

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrInvalidKey is returned by VerifyKey for a rejected API key.
var ErrInvalidKey = errors.New("akismet: invalid api key")

// Comment is what Akismet is told about a post.
type Comment struct {
	UserIP    string
	UserAgent string
	Referrer  string
	Permalink string
	Author    string
	Email     string
	Content   string
}

func (c Comment) values(key, site string) url.Values {
	v := url.Values{
		"api_key":         {key},
		"blog":            {site},
		"user_ip":         {c.UserIP},
		"user_agent":      {c.UserAgent},
		"comment_type":    {"comment"},
		"comment_author":  {c.Author},
		"comment_content": {c.Content},
	}
	if c.Referrer != "" {
		v.Set("referrer", c.Referrer)
	}
	if c.Permalink != "" {
		v.Set("permalink", c.Permalink)
	}
	if c.Email != "" {
		v.Set("comment_author_email", c.Email)
	}
	return v
}

// Akismet is a client for the Akismet REST API.
type Akismet struct {
	Key      string
	Site     string
	Endpoint string
	HTTP     *http.Client
}

// NewAkismet returns a client for key, reporting comments from site.
func NewAkismet(key, site, endpoint string) *Akismet {
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	return &Akismet{
		Key:      key,
		Site:     site,
		Endpoint: endpoint,
		HTTP:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *Akismet) call(ctx context.Context, method string, form url.Values) (string, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.Endpoint+method, strings.NewReader(form.Encode()))
	if err != nil {
		return "", nil, fmt.Errorf("akismet %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "folio/1.0 | akismet")

	resp, err := a.HTTP.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("akismet %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", nil, fmt.Errorf("akismet %s: read response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("akismet %s: unexpected status %d", method, resp.StatusCode)
	}
	return strings.TrimSpace(string(body)), resp.Header, nil
}

// VerifyKey checks the API key against the site.
func (a *Akismet) VerifyKey(ctx context.Context) error {
	body, _, err := a.call(ctx, "verify-key", url.Values{"key": {a.Key}, "api_key": {a.Key}, "blog": {a.Site}})
	if err != nil {
		return err
	}
	if body != "valid" {
		return ErrInvalidKey
	}
	return nil
}

// CheckComment reports whether Akismet thinks c is spam.
func (a *Akismet) CheckComment(ctx context.Context, c Comment) (bool, error) {
	body, header, err := a.call(ctx, "comment-check", c.values(a.Key, a.Site))
	if err != nil {
		return false, err
	}
	switch body {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	if debug := header.Get("X-akismet-debug-help"); debug != "" {
		return false, fmt.Errorf("akismet comment-check: %s", debug)
	}
	return false, fmt.Errorf("akismet comment-check: unexpected response %q", body)
}

// SubmitSpam reports a comment Akismet missed.
func (a *Akismet) SubmitSpam(ctx context.Context, c Comment) error {
	_, _, err := a.call(ctx, "submit-spam", c.values(a.Key, a.Site))
	return err
}

// SubmitHam reports a comment Akismet wrongly flagged.
func (a *Akismet) SubmitHam(ctx context.Context, c Comment) error {
	_, _, err := a.call(ctx, "submit-ham", c.values(a.Key, a.Site))
	return err
}
