// Package scm talks to the source-control server over HTTP: fetching
// unified diffs for commits and merge requests, and best-effort author
// resolution. Grounded in the teacher's HTTP-client conventions (explicit
// timeouts, typed error classification) adapted from gRPC to plain REST,
// since the SCM transport here is an HTTP JSON/text API, not gRPC.
package scm

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/acme/codereviewd/pkg/apperr"
	"github.com/acme/codereviewd/pkg/config"
)

// maxResponseBytes caps how much of an SCM response body is read, per the
// 5 MiB ceiling the spec suggests. Bodies larger than this are truncated,
// not rejected.
const maxResponseBytes = 5 * 1024 * 1024

// Author is a best-effort resolution of a commit or merge-request author.
type Author struct {
	Name  string
	Email string // empty when only the display name could be resolved
}

// Client fetches diffs and author metadata from the source-control
// server. It is an interface so the Review Engine can be tested against a
// trivial in-process fake.
type Client interface {
	FetchCommitDiff(ctx context.Context, projectKey, repoSlug, commitID string) (string, error)
	FetchMergeRequestDiff(ctx context.Context, projectKey, repoSlug string, mrID int64) (string, error)
	FetchCommitAuthor(ctx context.Context, projectKey, repoSlug, commitID string) (Author, error)
	FetchMergeRequestAuthor(ctx context.Context, projectKey, repoSlug string, mrID int64) (Author, error)
}

// httpClient is the concrete Client backed by net/http.
type httpClient struct {
	baseURL string
	token   string
	hc      *http.Client
	logger  *slog.Logger
}

// New constructs a Client from the SCM section of the process
// configuration, wiring TLS verification and the custom CA bundle per
// scm.ssl_verify / scm.ca_bundle_path.
func New(cfg config.SCM) (Client, error) {
	transport := &http.Transport{}

	tlsConfig := &tls.Config{}
	if !cfg.SSLVerify {
		tlsConfig.InsecureSkipVerify = true
	}
	if cfg.CABundle != "" {
		pem, err := os.ReadFile(cfg.CABundle)
		if err != nil {
			return nil, fmt.Errorf("reading scm.ca_bundle_path: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("scm.ca_bundle_path: no certificates found in %s", cfg.CABundle)
		}
		tlsConfig.RootCAs = pool
	}
	transport.TLSClientConfig = tlsConfig

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &httpClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		hc:      &http.Client{Transport: transport, Timeout: timeout},
		logger:  slog.Default().With("component", "scm-client"),
	}, nil
}

func (c *httpClient) FetchCommitDiff(ctx context.Context, projectKey, repoSlug, commitID string) (string, error) {
	url := fmt.Sprintf("%s/projects/%s/repos/%s/commits/%s/diff", c.baseURL, projectKey, repoSlug, commitID)
	return c.fetchDiff(ctx, url)
}

func (c *httpClient) FetchMergeRequestDiff(ctx context.Context, projectKey, repoSlug string, mrID int64) (string, error) {
	url := fmt.Sprintf("%s/projects/%s/repos/%s/pull-requests/%d/diff", c.baseURL, projectKey, repoSlug, mrID)
	return c.fetchDiff(ctx, url)
}

func (c *httpClient) fetchDiff(ctx context.Context, url string) (string, error) {
	body, _, err := c.get(ctx, url)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *httpClient) FetchCommitAuthor(ctx context.Context, projectKey, repoSlug, commitID string) (Author, error) {
	url := fmt.Sprintf("%s/projects/%s/repos/%s/commits/%s", c.baseURL, projectKey, repoSlug, commitID)
	return c.fetchAuthor(ctx, url)
}

func (c *httpClient) FetchMergeRequestAuthor(ctx context.Context, projectKey, repoSlug string, mrID int64) (Author, error) {
	url := fmt.Sprintf("%s/projects/%s/repos/%s/pull-requests/%d", c.baseURL, projectKey, repoSlug, mrID)
	return c.fetchAuthor(ctx, url)
}

func (c *httpClient) fetchAuthor(ctx context.Context, url string) (Author, error) {
	body, _, err := c.get(ctx, url)
	if err != nil {
		return Author{}, err
	}
	author, err := parseAuthor(body)
	if err != nil {
		return Author{}, apperr.Wrap(apperr.Malformed, "parsing author payload", err)
	}
	if author.Email == "" && author.Name != "" {
		// Not an error: the caller surfaces a best-effort result.
		return author, nil
	}
	return author, nil
}

// get performs an authenticated GET, classifying transport/HTTP failures
// into apperr.Kind values the Review Engine matches on, and truncating
// the response body at maxResponseBytes.
func (c *httpClient) get(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.Internal, "building request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "text/plain, application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, apperr.Wrap(apperr.Timeout, "scm request timed out", err)
		}
		return nil, 0, apperr.Wrap(apperr.Transport, "scm request failed", err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, maxResponseBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, resp.StatusCode, apperr.Wrap(apperr.Transport, "reading scm response", err)
	}
	if len(body) > maxResponseBytes {
		body = body[:maxResponseBytes]
		c.logger.Warn("scm response truncated", "url", url, "limit_bytes", maxResponseBytes)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, resp.StatusCode, apperr.New(apperr.Unauthorized, "scm rejected credentials")
	case resp.StatusCode == http.StatusNotFound:
		return nil, resp.StatusCode, apperr.New(apperr.NotFound, "scm resource not found")
	case resp.StatusCode >= 500:
		return nil, resp.StatusCode, apperr.New(apperr.Upstream5xx, fmt.Sprintf("scm returned %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return nil, resp.StatusCode, apperr.New(apperr.Malformed, fmt.Sprintf("scm returned %d", resp.StatusCode))
	}

	return body, resp.StatusCode, nil
}
