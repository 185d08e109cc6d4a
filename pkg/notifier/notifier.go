// Package notifier renders a completed review as an HTML email and
// delivers it to an external email endpoint. Delivery failure is never a
// pipeline failure: the Service is nil-safe and fail-open in the same
// manner as the teacher's Slack notification service, so callers can hold
// a possibly-nil *Service and invoke it unconditionally.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/acme/codereviewd/pkg/config"
)

// Recipients is the structured recipient value attached to a ReviewRecord.
type Recipients struct {
	To []string `json:"to"`
	Cc []string `json:"cc"`
}

// Message is everything needed to render and send a review notification.
type Message struct {
	ProjectKey     string
	RepoSlug       string
	CommitID       string
	MRID           int64
	AuthorEmail    string
	ReviewFeedback string // markdown
}

// Ref renders the template's "<ref>" component.
func (m Message) Ref() string {
	if m.MRID != 0 {
		return fmt.Sprintf("PR #%d", m.MRID)
	}
	short := m.CommitID
	if len(short) > 10 {
		short = short[:10]
	}
	return "commit " + short
}

func (m Message) subject() string {
	return fmt.Sprintf("Code Review: %s/%s %s", m.ProjectKey, m.RepoSlug, m.Ref())
}

// Outcome reports what happened when Send was invoked, for the engine to
// record on the ReviewRecord.
type Outcome struct {
	Recipients Recipients
	Sent       bool
}

// Service delivers review notifications over HTTP. Nil-safe: every method
// is a no-op on a nil receiver, matching spec.md's requirement that
// notification failure never becomes a pipeline failure.
type Service struct {
	endpoint string
	optOut   bool
	hc       *http.Client
	logger   *slog.Logger
}

// New constructs a Service, or returns nil if notification is disabled by
// configuration (empty endpoint and no explicit opt-out — opt-out still
// renders, so it needs a live Service to reach the "rendered but
// suppressed" branch).
func New(cfg config.Notifier, logger *slog.Logger) *Service {
	if cfg.Endpoint == "" && !cfg.OptOut {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		endpoint: cfg.Endpoint,
		optOut:   cfg.OptOut,
		hc:       &http.Client{Timeout: cfg.Timeout},
		logger:   logger.With("component", "notifier"),
	}
}

type sendPayload struct {
	To      []string `json:"to"`
	Cc      []string `json:"cc"`
	Subject string   `json:"subject"`
	Body    string   `json:"mailbody"`
}

// Send renders msg.ReviewFeedback to HTML and POSTs the notification.
// Always returns a non-nil Outcome; never returns an error — failures are
// logged and reflected by Outcome.Sent=false.
func (s *Service) Send(ctx context.Context, msg Message) Outcome {
	if s == nil {
		return Outcome{}
	}

	recipients := Recipients{}
	if msg.AuthorEmail != "" {
		recipients.To = []string{msg.AuthorEmail}
	}

	if len(recipients.To) == 0 {
		// No resolvable recipient: message is suppressed, not an error.
		return Outcome{Recipients: recipients, Sent: false}
	}

	html, err := RenderMarkdown(msg.ReviewFeedback)
	if err != nil {
		s.logger.Warn("failed to render review markdown", "error", err)
		return Outcome{Recipients: recipients, Sent: false}
	}

	if s.optOut {
		s.logger.Info("notifier opt-out, suppressing send",
			"project_key", msg.ProjectKey, "repo_slug", msg.RepoSlug)
		return Outcome{Recipients: recipients, Sent: false}
	}

	payload := sendPayload{
		To:      recipients.To,
		Cc:      recipients.Cc,
		Subject: msg.subject(),
		Body:    html,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("failed to encode notification payload", "error", err)
		return Outcome{Recipients: recipients, Sent: false}
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.hc.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(sendCtx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		s.logger.Warn("failed to build notification request", "error", err)
		return Outcome{Recipients: recipients, Sent: false}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.hc.Do(req)
	if err != nil {
		s.logger.Warn("notification delivery failed", "error", err)
		return Outcome{Recipients: recipients, Sent: false}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		s.logger.Warn("notification endpoint rejected message", "status", resp.StatusCode)
		return Outcome{Recipients: recipients, Sent: false}
	}

	return Outcome{Recipients: recipients, Sent: true}
}
