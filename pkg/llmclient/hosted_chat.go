package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/acme/codereviewd/pkg/apperr"
	"github.com/acme/codereviewd/pkg/config"
)

// hostedChatProvider talks to a hosted chat-completion API: POST a
// messages array, read the first choice's message content.
type hostedChatProvider struct {
	endpoint string
	apiKey   string
	model    string
	hc       *http.Client
}

func newHostedChatProvider(cfg config.LLM) *hostedChatProvider {
	return &hostedChatProvider{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		hc:       &http.Client{Timeout: cfg.Timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (p *hostedChatProvider) ReviewDiff(ctx context.Context, diff, promptTemplate string) (string, error) {
	prompt := strings.Replace(promptTemplate, DiffPlaceholder, diff, 1)

	reqBody := chatRequest{
		Model:       p.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.2,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "encoding chat request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "building chat request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", apperr.Wrap(apperr.Timeout, "llm request timed out", err)
		}
		return "", apperr.Wrap(apperr.Transport, "llm request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Wrap(apperr.Transport, "reading llm response", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", apperr.New(apperr.Unauthorized, "llm provider rejected credentials")
	case resp.StatusCode >= 500:
		return "", apperr.New(apperr.Upstream5xx, fmt.Sprintf("llm provider returned %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return "", apperr.New(apperr.Malformed, fmt.Sprintf("llm provider returned %d: %s", resp.StatusCode, string(body)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", apperr.Wrap(apperr.Malformed, "parsing chat response", err)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", apperr.New(apperr.EmptyResponse, "llm returned no usable text")
	}

	return parsed.Choices[0].Message.Content, nil
}

func (p *hostedChatProvider) Probe(ctx context.Context) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader([]byte(`{}`)))
	if err != nil {
		return false, "hosted_chat"
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	resp, err := p.hc.Do(req)
	if err != nil {
		return false, "hosted_chat"
	}
	defer resp.Body.Close()
	// Any response other than a 401 or a 5xx (even a 400 for the empty
	// body) counts as reachable and authenticating.
	return resp.StatusCode != http.StatusUnauthorized && resp.StatusCode < 500, "hosted_chat"
}
