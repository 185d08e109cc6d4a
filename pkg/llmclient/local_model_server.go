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

// localModelServerProvider talks to a self-hosted generation server: POST
// {model, prompt, stream: false}, read the flat "response" field.
type localModelServerProvider struct {
	endpoint string
	model    string
	hc       *http.Client
}

func newLocalModelServerProvider(cfg config.LLM) *localModelServerProvider {
	return &localModelServerProvider{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		hc:       &http.Client{Timeout: cfg.Timeout},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (p *localModelServerProvider) ReviewDiff(ctx context.Context, diff, promptTemplate string) (string, error) {
	prompt := strings.Replace(promptTemplate, DiffPlaceholder, diff, 1)

	reqBody := generateRequest{
		Model:  p.model,
		Prompt: prompt,
		Stream: false,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "encoding generate request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "building generate request", err)
	}
	req.Header.Set("Content-Type", "application/json")

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

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", apperr.Wrap(apperr.Malformed, "parsing generate response", err)
	}
	if strings.TrimSpace(parsed.Response) == "" {
		return "", apperr.New(apperr.EmptyResponse, "llm returned no usable text")
	}

	return parsed.Response, nil
}

func (p *localModelServerProvider) Probe(ctx context.Context) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return false, "local_model_server"
	}
	resp, err := p.hc.Do(req)
	if err != nil {
		return false, "local_model_server"
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500, "local_model_server"
}
