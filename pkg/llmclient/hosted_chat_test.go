package llmclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/acme/codereviewd/pkg/apperr"
	"github.com/acme/codereviewd/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostedChat_ReviewDiff_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"looks good"}}]}`))
	}))
	defer srv.Close()

	p := newHostedChatProvider(config.LLM{Endpoint: srv.URL, APIKey: "sk-test", Model: "gpt-4o-mini", Timeout: 2 * time.Second})
	out, err := p.ReviewDiff(context.Background(), "+added\n", DefaultPromptTemplate)
	require.NoError(t, err)
	assert.Equal(t, "looks good", out)
}

func TestHostedChat_ReviewDiff_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	p := newHostedChatProvider(config.LLM{Endpoint: srv.URL, APIKey: "sk-test", Timeout: 2 * time.Second})
	_, err := p.ReviewDiff(context.Background(), "diff", DefaultPromptTemplate)
	require.Error(t, err)
	assert.Equal(t, apperr.EmptyResponse, apperr.KindOf(err))
}

func TestHostedChat_ReviewDiff_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := newHostedChatProvider(config.LLM{Endpoint: srv.URL, APIKey: "bad", Timeout: 2 * time.Second})
	_, err := p.ReviewDiff(context.Background(), "diff", DefaultPromptTemplate)
	require.Error(t, err)
	assert.Equal(t, apperr.Unauthorized, apperr.KindOf(err))
}

func TestHostedChat_ReviewDiff_Upstream5xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := newHostedChatProvider(config.LLM{Endpoint: srv.URL, APIKey: "sk-test", Timeout: 2 * time.Second})
	_, err := p.ReviewDiff(context.Background(), "diff", DefaultPromptTemplate)
	require.Error(t, err)
	assert.Equal(t, apperr.Upstream5xx, apperr.KindOf(err))
}

func TestHostedChat_Probe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	p := newHostedChatProvider(config.LLM{Endpoint: srv.URL, APIKey: "sk-test", Timeout: 2 * time.Second})
	ok, name := p.Probe(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "hosted_chat", name)
}
