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

func TestLocalModelServer_ReviewDiff_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"looks good"}`))
	}))
	defer srv.Close()

	p := newLocalModelServerProvider(config.LLM{Endpoint: srv.URL, Model: "codellama", Timeout: 2 * time.Second})
	out, err := p.ReviewDiff(context.Background(), "+added\n", DefaultPromptTemplate)
	require.NoError(t, err)
	assert.Equal(t, "looks good", out)
}

func TestLocalModelServer_ReviewDiff_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":""}`))
	}))
	defer srv.Close()

	p := newLocalModelServerProvider(config.LLM{Endpoint: srv.URL, Timeout: 2 * time.Second})
	_, err := p.ReviewDiff(context.Background(), "diff", DefaultPromptTemplate)
	require.Error(t, err)
	assert.Equal(t, apperr.EmptyResponse, apperr.KindOf(err))
}

func TestLocalModelServer_ReviewDiff_Malformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad request"))
	}))
	defer srv.Close()

	p := newLocalModelServerProvider(config.LLM{Endpoint: srv.URL, Timeout: 2 * time.Second})
	_, err := p.ReviewDiff(context.Background(), "diff", DefaultPromptTemplate)
	require.Error(t, err)
	assert.Equal(t, apperr.Malformed, apperr.KindOf(err))
}

func TestLocalModelServer_Probe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := newLocalModelServerProvider(config.LLM{Endpoint: srv.URL, Timeout: 2 * time.Second})
	ok, name := p.Probe(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "local_model_server", name)
}
