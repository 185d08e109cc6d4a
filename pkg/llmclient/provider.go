// Package llmclient provides a provider-agnostic "review this diff"
// capability over heterogeneous LLM back ends. The Review Engine only
// ever holds a Provider value chosen once at startup — it never branches
// on a provider string, per the teacher's DESIGN NOTES guidance to select
// a capability once instead of dispatching on type/string at call time.
package llmclient

import (
	"context"
	"fmt"

	"github.com/acme/codereviewd/pkg/config"
)

// Provider is the single capability the Review Engine depends on.
type Provider interface {
	// ReviewDiff embeds diff into promptTemplate's placeholder and asks
	// the model for a markdown review.
	ReviewDiff(ctx context.Context, diff, promptTemplate string) (string, error)

	// Probe performs a lightweight connectivity check, returning whether
	// the provider is reachable and its name for health reporting.
	Probe(ctx context.Context) (ok bool, name string)
}

// DiffPlaceholder is substituted with the diff text inside a prompt
// template.
const DiffPlaceholder = "{{DIFF}}"

// DefaultPromptTemplate instructs the model to review a diff for
// correctness, security, performance, and style, matching spec.md's
// required focus areas.
const DefaultPromptTemplate = `You are a meticulous senior engineer performing a code review.
Review the following unified diff. Focus on correctness, security,
performance, and style. Respond in markdown, using fenced code blocks for
any code you quote.

` + "```diff\n" + DiffPlaceholder + "\n```\n"

// NewProvider selects and constructs the concrete Provider named by
// cfg.Provider. This is the one place in the system that branches on the
// provider string; everything downstream sees only the Provider
// interface.
func NewProvider(cfg config.LLM) (Provider, error) {
	switch cfg.Provider {
	case config.LLMProviderHostedChat:
		return newHostedChatProvider(cfg), nil
	case config.LLMProviderLocalModelServer:
		return newLocalModelServerProvider(cfg), nil
	default:
		return nil, fmt.Errorf("llmclient: unknown provider %q", cfg.Provider)
	}
}
