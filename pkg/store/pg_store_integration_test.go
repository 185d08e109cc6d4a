//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/acme/codereviewd/pkg/config"
)

func newTestStore(t *testing.T) Store {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("codereviewd_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(pgContainer)
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := New(ctx, config.Store{
		URL:          connStr,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestPgStore_InsertAndGetReview(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.InsertReview(ctx, ReviewRecord{
		ReviewType:     "auto",
		TriggerType:    "commit",
		ProjectKey:     "ACME",
		RepoSlug:       "widgets",
		CommitID:       "abc123",
		AuthorEmail:    "a@example.com",
		DiffContent:    "+line",
		ReviewFeedback: "looks fine",
		LLMProvider:    "hosted_chat",
		LLMModel:       "gpt-4o-mini",
	})
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	got, err := s.GetReview(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "ACME", got.ProjectKey)
	require.Equal(t, "abc123", got.CommitID)
}

func TestPgStore_ListReviewsPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.InsertReview(ctx, ReviewRecord{
			ReviewType: "auto", TriggerType: "commit",
			ProjectKey: "ACME", RepoSlug: "widgets", CommitID: "c",
			DiffContent: "d", ReviewFeedback: "f",
			LLMProvider: "p", LLMModel: "m",
		})
		require.NoError(t, err)
	}

	page, err := s.ListReviews(ctx, 0, 2)
	require.NoError(t, err)
	require.EqualValues(t, 3, page.Total)
	require.Len(t, page.Rows, 2)
}

func TestPgStore_FailureLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.InsertFailure(ctx, FailureLog{
		EventType:      "webhook",
		RequestPayload: "{}",
		FailureStage:   "diff_fetch",
		ErrorType:      "not_found",
		ErrorMessage:   "commit not found",
	})
	require.NoError(t, err)

	err = s.MarkFailureResolved(ctx, id, "investigated, stale ref")
	require.NoError(t, err)

	got, err := s.GetFailure(ctx, id)
	require.NoError(t, err)
	require.True(t, got.Resolved)
	require.Equal(t, "investigated, stale ref", got.ResolutionNotes)
}
