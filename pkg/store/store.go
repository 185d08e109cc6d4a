// Package store provides append-mostly relational persistence for
// ReviewRecord and FailureLog rows, backed by PostgreSQL via the pgx
// driver, with schema managed by golang-migrate against embedded SQL
// files — the same pairing the teacher uses, minus the ent ORM layer
// (see DESIGN.md for why ent was dropped).
package store

import "context"

// Store is the persistence capability the Review Engine and the query
// surface behind Ingress depend on.
type Store interface {
	InsertReview(ctx context.Context, r ReviewRecord) (int64, error)
	InsertFailure(ctx context.Context, f FailureLog) (int64, error)

	UpdateReviewEmailStatus(ctx context.Context, id int64, sent bool, to, cc []string) error

	GetReview(ctx context.Context, id int64) (ReviewRecord, error)
	ListReviews(ctx context.Context, offset, limit int) (Page[ReviewRecord], error)
	ListReviewsByProject(ctx context.Context, projectKey, repoSlug string, limit int) ([]ReviewRecord, error)
	ListReviewsByAuthor(ctx context.Context, email string, limit int) ([]ReviewRecord, error)
	ListReviewsByCommit(ctx context.Context, commitID string) ([]ReviewRecord, error)
	ListReviewsByMR(ctx context.Context, mrID int64) ([]ReviewRecord, error)

	GetFailure(ctx context.Context, id int64) (FailureLog, error)
	ListFailures(ctx context.Context, offset, limit int) (Page[FailureLog], error)
	ListFailuresByProject(ctx context.Context, projectKey, repoSlug string, limit int) ([]FailureLog, error)
	ListFailuresByStage(ctx context.Context, stage string, resolved bool, limit int) ([]FailureLog, error)
	MarkFailureResolved(ctx context.Context, id int64, notes string) error

	Close() error
}

// clampLimit enforces spec.md's [1,100] pagination clamp.
func clampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > 100 {
		return 100
	}
	return limit
}
