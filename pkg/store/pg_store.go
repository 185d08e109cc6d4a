package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // registers the "postgres://" scheme
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acme/codereviewd/pkg/apperr"
	"github.com/acme/codereviewd/pkg/config"
)

// pgxRow is the minimal surface shared by pgx.Row and pgx.Rows, letting
// scanReview/scanFailure work against either a single QueryRow result or
// a row cursor from Query.
type pgxRow interface {
	Scan(dest ...any) error
}

//go:embed migrations/*.sql
var migrationsFS embed.FS

// pgStore is the PostgreSQL-backed Store implementation.
type pgStore struct {
	pool *pgxpool.Pool
}

// New opens a connection pool against cfg.URL, runs pending migrations,
// and returns a ready Store.
func New(ctx context.Context, cfg config.Store) (Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, apperr.Wrap(apperr.ConfigInvalid, "parsing store.url", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "opening store connection pool", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperr.Wrap(apperr.Persistence, "pinging store", err)
	}

	if err := runMigrations(cfg.URL); err != nil {
		pool.Close()
		return nil, apperr.Wrap(apperr.Persistence, "running store migrations", err)
	}

	return &pgStore{pool: pool}, nil
}

func runMigrations(dsn string) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("opening embedded migration source: %w", err)
	}
	defer sourceDriver.Close()

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, toMigrateURL(dsn))
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// toMigrateURL adapts a postgres DSN into the "postgres://" scheme
// golang-migrate's postgres driver expects; URLs already in that form pass
// through unchanged.
func toMigrateURL(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return dsn
	}
	return "postgres://" + dsn
}

func (s *pgStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *pgStore) InsertReview(ctx context.Context, r ReviewRecord) (int64, error) {
	const q = `
INSERT INTO review_records
	(review_type, trigger_type, project_key, repo_slug, commit_id, mr_id,
	 author_name, author_email, diff_content, review_feedback,
	 email_to, email_cc, email_sent, llm_provider, llm_model, request_id, created_at)
VALUES ($1,$2,$3,$4,NULLIF($5,''),NULLIF($6,0),
        NULLIF($7,''),NULLIF($8,''),$9,$10,
        $11,$12,$13,$14,$15,$16, now())
RETURNING id`

	var id int64
	err := s.pool.QueryRow(ctx, q,
		r.ReviewType, r.TriggerType, r.ProjectKey, r.RepoSlug, r.CommitID, r.MRID,
		r.AuthorName, r.AuthorEmail, r.DiffContent, r.ReviewFeedback,
		r.EmailTo, r.EmailCc, r.EmailSent, r.LLMProvider, r.LLMModel, r.RequestID,
	).Scan(&id)
	if err != nil {
		return 0, apperr.Wrap(apperr.Persistence, "inserting review record", err)
	}
	return id, nil
}

func (s *pgStore) InsertFailure(ctx context.Context, f FailureLog) (int64, error) {
	const q = `
INSERT INTO failure_logs
	(event_type, event_key, request_payload, project_key, repo_slug, commit_id, mr_id,
	 author_name, author_email, failure_stage, error_type, error_message,
	 error_stacktrace, retry_count, resolved, resolution_notes, request_id, created_at)
VALUES ($1,NULLIF($2,''),$3,NULLIF($4,''),NULLIF($5,''),NULLIF($6,''),NULLIF($7,0),
        NULLIF($8,''),NULLIF($9,''),$10,$11,$12,
        NULLIF($13,''),$14,$15,NULLIF($16,''),$17, now())
RETURNING id`

	var id int64
	err := s.pool.QueryRow(ctx, q,
		f.EventType, f.EventKey, f.RequestPayload, f.ProjectKey, f.RepoSlug, f.CommitID, f.MRID,
		f.AuthorName, f.AuthorEmail, f.FailureStage, f.ErrorType, f.ErrorMessage,
		f.ErrorStacktrace, f.RetryCount, f.Resolved, f.ResolutionNotes, f.RequestID,
	).Scan(&id)
	if err != nil {
		return 0, apperr.Wrap(apperr.Persistence, "inserting failure log", err)
	}
	return id, nil
}

func (s *pgStore) UpdateReviewEmailStatus(ctx context.Context, id int64, sent bool, to, cc []string) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE review_records SET email_sent = $1, email_to = $2, email_cc = $3 WHERE id = $4",
		sent, to, cc, id)
	if err != nil {
		return apperr.Wrap(apperr.Persistence, "updating review email status", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "review record not found")
	}
	return nil
}

const reviewColumns = `id, created_at, review_type, trigger_type, project_key, repo_slug,
	coalesce(commit_id, ''), coalesce(mr_id, 0), coalesce(author_name, ''), coalesce(author_email, ''),
	diff_content, review_feedback, email_to, email_cc, email_sent, llm_provider, llm_model,
	coalesce(request_id, '')`

func scanReview(row pgxRow) (ReviewRecord, error) {
	var r ReviewRecord
	err := row.Scan(&r.ID, &r.CreatedAt, &r.ReviewType, &r.TriggerType, &r.ProjectKey, &r.RepoSlug,
		&r.CommitID, &r.MRID, &r.AuthorName, &r.AuthorEmail,
		&r.DiffContent, &r.ReviewFeedback, &r.EmailTo, &r.EmailCc, &r.EmailSent, &r.LLMProvider, &r.LLMModel,
		&r.RequestID)
	return r, err
}

func (s *pgStore) GetReview(ctx context.Context, id int64) (ReviewRecord, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+reviewColumns+" FROM review_records WHERE id = $1", id)
	r, err := scanReview(row)
	if err != nil {
		return ReviewRecord{}, apperr.Wrap(apperr.NotFound, "review record not found", err)
	}
	return r, nil
}

func (s *pgStore) ListReviews(ctx context.Context, offset, limit int) (Page[ReviewRecord], error) {
	limit = clampLimit(limit)
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM review_records").Scan(&total); err != nil {
		return Page[ReviewRecord]{}, apperr.Wrap(apperr.Persistence, "counting review records", err)
	}

	rows, err := s.pool.Query(ctx, "SELECT "+reviewColumns+" FROM review_records ORDER BY id DESC LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return Page[ReviewRecord]{}, apperr.Wrap(apperr.Persistence, "listing review records", err)
	}
	defer rows.Close()

	var out []ReviewRecord
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return Page[ReviewRecord]{}, apperr.Wrap(apperr.Persistence, "scanning review record", err)
		}
		out = append(out, r)
	}
	return Page[ReviewRecord]{Total: total, Rows: out}, rows.Err()
}

func (s *pgStore) listReviewsWhere(ctx context.Context, where string, limit int, args ...any) ([]ReviewRecord, error) {
	limit = clampLimit(limit)
	q := fmt.Sprintf("SELECT %s FROM review_records WHERE %s ORDER BY id DESC LIMIT %d", reviewColumns, where, limit)
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "listing review records", err)
	}
	defer rows.Close()

	var out []ReviewRecord
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Persistence, "scanning review record", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *pgStore) ListReviewsByProject(ctx context.Context, projectKey, repoSlug string, limit int) ([]ReviewRecord, error) {
	if repoSlug == "" {
		return s.listReviewsWhere(ctx, "project_key = $1", limit, projectKey)
	}
	return s.listReviewsWhere(ctx, "project_key = $1 AND repo_slug = $2", limit, projectKey, repoSlug)
}

func (s *pgStore) ListReviewsByAuthor(ctx context.Context, email string, limit int) ([]ReviewRecord, error) {
	return s.listReviewsWhere(ctx, "author_email = $1", limit, email)
}

func (s *pgStore) ListReviewsByCommit(ctx context.Context, commitID string) ([]ReviewRecord, error) {
	return s.listReviewsWhere(ctx, "commit_id = $1", 100, commitID)
}

func (s *pgStore) ListReviewsByMR(ctx context.Context, mrID int64) ([]ReviewRecord, error) {
	return s.listReviewsWhere(ctx, "mr_id = $1", 100, mrID)
}

const failureColumns = `id, created_at, event_type, coalesce(event_key, ''), request_payload,
	coalesce(project_key, ''), coalesce(repo_slug, ''), coalesce(commit_id, ''), coalesce(mr_id, 0),
	coalesce(author_name, ''), coalesce(author_email, ''), failure_stage, error_type, error_message,
	coalesce(error_stacktrace, ''), retry_count, resolved, coalesce(resolution_notes, ''),
	coalesce(request_id, '')`

func scanFailure(row pgxRow) (FailureLog, error) {
	var f FailureLog
	err := row.Scan(&f.ID, &f.CreatedAt, &f.EventType, &f.EventKey, &f.RequestPayload,
		&f.ProjectKey, &f.RepoSlug, &f.CommitID, &f.MRID,
		&f.AuthorName, &f.AuthorEmail, &f.FailureStage, &f.ErrorType, &f.ErrorMessage,
		&f.ErrorStacktrace, &f.RetryCount, &f.Resolved, &f.ResolutionNotes,
		&f.RequestID)
	return f, err
}

func (s *pgStore) GetFailure(ctx context.Context, id int64) (FailureLog, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+failureColumns+" FROM failure_logs WHERE id = $1", id)
	f, err := scanFailure(row)
	if err != nil {
		return FailureLog{}, apperr.Wrap(apperr.NotFound, "failure log not found", err)
	}
	return f, nil
}

func (s *pgStore) ListFailures(ctx context.Context, offset, limit int) (Page[FailureLog], error) {
	limit = clampLimit(limit)
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM failure_logs").Scan(&total); err != nil {
		return Page[FailureLog]{}, apperr.Wrap(apperr.Persistence, "counting failure logs", err)
	}

	rows, err := s.pool.Query(ctx, "SELECT "+failureColumns+" FROM failure_logs ORDER BY id DESC LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return Page[FailureLog]{}, apperr.Wrap(apperr.Persistence, "listing failure logs", err)
	}
	defer rows.Close()

	var out []FailureLog
	for rows.Next() {
		f, err := scanFailure(rows)
		if err != nil {
			return Page[FailureLog]{}, apperr.Wrap(apperr.Persistence, "scanning failure log", err)
		}
		out = append(out, f)
	}
	return Page[FailureLog]{Total: total, Rows: out}, rows.Err()
}

func (s *pgStore) ListFailuresByProject(ctx context.Context, projectKey, repoSlug string, limit int) ([]FailureLog, error) {
	limit = clampLimit(limit)
	if repoSlug == "" {
		return s.listFailuresWhere(ctx, "project_key = $1", limit, projectKey)
	}
	return s.listFailuresWhere(ctx, "project_key = $1 AND repo_slug = $2", limit, projectKey, repoSlug)
}

func (s *pgStore) listFailuresWhere(ctx context.Context, where string, limit int, args ...any) ([]FailureLog, error) {
	q := fmt.Sprintf("SELECT %s FROM failure_logs WHERE %s ORDER BY id DESC LIMIT %d", failureColumns, where, limit)
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "listing failure logs", err)
	}
	defer rows.Close()

	var out []FailureLog
	for rows.Next() {
		f, err := scanFailure(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Persistence, "scanning failure log", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *pgStore) ListFailuresByStage(ctx context.Context, stage string, resolved bool, limit int) ([]FailureLog, error) {
	limit = clampLimit(limit)
	return s.listFailuresWhere(ctx, "failure_stage = $1 AND resolved = $2", limit, stage, resolved)
}

func (s *pgStore) MarkFailureResolved(ctx context.Context, id int64, notes string) error {
	tag, err := s.pool.Exec(ctx, "UPDATE failure_logs SET resolved = true, resolution_notes = $1 WHERE id = $2", notes, id)
	if err != nil {
		return apperr.Wrap(apperr.Persistence, "marking failure resolved", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "failure log not found")
	}
	return nil
}
