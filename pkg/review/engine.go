// Package review implements the pipeline that turns a Job into either a
// persisted ReviewRecord (and, best-effort, a delivered notification) or a
// FailureLog, per the stage sequence laid out in engine.go.
package review

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"time"

	"github.com/acme/codereviewd/pkg/apperr"
	"github.com/acme/codereviewd/pkg/config"
	"github.com/acme/codereviewd/pkg/llmclient"
	"github.com/acme/codereviewd/pkg/metrics"
	"github.com/acme/codereviewd/pkg/notifier"
	"github.com/acme/codereviewd/pkg/scm"
	"github.com/acme/codereviewd/pkg/store"
)

// Engine is the heart of the system: stateless beyond its references to
// the SCM/LLM/Notifier/Store capabilities and the Config snapshot. A
// single Engine instance is shared across all workers.
type Engine struct {
	scm     scm.Client
	llm     llmclient.Provider
	notify  *notifier.Service
	store   store.Store
	cfg     config.LLM
	logger  *slog.Logger
	metrics *metrics.Collector
}

func New(scmClient scm.Client, llm llmclient.Provider, notify *notifier.Service, st store.Store, cfg config.LLM, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		scm:    scmClient,
		llm:    llm,
		notify: notify,
		store:  st,
		cfg:    cfg,
		logger: logger.With("component", "review-engine"),
	}
}

// WithMetrics attaches a Collector the pipeline reports stage durations
// and outcomes to. Optional: a nil Collector (the default after New)
// means no metrics are recorded.
func (e *Engine) WithMetrics(c *metrics.Collector) *Engine {
	e.metrics = c
	return e
}

func (e *Engine) observeStage(stage string, start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func (e *Engine) observeOutcome(outcome string) {
	if e.metrics == nil {
		return
	}
	e.metrics.JobsTotal.WithLabelValues(outcome).Inc()
}

// Result is the outcome of driving a Job through the pipeline, used by
// synchronous ingress endpoints that must surface it to their caller.
// Async callers (the worker pool) use Run and discard it.
type Result struct {
	ReviewID       int64
	ReviewFeedback string
	EmailSent      bool
	NoDiff         bool  // empty change set: not an error, nothing written
	Err            error // set when the pipeline terminated on a stage error
}

// Run drives a Job through the pipeline for asynchronous (worker-pool)
// callers. It never returns an error to the caller; every failure mode is
// recorded as a FailureLog (or, for an empty change set, recorded nowhere
// at all).
func (e *Engine) Run(ctx context.Context, job Job) {
	e.run(ctx, job)
}

// RunSync drives a Job through the pipeline and returns its outcome, for
// synchronous ingress endpoints (manual-review, review-diff) that must
// propagate errors as HTTP responses. A FailureLog is still written
// exactly as in the async path.
func (e *Engine) RunSync(ctx context.Context, job Job) Result {
	return e.run(ctx, job)
}

func (e *Engine) run(ctx context.Context, job Job) (result Result) {
	log := e.logger.With("request_id", job.RequestID, "project_key", job.ProjectKey, "repo_slug", job.RepoSlug)

	defer func() {
		switch {
		case result.Err != nil:
			e.observeOutcome("failure")
		case result.NoDiff:
			e.observeOutcome("no_diff")
		default:
			e.observeOutcome("success")
		}
	}()

	diffStart := time.Now()
	diff, noDiff, err := e.resolveDiff(ctx, job, log)
	e.observeStage("diff_fetch", diffStart)
	if err != nil {
		return Result{Err: err}
	}
	if noDiff {
		return Result{NoDiff: true}
	}

	author := e.resolveAuthor(ctx, job, log)

	if ctx.Err() != nil {
		cancelErr := apperr.New(apperr.Cancelled, "pipeline cancelled before llm invocation")
		e.recordFailure(ctx, job, "llm_invocation", apperr.Cancelled, cancelErr.Error(), "")
		return Result{Err: cancelErr}
	}

	llmStart := time.Now()
	reviewText, err := e.invokeLLM(ctx, job, diff)
	e.observeStage("llm_invocation", llmStart)
	if err != nil {
		return Result{Err: err}
	}

	if ctx.Err() != nil {
		cancelErr := apperr.New(apperr.Cancelled, "pipeline cancelled before persistence")
		e.recordFailure(ctx, job, "persistence", apperr.Cancelled, cancelErr.Error(), "")
		return Result{Err: cancelErr}
	}

	record := store.ReviewRecord{
		ReviewType:     job.reviewType(),
		TriggerType:    job.triggerType(),
		ProjectKey:     job.ProjectKey,
		RepoSlug:       job.RepoSlug,
		CommitID:       job.CommitID,
		MRID:           job.MRID,
		AuthorName:     author.Name,
		AuthorEmail:    author.Email,
		DiffContent:    diff,
		ReviewFeedback: reviewText,
		EmailSent:      false,
		LLMProvider:    string(e.cfg.Provider),
		LLMModel:       e.cfg.Model,
		RequestID:      job.RequestID,
	}

	persistStart := time.Now()
	id, err := e.store.InsertReview(ctx, record)
	e.observeStage("persistence", persistStart)
	if err != nil {
		e.recordFailure(ctx, job, "persistence", apperr.KindOf(err), err.Error(), "")
		return Result{Err: err}
	}
	record.ID = id
	if e.metrics != nil {
		e.metrics.ReviewsPersisted.Inc()
	}

	log.Info("review persisted", "review_id", id)

	notifyStart := time.Now()
	outcome := e.notify.Send(ctx, notifier.Message{
		ProjectKey:     job.ProjectKey,
		RepoSlug:       job.RepoSlug,
		CommitID:       job.CommitID,
		MRID:           job.MRID,
		AuthorEmail:    author.Email,
		ReviewFeedback: reviewText,
	})
	e.observeStage("notification", notifyStart)
	if !outcome.Sent {
		log.Warn("notification not delivered", "review_id", id)
	} else if e.metrics != nil {
		e.metrics.NotificationsSent.Inc()
	}

	if err := e.store.UpdateReviewEmailStatus(ctx, id, outcome.Sent, outcome.Recipients.To, outcome.Recipients.Cc); err != nil {
		log.Warn("failed to record notification outcome on review record", "review_id", id, "error", err)
	}

	return Result{ReviewID: id, ReviewFeedback: reviewText, EmailSent: outcome.Sent}
}

// resolveDiff is stage 1. noDiff is true for a whitespace-only diff, which
// terminates the pipeline silently (no FailureLog, no ReviewRecord).
func (e *Engine) resolveDiff(ctx context.Context, job Job, log *slog.Logger) (diff string, noDiff bool, err error) {
	if job.SuppliedDiff != "" {
		diff = job.SuppliedDiff
	} else {
		switch job.Kind {
		case KindMergeRequest:
			diff, err = e.scm.FetchMergeRequestDiff(ctx, job.ProjectKey, job.RepoSlug, job.MRID)
		default:
			diff, err = e.scm.FetchCommitDiff(ctx, job.ProjectKey, job.RepoSlug, job.CommitID)
		}
		if err != nil {
			e.recordFailure(ctx, job, "diff_fetch", apperr.KindOf(err), err.Error(), "")
			return "", false, err
		}
	}

	if strings.TrimSpace(diff) == "" {
		log.Info("empty change set, terminating silently")
		return "", true, nil
	}

	return diff, false, nil
}

// resolveAuthor is stage 2, best-effort: SCM failures here are logged and
// never fail the pipeline.
func (e *Engine) resolveAuthor(ctx context.Context, job Job, log *slog.Logger) scm.Author {
	if job.AuthorEmail != "" {
		return scm.Author{Name: job.AuthorName, Email: job.AuthorEmail}
	}

	var author scm.Author
	var err error
	switch job.Kind {
	case KindMergeRequest:
		author, err = e.scm.FetchMergeRequestAuthor(ctx, job.ProjectKey, job.RepoSlug, job.MRID)
	default:
		author, err = e.scm.FetchCommitAuthor(ctx, job.ProjectKey, job.RepoSlug, job.CommitID)
	}
	if err != nil {
		log.Warn("author resolution failed, proceeding with empty author", "error", err)
		return scm.Author{}
	}
	return author
}

// invokeLLM is stage 3.
func (e *Engine) invokeLLM(ctx context.Context, job Job, diff string) (string, error) {
	text, err := e.llm.ReviewDiff(ctx, diff, llmclient.DefaultPromptTemplate)
	if err != nil {
		e.recordFailure(ctx, job, "llm_invocation", apperr.KindOf(err), err.Error(), "")
		return "", err
	}
	return text, nil
}

func (e *Engine) recordFailure(ctx context.Context, job Job, stage string, kind apperr.Kind, msg, stacktrace string) {
	payload := job.RequestPayload
	if payload == "" {
		if b, err := json.Marshal(job); err == nil {
			payload = string(b)
		}
	}

	fl := store.FailureLog{
		EventType:       job.eventType(),
		RequestPayload:  payload,
		ProjectKey:      job.ProjectKey,
		RepoSlug:        job.RepoSlug,
		CommitID:        job.CommitID,
		MRID:            job.MRID,
		AuthorName:      job.AuthorName,
		AuthorEmail:     job.AuthorEmail,
		FailureStage:    stage,
		ErrorType:       string(kind),
		ErrorMessage:    msg,
		ErrorStacktrace: stacktrace,
		RequestID:       job.RequestID,
	}

	if _, err := e.store.InsertFailure(ctx, fl); err != nil {
		e.logger.Error("failed to persist failure log", "stage", stage, "error", err, "original_error", msg)
	}
}
