package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/acme/codereviewd/pkg/apperr"
	"github.com/acme/codereviewd/pkg/review"
)

// maxUploadedDiffBytes is the implementation-defined ceiling on uploaded
// diff size (suggested 10 MiB).
const maxUploadedDiffBytes = 10 * 1024 * 1024

// ManualReview handles POST /manual-review. Exactly one of commit_id /
// mr_id must be set. Runs synchronously and returns the review text or a
// structured error.
func (s *Server) ManualReview(c *gin.Context) {
	var req manualReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errBody(apperr.MissingField, err.Error()))
		return
	}

	hasCommit := req.CommitID != ""
	hasMR := req.MRID != 0
	if hasCommit == hasMR {
		c.JSON(http.StatusBadRequest, errBody(apperr.MissingField, "exactly one of commit_id or mr_id is required"))
		return
	}

	kind := review.KindCommit
	if hasMR {
		kind = review.KindMergeRequest
	}

	job := review.Job{
		Kind:       kind,
		Trigger:    review.TriggerManual,
		ProjectKey: req.ProjectKey,
		RepoSlug:   req.RepoSlug,
		CommitID:   req.CommitID,
		MRID:       req.MRID,
		ReceivedAt: time.Now(),
		RequestID:  c.GetHeader(requestIDHeader),
	}

	s.runSyncAndRespond(c, job)
}

// ReviewDiff handles POST /review-diff: a multipart upload of a .diff or
// .patch file plus project_key/repo_slug and optional author metadata.
func (s *Server) ReviewDiff(c *gin.Context) {
	fh, err := c.FormFile("diff")
	if err != nil {
		c.JSON(http.StatusBadRequest, errBody(apperr.MissingField, "form field \"diff\" is required"))
		return
	}

	name := strings.ToLower(fh.Filename)
	if !strings.HasSuffix(name, ".diff") && !strings.HasSuffix(name, ".patch") {
		s.recordIngressFailure(c, "ingress_validation", apperr.WrongFileType,
			fmt.Sprintf("filename %q must end in .diff or .patch", fh.Filename), "")
		c.JSON(http.StatusUnsupportedMediaType, errBody(apperr.WrongFileType, "file must end in .diff or .patch"))
		return
	}
	if fh.Size > maxUploadedDiffBytes {
		s.recordIngressFailure(c, "ingress_validation", apperr.PayloadTooLarge,
			fmt.Sprintf("%d bytes exceeds ceiling of %d", fh.Size, maxUploadedDiffBytes), "")
		c.JSON(http.StatusRequestEntityTooLarge, errBody(apperr.PayloadTooLarge, "diff exceeds size ceiling"))
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, errBody(apperr.Internal, "could not open uploaded file"))
		return
	}
	defer f.Close()

	limited := io.LimitReader(f, maxUploadedDiffBytes+1)
	raw, err := io.ReadAll(limited)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errBody(apperr.Internal, "could not read uploaded file"))
		return
	}
	if len(raw) > maxUploadedDiffBytes {
		s.recordIngressFailure(c, "ingress_validation", apperr.PayloadTooLarge, "diff body exceeded size ceiling", "")
		c.JSON(http.StatusRequestEntityTooLarge, errBody(apperr.PayloadTooLarge, "diff exceeds size ceiling"))
		return
	}

	projectKey := c.PostForm("project_key")
	repoSlug := c.PostForm("repo_slug")
	if projectKey == "" || repoSlug == "" {
		c.JSON(http.StatusBadRequest, errBody(apperr.MissingField, "project_key and repo_slug are required"))
		return
	}

	job := review.Job{
		Kind:         review.KindCommit,
		Trigger:      review.TriggerUploadedDiff,
		ProjectKey:   projectKey,
		RepoSlug:     repoSlug,
		AuthorName:   c.PostForm("author_name"),
		AuthorEmail:  c.PostForm("author_email"),
		SuppliedDiff: string(raw),
		ReceivedAt:   time.Now(),
		RequestID:    c.GetHeader(requestIDHeader),
	}

	s.runSyncAndRespond(c, job)
}

// runSyncAndRespond drives job through the Engine synchronously and maps
// its Result onto the HTTP response.
func (s *Server) runSyncAndRespond(c *gin.Context, job review.Job) {
	result := s.engine.RunSync(c.Request.Context(), job)

	if result.Err != nil {
		kind := apperr.KindOf(result.Err)
		c.JSON(statusFor(kind), errBody(kind, result.Err.Error()))
		return
	}
	if result.NoDiff {
		c.JSON(http.StatusOK, noDiffResponse{Status: "no_diff"})
		return
	}

	c.JSON(http.StatusOK, reviewResponse{
		ID:             result.ReviewID,
		ReviewFeedback: result.ReviewFeedback,
		EmailSent:      result.EmailSent,
	})
}
