package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/acme/codereviewd/pkg/apperr"
)

// parseLimit reads the limit query parameter, applying the pagination
// clamp: 0 -> 1, >100 -> 100, negative is rejected with 400 by the caller.
func parseLimit(c *gin.Context, def int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return clamp(def), true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, errBody(apperr.Malformed, "limit must be an integer"))
		return 0, false
	}
	if n < 0 {
		c.JSON(http.StatusBadRequest, errBody(apperr.Malformed, "limit must not be negative"))
		return 0, false
	}
	return clamp(n), true
}

func parseOffset(c *gin.Context) (int, bool) {
	raw := c.Query("offset")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, errBody(apperr.Malformed, "offset must be a non-negative integer"))
		return 0, false
	}
	return n, true
}

func clamp(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > 100 {
		return 100
	}
	return limit
}

// ListReviews handles GET /reviews.
func (s *Server) ListReviews(c *gin.Context) {
	offset, ok := parseOffset(c)
	if !ok {
		return
	}
	limit, ok := parseLimit(c, 20)
	if !ok {
		return
	}

	page, err := s.store.ListReviews(c.Request.Context(), offset, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errBody(apperr.Internal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, pageView[reviewRecordView]{Total: page.Total, Rows: toReviewViews(page.Rows)})
}

// LatestReviews handles GET /reviews/latest?limit=N.
func (s *Server) LatestReviews(c *gin.Context) {
	limit, ok := parseLimit(c, 20)
	if !ok {
		return
	}
	page, err := s.store.ListReviews(c.Request.Context(), 0, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errBody(apperr.Internal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, toReviewViews(page.Rows))
}

// GetReview handles GET /reviews/{id}.
func (s *Server) GetReview(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errBody(apperr.Malformed, "id must be an integer"))
		return
	}
	r, err := s.store.GetReview(c.Request.Context(), id)
	if err != nil {
		kind := apperr.KindOf(err)
		c.JSON(statusFor(kind), errBody(kind, err.Error()))
		return
	}
	c.JSON(http.StatusOK, toReviewView(r))
}

// ReviewsByProject handles GET /reviews/project/{project_key}?repo_slug=&limit=.
func (s *Server) ReviewsByProject(c *gin.Context) {
	limit, ok := parseLimit(c, 20)
	if !ok {
		return
	}
	rows, err := s.store.ListReviewsByProject(c.Request.Context(), c.Param("project_key"), c.Query("repo_slug"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errBody(apperr.Internal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, toReviewViews(rows))
}

// ReviewsByAuthor handles GET /reviews/author/{email}?limit=.
func (s *Server) ReviewsByAuthor(c *gin.Context) {
	limit, ok := parseLimit(c, 20)
	if !ok {
		return
	}
	rows, err := s.store.ListReviewsByAuthor(c.Request.Context(), c.Param("email"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errBody(apperr.Internal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, toReviewViews(rows))
}

// ReviewsByCommit handles GET /reviews/commit/{commit_id}.
func (s *Server) ReviewsByCommit(c *gin.Context) {
	rows, err := s.store.ListReviewsByCommit(c.Request.Context(), c.Param("commit_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, errBody(apperr.Internal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, toReviewViews(rows))
}

// ReviewsByMR handles GET /reviews/pr/{mr_id}.
func (s *Server) ReviewsByMR(c *gin.Context) {
	mrID, err := strconv.ParseInt(c.Param("mr_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errBody(apperr.Malformed, "mr_id must be an integer"))
		return
	}
	rows, err := s.store.ListReviewsByMR(c.Request.Context(), mrID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errBody(apperr.Internal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, toReviewViews(rows))
}

// ListFailures handles GET /failures.
func (s *Server) ListFailures(c *gin.Context) {
	offset, ok := parseOffset(c)
	if !ok {
		return
	}
	limit, ok := parseLimit(c, 20)
	if !ok {
		return
	}
	page, err := s.store.ListFailures(c.Request.Context(), offset, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errBody(apperr.Internal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, pageView[failureLogView]{Total: page.Total, Rows: toFailureViews(page.Rows)})
}

// GetFailure handles GET /failures/{id}.
func (s *Server) GetFailure(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errBody(apperr.Malformed, "id must be an integer"))
		return
	}
	f, err := s.store.GetFailure(c.Request.Context(), id)
	if err != nil {
		kind := apperr.KindOf(err)
		c.JSON(statusFor(kind), errBody(kind, err.Error()))
		return
	}
	c.JSON(http.StatusOK, toFailureView(f))
}

// Health handles GET /health: liveness plus a Store readiness probe and
// the current worker-pool depth.
func (s *Server) Health(c *gin.Context) {
	health := s.queue.Health()
	_, storeErr := s.store.ListFailures(c.Request.Context(), 0, 1)

	status := http.StatusOK
	storeStatus := "ready"
	if storeErr != nil {
		status = http.StatusServiceUnavailable
		storeStatus = "unready"
	}

	c.JSON(status, gin.H{
		"status": map[bool]string{true: "healthy", false: "unhealthy"}[status == http.StatusOK],
		"store":  storeStatus,
		"queue": gin.H{
			"depth":          health.QueueDepth,
			"capacity":       health.QueueCapacity,
			"active_workers": health.ActiveWorkers,
			"total_workers":  health.TotalWorkers,
		},
	})
}
