package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acme/codereviewd/pkg/apperr"
	"github.com/acme/codereviewd/pkg/config"
	"github.com/acme/codereviewd/pkg/llmclient"
	"github.com/acme/codereviewd/pkg/notifier"
	"github.com/acme/codereviewd/pkg/queue"
	"github.com/acme/codereviewd/pkg/review"
	"github.com/acme/codereviewd/pkg/scm"
	"github.com/acme/codereviewd/pkg/store"
)

func newTestServer(t *testing.T, secret string) (*Server, *store.Fake, *scm.Fake, *queue.WorkerPool) {
	t.Helper()
	return newTestServerWithQueue(t, secret, config.Queue{Capacity: 4, WorkerCount: 1, ShutdownGraceTime: time.Second})
}

func newTestServerWithQueue(t *testing.T, secret string, qcfg config.Queue) (*Server, *store.Fake, *scm.Fake, *queue.WorkerPool) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	scmClient := scm.NewFake()
	llm := llmclient.NewFake("looks good")
	st := store.NewFake()
	notify := notifier.New(config.Notifier{OptOut: true, Timeout: time.Second}, nil)
	engine := review.New(scmClient, llm, notify, st, config.LLM{Provider: config.LLMProviderHostedChat, Model: "gpt-4o-mini"}, nil)

	wp := queue.New(qcfg, engine, nil)
	wp.Start(context.Background())

	srv := NewServer(engine, wp, st, secret, nil)
	return srv, st, scmClient, wp
}

func TestWebhook_MissingSignatureRejected(t *testing.T) {
	srv, st, _, _ := newTestServer(t, "shh")
	defer srv.queue.Shutdown(context.Background())

	body := []byte(`{"eventKey":"repo:refs_changed","repository":{"project":{"key":"ACME"},"slug":"widgets"},"changes":[{"toHash":"abc"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/webhook/code-review", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	page, _ := st.ListFailures(context.Background(), 0, 10)
	assert.Empty(t, page.Rows)
}

func TestWebhook_ValidSignatureEnqueues(t *testing.T) {
	srv, _, scmClient, _ := newTestServer(t, "shh")
	defer srv.queue.Shutdown(context.Background())
	scmClient.CommitDiffs["abc"] = "+added\n"

	body := []byte(`{"eventKey":"repo:refs_changed","repository":{"project":{"key":"ACME"},"slug":"widgets"},"changes":[{"toHash":"abc"}]}`)
	sig := sign([]byte("shh"), body)

	req := httptest.NewRequest(http.MethodPost, "/webhook/code-review", bytes.NewReader(body))
	req.Header.Set(signatureHeader, sig)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestWebhook_QueueFullReturns503(t *testing.T) {
	// zero workers: nothing drains the channel, so the one slot of
	// capacity fills on the first Submit and stays full.
	srv, _, _, wp := newTestServerWithQueue(t, "", config.Queue{Capacity: 1, WorkerCount: 0, ShutdownGraceTime: time.Second})
	require.NoError(t, wp.Submit(review.Job{Kind: review.KindCommit, CommitID: "x"}))
	defer wp.Shutdown(context.Background())

	body := []byte(`{"eventKey":"repo:refs_changed","repository":{"project":{"key":"ACME"},"slug":"widgets"},"changes":[{"toHash":"zzz"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/webhook/code-review", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestManualReview_Success(t *testing.T) {
	srv, _, scmClient, _ := newTestServer(t, "")
	defer srv.queue.Shutdown(context.Background())
	scmClient.CommitDiffs["abc123"] = "+added\n"

	body, _ := json.Marshal(manualReviewRequest{ProjectKey: "ACME", RepoSlug: "widgets", CommitID: "abc123"})
	req := httptest.NewRequest(http.MethodPost, "/manual-review", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp reviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "looks good", resp.ReviewFeedback)
}

func TestManualReview_BothIdentifiersRejected(t *testing.T) {
	srv, _, _, _ := newTestServer(t, "")
	defer srv.queue.Shutdown(context.Background())

	body, _ := json.Marshal(manualReviewRequest{ProjectKey: "ACME", RepoSlug: "widgets", CommitID: "abc", MRID: 1})
	req := httptest.NewRequest(http.MethodPost, "/manual-review", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestManualReview_NotFoundPropagates404(t *testing.T) {
	srv, st, scmClient, _ := newTestServer(t, "")
	defer srv.queue.Shutdown(context.Background())
	scmClient.Err = apperr.New(apperr.NotFound, "commit not found")

	body, _ := json.Marshal(manualReviewRequest{ProjectKey: "ACME", RepoSlug: "widgets", CommitID: "deadbeef"})
	req := httptest.NewRequest(http.MethodPost, "/manual-review", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body2 errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body2))
	assert.Equal(t, "not_found", body2.Error)

	page, _ := st.ListFailures(context.Background(), 0, 10)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "diff_fetch", page.Rows[0].FailureStage)
}

func TestReviewDiff_WrongExtensionRejected(t *testing.T) {
	srv, _, _, _ := newTestServer(t, "")
	defer srv.queue.Shutdown(context.Background())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("diff", "not-a-diff.txt")
	fw.Write([]byte("hello"))
	_ = mw.WriteField("project_key", "ACME")
	_ = mw.WriteField("repo_slug", "widgets")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/review-diff", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestReviewDiff_Success(t *testing.T) {
	srv, _, _, _ := newTestServer(t, "")
	defer srv.queue.Shutdown(context.Background())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("diff", "change.diff")
	fw.Write([]byte("+added\n"))
	_ = mw.WriteField("project_key", "ACME")
	_ = mw.WriteField("repo_slug", "widgets")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/review-diff", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp reviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "looks good", resp.ReviewFeedback)
}

func TestListReviews_LimitClamped(t *testing.T) {
	srv, st, _, _ := newTestServer(t, "")
	defer srv.queue.Shutdown(context.Background())
	for i := 0; i < 5; i++ {
		_, _ = st.InsertReview(context.Background(), store.ReviewRecord{ProjectKey: "ACME", RepoSlug: "widgets", CommitID: "c", ReviewFeedback: "ok"})
	}

	req := httptest.NewRequest(http.MethodGet, "/reviews?limit=0", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var page pageView[reviewRecordView]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Rows, 1)
	assert.EqualValues(t, 5, page.Total)
}

func TestListReviews_NegativeLimitRejected(t *testing.T) {
	srv, _, _, _ := newTestServer(t, "")
	defer srv.queue.Shutdown(context.Background())

	req := httptest.NewRequest(http.MethodGet, "/reviews?limit=-1", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth_ReportsQueueDepth(t *testing.T) {
	srv, _, _, _ := newTestServer(t, "")
	defer srv.queue.Shutdown(context.Background())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Queue struct {
			Depth    *int `json:"depth"`
			Capacity int  `json:"capacity"`
		} `json:"queue"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Queue.Depth)
	assert.Equal(t, 0, *body.Queue.Depth)
	assert.Equal(t, 4, body.Queue.Capacity)
}

func TestRequestIDMiddleware_GeneratesWhenAbsent(t *testing.T) {
	srv, _, _, _ := newTestServer(t, "")
	defer srv.queue.Shutdown(context.Background())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDMiddleware_PropagatesSuppliedID(t *testing.T) {
	srv, _, _, _ := newTestServer(t, "")
	defer srv.queue.Shutdown(context.Background())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
