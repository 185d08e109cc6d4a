package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/acme/codereviewd/pkg/apperr"
	"github.com/acme/codereviewd/pkg/queue"
	"github.com/acme/codereviewd/pkg/store"
	"github.com/acme/codereviewd/pkg/webhook"
)

const signatureHeader = "X-Hub-Signature-256"

// Webhook handles POST /webhook/code-review. A bad or missing signature
// (when a secret is configured) is rejected with 401 and never logged as
// a failure — scanners produce a constant stream of these.
func (s *Server) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, errBody(apperr.Malformed, "could not read request body"))
		return
	}

	if len(s.webhookSecret) > 0 {
		if !webhook.VerifySignature(s.webhookSecret, c.GetHeader(signatureHeader), body) {
			c.Status(http.StatusUnauthorized)
			return
		}
	}

	requestID := c.GetHeader(requestIDHeader)
	result, err := webhook.Parse(body, time.Now(), requestID)
	if err != nil {
		if errors.Is(err, webhook.ErrMissingRepository) {
			s.recordIngressFailure(c, "ingress_validation", apperr.MissingField, err.Error(), string(body))
			c.JSON(http.StatusBadRequest, errBody(apperr.MissingField, err.Error()))
			return
		}
		s.recordIngressFailure(c, "ingress_validation", apperr.Malformed, err.Error(), string(body))
		c.JSON(http.StatusBadRequest, errBody(apperr.Malformed, err.Error()))
		return
	}

	if !result.Handled {
		c.Status(http.StatusOK)
		return
	}
	if len(result.Jobs) == 0 {
		c.Status(http.StatusOK)
		return
	}

	for _, job := range result.Jobs {
		if err := s.queue.Submit(job); err != nil {
			if errors.Is(err, queue.ErrQueueFull) {
				c.Status(http.StatusServiceUnavailable)
				return
			}
			c.Status(http.StatusInternalServerError)
			return
		}
	}

	c.Status(http.StatusAccepted)
}

// recordIngressFailure persists a FailureLog for rejections that happen
// before a Job exists, e.g. a malformed webhook body.
func (s *Server) recordIngressFailure(c *gin.Context, stage string, kind apperr.Kind, msg, payload string) {
	_, err := s.store.InsertFailure(c.Request.Context(), store.FailureLog{
		EventType:      "webhook",
		RequestPayload: payload,
		FailureStage:   stage,
		ErrorType:      string(kind),
		ErrorMessage:   msg,
		RequestID:      c.GetHeader(requestIDHeader),
	})
	if err != nil {
		s.requestLogger(c).Error("failed to persist ingress failure log", "stage", stage, "error", err)
	}
}
