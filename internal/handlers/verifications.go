package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"transitadmin/internal/errs"
	"transitadmin/internal/models"
	"transitadmin/internal/service"
)

var errNotApplicable = errs.InvalidOperation("operation not applicable to this verification")

func (h HandlerSet) ListVerifications(c *gin.Context) {
	items, err := h.verifications.List(c.Request.Context(), service.VerificationFilter{
		Status:         models.VerificationStatus(c.Query("status")),
		IDType:         models.IDType(c.Query("idType")),
		OrganizationID: c.Query("organizationId"),
		Search:         c.Query("search"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) VerificationsNeedingAttention(c *gin.Context) {
	items, err := h.verifications.NeedingAttention(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) VerificationStats(c *gin.Context) {
	stats, err := h.verifications.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h HandlerSet) GetVerification(c *gin.Context) {
	v, err := h.verifications.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// requestDate accepts RFC 3339 timestamps and the bare dates a date input
// posts ("2006-01-02", taken as midnight UTC).
type requestDate struct {
	time.Time
}

func (d *requestDate) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid date %q: want YYYY-MM-DD or RFC 3339", raw)
}

type acceptRequest struct {
	ExpirationDate *requestDate `json:"expirationDate"`
}

func (h HandlerSet) AcceptVerification(c *gin.Context) {
	var req acceptRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	h.lifecycle(c, func(ctx context.Context, id string) (bool, error) {
		var expiration *time.Time
		if req.ExpirationDate != nil {
			expiration = &req.ExpirationDate.Time
		}
		return h.verifications.Accept(ctx, id, expiration)
	})
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h HandlerSet) RejectVerification(c *gin.Context) {
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.lifecycle(c, func(ctx context.Context, id string) (bool, error) {
		return h.verifications.Reject(ctx, id, req.Reason)
	})
}

type expirationRequest struct {
	ExpirationDate *requestDate `json:"expirationDate" binding:"required"`
}

func (h HandlerSet) UpdateExpirationDate(c *gin.Context) {
	var req expirationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.lifecycle(c, func(ctx context.Context, id string) (bool, error) {
		return h.verifications.UpdateExpirationDate(ctx, id, req.ExpirationDate.Time)
	})
}

func (h HandlerSet) RevalidateVerification(c *gin.Context) {
	h.lifecycle(c, h.verifications.Revalidate)
}

func (h HandlerSet) MarkForRevalidation(c *gin.Context) {
	h.lifecycle(c, h.verifications.MarkForRevalidation)
}

func (h HandlerSet) NotifyAboutExpiration(c *gin.Context) {
	h.lifecycle(c, h.verifications.NotifyAboutExpiration)
}

func (h HandlerSet) InvalidateVerification(c *gin.Context) {
	var req reasonRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	h.lifecycle(c, func(ctx context.Context, id string) (bool, error) {
		return h.verifications.Invalidate(ctx, id, req.Reason)
	})
}

// lifecycle runs one verification operation and answers with the record as
// stored afterwards. A refused operation is 404 for an unknown id and 409
// when the record's type or state does not admit it.
func (h HandlerSet) lifecycle(c *gin.Context, op func(ctx context.Context, id string) (bool, error)) {
	ctx := c.Request.Context()
	id := c.Param("id")

	applied, err := op(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}

	v, err := h.verifications.Get(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !applied {
		h.fail(c, errNotApplicable)
		return
	}
	c.JSON(http.StatusOK, v)
}
