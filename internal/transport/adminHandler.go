package transport

import (
	"net/http"

	"github.com/ds124wfegd/uabc-events/internal/service"
	"github.com/ds124wfegd/uabc-events/internal/transport/middleware"
	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	review service.ReviewService
	failed service.FailedNotificationService
}

func NewAdminHandler(review service.ReviewService, failed service.FailedNotificationService) *AdminHandler {
	return &AdminHandler{review: review, failed: failed}
}

func (h *AdminHandler) ListForReview(c *gin.Context) {
	events, err := h.review.ListForReview(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// Decide takes {"action":"approve"|"reject","comments","reason"}.
func (h *AdminHandler) Decide(c *gin.Context) {
	var req service.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.EventID = c.Param("id")

	event, err := h.review.Decide(c.Request.Context(), middleware.Identity(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

func (h *AdminHandler) ListFailed(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		badRequest(c, err)
		return
	}
	tasks, err := h.failed.List(c.Request.Context(), middleware.Identity(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *AdminHandler) FailedStats(c *gin.Context) {
	stats, err := h.failed.Stats(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *AdminHandler) RequeueFailed(c *gin.Context) {
	if err := h.failed.Requeue(c.Request.Context(), middleware.Identity(c), c.Param("taskId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "requeued"})
}

func (h *AdminHandler) DeleteFailed(c *gin.Context) {
	if err := h.failed.Delete(c.Request.Context(), middleware.Identity(c), c.Param("taskId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
