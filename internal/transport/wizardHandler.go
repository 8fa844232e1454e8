package transport

import (
	"errors"
	"io"
	"net/http"

	"github.com/ds124wfegd/uabc-events/internal/entity"
	"github.com/ds124wfegd/uabc-events/internal/service"
	"github.com/ds124wfegd/uabc-events/internal/transport/middleware"
	"github.com/gin-gonic/gin"
)

type WizardHandler struct {
	wizard service.WizardService
}

func NewWizardHandler(wizard service.WizardService) *WizardHandler {
	return &WizardHandler{wizard: wizard}
}

// Start opens a session. An optional body {"event_id"} reopens an event.
func (h *WizardHandler) Start(c *gin.Context) {
	var req startWizardRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}

	session, err := h.wizard.Start(c.Request.Context(), middleware.Identity(c), req.EventID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (h *WizardHandler) Get(c *gin.Context) {
	session, err := h.wizard.Get(c.Request.Context(), middleware.Identity(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *WizardHandler) UpdateDraft(c *gin.Context) {
	var draft entity.EventDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, err)
		return
	}

	session, err := h.wizard.UpdateDraft(c.Request.Context(), middleware.Identity(c), c.Param("id"), draft)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Next answers 200 with the new step, or 422 with the failing rules when the
// current step does not validate.
func (h *WizardHandler) Next(c *gin.Context) {
	session, result, err := h.wizard.Advance(c.Request.Context(), middleware.Identity(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !result.Advanced {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "result": result})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session, "result": result})
}

func (h *WizardHandler) Back(c *gin.Context) {
	session, err := h.wizard.Retreat(c.Request.Context(), middleware.Identity(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *WizardHandler) Finalize(c *gin.Context) {
	var req finalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}

	event, err := h.wizard.Finalize(c.Request.Context(), middleware.Identity(c), c.Param("id"), req.AsDraft)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}
