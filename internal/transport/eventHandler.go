package transport

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ds124wfegd/uabc-events/internal/entity"
	"github.com/ds124wfegd/uabc-events/internal/service"
	"github.com/ds124wfegd/uabc-events/internal/transport/middleware"
	"github.com/ds124wfegd/uabc-events/internal/wizard"
	"github.com/gin-gonic/gin"
)

const filterDateLayout = "2006-01-02"

type EventHandler struct {
	events     service.EventService
	files      service.FileService
	controller *wizard.Controller
	loc        *time.Location
}

func NewEventHandler(events service.EventService, files service.FileService, controller *wizard.Controller) (*EventHandler, error) {
	loc, err := time.LoadLocation(controller.Zone())
	if err != nil {
		return nil, err
	}
	return &EventHandler{events: events, files: files, controller: controller, loc: loc}, nil
}

// CreateEvent registers an event without the wizard. ?as_draft=true keeps it
// out of review.
func (h *EventHandler) CreateEvent(c *gin.Context) {
	data, ok := h.bindDraft(c)
	if !ok {
		return
	}
	asDraft, _ := strconv.ParseBool(c.Query("as_draft"))

	event, err := h.events.CreateEvent(c.Request.Context(), middleware.Identity(c), data, asDraft)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

func (h *EventHandler) GetEvent(c *gin.Context) {
	event, err := h.events.GetEvent(c.Request.Context(), middleware.Identity(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) ListEvents(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	page, err := h.events.ListEvents(c.Request.Context(), middleware.Identity(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *EventHandler) UpdateEvent(c *gin.Context) {
	data, ok := h.bindDraft(c)
	if !ok {
		return
	}

	event, err := h.events.UpdateEvent(c.Request.Context(), middleware.Identity(c), c.Param("id"), data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) SubmitEvent(c *gin.Context) {
	event, err := h.events.SubmitForReview(c.Request.Context(), middleware.Identity(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) DeleteEvent(c *gin.Context) {
	if err := h.events.DeleteEvent(c.Request.Context(), middleware.Identity(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *EventHandler) GetStatistics(c *gin.Context) {
	stats, err := h.events.GetStatistics(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// UploadFile expects multipart fields "kind" (program|cv) and "file".
func (h *EventHandler) UploadFile(c *gin.Context) {
	var form uploadFileForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, err)
		return
	}
	up, f, err := openUpload(form.File, entity.FileKind(strings.TrimSpace(form.Kind)))
	if err != nil {
		badRequest(c, err)
		return
	}
	defer f.Close()

	file, err := h.files.AttachFile(c.Request.Context(), middleware.Identity(c), c.Param("id"), up)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, file)
}

func (h *EventHandler) ListFiles(c *gin.Context) {
	files, err := h.files.ListFiles(c.Request.Context(), middleware.Identity(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, files)
}

func (h *EventHandler) FileURL(c *gin.Context) {
	link, err := h.files.FileURL(c.Request.Context(), middleware.Identity(c), c.Param("id"), c.Param("fileId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

func (h *EventHandler) DeleteFile(c *gin.Context) {
	if err := h.files.DeleteFile(c.Request.Context(), middleware.Identity(c), c.Param("id"), c.Param("fileId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// bindDraft reads the form representation of an event and converts its
// wall-clock dates in the configured zone.
func (h *EventHandler) bindDraft(c *gin.Context) (*entity.EventData, bool) {
	draft := entity.NewEventDraft()
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, err)
		return nil, false
	}
	data, err := h.controller.Normalize(&draft)
	if err != nil {
		badRequest(c, err)
		return nil, false
	}
	return data, true
}

func (h *EventHandler) parseFilter(c *gin.Context) (entity.EventFilter, error) {
	f := entity.EventFilter{
		UserID:  c.Query("user_id"),
		Program: entity.Program(c.Query("program")),
		Search:  c.Query("search"),
		SortAsc: c.Query("sort") == "asc",
	}
	if status := c.Query("status"); status != "" && status != "all" {
		f.Status = entity.EventStatus(status)
	}

	var err error
	if f.StartFrom, err = h.parseDate(c.Query("from"), false); err != nil {
		return f, err
	}
	if f.StartTo, err = h.parseDate(c.Query("to"), true); err != nil {
		return f, err
	}
	if f.Page, err = queryInt(c, "page"); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(c, "limit"); err != nil {
		return f, err
	}
	return f, nil
}

// parseDate reads a calendar day in the configured zone. The upper bound
// covers the whole day.
func (h *EventHandler) parseDate(s string, endOfDay bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(filterDateLayout, s, h.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected %s", s, filterDateLayout)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t.UTC(), nil
}

func queryInt(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return n, nil
}
