package transport

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/ds124wfegd/uabc-events/internal/entity"
	"github.com/ds124wfegd/uabc-events/internal/service"
	"github.com/ds124wfegd/uabc-events/internal/transport/middleware"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// maxMultipartMemory is kept in memory per request; larger parts spill to
// temporary files.
const maxMultipartMemory = 32 << 20

type CertificateHandler struct {
	certificates service.CertificateService
}

func NewCertificateHandler(certificates service.CertificateService) *CertificateHandler {
	return &CertificateHandler{certificates: certificates}
}

// Request expects a multipart form: "data" holds the JSON payload,
// "attendance" the attendance list and "photos" zero or more images.
func (h *CertificateHandler) Request(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, err)
		return
	}

	var in service.CertificateInput
	data := form.Value["data"]
	if len(data) == 0 {
		badRequest(c, errors.New("data is required"))
		return
	}
	if err := binding.JSON.BindBody([]byte(data[0]), &in); err != nil {
		badRequest(c, err)
		return
	}

	var opened []multipart.File
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()

	if files := form.File["attendance"]; len(files) > 0 {
		up, f, err := openUpload(files[0], entity.FileKindAttendance)
		if err != nil {
			badRequest(c, err)
			return
		}
		opened = append(opened, f)
		in.Attendance = &up
	}
	for _, fh := range form.File["photos"] {
		up, f, err := openUpload(fh, entity.FileKindPhoto)
		if err != nil {
			badRequest(c, err)
			return
		}
		opened = append(opened, f)
		in.Photos = append(in.Photos, up)
	}

	req, err := h.certificates.RequestCertificates(c.Request.Context(), middleware.Identity(c), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

func (h *CertificateHandler) ListForEvent(c *gin.Context) {
	items, err := h.certificates.ListForEvent(c.Request.Context(), middleware.Identity(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *CertificateHandler) ListPending(c *gin.Context) {
	items, err := h.certificates.ListPending(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *CertificateHandler) Approve(c *gin.Context) {
	req, err := h.certificates.Approve(c.Request.Context(), middleware.Identity(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *CertificateHandler) Reject(c *gin.Context) {
	var body rejectRequest
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}

	req, err := h.certificates.Reject(c.Request.Context(), middleware.Identity(c), c.Param("id"), body.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}
