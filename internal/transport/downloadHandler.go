package transport

import (
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
)

// Downloader opens a stored file after checking its signed token.
type Downloader interface {
	Open(path, token string) (io.ReadCloser, error)
}

type DownloadHandler struct {
	files Downloader
}

func NewDownloadHandler(files Downloader) *DownloadHandler {
	return &DownloadHandler{files: files}
}

// Download serves GET /files/*path?token=... without a bearer token; the
// signed token is the authorization.
func (h *DownloadHandler) Download(c *gin.Context) {
	objectPath := strings.TrimPrefix(c.Param("path"), "/")
	rc, err := h.files.Open(objectPath, c.Query("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(path.Ext(objectPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", "inline; filename=\""+path.Base(objectPath)+"\"")
	c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
}
