package transport

import (
	"errors"
	"net/http"
	"os"

	"github.com/ds124wfegd/uabc-events/internal/entity"
	"github.com/ds124wfegd/uabc-events/pkg/queue"
	"github.com/ds124wfegd/uabc-events/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var notFound = []error{
	entity.ErrEventNotFound,
	entity.ErrCertificateRequestNotFound,
	entity.ErrFileNotFound,
	entity.ErrSessionNotFound,
	queue.ErrFailedTaskNotFound,
	os.ErrNotExist,
}

// respondError writes the status and body for an error returned by a service.
func respondError(c *gin.Context, err error) {
	var (
		validation   *entity.ValidationError
		authz        *entity.AuthorizationError
		precondition *entity.StatePreconditionError
		collaborator *entity.CollaboratorError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "failures": validation.Failures})
	case errors.Is(err, entity.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.As(err, &authz):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.As(err, &precondition):
		c.JSON(http.StatusConflict, gin.H{
			"error":   err.Error(),
			"current": precondition.Current,
			"action":  precondition.Action,
		})
	case errors.Is(err, entity.ErrStateConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case isNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrInvalidToken):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.As(err, &collaborator):
		logrus.WithField("collaborator", collaborator.Collaborator).WithError(collaborator.Err).Error("collaborator failure")
		c.JSON(http.StatusBadGateway, gin.H{"error": collaborator.Collaborator + " unavailable"})
	default:
		logrus.WithError(err).Error("unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
	_ = c.Error(err)
}

func isNotFound(err error) bool {
	for _, target := range notFound {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
