package transport

import (
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/ds124wfegd/uabc-events/internal/entity"
	"github.com/ds124wfegd/uabc-events/internal/service"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// registerValidators adds the custom tags used by request structs to gin's
// validator.
func registerValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator is not go-playground/validator")
	}
	return v.RegisterValidation("notblank", validators.NotBlank)
}

type finalizeRequest struct {
	AsDraft bool `json:"as_draft"`
}

type startWizardRequest struct {
	EventID string `json:"event_id"`
}

// uploadFileForm is the multipart body of an event attachment upload.
type uploadFileForm struct {
	Kind string                `form:"kind" binding:"required,notblank"`
	File *multipart.FileHeader `form:"file" binding:"required"`
}

// rejectRequest carries an optional reason for a certificate rejection.
type rejectRequest struct {
	Reason string `json:"reason"`
}

// openUpload turns a multipart file header into a service upload. The caller
// closes the returned file.
func openUpload(fh *multipart.FileHeader, kind entity.FileKind) (service.FileUpload, multipart.File, error) {
	f, err := fh.Open()
	if err != nil {
		return service.FileUpload{}, nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	return service.FileUpload{
		Kind:        kind,
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Reader:      f,
	}, f, nil
}
