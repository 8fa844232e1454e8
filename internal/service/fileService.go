package service

import (
	"context"
	"fmt"
	"io"
	"time"

	repository "github.com/ds124wfegd/uabc-events/internal/database/postgres"
	"github.com/ds124wfegd/uabc-events/internal/entity"
	"github.com/ds124wfegd/uabc-events/internal/workflow"
	"github.com/ds124wfegd/uabc-events/pkg/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	RuleFileKind = "file_kind"
	RuleFileType = "file_type"
	RuleFileSize = "file_size"
)

type fileService struct {
	eventRepo   repository.EventRepository
	fileRepo    repository.FileRepository
	blobs       BlobStore
	machine     *workflow.Machine
	maxFileSize int64
	now         func() time.Time
}

func NewFileService(
	eventRepo repository.EventRepository,
	fileRepo repository.FileRepository,
	blobs BlobStore,
	machine *workflow.Machine,
	maxFileSize int64,
) FileService {
	if maxFileSize <= 0 {
		maxFileSize = storage.MaxFileSize
	}
	return &fileService{
		eventRepo:   eventRepo,
		fileRepo:    fileRepo,
		blobs:       blobs,
		machine:     machine,
		maxFileSize: maxFileSize,
		now:         time.Now,
	}
}

// AttachFile stores a program or CV document for an event. Owners may attach
// while the event is editable; administrators at any time.
func (s *fileService) AttachFile(ctx context.Context, actor entity.Identity, eventID string, up FileUpload) (*entity.EventFile, error) {
	event, err := s.editableEvent(ctx, actor, eventID, "attach_file")
	if err != nil {
		return nil, err
	}

	if up.Kind != entity.FileKindProgram && up.Kind != entity.FileKindCV {
		return nil, entity.NewValidationError(RuleFileKind, "Solo se pueden adjuntar programas o CVs al evento")
	}
	if err := checkUpload(up, storage.DocumentTypes, s.maxFileSize); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	file := &entity.EventFile{
		ID:          uuid.NewString(),
		EventID:     event.ID,
		Kind:        up.Kind,
		FileName:    up.FileName,
		Path:        storage.ObjectPath(event.UserID, event.ID, string(up.Kind), now, up.FileName),
		ContentType: up.ContentType,
		UploadedBy:  actor.UserID,
		CreatedAt:   now,
	}

	size, err := uploadLimited(ctx, s.blobs, file.Path, up.Reader, s.maxFileSize)
	if err != nil {
		return nil, err
	}
	file.Size = size

	if err := s.fileRepo.Create(ctx, file); err != nil {
		removeBlob(s.blobs, file)
		return nil, storeError(err)
	}

	logrus.WithFields(logrus.Fields{
		"event_id": event.ID,
		"file_id":  file.ID,
		"kind":     file.Kind,
		"size":     file.Size,
	}).Info("file attached")
	return file, nil
}

func (s *fileService) ListFiles(ctx context.Context, actor entity.Identity, eventID string) ([]*entity.EventFile, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, storeError(err)
	}
	if err := requireOwnerOrAdmin(actor, event, "list_files"); err != nil {
		return nil, err
	}
	files, err := s.fileRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, storeError(err)
	}
	return files, nil
}

// FileURL issues an expiring download link for one file of the event.
func (s *fileService) FileURL(ctx context.Context, actor entity.Identity, eventID, fileID string) (*SignedLink, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, storeError(err)
	}
	if err := requireOwnerOrAdmin(actor, event, "download_file"); err != nil {
		return nil, err
	}

	file, err := s.fileOf(ctx, eventID, fileID)
	if err != nil {
		return nil, err
	}

	url, expires, err := s.blobs.SignedURL(file.Path)
	if err != nil {
		return nil, blobError(err)
	}
	return &SignedLink{URL: url, ExpiresAt: expires}, nil
}

func (s *fileService) DeleteFile(ctx context.Context, actor entity.Identity, eventID, fileID string) error {
	if _, err := s.editableEvent(ctx, actor, eventID, "delete_file"); err != nil {
		return err
	}

	file, err := s.fileOf(ctx, eventID, fileID)
	if err != nil {
		return err
	}
	if file.CertificateRequestID != "" {
		return &entity.AuthorizationError{Action: "delete_file", Reason: "certificate attachments are kept with their request"}
	}

	if err := s.fileRepo.Delete(ctx, fileID); err != nil {
		return storeError(err)
	}
	removeBlob(s.blobs, file)
	return nil
}

func (s *fileService) editableEvent(ctx context.Context, actor entity.Identity, eventID, action string) (*entity.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, storeError(err)
	}
	if err := requireOwnerOrAdmin(actor, event, action); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !s.machine.CanEdit(event.Status) {
		return nil, &entity.StatePreconditionError{Entity: "event", ID: eventID, Current: string(event.Status), Action: action}
	}
	return event, nil
}

func (s *fileService) fileOf(ctx context.Context, eventID, fileID string) (*entity.EventFile, error) {
	file, err := s.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return nil, storeError(err)
	}
	if file.EventID != eventID {
		return nil, entity.ErrFileNotFound
	}
	return file, nil
}

func checkUpload(up FileUpload, types map[string][]string, maxSize int64) error {
	if up.Reader == nil || up.FileName == "" {
		return entity.NewValidationError(RuleFileType, "Archivo vacío")
	}
	if !storage.Allowed(types, up.ContentType) {
		return entity.NewValidationError(RuleFileType, fmt.Sprintf("Tipo de archivo no permitido: %s", up.ContentType))
	}
	if up.Size > maxSize {
		return entity.NewValidationError(RuleFileSize, fmt.Sprintf("El archivo %s excede el tamaño máximo de %d MB", up.FileName, maxSize/(1024*1024)))
	}
	return nil
}

// uploadLimited stores r at path, refusing content past maxSize even when the
// declared size was smaller.
func uploadLimited(ctx context.Context, blobs BlobStore, path string, r io.Reader, maxSize int64) (int64, error) {
	n, err := blobs.Upload(ctx, path, io.LimitReader(r, maxSize+1))
	if err != nil {
		return 0, blobError(err)
	}
	if n > maxSize {
		if err := blobs.Delete(path); err != nil {
			logrus.WithField("path", path).WithError(err).Warn("failed to delete oversized upload")
		}
		return 0, entity.NewValidationError(RuleFileSize, entity.ErrFileTooLarge.Error())
	}
	return n, nil
}
