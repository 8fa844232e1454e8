package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ds124wfegd/uabc-events/internal/entity"
	"github.com/ds124wfegd/uabc-events/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) fileService(maxSize int64) *fileService {
	svc := NewFileService(f.events, f.files, f.blobs, f.machine, maxSize).(*fileService)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func upload(kind entity.FileKind, name, contentType, body string) FileUpload {
	return FileUpload{
		Kind:        kind,
		FileName:    name,
		ContentType: contentType,
		Size:        int64(len(body)),
		Reader:      strings.NewReader(body),
	}
}

func TestAttachFile(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		status   entity.EventStatus
		actor    entity.Identity
		up       FileUpload
		wantErr  interface{}
		wantRule string
	}{
		{
			name:   "program on draft",
			status: entity.EventStatusDraft,
			actor:  organizer,
			up:     upload(entity.FileKindProgram, "programa final.pdf", "application/pdf", "%PDF"),
		},
		{
			name:   "admin on approved event",
			status: entity.EventStatusApproved,
			actor:  admin,
			up:     upload(entity.FileKindCV, "cv.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "doc"),
		},
		{
			name:     "photos belong to certificate requests",
			status:   entity.EventStatusDraft,
			actor:    organizer,
			up:       upload(entity.FileKindPhoto, "foto.png", "image/png", "png"),
			wantErr:  &entity.ValidationError{},
			wantRule: RuleFileKind,
		},
		{
			name:     "executable",
			status:   entity.EventStatusDraft,
			actor:    organizer,
			up:       upload(entity.FileKindProgram, "virus.exe", "application/x-msdownload", "MZ"),
			wantErr:  &entity.ValidationError{},
			wantRule: RuleFileType,
		},
		{
			name:     "declared size too large",
			status:   entity.EventStatusDraft,
			actor:    organizer,
			up:       FileUpload{Kind: entity.FileKindProgram, FileName: "p.pdf", ContentType: "application/pdf", Size: 1 << 30, Reader: strings.NewReader("x")},
			wantErr:  &entity.ValidationError{},
			wantRule: RuleFileSize,
		},
		{
			name:     "body larger than declared",
			status:   entity.EventStatusDraft,
			actor:    organizer,
			up:       FileUpload{Kind: entity.FileKindProgram, FileName: "p.pdf", ContentType: "application/pdf", Size: 10, Reader: strings.NewReader(strings.Repeat("x", 2048))},
			wantErr:  &entity.ValidationError{},
			wantRule: RuleFileSize,
		},
		{
			name:    "owner on event in review",
			status:  entity.EventStatusInReview,
			actor:   organizer,
			up:      upload(entity.FileKindProgram, "p.pdf", "application/pdf", "%PDF"),
			wantErr: &entity.StatePreconditionError{},
		},
		{
			name:    "stranger",
			status:  entity.EventStatusDraft,
			actor:   stranger,
			up:      upload(entity.FileKindProgram, "p.pdf", "application/pdf", "%PDF"),
			wantErr: &entity.AuthorizationError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(workflow.InitialDraft, storedEvent("evt-1", tt.status))

			file, err := f.fileService(1024).AttachFile(ctx, tt.actor, "evt-1", tt.up)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.IsType(t, tt.wantErr, err)
				if tt.wantRule != "" {
					assert.True(t, err.(*entity.ValidationError).Has(tt.wantRule))
				}
				assert.Zero(t, f.blobs.count())
				assert.Empty(t, f.files.files)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.up.Size, file.Size)
			assert.Contains(t, f.blobs.objects, file.Path)
			assert.True(t, strings.HasPrefix(file.Path, "user-1/evt-1/"+string(tt.up.Kind)+"/"))
			assert.NotContains(t, file.Path, " ")
		})
	}
}

func TestFileURLAndDelete(t *testing.T) {
	ctx := context.Background()
	other := storedEvent("evt-2", entity.EventStatusDraft)
	f := newFixture(workflow.InitialDraft, storedEvent("evt-1", entity.EventStatusDraft), other)
	svc := f.fileService(1024)

	file, err := svc.AttachFile(ctx, organizer, "evt-1", upload(entity.FileKindProgram, "p.pdf", "application/pdf", "%PDF"))
	require.NoError(t, err)

	link, err := svc.FileURL(ctx, admin, "evt-1", file.ID)
	require.NoError(t, err)
	assert.Contains(t, link.URL, file.Path)

	_, err = svc.FileURL(ctx, stranger, "evt-1", file.ID)
	assert.IsType(t, &entity.AuthorizationError{}, err)

	_, err = svc.FileURL(ctx, organizer, "evt-2", file.ID)
	assert.ErrorIs(t, err, entity.ErrFileNotFound)

	f.files.files["cert-file"] = entity.EventFile{ID: "cert-file", EventID: "evt-1", CertificateRequestID: "req-1", Path: "x"}
	err = svc.DeleteFile(ctx, organizer, "evt-1", "cert-file")
	assert.IsType(t, &entity.AuthorizationError{}, err)

	require.NoError(t, svc.DeleteFile(ctx, organizer, "evt-1", file.ID))
	assert.NotContains(t, f.blobs.objects, file.Path)

	files, err := svc.ListFiles(ctx, organizer, "evt-1")
	require.NoError(t, err)
	assert.Empty(t, files)
}
