package entity

import "time"

type FileKind string

const (
	FileKindProgram    FileKind = "program"
	FileKindCV         FileKind = "cv"
	FileKindAttendance FileKind = "attendance"
	FileKindPhoto      FileKind = "photo"
)

func (k FileKind) Valid() bool {
	switch k {
	case FileKindProgram, FileKindCV, FileKindAttendance, FileKindPhoto:
		return true
	}
	return false
}

type EventFile struct {
	ID                   string    `json:"id" db:"id"`
	EventID              string    `json:"event_id" db:"event_id"`
	CertificateRequestID string    `json:"certificate_request_id,omitempty" db:"certificate_request_id"`
	Kind                 FileKind  `json:"kind" db:"kind"`
	FileName             string    `json:"file_name" db:"file_name"`
	Path                 string    `json:"path" db:"path"`
	ContentType          string    `json:"content_type" db:"content_type"`
	Size                 int64     `json:"size" db:"size"`
	ThumbnailPath        string    `json:"thumbnail_path,omitempty" db:"thumbnail_path"`
	UploadedBy           string    `json:"uploaded_by" db:"uploaded_by"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
}
