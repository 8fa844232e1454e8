package storage

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// MaxFileSize is the upload limit for every kind of file.
const MaxFileSize = 10 * 1024 * 1024

// DocumentTypes are accepted for event program and CV uploads.
var DocumentTypes = map[string][]string{
	"application/pdf":    {".pdf"},
	"application/msword": {".doc"},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {".docx"},
	"text/plain": {".txt"},
	"image/jpeg": {".jpg", ".jpeg"},
	"image/png":  {".png"},
	"image/gif":  {".gif"},
}

// AttendanceTypes are accepted for certificate attendance lists.
var AttendanceTypes = map[string][]string{
	"application/pdf":          {".pdf"},
	"application/vnd.ms-excel": {".xls"},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {".xlsx"},
	"application/msword": {".doc"},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {".docx"},
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// CleanFileName replaces every character outside [a-zA-Z0-9.-] with "_".
func CleanFileName(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// ObjectPath builds {owner}/{event}/{kind}/{unixMillis}_{cleanName}.
func ObjectPath(ownerID, eventID, kind string, at time.Time, fileName string) string {
	return fmt.Sprintf("%s/%s/%s/%d_%s", ownerID, eventID, kind, at.UnixMilli(), CleanFileName(fileName))
}

// Allowed reports whether contentType is a key of types. Parameters such as
// "; charset=utf-8" are ignored.
func Allowed(types map[string][]string, contentType string) bool {
	base := strings.TrimSpace(strings.ToLower(strings.SplitN(contentType, ";", 2)[0]))
	_, ok := types[base]
	return ok
}

// IsImage reports whether contentType is an image/* type.
func IsImage(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}
