package widget

import (
	"strings"
)

// MaxFileSize is the largest accepted upload, 5MB.
const MaxFileSize = 5 * 1024 * 1024

// AcceptHint is the file picker filter. It only guides the user; Validate enforces.
const AcceptHint = "image/jpeg,image/png,image/webp"

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// SelectedFile is what the user picked. It is never modified once created.
type SelectedFile struct {
	Name     string
	MIMEType string
	Size     int64
	Data     []byte
}

func NewSelectedFile(name, mimeType string, data []byte) SelectedFile {
	return SelectedFile{
		Name:     name,
		MIMEType: mimeType,
		Size:     int64(len(data)),
		Data:     data,
	}
}

// Validate checks the type first and the size second; the first failure wins.
func Validate(f SelectedFile) error {
	mt := normalizeMIME(f.MIMEType)
	if !allowedTypes[mt] {
		return &ValidationError{Reason: ReasonUnsupportedType, MIMEType: f.MIMEType, Size: f.Size}
	}
	if f.Size > MaxFileSize {
		return &ValidationError{Reason: ReasonTooLarge, MIMEType: f.MIMEType, Size: f.Size}
	}
	return nil
}

func normalizeMIME(s string) string {
	s, _, _ = strings.Cut(s, ";")
	return strings.ToLower(strings.TrimSpace(s))
}
