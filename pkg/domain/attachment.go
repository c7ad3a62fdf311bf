package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// Kind is the detected document family of an attachment.
type Kind string

const (
	KindUnknown    Kind = "unknown"
	KindText       Kind = "text"
	KindPDF        Kind = "pdf"
	KindImage      Kind = "image"
	KindStructured Kind = "structured"
)

// Attachment is an uploaded file as received by the workflow.
type Attachment struct {
	ID          string `json:"id"`
	Filename    string `json:"filename" validate:"required"`
	ContentType string `json:"content_type,omitempty"`
	Data        []byte `json:"-"`
}

// Kind detects the document family from the extension, then the content type.
func (a Attachment) Kind() Kind {
	return DetectKind(a.Filename, a.ContentType)
}

// ContentHash returns the hex SHA-256 of the attachment bytes.
func (a Attachment) ContentHash() string {
	return HashContent(a.Data)
}

// Ref builds the persisted reference for the attachment.
func (a Attachment) Ref() AttachmentRef {
	return AttachmentRef{
		ID:          a.ID,
		Filename:    a.Filename,
		Kind:        a.Kind(),
		ContentHash: a.ContentHash(),
	}
}

// HashContent is the content address used for hidden tags.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DetectKind maps a filename and optional MIME type to a Kind.
func DetectKind(filename, contentType string) Kind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return KindPDF
	case ".jpg", ".jpeg", ".png", ".tif", ".tiff", ".bmp":
		return KindImage
	case ".docx", ".doc":
		return KindStructured
	case ".txt", ".md", ".csv":
		return KindText
	}

	ct := strings.ToLower(contentType)
	switch {
	case ct == "application/pdf":
		return KindPDF
	case strings.HasPrefix(ct, "image/"):
		return KindImage
	case strings.Contains(ct, "wordprocessingml"), ct == "application/msword":
		return KindStructured
	case strings.HasPrefix(ct, "text/"):
		return KindText
	}
	return KindUnknown
}
