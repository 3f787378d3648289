package service

import (
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"renochat/model"
)

const (
	// MaxAttachmentSize is the hard ceiling; larger files are rejected
	// before they reach the data model.
	MaxAttachmentSize = 10 * 1024 * 1024
	// InlineSizeLimit is the threshold below which the payload is carried
	// inline as base64. Larger files are described by metadata only.
	InlineSizeLimit = 1 * 1024 * 1024
)

// ErrAttachmentTooLarge carries the user-facing rejection message.
var ErrAttachmentTooLarge = errors.New("El archivo es demasiado grande. Tamaño máximo: 10MB")

var (
	documentExtensions    = []string{"pdf", "doc", "docx", "txt", "rtf"}
	archiveExtensions     = []string{"zip", "rar", "7z", "tar", "gz"}
	spreadsheetExtensions = []string{"xls", "xlsx", "csv"}
)

// AttachmentService turns raw files and voice recordings into typed
// attachment descriptors.
type AttachmentService struct{}

// Encode validates and classifies a user-selected file. Files under the
// inline limit carry their payload as a base64 data URL; larger ones are
// metadata only.
func (s *AttachmentService) Encode(fileName, mimeType string, content []byte) (*model.FileAttachment, error) {
	size := int64(len(content))
	if size > MaxAttachmentSize {
		return nil, ErrAttachmentTooLarge
	}

	extension := fileExtension(fileName)
	attachment := &model.FileAttachment{
		Name:      fileName,
		Size:      size,
		Type:      classifyFile(mimeType, extension),
		Extension: extension,
	}
	if size < InlineSizeLimit {
		attachment.Data = encodeDataURL(mimeType, content)
	}
	return attachment, nil
}

// EncodeVoiceNote wraps a finished audio recording. The capture itself is
// the recorder's business; this only receives the resulting clip and its
// duration. Voice notes are always inlined whatever their size, below the
// same hard ceiling.
func (s *AttachmentService) EncodeVoiceNote(content []byte, duration float64) (*model.FileAttachment, error) {
	size := int64(len(content))
	if size > MaxAttachmentSize {
		return nil, ErrAttachmentTooLarge
	}

	return &model.FileAttachment{
		Name:      fmt.Sprintf("voice_%d.webm", time.Now().Unix()),
		Size:      size,
		Type:      model.FileTypeAudio,
		Extension: "webm",
		Data:      encodeDataURL("audio/webm", content),
		Duration:  duration,
	}, nil
}

func fileExtension(fileName string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
}

// classifyFile maps MIME prefix and extension to one of the fixed
// attachment categories.
func classifyFile(mimeType, extension string) string {
	mime := strings.ToLower(mimeType)
	switch {
	case strings.HasPrefix(mime, "image/"):
		return model.FileTypeImage
	case strings.HasPrefix(mime, "video/"):
		return model.FileTypeVideo
	case strings.HasPrefix(mime, "audio/"):
		return model.FileTypeAudio
	case containsString(documentExtensions, extension):
		return model.FileTypeDocument
	case containsString(archiveExtensions, extension):
		return model.FileTypeArchive
	case containsString(spreadsheetExtensions, extension):
		return model.FileTypeSpreadsheet
	default:
		return model.FileTypeGeneric
	}
}

func encodeDataURL(mimeType string, content []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(content)
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
