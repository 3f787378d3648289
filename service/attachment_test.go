package service

import (
	"errors"
	"strings"
	"testing"

	"renochat/model"
)

func TestEncode_RejectsOversize(t *testing.T) {
	svc := &AttachmentService{}

	content := make([]byte, 12*1024*1024)
	if _, err := svc.Encode("big.bin", "application/octet-stream", content); !errors.Is(err, ErrAttachmentTooLarge) {
		t.Fatalf("err = %v, want ErrAttachmentTooLarge", err)
	}
}

func TestEncode_SmallFileInlined(t *testing.T) {
	svc := &AttachmentService{}

	content := make([]byte, 800*1024)
	att, err := svc.Encode("photo.png", "image/png", content)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if att.Data == "" {
		t.Fatal("800 KB file should carry an inline payload")
	}
	if !strings.HasPrefix(att.Data, "data:image/png;base64,") {
		t.Errorf("data prefix = %q", att.Data[:30])
	}
	if att.Size != 800*1024 {
		t.Errorf("size = %d", att.Size)
	}
	if att.Type != model.FileTypeImage || att.Extension != "png" {
		t.Errorf("type = %q, extension = %q", att.Type, att.Extension)
	}
}

func TestEncode_LargeFileMetadataOnly(t *testing.T) {
	svc := &AttachmentService{}

	content := make([]byte, 5*1024*1024)
	att, err := svc.Encode("video.mp4", "video/mp4", content)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if att.Data != "" {
		t.Error("5 MB file should not be inlined")
	}
	if att.Type != model.FileTypeVideo {
		t.Errorf("type = %q", att.Type)
	}
}

func TestClassifyFile(t *testing.T) {
	cases := []struct {
		name     string
		mimeType string
		fileName string
		wantType string
		wantExt  string
	}{
		{"image by mime", "image/jpeg", "pic.jpg", model.FileTypeImage, "jpg"},
		{"video by mime", "video/webm", "clip.webm", model.FileTypeVideo, "webm"},
		{"audio by mime", "audio/mpeg", "song.mp3", model.FileTypeAudio, "mp3"},
		{"pdf document", "application/pdf", "report.PDF", model.FileTypeDocument, "pdf"},
		{"word document", "application/octet-stream", "letter.docx", model.FileTypeDocument, "docx"},
		{"archive", "application/octet-stream", "backup.tar", model.FileTypeArchive, "tar"},
		{"spreadsheet", "application/octet-stream", "numbers.xlsx", model.FileTypeSpreadsheet, "xlsx"},
		{"csv", "text/csv", "data.csv", model.FileTypeSpreadsheet, "csv"},
		{"unknown", "application/octet-stream", "mystery.xyz", model.FileTypeGeneric, "xyz"},
		{"no extension", "application/octet-stream", "README", model.FileTypeGeneric, ""},
	}

	svc := &AttachmentService{}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			att, err := svc.Encode(tc.fileName, tc.mimeType, []byte("x"))
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if att.Type != tc.wantType {
				t.Errorf("type = %q, want %q", att.Type, tc.wantType)
			}
			if att.Extension != tc.wantExt {
				t.Errorf("extension = %q, want %q", att.Extension, tc.wantExt)
			}
		})
	}
}

func TestEncodeVoiceNote(t *testing.T) {
	svc := &AttachmentService{}

	// Above the inline cutoff for regular files: voice notes inline anyway.
	content := make([]byte, 2*1024*1024)
	att, err := svc.EncodeVoiceNote(content, 37.5)
	if err != nil {
		t.Fatalf("EncodeVoiceNote: %v", err)
	}
	if !strings.HasPrefix(att.Name, "voice_") || !strings.HasSuffix(att.Name, ".webm") {
		t.Errorf("name = %q", att.Name)
	}
	if att.Type != model.FileTypeAudio || att.Extension != "webm" {
		t.Errorf("type = %q, extension = %q", att.Type, att.Extension)
	}
	if att.Data == "" {
		t.Error("voice notes are always inlined")
	}
	if att.Duration != 37.5 {
		t.Errorf("duration = %v", att.Duration)
	}
}

func TestEncodeVoiceNote_CeilingStillApplies(t *testing.T) {
	svc := &AttachmentService{}

	if _, err := svc.EncodeVoiceNote(make([]byte, 11*1024*1024), 600); !errors.Is(err, ErrAttachmentTooLarge) {
		t.Fatalf("err = %v, want ErrAttachmentTooLarge", err)
	}
}
