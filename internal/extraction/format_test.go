package extraction

import (
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/adverant/nexus/slideanalysis-worker/internal/errors"
)

func writeTestFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

func TestDetectFormat(t *testing.T) {
	compoundHeader := []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0x00}

	testCases := []struct {
		name       string
		file       string
		content    []byte
		wantFormat SourceFormat
		wantCode   apperrors.ErrorCode
	}{
		{name: "pdf", file: "deck.pdf", content: []byte("%PDF-1.7 rest"), wantFormat: FormatPageDocument},
		{name: "pptx", file: "deck.pptx", content: []byte{0x50, 0x4B, 0x03, 0x04, 0x14, 0x00}, wantFormat: FormatPresentation},
		{name: "legacy ppt", file: "deck.ppt", content: compoundHeader, wantFormat: FormatPresentation},
		{name: "pdf with wrong header", file: "deck.pdf", content: []byte("PK\x03\x04junk"), wantCode: apperrors.ErrorCorruptFile},
		{name: "pptx with wrong header", file: "deck.pptx", content: []byte("%PDF-1.7"), wantCode: apperrors.ErrorCorruptFile},
		{name: "empty file", file: "deck.pdf", content: []byte{}, wantCode: apperrors.ErrorCorruptFile},
		{name: "unsupported extension", file: "deck.docx", content: []byte{0x50, 0x4B, 0x03, 0x04}, wantCode: apperrors.ErrorUnsupportedFormat},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTestFile(t, tc.file, tc.content)
			format, err := DetectFormat(path)

			if tc.wantCode != "" {
				if err == nil {
					t.Fatalf("expected error code %s, got format %q", tc.wantCode, format)
				}
				if !apperrors.HasCode(err, tc.wantCode) {
					t.Errorf("error = %v, want code %s", err, tc.wantCode)
				}
				if !apperrors.IsFatal(err) {
					t.Errorf("format errors must be fatal, got non-fatal %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("DetectFormat() error = %v", err)
			}
			if format != tc.wantFormat {
				t.Errorf("format = %q, want %q", format, tc.wantFormat)
			}
		})
	}
}

func TestDetectFormatMissingFile(t *testing.T) {
	_, err := DetectFormat(filepath.Join(t.TempDir(), "nope.pdf"))
	if !apperrors.HasCode(err, apperrors.ErrorCorruptFile) {
		t.Errorf("error = %v, want CORRUPT_FILE", err)
	}
}
