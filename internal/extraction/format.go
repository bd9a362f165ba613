package extraction

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/adverant/nexus/slideanalysis-worker/internal/errors"
)

// DetectFormat classifies a file as presentation or page-document.
// Classification is pure: extension first, confirmed against content magic
// bytes where the format allows. Zero-byte or unreadable files are corrupt;
// anything unrecognized is unsupported.
func DetectFormat(path string) (SourceFormat, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", apperrors.NewCorruptFileError(path, "file not readable", err)
	}
	if info.Size() == 0 {
		return "", apperrors.NewCorruptFileError(path, "file is empty", nil)
	}

	ext := strings.ToLower(filepath.Ext(path))

	header := make([]byte, 8)
	f, err := os.Open(path)
	if err != nil {
		return "", apperrors.NewCorruptFileError(path, "file not readable", err)
	}
	n, _ := f.Read(header)
	f.Close()
	header = header[:n]

	switch ext {
	case ".pdf":
		if !bytes.HasPrefix(header, []byte("%PDF")) {
			return "", apperrors.NewCorruptFileError(path, "missing %PDF header", nil)
		}
		return FormatPageDocument, nil

	case ".pptx":
		// OOXML presentations are ZIP containers: PK 03 04
		if !bytes.HasPrefix(header, []byte{0x50, 0x4B, 0x03, 0x04}) {
			return "", apperrors.NewCorruptFileError(path, "missing ZIP header for .pptx", nil)
		}
		return FormatPresentation, nil

	case ".ppt":
		// Legacy MS Office compound file: D0 CF 11 E0 A1 B1 1A E1
		if !bytes.HasPrefix(header, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}) {
			return "", apperrors.NewCorruptFileError(path, "missing compound-file header for .ppt", nil)
		}
		return FormatPresentation, nil

	default:
		return "", apperrors.NewUnsupportedFormatError(path, ext)
	}
}
