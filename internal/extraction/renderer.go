/**
 * Primary Renderers for the slide extraction pipeline
 *
 * Two variants keyed by detected format:
 * - SofficeRenderer: presentations, via LibreOffice headless PPTX -> PDF
 *   conversion followed by MuPDF page rasterization. One external-process
 *   call per job, bounded by a hard timeout.
 * - PDFRenderer: page documents, rasterized directly with go-fitz.
 *
 * Both are behind the Renderer interface so the pipeline can be driven by a
 * fake renderer in tests.
 */

package extraction

import (
	"archive/zip"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gen2brain/go-fitz"

	apperrors "github.com/adverant/nexus/slideanalysis-worker/internal/errors"
)

// PageCountUnknown is reported by formats that cannot declare a page count
// before rendering (legacy binary .ppt decks).
const PageCountUnknown = -1

// Renderer rasterizes every page of a document at the profile's resolution.
type Renderer interface {
	// Available reports whether the rendering capability can be used at job start.
	Available() bool

	// PageCount reports the document's declared page count without rendering,
	// or PageCountUnknown when the format cannot declare one up front.
	PageCount(path string) (int, error)

	// RenderPages rasterizes all pages in order. Individual entries may be nil
	// when a single page fails to render; a non-nil error means the whole
	// document could not be rendered.
	RenderPages(ctx context.Context, path string, profile QualityProfile, workDir string) ([]image.Image, error)
}

// PDFRenderer rasterizes page documents with MuPDF
type PDFRenderer struct{}

// NewPDFRenderer creates a new page-document renderer
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Available always reports true: MuPDF is compiled in
func (r *PDFRenderer) Available() bool {
	return true
}

// PageCount opens the document and reports its page count
func (r *PDFRenderer) PageCount(path string) (int, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return 0, apperrors.NewCorruptFileError(path, "failed to open PDF", err)
	}
	defer doc.Close()

	return doc.NumPage(), nil
}

// RenderPages rasterizes every page at the profile DPI. A page that fails to
// render yields a nil entry so the caller can degrade that slide alone.
func (r *PDFRenderer) RenderPages(ctx context.Context, path string, profile QualityProfile, workDir string) ([]image.Image, error) {
	images, err := renderPDFPages(ctx, path, profile.DPI)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperrors.NewRenderFailureError(path, "PDF rasterization failed", err)
	}
	return images, nil
}

// SofficeRenderer rasterizes presentations via LibreOffice headless conversion
type SofficeRenderer struct {
	sofficePath string
	timeout     time.Duration
}

// NewSofficeRenderer creates a new presentation renderer
func NewSofficeRenderer(sofficePath string, timeout time.Duration) *SofficeRenderer {
	if sofficePath == "" {
		sofficePath = "soffice"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &SofficeRenderer{
		sofficePath: sofficePath,
		timeout:     timeout,
	}
}

// Available reports whether the soffice binary can be found
func (r *SofficeRenderer) Available() bool {
	if filepath.IsAbs(r.sofficePath) {
		_, err := os.Stat(r.sofficePath)
		return err == nil
	}
	_, err := exec.LookPath(r.sofficePath)
	return err == nil
}

var slideEntryRe = regexp.MustCompile(`^ppt/slides/slide[0-9]+\.xml$`)

// PageCount counts slide entries in the OOXML container. Legacy binary .ppt
// decks cannot declare a count before conversion.
func (r *SofficeRenderer) PageCount(path string) (int, error) {
	if strings.ToLower(filepath.Ext(path)) != ".pptx" {
		return PageCountUnknown, nil
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return 0, apperrors.NewCorruptFileError(path, "failed to open PPTX container", err)
	}
	defer zr.Close()

	count := 0
	for _, f := range zr.File {
		if slideEntryRe.MatchString(f.Name) {
			count++
		}
	}
	return count, nil
}

// RenderPages converts the whole deck to PDF once, then rasterizes every page
// at the profile DPI. The conversion is bounded by the configured hard
// timeout; exceeding it is a ConversionTimeoutError, any other conversion
// failure a RenderFailure.
func (r *SofficeRenderer) RenderPages(ctx context.Context, path string, profile QualityProfile, workDir string) ([]image.Image, error) {
	convertCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(convertCtx, r.sofficePath,
		"--headless",
		"--convert-to", "pdf",
		"--outdir", workDir,
		path,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if convertCtx.Err() == context.DeadlineExceeded {
			return nil, apperrors.NewConversionTimeoutError(path, r.timeout, err)
		}
		return nil, apperrors.NewRenderFailureError(path,
			fmt.Sprintf("soffice conversion failed: %s", strings.TrimSpace(string(output))), err)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	pdfPath := filepath.Join(workDir, stem+".pdf")
	if _, err := os.Stat(pdfPath); err != nil {
		return nil, apperrors.NewRenderFailureError(path, "converted PDF not found", err)
	}

	images, err := renderPDFPages(ctx, pdfPath, profile.DPI)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperrors.NewRenderFailureError(path, "rasterization of converted PDF failed", err)
	}
	return images, nil
}

// renderPDFPages rasterizes every page of a PDF with go-fitz. A single page
// failure yields a nil entry rather than aborting the document.
func renderPDFPages(ctx context.Context, path string, dpi float64) ([]image.Image, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer doc.Close()

	n := doc.NumPage()
	images := make([]image.Image, n)

	for page := 0; page < n; page++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		img, err := doc.ImageDPI(page, dpi)
		if err != nil {
			images[page] = nil
			continue
		}
		images[page] = img
	}

	return images, nil
}
