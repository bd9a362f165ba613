package extraction

import (
	"context"
	"image"
	"os"
	"testing"

	apperrors "github.com/adverant/nexus/slideanalysis-worker/internal/errors"
)

// fakeRenderer drives the pipeline without LibreOffice or MuPDF
type fakeRenderer struct {
	available bool
	count     int
	countErr  error
	images    []image.Image
	renderErr error
}

func (f *fakeRenderer) Available() bool { return f.available }

func (f *fakeRenderer) PageCount(path string) (int, error) {
	return f.count, f.countErr
}

func (f *fakeRenderer) RenderPages(ctx context.Context, path string, profile QualityProfile, workDir string) ([]image.Image, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if f.renderErr != nil {
		return nil, f.renderErr
	}
	return f.images, nil
}

func renderedImages(n int) []image.Image {
	images := make([]image.Image, n)
	for i := range images {
		images[i] = noisyImage(400, 300)
	}
	return images
}

func newTestExtractor(t *testing.T, tempDir, tier string, renderer Renderer) *Extractor {
	t.Helper()
	e, err := NewExtractor(&ExtractorConfig{
		QualityTier:          tier,
		MaxImageSizeBytes:    20 * 1024 * 1024,
		MaxDimensionPx:       1536,
		TempDir:              tempDir,
		NormalizeWorkers:     2,
		PresentationRenderer: renderer,
		PageDocumentRenderer: renderer,
	})
	if err != nil {
		t.Fatalf("NewExtractor() error = %v", err)
	}
	return e
}

func assertWorkspaceEmpty(t *testing.T, tempDir string) {
	t.Helper()
	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("failed to read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("temp dir not cleaned up, %d entries remain", len(entries))
	}
}

func TestExtractPrimarySuccess(t *testing.T) {
	tempDir := t.TempDir()
	deck := writeTestPPTX(t)
	e := newTestExtractor(t, tempDir, TierHigh, &fakeRenderer{
		available: true,
		count:     3,
		images:    renderedImages(3),
	})

	result, err := e.Extract(context.Background(), deck)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if result.TotalSlides != 3 || len(result.Slides) != 3 {
		t.Fatalf("got %d/%d slides, want 3/3", len(result.Slides), result.TotalSlides)
	}
	for i, slide := range result.Slides {
		if slide.SlideNumber != i+1 {
			t.Errorf("slide %d has number %d, order broken", i, slide.SlideNumber)
		}
		if slide.RenderMethod != RenderPrimary {
			t.Errorf("slide %d method = %q, want primary", slide.SlideNumber, slide.RenderMethod)
		}
		if slide.ImagePayload == "" {
			t.Errorf("slide %d has empty payload", slide.SlideNumber)
		}
		if slide.SourceFormat != FormatPresentation {
			t.Errorf("slide %d source format = %q", slide.SlideNumber, slide.SourceFormat)
		}
	}
	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}

	assertWorkspaceEmpty(t, tempDir)
}

func TestExtractRendererUnavailable(t *testing.T) {
	tempDir := t.TempDir()
	doc := writeTestFile(t, "doc.pdf", []byte("%PDF-1.4 fake"))
	e := newTestExtractor(t, tempDir, TierMedium, &fakeRenderer{
		available: false,
		count:     2,
	})

	result, err := e.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if len(result.Slides) != 2 {
		t.Fatalf("got %d slides, want 2", len(result.Slides))
	}
	for _, slide := range result.Slides {
		if slide.RenderMethod != RenderFallbackPlaceholder {
			t.Errorf("slide %d method = %q, want placeholder", slide.SlideNumber, slide.RenderMethod)
		}
	}
	if len(result.Warnings) == 0 {
		t.Error("expected a degradation warning")
	}
}

func TestExtractRenderFailureDegrades(t *testing.T) {
	tempDir := t.TempDir()
	doc := writeTestFile(t, "doc.pdf", []byte("%PDF-1.4 fake"))
	e := newTestExtractor(t, tempDir, TierMedium, &fakeRenderer{
		available: true,
		count:     2,
		renderErr: apperrors.NewRenderFailureError(doc, "conversion produced no output", nil),
	})

	result, err := e.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("recoverable render failure must not fail the job, got %v", err)
	}

	if len(result.Slides) != 2 {
		t.Fatalf("got %d slides, want 2", len(result.Slides))
	}
	for _, slide := range result.Slides {
		if slide.RenderMethod != RenderFallbackPlaceholder {
			t.Errorf("slide %d method = %q, want placeholder", slide.SlideNumber, slide.RenderMethod)
		}
	}
}

func TestExtractUnsupportedFormatFatal(t *testing.T) {
	tempDir := t.TempDir()
	doc := writeTestFile(t, "notes.txt", []byte("plain text"))
	e := newTestExtractor(t, tempDir, TierMedium, &fakeRenderer{available: true, count: 1})

	_, err := e.Extract(context.Background(), doc)
	if err == nil {
		t.Fatal("expected fatal error for unsupported format")
	}
	if !apperrors.IsFatal(err) {
		t.Errorf("error = %v, want fatal", err)
	}

	// Cleanup runs on the failure path too
	assertWorkspaceEmpty(t, tempDir)
}

func TestExtractZeroSlides(t *testing.T) {
	doc := writeTestFile(t, "doc.pdf", []byte("%PDF-1.4 fake"))
	e := newTestExtractor(t, t.TempDir(), TierMedium, &fakeRenderer{available: true, count: 0})

	result, err := e.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if result.TotalSlides != 0 || len(result.Slides) != 0 {
		t.Errorf("got %d/%d slides, want empty result", len(result.Slides), result.TotalSlides)
	}
}

func TestExtractUnknownTierWarning(t *testing.T) {
	doc := writeTestFile(t, "doc.pdf", []byte("%PDF-1.4 fake"))
	e := newTestExtractor(t, t.TempDir(), "ultra", &fakeRenderer{
		available: true,
		count:     1,
		images:    renderedImages(1),
	})

	if e.Profile().Tier != TierMedium {
		t.Errorf("unknown tier resolved to %q, want medium", e.Profile().Tier)
	}

	result, err := e.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected an unknown-tier warning")
	}
}

func TestExtractPerSlideFallback(t *testing.T) {
	doc := writeTestFile(t, "doc.pdf", []byte("%PDF-1.4 fake"))
	images := renderedImages(3)
	images[1] = nil // page 2 failed to render
	e := newTestExtractor(t, t.TempDir(), TierMedium, &fakeRenderer{
		available: true,
		count:     3,
		images:    images,
	})

	result, err := e.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if result.Slides[0].RenderMethod != RenderPrimary || result.Slides[2].RenderMethod != RenderPrimary {
		t.Error("healthy pages lost their primary render")
	}
	if result.Slides[1].RenderMethod != RenderFallbackPlaceholder {
		t.Errorf("failed page method = %q, want placeholder", result.Slides[1].RenderMethod)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("warnings = %v, want exactly one degradation warning", result.Warnings)
	}
}

func TestExtractCountMismatchFallsBack(t *testing.T) {
	doc := writeTestFile(t, "doc.pdf", []byte("%PDF-1.4 fake"))
	e := newTestExtractor(t, t.TempDir(), TierMedium, &fakeRenderer{
		available: true,
		count:     3,
		images:    renderedImages(2),
	})

	result, err := e.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	// A mismatched render is not trusted at all
	if len(result.Slides) != 3 {
		t.Fatalf("got %d slides, want declared count 3", len(result.Slides))
	}
	for _, slide := range result.Slides {
		if slide.RenderMethod == RenderPrimary {
			t.Errorf("slide %d kept a primary render despite count mismatch", slide.SlideNumber)
		}
	}
}

func TestExtractUnknownPageCount(t *testing.T) {
	deck := writeTestFile(t, "deck.ppt",
		[]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0x00})

	t.Run("render succeeds", func(t *testing.T) {
		e := newTestExtractor(t, t.TempDir(), TierMedium, &fakeRenderer{
			available: true,
			count:     PageCountUnknown,
			images:    renderedImages(4),
		})
		result, err := e.Extract(context.Background(), deck)
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if result.TotalSlides != 4 {
			t.Errorf("TotalSlides = %d, want rendered count 4", result.TotalSlides)
		}
	})

	t.Run("render fails", func(t *testing.T) {
		e := newTestExtractor(t, t.TempDir(), TierMedium, &fakeRenderer{
			available: true,
			count:     PageCountUnknown,
			renderErr: apperrors.NewConversionTimeoutError(deck, 0, nil),
		})
		_, err := e.Extract(context.Background(), deck)
		if !apperrors.HasCode(err, apperrors.ErrorCorruptFile) {
			t.Errorf("error = %v, want CORRUPT_FILE", err)
		}
	})
}

func TestExtractCancellation(t *testing.T) {
	tempDir := t.TempDir()
	doc := writeTestFile(t, "doc.pdf", []byte("%PDF-1.4 fake"))
	e := newTestExtractor(t, tempDir, TierMedium, &fakeRenderer{available: true, count: 2})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Extract(ctx, doc)
	if err != context.Canceled {
		t.Errorf("error = %v, want context.Canceled", err)
	}

	// Cleanup is not cancellable
	assertWorkspaceEmpty(t, tempDir)
}

func TestExtractChunksWindows(t *testing.T) {
	doc := writeTestFile(t, "doc.pdf", []byte("%PDF-1.4 fake"))
	e := newTestExtractor(t, t.TempDir(), TierMedium, &fakeRenderer{
		available: true,
		count:     7,
		images:    renderedImages(7),
	})

	result, chunks, err := e.ExtractChunks(context.Background(), doc, 3, 1)
	if err != nil {
		t.Fatalf("ExtractChunks() error = %v", err)
	}
	if result.TotalSlides != 7 {
		t.Fatalf("TotalSlides = %d, want 7", result.TotalSlides)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	wantFirst := []int{1, 3, 5}
	for i, chunk := range chunks {
		if chunk.Slides[0].SlideNumber != wantFirst[i] {
			t.Errorf("chunk %d starts at slide %d, want %d", i, chunk.Slides[0].SlideNumber, wantFirst[i])
		}
	}
}

func TestExtractEmbeddedAssetFallback(t *testing.T) {
	deck := writeTestPPTX(t)
	e := newTestExtractor(t, t.TempDir(), TierMedium, &fakeRenderer{
		available: false,
		count:     1,
	})

	result, err := e.Extract(context.Background(), deck)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(result.Slides) != 1 {
		t.Fatalf("got %d slides, want 1", len(result.Slides))
	}
	if result.Slides[0].RenderMethod != RenderFallbackEmbedded {
		t.Errorf("method = %q, want embedded asset fallback", result.Slides[0].RenderMethod)
	}
}
