/**
 * Extraction Pipeline for SlideAnalysis Worker
 *
 * Drives one extraction job end to end:
 * detect format -> primary render -> per-slide fallback -> normalize ->
 * ordered SlideRecord sequence.
 *
 * The job-scoped temp workspace is created before any rendering begins and
 * removed on every exit path. Only unsupported or corrupt input fails the
 * job; every other failure degrades in place and lands in the warning list.
 */

package extraction

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/adverant/nexus/slideanalysis-worker/internal/errors"
	"github.com/adverant/nexus/slideanalysis-worker/internal/logging"
)

// ExtractorConfig holds pipeline configuration
type ExtractorConfig struct {
	QualityTier       string
	MaxImageSizeBytes int
	MaxDimensionPx    int
	TempDir           string
	NormalizeWorkers  int
	RenderTimeout     time.Duration
	SofficePath       string

	// Injectable rendering capabilities; nil selects the real implementations.
	PresentationRenderer Renderer
	PageDocumentRenderer Renderer
	FallbackChain        func(path string, format SourceFormat) []FallbackProvider

	Logger *logging.Logger
}

// Extractor turns a presentation or page-document file into an ordered
// sequence of size- and quality-bounded slide images.
type Extractor struct {
	profile       QualityProfile
	tierKnown     bool
	maxImageBytes int
	tempDir       string
	workers       int

	presentation Renderer
	pageDocument Renderer
	fallback     func(path string, format SourceFormat) []FallbackProvider

	log *logging.Logger
}

// NewExtractor creates an extractor with the job quality profile resolved
// once from caller configuration.
func NewExtractor(cfg *ExtractorConfig) (*Extractor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.TempDir == "" {
		return nil, fmt.Errorf("temp directory is required")
	}

	profile, known := ResolveQualityProfile(cfg.QualityTier, cfg.MaxDimensionPx)

	workers := cfg.NormalizeWorkers
	if workers < 1 {
		workers = 4
	}

	presentation := cfg.PresentationRenderer
	if presentation == nil {
		presentation = NewSofficeRenderer(cfg.SofficePath, cfg.RenderTimeout)
	}
	pageDocument := cfg.PageDocumentRenderer
	if pageDocument == nil {
		pageDocument = NewPDFRenderer()
	}
	fallback := cfg.FallbackChain
	if fallback == nil {
		fallback = NewFallbackChain
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewLogger("extraction")
	}
	if !known {
		logger.Warn("Unknown quality tier, defaulting to medium", "tier", cfg.QualityTier)
	}

	return &Extractor{
		profile:       profile,
		tierKnown:     known,
		maxImageBytes: cfg.MaxImageSizeBytes,
		tempDir:       cfg.TempDir,
		workers:       workers,
		presentation:  presentation,
		pageDocument:  pageDocument,
		fallback:      fallback,
		log:           logger,
	}, nil
}

// Profile returns the resolved quality profile for this extractor
func (e *Extractor) Profile() QualityProfile {
	return e.profile
}

// Extract runs the full pipeline for one file. The caller always receives
// either a complete ExtractionResult (possibly with warnings and placeholder
// slides) or a single fatal error, never a truncated result.
func (e *Extractor) Extract(ctx context.Context, filePath string) (result *ExtractionResult, err error) {
	workspace, err := e.createWorkspace()
	if err != nil {
		return nil, fmt.Errorf("failed to create temp workspace: %w", err)
	}
	// Workspace removal runs on every exit path, including cancellation, and
	// is itself not cancellable.
	defer func() {
		if cleanupErr := os.RemoveAll(workspace); cleanupErr != nil {
			tce := apperrors.NewTempCleanupError(workspace, cleanupErr)
			e.log.Error("Temp workspace cleanup failed", "workspace", workspace, "error", tce)
		}
	}()

	format, err := DetectFormat(filePath)
	if err != nil {
		return nil, err
	}

	renderer := e.pageDocument
	if format == FormatPresentation {
		renderer = e.presentation
	}

	declared, err := renderer.PageCount(filePath)
	if err != nil {
		return nil, err
	}
	if declared == 0 {
		return &ExtractionResult{Slides: []SlideRecord{}, TotalSlides: 0}, nil
	}

	var warnings []string
	if !e.tierKnown {
		warnings = append(warnings, fmt.Sprintf("unknown quality tier %q, using medium", e.profile.Tier))
	}

	rendered, renderWarnings, err := e.renderPrimary(ctx, renderer, filePath, workspace)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, renderWarnings...)

	// Legacy decks declare their count only through conversion. Without a
	// rendered page set there is no count the fallback chain could satisfy.
	if declared == PageCountUnknown {
		if rendered == nil {
			return nil, apperrors.NewCorruptFileError(filePath, "page count unavailable and conversion failed", nil)
		}
		declared = len(rendered)
	} else if rendered != nil && len(rendered) != declared {
		warnings = append(warnings, fmt.Sprintf(
			"rendered page count %d does not match declared slide count %d, falling back", len(rendered), declared))
		rendered = nil
	}

	raws, fallbackWarnings := e.collectRawSlides(filePath, format, declared, rendered)
	warnings = append(warnings, fallbackWarnings...)

	records, normWarnings, err := e.normalizeSlides(ctx, format, raws)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, normWarnings...)

	e.log.Info("Extraction complete",
		"file", filepath.Base(filePath),
		"slides", len(records),
		"warnings", len(warnings),
		"tier", e.profile.Tier)

	return &ExtractionResult{
		Slides:      records,
		TotalSlides: declared,
		Warnings:    warnings,
	}, nil
}

// ExtractChunks runs Extract and partitions the result into overlapping
// windows for downstream contextual analysis.
func (e *Extractor) ExtractChunks(ctx context.Context, filePath string, size, overlap int) (*ExtractionResult, []Chunk, error) {
	result, err := e.Extract(ctx, filePath)
	if err != nil {
		return nil, nil, err
	}
	return result, ChunkSlides(result.Slides, size, overlap), nil
}

func (e *Extractor) createWorkspace() (string, error) {
	if err := os.MkdirAll(e.tempDir, 0o755); err != nil {
		return "", err
	}
	workspace := filepath.Join(e.tempDir, fmt.Sprintf("job-%s", uuid.New().String()[:8]))
	if err := os.Mkdir(workspace, 0o755); err != nil {
		return "", err
	}
	return workspace, nil
}

// renderPrimary runs the primary rendering path once per job. A recoverable
// failure (timeout, conversion error) returns nil images plus a warning so
// the fallback chain takes over; cancellation and fatal errors propagate.
func (e *Extractor) renderPrimary(ctx context.Context, renderer Renderer, filePath, workspace string) ([]image.Image, []string, error) {
	if !renderer.Available() {
		e.log.Warn("Primary renderer unavailable, degrading to fallback", "file", filepath.Base(filePath))
		return nil, []string{"primary renderer unavailable, all slides degraded to fallback"}, nil
	}

	rendered, err := renderer.RenderPages(ctx, filePath, e.profile, workspace)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		if apperrors.IsFatal(err) {
			return nil, nil, err
		}
		e.log.Warn("Primary rendering failed, degrading to fallback", "file", filepath.Base(filePath), "error", err)
		return nil, []string{fmt.Sprintf("primary rendering failed: %v", err)}, nil
	}
	return rendered, nil, nil
}

type rawSlide struct {
	number int
	img    image.Image
	method RenderMethod
}

// collectRawSlides assigns every slide its raw image: the primary render when
// present, otherwise the first applicable fallback provider.
func (e *Extractor) collectRawSlides(filePath string, format SourceFormat, declared int, rendered []image.Image) ([]rawSlide, []string) {
	var chain []FallbackProvider
	var warnings []string

	raws := make([]rawSlide, declared)
	for i := 0; i < declared; i++ {
		number := i + 1

		if rendered != nil && i < len(rendered) && rendered[i] != nil {
			raws[i] = rawSlide{number: number, img: rendered[i], method: RenderPrimary}
			continue
		}

		if chain == nil {
			chain = e.fallback(filePath, format)
		}
		for _, provider := range chain {
			if img, ok := provider.Image(number); ok {
				raws[i] = rawSlide{number: number, img: img, method: provider.Method()}
				warnings = append(warnings, fmt.Sprintf("slide %d degraded to %s", number, provider.Name()))
				break
			}
		}
	}
	return raws, warnings
}

// normalizeSlides recompresses all raw slides with a bounded worker pool.
// Results are assembled in strict slide order regardless of scheduling.
func (e *Extractor) normalizeSlides(ctx context.Context, format SourceFormat, raws []rawSlide) ([]SlideRecord, []string, error) {
	normalizer := NewNormalizer(e.profile, e.maxImageBytes)

	records := make([]SlideRecord, len(raws))
	slotWarnings := make([]string, len(raws))

	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := e.workers
	if workers > len(raws) {
		workers = len(raws)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				records[i], slotWarnings[i] = e.normalizeOne(normalizer, format, raws[i])
			}
		}()
	}

feed:
	for i := range raws {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}

	var warnings []string
	for _, w := range slotWarnings {
		if w != "" {
			warnings = append(warnings, w)
		}
	}
	return records, warnings, nil
}

func (e *Extractor) normalizeOne(normalizer *Normalizer, format SourceFormat, raw rawSlide) (SlideRecord, string) {
	img, method := raw.img, raw.method
	warning := ""

	norm, err := normalizer.Normalize(img)
	if err != nil {
		// A raw image that cannot be normalized is replaced by a placeholder;
		// the slide-count invariant outranks image fidelity.
		e.log.Warn("Normalization failed, substituting placeholder", "slide", raw.number, "error", err)
		warning = fmt.Sprintf("slide %d: normalization failed (%v), substituted placeholder", raw.number, err)
		placeholder, _ := newPlaceholderProvider().Image(raw.number)
		method = RenderFallbackPlaceholder
		norm, err = normalizer.Normalize(placeholder)
		if err != nil {
			// Encoding an in-memory RGBA canvas cannot realistically fail;
			// emit an empty-payload record rather than break the sequence.
			return SlideRecord{
				SlideNumber:  raw.number,
				MediaType:    payloadMediaType,
				RenderMethod: method,
				SourceFormat: format,
			}, warning
		}
	}

	if norm.BudgetExceeded {
		tooLarge := apperrors.NewImageTooLargeError(raw.number, norm.EncodedSize, normalizer.maxBytes)
		e.log.Warn("Image over byte budget after max attempts", "slide", raw.number, "size", norm.EncodedSize)
		warning = tooLarge.Message
	}

	return SlideRecord{
		SlideNumber:      raw.number,
		ImagePayload:     norm.Payload,
		MediaType:        norm.MediaType,
		RenderMethod:     method,
		Width:            norm.Width,
		Height:           norm.Height,
		EncodedSizeBytes: norm.EncodedSize,
		SourceFormat:     format,
	}, warning
}
