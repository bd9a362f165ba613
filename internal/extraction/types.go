/**
 * Extraction Types - Shared data structures for the slide extraction pipeline
 *
 * SlideRecords are append-only: created once per rendered+normalized slide and
 * never mutated afterward.
 */

package extraction

// SourceFormat classifies the input document
type SourceFormat string

const (
	FormatPresentation SourceFormat = "presentation"
	FormatPageDocument SourceFormat = "page-document"
)

// RenderMethod records which rendering path produced a slide image
type RenderMethod string

const (
	RenderPrimary             RenderMethod = "primary"
	RenderFallbackEmbedded    RenderMethod = "fallback-embedded"
	RenderFallbackPlaceholder RenderMethod = "fallback-placeholder"
)

// SlideRecord is one fully rendered and normalized slide.
// ImagePayload is always present - the pipeline never emits a record without a
// renderable image, synthesizing a placeholder as last resort.
type SlideRecord struct {
	SlideNumber      int          `json:"slideNumber"` // 1-based, contiguous within a job
	ImagePayload     string       `json:"imagePayload"`
	MediaType        string       `json:"mediaType"`
	RenderMethod     RenderMethod `json:"renderMethod"`
	Width            int          `json:"width"`
	Height           int          `json:"height"`
	EncodedSizeBytes int          `json:"encodedSizeBytes"`
	SourceFormat     SourceFormat `json:"sourceFormat"`
}

// ExtractionResult is the complete output of one extraction job.
// len(Slides) == TotalSlides and slide numbers cover 1..TotalSlides.
type ExtractionResult struct {
	Slides      []SlideRecord `json:"slides"`
	TotalSlides int           `json:"totalSlides"`
	Warnings    []string      `json:"warnings"`
}

// Chunk is a contiguous, possibly overlapping window over the slide sequence.
// StartIndex is the 0-based offset of the chunk's first slide; OverlapCount is
// the number of leading slides shared with the previous chunk.
type Chunk struct {
	Slides       []SlideRecord `json:"slides"`
	StartIndex   int           `json:"startIndex"`
	OverlapCount int           `json:"overlapCount"`
}

// UnanalyzedSlide is a slide before vision analysis: image only, no semantics.
// Keeping the two stages as distinct types means a slide can never be half
// analyzed.
type UnanalyzedSlide struct {
	SlideNumber  int    `json:"slideNumber"`
	ImagePayload string `json:"imagePayload"`
	MediaType    string `json:"mediaType"`
}

// AnalyzedSlide is a slide after the vision consumer has filled in semantics.
type AnalyzedSlide struct {
	SlideNumber int    `json:"slideNumber"`
	Title       string `json:"title"`
	Layout      string `json:"layout"`
	Summary     string `json:"summary"`
}

// Unanalyzed projects a SlideRecord into its pre-analysis variant for the
// vision consumer.
func (s SlideRecord) Unanalyzed() UnanalyzedSlide {
	return UnanalyzedSlide{
		SlideNumber:  s.SlideNumber,
		ImagePayload: s.ImagePayload,
		MediaType:    s.MediaType,
	}
}
