/**
 * Image Normalizer for the slide extraction pipeline
 *
 * Resizes, re-encodes and adaptively recompresses each raster image until it
 * fits the byte budget, then encodes it as a base64 payload. Deterministic:
 * identical input and profile always produce identical payload bytes.
 */

package extraction

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
)

// Adaptive recompression reference defaults. Tunable without violating the
// size-budget invariant.
const (
	qualityStep    = 10
	qualityFloor   = 40
	dimensionScale = 0.85
	maxAttempts    = 10

	payloadMediaType = "image/jpeg"
)

// NormalizedImage is the transportable form of one slide image
type NormalizedImage struct {
	Payload        string // base64-encoded JPEG bytes
	MediaType      string
	Width          int
	Height         int
	EncodedSize    int
	BudgetExceeded bool // best effort: still over budget after max attempts
}

// Normalizer bounds slide images by dimension and encoded byte size
type Normalizer struct {
	profile  QualityProfile
	maxBytes int
}

// NewNormalizer creates a normalizer for one job's resolved profile
func NewNormalizer(profile QualityProfile, maxBytes int) *Normalizer {
	if maxBytes <= 0 {
		maxBytes = 20 * 1024 * 1024
	}
	return &Normalizer{
		profile:  profile,
		maxBytes: maxBytes,
	}
}

// Normalize produces a payload whose encoded size is within the byte budget,
// or the best achieved result with BudgetExceeded set after the bounded
// adaptive loop runs out of attempts.
func (n *Normalizer) Normalize(src image.Image) (*NormalizedImage, error) {
	if src == nil {
		return nil, fmt.Errorf("nil source image")
	}

	// JPEG has no alpha channel: flatten onto a white background first.
	img := flattenToWhite(src)

	if longerEdge(img) > n.profile.MaxDimensionPx {
		img = imaging.Fit(img, n.profile.MaxDimensionPx, n.profile.MaxDimensionPx, imaging.Lanczos)
	}

	quality := n.profile.EncodeQuality
	encoded, err := encodeJPEG(img, quality)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	for attempt := 0; attempt < maxAttempts && len(encoded) > n.maxBytes; attempt++ {
		if quality > qualityFloor {
			quality -= qualityStep
			if quality < qualityFloor {
				quality = qualityFloor
			}
		} else {
			// Quality floor reached: shrink dimensions and keep trying.
			w := int(float64(img.Bounds().Dx()) * dimensionScale)
			if w < 1 {
				w = 1
			}
			img = imaging.Resize(img, w, 0, imaging.Lanczos)
		}

		encoded, err = encodeJPEG(img, quality)
		if err != nil {
			return nil, fmt.Errorf("failed to re-encode image: %w", err)
		}
	}

	bounds := img.Bounds()
	return &NormalizedImage{
		Payload:        base64.StdEncoding.EncodeToString(encoded),
		MediaType:      payloadMediaType,
		Width:          bounds.Dx(),
		Height:         bounds.Dy(),
		EncodedSize:    len(encoded),
		BudgetExceeded: len(encoded) > n.maxBytes,
	}, nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func flattenToWhite(src image.Image) image.Image {
	bounds := src.Bounds()
	flat := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(flat, flat.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), src, bounds.Min, draw.Over)
	return flat
}

func longerEdge(img image.Image) int {
	bounds := img.Bounds()
	if bounds.Dx() > bounds.Dy() {
		return bounds.Dx()
	}
	return bounds.Dy()
}
