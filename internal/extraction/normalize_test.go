package extraction

import (
	"encoding/base64"
	"image"
	"image/color"
	"testing"
)

// noisyImage produces a deterministic hard-to-compress test image
func noisyImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x*131 + y*197 + x*y*31) % 256)
			img.Set(x, y, color.RGBA{R: v, G: uint8(255 - v), B: uint8(x % 256), A: 255})
		}
	}
	return img
}

func TestNormalizeWithinBudget(t *testing.T) {
	profile, _ := ResolveQualityProfile(TierMedium, 1536)
	n := NewNormalizer(profile, 20*1024*1024)

	norm, err := n.Normalize(noisyImage(640, 480))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if norm.MediaType != "image/jpeg" {
		t.Errorf("MediaType = %q, want image/jpeg", norm.MediaType)
	}
	if norm.Width != 640 || norm.Height != 480 {
		t.Errorf("dimensions = %dx%d, want 640x480 (no resize under max edge)", norm.Width, norm.Height)
	}
	if norm.BudgetExceeded {
		t.Error("BudgetExceeded = true for a small image")
	}

	decoded, err := base64.StdEncoding.DecodeString(norm.Payload)
	if err != nil {
		t.Fatalf("payload is not valid base64: %v", err)
	}
	if len(decoded) != norm.EncodedSize {
		t.Errorf("EncodedSize = %d, decoded payload is %d bytes", norm.EncodedSize, len(decoded))
	}
	if norm.EncodedSize > 20*1024*1024 {
		t.Errorf("EncodedSize = %d exceeds budget", norm.EncodedSize)
	}
}

func TestNormalizeResizesLongEdge(t *testing.T) {
	profile, _ := ResolveQualityProfile(TierHigh, 1536)
	n := NewNormalizer(profile, 20*1024*1024)

	norm, err := n.Normalize(noisyImage(3000, 1000))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if norm.Width > 1536 || norm.Height > 1536 {
		t.Errorf("dimensions = %dx%d, longer edge must be at most 1536", norm.Width, norm.Height)
	}
	// Aspect ratio survives the fit
	if norm.Width != 1536 {
		t.Errorf("Width = %d, want 1536 for a 3:1 landscape image", norm.Width)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	profile, _ := ResolveQualityProfile(TierLow, 1536)
	n := NewNormalizer(profile, 20*1024*1024)

	a, err := n.Normalize(noisyImage(320, 240))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	b, err := n.Normalize(noisyImage(320, 240))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if a.Payload != b.Payload {
		t.Error("identical input and profile produced different payloads")
	}
}

func TestNormalizeTinyBudgetBestEffort(t *testing.T) {
	profile, _ := ResolveQualityProfile(TierHigh, 1536)
	n := NewNormalizer(profile, 500)

	norm, err := n.Normalize(noisyImage(1024, 768))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	// The adaptive loop is bounded: a result always comes back, flagged when
	// the budget could not be met
	if !norm.BudgetExceeded {
		t.Error("BudgetExceeded = false for a 500-byte budget")
	}
	if norm.Payload == "" {
		t.Error("best-effort result has empty payload")
	}
	// Quality floor forces dimension reduction
	if norm.Width >= 1024 {
		t.Errorf("Width = %d, expected dimension reduction after quality floor", norm.Width)
	}
}

func TestNormalizeTierSizeOrdering(t *testing.T) {
	src := noisyImage(800, 600)

	highProfile, _ := ResolveQualityProfile(TierHigh, 1536)
	lowProfile, _ := ResolveQualityProfile(TierLow, 1536)

	high, err := NewNormalizer(highProfile, 20*1024*1024).Normalize(src)
	if err != nil {
		t.Fatalf("Normalize(high) error = %v", err)
	}
	low, err := NewNormalizer(lowProfile, 20*1024*1024).Normalize(src)
	if err != nil {
		t.Fatalf("Normalize(low) error = %v", err)
	}

	if high.EncodedSize <= low.EncodedSize {
		t.Errorf("high tier (%d bytes) should encode larger than low tier (%d bytes)",
			high.EncodedSize, low.EncodedSize)
	}
}

func TestNormalizeNilImage(t *testing.T) {
	profile, _ := ResolveQualityProfile(TierMedium, 1536)
	if _, err := NewNormalizer(profile, 0).Normalize(nil); err == nil {
		t.Error("Normalize(nil) did not return an error")
	}
}
