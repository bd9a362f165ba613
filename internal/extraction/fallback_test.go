package extraction

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestPlaceholderProviderAlwaysApplies(t *testing.T) {
	p := newPlaceholderProvider()

	for _, slide := range []int{1, 42, 999} {
		img, ok := p.Image(slide)
		if !ok {
			t.Fatalf("placeholder not applicable for slide %d", slide)
		}
		bounds := img.Bounds()
		if bounds.Dx() != placeholderWidth || bounds.Dy() != placeholderHeight {
			t.Errorf("placeholder dimensions = %dx%d, want %dx%d",
				bounds.Dx(), bounds.Dy(), placeholderWidth, placeholderHeight)
		}
	}

	if p.Method() != RenderFallbackPlaceholder {
		t.Errorf("Method() = %q, want %q", p.Method(), RenderFallbackPlaceholder)
	}
}

func TestNewFallbackChainOrder(t *testing.T) {
	chain := NewFallbackChain("/tmp/deck.pptx", FormatPresentation)
	if len(chain) != 2 {
		t.Fatalf("pptx chain has %d providers, want 2", len(chain))
	}
	if chain[0].Method() != RenderFallbackEmbedded {
		t.Errorf("first provider method = %q, want embedded", chain[0].Method())
	}
	if chain[1].Method() != RenderFallbackPlaceholder {
		t.Errorf("last provider method = %q, want placeholder", chain[1].Method())
	}

	// Page documents and legacy decks have no container to mine
	chain = NewFallbackChain("/tmp/doc.pdf", FormatPageDocument)
	if len(chain) != 1 || chain[0].Method() != RenderFallbackPlaceholder {
		t.Errorf("pdf chain = %d providers, want placeholder only", len(chain))
	}
	chain = NewFallbackChain("/tmp/deck.ppt", FormatPresentation)
	if len(chain) != 1 {
		t.Errorf("legacy ppt chain = %d providers, want placeholder only", len(chain))
	}
}

// writeTestPPTX builds a minimal OOXML container with one embedded image
// referenced from slide 1
func writeTestPPTX(t *testing.T) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 128, A: 255})
		}
	}
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		t.Fatalf("failed to encode test PNG: %v", err)
	}

	var zipBuf bytes.Buffer
	zw := zip.NewWriter(&zipBuf)

	entries := map[string][]byte{
		"ppt/media/image1.png": pngBuf.Bytes(),
		"ppt/slides/_rels/slide1.xml.rels": []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="../media/image1.png"/>
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>
</Relationships>`),
		"ppt/slides/slide1.xml": []byte(`<p:sld/>`),
	}
	for name, data := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to create zip entry %s: %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("failed to write zip entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}

	path := filepath.Join(t.TempDir(), "deck.pptx")
	if err := os.WriteFile(path, zipBuf.Bytes(), 0o644); err != nil {
		t.Fatalf("failed to write test pptx: %v", err)
	}
	return path
}

func TestEmbeddedAssetProvider(t *testing.T) {
	path := writeTestPPTX(t)
	p := newEmbeddedAssetProvider(path)

	img, ok := p.Image(1)
	if !ok {
		t.Fatal("embedded asset not found for slide 1")
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 8 {
		t.Errorf("decoded asset dimensions = %v, want 8x8", img.Bounds())
	}

	// Slide 2 has no relationship part, so the provider must not apply
	if _, ok := p.Image(2); ok {
		t.Error("provider applied to a slide without an embedded image")
	}
}

func TestEmbeddedAssetProviderUnreadableContainer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pptx")
	if err := os.WriteFile(path, []byte("PK\x03\x04not-really-a-zip"), 0o644); err != nil {
		t.Fatalf("failed to write broken container: %v", err)
	}

	p := newEmbeddedAssetProvider(path)
	if _, ok := p.Image(1); ok {
		t.Error("provider applied despite unreadable container")
	}
}
