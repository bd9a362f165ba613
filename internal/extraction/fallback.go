/**
 * Fallback rendering for the slide extraction pipeline
 *
 * When primary rendering is unavailable or fails, each slide is offered to an
 * ordered list of providers: embedded raster assets from the OOXML container
 * first, then a synthesized placeholder. The placeholder is always applicable,
 * so the chain never leaves a slide without an image.
 */

package extraction

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"path"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// FallbackProvider yields a degraded image for one slide, or reports that it
// is not applicable so the next provider in the chain can be tried.
type FallbackProvider interface {
	Name() string
	Method() RenderMethod
	Image(slideNumber int) (image.Image, bool)
}

// NewFallbackChain builds the ordered provider list for a document. Embedded
// asset extraction only applies to OOXML presentations; the placeholder
// provider terminates every chain.
func NewFallbackChain(filePath string, format SourceFormat) []FallbackProvider {
	var chain []FallbackProvider
	if format == FormatPresentation && strings.EqualFold(path.Ext(filePath), ".pptx") {
		chain = append(chain, newEmbeddedAssetProvider(filePath))
	}
	chain = append(chain, newPlaceholderProvider())
	return chain
}

// embeddedAssetProvider extracts the largest raster asset referenced by each
// slide of a PPTX container.
type embeddedAssetProvider struct {
	assets map[int][]byte
}

// relationships mirrors the OOXML slide relationship part
type relationships struct {
	XMLName       xml.Name       `xml:"Relationships"`
	Relationships []relationship `xml:"Relationship"`
}

type relationship struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
}

func newEmbeddedAssetProvider(filePath string) *embeddedAssetProvider {
	p := &embeddedAssetProvider{assets: make(map[int][]byte)}

	zr, err := zip.OpenReader(filePath)
	if err != nil {
		// Container unreadable: provider simply never applies.
		return p
	}
	defer zr.Close()

	media := make(map[string]*zip.File)
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "ppt/media/") {
			media[f.Name] = f
		}
	}
	if len(media) == 0 {
		return p
	}

	for _, f := range zr.File {
		var slideNum int
		if n, err := fmt.Sscanf(f.Name, "ppt/slides/_rels/slide%d.xml.rels", &slideNum); err != nil || n != 1 {
			continue
		}

		rels, err := readRelationships(f)
		if err != nil {
			continue
		}

		// Pick the largest image asset referenced by this slide.
		var best *zip.File
		for _, rel := range rels.Relationships {
			if !strings.HasSuffix(rel.Type, "/image") {
				continue
			}
			target := path.Clean(path.Join("ppt/slides", rel.Target))
			mf, ok := media[target]
			if !ok {
				continue
			}
			if best == nil || mf.UncompressedSize64 > best.UncompressedSize64 {
				best = mf
			}
		}
		if best == nil {
			continue
		}

		rc, err := best.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		p.assets[slideNum] = data
	}

	return p
}

func readRelationships(f *zip.File) (*relationships, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}

	var rels relationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, err
	}
	return &rels, nil
}

func (p *embeddedAssetProvider) Name() string {
	return "embedded-asset"
}

func (p *embeddedAssetProvider) Method() RenderMethod {
	return RenderFallbackEmbedded
}

func (p *embeddedAssetProvider) Image(slideNumber int) (image.Image, bool) {
	data, ok := p.assets[slideNumber]
	if !ok {
		return nil, false
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false
	}
	return img, true
}

// Placeholder canvas dimensions match the original deck aspect ratio
const (
	placeholderWidth  = 1280
	placeholderHeight = 720
)

// placeholderProvider synthesizes a blank annotated canvas for slides no
// other path could render. It is always applicable.
type placeholderProvider struct{}

func newPlaceholderProvider() *placeholderProvider {
	return &placeholderProvider{}
}

func (p *placeholderProvider) Name() string {
	return "placeholder"
}

func (p *placeholderProvider) Method() RenderMethod {
	return RenderFallbackPlaceholder
}

func (p *placeholderProvider) Image(slideNumber int) (image.Image, bool) {
	canvas := image.NewRGBA(image.Rect(0, 0, placeholderWidth, placeholderHeight))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	label := fmt.Sprintf("Slide %d (image not available)", slideNumber)
	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.RGBA{R: 0x40, G: 0x40, B: 0x40, A: 0xFF}),
		Face: basicfont.Face7x13,
	}
	width := d.MeasureString(label)
	d.Dot = fixed.P((placeholderWidth-width.Ceil())/2, placeholderHeight/2)
	d.DrawString(label)

	return canvas, true
}
