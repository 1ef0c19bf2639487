package cover

import (
	"bytes"
	"fmt"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/thecmdrunner/swiftube-backend/internal/domain"
)

const (
	backgroundBrightness = 0.45
	bandBrightness       = 0.8
	margin               = 0.08
)

// Renderer draws the title card shown before a video starts playing.
type Renderer struct {
	title *truetype.Font
	body  *truetype.Font
}

func NewRenderer() (*Renderer, error) {
	title, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse title font: %w", err)
	}
	body, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse body font: %w", err)
	}
	return &Renderer{title: title, body: body}, nil
}

// Render returns a PNG of meta.Width x meta.Height with the title over a
// darkened accent background and the topic in a lighter band below it.
func (r *Renderer) Render(meta domain.VideoMetadata) ([]byte, error) {
	w, h := meta.Width, meta.Height
	if w <= 0 || h <= 0 {
		def := domain.DefaultVideoMetadata()
		w, h = def.Width, def.Height
	}

	accent := meta.Color.AccentColor
	if _, err := ParseHex(accent); err != nil {
		accent = domain.DefaultAccentColor
	}
	bg, err := shade(accent, backgroundBrightness)
	if err != nil {
		return nil, err
	}
	band, err := shade(accent, bandBrightness)
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(w, h)
	dc.SetColor(bg)
	dc.Clear()

	fw, fh := float64(w), float64(h)
	bandTop := fh * 0.72
	dc.SetColor(band)
	dc.DrawRectangle(0, bandTop, fw, fh-bandTop)
	dc.Fill()

	title := meta.Title
	if title == "" {
		title = meta.Topic
	}
	textWidth := fw * (1 - 2*margin)

	dc.SetFontFace(r.face(r.title, fh/11))
	dc.SetColor(color.White)
	dc.DrawStringWrapped(title, fw/2, bandTop/2, 0.5, 0.5, textWidth, 1.3, gg.AlignCenter)

	if meta.Topic != "" && meta.Topic != title {
		dc.SetFontFace(r.face(r.body, fh/22))
		dc.SetColor(color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xe6})
		dc.DrawStringWrapped(meta.Topic, fw/2, bandTop+(fh-bandTop)/2, 0.5, 0.5, textWidth, 1.2, gg.AlignCenter)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

func shade(hexColor string, brightness float64) (color.NRGBA, error) {
	adjusted, err := AdjustColor(hexColor, brightness)
	if err != nil {
		return color.NRGBA{}, err
	}
	return ParseHex(adjusted)
}
