package cover

import (
	"encoding/hex"
	"fmt"
	"image/color"
	"math"
	"strings"
)

// ParseHex reads "#rrggbb" or "rrggbb".
func ParseHex(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.NRGBA{}, fmt.Errorf("cover: expected 6 hex chars, got %q", s)
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("cover: invalid hex %q: %w", s, err)
	}
	return color.NRGBA{R: raw[0], G: raw[1], B: raw[2], A: 0xff}, nil
}

func ToHex(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// AdjustColor scales every channel of hexColor by brightness, clamped to
// [0,255]. Below 1 darkens, above 1 lightens.
func AdjustColor(hexColor string, brightness float64) (string, error) {
	c, err := ParseHex(hexColor)
	if err != nil {
		return "", err
	}
	return ToHex(color.NRGBA{
		R: scale(c.R, brightness),
		G: scale(c.G, brightness),
		B: scale(c.B, brightness),
		A: 0xff,
	}), nil
}

func scale(v uint8, f float64) uint8 {
	x := math.Round(float64(v) * f)
	if x < 0 {
		return 0
	}
	if x > 255 {
		return 255
	}
	return uint8(x)
}
