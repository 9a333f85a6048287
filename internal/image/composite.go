package image

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/disintegration/imaging"
)

// BlendMode specifies how layers are composited.
type BlendMode int

const (
	BlendNormal BlendMode = iota
	BlendMultiply
	BlendScreen
	BlendOverlay
	BlendDifference
)

func (m BlendMode) String() string {
	switch m {
	case BlendNormal:
		return "Normal"
	case BlendMultiply:
		return "Multiply"
	case BlendScreen:
		return "Screen"
	case BlendOverlay:
		return "Overlay"
	case BlendDifference:
		return "Difference"
	default:
		return "Unknown"
	}
}

// BlendModes lists the modes in menu order.
func BlendModes() []BlendMode {
	return []BlendMode{BlendNormal, BlendMultiply, BlendScreen, BlendOverlay, BlendDifference}
}

// ParseBlendMode is the inverse of BlendMode.String, case-insensitive.
func ParseBlendMode(s string) (BlendMode, error) {
	for _, m := range BlendModes() {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return BlendNormal, fmt.Errorf("unknown blend mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m BlendMode) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(m.String())), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *BlendMode) UnmarshalText(b []byte) error {
	parsed, err := ParseBlendMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// drawn reports whether Flatten paints l.
func drawn(l *Layer) bool {
	return l != nil && l.Image != nil && l.Visible && l.Opacity > 0
}

// Flatten draws the visible layers over base in ascending z-order and returns
// a new image at the base's native size. Each layer is scaled to its box,
// rotated about its centre and blended with its own opacity only. base is not
// modified.
func Flatten(base image.Image, layers []*Layer) *image.NRGBA {
	dst := imaging.Clone(base)
	for _, l := range sortByZ(layers) {
		if !drawn(l) {
			continue
		}
		src, at := l.Rendered()
		if l.BlendMode == BlendNormal {
			dst = imaging.Overlay(dst, src, at, l.Opacity)
			continue
		}
		blendInto(dst, src, at, l.BlendMode, l.Opacity)
	}
	return dst
}

// blendInto composites src onto dst at the given offset using a separable
// blend mode, then source-over with the layer alpha.
func blendInto(dst *image.NRGBA, src image.Image, at image.Point, mode BlendMode, opacity float64) {
	s := imaging.Clone(src)
	sb := s.Bounds()
	area := image.Rectangle{Min: at, Max: at.Add(sb.Size())}.Intersect(dst.Bounds())
	if area.Empty() {
		return
	}

	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			si := s.PixOffset(x-at.X, y-at.Y)
			di := dst.PixOffset(x, y)
			sp := s.Pix[si : si+4 : si+4]
			dp := dst.Pix[di : di+4 : di+4]

			alpha := float64(sp[3]) / 255 * opacity
			if alpha == 0 {
				continue
			}
			da := float64(dp[3]) / 255
			for c := 0; c < 3; c++ {
				sf := float64(sp[c]) / 255
				df := float64(dp[c]) / 255
				rf := blendChannel(mode, sf, df)
				dp[c] = uint8(math.Round(clamp(rf*alpha+df*(1-alpha), 0, 1) * 255))
			}
			dp[3] = uint8(math.Round(clamp(alpha+da*(1-alpha), 0, 1) * 255))
		}
	}
}

func blendChannel(mode BlendMode, s, d float64) float64 {
	switch mode {
	case BlendMultiply:
		return s * d
	case BlendScreen:
		return 1 - (1-s)*(1-d)
	case BlendOverlay:
		if d < 0.5 {
			return 2 * s * d
		}
		return 1 - 2*(1-s)*(1-d)
	case BlendDifference:
		return math.Abs(s - d)
	default:
		return s
	}
}

func clamp(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
