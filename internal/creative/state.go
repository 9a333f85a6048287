// Package creative renders ad creatives: a background with a headline, a
// pill-shaped call-to-action button and a logo, laid out in percent
// coordinates so the same state works at any resolution.
package creative

import (
	"errors"
	"fmt"

	"product-studio/pkg/colorutil"
	"product-studio/pkg/geometry"
)

// ErrInvalidColor is returned when a colour field cannot be parsed.
var ErrInvalidColor = errors.New("invalid color")

// Element identifies a draggable part of a creative.
type Element int

const (
	ElementNone Element = iota
	ElementLogo
	ElementHeadline
	ElementCTA
)

func (e Element) String() string {
	switch e {
	case ElementLogo:
		return "logo"
	case ElementHeadline:
		return "headline"
	case ElementCTA:
		return "cta"
	default:
		return "none"
	}
}

// HitOrder is the fixed priority used when element boxes overlap.
var HitOrder = [...]Element{ElementLogo, ElementHeadline, ElementCTA}

// Align is the horizontal anchoring of the headline box.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Percent is a position in percent of the canvas width (X) and height (Y).
type Percent struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Clamp limits both coordinates to [0,100].
func (p Percent) Clamp() Percent {
	return Percent{X: geometry.ClampPercent(p.X), Y: geometry.ClampPercent(p.Y)}
}

// ToPixel converts the position to pixels on a w x h canvas.
func (p Percent) ToPixel(w, h float64) geometry.Point2D {
	return geometry.NewPoint2D(geometry.PercentToPixel(p.X, w), geometry.PercentToPixel(p.Y, h))
}

// PercentOf converts a pixel position on a w x h canvas to a clamped Percent.
func PercentOf(pt geometry.Point2D, w, h float64) Percent {
	return Percent{X: geometry.PixelToPercent(pt.X, w), Y: geometry.PixelToPercent(pt.Y, h)}.Clamp()
}

// State describes a creative declaratively. Sizes are percent of canvas
// width; positions are Percent. The renderer only reads it.
type State struct {
	Headline         string  `json:"headline"`
	CTAText          string  `json:"ctaText"`
	FontFamily       string  `json:"fontFamily"`
	TextColor        string  `json:"textColor"`
	BackgroundColor  string  `json:"backgroundColor"`
	ShowHeadline     bool    `json:"showHeadline"`
	ShowCTA          bool    `json:"showCta"`
	ShowLogo         bool    `json:"showLogo"`
	HeadlineSize     float64 `json:"headlineSize"`
	CTASize          float64 `json:"ctaSize"`
	HeadlinePosition Percent `json:"headlinePosition"`
	CTAPosition      Percent `json:"ctaPosition"`
	LogoPosition     Percent `json:"logoPosition"`
	HeadlineAlign    Align   `json:"headlineAlign"`
	TextShadow       bool    `json:"textShadow"`
	TextOutline      bool    `json:"textOutline"`
	OutlineColor     string  `json:"outlineColor"`
	OutlineWidth     float64 `json:"outlineWidth"`
	LogoScale        float64 `json:"logoScale"`
	TemplateID       string  `json:"templateId"`
}

// DefaultState returns the state a new creative session starts with.
func DefaultState() State {
	return State{
		Headline:         "Your Product, Elevated",
		CTAText:          "Shop Now",
		FontFamily:       FontGoBold,
		TextColor:        "#ffffff",
		BackgroundColor:  "#e11d48",
		ShowHeadline:     true,
		ShowCTA:          true,
		ShowLogo:         true,
		HeadlineSize:     6,
		CTASize:          3,
		HeadlinePosition: Percent{X: 50, Y: 15},
		CTAPosition:      Percent{X: 50, Y: 88},
		LogoPosition:     Percent{X: 88, Y: 10},
		HeadlineAlign:    AlignCenter,
		TextShadow:       true,
		OutlineColor:     "#000000",
		OutlineWidth:     2,
		LogoScale:        15,
		TemplateID:       "classic",
	}
}

// Position returns the anchor of an element.
func (s State) Position(el Element) Percent {
	switch el {
	case ElementLogo:
		return s.LogoPosition
	case ElementHeadline:
		return s.HeadlinePosition
	case ElementCTA:
		return s.CTAPosition
	}
	return Percent{}
}

// WithPosition returns a copy with the element moved to the clamped position.
func (s State) WithPosition(el Element, p Percent) State {
	p = p.Clamp()
	switch el {
	case ElementLogo:
		s.LogoPosition = p
	case ElementHeadline:
		s.HeadlinePosition = p
	case ElementCTA:
		s.CTAPosition = p
	}
	return s
}

// Visible reports whether the element is switched on.
func (s State) Visible(el Element) bool {
	switch el {
	case ElementLogo:
		return s.ShowLogo
	case ElementHeadline:
		return s.ShowHeadline
	case ElementCTA:
		return s.ShowCTA
	}
	return false
}

// Validate returns a normalised copy: sizes and positions clamped to usable
// ranges and an unknown alignment reset to center. Colours that cannot be
// parsed are reported as an error wrapping ErrInvalidColor.
func (s State) Validate() (State, error) {
	s.HeadlineSize = clampRange(s.HeadlineSize, 1, 30)
	s.CTASize = clampRange(s.CTASize, 1, 20)
	s.LogoScale = clampRange(s.LogoScale, 1, 100)
	s.OutlineWidth = clampRange(s.OutlineWidth, 0, 20)
	s.HeadlinePosition = s.HeadlinePosition.Clamp()
	s.CTAPosition = s.CTAPosition.Clamp()
	s.LogoPosition = s.LogoPosition.Clamp()
	switch s.HeadlineAlign {
	case AlignLeft, AlignCenter, AlignRight:
	default:
		s.HeadlineAlign = AlignCenter
	}

	for _, c := range []struct{ name, value string }{
		{"textColor", s.TextColor},
		{"backgroundColor", s.BackgroundColor},
		{"outlineColor", s.OutlineColor},
	} {
		if _, err := colorutil.ParseHex(c.value); err != nil {
			return s, fmt.Errorf("%w: %s %q", ErrInvalidColor, c.name, c.value)
		}
	}
	return s, nil
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
