package creative

import (
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"
	"math"
	"strings"

	"product-studio/pkg/colorutil"
	"product-studio/pkg/geometry"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
)

// ErrNoBackground is returned when rendering without a usable background.
var ErrNoBackground = errors.New("no background image")

// Layout constants, all relative to the font size or canvas width.
const (
	paddingRatio    = 0.05 // headline wrap padding, fraction of canvas width
	lineHeightRatio = 1.2
	boxMargin       = 1.1 // headline hit box widening
	ctaPadRatio     = 1.2 // horizontal CTA padding per side
	ctaHeightRatio  = 2.2

	shadowOffset = 3.0
	shadowBlur   = 4.0
	outlineSteps = 16
)

var shadowColor = color.NRGBA{A: 140}

// ElementRects holds the hit boxes of one render, in canvas pixels. Hidden or
// empty elements have a zero rect.
type ElementRects struct {
	Logo     geometry.Rect `json:"logo"`
	Headline geometry.Rect `json:"headline"`
	CTA      geometry.Rect `json:"cta"`
}

// Get returns the rect of el.
func (r ElementRects) Get(el Element) geometry.Rect {
	switch el {
	case ElementLogo:
		return r.Logo
	case ElementHeadline:
		return r.Headline
	case ElementCTA:
		return r.CTA
	}
	return geometry.Rect{}
}

// Anchors holds each element's anchor point in canvas pixels.
type Anchors struct {
	Logo     geometry.Point2D `json:"logo"`
	Headline geometry.Point2D `json:"headline"`
	CTA      geometry.Point2D `json:"cta"`
}

// Result is the output of one render pass.
type Result struct {
	Image   *image.RGBA
	Rects   ElementRects
	Anchors Anchors
}

// Options configures a Renderer.
type Options struct {
	Fonts  *Fonts
	Logger *slog.Logger
}

// Renderer draws creatives. It keeps no per-render state.
type Renderer struct {
	fonts  *Fonts
	logger *slog.Logger
}

// NewRenderer creates a renderer.
func NewRenderer(opts Options) *Renderer {
	if opts.Fonts == nil {
		opts.Fonts = NewFonts(0)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Renderer{fonts: opts.Fonts, logger: opts.Logger}
}

type palette struct {
	text, button, outline color.NRGBA
}

// Render draws st over a copy of bg (and logo, when present) at bg's native
// resolution. Nothing is returned on error.
func (r *Renderer) Render(bg, logo image.Image, st State) (*Result, error) {
	if bg == nil || bg.Bounds().Empty() {
		return nil, ErrNoBackground
	}
	st, err := st.Validate()
	if err != nil {
		return nil, err
	}
	var pal palette
	pal.text, _ = colorutil.ParseHex(st.TextColor)
	pal.button, _ = colorutil.ParseHex(st.BackgroundColor)
	pal.outline, _ = colorutil.ParseHex(st.OutlineColor)

	dc := gg.NewContextForImage(imaging.Clone(bg))
	w, h := float64(dc.Width()), float64(dc.Height())
	res := &Result{
		Anchors: Anchors{
			Logo:     st.LogoPosition.ToPixel(w, h),
			Headline: st.HeadlinePosition.ToPixel(w, h),
			CTA:      st.CTAPosition.ToPixel(w, h),
		},
	}

	if st.ShowHeadline && strings.TrimSpace(st.Headline) != "" {
		rect, err := r.drawHeadline(dc, st, pal, res.Anchors.Headline)
		if err != nil {
			return nil, err
		}
		res.Rects.Headline = rect
	}
	if st.ShowCTA && strings.TrimSpace(st.CTAText) != "" {
		rect, err := r.drawCTA(dc, st, pal, res.Anchors.CTA)
		if err != nil {
			return nil, err
		}
		res.Rects.CTA = rect
	}
	if st.ShowLogo && logo != nil && !logo.Bounds().Empty() {
		res.Rects.Logo = drawLogo(dc, logo, st.LogoScale, res.Anchors.Logo)
	}

	res.Image = dc.Image().(*image.RGBA)
	r.logger.Debug("creative rendered",
		"width", dc.Width(), "height", dc.Height(), "template", st.TemplateID)
	return res, nil
}

type textLine struct {
	text string
	x, y float64
}

func (r *Renderer) drawHeadline(dc *gg.Context, st State, pal palette, anchor geometry.Point2D) (geometry.Rect, error) {
	w := float64(dc.Width())
	size := w * st.HeadlineSize / 100
	face, err := r.fonts.Face(st.FontFamily, size)
	if err != nil {
		return geometry.Rect{}, err
	}
	dc.SetFontFace(face)

	wrapWidth := w - 2*paddingRatio*w
	wrapped := dc.WordWrap(st.Headline, wrapWidth)
	lineHeight := lineHeightRatio * size
	maxWidth := 0.0
	for _, l := range wrapped {
		lw, _ := dc.MeasureString(l)
		maxWidth = math.Max(maxWidth, lw)
	}
	boxW := math.Min(maxWidth, wrapWidth) * boxMargin
	boxH := float64(len(wrapped)) * lineHeight

	var boxX, ax float64
	switch st.HeadlineAlign {
	case AlignLeft:
		boxX, ax = anchor.X, 0
	case AlignRight:
		boxX, ax = anchor.X-boxW, 1
	default:
		boxX, ax = anchor.X-boxW/2, 0.5
	}
	top := anchor.Y - boxH/2

	lines := make([]textLine, len(wrapped))
	for i, l := range wrapped {
		lines[i] = textLine{text: l, x: anchor.X, y: top + lineHeight*(float64(i)+0.5)}
	}

	if st.TextShadow {
		drawShadow(dc, func(sc *gg.Context) {
			sc.SetFontFace(face)
			for _, l := range lines {
				sc.DrawStringAnchored(l.text, l.x+shadowOffset, l.y+shadowOffset, ax, 0.5)
			}
		})
	}
	if st.TextOutline && st.OutlineWidth > 0 {
		dc.SetColor(pal.outline)
		for i := 0; i < outlineSteps; i++ {
			a := 2 * math.Pi * float64(i) / outlineSteps
			dx, dy := st.OutlineWidth*math.Cos(a), st.OutlineWidth*math.Sin(a)
			for _, l := range lines {
				dc.DrawStringAnchored(l.text, l.x+dx, l.y+dy, ax, 0.5)
			}
		}
	}
	dc.SetColor(pal.text)
	for _, l := range lines {
		dc.DrawStringAnchored(l.text, l.x, l.y, ax, 0.5)
	}

	return geometry.NewRect(boxX, top, boxW, boxH), nil
}

func (r *Renderer) drawCTA(dc *gg.Context, st State, pal palette, anchor geometry.Point2D) (geometry.Rect, error) {
	size := float64(dc.Width()) * st.CTASize / 100
	face, err := r.fonts.Face(st.FontFamily, size)
	if err != nil {
		return geometry.Rect{}, err
	}
	dc.SetFontFace(face)

	textW, _ := dc.MeasureString(st.CTAText)
	rect := geometry.RectFromCenter(anchor, textW+2*ctaPadRatio*size, ctaHeightRatio*size)
	radius := rect.Height / 2

	if st.TextShadow {
		drawShadow(dc, func(sc *gg.Context) {
			sc.DrawRoundedRectangle(rect.X+shadowOffset, rect.Y+shadowOffset, rect.Width, rect.Height, radius)
			sc.Fill()
		})
	}
	dc.SetColor(pal.button)
	dc.DrawRoundedRectangle(rect.X, rect.Y, rect.Width, rect.Height, radius)
	dc.Fill()

	dc.SetColor(pal.text)
	dc.DrawStringAnchored(st.CTAText, anchor.X, anchor.Y, 0.5, 0.5)
	return rect, nil
}

func drawLogo(dc *gg.Context, logo image.Image, scale float64, anchor geometry.Point2D) geometry.Rect {
	lb := logo.Bounds()
	lw := float64(dc.Width()) * scale / 100
	lh := lw * float64(lb.Dy()) / float64(lb.Dx())

	resized := imaging.Resize(logo, max(1, int(math.Round(lw))), max(1, int(math.Round(lh))), imaging.Lanczos)
	dc.DrawImageAnchored(resized, int(math.Round(anchor.X)), int(math.Round(anchor.Y)), 0.5, 0.5)
	return geometry.RectFromCenter(anchor, lw, lh)
}

// drawShadow paints into a scratch layer in the shadow colour, blurs it and
// composites it under whatever is drawn next.
func drawShadow(dc *gg.Context, paint func(sc *gg.Context)) {
	sc := gg.NewContext(dc.Width(), dc.Height())
	sc.SetColor(shadowColor)
	paint(sc)
	dc.DrawImage(imaging.Blur(sc.Image(), shadowBlur), 0, 0)
}
