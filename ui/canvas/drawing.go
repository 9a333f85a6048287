package canvas

import (
	"image"
	"image/color"
	"image/draw"

	"product-studio/pkg/geometry"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"
)

var (
	defaultBackground   = color.NRGBA{R: 0x2B, G: 0x2B, B: 0x30, A: 0xFF}
	defaultOverlayColor = color.NRGBA{R: 0x3B, G: 0x82, B: 0xF6, A: 0xFF}
)

const (
	outlineWidth = 1.5
	handleBorder = 1.0
)

// Compose renders content letterboxed into a w x h surface and draws the
// overlay on top. A nil content yields just the background.
func Compose(content image.Image, overlay *Overlay, w, h int, bg color.Color) *image.RGBA {
	if bg == nil {
		bg = defaultBackground
	}
	out := image.NewRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
	draw.Draw(out, out.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	if content == nil || content.Bounds().Empty() {
		return out
	}

	vp := geometry.FitViewport(nativeSize(content), geometry.NewSize(float64(w), float64(h)))
	if !vp.Valid() {
		return out
	}
	dst := displayRect(vp)
	xdraw.ApproxBiLinear.Scale(out, dst, content, content.Bounds(), draw.Over, nil)

	if !overlay.Empty() {
		drawOverlay(out, overlay, vp, dst)
	}
	return out
}

func nativeSize(img image.Image) geometry.Size {
	b := img.Bounds()
	return geometry.NewSize(float64(b.Dx()), float64(b.Dy()))
}

func displayRect(vp geometry.Viewport) image.Rectangle {
	x0, y0 := int(vp.Origin.X+0.5), int(vp.Origin.Y+0.5)
	return image.Rect(x0, y0, x0+int(vp.Display.Width+0.5), y0+int(vp.Display.Height+0.5))
}

func drawOverlay(out *image.RGBA, o *Overlay, vp geometry.Viewport, dst image.Rectangle) {
	if o.Image != nil {
		xdraw.NearestNeighbor.Scale(out, dst, o.Image, o.Image.Bounds(), draw.Over, nil)
	}

	c := o.Color
	if c == nil {
		c = defaultOverlayColor
	}
	dc := gg.NewContextForRGBA(out)
	dc.SetColor(c)
	dc.SetLineWidth(outlineWidth)

	for _, poly := range o.Outlines {
		if len(poly) < 2 {
			continue
		}
		for i, p := range poly {
			q, _ := vp.ToClient(p)
			if i == 0 {
				dc.MoveTo(q.X, q.Y)
			} else {
				dc.LineTo(q.X, q.Y)
			}
		}
		dc.ClosePath()
		dc.Stroke()
	}

	for _, r := range o.Rects {
		a, _ := vp.ToClient(r.TopLeft())
		b, _ := vp.ToClient(r.BottomRight())
		dc.DrawRectangle(a.X, a.Y, b.X-a.X, b.Y-a.Y)
		dc.Stroke()
	}

	for _, r := range o.Handles {
		a, _ := vp.ToClient(r.TopLeft())
		b, _ := vp.ToClient(r.BottomRight())
		dc.DrawRectangle(a.X, a.Y, b.X-a.X, b.Y-a.Y)
		dc.SetColor(color.White)
		dc.FillPreserve()
		dc.SetColor(c)
		dc.SetLineWidth(handleBorder)
		dc.Stroke()
	}
}
