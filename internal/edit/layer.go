// Package edit implements the masked AI edit workflow: a painted mask and a
// prompt go to an Editor, and each result is stacked as an EditLayer over an
// immutable base image with undo/redo.
package edit

import (
	"context"
	"image"
	"time"

	studioimage "product-studio/internal/image"
)

// EditParams records how an EditLayer was produced.
type EditParams struct {
	Mask       *image.RGBA
	UserPrompt string
	SentPrompt string
	EditType   EditType
}

// EditLayer is the result of one AI edit.
type EditLayer struct {
	ID        string
	Image     image.Image
	Opacity   float64
	Visible   bool
	Params    EditParams
	CreatedAt time.Time
}

// Request is what an Editor receives. Prompt is the user's text as typed;
// Instruction is the text actually sent.
type Request struct {
	Base        image.Image
	Mask        *image.RGBA
	Prompt      string
	Instruction string
	EditType    EditType
}

// Editor performs a masked edit. Implemented by the AI service adapter.
type Editor interface {
	Edit(ctx context.Context, req Request) (image.Image, error)
}

// EditorFunc adapts a function to Editor.
type EditorFunc func(ctx context.Context, req Request) (image.Image, error)

func (f EditorFunc) Edit(ctx context.Context, req Request) (image.Image, error) {
	return f(ctx, req)
}

// Refiner post-processes a mask before it is sent, for example to grow it.
type Refiner interface {
	Refine(mask *image.RGBA) (*image.RGBA, error)
}

// toLayers maps edit layers onto full-canvas image layers for flattening.
// Results of a different size are stretched to the base.
func toLayers(layers []EditLayer, w, h int) []*studioimage.Layer {
	out := make([]*studioimage.Layer, 0, len(layers))
	for i, el := range layers {
		l := studioimage.NewLayer(el.Image)
		l.ID = el.ID
		l.Width, l.Height = float64(w), float64(h)
		l.Opacity = el.Opacity
		l.Visible = el.Visible
		l.ZOrder = i
		out = append(out, l)
	}
	return out
}

func cloneLayers(layers []EditLayer) []EditLayer {
	return append([]EditLayer(nil), layers...)
}
