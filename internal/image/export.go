package image

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// ErrInvalidSize is returned for non-positive stage or target dimensions.
var ErrInvalidSize = errors.New("invalid export size")

// StageSpec is the working surface a blend arrangement is laid out on.
type StageSpec struct {
	Width      int
	Height     int
	Background color.Color
}

// DefaultStage is the blender's working surface.
func DefaultStage() StageSpec {
	return StageSpec{Width: 1024, Height: 1024, Background: color.White}
}

// LayerRecord describes one exported layer in target pixel space.
type LayerRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Width     float64   `json:"width"`
	Height    float64   `json:"height"`
	Rotation  float64   `json:"rotation"`
	Opacity   float64   `json:"opacity"`
	ZOrder    int       `json:"zOrder"`
	BlendMode BlendMode `json:"blendMode"`
}

// BundleMetadata is the serialisable part of an ExportBundle.
type BundleMetadata struct {
	Width       int           `json:"width"`
	Height      int           `json:"height"`
	StageWidth  int           `json:"stageWidth"`
	StageHeight int           `json:"stageHeight"`
	ScaleX      float64       `json:"scaleX"`
	ScaleY      float64       `json:"scaleY"`
	Layers      []LayerRecord `json:"layers"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// ExportBundle is a flattened arrangement plus the per-layer record that
// produced it. It is immutable after creation.
type ExportBundle struct {
	image *image.NRGBA
	meta  BundleMetadata
}

// Image returns the flattened bitmap at the target size.
func (b *ExportBundle) Image() image.Image {
	return b.image
}

// Metadata returns a copy of the bundle record.
func (b *ExportBundle) Metadata() BundleMetadata {
	m := b.meta
	m.Layers = append([]LayerRecord(nil), b.meta.Layers...)
	return m
}

// Layers returns a copy of the layer records, bottom first.
func (b *ExportBundle) Layers() []LayerRecord {
	return b.Metadata().Layers
}

// Export flattens layers onto the stage and resamples the result to the
// target size. Layer records are scaled to the target as well.
func Export(stage StageSpec, layers []*Layer, targetW, targetH int) (*ExportBundle, error) {
	if stage.Width <= 0 || stage.Height <= 0 {
		return nil, fmt.Errorf("%w: stage %dx%d", ErrInvalidSize, stage.Width, stage.Height)
	}
	if targetW <= 0 || targetH <= 0 {
		return nil, fmt.Errorf("%w: target %dx%d", ErrInvalidSize, targetW, targetH)
	}
	bg := stage.Background
	if bg == nil {
		bg = color.White
	}

	flat := Flatten(imaging.New(stage.Width, stage.Height, bg), layers)
	if targetW != stage.Width || targetH != stage.Height {
		flat = imaging.Resize(flat, targetW, targetH, imaging.Lanczos)
	}

	sx := float64(targetW) / float64(stage.Width)
	sy := float64(targetH) / float64(stage.Height)
	records := make([]LayerRecord, 0, len(layers))
	for _, l := range sortByZ(layers) {
		if !drawn(l) {
			continue
		}
		records = append(records, LayerRecord{
			ID:        l.ID,
			Name:      l.Name,
			X:         l.X * sx,
			Y:         l.Y * sy,
			Width:     l.Width * sx,
			Height:    l.Height * sy,
			Rotation:  l.Rotation,
			Opacity:   l.Opacity,
			ZOrder:    l.ZOrder,
			BlendMode: l.BlendMode,
		})
	}

	return &ExportBundle{
		image: flat,
		meta: BundleMetadata{
			Width:       targetW,
			Height:      targetH,
			StageWidth:  stage.Width,
			StageHeight: stage.Height,
			ScaleX:      sx,
			ScaleY:      sy,
			Layers:      records,
			CreatedAt:   time.Now().UTC(),
		},
	}, nil
}

// Describe renders the layer record as plain text for a generation prompt.
func (b *ExportBundle) Describe() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Canvas %dx%d px with %d layer(s), bottom to top:\n",
		b.meta.Width, b.meta.Height, len(b.meta.Layers))
	for i, r := range b.meta.Layers {
		name := r.Name
		if name == "" {
			name = "image"
		}
		fmt.Fprintf(&sb, "%d. %s at (%.0f, %.0f) size %.0fx%.0f rotation %.1f deg opacity %.0f%%",
			i+1, name, r.X, r.Y, r.Width, r.Height, r.Rotation, r.Opacity*100)
		if r.BlendMode != BlendNormal {
			fmt.Fprintf(&sb, " blend %s", strings.ToLower(r.BlendMode.String()))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
