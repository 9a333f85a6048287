// Command flatten places images on a stage and exports the flattened result
// with its layer record.
//
// Each argument is path@x,y,w,h[,rotation[,opacity[,mode]]] in stage pixels.
// Arguments paint bottom to top.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	studioimage "product-studio/internal/image"
)

// layerSpec is one parsed command line layer.
type layerSpec struct {
	Path     string
	X, Y     float64
	W, H     float64
	Rotation float64
	Opacity  float64
	Mode     studioimage.BlendMode
}

var errSpec = errors.New("expected path@x,y,w,h[,rotation[,opacity[,mode]]]")

func parseSpec(arg string) (layerSpec, error) {
	at := strings.LastIndexByte(arg, '@')
	if at <= 0 {
		return layerSpec{}, fmt.Errorf("%q: %w", arg, errSpec)
	}
	spec := layerSpec{Path: arg[:at], Opacity: 1, Mode: studioimage.BlendNormal}
	fields := strings.Split(arg[at+1:], ",")
	if len(fields) < 4 || len(fields) > 7 {
		return layerSpec{}, fmt.Errorf("%q: %w", arg, errSpec)
	}

	nums := []*float64{&spec.X, &spec.Y, &spec.W, &spec.H, &spec.Rotation, &spec.Opacity}
	for i, f := range fields {
		if i == 6 {
			mode, err := studioimage.ParseBlendMode(strings.TrimSpace(f))
			if err != nil {
				return layerSpec{}, fmt.Errorf("%q: %w", arg, err)
			}
			spec.Mode = mode
			break
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return layerSpec{}, fmt.Errorf("%q: field %d: %w", arg, i+1, errSpec)
		}
		*nums[i] = v
	}
	if spec.W <= 0 || spec.H <= 0 {
		return layerSpec{}, fmt.Errorf("%q: width and height must be positive", arg)
	}
	return spec, nil
}

func main() {
	stageW := flag.Int("stage-w", 1024, "Stage width")
	stageH := flag.Int("stage-h", 1024, "Stage height")
	outW := flag.Int("w", 0, "Output width (default: stage width)")
	outH := flag.Int("h", 0, "Output height (default: stage height)")
	out := flag.String("o", "flattened.png", "Output PNG path")
	bundlePath := flag.String("bundle", "", "Write the layer record JSON here (default: <out>.json)")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("Usage: flatten [options] path@x,y,w,h[,rotation[,opacity[,mode]]] ...")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *outW == 0 {
		*outW = *stageW
	}
	if *outH == 0 {
		*outH = *stageH
	}
	if *bundlePath == "" {
		*bundlePath = *out + ".json"
	}

	stack := studioimage.NewStack()
	for _, arg := range flag.Args() {
		spec, err := parseSpec(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		img, err := studioimage.LoadFile(spec.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load %s: %v\n", spec.Path, err)
			os.Exit(1)
		}
		l, err := stack.Add(img, &studioimage.Placement{X: spec.X, Y: spec.Y, Width: spec.W, Height: spec.H, Rotation: spec.Rotation})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to add %s: %v\n", spec.Path, err)
			os.Exit(1)
		}
		name := spec.Path
		if err := stack.Update(l.ID, studioimage.Changes{Name: &name, Opacity: &spec.Opacity, BlendMode: &spec.Mode}); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to configure %s: %v\n", spec.Path, err)
			os.Exit(1)
		}
	}

	stage := studioimage.DefaultStage()
	stage.Width, stage.Height = *stageW, *stageH
	bundle, err := studioimage.Export(stage, stack.SortedByZOrder(), *outW, *outH)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
		os.Exit(1)
	}

	data, err := studioimage.EncodePNG(bundle.Image())
	if err == nil {
		err = os.WriteFile(*out, data, 0644)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", *out, err)
		os.Exit(1)
	}
	meta, err := json.MarshalIndent(bundle.Metadata(), "", "  ")
	if err == nil {
		err = os.WriteFile(*bundlePath, meta, 0644)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", *bundlePath, err)
		os.Exit(1)
	}

	fmt.Printf("Flattened %d layer(s) to %s (%dx%d)\n", stack.Len(), *out, *outW, *outH)
	fmt.Print(bundle.Describe())
}
