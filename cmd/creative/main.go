// Command creative renders an ad creative from a background image, an
// optional logo and a JSON settings file, and prints the element boxes.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"os"

	"product-studio/internal/creative"
	studioimage "product-studio/internal/image"
)

func main() {
	bgPath := flag.String("bg", "", "Path to background image")
	logoPath := flag.String("logo", "", "Path to logo image (optional)")
	statePath := flag.String("state", "", "Path to JSON creative settings (optional)")
	template := flag.String("template", "", "Template id to apply (e.g. bold-center)")
	headline := flag.String("headline", "", "Headline text override")
	cta := flag.String("cta", "", "Button text override")
	out := flag.String("o", "creative.png", "Output PNG path")
	flag.Parse()

	if *bgPath == "" {
		fmt.Println("Usage: creative -bg <image> [-logo <image>] [-state settings.json] [-template id] [-o out.png]")
		fmt.Println("Templates:")
		for _, t := range creative.Templates() {
			fmt.Printf("  %-16s %s\n", t.ID, t.Name)
		}
		os.Exit(1)
	}

	bg, err := studioimage.LoadFile(*bgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load background: %v\n", err)
		os.Exit(1)
	}
	var logo image.Image
	if *logoPath != "" {
		if logo, err = studioimage.LoadFile(*logoPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load logo: %v\n", err)
			os.Exit(1)
		}
	}

	st := creative.DefaultState()
	if *statePath != "" {
		data, err := os.ReadFile(*statePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read settings: %v\n", err)
			os.Exit(1)
		}
		if err := json.Unmarshal(data, &st); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to parse settings: %v\n", err)
			os.Exit(1)
		}
	}
	if *template != "" {
		if st, err = creative.ApplyTemplate(st, *template); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}
	if *headline != "" {
		st.Headline = *headline
	}
	if *cta != "" {
		st.CTAText = *cta
	}

	res, err := creative.NewRenderer(creative.Options{}).Render(bg, logo, st)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Render failed: %v\n", err)
		os.Exit(1)
	}

	data, err := studioimage.EncodePNG(res.Image)
	if err == nil {
		err = os.WriteFile(*out, data, 0644)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", *out, err)
		os.Exit(1)
	}

	b := res.Image.Bounds()
	fmt.Printf("Rendered %dx%d creative to %s\n", b.Dx(), b.Dy(), *out)
	report, _ := json.MarshalIndent(struct {
		Rects   creative.ElementRects `json:"rects"`
		Anchors creative.Anchors      `json:"anchors"`
	}{res.Rects, res.Anchors}, "", "  ")
	fmt.Println(string(report))
}
