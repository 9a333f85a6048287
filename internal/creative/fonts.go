package creative

import (
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Font families available to creatives.
const (
	FontGo       = "Go"
	FontGoBold   = "Go Bold"
	FontGoItalic = "Go Italic"
	FontGoMedium = "Go Medium"
	FontGoMono   = "Go Mono"
)

var fontData = map[string][]byte{
	FontGo:       goregular.TTF,
	FontGoBold:   gobold.TTF,
	FontGoItalic: goitalic.TTF,
	FontGoMedium: gomedium.TTF,
	FontGoMono:   gomono.TTF,
}

// FontFamilies lists the selectable families.
func FontFamilies() []string {
	return []string{FontGoBold, FontGo, FontGoMedium, FontGoItalic, FontGoMono}
}

// Fonts parses font families once and caches faces per family and size.
// Faces are not safe for concurrent use, so neither is Fonts.
type Fonts struct {
	mu     sync.Mutex
	parsed map[string]*opentype.Font
	faces  *cache.Cache
}

// NewFonts creates a font cache; unused faces expire after ttl.
func NewFonts(ttl time.Duration) *Fonts {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Fonts{
		parsed: make(map[string]*opentype.Font),
		faces:  cache.New(ttl, 2*ttl),
	}
}

// Face returns a face for family at size points (72 DPI, so points are
// pixels). Unknown families fall back to Go Bold.
func (f *Fonts) Face(family string, size float64) (font.Face, error) {
	if _, ok := fontData[family]; !ok {
		family = FontGoBold
	}
	key := fmt.Sprintf("%s@%.2f", family, size)
	if v, ok := f.faces.Get(key); ok {
		return v.(font.Face), nil
	}

	otf, err := f.font(family)
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(otf, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s face: %w", family, err)
	}
	f.faces.Set(key, face, cache.DefaultExpiration)
	return face, nil
}

func (f *Fonts) font(family string) (*opentype.Font, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if otf, ok := f.parsed[family]; ok {
		return otf, nil
	}
	otf, err := opentype.Parse(fontData[family])
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", family, err)
	}
	f.parsed[family] = otf
	return otf, nil
}
