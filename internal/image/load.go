package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

// ErrUndecodable is returned when input bytes are not a supported image.
var ErrUndecodable = errors.New("undecodable image")

// Decode reads a bitmap in any registered format.
func Decode(r io.Reader) (image.Image, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: empty %s image", ErrUndecodable, format)
	}
	return img, nil
}

// DecodeDataURL decodes a "data:image/...;base64," URL. Bare base64 is also
// accepted.
func DecodeDataURL(s string) (image.Image, error) {
	payload := s
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 || !strings.Contains(s[:comma], ";base64") {
			return nil, fmt.Errorf("%w: malformed data url", ErrUndecodable)
		}
		payload = s[comma+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return Decode(bytes.NewReader(raw))
}

// LoadFile decodes the image at path.
func LoadFile(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	TTL         time.Duration
	Concurrency int
	Logger      *slog.Logger
}

// Loader decodes files and keeps recent results in memory, keyed by path and
// modification time so edited files are reloaded.
type Loader struct {
	cache       *cache.Cache
	concurrency int
	logger      *slog.Logger
}

// NewLoader creates a caching loader.
func NewLoader(opts LoaderOptions) *Loader {
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Minute
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loader{
		cache:       cache.New(opts.TTL, 2*opts.TTL),
		concurrency: opts.Concurrency,
		logger:      opts.Logger,
	}
}

// Load decodes one file, using the cache when the file is unchanged.
func (l *Loader) Load(path string) (image.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat image: %w", err)
	}
	key := fmt.Sprintf("%s@%d", path, info.ModTime().UnixNano())
	if v, ok := l.cache.Get(key); ok {
		l.logger.Debug("image cache hit", "path", path)
		return v.(image.Image), nil
	}

	img, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	l.cache.Set(key, img, cache.DefaultExpiration)
	l.logger.Debug("image decoded", "path", path,
		"width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return img, nil
}

// LoadAll decodes paths concurrently. Results keep the input order; any
// failure fails the whole load.
func (l *Loader) LoadAll(ctx context.Context, paths []string) ([]image.Image, error) {
	images := make([]image.Image, len(paths))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(l.concurrency)

	for i, path := range paths {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			img, err := l.Load(path)
			if err != nil {
				return err
			}
			images[i] = img
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}

// SupportedFormats returns the list of supported image file extensions.
func SupportedFormats() []string {
	return []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".tiff", ".tif", ".bmp"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

// FileFilter returns a file filter string for use in file dialogs.
func FileFilter() string {
	return "Image Files (*.png, *.jpg, *.jpeg, *.gif, *.webp, *.tiff, *.tif, *.bmp)"
}
