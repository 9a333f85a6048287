// Package library persists finished images with their metadata.
package library

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	studioimage "product-studio/internal/image"

	"github.com/google/uuid"
)

// ErrNotFound is returned for an unknown image id.
var ErrNotFound = errors.New("library item not found")

// Kind tells which workflow produced an image.
type Kind string

const (
	KindEdit      Kind = "edit"
	KindVariation Kind = "variation"
	KindCreative  Kind = "creative"
	KindBlend     Kind = "blend"
)

// Meta is the sidecar record stored next to each image.
type Meta struct {
	ID       string          `json:"id"`
	Kind     Kind            `json:"kind"`
	Name     string          `json:"name,omitempty"`
	Prompt   string          `json:"prompt,omitempty"`
	Width    int             `json:"width"`
	Height   int             `json:"height"`
	Created  time.Time       `json:"created"`
	Settings json.RawMessage `json:"settings,omitempty"`
}

// Store saves and browses images. Implemented by FileStore.
type Store interface {
	Save(ctx context.Context, img image.Image, meta Meta) (string, error)
	Load(id string) (image.Image, Meta, error)
	List() ([]Meta, error)
	Delete(id string) error
}

// FileStore keeps <id>.png and <id>.json pairs in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create library dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the storage directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Save writes img as PNG with its metadata and returns the new id. ID, size
// and creation time in meta are filled in.
func (s *FileStore) Save(ctx context.Context, img image.Image, meta Meta) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := studioimage.EncodePNG(img)
	if err != nil {
		return "", err
	}

	meta.ID = uuid.NewString()
	meta.Width, meta.Height = img.Bounds().Dx(), img.Bounds().Dy()
	meta.Created = time.Now().UTC()
	sidecar, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(s.imagePath(meta.ID), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := os.WriteFile(s.metaPath(meta.ID), sidecar, 0644); err != nil {
		os.Remove(s.imagePath(meta.ID))
		return "", fmt.Errorf("failed to write metadata: %w", err)
	}
	return meta.ID, nil
}

// Load reads an image and its metadata.
func (s *FileStore) Load(id string) (image.Image, Meta, error) {
	meta, err := s.readMeta(id)
	if err != nil {
		return nil, Meta{}, err
	}
	data, err := os.ReadFile(s.imagePath(id))
	if err != nil {
		return nil, Meta{}, fmt.Errorf("failed to read image: %w", err)
	}
	img, err := studioimage.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, Meta{}, err
	}
	return img, meta, nil
}

// List returns metadata of all stored images, newest first. Unreadable
// sidecars are skipped.
func (s *FileStore) List() ([]Meta, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []Meta
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		meta, err := s.readMeta(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			continue
		}
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Created.After(out[j].Created)
	})
	return out, nil
}

// Delete removes an image and its metadata.
func (s *FileStore) Delete(id string) error {
	if _, err := s.readMeta(id); err != nil {
		return err
	}
	if err := os.Remove(s.imagePath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return os.Remove(s.metaPath(id))
}

func (s *FileStore) readMeta(id string) (Meta, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Meta{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	data, err := os.ReadFile(s.metaPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return Meta{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Meta{}, err
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}, fmt.Errorf("invalid metadata %s: %w", id, err)
	}
	return meta, nil
}

func (s *FileStore) imagePath(id string) string {
	return filepath.Join(s.dir, id+".png")
}

func (s *FileStore) metaPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}
