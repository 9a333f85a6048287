// Package panels provides the workspace panels of the main window.
package panels

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"product-studio/internal/edit"
	studioimage "product-studio/internal/image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

const prefKeyLastDir = "lastDirectory"

// Host is what panels need from the main window.
type Host struct {
	app    fyne.App
	window fyne.Window
	status func(string)
}

// NewHost creates the shared panel host. status may be nil.
func NewHost(a fyne.App, w fyne.Window, status func(string)) *Host {
	if status == nil {
		status = func(string) {}
	}
	return &Host{app: a, window: w, status: status}
}

// lastDir returns the last used directory as a ListableURI, or nil.
func (h *Host) lastDir() fyne.ListableURI {
	path := h.app.Preferences().String(prefKeyLastDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

func (h *Host) saveLastDir(filePath string) {
	h.app.Preferences().SetString(prefKeyLastDir, filepath.Dir(filePath))
}

// OpenImage shows a file dialog filtered to supported image formats.
func (h *Host) OpenImage(onPath func(path string)) {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		h.saveLastDir(path)
		onPath(path)
	}, h.window)
	fd.SetFilter(storage.NewExtensionFileFilter(studioimage.SupportedFormats()))
	if loc := h.lastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// showError reports err in a dialog, preferring the service reason.
func (h *Host) showError(err error) {
	if err == nil {
		return
	}
	h.status("Error: " + errorText(err))
	dialog.ShowError(errors.New(errorText(err)), h.window)
}

// errorText is the message shown to the user for err.
func errorText(err error) string {
	var svcErr *edit.ServiceError
	if errors.As(err, &svcErr) {
		return fmt.Sprintf("%s failed: %s", svcErr.Op, svcErr.Reason)
	}
	return err.Error()
}

// labeledSlider returns a slider with a value label that follows it.
func labeledSlider(min, max, step float64, format string, onEnd func(float64)) (*widget.Slider, fyne.CanvasObject) {
	label := widget.NewLabel("")
	s := widget.NewSlider(min, max)
	s.Step = step
	s.OnChanged = func(v float64) {
		label.SetText(fmt.Sprintf(format, v))
	}
	s.OnChangeEnded = onEnd
	return s, label
}

// parsePositiveInt parses a dimension entry.
func parsePositiveInt(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%q is not a positive number", s)
	}
	return v, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
