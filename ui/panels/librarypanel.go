package panels

import (
	"fmt"
	"image"

	"product-studio/internal/app"
	"product-studio/internal/library"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

const libraryTimeFormat = "2006-01-02 15:04"

// LibraryPanel browses saved images, newest first.
type LibraryPanel struct {
	state *app.State
	host  *Host

	items   []library.Meta
	list    *widget.List
	preview *fynecanvas.Image
	info    *widget.Label
	current string

	openBtn   *widget.Button
	deleteBtn *widget.Button

	container fyne.CanvasObject
}

// NewLibraryPanel creates the library browser.
func NewLibraryPanel(state *app.State, h *Host) *LibraryPanel {
	lp := &LibraryPanel{state: state, host: h}

	lp.list = widget.NewList(
		func() int { return len(lp.items) },
		func() fyne.CanvasObject { return widget.NewLabel("item") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id >= len(lp.items) {
				return
			}
			m := lp.items[id]
			title := m.Name
			if title == "" {
				title = m.Prompt
			}
			obj.(*widget.Label).SetText(fmt.Sprintf("%s  %-9s %s",
				m.Created.Local().Format(libraryTimeFormat), m.Kind, truncate(title, 32)))
		},
	)
	lp.list.OnSelected = lp.onSelected

	lp.preview = fynecanvas.NewImageFromImage(nil)
	lp.preview.FillMode = fynecanvas.ImageFillContain
	lp.info = widget.NewLabel("")
	lp.info.Wrapping = fyne.TextWrapWord

	refreshBtn := widget.NewButton("Refresh", lp.Reload)
	lp.openBtn = widget.NewButton("Open in Editor", lp.onOpenInEditor)
	lp.deleteBtn = widget.NewButton("Delete", lp.onDelete)
	lp.deleteBtn.Importance = widget.DangerImportance
	lp.openBtn.Disable()
	lp.deleteBtn.Disable()

	left := container.NewBorder(refreshBtn, nil, nil, nil, lp.list)
	right := container.NewBorder(nil, container.NewVBox(lp.info, container.NewHBox(lp.openBtn, lp.deleteBtn)), nil, nil, lp.preview)
	split := container.NewHSplit(container.NewPadded(left), container.NewPadded(right))
	split.SetOffset(0.4)
	lp.container = split

	state.On(app.EventSaved, func(interface{}) { lp.Reload() })
	lp.Reload()
	return lp
}

// Container returns the panel's root object.
func (lp *LibraryPanel) Container() fyne.CanvasObject {
	return lp.container
}

// Reload re-reads the library listing.
func (lp *LibraryPanel) Reload() {
	store := lp.state.Library()
	if store == nil {
		return
	}
	items, err := store.List()
	if err != nil {
		lp.host.showError(err)
		return
	}
	lp.items = items
	lp.list.UnselectAll()
	lp.list.Refresh()
	lp.show("", nil, library.Meta{})
}

func (lp *LibraryPanel) onSelected(id widget.ListItemID) {
	if id >= len(lp.items) {
		return
	}
	img, meta, err := lp.state.Library().Load(lp.items[id].ID)
	if err != nil {
		lp.host.showError(err)
		return
	}
	lp.show(meta.ID, img, meta)
}

func (lp *LibraryPanel) show(id string, img image.Image, meta library.Meta) {
	lp.current = id
	lp.preview.Image = img
	lp.preview.Refresh()
	if id == "" {
		lp.info.SetText("")
		lp.openBtn.Disable()
		lp.deleteBtn.Disable()
		return
	}
	text := fmt.Sprintf("%s, %dx%d, %s", meta.Kind, meta.Width, meta.Height, meta.Created.Local().Format(libraryTimeFormat))
	if meta.Prompt != "" {
		text += "\nPrompt: " + meta.Prompt
	}
	lp.info.SetText(text)
	lp.openBtn.Enable()
	lp.deleteBtn.Enable()
}

func (lp *LibraryPanel) onOpenInEditor() {
	if lp.current == "" || lp.preview.Image == nil {
		return
	}
	if err := lp.state.OpenProductImage(lp.preview.Image, lp.current+".png"); err != nil {
		lp.host.showError(err)
		return
	}
	lp.host.status("Opened library image in the editor")
}

func (lp *LibraryPanel) onDelete() {
	id := lp.current
	if id == "" {
		return
	}
	dialog.ShowConfirm("Delete Image", "Delete this image from the library?", func(ok bool) {
		if !ok {
			return
		}
		if err := lp.state.Library().Delete(id); err != nil {
			lp.host.showError(err)
			return
		}
		lp.Reload()
	}, lp.host.window)
}
