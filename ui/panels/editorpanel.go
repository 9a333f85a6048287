package panels

import (
	"context"
	"fmt"
	"image"
	"path/filepath"

	"product-studio/internal/app"
	"product-studio/internal/edit"
	"product-studio/internal/interact"
	"product-studio/ui/canvas"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

var variationCounts = []string{"1", "2", "3", "4"}

// EditorPanel is the masked-edit workspace: paint a mask on the product
// photo, describe the change and stack the results.
type EditorPanel struct {
	state  *app.State
	host   *Host
	canvas *canvas.StudioCanvas
	paint  *interact.PaintController

	prompt      *widget.Entry
	brush       *widget.Slider
	clearBtn    *widget.Button
	applyBtn    *widget.Button
	varBtn      *widget.Button
	cancelBtn   *widget.Button
	undoBtn     *widget.Button
	redoBtn     *widget.Button
	count       *widget.Select
	progress    *widget.ProgressBarInfinite
	layers      *widget.List
	opacity     *widget.Slider
	visible     *widget.Check
	removeBtn   *widget.Button
	selectedID  string
	layerDetail *fyne.Container
	syncing     bool

	container fyne.CanvasObject
}

// NewEditorPanel creates the editor workspace.
func NewEditorPanel(state *app.State, h *Host) *EditorPanel {
	ep := &EditorPanel{state: state, host: h}
	ep.canvas = canvas.NewStudioCanvas()
	ep.canvas.SetContent(ep.content)
	ep.canvas.SetOverlay(ep.overlay)
	ep.canvas.OnError(h.showError)

	ep.prompt = widget.NewMultiLineEntry()
	ep.prompt.SetPlaceHolder("Describe the change, e.g. make this black")
	ep.prompt.SetMinRowsVisible(3)

	var brushLabel fyne.CanvasObject
	ep.brush, brushLabel = labeledSlider(2, 120, 1, "Brush: %.0f px", func(v float64) {
		if sess := state.EditSession(); sess != nil && !state.Busy() {
			sess.Painter().SetBrushRadius(v)
		}
	})
	ep.brush.SetValue(state.Config().BrushRadius)

	ep.applyBtn = widget.NewButton("Apply Edit", ep.onApply)
	ep.applyBtn.Importance = widget.HighImportance
	ep.clearBtn = widget.NewButton("Clear Mask", ep.onClearMask)

	ep.count = widget.NewSelect(variationCounts, nil)
	ep.count.SetSelected("2")
	ep.varBtn = widget.NewButton("Variations", ep.onVariations)
	ep.cancelBtn = widget.NewButton("Cancel", state.CancelBatch)
	ep.cancelBtn.Disable()

	ep.undoBtn = widget.NewButton("Undo", func() { state.UndoEdit() })
	ep.redoBtn = widget.NewButton("Redo", func() { state.RedoEdit() })
	saveBtn := widget.NewButton("Save to Library", ep.onSave)
	openBtn := widget.NewButton("Open Product Image...", ep.onOpen)

	ep.progress = widget.NewProgressBarInfinite()
	ep.progress.Hide()

	ep.createLayerList()

	controls := container.NewVBox(
		openBtn,
		widget.NewSeparator(),
		brushLabel, ep.brush,
		ep.clearBtn,
		widget.NewLabel("Prompt"),
		ep.prompt,
		ep.applyBtn,
		container.NewHBox(ep.count, ep.varBtn, ep.cancelBtn),
		ep.progress,
		widget.NewSeparator(),
		container.NewHBox(ep.undoBtn, ep.redoBtn, saveBtn),
		widget.NewLabel("Edit Layers"),
	)
	side := container.NewBorder(controls, ep.layerDetail, nil, nil, ep.layers)

	split := container.NewHSplit(container.NewPadded(side), ep.canvas)
	split.SetOffset(0.28)
	ep.container = split

	ep.setupEventHandlers()
	ep.syncControls()
	return ep
}

// Container returns the panel's root object.
func (ep *EditorPanel) Container() fyne.CanvasObject {
	return ep.container
}

func (ep *EditorPanel) createLayerList() {
	ep.layers = widget.NewList(
		func() int {
			if sess := ep.state.EditSession(); sess != nil {
				return len(sess.Layers())
			}
			return 0
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("layer")
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			sess := ep.state.EditSession()
			if sess == nil {
				return
			}
			layers := sess.Layers()
			if id >= len(layers) {
				return
			}
			l := layers[id]
			text := fmt.Sprintf("%d. %s (%s)", id+1, truncate(l.Params.UserPrompt, 28), l.Params.EditType)
			if !l.Visible {
				text += " [hidden]"
			}
			obj.(*widget.Label).SetText(text)
		},
	)
	ep.layers.OnSelected = ep.onLayerSelected
	ep.layers.OnUnselected = func(widget.ListItemID) { ep.selectLayer("") }

	var opacityLabel fyne.CanvasObject
	ep.opacity, opacityLabel = labeledSlider(0, 1, 0.05, "Opacity: %.2f", func(v float64) {
		ep.modifyLayer(func(sess *edit.Session, id string) error { return sess.SetOpacity(id, v) })
	})
	ep.visible = widget.NewCheck("Visible", func(on bool) {
		ep.modifyLayer(func(sess *edit.Session, id string) error { return sess.SetVisible(id, on) })
	})
	ep.removeBtn = widget.NewButton("Remove Layer", func() {
		if ep.modifyLayer(func(sess *edit.Session, id string) error { return sess.Remove(id) }) {
			ep.layers.UnselectAll()
		}
	})
	ep.layerDetail = container.NewVBox(opacityLabel, ep.opacity, container.NewHBox(ep.visible, ep.removeBtn))
	ep.layerDetail.Hide()
}

func (ep *EditorPanel) onLayerSelected(id widget.ListItemID) {
	sess := ep.state.EditSession()
	if sess == nil {
		return
	}
	layers := sess.Layers()
	if id < 0 || id >= len(layers) {
		return
	}
	ep.selectLayer(layers[id].ID)
	ep.syncing = true
	ep.opacity.SetValue(layers[id].Opacity)
	ep.visible.SetChecked(layers[id].Visible)
	ep.syncing = false
}

func (ep *EditorPanel) selectLayer(id string) {
	ep.selectedID = id
	if id == "" {
		ep.layerDetail.Hide()
	} else {
		ep.layerDetail.Show()
	}
}

// modifyLayer applies fn to the selected layer. Layer changes are history
// steps, so the history event refreshes the view. Nothing changes while an
// edit request is out.
func (ep *EditorPanel) modifyLayer(fn func(sess *edit.Session, id string) error) bool {
	sess := ep.state.EditSession()
	if sess == nil || ep.selectedID == "" || ep.syncing || ep.state.Busy() {
		return false
	}
	if err := fn(sess, ep.selectedID); err != nil {
		ep.host.showError(err)
		return false
	}
	ep.state.Emit(app.EventHistoryChanged, nil)
	return true
}

func (ep *EditorPanel) setupEventHandlers() {
	ep.state.On(app.EventImageLoaded, func(data interface{}) {
		ep.attachSession()
		if name, ok := data.(string); ok {
			ep.host.status("Loaded " + filepath.Base(name))
		}
	})
	ep.state.On(app.EventHistoryChanged, func(interface{}) {
		ep.layers.Refresh()
		ep.syncControls()
		ep.canvas.Refresh()
	})
	ep.state.On(app.EventEditApplied, func(data interface{}) {
		if l, ok := data.(*edit.EditLayer); ok {
			ep.host.status(fmt.Sprintf("Applied %s edit", l.Params.EditType))
		}
		ep.prompt.SetText("")
	})
	ep.state.On(app.EventEditFailed, func(data interface{}) {
		if err, ok := data.(error); ok {
			ep.host.showError(err)
		}
	})
	ep.state.On(app.EventBusy, func(data interface{}) {
		busy, _ := data.(bool)
		if ep.paint != nil {
			ep.paint.SetEnabled(!busy)
		}
		if busy {
			ep.progress.Show()
			ep.progress.Start()
		} else {
			ep.progress.Stop()
			ep.progress.Hide()
		}
		ep.syncControls()
	})
}

// attachSession wires the canvas to a newly opened document.
func (ep *EditorPanel) attachSession() {
	sess := ep.state.EditSession()
	if sess == nil {
		ep.paint = nil
		ep.canvas.SetHandler(nil)
		return
	}
	sess.Painter().SetBrushRadius(ep.brush.Value)
	ep.paint = interact.NewPaintController(sess.Painter())
	ep.paint.OnChange(ep.syncControls)
	ep.canvas.SetHandler(ep.paint)
	ep.layers.UnselectAll()
	ep.selectLayer("")
	ep.layers.Refresh()
	ep.canvas.Refresh()
	ep.syncControls()
}

func (ep *EditorPanel) content() image.Image {
	sess := ep.state.EditSession()
	if sess == nil {
		return nil
	}
	return sess.Composite()
}

func (ep *EditorPanel) overlay() *canvas.Overlay {
	sess := ep.state.EditSession()
	if sess == nil {
		return nil
	}
	return &canvas.Overlay{Image: sess.Painter().Overlay()}
}

func (ep *EditorPanel) syncControls() {
	sess := ep.state.EditSession()
	busy := ep.state.Busy()
	enable := func(b *widget.Button, on bool) {
		if on {
			b.Enable()
		} else {
			b.Disable()
		}
	}
	enable(ep.applyBtn, sess != nil && !busy && sess.Painter().StrokeCount() > 0)
	enable(ep.varBtn, sess != nil && !busy)
	enable(ep.cancelBtn, busy)
	enable(ep.undoBtn, sess != nil && !busy && sess.CanUndo())
	enable(ep.redoBtn, sess != nil && !busy && sess.CanRedo())
	enable(ep.clearBtn, sess != nil && !busy)
	enable(ep.removeBtn, !busy)
	for _, w := range []fyne.Disableable{ep.brush, ep.opacity, ep.visible} {
		if busy {
			w.Disable()
		} else {
			w.Enable()
		}
	}
}

func (ep *EditorPanel) onOpen() {
	ep.host.OpenImage(func(path string) {
		if err := ep.state.LoadProductImage(path); err != nil {
			ep.host.showError(err)
		}
	})
}

func (ep *EditorPanel) onClearMask() {
	if sess := ep.state.EditSession(); sess != nil && !ep.state.Busy() {
		sess.Painter().Clear()
		ep.canvas.Refresh()
		ep.syncControls()
	}
}

func (ep *EditorPanel) onApply() {
	prompt := ep.prompt.Text
	ep.host.status("Applying edit...")
	go func() {
		// Failures are reported through EventEditFailed.
		_, _ = ep.state.ApplyEdit(context.Background(), prompt)
	}()
}

func (ep *EditorPanel) onVariations() {
	n, err := parsePositiveInt(ep.count.Selected)
	if err != nil {
		return
	}
	prompt := ep.prompt.Text
	ep.host.status(fmt.Sprintf("Generating %d variation(s)...", n))
	go func() {
		results, err := ep.state.GenerateVariations(context.Background(), n, prompt)
		if err != nil {
			ep.host.showError(err)
		}
		if len(results) > 0 {
			ep.showVariations(results, prompt)
		}
	}()
}

// showVariations presents the generated images with a save button each.
func (ep *EditorPanel) showVariations(results []image.Image, prompt string) {
	cells := make([]fyne.CanvasObject, 0, len(results))
	for i, img := range results {
		img := img
		thumb := fynecanvas.NewImageFromImage(img)
		thumb.FillMode = fynecanvas.ImageFillContain
		thumb.SetMinSize(fyne.NewSize(200, 200))
		save := widget.NewButton(fmt.Sprintf("Save #%d", i+1), nil)
		save.OnTapped = func() {
			if _, err := ep.state.SaveVariation(context.Background(), img, prompt); err != nil {
				ep.host.showError(err)
				return
			}
			save.Disable()
		}
		cells = append(cells, container.NewBorder(nil, save, nil, nil, thumb))
	}
	grid := container.NewGridWithColumns(min(len(cells), 2), cells...)
	dialog.ShowCustom("Variations", "Close", container.NewVScroll(grid), ep.host.window)
	ep.host.status(fmt.Sprintf("%d variation(s) ready", len(results)))
}

func (ep *EditorPanel) onSave() {
	id, err := ep.state.SaveEdit(context.Background())
	if err != nil {
		ep.host.showError(err)
		return
	}
	ep.host.status("Saved " + id)
}
