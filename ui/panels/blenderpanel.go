package panels

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"strconv"

	"product-studio/internal/app"
	studioimage "product-studio/internal/image"
	"product-studio/internal/interact"
	"product-studio/pkg/geometry"
	"product-studio/ui/canvas"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// BlenderPanel arranges several images as layers and composes them into one.
type BlenderPanel struct {
	state  *app.State
	host   *Host
	canvas *canvas.StudioCanvas
	ctrl   *interact.LayerController

	layers    *widget.List
	opacity   *widget.Slider
	visible   *widget.Check
	mode      *widget.Select
	name      *widget.Entry
	detail    *fyne.Container
	undoBtn   *widget.Button
	redoBtn   *widget.Button
	prompt    *widget.Entry
	exportW   *widget.Entry
	exportH   *widget.Entry
	composeBt *widget.Button
	progress  *widget.ProgressBarInfinite

	syncing   bool
	container fyne.CanvasObject
}

// NewBlenderPanel creates the blender workspace.
func NewBlenderPanel(state *app.State, h *Host) *BlenderPanel {
	bp := &BlenderPanel{state: state, host: h}
	sess := state.BlendSession()

	bp.ctrl = sess.Controller()
	bp.canvas = canvas.NewStudioCanvas()
	bp.canvas.SetContent(sess.Render)
	bp.canvas.SetOverlay(bp.overlay)
	bp.canvas.SetHandler(bp.ctrl)
	bp.canvas.OnError(h.showError)
	bp.ctrl.OnChange(bp.syncSelection)

	bp.createLayerList()

	addBtn := widget.NewButton("Add Image...", func() {
		h.OpenImage(func(path string) {
			if err := state.AddBlendImages(context.Background(), []string{path}); err != nil {
				h.showError(err)
			}
		})
	})
	bp.undoBtn = widget.NewButton("Undo", func() { sess.Undo() })
	bp.redoBtn = widget.NewButton("Redo", func() { sess.Redo() })

	stage := sess.Stage()
	bp.exportW = widget.NewEntry()
	bp.exportW.SetText(strconv.Itoa(stage.Width))
	bp.exportH = widget.NewEntry()
	bp.exportH.SetText(strconv.Itoa(stage.Height))
	exportBtn := widget.NewButton("Export...", bp.onExport)

	bp.prompt = widget.NewMultiLineEntry()
	bp.prompt.SetPlaceHolder("How should the images be combined?")
	bp.prompt.SetMinRowsVisible(3)
	bp.composeBt = widget.NewButton("Compose with AI", bp.onCompose)
	bp.composeBt.Importance = widget.HighImportance
	bp.progress = widget.NewProgressBarInfinite()
	bp.progress.Hide()

	controls := container.NewVBox(
		container.NewHBox(addBtn, bp.undoBtn, bp.redoBtn),
		widget.NewLabel("Layers (top first)"),
	)
	bottom := container.NewVBox(
		bp.detail,
		widget.NewSeparator(),
		widget.NewForm(
			widget.NewFormItem("Width", bp.exportW),
			widget.NewFormItem("Height", bp.exportH),
		),
		exportBtn,
		widget.NewSeparator(),
		bp.prompt,
		bp.composeBt,
		bp.progress,
	)
	side := container.NewBorder(controls, bottom, nil, nil, bp.layers)

	split := container.NewHSplit(container.NewPadded(side), bp.canvas)
	split.SetOffset(0.28)
	bp.container = split

	state.On(app.EventLayersChanged, func(interface{}) { bp.refresh() })
	state.On(app.EventBusy, func(data interface{}) {
		busy, _ := data.(bool)
		if busy {
			bp.composeBt.Disable()
			bp.progress.Show()
			bp.progress.Start()
		} else {
			bp.composeBt.Enable()
			bp.progress.Stop()
			bp.progress.Hide()
		}
	})
	bp.refresh()
	return bp
}

// Container returns the panel's root object.
func (bp *BlenderPanel) Container() fyne.CanvasObject {
	return bp.container
}

// topFirst lists the layers as shown in the panel, topmost first.
func (bp *BlenderPanel) topFirst() []*studioimage.Layer {
	sorted := bp.state.BlendSession().Stack().SortedByZOrder()
	out := make([]*studioimage.Layer, len(sorted))
	for i, l := range sorted {
		out[len(sorted)-1-i] = l
	}
	return out
}

func (bp *BlenderPanel) createLayerList() {
	bp.layers = widget.NewList(
		func() int { return bp.state.BlendSession().Stack().Len() },
		func() fyne.CanvasObject { return widget.NewLabel("layer") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			layers := bp.topFirst()
			if id >= len(layers) {
				return
			}
			l := layers[id]
			text := l.Name
			if !l.Visible {
				text += " [hidden]"
			}
			obj.(*widget.Label).SetText(text)
		},
	)
	bp.layers.OnSelected = func(id widget.ListItemID) {
		if bp.syncing {
			return
		}
		layers := bp.topFirst()
		if id < len(layers) {
			_ = bp.state.BlendSession().Stack().Select(layers[id].ID)
			bp.syncSelection()
			bp.canvas.Refresh()
		}
	}

	var opacityLabel fyne.CanvasObject
	bp.opacity, opacityLabel = labeledSlider(0, 1, 0.05, "Opacity: %.2f", func(v float64) {
		bp.update(studioimage.Changes{Opacity: &v})
	})
	bp.visible = widget.NewCheck("Visible", func(on bool) {
		bp.update(studioimage.Changes{Visible: &on})
	})
	modes := make([]string, 0, len(studioimage.BlendModes()))
	for _, m := range studioimage.BlendModes() {
		modes = append(modes, m.String())
	}
	bp.mode = widget.NewSelect(modes, func(s string) {
		m, err := studioimage.ParseBlendMode(s)
		if err == nil {
			bp.update(studioimage.Changes{BlendMode: &m})
		}
	})
	bp.name = widget.NewEntry()
	bp.name.OnSubmitted = func(s string) { bp.update(studioimage.Changes{Name: &s}) }

	up := widget.NewButton("Up", func() { bp.reorder(studioimage.Up) })
	down := widget.NewButton("Down", func() { bp.reorder(studioimage.Down) })
	remove := widget.NewButton("Remove", func() {
		if sel, ok := bp.selected(); ok {
			if err := bp.state.BlendSession().Remove(sel.ID); err != nil {
				bp.host.showError(err)
			}
		}
	})

	bp.detail = container.NewVBox(
		widget.NewForm(
			widget.NewFormItem("Name", bp.name),
			widget.NewFormItem("Blend", bp.mode),
		),
		opacityLabel, bp.opacity,
		container.NewHBox(bp.visible, up, down, remove),
	)
	bp.detail.Hide()
}

func (bp *BlenderPanel) selected() (*studioimage.Layer, bool) {
	return bp.state.BlendSession().Stack().Selected()
}

func (bp *BlenderPanel) update(c studioimage.Changes) {
	if bp.syncing {
		return
	}
	sel, ok := bp.selected()
	if !ok {
		return
	}
	if err := bp.state.BlendSession().Update(sel.ID, c); err != nil {
		bp.host.showError(err)
	}
}

func (bp *BlenderPanel) reorder(dir studioimage.Direction) {
	sel, ok := bp.selected()
	if !ok {
		return
	}
	if err := bp.state.BlendSession().Reorder(sel.ID, dir); err != nil {
		bp.host.showError(err)
	}
}

// refresh redraws after a committed change.
func (bp *BlenderPanel) refresh() {
	bp.layers.Refresh()
	bp.syncSelection()
	bp.canvas.Refresh()
}

// syncSelection loads the selected layer into the detail form.
func (bp *BlenderPanel) syncSelection() {
	sess := bp.state.BlendSession()
	if sess.CanUndo() {
		bp.undoBtn.Enable()
	} else {
		bp.undoBtn.Disable()
	}
	if sess.CanRedo() {
		bp.redoBtn.Enable()
	} else {
		bp.redoBtn.Disable()
	}

	bp.syncing = true
	defer func() { bp.syncing = false }()

	sel, ok := bp.selected()
	if !ok {
		bp.layers.UnselectAll()
		bp.detail.Hide()
		return
	}
	for i, l := range bp.topFirst() {
		if l.ID == sel.ID {
			bp.layers.Select(i)
			break
		}
	}
	bp.name.SetText(sel.Name)
	bp.opacity.SetValue(sel.Opacity)
	bp.visible.SetChecked(sel.Visible)
	bp.mode.SetSelected(sel.BlendMode.String())
	bp.detail.Show()
}

func (bp *BlenderPanel) overlay() *canvas.Overlay {
	outline := bp.ctrl.Outline()
	if outline == nil {
		return nil
	}
	handles := bp.ctrl.Handles()
	rects := make([]geometry.Rect, len(handles))
	for i, h := range handles {
		rects[i] = h.Rect
	}
	return &canvas.Overlay{Outlines: [][]geometry.Point2D{outline}, Handles: rects}
}

func (bp *BlenderPanel) onExport() {
	w, err := parsePositiveInt(bp.exportW.Text)
	if err == nil {
		var h int
		h, err = parsePositiveInt(bp.exportH.Text)
		if err == nil {
			err = bp.export(w, h)
		}
	}
	if err != nil {
		bp.host.showError(err)
	}
}

// export writes the flattened image and its layer record next to each other.
func (bp *BlenderPanel) export(w, h int) error {
	bundle, err := bp.state.ExportBlend(w, h)
	if err != nil {
		return err
	}
	dialog.ShowFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		defer writer.Close()
		path := writer.URI().Path()
		bp.host.saveLastDir(path)

		data, err := studioimage.EncodePNG(bundle.Image())
		if err == nil {
			_, err = writer.Write(data)
		}
		if err == nil {
			var meta []byte
			meta, err = json.MarshalIndent(bundle.Metadata(), "", "  ")
			if err == nil {
				err = os.WriteFile(path+".json", meta, 0644)
			}
		}
		if err != nil {
			bp.host.showError(err)
			return
		}
		bp.host.status(fmt.Sprintf("Exported %dx%d to %s", w, h, path))
	}, bp.host.window)
	return nil
}

// onCompose flattens the arrangement here and sends the snapshot in the
// background, so the layers stay editable while the service works.
func (bp *BlenderPanel) onCompose() {
	prompt := bp.prompt.Text
	err := bp.state.StartComposeBlend(context.Background(), prompt, func(out image.Image, err error) {
		if err != nil {
			bp.host.showError(err)
			return
		}
		bp.showResult(out, prompt)
	})
	if err != nil {
		bp.host.showError(err)
		return
	}
	bp.host.status("Composing...")
}

func (bp *BlenderPanel) showResult(img image.Image, prompt string) {
	view := fynecanvas.NewImageFromImage(img)
	view.FillMode = fynecanvas.ImageFillContain
	view.SetMinSize(fyne.NewSize(480, 480))

	d := dialog.NewCustomConfirm("Composed Image", "Save to Library", "Discard", view, func(save bool) {
		if !save {
			return
		}
		id, err := bp.state.SaveBlend(context.Background(), img, prompt)
		if err != nil {
			bp.host.showError(err)
			return
		}
		bp.host.status("Saved " + id)
	}, bp.host.window)
	d.Show()
	bp.host.status("Composition ready")
}
