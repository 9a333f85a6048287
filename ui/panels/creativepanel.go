package panels

import (
	"context"
	"image"
	"image/color"

	"product-studio/internal/app"
	"product-studio/internal/creative"
	"product-studio/internal/interact"
	"product-studio/pkg/geometry"
	"product-studio/ui/canvas"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

var elementOutline = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xB0}

// CreativePanel builds ad creatives: form fields on the left, a canvas on
// which headline, call-to-action and logo can be dragged.
type CreativePanel struct {
	state  *app.State
	host   *Host
	canvas *canvas.StudioCanvas
	ctrl   *interact.CreativeController

	headline     *widget.Entry
	cta          *widget.Entry
	font         *widget.Select
	textColor    *widget.Entry
	buttonColor  *widget.Entry
	outlineColor *widget.Entry
	align        *widget.RadioGroup
	template     *widget.Select
	showHeadline *widget.Check
	showCTA      *widget.Check
	showLogo     *widget.Check
	shadow       *widget.Check
	outline      *widget.Check
	headlineSize *widget.Slider
	ctaSize      *widget.Slider
	logoScale    *widget.Slider
	outlineWidth *widget.Slider

	// syncing suppresses change callbacks while the form is loaded from state.
	syncing bool

	container fyne.CanvasObject
}

// NewCreativePanel creates the creative workspace.
func NewCreativePanel(state *app.State, h *Host) *CreativePanel {
	cp := &CreativePanel{state: state, host: h}
	cp.canvas = canvas.NewStudioCanvas()
	cp.canvas.SetContent(cp.content)
	cp.canvas.SetOverlay(cp.overlay)
	cp.canvas.OnError(h.showError)

	cp.headline = widget.NewEntry()
	cp.headline.OnChanged = func(s string) { cp.update(func(st *creative.State) { st.Headline = s }) }
	cp.cta = widget.NewEntry()
	cp.cta.OnChanged = func(s string) { cp.update(func(st *creative.State) { st.CTAText = s }) }

	cp.font = widget.NewSelect(creative.FontFamilies(), func(s string) {
		cp.update(func(st *creative.State) { st.FontFamily = s })
	})
	cp.textColor = cp.colorEntry(func(st *creative.State, v string) { st.TextColor = v })
	cp.buttonColor = cp.colorEntry(func(st *creative.State, v string) { st.BackgroundColor = v })
	cp.outlineColor = cp.colorEntry(func(st *creative.State, v string) { st.OutlineColor = v })

	cp.align = widget.NewRadioGroup([]string{string(creative.AlignLeft), string(creative.AlignCenter), string(creative.AlignRight)}, func(s string) {
		if s == "" {
			return
		}
		cp.update(func(st *creative.State) { st.HeadlineAlign = creative.Align(s) })
	})
	cp.align.Horizontal = true

	names := make([]string, 0, len(creative.Templates()))
	for _, t := range creative.Templates() {
		names = append(names, t.Name)
	}
	cp.template = widget.NewSelect(names, cp.onTemplate)

	cp.showHeadline = widget.NewCheck("Headline", func(on bool) { cp.update(func(st *creative.State) { st.ShowHeadline = on }) })
	cp.showCTA = widget.NewCheck("Button", func(on bool) { cp.update(func(st *creative.State) { st.ShowCTA = on }) })
	cp.showLogo = widget.NewCheck("Logo", func(on bool) { cp.update(func(st *creative.State) { st.ShowLogo = on }) })
	cp.shadow = widget.NewCheck("Shadow", func(on bool) { cp.update(func(st *creative.State) { st.TextShadow = on }) })
	cp.outline = widget.NewCheck("Outline", func(on bool) { cp.update(func(st *creative.State) { st.TextOutline = on }) })

	var hsLabel, csLabel, lsLabel, owLabel fyne.CanvasObject
	cp.headlineSize, hsLabel = labeledSlider(1, 20, 0.5, "Headline size: %.1f%%", func(v float64) {
		cp.update(func(st *creative.State) { st.HeadlineSize = v })
	})
	cp.ctaSize, csLabel = labeledSlider(1, 10, 0.5, "Button size: %.1f%%", func(v float64) {
		cp.update(func(st *creative.State) { st.CTASize = v })
	})
	cp.logoScale, lsLabel = labeledSlider(5, 50, 1, "Logo width: %.0f%%", func(v float64) {
		cp.update(func(st *creative.State) { st.LogoScale = v })
	})
	cp.outlineWidth, owLabel = labeledSlider(0, 10, 0.5, "Outline width: %.1f px", func(v float64) {
		cp.update(func(st *creative.State) { st.OutlineWidth = v })
	})

	bgBtn := widget.NewButton("Background...", func() {
		h.OpenImage(func(path string) { cp.loadInto(path, state.SetCreativeBackground) })
	})
	logoBtn := widget.NewButton("Logo...", func() {
		h.OpenImage(func(path string) { cp.loadInto(path, state.SetCreativeLogo) })
	})
	clearLogo := widget.NewButton("No Logo", func() {
		if err := state.SetCreativeLogo(nil); err != nil {
			h.showError(err)
		}
	})
	saveBtn := widget.NewButton("Save to Library", cp.onSave)
	saveBtn.Importance = widget.HighImportance

	form := widget.NewForm(
		widget.NewFormItem("Template", cp.template),
		widget.NewFormItem("Headline", cp.headline),
		widget.NewFormItem("Button text", cp.cta),
		widget.NewFormItem("Font", cp.font),
		widget.NewFormItem("Text colour", cp.textColor),
		widget.NewFormItem("Button colour", cp.buttonColor),
		widget.NewFormItem("Outline colour", cp.outlineColor),
		widget.NewFormItem("Align", cp.align),
	)
	controls := container.NewVBox(
		container.NewHBox(bgBtn, logoBtn, clearLogo),
		form,
		container.NewGridWithColumns(3, cp.showHeadline, cp.showCTA, cp.showLogo),
		container.NewHBox(cp.shadow, cp.outline),
		hsLabel, cp.headlineSize,
		csLabel, cp.ctaSize,
		lsLabel, cp.logoScale,
		owLabel, cp.outlineWidth,
		saveBtn,
	)

	split := container.NewHSplit(container.NewVScroll(container.NewPadded(controls)), cp.canvas)
	split.SetOffset(0.3)
	cp.container = split

	state.On(app.EventCreativeChanged, func(interface{}) {
		cp.attach()
		cp.loadForm(state.CreativeState())
		cp.canvas.Refresh()
	})
	cp.loadForm(state.CreativeState())
	return cp
}

// Container returns the panel's root object.
func (cp *CreativePanel) Container() fyne.CanvasObject {
	return cp.container
}

// colorEntry applies a colour when submitted, so half-typed values are not
// rejected on every keystroke.
func (cp *CreativePanel) colorEntry(set func(st *creative.State, v string)) *widget.Entry {
	e := widget.NewEntry()
	e.SetPlaceHolder("#rrggbb")
	e.OnSubmitted = func(s string) { cp.update(func(st *creative.State) { set(st, s) }) }
	return e
}

// update applies one form change to a copy of the state. Invalid input is
// reported and the form reverts to the last valid state.
func (cp *CreativePanel) update(change func(st *creative.State)) {
	if cp.syncing {
		return
	}
	st := cp.state.CreativeState()
	change(&st)
	if err := cp.state.UpdateCreative(st); err != nil {
		cp.host.status("Error: " + errorText(err))
		cp.loadForm(cp.state.CreativeState())
	}
}

func (cp *CreativePanel) loadForm(st creative.State) {
	cp.syncing = true
	defer func() { cp.syncing = false }()

	setText := func(e *widget.Entry, s string) {
		if e.Text != s {
			e.SetText(s)
		}
	}
	setText(cp.headline, st.Headline)
	setText(cp.cta, st.CTAText)
	setText(cp.textColor, st.TextColor)
	setText(cp.buttonColor, st.BackgroundColor)
	setText(cp.outlineColor, st.OutlineColor)
	cp.font.SetSelected(st.FontFamily)
	cp.align.SetSelected(string(st.HeadlineAlign))
	if t, ok := creative.TemplateByID(st.TemplateID); ok {
		cp.template.SetSelected(t.Name)
	}
	cp.showHeadline.SetChecked(st.ShowHeadline)
	cp.showCTA.SetChecked(st.ShowCTA)
	cp.showLogo.SetChecked(st.ShowLogo)
	cp.shadow.SetChecked(st.TextShadow)
	cp.outline.SetChecked(st.TextOutline)
	cp.headlineSize.SetValue(st.HeadlineSize)
	cp.ctaSize.SetValue(st.CTASize)
	cp.logoScale.SetValue(st.LogoScale)
	cp.outlineWidth.SetValue(st.OutlineWidth)
}

// attach routes canvas input to the current controller. A new background
// replaces the controller.
func (cp *CreativePanel) attach() {
	ctrl := cp.state.CreativeController()
	if ctrl == cp.ctrl {
		return
	}
	cp.ctrl = ctrl
	if ctrl == nil {
		cp.canvas.SetHandler(nil)
		return
	}
	cp.canvas.SetHandler(ctrl)
}

func (cp *CreativePanel) onTemplate(name string) {
	if cp.syncing {
		return
	}
	for _, t := range creative.Templates() {
		if t.Name == name {
			if err := cp.state.ApplyCreativeTemplate(t.ID); err != nil {
				cp.host.showError(err)
			}
			return
		}
	}
}

func (cp *CreativePanel) loadInto(path string, set func(image.Image) error) {
	img, err := cp.state.LoadImage(path)
	if err == nil {
		err = set(img)
	}
	if err != nil {
		cp.host.showError(err)
	}
}

func (cp *CreativePanel) content() image.Image {
	if res := cp.state.CreativeResult(); res != nil {
		return res.Image
	}
	return nil
}

// overlay outlines the draggable elements.
func (cp *CreativePanel) overlay() *canvas.Overlay {
	res := cp.state.CreativeResult()
	if res == nil {
		return nil
	}
	st := cp.state.CreativeState()
	var rects []geometry.Rect
	for _, el := range creative.HitOrder {
		if r := res.Rects.Get(el); st.Visible(el) && !r.Empty() {
			rects = append(rects, r)
		}
	}
	return &canvas.Overlay{Rects: rects, Color: elementOutline}
}

func (cp *CreativePanel) onSave() {
	id, err := cp.state.SaveCreative(context.Background())
	if err != nil {
		cp.host.showError(err)
		return
	}
	cp.host.status("Saved " + id)
}
