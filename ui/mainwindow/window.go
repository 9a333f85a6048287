// Package mainwindow provides the main application window.
package mainwindow

import (
	"fmt"
	"path/filepath"

	"product-studio/internal/app"
	"product-studio/internal/version"
	"product-studio/ui/panels"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

const (
	appTitle = "Product Studio"

	prefKeyLastTab      = "lastTab"
	prefKeyWindowWidth  = "windowWidth"
	prefKeyWindowHeight = "windowHeight"
)

// Tab indices, in display order.
const (
	tabEditor = iota
	tabCreative
	tabBlender
	tabLibrary
)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app       fyne.App
	state     *app.State
	host      *panels.Host
	tabs      *container.AppTabs
	statusBar *widget.Label
	busyLabel *widget.Label

	editor   *panels.EditorPanel
	creative *panels.CreativePanel
	blender  *panels.BlenderPanel
	library  *panels.LibraryPanel
}

// New creates a new main window.
func New(fyneApp fyne.App, state *app.State) *MainWindow {
	win := fyneApp.NewWindow(appTitle)

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		state:  state,
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	mw.restoreWindow()

	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.statusBar = widget.NewLabel("Ready")
	mw.busyLabel = widget.NewLabel("")

	mw.host = panels.NewHost(mw.app, mw.Window, mw.updateStatus)
	mw.editor = panels.NewEditorPanel(mw.state, mw.host)
	mw.creative = panels.NewCreativePanel(mw.state, mw.host)
	mw.blender = panels.NewBlenderPanel(mw.state, mw.host)
	mw.library = panels.NewLibraryPanel(mw.state, mw.host)

	mw.tabs = container.NewAppTabs(
		container.NewTabItem("Editor", mw.editor.Container()),
		container.NewTabItem("Creative", mw.creative.Container()),
		container.NewTabItem("Blender", mw.blender.Container()),
		container.NewTabItem("Library", mw.library.Container()),
	)
	mw.tabs.OnSelected = func(*container.TabItem) {
		mw.app.Preferences().SetInt(prefKeyLastTab, mw.tabs.SelectedIndex())
	}

	status := container.NewBorder(nil, nil, nil, mw.busyLabel, mw.statusBar)
	mw.SetContent(container.NewBorder(nil, container.NewPadded(status), nil, nil, mw.tabs))
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Product Image...", func() {
			mw.tabs.SelectIndex(tabEditor)
			mw.openProductImage()
		}),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Show Library", func() { mw.tabs.SelectIndex(tabLibrary) }),
	)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo", mw.onUndo),
		fyne.NewMenuItem("Redo", mw.onRedo),
	)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Editor", func() { mw.tabs.SelectIndex(tabEditor) }),
		fyne.NewMenuItem("Creative", func() { mw.tabs.SelectIndex(tabCreative) }),
		fyne.NewMenuItem("Blender", func() { mw.tabs.SelectIndex(tabBlender) }),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, viewMenu, helpMenu))
}

// setupEventHandlers registers for application events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventImageLoaded, func(data interface{}) {
		if name, ok := data.(string); ok {
			mw.SetTitle(appTitle + " - " + filepath.Base(name))
		}
	})

	mw.state.On(app.EventBusy, func(data interface{}) {
		if busy, ok := data.(bool); ok && busy {
			mw.busyLabel.SetText("Working...")
		} else {
			mw.busyLabel.SetText("")
		}
	})

	mw.state.On(app.EventError, func(data interface{}) {
		if err, ok := data.(error); ok {
			mw.updateStatus("Error: " + err.Error())
		}
	})

	mw.SetOnClosed(mw.saveWindow)
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

func (mw *MainWindow) restoreWindow() {
	prefs := mw.app.Preferences()
	w := prefs.FloatWithFallback(prefKeyWindowWidth, 1280)
	h := prefs.FloatWithFallback(prefKeyWindowHeight, 800)
	mw.Resize(fyne.NewSize(float32(w), float32(h)))

	if tab := prefs.IntWithFallback(prefKeyLastTab, tabEditor); tab >= 0 && tab < len(mw.tabs.Items) {
		mw.tabs.SelectIndex(tab)
	}
}

func (mw *MainWindow) saveWindow() {
	size := mw.Canvas().Size()
	prefs := mw.app.Preferences()
	prefs.SetFloat(prefKeyWindowWidth, float64(size.Width))
	prefs.SetFloat(prefKeyWindowHeight, float64(size.Height))
}

func (mw *MainWindow) openProductImage() {
	mw.host.OpenImage(func(path string) {
		if err := mw.state.LoadProductImage(path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	})
}

// onUndo and onRedo act on the document of the visible tab.
func (mw *MainWindow) onUndo() {
	switch mw.tabs.SelectedIndex() {
	case tabEditor:
		mw.state.UndoEdit()
	case tabBlender:
		mw.state.BlendSession().Undo()
	}
}

func (mw *MainWindow) onRedo() {
	switch mw.tabs.SelectedIndex() {
	case tabEditor:
		mw.state.RedoEdit()
	case tabBlender:
		mw.state.BlendSession().Redo()
	}
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About "+appTitle,
		fmt.Sprintf("%s\n\n"+
			"Edit product photos with painted masks, build ad creatives\n"+
			"and blend images with a generative image model.",
			version.String()),
		mw.Window)
}
