// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"pdf-touchup/internal/app"
	"pdf-touchup/internal/document"
	"pdf-touchup/internal/editor"
	"pdf-touchup/internal/textrun"
	"pdf-touchup/internal/version"
	"pdf-touchup/ui/canvas"
	"pdf-touchup/ui/dialogs"
	"pdf-touchup/ui/panels"
	"pdf-touchup/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

const appTitle = "PDF Touch-Up"

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app       fyne.App
	session   *app.Session
	prefs     *prefs.Prefs
	canvas    *canvas.PageCanvas
	sidePanel *panels.SidePanel
	statusBar *widget.Label
	pageLabel *widget.Label
	zoomLabel *widget.Label

	toolButtons map[editor.Tool]*widget.Button
	saveItem    *fyne.MenuItem
	saveBtn     *widget.Button
	saveBusy    bool

	docName  string
	modified bool
}

// New creates a new main window.
func New(fyneApp fyne.App, s *app.Session, p *prefs.Prefs) *MainWindow {
	win := fyneApp.NewWindow(appTitle)

	mw := &MainWindow{
		Window:      win,
		app:         fyneApp,
		session:     s,
		prefs:       p,
		toolButtons: make(map[editor.Tool]*widget.Button),
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupShortcuts()
	mw.setupEventHandlers()
	mw.Resize(fyne.NewSize(1200, 900))

	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.NewPageCanvas(mw.session)
	mw.canvas.OnZoom(mw.onZoomIn, mw.onZoomOut)

	mw.sidePanel = panels.NewSidePanel(mw.session)

	mw.statusBar = widget.NewLabel("Open a PDF to start")
	mw.pageLabel = widget.NewLabel("")
	mw.zoomLabel = widget.NewLabel("")

	toolbar := mw.createToolbar()
	mw.updatePageLabel()

	// Canvas area with toolbar on top
	canvasArea := container.NewBorder(
		toolbar,               // top
		nil,                   // bottom
		nil,                   // left
		nil,                   // right
		mw.canvas.Container(), // center
	)

	// Main layout: side panel | canvas area
	split := container.NewHSplit(
		mw.sidePanel.Container(),
		canvasArea,
	)
	split.SetOffset(0.22)

	content := container.NewBorder(
		nil,                               // top
		container.NewPadded(mw.statusBar), // bottom
		nil,                               // left
		nil,                               // right
		split,                             // center
	)

	mw.SetContent(content)
}

// createToolbar creates the tool, history, page and zoom controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	tools := container.NewHBox()
	for _, t := range editor.Tools() {
		t := t
		btn := widget.NewButton(toolLabel(t), func() { mw.session.Editor().SetTool(t) })
		mw.toolButtons[t] = btn
		tools.Add(btn)
	}
	mw.markTool(mw.session.Editor().Tool())

	undoBtn := widget.NewButton("Undo", mw.onUndo)
	redoBtn := widget.NewButton("Redo", mw.onRedo)
	detectBtn := widget.NewButton("Find Text", mw.onDetectText)
	mw.saveBtn = widget.NewButton("Save", mw.onSaveAs)

	prevBtn := widget.NewButton("<", mw.onPrevPage)
	nextBtn := widget.NewButton(">", mw.onNextPage)
	zoomOutBtn := widget.NewButton("-", mw.onZoomOut)
	zoomInBtn := widget.NewButton("+", mw.onZoomIn)

	return container.NewHBox(
		mw.saveBtn,
		widget.NewSeparator(),
		tools,
		widget.NewSeparator(),
		undoBtn,
		redoBtn,
		detectBtn,
		widget.NewSeparator(),
		prevBtn,
		mw.pageLabel,
		nextBtn,
		widget.NewSeparator(),
		widget.NewLabel("Zoom:"),
		zoomOutBtn,
		mw.zoomLabel,
		zoomInBtn,
	)
}

func toolLabel(t editor.Tool) string {
	s := t.String()
	return strings.ToUpper(s[:1]) + s[1:]
}

// markTool highlights the button of the active tool.
func (mw *MainWindow) markTool(active editor.Tool) {
	for t, btn := range mw.toolButtons {
		if t == active {
			btn.Importance = widget.HighImportance
		} else {
			btn.Importance = widget.MediumImportance
		}
		btn.Refresh()
	}
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	mw.saveItem = fyne.NewMenuItem("Save As...", mw.onSaveAs)
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open PDF...", mw.onOpen),
		mw.saveItem,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { mw.app.Quit() }),
	)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo", mw.onUndo),
		fyne.NewMenuItem("Redo", mw.onRedo),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Delete", mw.onDelete),
		fyne.NewMenuItem("Image Properties...", mw.onImageProperties),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Preferences...", mw.onPreferences),
	)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.onZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.onZoomOut),
		fyne.NewMenuItem("Actual Size", mw.onActualSize),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Previous Page", mw.onPrevPage),
		fyne.NewMenuItem("Next Page", mw.onNextPage),
	)

	var toolItems []*fyne.MenuItem
	for _, t := range editor.Tools() {
		t := t
		toolItems = append(toolItems, fyne.NewMenuItem(toolLabel(t), func() { mw.session.Editor().SetTool(t) }))
	}
	toolItems = append(toolItems,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Find Page Text", mw.onDetectText),
	)
	toolsMenu := fyne.NewMenu("Tools", toolItems...)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, viewMenu, toolsMenu, helpMenu))
}

// setupShortcuts routes keyboard input that no focused widget consumed to
// the editor.
func (mw *MainWindow) setupShortcuts() {
	c := mw.Canvas()
	mod := fyne.KeyModifierShortcutDefault

	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: mod}, func(fyne.Shortcut) {
		mw.session.Editor().Key(editor.KeyEvent{Name: editor.KeyZ, Shortcut: true})
	})
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: mod | fyne.KeyModifierShift}, func(fyne.Shortcut) {
		mw.session.Editor().Key(editor.KeyEvent{Name: editor.KeyZ, Shortcut: true, Shift: true})
	})
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: mod}, func(fyne.Shortcut) {
		mw.session.Editor().Key(editor.KeyEvent{Name: editor.KeyY, Shortcut: true})
	})
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: mod}, func(fyne.Shortcut) { mw.onOpen() })
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: mod}, func(fyne.Shortcut) { mw.onSaveAs() })

	c.SetOnTypedKey(func(ev *fyne.KeyEvent) {
		mw.session.Editor().Key(editor.KeyEvent{Name: string(ev.Name)})
	})
}

// setupEventHandlers registers for session events.
func (mw *MainWindow) setupEventHandlers() {
	s := mw.session

	s.On(app.EventDocumentOpened, func(data interface{}) {
		mw.modified = false
		mw.updateTitle()
		mw.updatePageLabel()
		mw.canvas.Redraw()
		s.RenderCurrent(context.Background())
	})

	s.On(app.EventPageRendered, func(data interface{}) {
		mw.canvas.Redraw()
		mw.updatePageLabel()
		if r, ok := data.(document.Raster); ok {
			mw.updateStatus(fmt.Sprintf("Page %d of %d", r.Page, s.PageCount()))
		}
	})

	s.On(app.EventRenderFailed, func(data interface{}) {
		if err, ok := data.(error); ok {
			mw.updateStatus("Render failed")
			dialog.ShowError(err, mw.Window)
		}
	})

	s.On(app.EventElementsChanged, func(interface{}) {
		mw.canvas.Redraw()
		if s.HasDocument() && s.History().CanUndo() && !mw.modified {
			mw.modified = true
			mw.updateTitle()
		}
	})

	s.On(app.EventToolChanged, func(data interface{}) {
		if t, ok := data.(editor.Tool); ok {
			mw.markTool(t)
			mw.updateStatus("Tool: " + t.String())
		}
	})

	s.On(app.EventImageRequested, func(interface{}) { mw.onChooseImage() })

	s.On(app.EventTextRunsDetected, func(data interface{}) {
		runs, _ := data.([]textrun.Run)
		mw.updateStatus(fmt.Sprintf("Found %d text runs, use the Text tool to replace one", len(runs)))
	})

	s.On(app.EventSaveStarted, func(interface{}) {
		mw.setSaveBusy(true)
		mw.updateStatus("Saving...")
	})
	s.On(app.EventSaveFinished, func(data interface{}) {
		n, _ := data.(int)
		mw.setSaveBusy(false)
		mw.modified = false
		mw.updateTitle()
		mw.updateStatus(fmt.Sprintf("Saved (%d bytes)", n))
	})
	s.On(app.EventSaveFailed, func(interface{}) {
		mw.setSaveBusy(false)
		mw.updateStatus("Save failed")
	})
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

func (mw *MainWindow) updateTitle() {
	title := appTitle
	if mw.docName != "" {
		title += " - " + mw.docName
	}
	if mw.modified {
		title += " *"
	}
	mw.SetTitle(title)
}

func (mw *MainWindow) updatePageLabel() {
	if mw.session.HasDocument() {
		mw.pageLabel.SetText(fmt.Sprintf("%d / %d", mw.session.Page(), mw.session.PageCount()))
	} else {
		mw.pageLabel.SetText("- / -")
	}
	mw.zoomLabel.SetText(fmt.Sprintf("%.0f%%", mw.session.Zoom()*100))
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(prefs.KeyLastDir)
	if path == "" {
		return nil
	}
	uri := storage.NewFileURI(path)
	listable, err := storage.ListerForURI(uri)
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	mw.prefs.SetString(prefs.KeyLastDir, filepath.Dir(filePath))
}

// OpenFile opens the PDF at path.
func (mw *MainWindow) OpenFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return mw.openData(filepath.Base(path), data)
}

func (mw *MainWindow) openData(name string, data []byte) error {
	if err := mw.session.OpenDocument(data); err != nil {
		mw.updatePageLabel()
		mw.canvas.Redraw()
		return err
	}
	mw.docName = name
	mw.updateTitle()
	return nil
}

// Menu action handlers

func (mw *MainWindow) onOpen() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		defer reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)

		data, err := io.ReadAll(reader)
		if err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		if err := mw.openData(reader.URI().Name(), data); err != nil {
			dialog.ShowError(openMessage(err), mw.Window)
		}
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".pdf", ".PDF"}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// openMessage turns document errors into a message for the user.
func openMessage(err error) error {
	switch {
	case errors.Is(err, document.ErrInvalidSignature):
		return errors.New("this file is not a PDF document")
	case errors.Is(err, document.ErrPasswordProtected):
		return errors.New("password protected documents cannot be opened")
	case errors.Is(err, document.ErrCorrupted):
		return fmt.Errorf("the document could not be read: %w", err)
	}
	return err
}

func (mw *MainWindow) onSaveAs() {
	if msg := saveBlocked(mw.session.HasDocument(), mw.saveBusy || mw.session.Saving()); msg != "" {
		mw.updateStatus(msg)
		return
	}
	// Save actions stay disabled from here until the dialog is dismissed or
	// the save ends.
	mw.setSaveBusy(true)
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			mw.setSaveBusy(false)
			return
		}
		uri := writer.URI()
		mw.saveLastDir(uri.Path())
		discard := func() error { return storage.Delete(uri) }
		err = mw.session.Save(context.Background(), func(out []byte, err error) {
			if err := writeOutput(writer, out, err, discard); err != nil {
				dialog.ShowError(fmt.Errorf("failed to save: %w", err), mw.Window)
			}
		})
		if err != nil {
			writeOutput(writer, nil, err, discard)
			mw.setSaveBusy(false)
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
	fd.SetFileName(saveName(mw.docName))
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".pdf"}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// saveBlocked returns the reason a save cannot start, or "".
func saveBlocked(hasDocument, busy bool) string {
	switch {
	case !hasDocument:
		return "Nothing to save"
	case busy:
		return "A save is already in progress"
	}
	return ""
}

// setSaveBusy enables or disables the save menu item and button.
func (mw *MainWindow) setSaveBusy(busy bool) {
	mw.saveBusy = busy
	if mw.saveItem != nil {
		mw.saveItem.Disabled = busy
		if menu := mw.MainMenu(); menu != nil {
			menu.Refresh()
		}
	}
	if mw.saveBtn != nil {
		if busy {
			mw.saveBtn.Disable()
		} else {
			mw.saveBtn.Enable()
		}
	}
}

// writeOutput writes a finished save to w and closes it. When the save or
// the write failed, the partial file is removed with discard.
func writeOutput(w io.WriteCloser, out []byte, saveErr error, discard func() error) error {
	err := saveErr
	if err == nil {
		_, err = w.Write(out)
	}
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil && discard != nil {
		if derr := discard(); derr != nil {
			log.Printf("Failed to remove partial output: %v", derr)
		}
	}
	return err
}

// saveName proposes the output file name for a document.
func saveName(docName string) string {
	if docName == "" {
		return "edited.pdf"
	}
	base := strings.TrimSuffix(docName, filepath.Ext(docName))
	return base + "-edited.pdf"
}

func (mw *MainWindow) onChooseImage() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			mw.session.Editor().SetTool(editor.ToolSelect)
			return
		}
		defer reader.Close()
		mw.saveLastDir(reader.URI().Path())

		data, err := io.ReadAll(reader)
		if err == nil {
			_, err = mw.session.Editor().PlaceImage(data)
		}
		if err != nil {
			mw.session.Editor().SetTool(editor.ToolSelect)
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg"}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onUndo() {
	if !mw.session.Editor().Undo() {
		mw.updateStatus("Nothing to undo")
	}
}

func (mw *MainWindow) onRedo() {
	if !mw.session.Editor().Redo() {
		mw.updateStatus("Nothing to redo")
	}
}

func (mw *MainWindow) onDelete() {
	mw.session.Editor().DeleteSelection()
}

func (mw *MainWindow) onImageProperties() {
	d := dialogs.NewImageDialog(mw.session.Editor(), mw.Window)
	if d == nil {
		mw.updateStatus("Select an image first")
		return
	}
	d.Show()
}

func (mw *MainWindow) onPreferences() {
	dialogs.NewPreferencesDialog(mw.prefs, mw.Window, func(cfg app.Config) {
		mw.updateStatus("Preferences saved; they apply from the next start")
	}).Show()
}

func (mw *MainWindow) onDetectText() {
	if err := mw.session.DetectTextRuns(context.Background()); err != nil {
		switch {
		case errors.Is(err, app.ErrNoDetector):
			mw.updateStatus("Text detection is not available")
		case errors.Is(err, app.ErrNotRendered):
			mw.updateStatus("Wait for the page to render")
		default:
			dialog.ShowError(err, mw.Window)
		}
		return
	}
	mw.updateStatus("Looking for text...")
}

func (mw *MainWindow) onZoomIn() {
	mw.session.ZoomIn(context.Background())
	mw.updatePageLabel()
}

func (mw *MainWindow) onZoomOut() {
	mw.session.ZoomOut(context.Background())
	mw.updatePageLabel()
}

func (mw *MainWindow) onActualSize() {
	mw.session.SetZoom(context.Background(), 1)
	mw.updatePageLabel()
}

func (mw *MainWindow) onPrevPage() {
	mw.goToPage(mw.session.Page() - 1)
}

func (mw *MainWindow) onNextPage() {
	mw.goToPage(mw.session.Page() + 1)
}

func (mw *MainWindow) goToPage(n int) {
	if !mw.session.HasDocument() || n < 1 || n > mw.session.PageCount() {
		return
	}
	if err := mw.session.GoToPage(context.Background(), n); err != nil {
		log.Printf("MainWindow: page %d: %v", n, err)
		return
	}
	mw.updatePageLabel()
	mw.canvas.Redraw()
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About "+appTitle,
		fmt.Sprintf("%s %s\n\n"+
			"Add text, images, shapes, markup and whiteouts to PDF pages,\n"+
			"then save them flattened into a new document.",
			appTitle, version.String()),
		mw.Window)
}
