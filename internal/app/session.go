// Package app ties the renderer, element store, history, editor and save
// pipeline into one editing session and reports what happens through events.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"pdf-touchup/internal/compositor"
	"pdf-touchup/internal/document"
	"pdf-touchup/internal/editor"
	"pdf-touchup/internal/element"
	"pdf-touchup/internal/flatten"
	"pdf-touchup/internal/fonts"
	"pdf-touchup/internal/history"
	"pdf-touchup/internal/textrun"
)

// Zoom limits and the factor applied by ZoomIn and ZoomOut.
const (
	MinZoom  = 0.25
	MaxZoom  = 4.0
	ZoomStep = 1.25
)

var (
	ErrSaveInProgress = errors.New("a save is already in progress")
	ErrNoDetector     = errors.New("text detection is not available")
	ErrNotRendered    = errors.New("current page has not been rendered")
)

// Config holds the session settings read from preferences.
type Config struct {
	Zoom          float64
	HistoryLimit  int
	RenderTimeout time.Duration
	Settings      editor.Settings
}

// DefaultConfig returns the configuration used without preferences.
func DefaultConfig() Config {
	return Config{
		Zoom:          1.5,
		HistoryLimit:  history.DefaultLimit,
		RenderTimeout: document.DefaultTimeout,
		Settings:      editor.DefaultSettings(),
	}
}

// Dispatcher runs fn on the interaction goroutine. The fyne shell passes
// fyne.Do.
type Dispatcher func(fn func())

// EventType identifies session events.
type EventType int

const (
	// EventDocumentOpened carries document.Info.
	EventDocumentOpened EventType = iota
	// EventPageRendered carries document.Raster.
	EventPageRendered
	// EventRenderFailed carries the error.
	EventRenderFailed
	// EventElementsChanged fires after any visible edit.
	EventElementsChanged
	// EventSelectionChanged carries the selected id, "" for none.
	EventSelectionChanged
	// EventToolChanged carries the editor.Tool.
	EventToolChanged
	// EventImageRequested asks the shell to pick an image file.
	EventImageRequested
	// EventTextEntry carries the *editor.TextEntry, nil when it closes.
	EventTextEntry
	// EventTextRunsDetected carries the detected []textrun.Run.
	EventTextRunsDetected
	EventSaveStarted
	// EventSaveFinished carries the output size in bytes.
	EventSaveFinished
	// EventSaveFailed carries the error.
	EventSaveFailed
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// Deps are the session's external collaborators.
type Deps struct {
	Opener   document.Opener
	Loader   flatten.Loader
	Detector textrun.Detector
	Fonts    *fonts.Cache
	Dispatch Dispatcher
}

// Session is one editing session over at most one open document. Exported
// methods must be called from the interaction goroutine; background work
// reports back through the dispatcher.
type Session struct {
	mu sync.RWMutex

	config   Config
	dispatch Dispatcher
	renderer *document.Renderer
	pipeline *flatten.Pipeline
	detector textrun.Detector
	overlays *compositor.OverlayRenderer

	store   *element.Store
	history *history.History
	editor  *editor.Editor

	source []byte
	info   document.Info
	page   int
	zoom   float64
	raster *document.Raster

	generation   atomic.Uint64
	cancelRender context.CancelFunc
	saving       atomic.Bool

	listeners map[EventType][]EventListener
}

// NewSession creates a session with no document open.
func NewSession(cfg Config, deps Deps) *Session {
	if cfg.Zoom <= 0 {
		cfg.Zoom = DefaultConfig().Zoom
	}
	if cfg.Settings.FontSize <= 0 {
		cfg.Settings = editor.DefaultSettings()
	}
	if deps.Fonts == nil {
		deps.Fonts = fonts.Default
	}
	if deps.Dispatch == nil {
		deps.Dispatch = func(fn func()) { fn() }
	}

	store := element.NewStore()
	h := history.New(cfg.HistoryLimit)
	ed := editor.New(store, h, deps.Fonts)
	ed.SetSettings(cfg.Settings)

	r := document.NewRenderer(deps.Opener)
	if cfg.RenderTimeout > 0 {
		r.Timeout = cfg.RenderTimeout
	}

	s := &Session{
		config:    cfg,
		dispatch:  deps.Dispatch,
		renderer:  r,
		pipeline:  flatten.NewPipeline(deps.Loader, deps.Fonts),
		detector:  deps.Detector,
		overlays:  compositor.NewOverlayRenderer(deps.Fonts),
		store:     store,
		history:   h,
		editor:    ed,
		page:      1,
		zoom:      clampZoom(cfg.Zoom),
		listeners: make(map[EventType][]EventListener),
	}
	ed.OnChange = func() { s.Emit(EventElementsChanged, nil) }
	ed.OnSelectionChange = func(id string) { s.Emit(EventSelectionChanged, id) }
	ed.OnToolChange = func(t editor.Tool) { s.Emit(EventToolChanged, t) }
	ed.OnImageRequest = func() { s.Emit(EventImageRequested, nil) }
	ed.OnTextEntry = func(e *editor.TextEntry) { s.Emit(EventTextEntry, e) }
	return s
}

// On registers an event listener for the specified event type.
func (s *Session) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *Session) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Editor returns the interaction state machine.
func (s *Session) Editor() *editor.Editor { return s.editor }

// Store returns the element store.
func (s *Session) Store() *element.Store { return s.store }

// History returns the command history.
func (s *Session) History() *history.History { return s.history }

// Overlays returns the renderer for text and image overlays.
func (s *Session) Overlays() *compositor.OverlayRenderer { return s.overlays }

// HasDocument reports whether a document is open.
func (s *Session) HasDocument() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source != nil
}

// PageCount returns the open document's page count, 0 if none.
func (s *Session) PageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info.PageCount
}

// Page returns the current 1-based page.
func (s *Session) Page() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page
}

// Zoom returns the current render scale.
func (s *Session) Zoom() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.zoom
}

// Raster returns the most recent raster of the current page and viewport.
func (s *Session) Raster() (document.Raster, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.raster == nil {
		return document.Raster{}, false
	}
	return *s.raster, true
}

// Saving reports whether a save is in flight.
func (s *Session) Saving() bool { return s.saving.Load() }

// OpenDocument replaces the open document with data. Bytes without the PDF
// signature are rejected and leave the session untouched. Otherwise the
// previous document is released and elements, history and interaction state
// are reset, even if the new document then fails to open. The first page is
// not rendered until RenderCurrent is called.
func (s *Session) OpenDocument(data []byte) error {
	if err := document.CheckSignature(data); err != nil {
		return err
	}
	s.stopRender()
	info, err := s.renderer.Open(data)

	s.store.Reset()
	s.history.Clear()
	s.overlays.Forget()

	s.mu.Lock()
	s.raster = nil
	s.page = 1
	if err != nil {
		s.source = nil
		s.info = document.Info{}
		s.mu.Unlock()
		s.editor.Reset(editor.Viewport{Page: 1, Scale: s.Zoom()})
		return err
	}
	s.source = append([]byte(nil), data...)
	s.info = info
	s.mu.Unlock()

	s.editor.Reset(s.viewport())
	log.Printf("Session: opened document (%d pages, %d bytes)", info.PageCount, len(data))
	s.Emit(EventDocumentOpened, info)
	return nil
}

// GoToPage shows page n and starts rendering it.
func (s *Session) GoToPage(ctx context.Context, n int) error {
	s.mu.Lock()
	if s.source == nil {
		s.mu.Unlock()
		return document.ErrNoDocument
	}
	if n < 1 || n > s.info.PageCount {
		s.mu.Unlock()
		return &document.PageError{Page: n, Err: document.ErrPageRange}
	}
	s.page = n
	s.raster = nil
	s.mu.Unlock()

	s.editor.SetViewport(s.viewport())
	s.RenderCurrent(ctx)
	return nil
}

// SetZoom changes the render scale, clamped to [MinZoom, MaxZoom], and
// re-renders the current page.
func (s *Session) SetZoom(ctx context.Context, z float64) {
	z = clampZoom(z)
	s.mu.Lock()
	if z == s.zoom {
		s.mu.Unlock()
		return
	}
	s.zoom = z
	open := s.source != nil
	s.mu.Unlock()

	s.editor.SetViewport(s.viewport())
	if open {
		s.RenderCurrent(ctx)
	}
}

// ZoomIn multiplies the zoom by ZoomStep.
func (s *Session) ZoomIn(ctx context.Context) { s.SetZoom(ctx, s.Zoom()*ZoomStep) }

// ZoomOut divides the zoom by ZoomStep.
func (s *Session) ZoomOut(ctx context.Context) { s.SetZoom(ctx, s.Zoom()/ZoomStep) }

func clampZoom(z float64) float64 {
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

// viewport describes the current page and zoom for the editor.
func (s *Session) viewport() editor.Viewport {
	s.mu.RLock()
	page, zoom := s.page, s.zoom
	s.mu.RUnlock()
	v := editor.Viewport{Page: page, Scale: zoom}
	if size, err := s.renderer.PageSize(page); err == nil {
		v.Size = size.Scaled(zoom)
	}
	return v
}

// RenderCurrent renders the current page at the current zoom in the
// background. Results for a page or zoom that is no longer current are
// discarded, as is any render still running when a newer one starts.
func (s *Session) RenderCurrent(ctx context.Context) {
	s.stopRender()
	rctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancelRender = cancel
	page, zoom := s.page, s.zoom
	s.mu.Unlock()
	gen := s.generation.Add(1)

	go func() {
		defer cancel()
		raster, err := s.renderer.Render(rctx, page, zoom)
		s.dispatch(func() {
			if s.generation.Load() != gen {
				return
			}
			if err != nil {
				log.Printf("Session: render page %d failed: %v", page, err)
				s.Emit(EventRenderFailed, err)
				return
			}
			s.mu.Lock()
			s.raster = &raster
			s.mu.Unlock()
			s.Emit(EventPageRendered, raster)
		})
	}()
}

// stopRender cancels the in-flight render and invalidates its result.
func (s *Session) stopRender() {
	s.generation.Add(1)
	s.mu.Lock()
	cancel := s.cancelRender
	s.cancelRender = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// DetectTextRuns looks for existing text on the current raster in the
// background and hands the runs to the editor.
func (s *Session) DetectTextRuns(ctx context.Context) error {
	if s.detector == nil {
		return ErrNoDetector
	}
	raster, ok := s.Raster()
	if !ok {
		return ErrNotRendered
	}
	gen := s.generation.Load()

	go func() {
		runs, err := s.detector.Detect(raster.Image, raster.Scale)
		if err == nil {
			err = ctx.Err()
		}
		s.dispatch(func() {
			if s.generation.Load() != gen {
				return
			}
			if err != nil {
				log.Printf("Session: text detection on page %d failed: %v", raster.Page, err)
				return
			}
			s.editor.SetRuns(runs)
			s.Emit(EventTextRunsDetected, runs)
		})
	}()
	return nil
}

// Compose draws the current raster with the element layer on top.
func (s *Session) Compose() (compositor.Frame, bool) {
	raster, ok := s.Raster()
	if !ok {
		return compositor.Frame{}, false
	}
	return s.editor.Compose(raster.Image), true
}

// begin claims the save slot and snapshots what is to be saved.
func (s *Session) begin() ([]byte, []element.Element, error) {
	if !s.saving.CompareAndSwap(false, true) {
		return nil, nil, ErrSaveInProgress
	}
	s.mu.RLock()
	src := s.source
	s.mu.RUnlock()
	if src == nil {
		s.saving.Store(false)
		return nil, nil, document.ErrNoDocument
	}
	if entry := s.editor.Entry(); entry != nil {
		s.editor.CommitText(entry.Content)
	}
	s.Emit(EventSaveStarted, nil)
	return src, s.store.Snapshot(), nil
}

func (s *Session) finish(out []byte, err error) {
	s.saving.Store(false)
	if err != nil {
		log.Printf("Session: save failed: %v", err)
		s.Emit(EventSaveFailed, err)
		return
	}
	s.Emit(EventSaveFinished, len(out))
}

// Save flattens the element layer in the background and calls done on the
// interaction goroutine. It fails with ErrSaveInProgress while another save
// is running. The store is never changed by a save.
func (s *Session) Save(ctx context.Context, done func([]byte, error)) error {
	src, els, err := s.begin()
	if err != nil {
		return err
	}
	go func() {
		out, err := s.pipeline.Save(ctx, src, els)
		s.dispatch(func() {
			s.finish(out, err)
			if done != nil {
				done(out, err)
			}
		})
	}()
	return nil
}

// SaveSync is Save without the background goroutine.
func (s *Session) SaveSync(ctx context.Context) ([]byte, error) {
	src, els, err := s.begin()
	if err != nil {
		return nil, err
	}
	out, err := s.pipeline.Save(ctx, src, els)
	s.finish(out, err)
	if err != nil {
		return nil, fmt.Errorf("failed to save: %w", err)
	}
	return out, nil
}

// Close stops background rendering and releases the document and the text
// detector.
func (s *Session) Close() error {
	s.stopRender()
	err := s.renderer.Close()
	if c, ok := s.detector.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
		s.detector = nil
	}
	s.mu.Lock()
	s.source = nil
	s.raster = nil
	s.mu.Unlock()
	return err
}
