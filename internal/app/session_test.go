package app

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"sync"
	"testing"
	"time"

	"pdf-touchup/internal/document"
	"pdf-touchup/internal/element"
	"pdf-touchup/internal/flatten"
	"pdf-touchup/internal/history"
	"pdf-touchup/internal/textrun"
	"pdf-touchup/pkg/colorutil"
	"pdf-touchup/pkg/geometry"

	"github.com/google/go-cmp/cmp"
)

var testPDF = []byte("%PDF-1.7 test")

type fakeHandle struct {
	pages int
	gates map[int]chan struct{}

	mu     sync.Mutex
	closes int
}

func (h *fakeHandle) PageCount() int { return h.pages }

func (h *fakeHandle) PageSize(page int) (geometry.Size, error) {
	return geometry.NewSize(100, 200), nil
}

func (h *fakeHandle) Render(page int, scale float64) (*image.RGBA, error) {
	if g := h.gates[page]; g != nil {
		<-g
	}
	return image.NewRGBA(image.Rect(0, 0, int(100*scale), int(200*scale))), nil
}

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closes++
	return nil
}

func (h *fakeHandle) closed() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closes
}

type fakeOpener struct {
	pages   int
	gates   map[int]chan struct{}
	handles []*fakeHandle
}

func (o *fakeOpener) Open(data []byte) (document.Handle, error) {
	h := &fakeHandle{pages: o.pages, gates: o.gates}
	o.handles = append(o.handles, h)
	return h, nil
}

type nopDoc struct{ pages int }

func (d nopDoc) PageCount() int { return d.pages }
func (d nopDoc) PageSize(int) (geometry.Size, error) {
	return geometry.NewSize(100, 200), nil
}
func (nopDoc) FillRect(int, geometry.Rect, color.NRGBA) {}
func (nopDoc) StrokeRect(int, geometry.Rect, float64, color.NRGBA) {}
func (nopDoc) Ellipse(int, geometry.Rect, float64, color.NRGBA, *color.NRGBA) {}
func (nopDoc) Line(int, geometry.Point, geometry.Point, float64, color.NRGBA) {}
func (nopDoc) Polyline(int, []geometry.Point, float64, color.NRGBA) {}
func (nopDoc) Text(int, flatten.TextOp) {}
func (nopDoc) Image(int, flatten.ImageOp) {}
func (nopDoc) Serialize(w io.Writer) error {
	_, err := io.WriteString(w, "%PDF-saved")
	return err
}

type fakeLoader struct {
	pages int
	gate  chan struct{}
}

func (l *fakeLoader) Load(src []byte) (flatten.Document, error) {
	if l.gate != nil {
		<-l.gate
	}
	return nopDoc{pages: l.pages}, nil
}

type fakeDetector struct{ runs []textrun.Run }

func (d *fakeDetector) Detect(img *image.RGBA, scale float64) ([]textrun.Run, error) {
	return d.runs, nil
}

// loop stands in for the interaction goroutine: dispatched work waits in
// the queue until the test pumps it.
type loop struct{ ch chan func() }

func newLoop() *loop { return &loop{ch: make(chan func(), 16)} }

func (l *loop) dispatch(fn func()) { l.ch <- fn }

func (l *loop) pump(t *testing.T) {
	t.Helper()
	select {
	case fn := <-l.ch:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatched work")
	}
}

type recorder struct{ events map[EventType][]interface{} }

func record(s *Session, types ...EventType) *recorder {
	r := &recorder{events: make(map[EventType][]interface{})}
	for _, et := range types {
		et := et
		s.On(et, func(data interface{}) { r.events[et] = append(r.events[et], data) })
	}
	return r
}

func newTestSession(opener *fakeOpener, loader *fakeLoader) (*Session, *loop) {
	l := newLoop()
	s := NewSession(DefaultConfig(), Deps{
		Opener:   opener,
		Loader:   loader,
		Detector: &fakeDetector{runs: []textrun.Run{{Box: geometry.NewRect(10, 10, 50, 20), Text: "Total", FontSize: 16, Scale: 1.5}}},
		Dispatch: l.dispatch,
	})
	return s, l
}

func addRectangle(t *testing.T, s *Session, page int) element.Element {
	t.Helper()
	el := element.NewShape(page, 1.5, geometry.NewRect(10, 10, 40, 40), element.Shape{
		Kind: element.ShapeRectangle, Stroke: colorutil.Red, StrokeWidth: 3,
	})
	if err := s.History().Do(s.Store(), history.Create("add", el, -1)); err != nil {
		t.Fatal(err)
	}
	return el
}

func TestOpenDocumentResetsSession(t *testing.T) {
	opener := &fakeOpener{pages: 3}
	s, _ := newTestSession(opener, &fakeLoader{pages: 3})
	rec := record(s, EventDocumentOpened)

	if err := s.OpenDocument(testPDF); err != nil {
		t.Fatalf("OpenDocument: %v", err)
	}
	addRectangle(t, s, 1)
	if err := s.GoToPage(context.Background(), 2); err != nil {
		t.Fatalf("GoToPage: %v", err)
	}

	if err := s.OpenDocument(testPDF); err != nil {
		t.Fatalf("second OpenDocument: %v", err)
	}
	if n := s.Store().Len(); n != 0 {
		t.Errorf("store has %d elements after reopen, want 0", n)
	}
	if s.History().CanUndo() {
		t.Error("history not cleared on reopen")
	}
	if s.Page() != 1 || s.PageCount() != 3 {
		t.Errorf("page %d of %d, want 1 of 3", s.Page(), s.PageCount())
	}
	if got := opener.handles[0].closed(); got != 1 {
		t.Errorf("first handle closed %d times, want 1", got)
	}
	if n := len(rec.events[EventDocumentOpened]); n != 2 {
		t.Errorf("got %d open events, want 2", n)
	}
}

func TestOpenDocumentRejectsNonPDF(t *testing.T) {
	s, _ := newTestSession(&fakeOpener{pages: 1}, &fakeLoader{pages: 1})
	if err := s.OpenDocument(testPDF); err != nil {
		t.Fatal(err)
	}
	addRectangle(t, s, 1)

	err := s.OpenDocument([]byte("GIF89a"))
	if !errors.Is(err, document.ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
	if !s.HasDocument() || s.Store().Len() != 1 {
		t.Error("rejected open disturbed the current session")
	}
}

func TestRenderCurrent(t *testing.T) {
	s, l := newTestSession(&fakeOpener{pages: 1}, &fakeLoader{pages: 1})
	rec := record(s, EventPageRendered)
	if err := s.OpenDocument(testPDF); err != nil {
		t.Fatal(err)
	}
	s.RenderCurrent(context.Background())
	l.pump(t)

	r, ok := s.Raster()
	if !ok {
		t.Fatal("no raster after render")
	}
	if r.Page != 1 || r.Width != 150 || r.Height != 300 {
		t.Errorf("raster = page %d %dx%d, want page 1 150x300", r.Page, r.Width, r.Height)
	}
	if len(rec.events[EventPageRendered]) != 1 {
		t.Errorf("got %d render events, want 1", len(rec.events[EventPageRendered]))
	}
	if _, ok := s.Compose(); !ok {
		t.Error("Compose reported no raster")
	}
}

func TestStaleRenderDiscarded(t *testing.T) {
	gate1, gate2 := make(chan struct{}), make(chan struct{})
	defer close(gate1)
	opener := &fakeOpener{pages: 2, gates: map[int]chan struct{}{1: gate1, 2: gate2}}
	s, l := newTestSession(opener, &fakeLoader{pages: 2})
	rec := record(s, EventPageRendered, EventRenderFailed)
	if err := s.OpenDocument(testPDF); err != nil {
		t.Fatal(err)
	}

	s.RenderCurrent(context.Background())
	if err := s.GoToPage(context.Background(), 2); err != nil {
		t.Fatal(err)
	}

	// The abandoned page 1 render reports first and must be dropped.
	l.pump(t)
	if _, ok := s.Raster(); ok {
		t.Fatal("stale render was kept")
	}
	if len(rec.events[EventRenderFailed]) != 0 {
		t.Errorf("stale render reported failure: %v", rec.events[EventRenderFailed])
	}

	close(gate2)
	l.pump(t)
	r, ok := s.Raster()
	if !ok || r.Page != 2 {
		t.Fatalf("raster = %+v (%v), want page 2", r, ok)
	}
	if len(rec.events[EventPageRendered]) != 1 {
		t.Errorf("got %d render events, want 1", len(rec.events[EventPageRendered]))
	}
}

func TestGoToPage(t *testing.T) {
	s, _ := newTestSession(&fakeOpener{pages: 2}, &fakeLoader{pages: 2})
	if err := s.GoToPage(context.Background(), 1); !errors.Is(err, document.ErrNoDocument) {
		t.Errorf("err = %v, want ErrNoDocument", err)
	}
	if err := s.OpenDocument(testPDF); err != nil {
		t.Fatal(err)
	}
	if err := s.GoToPage(context.Background(), 3); !errors.Is(err, document.ErrPageRange) {
		t.Errorf("err = %v, want ErrPageRange", err)
	}
	if s.Page() != 1 {
		t.Errorf("page = %d after failed GoToPage, want 1", s.Page())
	}
}

func TestZoomClamped(t *testing.T) {
	s, _ := newTestSession(&fakeOpener{pages: 1}, &fakeLoader{pages: 1})
	ctx := context.Background()

	s.ZoomIn(ctx)
	if z := s.Zoom(); z != 1.875 {
		t.Errorf("ZoomIn from 1.5 = %v, want 1.875", z)
	}
	s.SetZoom(ctx, 10)
	if z := s.Zoom(); z != MaxZoom {
		t.Errorf("zoom = %v, want %v", z, MaxZoom)
	}
	for i := 0; i < 20; i++ {
		s.ZoomOut(ctx)
	}
	if z := s.Zoom(); z != MinZoom {
		t.Errorf("zoom = %v, want %v", z, MinZoom)
	}
	if v := s.Editor().Viewport(); v.Scale != MinZoom {
		t.Errorf("editor scale = %v, want %v", v.Scale, MinZoom)
	}
}

func TestSaveRejectedWhileInFlight(t *testing.T) {
	loader := &fakeLoader{pages: 1, gate: make(chan struct{})}
	s, l := newTestSession(&fakeOpener{pages: 1}, loader)
	rec := record(s, EventSaveStarted, EventSaveFinished)
	if err := s.OpenDocument(testPDF); err != nil {
		t.Fatal(err)
	}
	addRectangle(t, s, 1)

	var out []byte
	var saveErr error
	if err := s.Save(context.Background(), func(b []byte, err error) { out, saveErr = b, err }); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(context.Background(), nil); !errors.Is(err, ErrSaveInProgress) {
		t.Errorf("second Save err = %v, want ErrSaveInProgress", err)
	}
	if _, err := s.SaveSync(context.Background()); !errors.Is(err, ErrSaveInProgress) {
		t.Errorf("SaveSync err = %v, want ErrSaveInProgress", err)
	}

	close(loader.gate)
	l.pump(t)
	if saveErr != nil || string(out) != "%PDF-saved" {
		t.Fatalf("save result = %q, %v", out, saveErr)
	}
	if s.Saving() {
		t.Error("still saving after completion")
	}
	if len(rec.events[EventSaveStarted]) != 1 || len(rec.events[EventSaveFinished]) != 1 {
		t.Errorf("events = %v", rec.events)
	}

	if _, err := s.SaveSync(context.Background()); err != nil {
		t.Errorf("SaveSync after completion: %v", err)
	}
}

func TestSaveFailureKeepsStore(t *testing.T) {
	s, l := newTestSession(&fakeOpener{pages: 1}, &fakeLoader{pages: 1})
	rec := record(s, EventSaveFailed)
	if err := s.OpenDocument(testPDF); err != nil {
		t.Fatal(err)
	}
	addRectangle(t, s, 1)
	bad := element.NewImage(1, 1.5, geometry.NewRect(0, 0, 20, 20), element.Image{Payload: []byte("BM not supported"), Opacity: 1})
	if err := s.History().Do(s.Store(), history.Create("add image", bad, -1)); err != nil {
		t.Fatal(err)
	}
	before := s.Store().Snapshot()

	var saveErr error
	if err := s.Save(context.Background(), func(_ []byte, err error) { saveErr = err }); err != nil {
		t.Fatal(err)
	}
	l.pump(t)
	if !errors.Is(saveErr, flatten.ErrUnsupportedImageFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedImageFormat", saveErr)
	}
	if diff := cmp.Diff(before, s.Store().Snapshot()); diff != "" {
		t.Errorf("store changed by failed save (-before +after):\n%s", diff)
	}
	if len(rec.events[EventSaveFailed]) != 1 {
		t.Errorf("got %d failure events, want 1", len(rec.events[EventSaveFailed]))
	}

	s.Store().Remove(bad.ID)
	if _, err := s.SaveSync(context.Background()); err != nil {
		t.Errorf("retry after fixing the element: %v", err)
	}
}

func TestSaveWithoutDocument(t *testing.T) {
	s, _ := newTestSession(&fakeOpener{pages: 1}, &fakeLoader{pages: 1})
	if err := s.Save(context.Background(), nil); !errors.Is(err, document.ErrNoDocument) {
		t.Errorf("err = %v, want ErrNoDocument", err)
	}
	if s.Saving() {
		t.Error("save slot left claimed")
	}
}

func TestDetectTextRuns(t *testing.T) {
	s, l := newTestSession(&fakeOpener{pages: 1}, &fakeLoader{pages: 1})
	rec := record(s, EventTextRunsDetected)
	if err := s.OpenDocument(testPDF); err != nil {
		t.Fatal(err)
	}
	if err := s.DetectTextRuns(context.Background()); !errors.Is(err, ErrNotRendered) {
		t.Errorf("err = %v, want ErrNotRendered", err)
	}

	s.RenderCurrent(context.Background())
	l.pump(t)
	if err := s.DetectTextRuns(context.Background()); err != nil {
		t.Fatal(err)
	}
	l.pump(t)
	if runs := s.Editor().Runs(); len(runs) != 1 || runs[0].Text != "Total" {
		t.Errorf("editor runs = %+v", runs)
	}
	if len(rec.events[EventTextRunsDetected]) != 1 {
		t.Errorf("got %d detection events, want 1", len(rec.events[EventTextRunsDetected]))
	}
}

func TestCloseReleasesDocumentOnce(t *testing.T) {
	opener := &fakeOpener{pages: 1}
	s, _ := newTestSession(opener, &fakeLoader{pages: 1})
	if err := s.OpenDocument(testPDF); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if got := opener.handles[0].closed(); got != 1 {
		t.Errorf("handle closed %d times, want 1", got)
	}
	if s.HasDocument() {
		t.Error("document still open after Close")
	}
}
