package document

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"pdf-touchup/pkg/geometry"
)

// DefaultTimeout bounds a single page render when the caller sets no deadline.
const DefaultTimeout = 15 * time.Second

// Info describes a freshly opened document.
type Info struct {
	PageCount int
	Sizes     []geometry.Size
}

// Renderer owns at most one open document handle.
type Renderer struct {
	opener  Opener
	Timeout time.Duration

	mu     sync.Mutex
	handle *openHandle
	sizes  []geometry.Size
}

// openHandle counts the renders still running against a handle, including
// ones abandoned after a timeout.
type openHandle struct {
	Handle
	renders atomic.Int32
}

// NewRenderer creates a renderer that opens documents with o.
func NewRenderer(o Opener) *Renderer {
	return &Renderer{opener: o, Timeout: DefaultTimeout}
}

// Open validates data, releases the current document and opens data in its
// place. On failure no document is open.
func (r *Renderer) Open(data []byte) (Info, error) {
	if err := CheckSignature(data); err != nil {
		return Info{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseLocked()

	h, err := r.opener.Open(data)
	if err != nil {
		return Info{}, classifyOpenError(err)
	}
	n := h.PageCount()
	if n < 1 {
		_ = h.Close()
		return Info{}, &OpenError{Reason: ErrCorrupted, Err: errors.New("document has no pages")}
	}
	sizes := make([]geometry.Size, n)
	for i := range sizes {
		s, err := h.PageSize(i + 1)
		if err != nil {
			_ = h.Close()
			return Info{}, &OpenError{Reason: ErrCorrupted, Err: fmt.Errorf("page %d: %w", i+1, err)}
		}
		sizes[i] = s
	}
	r.handle = &openHandle{Handle: h}
	r.sizes = sizes
	log.Printf("Renderer: opened document with %d pages", n)
	return Info{PageCount: n, Sizes: append([]geometry.Size(nil), sizes...)}, nil
}

func classifyOpenError(err error) error {
	var oe *OpenError
	if errors.As(err, &oe) {
		return oe
	}
	if errors.Is(err, ErrPasswordProtected) {
		return &OpenError{Reason: ErrPasswordProtected, Err: err}
	}
	return &OpenError{Reason: ErrCorrupted, Err: err}
}

// releaseLocked closes the current handle, if any. r.mu must be held. A
// handle with a render still running is closed in the background once the
// render lets go of it.
func (r *Renderer) releaseLocked() {
	h := r.handle
	if h == nil {
		return
	}
	r.handle = nil
	r.sizes = nil
	if h.renders.Load() > 0 {
		log.Printf("Renderer: closing document after pending render")
		go closeHandle(h)
		return
	}
	closeHandle(h)
}

func closeHandle(h Handle) {
	if err := h.Close(); err != nil {
		log.Printf("Renderer: close document: %v", err)
	}
}

// PageCount returns the page count of the open document, 0 if none.
func (r *Renderer) PageCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sizes)
}

// PageSize returns the size of a page in document units.
func (r *Renderer) PageSize(page int) (geometry.Size, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handle == nil {
		return geometry.Size{}, ErrNoDocument
	}
	if page < 1 || page > len(r.sizes) {
		return geometry.Size{}, &PageError{Page: page, Err: ErrPageRange}
	}
	return r.sizes[page-1], nil
}

// Render rasterizes page at scale. The render is abandoned with
// ErrRenderTimeout when ctx ends, or after Timeout if ctx has no deadline.
func (r *Renderer) Render(ctx context.Context, page int, scale float64) (Raster, error) {
	if scale <= 0 {
		return Raster{}, &PageError{Page: page, Err: fmt.Errorf("invalid scale %v", scale)}
	}
	r.mu.Lock()
	h := r.handle
	count := len(r.sizes)
	if h != nil && page >= 1 && page <= count {
		h.renders.Add(1)
	}
	r.mu.Unlock()

	if h == nil {
		return Raster{}, ErrNoDocument
	}
	if page < 1 || page > count {
		return Raster{}, &PageError{Page: page, Err: ErrPageRange}
	}

	if _, ok := ctx.Deadline(); !ok && r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	type result struct {
		raster Raster
		err    error
	}
	done := make(chan result, 1)
	go func() {
		img, err := h.Render(page, scale)
		h.renders.Add(-1)
		if err != nil {
			done <- result{err: &PageError{Page: page, Err: err}}
			return
		}
		b := img.Bounds()
		done <- result{raster: Raster{Image: img, Width: b.Dx(), Height: b.Dy(), Page: page, Scale: scale}}
	}()

	select {
	case res := <-done:
		return res.raster, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Printf("Renderer: page %d timed out at scale %.2f", page, scale)
			return Raster{}, &PageError{Page: page, Err: ErrRenderTimeout}
		}
		return Raster{}, &PageError{Page: page, Err: ctx.Err()}
	}
}

// Close releases the open document. Calling Close again is a no-op.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseLocked()
	return nil
}
