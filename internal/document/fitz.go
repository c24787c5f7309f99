package document

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"pdf-touchup/pkg/geometry"

	"github.com/gen2brain/go-fitz"
)

// FitzOpener opens documents with MuPDF through go-fitz.
type FitzOpener struct{}

// Open parses data into a MuPDF document.
func (FitzOpener) Open(data []byte) (Handle, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		if errors.Is(err, fitz.ErrNeedsPassword) {
			return nil, &OpenError{Reason: ErrPasswordProtected, Err: err}
		}
		return nil, &OpenError{Reason: ErrCorrupted, Err: err}
	}
	h := &fitzHandle{doc: doc}
	if exact, err := PageDims(data); err == nil {
		h.exact = exact
	}
	return h, nil
}

// fitzHandle serializes access to the MuPDF context, which is not safe for
// concurrent use, and refuses calls after Close.
type fitzHandle struct {
	mu     sync.Mutex
	doc    *fitz.Document
	exact  []geometry.Size
	closed bool
}

func (h *fitzHandle) PageCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0
	}
	return h.doc.NumPage()
}

// PageSize returns the page bounds. MuPDF reports them truncated to whole
// units, so the size read by pdfcpu is used when it agrees.
func (h *fitzHandle) PageSize(page int) (geometry.Size, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return geometry.Size{}, ErrClosed
	}
	b, err := h.doc.Bound(page - 1)
	if err != nil {
		return geometry.Size{}, fmt.Errorf("bound page %d: %w", page, err)
	}
	size := geometry.NewSize(float64(b.Dx()), float64(b.Dy()))
	if page <= len(h.exact) {
		size = refineSize(size, h.exact[page-1])
	}
	return size, nil
}

func (h *fitzHandle) Render(page int, scale float64) (*image.RGBA, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}
	img, err := h.doc.ImageDPI(page-1, 72*scale)
	if err != nil {
		return nil, fmt.Errorf("rasterize page %d: %w", page, err)
	}
	return img, nil
}

func (h *fitzHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	return h.doc.Close()
}
