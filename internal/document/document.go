// Package document owns the open source document and renders its pages to
// rasters on demand.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"pdf-touchup/pkg/geometry"
)

// Signature is the byte prefix every accepted source starts with.
var Signature = []byte("%PDF-")

var (
	ErrInvalidSignature  = errors.New("not a PDF document")
	ErrPasswordProtected = errors.New("document is password protected")
	ErrCorrupted         = errors.New("document is corrupted or unsupported")
	ErrNoDocument        = errors.New("no document is open")
	ErrPageRange         = errors.New("page out of range")
	ErrRenderTimeout     = errors.New("page render timed out")
	ErrClosed            = errors.New("document handle is closed")
)

// Opener parses source bytes into a handle.
type Opener interface {
	Open(data []byte) (Handle, error)
}

// Handle is an open document. Pages are 1-based.
type Handle interface {
	PageCount() int
	PageSize(page int) (geometry.Size, error)
	Render(page int, scale float64) (*image.RGBA, error)
	Close() error
}

// OpenError reports why a document could not be opened. Reason is one of
// ErrInvalidSignature, ErrPasswordProtected or ErrCorrupted.
type OpenError struct {
	Reason error
	Err    error
}

func (e *OpenError) Error() string {
	if e.Err == nil || e.Err == e.Reason {
		return fmt.Sprintf("open document: %v", e.Reason)
	}
	return fmt.Sprintf("open document: %v: %v", e.Reason, e.Err)
}

func (e *OpenError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Err}
}

// PageError reports a failure rendering one page.
type PageError struct {
	Page int
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("render page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

// CheckSignature verifies that data starts with the PDF signature.
func CheckSignature(data []byte) error {
	if !bytes.HasPrefix(data, Signature) {
		return &OpenError{Reason: ErrInvalidSignature}
	}
	return nil
}

// Raster is one rendered page. It is not retained by the renderer.
type Raster struct {
	Image  *image.RGBA
	Width  int
	Height int
	Page   int
	Scale  float64
}
