package document

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"pdf-touchup/pkg/geometry"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var configOnce sync.Once

// PageDims validates data with pdfcpu and returns the exact size of every
// page in document units, rotation applied. pdfcpu panics on some malformed
// input, which is reported as ErrCorrupted.
func PageDims(data []byte) (sizes []geometry.Size, err error) {
	if err := CheckSignature(data); err != nil {
		return nil, err
	}
	configOnce.Do(api.DisableConfigDir)

	defer func() {
		if r := recover(); r != nil {
			sizes, err = nil, &OpenError{Reason: ErrCorrupted, Err: fmt.Errorf("pdfcpu: %v", r)}
		}
	}()
	ctx, err := api.ReadAndValidate(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "password") {
			return nil, &OpenError{Reason: ErrPasswordProtected, Err: err}
		}
		return nil, &OpenError{Reason: ErrCorrupted, Err: err}
	}
	if ctx.Encrypt != nil {
		return nil, &OpenError{Reason: ErrPasswordProtected}
	}
	dims, err := ctx.PageDims()
	if err != nil {
		return nil, &OpenError{Reason: ErrCorrupted, Err: err}
	}
	if len(dims) == 0 {
		return nil, &OpenError{Reason: ErrCorrupted, Err: errors.New("no pages")}
	}
	sizes = make([]geometry.Size, len(dims))
	for i, d := range dims {
		sizes[i] = geometry.NewSize(d.Width, d.Height)
	}
	return sizes, nil
}

// refineSize returns exact when it is bound before integer truncation, and
// bound otherwise.
func refineSize(bound, exact geometry.Size) geometry.Size {
	if math.Abs(exact.Width-bound.Width) < 1.5 && math.Abs(exact.Height-bound.Height) < 1.5 {
		return exact
	}
	return bound
}
