package editor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"pdf-touchup/internal/element"
	"pdf-touchup/internal/history"
	"pdf-touchup/pkg/geometry"
)

var (
	ErrUnsupportedImage = errors.New("unsupported image format, use PNG or JPEG")
	ErrMalformedImage   = errors.New("image could not be decoded")
)

// PlaceImage creates an image element from payload, fitted into a
// 200x200 box centered on the viewport, selects it and returns to the select
// tool.
func (e *Editor) PlaceImage(payload []byte) (string, error) {
	format := element.DetectFormat(payload)
	if format == element.FormatUnknown {
		return "", ErrUnsupportedImage
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return "", ErrMalformedImage
	}

	v := e.viewport
	size := geometry.NewSize(float64(cfg.Width), float64(cfg.Height)).Fit(geometry.NewSize(ImageBox, ImageBox))
	center := geometry.Pt(v.Size.Width/2, v.Size.Height/2)
	box := geometry.NewRect(center.X-size.Width/2, center.Y-size.Height/2, size.Width, size.Height)

	el := element.NewImage(v.Page, v.Scale, box, element.Image{
		Payload: append([]byte(nil), payload...),
		Format:  format,
		Opacity: 1,
	})
	if !e.do(history.Create("add image", el, -1)) {
		return "", fmt.Errorf("failed to add image")
	}
	e.SetTool(ToolSelect)
	e.selectID(el.ID)
	e.changed()
	return el.ID, nil
}
