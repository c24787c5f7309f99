package dialogs

import (
	"fmt"
	"math"

	"pdf-touchup/internal/editor"
	"pdf-touchup/internal/element"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// ImageDialog edits the rotation and opacity of the selected image.
type ImageDialog struct {
	editor *editor.Editor
	window fyne.Window
	el     element.Element

	rotation *widget.Slider
	opacity  *widget.Slider
}

// NewImageDialog creates a dialog for the selected element of ed. It returns
// nil when the selection is not an image.
func NewImageDialog(ed *editor.Editor, window fyne.Window) *ImageDialog {
	el, ok := ed.Store().Get(ed.Selected())
	if !ok || el.Kind != element.KindImage {
		return nil
	}
	return &ImageDialog{editor: ed, window: window, el: el}
}

// Show displays the dialog.
func (d *ImageDialog) Show() {
	rotLabel := widget.NewLabel("")
	d.rotation = widget.NewSlider(-180, 180)
	d.rotation.Step = 1
	d.rotation.OnChanged = func(v float64) { rotLabel.SetText(fmt.Sprintf("Rotation: %.0f°", v)) }
	d.rotation.SetValue(d.el.Image.Rotation)

	opLabel := widget.NewLabel("")
	d.opacity = widget.NewSlider(0, 100)
	d.opacity.Step = 5
	d.opacity.OnChanged = func(v float64) { opLabel.SetText(fmt.Sprintf("Opacity: %.0f%%", v)) }
	d.opacity.SetValue(math.Round(d.el.Image.Opacity * 100))

	content := container.NewVBox(rotLabel, d.rotation, opLabel, d.opacity)

	dlg := dialog.NewCustomConfirm("Image "+d.el.Image.Format.String(), "Apply", "Cancel", content, func(ok bool) {
		if !ok {
			return
		}
		rot, op := d.rotation.Value, d.opacity.Value/100
		d.editor.Restyle("Change image", func(el *element.Element) {
			el.Image.Rotation = rot
			el.Image.Opacity = op
		})
	}, d.window)
	dlg.Resize(fyne.NewSize(360, 220))
	dlg.Show()
}
