package panels

import (
	"fmt"
	"image/color"

	"pdf-touchup/internal/app"
	"pdf-touchup/internal/editor"
	"pdf-touchup/internal/element"
	"pdf-touchup/internal/fonts"
	"pdf-touchup/pkg/colorutil"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// styleField names the setting a control changed.
type styleField int

const (
	fieldColor styleField = iota
	fieldStrokeWidth
	fieldFill
	fieldFontSize
	fieldFamily
	fieldBold
	fieldItalic
	fieldUnderline
	fieldAlign
	fieldShape
	fieldAnnotation
)

var alignNames = []string{"Left", "Center", "Right"}

// StylePanel edits the settings given to new elements. Changes are also
// applied to the selected element as one undoable update.
type StylePanel struct {
	session   *app.Session
	container *fyne.Container

	colorSelect  *widget.Select
	strokeSlider *widget.Slider
	strokeLabel  *widget.Label
	fillCheck    *widget.Check
	sizeSlider   *widget.Slider
	sizeLabel    *widget.Label
	familySelect *widget.Select
	boldCheck    *widget.Check
	italicCheck  *widget.Check
	underCheck   *widget.Check
	alignRadio   *widget.RadioGroup
	shapeSelect  *widget.Select
	annotSelect  *widget.Select

	// syncing suppresses change callbacks while controls are loaded.
	syncing bool
}

// NewStylePanel creates a style panel for s.
func NewStylePanel(s *app.Session) *StylePanel {
	sp := &StylePanel{session: s}

	var colorNames []string
	for _, c := range colorutil.Palette() {
		colorNames = append(colorNames, colorutil.Hex(c))
	}
	sp.colorSelect = widget.NewSelect(colorNames, func(hex string) {
		c, err := colorutil.ParseHex(hex)
		if err != nil {
			return
		}
		sp.change(fieldColor, func(st *editor.Settings) {
			st.Color = c
			if st.Annotation == element.AnnotationHighlight {
				st.HighlightColor = c
			}
		})
	})

	sp.strokeLabel = widget.NewLabel("")
	sp.strokeSlider = widget.NewSlider(1, 20)
	sp.strokeSlider.Step = 1
	sp.strokeSlider.OnChanged = func(v float64) {
		sp.strokeLabel.SetText(fmt.Sprintf("Stroke: %.0f px", v))
		sp.change(fieldStrokeWidth, func(st *editor.Settings) { st.StrokeWidth = v })
	}

	sp.fillCheck = widget.NewCheck("Fill shapes", func(on bool) {
		sp.change(fieldFill, func(st *editor.Settings) {
			if on {
				c := st.Color
				st.Fill = &c
			} else {
				st.Fill = nil
			}
		})
	})

	sp.sizeLabel = widget.NewLabel("")
	sp.sizeSlider = widget.NewSlider(6, 96)
	sp.sizeSlider.Step = 1
	sp.sizeSlider.OnChanged = func(v float64) {
		sp.sizeLabel.SetText(fmt.Sprintf("Font size: %.0f px", v))
		sp.change(fieldFontSize, func(st *editor.Settings) { st.FontSize = v })
	}

	var families []string
	for _, f := range fonts.Families() {
		families = append(families, f.String())
	}
	sp.familySelect = widget.NewSelect(families, func(name string) {
		f, err := fonts.ParseFamily(name)
		if err != nil {
			return
		}
		sp.change(fieldFamily, func(st *editor.Settings) { st.Family = f })
	})

	sp.boldCheck = widget.NewCheck("Bold", func(on bool) {
		sp.change(fieldBold, func(st *editor.Settings) { st.Bold = on })
	})
	sp.italicCheck = widget.NewCheck("Italic", func(on bool) {
		sp.change(fieldItalic, func(st *editor.Settings) { st.Italic = on })
	})
	sp.underCheck = widget.NewCheck("Underline", func(on bool) {
		sp.change(fieldUnderline, func(st *editor.Settings) { st.Underline = on })
	})

	sp.alignRadio = widget.NewRadioGroup(alignNames, func(name string) {
		for i, n := range alignNames {
			if n == name {
				sp.change(fieldAlign, func(st *editor.Settings) { st.Align = fonts.Align(i) })
			}
		}
	})
	sp.alignRadio.Horizontal = true

	shapes := []string{element.ShapeRectangle.String(), element.ShapeCircle.String(), element.ShapeLine.String()}
	sp.shapeSelect = widget.NewSelect(shapes, func(name string) {
		for i, n := range shapes {
			if n == name {
				sp.change(fieldShape, func(st *editor.Settings) { st.Shape = element.ShapeKind(i) })
			}
		}
	})

	annots := []string{element.AnnotationHighlight.String(), element.AnnotationStrikethrough.String(), element.AnnotationUnderline.String()}
	sp.annotSelect = widget.NewSelect(annots, func(name string) {
		for i, n := range annots {
			if n == name {
				sp.change(fieldAnnotation, func(st *editor.Settings) { st.Annotation = element.AnnotationKind(i) })
			}
		}
	})

	sp.container = container.NewVBox(
		widget.NewLabelWithStyle("Color", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		sp.colorSelect,
		sp.strokeLabel,
		sp.strokeSlider,
		sp.fillCheck,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Text", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		sp.sizeLabel,
		sp.sizeSlider,
		sp.familySelect,
		container.NewHBox(sp.boldCheck, sp.italicCheck, sp.underCheck),
		sp.alignRadio,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Shape", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		sp.shapeSelect,
		widget.NewLabelWithStyle("Markup", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		sp.annotSelect,
	)

	sp.Sync()
	s.On(app.EventSelectionChanged, func(interface{}) { sp.Sync() })
	return sp
}

// Container returns the panel container.
func (sp *StylePanel) Container() fyne.CanvasObject {
	return sp.container
}

// Sync loads the controls from the selected element, or from the editor
// settings when nothing is selected.
func (sp *StylePanel) Sync() {
	ed := sp.session.Editor()
	st := ed.Settings()
	if el, ok := sp.session.Store().Get(ed.Selected()); ok {
		st = settingsFrom(el, st)
	}

	sp.syncing = true
	defer func() { sp.syncing = false }()

	sp.colorSelect.SetSelected(colorutil.Hex(st.Color))
	sp.strokeSlider.SetValue(st.StrokeWidth)
	sp.strokeLabel.SetText(fmt.Sprintf("Stroke: %.0f px", st.StrokeWidth))
	sp.fillCheck.SetChecked(st.Fill != nil)
	sp.sizeSlider.SetValue(st.FontSize)
	sp.sizeLabel.SetText(fmt.Sprintf("Font size: %.0f px", st.FontSize))
	sp.familySelect.SetSelected(st.Family.String())
	sp.boldCheck.SetChecked(st.Bold)
	sp.italicCheck.SetChecked(st.Italic)
	sp.underCheck.SetChecked(st.Underline)
	if int(st.Align) < len(alignNames) {
		sp.alignRadio.SetSelected(alignNames[st.Align])
	}
	sp.shapeSelect.SetSelected(st.Shape.String())
	sp.annotSelect.SetSelected(st.Annotation.String())
}

// change updates the editor settings and restyles the selection.
func (sp *StylePanel) change(field styleField, fn func(*editor.Settings)) {
	if sp.syncing {
		return
	}
	ed := sp.session.Editor()
	st := ed.Settings()
	fn(&st)
	ed.SetSettings(st)

	if ed.Selected() == "" {
		return
	}
	ed.Restyle("Change style", func(el *element.Element) { applyStyle(el, st, field) })
}

// settingsFrom returns base overridden by the style of el.
func settingsFrom(el element.Element, base editor.Settings) editor.Settings {
	st := base
	switch el.Kind {
	case element.KindText:
		t := el.Text
		st.Color = t.Color
		st.FontSize = t.FontSize
		st.Family = t.Family
		st.Bold = t.Bold
		st.Italic = t.Italic
		st.Underline = t.Underline
		st.Align = t.Align
	case element.KindShape:
		st.Color = el.Shape.Stroke
		st.StrokeWidth = el.Shape.StrokeWidth
		st.Fill = el.Shape.Fill
		st.Shape = el.Shape.Kind
	case element.KindAnnotation:
		st.Color = el.Annotation.Color
		st.Annotation = el.Annotation.Kind
	case element.KindPath:
		st.Color = el.Path.Stroke
		st.StrokeWidth = el.Path.Width
	}
	return st
}

// applyStyle copies one setting onto el where its kind carries it.
func applyStyle(el *element.Element, st editor.Settings, field styleField) {
	switch el.Kind {
	case element.KindText:
		t := &el.Text
		switch field {
		case fieldColor:
			t.Color = st.Color
		case fieldFontSize:
			t.FontSize = st.FontSize
		case fieldFamily:
			t.Family = st.Family
		case fieldBold:
			t.Bold = st.Bold
		case fieldItalic:
			t.Italic = st.Italic
		case fieldUnderline:
			t.Underline = st.Underline
		case fieldAlign:
			t.Align = st.Align
		}
	case element.KindShape:
		switch field {
		case fieldColor:
			el.Shape.Stroke = st.Color
		case fieldStrokeWidth:
			el.Shape.StrokeWidth = st.StrokeWidth
		case fieldFill:
			el.Shape.Fill = copyColor(st.Fill)
		case fieldShape:
			el.Shape.Kind = st.Shape
		}
	case element.KindAnnotation:
		switch field {
		case fieldColor:
			el.Annotation.Color = st.Color
		case fieldAnnotation:
			el.Annotation.Kind = st.Annotation
		}
	case element.KindPath:
		switch field {
		case fieldColor:
			el.Path.Stroke = st.Color
		case fieldStrokeWidth:
			el.Path.Width = st.StrokeWidth
		}
	}
}

func copyColor(c *color.RGBA) *color.RGBA {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}
