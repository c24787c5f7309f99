package panels

import (
	"testing"

	"pdf-touchup/internal/editor"
	"pdf-touchup/internal/element"
	"pdf-touchup/internal/fonts"
	"pdf-touchup/pkg/colorutil"
	"pdf-touchup/pkg/geometry"
)

func TestApplyStyleText(t *testing.T) {
	el := element.NewText(1, 1, geometry.Pt(0, 0), element.Text{Content: "hi", FontSize: 12, Color: colorutil.Black})
	st := editor.DefaultSettings()
	st.FontSize = 30
	st.Bold = true

	applyStyle(&el, st, fieldFontSize)
	if el.Text.FontSize != 30 || el.Text.Bold {
		t.Errorf("after size: %+v", el.Text)
	}
	applyStyle(&el, st, fieldBold)
	if !el.Text.Bold || el.Text.Color != colorutil.Black {
		t.Errorf("after bold: %+v", el.Text)
	}
}

func TestApplyStyleShapeFillIsCopied(t *testing.T) {
	el := element.NewShape(1, 1, geometry.NewRect(0, 0, 10, 10), element.Shape{Stroke: colorutil.Red, StrokeWidth: 2})
	fill := colorutil.Blue
	st := editor.DefaultSettings()
	st.Fill = &fill

	applyStyle(&el, st, fieldFill)
	if el.Shape.Fill == nil || *el.Shape.Fill != colorutil.Blue {
		t.Fatalf("fill = %v", el.Shape.Fill)
	}
	fill = colorutil.Green
	if *el.Shape.Fill != colorutil.Blue {
		t.Error("fill shares memory with the settings")
	}
}

func TestApplyStyleIgnoresOtherKinds(t *testing.T) {
	el := element.NewWhiteout(1, 1, geometry.NewRect(0, 0, 10, 10))
	before := el.Clone()
	st := editor.DefaultSettings()
	st.Color = colorutil.Green
	applyStyle(&el, st, fieldColor)
	if el.Box != before.Box || el.Kind != element.KindWhiteout {
		t.Errorf("whiteout changed: %+v", el)
	}
}

func TestSettingsFrom(t *testing.T) {
	base := editor.DefaultSettings()
	el := element.NewText(1, 1, geometry.Pt(0, 0), element.Text{
		Content: "x", FontSize: 40, Family: fonts.Mono, Color: colorutil.Blue, Italic: true, Align: fonts.AlignRight,
	})
	st := settingsFrom(el, base)
	if st.FontSize != 40 || st.Family != fonts.Mono || st.Color != colorutil.Blue || !st.Italic || st.Align != fonts.AlignRight {
		t.Errorf("settings = %+v", st)
	}
	if st.StrokeWidth != base.StrokeWidth {
		t.Errorf("stroke width = %v, want base %v", st.StrokeWidth, base.StrokeWidth)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		el   element.Element
		want string
	}{
		{element.NewText(1, 1, geometry.Pt(0, 0), element.Text{Content: "a\nb"}), `Text "a b"`},
		{element.NewShape(1, 1, geometry.NewRect(0, 0, 1, 1), element.Shape{Kind: element.ShapeCircle}), "Shape (circle)"},
		{element.NewAnnotation(1, 1, geometry.NewRect(0, 0, 1, 1), element.Annotation{Kind: element.AnnotationUnderline}), "Markup (underline)"},
		{element.NewPath(1, 1, element.Path{Points: []geometry.Point{{}, {}}}), "Drawing (2 points)"},
		{element.NewWhiteout(1, 1, geometry.NewRect(0, 0, 1, 1)), "Whiteout"},
	}
	for _, tt := range tests {
		if got := describe(tt.el); got != tt.want {
			t.Errorf("describe(%s) = %q, want %q", tt.el.Kind, got, tt.want)
		}
	}
}
