package app

import (
	"testing"

	"pdf-touchup/pkg/colorutil"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

func TestThemeUsesEditorPalette(t *testing.T) {
	th := &TouchUpTheme{}
	tests := []struct {
		name fyne.ThemeColorName
		want interface{}
	}{
		{theme.ColorNamePrimary, colorutil.Selection},
		{theme.ColorNameHyperlink, colorutil.Blue},
		{theme.ColorNameSuccess, colorutil.Green},
		{theme.ColorNameWarning, colorutil.Yellow},
		{theme.ColorNameError, colorutil.Red},
		{theme.ColorNameSelection, colorutil.WithAlpha(colorutil.Selection, 0.3)},
	}
	for _, variant := range []fyne.ThemeVariant{theme.VariantLight, theme.VariantDark} {
		for _, tt := range tests {
			if got := th.Color(tt.name, variant); got != tt.want {
				t.Errorf("Color(%s, %d) = %v, want %v", tt.name, variant, got, tt.want)
			}
		}
	}
}

func TestThemeFallsBackToDefault(t *testing.T) {
	th := &TouchUpTheme{}
	for _, name := range []fyne.ThemeColorName{theme.ColorNameBackground, theme.ColorNameForeground} {
		want := theme.DefaultTheme().Color(name, theme.VariantDark)
		if got := th.Color(name, theme.VariantDark); got != want {
			t.Errorf("Color(%s) = %v, want default %v", name, got, want)
		}
	}
	if got, want := th.Size(theme.SizeNamePadding), theme.DefaultTheme().Size(theme.SizeNamePadding); got != want {
		t.Errorf("padding = %v, want %v", got, want)
	}
}
