package app

import (
	"image/color"

	"pdf-touchup/pkg/colorutil"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// paletteColors gives the window chrome the same colors the editor draws on
// the page: the selection frame blue marks focus and primary actions, and
// the palette's green, yellow and red carry status.
var paletteColors = map[fyne.ThemeColorName]color.Color{
	theme.ColorNamePrimary:   colorutil.Selection,
	theme.ColorNameFocus:     colorutil.WithAlpha(colorutil.Selection, 0.5),
	theme.ColorNameSelection: colorutil.WithAlpha(colorutil.Selection, 0.3),
	theme.ColorNameHyperlink: colorutil.Blue,
	theme.ColorNameSuccess:   colorutil.Green,
	theme.ColorNameWarning:   colorutil.Yellow,
	theme.ColorNameError:     colorutil.Red,
}

// TouchUpTheme is the default theme with its accent colors taken from the
// editor palette.
type TouchUpTheme struct{}

var _ fyne.Theme = (*TouchUpTheme)(nil)

func (t *TouchUpTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	if c, ok := paletteColors[name]; ok {
		return c
	}
	return theme.DefaultTheme().Color(name, variant)
}

func (t *TouchUpTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *TouchUpTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *TouchUpTheme) Size(name fyne.ThemeSizeName) float32 {
	return theme.DefaultTheme().Size(name)
}
