// Package panels provides UI panels for the application.
package panels

import (
	"pdf-touchup/internal/app"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
)

// SidePanel provides the main side panel with tabbed sections.
type SidePanel struct {
	container *container.AppTabs

	stylePanel    *StylePanel
	elementsPanel *ElementsPanel
}

// NewSidePanel creates a new side panel.
func NewSidePanel(s *app.Session) *SidePanel {
	sp := &SidePanel{
		stylePanel:    NewStylePanel(s),
		elementsPanel: NewElementsPanel(s),
	}

	sp.container = container.NewAppTabs(
		container.NewTabItem("Style", container.NewVScroll(sp.stylePanel.Container())),
		container.NewTabItem("Elements", sp.elementsPanel.Container()),
	)

	return sp
}

// Container returns the panel container.
func (sp *SidePanel) Container() fyne.CanvasObject {
	return sp.container
}

// Sync reloads both panels from the session.
func (sp *SidePanel) Sync() {
	sp.stylePanel.Sync()
	sp.elementsPanel.Refresh()
}
