package panels

import (
	"fmt"
	"strings"

	"pdf-touchup/internal/app"
	"pdf-touchup/internal/element"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// ElementsPanel lists the elements on the current page in paint order.
// Picking a row selects the element.
type ElementsPanel struct {
	session   *app.Session
	container *fyne.Container
	list      *widget.List
	count     *widget.Label
	items     []element.Element

	// selecting suppresses the list callback while the selection is mirrored.
	selecting bool
}

// NewElementsPanel creates an elements panel for s.
func NewElementsPanel(s *app.Session) *ElementsPanel {
	ep := &ElementsPanel{session: s}
	ep.count = widget.NewLabel("")

	ep.list = widget.NewList(
		func() int { return len(ep.items) },
		func() fyne.CanvasObject { return widget.NewLabel("element") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id < len(ep.items) {
				obj.(*widget.Label).SetText(describe(ep.items[id]))
			}
		},
	)
	ep.list.OnSelected = func(id widget.ListItemID) {
		if ep.selecting || id >= len(ep.items) {
			return
		}
		s.Editor().Select(ep.items[id].ID)
	}

	deleteBtn := widget.NewButton("Delete", func() {
		s.Editor().DeleteSelection()
	})

	ep.container = container.NewBorder(
		ep.count,  // top
		deleteBtn, // bottom
		nil,       // left
		nil,       // right
		ep.list,   // center
	)

	s.On(app.EventElementsChanged, func(interface{}) { ep.Refresh() })
	s.On(app.EventPageRendered, func(interface{}) { ep.Refresh() })
	s.On(app.EventDocumentOpened, func(interface{}) { ep.Refresh() })
	s.On(app.EventSelectionChanged, func(interface{}) { ep.mirrorSelection() })
	return ep
}

// Container returns the panel container.
func (ep *ElementsPanel) Container() fyne.CanvasObject {
	return ep.container
}

// Refresh reloads the rows for the current page.
func (ep *ElementsPanel) Refresh() {
	ep.items = ep.session.Store().Page(ep.session.Page())
	ep.count.SetText(fmt.Sprintf("%d on page %d, %d total",
		len(ep.items), ep.session.Page(), ep.session.Store().Len()))
	ep.list.Refresh()
	ep.mirrorSelection()
}

func (ep *ElementsPanel) mirrorSelection() {
	ep.selecting = true
	defer func() { ep.selecting = false }()

	sel := ep.session.Editor().Selected()
	for i, el := range ep.items {
		if el.ID == sel {
			ep.list.Select(i)
			return
		}
	}
	ep.list.UnselectAll()
}

// describe returns the row label for el.
func describe(el element.Element) string {
	switch el.Kind {
	case element.KindText:
		content := strings.ReplaceAll(el.Text.Content, "\n", " ")
		if len([]rune(content)) > 24 {
			content = string([]rune(content)[:24]) + "..."
		}
		return fmt.Sprintf("Text %q", content)
	case element.KindImage:
		return fmt.Sprintf("Image (%s, %.0fx%.0f)", el.Image.Format, el.Box.Width, el.Box.Height)
	case element.KindShape:
		return "Shape (" + el.Shape.Kind.String() + ")"
	case element.KindAnnotation:
		return "Markup (" + el.Annotation.Kind.String() + ")"
	case element.KindPath:
		return fmt.Sprintf("Drawing (%d points)", len(el.Path.Points))
	case element.KindWhiteout:
		return "Whiteout"
	}
	return el.Kind.String()
}
