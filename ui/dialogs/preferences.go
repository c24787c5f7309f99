// Package dialogs provides application dialogs.
package dialogs

import (
	"fmt"
	"strconv"
	"strings"

	"pdf-touchup/internal/app"
	"pdf-touchup/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// PreferencesDialog edits the session defaults stored in the preferences
// file. New values apply to the next session.
type PreferencesDialog struct {
	prefs  *prefs.Prefs
	window fyne.Window

	zoomEntry    *widget.Entry
	historyEntry *widget.Entry
	timeoutEntry *widget.Entry

	onSave func(app.Config)
}

// NewPreferencesDialog creates a preferences dialog. onSave receives the
// session configuration built from the saved preferences.
func NewPreferencesDialog(p *prefs.Prefs, window fyne.Window, onSave func(app.Config)) *PreferencesDialog {
	return &PreferencesDialog{prefs: p, window: window, onSave: onSave}
}

// Show displays the dialog.
func (d *PreferencesDialog) Show() {
	cfg := d.prefs.SessionConfig()

	d.zoomEntry = widget.NewEntry()
	d.zoomEntry.SetText(strconv.FormatFloat(cfg.Zoom, 'g', -1, 64))
	d.zoomEntry.SetPlaceHolder(fmt.Sprintf("%g to %g", app.MinZoom, app.MaxZoom))

	d.historyEntry = widget.NewEntry()
	d.historyEntry.SetText(strconv.Itoa(cfg.HistoryLimit))

	d.timeoutEntry = widget.NewEntry()
	d.timeoutEntry.SetText(strconv.FormatFloat(cfg.RenderTimeout.Seconds(), 'g', -1, 64))

	form := []*widget.FormItem{
		widget.NewFormItem("Default zoom", d.zoomEntry),
		widget.NewFormItem("Undo steps", d.historyEntry),
		widget.NewFormItem("Render timeout (s)", d.timeoutEntry),
	}

	dlg := dialog.NewForm("Preferences", "Save", "Cancel", form, func(ok bool) {
		if !ok {
			return
		}
		if err := d.apply(); err != nil {
			dialog.ShowError(err, d.window)
			return
		}
		if d.onSave != nil {
			d.onSave(d.prefs.SessionConfig())
		}
	}, d.window)
	dlg.Resize(fyne.NewSize(400, 240))
	dlg.Show()
}

func (d *PreferencesDialog) apply() error {
	v, err := parsePreferences(d.zoomEntry.Text, d.historyEntry.Text, d.timeoutEntry.Text)
	if err != nil {
		return err
	}
	d.prefs.SetFloat(prefs.KeyZoom, v.zoom)
	d.prefs.SetFloat(prefs.KeyHistoryLimit, float64(v.history))
	d.prefs.SetFloat(prefs.KeyRenderTimeout, v.timeout)
	return d.prefs.Save()
}

type preferenceValues struct {
	zoom    float64
	history int
	timeout float64
}

// parsePreferences validates the text of the preference entries.
func parsePreferences(zoom, history, timeout string) (preferenceValues, error) {
	var v preferenceValues
	var err error

	v.zoom, err = strconv.ParseFloat(strings.TrimSpace(zoom), 64)
	if err != nil || v.zoom < app.MinZoom || v.zoom > app.MaxZoom {
		return v, fmt.Errorf("default zoom must be between %g and %g", app.MinZoom, app.MaxZoom)
	}
	v.history, err = strconv.Atoi(strings.TrimSpace(history))
	if err != nil || v.history < 1 {
		return v, fmt.Errorf("undo steps must be a positive whole number")
	}
	v.timeout, err = strconv.ParseFloat(strings.TrimSpace(timeout), 64)
	if err != nil || v.timeout <= 0 {
		return v, fmt.Errorf("render timeout must be a positive number of seconds")
	}
	return v, nil
}
