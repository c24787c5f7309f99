// Package prefs provides JSON-based application preferences.
package prefs

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"pdf-touchup/internal/app"
	"pdf-touchup/internal/fonts"
	"pdf-touchup/pkg/colorutil"
)

const prefsFile = "preferences.json"

// Preference keys.
const (
	KeyZoom          = "zoom.default"
	KeyHistoryLimit  = "history.limit"
	KeyRenderTimeout = "render.timeout_seconds"
	KeyToolColor     = "tool.color"
	KeyStrokeWidth   = "tool.stroke_width"
	KeyFontSize      = "text.font_size"
	KeyFontFamily    = "text.family"
	KeyLastDir       = "dir.last"
)

// Prefs stores application preferences as a key-value map.
type Prefs struct {
	mu     sync.RWMutex
	values map[string]interface{}
	path   string
	dirty  bool
}

// Load reads preferences from <user config dir>/pdf-touchup/preferences.json.
func Load() *Prefs {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return LoadFrom(filepath.Join(configDir, "pdf-touchup", prefsFile))
}

// LoadFrom reads preferences from path. A missing or unreadable file gives
// empty preferences that will be written to path on Save.
func LoadFrom(path string) *Prefs {
	p := &Prefs{values: make(map[string]interface{}), path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		return p
	}
	if err := json.Unmarshal(data, &p.values); err != nil {
		log.Printf("Prefs: ignoring malformed %s: %v", path, err)
		p.values = make(map[string]interface{})
	}
	return p
}

// Path returns the file the preferences are saved to.
func (p *Prefs) Path() string { return p.path }

// Save writes preferences to disk.
func (p *Prefs) Save() error {
	p.mu.Lock()
	data, err := json.MarshalIndent(p.values, "", "  ")
	p.dirty = false
	p.mu.Unlock()
	if err != nil {
		return err
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0o644)
}

// SaveIfChanged writes preferences only when a setter ran since the last
// save.
func (p *Prefs) SaveIfChanged() error {
	p.mu.RLock()
	dirty := p.dirty
	p.mu.RUnlock()
	if !dirty {
		return nil
	}
	return p.Save()
}

func (p *Prefs) set(key string, val interface{}) {
	p.mu.Lock()
	p.values[key] = val
	p.dirty = true
	p.mu.Unlock()
}

// FloatWithFallback returns a float64 preference, or fallback if not set.
func (p *Prefs) FloatWithFallback(key string, fallback float64) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.values[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return fallback
}

// SetFloat stores a float64 preference.
func (p *Prefs) SetFloat(key string, val float64) {
	p.set(key, val)
}

// IntWithFallback returns an integer preference, or fallback if not set.
// JSON numbers are truncated.
func (p *Prefs) IntWithFallback(key string, fallback int) int {
	f := p.FloatWithFallback(key, float64(fallback))
	return int(f)
}

// String returns a string preference, or "" if not set.
func (p *Prefs) String(key string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// SetString stores a string preference.
func (p *Prefs) SetString(key string, val string) {
	p.set(key, val)
}

// Bool returns a bool preference, or fallback if not set.
func (p *Prefs) Bool(key string, fallback bool) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if b, ok := p.values[key].(bool); ok {
		return b
	}
	return fallback
}

// SetBool stores a bool preference.
func (p *Prefs) SetBool(key string, val bool) {
	p.set(key, val)
}

// SessionConfig builds the session configuration, falling back to the
// defaults for missing or invalid values.
func (p *Prefs) SessionConfig() app.Config {
	cfg := app.DefaultConfig()
	cfg.Zoom = p.FloatWithFallback(KeyZoom, cfg.Zoom)
	cfg.HistoryLimit = p.IntWithFallback(KeyHistoryLimit, cfg.HistoryLimit)
	if secs := p.FloatWithFallback(KeyRenderTimeout, 0); secs > 0 {
		cfg.RenderTimeout = time.Duration(secs * float64(time.Second))
	}

	s := &cfg.Settings
	if hex := p.String(KeyToolColor); hex != "" {
		if c, err := colorutil.ParseHex(hex); err == nil {
			s.Color = c
		} else {
			log.Printf("Prefs: %s: %v", KeyToolColor, err)
		}
	}
	if w := p.FloatWithFallback(KeyStrokeWidth, s.StrokeWidth); w > 0 {
		s.StrokeWidth = w
	}
	if size := p.FloatWithFallback(KeyFontSize, s.FontSize); size > 0 {
		s.FontSize = size
	}
	if name := p.String(KeyFontFamily); name != "" {
		if f, err := fonts.ParseFamily(name); err == nil {
			s.Family = f
		} else {
			log.Printf("Prefs: %s: %v", KeyFontFamily, err)
		}
	}
	return cfg
}
