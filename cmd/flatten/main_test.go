package main

import (
	"os"
	"path/filepath"
	"testing"

	"pdf-touchup/internal/element"
)

func TestReadElements(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elements.json")
	data := `[
		{"id": "w1", "page": 1, "kind": 5, "scale": 1, "box": {"x": 10, "y": 10, "width": 50, "height": 20}},
		{"page": 2, "kind": 0, "scale": 2, "box": {"x": 5, "y": 5}, "text": {"content": "hi", "font_size": 24}}
	]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	els, err := readElements(path)
	if err != nil {
		t.Fatalf("readElements: %v", err)
	}
	if len(els) != 2 {
		t.Fatalf("got %d elements", len(els))
	}
	if els[0].ID != "w1" || els[0].Kind != element.KindWhiteout {
		t.Errorf("first = %+v", els[0])
	}
	if els[1].ID == "" || els[1].Text.Content != "hi" || els[1].Text.FontSize != 24 {
		t.Errorf("second = %+v", els[1])
	}
	if got := countPages(els); got != 2 {
		t.Errorf("countPages = %d, want 2", got)
	}
}

func TestReadElementsRejectsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elements.json")
	if err := os.WriteFile(path, []byte(`{"id": 1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := readElements(path); err == nil {
		t.Error("expected an error for a non-array document")
	}
}
