package mainwindow

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"pdf-touchup/internal/document"
	"pdf-touchup/internal/editor"
)

func TestSaveName(t *testing.T) {
	tests := map[string]string{
		"":            "edited.pdf",
		"report.pdf":  "report-edited.pdf",
		"scan.v2.PDF": "scan.v2-edited.pdf",
		"noext":       "noext-edited.pdf",
	}
	for in, want := range tests {
		if got := saveName(in); got != want {
			t.Errorf("saveName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOpenMessage(t *testing.T) {
	corrupt := &document.OpenError{Reason: document.ErrCorrupted, Err: errors.New("xref broken")}
	tests := []struct {
		err  error
		want string
	}{
		{document.CheckSignature([]byte("GIF89a")), "not a PDF"},
		{&document.OpenError{Reason: document.ErrPasswordProtected}, "password"},
		{corrupt, "xref broken"},
	}
	for _, tt := range tests {
		if got := openMessage(tt.err).Error(); !strings.Contains(got, tt.want) {
			t.Errorf("openMessage(%v) = %q, want it to mention %q", tt.err, got, tt.want)
		}
	}

	other := errors.New("disk on fire")
	if got := openMessage(other); got != other {
		t.Errorf("unknown errors should pass through, got %v", got)
	}
}

func TestToolLabels(t *testing.T) {
	seen := make(map[string]bool)
	for _, tool := range editor.Tools() {
		label := toolLabel(tool)
		if label == "" || strings.ToUpper(label[:1]) != label[:1] {
			t.Errorf("toolLabel(%v) = %q", tool, label)
		}
		if seen[label] {
			t.Errorf("duplicate label %q", label)
		}
		seen[label] = true
	}
}

func TestSaveBlocked(t *testing.T) {
	if got := saveBlocked(false, false); got != "Nothing to save" {
		t.Errorf("no document: %q", got)
	}
	if got := saveBlocked(true, true); !strings.Contains(got, "in progress") {
		t.Errorf("busy: %q", got)
	}
	if got := saveBlocked(true, false); got != "" {
		t.Errorf("idle: %q", got)
	}
}

type fakeOutput struct {
	bytes.Buffer
	closed bool
}

func (f *fakeOutput) Close() error {
	f.closed = true
	return nil
}

func TestWriteOutput(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		w := &fakeOutput{}
		discarded := false
		if err := writeOutput(w, []byte("%PDF-1.4"), nil, func() error { discarded = true; return nil }); err != nil {
			t.Fatalf("writeOutput: %v", err)
		}
		if w.String() != "%PDF-1.4" || !w.closed || discarded {
			t.Errorf("wrote %q, closed %v, discarded %v", w.String(), w.closed, discarded)
		}
	})

	t.Run("failed save", func(t *testing.T) {
		w := &fakeOutput{}
		discarded := false
		saveErr := errors.New("page 2: render failed")
		err := writeOutput(w, nil, saveErr, func() error { discarded = true; return nil })
		if !errors.Is(err, saveErr) {
			t.Errorf("err = %v, want %v", err, saveErr)
		}
		if w.Len() != 0 || !w.closed || !discarded {
			t.Errorf("wrote %d bytes, closed %v, discarded %v", w.Len(), w.closed, discarded)
		}
	})
}
