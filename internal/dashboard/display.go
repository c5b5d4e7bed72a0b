package dashboard

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/verte-zerg/xpdash/internal/render"
)

// Display is where the controller puts its output: one image surface per
// chart and one text slot per summary value.
type Display interface {
	// Surface opens the drawing target for a chart. ok is false when the
	// display has no such surface; the chart is skipped.
	Surface(id string) (w io.WriteCloser, ok bool)
	SetText(id, text string)
}

// textSlots keeps summary text in the order it was first set.
type textSlots struct {
	mu    sync.Mutex
	order []string
	texts map[string]string
}

func (t *textSlots) SetText(id, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.texts == nil {
		t.texts = map[string]string{}
	}
	if _, ok := t.texts[id]; !ok {
		t.order = append(t.order, id)
	}
	t.texts[id] = text
}

// Text returns the last text set for id.
func (t *textSlots) Text(id string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	text, ok := t.texts[id]
	return text, ok
}

// WriteSummary prints every text slot as "id: text".
func (t *textSlots) WriteSummary(w io.Writer) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range t.order {
		if _, err := fmt.Fprintf(w, "%s: %s\n", id, t.texts[id]); err != nil {
			return err
		}
	}
	return nil
}

// DirDisplay writes each chart to <dir>/<id><ext> and collects text.
type DirDisplay struct {
	textSlots
	dir    string
	ext    string
	mu     sync.Mutex
	files  []string
	errors []error
}

// NewDirDisplay creates the output directory.
func NewDirDisplay(dir string, format render.Format) (*DirDisplay, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &DirDisplay{dir: dir, ext: format.Extension()}, nil
}

// Surface implements Display.
func (d *DirDisplay) Surface(id string) (io.WriteCloser, bool) {
	path := filepath.Join(d.dir, id+d.ext)
	f, err := os.Create(path)
	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.errors = append(d.errors, fmt.Errorf("open %s: %w", path, err))
		return nil, false
	}
	d.files = append(d.files, path)
	return f, true
}

// Files lists the chart files written so far.
func (d *DirDisplay) Files() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.files...)
}

// Errors lists surfaces that could not be opened.
func (d *DirDisplay) Errors() []error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]error(nil), d.errors...)
}

// MemDisplay keeps chart output in memory. Only the surfaces it was created
// with exist; a MemDisplay without surfaces is text-only.
type MemDisplay struct {
	textSlots
	mu       sync.Mutex
	surfaces map[string]*bytes.Buffer
}

// NewMemDisplay returns a display exposing the given surface ids.
func NewMemDisplay(surfaceIDs ...string) *MemDisplay {
	m := &MemDisplay{surfaces: map[string]*bytes.Buffer{}}
	for _, id := range surfaceIDs {
		m.surfaces[id] = &bytes.Buffer{}
	}
	return m
}

// Surface implements Display. Each call replaces the previous content.
func (m *MemDisplay) Surface(id string) (io.WriteCloser, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, ok := m.surfaces[id]
	if !ok {
		return nil, false
	}
	buf.Reset()
	return nopCloser{buf}, true
}

// Content returns what was last drawn on a surface.
func (m *MemDisplay) Content(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if buf, ok := m.surfaces[id]; ok {
		return buf.String()
	}
	return ""
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
