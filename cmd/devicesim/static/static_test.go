package static

import (
	"io"
	"testing"
)

func TestNewServesIndexHTML(t *testing.T) {
	fsys, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	f, err := fsys.Open("/index.html")
	if err != nil {
		t.Fatalf("open index.html: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("read index.html: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected non-empty index.html")
	}
}
