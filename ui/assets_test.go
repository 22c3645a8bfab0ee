package ui

import (
	"io/fs"
	"testing"
)

func TestTemplatesParse(t *testing.T) {
	tmpl, err := Templates(nil)
	if err != nil {
		t.Fatalf("failed to parse templates: %v", err)
	}
	if tmpl.Lookup("index.html") == nil {
		t.Fatalf("index.html template missing")
	}
}

func TestStaticAssetsPresent(t *testing.T) {
	for _, name := range []string{"dashboard.js", "dashboard.css"} {
		if _, err := fs.Stat(Static(), name); err != nil {
			t.Fatalf("static asset %s missing: %v", name, err)
		}
	}
}

func TestIconICO(t *testing.T) {
	data, err := IconICO()
	if err != nil {
		t.Fatalf("failed to encode icon: %v", err)
	}
	// ICONDIR header: reserved 0, type 1 (icon), one image.
	if len(data) < 6 || data[0] != 0 || data[1] != 0 || data[2] != 1 || data[4] != 1 {
		t.Fatalf("unexpected ico header: % x", data[:6])
	}
}
