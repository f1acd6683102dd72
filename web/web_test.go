package web

import (
	"io/fs"
	"testing"
)

func TestGetTemplatesFS(t *testing.T) {
	data, err := fs.ReadFile(GetTemplatesFS(), "index.html")
	if err != nil {
		t.Fatalf("index.html missing from embedded templates: %v", err)
	}
	if len(data) == 0 {
		t.Error("index.html is empty")
	}
}

func TestGetStaticFS(t *testing.T) {
	for _, name := range []string{"app.js", "style.css"} {
		if _, err := fs.ReadFile(GetStaticFS(), name); err != nil {
			t.Errorf("%s missing from embedded static files: %v", name, err)
		}
	}
}
