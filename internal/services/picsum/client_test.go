package picsum

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestURLs(t *testing.T) {
	client := NewClient(Config{}, nil)
	if got := client.SeedURL(42); got != "https://picsum.photos/seed/42/800/600" {
		t.Fatalf("unexpected seed url %q", got)
	}
	if got := client.FallbackURL(); got != "https://picsum.photos/800/600" {
		t.Fatalf("unexpected fallback url %q", got)
	}
}

func TestDownloadWritesImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/seed/7/800/600" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write([]byte("\xff\xd8fake-jpeg"))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL + "/"}, server.Client())
	url := client.SeedURL(7)
	if err := client.Check(context.Background(), url); err != nil {
		t.Fatalf("Check: %v", err)
	}
	dest := filepath.Join(t.TempDir(), "item-1", "image.jpg")
	n, err := client.Download(context.Background(), url, dest)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if n == 0 {
		t.Fatal("expected bytes written")
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read image: %v", err)
	}
	if string(data) != "\xff\xd8fake-jpeg" {
		t.Fatalf("unexpected image bytes %q", data)
	}
}

func TestCheckAndDownloadFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/html/800/600":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, server.Client())
	if err := client.Check(context.Background(), client.SeedURL(1)); err == nil {
		t.Fatal("expected check failure for 404")
	}
	dest := filepath.Join(t.TempDir(), "image.jpg")
	if _, err := client.Download(context.Background(), server.URL+"/html/800/600", dest); err == nil {
		t.Fatal("expected non-image content to be rejected")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatalf("expected no file written, stat err=%v", err)
	}
}
