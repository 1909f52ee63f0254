package imagegen_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"contentflow/internal/imagegen"
	"contentflow/internal/queue"
	"contentflow/internal/services"
	"contentflow/internal/testsupport"
)

func itemWithText(text string) *queue.Item {
	item := &queue.Item{ID: 7, Topic: "t", Platform: "linkedin"}
	item.Start()
	item.Text = text
	return item
}

func TestExecuteDownloadsSeededImage(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpegdata"))
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithImageBaseURL(srv.URL))
	gen := imagegen.NewGenerator(cfg, nil)
	item := itemWithText("abc")
	ctx := context.Background()

	if err := gen.Prepare(ctx, item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := gen.Execute(ctx, item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if item.ImageURL != srv.URL+"/seed/294/800/600" {
		t.Fatalf("unexpected image url %q", item.ImageURL)
	}
	if item.ImagePath != filepath.Join(cfg.ItemStagingDir(7), "image.jpg") {
		t.Fatalf("unexpected image path %q", item.ImagePath)
	}
	data, err := os.ReadFile(item.ImagePath)
	if err != nil || string(data) != "jpegdata" {
		t.Fatalf("unexpected image contents %q err=%v", data, err)
	}
	if len(paths) != 2 || paths[0] != "HEAD /seed/294/800/600" {
		t.Fatalf("unexpected requests %v", paths)
	}
}

func TestExecuteFallsBackWhenSeedMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/seed/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("random"))
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithImageBaseURL(srv.URL))
	gen := imagegen.NewGenerator(cfg, nil)
	item := itemWithText("hello")
	if err := gen.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := gen.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if item.ImageURL != srv.URL+"/800/600" {
		t.Fatalf("expected fallback url, got %q", item.ImageURL)
	}
}

func TestExecuteReportsDownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithImageBaseURL(srv.URL))
	gen := imagegen.NewGenerator(cfg, nil)
	item := itemWithText("hello")
	_ = gen.Prepare(context.Background(), item)
	err := gen.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrExternalTool) || services.Code(err) != "image_generation_failed" {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if item.ImageURL != "" {
		t.Fatalf("image url should stay empty on failure, got %q", item.ImageURL)
	}
}

func TestPrepareRequiresText(t *testing.T) {
	gen := imagegen.NewGenerator(testsupport.NewConfig(t), nil)
	err := gen.Prepare(context.Background(), itemWithText(""))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
