package logstream_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"contentflow/internal/api"
	"contentflow/internal/ipc"
	"contentflow/internal/logs"
	"contentflow/internal/logstream"
)

type fakeTail struct {
	requests []ipc.LogTailRequest
	lines    []string
}

func (f *fakeTail) LogTail(req ipc.LogTailRequest) (*ipc.LogTailResponse, error) {
	f.requests = append(f.requests, req)
	return &ipc.LogTailResponse{Lines: f.lines, Offset: 128}, nil
}

func TestStreamFallsBackToFileTail(t *testing.T) {
	tail := &fakeTail{lines: []string{"one", "two"}}
	var got []string

	printed, err := logstream.Stream(context.Background(), nil, tail, logstream.Options{
		Lines:   2,
		Filters: logstream.Filters{Match: "o"},
	}, nil, func(line string) { got = append(got, line) })
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if !printed {
		t.Fatal("expected lines to be printed")
	}
	if diff := cmp.Diff([]string{"one", "two"}, got); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}
	if len(tail.requests) != 1 || tail.requests[0].Offset != -1 || tail.requests[0].Match != "o" {
		t.Fatalf("unexpected tail requests: %#v", tail.requests)
	}
}

func TestStreamFiltersRequireAPI(t *testing.T) {
	for name, filters := range map[string]logstream.Filters{
		"item":     {ItemID: 7},
		"platform": {Platform: "tiktok"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := logstream.Stream(context.Background(), nil, &fakeTail{}, logstream.Options{Filters: filters}, nil, nil)
			if !errors.Is(err, logstream.ErrFiltersRequireAPI) {
				t.Fatalf("expected ErrFiltersRequireAPI, got %v", err)
			}
		})
	}
}

func TestStreamUsesAPIEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(api.LogStreamResponse{
			Events: []api.LogEvent{
				{Message: "stage started", Stage: "image"},
				{Message: "heartbeat"},
			},
			Next: 9,
		})
	}))
	defer srv.Close()
	client, err := logs.NewStreamClient(srv.URL, "")
	if err != nil {
		t.Fatalf("NewStreamClient: %v", err)
	}

	var got []string
	printed, err := logstream.Stream(context.Background(), client, nil, logstream.Options{
		Filters: logstream.Filters{Match: "stage"},
	}, func(evt api.LogEvent) { got = append(got, evt.Message) }, nil)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if !printed || len(got) != 1 || got[0] != "stage started" {
		t.Fatalf("unexpected events: %v", got)
	}
}
