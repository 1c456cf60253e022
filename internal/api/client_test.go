package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/entro314-labs/bigkill/internal/api"
	"github.com/entro314-labs/bigkill/internal/api/apitest"
)

func newClient(t *testing.T) (*api.Client, *apitest.Server) {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)
	return api.NewClient(srv.URL + "/"), srv
}

func TestStartScanQuery(t *testing.T) {
	c, srv := newClient(t)

	tests := []struct {
		name string
		req  api.ScanRequest
		want map[string]string
	}{
		{"default min size", api.ScanRequest{Path: "/tmp"}, map[string]string{"path": "/tmp", "min_size_mb": "100", "only_temp": "false"}},
		{"explicit values", api.ScanRequest{Path: `C:\Users\me`, MinSizeMB: 250.5, OnlyTemp: true}, map[string]string{"path": `C:\Users\me`, "min_size_mb": "250.5", "only_temp": "true"}},
		{"negative min size", api.ScanRequest{Path: "/data dir", MinSizeMB: -1}, map[string]string{"path": "/data dir", "min_size_mb": "100", "only_temp": "false"}},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack, err := c.StartScan(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("StartScan() error: %v", err)
			}
			if !json.Valid(ack) {
				t.Errorf("ack is not JSON: %s", ack)
			}
			got := srv.Scans()[i]
			for key, want := range tt.want {
				if got.Get(key) != want {
					t.Errorf("%s = %q, want %q", key, got.Get(key), want)
				}
			}
		})
	}
}

func TestStartScanFailureCarriesDetail(t *testing.T) {
	c, _ := newClient(t)

	_, err := c.StartScan(context.Background(), api.ScanRequest{})
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", apiErr.StatusCode)
	}
	if got := err.Error(); got != "Error: Path does not exist" {
		t.Errorf("Error() = %q", got)
	}
}

func TestAPIErrorFallsBackToStatusText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	_, err := api.NewClient(srv.URL).Status(context.Background())
	if got := err.Error(); got != "Error: Service Unavailable" {
		t.Errorf("Error() = %q", got)
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Body != "upstream down" {
		t.Errorf("Body = %q", apiErr.Body)
	}
}

func TestStatusDecoding(t *testing.T) {
	c, srv := newClient(t)
	srv.SetStatuses(
		api.WireStatus{Status: "idle"},
		api.WireStatus{Status: "scanning", FilesProcessed: 5, TotalFound: 2},
		api.WireStatus{Status: "error: disk unreadable"},
		api.WireStatus{Status: "completed"},
	)

	want := []api.Status{
		{Phase: api.PhaseIdle, Raw: "idle"},
		{Phase: api.PhaseScanning, FilesProcessed: 5, TotalFound: 2, Raw: "scanning"},
		{Phase: api.PhaseError, Message: "error: disk unreadable", Raw: "error: disk unreadable"},
		{Phase: api.PhaseCompleted, Raw: "completed"},
		{Phase: api.PhaseCompleted, Raw: "completed"},
	}
	for i, w := range want {
		got, err := c.Status(context.Background())
		if err != nil {
			t.Fatalf("poll %d: %v", i, err)
		}
		if diff := cmp.Diff(w, got); diff != "" {
			t.Errorf("poll %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestFilesAndMutations(t *testing.T) {
	c, srv := newClient(t)
	srv.SetFiles(
		api.FileRecord{ID: "1", Filename: "a.iso", Filepath: "/tmp/a.iso", FilesizeMB: 700, Category: "Archives", IsSafeToDelete: true},
		api.FileRecord{ID: "2", Filename: "b.mkv", Filepath: "/home/b.mkv", FilesizeMB: 1200, Category: "Media"},
		api.FileRecord{ID: "3", Filename: "c.tmp", Filepath: "/tmp/c.tmp", FilesizeMB: 150, Category: "Others", IsSafeToDelete: true},
	)
	ctx := context.Background()

	files, err := c.Files(ctx)
	if err != nil {
		t.Fatalf("Files() error: %v", err)
	}
	if diff := cmp.Diff(srv.Files(), files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}

	if err := c.Open(ctx, "2"); err != nil {
		t.Errorf("Open(2) error: %v", err)
	}
	if err := c.Open(ctx, "42"); err == nil {
		t.Errorf("Open(42) should fail")
	}

	if err := c.Delete(ctx, "2"); err != nil {
		t.Fatalf("Delete(2) error: %v", err)
	}
	var apiErr *api.APIError
	if err := c.Delete(ctx, "2"); !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("second Delete(2) = %v, want 404", err)
	}

	msg, err := c.DeleteAllSafe(ctx)
	if err != nil {
		t.Fatalf("DeleteAllSafe() error: %v", err)
	}
	if msg != "Successfully deleted 2 safe files." {
		t.Errorf("message = %q", msg)
	}
	if msg, _ := c.DeleteAllSafe(ctx); msg != "No safe files found to delete." {
		t.Errorf("second message = %q", msg)
	}
	if got := len(srv.Files()); got != 0 {
		t.Errorf("%d files left on server", got)
	}
}

func TestFilesEmptyArray(t *testing.T) {
	c, _ := newClient(t)
	files, err := c.Files(context.Background())
	if err != nil {
		t.Fatalf("Files() error: %v", err)
	}
	if files == nil || len(files) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", files)
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := api.NewClient(url).Files(context.Background())
	if err == nil {
		t.Fatal("expected transport error")
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		t.Errorf("transport error must not be an APIError: %v", err)
	}
	if !strings.Contains(err.Error(), "execute request") {
		t.Errorf("unexpected error text %q", err)
	}
}

func TestRequestHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{"status":"idle"}`))
	}))
	defer srv.Close()

	if _, err := api.NewClient(srv.URL).Status(context.Background()); err != nil {
		t.Fatalf("Status() error: %v", err)
	}
	if got.Get("Accept") != "application/json" {
		t.Errorf("Accept = %q", got.Get("Accept"))
	}
	if len(got.Get("X-Request-ID")) != 36 {
		t.Errorf("X-Request-ID = %q", got.Get("X-Request-ID"))
	}
}
