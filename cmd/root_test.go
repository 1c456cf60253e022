package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/entro314-labs/bigkill/internal/api"
	"github.com/entro314-labs/bigkill/internal/api/apitest"
	"github.com/entro314-labs/bigkill/internal/results"
)

func sampleFiles() []api.FileRecord {
	return []api.FileRecord{
		{ID: "1", Filename: "movie.mkv", Filepath: "/home/u/movie.mkv", FilesizeMB: 4200, Category: "Media"},
		{ID: "2", Filename: "cache.tmp", Filepath: "/tmp/cache.tmp", FilesizeMB: 150.5, Category: "Others", IsSafeToDelete: true},
		{ID: "3", Filename: "backup.zip", Filepath: "/home/u/backup.zip", FilesizeMB: 900, Category: "Archives"},
		{ID: "4", Filename: "clip.mp4", Filepath: "/tmp/clip.mp4", FilesizeMB: 310, Category: "Media", IsSafeToDelete: true},
	}
}

type result struct {
	stdout string
	stderr string
	err    error
}

// isolate keeps the user's config files and environment out of the test.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("BIGKILL_POLL_INTERVAL", "5ms")
	t.Chdir(dir)
}

func newServer(t *testing.T, files ...api.FileRecord) *apitest.Server {
	t.Helper()
	isolate(t)
	srv := apitest.New()
	t.Cleanup(srv.Close)
	srv.SetFiles(files...)
	return srv
}

func run(t *testing.T, srv *apitest.Server, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetArgs(append([]string{"--url", srv.URL, "--log-level", "off"}, args...))
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.ExecuteContext(context.Background())
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func firstColumn(out string) []string {
	var ids []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n")[1:] {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			break
		}
		ids = append(ids, fields[0])
	}
	return ids
}

func TestFilesCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"default order", nil, []string{"1", "3", "4", "2"}},
		{"smallest first", []string{"--sort", "smallest"}, []string{"2", "4", "3", "1"}},
		{"category", []string{"--category", "Media"}, []string{"1", "4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, sampleFiles()...)
			res := run(t, srv, "", append([]string{"files"}, tt.args...)...)
			if res.err != nil {
				t.Fatalf("files error: %v", res.err)
			}
			if !strings.HasPrefix(res.stdout, "ID") {
				t.Fatalf("missing header:\n%s", res.stdout)
			}
			if diff := cmp.Diff(tt.want, firstColumn(res.stdout)); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilesCommandJSONAndEmpty(t *testing.T) {
	srv := newServer(t, sampleFiles()...)
	res := run(t, srv, "", "files", "--json", "--category", "Others")
	if res.err != nil {
		t.Fatalf("files error: %v", res.err)
	}
	var got []api.FileRecord
	if err := json.Unmarshal([]byte(res.stdout), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", res.stdout, err)
	}
	if diff := cmp.Diff(sampleFiles()[1:2], got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	res = run(t, srv, "", "files", "--category", "Images")
	if strings.TrimSpace(res.stdout) != "No large files found." {
		t.Errorf("stdout = %q", res.stdout)
	}
}

func TestDeleteCommandPrompts(t *testing.T) {
	srv := newServer(t, sampleFiles()...)

	res := run(t, srv, "n\n", "delete", "1")
	if res.err != nil {
		t.Fatalf("declined delete returned %v", res.err)
	}
	if !strings.Contains(res.stderr, results.WarnForceDelete) || !strings.Contains(res.stderr, "Deletion cancelled") {
		t.Errorf("stderr = %q", res.stderr)
	}
	if srv.Calls(apitest.RouteDelete) != 0 {
		t.Fatalf("declined delete reached the server")
	}

	res = run(t, srv, "y\n", "delete", "2")
	if res.err != nil {
		t.Fatalf("delete error: %v", res.err)
	}
	if !strings.Contains(res.stderr, results.WarnDelete) {
		t.Errorf("safe file prompt missing: %q", res.stderr)
	}
	if strings.TrimSpace(res.stdout) != "File deleted successfully!" {
		t.Errorf("stdout = %q", res.stdout)
	}
	if len(srv.Files()) != 3 {
		t.Errorf("server still has %d files", len(srv.Files()))
	}
}

func TestDeleteCommandFailures(t *testing.T) {
	srv := newServer(t, sampleFiles()...)

	res := run(t, srv, "", "delete", "404", "--yes")
	if res.err == nil || res.err.Error() != "Failed to delete file." {
		t.Errorf("err = %v", res.err)
	}

	res = run(t, srv, "", "delete", "1")
	if res.err != nil || srv.Calls(apitest.RouteDelete) != 1 {
		t.Errorf("closed stdin must decline: err=%v calls=%d", res.err, srv.Calls(apitest.RouteDelete))
	}
}

func TestDeleteSafeCommand(t *testing.T) {
	srv := newServer(t, sampleFiles()...)

	res := run(t, srv, "y\n", "delete-safe")
	if res.err != nil {
		t.Fatalf("delete-safe error: %v", res.err)
	}
	if !strings.Contains(res.stderr, results.WarnDeleteAllSafe) {
		t.Errorf("prompt missing: %q", res.stderr)
	}
	if strings.TrimSpace(res.stdout) != "Successfully deleted 2 safe files." {
		t.Errorf("stdout = %q", res.stdout)
	}

	srv.Fail(apitest.RouteDeleteAllSafe, 500)
	res = run(t, srv, "", "delete-safe", "--yes")
	if res.err == nil || res.err.Error() != "Failed to delete all safe files." {
		t.Errorf("err = %v", res.err)
	}
}

func TestOpenCommand(t *testing.T) {
	srv := newServer(t, sampleFiles()...)

	if res := run(t, srv, "", "open", "1"); res.err != nil {
		t.Errorf("open error: %v", res.err)
	}
	res := run(t, srv, "", "open", "99")
	if res.err == nil || res.err.Error() != "Failed to open file location. The file might no longer exist." {
		t.Errorf("err = %v", res.err)
	}
}

func TestScanCommand(t *testing.T) {
	srv := newServer(t, sampleFiles()...)
	srv.SetStatuses(
		api.WireStatus{Status: "scanning", FilesProcessed: 5, TotalFound: 2},
		api.WireStatus{Status: "completed"},
	)

	res := run(t, srv, "", "scan", "/tmp", "--min-size", "250", "--only-temp")
	if res.err != nil {
		t.Fatalf("scan error: %v", res.err)
	}
	if !strings.Contains(res.stderr, "Scan started. Searching for large files...") ||
		!strings.Contains(res.stderr, "Scanning... Files processed: 5 | Large files found: 2") {
		t.Errorf("stderr = %q", res.stderr)
	}
	if !strings.Contains(res.stdout, "movie.mkv") {
		t.Errorf("stdout = %q", res.stdout)
	}

	q := srv.Scans()[0]
	if q.Get("path") != "/tmp" || q.Get("min_size_mb") != "250" || q.Get("only_temp") != "true" {
		t.Errorf("scan query = %v", q)
	}
	if srv.Calls(apitest.RouteFiles) != 1 {
		t.Errorf("files fetched %d times", srv.Calls(apitest.RouteFiles))
	}
}

func TestScanCommandFailures(t *testing.T) {
	srv := newServer(t)
	srv.SetStatuses(api.WireStatus{Status: "error: disk unreadable"})

	res := run(t, srv, "", "scan", "/mnt/broken")
	if res.err == nil || res.err.Error() != "Scan Failed: error: disk unreadable" {
		t.Errorf("err = %v", res.err)
	}
	if srv.Calls(apitest.RouteFiles) != 0 {
		t.Errorf("/files called after failed scan")
	}

	res = run(t, srv, "", "scan", "")
	if res.err == nil || res.err.Error() != "Scan Failed: Error: Path does not exist" {
		t.Errorf("err = %v", res.err)
	}
}

func TestScanCommandSanitisesServerText(t *testing.T) {
	srv := newServer(t)
	srv.SetStatuses(api.WireStatus{Status: "error: \x1b[2J\x1b]52;c;cm0=\x07pwned"})

	res := run(t, srv, "", "scan", "/mnt/broken")
	if res.err == nil || res.err.Error() != "Scan Failed: error: ?[2J?]52;c;cm0=?pwned" {
		t.Errorf("err = %v", res.err)
	}

	res = run(t, srv, "", "status")
	if got := strings.TrimSpace(res.stdout); got != "Scan Failed: error: ?[2J?]52;c;cm0=?pwned" {
		t.Errorf("status printed %q", got)
	}
}

func TestStatusCommand(t *testing.T) {
	srv := newServer(t)

	tests := []struct {
		status api.WireStatus
		want   string
	}{
		{api.WireStatus{Status: "idle"}, "Status: idle"},
		{api.WireStatus{Status: "scanning", FilesProcessed: 1500, TotalFound: 3}, "Scanning... Files processed: 1,500 | Large files found: 3"},
		{api.WireStatus{Status: "error: boom"}, "Scan Failed: error: boom"},
	}
	for _, tt := range tests {
		srv.SetStatuses(tt.status)
		res := run(t, srv, "", "status")
		if res.err != nil {
			t.Fatalf("status error: %v", res.err)
		}
		if got := strings.TrimSpace(res.stdout); got != tt.want {
			t.Errorf("status %q printed %q, want %q", tt.status.Status, got, tt.want)
		}
	}
}

func TestMissingConfigFile(t *testing.T) {
	srv := newServer(t)
	res := run(t, srv, "", "--config", "/nonexistent/bigkill.yaml", "status")
	if res.err == nil {
		t.Errorf("expected error for missing config file")
	}
}
