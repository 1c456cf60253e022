package api

import (
	"encoding/json"
	"math"
	"testing"
)

func TestFileIDUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    FileID
		wantErr bool
	}{
		{"integer", `17`, "17", false},
		{"string", `"abc-1"`, "abc-1", false},
		{"large integer", `9007199254740993`, "9007199254740993", false},
		{"null", `null`, "", true},
		{"object", `{}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id FileID
			err := json.Unmarshal([]byte(tt.input), &id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && id != tt.want {
				t.Errorf("Unmarshal(%s) = %q, want %q", tt.input, id, tt.want)
			}
		})
	}
}

func TestFileIDMarshal(t *testing.T) {
	tests := []struct {
		id   FileID
		want string
	}{
		{"12", `12`},
		{"007", `"007"`},
		{"a/b", `"a/b"`},
	}
	for _, tt := range tests {
		got, err := json.Marshal(tt.id)
		if err != nil {
			t.Fatalf("Marshal(%q): %v", tt.id, err)
		}
		if string(got) != tt.want {
			t.Errorf("Marshal(%q) = %s, want %s", tt.id, got, tt.want)
		}
	}
}

func TestFileRecordFromServerJSON(t *testing.T) {
	body := `[{"id": 3, "filepath": "C:\\Temp\\x.zip", "filename": "x.zip", "filesize_mb": 412.37,
		"filetype": ".zip", "last_modified": "2024-05-01 10:00:00", "category": "Archives", "is_safe_to_delete": true}]`

	var files []FileRecord
	if err := json.Unmarshal([]byte(body), &files); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := FileRecord{
		ID: "3", Filename: "x.zip", Filepath: `C:\Temp\x.zip`, FilesizeMB: 412.37,
		Category: "Archives", IsSafeToDelete: true, Filetype: ".zip", LastModified: "2024-05-01 10:00:00",
	}
	if len(files) != 1 || files[0] != want {
		t.Errorf("got %+v, want %+v", files, want)
	}
}

func TestScanRequestQuery(t *testing.T) {
	tests := []struct {
		name string
		req  ScanRequest
		want string
	}{
		{"defaults", ScanRequest{Path: "/tmp"}, "path=%2Ftmp&min_size_mb=100&only_temp=false"},
		{"fractional", ScanRequest{Path: "/a b", MinSizeMB: 0.5, OnlyTemp: true}, "path=%2Fa+b&min_size_mb=0.5&only_temp=true"},
		{"nan", ScanRequest{Path: "x", MinSizeMB: math.NaN()}, "path=x&min_size_mb=100&only_temp=false"},
		{"inf", ScanRequest{Path: "x", MinSizeMB: math.Inf(1)}, "path=x&min_size_mb=100&only_temp=false"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.req.Query(); got != tt.want {
				t.Errorf("Query() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeStatus(t *testing.T) {
	tests := []struct {
		in   WireStatus
		want Phase
	}{
		{WireStatus{Status: "scanning", FilesProcessed: 1}, PhaseScanning},
		{WireStatus{Status: "completed"}, PhaseCompleted},
		{WireStatus{Status: "error"}, PhaseError},
		{WireStatus{Status: "error: permission denied"}, PhaseError},
		{WireStatus{Status: "idle"}, PhaseIdle},
		{WireStatus{Status: "Scanning"}, PhaseUnknown},
		{WireStatus{}, PhaseUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.in.Status, func(t *testing.T) {
			got := DecodeStatus(tt.in)
			if got.Phase != tt.want {
				t.Errorf("DecodeStatus(%q).Phase = %v, want %v", tt.in.Status, got.Phase, tt.want)
			}
			if got.Phase == PhaseError && got.Message != tt.in.Status {
				t.Errorf("error message = %q, want verbatim %q", got.Message, tt.in.Status)
			}
		})
	}

	neg := DecodeStatus(WireStatus{Status: "scanning", FilesProcessed: -3, TotalFound: -1})
	if neg.FilesProcessed != 0 || neg.TotalFound != 0 {
		t.Errorf("negative counters not clamped: %+v", neg)
	}
}
