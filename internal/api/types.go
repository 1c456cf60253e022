package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
)

// DefaultMinSizeMB is used when a scan request carries no usable threshold.
const DefaultMinSizeMB = 100.0

// FileID identifies a scan result for the lifetime of a session. The server
// sends integers today; the client treats the value as opaque.
type FileID string

func (id *FileID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("file id: empty value")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("file id: %w", err)
		}
		*id = FileID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("file id: %w", err)
	}
	*id = FileID(n.String())
	return nil
}

func (id FileID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id FileID) String() string { return string(id) }

type FileRecord struct {
	ID             FileID  `json:"id"`
	Filename       string  `json:"filename"`
	Filepath       string  `json:"filepath"`
	FilesizeMB     float64 `json:"filesize_mb"`
	Category       string  `json:"category"`
	IsSafeToDelete bool    `json:"is_safe_to_delete"`
	Filetype       string  `json:"filetype,omitempty"`
	LastModified   string  `json:"last_modified,omitempty"`
}

type ScanRequest struct {
	Path      string
	MinSizeMB float64
	OnlyTemp  bool
}

// Normalized returns a copy with MinSizeMB defaulted when it is absent or invalid.
func (r ScanRequest) Normalized() ScanRequest {
	if r.MinSizeMB <= 0 || math.IsNaN(r.MinSizeMB) || math.IsInf(r.MinSizeMB, 0) {
		r.MinSizeMB = DefaultMinSizeMB
	}
	return r
}

// Query encodes the request in the parameter order the server documents.
func (r ScanRequest) Query() string {
	r = r.Normalized()
	return "path=" + url.QueryEscape(r.Path) +
		"&min_size_mb=" + strconv.FormatFloat(r.MinSizeMB, 'f', -1, 64) +
		"&only_temp=" + strconv.FormatBool(r.OnlyTemp)
}

type bulkDeleteResponse struct {
	Message string `json:"message"`
}
