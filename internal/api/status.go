package api

import "strings"

// Phase is the decoded tag of a /status response.
type Phase int

const (
	PhaseUnknown Phase = iota
	PhaseIdle
	PhaseScanning
	PhaseCompleted
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseScanning:
		return "scanning"
	case PhaseCompleted:
		return "completed"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// Status is one poll of the server's scan state. Counters are only meaningful
// while scanning; Message holds the verbatim server text for PhaseError.
type Status struct {
	Phase          Phase
	FilesProcessed int
	TotalFound     int
	Message        string
	Raw            string
}

// WireStatus is the JSON body of GET /status.
type WireStatus struct {
	Status         string `json:"status"`
	FilesProcessed int    `json:"files_processed,omitempty"`
	TotalFound     int    `json:"total_found,omitempty"`
}

// DecodeStatus turns the wire form into the tagged Status. Any status string
// starting with "error" is an error report.
func DecodeStatus(w WireStatus) Status {
	st := Status{Raw: w.Status}
	switch {
	case w.Status == "scanning":
		st.Phase = PhaseScanning
		st.FilesProcessed = max(w.FilesProcessed, 0)
		st.TotalFound = max(w.TotalFound, 0)
	case w.Status == "completed":
		st.Phase = PhaseCompleted
	case strings.HasPrefix(w.Status, "error"):
		st.Phase = PhaseError
		st.Message = w.Status
	case w.Status == "idle":
		st.Phase = PhaseIdle
	default:
		st.Phase = PhaseUnknown
	}
	return st
}
