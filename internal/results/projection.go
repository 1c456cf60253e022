package results

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/entro314-labs/bigkill/internal/api"
)

// AllCategories disables the category filter.
const AllCategories = "All"

type SortKey string

const (
	SortLargest  SortKey = "largest"
	SortSmallest SortKey = "smallest"
)

func (k SortKey) String() string {
	if k == SortLargest {
		return "size ↓"
	}
	return "size ↑"
}

// Next toggles between the two size orders.
func (k SortKey) Next() SortKey {
	if k == SortLargest {
		return SortSmallest
	}
	return SortLargest
}

// User-facing texts. The confirmation prompts are a safety contract and must
// be shown verbatim.
const (
	BadgeSafe   = "Temp file (Safe)"
	BadgeUnsafe = "Not temp file (Review carefully)"

	LabelDelete      = "Delete"
	LabelForceDelete = "Force Delete"

	WarnDelete        = "Are you sure you want to delete this file? This action cannot be undone."
	WarnForceDelete   = "WARNING: This is not a temporary file. It might be an important personal or system file. Are you absolutely sure you want to FORCE DELETE it?"
	WarnDeleteAllSafe = "Are you sure you want to delete ALL safe files? This process cannot be undone!"

	LabelDeleteAllSafe = "Delete All Safe Files"
	LabelDeleting      = "Deleting..."

	PlaceholderEmpty    = "No large files found."
	PlaceholderScanning = "Scanning... Please wait."
	PlaceholderStarted  = "Scan started. Searching for large files..."

	NoticeDeleted      = "File deleted successfully!"
	NoticeDeleteFailed = "Failed to delete file."
	NoticeBulkFailed   = "Failed to delete all safe files."
	NoticeBulkError    = "An error occurred during bulk deletion."
	NoticeOpenFailed   = "Failed to open file location. The file might no longer exist."
)

// KnownCategories are the labels the scan service assigns.
var KnownCategories = []string{"Media", "Images", "Documents", "Archives", "Applications", "Others"}

// Item is one rendered row. Display strings are sanitized; Record keeps the
// server values untouched.
type Item struct {
	Record        api.FileRecord
	Name          string
	Path          string
	Category      string
	Size          string
	Badge         string
	DeleteLabel   string
	DeleteWarning string
}

type Projection struct {
	Items []Item
	// Placeholder is set iff Items is empty.
	Placeholder       string
	ShowDeleteAllSafe bool
}

// Project filters files by category and sorts them by size. files is not
// modified.
func Project(files []api.FileRecord, category string, key SortKey) Projection {
	filtered := make([]api.FileRecord, 0, len(files))
	for _, f := range files {
		if category == AllCategories || category == "" || f.Category == category {
			filtered = append(filtered, f)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if key == SortLargest {
			return filtered[i].FilesizeMB > filtered[j].FilesizeMB
		}
		return filtered[i].FilesizeMB < filtered[j].FilesizeMB
	})

	if len(filtered) == 0 {
		return Projection{Placeholder: PlaceholderEmpty}
	}

	p := Projection{Items: make([]Item, 0, len(filtered))}
	for _, f := range filtered {
		if f.IsSafeToDelete {
			p.ShowDeleteAllSafe = true
		}
		p.Items = append(p.Items, newItem(f))
	}
	return p
}

func newItem(f api.FileRecord) Item {
	item := Item{
		Record:        f,
		Name:          Sanitize(f.Filename),
		Path:          Sanitize(f.Filepath),
		Category:      Sanitize(f.Category),
		Size:          FormatSize(f.FilesizeMB),
		Badge:         BadgeUnsafe,
		DeleteLabel:   LabelForceDelete,
		DeleteWarning: WarnForceDelete,
	}
	if f.IsSafeToDelete {
		item.Badge = BadgeSafe
		item.DeleteLabel = LabelDelete
		item.DeleteWarning = WarnDelete
	}
	return item
}

// DeleteWarning returns the confirmation text for deleting f.
func DeleteWarning(f api.FileRecord) string {
	if f.IsSafeToDelete {
		return WarnDelete
	}
	return WarnForceDelete
}

// BulkLabel is the label of the bulk delete control.
func BulkLabel(busy bool) string {
	if busy {
		return LabelDeleting
	}
	return LabelDeleteAllSafe
}

func FormatSize(mb float64) string {
	return strconv.FormatFloat(mb, 'f', -1, 64) + " MB"
}

// Sanitize replaces control characters so server-supplied names cannot
// smuggle terminal escape sequences into the UI.
func Sanitize(s string) string {
	if strings.IndexFunc(s, unicode.IsControl) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return '?'
		}
		return r
	}, s)
}

// Categories lists the filter choices: All, the known categories, then any
// other category present in files in name order.
func Categories(files []api.FileRecord) []string {
	known := map[string]struct{}{}
	for _, c := range KnownCategories {
		known[c] = struct{}{}
	}
	extra := map[string]struct{}{}
	for _, f := range files {
		if _, ok := known[f.Category]; ok || f.Category == "" || f.Category == AllCategories {
			continue
		}
		extra[f.Category] = struct{}{}
	}

	out := append([]string{AllCategories}, KnownCategories...)
	return append(out, sortedNames(extra)...)
}

// NextCategory returns the category after current in list, wrapping around.
func NextCategory(list []string, current string) string {
	for i, c := range list {
		if c == current {
			return list[(i+1)%len(list)]
		}
	}
	return AllCategories
}

func sortedNames(set map[string]struct{}) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
