// Package results caches the file list of the last scan and projects it for
// display. Every mutation goes to the server first; the cache is only ever
// replaced by a fresh fetch.
package results

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/entro314-labs/bigkill/internal/api"
	"github.com/entro314-labs/bigkill/internal/failure"
)

var (
	// ErrDeclined is returned when the user does not confirm a deletion.
	ErrDeclined = errors.New("results: deletion not confirmed")
	// ErrBusy is returned when a bulk delete is already running.
	ErrBusy = errors.New("results: bulk delete in progress")
)

type Backend interface {
	Files(ctx context.Context) ([]api.FileRecord, error)
	Delete(ctx context.Context, id api.FileID) error
	DeleteAllSafe(ctx context.Context) (string, error)
	Open(ctx context.Context, id api.FileID) error
}

// Confirmer asks the user to approve prompt.
type Confirmer interface {
	Confirm(prompt string) bool
}

type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Confirmed is for callers that already showed the prompt and got a yes.
var Confirmed Confirmer = ConfirmFunc(func(string) bool { return true })

type View struct {
	backend Backend
	log     zerolog.Logger

	mu       sync.RWMutex
	all      []api.FileRecord
	category string
	sortKey  SortKey
	busy     bool
}

func NewView(backend Backend, log zerolog.Logger) *View {
	return &View{
		backend:  backend,
		log:      log,
		all:      []api.FileRecord{},
		category: AllCategories,
		sortKey:  SortLargest,
	}
}

// FetchAll replaces the cache with the server's current list. On failure the
// cache is left as it was and the error is logged.
func (v *View) FetchAll(ctx context.Context) error {
	files, err := v.backend.Files(ctx)
	if err != nil {
		ferr := failure.New(failure.Fetch, "Failed to fetch files", err)
		v.log.Error().Err(err).Msg("fetch files failed, keeping previous list")
		return ferr
	}
	v.mu.Lock()
	v.all = files
	v.mu.Unlock()
	v.log.Debug().Int("files", len(files)).Msg("file list replaced")
	return nil
}

// Files returns the cached list. The slice is never modified after it is
// stored, so callers may read it freely but must not write to it.
func (v *View) Files() []api.FileRecord {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.all
}

func (v *View) SetFilter(category string) {
	if category == "" {
		category = AllCategories
	}
	v.mu.Lock()
	v.category = category
	v.mu.Unlock()
}

func (v *View) Filter() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.category
}

func (v *View) SetSort(key SortKey) {
	if key != SortSmallest {
		key = SortLargest
	}
	v.mu.Lock()
	v.sortKey = key
	v.mu.Unlock()
}

func (v *View) Sort() SortKey {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.sortKey
}

// Render projects the cache with the current filter and sort.
func (v *View) Render() Projection {
	v.mu.RLock()
	files, category, key := v.all, v.category, v.sortKey
	v.mu.RUnlock()
	return Project(files, category, key)
}

// Categories lists filter choices for the cached files.
func (v *View) Categories() []string {
	return Categories(v.Files())
}

func (v *View) Lookup(id api.FileID) (api.FileRecord, bool) {
	for _, f := range v.Files() {
		if f.ID == id {
			return f, true
		}
	}
	return api.FileRecord{}, false
}

// DeletePrompt is the confirmation text for deleting id. Unknown ids get the
// forced-deletion warning.
func (v *View) DeletePrompt(id api.FileID) string {
	f, ok := v.Lookup(id)
	if !ok {
		return WarnForceDelete
	}
	return DeleteWarning(f)
}

// DeleteOne deletes id after confirmation and refreshes the cache. The
// returned string is the notice to show on success.
func (v *View) DeleteOne(ctx context.Context, id api.FileID, confirm Confirmer) (string, error) {
	if !confirm.Confirm(v.DeletePrompt(id)) {
		return "", ErrDeclined
	}
	log := v.log.With().Str("id", id.String()).Logger()
	if err := v.backend.Delete(ctx, id); err != nil {
		log.Error().Err(err).Msg("delete failed")
		return "", failure.New(failure.Mutation, NoticeDeleteFailed, err)
	}
	log.Info().Msg("file deleted")
	_ = v.FetchAll(ctx)
	return NoticeDeleted, nil
}

// DeleteAllSafe removes every safe file after a single confirmation. While it
// runs BulkBusy reports true and a second call returns ErrBusy.
func (v *View) DeleteAllSafe(ctx context.Context, confirm Confirmer) (string, error) {
	if !confirm.Confirm(WarnDeleteAllSafe) {
		return "", ErrDeclined
	}

	v.mu.Lock()
	if v.busy {
		v.mu.Unlock()
		return "", ErrBusy
	}
	v.busy = true
	v.mu.Unlock()
	defer func() {
		v.mu.Lock()
		v.busy = false
		v.mu.Unlock()
	}()

	msg, err := v.backend.DeleteAllSafe(ctx)
	if err != nil {
		v.log.Error().Err(err).Msg("bulk delete failed")
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			return "", failure.New(failure.Mutation, NoticeBulkFailed, err)
		}
		return "", failure.New(failure.Mutation, NoticeBulkError, err)
	}
	v.log.Info().Str("summary", msg).Msg("bulk delete done")
	_ = v.FetchAll(ctx)
	return msg, nil
}

func (v *View) BulkBusy() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.busy
}

// OpenLocation asks the server to reveal id. The cache is not touched.
func (v *View) OpenLocation(ctx context.Context, id api.FileID) error {
	if err := v.backend.Open(ctx, id); err != nil {
		v.log.Warn().Err(err).Str("id", id.String()).Msg("open location failed")
		return failure.New(failure.Mutation, NoticeOpenFailed, err)
	}
	v.log.Debug().Str("id", id.String()).Msg("opened file location")
	return nil
}
