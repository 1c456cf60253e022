// Package scan drives a server-side scan from start request to a terminal
// state by polling its status on a fixed interval.
package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/entro314-labs/bigkill/internal/api"
	"github.com/entro314-labs/bigkill/internal/failure"
	"github.com/entro314-labs/bigkill/internal/results"
)

type State int

const (
	Idle State = iota
	Scanning
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Scanning:
		return "scanning"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Terminal reports whether no more events follow for the scan.
func (s State) Terminal() bool { return s == Completed || s == Failed }

type Progress struct {
	FilesProcessed int
	TotalFound     int
}

// Event is a state change of one scan. Scan is the generation number handed
// out by Begin; consumers ignore events for any other scan.
type Event struct {
	Scan     int
	Path     string
	State    State
	Progress Progress
	Err      error
}

// ErrSuperseded is returned by Start when Begin was called again before the
// scan could start.
var ErrSuperseded = errors.New("scan: superseded by a newer scan")

// Service is the part of the API the controller talks to.
type Service interface {
	StartScan(ctx context.Context, req api.ScanRequest) (json.RawMessage, error)
	Status(ctx context.Context) (api.Status, error)
}

const eventBuffer = 32

type Controller struct {
	svc      Service
	interval time.Duration
	log      zerolog.Logger
	events   chan Event

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu         sync.Mutex
	gen        int
	pollCancel context.CancelFunc
	current    Event
}

// NewController returns an idle controller. Closing ctx (or calling Close)
// stops any active poller.
func NewController(ctx context.Context, svc Service, interval time.Duration, log zerolog.Logger) *Controller {
	if interval <= 0 {
		interval = time.Second
	}
	baseCtx, baseCancel := context.WithCancel(ctx)
	return &Controller{
		svc:        svc,
		interval:   interval,
		log:        log,
		events:     make(chan Event, eventBuffer),
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
	}
}

// Events delivers poll results: progress while scanning and exactly one
// terminal event per scan that was not superseded.
func (c *Controller) Events() <-chan Event { return c.events }

// Snapshot returns the last state the controller published.
func (c *Controller) Snapshot() Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Close stops the active poller. Events is left open.
func (c *Controller) Close() {
	c.mu.Lock()
	c.stopLocked()
	c.mu.Unlock()
	c.baseCancel()
}

// Begin stops any running poller and reserves the generation number of the
// next scan. Callers pass the number to Start; a later Begin supersedes it.
func (c *Controller) Begin() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.gen++
	c.current = Event{Scan: c.gen, State: Idle}
	return c.gen
}

// Start sends the start request for generation gen and, on success, begins
// polling. The returned event is Scanning or Failed. A generation that has
// been superseded is never started and yields ErrSuperseded.
func (c *Controller) Start(ctx context.Context, gen int, req api.ScanRequest) (Event, error) {
	req = req.Normalized()
	stale := Event{Scan: gen, Path: req.Path, State: Idle}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return stale, ErrSuperseded
	}
	c.current = stale
	c.mu.Unlock()

	log := c.log.With().Int("scan", gen).Str("path", req.Path).Logger()

	if _, err := c.svc.StartScan(ctx, req); err != nil {
		ferr := failure.New(failure.Start, err.Error(), err)
		log.Error().Err(err).Msg("scan start failed")
		ev := Event{Scan: gen, Path: req.Path, State: Failed, Err: ferr}
		c.mu.Lock()
		if c.gen == gen {
			c.current = ev
		}
		c.mu.Unlock()
		return ev, ferr
	}

	pollCtx, cancel := context.WithCancel(c.baseCtx)
	ev := Event{Scan: gen, Path: req.Path, State: Scanning}

	c.mu.Lock()
	if c.gen != gen {
		// Begin was called again while the request was in flight.
		c.mu.Unlock()
		cancel()
		log.Debug().Msg("scan superseded before polling")
		return stale, ErrSuperseded
	}
	c.pollCancel = cancel
	c.current = ev
	c.mu.Unlock()

	log.Info().Dur("interval", c.interval).Float64("min_size_mb", req.MinSizeMB).Bool("only_temp", req.OnlyTemp).Msg("polling scan status")
	go c.poll(pollCtx, gen, req.Path, log)
	return ev, nil
}

func (c *Controller) stopLocked() {
	if c.pollCancel != nil {
		c.pollCancel()
		c.pollCancel = nil
	}
}

func (c *Controller) poll(ctx context.Context, gen int, path string, log zerolog.Logger) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		st, err := c.svc.Status(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(failure.New(failure.PollTransient, "status poll failed", err)).Msg("retrying on next tick")
			continue
		}

		switch st.Phase {
		case api.PhaseScanning:
			progress := Progress{FilesProcessed: st.FilesProcessed, TotalFound: st.TotalFound}
			if !c.publish(gen, Event{Scan: gen, Path: path, State: Scanning, Progress: progress}) {
				return
			}
		case api.PhaseCompleted:
			log.Info().Msg("scan completed")
			c.publish(gen, Event{Scan: gen, Path: path, State: Completed, Progress: c.Snapshot().Progress})
			return
		case api.PhaseError:
			ferr := failure.New(failure.ScanReported, st.Message, nil)
			log.Error().Str("status", st.Message).Msg("scan reported failure")
			c.publish(gen, Event{Scan: gen, Path: path, State: Failed, Progress: c.Snapshot().Progress, Err: ferr})
			return
		default:
			log.Debug().Str("status", st.Raw).Msg("ignoring non-scan status")
		}
	}
}

// publish records ev and queues it for consumers, unless gen has been
// superseded. Terminal events also release the poller handle.
func (c *Controller) publish(gen int, ev Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	c.current = ev
	if ev.State.Terminal() {
		c.stopLocked()
	}

	select {
	case c.events <- ev:
		return true
	default:
	}
	if !ev.State.Terminal() {
		c.log.Debug().Int("scan", gen).Msg("event buffer full, dropping progress")
		return true
	}
	// Make room for the terminal event by discarding the oldest one.
	select {
	case <-c.events:
	default:
	}
	select {
	case c.events <- ev:
	default:
	}
	return true
}

// Wait blocks until the scan started last reaches a terminal state, calling
// onProgress for each intermediate event. It returns the terminal event and its
// error, if any.
func (c *Controller) Wait(ctx context.Context, onProgress func(Event)) (Event, error) {
	if c.Snapshot().Scan == 0 {
		return Event{}, errors.New("scan: no scan started")
	}
	for {
		var ev Event
		select {
		case ev = <-c.events:
		default:
			// A terminal state with nothing queued means the scan ended in Start.
			if snap := c.Snapshot(); snap.State.Terminal() {
				return snap, snap.Err
			}
			select {
			case <-ctx.Done():
				return c.Snapshot(), ctx.Err()
			case ev = <-c.events:
			}
		}
		if ev.Scan != c.Snapshot().Scan {
			continue
		}
		if ev.State.Terminal() {
			return ev, ev.Err
		}
		if onProgress != nil {
			onProgress(ev)
		}
	}
}

// FailureText is the inline message shown for a failed scan. The server's
// text is sanitised for display.
func FailureText(err error) string {
	return "Scan Failed: " + results.Sanitize(failure.Message(err))
}

// ProgressText is the line shown while a scan is running.
func ProgressText(p Progress) string {
	return fmt.Sprintf("Scanning... Files processed: %s | Large files found: %s",
		humanize.Comma(int64(p.FilesProcessed)), humanize.Comma(int64(p.TotalFound)))
}
