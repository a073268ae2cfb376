// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/olegiv/folio-go/internal/model"
)

// DebounceConfig holds debouncer configuration.
type DebounceConfig struct {
	// Interval is the debounce window duration.
	// Changes within this window are coalesced into a single event.
	Interval time.Duration
	// MaxWait is the maximum time to wait before dispatching.
	// Even if changes keep coming, dispatch after this time.
	MaxWait time.Duration
}

// DefaultDebounceConfig returns default debounce configuration.
func DefaultDebounceConfig() DebounceConfig {
	return DebounceConfig{
		Interval: 2 * time.Second,
		MaxWait:  10 * time.Second,
	}
}

// EventSink receives coalesced events.
type EventSink interface {
	Dispatch(ctx context.Context, event *Event) error
}

// Debouncer coalesces content changes into one content.changed event. An
// admin editing several rows in a row triggers a single rebuild.
type Debouncer struct {
	sink   EventSink
	config DebounceConfig

	mu          sync.Mutex
	collections map[model.Collection]struct{}
	timer       *time.Timer
	firstSeen   time.Time
	stopped     bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	onErr  func(error)
}

// NewDebouncer creates a debouncer feeding sink. onErr, if set, receives
// dispatch failures.
func NewDebouncer(sink EventSink, config DebounceConfig, onErr func(error)) *Debouncer {
	def := DefaultDebounceConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.MaxWait < config.Interval {
		config.MaxWait = config.Interval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Debouncer{
		sink:        sink,
		config:      config,
		collections: make(map[model.Collection]struct{}),
		ctx:         ctx,
		cancel:      cancel,
		onErr:       onErr,
	}
}

// ContentChanged records a change of collection c.
func (d *Debouncer) ContentChanged(c model.Collection) {
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.collections[c] = struct{}{}
	if d.timer == nil {
		d.firstSeen = now
		d.timer = time.AfterFunc(d.config.Interval, func() {
			d.mu.Lock()
			d.dispatchLocked()
			d.mu.Unlock()
		})
		return
	}

	if now.Sub(d.firstSeen) >= d.config.MaxWait {
		d.dispatchLocked()
		return
	}
	d.timer.Reset(d.config.Interval)
}

// dispatchLocked sends the pending event. Must be called with lock held.
func (d *Debouncer) dispatchLocked() {
	if len(d.collections) == 0 {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}

	changed := make([]model.Collection, 0, len(d.collections))
	for c := range d.collections {
		changed = append(changed, c)
	}
	slices.Sort(changed)
	clear(d.collections)

	event := NewEvent(EventContentChanged, ContentChangedData{Collections: changed})
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.sink.Dispatch(d.ctx, event); err != nil && d.onErr != nil {
			d.onErr(err)
		}
	}()
}

// Flush immediately dispatches pending changes.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dispatchLocked()
}

// Stop flushes pending changes and waits for their dispatch.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.dispatchLocked()
	d.stopped = true
	d.mu.Unlock()

	d.wg.Wait()
	d.cancel()
}

// Pending reports whether changes are waiting to be dispatched.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.collections) > 0
}
