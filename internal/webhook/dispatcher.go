// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/olegiv/folio-go/internal/util"
)

var (
	// ErrNotRunning is returned by Dispatch before Start or after Stop.
	ErrNotRunning = errors.New("webhook dispatcher not running")
	// ErrQueueFull is returned when the delivery queue is full.
	ErrQueueFull = errors.New("webhook delivery queue full")
)

// Config holds dispatcher configuration.
type Config struct {
	URL     string
	Secret  string
	Headers map[string]string

	Workers        int // Number of concurrent delivery workers
	QueueSize      int
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// AllowPrivate permits endpoints on private networks, e.g. a rebuild
	// service next to the server.
	AllowPrivate bool

	// Lookup replaces DNS resolution of the endpoint host when set.
	Lookup util.LookupFunc
}

// DefaultConfig returns default dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		Workers:        2,
		QueueSize:      100,
		MaxAttempts:    5,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     time.Minute,
	}
}

// Dispatcher delivers events to the configured endpoint.
type Dispatcher struct {
	cfg     Config
	client  *http.Client
	logger  *slog.Logger
	queue   chan *queuedDelivery
	wg      sync.WaitGroup
	done    chan struct{}
	mu      sync.RWMutex
	running bool
}

// queuedDelivery is one event waiting for delivery.
type queuedDelivery struct {
	EventID string
	Event   string
	Payload []byte
}

// NewDispatcher creates a dispatcher for cfg.URL. Zero config fields take
// the defaults. The URL must be http or https; unless AllowPrivate is set
// it must also resolve to a public address, and connections are checked
// again when dialing.
func NewDispatcher(cfg Config, logger *slog.Logger) (*Dispatcher, error) {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if logger == nil {
		logger = slog.Default()
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
	}
	guard := util.EndpointGuard{AllowPrivate: cfg.AllowPrivate, Lookup: cfg.Lookup}
	if _, err := guard.Check(context.Background(), cfg.URL); err != nil {
		return nil, fmt.Errorf("webhook url: %w", err)
	}
	transport.DialContext = guard.DialContext(&net.Dialer{Timeout: 10 * time.Second})

	return &Dispatcher{
		cfg:    cfg,
		client: &http.Client{Timeout: RequestTimeout, Transport: transport},
		logger: logger,
		queue:  make(chan *queuedDelivery, cfg.QueueSize),
		done:   make(chan struct{}),
	}, nil
}

// Start starts the dispatcher workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	d.logger.Info("starting webhook dispatcher", "workers", d.cfg.Workers)
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Stop stops the dispatcher and waits for workers to finish. Deliveries
// still waiting for a retry are dropped.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	close(d.done)
	d.wg.Wait()
	d.logger.Info("webhook dispatcher stopped")
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	for {
		select {
		case <-d.done:
			return
		case <-ctx.Done():
			return
		case delivery := <-d.queue:
			d.logger.Debug("webhook worker processing delivery", "worker_id", id, "event", delivery.Event)
			d.processDelivery(ctx, delivery)
		}
	}
}

// Dispatch queues event for delivery.
func (d *Dispatcher) Dispatch(_ context.Context, event *Event) error {
	d.mu.RLock()
	running := d.running
	d.mu.RUnlock()
	if !running {
		return ErrNotRunning
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding webhook event: %w", err)
	}

	select {
	case d.queue <- &queuedDelivery{EventID: event.ID, Event: event.Type, Payload: payload}:
		d.logger.Debug("webhook delivery queued", "event", event.Type, "event_id", event.ID)
		return nil
	default:
		d.logger.Warn("webhook delivery queue full, event dropped", "event", event.Type)
		return ErrQueueFull
	}
}

// DispatchEvent is a convenience method to dispatch an event with the given type and data.
func (d *Dispatcher) DispatchEvent(ctx context.Context, eventType string, data any) error {
	return d.Dispatch(ctx, NewEvent(eventType, data))
}

// GenerateSignature generates an HMAC-SHA256 signature for the payload.
func GenerateSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature verifies an HMAC-SHA256 signature.
func VerifySignature(payload []byte, signature, secret string) bool {
	expectedSig := GenerateSignature(payload, secret)
	return hmac.Equal([]byte(signature), []byte(expectedSig))
}
