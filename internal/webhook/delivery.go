// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/olegiv/folio-go/internal/model"
)

// Delivery constants
const (
	RequestTimeout = 30 * time.Second // HTTP request timeout
	MaxResponseLen = 10 * 1024        // Maximum response body kept for logs (10KB)
	UserAgent      = "folio/1.0"      // User-Agent header value
)

// DeliveryResult represents the result of a delivery attempt.
type DeliveryResult struct {
	Success      bool
	StatusCode   int
	ResponseBody string
	Error        error
	ShouldRetry  bool
}

// processDelivery delivers one event, retrying with exponential backoff.
func (d *Dispatcher) processDelivery(ctx context.Context, delivery *queuedDelivery) {
	for attempt := 1; ; attempt++ {
		result := d.attemptDelivery(ctx, delivery)
		if result.Success {
			d.logger.Info("webhook delivered",
				"category", model.EventCategorySystem,
				"event", delivery.Event,
				"event_id", delivery.EventID,
				"status_code", result.StatusCode,
				"attempt", attempt)
			return
		}

		if !result.ShouldRetry || attempt >= d.cfg.MaxAttempts {
			d.logger.Warn("webhook delivery failed",
				"category", model.EventCategorySystem,
				"event", delivery.Event,
				"event_id", delivery.EventID,
				"attempts", attempt,
				"status_code", result.StatusCode,
				"error", result.Error)
			return
		}

		backoff := calculateBackoff(attempt, d.cfg.InitialBackoff, d.cfg.MaxBackoff)
		d.logger.Debug("webhook delivery scheduled for retry",
			"event_id", delivery.EventID,
			"attempt", attempt,
			"backoff", backoff.String(),
			"error", result.Error)

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-d.done:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// attemptDelivery performs the actual HTTP POST request.
func (d *Dispatcher) attemptDelivery(ctx context.Context, delivery *queuedDelivery) DeliveryResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.URL, bytes.NewReader(delivery.Payload))
	if err != nil {
		return DeliveryResult{
			Error:       fmt.Errorf("failed to create request: %w", err),
			ShouldRetry: false, // Bad URL, don't retry
		}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	if d.cfg.Secret != "" {
		req.Header.Set("X-Webhook-Signature", GenerateSignature(delivery.Payload, d.cfg.Secret))
	}
	req.Header.Set("X-Webhook-Event", delivery.Event)
	req.Header.Set("X-Webhook-Delivery-ID", delivery.EventID)
	for key, value := range d.cfg.Headers {
		req.Header.Set(key, value)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return DeliveryResult{
			Error:       fmt.Errorf("request failed: %w", err),
			ShouldRetry: !errors.Is(err, context.Canceled), // Network error, retry
		}
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseLen))
	result := DeliveryResult{StatusCode: resp.StatusCode, ResponseBody: string(body)}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		result.Success = true
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// Client error - don't retry (except for 408 Request Timeout and 429 Too Many Requests)
		result.Error = fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		result.ShouldRetry = resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests
	default:
		result.Error = fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		result.ShouldRetry = true
	}
	return result
}

// calculateBackoff returns initial * 2^(attempt-1), capped at maxBackoff.
func calculateBackoff(attempt int, initial, maxBackoff time.Duration) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	backoff := time.Duration(float64(initial) * math.Pow(2, float64(attempt-1)))
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	return backoff
}
