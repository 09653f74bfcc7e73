// Package clients fetches raw payloads from the public Polish registries.
// Clients return the untouched response body; interpretation belongs to the
// normalizer.
package clients

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	"registrar/internal/registry/models"
)

//go:generate mockgen -source=client.go -destination=mocks/mocks.go -package=mocks Client

// Client is the fetch port for one source registry.
type Client interface {
	Source() models.Source
	// Fetch retrieves the current record for the lookup key. The key format
	// is source-specific: a KRS number for KRS, "NIP:<nip>" or
	// "REGON:<regon>" for CEIDG.
	Fetch(ctx context.Context, lookupKey string) (models.RawPayload, error)
}

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	initialBackoff    = 500 * time.Millisecond
	maxResponseBytes  = 8 << 20
	defaultRatePerSec = 2.0
)

// doWithRetry runs fn up to maxRetries+1 times, waiting on the limiter before
// each attempt and backing off exponentially between retryable failures.
func doWithRetry(ctx context.Context, limiter *rate.Limiter, maxRetries int, backoff time.Duration, fn func() (models.RawPayload, error)) (models.RawPayload, error) {
	if backoff <= 0 {
		backoff = initialBackoff
	}
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return models.RawPayload{}, err
			}
		}
		payload, err := fn()
		if err == nil {
			return payload, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return models.RawPayload{}, err
		}
		if attempt == maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return models.RawPayload{}, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return models.RawPayload{}, lastErr
}

// categorizeStatus maps an HTTP status to the failure taxonomy. Only statuses
// outside 2xx reach it.
func categorizeStatus(status int) ErrorCategory {
	switch {
	case status == http.StatusNotFound:
		return CategoryNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return CategoryAuthentication
	case status == http.StatusTooManyRequests:
		return CategoryRateLimited
	case status >= 500:
		return CategoryOutage
	default:
		return CategoryBadData
	}
}

// categorizeTransport maps transport-level failures.
func categorizeTransport(err error) ErrorCategory {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return CategoryTimeout
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTimeout
	}
	return CategoryOutage
}

func readBody(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxResponseBytes))
}
