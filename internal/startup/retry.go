package startup

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Backoff is the retry schedule for reaching a media service.
type Backoff struct {
	Initial  time.Duration
	Max      time.Duration
	Attempts int
	Factor   float64
}

// DefaultBackoff suits the startup probe: Radarr, Sonarr, and Overseerr
// commonly share a compose stack with chatarr and may lag it by a few
// seconds, so retries are short and give up quickly rather than hold
// the process hostage to a service that is truly down.
func DefaultBackoff() Backoff {
	return Backoff{
		Initial:  2 * time.Second,
		Max:      30 * time.Second,
		Attempts: 3,
		Factor:   2.0,
	}
}

// Retryable reports whether err looks like the service is not up yet
// rather than misconfigured. DNS and timeout errors qualify, as do the
// connection errors seen while a container is still starting.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	var dnsErr *net.DNSError
	if errors.As(err, &netErr) || errors.As(err, &dnsErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	transient := []string{
		"connection refused",
		"connection reset",
		"no such host",
		"network is unreachable",
		"no route to host",
		"i/o timeout",
	}
	for _, hint := range transient {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

// WithRetry runs fn until it succeeds, the error stops looking
// transient, or the schedule is exhausted. Non-transient errors fail
// immediately.
func WithRetry(ctx context.Context, target string, b Backoff, fn func() error, logger zerolog.Logger) error {
	delay := b.Initial
	var lastErr error

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info().Str("target", target).Int("attempt", attempt).Msg("reachable after retry")
			}
			return nil
		}
		lastErr = err

		if !Retryable(err) {
			logger.Error().Err(err).Str("target", target).Msg("error is not transient, giving up")
			return err
		}
		if attempt >= b.Attempts {
			break
		}

		logger.Warn().
			Err(err).
			Str("target", target).
			Int("attempt", attempt).
			Int("maxAttempts", b.Attempts).
			Dur("retryIn", delay).
			Msg("not reachable yet, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * b.Factor)
		if delay > b.Max {
			delay = b.Max
		}
	}

	logger.Error().Err(lastErr).Str("target", target).Int("attempts", b.Attempts).
		Msg("still unreachable, giving up")
	return lastErr
}
