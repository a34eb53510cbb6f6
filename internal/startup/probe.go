package startup

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/chatarr/chatarr/internal/services"
)

// ProbeServices checks that each enabled media service answers HTTP at its
// base URL, retrying transient network failures with backoff. Unreachable
// services are logged, not fatal: the aggregator degrades per-provider at
// search time.
func ProbeServices(ctx context.Context, store *services.Store, logger zerolog.Logger) {
	enabled, err := store.ListEnabled(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list services for startup probe")
		return
	}

	client := &http.Client{Timeout: 10 * time.Second}
	backoff := DefaultBackoff()

	for _, svc := range enabled {
		svc := svc
		err := WithRetry(ctx, svc.Name, backoff, func() error {
			return probeOnce(ctx, client, svc.BaseURL)
		}, logger)
		if err != nil {
			logger.Warn().
				Str("service", svc.Name).
				Str("url", svc.BaseURL).
				Msg("service unreachable at startup")
		} else {
			logger.Info().Str("service", svc.Name).Msg("service reachable")
		}
	}
}

func probeOnce(ctx context.Context, client *http.Client, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	// Any HTTP answer proves reachability; auth failures surface later.
	resp.Body.Close()
	return nil
}
