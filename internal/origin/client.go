// Package origin holds the thin per-provider API adapters. Every fetch
// returns either a normalized record or a classified failure from the closed
// domain taxonomy; callers never see raw transport errors.
package origin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/playerstats-api/internal/config"
	"github.com/playerstats-api/internal/domain"
)

// newClient builds a resty client for one provider endpoint.
func newClient(cfg *config.ProviderConfig, timeout config.ProvidersConfig) *resty.Client {
	return resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout.Timeout).
		SetHeader("Accept", "application/json")
}

// classify maps a transport outcome onto the domain failure taxonomy.
// Returns nil when the response is usable.
func classify(resp *resty.Response, err error) error {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
		}
		return fmt.Errorf("%w: %v", domain.ErrUpstreamError, err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusNotFound, code == http.StatusNoContent:
		return domain.ErrNotFound
	case code == http.StatusForbidden:
		return domain.ErrForbidden
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: rate limited", domain.ErrUpstreamError)
	case code >= 500:
		return fmt.Errorf("%w: status %d", domain.ErrUpstreamError, code)
	case code >= 400:
		return fmt.Errorf("%w: status %d", domain.ErrUpstreamError, code)
	}
	return nil
}
