package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/domain"
)

// Fetcher is the uniform contract every external data source implements.
// Fetch must be safe to call concurrently with other fetchers, performs
// network or file I/O only (never store writes), and tags failures with
// the domain error taxonomy. Retry policy belongs to the caller; a fetcher
// may only apply source-enforced rate-limit backoff.
type Fetcher interface {
	Name() string
	Indicators() []domain.IndicatorID
	Fetch(ctx context.Context) ([]domain.Observation, error)
}

const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// wants reports whether a fetcher producing the given indicator should run.
// An empty request list means "everything you produce".
func wants(requested []domain.IndicatorID, id domain.IndicatorID) bool {
	if len(requested) == 0 {
		return true
	}
	for _, r := range requested {
		if r == id {
			return true
		}
	}
	return false
}

// classifyStatus maps an HTTP status to the provider error taxonomy.
// 418 is bot detection on the CNN endpoints and reads as an outage.
func classifyStatus(name string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err := fmt.Errorf("%s returned %d: %s", resp.Request.URL.Host, resp.StatusCode, string(body))
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.NewProviderError(name, domain.ProviderRateLimited, err)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.NewProviderError(name, domain.ProviderAuthRequired, err)
	default:
		return domain.NewProviderError(name, domain.ProviderUnavailable, err)
	}
}
