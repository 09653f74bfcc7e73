package clients

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"registrar/internal/entity"
	"registrar/internal/platform/config"
	"registrar/internal/registry/models"
)

// KRSClient fetches full current excerpts from the open KRS API. No
// credentials are needed; the API is public but throttled.
type KRSClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
}

func NewKRSClient(cfg config.Registry) *KRSClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	perSec := cfg.RatePerSec
	if perSec == 0 {
		perSec = defaultRatePerSec
	}
	return &KRSClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(perSec), 1),
		maxRetries: maxRetries,
	}
}

func (c *KRSClient) Source() models.Source {
	return models.SourceKRS
}

// Fetch retrieves the current excerpt (odpis aktualny) for a KRS number from
// the entrepreneurs register.
func (c *KRSClient) Fetch(ctx context.Context, lookupKey string) (models.RawPayload, error) {
	key := strings.TrimPrefix(lookupKey, "KRS:")
	krs, err := entity.NormalizeIdentifier(entity.IdentifierKRS, key)
	if err != nil {
		return models.RawPayload{}, NewClientError(CategoryBadData, models.SourceKRS,
			fmt.Sprintf("invalid KRS number %q", lookupKey), err)
	}

	url := fmt.Sprintf("%s/OdpisAktualny/%s?rejestr=P&format=json", c.baseURL, krs)
	return doWithRetry(ctx, c.limiter, c.maxRetries, c.backoff, func() (models.RawPayload, error) {
		return c.get(ctx, url)
	})
}

func (c *KRSClient) get(ctx context.Context, url string) (models.RawPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.RawPayload{}, NewClientError(CategoryInternal, models.SourceKRS, "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.RawPayload{}, NewClientError(categorizeTransport(err), models.SourceKRS, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.RawPayload{}, NewClientError(categorizeStatus(resp.StatusCode), models.SourceKRS,
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	body, err := readBody(resp.Body)
	if err != nil {
		return models.RawPayload{}, NewClientError(CategoryBadData, models.SourceKRS, "read response body", err)
	}
	return models.RawPayload{
		Bytes:           body,
		Format:          models.FormatJSON,
		SourceTimestamp: time.Now().UTC(),
	}, nil
}
