package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"registrar/internal/entity"
	"registrar/internal/platform/config"
	"registrar/internal/registry/models"
)

// CEIDGClient fetches sole-proprietorship records from the CEIDG v2 API,
// which requires a bearer token issued by the ministry.
type CEIDGClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
}

func NewCEIDGClient(cfg config.Registry) *CEIDGClient {
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
	return &CEIDGClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(perSec), 1),
		maxRetries: maxRetries,
	}
}

func (c *CEIDGClient) Source() models.Source {
	return models.SourceCEIDG
}

// Fetch looks up a firm by "NIP:<nip>" or "REGON:<regon>".
func (c *CEIDGClient) Fetch(ctx context.Context, lookupKey string) (models.RawPayload, error) {
	query := url.Values{}
	switch {
	case strings.HasPrefix(lookupKey, "NIP:"):
		nip, err := entity.NormalizeIdentifier(entity.IdentifierNIP, strings.TrimPrefix(lookupKey, "NIP:"))
		if err != nil {
			return models.RawPayload{}, NewClientError(CategoryBadData, models.SourceCEIDG,
				fmt.Sprintf("invalid NIP in lookup key %q", lookupKey), err)
		}
		query.Set("nip", nip)
	case strings.HasPrefix(lookupKey, "REGON:"):
		regon, err := entity.NormalizeIdentifier(entity.IdentifierREGON, strings.TrimPrefix(lookupKey, "REGON:"))
		if err != nil {
			return models.RawPayload{}, NewClientError(CategoryBadData, models.SourceCEIDG,
				fmt.Sprintf("invalid REGON in lookup key %q", lookupKey), err)
		}
		query.Set("regon", regon)
	default:
		return models.RawPayload{}, NewClientError(CategoryBadData, models.SourceCEIDG,
			fmt.Sprintf("lookup key %q must start with NIP: or REGON:", lookupKey), nil)
	}

	endpoint := c.baseURL + "/firmy?" + query.Encode()
	return doWithRetry(ctx, c.limiter, c.maxRetries, c.backoff, func() (models.RawPayload, error) {
		return c.get(ctx, endpoint)
	})
}

func (c *CEIDGClient) get(ctx context.Context, endpoint string) (models.RawPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.RawPayload{}, NewClientError(CategoryInternal, models.SourceCEIDG, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.RawPayload{}, NewClientError(categorizeTransport(err), models.SourceCEIDG, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return models.RawPayload{}, NewClientError(CategoryNotFound, models.SourceCEIDG, "no firm matches the lookup key", nil)
	}
	if resp.StatusCode != http.StatusOK {
		return models.RawPayload{}, NewClientError(categorizeStatus(resp.StatusCode), models.SourceCEIDG,
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	body, err := readBody(resp.Body)
	if err != nil {
		return models.RawPayload{}, NewClientError(CategoryBadData, models.SourceCEIDG, "read response body", err)
	}
	return models.RawPayload{
		Bytes:           body,
		Format:          models.FormatJSON,
		SourceTimestamp: time.Now().UTC(),
	}, nil
}
