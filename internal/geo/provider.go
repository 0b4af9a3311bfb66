package geo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// Provider looks up the location of a public IP address.
type Provider interface {
	Lookup(ctx context.Context, ip string) (Location, error)
}

const maxProviderResponseBytes = 64 << 10

// IPInfoProvider queries an ipinfo.io compatible HTTP endpoint. Without an
// API key the request goes out unauthenticated and rides the provider's free
// rate limits.
type IPInfoProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewIPInfoProvider(baseURL, apiKey string, timeout time.Duration) *IPInfoProvider {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &IPInfoProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *IPInfoProvider) Lookup(ctx context.Context, ip string) (Location, error) {
	endpoint := fmt.Sprintf("%s/%s/json", p.baseURL, url.PathEscape(ip))
	if p.apiKey != "" {
		endpoint += "?token=" + url.QueryEscape(p.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Location{}, fmt.Errorf("geo: build provider request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("geo: provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("geo: provider returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProviderResponseBytes))
	if err != nil {
		return Location{}, fmt.Errorf("geo: read provider response: %w", err)
	}

	var payload struct {
		Country string `json:"country"`
		City    string `json:"city"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Location{}, fmt.Errorf("geo: decode provider response: %w", err)
	}

	loc := Location{
		Country: CountryName(payload.Country),
		City:    payload.City,
	}
	if loc.Country == "" {
		loc.Country = "Unknown"
	}
	if loc.City == "" {
		loc.City = "Unknown"
	}
	return loc, nil
}
