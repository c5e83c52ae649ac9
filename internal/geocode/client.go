package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/relieflink/relieflink/pkg/logger"
	"github.com/relieflink/relieflink/pkg/metrics"
)

const defaultBaseURL = "https://geocoding.geo.census.gov/geocoder/geographies/onelineaddress"

// Address holds the free-text components of a postal address. Empty parts
// are skipped when building the lookup query.
type Address struct {
	Street     string
	City       string
	State      string
	PostalCode string
}

// OneLine joins the non-empty address parts into a single query string.
func (a Address) OneLine() string {
	parts := make([]string, 0, 4)
	for _, part := range []string{a.Street, a.City, a.State, a.PostalCode} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, ", ")
}

// FIPS is a resolved state/county code pair.
type FIPS struct {
	StateCode  string `json:"state_code"`
	CountyCode string `json:"county_code"`
}

// Resolver converts an address into a FIPS pair. A nil result with a nil
// error means the address could not be matched; callers store a null pair.
type Resolver interface {
	Resolve(ctx context.Context, addr Address) (*FIPS, error)
}

// Client resolves addresses against the US Census geographies endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	log        *zap.Logger
}

// Option customises the Client.
type Option func(*Client)

// WithHTTPClient injects a custom HTTP client, primarily for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL overrides the geocoding endpoint.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if strings.TrimSpace(base) != "" {
			c.baseURL = base
		}
	}
}

// NewClient constructs a census geocoding client.
func NewClient(timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
		log:        logger.WithModule("geocode"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve looks up the FIPS pair for the supplied address. Resolution
// failure is not fatal: network and decode errors are logged and reported
// as an unmatched address so the location can be stored without a pair.
func (c *Client) Resolve(ctx context.Context, addr Address) (*FIPS, error) {
	oneLine := addr.OneLine()
	if oneLine == "" {
		// Nothing to look up; skip the network round-trip entirely.
		return nil, nil
	}

	params := url.Values{
		"address":   {oneLine},
		"benchmark": {"Public_AR_Current"},
		"vintage":   {"Current_Current"},
		"layers":    {"Census Blocks"},
		"format":    {"json"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("geocode: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("geocode request failed", zap.String("address", oneLine), zap.Error(err))
		metrics.GeocodeLookups.WithLabelValues("error").Inc()
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.log.Warn("geocode endpoint returned error",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		metrics.GeocodeLookups.WithLabelValues("error").Inc()
		return nil, nil
	}

	var payload geographiesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.log.Warn("geocode response decode failed", zap.Error(err))
		metrics.GeocodeLookups.WithLabelValues("error").Inc()
		return nil, nil
	}

	fips := payload.fips()
	if fips == nil {
		c.log.Debug("address did not match any census block", zap.String("address", oneLine))
		metrics.GeocodeLookups.WithLabelValues("unmatched").Inc()
		return nil, nil
	}

	metrics.GeocodeLookups.WithLabelValues("matched").Inc()
	return fips, nil
}

// Census geocoder response types.

type geographiesResponse struct {
	Result struct {
		AddressMatches []addressMatch `json:"addressMatches"`
	} `json:"result"`
}

type addressMatch struct {
	Geographies map[string][]censusBlock `json:"geographies"`
}

type censusBlock struct {
	State  string `json:"STATE"`
	County string `json:"COUNTY"`
}

func (r geographiesResponse) fips() *FIPS {
	if len(r.Result.AddressMatches) == 0 {
		return nil
	}

	match := r.Result.AddressMatches[0]

	// Current responses label the layer "2020 Census Blocks"; older
	// vintages used "Census Blocks".
	blocks := match.Geographies["2020 Census Blocks"]
	if len(blocks) == 0 {
		blocks = match.Geographies["Census Blocks"]
	}
	if len(blocks) == 0 {
		return nil
	}

	return &FIPS{StateCode: blocks[0].State, CountyCode: blocks[0].County}
}
