package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/relieflink/relieflink/internal/services"
)

const (
	defaultFEMABaseURL = "https://www.fema.gov/api/open/v2/DisasterDeclarationsSummaries"

	// declarationWindow bounds how far back each fetch reaches. Older
	// declarations are assumed to already be in the registry.
	declarationWindow = 90 * 24 * time.Hour
)

// Declaration is one OpenFEMA disaster declaration summary row.
type Declaration struct {
	FemaDeclarationString   string     `json:"femaDeclarationString"`
	DisasterNumber          int        `json:"disasterNumber"`
	FIPSStateCode           string     `json:"fipsStateCode"`
	FIPSCountyCode          string     `json:"fipsCountyCode"`
	DeclarationDate         time.Time  `json:"declarationDate"`
	IncidentBeginDate       *time.Time `json:"incidentBeginDate"`
	IncidentEndDate         *time.Time `json:"incidentEndDate"`
	DeclarationType         string     `json:"declarationType"`
	DesignatedArea          string     `json:"designatedArea"`
	DesignatedIncidentTypes string     `json:"designatedIncidentTypes"`
	LastRefresh             time.Time  `json:"lastRefresh"`
}

// Input maps the upstream row onto a registry upsert.
func (d Declaration) Input() services.DisasterInput {
	externalID := strings.TrimSpace(d.FemaDeclarationString)
	if externalID == "" {
		externalID = fmt.Sprintf("%d-%s-%s", d.DisasterNumber, d.FIPSStateCode, d.FIPSCountyCode)
	}

	var incidentTypes []string
	for _, code := range strings.Split(d.DesignatedIncidentTypes, ",") {
		if code = strings.TrimSpace(code); code != "" {
			incidentTypes = append(incidentTypes, code)
		}
	}

	return services.DisasterInput{
		ExternalID:        externalID,
		DisasterNumber:    d.DisasterNumber,
		FIPSStateCode:     d.FIPSStateCode,
		FIPSCountyCode:    d.FIPSCountyCode,
		DeclarationDate:   d.DeclarationDate,
		IncidentBeginDate: d.IncidentBeginDate,
		IncidentEndDate:   d.IncidentEndDate,
		DeclarationType:   d.DeclarationType,
		DesignatedArea:    d.DesignatedArea,
		IncidentTypes:     incidentTypes,
	}
}

type femaResponse struct {
	Summaries []Declaration `json:"DisasterDeclarationsSummaries"`
}

// FEMAClientOption customises the FEMA client.
type FEMAClientOption func(*FEMAClient)

// WithFEMAHTTPClient injects the HTTP client used for upstream calls.
func WithFEMAHTTPClient(client *http.Client) FEMAClientOption {
	return func(c *FEMAClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithFEMABaseURL overrides the OpenFEMA endpoint, primarily for tests.
func WithFEMABaseURL(baseURL string) FEMAClientOption {
	return func(c *FEMAClient) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithFEMANow overrides the clock used to compute the declaration window.
func WithFEMANow(now func() time.Time) FEMAClientOption {
	return func(c *FEMAClient) {
		if now != nil {
			c.now = now
		}
	}
}

// FEMAClient fetches disaster declaration summaries from OpenFEMA.
type FEMAClient struct {
	httpClient *http.Client
	baseURL    string
	now        func() time.Time
}

// NewFEMAClient constructs a FEMAClient.
func NewFEMAClient(opts ...FEMAClientOption) *FEMAClient {
	client := &FEMAClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultFEMABaseURL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// FetchDeclarations returns declarations from the last 90 days. When since
// is non-nil only rows refreshed upstream after that instant are returned,
// which keeps steady-state polls cheap.
func (c *FEMAClient) FetchDeclarations(ctx context.Context, since *time.Time) ([]Declaration, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	windowStart := c.now().UTC().Add(-declarationWindow)
	filter := fmt.Sprintf("declarationDate ge '%s'", windowStart.Format(time.RFC3339))
	if since != nil {
		filter += fmt.Sprintf(" and lastRefresh gt '%s'", since.UTC().Format(time.RFC3339))
	}

	query := url.Values{}
	query.Set("$filter", filter)
	query.Set("$format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("fema client: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fema client: fetch declarations: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fema client: unexpected status %d", resp.StatusCode)
	}

	var payload femaResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("fema client: decode response: %w", err)
	}
	return payload.Summaries, nil
}
