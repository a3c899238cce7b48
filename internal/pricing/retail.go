package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/archgenie/cloud-architect/internal/httpx"
)

const (
	defaultRetailBaseURL = "https://prices.azure.com/api/retail/prices"
	retailAPIVersion     = "2023-01-01-preview"

	// maxPages caps NextPageLink traversal so a pathological filter cannot
	// walk the whole catalog.
	maxPages = 20
)

// Meter is one billable line item from the retail catalog.
type Meter struct {
	RetailPrice   float64 `json:"retailPrice"`
	UnitOfMeasure string  `json:"unitOfMeasure"`
	MeterName     string  `json:"meterName"`
	SKUName       string  `json:"skuName"`
	ServiceName   string  `json:"serviceName"`
	ARMRegionName string  `json:"armRegionName"`
	ProductName   string  `json:"productName"`
}

type retailPage struct {
	Items        []Meter `json:"Items"`
	NextPageLink string  `json:"NextPageLink"`
}

// RetailClient queries the Azure retail prices catalog.
type RetailClient struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
	breaker    *gobreaker.CircuitBreaker
}

// NewRetailClient creates a catalog client with the production endpoint.
func NewRetailClient() *RetailClient {
	settings := gobreaker.Settings{
		Name:        "azure-retail-prices",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	}

	return &RetailClient{
		baseURL: defaultRetailBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		tracer:  otel.Tracer("retail-prices-client"),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// SetBaseURL overrides the catalog endpoint for testing.
func (c *RetailClient) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// Fetch runs one $filter query against the catalog and follows pagination
// links until limit meters are collected, the pages run out, or the page cap
// is hit.
func (c *RetailClient) Fetch(ctx context.Context, filter string, limit int) ([]Meter, error) {
	ctx, span := c.tracer.Start(ctx, "retail_prices.fetch")
	defer span.End()

	span.SetAttributes(attribute.String("filter", filter))

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetchInternal(ctx, filter, limit)
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("retail prices fetch failed: %w", err)
	}

	meters := result.([]Meter)
	span.SetAttributes(attribute.Int("meters", len(meters)))
	return meters, nil
}

func (c *RetailClient) fetchInternal(ctx context.Context, filter string, limit int) ([]Meter, error) {
	query := url.Values{}
	query.Set("api-version", retailAPIVersion)
	query.Set("$filter", filter)
	next := c.baseURL + "?" + query.Encode()

	var out []Meter
	for page := 0; next != "" && page < maxPages; page++ {
		pageURL := next
		resp, err := httpx.Do(ctx, c.httpClient, 2, func() (*http.Request, error) {
			return http.NewRequest(http.MethodGet, pageURL, nil)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query catalog: %w", err)
		}

		if resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
		}

		var body retailPage
		err = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to decode catalog response: %w", err)
		}

		out = append(out, body.Items...)
		if len(out) >= limit {
			return out[:limit], nil
		}
		next = body.NextPageLink
	}
	return out, nil
}
