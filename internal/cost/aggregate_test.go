package cost

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archgenie/cloud-architect/internal/components"
	"github.com/archgenie/cloud-architect/internal/config"
)

// fakeResolver prices by service name; services outside the map are absent.
type fakeResolver struct {
	prices map[string]float64
	notes  map[string][]string
	seen   []components.Record
}

func (f *fakeResolver) Price(ctx context.Context, rec components.Record) (float64, []string, bool) {
	f.seen = append(f.seen, rec)
	unit, ok := f.prices[rec.Service]
	return unit, f.notes[rec.Service], ok
}

func estimatorConfig() *config.Config {
	return &config.Config{HoursPerMonth: 730, DefaultRegion: "eastus"}
}

func TestEstimate(t *testing.T) {
	ctx := context.Background()

	t.Run("total is the sum of item monthlies", func(t *testing.T) {
		resolver := &fakeResolver{prices: map[string]float64{
			"app_service": 69.35,
			"azure_sql":   14.72,
		}}
		estimator := NewEstimator(resolver, estimatorConfig())

		summary := estimator.Estimate(ctx, []components.Record{
			{Cloud: "azure", Service: "app_service", SKU: "S1", Quantity: 1, Region: "eastus"},
			{Cloud: "azure", Service: "azure_sql", SKU: "S0", Quantity: 1, Region: "eastus"},
		})

		assert.Equal(t, "USD", summary.Currency)
		require.Len(t, summary.Items, 2)
		assert.Equal(t, 69.35, summary.Items[0].Monthly)
		assert.Equal(t, 14.72, summary.Items[1].Monthly)
		assert.Equal(t, 84.07, summary.TotalEstimate)
		assert.Empty(t, summary.Notes)
	})

	t.Run("quantity multiplies the unit price", func(t *testing.T) {
		resolver := &fakeResolver{prices: map[string]float64{"vm": 30.37}}
		estimator := NewEstimator(resolver, estimatorConfig())

		summary := estimator.Estimate(ctx, []components.Record{
			{Cloud: "azure", Service: "vm", SKU: "B2s", Quantity: 3, Region: "eastus"},
		})

		require.Len(t, summary.Items, 1)
		assert.Equal(t, 30.37, summary.Items[0].UnitMonthly)
		assert.Equal(t, 91.11, summary.Items[0].Monthly)
		assert.Equal(t, 91.11, summary.TotalEstimate)
	})

	t.Run("partial-month hours scale the price", func(t *testing.T) {
		resolver := &fakeResolver{prices: map[string]float64{"vm": 73.0}}
		estimator := NewEstimator(resolver, estimatorConfig())

		summary := estimator.Estimate(ctx, []components.Record{
			{Cloud: "azure", Service: "vm", SKU: "B2s", Quantity: 1, Region: "eastus", Hours: 365},
		})

		require.Len(t, summary.Items, 1)
		assert.Equal(t, 36.5, summary.Items[0].Monthly)
	})

	t.Run("unpriced component sets zero and explains", func(t *testing.T) {
		resolver := &fakeResolver{prices: map[string]float64{}}
		estimator := NewEstimator(resolver, estimatorConfig())

		summary := estimator.Estimate(ctx, []components.Record{
			{Cloud: "azure", Service: "redis", SKU: "C1", Quantity: 1, Region: "eastus"},
		})

		require.Len(t, summary.Items, 1)
		assert.Zero(t, summary.Items[0].Monthly)
		assert.Zero(t, summary.TotalEstimate)
		require.Len(t, summary.Notes, 1)
		assert.Equal(t, "No price found for azure:redis:C1 in eastus (set $0).", summary.Notes[0])
	})

	t.Run("resolver notes propagate", func(t *testing.T) {
		resolver := &fakeResolver{
			prices: map[string]float64{"lb": 37.5},
			notes:  map[string][]string{"lb": {"LB rules defaulted to 2/h."}},
		}
		estimator := NewEstimator(resolver, estimatorConfig())

		summary := estimator.Estimate(ctx, []components.Record{
			{Cloud: "azure", Service: "lb", SKU: "Standard", Quantity: 1, Region: "eastus"},
		})
		require.Len(t, summary.Notes, 1)
		assert.Contains(t, summary.Notes[0], "defaulted")
	})

	t.Run("zero quantity and missing region get defaults", func(t *testing.T) {
		resolver := &fakeResolver{prices: map[string]float64{"vm": 10.0}}
		estimator := NewEstimator(resolver, estimatorConfig())

		summary := estimator.Estimate(ctx, []components.Record{
			{Cloud: "azure", Service: "vm", SKU: "B2s"},
		})

		require.Len(t, resolver.seen, 1)
		assert.Equal(t, 1, resolver.seen[0].Quantity)
		assert.Equal(t, "eastus", resolver.seen[0].Region)
		assert.Equal(t, 10.0, summary.TotalEstimate)
	})

	t.Run("empty record list yields a zero estimate", func(t *testing.T) {
		estimator := NewEstimator(&fakeResolver{}, estimatorConfig())
		summary := estimator.Estimate(ctx, nil)
		assert.Equal(t, "USD", summary.Currency)
		assert.Empty(t, summary.Items)
		assert.Zero(t, summary.TotalEstimate)
	})
}
