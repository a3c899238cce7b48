// Package cost totals per-component monthly prices into an estimate.
package cost

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/archgenie/cloud-architect/internal/components"
	"github.com/archgenie/cloud-architect/internal/config"
)

// PriceResolver resolves a monthly unit price for one component record.
// The bool result is false when no price could be found.
type PriceResolver interface {
	Price(ctx context.Context, rec components.Record) (unitMonthly float64, notes []string, found bool)
}

// Item is one priced component in a summary.
type Item struct {
	components.Record
	UnitMonthly float64 `json:"unit_monthly"`
	Monthly     float64 `json:"monthly"`
}

// Summary is the full cost estimate for a component list. It is rebuilt from
// scratch on every request and never mutated afterwards.
type Summary struct {
	Currency      string   `json:"currency"`
	TotalEstimate float64  `json:"total_estimate"`
	Items         []Item   `json:"items"`
	Notes         []string `json:"notes,omitempty"`
}

// Estimator aggregates resolved prices. It never fails: the worst case is a
// zero total with a note per unresolvable component.
type Estimator struct {
	resolver PriceResolver
	cfg      *config.Config
}

// NewEstimator creates a cost estimator.
func NewEstimator(resolver PriceResolver, cfg *config.Config) *Estimator {
	return &Estimator{resolver: resolver, cfg: cfg}
}

// Estimate resolves and totals the monthly cost of every record. Per-item
// monthlies are rounded to 2 decimal places before summing, so the total is
// exactly the sum of the reported items.
func (e *Estimator) Estimate(ctx context.Context, records []components.Record) Summary {
	summary := Summary{
		Currency: "USD",
		Items:    make([]Item, 0, len(records)),
	}

	total := decimal.Zero
	for _, rec := range records {
		if rec.Quantity < 1 {
			rec.Quantity = 1
		}
		if rec.Region == "" {
			rec.Region = e.cfg.DefaultRegion
		}

		unit, notes, found := e.resolver.Price(ctx, rec)
		summary.Notes = append(summary.Notes, notes...)
		if !found {
			summary.Notes = append(summary.Notes, fmt.Sprintf(
				"No price found for %s:%s:%s in %s (set $0).",
				rec.Cloud, rec.Service, rec.SKU, rec.Region))
			unit = 0
		}

		monthly := decimal.NewFromFloat(unit)
		if rec.Hours > 0 && rec.Hours != e.cfg.HoursPerMonth && unit > 0 {
			ratio := decimal.NewFromFloat(rec.Hours).Div(decimal.NewFromFloat(e.cfg.HoursPerMonth))
			monthly = monthly.Mul(ratio)
		}
		monthly = monthly.Mul(decimal.NewFromInt(int64(rec.Quantity))).Round(2)
		total = total.Add(monthly)

		monthlyF, _ := monthly.Float64()
		unitF, _ := decimal.NewFromFloat(unit).Round(2).Float64()
		summary.Items = append(summary.Items, Item{
			Record:      rec,
			UnitMonthly: unitF,
			Monthly:     monthlyF,
		})
	}

	summary.TotalEstimate, _ = total.Round(2).Float64()
	return summary
}
