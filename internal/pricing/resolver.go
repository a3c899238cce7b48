package pricing

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/archgenie/cloud-architect/internal/components"
	"github.com/archgenie/cloud-architect/internal/config"
)

// Catalog is the retail price lookup surface, satisfied by RetailClient and
// by test fakes.
type Catalog interface {
	Fetch(ctx context.Context, filter string, limit int) ([]Meter, error)
}

// Resolver turns component records into monthly unit prices. Live lookups
// go through the retail catalog with region-variant fallback and a shared
// TTL cache; everything else falls back to static per-service constants.
type Resolver struct {
	catalog Catalog
	cache   *Cache
	cfg     *config.Config
}

// NewResolver creates a resolver backed by the given catalog and cache.
func NewResolver(catalog Catalog, cache *Cache, cfg *config.Config) *Resolver {
	return &Resolver{catalog: catalog, cache: cache, cfg: cfg}
}

// Static monthly fallback prices (USD, eastus retail, hourly meters already
// multiplied out to 730 h). Used when live pricing is disabled or the record
// is not Azure.
var staticMonthly = map[string]float64{
	"app_service": 69.35,  // S1
	"vm":          30.37,  // B2s
	"azure_sql":   14.72,  // S0
	"lb":          18.98,  // Standard, 2 rules + 100 GB
	"app_gateway": 243.09, // WAF_v2, 1 capacity unit
	"redis":       40.15,  // C1 Basic
	"monitor":     2.30,   // Log Analytics, 1 GB ingested
	"aks":         0,      // control plane is free
}

const staticStoragePerGB = 0.0184 // LRS hot block blob

// LBComponents is the pair of Load Balancer meters combined per record:
// a per-rule hourly charge and a per-GB data-processed charge.
type LBComponents struct {
	RuleHourMonthly float64 `json:"rule_hour_monthly"`
	DataGBMonthly   float64 `json:"data_gb_monthly"`
}

// AppGWComponents is the pair of Application Gateway WAF_v2 meters: a fixed
// hourly base and a per-capacity-unit hourly charge.
type AppGWComponents struct {
	BaseMonthly         float64 `json:"base_monthly"`
	CapacityUnitMonthly float64 `json:"capacity_unit_monthly"`
}

// Price resolves the monthly unit price for one component record. The bool
// result is false when no price could be found anywhere; callers decide the
// zero-fallback policy. Notes explain defaults that were substituted.
// A failed catalog lookup never propagates as an error: it degrades to an
// absent price so one bad lookup cannot fail a whole estimate.
func (r *Resolver) Price(ctx context.Context, rec components.Record) (unitMonthly float64, notes []string, found bool) {
	if !strings.EqualFold(rec.Cloud, "azure") || !r.cfg.UseLivePrices {
		return r.staticPrice(rec)
	}

	switch rec.Service {
	case "app_service":
		if p, ok := r.AppServicePrice(ctx, rec.SKU, rec.Region); ok {
			return p, nil, true
		}
	case "vm":
		if p, ok := r.VMPrice(ctx, rec.SKU, rec.Region); ok {
			return p, nil, true
		}
	case "azure_sql":
		if p, ok := r.SQLPrice(ctx, rec.SKU, rec.Region); ok {
			return p, nil, true
		}
	case "storage":
		if perGB, ok := r.StoragePerGB(ctx, rec.Region); ok {
			size := rec.SizeGB
			if size <= 0 {
				size = 100
			}
			return perGB * size, nil, true
		}
	case "lb":
		if comps, ok := r.LBMeters(ctx, rec.Region); ok {
			rules := rec.Rules
			if rules == 0 {
				rules = r.cfg.DefaultLBRules
				notes = append(notes, fmt.Sprintf("LB rules defaulted to %d/h.", rules))
			}
			dataGB := rec.DataGB
			if dataGB == 0 {
				dataGB = r.cfg.DefaultLBDataGB
				notes = append(notes, fmt.Sprintf("LB data processed defaulted to %g GB/mo.", dataGB))
			}
			unit := float64(rules)*comps.RuleHourMonthly + dataGB*comps.DataGBMonthly
			return unit, notes, true
		}
	case "app_gateway":
		if comps, ok := r.AppGWMeters(ctx, rec.Region); ok {
			cu := rec.CapacityUnits
			if cu == 0 {
				cu = r.cfg.DefaultAppGWCapacity
				notes = append(notes, fmt.Sprintf("App Gateway capacity units defaulted to %d/h.", cu))
			}
			unit := comps.BaseMonthly + float64(cu)*comps.CapacityUnitMonthly
			return unit, notes, true
		}
	case "redis", "monitor":
		return 0, nil, true
	case "aks":
		return 0, []string{"AKS control plane free; worker node VM costs not included."}, true
	default:
		return 0, nil, false
	}
	return 0, notes, false
}

func (r *Resolver) staticPrice(rec components.Record) (float64, []string, bool) {
	if rec.Service == "storage" {
		size := rec.SizeGB
		if size <= 0 {
			size = 100
		}
		return staticStoragePerGB * size, []string{"Static list price used for storage."}, true
	}
	if p, ok := staticMonthly[rec.Service]; ok {
		return p, []string{fmt.Sprintf("Static list price used for %s:%s.", rec.Service, rec.SKU)}, true
	}
	return 0, nil, false
}

// monthlyFromMeter converts a catalog meter to its monthly-equivalent price:
// hourly meters are multiplied out to the standard month, everything else
// passes through unchanged.
func (r *Resolver) monthlyFromMeter(m Meter) float64 {
	if strings.Contains(strings.ToLower(m.UnitOfMeasure), "hour") {
		return round2(m.RetailPrice * r.cfg.HoursPerMonth)
	}
	return round2(m.RetailPrice)
}

func isHourly(m Meter) bool {
	return strings.Contains(strings.ToLower(m.UnitOfMeasure), "hour")
}

// bestMonthly picks the minimum monthly-equivalent price, preferring hourly
// compute meters when any exist. The catalog returns many SKU/tier/meter
// rows per query; absent a more precise selector the cheapest match is the
// best estimate.
func (r *Resolver) bestMonthly(meters []Meter, keep func(Meter) bool) (float64, bool) {
	pool := meters
	var hourly []Meter
	for _, m := range meters {
		if isHourly(m) {
			hourly = append(hourly, m)
		}
	}
	if len(hourly) > 0 {
		pool = hourly
	}

	best := math.MaxFloat64
	found := false
	for _, m := range pool {
		if keep != nil && !keep(m) {
			continue
		}
		if monthly := r.monthlyFromMeter(m); monthly > 0 && monthly < best {
			best = monthly
			found = true
		}
	}
	return best, found
}

func (r *Resolver) fetch(ctx context.Context, filter string, limit int) []Meter {
	meters, err := r.catalog.Fetch(ctx, filter, limit)
	if err != nil {
		log.Printf(`{"level":"warn","message":"Retail price lookup failed","filter":%q,"error":"%v"}`, filter, err)
		return nil
	}
	return meters
}

// AppServicePrice resolves the monthly price of an App Service plan SKU.
func (r *Resolver) AppServicePrice(ctx context.Context, sku, region string) (float64, bool) {
	key := "az.appservice." + region + "." + sku
	if v, ok := r.cache.Get(key); ok {
		return v.(float64), true
	}

	serviceCandidates := []string{
		"App Service", "App Service Linux", "Azure App Service",
		"App Service Plans", "Azure App Service Plans",
	}

	best := math.MaxFloat64
	found := false
	for _, reg := range RegionVariants(region) {
		for _, svc := range serviceCandidates {
			filter := fmt.Sprintf(
				"serviceName eq '%s' and skuName eq '%s' and armRegionName eq '%s' and retailPrice ne 0",
				svc, sku, reg)
			meters := r.fetch(ctx, filter, 60)
			if len(meters) == 0 {
				alt := fmt.Sprintf(
					"contains(productName, 'App Service') and skuName eq '%s' and armRegionName eq '%s' and retailPrice ne 0",
					sku, reg)
				meters = r.fetch(ctx, alt, 60)
			}
			if monthly, ok := r.bestMonthly(meters, nil); ok && monthly < best {
				best = monthly
				found = true
			}
		}
	}

	if found {
		r.cache.Put(key, best, DefaultTTL)
	}
	return best, found
}

// VMPrice resolves the monthly price of a virtual machine size, trying the
// common spellings of the size token ("Standard_B2s", "Standard B2s", ...).
func (r *Resolver) VMPrice(ctx context.Context, size, region string) (float64, bool) {
	key := "az.vm." + region + "." + size
	if v, ok := r.cache.Get(key); ok {
		return v.(float64), true
	}

	best := math.MaxFloat64
	found := false
	for _, reg := range RegionVariants(region) {
		candidates := []string{
			size,
			strings.ReplaceAll(size, "_", " "),
			strings.ReplaceAll(size, "v", " v"),
		}
		for _, sku := range candidates {
			filter := fmt.Sprintf(
				"serviceName eq 'Virtual Machines' and skuName eq '%s' and armRegionName eq '%s' and retailPrice ne 0",
				sku, reg)
			meters := r.fetch(ctx, filter, 80)
			if monthly, ok := r.bestMonthly(meters, nil); ok && monthly < best {
				best = monthly
				found = true
			}
		}
	}

	if found {
		r.cache.Put(key, best, DefaultTTL)
	}
	return best, found
}

// Words that mark a SQL meter as storage/backup/IO rather than compute, and
// words that mark it as compute. Used to keep the estimate on the compute
// meter when DEFAULT_SQL_COMPUTE_ONLY is set.
var (
	sqlBadWords  = []string{"backup", "storage", "io", "data processed", "per gb", "gb-month"}
	sqlGoodWords = []string{"dtu", "vcore", "compute"}
)

// SQLPrice resolves the monthly compute price of a SQL Database SKU.
func (r *Resolver) SQLPrice(ctx context.Context, sku, region string) (float64, bool) {
	key := "az.sql." + region + "." + sku
	if v, ok := r.cache.Get(key); ok {
		return v.(float64), true
	}

	isComputeMeter := func(m Meter) bool {
		meter := strings.ToLower(m.MeterName)
		for _, bad := range sqlBadWords {
			if strings.Contains(meter, bad) {
				return false
			}
		}
		for _, good := range sqlGoodWords {
			if strings.Contains(meter, good) {
				return true
			}
		}
		return strings.Contains(meter, strings.ToLower(sku))
	}

	var keep func(Meter) bool
	if r.cfg.SQLComputeOnly {
		keep = isComputeMeter
	}

	best := math.MaxFloat64
	found := false
	for _, reg := range RegionVariants(region) {
		filters := []string{
			fmt.Sprintf("serviceName eq 'SQL Database' and skuName eq '%s' and armRegionName eq '%s' and retailPrice ne 0", sku, reg),
			fmt.Sprintf("contains(productName, 'SQL Database') and skuName eq '%s' and armRegionName eq '%s' and retailPrice ne 0", sku, reg),
			fmt.Sprintf("serviceName eq 'SQL Database' and contains(meterName, '%s') and armRegionName eq '%s' and retailPrice ne 0", sku, reg),
		}
		var meters []Meter
		for _, filter := range filters {
			meters = r.fetch(ctx, filter, 200)
			if len(meters) > 0 {
				break
			}
		}
		if monthly, ok := r.bestMonthly(meters, keep); ok && monthly < best {
			best = monthly
			found = true
		}
	}

	if found {
		r.cache.Put(key, best, DefaultTTL)
	}
	return best, found
}

// StoragePerGB resolves the per-GB-month price of LRS block blob storage.
func (r *Resolver) StoragePerGB(ctx context.Context, region string) (float64, bool) {
	key := "az.storage.lrs." + region
	if v, ok := r.cache.Get(key); ok {
		return v.(float64), true
	}

	best := math.MaxFloat64
	found := false
	for _, reg := range RegionVariants(region) {
		filter := fmt.Sprintf(
			"serviceName eq 'Storage' and armRegionName eq '%s' and contains(skuName, 'LRS') and retailPrice ne 0", reg)
		for _, m := range r.fetch(ctx, filter, 80) {
			if monthly := r.monthlyFromMeter(m); monthly > 0 && monthly < best {
				best = monthly
				found = true
			}
		}
	}

	if found {
		r.cache.Put(key, best, DefaultTTL)
	}
	return best, found
}

// LBMeters resolves the Standard Load Balancer meter pair: cheapest per-rule
// hourly meter and cheapest data-processed per-GB meter.
func (r *Resolver) LBMeters(ctx context.Context, region string) (LBComponents, bool) {
	key := "az.lb.standard.components." + region
	if v, ok := r.cache.Get(key); ok {
		return v.(LBComponents), true
	}

	isRuleMeter := func(m Meter) bool {
		return strings.Contains(strings.ToLower(m.MeterName), "rule") && isHourly(m)
	}
	isDataMeter := func(m Meter) bool {
		meter := strings.ToLower(m.MeterName)
		uom := strings.ToLower(m.UnitOfMeasure)
		return (strings.Contains(meter, "data") || strings.Contains(meter, "processed")) &&
			strings.Contains(uom, "gb")
	}

	bestRule := math.MaxFloat64
	bestData := math.MaxFloat64
	haveRule, haveData := false, false

	scan := func(meters []Meter) {
		for _, m := range meters {
			monthly := r.monthlyFromMeter(m)
			if monthly <= 0 {
				continue
			}
			if isRuleMeter(m) && monthly < bestRule {
				bestRule = monthly
				haveRule = true
			}
			if isDataMeter(m) && monthly < bestData {
				bestData = monthly
				haveData = true
			}
		}
	}

	for _, reg := range RegionVariants(region) {
		filter := fmt.Sprintf(
			"serviceName eq 'Load Balancer' and armRegionName eq '%s' and retailPrice ne 0", reg)
		scan(r.fetch(ctx, filter, 200))
		if !haveRule || !haveData {
			alt := fmt.Sprintf(
				"contains(productName, 'Load Balancer') and armRegionName eq '%s' and retailPrice ne 0", reg)
			scan(r.fetch(ctx, alt, 200))
		}
	}

	if !haveRule && !haveData {
		return LBComponents{}, false
	}
	comps := LBComponents{}
	if haveRule {
		comps.RuleHourMonthly = round4(bestRule)
	}
	if haveData {
		comps.DataGBMonthly = round4(bestData)
	}
	r.cache.Put(key, comps, DefaultTTL)
	return comps, true
}

// AppGWMeters resolves the Application Gateway WAF_v2 meter pair: gateway
// base hourly meter and capacity-unit hourly meter.
func (r *Resolver) AppGWMeters(ctx context.Context, region string) (AppGWComponents, bool) {
	key := "az.appgw.wafv2.components." + region
	if v, ok := r.cache.Get(key); ok {
		return v.(AppGWComponents), true
	}

	isBase := func(m Meter) bool {
		meter := strings.ToLower(m.MeterName)
		if strings.Contains(strings.ToLower(m.UnitOfMeasure), "gb") {
			return false
		}
		named := strings.Contains(meter, "gateway") ||
			strings.Contains(meter, "waf v2") ||
			strings.Contains(meter, "app gateway")
		return named && !strings.Contains(meter, "capacity")
	}
	isCapacityUnit := func(m Meter) bool {
		return strings.Contains(strings.ToLower(m.MeterName), "capacity unit") && isHourly(m)
	}

	bestBase := math.MaxFloat64
	bestCU := math.MaxFloat64
	haveBase, haveCU := false, false

	scan := func(meters []Meter) {
		for _, m := range meters {
			if !isHourly(m) {
				continue
			}
			monthly := r.monthlyFromMeter(m)
			if monthly <= 0 {
				continue
			}
			switch {
			case isBase(m):
				if monthly < bestBase {
					bestBase = monthly
					haveBase = true
				}
			case isCapacityUnit(m):
				if monthly < bestCU {
					bestCU = monthly
					haveCU = true
				}
			}
		}
	}

	for _, reg := range RegionVariants(region) {
		filter := fmt.Sprintf(
			"serviceName eq 'Application Gateway' and armRegionName eq '%s' and retailPrice ne 0", reg)
		scan(r.fetch(ctx, filter, 200))
		if !haveBase || !haveCU {
			alt := fmt.Sprintf(
				"contains(productName, 'Application Gateway') and armRegionName eq '%s' and retailPrice ne 0", reg)
			scan(r.fetch(ctx, alt, 200))
		}
	}

	if !haveBase && !haveCU {
		return AppGWComponents{}, false
	}
	comps := AppGWComponents{}
	if haveBase {
		comps.BaseMonthly = round2(bestBase)
	}
	if haveCU {
		comps.CapacityUnitMonthly = round2(bestCU)
	}
	r.cache.Put(key, comps, DefaultTTL)
	return comps, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
