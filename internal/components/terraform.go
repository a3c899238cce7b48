package components

import (
	"regexp"
	"strconv"
	"strings"
)

// tfResourceRule maps a Terraform resource-declaration keyword to the
// canonical priceable record emitted when the keyword is present. A
// presence scan, not a structural parse: one record per matched service.
type tfResourceRule struct {
	keywords []string
	service  string
	sku      string
	sizeGB   float64
}

var tfResourceRules = []tfResourceRule{
	{[]string{"azurerm_linux_web_app", "azurerm_windows_web_app", "azurerm_app_service"}, "app_service", "S1", 0},
	{[]string{"azurerm_mssql_database", "azurerm_sql_database"}, "azure_sql", "S0", 0},
	{[]string{"azurerm_linux_virtual_machine", "azurerm_windows_virtual_machine", "azurerm_virtual_machine"}, "vm", "B2s", 0},
	{[]string{"azurerm_storage_account"}, "storage", "LRS", 100},
	{[]string{"azurerm_application_gateway"}, "app_gateway", "WAF_v2", 0},
	{[]string{"azurerm_lb"}, "lb", "Standard", 0},
	{[]string{"azurerm_kubernetes_cluster"}, "aks", "standard", 0},
}

// FromTerraform scans Terraform text for known Azure resource declarations
// and emits one default-sized Record per matched service.
func FromTerraform(code, region string) []Record {
	lower := strings.ToLower(code)
	var out []Record
	for _, rule := range tfResourceRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				out = append(out, Record{
					Cloud:    "azure",
					Service:  rule.service,
					SKU:      rule.sku,
					Quantity: 1,
					Region:   region,
					SizeGB:   rule.sizeGB,
				})
				break
			}
		}
	}
	return out
}

var (
	appServiceRe   = regexp.MustCompile(`\bapp service\b|\bweb app\b`)
	frontBackRe    = regexp.MustCompile(`\bfront.*back|backend.*front`)
	sqlRe          = regexp.MustCompile(`\b(mssql|azure sql|sql database)\b`)
	sizeGBRe       = regexp.MustCompile(`(\d+)\s*gb`)
	vmRe           = regexp.MustCompile(`\bvmss\b|\bvm scale set\b|\bvirtual machine\b|\bvm\b`)
	storageRe      = regexp.MustCompile(`\bstorage account\b|\bblob storage\b|\bazurerm_storage`)
	appGatewayRe   = regexp.MustCompile(`\bapplication gateway\b|\bapp gateway\b|\bapp gw\b`)
	capacityUnitRe = regexp.MustCompile(`(\d+)\s*(?:capacity\s*units|cu)\b`)
	lbRe           = regexp.MustCompile(`\bload balancer\b|\blb\b`)
	lbRulesRe      = regexp.MustCompile(`(\d+)\s*(?:rules|lb\s*rules)`)
	lbDataRe       = regexp.MustCompile(`(\d+)\s*gb\s*(?:data|processed)`)
)

// Normalize turns the combined request text, sanitized diagram and Terraform
// output into priceable records. Keyword hits over the combined lowercase
// blob drive the service list; Terraform resource declarations supplement
// any service the blob scan missed. Each service appears at most once
// (virtual machines carry their hit count as quantity).
func Normalize(ask, diagram, tf, region string) []Record {
	blob := strings.ToLower(ask + "\n" + diagram + "\n" + tf)
	var items []Record

	add := func(service, sku string, qty int, sizeGB float64) *Record {
		if qty < 1 {
			qty = 1
		}
		items = append(items, Record{
			Cloud:    "azure",
			Service:  service,
			SKU:      sku,
			Quantity: qty,
			Region:   region,
			SizeGB:   sizeGB,
		})
		return &items[len(items)-1]
	}

	if appServiceRe.MatchString(blob) {
		qty := 1
		if frontBackRe.MatchString(blob) {
			qty = 2
		}
		add("app_service", "S1", qty, 0)
	}
	if sqlRe.MatchString(blob) {
		rec := add("azure_sql", "S0", 1, 0)
		if m := sizeGBRe.FindStringSubmatch(blob); m != nil {
			if gb, err := strconv.ParseFloat(m[1], 64); err == nil {
				rec.SizeGB = gb
			}
		}
	}
	if hits := len(vmRe.FindAllString(blob, -1)); hits > 0 {
		add("vm", "B2s", hits, 0)
	}
	if storageRe.MatchString(blob) {
		add("storage", "LRS", 1, 100)
	}
	if appGatewayRe.MatchString(blob) {
		rec := add("app_gateway", "WAF_v2", 1, 0)
		if m := capacityUnitRe.FindStringSubmatch(blob); m != nil {
			if cu, err := strconv.Atoi(m[1]); err == nil {
				rec.CapacityUnits = cu
			}
		}
	} else if lbRe.MatchString(blob) {
		rec := add("lb", "Standard", 1, 0)
		if m := lbRulesRe.FindStringSubmatch(blob); m != nil {
			if rules, err := strconv.Atoi(m[1]); err == nil {
				rec.Rules = rules
			}
		}
		if m := lbDataRe.FindStringSubmatch(blob); m != nil {
			if gb, err := strconv.ParseFloat(m[1], 64); err == nil {
				rec.DataGB = gb
			}
		}
	}
	if strings.Contains(blob, "aks") || strings.Contains(blob, "kubernetes service") {
		add("aks", "standard", 1, 0)
	}

	// Terraform declarations can name resources the prose and diagram never
	// mention; fold those in without duplicating a service.
	have := make(map[string]bool, len(items))
	for _, it := range items {
		have[it.Service] = true
	}
	for _, rec := range FromTerraform(tf, region) {
		if !have[rec.Service] {
			have[rec.Service] = true
			items = append(items, rec)
		}
	}
	return items
}
