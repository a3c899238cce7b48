package pricing

import "strings"

// The retail catalog's armRegionName field is not normalized: some meters
// carry ARM codes ("eastus2"), others display names ("US East 2"). Lookups
// try every plausible spelling.
var regionDisplayNames = map[string]string{
	"eastus":         "US East",
	"eastus2":        "US East 2",
	"centralus":      "US Central",
	"westus":         "US West",
	"westus2":        "US West 2",
	"southcentralus": "US South Central",
	"northcentralus": "US North Central",
	"westeurope":     "EU West",
	"northeurope":    "EU North",
}

// RegionVariants expands a region into its equivalent catalog spellings:
// the raw value, lowercase, hyphen-to-space, title case, the known ARM
// code display name, and a trailing "US" split for *us codes. Order is
// deterministic with the raw spelling first.
func RegionVariants(region string) []string {
	r := strings.TrimSpace(region)
	if r == "" {
		return nil
	}

	var out []string
	seen := make(map[string]struct{})
	push := func(v string) {
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}

	push(r)
	push(strings.ToLower(r))
	if mapped, ok := regionDisplayNames[strings.ToLower(r)]; ok {
		push(mapped)
	}
	spaced := strings.ReplaceAll(r, "-", " ")
	push(spaced)
	push(titleCase(spaced))
	if lower := strings.ToLower(r); strings.HasSuffix(lower, "us") && len(r) > 2 {
		push(titleCase(r[:len(r)-2]) + " US")
	}
	return out
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
