package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegionVariants(t *testing.T) {
	t.Run("raw spelling comes first", func(t *testing.T) {
		variants := RegionVariants("eastus")
		assert.Equal(t, "eastus", variants[0])
	})

	t.Run("known arm code maps to display name", func(t *testing.T) {
		assert.Contains(t, RegionVariants("eastus"), "US East")
		assert.Contains(t, RegionVariants("eastus2"), "US East 2")
		assert.Contains(t, RegionVariants("westeurope"), "EU West")
	})

	t.Run("trailing us code is split", func(t *testing.T) {
		assert.Contains(t, RegionVariants("eastus"), "East US")
		assert.Contains(t, RegionVariants("westus"), "West US")
	})

	t.Run("hyphens expand to spaces", func(t *testing.T) {
		variants := RegionVariants("east-asia")
		assert.Contains(t, variants, "east asia")
		assert.Contains(t, variants, "East Asia")
	})

	t.Run("no duplicates", func(t *testing.T) {
		for _, region := range []string{"eastus", "eastus2", "West Europe", "east-asia"} {
			variants := RegionVariants(region)
			seen := make(map[string]struct{}, len(variants))
			for _, v := range variants {
				_, dup := seen[v]
				assert.False(t, dup, "region %s produced duplicate %q", region, v)
				seen[v] = struct{}{}
			}
		}
	})

	t.Run("empty region yields nothing", func(t *testing.T) {
		assert.Empty(t, RegionVariants(""))
		assert.Empty(t, RegionVariants("   "))
	})
}
