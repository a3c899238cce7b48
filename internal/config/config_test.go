package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "CAL_API_KEY", "DATABASE_URL",
		"AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_API_KEY", "AZURE_OPENAI_DEPLOYMENT",
		"AZURE_OPENAI_API_VERSION", "AZURE_OPENAI_FORCE_JSON",
		"FAIL_OPEN", "USE_LIVE_AZURE_PRICES", "HOURS_PER_MONTH", "DEFAULT_REGION",
		"DEFAULT_APPGW_CAPACITY_UNITS", "DEFAULT_SQL_COMPUTE_ONLY",
		"DEFAULT_LB_RULES", "DEFAULT_LB_DATA_GB",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.ForceJSON)
	assert.True(t, cfg.FailOpen)
	assert.True(t, cfg.UseLivePrices)
	assert.True(t, cfg.SQLComputeOnly)
	assert.Equal(t, 730.0, cfg.HoursPerMonth)
	assert.Equal(t, "eastus", cfg.DefaultRegion)
	assert.Equal(t, 1, cfg.DefaultAppGWCapacity)
	assert.Equal(t, 2, cfg.DefaultLBRules)
	assert.Equal(t, 100.0, cfg.DefaultLBDataGB)
	assert.False(t, cfg.LLMConfigured())
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("FAIL_OPEN", "false")
	t.Setenv("USE_LIVE_AZURE_PRICES", "0")
	t.Setenv("DEFAULT_REGION", "westeurope")
	t.Setenv("DEFAULT_LB_RULES", "5")
	t.Setenv("HOURS_PER_MONTH", "720")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://example.openai.azure.com/")
	t.Setenv("AZURE_OPENAI_API_KEY", "key")
	t.Setenv("AZURE_OPENAI_DEPLOYMENT", "gpt-4o")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.False(t, cfg.FailOpen)
	assert.False(t, cfg.UseLivePrices)
	assert.Equal(t, "westeurope", cfg.DefaultRegion)
	assert.Equal(t, 5, cfg.DefaultLBRules)
	assert.Equal(t, 720.0, cfg.HoursPerMonth)
	assert.True(t, cfg.LLMConfigured())
	assert.Equal(t, "https://example.openai.azure.com", cfg.AzureOpenAIEndpoint, "trailing slash is trimmed")
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEFAULT_LB_RULES", "not-a-number")
	t.Setenv("HOURS_PER_MONTH", "many")

	cfg := Load()
	assert.Equal(t, 2, cfg.DefaultLBRules)
	assert.Equal(t, 730.0, cfg.HoursPerMonth)
}
