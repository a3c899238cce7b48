package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archgenie/cloud-architect/internal/config"
	"github.com/archgenie/cloud-architect/internal/cost"
	"github.com/archgenie/cloud-architect/internal/llm"
	"github.com/archgenie/cloud-architect/internal/metrics"
	"github.com/archgenie/cloud-architect/internal/models"
	"github.com/archgenie/cloud-architect/internal/orchestration"
	"github.com/archgenie/cloud-architect/internal/pricing"
)

func architectConfig(failOpen bool) *config.Config {
	return &config.Config{
		AzureOpenAIEndpoint:   "http://placeholder",
		AzureOpenAIKey:        "test-key",
		AzureOpenAIDeployment: "gpt-4o",
		AzureOpenAIAPIVersion: "2024-12-01-preview",
		FailOpen:              failOpen,
		UseLivePrices:         false,
		HoursPerMonth:         730,
		DefaultRegion:         "eastus",
		DefaultAppGWCapacity:  1,
		DefaultLBRules:        2,
		DefaultLBDataGB:       100,
	}
}

// architectRouter wires a handler whose pipeline talks to the given model
// endpoint. Session endpoints are not routed; the architect endpoint never
// touches the database.
func architectRouter(t *testing.T, cfg *config.Config, modelURL string) *gin.Engine {
	t.Helper()

	llmClient := llm.NewClient(cfg)
	if modelURL != "" {
		llmClient.SetEndpoint(modelURL)
	}
	resolver := pricing.NewResolver(pricing.NewRetailClient(), pricing.NewCache(), cfg)
	pipeline := orchestration.NewPipeline(llmClient, cost.NewEstimator(resolver, cfg), cfg)

	pm, err := metrics.NewPipelineMetrics()
	require.NoError(t, err)
	handler := NewHandler(nil, pipeline, nil, nil, cfg, pm)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/architect", handler.Architect)
	return router
}

func postArchitect(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/architect", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestArchitect(t *testing.T) {
	t.Run("model json becomes sanitized diagram with costs", func(t *testing.T) {
		model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reply := `{"diagram": "graph TD\nA[Web App] --> B[Azure SQL Database]", ` +
				`"terraform": "resource \"azurerm_app_service\" \"web\" {}"}`
			json.NewEncoder(w).Encode(map[string]interface{}{
				"choices": []map[string]interface{}{
					{"message": map[string]interface{}{"content": reply}},
				},
			})
		}))
		defer model.Close()

		router := architectRouter(t, architectConfig(true), model.URL)
		w := postArchitect(router, `{"app_name": "shop", "prompt": "web app with sql", "region": "eastus"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var resp models.ArchitectResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp.Diagram, "flowchart TD")
		assert.Contains(t, resp.Diagram, "A[Web App] --> B[Azure SQL Database];")
		assert.Contains(t, resp.Terraform, "azurerm_app_service")
		assert.Equal(t, "USD", resp.Cost.Currency)
		// static list prices: app_service S1 + azure_sql S0
		assert.InDelta(t, 84.07, resp.Cost.TotalEstimate, 0.001)
	})

	t.Run("model failure falls open to the reference layout", func(t *testing.T) {
		model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer model.Close()

		router := architectRouter(t, architectConfig(true), model.URL)
		w := postArchitect(router, `{"prompt": "anything"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var resp models.ArchitectResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp.Diagram, "Azure Front Door")
		assert.Contains(t, resp.Terraform, "failed-open")
		assert.Greater(t, resp.Cost.TotalEstimate, 0.0)
	})

	t.Run("model failure without fail-open is a bad gateway", func(t *testing.T) {
		model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer model.Close()

		router := architectRouter(t, architectConfig(false), model.URL)
		w := postArchitect(router, `{"prompt": "anything"}`)
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), models.ErrCodeModelUnavailable)
	})

	t.Run("malformed body is a bad request", func(t *testing.T) {
		router := architectRouter(t, architectConfig(true), "")
		w := postArchitect(router, `{"prompt": `)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCodeFileName(t *testing.T) {
	tests := []struct {
		component string
		ext       string
		expected  string
	}{
		{"Azure App Service", ".tf", "azure_app_service.tf"},
		{"Web/App Tier", ".bicep", "web_app_tier.bicep"},
		{"SQL DB (primary)", ".tf", "sql_db_primary.tf"},
		{"Blob Storage", ".json", "blob_storage.json"},
	}

	for _, tt := range tests {
		t.Run(tt.component, func(t *testing.T) {
			assert.Equal(t, tt.expected, codeFileName(tt.component, tt.ext))
		})
	}
}
