package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archgenie/cloud-architect/internal/auth"
	"github.com/archgenie/cloud-architect/internal/config"
	"github.com/archgenie/cloud-architect/internal/cost"
	"github.com/archgenie/cloud-architect/internal/gateway"
	"github.com/archgenie/cloud-architect/internal/llm"
	"github.com/archgenie/cloud-architect/internal/models"
	"github.com/archgenie/cloud-architect/internal/orchestration"
	"github.com/archgenie/cloud-architect/internal/pricing"
	"github.com/archgenie/cloud-architect/tests/helpers"
)

// TestGenerationStream drives one full message turn over the WebSocket and
// checks the stage events arrive in pipeline order.
func TestGenerationStream(t *testing.T) {
	helpers.SkipWithoutDatabase(t)
	t.Setenv("JWT_SECRET", "test-secret-key-for-stream-integration-tests")

	testDB := helpers.NewTestDatabase(t)
	defer testDB.Close()

	// Canned model backend: a chat turn that carries an updated diagram.
	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reply := "Here is the updated architecture.\n" +
			"```mermaid\ngraph TD\nA[Web App] --> B[Azure SQL Database]\n```\n"
		json.NewEncoder(w).Encode(helpers.MockChatResponse(reply))
	}))
	defer model.Close()

	cfg := &config.Config{
		AzureOpenAIEndpoint:   "http://placeholder",
		AzureOpenAIKey:        "test-key",
		AzureOpenAIDeployment: "gpt-4o",
		AzureOpenAIAPIVersion: "2024-12-01-preview",
		FailOpen:              false,
		UseLivePrices:         false,
		HoursPerMonth:         730,
		DefaultRegion:         "eastus",
	}
	llmClient := llm.NewClient(cfg)
	llmClient.SetEndpoint(model.URL)

	service := orchestration.NewService(testDB.Pool)
	resolver := pricing.NewResolver(pricing.NewRetailClient(), pricing.NewCache(), cfg)
	pipeline := orchestration.NewPipeline(llmClient, cost.NewEstimator(resolver, cfg), cfg)

	jwtManager, err := auth.NewJWTManager()
	require.NoError(t, err)
	stream := gateway.NewGenerationStream(service, pipeline, jwtManager)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/ws/sessions/:id/generate", stream.Generate)

	server := httptest.NewServer(router)
	defer server.Close()

	token, err := jwtManager.GenerateToken(context.Background(), "user-123", "alice@example.com", []string{"user"}, time.Hour)
	require.NoError(t, err)

	wsURL := func(sessionID, token string) string {
		url := "ws" + strings.TrimPrefix(server.URL, "http")
		url += "/api/ws/sessions/" + sessionID + "/generate"
		if token != "" {
			url += "?token=" + token
		}
		return url
	}

	t.Run("full event sequence", func(t *testing.T) {
		session, err := service.CreateSession(context.Background(), "Stream Session")
		require.NoError(t, err)
		defer testDB.DeleteSession(t, session.ID)

		conn, resp, err := websocket.DefaultDialer.Dial(wsURL(session.ID, token), nil)
		require.NoError(t, err)
		if resp != nil {
			defer resp.Body.Close()
		}
		defer conn.Close()

		require.NoError(t, conn.WriteJSON(map[string]string{
			"content": "add a sql database",
			"region":  "eastus",
		}))

		var events []string
		for {
			conn.SetReadDeadline(time.Now().Add(15 * time.Second))
			var event models.GenerationEvent
			require.NoError(t, conn.ReadJSON(&event))
			events = append(events, event.EventType)
			if event.EventType == models.EventDone || event.EventType == models.EventGenerationFailed {
				break
			}
		}

		assert.Equal(t, []string{
			models.EventMessageAccepted,
			models.EventModelResponded,
			models.EventDiagramSanitized,
			models.EventComponentsFound,
			models.EventCostEstimated,
			models.EventDone,
		}, events)

		// The turn and its diagram are persisted.
		messages, err := service.ListMessages(context.Background(), uuid.MustParse(session.ID))
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, models.MessageTypeUser, messages[0].Type)
		assert.Equal(t, models.MessageTypeAssistant, messages[1].Type)

		diagram, err := service.CurrentDiagram(context.Background(), uuid.MustParse(session.ID))
		require.NoError(t, err)
		require.NotNil(t, diagram)
		assert.Contains(t, diagram.MermaidCode, "flowchart TD")
	})

	t.Run("empty frame fails the run", func(t *testing.T) {
		session, err := service.CreateSession(context.Background(), "Empty Frame Session")
		require.NoError(t, err)
		defer testDB.DeleteSession(t, session.ID)

		conn, resp, err := websocket.DefaultDialer.Dial(wsURL(session.ID, token), nil)
		require.NoError(t, err)
		if resp != nil {
			defer resp.Body.Close()
		}
		defer conn.Close()

		require.NoError(t, conn.WriteJSON(map[string]string{"content": "   "}))

		var event models.GenerationEvent
		conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		require.NoError(t, conn.ReadJSON(&event))
		assert.Equal(t, models.EventGenerationFailed, event.EventType)
	})

	t.Run("missing token is rejected before upgrade", func(t *testing.T) {
		session, err := service.CreateSession(context.Background(), "Unauthorized Session")
		require.NoError(t, err)
		defer testDB.DeleteSession(t, session.ID)

		_, resp, err := websocket.DefaultDialer.Dial(wsURL(session.ID, ""), nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("unknown session is rejected before upgrade", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL(uuid.NewString(), token), nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
