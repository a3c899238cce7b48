package gateway

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/archgenie/cloud-architect/internal/auth"
	"github.com/archgenie/cloud-architect/internal/components"
	"github.com/archgenie/cloud-architect/internal/models"
	"github.com/archgenie/cloud-architect/internal/orchestration"
)

// GenerationStream streams the stages of one generation run over a
// WebSocket: message_accepted, model_responded, diagram_sanitized,
// components_found, cost_estimated, done.
type GenerationStream struct {
	service    *orchestration.Service
	pipeline   *orchestration.Pipeline
	jwtManager *auth.JWTManager
	tracer     trace.Tracer
	upgrader   websocket.Upgrader
}

// NewGenerationStream creates the generation WebSocket handler.
func NewGenerationStream(service *orchestration.Service, pipeline *orchestration.Pipeline, jwtManager *auth.JWTManager) *GenerationStream {
	return &GenerationStream{
		service:    service,
		pipeline:   pipeline,
		jwtManager: jwtManager,
		tracer:     otel.Tracer("generation-stream"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: restrict origins once the frontend host list is settled
				return true
			},
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// streamRequest is the single client frame that starts a run.
type streamRequest struct {
	Content string `json:"content"`
	Region  string `json:"region"`
}

// Generate handles WebSocket /api/ws/sessions/:id/generate
// @Summary Stream generation progress
// @Description WebSocket endpoint streaming pipeline stage events for one message
// @Tags sessions
// @Param id path string true "Session ID"
// @Param token query string true "JWT token"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /ws/sessions/{id}/generate [get]
func (gs *GenerationStream) Generate(c *gin.Context) {
	ctx, span := gs.tracer.Start(c.Request.Context(), "generation_stream.generate")
	defer span.End()

	sessionID, ok := gs.sessionID(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("session_id", sessionID.String()))

	userID, err := gs.validateJWT(c)
	if err != nil {
		span.RecordError(err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	span.SetAttributes(attribute.String("user_id", userID))

	if _, err := gs.service.GetSession(ctx, sessionID); err != nil {
		if err == orchestration.ErrSessionNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get session"})
		return
	}

	conn, err := gs.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		span.RecordError(err)
		log.Printf(`{"level":"error","message":"WebSocket upgrade failed","error":"%v"}`, err)
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	var req streamRequest
	if err := conn.ReadJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		gs.send(conn, models.GenerationEvent{
			EventType: models.EventGenerationFailed,
			Error:     "Expected a JSON frame with non-empty content",
		})
		return
	}

	gs.run(c, conn, sessionID, req)
}

func (gs *GenerationStream) run(c *gin.Context, conn *websocket.Conn, sessionID uuid.UUID, req streamRequest) {
	ctx := c.Request.Context()

	history, err := gs.service.RecentMessages(ctx, sessionID, 10)
	if err != nil {
		gs.fail(conn, "Failed to load history")
		return
	}
	userMsg, err := gs.service.AppendMessage(ctx, sessionID, models.MessageTypeUser, req.Content)
	if err != nil {
		gs.fail(conn, "Failed to store message")
		return
	}
	gs.send(conn, models.GenerationEvent{EventType: models.EventMessageAccepted, Data: userMsg})

	reply, diagram, err := gs.pipeline.Respond(ctx, history, req.Content)
	if err != nil {
		gs.fail(conn, fmt.Sprintf("Model call failed: %v", err))
		return
	}
	gs.send(conn, models.GenerationEvent{EventType: models.EventModelResponded, Data: gin.H{"ai_response": reply}})

	if diagram != "" {
		gs.send(conn, models.GenerationEvent{EventType: models.EventDiagramSanitized, Data: gin.H{"mermaid_code": diagram}})

		comps := components.FromDiagram(diagram)
		saved, err := gs.service.SaveDiagramVersion(ctx, sessionID, diagram, req.Content, comps)
		if err != nil {
			gs.fail(conn, "Failed to save diagram")
			return
		}
		gs.send(conn, models.GenerationEvent{EventType: models.EventComponentsFound, Data: saved.Components})

		summary := gs.pipeline.EstimateDiagram(ctx, req.Content, diagram, req.Region)
		gs.send(conn, models.GenerationEvent{EventType: models.EventCostEstimated, Data: summary})
	}

	if _, err := gs.service.AppendMessage(ctx, sessionID, models.MessageTypeAssistant, reply); err != nil {
		gs.fail(conn, "Failed to store response")
		return
	}

	gs.send(conn, models.GenerationEvent{EventType: models.EventDone})
}

func (gs *GenerationStream) send(conn *websocket.Conn, event models.GenerationEvent) {
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(event); err != nil {
		log.Printf(`{"level":"warn","message":"Failed to send event","event":"%s","error":"%v"}`, event.EventType, err)
	}
}

func (gs *GenerationStream) fail(conn *websocket.Conn, message string) {
	gs.send(conn, models.GenerationEvent{EventType: models.EventGenerationFailed, Error: message})
}

func (gs *GenerationStream) sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return uuid.Nil, false
	}
	return id, true
}

// validateJWT accepts the token from the query parameter (WebSocket clients
// cannot set headers) or the Authorization header.
func (gs *GenerationStream) validateJWT(c *gin.Context) (string, error) {
	token := c.Query("token")
	if token == "" {
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if strings.HasPrefix(header, prefix) {
			token = strings.TrimSpace(header[len(prefix):])
		}
	}
	if token == "" {
		return "", fmt.Errorf("missing token")
	}

	claims, err := gs.jwtManager.ValidateToken(c.Request.Context(), token)
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	return claims.UserID, nil
}
