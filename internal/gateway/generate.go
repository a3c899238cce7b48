package gateway

import (
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/archgenie/cloud-architect/internal/components"
	"github.com/archgenie/cloud-architect/internal/models"
	"github.com/archgenie/cloud-architect/internal/orchestration"
)

// SendMessageRequest represents one conversational turn
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
	Region  string `json:"region"`
}

// SendMessage godoc
// @Summary Send message
// @Description Send a message to a session and run the generation pipeline
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body SendMessageRequest true "Message"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Security BearerAuth
// @Router /sessions/{id}/messages [post]
func (h *Handler) SendMessage(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.service.GetSession(ctx, sessionID); err != nil {
		if err == orchestration.ErrSessionNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get session"})
		return
	}

	start := time.Now()
	h.metrics.RecordRunStarted(ctx, "send_message")

	history, err := h.service.RecentMessages(ctx, sessionID, 10)
	if err != nil {
		h.metrics.RecordRunFailed(ctx, "send_message", "persistence_error", time.Since(start))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		return
	}

	if _, err := h.service.AppendMessage(ctx, sessionID, models.MessageTypeUser, req.Content); err != nil {
		h.metrics.RecordRunFailed(ctx, "send_message", "persistence_error", time.Since(start))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store message"})
		return
	}

	reply, diagram, err := h.pipeline.Respond(ctx, history, req.Content)
	if err != nil {
		if !h.cfg.FailOpen {
			h.metrics.RecordRunFailed(ctx, "send_message", "model_unavailable", time.Since(start))
			c.JSON(http.StatusBadGateway, gin.H{"error": "Model unavailable", "code": models.ErrCodeModelUnavailable})
			return
		}
		log.Printf(`{"level":"warn","message":"Chat turn failed open","session_id":"%s","error":"%v"}`, sessionID, err)
		reply, diagram = h.pipeline.FallbackResponse()
	}

	var savedDiagram *models.Diagram
	var costSummary interface{}
	if diagram != "" {
		comps := components.FromDiagram(diagram)
		savedDiagram, err = h.service.SaveDiagramVersion(ctx, sessionID, diagram, req.Content, comps)
		if err != nil {
			h.metrics.RecordRunFailed(ctx, "send_message", "persistence_error", time.Since(start))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save diagram"})
			return
		}
		costSummary = h.pipeline.EstimateDiagram(ctx, req.Content, diagram, req.Region)
	}

	assistantMsg, err := h.service.AppendMessage(ctx, sessionID, models.MessageTypeAssistant, reply)
	if err != nil {
		h.metrics.RecordRunFailed(ctx, "send_message", "persistence_error", time.Since(start))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store response"})
		return
	}

	h.metrics.RecordRunCompleted(ctx, "send_message", time.Since(start))

	resp := gin.H{
		"ai_response": reply,
		"message":     assistantMsg,
	}
	if savedDiagram != nil {
		resp["diagram"] = savedDiagram
		resp["cost"] = costSummary
	}
	c.JSON(http.StatusOK, resp)
}

// GenerateCodeRequest selects the IaC flavor to generate
type GenerateCodeRequest struct {
	CodeType string `json:"code_type"`
}

var codeFileExt = map[string]string{
	"terraform": ".tf",
	"bicep":     ".bicep",
	"arm":       ".json",
}

var fileNameRe = regexp.MustCompile(`[^a-z0-9]+`)

func codeFileName(component string, ext string) string {
	name := fileNameRe.ReplaceAllString(strings.ToLower(component), "_")
	return strings.Trim(name, "_") + ext
}

// GenerateCode godoc
// @Summary Generate infrastructure code
// @Description Generate one IaC file per component of the current diagram
// @Tags codes
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body GenerateCodeRequest false "Code type (default terraform)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Security BearerAuth
// @Router /sessions/{id}/generate-code [post]
func (h *Handler) GenerateCode(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	var req GenerateCodeRequest
	_ = c.ShouldBindJSON(&req)
	if req.CodeType == "" {
		req.CodeType = "terraform"
	}
	ext, known := codeFileExt[req.CodeType]
	if !known {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unsupported code type %q", req.CodeType)})
		return
	}

	ctx := c.Request.Context()
	diagram, err := h.service.CurrentDiagram(ctx, sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get diagram"})
		return
	}
	if diagram == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session has no architecture diagram"})
		return
	}

	diagramID, err := uuid.Parse(diagram.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid diagram ID"})
		return
	}

	start := time.Now()
	h.metrics.RecordRunStarted(ctx, "generate_code")

	var files []*models.CodeFile
	for _, comp := range diagram.Components {
		code, err := h.pipeline.GenerateComponentCode(ctx, comp, req.CodeType, h.cfg.DefaultRegion)
		if err != nil {
			h.metrics.RecordRunFailed(ctx, "generate_code", "model_unavailable", time.Since(start))
			c.JSON(http.StatusBadGateway, gin.H{"error": "Code generation failed", "code": models.ErrCodeModelUnavailable})
			return
		}

		file, err := h.service.SaveCodeFile(ctx, sessionID, diagramID,
			req.CodeType, codeFileName(comp.Name, ext), code, string(comp.Type))
		if err != nil {
			h.metrics.RecordRunFailed(ctx, "generate_code", "persistence_error", time.Since(start))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save code file"})
			return
		}
		files = append(files, file)
	}

	if err := h.service.SetSessionStatus(ctx, sessionID, models.SessionStatusCodeGenerated); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update session status"})
		return
	}

	h.metrics.RecordRunCompleted(ctx, "generate_code", time.Since(start))
	c.JSON(http.StatusOK, gin.H{"files": files, "count": len(files)})
}

// ListCodes godoc
// @Summary List generated code
// @Description List all generated code files for a session
// @Tags codes
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /sessions/{id}/codes [get]
func (h *Handler) ListCodes(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	files, err := h.service.ListCodeFiles(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list code files"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"codes": files})
}

// GetCode godoc
// @Summary Get code file
// @Description Get one generated code file by ID
// @Tags codes
// @Produce json
// @Param id path string true "Code file ID"
// @Success 200 {object} models.CodeFile
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /codes/{id} [get]
func (h *Handler) GetCode(c *gin.Context) {
	codeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid code file ID"})
		return
	}

	file, err := h.service.GetCodeFile(c.Request.Context(), codeID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Code file not found"})
		return
	}
	c.JSON(http.StatusOK, file)
}

// Architect godoc
// @Summary Generate architecture
// @Description Stateless prompt to diagram, Terraform and cost estimate
// @Tags architect
// @Accept json
// @Produce json
// @Param request body models.ArchitectRequest true "Architecture request"
// @Success 200 {object} models.ArchitectResponse
// @Failure 400 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Security ApiKeyAuth
// @Router /architect [post]
func (h *Handler) Architect(c *gin.Context) {
	var req models.ArchitectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	ctx := c.Request.Context()
	start := time.Now()
	h.metrics.RecordRunStarted(ctx, "architect")

	resp, err := h.pipeline.GenerateArchitecture(ctx, req.AppName, req.Prompt, req.Region)
	if err != nil {
		h.metrics.RecordRunFailed(ctx, "architect", "model_unavailable", time.Since(start))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Architecture generation failed", "code": models.ErrCodeModelUnavailable})
		return
	}

	h.metrics.RecordRunCompleted(ctx, "architect", time.Since(start))
	c.JSON(http.StatusOK, resp)
}
