// Package gateway holds the HTTP handlers of the cloud-architect API.
package gateway

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/archgenie/cloud-architect/internal/auth"
	"github.com/archgenie/cloud-architect/internal/config"
	"github.com/archgenie/cloud-architect/internal/metrics"
	"github.com/archgenie/cloud-architect/internal/models"
	"github.com/archgenie/cloud-architect/internal/orchestration"
)

// Handler handles HTTP requests for the gateway layer
type Handler struct {
	service    *orchestration.Service
	pipeline   *orchestration.Pipeline
	jwtManager *auth.JWTManager
	pool       *pgxpool.Pool
	cfg        *config.Config
	metrics    *metrics.PipelineMetrics
}

// NewHandler creates a new gateway handler
func NewHandler(service *orchestration.Service, pipeline *orchestration.Pipeline, jwtManager *auth.JWTManager, pool *pgxpool.Pool, cfg *config.Config, pm *metrics.PipelineMetrics) *Handler {
	return &Handler{
		service:    service,
		pipeline:   pipeline,
		jwtManager: jwtManager,
		pool:       pool,
		cfg:        cfg,
		metrics:    pm,
	}
}

const tokenLifetime = 24 * time.Hour

// Login godoc
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login credentials"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var user models.User
	err := h.pool.QueryRow(c.Request.Context(),
		`SELECT id, name, email, hashed_password, created_at FROM users WHERE email = $1`,
		req.Email,
	).Scan(&user.ID, &user.Name, &user.Email, &user.HashedPassword, &user.CreatedAt)

	if err != nil {
		log.Printf(`{"level":"warn","message":"User not found","email":"%s"}`, req.Email)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		log.Printf(`{"level":"warn","message":"Invalid password","email":"%s"}`, req.Email)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token, err := h.jwtManager.GenerateToken(
		c.Request.Context(),
		user.ID,
		user.Email,
		[]string{"user"},
		tokenLifetime,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(tokenLifetime),
		User:      user.ToUserInfo(),
	})
}

// CurrentUser godoc
// @Summary Current user
// @Description Get the profile of the authenticated user
// @Tags auth
// @Produce json
// @Success 200 {object} models.UserInfo
// @Failure 401 {object} map[string]string
// @Security BearerAuth
// @Router /auth/me [get]
func (h *Handler) CurrentUser(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var user models.User
	err := h.pool.QueryRow(c.Request.Context(),
		`SELECT id, name, email, created_at FROM users WHERE id = $1`,
		userID,
	).Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, user.ToUserInfo())
}

// RefreshRequest carries the token to refresh.
type RefreshRequest struct {
	Token string `json:"token" binding:"required"`
}

// RefreshToken godoc
// @Summary Refresh token
// @Description Exchange a valid JWT for a fresh one
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Current token"
// @Success 200 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /auth/refresh [post]
func (h *Handler) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	token, err := h.jwtManager.RefreshToken(c.Request.Context(), req.Token, tokenLifetime)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// CreateSessionRequest represents a session creation request
type CreateSessionRequest struct {
	Name string `json:"session_name" binding:"required"`
}

// CreateSession godoc
// @Summary Create session
// @Description Create a new architecture design session
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body CreateSessionRequest true "Session details"
// @Success 201 {object} models.Session
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /sessions [post]
func (h *Handler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	session, err := h.service.CreateSession(c.Request.Context(), req.Name)
	if err != nil {
		log.Printf(`{"level":"error","message":"Failed to create session","error":"%v"}`, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}
	c.JSON(http.StatusCreated, session)
}

// ListSessions godoc
// @Summary List sessions
// @Description List all design sessions, most recently updated first
// @Tags sessions
// @Produce json
// @Success 200 {array} models.Session
// @Security BearerAuth
// @Router /sessions [get]
func (h *Handler) ListSessions(c *gin.Context) {
	sessions, err := h.service.ListSessions(c.Request.Context())
	if err != nil {
		log.Printf(`{"level":"error","message":"Failed to list sessions","error":"%v"}`, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sessions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// GetSession godoc
// @Summary Get session
// @Description Get one session with its messages and current diagram
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /sessions/{id} [get]
func (h *Handler) GetSession(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	session, err := h.service.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		if err == orchestration.ErrSessionNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get session"})
		return
	}

	messages, err := h.service.ListMessages(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get messages"})
		return
	}

	diagram, err := h.service.CurrentDiagram(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get diagram"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session":         session,
		"messages":        messages,
		"current_diagram": diagram,
	})
}

// FinalizeSession godoc
// @Summary Finalize session
// @Description Mark a session's architecture as finalized
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /sessions/{id}/finalize [post]
func (h *Handler) FinalizeSession(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	diagram, err := h.service.CurrentDiagram(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get diagram"})
		return
	}
	if diagram == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session has no architecture diagram to finalize"})
		return
	}

	if err := h.service.SetSessionStatus(c.Request.Context(), sessionID, models.SessionStatusFinalized); err != nil {
		if err == orchestration.ErrSessionNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to finalize session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "finalized", "diagram_id": diagram.ID})
}

// sessionID parses the :id path parameter, responding 400 itself on failure.
func (h *Handler) sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return uuid.Nil, false
	}
	return id, true
}
