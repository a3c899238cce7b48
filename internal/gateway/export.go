package gateway

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/archgenie/cloud-architect/internal/export"
)

// ExportCodeZip godoc
// @Summary Export code archive
// @Description Download all generated code files of a session as a zip
// @Tags export
// @Produce application/zip
// @Param id path string true "Session ID"
// @Success 200 {file} binary
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /sessions/{id}/export/zip [get]
func (h *Handler) ExportCodeZip(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	files, err := h.service.ListCodeFiles(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list code files"})
		return
	}
	if len(files) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session has no generated code"})
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCodeZip(&buf, files); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build archive"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="infrastructure_%s.zip"`, sessionID))
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}

// ExportCostsCSV godoc
// @Summary Export cost breakdown
// @Description Download the current diagram's cost estimate as CSV
// @Tags export
// @Produce text/csv
// @Param id path string true "Session ID"
// @Param region query string false "Azure region"
// @Success 200 {file} binary
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /sessions/{id}/export/costs.csv [get]
func (h *Handler) ExportCostsCSV(c *gin.Context) {
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
		c.JSON(http.StatusNotFound, gin.H{"error": "Session has no architecture diagram"})
		return
	}

	summary := h.pipeline.EstimateDiagram(c.Request.Context(),
		diagram.Description, diagram.MermaidCode, c.Query("region"))

	var buf bytes.Buffer
	if err := export.WriteCostsCSV(&buf, summary); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build CSV"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="costs_%s.csv"`, sessionID))
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}
