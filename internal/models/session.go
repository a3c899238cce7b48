package models

import (
	"time"

	"github.com/archgenie/cloud-architect/internal/components"
	"github.com/archgenie/cloud-architect/internal/cost"
)

// Session statuses
const (
	SessionStatusDraft         = "draft"
	SessionStatusFinalized     = "finalized"
	SessionStatusCodeGenerated = "code_generated"
)

// Message types
const (
	MessageTypeUser      = "user"
	MessageTypeAssistant = "assistant"
)

// Session represents one architecture design conversation.
type Session struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"session_name" db:"name"`
	Status       string    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
	MessageCount int       `json:"message_count"`
	DiagramCount int       `json:"diagram_count"`
}

// Message is one ordered turn in a session's conversation.
type Message struct {
	ID        string    `json:"id" db:"id"`
	SessionID string    `json:"session_id" db:"session_id"`
	Type      string    `json:"message_type" db:"message_type"`
	Content   string    `json:"content" db:"content"`
	Order     int       `json:"message_order" db:"message_order"`
	CreatedAt time.Time `json:"timestamp" db:"created_at"`
}

// Diagram is one versioned architecture diagram. Exactly one version per
// session is current at a time.
type Diagram struct {
	ID          string                        `json:"id" db:"id"`
	SessionID   string                        `json:"session_id" db:"session_id"`
	Name        string                        `json:"diagram_name" db:"name"`
	MermaidCode string                        `json:"mermaid_code" db:"mermaid_code"`
	Description string                        `json:"description" db:"description"`
	Version     int                           `json:"version" db:"version"`
	IsCurrent   bool                          `json:"is_current" db:"is_current"`
	CreatedAt   time.Time                     `json:"created_at" db:"created_at"`
	Components  []components.DiagramComponent `json:"components,omitempty"`
}

// CodeFile is one generated infrastructure-as-code file.
type CodeFile struct {
	ID            string    `json:"id" db:"id"`
	SessionID     string    `json:"session_id" db:"session_id"`
	DiagramID     string    `json:"diagram_id" db:"diagram_id"`
	CodeType      string    `json:"code_type" db:"code_type"`
	FileName      string    `json:"file_name" db:"file_name"`
	FileContent   string    `json:"file_content" db:"file_content"`
	ComponentType string    `json:"component_type" db:"component_type"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// ArchitectRequest is the stateless diagram+terraform generation request.
type ArchitectRequest struct {
	AppName string `json:"app_name"`
	Prompt  string `json:"prompt"`
	Region  string `json:"region"`
}

// ArchitectResponse is the sanitized diagram, Terraform and cost estimate
// produced for one architect request.
type ArchitectResponse struct {
	Diagram   string       `json:"diagram"`
	Terraform string       `json:"terraform"`
	Cost      cost.Summary `json:"cost"`
}

// GenerationEvent is one stage notification on the generation WebSocket.
type GenerationEvent struct {
	EventType string      `json:"event_type"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// Generation event types, in emission order.
const (
	EventMessageAccepted  = "message_accepted"
	EventModelResponded   = "model_responded"
	EventDiagramSanitized = "diagram_sanitized"
	EventComponentsFound  = "components_found"
	EventCostEstimated    = "cost_estimated"
	EventGenerationFailed = "generation_failed"
	EventDone             = "done"
)
