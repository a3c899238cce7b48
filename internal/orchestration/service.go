// Package orchestration owns session persistence and the generation
// pipeline that turns a user prompt into a diagram, components and a cost
// estimate.
package orchestration

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/archgenie/cloud-architect/internal/components"
	"github.com/archgenie/cloud-architect/internal/models"
)

// ErrSessionNotFound is returned when a session ID has no row.
var ErrSessionNotFound = fmt.Errorf("session not found")

// Service handles session, message, diagram and code persistence.
type Service struct {
	pool *pgxpool.Pool
}

// NewService creates a new orchestration service.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// CreateSession creates a new chat session.
func (s *Service) CreateSession(ctx context.Context, name string) (*models.Session, error) {
	var session models.Session
	err := s.pool.QueryRow(ctx,
		`INSERT INTO chat_sessions (name, status)
		 VALUES ($1, 'draft')
		 RETURNING id, name, status, created_at, updated_at`,
		name,
	).Scan(&session.ID, &session.Name, &session.Status, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &session, nil
}

// GetSession retrieves a session with its message and diagram counts.
func (s *Service) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	var session models.Session
	err := s.pool.QueryRow(ctx, `
		SELECT s.id, s.name, s.status, s.created_at, s.updated_at,
		       (SELECT COUNT(*) FROM chat_messages m WHERE m.session_id = s.id),
		       (SELECT COUNT(*) FROM architecture_diagrams d WHERE d.session_id = s.id)
		FROM chat_sessions s
		WHERE s.id = $1
	`, sessionID).Scan(
		&session.ID, &session.Name, &session.Status,
		&session.CreatedAt, &session.UpdatedAt,
		&session.MessageCount, &session.DiagramCount,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// ListSessions returns all sessions, most recently updated first.
func (s *Service) ListSessions(ctx context.Context) ([]*models.Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.name, s.status, s.created_at, s.updated_at,
		       (SELECT COUNT(*) FROM chat_messages m WHERE m.session_id = s.id),
		       (SELECT COUNT(*) FROM architecture_diagrams d WHERE d.session_id = s.id)
		FROM chat_sessions s
		ORDER BY s.updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		var session models.Session
		err := rows.Scan(
			&session.ID, &session.Name, &session.Status,
			&session.CreatedAt, &session.UpdatedAt,
			&session.MessageCount, &session.DiagramCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, &session)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return sessions, nil
}

// SetSessionStatus updates a session's status and touches its timestamp.
func (s *Service) SetSessionStatus(ctx context.Context, sessionID uuid.UUID, status string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE chat_sessions SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// AppendMessage stores the next ordered message in a session.
func (s *Service) AppendMessage(ctx context.Context, sessionID uuid.UUID, messageType, content string) (*models.Message, error) {
	var msg models.Message
	err := s.pool.QueryRow(ctx, `
		INSERT INTO chat_messages (session_id, message_type, content, message_order)
		VALUES ($1, $2, $3,
			(SELECT COALESCE(MAX(message_order), 0) + 1 FROM chat_messages WHERE session_id = $1))
		RETURNING id, session_id, message_type, content, message_order, created_at
	`, sessionID, messageType, content).Scan(
		&msg.ID, &msg.SessionID, &msg.Type, &msg.Content, &msg.Order, &msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`UPDATE chat_sessions SET updated_at = NOW() WHERE id = $1`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to touch session: %w", err)
	}
	return &msg, nil
}

// ListMessages returns all messages in a session in conversation order.
func (s *Service) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]*models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, message_type, content, message_order, created_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY message_order
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var msg models.Message
		err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Type, &msg.Content, &msg.Order, &msg.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}

// RecentMessages returns the last limit messages of a session in order. Used
// as the model's conversation window.
func (s *Service) RecentMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.Message, error) {
	messages, err := s.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

// SaveDiagramVersion stores a new diagram version as current, flipping the
// earlier versions off, and persists its extracted components. The flip and
// insert run in one transaction so exactly one version is ever current.
func (s *Service) SaveDiagramVersion(ctx context.Context, sessionID uuid.UUID, mermaidCode, description string, comps []components.DiagramComponent) (*models.Diagram, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE architecture_diagrams SET is_current = FALSE WHERE session_id = $1`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to clear current diagram: %w", err)
	}

	var version int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM architecture_diagrams WHERE session_id = $1`,
		sessionID,
	).Scan(&version)
	if err != nil {
		return nil, fmt.Errorf("failed to compute next version: %w", err)
	}

	if len(description) > 1000 {
		description = description[:1000]
	}

	var diagram models.Diagram
	err = tx.QueryRow(ctx, `
		INSERT INTO architecture_diagrams (session_id, name, mermaid_code, description, version, is_current)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING id, session_id, name, mermaid_code, description, version, is_current, created_at
	`, sessionID, fmt.Sprintf("Architecture v%d", version), mermaidCode, description, version).Scan(
		&diagram.ID, &diagram.SessionID, &diagram.Name, &diagram.MermaidCode,
		&diagram.Description, &diagram.Version, &diagram.IsCurrent, &diagram.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert diagram: %w", err)
	}

	props, _ := json.Marshal(map[string]interface{}{
		"auto_detected": true,
		"source":        "mermaid",
	})
	for _, comp := range comps {
		_, err = tx.Exec(ctx, `
			INSERT INTO diagram_components (diagram_id, component_name, component_type, cloud_provider, properties)
			VALUES ($1, $2, $3, $4, $5)
		`, diagram.ID, comp.Name, string(comp.Type), string(comp.Provider), props)
		if err != nil {
			return nil, fmt.Errorf("failed to insert component %s: %w", comp.Name, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit diagram version: %w", err)
	}

	diagram.Components = comps
	return &diagram, nil
}

// CurrentDiagram returns the session's current diagram version, or nil when
// the session has no diagram yet.
func (s *Service) CurrentDiagram(ctx context.Context, sessionID uuid.UUID) (*models.Diagram, error) {
	var diagram models.Diagram
	err := s.pool.QueryRow(ctx, `
		SELECT id, session_id, name, mermaid_code, description, version, is_current, created_at
		FROM architecture_diagrams
		WHERE session_id = $1 AND is_current = TRUE
	`, sessionID).Scan(
		&diagram.ID, &diagram.SessionID, &diagram.Name, &diagram.MermaidCode,
		&diagram.Description, &diagram.Version, &diagram.IsCurrent, &diagram.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get current diagram: %w", err)
	}

	diagramID, err := uuid.Parse(diagram.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid diagram id: %w", err)
	}
	comps, err := s.DiagramComponents(ctx, diagramID)
	if err != nil {
		return nil, err
	}
	diagram.Components = comps
	return &diagram, nil
}

// GetDiagram retrieves one diagram version by ID.
func (s *Service) GetDiagram(ctx context.Context, diagramID uuid.UUID) (*models.Diagram, error) {
	var diagram models.Diagram
	err := s.pool.QueryRow(ctx, `
		SELECT id, session_id, name, mermaid_code, description, version, is_current, created_at
		FROM architecture_diagrams
		WHERE id = $1
	`, diagramID).Scan(
		&diagram.ID, &diagram.SessionID, &diagram.Name, &diagram.MermaidCode,
		&diagram.Description, &diagram.Version, &diagram.IsCurrent, &diagram.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("diagram not found")
		}
		return nil, fmt.Errorf("failed to get diagram: %w", err)
	}

	comps, err := s.DiagramComponents(ctx, diagramID)
	if err != nil {
		return nil, err
	}
	diagram.Components = comps
	return &diagram, nil
}

// DiagramComponents lists the extracted components of one diagram version.
func (s *Service) DiagramComponents(ctx context.Context, diagramID uuid.UUID) ([]components.DiagramComponent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT component_name, component_type, cloud_provider
		FROM diagram_components
		WHERE diagram_id = $1
		ORDER BY component_name
	`, diagramID)
	if err != nil {
		return nil, fmt.Errorf("failed to query components: %w", err)
	}
	defer rows.Close()

	var comps []components.DiagramComponent
	for rows.Next() {
		var comp components.DiagramComponent
		var ctype, provider string
		if err := rows.Scan(&comp.Name, &ctype, &provider); err != nil {
			return nil, fmt.Errorf("failed to scan component: %w", err)
		}
		comp.Type = components.ComponentType(ctype)
		comp.Provider = components.CloudProvider(provider)
		comps = append(comps, comp)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating components: %w", err)
	}
	return comps, nil
}

// SaveCodeFile stores one generated infrastructure code file.
func (s *Service) SaveCodeFile(ctx context.Context, sessionID, diagramID uuid.UUID, codeType, fileName, fileContent, componentType string) (*models.CodeFile, error) {
	var file models.CodeFile
	err := s.pool.QueryRow(ctx, `
		INSERT INTO infrastructure_code (session_id, diagram_id, code_type, file_name, file_content, component_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, session_id, diagram_id, code_type, file_name, file_content, component_type, created_at
	`, sessionID, diagramID, codeType, fileName, fileContent, componentType).Scan(
		&file.ID, &file.SessionID, &file.DiagramID, &file.CodeType,
		&file.FileName, &file.FileContent, &file.ComponentType, &file.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save code file: %w", err)
	}
	return &file, nil
}

// ListCodeFiles returns all generated code files for a session, newest first.
func (s *Service) ListCodeFiles(ctx context.Context, sessionID uuid.UUID) ([]*models.CodeFile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, diagram_id, code_type, file_name, file_content, component_type, created_at
		FROM infrastructure_code
		WHERE session_id = $1
		ORDER BY created_at DESC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query code files: %w", err)
	}
	defer rows.Close()

	var files []*models.CodeFile
	for rows.Next() {
		var file models.CodeFile
		err := rows.Scan(
			&file.ID, &file.SessionID, &file.DiagramID, &file.CodeType,
			&file.FileName, &file.FileContent, &file.ComponentType, &file.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan code file: %w", err)
		}
		files = append(files, &file)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating code files: %w", err)
	}
	return files, nil
}

// GetCodeFile retrieves one generated code file by ID.
func (s *Service) GetCodeFile(ctx context.Context, codeID uuid.UUID) (*models.CodeFile, error) {
	var file models.CodeFile
	err := s.pool.QueryRow(ctx, `
		SELECT id, session_id, diagram_id, code_type, file_name, file_content, component_type, created_at
		FROM infrastructure_code
		WHERE id = $1
	`, codeID).Scan(
		&file.ID, &file.SessionID, &file.DiagramID, &file.CodeType,
		&file.FileName, &file.FileContent, &file.ComponentType, &file.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("code file not found")
		}
		return nil, fmt.Errorf("failed to get code file: %w", err)
	}
	return &file, nil
}
