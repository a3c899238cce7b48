// Command init-db creates the cloud-architect schema and seeds an admin user
// plus a sample session so the API is usable right after docker-compose up.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/archgenie/cloud-architect/internal/config"
)

const (
	// MinPasswordLength is the minimum password length requirement
	MinPasswordLength = 8
	// BcryptCost is the cost factor for bcrypt hashing (10 = ~100ms)
	BcryptCost = 10
)

var emailRegex = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

const schema = `
CREATE EXTENSION IF NOT EXISTS "uuid-ossp";

CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    hashed_password TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS chat_sessions (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    name TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'draft',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS chat_messages (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    session_id UUID NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
    message_type TEXT NOT NULL,
    content TEXT NOT NULL,
    message_order INT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (session_id, message_order)
);

CREATE TABLE IF NOT EXISTS architecture_diagrams (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    session_id UUID NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    mermaid_code TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    version INT NOT NULL,
    is_current BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (session_id, version)
);

CREATE UNIQUE INDEX IF NOT EXISTS one_current_diagram_per_session
    ON architecture_diagrams (session_id) WHERE is_current;

CREATE TABLE IF NOT EXISTS diagram_components (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    diagram_id UUID NOT NULL REFERENCES architecture_diagrams(id) ON DELETE CASCADE,
    component_name TEXT NOT NULL,
    component_type TEXT NOT NULL,
    cloud_provider TEXT NOT NULL,
    properties JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS infrastructure_code (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    session_id UUID NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
    diagram_id UUID NOT NULL REFERENCES architecture_diagrams(id) ON DELETE CASCADE,
    code_type TEXT NOT NULL,
    file_name TEXT NOT NULL,
    file_content TEXT NOT NULL,
    component_type TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_messages_session ON chat_messages (session_id, message_order);
CREATE INDEX IF NOT EXISTS idx_diagrams_session ON architecture_diagrams (session_id);
CREATE INDEX IF NOT EXISTS idx_code_session ON infrastructure_code (session_id, created_at DESC);
`

func main() {
	adminEmail := flag.String("admin-email", "admin@example.com", "Email of the seeded admin user")
	adminPassword := flag.String("admin-password", "", "Password of the seeded admin user (required, min 8 chars)")
	skipSample := flag.Bool("skip-sample", false, "Skip seeding the sample session")
	flag.Parse()

	if err := initTracer(); err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}

	if err := validateInputs(*adminEmail, *adminPassword); err != nil {
		log.Fatalf("Validation error: %v", err)
	}

	cfg := config.Load()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Connected to PostgreSQL database")

	if _, err := pool.Exec(ctx, schema); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}
	log.Println("Schema created")

	userID, err := seedAdmin(ctx, pool, *adminEmail, *adminPassword)
	if err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}
	log.Printf("Admin user ready: %s (%s)", *adminEmail, userID)

	if !*skipSample {
		sessionID, err := seedSampleSession(ctx, pool)
		if err != nil {
			log.Fatalf("Failed to seed sample session: %v", err)
		}
		log.Printf("Sample session ready: %s", sessionID)
	}
}

// validateInputs validates seed parameters
func validateInputs(email, password string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	}
	hasLetter := regexp.MustCompile(`[a-zA-Z]`).MatchString(password)
	hasNumber := regexp.MustCompile(`[0-9]`).MatchString(password)
	if !hasLetter || !hasNumber {
		return fmt.Errorf("password must contain at least one letter and one number")
	}
	return nil
}

// seedAdmin creates the admin user if it does not exist yet.
func seedAdmin(ctx context.Context, pool *pgxpool.Pool, email, password string) (string, error) {
	tracer := otel.Tracer("init-db")
	ctx, span := tracer.Start(ctx, "seed_admin")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))

	var existingID string
	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&existingID)
	if err == nil {
		return existingID, nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	var userID string
	err = pool.QueryRow(ctx, `
		INSERT INTO users (name, email, hashed_password)
		VALUES ('Administrator', $1, $2)
		RETURNING id
	`, email, string(hashedPassword)).Scan(&userID)
	if err != nil {
		return "", fmt.Errorf("failed to insert user: %w", err)
	}
	return userID, nil
}

// seedSampleSession creates one demo session with a first message so the
// frontend has something to show.
func seedSampleSession(ctx context.Context, pool *pgxpool.Pool) (string, error) {
	tracer := otel.Tracer("init-db")
	ctx, span := tracer.Start(ctx, "seed_sample_session")
	defer span.End()

	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM chat_sessions`).Scan(&count); err != nil {
		return "", fmt.Errorf("failed to count sessions: %w", err)
	}
	if count > 0 {
		return "(existing)", nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var sessionID string
	err = tx.QueryRow(ctx, `
		INSERT INTO chat_sessions (name, status) VALUES ('Sample 3-tier web app', 'draft')
		RETURNING id
	`).Scan(&sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to insert session: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO chat_messages (session_id, message_type, content, message_order)
		VALUES ($1, 'user', 'Design a 3-tier web app on Azure with App Service, SQL and a load balancer.', 1)
	`, sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to insert message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}
	return sessionID, nil
}

// initTracer initializes OpenTelemetry tracing
func initTracer() error {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(tp)

	return nil
}
