package orchestration

import (
	"context"
	"fmt"
	"log"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/archgenie/cloud-architect/internal/components"
	"github.com/archgenie/cloud-architect/internal/config"
	"github.com/archgenie/cloud-architect/internal/cost"
	"github.com/archgenie/cloud-architect/internal/extract"
	"github.com/archgenie/cloud-architect/internal/llm"
	"github.com/archgenie/cloud-architect/internal/mermaid"
	"github.com/archgenie/cloud-architect/internal/models"
)

// Fallback payload returned when FAIL_OPEN is set and the model call or
// extraction fails. The frontend always gets something it can render.
const (
	fallbackDiagram = `flowchart TD
  A[Internet] -->|HTTPS| B[Azure Front Door];
  B -->|HTTPS| C[Azure Application Gateway];
  C -->|WAF| H[Web Application Firewall];
  C -->|HTTPS| D[Web Tier - Azure App Service];
  D -->|HTTPS| E[Application Tier - Azure App Service];
  E -->|TCP 1433| F[Azure SQL Database];
`
	fallbackTerraform = "# Terraform generation failed-open; check backend logs"
)

const architectSystemPrompt = `You are an Azure cloud architecture generator.
Return ONLY a single JSON object with keys:
{
  "diagram": "Mermaid code starting with: graph TD or flowchart TD",
  "terraform": "Valid Terraform HCL for Azure (resource group, app service plan, web apps, sql, etc.)"
}
Do not write explanations, backticks, or any other keys. JSON only.`

const chatSystemPrompt = `You are an expert Azure cloud architect assisting in an iterative design conversation.
Answer the user's question or refine the architecture as asked.
When the architecture changes, include the full updated Mermaid diagram in a fenced mermaid code block (flowchart TD).
Keep explanations short and concrete.`

// Pipeline runs the prompt -> model -> extract -> sanitize -> components ->
// cost chain.
type Pipeline struct {
	llm       *llm.Client
	estimator *cost.Estimator
	cfg       *config.Config
	tracer    trace.Tracer
}

// NewPipeline creates the generation pipeline.
func NewPipeline(llmClient *llm.Client, estimator *cost.Estimator, cfg *config.Config) *Pipeline {
	return &Pipeline{
		llm:       llmClient,
		estimator: estimator,
		cfg:       cfg,
		tracer:    otel.Tracer("generation-pipeline"),
	}
}

// GenerateArchitecture produces a sanitized diagram, Terraform and a cost
// estimate for one stateless request. When FAIL_OPEN is enabled a model or
// extraction failure degrades to the fixed fallback pair instead of an error.
func (p *Pipeline) GenerateArchitecture(ctx context.Context, appName, prompt, region string) (*models.ArchitectResponse, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.generate_architecture")
	defer span.End()

	if appName == "" {
		appName = "3-tier web app"
	}
	if region == "" {
		region = p.cfg.DefaultRegion
	}
	span.SetAttributes(
		attribute.String("app_name", appName),
		attribute.String("region", region),
	)

	user := fmt.Sprintf(
		"Create an Azure architecture for: %s.\nExtra requirements: %s\nRegion: %s\nOutput JSON only.",
		appName, prompt, region)

	diagram, terraform, err := p.generateDiagramTF(ctx, user)
	if err != nil {
		if !p.cfg.FailOpen {
			span.RecordError(err)
			return nil, err
		}
		log.Printf(`{"level":"warn","component":"pipeline","msg":"generation failed open","error":%q}`, err.Error())
		diagram = mermaid.Sanitize(fallbackDiagram)
		terraform = fallbackTerraform
	}

	ask := prompt
	if ask == "" {
		ask = appName
	}
	records := components.Normalize(ask, diagram, terraform, region)
	summary := p.estimator.Estimate(ctx, records)
	span.SetAttributes(attribute.Int("components", len(records)))

	return &models.ArchitectResponse{
		Diagram:   diagram,
		Terraform: terraform,
		Cost:      summary,
	}, nil
}

func (p *Pipeline) generateDiagramTF(ctx context.Context, user string) (string, string, error) {
	content, err := p.llm.Chat(ctx, []llm.Message{
		{Role: "system", Content: architectSystemPrompt},
		{Role: "user", Content: user},
	}, 0.2, 0)
	if err != nil {
		return "", "", err
	}

	payload := extract.FromContent(content)
	if strings.TrimSpace(payload.Diagram) == "" || strings.TrimSpace(payload.Terraform) == "" {
		return "", "", fmt.Errorf("model response missing diagram or terraform")
	}
	return mermaid.Sanitize(payload.Diagram), extract.StripFences(payload.Terraform), nil
}

// Respond runs one conversational turn: the last messages of the session plus
// the new user message. The returned diagram is empty when the reply carries
// no mermaid block.
func (p *Pipeline) Respond(ctx context.Context, history []*models.Message, userContent string) (reply, diagram string, err error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.respond")
	defer span.End()
	span.SetAttributes(attribute.Int("history", len(history)))

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: chatSystemPrompt})
	for _, msg := range history {
		role := "user"
		if msg.Type == models.MessageTypeAssistant {
			role = "assistant"
		}
		messages = append(messages, llm.Message{Role: role, Content: msg.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: userContent})

	reply, err = p.llm.Chat(ctx, messages, 0.7, 2000)
	if err != nil {
		span.RecordError(err)
		return "", "", fmt.Errorf("chat turn failed: %w", err)
	}

	payload := extract.FromContent(reply)
	if strings.TrimSpace(payload.Diagram) != "" {
		diagram = mermaid.Sanitize(payload.Diagram)
	}
	return reply, diagram, nil
}

// GenerateComponentCode asks the model for one infrastructure-as-code file
// for a single component. The result is fence-stripped raw code.
func (p *Pipeline) GenerateComponentCode(ctx context.Context, comp components.DiagramComponent, codeType, region string) (string, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.generate_component_code")
	defer span.End()
	span.SetAttributes(
		attribute.String("component", comp.Name),
		attribute.String("code_type", codeType),
	)

	system := fmt.Sprintf(
		"You are an infrastructure-as-code generator. Produce a complete, valid %s file for a single Azure component. Output only the code, no explanations and no backticks.",
		codeType)
	user := fmt.Sprintf(
		"Component: %s\nType: %s\nProvider: %s\nRegion: %s\nGenerate the %s definition for this component.",
		comp.Name, comp.Type, comp.Provider, region, codeType)

	content, err := p.llm.Chat(ctx, []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}, 0.2, 2000)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("code generation failed for %s: %w", comp.Name, err)
	}
	return extract.StripFences(content), nil
}

// FallbackResponse returns the canned reply and reference diagram used when
// a conversational turn fails open.
func (p *Pipeline) FallbackResponse() (reply, diagram string) {
	reply = "The architecture model is temporarily unavailable; showing a reference 3-tier Azure layout instead. Ask again to retry."
	return reply, mermaid.Sanitize(fallbackDiagram)
}

// EstimateDiagram prices the components of a sanitized diagram.
func (p *Pipeline) EstimateDiagram(ctx context.Context, ask, diagram, region string) cost.Summary {
	if region == "" {
		region = p.cfg.DefaultRegion
	}
	records := components.Normalize(ask, diagram, "", region)
	return p.estimator.Estimate(ctx, records)
}
