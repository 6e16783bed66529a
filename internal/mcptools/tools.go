// Package mcptools exposes the assessment engine as MCP tools so an AI
// assistant can walk a business owner through the questionnaire.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"bvester-assessment/internal/assessment"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewServer registers every assessment tool on a new MCP server.
func NewServer(engine *assessment.Engine, catalog *assessment.Catalog) *server.MCPServer {
	s := server.NewMCPServer(
		"bvester-assessment",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	catalogTool := NewCatalogTool(catalog)
	s.AddTool(catalogTool.Definition(), catalogTool.Handle)

	nextTool := NewNextQuestionTool(engine, catalog)
	s.AddTool(nextTool.Definition(), nextTool.Handle)

	evalTool := NewEvaluateTool(engine, catalog)
	s.AddTool(evalTool.Definition(), evalTool.Handle)

	return s
}

// intArg extracts an integer argument; JSON numbers arrive as float64.
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// answersArg decodes the answers_json argument. An empty string is an empty
// answer set.
func answersArg(req mcp.CallToolRequest) (assessment.Answers, error) {
	raw := strings.TrimSpace(req.GetString("answers_json", ""))
	if raw == "" {
		return assessment.Answers{}, nil
	}
	var answers assessment.Answers
	if err := json.Unmarshal([]byte(raw), &answers); err != nil {
		return nil, fmt.Errorf("answers_json is not a JSON object: %v", err)
	}
	if answers == nil {
		answers = assessment.Answers{}
	}
	return answers, nil
}

// ─── assessment_catalog ─────────────────────────────────────────────────────

type CatalogTool struct {
	catalog *assessment.Catalog
}

func NewCatalogTool(catalog *assessment.Catalog) *CatalogTool {
	return &CatalogTool{catalog: catalog}
}

func (t *CatalogTool) Definition() mcp.Tool {
	return mcp.NewTool("assessment_catalog",
		mcp.WithDescription(
			"List every question in the business health assessment with its id, type, "+
				"category and, for multiple-choice questions, the exact option texts to answer with.",
		),
	)
}

func (t *CatalogTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s (v%s)\n\n", t.catalog.Name, t.catalog.Version)
	for i, q := range t.catalog.Questions {
		writeQuestion(&sb, i, q)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func writeQuestion(sb *strings.Builder, index int, q assessment.Question) {
	fmt.Fprintf(sb, "%d. **%s** `%s` (%s, %s)\n", index, q.Text, q.ID, q.Type, q.Category)
	for _, opt := range q.Options {
		fmt.Fprintf(sb, "   - %s\n", opt.Text)
	}
}

// ─── assessment_next_question ───────────────────────────────────────────────

type NextQuestionTool struct {
	engine  *assessment.Engine
	catalog *assessment.Catalog
}

func NewNextQuestionTool(engine *assessment.Engine, catalog *assessment.Catalog) *NextQuestionTool {
	return &NextQuestionTool{engine: engine, catalog: catalog}
}

func (t *NextQuestionTool) Definition() mcp.Tool {
	return mcp.NewTool("assessment_next_question",
		mcp.WithDescription(
			"Return the next question to ask, skipping questions whose display conditions "+
				"are not met by the answers given so far.",
		),
		mcp.WithNumber("current_index",
			mcp.Description("Index of the question just answered; -1 before the first question"),
		),
		mcp.WithString("answers_json",
			mcp.Description(`Answers so far as a JSON object keyed by question id, e.g. {"cash_runway_days": "15-30 days - High risk"}`),
		),
	)
}

func (t *NextQuestionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	answers, err := answersArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	current := intArg(req, "current_index", -1)
	if current >= t.catalog.Len() {
		return mcp.NewToolResultError(fmt.Sprintf("current_index %d is past the last question (%d)", current, t.catalog.Len()-1)), nil
	}

	next := t.engine.NextQuestion(t.catalog, current, answers)
	if next >= t.catalog.Len() {
		return mcp.NewToolResultText("The assessment is complete. Call assessment_evaluate with the answers."), nil
	}

	var sb strings.Builder
	sb.WriteString("## Next question\n\n")
	writeQuestion(&sb, next, t.catalog.Questions[next])
	return mcp.NewToolResultText(sb.String()), nil
}

// ─── assessment_evaluate ────────────────────────────────────────────────────

type EvaluateTool struct {
	engine  *assessment.Engine
	catalog *assessment.Catalog
}

func NewEvaluateTool(engine *assessment.Engine, catalog *assessment.Catalog) *EvaluateTool {
	return &EvaluateTool{engine: engine, catalog: catalog}
}

func (t *EvaluateTool) Definition() mcp.Tool {
	return mcp.NewTool("assessment_evaluate",
		mcp.WithDescription(
			"Score a set of answers: category scores, compound risks, failure probabilities, "+
				"prioritised issues and next steps.",
		),
		mcp.WithString("answers_json",
			mcp.Required(),
			mcp.Description("Answers as a JSON object keyed by question id"),
		),
		mcp.WithString("format",
			mcp.Description("'markdown' (default) or 'json'"),
		),
	)
}

func (t *EvaluateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	answers, err := answersArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := t.engine.Evaluate(t.catalog, answers)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("evaluation failed: %v", err)), nil
	}

	if req.GetString("format", "markdown") == "json" {
		raw, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(raw)), nil
	}
	return mcp.NewToolResultText(RenderMarkdown(result)), nil
}

// RenderMarkdown formats a result for display in a chat transcript.
func RenderMarkdown(r *assessment.AssessmentResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Assessment result: %d/100 (%s)\n\n", r.OverallScore, r.RiskLevel)

	sb.WriteString("### Category scores\n\n")
	for _, c := range assessment.Categories {
		fmt.Fprintf(&sb, "- %s: %d\n", c, r.CategoryScores[c])
	}

	if len(r.CompoundRisks) > 0 {
		sb.WriteString("\n### Compound risks\n\n")
		for _, risk := range r.CompoundRisks {
			fmt.Fprintf(&sb, "- **%s** (%s, %.0f%%): %s\n", risk.Name, risk.Severity, risk.Probability*100, strings.Join(risk.Factors, "; "))
		}
	}

	p := r.Predictive
	fmt.Fprintf(&sb, "\n### Failure probability\n\n- 3 months: %.0f%%\n- 6 months: %.0f%%\n- 12 months: %.0f%%\n- Recovery: %s\n",
		p.ThreeMonthFailure*100, p.SixMonthFailure*100, p.TwelveMonthFailure*100, p.RecoveryTime)

	if len(r.Issues) > 0 {
		sb.WriteString("\n### Issues\n\n")
		for _, issue := range r.Issues {
			fmt.Fprintf(&sb, "- [%s] %s: %s\n", issue.Severity, issue.Title, issue.Solution)
		}
	}

	writeSteps(&sb, "Immediate", r.NextSteps.Immediate)
	writeSteps(&sb, "Short term", r.NextSteps.ShortTerm)
	writeSteps(&sb, "Strategic", r.NextSteps.Strategic)

	fmt.Fprintf(&sb, "\n### Funding readiness\n\n%d/100 (%s): %s\n",
		r.FundingReadiness.Score, r.FundingReadiness.Tier, r.FundingReadiness.Recommendation)
	fmt.Fprintf(&sb, "\nBenchmark: percentile %d (industry average %d, top performer %d)\n",
		r.Benchmark.Percentile, r.Benchmark.IndustryAverage, r.Benchmark.TopPerformer)
	return sb.String()
}

func writeSteps(sb *strings.Builder, title string, steps []string) {
	if len(steps) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n### %s\n\n", title)
	for _, s := range steps {
		fmt.Fprintf(sb, "- %s\n", s)
	}
}
