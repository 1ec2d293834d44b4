package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/engine"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/llm"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/probe"
)

// Asker answers questions. *engine.AnswerEngine satisfies it.
type Asker interface {
	Process(ctx context.Context, question string) (*engine.FinalAnswer, error)
}

// Handlers binds the MCP tools to an engine and its catalog.
type Handlers struct {
	Engine  Asker
	Catalog *probe.Catalog
}

type askResponse struct {
	Answer     string                 `json:"answer"`
	Refusal    bool                   `json:"is_refusal"`
	Confidence engine.ConfidenceLevel `json:"confidence"`
	Scores     engine.AuditScores     `json:"scores"`
	Problems   []string               `json:"problems"`
	Citations  []string               `json:"citations"`
	Iterations int                    `json:"loop_iterations"`
	Source     engine.Source          `json:"source"`
	RunID      string                 `json:"run_id"`
}

// HandleAsk implements the anna/ask MCP tool.
func (h *Handlers) HandleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	q, _ := args["question"].(string)
	if strings.TrimSpace(q) == "" {
		return errorResult("question argument is required"), nil
	}

	ans, err := h.Engine.Process(ctx, q)
	if err != nil {
		return errorResult(fmt.Sprintf("answer engine: %s", err)), nil
	}

	resp := askResponse{
		Answer:     ans.Answer,
		Refusal:    ans.IsRefusal,
		Confidence: ans.Confidence,
		Scores:     ans.Scores,
		Problems:   ans.Problems,
		Citations:  make([]string, 0, len(ans.Citations)),
		Iterations: ans.LoopIterations,
		Source:     ans.Source,
		RunID:      ans.RunID,
	}
	for _, c := range ans.Citations {
		resp.Citations = append(resp.Citations, c.ProbeID)
	}
	data, _ := json.MarshalIndent(resp, "", "  ")

	// A refusal is a valid answer, not a tool failure.
	return textResult(string(data)), nil
}

// HandleProbes implements the anna/probes MCP tool.
func (h *Handlers) HandleProbes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.Catalog == nil {
		return errorResult("no probe catalog loaded"), nil
	}
	type entry struct {
		ID      string `json:"id"`
		Label   string `json:"label"`
		Command string `json:"command"`
	}
	out := make([]entry, 0, h.Catalog.Len())
	for _, p := range h.Catalog.Probes() {
		out = append(out, entry{ID: p.ID, Label: p.Label, Command: p.CommandText()})
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	return textResult(string(data)), nil
}

// HandleSchema implements the anna/schema MCP tool.
func HandleSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	schemaType, _ := args["type"].(string)

	var data []byte
	var err error

	switch schemaType {
	case "junior":
		data, err = llm.GenerateJuniorSchema()
	case "senior":
		data, err = llm.GenerateSeniorSchema()
	case "catalog":
		data, err = probe.GenerateCatalogSchema()
	default:
		return errorResult(fmt.Sprintf("unknown schema type %q: use 'junior', 'senior' or 'catalog'", schemaType)), nil
	}

	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(msg),
		},
		IsError: true,
	}
}
