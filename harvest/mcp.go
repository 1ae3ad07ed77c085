package harvest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/moisson/kit"
	"github.com/hazyhaar/moisson/profile"
)

// RegisterMCP registers the harvest tools on an MCP server.
func (h *Harvester) RegisterMCP(srv *mcp.Server) {
	h.registerHarvest(srv)
	h.registerRecover(srv)
}

// toolMiddleware tags every tool call with a request ID and logs its
// outcome.
func (h *Harvester) toolMiddleware(tool string) kit.Middleware {
	requestID := func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			if kit.GetRequestID(ctx) == "" {
				ctx = kit.WithRequestID(ctx, uuid.NewString())
			}
			return next(ctx, req)
		}
	}
	logging := func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			log := h.cfg.Logger.With("tool", tool,
				"request_id", kit.GetRequestID(ctx),
				"elapsed_ms", time.Since(start).Milliseconds())
			if err != nil {
				log.Warn("harvest: tool call failed", "error", err)
			} else {
				log.Info("harvest: tool call served")
			}
			return resp, err
		}
	}
	return kit.Chain(requestID, logging)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func (h *Harvester) registerHarvest(srv *mcp.Server) {
	type req struct {
		Ticker string `json:"ticker"`
	}

	tool := &mcp.Tool{
		Name:        "profile_harvest",
		Description: "Harvest a company profile for a stock ticker from the chat surface",
		InputSchema: inputSchema(map[string]any{
			"ticker": map[string]any{"type": "string", "description": "Stock ticker symbol"},
		}, []string{"ticker"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return h.Run(ctx, p.Ticker)
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p}, nil
	}

	kit.RegisterMCPTool(srv, tool, h.toolMiddleware(tool.Name)(endpoint), decode)
}

func (h *Harvester) registerRecover(srv *mcp.Server) {
	type req struct {
		Text string `json:"text"`
	}

	tool := &mcp.Tool{
		Name:        "profile_recover",
		Description: "Recover a profile JSON object from raw chat text without touching a browser",
		InputSchema: inputSchema(map[string]any{
			"text": map[string]any{"type": "string", "description": "Raw text to parse"},
		}, []string{"text"}),
	}

	endpoint := func(_ context.Context, r any) (any, error) {
		p := r.(*req)
		prof, ok := profile.Recover(p.Text)
		if !ok {
			return nil, errors.New("no profile object found in text")
		}
		return &Result{
			Confidence: prof.ConfidenceLevel(),
			Profile:    prof,
		}, nil
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p}, nil
	}

	kit.RegisterMCPTool(srv, tool, h.toolMiddleware(tool.Name)(endpoint), decode)
}
