package harvest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var testMCPImpl = &mcp.Implementation{Name: "moisson-test", Version: "0.1.0"}

func mcpSession(t *testing.T) *mcp.ClientSession {
	t.Helper()
	h := New(fastOptions(t, &fakeConv{}))
	srv := mcp.NewServer(testMCPImpl, nil)
	h.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func TestMCP_ProfileRecover(t *testing.T) {
	session := mcpSession(t)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name: "profile_recover",
		Arguments: map[string]any{
			"text": "noise before " + completeAnswer + " noise after",
		},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %v", result.Content)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}

	var resp struct {
		Confidence string `json:"confidence"`
		Profile    struct {
			What string `json:"What"`
		} `json:"profile"`
	}
	if err := json.Unmarshal([]byte(tc.Text), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Confidence != "complete" {
		t.Errorf("confidence = %q, want complete", resp.Confidence)
	}
	if resp.Profile.What == "" {
		t.Error("What section missing in recovered profile")
	}
}

func TestMCP_ProfileRecover_NoObject(t *testing.T) {
	session := mcpSession(t)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "profile_recover",
		Arguments: map[string]any{"text": "nothing to see here"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected a tool error for text without an object")
	}
}
