package mcpserver

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"stockade/internal/app/admin"
	"stockade/internal/jail"
	"stockade/internal/scheduler"
	"stockade/internal/tree"
	"stockade/internal/world"
)

type inlineLoop struct{}

func (inlineLoop) Call(_ context.Context, fn func()) error {
	fn()
	return nil
}

func newAdminService(t *testing.T) *admin.Service {
	t.Helper()
	w := world.New("world", map[string]world.Coordinate{"world": {World: "world", Y: 64}})
	reg := jail.NewRegistry(jail.Deps{
		Storage:   tree.NewStore(tree.NewMemoryBackend()),
		World:     w,
		Notifier:  w,
		Scheduler: scheduler.New(),
	}, jail.Options{})
	if err := reg.Start(context.Background()); err != nil {
		t.Fatalf("start registry: %v", err)
	}
	t.Cleanup(reg.Stop)
	return admin.NewService(reg, inlineLoop{}, nil)
}

func TestMCPServerToolsAndFlows(t *testing.T) {
	svc := newAdminService(t)
	ctx := context.Background()
	if _, err := svc.CreateFacility(ctx, "acme", "yard"); err != nil {
		t.Fatalf("create facility: %v", err)
	}
	if err := svc.AddPoint(ctx, "acme", "yard", "cell1", world.Coordinate{World: "world", X: 5, Y: 64, Z: 5}); err != nil {
		t.Fatalf("add point: %v", err)
	}

	httpSrv := httptest.NewServer(New(svc).Handler())
	defer httpSrv.Close()
	mcpClient, closeClient := newMCPClient(t, httpSrv.URL+"/mcp")
	defer closeClient()

	assertToolNames(t, mustListTools(t, mcpClient),
		"list_facilities",
		"list_prisoners",
		"imprison",
		"release",
		"prisoner_status",
	)

	facilities := mapFromStructured(t, mustCallTool(t, mcpClient, "list_facilities", map[string]any{}))
	if items, _ := facilities["items"].([]any); len(items) != 2 {
		t.Fatalf("facilities = %v, want root and acme/yard", facilities)
	}

	user := uuid.NewString()
	res := mustCallTool(t, mcpClient, "imprison", map[string]any{
		"user_id":          user,
		"owner":            "acme",
		"facility":         "yard",
		"duration_seconds": 300,
	})
	if res.IsError {
		t.Fatalf("imprison expected success, got: %v", res.StructuredContent)
	}
	if got := asString(mapFromStructured(t, res)["state"]); got != "active" {
		t.Fatalf("state = %q, want active", got)
	}

	prisoners := mapFromStructured(t, mustCallTool(t, mcpClient, "list_prisoners", map[string]any{}))
	if items, _ := prisoners["items"].([]any); len(items) != 1 {
		t.Fatalf("prisoners = %v, want 1", prisoners)
	}

	status := mapFromStructured(t, mustCallTool(t, mcpClient, "prisoner_status", map[string]any{"user_id": user}))
	if status["imprisoned"] != true {
		t.Fatalf("status = %v, want imprisoned", status)
	}

	if res := mustCallTool(t, mcpClient, "release", map[string]any{"user_id": user}); res.IsError {
		t.Fatalf("release expected success, got: %v", res.StructuredContent)
	}
	status = mapFromStructured(t, mustCallTool(t, mcpClient, "prisoner_status", map[string]any{"user_id": user}))
	if status["imprisoned"] != false {
		t.Fatalf("status after release = %v", status)
	}
}

func TestMCPServerToolErrors(t *testing.T) {
	httpSrv := httptest.NewServer(New(newAdminService(t)).Handler())
	defer httpSrv.Close()
	mcpClient, closeClient := newMCPClient(t, httpSrv.URL+"/mcp")
	defer closeClient()

	missing := mustCallTool(t, mcpClient, "imprison", map[string]any{"user_id": uuid.NewString()})
	assertToolErrorCode(t, missing, "invalid_request")

	tooLong := mustCallTool(t, mcpClient, "imprison", map[string]any{
		"user_id":          uuid.NewString(),
		"duration_seconds": 1e19,
	})
	assertToolErrorCode(t, tooLong, "invalid_request")

	badID := mustCallTool(t, mcpClient, "release", map[string]any{"user_id": "nope"})
	assertToolErrorCode(t, badID, "invalid_request")

	notPrisoner := mustCallTool(t, mcpClient, "release", map[string]any{"user_id": uuid.NewString()})
	assertToolErrorCode(t, notPrisoner, "prisoner_not_found")

	unknown := mustCallTool(t, mcpClient, "imprison", map[string]any{
		"user_id":          uuid.NewString(),
		"owner":            "nobody",
		"facility":         "nowhere",
		"duration_seconds": 10,
	})
	assertToolErrorCode(t, unknown, "facility_not_found")

	// The root facility starts without placement points or bounds.
	noPlacement := mustCallTool(t, mcpClient, "imprison", map[string]any{
		"user_id":          uuid.NewString(),
		"duration_seconds": 10,
	})
	assertToolErrorCode(t, noPlacement, "no_placement")
}

func newMCPClient(t *testing.T, endpoint string) (*client.Client, func()) {
	t.Helper()
	ctx := context.Background()
	trans, err := transport.NewStreamableHTTP(endpoint)
	if err != nil {
		t.Fatalf("new transport: %v", err)
	}
	if err := trans.Start(ctx); err != nil {
		t.Fatalf("transport start: %v", err)
	}
	c := client.NewClient(trans)
	_, err = c.Initialize(ctx, mcp.InitializeRequest{Params: mcp.InitializeParams{ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION}})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return c, func() { _ = trans.Close() }
}

func mustListTools(t *testing.T, c *client.Client) []mcp.Tool {
	t.Helper()
	res, err := c.ListTools(context.Background(), mcp.ListToolsRequest{})
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	return res.Tools
}

func assertToolNames(t *testing.T, tools []mcp.Tool, expected ...string) {
	t.Helper()
	got := make([]string, 0, len(tools))
	for _, tool := range tools {
		got = append(got, tool.Name)
	}
	sort.Strings(got)
	sort.Strings(expected)
	if len(got) != len(expected) {
		t.Fatalf("tool count mismatch got=%v expected=%v", got, expected)
	}
	for i := range got {
		if got[i] != expected[i] {
			t.Fatalf("tool list mismatch got=%v expected=%v", got, expected)
		}
	}
}

func mustCallTool(t *testing.T, c *client.Client, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := c.CallTool(context.Background(), mcp.CallToolRequest{Params: mcp.CallToolParams{Name: name, Arguments: args}})
	if err != nil {
		t.Fatalf("call tool %s: %v", name, err)
	}
	return res
}

func assertToolErrorCode(t *testing.T, res *mcp.CallToolResult, want string) {
	t.Helper()
	if !res.IsError {
		t.Fatalf("expected tool error %q, got success: %v", want, res.StructuredContent)
	}
	payload := mapFromStructured(t, res)
	errObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Fatalf("error payload missing 'error': %v", payload)
	}
	if got := asString(errObj["code"]); got != want {
		t.Fatalf("error code=%q want=%q payload=%v", got, want, payload)
	}
}

func mapFromStructured(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	b, err := json.Marshal(res.StructuredContent)
	if err != nil {
		t.Fatalf("marshal structured content: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal structured content: %v", err)
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
