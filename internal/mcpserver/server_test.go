package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/gtdspace/internal/metadata"
	"github.com/starford/gtdspace/internal/reconcile"
	"github.com/starford/gtdspace/internal/spaceservice"
	"github.com/starford/gtdspace/internal/storage"
	"github.com/starford/gtdspace/internal/testutil"
)

func testServer(t *testing.T) (*Server, storage.Provider) {
	t.Helper()
	_, store := testutil.TestSpace(t)
	svc := spaceservice.NewService(store, testutil.TestDB(t), metadata.NewRegistry(), reconcile.New())
	return New(svc), store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are called directly.
	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"search_documents":    srv.searchDocuments,
		"read_document":       srv.readDocument,
		"extract_metadata":    srv.extractMetadata,
		"list_documents":      srv.listDocuments,
		"find_references":     srv.findReferences,
		"build_document":      srv.buildDocument,
		"get_marker_contract": srv.getMarkerContract,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

const goal = "# Marathon\n\n## Status\n[!singleselect:goal-status:waiting]\n\n" +
	"## Areas References\n[!areas-references:[\"Areas of Focus/Health.md\"]]\n"

func seed(t *testing.T, srv *Server) {
	t.Helper()
	ctx := context.Background()
	if _, err := srv.svc.CreateDocument(ctx, "Goals/Marathon.md", []byte(goal)); err != nil {
		t.Fatal(err)
	}
	if _, err := srv.svc.CreateDocument(ctx, "Areas of Focus/Health.md", []byte("# Health\n\nstay fit\n")); err != nil {
		t.Fatal(err)
	}
}

func TestReadDocument(t *testing.T) {
	srv, _ := testServer(t)
	seed(t, srv)

	r := callTool(t, srv, "read_document", map[string]any{"path": "Areas of Focus/Health.md"})
	var doc struct {
		Title        string   `json:"title"`
		ReferencedBy []string `json:"referenced_by"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &doc); err != nil {
		t.Fatalf("read result: %v\n%s", err, resultText(r))
	}
	if doc.Title != "Health" || len(doc.ReferencedBy) != 1 || doc.ReferencedBy[0] != "Goals/Marathon.md" {
		t.Errorf("doc = %+v", doc)
	}

	r = callTool(t, srv, "read_document", map[string]any{"path": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing document")
	}
}

func TestExtractMetadata(t *testing.T) {
	srv, _ := testServer(t)
	seed(t, srv)

	r := callTool(t, srv, "extract_metadata", map[string]any{"content": "# T\n\n[!datetime:due_date:2025-01-02]\n"})
	if !strings.Contains(resultText(r), `"dueDate": "2025-01-02"`) {
		t.Errorf("extract from content = %s", resultText(r))
	}
	r = callTool(t, srv, "extract_metadata", map[string]any{"path": "Goals/Marathon.md"})
	if !strings.Contains(resultText(r), `"goalStatus": "waiting"`) {
		t.Errorf("extract from path = %s", resultText(r))
	}
	if r := callTool(t, srv, "extract_metadata", map[string]any{}); !r.IsError {
		t.Error("expected error without path or content")
	}
}

func TestListAndSearch(t *testing.T) {
	srv, _ := testServer(t)
	seed(t, srv)

	r := callTool(t, srv, "list_documents", map[string]any{"kind": "goal"})
	if !strings.Contains(resultText(r), "Goals/Marathon.md") || strings.Contains(resultText(r), "Health.md") {
		t.Errorf("list = %s", resultText(r))
	}
	r = callTool(t, srv, "search_documents", map[string]any{"query": "fit"})
	if !strings.Contains(resultText(r), "Areas of Focus/Health.md") {
		t.Errorf("search = %s", resultText(r))
	}
}

func TestFindReferences(t *testing.T) {
	srv, _ := testServer(t)
	seed(t, srv)

	r := callTool(t, srv, "find_references", map[string]any{"path": "Areas of Focus/Health.md"})
	if !strings.Contains(resultText(r), `"source": "Goals/Marathon.md"`) {
		t.Errorf("references = %s", resultText(r))
	}
	r = callTool(t, srv, "find_references", map[string]any{"path": "Goals/Marathon.md"})
	if resultText(r) != "no references found" {
		t.Errorf("references = %q", resultText(r))
	}
}

func TestBuildDocument(t *testing.T) {
	srv, store := testServer(t)

	r := callTool(t, srv, "build_document", map[string]any{"entity": "habit", "fields": `{"title":"Read"}`})
	if r.IsError || !strings.HasPrefix(resultText(r), "# Read\n") {
		t.Errorf("preview = %q", resultText(r))
	}

	r = callTool(t, srv, "build_document", map[string]any{"entity": "habit", "fields": `{"title":"Read"}`, "write": true})
	if !strings.HasPrefix(resultText(r), "written: Habits/read.md\n") {
		t.Errorf("write = %q", resultText(r))
	}
	if ok, _ := store.Exists("Habits/read.md"); !ok {
		t.Error("habit not written")
	}

	if r := callTool(t, srv, "build_document", map[string]any{"entity": "habit", "fields": "{"}); !r.IsError {
		t.Error("expected error for bad fields")
	}
}

func TestMarkerContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_marker_contract", nil)
	if !strings.Contains(resultText(r), "[!singleselect:<type>:<value>]") {
		t.Error("contract missing marker grammar")
	}

	contents, err := srv.readMarkerFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != markerFormatURI || tc.Text != MarkerFormatContract {
		t.Errorf("resource = %+v", contents[0])
	}
}

func TestServe(t *testing.T) {
	srv, _ := testServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	in := strings.NewReader(`{"jsonrpc":"2.0","id":7,"method":"ping"}` + "\n")
	if err := srv.Serve(ctx, in, &out); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if !strings.Contains(out.String(), `"id":7`) {
		t.Errorf("response = %q", out.String())
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	srv, _ := testServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, w := io.Pipe()
	defer w.Close()
	if err := srv.Serve(ctx, r, io.Discard); err != nil {
		t.Errorf("Serve after cancel = %v, want nil", err)
	}
}
