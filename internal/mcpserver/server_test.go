package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/vaultlens/internal/selection"
	"github.com/starford/vaultlens/internal/storage"
	"github.com/starford/vaultlens/internal/testutil"
	"github.com/starford/vaultlens/internal/viewservice"
)

func testServer(t *testing.T) (*Server, storage.Provider) {
	t.Helper()
	_, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	testutil.Seed(t, store, db, testutil.Now.Add(-time.Hour), map[string]string{
		"Daily/2026-10-20.md": "# Tue\n\n#work",
		"Daily/2026-09-02.md": "# Sep\n\n#work",
		"Work/plan.md":        "# Plan\n\n#work",
	})
	svc := testutil.Service(t, store, db, "Daily", selection.Options{Mode: selection.ModeDaily, TimeField: selection.FieldMTime})
	return New(svc), store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_selection":
		result, err = srv.listSelection(ctx, req)
	case "list_all_files":
		result, err = srv.listAllFiles(ctx, req)
	case "update_selection":
		result, err = srv.updateSelection(ctx, req)
	case "check_daily_note":
		result, err = srv.checkDailyNote(ctx, req)
	case "create_daily_note":
		result, err = srv.createDailyNote(ctx, req)
	case "read_note":
		result, err = srv.readNote(ctx, req)
	case "create_note":
		result, err = srv.createNote(ctx, req)
	case "get_note_contract":
		result, err = srv.getNoteContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

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

func selectionOf(t *testing.T, r *mcp.CallToolResult) viewservice.Snapshot {
	t.Helper()
	if r.IsError {
		t.Fatalf("tool error: %s", resultText(r))
	}
	var snap viewservice.Snapshot
	if err := json.Unmarshal([]byte(resultText(r)), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return snap
}

func TestListSelection(t *testing.T) {
	srv, _ := testServer(t)

	snap := selectionOf(t, callTool(t, srv, "list_selection", nil))
	if snap.Total != 2 || snap.Files[0].Path != "Daily/2026-10-20.md" {
		t.Errorf("selection = %+v", snap.Files)
	}
}

func TestUpdateSelection(t *testing.T) {
	srv, _ := testServer(t)

	snap := selectionOf(t, callTool(t, srv, "update_selection", map[string]interface{}{"time_range": "month"}))
	if snap.Total != 1 {
		t.Errorf("month selection = %+v, want only October", snap.Files)
	}

	snap = selectionOf(t, callTool(t, srv, "update_selection", map[string]interface{}{
		"time_range":   "custom",
		"custom_start": "2026-09-01",
		"custom_end":   "2026-09-02",
	}))
	if snap.Total != 1 || snap.Files[0].Path != "Daily/2026-09-02.md" {
		t.Errorf("custom selection = %+v", snap.Files)
	}

	snap = selectionOf(t, callTool(t, srv, "update_selection", map[string]interface{}{
		"mode": "tag", "target": "#work", "time_range": "all",
	}))
	if snap.Total != 3 {
		t.Errorf("tag selection = %+v, want 3 files", snap.Files)
	}

	all := selectionOf(t, callTool(t, srv, "list_all_files", nil))
	if all.Total != 3 {
		t.Errorf("all files = %d, want 3", all.Total)
	}
}

func TestUpdateSelection_Invalid(t *testing.T) {
	srv, _ := testServer(t)

	if r := callTool(t, srv, "update_selection", map[string]interface{}{"mode": "folder"}); !r.IsError {
		t.Error("folder mode without target should fail")
	}
	if r := callTool(t, srv, "update_selection", map[string]interface{}{"custom_start": "2026-09-01"}); !r.IsError {
		t.Error("custom_start alone should fail")
	}
	if r := callTool(t, srv, "update_selection", map[string]interface{}{"custom_start": "2026-09-05", "custom_end": "2026-09-01"}); !r.IsError {
		t.Error("inverted custom range should fail")
	}
}

func TestDailyNoteTools(t *testing.T) {
	srv, store := testServer(t)

	if text := resultText(callTool(t, srv, "check_daily_note", nil)); !strings.Contains(text, "does not exist") {
		t.Errorf("check = %q", text)
	}

	r := callTool(t, srv, "create_daily_note", nil)
	if r.IsError || resultText(r) != "created: Daily/2026-10-21.md" {
		t.Fatalf("create = %q", resultText(r))
	}
	if !store.Exists("Daily/2026-10-21.md") {
		t.Error("daily note not written")
	}

	if r := callTool(t, srv, "create_daily_note", nil); !r.IsError {
		t.Error("second create should fail")
	}
	if text := resultText(callTool(t, srv, "check_daily_note", nil)); text != "today's daily note exists" {
		t.Errorf("check after create = %q", text)
	}
}

func TestCreateAndReadNote(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_note", map[string]interface{}{
		"path":    "test.md",
		"content": "# Test\nHello",
	})
	if text := resultText(r); text != "created: test.md" {
		t.Errorf("create result = %q", text)
	}

	r = callTool(t, srv, "read_note", map[string]interface{}{"path": "test.md"})
	if text := resultText(r); text != "# Test\nHello" {
		t.Errorf("read result = %q", text)
	}

	r = callTool(t, srv, "create_note", map[string]interface{}{"path": "test.md", "content": "again"})
	if !r.IsError {
		t.Error("duplicate create should fail")
	}
}

func TestReadNoteMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_note", map[string]interface{}{"path": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestGetNoteContract(t *testing.T) {
	srv, _ := testServer(t)
	if text := resultText(callTool(t, srv, "get_note_contract", nil)); !strings.Contains(text, "Daily notes") {
		t.Error("contract should describe daily notes")
	}
}
