package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vaultlens/internal/models"
	"github.com/starford/vaultlens/internal/selection"
	"github.com/starford/vaultlens/internal/storage"
	"github.com/starford/vaultlens/internal/testutil"
	"github.com/starford/vaultlens/internal/viewservice"
)

// testEnv sets up a temp vault, SQLite DB, service, and router for testing.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*viewservice.Service, http.Handler) {
	t.Helper()
	return testEnvWith(t, authToken != "", authToken, nil, selection.Options{Mode: selection.ModeDaily, TimeField: selection.FieldMTime})
}

func testEnvWith(t *testing.T, authEnabled bool, authToken string, sseHandler http.Handler, opts selection.Options) (*viewservice.Service, http.Handler) {
	t.Helper()
	svc, router, _ := testEnvWithStore(t, authEnabled, authToken, sseHandler, opts)
	return svc, router
}

func testEnvWithStore(t *testing.T, authEnabled bool, authToken string, sseHandler http.Handler, opts selection.Options) (*viewservice.Service, http.Handler, storage.Provider) {
	t.Helper()
	_, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	testutil.Seed(t, store, db, testutil.Now.Add(-24*time.Hour), map[string]string{
		"Daily/2026-10-19.md": "# Mon",
		"Daily/2026-10-20.md": "# Tue",
		"Projects/alpha.md":   "# Alpha",
	})
	svc := testutil.Service(t, store, db, "Daily", opts)
	return svc, NewRouter(svc, authEnabled, authToken, sseHandler), store
}

func do(router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeSelection(t *testing.T, w *httptest.ResponseRecorder) SelectionResponse {
	t.Helper()
	var resp SelectionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode selection: %v (body %s)", err, w.Body.String())
	}
	return resp
}

func TestGetSelection(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(router, http.MethodGet, "/selection", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decodeSelection(t, w)
	if resp.Total != 2 || resp.Files[0].Path != "Daily/2026-10-20.md" {
		t.Errorf("selection = %+v", resp.Files)
	}
	if resp.HasCurrentDayNote {
		t.Error("has_current_day_note should be false")
	}
	if resp.Options.Mode != selection.ModeDaily {
		t.Errorf("mode = %q", resp.Options.Mode)
	}
}

func TestUpdateOptions(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(router, http.MethodPatch, "/selection/options", map[string]string{"mode": "folder", "target": "Projects"})
	if w.Code != http.StatusOK {
		t.Fatalf("patch = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decodeSelection(t, w)
	if resp.Total != 1 || resp.Files[0].Path != "Projects/alpha.md" {
		t.Errorf("folder selection = %+v", resp.Files)
	}

	w = do(router, http.MethodGet, "/selection/all", nil)
	if all := decodeSelection(t, w); all.Total != 1 {
		t.Errorf("all files = %d, want 1", all.Total)
	}
}

func TestUpdateOptions_Invalid(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(router, http.MethodPatch, "/selection/options", map[string]string{"mode": "tag"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("tag mode without target = %d, want 400", w.Code)
	}

	w = do(router, http.MethodPatch, "/selection/options", map[string]string{"time_range": "fortnight"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown range = %d, want 400", w.Code)
	}

	req := httptest.NewRequest(http.MethodPatch, "/selection/options", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad json = %d, want 400", rec.Code)
	}
}

func TestCreateDailyNote(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(router, http.MethodGet, "/selection/daily", nil)
	var status DailyNoteStatus
	_ = json.Unmarshal(w.Body.Bytes(), &status)
	if status.Exists {
		t.Fatal("daily note should not exist yet")
	}

	w = do(router, http.MethodPost, "/selection/daily", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create daily = %d, body = %s", w.Code, w.Body.String())
	}
	var doc models.Document
	_ = json.Unmarshal(w.Body.Bytes(), &doc)
	if doc.Path != "Daily/2026-10-21.md" {
		t.Errorf("path = %q", doc.Path)
	}

	w = do(router, http.MethodPost, "/selection/daily", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("second create = %d, want 409", w.Code)
	}

	w = do(router, http.MethodPost, "/selection/refresh", nil)
	if resp := decodeSelection(t, w); !resp.HasCurrentDayNote || resp.Total != 3 {
		t.Errorf("after refresh = %+v", resp)
	}
}

func TestCreateDailyNote_UnindexedFileConflicts(t *testing.T) {
	_, router, store := testEnvWithStore(t, false, "", nil, selection.Options{Mode: selection.ModeDaily, TimeField: selection.FieldMTime})
	if err := store.Write("Daily/2026-10-21.md", []byte("# Wed")); err != nil {
		t.Fatal(err)
	}

	w := do(router, http.MethodPost, "/selection/daily", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("create daily over unindexed file = %d, want 409, body = %s", w.Code, w.Body.String())
	}
}

func TestCreateDailyNote_FolderMode(t *testing.T) {
	_, router := testEnvWith(t, false, "", nil, selection.Options{Mode: selection.ModeFolder, Target: "Projects"})

	w := do(router, http.MethodPost, "/selection/daily", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("create daily in folder mode = %d, want 409", w.Code)
	}
}

func TestCreateAndGetNote(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(router, http.MethodPost, "/notes", map[string]string{"path": "hello.md", "content": "# Hello\nWorld"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(router, http.MethodGet, "/notes/hello.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var note NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if note.Path != "hello.md" {
		t.Errorf("path = %q", note.Path)
	}
	if note.Title != "Hello" {
		t.Errorf("title = %q, want Hello", note.Title)
	}
}

func TestCreateDailyNoteThroughNotes(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(router, http.MethodPost, "/notes", map[string]string{"path": "Daily/2026-10-18.md", "content": "# Sun"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d", w.Code)
	}
	resp := decodeSelection(t, do(router, http.MethodGet, "/selection", nil))
	if resp.Total != 3 || resp.Files[2].Path != "Daily/2026-10-18.md" {
		t.Errorf("selection after create = %+v", resp.Files)
	}
}

func TestCreateDuplicate(t *testing.T) {
	_, router := testEnv(t, "")

	body := map[string]string{"path": "dup.md", "content": "a"}
	if w := do(router, http.MethodPost, "/notes", body); w.Code != http.StatusCreated {
		t.Fatalf("first create = %d", w.Code)
	}
	if w := do(router, http.MethodPost, "/notes", body); w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", w.Code)
	}
}

func TestUpdateWithOptimisticLocking(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(router, http.MethodPost, "/notes", map[string]string{"path": "lock.md", "content": "v1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d", w.Code)
	}
	var created NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &created)

	updateBody, _ := json.Marshal(map[string]string{"content": "v2"})
	req := httptest.NewRequest(http.MethodPut, "/notes/lock.md", bytes.NewReader(updateBody))
	req.Header.Set("If-Match", created.Checksum)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("update with correct checksum = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Stale checksum → 409.
	req = httptest.NewRequest(http.MethodPut, "/notes/lock.md", bytes.NewReader(updateBody))
	req.Header.Set("If-Match", `"`+created.Checksum+`"`)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("update with stale checksum = %d, want 409", rec.Code)
	}
}

func TestDeleteNote(t *testing.T) {
	_, router := testEnv(t, "")

	do(router, http.MethodPost, "/notes", map[string]string{"path": "bye.md", "content": "gone"})

	if w := do(router, http.MethodDelete, "/notes/bye.md", nil); w.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", w.Code)
	}
	if w := do(router, http.MethodGet, "/notes/bye.md", nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
	if w := do(router, http.MethodDelete, "/notes/bye.md", nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestDeleteDailyNote_EncodedPath(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(router, http.MethodDelete, "/notes/Daily%2F2026-10-20.md", nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decodeSelection(t, do(router, http.MethodGet, "/selection", nil))
	if resp.Total != 1 || resp.Files[0].Path != "Daily/2026-10-19.md" {
		t.Errorf("selection after delete = %+v", resp.Files)
	}
}

func TestUpdateNote_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(router, http.MethodPut, "/notes/ghost.md", map[string]string{"content": "x"}); w.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want 404", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/selection", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed get = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	if w := do(router, http.MethodGet, "/selection", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/selection", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

// SSE endpoint auth tests.

// sseStub writes headers and blocks until the request context is done.
var sseStub = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router := testEnvWith(t, true, "secret", sseStub, selection.Options{Mode: selection.ModeDaily})

	if w := do(router, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router := testEnvWith(t, true, "tok", sseStub, selection.Options{Mode: selection.ModeDaily})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

func TestNotePath_EncodedSlash(t *testing.T) {
	r := chi.NewRouter()
	var got string
	r.Get("/notes/*", func(w http.ResponseWriter, req *http.Request) { got = notePath(req) })
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/notes/Daily%2F2026-10-21.md", nil))
	if got != "Daily/2026-10-21.md" {
		t.Errorf("notePath = %q", got)
	}
}
