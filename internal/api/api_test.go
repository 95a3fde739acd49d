package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/haldvik/othala/internal/audit"
	"github.com/haldvik/othala/internal/index"
	"github.com/haldvik/othala/internal/models"
	"github.com/haldvik/othala/internal/schema"
	"github.com/haldvik/othala/internal/storage"
)

// testEnv sets up a temp vault, SQLite index, service, and router.
// An initial audit is run and persisted unless skipAudit is true.
func testEnv(t *testing.T, files map[string]string, authToken string) http.Handler {
	t.Helper()
	return testEnvFull(t, files, authToken != "", authToken, false)
}

func testEnvFull(t *testing.T, files map[string]string, authEnabled bool, authToken string, skipAudit bool) http.Handler {
	t.Helper()

	vaultDir := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(vaultDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	store, err := storage.NewFS(vaultDir, ".md")
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}

	dbFile, err := os.CreateTemp("", "othala-api-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	auditor := audit.New(store, schema.Default(), 0, logger)

	if !skipAudit {
		res, err := auditor.Run()
		if err != nil {
			t.Fatalf("audit: %v", err)
		}
		if err := db.SaveResult(res); err != nil {
			t.Fatalf("SaveResult: %v", err)
		}
	}

	svc := NewService(db, auditor, nil)
	return NewRouter(svc, authEnabled, authToken, nil)
}

func doGet(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetReport(t *testing.T) {
	router := testEnv(t, map[string]string{
		"a.md": "# Alpha\n[[Beta]] and [[Missing]]\n",
		"b.md": "# Beta\n",
	}, "")

	w := doGet(t, router, "/report")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var report audit.Report
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.Totals.Notes != 2 || report.Totals.Dangling != 1 {
		t.Errorf("totals = %+v", report.Totals)
	}
}

func TestGetReport_NoneYet(t *testing.T) {
	router := testEnvFull(t, map[string]string{"a.md": "# A\n"}, false, "", true)

	w := doGet(t, router, "/report")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestListFindings_KindFilter(t *testing.T) {
	router := testEnv(t, map[string]string{
		"a.md": "# Alpha\n[[Missing]]\n",
		"b.md": "# Loner\n",
	}, "")

	w := doGet(t, router, "/findings?kind="+string(models.FindingDanglingLink))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Findings []models.Finding `json:"findings"`
		Total    int              `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Findings[0].Target != "Missing" {
		t.Errorf("findings = %+v", resp)
	}
}

func TestGraph(t *testing.T) {
	router := testEnv(t, map[string]string{
		"a.md": "# Alpha\n[[Beta]]\n",
		"b.md": "# Beta\n",
	}, "")

	w := doGet(t, router, "/graph")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Nodes []GraphNode `json:"nodes"`
		Links []GraphLink `json:"links"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Nodes) != 2 || len(resp.Links) != 1 {
		t.Errorf("graph = %+v", resp)
	}
	if resp.Links[0].Source != "a.md" || resp.Links[0].Target != "b.md" {
		t.Errorf("link = %+v", resp.Links[0])
	}
}

func TestGetNote_WithBacklinks(t *testing.T) {
	router := testEnv(t, map[string]string{
		"a.md": "# Alpha\n[[Beta]]\n",
		"b.md": "# Beta\nbody\n",
	}, "")

	w := doGet(t, router, "/notes/b.md")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var note NoteDetail
	if err := json.Unmarshal(w.Body.Bytes(), &note); err != nil {
		t.Fatal(err)
	}
	if note.Title != "Beta" {
		t.Errorf("title = %q", note.Title)
	}
	if len(note.Backlinks) != 1 || note.Backlinks[0] != "a.md" {
		t.Errorf("backlinks = %v", note.Backlinks)
	}
}

func TestGetNote_NotFound(t *testing.T) {
	router := testEnv(t, map[string]string{"a.md": "# A\n"}, "")

	w := doGet(t, router, "/notes/nope.md")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestSearch(t *testing.T) {
	router := testEnv(t, map[string]string{
		"a.md": "# Alpha\nunmistakable phrase\n",
		"b.md": "# Beta\nother\n",
	}, "")

	w := doGet(t, router, "/search?q=unmistakable")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Results []index.SearchResult `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != "a.md" {
		t.Errorf("results = %+v", resp.Results)
	}

	w = doGet(t, router, "/search")
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing q status = %d, want 400", w.Code)
	}
}

func TestRefresh(t *testing.T) {
	router := testEnvFull(t, map[string]string{"a.md": "# A\n"}, false, "", true)

	req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body = %s", w.Code, w.Body.String())
	}

	w2 := doGet(t, router, "/report")
	if w2.Code != http.StatusOK {
		t.Errorf("report after refresh = %d", w2.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	router := testEnv(t, map[string]string{"a.md": "# A\n"}, "secret")

	w := doGet(t, router, "/report")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/report", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/report", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token status = %d, want 200", w.Code)
	}
}
