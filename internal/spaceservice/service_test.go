package spaceservice

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/gtdspace/internal/apperr"
	"github.com/starford/gtdspace/internal/blocks"
	"github.com/starford/gtdspace/internal/checksum"
	"github.com/starford/gtdspace/internal/metadata"
	"github.com/starford/gtdspace/internal/models"
	"github.com/starford/gtdspace/internal/reconcile"
	"github.com/starford/gtdspace/internal/storage"
	"github.com/starford/gtdspace/internal/testutil"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) PublishDocumentEvent(op, path string, _ map[string]*metadata.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, op+":"+path)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

var fixed = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, storage.Provider, *recorder) {
	t.Helper()
	_, store := testutil.TestSpace(t)
	rec := &recorder{}
	svc := NewService(store, testutil.TestDB(t), metadata.NewRegistry(), reconcile.New(reconcile.WithCache(nil)),
		WithPublisher(rec), WithClock(func() time.Time { return fixed }))
	return svc, store, rec
}

const goal = "# Marathon\n\n## Status\n[!singleselect:goal-status:waiting]\n\n" +
	"## Areas References\n[!areas-references:[\"Areas of Focus/Health.md\"]]\n"

func TestCreateGetDelete(t *testing.T) {
	svc, _, rec := newService(t)
	ctx := context.Background()

	doc, err := svc.CreateDocument(ctx, "Goals/Marathon.md", []byte(goal))
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if doc.Kind != models.KindGoal || doc.Title != "Marathon" || doc.Status != "waiting" {
		t.Errorf("doc = %+v", doc)
	}
	if _, err := svc.CreateDocument(ctx, "Goals/Marathon.md", []byte(goal)); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate create err = %v", err)
	}

	area, err := svc.GetDocument(ctx, "Areas of Focus/Health.md")
	if !errors.Is(err, apperr.ErrNotFound) || area != nil {
		t.Errorf("missing document: %v", err)
	}
	_, _ = svc.CreateDocument(ctx, "Areas of Focus/Health.md", []byte("# Health\n"))
	area, err = svc.GetDocument(ctx, "Areas of Focus/Health.md")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Goals/Marathon.md"}, area.ReferencedBy); diff != "" {
		t.Errorf("referenced by (-want +got):\n%s", diff)
	}

	if err := svc.DeleteDocument(ctx, "Goals/Marathon.md"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if err := svc.DeleteDocument(ctx, "Goals/Marathon.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
	want := []string{"created:Goals/Marathon.md", "created:Areas of Focus/Health.md", "deleted:Goals/Marathon.md"}
	if diff := cmp.Diff(want, rec.all()); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

func TestInvalidPaths(t *testing.T) {
	svc, _, _ := newService(t)
	for _, p := range []string{"", "Goals/notes.txt", "../escape.md", ".git/x.md"} {
		if _, err := svc.GetDocument(context.Background(), p); !errors.Is(err, apperr.ErrInvalid) {
			t.Errorf("GetDocument(%q) err = %v, want ErrInvalid", p, err)
		}
	}
}

func TestSaveDocument_IfMatch(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	doc, _ := svc.CreateDocument(ctx, "Goals/Marathon.md", []byte(goal))

	if _, err := svc.SaveDocument(ctx, "Goals/Marathon.md", []byte("# Other\n"), "stale"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale If-Match err = %v", err)
	}
	saved, err := svc.SaveDocument(ctx, "Goals/Marathon.md", []byte("# Renamed\n"), `"`+doc.Checksum+`"`)
	if err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}
	if saved.Title != "Renamed" {
		t.Errorf("title = %q", saved.Title)
	}
	if _, err := svc.SaveDocument(ctx, "Goals/Missing.md", []byte("x"), ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing save err = %v", err)
	}
}

func TestBlocksRoundTrip(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	legacy := "# Run\n\n" + `<div data-singleselect='{"type":"habit-status","value":"complete"}' class="singleselect-block">Complete</div>` + "\n"
	_, _ = svc.CreateDocument(ctx, "Habits/Run.md", []byte(legacy))

	got, err := svc.GetBlocks(ctx, "Habits/Run.md")
	if err != nil {
		t.Fatalf("GetBlocks: %v", err)
	}
	if len(got.Blocks) != 2 || got.Blocks[1].Type != "checkbox" {
		t.Fatalf("blocks = %+v", got.Blocks)
	}
	if got.Checksum != checksum.Sum([]byte(legacy)) {
		t.Error("checksum does not match the file")
	}

	// Round-trip through JSON like an editor client would.
	raw, _ := json.Marshal(got.Blocks)
	var nodes []blocks.Node
	if err := json.Unmarshal(raw, &nodes); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SaveBlocks(ctx, "Habits/Run.md", nodes, got.Checksum); err != nil {
		t.Fatalf("SaveBlocks: %v", err)
	}
	data, _ := store.Read("Habits/Run.md")
	if !strings.Contains(string(data), "[!checkbox:habit-status:true]") || strings.Contains(string(data), "<div") {
		t.Errorf("saved markdown = %q", data)
	}
}

func TestSaveBlocks_UnchangedKeepsFile(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	content := "# Notes\n\n> - quoted\n> - list\n\n- item\n\n  ```\n  code\n  ```\n\nSee [docs][d].\n\n[d]: https://example.com\n"
	_, _ = svc.CreateDocument(ctx, "Cabinet/Notes.md", []byte(content))

	got, err := svc.GetBlocks(ctx, "Cabinet/Notes.md")
	if err != nil {
		t.Fatalf("GetBlocks: %v", err)
	}
	raw, _ := json.Marshal(got.Blocks)
	var nodes []blocks.Node
	if err := json.Unmarshal(raw, &nodes); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SaveBlocks(ctx, "Cabinet/Notes.md", nodes, got.Checksum); err != nil {
		t.Fatalf("SaveBlocks: %v", err)
	}
	data, _ := store.Read("Cabinet/Notes.md")
	if string(data) != content {
		t.Errorf("saved markdown:\n got %q\nwant %q", data, content)
	}
}

func TestUpdateField_HabitHistory(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	habit := "# Run\n\n## Status\n[!checkbox:habit-status:false]\n\n## History\n" +
		"| Date | Time | Status | Action | Notes |\n|------|------|--------|--------|-------|\n"
	_, _ = svc.CreateDocument(ctx, "Habits/Run.md", []byte(habit))

	u := FieldUpdate{Type: "checkbox", Props: map[string]any{"type": "habit-status", "checked": true}}
	doc, err := svc.UpdateField(ctx, "Habits/Run.md", u, "")
	if err != nil {
		t.Fatalf("UpdateField: %v", err)
	}
	if doc.Metadata.Get("habitStatus") != "true" {
		t.Errorf("habitStatus = %q", doc.Metadata.Get("habitStatus"))
	}
	data, _ := store.Read("Habits/Run.md")
	if !strings.Contains(string(data), "| 2025-03-01 | 9:30 AM | Complete | Manual | Changed from the editor |") {
		t.Errorf("history row missing:\n%s", data)
	}

	// Setting the same value again adds no row.
	before := string(data)
	if _, err := svc.UpdateField(ctx, "Habits/Run.md", u, ""); err != nil {
		t.Fatal(err)
	}
	data, _ = store.Read("Habits/Run.md")
	if string(data) != before {
		t.Errorf("no-op update changed the file:\n%s", data)
	}

	missing := FieldUpdate{Type: "singleselect", Props: map[string]any{"type": "effort", "value": "small"}}
	if _, err := svc.UpdateField(ctx, "Habits/Run.md", missing, ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing field err = %v", err)
	}
	if _, err := svc.UpdateField(ctx, "Habits/Run.md", FieldUpdate{Type: "paragraph"}, ""); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("bad type err = %v", err)
	}
}

func TestBuildDocument(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	preview, err := svc.BuildDocument(ctx, "goal", BuildRequest{Fields: json.RawMessage(`{"title":"Ship v1"}`)})
	if err != nil {
		t.Fatalf("BuildDocument: %v", err)
	}
	if preview.Path != "" || !strings.HasPrefix(preview.Content, "# Ship v1\n") {
		t.Errorf("preview = %+v", preview)
	}
	if ok, _ := store.Exists("Goals/ship-v1.md"); ok {
		t.Error("preview wrote a file")
	}

	for _, want := range []string{"Goals/ship-v1.md", "Goals/ship-v1-2.md"} {
		res, err := svc.BuildDocument(ctx, "goal", BuildRequest{Fields: json.RawMessage(`{"title":"Ship v1"}`), Write: true})
		if err != nil {
			t.Fatalf("BuildDocument write: %v", err)
		}
		if res.Path != want || res.Document == nil {
			t.Errorf("path = %q, want %q", res.Path, want)
		}
	}

	proj, err := svc.BuildDocument(ctx, "project", BuildRequest{Fields: json.RawMessage(`{"title":"Kitchen Remodel"}`), Write: true})
	if err != nil {
		t.Fatal(err)
	}
	if proj.Path != "Projects/kitchen-remodel/README.md" || proj.Document.Kind != models.KindProject {
		t.Errorf("project = %+v", proj)
	}

	// Rebuilding an existing document keeps its values.
	rebuilt, err := svc.BuildDocument(ctx, "goal", BuildRequest{Path: "Goals/ship-v1.md", Fields: json.RawMessage(`{"status":"done"}`), Write: true})
	if err != nil {
		t.Fatal(err)
	}
	if rebuilt.Document.Metadata.Get("goalStatus") != "completed" || rebuilt.Document.Title != "Ship v1" {
		t.Errorf("rebuilt = %+v", rebuilt.Document)
	}

	if _, err := svc.BuildDocument(ctx, "widget", BuildRequest{}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("unknown entity err = %v", err)
	}
	if _, err := svc.BuildDocument(ctx, "action", BuildRequest{Write: true}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("action without path err = %v", err)
	}
}

func TestListSearchReferences(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	_, _ = svc.CreateDocument(ctx, "Goals/Marathon.md", []byte(goal))
	_, _ = svc.CreateDocument(ctx, "Goals/Swim.md", []byte("# Swim\n\n[!singleselect:goal-status:completed]\n"))
	_, _ = svc.CreateDocument(ctx, "Habits/Run.md", []byte("# Run\n\nlong slow distance\n"))

	items, total, err := svc.ListDocuments(ctx, ListQuery{Kind: models.KindGoal, Status: "waiting"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || items[0].Path != "Goals/Marathon.md" {
		t.Errorf("list = %+v (%d)", items, total)
	}

	hits, err := svc.Search(ctx, "slow", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Path != "Habits/Run.md" {
		t.Errorf("search = %+v", hits)
	}

	refs, err := svc.References(ctx, "Areas of Focus/Health.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 1 || refs[0].Source != "Goals/Marathon.md" || refs[0].Field != "areasReferences" {
		t.Errorf("refs = %+v", refs)
	}
	none, _ := svc.References(ctx, "nothing.md")
	if none == nil {
		t.Error("References returned nil instead of an empty slice")
	}
}

func TestSyncExistingSpace(t *testing.T) {
	svc, store, _ := newService(t)
	testutil.WriteFiles(t, store, map[string]string{
		"Projects/Kitchen/README.md": "# Kitchen\n\n[!singleselect:project-status:waiting]\n",
		"Projects/Kitchen/Call.md":   "# Call plumber\n\n[!references:[\"Projects/Kitchen/README.md\"]]\n",
		"Areas of Focus/README.md":   "# Areas of Focus\n\n[!areas-list]\n",
	})
	if err := svc.Indexer().Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	items, total, err := svc.ListDocuments(context.Background(), ListQuery{})
	if err != nil {
		t.Fatal(err)
	}
	kinds := map[string]models.Kind{}
	for _, it := range items {
		kinds[it.Path] = it.Kind
	}
	want := map[string]models.Kind{
		"Areas of Focus/README.md":   models.KindHorizon,
		"Projects/Kitchen/Call.md":   models.KindAction,
		"Projects/Kitchen/README.md": models.KindProject,
	}
	if total != 3 {
		t.Errorf("total = %d", total)
	}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("kinds (-want +got):\n%s", diff)
	}

	doc, err := svc.GetDocument(context.Background(), "Projects/Kitchen/README.md")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Projects/Kitchen/Call.md"}, doc.ReferencedBy); diff != "" {
		t.Errorf("referenced by (-want +got):\n%s", diff)
	}
}

func TestInitSpace(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	res, err := svc.InitSpace(ctx, InitOptions{Examples: true})
	if err != nil {
		t.Fatalf("InitSpace: %v", err)
	}
	if len(res.Skipped) != 0 {
		t.Errorf("skipped on empty space: %v", res.Skipped)
	}
	for _, p := range []string{
		WelcomePath,
		"Purpose & Principles/README.md",
		"Habits/morning-review.md",
		"Projects/organize-home-office/README.md",
		"Projects/organize-home-office/clear-the-desk.md",
		"Someday Maybe/learn-a-new-language.md",
		"Cabinet/gtd-principles-reference.md",
	} {
		if ok, _ := store.Exists(p); !ok {
			t.Errorf("%s not written", p)
		}
	}

	habit, err := svc.GetDocument(ctx, "Habits/morning-review.md")
	if err != nil {
		t.Fatal(err)
	}
	if habit.Kind != models.KindHabit || habit.Metadata.Get("habitFrequency") != "daily" {
		t.Errorf("habit = %+v", habit.Metadata)
	}
	refs, err := svc.References(ctx, "Projects/organize-home-office/README.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 2 {
		t.Errorf("project references = %+v, want both actions", refs)
	}

	_ = store.Write(WelcomePath, []byte("# Mine\n"))
	again, err := svc.InitSpace(ctx, InitOptions{})
	if err != nil {
		t.Fatalf("second InitSpace: %v", err)
	}
	if len(again.Created) != 0 {
		t.Errorf("second run created %v", again.Created)
	}
	data, _ := store.Read(WelcomePath)
	if string(data) != "# Mine\n" {
		t.Errorf("existing document overwritten: %q", data)
	}
}
