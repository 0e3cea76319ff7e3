package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"explog/internal/assetcache"
	"explog/internal/core"
	"explog/internal/interaction"
	applog "explog/internal/log"
	"explog/internal/services"
	"explog/internal/storage/memory"
)

type testEnv struct {
	srv   *Server
	repo  *services.ExpenseRepository
	store *memory.Store
	now   time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store: memory.New(),
		now:   time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return env.now }
	env.repo = services.NewExpenseRepository(env.store,
		services.WithClock(clock),
		services.WithLogger(applog.Discard()))
	ctrl := interaction.NewController(env.repo, 4*time.Second, clock)

	assets := assetcache.New("explog-test", fstest.MapFS{
		"app.js": {Data: []byte("// app")},
	}, nil)
	if err := assets.Install(context.Background(), []string{"app.js"}); err != nil {
		t.Fatal(err)
	}

	env.srv = NewServer(":0", Deps{
		Repo:       env.repo,
		Controller: ctrl,
		Assets:     assets,
		Location:   time.UTC,
		Clock:      clock,
		Logger:     applog.Discard(),
	})
	t.Cleanup(func() { env.srv.Shutdown(context.Background()) })
	return env
}

func (env *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (env *testEnv) add(t *testing.T, cents int64, note string) core.Expense {
	t.Helper()
	e, err := env.repo.Add(context.Background(), core.Money{Cents: cents}, note, core.Food)
	if err != nil {
		t.Fatal(err)
	}
	env.now = env.now.Add(time.Minute)
	return e
}

func TestIndexAndHealth(t *testing.T) {
	env := newTestEnv(t)
	env.add(t, 1250, "lunch")

	rr := env.do(http.MethodGet, "/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"March 2026", "$12.50", "lunch", "Today", `name="amount"`, "Entertainment"} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
	if rr.Header().Get(requestIDHeader) == "" {
		t.Error("request id header missing")
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := env.do(http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestIndexEmptyState(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(http.MethodGet, "/", "")
	if !strings.Contains(rr.Body.String(), "No expenses yet") {
		t.Error("empty state not rendered")
	}
	if !strings.Contains(rr.Body.String(), "$0.00") {
		t.Error("zero month total not rendered")
	}
}

func TestCreateExpenseValidationAndSuccess(t *testing.T) {
	env := newTestEnv(t)

	// Wrong method
	rr := env.do(http.MethodGet, "/expenses", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}

	tests := []struct {
		name string
		body string
	}{
		{"invalid amount", "amount=abc&category=food"},
		{"zero amount", "amount=0&category=food"},
		{"missing amount", "note=x&category=food"},
		{"unknown category", "amount=3&category=rent"},
		{"note too long", "amount=3&note=" + strings.Repeat("x", 201)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(http.MethodPost, "/expenses", tt.body)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Errorf("expected 422, got %d", rr.Code)
			}
		})
	}
	if env.repo.Len() != 0 {
		t.Fatalf("rejected submissions stored %d records", env.repo.Len())
	}

	rr = env.do(http.MethodPost, "/expenses", "amount=4,50&note=Coffee&category=food")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "Coffee") || !strings.Contains(rr.Body.String(), "$4.50") {
		t.Errorf("list partial missing new expense: %s", rr.Body.String())
	}
	trigger := rr.Header().Get("HX-Trigger")
	for _, ev := range []string{EventExpenseChanged, EventFormReset, EventShowToast} {
		if !strings.Contains(trigger, ev) {
			t.Errorf("HX-Trigger missing %s: %s", ev, trigger)
		}
	}
	if env.repo.Len() != 1 {
		t.Errorf("Len() = %d, want 1", env.repo.Len())
	}
}

func TestCreateExpenseJSON(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(`{"amount":"7.25","note":"Bus","category":"transport"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	list := env.repo.List()
	if len(list) != 1 || list[0].Category != core.Transport || list[0].Amount.Cents != 725 {
		t.Errorf("stored = %+v", list)
	}
}

func TestDeleteAndUndo(t *testing.T) {
	env := newTestEnv(t)
	c := env.add(t, 300, "c")
	b := env.add(t, 200, "b")
	env.add(t, 100, "a")

	rr := env.do(http.MethodDelete, "/expenses/"+b.ID, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), `data-id="`+b.ID+`"`) {
		t.Error("deleted expense still rendered")
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), `"undo":true`) {
		t.Errorf("delete toast without undo: %s", rr.Header().Get("HX-Trigger"))
	}

	rr = env.do(http.MethodPost, "/expenses/undo", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("undo status = %d", rr.Code)
	}
	list := env.repo.List()
	if len(list) != 3 || list[1].ID != b.ID {
		t.Errorf("after undo order = %v", list)
	}

	// POST fallback route
	rr = env.do(http.MethodPost, "/expenses/"+c.ID+"/delete", "")
	if rr.Code != http.StatusOK || env.repo.Len() != 2 {
		t.Errorf("POST delete status = %d, len = %d", rr.Code, env.repo.Len())
	}

	rr = env.do(http.MethodDelete, "/expenses/missing", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("delete missing status = %d, want 404", rr.Code)
	}
}

func TestUndoAfterWindow(t *testing.T) {
	env := newTestEnv(t)
	e := env.add(t, 100, "x")
	env.do(http.MethodDelete, "/expenses/"+e.ID, "")

	env.now = env.now.Add(10 * time.Second)
	rr := env.do(http.MethodPost, "/expenses/undo", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("undo status = %d", rr.Code)
	}
	if env.repo.Len() != 0 {
		t.Error("undo after window restored the expense")
	}
	if rr.Header().Get("HX-Trigger") != "" {
		t.Errorf("no-op undo sent triggers: %s", rr.Header().Get("HX-Trigger"))
	}
}

func TestPendingRemovalRoutes(t *testing.T) {
	env := newTestEnv(t)
	e := env.add(t, 100, "x")

	if rr := env.do(http.MethodPost, "/expenses/"+e.ID+"/pending", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("pending status = %d", rr.Code)
	}
	if rr := env.do(http.MethodPost, "/expenses/"+e.ID+"/present", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("present status = %d", rr.Code)
	}
	if rr := env.do(http.MethodPost, "/expenses/nope/pending", ""); rr.Code != http.StatusNotFound {
		t.Errorf("pending unknown status = %d", rr.Code)
	}
}

func TestExportCSV(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodGet, "/export.csv", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("empty export status = %d, want 404", rr.Code)
	}

	env.add(t, 1250, `say "hi"`)
	rr = env.do(http.MethodGet, "/export.csv", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("export status = %d", rr.Code)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "explog_2026-03-10.csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	want := "\xef\xbb\xbfDate,Time,Category,Note,Amount\n2026-03-10,12:00,Food,\"say \"\"hi\"\"\",12.50"
	if rr.Body.String() != want {
		t.Errorf("body = %q, want %q", rr.Body.String(), want)
	}
}

func TestMonthTotalPartial(t *testing.T) {
	env := newTestEnv(t)
	env.add(t, 1000, "a")
	env.add(t, 234, "b")

	rr := env.do(http.MethodGet, "/ui/month-total", "")
	if !strings.Contains(rr.Body.String(), "$12.34") {
		t.Errorf("month total partial = %q", rr.Body.String())
	}
}

func TestStaticServedFromAssetCache(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(http.MethodGet, "/static/app.js", "")
	if rr.Code != http.StatusOK || rr.Body.String() != "// app" {
		t.Fatalf("static = %d %q", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Asset-Cache") != "explog-test" {
		t.Error("static asset not served from cache")
	}
}

func TestReadyReportsStorageDegraded(t *testing.T) {
	env := newTestEnv(t)
	env.store.FailWrites(true)
	env.add(t, 100, "x")

	rr := env.do(http.MethodGet, "/readyz", "")
	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "degraded" {
		t.Errorf("status = %q, want degraded", body.Status)
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	env := newTestEnv(t)
	var last int
	for i := 0; i < rateLimitRequests+1; i++ {
		last = env.do(http.MethodPost, "/expenses/undo", "").Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("request %d status = %d, want 429", rateLimitRequests+1, last)
	}
	if rr := env.do(http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
		t.Errorf("GET limited: %d", rr.Code)
	}
}
