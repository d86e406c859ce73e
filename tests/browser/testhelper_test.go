//go:build browser

package browser_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	web "kinesis/internal/adapters/http"
	"kinesis/internal/adapters/storage"
	accountStore "kinesis/internal/adapters/storage/account"
	assignmentStore "kinesis/internal/adapters/storage/assignment"
	outboxStore "kinesis/internal/adapters/storage/outbox"
	planStore "kinesis/internal/adapters/storage/plan"
	"kinesis/internal/application/orchestrators"
)

const (
	trainerPassword = "TestPass123!"
	clientPassword  = "ClientPass1"
)

// testApp holds the running test server and Playwright handles.
type testApp struct {
	BaseURL string
	DB      *sql.DB
	Server  *http.Server
	PW      *playwright.Playwright
	Browser playwright.Browser
	Stores  *web.Stores
}

// newTestApp wires the full service over a temp SQLite DB, seeds a trainer
// and one client, and starts an HTTP server and a headless Chromium.
func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ctx := context.Background()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := storage.Open(ctx, storage.DialectSQLite, dbPath)
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}
	if err := storage.MigrateDB(db, storage.DialectSQLite); err != nil {
		t.Fatalf("failed to migrate test DB: %v", err)
	}

	timed := storage.NewTimedDB(db, storage.DialectSQLite, 0)
	acctStore := accountStore.NewSQLStore(timed)
	stores := &web.Stores{
		AccountStore:    acctStore,
		PlanStore:       planStore.NewSQLStore(timed),
		AssignmentStore: assignmentStore.NewSQLStore(timed),
		OutboxStore:     outboxStore.NewSQLStore(timed),
	}

	newID := func() string { return uuid.New().String() }
	if err := orchestrators.ExecuteSeedAdmin(ctx, orchestrators.SeedAdminInput{
		Username: "coach",
		Password: trainerPassword,
		Name:     "Coach",
	}, orchestrators.SeedAdminDeps{AccountStore: acctStore, GenerateID: newID, Now: time.Now}); err != nil {
		t.Fatalf("failed to seed trainer: %v", err)
	}
	if _, err := orchestrators.ExecuteCreateClientAccount(ctx, orchestrators.CreateClientAccountInput{
		Username: "alice",
		Name:     "Alice",
		Password: clientPassword,
	}, orchestrators.CreateClientAccountDeps{AccountStore: acctStore, GenerateID: newID, Now: time.Now}); err != nil {
		t.Fatalf("failed to seed client: %v", err)
	}

	web.RateLimitPerSecond = 1000
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	srv := &http.Server{
		Handler: web.NewMux(stores, web.Options{
			CSRFKey:        bytes.Repeat([]byte("b"), 32),
			LoginPerMinute: 1000,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			log.Printf("test server error: %v", err)
		}
	}()
	baseURL := "http://" + listener.Addr().String()

	pw, err := playwright.Run()
	if err != nil {
		t.Fatalf("failed to start Playwright: %v", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		t.Fatalf("failed to launch browser: %v", err)
	}

	t.Cleanup(func() {
		browser.Close()
		pw.Stop()
		srv.Close()
		db.Close()
	})

	return &testApp{
		BaseURL: baseURL,
		DB:      db,
		Server:  srv,
		PW:      pw,
		Browser: browser,
		Stores:  stores,
	}
}

// newPage opens a tab on the service origin so fetch calls carry its cookies.
// The API's CSP forbids scripts, so the page bypasses it.
func (a *testApp) newPage(t *testing.T) playwright.Page {
	t.Helper()
	page, err := a.Browser.NewPage(playwright.BrowserNewPageOptions{
		BypassCSP: playwright.Bool(true),
	})
	if err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	t.Cleanup(func() { page.Close() })
	if _, err := page.Goto(a.BaseURL + "/healthz"); err != nil {
		t.Fatalf("failed to open %s: %v", a.BaseURL, err)
	}
	return page
}

// apiResult is what fetchJSON returns from the page.
type apiResult struct {
	Status int
	Body   string
}

const fetchScript = `async ([method, path, body]) => {
	const res = await fetch(path, {
		method,
		credentials: "same-origin",
		headers: {"Content-Type": "application/json"},
		body: body === "" ? undefined : body,
	});
	return JSON.stringify({status: res.status, body: await res.text()});
}`

// fetchJSON runs fetch inside the page, so the browser's cookie jar carries
// the session.
func fetchJSON(t *testing.T, page playwright.Page, method, path, body string) apiResult {
	t.Helper()
	raw, err := page.Evaluate(fetchScript, []string{method, path, body})
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	s, ok := raw.(string)
	if !ok {
		t.Fatalf("%s %s: unexpected result %T", method, path, raw)
	}
	var res struct {
		Status int    `json:"status"`
		Body   string `json:"body"`
	}
	if err := json.Unmarshal([]byte(s), &res); err != nil {
		t.Fatalf("%s %s: decode result: %v", method, path, err)
	}
	return apiResult{Status: res.Status, Body: res.Body}
}

// login signs in from the page and fails the test unless it succeeds.
func login(t *testing.T, page playwright.Page, username, password string) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	if res := fetchJSON(t, page, "POST", "/login", string(body)); res.Status != http.StatusOK {
		t.Fatalf("login %s: got %d: %s", username, res.Status, res.Body)
	}
}
