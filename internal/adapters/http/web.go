package web

import (
	"crypto/rand"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kinesis/internal/adapters/http/middleware"
	"kinesis/internal/adapters/identity"
	accountStore "kinesis/internal/adapters/storage/account"
	assignmentStore "kinesis/internal/adapters/storage/assignment"
	outboxStore "kinesis/internal/adapters/storage/outbox"
	planStore "kinesis/internal/adapters/storage/plan"
	"kinesis/internal/application/orchestrators"
	accountDomain "kinesis/internal/domain/account"
)

// Stores holds all storage dependencies.
type Stores struct {
	AccountStore    accountStore.Store
	PlanStore       planStore.Store
	AssignmentStore assignmentStore.Store
	OutboxStore     outboxStore.Store // nil disables notifications and events
}

// Options configures the HTTP surface.
type Options struct {
	Tokens         identity.Tokens      // empty Secret disables bearer tokens
	Provisioner    identity.Provisioner // nil skips external identity provisioning
	NotifyByEmail  bool
	PublishEvents  bool
	Outbox         *orchestrators.OutboxProcessor // nil disables the admin outbox actions
	CSRFKey        []byte
	SecureCookies  bool
	TrustedOrigins []string
	LoginPerMinute int
	SlowRequest    time.Duration
}

// loadCSRFKey returns the configured 32-byte key, or a random one for
// development.
func loadCSRFKey(key []byte) []byte {
	if len(key) == 32 {
		return key
	}
	if len(key) != 0 {
		log.Fatal("CSRF key must be 32 bytes")
	}
	key = make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("failed to generate CSRF key: %v", err)
	}
	log.Println("WARNING: using random CSRF key (form tokens won't survive restart). Set KINESIS_AUTH_CSRF_KEY for production.")
	return key
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global session store instance
var sessions *middleware.SessionStore

// Global draft registry instance
var drafts *DraftRegistry

// Global options (set by NewMux)
var settings Options

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 20

// timeNow is a variable for testability.
var timeNow = time.Now

// NewMux wires HTTP handlers for the app.
func NewMux(s *Stores, opts Options) http.Handler {
	stores = s
	settings = opts
	sessions = middleware.NewSessionStore()
	drafts = NewDraftRegistry()
	middleware.SecureCookies = opts.SecureCookies

	mux := http.NewServeMux()
	registerRoutes(mux)

	csrfKey := loadCSRFKey(opts.CSRFKey)
	limiter := middleware.NewRateLimiter(RateLimitPerSecond, time.Second)
	loginPerMinute := opts.LoginPerMinute
	if loginPerMinute <= 0 {
		loginPerMinute = 10
	}
	loginLimiter := middleware.NewRateLimiter(loginPerMinute, time.Minute)

	var resolve middleware.TokenResolver
	if opts.Tokens.Secret != "" {
		resolve = middleware.NewTokenResolver(opts.Tokens, s.AccountStore.GetByUsername)
	}

	// Request order: Timing -> RateLimit -> login limit -> SecurityHeaders -> CSRF -> Auth -> mux
	return middleware.Chain(middleware.Route(mux),
		middleware.Auth(sessions, resolve),
		middleware.CSRF(csrfKey, opts.SecureCookies, opts.TrustedOrigins),
		middleware.SecurityHeaders,
		middleware.LimitPath("/login", loginLimiter),
		middleware.RateLimit(limiter),
		middleware.Timing(opts.SlowRequest),
	)
}

func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /login", handleLogin)
	mux.HandleFunc("POST /logout", handleLogout)
	mux.HandleFunc("GET /api/me", handleMe)
	mux.Handle("POST /api/me/password", middleware.RequireAuth(http.HandlerFunc(handleChangePassword)))
	mux.HandleFunc("POST /api/token", handleToken)

	mux.HandleFunc("GET /api/exercises", handleExercises)
	mux.HandleFunc("/api/plans", handlePlans)
	mux.HandleFunc("/api/plans/{id}", handlePlan)
	mux.HandleFunc("POST /api/plans/{id}/edit", handleEditPlan)

	mux.HandleFunc("POST /api/drafts", handleNewDraft)
	mux.HandleFunc("/api/drafts/{handle}", handleDraft)
	mux.HandleFunc("POST /api/drafts/{handle}/days", handleDraftAddDay)
	mux.HandleFunc("POST /api/drafts/{handle}/switch", handleDraftSwitch)
	mux.HandleFunc("/api/drafts/{handle}/rows", handleDraftRows)
	mux.HandleFunc("DELETE /api/drafts/{handle}/rows/{index}", handleDraftRemoveRow)
	mux.HandleFunc("POST /api/drafts/{handle}/move", handleDraftMove)
	mux.HandleFunc("POST /api/drafts/{handle}/save", handleDraftSave)

	mux.HandleFunc("/api/clients", handleClients)
	mux.HandleFunc("DELETE /api/clients/{username}", handleDeleteClient)
	mux.HandleFunc("GET /api/clients/{username}/plans", handleClientPlans)
	mux.HandleFunc("POST /api/assignments", handleAssign)
	mux.Handle("GET /api/my/plans", middleware.RequireAuth(http.HandlerFunc(handleMyPlans)))

	adminOnly := middleware.RequireRole(accountDomain.RoleAdmin)
	mux.Handle("GET /api/admin/outbox", adminOnly(http.HandlerFunc(handleAdminOutbox)))
	mux.Handle("POST /api/admin/outbox/{id}/{action}", adminOnly(http.HandlerFunc(handleAdminOutboxAction)))
}
