package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	emailPkg "kinesis/internal/adapters/email"
	"kinesis/internal/adapters/events"
	web "kinesis/internal/adapters/http"
	"kinesis/internal/adapters/identity"
	"kinesis/internal/adapters/storage"
	accountStore "kinesis/internal/adapters/storage/account"
	assignmentStore "kinesis/internal/adapters/storage/assignment"
	outboxStorePkg "kinesis/internal/adapters/storage/outbox"
	planStore "kinesis/internal/adapters/storage/plan"
	"kinesis/internal/application/orchestrators"
	"kinesis/internal/config"
	outboxDomain "kinesis/internal/domain/outbox"

	"github.com/google/uuid"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to kinesis.yaml (default: search . and ./config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if !cfg.IsProduction() {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialect, err := storage.ParseDialect(cfg.Database.Driver)
	if err != nil {
		log.Fatalf("invalid database driver: %v", err)
	}
	db, err := storage.Open(ctx, dialect, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := storage.MigrateDB(db, dialect); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}
	log.Printf("Database initialized (%s, schema=%d)", dialect, storage.LatestSchemaVersion())

	// every store goes through the timed wrapper for rebinding and query metrics
	timedDB := storage.NewTimedDB(db, dialect, cfg.Database.SlowQuery)
	acctStore := accountStore.NewSQLStore(timedDB)
	stores := &web.Stores{
		AccountStore:    acctStore,
		PlanStore:       planStore.NewSQLStore(timedDB),
		AssignmentStore: assignmentStore.NewSQLStore(timedDB),
		OutboxStore:     outboxStorePkg.NewSQLStore(timedDB),
	}

	// Seed the trainer account if no accounts exist
	if err := orchestrators.ExecuteSeedAdmin(ctx, orchestrators.SeedAdminInput{
		Username: cfg.Admin.Username,
		Password: cfg.Admin.Password,
		Name:     cfg.Admin.Name,
	}, orchestrators.SeedAdminDeps{
		AccountStore: acctStore,
		GenerateID:   func() string { return uuid.New().String() },
		Now:          time.Now,
	}); err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}

	if !cfg.IsProduction() {
		if err := orchestrators.ExecuteSeedDemo(ctx, orchestrators.SeedDemoDeps{
			AccountStore: acctStore,
			PlanStore:    stores.PlanStore,
			GenerateID:   func() string { return uuid.New().String() },
			Now:          time.Now,
		}); err != nil {
			log.Fatalf("failed to seed demo data: %v", err)
		}
	}

	// Configure email sender
	var sender emailPkg.Sender
	if cfg.Email.ResendKey != "" {
		sender = emailPkg.NewResendSender(cfg.Email.ResendKey, cfg.Email.From)
		log.Println("Email sender configured (Resend)")
	} else {
		sender = emailPkg.NewNoopSender()
		if cfg.IsProduction() {
			log.Println("WARNING: KINESIS_EMAIL_RESEND_KEY is not set, assignment emails are only logged")
		} else {
			log.Println("Email sender configured (noop, set KINESIS_EMAIL_RESEND_KEY for real delivery)")
		}
	}

	executors := map[string]orchestrators.ActionExecutor{
		outboxDomain.ActionTypeAssignmentEmail: &orchestrators.EmailExecutor{Sender: sender, ReplyTo: cfg.Email.ReplyTo},
	}
	publishEvents := len(cfg.Kafka.Brokers) > 0
	if publishEvents {
		producer := events.NewKafkaProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		executors[outboxDomain.ActionTypePlanEvent] = &orchestrators.EventExecutor{
			Publisher: events.NewTopicPublisher(producer, cfg.Kafka.Topic),
		}
		log.Printf("Plan events publishing to %s on %v", cfg.Kafka.Topic, cfg.Kafka.Brokers)
	}

	// Start outbox background worker for email and event delivery
	outboxStopCh := make(chan struct{})
	outboxProcessor := orchestrators.NewOutboxProcessor(stores.OutboxStore, executors, orchestrators.OutboxConfig{
		BaseDelay: cfg.Outbox.BaseDelay,
		MaxDelay:  cfg.Outbox.MaxDelay,
		BatchSize: cfg.Outbox.BatchSize,
	})
	orchestrators.StartBackgroundWorker(outboxProcessor, cfg.Outbox.Interval, outboxStopCh)
	defer close(outboxStopCh)

	var provisioner identity.Provisioner = identity.NoopProvisioner{}
	if cfg.Auth.ProvisionURL != "" {
		provisioner = identity.NewHTTPProvisioner(cfg.Auth.ProvisionURL, cfg.Auth.ProvisionKey)
		log.Printf("Identity provisioning via %s", cfg.Auth.ProvisionURL)
	}

	mux := web.NewMux(stores, web.Options{
		Tokens: identity.Tokens{
			Secret: cfg.Auth.TokenSecret,
			Issuer: cfg.Auth.Issuer,
			Domain: cfg.Auth.EmailDomain,
			TTL:    cfg.Auth.TokenTTL,
		},
		Provisioner:    provisioner,
		NotifyByEmail:  true,
		PublishEvents:  publishEvents,
		Outbox:         outboxProcessor,
		CSRFKey:        []byte(cfg.Auth.CSRFKey),
		SecureCookies:  cfg.IsProduction(),
		LoginPerMinute: cfg.Auth.LoginPerMinute,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown: %v", err)
		}
	}()

	log.Printf("Kinesis %s starting on %s (env=%s, schema=%d)", version, cfg.Addr, cfg.Env, storage.LatestSchemaVersion())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
	log.Println("Server stopped")
}
