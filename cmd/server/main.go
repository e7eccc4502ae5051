package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	emailPkg "github.com/asaneep/send-mail-ses/internal/adapters/email"
	web "github.com/asaneep/send-mail-ses/internal/adapters/http"
	"github.com/asaneep/send-mail-ses/internal/adapters/settings"
	"github.com/asaneep/send-mail-ses/internal/adapters/storage"
	jobStore "github.com/asaneep/send-mail-ses/internal/adapters/storage/job"
	"github.com/asaneep/send-mail-ses/internal/application/orchestrators"
	"github.com/asaneep/send-mail-ses/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load .env for local development; a missing file is fine.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("WARNING: could not load .env: %v", err)
	}

	// Initialize database with WAL mode and busy timeout
	dbPath := envOrDefault("SENDMAIL_DB", "sendmail.db")
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Connection pool settings for WAL mode
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.Ping(); err != nil {
		log.Fatalf("database unreachable: %v", err)
	}
	if err := storage.InitDB(db); err != nil {
		log.Fatalf("failed to init database: %v", err)
	}

	settingsStore := settings.NewFileStore(envOrDefault("SENDMAIL_SETTINGS", "settings.json"))
	stores := &web.Stores{
		JobStore:      jobStore.NewSQLiteStore(db),
		SettingsStore: settingsStore,
	}

	resolveConfig := func() (config.Config, error) {
		s, err := settingsStore.Load()
		if err != nil {
			return config.Config{}, err
		}
		return config.Resolve(s)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Background worker for queued resends
	queue := orchestrators.NewDispatchQueue(orchestrators.DispatchQueueDeps{
		Jobs:          stores.JobStore,
		ResolveConfig: resolveConfig,
		NewSender:     newSender,
	})
	go queue.Run(ctx)

	mux := web.NewMux("static", stores, newSender, queue)

	addr := envOrDefault("SENDMAIL_ADDR", ":8080")
	log.Printf("send-mail-ses %s starting on %s (env=%s)", version, addr, envOrDefault("SENDMAIL_ENV", "development"))

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}

// newSender builds the transport for the configured provider.
func newSender(cfg config.Config) (emailPkg.Sender, error) {
	switch cfg.Provider {
	case config.ProviderSES:
		return emailPkg.NewSESSender(cfg.Region, cfg.AccessKey, cfg.SecretKey), nil
	case config.ProviderResend:
		return emailPkg.NewResendSender(cfg.ResendAPIKey), nil
	case config.ProviderNoop:
		return emailPkg.NewNoopSender(), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
