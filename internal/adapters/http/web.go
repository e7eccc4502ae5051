// Package web wires the HTTP surface of the service.
package web

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/asaneep/send-mail-ses/internal/adapters/email"
	"github.com/asaneep/send-mail-ses/internal/adapters/http/middleware"
	"github.com/asaneep/send-mail-ses/internal/adapters/settings"
	jobstore "github.com/asaneep/send-mail-ses/internal/adapters/storage/job"
	"github.com/asaneep/send-mail-ses/internal/application/orchestrators"
	"github.com/asaneep/send-mail-ses/internal/config"
)

// Stores holds all storage dependencies.
type Stores struct {
	JobStore      jobstore.Store
	SettingsStore *settings.FileStore
}

// SenderFactory builds the transport for a resolved configuration.
type SenderFactory func(config.Config) (email.Sender, error)

// Global stores instance (set by NewMux)
var stores *Stores

// Global sender factory (set by NewMux)
var newSender SenderFactory

// Global dispatch queue (set by NewMux)
var dispatchQueue *orchestrators.DispatchQueue

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 10

// loadCSRFKey reads the CSRF secret from SENDMAIL_CSRF_KEY (hex-encoded, 32 bytes).
// In production, the key MUST be set. In development, a random key is generated per startup.
func loadCSRFKey() []byte {
	if keyHex := os.Getenv("SENDMAIL_CSRF_KEY"); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			log.Fatal("SENDMAIL_CSRF_KEY must be 64 hex characters (32 bytes)")
		}
		return key
	}
	if os.Getenv("SENDMAIL_ENV") == "production" {
		log.Fatal("SENDMAIL_CSRF_KEY is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("failed to generate CSRF key: %v", err)
	}
	log.Println("WARNING: using random CSRF key (tokens won't survive restart). Set SENDMAIL_CSRF_KEY for production.")
	return key
}

// NewMux wires HTTP handlers for the app.
func NewMux(staticDir string, s *Stores, factory SenderFactory, queue *orchestrators.DispatchQueue) http.Handler {
	stores = s
	newSender = factory
	dispatchQueue = queue

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	registerRoutes(mux)

	csrfKey := loadCSRFKey()
	limiter := middleware.NewRateLimiter(RateLimitPerSecond, time.Second)

	// Apply middleware: SecurityHeaders -> CSRF -> RateLimit -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(csrfKey),
		middleware.RateLimit(limiter),
	)
}

// registerRoutes attaches the API endpoints.
func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/csrf", handleCSRFToken)
	mux.HandleFunc("POST /api/send", handleSend)
	mux.HandleFunc("GET /api/history", handleHistory)
	mux.HandleFunc("GET /api/history/details", handleEmailDetails)
	mux.HandleFunc("POST /api/resend", handleResend)
	mux.HandleFunc("GET /api/settings", handleGetSettings)
	mux.HandleFunc("POST /api/settings", handleSaveSettings)
}
