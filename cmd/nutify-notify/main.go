// Command nutify-notify is the short-lived process NUT's NOTIFYCMD invokes
// on every event. It opens its own database connection, runs the event
// pipeline once for the arguments NUT passed it, and exits 0 on success or
// non-zero on failure so NUT's own logs capture the outcome.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	gormlogger "gorm.io/gorm/logger"

	"github.com/nutify/nutify/internal/events"
	"github.com/nutify/nutify/internal/logging"
	"github.com/nutify/nutify/internal/notify"
	"github.com/nutify/nutify/internal/secret"
	"github.com/nutify/nutify/internal/storage"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "nutify-notify: %v\n", err)
		os.Exit(1)
	}
}

// run opens a database connection using the same environment variables as
// the nutify daemon (so both processes agree on where state lives), wires a
// minimal event pipeline, and dispatches once against rawArgs, which is
// either NUT's standard two-token "ups@host EVENT_TYPE" form or a single
// free-text legacy string (internal/events/pipeline.go's parseArgs handles
// both, handing the legacy form to events.ClassifyLegacy).
func run(rawArgs []string) error {
	logger, err := logging.New(logging.Config{Level: envOrDefault("NUTIFY_LOG_LEVEL", "warn")})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	secretEnvVar := envOrDefault("NUTIFY_SECRET_ENV", "NUTIFY_SECRET_KEY")
	processSecret := os.Getenv(secretEnvVar)
	if processSecret != "" {
		store, err := secret.NewStore(processSecret)
		if err != nil {
			return fmt.Errorf("init secret store: %w", err)
		}
		secret.Init(store)
	}

	gormDB, err := storage.New(storage.Config{
		Driver:   envOrDefault("NUTIFY_DB_DRIVER", "sqlite"),
		DSN:      envOrDefault("NUTIFY_DB_DSN", "./nutify.db"),
		Logger:   logger,
		LogLevel: gormlogger.Error,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	defer sqlDB.Close()

	eventRepo := storage.NewEventRepository(gormDB)
	staticRepo := storage.NewStaticRepository(gormDB)
	dynamicRepo := storage.NewDynamicRepository(gormDB)
	setupRepo := storage.NewInitialSetupRepository(gormDB)
	mailRepo := storage.NewMailConfigRepository(gormDB)
	ntfyRepo := storage.NewNtfyConfigRepository(gormDB)
	webhookRepo := storage.NewWebhookConfigRepository(gormDB)
	notificationRepo := storage.NewNotificationSettingRepository(gormDB)

	dispatcher := notify.NewDispatcher(notificationRepo, mailRepo, ntfyRepo, webhookRepo, logger)
	// The live bus belongs to the running nutify daemon; this one-shot
	// process relays the persisted event to it over the daemon's internal
	// ws_event endpoint, best-effort.
	pipeline := events.NewPipeline(eventRepo, staticRepo, dynamicRepo, setupRepo, dispatcher, daemonPublisher{
		addr: envOrDefault("NUTIFY_HTTP_ADDR", ":8090"),
	}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := pipeline.Dispatch(ctx, rawArgs, ""); err != nil {
		return fmt.Errorf("dispatch event: %w", err)
	}
	return nil
}

// daemonPublisher re-emits a persisted event on the daemon's live bus by
// POSTing it to the internal ws_event endpoint. Delivery is best-effort:
// a daemon that is down or unreachable never fails the NOTIFYCMD exit
// status, since the event is already persisted.
type daemonPublisher struct {
	addr string
}

func (p daemonPublisher) PublishEvent(payload any) {
	envelope, err := json.Marshal(map[string]any{"type": "nut_event", "payload": payload})
	if err != nil {
		return
	}

	addr := p.addr
	if len(addr) > 0 && addr[0] == ':' {
		addr = "127.0.0.1" + addr
	}
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Post("http://"+addr+"/internal/ws_event", "application/json", bytes.NewReader(envelope))
	if err != nil {
		return
	}
	resp.Body.Close()
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
