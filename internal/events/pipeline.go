package events

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nutify/nutify/internal/notify"
	"github.com/nutify/nutify/internal/storage"
)

// Publisher is the narrow seam into internal/bus; *bus.Hub satisfies it
// structurally, following the same pattern as internal/poller's
// SamplePublisher so this package never imports internal/bus directly.
type Publisher interface {
	PublishEvent(payload any)
}

// standardArgs recovers (ups@host, EVENT_TYPE) from NUT's normal two-token
// NOTIFYCMD invocation.
var standardArgs = regexp.MustCompile(`^(\S+@\S+)\s+(\S+)$`)

// Pipeline takes one incoming event through classify, close paired opens,
// persist, enrich, notify. One cooperative call per incoming event,
// serialized per UPS so writes for the same UPS never race while different
// UPSes proceed in parallel.
type Pipeline struct {
	events     storage.EventRepository
	enricher   *enricher
	dispatcher *notify.Dispatcher
	publisher  Publisher
	log        *zap.Logger

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
}

// NewPipeline wires the event pipeline's dependencies.
func NewPipeline(
	events storage.EventRepository,
	static storage.StaticRepository,
	dynamic storage.DynamicRepository,
	setup storage.InitialSetupRepository,
	dispatcher *notify.Dispatcher,
	publisher Publisher,
	log *zap.Logger,
) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		events:     events,
		enricher:   newEnricher(static, dynamic, events, setup),
		dispatcher: dispatcher,
		publisher:  publisher,
		log:        log.Named("events"),
		locks:      make(map[string]*sync.Mutex),
	}
}

// Dispatch accepts the raw NOTIFYCMD argument vector and runs it through the
// full pipeline. rawArgs is either ["<ups@host>", "<EVENT_TYPE>"] (standard)
// or a single free-text element (legacy).
func (p *Pipeline) Dispatch(ctx context.Context, rawArgs []string, sourceIP string) error {
	upsName, eventType, message, err := parseArgs(rawArgs)
	if err != nil {
		return err
	}

	lock := p.lockFor(upsName)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UTC()

	pairTypes := PairTypesFor(eventType)
	if _, err := p.events.CloseOpenPaired(ctx, upsName, pairTypes, now); err != nil {
		return fmt.Errorf("events: close paired opens: %w", err)
	}

	event := &storage.UPSEvent{
		UPSName:           upsName,
		EventType:         eventType,
		TimestampUTCBegin: now,
		Message:           message,
		SourceIP:          sourceIP,
	}
	if err := p.events.Create(ctx, event); err != nil {
		return fmt.Errorf("events: persist: %w", err)
	}

	if p.publisher != nil {
		p.publisher.PublishEvent(event)
	}

	enriched, err := p.enricher.Enrich(ctx, upsName, eventType, message, sourceIP, now)
	if err != nil {
		p.log.Error("enrich event", zap.String("ups", upsName), zap.String("event_type", eventType), zap.Error(err))
	}

	if p.dispatcher != nil {
		p.dispatcher.Dispatch(ctx, enriched)
	}

	return nil
}

// parseArgs recognizes both the standard "<ups@host> <EVENT_TYPE>" shape and
// the legacy free-text shape.
func parseArgs(rawArgs []string) (upsName, eventType, message string, err error) {
	switch len(rawArgs) {
	case 2:
		return rawArgs[0], rawArgs[1], "", nil
	case 1:
		text := strings.TrimSpace(rawArgs[0])
		if m := standardArgs.FindStringSubmatch(text); m != nil {
			return m[1], m[2], "", nil
		}
		ups, eventType, ok := ClassifyLegacy(text)
		if !ok {
			return "", "", "", fmt.Errorf("events: unrecognized event text %q", text)
		}
		return ups, eventType, text, nil
	default:
		return "", "", "", fmt.Errorf("events: expected 1 or 2 arguments, got %d", len(rawArgs))
	}
}

func (p *Pipeline) lockFor(upsName string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[upsName]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[upsName] = lock
	}
	return lock
}
