package authcoord

import (
	"context"
	"log"
	"net/http"

	"github.com/veldtma/authcoord/bus"
	"github.com/veldtma/authcoord/csrf"
	"github.com/veldtma/authcoord/internal/audit"
	"github.com/veldtma/authcoord/internal/flows"
	"github.com/veldtma/authcoord/internal/scheduler"
	"github.com/veldtma/authcoord/internal/tabsync"
	"github.com/veldtma/authcoord/internal/transport"
	"github.com/veldtma/authcoord/kv"
	"github.com/veldtma/authcoord/session"
)

// Builder assembles a Coordinator. Zero or more WithX calls, then a single
// Build.
type Builder struct {
	config     Config
	httpClient *http.Client
	storage    kv.Store
	bus        bus.Bus
	clock      Clock
	auditSink  audit.Sink
	warnf      func(format string, args ...any)

	built bool
}

// New starts a Builder with the default configuration.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the whole configuration tree.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithBaseURL sets the auth backend address.
func (b *Builder) WithBaseURL(url string) *Builder {
	b.config.Transport.BaseURL = url
	return b
}

// WithHTTPClient supplies the HTTP client carrying the session cookies. A
// default client is used when omitted.
func (b *Builder) WithHTTPClient(hc *http.Client) *Builder {
	b.httpClient = hc
	return b
}

// WithStorage supplies the durable per-origin store for the session record.
// Defaults to an in-memory store, which does not survive restarts.
func (b *Builder) WithStorage(s kv.Store) *Builder {
	b.storage = s
	return b
}

// WithBus supplies the cross-instance synchronization channel. Without a bus
// the coordinator runs standalone: no broadcasts, no remote updates.
func (b *Builder) WithBus(mb bus.Bus) *Builder {
	b.bus = mb
	return b
}

// WithClock overrides the time source and timer scheduling.
func (b *Builder) WithClock(c Clock) *Builder {
	b.clock = c
	return b
}

// WithAuditSink supplies the external delivery target for audit events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithWarnf overrides the internal warning hook. Defaults to log.Printf.
func (b *Builder) WithWarnf(fn func(format string, args ...any)) *Builder {
	b.warnf = fn
	return b
}

// WithMetricsEnabled toggles counter collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles validation-latency histograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, wires the coordinator, hydrates
// persisted state, subscribes to the bus, and kicks off background
// validation of a restored session. A Builder builds exactly once.
func (b *Builder) Build(ctx context.Context) (*Coordinator, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}
	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clock := b.clock
	if clock == nil {
		clock = SystemClock()
	}
	storage := b.storage
	if storage == nil {
		storage = kv.NewMemory()
	}
	warnf := b.warnf
	if warnf == nil {
		warnf = log.Printf
	}

	client, err := transport.NewClient(cfg.Transport.BaseURL, b.httpClient, cfg.Transport.Timeout)
	if err != nil {
		return nil, err
	}

	csrfManager := csrf.NewManager(csrf.WithNow(clock.Now))
	store := session.NewStore(storage, cfg.Session.StorageKey, cfg.Session.MaxLifetime, clock.Now)

	var dispatcher *audit.Dispatcher
	if cfg.Audit.Enabled {
		dispatcher = audit.NewDispatcher(b.auditSink, cfg.Audit.BufferSize, cfg.Audit.DropIfFull)
	}

	c := &Coordinator{
		cfg:        cfg,
		clock:      clock,
		store:      store,
		csrf:       csrfManager,
		warnf:      warnf,
		metrics:    NewMetrics(cfg.Metrics),
		trail:      audit.NewLog(cfg.Audit.Retention),
		dispatcher: dispatcher,
	}

	c.svc = flows.NewService(flows.Deps{
		API:         client,
		CurrentCSRF: func() string { return csrfManager.Current().Value },
		Now:         clock.Now,
		TokenExpiry: transport.AccessTokenExpiry,
	})

	c.sched = scheduler.New(scheduler.Deps{
		Now:       clock.Now,
		Schedule:  clock.Schedule,
		Threshold: cfg.Refresh.Threshold,
		Fire:      c.refreshTimerFired,
		// Expiry during arming runs off this goroutine: the op that armed
		// may still hold the operation mutex.
		Expired: func() { go c.expireLocally() },
	})

	if b.bus != nil {
		c.sync = tabsync.New(b.bus)
		if err := c.sync.Start(c.busHandlers()); err != nil {
			return nil, err
		}
	}

	c.hydrate(ctx)

	b.built = true
	return c, nil
}
