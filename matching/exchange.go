package matching

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/lightningex/matchingengine/metrics"
	"github.com/lightningex/matchingengine/orderbook"
	"github.com/lightningex/matchingengine/publish"
)

// ExchangeConfig supplies the collaborators every lazily-created Engine
// shares: one Recorder/Publisher pair, a clock, the publish throttle, the
// book index implementation, and a logger.
type ExchangeConfig struct {
	Recorder          publish.Recorder
	Publisher         publish.Publisher
	Clock             Clock
	PublishThrottleMs int64
	IndexKind         orderbook.IndexKind
	Logger            *zap.Logger
	Metrics           *metrics.Metrics
}

// Exchange routes Submit calls to the per-symbol Engine, creating it
// lazily on first use. Reads are lock-free (atomic.Value.Load) over a
// copy-on-write map; only the rare creation of a brand-new symbol takes
// mu.
type Exchange struct {
	cfg     ExchangeConfig
	engines atomic.Value // map[string]*Engine
	mu      sync.Mutex
}

// NewExchange returns an Exchange backed by cfg. A nil Clock/Logger/
// Recorder defaults to wall-clock time, a no-op logger and an in-process
// publish.MemoryBus respectively, so zero-value tests can construct an
// Exchange with only the fields they care about.
//
// PublishThrottleMs is used as given: 0 is a valid, deliberate choice
// that forces a publish on every submission rather than "unset". Callers
// that want the default 50ms throttle (config.FromEnv does) must set it
// explicitly or pass a negative value, which selects the default. A
// zero-value ExchangeConfig{} therefore publishes on every submission.
func NewExchange(cfg ExchangeConfig) *Exchange {
	if cfg.PublishThrottleMs < 0 {
		cfg.PublishThrottleMs = DefaultPublishThrottleMs
	}
	if cfg.Recorder == nil || cfg.Publisher == nil {
		bus := publish.NewMemoryBus()
		if cfg.Recorder == nil {
			cfg.Recorder = bus
		}
		if cfg.Publisher == nil {
			cfg.Publisher = bus
		}
	}

	e := &Exchange{cfg: cfg}
	e.engines.Store(make(map[string]*Engine))
	return e
}

// GetEngine returns symbol's Engine, creating it on first use.
func (e *Exchange) GetEngine(symbol string) *Engine {
	engines := e.engines.Load().(map[string]*Engine)
	if engine, ok := engines[symbol]; ok {
		return engine
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	engines = e.engines.Load().(map[string]*Engine)
	if engine, ok := engines[symbol]; ok {
		return engine
	}

	engine := NewEngine(symbol, e.cfg.IndexKind, e.cfg.Recorder, e.cfg.Publisher, e.cfg.Clock, e.cfg.PublishThrottleMs, e.cfg.Logger, e.cfg.Metrics)

	next := make(map[string]*Engine, len(engines)+1)
	for k, v := range engines {
		next[k] = v
	}
	next[symbol] = engine
	e.engines.Store(next)

	return engine
}

// Submit routes req to (lazily creating) symbol's Engine.
func (e *Exchange) Submit(ctx context.Context, symbol string, req SubmitRequest) (Outcome, error) {
	return e.GetEngine(symbol).Submit(ctx, req)
}
