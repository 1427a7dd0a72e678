package index

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dStream/lib/sched"
	"github.com/ValentinKolb/dStream/lib/sink"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var log = logger.GetLogger("index")

// --------------------------------------------------------------------------
// Provider Interface
// --------------------------------------------------------------------------

// IProvider is the registry connecting index engines to update sinks. Every
// registered eventually-consistent index gets its own sink (and therefore
// its own FIFO application order); writes to other indexes are applied
// inline on the caller.
type IProvider interface {
	// Register adds an engine under a unique name. For eventually
	// consistent indexes a dedicated update sink is created; since every
	// sink occupies one scheduler worker, registration fails once the
	// worker pool is exhausted.
	Register(name string, idx IIndex, eventuallyConsistent bool) error

	// Index returns the engine registered under name.
	Index(name string) (IIndex, error)

	// EnqueueUpdates routes a batch to the index it was recorded against:
	// through the sink for eventually-consistent indexes (subject to the
	// configured admission policy), inline otherwise.
	EnqueueUpdates(name string, batch *Batch) error

	// RefreshAndAwait blocks until all updates accepted for the named index
	// before this call have been applied or recorded their failure.
	// timeout == 0 uses the provider default.
	RefreshAndAwait(name string, timeout time.Duration) error

	// Shutdown drains and stops all sinks and closes all engines. Idempotent.
	Shutdown()
}

// Config holds the provider configuration; the sink settings apply to every
// eventually-consistent index registered with this provider.
type Config struct {
	Sink sink.Config
}

// --------------------------------------------------------------------------
// Provider Implementation
// --------------------------------------------------------------------------

// registeredIndex couples an engine with its (optional) sink
type registeredIndex struct {
	idx  IIndex
	sink sink.IUpdateSink // nil for immediately consistent indexes
}

type providerImpl struct {
	cfg       Config
	scheduler sched.IScheduler
	indexes   *xsync.MapOf[string, *registeredIndex]
	sinks     atomic.Int32 // sinks created so far, bounded by the worker pool
	closed    bool
}

// NewProvider creates a provider whose sinks apply batches on the given
// scheduler. The scheduler must outlive the provider: call
// provider.Shutdown() before scheduler.Shutdown().
func NewProvider(scheduler sched.IScheduler, cfg Config) IProvider {
	return &providerImpl{
		cfg:       cfg,
		scheduler: scheduler,
		indexes:   xsync.NewMapOf[string, *registeredIndex](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see index.IProvider)
// --------------------------------------------------------------------------

func (p *providerImpl) Register(name string, idx IIndex, eventuallyConsistent bool) error {
	reg := &registeredIndex{idx: idx}

	if eventuallyConsistent {
		// Each sink permanently occupies one scheduler worker. A sink
		// beyond the pool size would accept batches but never apply them,
		// so the registration is refused up front.
		if err := p.reserveWorker(name); err != nil {
			return err
		}
		s, err := sink.NewUpdateSink(p.scheduler, p.cfg.Sink)
		if err != nil {
			p.sinks.Add(-1)
			return err
		}
		reg.sink = s
	}

	if _, loaded := p.indexes.LoadOrStore(name, reg); loaded {
		if reg.sink != nil {
			reg.sink.Shutdown()
			p.sinks.Add(-1)
		}
		return fmt.Errorf("index %q is already registered", name)
	}

	log.Infof("registered index %q (eventually consistent: %v)", name, eventuallyConsistent)
	return nil
}

// reserveWorker claims one scheduler worker for a new sink, failing when
// the pool is exhausted.
func (p *providerImpl) reserveWorker(name string) error {
	for {
		n := p.sinks.Load()
		if int(n) >= p.scheduler.Workers() {
			return fmt.Errorf("cannot register index %q: all %d scheduler workers are occupied by existing sinks", name, p.scheduler.Workers())
		}
		if p.sinks.CompareAndSwap(n, n+1) {
			return nil
		}
	}
}

func (p *providerImpl) Index(name string) (IIndex, error) {
	reg, ok := p.indexes.Load(name)
	if !ok {
		return nil, fmt.Errorf("unknown index %q", name)
	}
	return reg.idx, nil
}

func (p *providerImpl) EnqueueUpdates(name string, batch *Batch) error {
	reg, ok := p.indexes.Load(name)
	if !ok {
		return fmt.Errorf("unknown index %q", name)
	}

	if reg.sink == nil {
		// Immediately consistent: the caller pays for the application
		return batch.Apply()
	}
	return reg.sink.Enqueue(batch)
}

func (p *providerImpl) RefreshAndAwait(name string, timeout time.Duration) error {
	reg, ok := p.indexes.Load(name)
	if !ok {
		return fmt.Errorf("unknown index %q", name)
	}

	if reg.sink == nil {
		return nil // inline application, nothing to wait for
	}
	return reg.sink.AwaitUpdateApplication(timeout)
}

func (p *providerImpl) Shutdown() {
	if p.closed {
		return
	}
	p.closed = true

	p.indexes.Range(func(name string, reg *registeredIndex) bool {
		if reg.sink != nil {
			reg.sink.Shutdown()
		}
		if err := reg.idx.Close(); err != nil {
			log.Errorf("closing index %q failed: %v", name, err)
		}
		return true
	})
}
