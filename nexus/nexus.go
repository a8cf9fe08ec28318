// Package nexus implements the process-wide coordinator: the
// session-management control-plane thread, the background worker pool, the
// request-handler table, and the hook registry every RPC endpoint installs
// itself into.
package nexus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/nexuscore/nexus/ctrltransport"
	"github.com/nexuscore/nexus/hook"
	"github.com/nexuscore/nexus/mtlist"
	"github.com/nexuscore/nexus/smpkt"
)

type options struct {
	Log      *zap.SugaredLogger
	CorePins []int // optional OS-thread affinity: [0]=SM thread, [1:]=bg workers
}

func newOptions() *options {
	return &options{Log: zap.NewNop().Sugar()}
}

// Option configures a Nexus at construction time.
type Option func(*options)

// WithLog sets the logger threaded through the SM thread and workers.
func WithLog(log *zap.SugaredLogger) Option {
	return func(o *options) { o.Log = log }
}

// WithCorePins pins the SM thread and background workers to specific OS
// CPUs: pins[0] for the SM thread, pins[1:] for workers 0..N-1 in order.
// A worker or the SM thread is left unpinned if pins is shorter than
// needed.
func WithCorePins(pins ...int) Option {
	return func(o *options) { o.CorePins = pins }
}

// Nexus is the process-wide coordinator. One instance owns one SM thread,
// one background worker pool, one request-handler table, and one hook
// registry. Reinstantiating after Close re-measures TSC and builds fresh
// state (§9): there is no hidden process-global singleton.
type Nexus struct {
	cfg *Config
	log *zap.SugaredLogger

	// --- read-mostly, shared without synchronization after construction ---
	tsc      tscCalibration
	hostname string
	tls      sync.Map // lightweight thread-local-storage registry
	reqFuncs reqFuncTable

	_ [64]byte // separates read-mostly fields above from lock-protected fields below

	// --- mutable under mu ("nexus_lock") ---
	mu                  sync.Mutex
	registrationAllowed atomic.Bool
	hooks               [MaxRPCID + 1]*hook.Hook

	// --- lifecycle resources ---
	ctrlHost  ctrltransport.Host
	smTxQueue *mtlist.MtList[smpkt.WorkItem]
	bgQueues  []*mtlist.MtList[hook.BgWorkItem]

	killSwitch atomic.Bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// New constructs a Nexus per §4.3's startup sequence: measure TSC, init the
// TLS registry, spawn background workers, bind the control-transport host,
// then spawn the SM thread. Fails if the port bind fails, background
// thread count exceeds MaxBgThreads, or the control transport cannot
// initialize; in every failure case no Nexus is returned.
func New(cfg *Config, opts ...Option) (*Nexus, error) {
	if cfg.NumBgThreads > MaxBgThreads {
		return nil, ErrBgThreadsExceedsLimit
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := newOptions()
	for _, opt := range opts {
		opt(o)
	}

	n := &Nexus{
		cfg:       cfg,
		log:       o.Log,
		hostname:  cfg.Hostname,
		smTxQueue: mtlist.New[smpkt.WorkItem](cfg.SMQueueCapacity),
	}

	// 1. Measure TSC frequency (one-shot, cached).
	n.tsc = calibrateTSC()

	// 2. TLS registry: sync.Map's zero value is ready to use.

	// 3. Spawn background threads before accepting registration. Workers
	// close over n, so they observe the exact reqFuncs table instance
	// later registrations mutate -- a pointer, not a snapshot.
	n.bgQueues = make([]*mtlist.MtList[hook.BgWorkItem], cfg.NumBgThreads)
	for i := 0; i < cfg.NumBgThreads; i++ {
		n.bgQueues[i] = mtlist.New[hook.BgWorkItem](cfg.BgQueueCapacity)
	}
	n.registrationAllowed.Store(true)

	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel

	for i := 0; i < cfg.NumBgThreads; i++ {
		n.wg.Add(1)
		pin, pinned := corePin(o.CorePins, i+1)
		go n.runWorker(ctx, i, pin, pinned)
	}

	// 4. Bind the control-transport host.
	host, err := ctrltransport.NewHost(cfg.Hostname, cfg.MgmtUDPPort, o.Log)
	if err != nil {
		cancel()
		n.wg.Wait()
		return nil, fmt.Errorf("nexus: bind control transport: %w", err)
	}
	n.ctrlHost = host

	// 5. Spawn the SM thread.
	smPin, smPinned := corePin(o.CorePins, 0)
	n.wg.Add(1)
	go n.runSM(ctx, smPin, smPinned)

	return n, nil
}

func corePin(pins []int, idx int) (int, bool) {
	if idx < 0 || idx >= len(pins) {
		return 0, false
	}
	return pins[idx], true
}

// Close tears the Nexus down: sets the kill switch, joins the SM thread and
// every background worker, drains queues, and shuts down the
// control-transport host. Destructing with live, registered hooks is a
// usage bug (§5) and is not guarded against here.
func (n *Nexus) Close() error {
	n.killSwitch.Store(true)
	n.cancel()
	n.wg.Wait()

	n.smTxQueue.DrainAll()
	for _, q := range n.bgQueues {
		q.DrainAll()
	}

	return n.ctrlHost.Shutdown()
}

// TLSGet/TLSSet implement the lightweight thread-local-storage registry:
// a sync.Map keyed by whatever identity the caller supplies (e.g. a
// goroutine-local token it generated itself), standing in for the
// language's native TLS the source assumes.
func (n *Nexus) TLSGet(key any) (any, bool) { return n.tls.Load(key) }
func (n *Nexus) TLSSet(key, value any)      { n.tls.Store(key, value) }
