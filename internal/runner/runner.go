// Package runner assembles one runner process's collaborators — the
// variant heap, atom table, observer registry, event bus, element ops
// table, fetcher, circuit breakers, and variable store — into a single
// Runner that drives any number of coroutines on one runloop.Loop,
// the way cmd/nova's daemon.go wires a store, pool, and executor
// together around one signal-handling loop.
package runner

import (
	"context"
	"strconv"
	"sync"
	"time"

	goredisv8 "github.com/go-redis/redis/v8"

	"github.com/purc-go/purc/internal/atom"
	"github.com/purc-go/purc/internal/cache"
	"github.com/purc-go/purc/internal/circuitbreaker"
	"github.com/purc-go/purc/internal/config"
	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/element"
	"github.com/purc-go/purc/internal/event"
	"github.com/purc-go/purc/internal/fetcher"
	"github.com/purc-go/purc/internal/logging"
	"github.com/purc-go/purc/internal/metrics"
	"github.com/purc-go/purc/internal/observability"
	"github.com/purc-go/purc/internal/observer"
	"github.com/purc-go/purc/internal/perr"
	"github.com/purc-go/purc/internal/ratelimit"
	"github.com/purc-go/purc/internal/runloop"
	"github.com/purc-go/purc/internal/runnertransport"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/varstore"
	"github.com/purc-go/purc/internal/vdom"
)

// unwiredRequester answers every `request` with NotSupported for a runner
// that was not given a GRPCConfig address to dial peers with.
type unwiredRequester struct{}

func (unwiredRequester) SendRequest(target, verb string, payload *variant.Variant) (string, *perr.Error) {
	return "", perr.New(perr.NotSupported)
}

// Runner is one runner process's worth of shared state plus the set of
// coroutines it is currently driving. A Runner is safe for concurrent
// Spawn/Cancel calls from outside the goroutine running its Loop.
type Runner struct {
	ID string

	Heap      *variant.Heap
	Atoms     *atom.Table
	Observers *observer.Registry
	Events    *event.Bus
	Elements  *element.Registry
	Fetcher   *fetcher.Manager
	Breakers  *circuitbreaker.Registry
	Vars      coroutine.VariableStore

	Transport       *runnertransport.Client
	transportServer *runnertransport.Server

	loop *runloop.Loop

	mu    sync.Mutex
	order []uint64
	byCID map[uint64]*coroutine.Coroutine
}

// New assembles a Runner from cfg. vars overrides the VariableStore
// New would otherwise pick (tests pass one in); when nil, New builds a
// Redis-backed varstore.Store against cfg.SessionVars when an address is
// configured, or falls back to an in-process store for a single-runner
// deployment (spec.md §3).
func New(id string, cfg *config.Config, vars coroutine.VariableStore) *Runner {
	heap := variant.NewHeap()
	atoms := atom.NewTable()

	if vars == nil {
		if cfg.SessionVars.Addr != "" {
			vars = varstore.New(varstore.Config{
				Addr:     cfg.SessionVars.Addr,
				Password: cfg.SessionVars.Password,
				DB:       cfg.SessionVars.DB,
			}, heap, atoms)
		} else {
			vars = coroutine.NewProcessVariableStore()
		}
	}

	observers := observer.NewRegistry()
	events := event.NewBus()
	breakers := circuitbreaker.NewRegistry()

	fm := fetcher.NewManager(observers, heap)
	fm.Breakers = breakers
	fm.Cache = cache.NewInMemoryCache()
	if cfg.Fetcher.S3Region != "" {
		if s3, err := fetcher.NewS3Backend(context.Background(), cfg.Fetcher.S3Region); err == nil {
			fm.RegisterBackend("s3", s3)
		} else {
			logging.Op().Warn("s3 backend unavailable, s3:// fetches will fail", "error", err)
		}
	}
	if cfg.RateLimit.Enabled {
		client := goredisv8.NewClient(&goredisv8.Options{
			Addr:     cfg.SessionVars.Addr,
			Password: cfg.SessionVars.Password,
			DB:       cfg.SessionVars.DB,
		})
		fallback := ratelimit.HostConfig{RequestsPerSecond: cfg.RateLimit.RequestsPerSecond, BurstSize: cfg.RateLimit.BurstSize}
		fm.RateLimit = ratelimit.New(client, nil, fallback)
	}

	rt := &element.Runtime{
		Heap:      heap,
		Atoms:     atoms,
		Eval:      nil,
		Fetch:     fm,
		Requester: unwiredRequester{},
		Observers: observers,
		Events:    events,
	}

	r := &Runner{
		ID:        id,
		Heap:      heap,
		Atoms:     atoms,
		Observers: observers,
		Events:    events,
		Elements:  element.NewRegistry(rt),
		Fetcher:   fm,
		Breakers:  breakers,
		Vars:      vars,
		byCID:     make(map[uint64]*coroutine.Coroutine),
	}
	r.loop = runloop.New(r.dispatchOnce, runloop.Config{IdleInterval: cfg.Runloop.IdleInterval})

	if cfg.GRPC.Enabled {
		r.transportServer = runnertransport.NewServer()
		r.transportServer.Register(id, r)

		r.Transport = runnertransport.NewClient(id, cfg.GRPC.Addr)
		r.Transport.AttachLocal(r.transportServer)
		rt.Requester = r.Transport
	}

	return r
}

// FromJSON implements runnertransport.RunnerHandle.
func (r *Runner) FromJSON(data []byte) (*variant.Variant, *perr.Error) {
	return r.Heap.FromJSON(data)
}

// PostRequestEvent implements runnertransport.RunnerHandle: it delivers an
// inbound `request` element's REQUEST leg (spec.md §4.G's worked example —
// "B receives an event of type REQUEST subtype verb payload") to destCID's
// event queue and wakes the loop so a stopped coroutine becomes ready again.
func (r *Runner) PostRequestEvent(destCID uint64, requestID, verb string, payload *variant.Variant) {
	r.Events.PostEvent(&event.Event{
		DestCID:      destCID,
		ElementValue: requestID,
		Type:         "REQUEST",
		Subtype:      verb,
		Payload:      payload,
		RequestID:    requestID,
	}, event.ReduceKeep)
	r.Wakeup()
}

// DispatchResponse implements runnertransport.RunnerHandle: it resolves
// whichever coroutine is waiting on requestID via Observers.DispatchGlobal,
// which needs no destination cid because internal/element/request.go
// registers the waiter by request id alone.
func (r *Runner) DispatchResponse(requestID string, payload *variant.Variant) {
	r.Observers.DispatchGlobal(&observer.Message{
		Observed: requestID,
		Type:     "RESPONSE",
		Data:     payload,
	})
}

// ListenTransport starts this runner's cross-runner Deliver endpoint, if
// GRPCConfig.Enabled was set when the runner was built. A no-op otherwise.
func (r *Runner) ListenTransport() error {
	if r.transportServer == nil {
		return nil
	}
	return r.transportServer.Start(r.Transport.Addr())
}

// StopTransport gracefully shuts down the Deliver endpoint, if any.
func (r *Runner) StopTransport() {
	if r.transportServer != nil {
		r.transportServer.Stop()
	}
}

// Spawn creates a coroutine rooted at entry, wires its TickLog and
// DrainEvents hooks to this Runner's logging/metrics/event collaborators,
// registers it for round-robin dispatch, and returns it. owner is stored
// on the coroutine as Coroutine.Owner (the caller's session/request
// context), not interpreted by Runner itself.
func (r *Runner) Spawn(owner any, doc *vdom.Document, entry *vdom.Element) *coroutine.Coroutine {
	co := coroutine.New(owner, doc, entry, r.Elements.Resolve)
	r.Events.AttachTo(co, r.Observers)
	co.TickLog = r.logTick

	r.mu.Lock()
	r.byCID[co.CID] = co
	r.order = append(r.order, co.CID)
	r.mu.Unlock()

	metrics.SetCoroutinesByState("ready", r.countInState(coroutine.StateReady))
	return co
}

// Cancel forgets cid's observers and drops it from the dispatch set
// without running it to completion; used when a session disconnects
// mid-program.
func (r *Runner) Cancel(cid uint64) {
	r.Observers.ForgetAll(cid)
	r.mu.Lock()
	delete(r.byCID, cid)
	r.mu.Unlock()
}

// Coroutine looks up a coroutine this runner is driving by id.
func (r *Runner) Coroutine(cid uint64) *coroutine.Coroutine {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byCID[cid]
}

// Wakeup breaks the runloop out of its idle wait, used after posting an
// event or completing a fetch that makes a stopped coroutine ready again.
func (r *Runner) Wakeup() { r.loop.Wakeup() }

// Run drives this runner's loop until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) { r.loop.Run(ctx) }

// Stop requests the loop to exit and blocks until it has.
func (r *Runner) Stop() { r.loop.Stop() }

// dispatchOnce runs exactly one tick of every coroutine currently
// registered, in spawn order, reaping any that exited (spec.md §4.D's
// run_coroutine loop generalized from one coroutine to a runner's whole
// set, the way a real runner round-robins its ready coroutines between
// idle waits).
func (r *Runner) dispatchOnce(ctx context.Context) bool {
	r.mu.Lock()
	order := append([]uint64(nil), r.order...)
	r.mu.Unlock()

	didWork := false
	var exited []uint64
	for _, cid := range order {
		r.mu.Lock()
		co := r.byCID[cid]
		r.mu.Unlock()
		if co == nil {
			continue
		}
		if coroutine.RunCoroutine(co) {
			didWork = true
		}
		if co.Exited() {
			exited = append(exited, cid)
		}
	}

	if len(exited) > 0 {
		r.mu.Lock()
		for _, cid := range exited {
			delete(r.byCID, cid)
		}
		r.order = r.order[:0]
		for cid := range r.byCID {
			r.order = append(r.order, cid)
		}
		r.mu.Unlock()
		for _, cid := range exited {
			r.Observers.ForgetAll(cid)
		}
	}

	metrics.SetCoroutinesByState("ready", r.countInState(coroutine.StateReady))
	metrics.SetCoroutinesByState("stopped", r.countInState(coroutine.StateStopped))
	return didWork
}

func (r *Runner) countInState(state coroutine.State) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, co := range r.byCID {
		if co.State == state {
			n++
		}
	}
	return n
}

// logTick is wired as every spawned coroutine's TickLog: it writes one
// entry to the process-wide coroutine tick log and feeds both the
// in-memory and Prometheus metrics collectors (spec.md's logging and
// metrics ambient concerns, kept in one place instead of duplicated at
// every call site).
func (r *Runner) logTick(cid uint64, el, nextStep string, dur time.Duration, didWork bool, exc *perr.Error) {
	if observability.Enabled() {
		_, span := observability.StartSpan(context.Background(), "coroutine.tick",
			observability.AttrCoroutineID.String(strconv.FormatUint(cid, 10)),
			observability.AttrElement.String(el),
			observability.AttrNextStep.String(nextStep),
			observability.AttrDurationMs.Int64(dur.Milliseconds()),
		)
		if exc != nil {
			observability.SetSpanError(span, exc)
		} else {
			observability.SetSpanOK(span)
		}
		span.End()
	}

	excMsg := ""
	if exc != nil {
		excMsg = exc.Code.String()
	}
	logging.DefaultCoroutineLog().Log(&logging.CoroutineTick{
		CID:        cid,
		Element:    el,
		NextStep:   nextStep,
		DurationUs: dur.Microseconds(),
		DidWork:    didWork,
		Error:      excMsg,
	})
	metrics.RecordTick(el, dur.Microseconds(), didWork, exc != nil)
	metrics.RecordPrometheusTick(el, dur.Microseconds(), didWork, exc != nil)
	cidStr := strconv.FormatUint(cid, 10)
	metrics.SetEventQueueDepth(cidStr, r.Events.Pending(cid))
	metrics.SetObserverRegistrySize(cidStr, r.Observers.Count(cid))
}
