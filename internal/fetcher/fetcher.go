// Package fetcher implements component F: asynchronous resource retrieval
// for `init ... from` and future wire reads, with a local file backend and
// an S3 backend behind one request/response contract (spec.md §4.F).
//
// A Request is owned by the Manager until it completes or is cancelled; on
// either outcome ownership of the response buffer passes to the
// originating coroutine via a posted FETCHERSTATE observer match (spec.md
// §5 "Ownership").
package fetcher

import (
	"context"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/purc-go/purc/internal/cache"
	"github.com/purc-go/purc/internal/circuitbreaker"
	"github.com/purc-go/purc/internal/logging"
	"github.com/purc-go/purc/internal/observability"
	"github.com/purc-go/purc/internal/observer"
	"github.com/purc-go/purc/internal/perr"
	"github.com/purc-go/purc/internal/variant"
)

// Method is the HTTP-ish verb a request carries, mirroring
// pcfetcher_request_method.
type Method uint8

const (
	MethodGet Method = iota
	MethodPost
	MethodDelete
)

// RespCode is the status code carried on a response header. Positive
// values are transport status codes (e.g. 200); the two negative
// sentinels mirror RESP_CODE_USER_STOP/RESP_CODE_USER_CANCEL from
// fetcher.h.
type RespCode int

const (
	RespCodeUserStop   RespCode = -1
	RespCodeUserCancel RespCode = -2
)

// Header is the status line of a completed (or failed) fetch.
type Header struct {
	Code     RespCode
	MimeType string
	Size     int64
}

// Request is one in-flight fetch, the struct spec.md §5 names:
// "(session, uri, method, params, timeout, on-complete, on-progress,
// request-id, cancelled-flag, response-buffer, status-code)".
type Request struct {
	ID      string
	Session string
	URI     string
	Method  Method
	Params  *variant.Variant
	Timeout time.Duration

	cancelled atomic.Bool
	cancelFn  context.CancelFunc
}

// Cancelled reports whether Cancel has been called on this request.
func (r *Request) Cancelled() bool { return r.cancelled.Load() }

// Backend performs the actual I/O for one URI scheme.
type Backend interface {
	// FetchSync performs the request and returns the full response body
	// plus header in one call.
	FetchSync(ctx context.Context, req *Request) ([]byte, Header, *perr.Error)
	// FetchAsync performs the request, invoking progress at least at 0.1
	// and 1.0 (spec.md §4.F), and returning the same result FetchSync
	// would once it completes or ctx is cancelled.
	FetchAsync(ctx context.Context, req *Request, progress func(float64)) ([]byte, Header, *perr.Error)
}

// Throttle admits or denies a fetch to host before it reaches the
// circuit breaker, the interface internal/ratelimit.Limiter.AllowHost
// satisfies. nil means no throttling is configured.
type Throttle interface {
	AllowHost(ctx context.Context, host string) (bool, error)
}

// Manager is component F's Fetcher implementation: it resolves a URI's
// scheme to a Backend, tracks in-flight requests for cancellation, and
// reports completion to whichever coroutine is waiting via the observer
// registry's FETCHERSTATE channel.
type Manager struct {
	BaseURL string

	Observers *observer.Registry
	Heap      *variant.Heap
	Cache     cache.Cache
	Breakers  *circuitbreaker.Registry
	RateLimit Throttle

	backends map[string]Backend

	mu       sync.Mutex
	inFlight map[string]*Request
	results  map[string]*variant.Variant
}

// NewManager builds a Manager with the local file:// backend registered;
// call RegisterBackend to add s3:// or others.
func NewManager(observers *observer.Registry, heap *variant.Heap) *Manager {
	m := &Manager{
		Observers: observers,
		Heap:      heap,
		backends:  make(map[string]Backend),
		inFlight:  make(map[string]*Request),
		results:   make(map[string]*variant.Variant),
	}
	m.RegisterBackend("file", &LocalBackend{})
	return m
}

// RegisterBackend wires a Backend to a URI scheme (no trailing colon).
func (m *Manager) RegisterBackend(scheme string, b Backend) {
	m.backends[strings.ToLower(scheme)] = b
}

func (m *Manager) backendFor(uri string) (Backend, *Request, *perr.Error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" {
		return nil, nil, perr.New(perr.InvalidValue)
	}
	b, ok := m.backends[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, nil, perr.New(perr.NotSupported)
	}
	req := &Request{ID: uuid.NewString(), URI: uri}
	return b, req, nil
}

// FetchAsync launches req's fetch on its own goroutine and returns
// immediately with the request id; completion is reported through
// rt.Observers by way of DispatchGlobal on the FETCHERSTATE channel
// (spec.md §4.F "the handler is invoked ... HEADER, DATA, FINISH; on
// failure exactly once with ERROR"). This repository collapses the
// three-call success contract into a single SUCCESS dispatch once the
// whole body is buffered, since no streaming consumer exists yet.
func (m *Manager) FetchAsync(uri string) (string, *perr.Error) {
	b, req, err := m.backendFor(uri)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithCancel(context.Background())
	req.cancelFn = cancel

	m.mu.Lock()
	m.inFlight[req.ID] = req
	m.mu.Unlock()

	if m.Cache != nil {
		if cached, err := m.Cache.Get(ctx, uri); err == nil {
			m.finish(req, cached, Header{Code: 200, Size: int64(len(cached))}, nil)
			return req.ID, nil
		}
	}

	if m.RateLimit != nil {
		if host := hostOf(req.URI); host != "" {
			allowed, rlErr := m.RateLimit.AllowHost(ctx, host)
			if rlErr != nil {
				logging.Op().Warn("rate limit check failed, allowing request", "uri", req.URI, "error", rlErr)
			} else if !allowed {
				m.finish(req, nil, Header{Code: RespCode(429)}, perr.New(perr.RequestFailed))
				return req.ID, nil
			}
		}
	}

	breaker := m.breakerFor(req.URI)
	if breaker != nil && !breaker.Allow() {
		m.finish(req, nil, Header{Code: RespCode(503)}, perr.New(perr.RequestFailed))
		return req.ID, nil
	}

	go func() {
		spanCtx, span := observability.StartSpan(ctx, "fetcher.fetch",
			observability.AttrFetchURI.String(req.URI),
			observability.AttrFetchScheme.String(schemeOf(req.URI)),
			observability.AttrRequestID.String(req.ID),
		)
		data, hdr, ferr := b.FetchAsync(spanCtx, req, func(p float64) {
			logging.Op().Debug("fetch progress", "request_id", req.ID, "progress", p)
		})
		if ferr != nil {
			observability.SetSpanError(span, ferr)
		} else {
			observability.SetSpanOK(span)
		}
		span.End()
		if breaker != nil {
			if ferr != nil {
				breaker.RecordFailure()
			} else {
				breaker.RecordSuccess()
			}
		}
		if ferr == nil && m.Cache != nil {
			_ = m.Cache.Set(ctx, uri, data, cacheTTL)
		}
		m.finish(req, data, hdr, ferr)
	}()

	return req.ID, nil
}

// cacheTTL bounds how long a fetched resource's bytes are reused without
// re-fetching; there is no per-request override in spec.md §4.F, so this
// applies uniformly to every cached URI.
const cacheTTL = 5 * time.Minute

// FetchResult returns the decoded JSON payload of a completed request, or
// nil if requestID is unknown or still pending. Valid once a
// FETCHERSTATE:SUCCESS observer match has fired for requestID (spec.md
// §4.F).
func (m *Manager) FetchResult(requestID string) *variant.Variant {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.results[requestID]
}

// Cancel marks req cancelled and tears down its context; the goroutine
// running its backend observes ctx.Done() and reports
// RespCodeUserCancel (spec.md §4.F "Cancellation").
func (m *Manager) Cancel(requestID string) {
	m.mu.Lock()
	req, ok := m.inFlight[requestID]
	m.mu.Unlock()
	if !ok {
		return
	}
	req.cancelled.Store(true)
	if req.cancelFn != nil {
		req.cancelFn()
	}
}

func (m *Manager) finish(req *Request, data []byte, hdr Header, ferr *perr.Error) {
	m.mu.Lock()
	delete(m.inFlight, req.ID)
	m.mu.Unlock()

	if req.Cancelled() {
		hdr.Code = RespCodeUserCancel
		if ferr == nil {
			ferr = perr.New(perr.RequestFailed)
		}
	}

	subtype := "SUCCESS"
	var payload *variant.Variant
	if ferr != nil {
		subtype = "ERROR"
		payload = m.Heap.MakeNumber(float64(hdr.Code))
		logging.Op().Warn("fetch failed", "uri", req.URI, "request_id", req.ID, "code", hdr.Code, "error", ferr)
	} else {
		v, jerr := m.Heap.FromJSON(data)
		if jerr != nil {
			v = m.Heap.MakeByteSequence(data)
		}
		payload = v
		m.mu.Lock()
		m.results[req.ID] = v
		m.mu.Unlock()
	}

	if m.Observers != nil {
		m.Observers.DispatchGlobal(&observer.Message{
			Observed:  req.ID,
			Type:      "FETCHERSTATE",
			Subtype:   subtype,
			Data:      payload,
			RequestID: req.ID,
		})
	}
}

// hostOf extracts the destination host from uri for rate-limit/circuit-
// breaker keying; a malformed or host-less URI (e.g. a bare file path)
// throttles as the empty string, i.e. not at all.
func hostOf(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	return u.Host
}

func schemeOf(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	return u.Scheme
}

func (m *Manager) breakerFor(uri string) *circuitbreaker.Breaker {
	if m.Breakers == nil {
		return nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return nil
	}
	return m.Breakers.Get(u.Host, circuitbreaker.Config{
		ErrorPct:       50,
		WindowDuration: 30 * time.Second,
		OpenDuration:   10 * time.Second,
		HalfOpenProbes: 1,
	})
}

// BuildURI resolves target against base the way spec.md §4.F's build_uri
// does: scheme-relative (`//host/...`), absolute-path, and bare relative
// targets are all resolved against the session's base URL, and a `file:`
// URI with an empty host and `/` path picks up the working directory.
func BuildURI(base, target string) string {
	if target == "" {
		return base
	}
	if strings.Contains(target, "://") {
		return target
	}
	b, err := url.Parse(base)
	if err != nil {
		return target
	}
	t, err := url.Parse(target)
	if err != nil {
		return target
	}
	resolved := b.ResolveReference(t)
	if resolved.Scheme == "file" && resolved.Host == "" && resolved.Path == "/" {
		if wd, werr := os.Getwd(); werr == nil {
			resolved.Path = wd
		}
	}
	return resolved.String()
}
