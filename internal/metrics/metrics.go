// Package metrics collects and exposes this runner's observability data.
//
// # Design rationale
//
// Two metric stores coexist, the same split the teacher's FaaS control
// plane used:
//
//  1. The in-process Metrics struct (coroutine tick + fetcher counters,
//     plus a time series) for a lightweight JSON endpoint.
//  2. A Prometheus registry (prometheus.go) for scraping by external
//     monitoring systems.
//
// # Concurrency — hot path
//
// RecordTick is called once per run_coroutine tick and must be cheap: it
// uses atomic increments for global counters and dispatches a lightweight
// event onto a buffered channel (tsChan) for the time-series worker to
// process asynchronously, so no tick holds a lock.
//
// # Invariants
//
//   - TicksTotal == TicksWithWork + TicksIdle (maintained by RecordTick).
//   - The time-series ring buffer holds at most timeSeriesBucketCount
//     buckets (24 * 60 = 1440 for the last 24 hours at 1-minute
//     granularity).
//   - tsChan capacity is 8192 events; events dropped when full are
//     counted in tsDroppedEvents for observability.
package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const (
	timeSeriesBucketDuration = time.Minute
	timeSeriesBucketCount    = 24 * 60
)

// TimeSeriesBucket stores metrics for a single time bucket.
type TimeSeriesBucket struct {
	Timestamp    time.Time
	Ticks        int64
	Exceptions   int64
	TotalLatency int64
	Count        int64 // for calculating avg
}

// Metrics collects and exposes this runner's runtime metrics.
type Metrics struct {
	// Coroutine tick metrics
	TicksTotal     atomic.Int64
	TicksWithWork  atomic.Int64
	TicksIdle      atomic.Int64
	TickExceptions atomic.Int64

	// Tick latency metrics (in microseconds)
	TotalTickLatencyUs atomic.Int64
	MinTickLatencyUs   atomic.Int64
	MaxTickLatencyUs   atomic.Int64

	// Fetcher metrics
	FetchesSucceeded atomic.Int64
	FetchesFailed    atomic.Int64
	FetchesCancelled atomic.Int64

	// Per-element tick metrics, keyed by element tag
	elementMetrics sync.Map // tag -> *ElementMetrics

	// Time-series data (minute buckets for last 24 hours)
	timeSeriesMu    sync.RWMutex
	timeSeries      []*TimeSeriesBucket
	tsChan          chan timeSeriesEvent
	tsDroppedEvents atomic.Int64

	startTime time.Time
}

// timeSeriesEvent is sent over a channel to avoid write-lock contention
// on the hot path.
type timeSeriesEvent struct {
	latencyUs  int64
	isExcepted bool
}

// ElementMetrics tracks tick metrics for a single element tag.
type ElementMetrics struct {
	Ticks      atomic.Int64
	WithWork   atomic.Int64
	Exceptions atomic.Int64
	TotalUs    atomic.Int64
	MinUs      atomic.Int64
	MaxUs      atomic.Int64
}

// Global metrics instance.
var global = &Metrics{startTime: time.Now()}

func init() {
	global.MinTickLatencyUs.Store(int64(^uint64(0) >> 1)) // max int64
	global.tsChan = make(chan timeSeriesEvent, 8192)
	global.initTimeSeries()
	go global.processTimeSeriesLoop()
}

// initTimeSeries initializes minute-level buckets for the last 24 hours.
func (m *Metrics) initTimeSeries() {
	m.timeSeriesMu.Lock()
	defer m.timeSeriesMu.Unlock()

	now := time.Now().Truncate(timeSeriesBucketDuration)
	m.timeSeries = make([]*TimeSeriesBucket, timeSeriesBucketCount)
	for i := 0; i < timeSeriesBucketCount; i++ {
		m.timeSeries[i] = &TimeSeriesBucket{
			Timestamp: now.Add(time.Duration(i-(timeSeriesBucketCount-1)) * timeSeriesBucketDuration),
		}
	}
}

// Global returns the global metrics instance.
func Global() *Metrics { return global }

// StartTime returns the time when the metrics system was initialized.
func StartTime() time.Time { return global.startTime }

// RecordTick records one run_coroutine tick: the element tag on top of
// the stack, how long the tick took, whether it did work, and whether an
// exception was pending when it finished.
func (m *Metrics) RecordTick(element string, latencyUs int64, didWork bool, excepted bool) {
	m.TicksTotal.Add(1)
	if didWork {
		m.TicksWithWork.Add(1)
	} else {
		m.TicksIdle.Add(1)
	}
	if excepted {
		m.TickExceptions.Add(1)
	}

	m.TotalTickLatencyUs.Add(latencyUs)
	updateMin(&m.MinTickLatencyUs, latencyUs)
	updateMax(&m.MaxTickLatencyUs, latencyUs)

	if element != "" {
		em := m.getElementMetrics(element)
		em.Ticks.Add(1)
		if didWork {
			em.WithWork.Add(1)
		}
		if excepted {
			em.Exceptions.Add(1)
		}
		em.TotalUs.Add(latencyUs)
		updateMin(&em.MinUs, latencyUs)
		updateMax(&em.MaxUs, latencyUs)
	}

	select {
	case m.tsChan <- timeSeriesEvent{latencyUs: latencyUs, isExcepted: excepted}:
	default:
		m.tsDroppedEvents.Add(1)
	}
}

// RecordFetch records a completed fetch's terminal outcome.
func (m *Metrics) RecordFetch(cancelled bool, success bool) {
	switch {
	case cancelled:
		m.FetchesCancelled.Add(1)
	case success:
		m.FetchesSucceeded.Add(1)
	default:
		m.FetchesFailed.Add(1)
	}
}

func (m *Metrics) getElementMetrics(tag string) *ElementMetrics {
	if v, ok := m.elementMetrics.Load(tag); ok {
		return v.(*ElementMetrics)
	}
	em := &ElementMetrics{}
	em.MinUs.Store(int64(^uint64(0) >> 1))
	actual, _ := m.elementMetrics.LoadOrStore(tag, em)
	return actual.(*ElementMetrics)
}

// GetElementMetrics returns the metrics for a single element tag, or nil
// if no tick has been recorded for it yet.
func (m *Metrics) GetElementMetrics(tag string) *ElementMetrics {
	if v, ok := m.elementMetrics.Load(tag); ok {
		return v.(*ElementMetrics)
	}
	return nil
}

func (m *Metrics) processTimeSeriesLoop() {
	ticker := time.NewTicker(timeSeriesBucketDuration)
	defer ticker.Stop()

	for {
		select {
		case ev := <-m.tsChan:
			m.applyTimeSeriesEvent(ev.latencyUs, ev.isExcepted)
		case <-ticker.C:
			m.rotateTimeSeries()
		}
	}
}

func (m *Metrics) applyTimeSeriesEvent(latencyUs int64, excepted bool) {
	m.timeSeriesMu.Lock()
	defer m.timeSeriesMu.Unlock()
	if len(m.timeSeries) == 0 {
		return
	}
	bucket := m.timeSeries[len(m.timeSeries)-1]
	bucket.Ticks++
	if excepted {
		bucket.Exceptions++
	}
	bucket.TotalLatency += latencyUs
	bucket.Count++
}

func (m *Metrics) rotateTimeSeries() {
	m.timeSeriesMu.Lock()
	defer m.timeSeriesMu.Unlock()
	now := time.Now().Truncate(timeSeriesBucketDuration)
	m.timeSeries = append(m.timeSeries[1:], &TimeSeriesBucket{Timestamp: now})
}

// Snapshot returns a JSON-friendly summary of the global counters.
func (m *Metrics) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"ticks_total":      m.TicksTotal.Load(),
		"ticks_with_work":  m.TicksWithWork.Load(),
		"ticks_idle":       m.TicksIdle.Load(),
		"tick_exceptions":  m.TickExceptions.Load(),
		"fetches_succeeded": m.FetchesSucceeded.Load(),
		"fetches_failed":    m.FetchesFailed.Load(),
		"fetches_cancelled": m.FetchesCancelled.Load(),
		"uptime_seconds":    time.Since(m.startTime).Seconds(),
	}
}

// JSONHandler serves Snapshot() as JSON.
func (m *Metrics) JSONHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(m.Snapshot())
	})
}

func updateMin(target *atomic.Int64, value int64) {
	for {
		cur := target.Load()
		if value >= cur {
			return
		}
		if target.CompareAndSwap(cur, value) {
			return
		}
	}
}

func updateMax(target *atomic.Int64, value int64) {
	for {
		cur := target.Load()
		if value <= cur {
			return
		}
		if target.CompareAndSwap(cur, value) {
			return
		}
	}
}
