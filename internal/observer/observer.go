// Package observer implements the per-coroutine observer registry of
// spec.md §4.E: a set of (predicate, handler) pairs a coroutine waits on,
// matched against incoming events (component H) by the runloop.
package observer

import (
	"sync"

	"github.com/purc-go/purc/internal/variant"
)

// Kind distinguishes the three registration forms of spec.md §4.E.
type Kind uint8

const (
	// KindInner is a tight, single-future coupling: fetcher completion,
	// child-coroutine completion, a timer tick.
	KindInner Kind = iota
	// KindNamedVariable fires on changes to a bound variable.
	KindNamedVariable
	// KindBroad matches a (type, subtype) pattern against any observed
	// source, e.g. a `msg` event with a wildcard subtype.
	KindBroad
)

// Message is the shape handlers and predicates are evaluated against —
// the minimum fields spec.md §4.E's predicate and handler signatures need.
type Message struct {
	Observed    string // the element_value / source identifier the event was posted against
	Type        string
	Subtype     string
	Data        *variant.Variant
	RequestID   string
}

// Predicate reports whether obs should fire for msg.
type Predicate func(obs *Observer, msg *Message) bool

// Handler runs when obs matches msg and returns a status code; a non-zero
// return does not stop delivery to other matching observers — spec.md
// §4.E says "iterate ... call each predicate; invoke each matching
// handler," i.e. all matches fire.
type Handler func(obs *Observer, msg *Message) int

// Observer is one registered wait: what it watches, how it matches, what
// it does, and whether it is consumed after firing.
type Observer struct {
	ID       uint64
	Kind     Kind
	Observed string // the value/coroutine/variable this observer watches
	Type     string
	Subtype  string // "*" wildcard allowed

	Predicate Predicate
	Handle    Handler

	OneShot bool
}

// DefaultPredicate implements spec.md §4.E's default matching rule:
// observer.observed == msg.observed, type matches exactly, and subtype
// matches exactly or via a "*" wildcard on either side.
func DefaultPredicate(obs *Observer, msg *Message) bool {
	if obs.Observed != msg.Observed {
		return false
	}
	if obs.Type != msg.Type {
		return false
	}
	if obs.Subtype == "*" || msg.Subtype == "*" || obs.Subtype == msg.Subtype {
		return true
	}
	return false
}

// Registry holds the observers for one coroutine's worth of waits, keyed
// by coroutine id so a single process-wide registry can serve every
// coroutine a runner hosts.
type Registry struct {
	mu      sync.Mutex
	nextID  uint64
	byCo    map[uint64][]*Observer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byCo: make(map[uint64][]*Observer)}
}

// Register adds obs under the given coroutine id and assigns it an id if
// it doesn't already have one. Observers with no Predicate get
// DefaultPredicate.
func (r *Registry) Register(cid uint64, obs *Observer) *Observer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if obs.Predicate == nil {
		obs.Predicate = DefaultPredicate
	}
	r.nextID++
	obs.ID = r.nextID
	r.byCo[cid] = append(r.byCo[cid], obs)
	return obs
}

// Forget removes a specific observer from cid's set, e.g. when an element
// pops and its inner observer is no longer relevant.
func (r *Registry) Forget(cid uint64, obsID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.byCo[cid]
	for i, o := range list {
		if o.ID == obsID {
			r.byCo[cid] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// ForgetAll drops every observer registered for cid, called when the
// coroutine exits (spec.md §5 "every observer is removed when its
// coroutine exits").
func (r *Registry) ForgetAll(cid uint64) {
	r.mu.Lock()
	delete(r.byCo, cid)
	r.mu.Unlock()
}

// Dispatch finds every observer registered under cid whose predicate
// matches msg, invokes its handler, and removes one-shot observers that
// fired. It returns the number of observers that matched.
func (r *Registry) Dispatch(cid uint64, msg *Message) int {
	r.mu.Lock()
	list := append([]*Observer(nil), r.byCo[cid]...)
	r.mu.Unlock()

	matched := 0
	var fired []uint64
	for _, o := range list {
		if !o.Predicate(o, msg) {
			continue
		}
		matched++
		if o.Handle != nil {
			o.Handle(o, msg)
		}
		if o.OneShot {
			fired = append(fired, o.ID)
		}
	}

	if len(fired) > 0 {
		r.mu.Lock()
		remaining := r.byCo[cid][:0]
		for _, o := range r.byCo[cid] {
			keep := true
			for _, id := range fired {
				if o.ID == id {
					keep = false
					break
				}
			}
			if keep {
				remaining = append(remaining, o)
			}
		}
		r.byCo[cid] = remaining
		r.mu.Unlock()
	}

	return matched
}

// Count returns the number of observers currently registered for cid,
// exercised by the metrics package's observer-registry-size gauge.
func (r *Registry) Count(cid uint64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byCo[cid])
}

// RegisterInner registers a one-shot KindInner observer, the form used by
// fetcher completion and child-coroutine completion waits (spec.md §4.E).
func (r *Registry) RegisterInner(cid uint64, observed, typ string, handle Handler) *Observer {
	return r.Register(cid, &Observer{
		Kind:     KindInner,
		Observed: observed,
		Type:     typ,
		Subtype:  "*",
		OneShot:  true,
		Handle:   handle,
	})
}

// RegisterNamedVariable registers a persistent KindNamedVariable observer
// that fires whenever the named variable changes.
func (r *Registry) RegisterNamedVariable(cid uint64, varName string, handle Handler) *Observer {
	return r.Register(cid, &Observer{
		Kind:     KindNamedVariable,
		Observed: varName,
		Type:     "change",
		Subtype:  "*",
		Handle:   handle,
	})
}

// DispatchGlobal delivers msg to whichever coroutine holds a matching
// observer, without the caller needing to know the destination cid up
// front. The fetcher (component F) posts completions this way: it knows
// the request id it handed out but not which coroutine registered the
// wait for it, since spec.md §4.F's Fetcher API is addressed by request
// id alone. Request ids are process-unique, so only the right
// coroutine's registry ever matches.
func (r *Registry) DispatchGlobal(msg *Message) int {
	r.mu.Lock()
	cids := make([]uint64, 0, len(r.byCo))
	for cid, list := range r.byCo {
		for _, o := range list {
			if o.Observed == msg.Observed {
				cids = append(cids, cid)
				break
			}
		}
	}
	r.mu.Unlock()

	total := 0
	for _, cid := range cids {
		total += r.Dispatch(cid, msg)
	}
	return total
}

// RegisterBroad registers a persistent KindBroad observer matching any
// source for the given (type, subtype pattern).
func (r *Registry) RegisterBroad(cid uint64, typ, subtypePattern string, handle Handler) *Observer {
	return r.Register(cid, &Observer{
		Kind:    KindBroad,
		Type:    typ,
		Subtype: subtypePattern,
		Predicate: func(obs *Observer, msg *Message) bool {
			if obs.Type != msg.Type {
				return false
			}
			return obs.Subtype == "*" || obs.Subtype == msg.Subtype
		},
		Handle: handle,
	})
}
