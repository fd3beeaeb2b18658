package coroutine

import (
	"sync"

	"github.com/purc-go/purc/internal/perr"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vdom"
)

// scopeVars lives alongside a Frame's symbol variables but is keyed by
// name rather than by the fixed symbol set, for `bind_scope_variable`.
// Stored separately from Frame's exported API so frame.go's eight
// well-known symbols stay a fixed-size concept.
type scopeVars struct {
	mu   sync.Mutex
	vars map[string]*variant.Variant
}

var frameScopes sync.Map // *Frame -> *scopeVars

func scopesFor(f *Frame) *scopeVars {
	v, _ := frameScopes.LoadOrStore(f, &scopeVars{vars: make(map[string]*variant.Variant)})
	return v.(*scopeVars)
}

// BindScopeVariable stores val under name on the nearest enclosing
// scope-able frame on s, walking from the top down starting at anchor (or
// the top frame if anchor is nil). This is spec.md §4.D's
// `bind_scope_variable(element, name, val)`.
func BindScopeVariable(s *Stack, anchor *vdom.Element, name string, val *variant.Variant) *perr.Error {
	var target *Frame
	if anchor == nil {
		target = s.Top()
	} else {
		s.ScopeChain(func(f *Frame) bool {
			if f.Element == anchor {
				target = f
				return false
			}
			return true
		})
	}
	if target == nil {
		return perr.New(perr.EntityNotFound)
	}
	sv := scopesFor(target)
	sv.mu.Lock()
	if old, ok := sv.vars[name]; ok {
		old.Unref()
	}
	sv.vars[name] = val.Ref()
	sv.mu.Unlock()
	return nil
}

// LookupScopeVariable walks s from the top frame down to the entry frame
// looking for name, returning the first match.
func LookupScopeVariable(s *Stack, name string) *variant.Variant {
	var found *variant.Variant
	s.ScopeChain(func(f *Frame) bool {
		sv := scopesFor(f)
		sv.mu.Lock()
		v, ok := sv.vars[name]
		sv.mu.Unlock()
		if ok {
			found = v
			return false
		}
		return true
	})
	return found
}

// forgetFrameScope drops a frame's scope variables when it pops, so
// frameScopes does not grow unboundedly across a long-running runner.
// Called from Stack.Pop via Frame.release through this package's own
// pop path (frame.go's release only handles symbols/attrs it owns
// directly; scope vars are released here since they live in this file).
func forgetFrameScope(f *Frame) {
	v, ok := frameScopes.LoadAndDelete(f)
	if !ok {
		return
	}
	sv := v.(*scopeVars)
	sv.mu.Lock()
	for k, val := range sv.vars {
		val.Unref()
		delete(sv.vars, k)
	}
	sv.mu.Unlock()
}

// BindDocumentVariable stores val under name on doc, process-wide for the
// lifetime of that document (spec.md §4.D `bind_document_variable`).
func BindDocumentVariable(doc *vdom.Document, name string, val *variant.Variant) {
	doc.SetVar(name, val.Ref())
}

// LookupDocumentVariable retrieves a document-scoped variable.
func LookupDocumentVariable(doc *vdom.Document, name string) *variant.Variant {
	v, ok := doc.GetVar(name)
	if !ok {
		return nil
	}
	return v.(*variant.Variant)
}

// VariableStore is implemented by whatever backs runner- and
// session-scoped variables: an in-process map for a single runner, or
// (per SPEC_FULL.md §3) internal/varstore's Redis-backed implementation
// when runners share session state across processes.
type VariableStore interface {
	BindRunnerVariable(runnerID, name string, val *variant.Variant) *perr.Error
	RunnerVariable(runnerID, name string) *variant.Variant
	BindSessionVariable(sessionID, name string, val *variant.Variant) *perr.Error
	SessionVariable(sessionID, name string) *variant.Variant
}

// processStore is the default single-process VariableStore, used when no
// external store is configured.
type processStore struct {
	mu       sync.Mutex
	runner   map[string]map[string]*variant.Variant
	session  map[string]map[string]*variant.Variant
}

// NewProcessVariableStore creates an in-memory VariableStore scoped to
// this process, sufficient for a single-runner deployment.
func NewProcessVariableStore() VariableStore {
	return &processStore{
		runner:  make(map[string]map[string]*variant.Variant),
		session: make(map[string]map[string]*variant.Variant),
	}
}

func (p *processStore) BindRunnerVariable(runnerID, name string, val *variant.Variant) *perr.Error {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.runner[runnerID]
	if !ok {
		m = make(map[string]*variant.Variant)
		p.runner[runnerID] = m
	}
	if old, ok := m[name]; ok {
		old.Unref()
	}
	m[name] = val.Ref()
	return nil
}

func (p *processStore) RunnerVariable(runnerID, name string) *variant.Variant {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runner[runnerID][name]
}

func (p *processStore) BindSessionVariable(sessionID, name string, val *variant.Variant) *perr.Error {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.session[sessionID]
	if !ok {
		m = make(map[string]*variant.Variant)
		p.session[sessionID] = m
	}
	if old, ok := m[name]; ok {
		old.Unref()
	}
	m[name] = val.Ref()
	return nil
}

func (p *processStore) SessionVariable(sessionID, name string) *variant.Variant {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session[sessionID][name]
}
