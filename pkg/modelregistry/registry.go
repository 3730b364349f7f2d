// Package modelregistry holds the compile-time table of models the gateway
// can converse with, and evaluates their runtime availability for GET
// /models.
package modelregistry

import (
	"context"
	"time"
)

// AutoModelID is the sentinel public id that lets the underlying LLM SDK
// choose a concrete model. It is always present and always available.
const AutoModelID = "auto"

// probeTimeout bounds how long a single availability predicate may run
// before it is treated as unavailable. Mirrors the teacher's
// pkg/mcp.HealthMonitor pingTimeout idiom, applied to model availability
// instead of MCP server health.
const probeTimeout = 2 * time.Second

// ModelDescriptor is the public, wire-visible shape of one registered model.
type ModelDescriptor struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	Available     bool   `json:"available"`
	ContextLength int    `json:"contextLength"`
}

// entry pairs a descriptor's static fields with the provider-specific
// vendor handle and an optional availability probe. The vendor handle is
// never echoed to clients — only ModelDescriptor.ID is.
type entry struct {
	id            string
	vendorHandle  string
	name          string
	provider      string
	contextLength int
	probe         func(ctx context.Context) bool
}

// Registry is a read-mostly, compile-time table of models, safe for
// concurrent use by every Session and by GET /models. It holds no mutable
// state itself: each lookup/list call re-evaluates probes fresh.
type Registry struct {
	entries []entry
	byID    map[string]entry
	def     string
}

// New builds the registry from the compile-time table below. def is the
// id returned by DefaultID; it must name an entry in the table or the
// always-present "auto" entry.
func New(def string) *Registry {
	entries := builtinTable()
	byID := make(map[string]entry, len(entries))
	for _, e := range entries {
		byID[e.id] = e
	}
	return &Registry{entries: entries, byID: byID, def: def}
}

// builtinTable is the compile-time model table. New vendor models are added
// here, not via configuration — there is no chain/agent configuration layer
// in this gateway.
func builtinTable() []entry {
	return []entry{
		{
			id:            AutoModelID,
			vendorHandle:  "",
			name:          "Automatic",
			provider:      "auto",
			contextLength: 0,
			probe:         nil, // always available
		},
		{
			id:            "claude-sonnet",
			vendorHandle:  "claude-sonnet-4-5",
			name:          "Claude Sonnet",
			provider:      "anthropic",
			contextLength: 200_000,
		},
		{
			id:            "claude-opus",
			vendorHandle:  "claude-opus-4-1",
			name:          "Claude Opus",
			provider:      "anthropic",
			contextLength: 200_000,
		},
	}
}

// Lookup resolves a public model id to its descriptor, including a
// freshly-evaluated availability flag. The second return value is false for
// an id absent from the table — the caller maps that to the unknown_model
// error kind before any Transport is constructed.
func (r *Registry) Lookup(ctx context.Context, id string) (ModelDescriptor, bool) {
	e, ok := r.byID[id]
	if !ok {
		return ModelDescriptor{}, false
	}
	return r.describe(ctx, e), true
}

// VendorHandle returns the provider-specific handle a Transport should pin
// for id, and whether the SDK should be left to choose ("auto"). Callers
// must have already validated id via Lookup.
func (r *Registry) VendorHandle(id string) (handle string, auto bool) {
	e, ok := r.byID[id]
	if !ok || e.id == AutoModelID {
		return "", true
	}
	return e.vendorHandle, false
}

// List evaluates every registered descriptor's availability at request
// time. Probes run one after another, each bounded by probeTimeout, so a
// slow predicate delays the ones after it by at most that long.
func (r *Registry) List(ctx context.Context) []ModelDescriptor {
	out := make([]ModelDescriptor, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, r.describe(ctx, e))
	}
	return out
}

// DefaultID returns the default model id passed to New. A failed switch does
// not fall back to it; the Session keeps its current model.
func (r *Registry) DefaultID() string {
	return r.def
}

func (r *Registry) describe(ctx context.Context, e entry) ModelDescriptor {
	return ModelDescriptor{
		ID:            e.id,
		Name:          e.name,
		Provider:      e.provider,
		Available:     r.probeAvailable(ctx, e),
		ContextLength: e.contextLength,
	}
}

// probeAvailable runs an entry's availability predicate, if any, under
// probeTimeout. A predicate that exceeds the ceiling or panics is reported
// unavailable rather than propagating a failure into GET /models.
func (r *Registry) probeAvailable(ctx context.Context, e entry) (available bool) {
	if e.probe == nil {
		return true
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	result := make(chan bool, 1)
	go func() {
		defer func() {
			if recover() != nil {
				result <- false
			}
		}()
		result <- e.probe(probeCtx)
	}()

	select {
	case ok := <-result:
		return ok
	case <-probeCtx.Done():
		return false
	}
}
