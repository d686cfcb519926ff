package ctc

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/funvibe/testgen/internal/ir"
	"github.com/funvibe/testgen/internal/see"
)

// IdentityState tracks where a deferred identity sits in its resolution
// lifecycle: pending until a backend call supplies a real id, then either
// resolved to that id or, failing that, pinned to a named fallback.
type IdentityState int

const (
	Pending IdentityState = iota
	Resolved
	Fallback
)

// DeferredIdentity stands in for a value genCTC cannot know until a
// backend call resolves it — e.g. the id a createOrder call assigns,
// referenced by a later block before that call has run. It starts Pending
// under a unique placeholder token (so two in-flight placeholders never
// collide), and is later either Resolved to a concrete id observed in σ or
// left as a Fallback name for the caller's own substitution rules.
type DeferredIdentity struct {
	State IdentityState
	ID    string
	Name  string
}

// NewPlaceholder mints a Pending identity tagged with a unique token.
func NewPlaceholder() *DeferredIdentity {
	return &DeferredIdentity{State: Pending, Name: "pending_" + uuid.NewString()}
}

func (d *DeferredIdentity) Resolve(id string) {
	d.State = Resolved
	d.ID = id
}

func (d *DeferredIdentity) FallbackTo(name string) {
	d.State = Fallback
	d.Name = name
}

// Value returns the resolved id if known, else the placeholder/fallback
// name — always safe to substitute into a concrete test string.
func (d *DeferredIdentity) Value() string {
	if d.State == Resolved {
		return d.ID
	}
	return d.Name
}

// ResolveFromSigma looks for the newest tmp_<global>_N binding in σ that
// holds a non-empty Map — the snapshot rewriteGlobals leaves behind after a
// write to that global — and resolves a fresh identity to the key of its
// first entry. That key is the closest observable signal
// to "which identity the backend just assigned" genCTC has without a
// direct callback into the backend.
func ResolveFromSigma(sigma *see.Sigma, global string) (*DeferredIdentity, bool) {
	prefix := "tmp_" + global + "_"
	best := -1
	var bestMap *ir.Map

	for _, name := range sigma.Names() {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(name, prefix))
		if err != nil {
			continue
		}
		val, ok := sigma.Get(name)
		if !ok {
			continue
		}
		m, ok := val.(*ir.Map)
		if !ok || len(m.Entries) == 0 {
			continue
		}
		if n > best {
			best = n
			bestMap = m
		}
	}

	if bestMap == nil {
		return nil, false
	}

	first := bestMap.Entries[0]
	id := NewPlaceholder()
	id.Resolve(first.Key.Name)
	return id, true
}
