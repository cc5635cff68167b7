package datalink

// Registry is the ordered collection of live planes, most recently
// touched first. Its size is bounded; the bound is advisory and is
// enforced by eviction, never by refusing an insert.
type Registry struct {
	planes    []*Plane
	maxPlanes int
}

// NewRegistry creates a registry bounded to maxPlanes entries.
func NewRegistry(maxPlanes int) *Registry {
	return &Registry{maxPlanes: maxPlanes}
}

// Len returns the number of planes currently tracked.
func (r *Registry) Len() int {
	return len(r.planes)
}

// At returns the plane at the given index.
func (r *Registry) At(i int) *Plane {
	return r.planes[i]
}

// Planes returns the underlying ordered slice. Callers must hold the
// engine's serialization when reading it.
func (r *Registry) Planes() []*Plane {
	return r.planes
}

// Find scans the registry in order and returns the index of the first
// plane matching any supplied non-empty identity key. An empty identity
// or an empty registry yields no match.
func (r *Registry) Find(id Identity) (int, bool) {
	if id.None() {
		return 0, false
	}
	for i, p := range r.planes {
		if p.matches(id) {
			return i, true
		}
	}
	return 0, false
}

// Promote moves the plane at index i to position 0, preserving the
// relative order of all others.
func (r *Registry) Promote(i int) {
	r.planes = moveToFront(r.planes, i)
}

// InsertFront inserts a new plane at position 0 and evicts if the
// registry now exceeds its bound. Eviction removes planes that have
// message history but no live position, dropping the least recently
// touched of those first. Planes with a live position are never
// evicted, even if that leaves the registry temporarily over the bound.
func (r *Registry) InsertFront(p *Plane) {
	r.planes = append(r.planes, nil)
	copy(r.planes[1:], r.planes)
	r.planes[0] = p

	excess := len(r.planes) - r.maxPlanes
	if excess <= 0 {
		return
	}

	var candidates []int // Indices of evictable planes, registry order
	for i, plane := range r.planes {
		if plane.Position == nil && len(plane.Messages) > 0 {
			candidates = append(candidates, i)
		}
	}
	if excess > len(candidates) {
		excess = len(candidates)
	}

	// Drop from the tail of the candidate set: highest indices first so
	// the earlier ones stay valid while removing.
	for k := len(candidates) - 1; excess > 0; k-- {
		idx := candidates[k]
		r.planes = append(r.planes[:idx], r.planes[idx+1:]...)
		excess--
	}
}

// DropEmpty removes every plane holding neither messages nor a live
// position, preserving order, and returns how many were removed. Such
// planes carry no displayable state and would otherwise accumulate: a
// transient aircraft that only ever appeared in the position feed
// leaves one behind each time it drops out.
func (r *Registry) DropEmpty() int {
	kept := r.planes[:0]
	for _, p := range r.planes {
		if len(p.Messages) == 0 && p.Position == nil {
			continue
		}
		kept = append(kept, p)
	}
	removed := len(r.planes) - len(kept)
	r.planes = kept
	return removed
}

// moveToFront moves s[i] to index 0 while preserving the relative order
// of the other elements. Shared by the registry and the per-plane
// message lists so the splice dance lives in exactly one place.
func moveToFront[T any](s []T, i int) []T {
	if i <= 0 || i >= len(s) {
		return s
	}
	v := s[i]
	copy(s[1:i+1], s[:i])
	s[0] = v
	return s
}
