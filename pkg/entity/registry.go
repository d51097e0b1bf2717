package entity

// Identified is anything keyed by a stable numeric id.
type Identified interface {
	EntityID() uint32
}

// Registry is an id-keyed arena. Entities are looked up by id, never by
// address, so removal never leaves a dangling reference behind.
//
// Lookups scan linearly; the expected population is tens of entities.
type Registry[T Identified] struct {
	items []T
}

func NewRegistry[T Identified]() *Registry[T] {
	return &Registry[T]{}
}

// Insert adds e unless an entity with the same id is present. It reports
// whether e was added.
func (r *Registry[T]) Insert(e T) bool {
	if r.index(e.EntityID()) >= 0 {
		return false
	}
	r.items = append(r.items, e)
	return true
}

// Remove deletes the entity with id. Unknown ids are ignored.
func (r *Registry[T]) Remove(id uint32) (T, bool) {
	var zero T
	i := r.index(id)
	if i < 0 {
		return zero, false
	}
	e := r.items[i]
	last := len(r.items) - 1
	r.items[i] = r.items[last]
	r.items[last] = zero
	r.items = r.items[:last]
	return e, true
}

// Get returns the entity with id.
func (r *Registry[T]) Get(id uint32) (T, bool) {
	if i := r.index(id); i >= 0 {
		return r.items[i], true
	}
	var zero T
	return zero, false
}

func (r *Registry[T]) Has(id uint32) bool {
	return r.index(id) >= 0
}

func (r *Registry[T]) Len() int {
	return len(r.items)
}

// All returns a copy of the live entities, safe to hold across Insert and Remove.
func (r *Registry[T]) All() []T {
	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}

// Retain keeps only the entities for which keep returns true.
func (r *Registry[T]) Retain(keep func(T) bool) (removed []T) {
	kept := r.items[:0]
	for _, e := range r.items {
		if keep(e) {
			kept = append(kept, e)
		} else {
			removed = append(removed, e)
		}
	}
	var zero T
	for i := len(kept); i < len(r.items); i++ {
		r.items[i] = zero
	}
	r.items = kept
	return removed
}

func (r *Registry[T]) Clear() {
	r.items = nil
}

func (r *Registry[T]) index(id uint32) int {
	for i, e := range r.items {
		if e.EntityID() == id {
			return i
		}
	}
	return -1
}
