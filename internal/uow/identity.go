package uow

// IdentityMap hands out the same instance for an id for the life of a session.
type IdentityMap[T any] struct {
	items map[string]T
	gone  map[string]struct{}
}

func NewIdentityMap[T any, E any](s *Session[E]) *IdentityMap[T] {
	m := &IdentityMap[T]{
		items: make(map[string]T),
		gone:  make(map[string]struct{}),
	}
	s.onReset(m.Clear)
	return m
}

func (m *IdentityMap[T]) Get(id string) (T, bool) {
	v, ok := m.items[id]
	return v, ok
}

// Removed reports whether id was deleted in this session.
func (m *IdentityMap[T]) Removed(id string) bool {
	_, ok := m.gone[id]
	return ok
}

func (m *IdentityMap[T]) Put(id string, v T) {
	m.items[id] = v
	delete(m.gone, id)
}

func (m *IdentityMap[T]) Remove(id string) {
	delete(m.items, id)
	m.gone[id] = struct{}{}
}

// Resolve swaps freshly loaded values for already tracked instances and drops
// removed ones.
func (m *IdentityMap[T]) Resolve(ids []string, loaded []T) []T {
	out := make([]T, 0, len(loaded))
	for i, v := range loaded {
		id := ids[i]
		if m.Removed(id) {
			continue
		}
		if cur, ok := m.items[id]; ok {
			out = append(out, cur)
			continue
		}
		m.items[id] = v
		out = append(out, v)
	}
	return out
}

func (m *IdentityMap[T]) Clear() {
	m.items = make(map[string]T)
	m.gone = make(map[string]struct{})
}
