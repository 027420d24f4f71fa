package cache

// Typed 是绑定到单个 namespace 与值类型的视图。
type Typed[V any] struct {
	store *Store
	ns    Namespace
}

func NewTyped[V any](s *Store, ns Namespace) Typed[V] {
	return Typed[V]{store: s, ns: ns}
}

// Get 返回 (值, 是否新鲜, 是否存在)。
func (t Typed[V]) Get(key string) (V, bool, bool) {
	var v V
	if t.store == nil {
		return v, false, false
	}
	found, fresh := t.store.Get(t.ns, key, &v)
	if !found {
		var zero V
		return zero, false, false
	}
	return v, fresh, true
}

func (t Typed[V]) Put(key string, v V) error {
	if t.store == nil {
		return nil
	}
	return t.store.Put(t.ns, key, v)
}
