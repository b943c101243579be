package cmap

// Range calls fn for every entry until fn returns false. Locks are
// taken shard by shard, so the traversal is not a consistent snapshot
// when writers are active.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) {
	for _, sh := range m.shards {
		sh.mu.RLock()
		for k, v := range sh.items {
			if !fn(k, v) {
				sh.mu.RUnlock()
				return
			}
		}
		sh.mu.RUnlock()
	}
}

// Keys returns the keys of all entries in unspecified order.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.Count())
	m.Range(func(key K, _ V) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// Values returns the values of all entries in unspecified order.
func (m *Map[K, V]) Values() []V {
	values := make([]V, 0, m.Count())
	m.Range(func(_ K, value V) bool {
		values = append(values, value)
		return true
	})
	return values
}

// GetOrSet returns the existing value for key, or stores and returns
// value when key is absent. The bool reports whether an existing entry
// was found.
func (m *Map[K, V]) GetOrSet(key K, value V) (V, bool) {
	sh := m.getShard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if existing, ok := sh.items[key]; ok {
		return existing, true
	}
	sh.items[key] = value
	return value, false
}

// SetIfAbsent stores value only when key has no entry yet and reports
// whether the store happened.
func (m *Map[K, V]) SetIfAbsent(key K, value V) bool {
	sh := m.getShard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.items[key]; ok {
		return false
	}
	sh.items[key] = value
	return true
}

// Pop removes key and returns the value it held, if any.
func (m *Map[K, V]) Pop(key K) (V, bool) {
	sh := m.getShard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	val, ok := sh.items[key]
	if ok {
		delete(sh.items, key)
	}
	return val, ok
}
