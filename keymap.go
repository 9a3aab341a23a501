package weakhash

import "weak"

// keyElem is the at-rest storage for a weak-key map entry.
type keyElem[K comparable, Val any] struct {
	key weak.Pointer[K]
	val Val
}

// KeyView is a weak-key map entry as seen by a caller: Key is the
// locked strong pointer (nil if the key has been collected) and Val is
// the associated value, held strongly the whole time.
type KeyView[K comparable, Val any] struct {
	Key *K
	Val Val
}

type keyTraits[K comparable, Val any] struct{}

func (keyTraits[K, Val]) Expired(w keyElem[K, Val]) bool { return w.key.Value() == nil }

func (keyTraits[K, Val]) Lock(w keyElem[K, Val]) KeyView[K, Val] {
	return KeyView[K, Val]{Key: w.key.Value(), Val: w.val}
}

func (keyTraits[K, Val]) Key(v KeyView[K, Val]) (K, bool) {
	if v.Key == nil {
		var zero K
		return zero, false
	}
	return *v.Key, true
}

func (keyTraits[K, Val]) Wrap(v KeyView[K, Val]) keyElem[K, Val] {
	return keyElem[K, Val]{key: weak.Make(v.Key), val: v.Val}
}

// Map is a weak-key map: keys are held weakly (as *K), values are held
// strongly. An entry disappears on its own once nothing else references
// its key.
type Map[K comparable, Val any] struct {
	t *Table[keyElem[K, Val], KeyView[K, Val], K, keyTraits[K, Val]]
}

// MapOption configures a Map.
type MapOption[K comparable, Val any] = Option[keyElem[K, Val], KeyView[K, Val], K, keyTraits[K, Val]]

// NewMap constructs an empty Map with the given initial bucket count (0
// for the default of 8).
func NewMap[K comparable, Val any](bucketCount int, opts ...MapOption[K, Val]) *Map[K, Val] {
	return &Map[K, Val]{t: New[keyElem[K, Val], KeyView[K, Val], K, keyTraits[K, Val]](bucketCount, opts...)}
}

// Insert associates *key with val, overwriting any existing value for
// an equal key. It reports whether a new entry was created.
func (m *Map[K, Val]) Insert(key *K, val Val) bool {
	return m.t.Insert(KeyView[K, Val]{Key: key, Val: val})
}

// Erase removes the entry for key, reporting whether one was present.
func (m *Map[K, Val]) Erase(key K) bool { return m.t.Erase(key) }

// Member reports whether key names a live entry.
func (m *Map[K, Val]) Member(key K) bool { return m.t.Member(key) }

// Count returns 1 if key names a live entry, 0 otherwise.
func (m *Map[K, Val]) Count(key K) int { return m.t.Count(key) }

// Get looks up key, returning its value if present.
func (m *Map[K, Val]) Get(key K) (Val, bool) {
	v, ok := m.t.Find(key)
	if !ok {
		var zero Val
		return zero, false
	}
	return v.Val, true
}

// Index returns a pointer to the value for key, first inserting a
// zero-valued entry with a fresh weak reference to key if it isn't
// already present. This mirrors weak_key_unordered_map::operator[] from
// the original, including its hazard: the returned pointer is only
// valid until any subsequent insert, which may relocate it via
// Robin-Hood displacement even without growing the table.
func (m *Map[K, Val]) Index(key *K) *Val {
	var out *Val
	m.t.index(*key,
		func(idx int) {
			m.t.buckets[idx].elem = keyElem[K, Val]{key: weak.Make(key)}
			out = &m.t.buckets[idx].elem.val
		},
		func(idx int) {
			m.t.buckets[idx].elem = keyElem[K, Val]{key: weak.Make(key)}
			out = &m.t.buckets[idx].elem.val
		},
		func(idx int, _ KeyView[K, Val]) {
			out = &m.t.buckets[idx].elem.val
		},
	)
	return out
}

// RemoveExpired reconciles Size with reality, returning the number of
// entries it dropped because their key was collected.
func (m *Map[K, Val]) RemoveExpired() int { return m.t.RemoveExpired() }

// Clear removes every entry.
func (m *Map[K, Val]) Clear() { m.t.Clear() }

// Reserve ensures room for size()+extra entries without another resize.
func (m *Map[K, Val]) Reserve(extra int) { m.t.Reserve(extra) }

// Size returns the overcounted entry count. See Table.Size.
func (m *Map[K, Val]) Size() int { return m.t.Size() }

// Empty reports whether Size is zero.
func (m *Map[K, Val]) Empty() bool { return m.t.Empty() }

// LoadFactor returns Size divided by BucketCount.
func (m *Map[K, Val]) LoadFactor() float64 { return m.t.LoadFactor() }

// All iterates every live entry in bucket order.
func (m *Map[K, Val]) All(yield func(KeyView[K, Val]) bool) { m.t.All(yield) }
