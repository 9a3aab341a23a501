package weakhash

import "weak"

// weakElem is the at-rest storage for a weak-weak map entry.
type weakElem[K comparable, Val any] struct {
	key weak.Pointer[K]
	val weak.Pointer[Val]
}

// WeakView is a weak-weak map entry as seen by a caller: both Key and
// Val are locked strong pointers, either of which may be nil.
type WeakView[K comparable, Val any] struct {
	Key *K
	Val *Val
}

type weakTraits[K comparable, Val any] struct{}

func (weakTraits[K, Val]) Expired(w weakElem[K, Val]) bool {
	return w.key.Value() == nil || w.val.Value() == nil
}

func (weakTraits[K, Val]) Lock(w weakElem[K, Val]) WeakView[K, Val] {
	return WeakView[K, Val]{Key: w.key.Value(), Val: w.val.Value()}
}

func (weakTraits[K, Val]) Key(v WeakView[K, Val]) (K, bool) {
	if v.Key == nil || v.Val == nil {
		var zero K
		return zero, false
	}
	return *v.Key, true
}

func (weakTraits[K, Val]) Wrap(v WeakView[K, Val]) weakElem[K, Val] {
	return weakElem[K, Val]{key: weak.Make(v.Key), val: weak.Make(v.Val)}
}

// WeakMap is a weak-weak map: both keys and values are held weakly. An
// entry disappears on its own once either its key or its value is
// collected.
type WeakMap[K comparable, Val any] struct {
	t *Table[weakElem[K, Val], WeakView[K, Val], K, weakTraits[K, Val]]
}

// WeakMapOption configures a WeakMap.
type WeakMapOption[K comparable, Val any] = Option[weakElem[K, Val], WeakView[K, Val], K, weakTraits[K, Val]]

// NewWeakMap constructs an empty WeakMap with the given initial bucket
// count (0 for the default of 8).
func NewWeakMap[K comparable, Val any](bucketCount int, opts ...WeakMapOption[K, Val]) *WeakMap[K, Val] {
	return &WeakMap[K, Val]{t: New[weakElem[K, Val], WeakView[K, Val], K, weakTraits[K, Val]](bucketCount, opts...)}
}

// Insert associates *key with *val, overwriting any existing value for
// an equal key. It reports whether a new entry was created.
func (wm *WeakMap[K, Val]) Insert(key *K, val *Val) bool {
	return wm.t.Insert(WeakView[K, Val]{Key: key, Val: val})
}

// Erase removes the entry for key, reporting whether one was present.
func (wm *WeakMap[K, Val]) Erase(key K) bool { return wm.t.Erase(key) }

// Member reports whether key names a live entry.
func (wm *WeakMap[K, Val]) Member(key K) bool { return wm.t.Member(key) }

// Count returns 1 if key names a live entry, 0 otherwise.
func (wm *WeakMap[K, Val]) Count(key K) int { return wm.t.Count(key) }

// Get looks up key, returning the locked pointer to its value if
// present.
func (wm *WeakMap[K, Val]) Get(key K) (*Val, bool) {
	v, ok := wm.t.Find(key)
	if !ok {
		return nil, false
	}
	return v.Val, true
}

// WeakProxy stands in for the original's proxy class: Get reads the
// currently locked value and Set installs a fresh weak reference to a
// new one, writing through to the bucket the proxy was created from.
type WeakProxy[K comparable, Val any] struct {
	t   *Table[weakElem[K, Val], WeakView[K, Val], K, weakTraits[K, Val]]
	idx int
}

// Get returns the currently locked value, or nil if it (or the key) has
// expired.
func (p WeakProxy[K, Val]) Get() *Val {
	e := p.t.buckets[p.idx].elem
	if e.key.Value() == nil {
		return nil
	}
	return e.val.Value()
}

// Set installs val as the entry's new value, taking a fresh weak
// reference to it.
func (p WeakProxy[K, Val]) Set(val *Val) {
	p.t.buckets[p.idx].elem.val = weak.Make(val)
}

// Index returns a WeakProxy for key, first inserting an entry with a
// fresh weak reference to key and a nil value if key isn't already
// present. As with ValueMap.Index, the proxy's bucket index is only
// valid until any subsequent insert, which may relocate it via
// Robin-Hood displacement even without growing the table.
func (wm *WeakMap[K, Val]) Index(key *K) WeakProxy[K, Val] {
	var idx int
	wm.t.index(*key,
		func(i int) { wm.t.buckets[i].elem = weakElem[K, Val]{key: weak.Make(key)}; idx = i },
		func(i int) { wm.t.buckets[i].elem = weakElem[K, Val]{key: weak.Make(key)}; idx = i },
		func(i int, _ WeakView[K, Val]) { idx = i },
	)
	return WeakProxy[K, Val]{t: wm.t, idx: idx}
}

// RemoveExpired reconciles Size with reality, returning the number of
// entries it dropped because their key or value was collected.
func (wm *WeakMap[K, Val]) RemoveExpired() int { return wm.t.RemoveExpired() }

// Clear removes every entry.
func (wm *WeakMap[K, Val]) Clear() { wm.t.Clear() }

// Reserve ensures room for size()+extra entries without another resize.
func (wm *WeakMap[K, Val]) Reserve(extra int) { wm.t.Reserve(extra) }

// Size returns the overcounted entry count. See Table.Size.
func (wm *WeakMap[K, Val]) Size() int { return wm.t.Size() }

// Empty reports whether Size is zero.
func (wm *WeakMap[K, Val]) Empty() bool { return wm.t.Empty() }

// LoadFactor returns Size divided by BucketCount.
func (wm *WeakMap[K, Val]) LoadFactor() float64 { return wm.t.LoadFactor() }

// All iterates every live entry in bucket order.
func (wm *WeakMap[K, Val]) All(yield func(WeakView[K, Val]) bool) { wm.t.All(yield) }

// WeakSubmap reports whether every live entry of a has an equal (per
// equal) counterpart in b, following the original's free submap
// function.
func WeakSubmap[K comparable, Val any](a, b *WeakMap[K, Val], equal func(x, y Val) bool) bool {
	result := true
	a.All(func(v WeakView[K, Val]) bool {
		bv, found := b.Get(*v.Key)
		if !found || !equal(*v.Val, *bv) {
			result = false
			return false
		}
		return true
	})
	return result
}

// WeakKeysSubset reports whether every live key of a is also a live key
// of b, ignoring values, following the original's free keys_subset
// function.
func WeakKeysSubset[K comparable, Val any](a, b *WeakMap[K, Val]) bool {
	result := true
	a.All(func(v WeakView[K, Val]) bool {
		if !b.Member(*v.Key) {
			result = false
			return false
		}
		return true
	})
	return result
}

// WeakEqual reports whether a and b hold the same live entries under
// equal, following the original's operator== (each is a submap of the
// other).
func WeakEqual[K comparable, Val any](a, b *WeakMap[K, Val], equal func(x, y Val) bool) bool {
	return WeakSubmap(a, b, equal) && WeakSubmap(b, a, equal)
}
