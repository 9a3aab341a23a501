package weakhash

import "weak"

// valElem is the at-rest storage for a weak-value map entry.
type valElem[K comparable, Val any] struct {
	key K
	val weak.Pointer[Val]
}

// ValueView is a weak-value map entry as seen by a caller: Key is held
// strongly, Val is the locked strong pointer (nil if the value has been
// collected).
type ValueView[K comparable, Val any] struct {
	Key K
	Val *Val
}

type valueTraits[K comparable, Val any] struct{}

func (valueTraits[K, Val]) Expired(w valElem[K, Val]) bool { return w.val.Value() == nil }

func (valueTraits[K, Val]) Lock(w valElem[K, Val]) ValueView[K, Val] {
	return ValueView[K, Val]{Key: w.key, Val: w.val.Value()}
}

// Key returns false once the value has expired: with the key held
// strongly, only the value going away can make the entry disappear, so
// - following weak_value_pair::key in the original - a dead value is
// what disqualifies this view from naming a present key.
func (valueTraits[K, Val]) Key(v ValueView[K, Val]) (K, bool) {
	if v.Val == nil {
		var zero K
		return zero, false
	}
	return v.Key, true
}

func (valueTraits[K, Val]) Wrap(v ValueView[K, Val]) valElem[K, Val] {
	return valElem[K, Val]{key: v.Key, val: weak.Make(v.Val)}
}

// ValueMap is a weak-value map: keys are held strongly, values are held
// weakly (as *Val). An entry disappears on its own once nothing else
// references its value.
type ValueMap[K comparable, Val any] struct {
	t *Table[valElem[K, Val], ValueView[K, Val], K, valueTraits[K, Val]]
}

// ValueMapOption configures a ValueMap.
type ValueMapOption[K comparable, Val any] = Option[valElem[K, Val], ValueView[K, Val], K, valueTraits[K, Val]]

// NewValueMap constructs an empty ValueMap with the given initial
// bucket count (0 for the default of 8).
func NewValueMap[K comparable, Val any](bucketCount int, opts ...ValueMapOption[K, Val]) *ValueMap[K, Val] {
	return &ValueMap[K, Val]{t: New[valElem[K, Val], ValueView[K, Val], K, valueTraits[K, Val]](bucketCount, opts...)}
}

// Insert associates key with *val, overwriting any existing value for
// an equal key. It reports whether a new entry was created.
func (vm *ValueMap[K, Val]) Insert(key K, val *Val) bool {
	return vm.t.Insert(ValueView[K, Val]{Key: key, Val: val})
}

// Erase removes the entry for key, reporting whether one was present.
func (vm *ValueMap[K, Val]) Erase(key K) bool { return vm.t.Erase(key) }

// Member reports whether key names a live entry.
func (vm *ValueMap[K, Val]) Member(key K) bool { return vm.t.Member(key) }

// Count returns 1 if key names a live entry, 0 otherwise.
func (vm *ValueMap[K, Val]) Count(key K) int { return vm.t.Count(key) }

// Get looks up key, returning the locked pointer to its value if
// present.
func (vm *ValueMap[K, Val]) Get(key K) (*Val, bool) {
	v, ok := vm.t.Find(key)
	if !ok {
		return nil, false
	}
	return v.Val, true
}

// ValueProxy stands in for the original's proxy class, since Go has no
// assignment-operator overloading: Get reads the current locked value
// and Set installs a fresh weak reference to a new one, writing through
// to the same bucket the proxy was created from.
type ValueProxy[K comparable, Val any] struct {
	t   *Table[valElem[K, Val], ValueView[K, Val], K, valueTraits[K, Val]]
	idx int
}

// Get returns the currently locked value, or nil if it has expired.
func (p ValueProxy[K, Val]) Get() *Val {
	return p.t.buckets[p.idx].elem.val.Value()
}

// Set installs val as the entry's new value, taking a fresh weak
// reference to it.
func (p ValueProxy[K, Val]) Set(val *Val) {
	p.t.buckets[p.idx].elem.val = weak.Make(val)
}

// Index returns a ValueProxy for key, first inserting an entry with a
// nil value if key isn't already present. This mirrors
// weak_value_unordered_map's operator[] proxy, including its hazard:
// the proxy's bucket index is only valid until any subsequent insert,
// which may relocate it via Robin-Hood displacement even without
// growing the table.
func (vm *ValueMap[K, Val]) Index(key K) ValueProxy[K, Val] {
	var idx int
	vm.t.index(key,
		func(i int) { vm.t.buckets[i].elem = valElem[K, Val]{key: key}; idx = i },
		func(i int) { vm.t.buckets[i].elem = valElem[K, Val]{key: key}; idx = i },
		func(i int, _ ValueView[K, Val]) { idx = i },
	)
	return ValueProxy[K, Val]{t: vm.t, idx: idx}
}

// RemoveExpired reconciles Size with reality, returning the number of
// entries it dropped because their value was collected.
func (vm *ValueMap[K, Val]) RemoveExpired() int { return vm.t.RemoveExpired() }

// Clear removes every entry.
func (vm *ValueMap[K, Val]) Clear() { vm.t.Clear() }

// Reserve ensures room for size()+extra entries without another resize.
func (vm *ValueMap[K, Val]) Reserve(extra int) { vm.t.Reserve(extra) }

// Size returns the overcounted entry count. See Table.Size.
func (vm *ValueMap[K, Val]) Size() int { return vm.t.Size() }

// Empty reports whether Size is zero.
func (vm *ValueMap[K, Val]) Empty() bool { return vm.t.Empty() }

// LoadFactor returns Size divided by BucketCount.
func (vm *ValueMap[K, Val]) LoadFactor() float64 { return vm.t.LoadFactor() }

// All iterates every live entry in bucket order.
func (vm *ValueMap[K, Val]) All(yield func(ValueView[K, Val]) bool) { vm.t.All(yield) }

// Submap reports whether every live entry of a has an equal (per equal)
// counterpart in b, following the original's free submap function.
func Submap[K comparable, Val any](a, b *ValueMap[K, Val], equal func(x, y Val) bool) bool {
	result := true
	a.All(func(v ValueView[K, Val]) bool {
		bv, found := b.Get(v.Key)
		if !found || !equal(*v.Val, *bv) {
			result = false
			return false
		}
		return true
	})
	return result
}

// KeysSubset reports whether every live key of a is also a live key of
// b, ignoring values, following the original's free keys_subset
// function.
func KeysSubset[K comparable, Val any](a, b *ValueMap[K, Val]) bool {
	result := true
	a.All(func(v ValueView[K, Val]) bool {
		if !b.Member(v.Key) {
			result = false
			return false
		}
		return true
	})
	return result
}

// Equal reports whether a and b hold the same live entries under equal,
// following the original's operator== (each is a submap of the other).
func Equal[K comparable, Val any](a, b *ValueMap[K, Val], equal func(x, y Val) bool) bool {
	return Submap(a, b, equal) && Submap(b, a, equal)
}
