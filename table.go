// Package weakhash implements a Robin-Hood open-addressed hash table
// whose elements hold weak references: entries disappear on their own,
// invisibly, once nothing else keeps their referent alive, without the
// table doing any work. Package weakhash exposes the table core plus
// four facades built on it - Set, Map, ValueMap and WeakMap - covering
// the four shapes a weakly-referenced element can take.
//
// Table is not goroutine-safe. Callers synchronize access themselves,
// exactly as they would around a builtin map.
package weakhash

import "hash/maphash"

const (
	defaultBucketCount   = 8
	defaultMaxLoadFactor = 0.8
)

// Table is the shared Robin-Hood hash table core behind every facade in
// this package. W is the at-rest element form (weak.Pointer fields for
// whichever parts are weakly held), V is the form callers pass in and
// get back (the same parts held strongly, or nil where a lock failed),
// K is the comparable key type, and T selects which of the four element
// shapes (set / weak-key / weak-value / weak-weak) this instantiation
// implements.
//
// A Table overcounts by design: Size only changes on Insert, Erase,
// RemoveExpired, Clear and Reserve. An entry whose weak parts are silently collected by the
// garbage collector remains counted, and absent from iteration and
// lookup, until something calls RemoveExpired or happens to evict it
// during an insert or a growth.
type Table[W, V any, K comparable, T Traits[W, V, K]] struct {
	buckets       []bucket[W]
	size          int
	maxLoadFactor float64
	hash          Hasher[K]
	keyEqual      KeyEqual[K]
	allocator     Allocator[W]
}

// New constructs a Table with the given initial bucket count (rounded
// up to the default of 8 if smaller).
func New[W, V any, K comparable, T Traits[W, V, K]](bucketCount int, opts ...Option[W, V, K, T]) *Table[W, V, K, T] {
	t := &Table[W, V, K, T]{
		maxLoadFactor: defaultMaxLoadFactor,
		hash:          defaultHasher[K](maphash.MakeSeed()),
		keyEqual:      defaultKeyEqual[K](),
		allocator:     defaultAllocator[W]{},
	}
	for _, opt := range opts {
		opt.apply(t)
	}
	if bucketCount < defaultBucketCount {
		bucketCount = defaultBucketCount
	}
	t.buckets = t.allocator.Alloc(bucketCount)
	return t
}

// Size returns the number of live-or-uncollected entries. Because of
// overcounting, this is an upper bound on the number of entries whose
// weak parts are actually still reachable.
func (t *Table[W, V, K, T]) Size() int { return t.size }

// Empty reports whether Size is zero.
func (t *Table[W, V, K, T]) Empty() bool { return t.size == 0 }

// BucketCount returns the current size of the backing array.
func (t *Table[W, V, K, T]) BucketCount() int { return len(t.buckets) }

// LoadFactor returns Size divided by BucketCount, or 1 if BucketCount is
// zero (a state normally unreachable outside a manually zeroed Table).
func (t *Table[W, V, K, T]) LoadFactor() float64 {
	if len(t.buckets) == 0 {
		return 1
	}
	return float64(t.size) / float64(len(t.buckets))
}

// MaxLoadFactor returns the configured max load factor.
func (t *Table[W, V, K, T]) MaxLoadFactor() float64 { return t.maxLoadFactor }

// SetMaxLoadFactor changes the max load factor. It panics if factor is
// not strictly between 0 and 1.
func (t *Table[W, V, K, T]) SetMaxLoadFactor(factor float64) {
	if factor <= 0 || factor >= 1 {
		panic("weakhash: max load factor must be in (0, 1)")
	}
	t.maxLoadFactor = factor
}

func (t *Table[W, V, K, T]) hashOf(key K) uint64 {
	return t.hash(key) & hashMask
}

func (t *Table[W, V, K, T]) whichBucket(h uint64, n int) int {
	return int(h % uint64(n))
}

func (t *Table[W, V, K, T]) nextBucket(pos, n int) int {
	pos++
	if pos == n {
		pos = 0
	}
	return pos
}

func (t *Table[W, V, K, T]) probeDistance(h uint64, pos, n int) int {
	home := t.whichBucket(h, n)
	d := pos - home
	if d < 0 {
		d += n
	}
	return d
}

// findBucket performs the lookup described for §4.3.2: the probe walk
// stops the first time it meets a bucket - occupied or a tombstone -
// whose own probe distance is less than the distance already traveled,
// since Robin-Hood insertion guarantees no matching key could lie
// beyond that point. Tombstones participate in this exit test exactly
// like live buckets; only their own key comparison is skipped.
func (t *Table[W, V, K, T]) findBucket(key K) (int, bool) {
	n := len(t.buckets)
	if n == 0 {
		return 0, false
	}
	h := t.hashOf(key)
	var tr T
	pos := t.whichBucket(h, n)
	dist := 0
	for {
		b := &t.buckets[pos]
		if !b.used && !b.tombstone {
			return 0, false
		}
		if t.probeDistance(b.hash, pos, n) < dist {
			return 0, false
		}
		if !b.tombstone && b.hash == h {
			v := tr.Lock(b.elem)
			if k, ok := tr.Key(v); ok && t.keyEqual(key, k) {
				return pos, true
			}
		}
		pos = t.nextBucket(pos, n)
		dist++
	}
}

// place relocates an element already known to be live into the first
// unused-or-tombstone slot reachable from start, performing whatever
// Robin-Hood displacement is needed along the way. It never touches
// t.size and never compares keys - the caller has already established
// that elem cannot collide with anything ahead of it. This is the same
// iterative steal grounded on the original's steal_ helper; the
// specification's design notes call this form and a recursive
// steal-into-next-slot form equivalent, and prefer this one.
func (t *Table[W, V, K, T]) place(h uint64, elem W, start int) {
	n := len(t.buckets)
	pos := start
	for {
		b := &t.buckets[pos]
		if !b.used || b.tombstone {
			b.used = true
			b.tombstone = false
			b.hash = h
			b.elem = elem
			return
		}
		if t.probeDistance(b.hash, pos, n) < t.probeDistance(h, pos, n) {
			b.hash, h = h, b.hash
			b.elem, elem = elem, b.elem
		}
		pos = t.nextBucket(pos, n)
	}
}

// insertHelper is the three-callback insertion primitive behind every
// public mutation that needs to land a key in some bucket: it walks the
// probe sequence and invokes exactly one callback, then returns.
//
//   - onUninit fires on a truly empty bucket or a tombstone - a bucket
//     that does not currently count toward Size - and Size is
//     incremented before it runs.
//   - onInit fires either on any live bucket encountered along the
//     probe path whose weak parts have already expired (reused
//     unconditionally, before the hash or displacement checks below,
//     without changing Size, which never auto-decremented when it
//     expired) or on a bucket freshly vacated by Robin-Hood
//     displacement of its previous occupant - the latter case does
//     increment Size, since the displaced resident always lands in a
//     bucket that was not counted before (place never creates a new
//     used bucket of its own).
//   - onFound fires when key is already present; it is handed the
//     locked view of the existing element.
//
// Every callback is responsible for writing the new element's storage
// form into t.buckets[idx].elem; insertHelper only ever touches the
// used/tombstone/hash fields.
func (t *Table[W, V, K, T]) insertHelper(
	key K, h uint64,
	onUninit func(idx int),
	onInit func(idx int),
	onFound func(idx int, v V),
) {
	n := len(t.buckets)
	var tr T
	pos := t.whichBucket(h, n)
	for {
		b := &t.buckets[pos]
		if !b.used || b.tombstone {
			b.used = true
			b.tombstone = false
			b.hash = h
			t.size++
			onUninit(pos)
			return
		}
		if tr.Expired(b.elem) {
			b.hash = h
			onInit(pos)
			return
		}
		if b.hash == h {
			v := tr.Lock(b.elem)
			if k, ok := tr.Key(v); ok && t.keyEqual(key, k) {
				onFound(pos, v)
				return
			}
		}
		if t.probeDistance(b.hash, pos, n) < t.probeDistance(h, pos, n) {
			residentHash, residentElem := b.hash, b.elem
			b.hash = h
			onInit(pos)
			t.size++
			t.place(residentHash, residentElem, t.nextBucket(pos, n))
			return
		}
		pos = t.nextBucket(pos, n)
	}
}

// Insert adds v, keyed by whatever Traits.Key(v) reports. If the key is
// already present its element is overwritten in place. It reports
// whether a new entry was created (false both when v has no key, per
// Traits.Key, and when an existing entry was merely overwritten).
func (t *Table[W, V, K, T]) Insert(v V) bool {
	var tr T
	key, ok := tr.Key(v)
	if !ok {
		return false
	}
	t.maybeGrow()
	h := t.hashOf(key)
	inserted := false
	t.insertHelper(key, h,
		func(idx int) { t.buckets[idx].elem = tr.Wrap(v); inserted = true },
		func(idx int) { t.buckets[idx].elem = tr.Wrap(v); inserted = true },
		func(idx int, _ V) { t.buckets[idx].elem = tr.Wrap(v) },
	)
	return inserted
}

// Erase removes the entry for key, reporting whether one was present.
func (t *Table[W, V, K, T]) Erase(key K) bool {
	idx, ok := t.findBucket(key)
	if !ok {
		return false
	}
	var zero W
	t.buckets[idx].elem = zero
	t.buckets[idx].used = false
	t.buckets[idx].tombstone = true
	t.size--
	return true
}

// Member reports whether key names a live entry.
func (t *Table[W, V, K, T]) Member(key K) bool {
	_, ok := t.findBucket(key)
	return ok
}

// Count returns 1 if key names a live entry, 0 otherwise - present for
// interface parity with the hash-set/hash-map convention that Count
// never exceeds 1 for a uniquely keyed container.
func (t *Table[W, V, K, T]) Count(key K) int {
	if t.Member(key) {
		return 1
	}
	return 0
}

// Find looks up key, locking its weak parts. ok is false if key is not
// present.
func (t *Table[W, V, K, T]) Find(key K) (v V, ok bool) {
	idx, found := t.findBucket(key)
	if !found {
		return v, false
	}
	var tr T
	return tr.Lock(t.buckets[idx].elem), true
}

// index behaves like findBucket but on a miss falls through to
// insertHelper via the three supplied callbacks, matching the original
// operator[] adapters (§4.4) that either find an existing bucket or
// create one without probing twice.
func (t *Table[W, V, K, T]) index(
	key K,
	onUninit func(idx int),
	onInit func(idx int),
	onFound func(idx int, v V),
) {
	t.maybeGrow()
	h := t.hashOf(key)
	t.insertHelper(key, h, onUninit, onInit, onFound)
}

// RemoveExpired scans every live bucket, turning any whose weak parts
// have been collected into a tombstone and decrementing Size. It
// returns the number of entries removed. Apart from a resize, this is
// the only operation that reconciles overcounted Size with reality.
func (t *Table[W, V, K, T]) RemoveExpired() int {
	var tr T
	removed := 0
	for i := range t.buckets {
		b := &t.buckets[i]
		if b.used && !b.tombstone && tr.Expired(b.elem) {
			var zero W
			b.elem = zero
			b.used = false
			b.tombstone = true
			t.size--
			removed++
		}
	}
	return removed
}

// Clear removes every entry but keeps the current bucket count.
func (t *Table[W, V, K, T]) Clear() {
	for i := range t.buckets {
		t.buckets[i] = bucket[W]{}
	}
	t.size = 0
}

// Reserve reconciles Size by dropping expired entries, then ensures the
// table can hold size()+extra entries without needing to grow further,
// performing at most one resize.
func (t *Table[W, V, K, T]) Reserve(extra int) {
	if extra < 0 {
		panic("weakhash: negative reserve")
	}
	t.RemoveExpired()
	need := t.minBucketCount(t.size + extra)
	if need > len(t.buckets) {
		t.resize(need)
	}
}

func (t *Table[W, V, K, T]) minBucketCount(n int) int {
	return int(float64(n)/t.maxLoadFactor) + 1
}

func (t *Table[W, V, K, T]) needsGrow() bool {
	n := len(t.buckets)
	if n == 0 {
		return true
	}
	return t.LoadFactor() > t.maxLoadFactor || t.size >= n
}

// maybeGrow implements §4.3.4's growth policy: reclaim expired entries
// first, since that alone might relieve the pressure, and only pay for
// an actual resize if the table is still overfull afterward.
func (t *Table[W, V, K, T]) maybeGrow() {
	if !t.needsGrow() {
		return
	}
	t.RemoveExpired()
	if !t.needsGrow() {
		return
	}
	target := len(t.buckets) * 2
	if target == 0 {
		target = defaultBucketCount
	}
	if min := t.minBucketCount(t.size + 1); min > target {
		target = min
	}
	t.resize(target)
}

// resize walks every live bucket, locks it, drops anything that has
// since expired, and re-places the survivors into a fresh backing
// array, leaving Size exact immediately afterward. It panics if newCount
// is not larger than the current Size.
func (t *Table[W, V, K, T]) resize(newCount int) {
	if newCount <= t.size {
		panic("weakhash: resize to no more buckets than entries")
	}
	old := t.buckets
	t.buckets = t.allocator.Alloc(newCount)
	t.size = 0
	var tr T
	for i := range old {
		b := &old[i]
		if !b.used || b.tombstone {
			continue
		}
		v := tr.Lock(b.elem)
		key, ok := tr.Key(v)
		if !ok {
			continue
		}
		h := t.hashOf(key)
		t.place(h, tr.Wrap(v), t.whichBucket(h, len(t.buckets)))
		t.size++
	}
	t.allocator.Free(old)
}

// All iterates every live entry in bucket order, matching §4.3.6's lazy
// iteration: buckets holding expired weak parts are silently skipped
// rather than eagerly reclaimed. Mutating the table during iteration is
// not supported and may skip or repeat entries across a resize.
func (t *Table[W, V, K, T]) All(yield func(v V) bool) {
	var tr T
	for i := range t.buckets {
		b := &t.buckets[i]
		if !b.used || b.tombstone {
			continue
		}
		v := tr.Lock(b.elem)
		if _, ok := tr.Key(v); !ok {
			continue
		}
		if !yield(v) {
			return
		}
	}
}
