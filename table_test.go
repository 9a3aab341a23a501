package weakhash

import (
	"fmt"
	"runtime"
	"testing"
	"weak"

	"github.com/stretchr/testify/require"
)

// collect forces two rounds of garbage collection, the standard idiom
// for driving weak.Pointer expiry (and any GC-triggered queues) to
// completion inside a test process.
func collect() {
	runtime.GC()
	runtime.GC()
}

func TestSetBasic(t *testing.T) {
	s := NewSet[string](0)
	require.True(t, s.Empty())

	a, b, c := "a", "b", "c"
	require.True(t, s.Insert(&a))
	require.True(t, s.Insert(&b))
	require.True(t, s.Insert(&c))
	require.False(t, s.Insert(&a), "re-inserting an equal key is not a new entry")
	require.Equal(t, 3, s.Size())

	require.True(t, s.Member("a"))
	require.True(t, s.Member("b"))
	require.False(t, s.Member("z"))
	require.Equal(t, 1, s.Count("a"))
	require.Equal(t, 0, s.Count("z"))

	p, ok := s.Find("b")
	require.True(t, ok)
	require.Equal(t, "b", *p)

	seen := map[string]bool{}
	s.All(func(p *string) bool {
		seen[*p] = true
		return true
	})
	require.Equal(t, map[string]bool{"a": true, "b": true, "c": true}, seen)
}

func TestSetInvisibleExpiry(t *testing.T) {
	s := NewSet[string](0)
	keep := "keep"
	s.Insert(&keep)

	func() {
		gone := "gone"
		s.Insert(&gone)
		require.True(t, s.Member("gone"))
	}()
	collect()

	// The expired member vanishes from lookup and iteration without any
	// call that mutates the table.
	require.False(t, s.Member("gone"))
	_, ok := s.Find("gone")
	require.False(t, ok)

	seen := map[string]bool{}
	s.All(func(p *string) bool {
		seen[*p] = true
		return true
	})
	require.Equal(t, map[string]bool{"keep": true}, seen)

	// But Size still overcounts until an explicit reconciliation.
	require.Equal(t, 2, s.Size())
	require.Equal(t, 1, s.RemoveExpired())
	require.Equal(t, 1, s.Size())
}

func TestGrowthDropsExpiredAndFixesSize(t *testing.T) {
	s := NewSet[string](0)
	var kept []*string
	for i := 0; i < 4; i++ {
		v := fmt.Sprintf("kept-%d", i)
		kept = append(kept, &v)
		s.Insert(&v)
	}
	for i := 0; i < 4; i++ {
		v := fmt.Sprintf("gone-%d", i)
		s.Insert(&v)
	}
	require.Equal(t, 8, s.Size())
	collect()

	// Size still overcounts the four collected entries until something
	// resizes or explicitly reconciles the table.
	require.Equal(t, 8, s.Size())

	before := s.BucketCount()
	s.Reserve(64)
	require.Greater(t, s.BucketCount(), before)
	require.Equal(t, len(kept), s.Size(), "size is exact immediately after a resize")
	for _, k := range kept {
		require.True(t, s.Member(*k))
	}
}

// TestEraseUnderCollisions forces every key into the same home bucket,
// so every insertion after the first probes forward past the earlier
// keys into the next never-used slot (residents sharing one home never
// have a smaller probe distance, so none is displaced), then erases
// from the middle of the resulting probe chain and checks that
// lookups for keys further down the chain still find their entries -
// the tombstone-inclusive probe-distance exit must not stop short.
func TestEraseUnderCollisions(t *testing.T) {
	constHash := func(string) uint64 { return 7 }
	s := NewSet[string](8, WithHash[weak.Pointer[string], *string, string, setTraits[string]](constHash))

	var keys []*string
	for i := 0; i < 6; i++ {
		v := fmt.Sprintf("k%d", i)
		keys = append(keys, &v)
		require.True(t, s.Insert(&v))
	}
	require.Equal(t, 6, s.Size())

	require.True(t, s.Erase("k2"))
	require.False(t, s.Member("k2"))

	for i, k := range keys {
		if i == 2 {
			continue
		}
		require.True(t, s.Member(*k), "key %q should still be reachable past the tombstone", *k)
	}
}

// TestManyDistinctKeysExactSize inserts far more distinct keys than the
// initial bucket count, forcing both growth and, along the way, genuine
// Robin-Hood displacement of already-placed residents (not just
// probing forward into never-used slots, as the single-home collision
// case in TestEraseUnderCollisions does). Size must land exactly on
// the number of keys inserted - the scenario spec.md §8 Scenario B
// describes. The hash function is a fixed multiplicative spread rather
// than the default maphash-seeded one so the displacement pattern, and
// thus the test, is deterministic across runs.
func TestManyDistinctKeysExactSize(t *testing.T) {
	const n = 1000
	spread := func(k int) uint64 { return uint64(k) * 2654435761 }
	s := NewSet[int](0, WithHash[weak.Pointer[int], *int, int, setTraits[int]](spread))

	keys := make([]*int, n)
	for i := 0; i < n; i++ {
		v := i
		keys[i] = &v
		require.True(t, s.Insert(&v))
	}

	require.Equal(t, n, s.Size())
	require.True(t, s.Member(n-1))
	for _, k := range keys {
		require.True(t, s.Member(*k))
	}
}

func TestReserveGrowsAtMostOnce(t *testing.T) {
	s := NewSet[string](0)
	before := s.BucketCount()
	s.Reserve(1000)
	after := s.BucketCount()
	require.Greater(t, after, before)

	v := "x"
	s.Insert(&v)
	require.Equal(t, after, s.BucketCount(), "an insert within reserved capacity must not resize again")
}

func TestClear(t *testing.T) {
	s := NewSet[string](0)
	for i := 0; i < 20; i++ {
		v := fmt.Sprintf("v%d", i)
		s.Insert(&v)
	}
	capacity := s.BucketCount()
	s.Clear()
	require.Equal(t, 0, s.Size())
	require.Equal(t, capacity, s.BucketCount())
	s.All(func(*string) bool {
		require.Fail(t, "should not iterate an empty table")
		return true
	})
}

func TestMaxLoadFactorValidation(t *testing.T) {
	require.Panics(t, func() {
		NewSet[string](0, WithMaxLoadFactor[weak.Pointer[string], *string, string, setTraits[string]](0))
	})
	require.Panics(t, func() {
		NewSet[string](0, WithMaxLoadFactor[weak.Pointer[string], *string, string, setTraits[string]](1))
	})
}
