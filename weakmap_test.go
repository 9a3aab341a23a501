package weakhash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWeakMapBothWeak(t *testing.T) {
	wm := NewWeakMap[string, int](0)

	keepKey := "keep"
	keepVal := 1
	wm.Insert(&keepKey, &keepVal)

	func() {
		goneKey := "gone-key"
		goneVal := 2
		wm.Insert(&goneKey, &goneVal)
		require.True(t, wm.Member("gone-key"))
	}()
	collect()
	require.False(t, wm.Member("gone-key"), "collecting the key must drop the entry")

	keepKey2 := "keep-2"
	func() {
		goneVal := 3
		wm.Insert(&keepKey2, &goneVal)
		require.True(t, wm.Member("keep-2"))
	}()
	collect()
	require.False(t, wm.Member("keep-2"), "collecting the value must drop the entry too, even with the key alive")

	p, ok := wm.Get("keep")
	require.True(t, ok)
	require.Equal(t, 1, *p)
}

func TestWeakMapProxy(t *testing.T) {
	wm := NewWeakMap[string, int](0)
	key := "k"
	v := 9
	wm.Index(&key).Set(&v)

	p, ok := wm.Get("k")
	require.True(t, ok)
	require.Equal(t, 9, *p)
}

func TestWeakMapEqual(t *testing.T) {
	a := NewWeakMap[string, int](0)
	b := NewWeakMap[string, int](0)

	k1, v1 := "one", 1
	a.Insert(&k1, &v1)
	b.Insert(&k1, &v1)

	eq := func(u, v int) bool { return u == v }
	require.True(t, WeakEqual(a, b, eq))
	require.True(t, WeakSubmap(a, b, eq))
	require.True(t, WeakKeysSubset(a, b))
}
