package weakhash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapWeakKey(t *testing.T) {
	m := NewMap[string, int](0)

	keep := "keep"
	require.True(t, m.Insert(&keep, 1))

	func() {
		gone := "gone"
		m.Insert(&gone, 2)
		v, ok := m.Get("gone")
		require.True(t, ok)
		require.Equal(t, 2, v)
	}()
	collect()

	_, ok := m.Get("gone")
	require.False(t, ok, "an entry whose key has been collected must vanish from lookup")

	v, ok := m.Get("keep")
	require.True(t, ok)
	require.Equal(t, 1, v)

	require.Equal(t, 1, m.RemoveExpired())
	require.Equal(t, 1, m.Size())
}

func TestMapIndexAutoVivifies(t *testing.T) {
	m := NewMap[string, int](0)
	key := "counter"

	*m.Index(&key)++
	*m.Index(&key)++
	*m.Index(&key)++

	v, ok := m.Get("counter")
	require.True(t, ok)
	require.Equal(t, 3, v)
	require.Equal(t, 1, m.Size())
}

func TestMapOverwriteIsNotANewEntry(t *testing.T) {
	m := NewMap[string, int](0)
	key := "k"
	require.True(t, m.Insert(&key, 1))
	require.False(t, m.Insert(&key, 2))
	v, ok := m.Get("k")
	require.True(t, ok)
	require.Equal(t, 2, v)
	require.Equal(t, 1, m.Size())
}
