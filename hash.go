package weakhash

import "hash/maphash"

// Hasher computes a hash code for a key. The top two bits of the result
// are reserved by the table and are masked off before use, mirroring the
// bucket metadata bits that the original implementation packs alongside
// the hash in each slot.
type Hasher[K any] func(K) uint64

// KeyEqual reports whether two keys are equivalent.
type KeyEqual[K any] func(a, b K) bool

// hashMask reserves the top two bits of every stored hash code for
// bucket metadata, matching the bit-stealing layout of the original
// table even though this implementation keeps used/tombstone in
// separate struct fields rather than the same machine word.
const hashMask = ^uint64(0) >> 2

// defaultHasher returns a Hasher grounded on the same maphash.Hash +
// maphash.WriteComparable technique used to hash canonicalized values in
// anyunique.Set.hashOf: a maphash.Hash using the given seed (New passes
// a fresh one per Table), no reflection or runtime hasher poking
// required.
func defaultHasher[K comparable](seed maphash.Seed) Hasher[K] {
	return func(k K) uint64 {
		var h maphash.Hash
		h.SetSeed(seed)
		maphash.WriteComparable(&h, k)
		return h.Sum64()
	}
}

func defaultKeyEqual[K comparable]() KeyEqual[K] {
	return func(a, b K) bool { return a == b }
}
