package collections

import "math/rand"

// NonOrderedSetHasher assigns a random 64-bit tag to each element of
// [0,n) and hashes a set as the XOR of its members' tags, so the hash of
// a set does not depend on insertion order and can be built incrementally
// (XOR one tag in, XOR it back out). One designated element can be
// marked "ignored": Tag, Hash and HashSet always treat it as absent.
// Grounded on the teacher's classical.BitwiseInt.Xor idiom.
type NonOrderedSetHasher struct {
	tags     []uint64
	ignored  int
	hasIgnore bool
}

// NewNonOrderedSetHasher allocates tags for n elements using rng (pass a
// seeded *rand.Rand so results are reproducible across a run).
func NewNonOrderedSetHasher(n int, rng *rand.Rand) *NonOrderedSetHasher {
	tags := make([]uint64, n)
	for i := range tags {
		// Avoid an all-zero tag, which would make that element
		// invisible to the hash.
		for tags[i] == 0 {
			tags[i] = rng.Uint64()
		}
	}
	return &NonOrderedSetHasher{tags: tags, ignored: -1}
}

// SetIgnored marks element i as always excluded from hashes. Pass -1 to
// clear it.
func (h *NonOrderedSetHasher) SetIgnored(i int) {
	h.ignored = i
	h.hasIgnore = i >= 0
}

// Tag returns the raw per-element tag, 0 if the element is ignored.
func (h *NonOrderedSetHasher) Tag(i int) uint64 {
	if h.hasIgnore && i == h.ignored {
		return 0
	}
	return h.tags[i]
}

// Hash computes the XOR-hash of an explicit member list.
func (h *NonOrderedSetHasher) Hash(members []int) uint64 {
	var acc uint64
	for _, m := range members {
		acc ^= h.Tag(m)
	}
	return acc
}

// HashSet computes the XOR-hash of a BacktrackableIntegerSet's current
// members, honoring the ignored element.
func (h *NonOrderedSetHasher) HashSet(s *BacktrackableIntegerSet) uint64 {
	return h.Hash(s.Members())
}
