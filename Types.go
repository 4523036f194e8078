package limn

import "golang.org/x/exp/constraints"


//============================================= Limn Core Types


// Key is the constraint satisfied by every type usable as an index key: a
//	primitive signed or unsigned integer with a total order and a statically
//	known minimum/maximum value. Keys are Copy and bit-wise serializable.
type Key interface {
	constraints.Integer
}

// MMap is the byte array representation of a memory mapped file, or a plain
//	heap allocation masquerading as one. Both cases deref identically to a
//	byte slice.
type MMap []byte

// Range is a half-open span of positions [Lo, Hi) into a layer's node array
//	or the base array. Invariant: Lo <= Hi.
type Range struct {
	Lo int
	Hi int
}

// Entry is a single (key, value) record stored contiguously in the base
//	layer. V is expected to be POD: fixed-size, no pointers, bit-wise
//	serializable. This is a contract enforced by convention (Go generics have
//	no "trivially copyable" constraint), not by the type system.
type Entry[K Key, V any] struct {
	Key   K
	Value V
}


// clamp keeps a Range's Hi bound within [0, cap] and Lo within [0, Hi], the
//	narrowing invariant every layer boundary must preserve.
func (r Range) clamp(cap int) Range {
	hi := r.Hi
	if hi > cap {
		hi = cap
	}

	lo := r.Lo
	if lo > hi {
		lo = hi
	}

	if lo < 0 {
		lo = 0
	}

	if hi < 0 {
		hi = 0
	}

	return Range{ Lo: lo, Hi: hi }
}
