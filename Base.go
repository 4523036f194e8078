package limn

import "path/filepath"


//============================================= Limn Base Layer


// baseFileName is the deterministic file name for a persisted base layer,
//	allowing an on-disk index directory to be reloaded idempotently.
const baseFileName = "base.pod"

// BaseLayer owns the sorted (key, value) array at the bottom of the stack.
//	It supports positional indexing and a final in-range search; it is not
//	itself narrowed by anything but the bottommost internal layer.
type BaseLayer[K Key, V any] struct {
	data *Buffer[Entry[K, V]]
}

// BuildBase bulk-builds a base layer in memory from a sorted, unique,
//	length-known stream of (K,V) pairs.
func BuildBase[K Key, V any](entries EntryIter[K, V]) *BaseLayer[K, V] {
	n := entries.Len()
	buf := NewHeapBuffer[Entry[K, V]](n)
	slice := buf.Slice()

	for i := 0; i < n; i++ {
		k, v, ok := entries.Next()
		if !ok { break }

		slice[i] = Entry[K, V]{ Key: k, Value: v }
	}

	return &BaseLayer[K, V]{ data: buf }
}

// BuildBaseOnDisk bulk-builds a base layer backed by a file under dir.
func BuildBaseOnDisk[K Key, V any](entries EntryIter[K, V], dir string) (*BaseLayer[K, V], error) {
	n := entries.Len()
	scratch := make([]Entry[K, V], n)

	for i := 0; i < n; i++ {
		k, v, ok := entries.Next()
		if !ok { break }

		scratch[i] = Entry[K, V]{ Key: k, Value: v }
	}

	buf, persistErr := PersistBuffer(scratch, filepath.Join(dir, baseFileName))
	if persistErr != nil { return nil, persistErr }

	return &BaseLayer[K, V]{ data: buf }, nil
}

// LoadBase maps a previously built base layer from disk.
func LoadBase[K Key, V any](dir string) (*BaseLayer[K, V], error) {
	buf, loadErr := LoadBuffer[Entry[K, V]](filepath.Join(dir, baseFileName))
	if loadErr != nil { return nil, loadErr }

	return &BaseLayer[K, V]{ data: buf }, nil
}

// Len returns the number of entries in the base.
func (b *BaseLayer[K, V]) Len() int {
	return b.data.Len()
}

// Entries derefs the base to its entry slice.
func (b *BaseLayer[K, V]) Entries() []Entry[K, V] {
	return b.data.Slice()
}

// At returns the entry at a positional index.
func (b *BaseLayer[K, V]) At(i int) Entry[K, V] {
	return b.data.Slice()[i]
}

// KeyIter exposes the minimum (here: every) key of the base, for layer 0's
//	builder, without allocating an intermediate key array.
func (b *BaseLayer[K, V]) KeyIter() KeyIter[K] {
	return newEntryKeyIter(b.data.Slice())
}

// Search performs the final optimal search within base[r.Lo:r.Hi], returning
//	the positional index of an exact match.
func (b *BaseLayer[K, V]) Search(key K, r Range) (int, bool) {
	r = r.clamp(b.Len())
	entries := b.data.Slice()[r.Lo:r.Hi]

	index, found := searchEntries(entries, key)
	return index + r.Lo, found
}

// Close releases the base layer's file mapping, if any.
func (b *BaseLayer[K, V]) Close() error {
	return b.data.Close()
}
