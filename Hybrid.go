package limn

import (
	"encoding/json"
	"os"
	"path/filepath"
)


//============================================= Limn Hybrid Driver


// manifestFileName records, alongside the base and layer files, what
//	layout and how many nodes per layer an on-disk index was built with, so
//	Load can reconstruct the same stack without re-running the builder.
const manifestFileName = "manifest.json"

// manifest is the on-disk record of how an index's layer stack was built.
type manifest struct {
	Layout      string `json:"layout"`
	LayerCounts []int  `json:"layer_counts"`
}

// Index is the hybrid learned-index key-value store: an immutable,
//	bulk-built, ordered map from K to V backed by a base array and a stack
//	of narrowing layers.
type Index[K Key, V any] struct {
	base   *BaseLayer[K, V]
	layers []Layer[K]
	dir    string
	closed bool
}

// BuildInMemory bulk-builds an index entirely in memory from a sorted,
//	unique, length-known stream of (K,V) pairs, per layout.
func BuildInMemory[K Key, V any](entries EntryIter[K, V], layout string) (*Index[K, V], error) {
	specs, parseErr := ParseLayout(layout)
	if parseErr != nil { return nil, parseErr }

	base := BuildBase[K, V](entries)

	stack, stackErr := NewBuilder[K](specs).BuildStack(base.KeyIter())
	if stackErr != nil { return nil, stackErr }

	return &Index[K, V]{ base: base, layers: stack }, nil
}

// BuildOnDisk bulk-builds an index under dir, per layout. The base and
//	every layer with index below threshold are persisted and memory-mapped;
//	layers at or above threshold are built on the heap only: the bottom,
//	largest layers dominate storage and get mapped, the top, small, hot
//	layers stay in memory for lower query latency. dir is created if it
//	does not already exist.
func BuildOnDisk[K Key, V any](entries EntryIter[K, V], layout string, dir string, threshold int) (*Index[K, V], error) {
	specs, parseErr := ParseLayout(layout)
	if parseErr != nil { return nil, parseErr }

	if mkdirErr := os.MkdirAll(dir, 0o755); mkdirErr != nil { return nil, mkdirErr }

	base, baseErr := BuildBaseOnDisk[K, V](entries, dir)
	if baseErr != nil { return nil, baseErr }

	stack, stackErr := NewBuilder[K](specs).BuildStackOnDisk(base.KeyIter(), dir, threshold)
	if stackErr != nil { return nil, stackErr }

	counts := make([]int, len(stack))
	for i, layer := range stack {
		counts[i] = layer.Len()
	}

	if writeErr := writeManifest(dir, layout, counts); writeErr != nil { return nil, writeErr }

	return &Index[K, V]{ base: base, layers: stack, dir: dir }, nil
}

// Load reopens a previously built on-disk index: the base and every layer
//	below threshold are memory-mapped without copying, the rest are rebuilt
//	in memory from the key stream of the layer beneath, exactly as
//	BuildOnDisk would have built them.
func Load[K Key, V any](dir string, threshold int) (*Index[K, V], error) {
	man, readErr := readManifest(dir)
	if readErr != nil { return nil, readErr }

	specs, parseErr := ParseLayout(man.Layout)
	if parseErr != nil { return nil, parseErr }

	base, baseErr := LoadBase[K, V](dir)
	if baseErr != nil { return nil, baseErr }

	stack, stackErr := NewBuilder[K](specs).LoadStack(dir, man.LayerCounts, threshold, base.KeyIter())
	if stackErr != nil { return nil, stackErr }

	return &Index[K, V]{ base: base, layers: stack, dir: dir }, nil
}

// Lookup returns the value stored for key, descending the layer stack
//	top-down, narrowing the search range at each layer, and resolving the
//	final window against the base array.
func (idx *Index[K, V]) Lookup(key K) (V, bool) {
	var zero V
	if idx.closed { return zero, false }

	r := Range{ Lo: 0, Hi: idx.topLen() }

	for i := len(idx.layers) - 1; i >= 0; i-- {
		r = idx.layers[i].Search(key, r)
	}

	pos, found := idx.base.Search(key, r)
	if !found { return zero, false }

	return idx.base.At(pos).Value, true
}

// topLen returns the node count of the topmost layer, or 1 when there are
//	no internal layers at all (the base is searched directly).
func (idx *Index[K, V]) topLen() int {
	if len(idx.layers) == 0 { return 1 }
	return idx.layers[len(idx.layers)-1].Len()
}

// Range returns an ascending iterator over every (K,V) pair with key in
//	[lo, hi), resolving the window endpoints via the same descent as
//	Lookup.
func (idx *Index[K, V]) Range(lo K, hi K) EntryIter[K, V] {
	if idx.closed || lo >= hi { return NewSliceEntryIter[K, V](nil, nil) }

	start, _ := idx.descendTo(lo)

	endIdx, endFound := idx.descendTo(hi)
	end := upperBoundIndex(endIdx, endFound, idx.base.Len())

	if end < start { end = start }

	return newRangeIter[K, V](idx.base, start, end, lo, hi)
}

// descendTo narrows the full range down to the base array via the same
//	layer-stack descent as Lookup, then resolves key inside the final
//	window: the returned index is the first base position whose key is
//	>= key (an exact hit returns its own position, with found = true).
func (idx *Index[K, V]) descendTo(key K) (int, bool) {
	r := Range{ Lo: 0, Hi: idx.topLen() }

	for i := len(idx.layers) - 1; i >= 0; i-- {
		r = idx.layers[i].Search(key, r)
	}

	r = r.clamp(idx.base.Len())
	entries := idx.base.Entries()[r.Lo:r.Hi]

	index, found := searchEntries(entries, key)
	return index + r.Lo, found
}

// Len returns the total number of entries in the index.
func (idx *Index[K, V]) Len() int {
	return idx.base.Len()
}

// Close releases every memory mapping owned by the index (an in-memory
//	index has none to release) and marks it closed: afterwards Lookup
//	reports absence and Range yields nothing.
func (idx *Index[K, V]) Close() error {
	if idx.closed { return nil }
	idx.closed = true

	if err := idx.base.Close(); err != nil { return err }

	for _, layer := range idx.layers {
		if err := layer.Close(); err != nil { return err }
	}

	return nil
}

func writeManifest(dir string, layout string, counts []int) error {
	man := manifest{ Layout: layout, LayerCounts: counts }

	raw, marshalErr := json.MarshalIndent(man, "", "  ")
	if marshalErr != nil { return marshalErr }

	return os.WriteFile(filepath.Join(dir, manifestFileName), raw, 0o644)
}

func readManifest(dir string) (*manifest, error) {
	raw, readErr := os.ReadFile(filepath.Join(dir, manifestFileName))
	if readErr != nil { return nil, readErr }

	var man manifest
	if err := json.Unmarshal(raw, &man); err != nil { return nil, err }

	return &man, nil
}
