package limn

import (
	"path/filepath"
	"unsafe"
)


//============================================= Limn B-Tree Layer


// btreeNodeHeader is the fixed-size directory entry for one B-tree node:
//	its lower-bound key and the [Start, Start+Count) window it owns in the
//	layer's flat entry array. Keeping headers and entries in separate
//	fixed-stride buffers (rather than one node type embedding a FANOUT-sized
//	array) is what lets a single Go type serve every runtime-declared
//	fanout.
type btreeNodeHeader[K Key] struct {
	MinKey K
	Start  int64
	Count  int32
}

// btreeEntry is one (key, child position) pair inside a B-tree node.
type btreeEntry[K Key] struct {
	Key   K
	Child int64
}

// BTreeLayer is an array of FANOUT-ary sorted nodes implementing the
//	narrowing search contract. Fanout <= 0 marks the
//	"btree_top" variant: a node that never splits, so a layer of this kind
//	always collapses to exactly one root node regardless of input size.
type BTreeLayer[K Key] struct {
	index   int
	fanout  int
	headers *Buffer[btreeNodeHeader[K]]
	entries *Buffer[btreeEntry[K]]
}

// btreeHalfFullThreshold returns the node size at which the bulk fill
//	moves on to a new node: FANOUT/2, leaving every node half full so a
//	node split stays cheap, or an unbounded sentinel for btree_top layers.
func btreeHalfFullThreshold(fanout int) int {
	if fanout <= 0 { return 0 }

	threshold := fanout / 2
	if threshold < 1 { threshold = 1 }

	return threshold
}

// btreeNodeSizes computes, for n keys and a given fanout, the sequence of
//	per-node entry counts the fill produces: a deterministic
//	always-threshold-sized-except-last-node layout, since the half-full
//	check depends only on position, never on key values.
func btreeNodeSizes(n int, fanout int) []int {
	if n == 0 { return nil }
	if fanout <= 0 { return []int{ n } }

	threshold := btreeHalfFullThreshold(fanout)
	sizes := make([]int, 0, n/threshold+1)
	remaining := n

	for remaining > 0 {
		size := threshold
		if size > remaining { size = remaining }

		sizes = append(sizes, size)
		remaining -= size
	}

	return sizes
}

// layerFileNames returns the deterministic (headers, entries) file names
//	for layer index i, allowing idempotent reload.
func layerFileNames(dir string, index int) (string, string) {
	base := filepath.Join(dir, layerBaseName(index))
	return base + ".headers.pod", base + ".entries.pod"
}

func layerBaseName(index int) string {
	return "layer" + itoa(index)
}

// itoa formats n as a decimal string.
func itoa(n int) string {
	if n == 0 { return "0" }

	neg := n < 0
	if neg { n = -n }

	var buf [20]byte
	i := len(buf)

	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}

	if neg {
		i--
		buf[i] = '-'
	}

	return string(buf[i:])
}

// buildBTreeNodes fills node headers/entries from a key stream. The child
//	position stored with the i-th key is simply i (its position in the
//	layer below, since a KeyIter walks that layer's nodes in order).
func buildBTreeNodes[K Key](keys KeyIter[K], fanout int) ([]btreeNodeHeader[K], []btreeEntry[K]) {
	n := keys.Len()
	sizes := btreeNodeSizes(n, fanout)

	headers := make([]btreeNodeHeader[K], len(sizes))
	entries := make([]btreeEntry[K], n)

	pos := 0
	for nodeIdx, size := range sizes {
		start := pos

		for j := 0; j < size; j++ {
			key, ok := keys.Next()
			if !ok { break }

			entries[pos] = btreeEntry[K]{ Key: key, Child: int64(pos) }
			pos++
		}

		headers[nodeIdx] = btreeNodeHeader[K]{
			MinKey: entries[start].Key,
			Start:  int64(start),
			Count:  int32(size),
		}
	}

	return headers, entries
}

// BuildBTreeLayer bulk-builds a B-tree layer in memory.
func BuildBTreeLayer[K Key](index int, fanout int, keys KeyIter[K]) *BTreeLayer[K] {
	headers, entries := buildBTreeNodes(keys, fanout)

	return &BTreeLayer[K]{
		index:   index,
		fanout:  fanout,
		headers: NewHeapBufferFromSlice(headers),
		entries: NewHeapBufferFromSlice(entries),
	}
}

// BuildBTreeLayerOnDisk bulk-builds a B-tree layer backed by files under
//	dir.
func BuildBTreeLayerOnDisk[K Key](index int, fanout int, keys KeyIter[K], dir string) (*BTreeLayer[K], error) {
	headers, entries := buildBTreeNodes(keys, fanout)
	headerPath, entryPath := layerFileNames(dir, index)

	headerBuf, headerErr := PersistBuffer(headers, headerPath)
	if headerErr != nil { return nil, headerErr }

	entryBuf, entryErr := PersistBuffer(entries, entryPath)
	if entryErr != nil { return nil, entryErr }

	return &BTreeLayer[K]{
		index:   index,
		fanout:  fanout,
		headers: headerBuf,
		entries: entryBuf,
	}, nil
}

// LoadBTreeLayer maps a previously built B-tree layer from disk.
func LoadBTreeLayer[K Key](index int, fanout int, dir string) (*BTreeLayer[K], error) {
	headerPath, entryPath := layerFileNames(dir, index)

	headerBuf, headerErr := LoadBuffer[btreeNodeHeader[K]](headerPath)
	if headerErr != nil { return nil, headerErr }

	entryBuf, entryErr := LoadBuffer[btreeEntry[K]](entryPath)
	if entryErr != nil { return nil, entryErr }

	return &BTreeLayer[K]{
		index:   index,
		fanout:  fanout,
		headers: headerBuf,
		entries: entryBuf,
	}, nil
}

// Len returns the number of nodes in the layer.
func (l *BTreeLayer[K]) Len() int {
	return l.headers.Len()
}

// Search narrows an incoming range in this layer to an outgoing range in
//	the layer below: the exact child position the responsible node stores
//	for key.
func (l *BTreeLayer[K]) Search(key K, in Range) Range {
	if l.Len() == 0 { return Range{ Lo: 0, Hi: 0 } }

	in = in.clamp(l.Len())

	if in.Hi-in.Lo <= 1 {
		nodeIdx := in.Lo
		if nodeIdx >= l.Len() { nodeIdx = l.Len() - 1 }

		return l.searchNode(nodeIdx, key)
	}

	headers := l.headers.Slice()[in.Lo:in.Hi]
	index, found := searchNodeHeaders(headers, key)
	nodeIdx := lowerBoundIndex(index, found) + in.Lo

	return l.searchNode(nodeIdx, key)
}

// searchNode performs the within-node optimal search that picks the exact
//	child position for key inside node nodeIdx.
func (l *BTreeLayer[K]) searchNode(nodeIdx int, key K) Range {
	header := l.headers.Slice()[nodeIdx]
	node := l.entries.Slice()[header.Start : header.Start+int64(header.Count)]

	index, found := searchBTreeEntries(node, key)
	entryIdx := lowerBoundIndex(index, found)

	child := node[entryIdx].Child

	return Range{ Lo: int(child), Hi: int(child) + 1 }
}

// KeyIter exposes the minimum key of each node, restartable and
//	non-allocating.
func (l *BTreeLayer[K]) KeyIter() KeyIter[K] {
	return &btreeMinKeyIter[K]{ headers: l.headers.Slice() }
}

// Close releases the layer's file mappings, if any.
func (l *BTreeLayer[K]) Close() error {
	if err := l.headers.Close(); err != nil { return err }
	return l.entries.Close()
}

// btreeMinKeyIter walks a B-tree layer's node headers in order.
type btreeMinKeyIter[K Key] struct {
	headers []btreeNodeHeader[K]
	pos     int
}

func (it *btreeMinKeyIter[K]) Len() int {
	return len(it.headers) - it.pos
}

func (it *btreeMinKeyIter[K]) Next() (K, bool) {
	if it.pos >= len(it.headers) {
		var zero K
		return zero, false
	}

	k := it.headers[it.pos].MinKey
	it.pos++

	return k, true
}

func (it *btreeMinKeyIter[K]) Reset() {
	it.pos = 0
}

// searchNodeHeaders is the optimal search over a slice of node headers by
//	MinKey, used to find the responsible node for a target key: linear
//	below the byte-size threshold, binary above.
func searchNodeHeaders[K Key](headers []btreeNodeHeader[K], target K) (int, bool) {
	var zero btreeNodeHeader[K]
	byteSize := len(headers) * int(unsafe.Sizeof(zero))

	if byteSize <= linearSearchThreshold {
		return linearSearchNodeHeaders(headers, target)
	}

	return binarySearchNodeHeaders(headers, target)
}

func linearSearchNodeHeaders[K Key](headers []btreeNodeHeader[K], target K) (int, bool) {
	i := 0
	n := len(headers)

	for i < n && headers[i].MinKey < target {
		i++
	}

	if i >= n {
		return n, false
	}

	if headers[i].MinKey == target {
		return i, true
	}

	return i, false
}

func binarySearchNodeHeaders[K Key](headers []btreeNodeHeader[K], target K) (int, bool) {
	lo, hi := 0, len(headers)

	for lo < hi {
		mid := lo + (hi-lo)/2

		switch {
			case headers[mid].MinKey == target:
				return mid, true
			case headers[mid].MinKey < target:
				lo = mid + 1
			default:
				hi = mid
		}
	}

	return lo, false
}

// searchBTreeEntries is the optimal search over one node's (key, child)
//	entries, with the same size dispatch.
func searchBTreeEntries[K Key](entries []btreeEntry[K], target K) (int, bool) {
	var zero btreeEntry[K]
	byteSize := len(entries) * int(unsafe.Sizeof(zero))

	if byteSize <= linearSearchThreshold {
		return linearSearchBTreeEntries(entries, target)
	}

	return binarySearchBTreeEntries(entries, target)
}

func linearSearchBTreeEntries[K Key](entries []btreeEntry[K], target K) (int, bool) {
	i := 0
	n := len(entries)

	for i < n && entries[i].Key < target {
		i++
	}

	if i >= n {
		return n, false
	}

	if entries[i].Key == target {
		return i, true
	}

	return i, false
}

func binarySearchBTreeEntries[K Key](entries []btreeEntry[K], target K) (int, bool) {
	lo, hi := 0, len(entries)

	for lo < hi {
		mid := lo + (hi-lo)/2

		switch {
			case entries[mid].Key == target:
				return mid, true
			case entries[mid].Key < target:
				lo = mid + 1
			default:
				hi = mid
		}
	}

	return lo, false
}
