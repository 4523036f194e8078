package limn

import (
	"path/filepath"
	"unsafe"
)


//============================================= Limn PGM Layer


// LinearModel is one segment of a piecewise linear approximation: for a key
//	k assigned to this segment, predict(k) = Intercept + Slope *
//	saturatingSubToFloat(k, Anchor) estimates k's rank in the segment's
//	covered range, accurate to within the layer's epsilon.
type LinearModel[K Key] struct {
	Anchor    K
	Slope     float64
	Intercept float64
	Start     int64
	Count     int32
}

// PGMLayer is an array of linear models produced by the optimal streaming
//	segmentation engine (Segmentation.go), narrowing a key to a small
//	epsilon-bounded window in the layer below.
type PGMLayer[K Key] struct {
	index   int
	epsilon int
	models  *Buffer[LinearModel[K]]
}

// pgmFileName is the deterministic file name for a persisted PGM layer.
func pgmFileName(dir string, index int) string {
	return filepath.Join(dir, layerBaseName(index)+".models.pod")
}

// buildPGMModels runs the segmentation engine over a key stream and
//	returns the resulting per-segment linear models, each paired with the
//	[Start, Start+Count) window of underlying positions it covers.
func buildPGMModels[K Key](keys KeyIter[K], epsilon int) ([]LinearModel[K], error) {
	segments, segErr := segmentStream(keys, epsilon)
	if segErr != nil { return nil, segErr }

	models := make([]LinearModel[K], len(segments))
	for i, seg := range segments {
		models[i] = LinearModel[K]{
			Anchor:    seg.Anchor,
			Slope:     seg.Slope,
			Intercept: seg.Intercept,
			Start:     int64(seg.Start),
			Count:     int32(seg.Count),
		}
	}

	return models, nil
}

// BuildPGMLayer bulk-builds a PGM layer in memory.
func BuildPGMLayer[K Key](index int, epsilon int, keys KeyIter[K]) (*PGMLayer[K], error) {
	models, buildErr := buildPGMModels(keys, epsilon)
	if buildErr != nil { return nil, buildErr }

	return &PGMLayer[K]{
		index:   index,
		epsilon: epsilon,
		models:  NewHeapBufferFromSlice(models),
	}, nil
}

// BuildPGMLayerOnDisk bulk-builds a PGM layer backed by a file under dir.
func BuildPGMLayerOnDisk[K Key](index int, epsilon int, keys KeyIter[K], dir string) (*PGMLayer[K], error) {
	models, buildErr := buildPGMModels(keys, epsilon)
	if buildErr != nil { return nil, buildErr }

	buf, persistErr := PersistBuffer(models, pgmFileName(dir, index))
	if persistErr != nil { return nil, persistErr }

	return &PGMLayer[K]{ index: index, epsilon: epsilon, models: buf }, nil
}

// LoadPGMLayer maps a previously built PGM layer from disk.
func LoadPGMLayer[K Key](index int, epsilon int, dir string) (*PGMLayer[K], error) {
	buf, loadErr := LoadBuffer[LinearModel[K]](pgmFileName(dir, index))
	if loadErr != nil { return nil, loadErr }

	return &PGMLayer[K]{ index: index, epsilon: epsilon, models: buf }, nil
}

// Len returns the number of segments in the layer.
func (l *PGMLayer[K]) Len() int {
	return l.models.Len()
}

// Search narrows an incoming range to the epsilon-bounded window in the
//	layer below that must contain key, if it is present at all.
func (l *PGMLayer[K]) Search(key K, in Range) Range {
	if l.Len() == 0 { return Range{ Lo: 0, Hi: 0 } }

	in = in.clamp(l.Len())

	segIdx := in.Lo
	if segIdx >= l.Len() { segIdx = l.Len() - 1 }

	if in.Hi-in.Lo > 1 {
		models := l.models.Slice()[in.Lo:in.Hi]
		index, found := searchModels(models, key)
		segIdx = lowerBoundIndex(index, found) + in.Lo
	}

	model := l.models.Slice()[segIdx]
	predicted := model.Intercept + model.Slope*saturatingSubToFloat(key, model.Anchor)

	pos := int(predicted)
	if pos < 0 { pos = 0 }
	if pos >= int(model.Count) { pos = int(model.Count) - 1 }
	if pos < 0 { pos = 0 }

	lo := clampSubInt(pos, l.epsilon)
	hi := clampAddInt(pos, l.epsilon+1)

	if hi > int(model.Count) { hi = int(model.Count) }
	if lo > hi { lo = hi }

	base := int(model.Start)
	return Range{ Lo: base + lo, Hi: base + hi }
}

// searchModels is the optimal search over a run of models by anchor key:
//	linear below the byte-size threshold, binary above, same dispatch rule
//	as every other layer search.
func searchModels[K Key](models []LinearModel[K], target K) (int, bool) {
	var zero LinearModel[K]
	byteSize := len(models) * int(unsafe.Sizeof(zero))

	if byteSize <= linearSearchThreshold {
		return linearSearchModels(models, target)
	}

	return binarySearchModels(models, target)
}

func linearSearchModels[K Key](models []LinearModel[K], target K) (int, bool) {
	i := 0
	n := len(models)

	for i < n && models[i].Anchor < target {
		i++
	}

	if i >= n {
		return n, false
	}

	if models[i].Anchor == target {
		return i, true
	}

	return i, false
}

func binarySearchModels[K Key](models []LinearModel[K], target K) (int, bool) {
	lo, hi := 0, len(models)

	for lo < hi {
		mid := lo + (hi-lo)/2

		switch {
			case models[mid].Anchor == target:
				return mid, true
			case models[mid].Anchor < target:
				lo = mid + 1
			default:
				hi = mid
		}
	}

	return lo, false
}

// KeyIter exposes each segment's anchor key, restartable and
//	non-allocating.
func (l *PGMLayer[K]) KeyIter() KeyIter[K] {
	return &pgmAnchorIter[K]{ models: l.models.Slice() }
}

// Close releases the layer's file mapping, if any.
func (l *PGMLayer[K]) Close() error {
	return l.models.Close()
}

// pgmAnchorIter walks a PGM layer's segment anchors in order.
type pgmAnchorIter[K Key] struct {
	models []LinearModel[K]
	pos    int
}

func (it *pgmAnchorIter[K]) Len() int {
	return len(it.models) - it.pos
}

func (it *pgmAnchorIter[K]) Next() (K, bool) {
	if it.pos >= len(it.models) {
		var zero K
		return zero, false
	}

	k := it.models[it.pos].Anchor
	it.pos++

	return k, true
}

func (it *pgmAnchorIter[K]) Reset() {
	it.pos = 0
}
