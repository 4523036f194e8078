package limn


//============================================= Limn Layer Contract


// Layer is the narrowing-search contract every internal layer (B-tree,
//	PGM) satisfies: given a key and an incoming range over this layer's own
//	node count, return the outgoing range over the layer directly below.
//	The base layer is not a Layer: it is the terminus searched with
//	BaseLayer.Search instead.
type Layer[K Key] interface {
	Len() int
	Search(key K, in Range) Range
	KeyIter() KeyIter[K]
	Close() error
}

// layerKind distinguishes how a LayerSpec should be built.
type layerKind int

const (
	layerKindBTree layerKind = iota
	layerKindBTreeTop
	layerKindPGM
)

// LayerSpec is one parsed element of a layout expression (Layout.go).
type LayerSpec struct {
	Kind    layerKind
	Fanout  int
	Epsilon int
}
