package limn

import (
	"strconv"
	"strings"
)


//============================================= Limn Layout Synthesizer


// ParseLayout parses a declarative layout expression such as
//	"btree_top, pgm(8), btree(32)" into an ordered list of layer
//	specifications. The expression reads top-down: the first token is the
//	root-most layer, the last token is the layer built directly over the
//	base array. The returned specs are in build order (base-to-top), which
//	is the order Builder consumes them in.
//
//	Three tokens are recognized:
//		btree_top  - the degenerate never-split root B-tree node; only
//		             valid as the first (topmost) token
//		btree(N)   - a B-tree layer with fanout N (N >= 2)
//		pgm(E)     - a PGM layer with epsilon E (E >= 0)
//
//	Go has no compile-time facility for unrolling a heterogeneous,
//	per-layout monomorphized layer stack; ParseLayout's result instead
//	drives Builder, which assembles a runtime-ordered []Layer[K].
func ParseLayout(expr string) ([]LayerSpec, error) {
	tokens := strings.Split(expr, ",")
	specs := make([]LayerSpec, 0, len(tokens))

	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" { continue }

		spec, parseErr := parseLayoutToken(token)
		if parseErr != nil { return nil, parseErr }

		if spec.Kind == layerKindBTreeTop && len(specs) > 0 {
			return nil, ErrBadLayout
		}

		specs = append(specs, spec)
	}

	if len(specs) == 0 { return nil, ErrBadLayout }

	reverseSpecs(specs)
	return specs, nil
}

// reverseSpecs flips a parsed top-down layout into build order.
func reverseSpecs(specs []LayerSpec) {
	for i, j := 0, len(specs)-1; i < j; i, j = i+1, j-1 {
		specs[i], specs[j] = specs[j], specs[i]
	}
}

func parseLayoutToken(token string) (LayerSpec, error) {
	if token == "btree_top" || token == "btree_top()" {
		return LayerSpec{ Kind: layerKindBTreeTop }, nil
	}

	open := strings.IndexByte(token, '(')
	shut := strings.IndexByte(token, ')')

	if open < 0 || shut < open {
		return LayerSpec{}, ErrBadLayout
	}

	name := token[:open]
	arg := strings.TrimSpace(token[open+1 : shut])

	n, convErr := strconv.Atoi(arg)
	if convErr != nil { return LayerSpec{}, ErrBadLayout }

	switch name {
		case "btree":
			if n < 2 { return LayerSpec{}, ErrBadLayout }
			return LayerSpec{ Kind: layerKindBTree, Fanout: n }, nil

		case "pgm":
			if n < 0 { return LayerSpec{}, ErrBadLayout }
			return LayerSpec{ Kind: layerKindPGM, Epsilon: n }, nil

		default:
			return LayerSpec{}, ErrBadLayout
	}
}

// Builder assembles the runtime-ordered layer stack described by a parsed
//	layout, stopping early whenever a layer's own node count has already
//	narrowed to one: anything declared above that point would be a
//	single-node no-op, so it is simply never built.
type Builder[K Key] struct {
	specs []LayerSpec
}

// NewBuilder wraps a parsed layout for use by the hybrid driver.
func NewBuilder[K Key](specs []LayerSpec) *Builder[K] {
	return &Builder[K]{ specs: specs }
}

// BuildStack builds every in-memory layer over base's keys, one at a time,
//	terminating the stack once a layer's length collapses to one node (or
//	the declared layout is exhausted, whichever comes first).
func (bld *Builder[K]) BuildStack(base KeyIter[K]) ([]Layer[K], error) {
	stack := make([]Layer[K], 0, len(bld.specs))
	keys := base

	for i, spec := range bld.specs {
		keys.Reset()

		if i > 0 && keys.Len() == 0 { return nil, ErrEmptyLayer }

		layer, buildErr := buildLayer[K](i, spec, keys)
		if buildErr != nil { return nil, buildErr }

		stack = append(stack, layer)

		if layer.Len() <= 1 { break }

		keys = layer.KeyIter()
	}

	return stack, nil
}

// BuildStackOnDisk is BuildStack's on-disk counterpart: layers below the
//	persistence threshold are persisted under dir as they are built, layers
//	at or above it stay on the heap.
func (bld *Builder[K]) BuildStackOnDisk(base KeyIter[K], dir string, threshold int) ([]Layer[K], error) {
	stack := make([]Layer[K], 0, len(bld.specs))
	keys := base

	for i, spec := range bld.specs {
		keys.Reset()

		if i > 0 && keys.Len() == 0 { return nil, ErrEmptyLayer }

		var layer Layer[K]
		var buildErr error

		if i < threshold {
			layer, buildErr = buildLayerOnDisk[K](i, spec, keys, dir)
		} else {
			layer, buildErr = buildLayer[K](i, spec, keys)
		}

		if buildErr != nil { return nil, buildErr }

		stack = append(stack, layer)

		if layer.Len() <= 1 { break }

		keys = layer.KeyIter()
	}

	return stack, nil
}

// LoadStack reopens a previously persisted layer stack: layers below the
//	persistence threshold are mapped from their files, the rest are rebuilt
//	in memory from the key stream of the layer beneath (or the base's keys
//	for layer 0). counts is the per-layer node count recorded by the build,
//	which fixes how many layers the stack has without re-deriving the
//	termination condition.
func (bld *Builder[K]) LoadStack(dir string, counts []int, threshold int, base KeyIter[K]) ([]Layer[K], error) {
	stack := make([]Layer[K], 0, len(counts))
	keys := base

	for i, spec := range bld.specs {
		if i >= len(counts) { break }

		var layer Layer[K]
		var loadErr error

		if i < threshold {
			layer, loadErr = loadLayer[K](i, spec, dir)
		} else {
			keys.Reset()
			layer, loadErr = buildLayer[K](i, spec, keys)
		}

		if loadErr != nil { return nil, loadErr }

		stack = append(stack, layer)
		keys = layer.KeyIter()
	}

	return stack, nil
}

func buildLayer[K Key](index int, spec LayerSpec, keys KeyIter[K]) (Layer[K], error) {
	switch spec.Kind {
		case layerKindBTreeTop:
			return BuildBTreeLayer[K](index, 0, keys), nil
		case layerKindBTree:
			return BuildBTreeLayer[K](index, spec.Fanout, keys), nil
		default:
			return BuildPGMLayer[K](index, spec.Epsilon, keys)
	}
}

func buildLayerOnDisk[K Key](index int, spec LayerSpec, keys KeyIter[K], dir string) (Layer[K], error) {
	switch spec.Kind {
		case layerKindBTreeTop:
			return BuildBTreeLayerOnDisk[K](index, 0, keys, dir)
		case layerKindBTree:
			return BuildBTreeLayerOnDisk[K](index, spec.Fanout, keys, dir)
		default:
			return BuildPGMLayerOnDisk[K](index, spec.Epsilon, keys, dir)
	}
}

func loadLayer[K Key](index int, spec LayerSpec, dir string) (Layer[K], error) {
	switch spec.Kind {
		case layerKindBTreeTop:
			return LoadBTreeLayer[K](index, 0, dir)
		case layerKindBTree:
			return LoadBTreeLayer[K](index, spec.Fanout, dir)
		default:
			return LoadPGMLayer[K](index, spec.Epsilon, dir)
	}
}
