package limn

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)


//============================================= Limn Hybrid Driver Tests


func sortedUniqueKeys(n int, step uint64) ([]uint64, []uint64) {
	keys := make([]uint64, n)
	values := make([]uint64, n)

	cur := uint64(0)
	for i := 0; i < n; i++ {
		cur += step
		keys[i] = cur
		values[i] = cur * 2
	}

	return keys, values
}

func TestHybridTinyBTree(t *testing.T) {
	keys := []uint64{ 10, 20, 30, 40 }
	values := []byte{ 'A', 'B', 'C', 'D' }

	idx, buildErr := BuildInMemory[uint64, byte](
		NewSliceEntryIter(keys, values), "btree_top, btree(8)",
	)
	if buildErr != nil { t.Fatalf("build failed: %s", buildErr) }
	defer idx.Close()

	if v, found := idx.Lookup(20); !found || v != 'B' {
		t.Errorf("lookup(20): expected ('B',true), got (%c,%v)", v, found)
	}

	if _, found := idx.Lookup(25); found {
		t.Errorf("lookup(25): expected absent")
	}

	it := idx.Range(15, 35)

	var got []uint64
	for {
		k, v, ok := it.Next()
		if !ok { break }

		if v != values[(k/10)-1] { t.Errorf("key %d: unexpected value %c", k, v) }
		got = append(got, k)
	}

	if len(got) != 2 || got[0] != 20 || got[1] != 30 {
		t.Errorf("range(15,35): expected [20 30], got %v", got)
	}
}

func TestHybridLinearKeysPGM(t *testing.T) {
	n := 100
	keys := make([]uint64, n)
	values := make([]uint64, n)

	for i := 0; i < n; i++ {
		keys[i] = uint64(100 + i)
		values[i] = uint64(i*7) % 32
	}

	idx, buildErr := BuildInMemory[uint64, uint64](
		NewSliceEntryIter(keys, values), "btree_top, pgm(4)",
	)
	if buildErr != nil { t.Fatalf("build failed: %s", buildErr) }
	defer idx.Close()

	for i, key := range keys {
		v, found := idx.Lookup(key)
		if !found || v != values[i] {
			t.Errorf("key %d: expected (%d,true), got (%d,%v)", key, values[i], v, found)
		}
	}

	if _, found := idx.Lookup(99); found { t.Errorf("lookup(99): expected absent") }
	if _, found := idx.Lookup(200); found { t.Errorf("lookup(200): expected absent") }
}

func TestHybridSteppedKeysPGM(t *testing.T) {
	keys := make([]uint64, 0, 3000)
	values := make([]uint64, 0, 3000)

	for i := 0; i < 1000; i++ {
		base := uint64(i) * 10000
		for _, off := range []uint64{ 0, 1, 2 } {
			keys = append(keys, base+off)
			values = append(values, base+off+1)
		}
	}

	idx, buildErr := BuildInMemory[uint64, uint64](
		NewSliceEntryIter(keys, values), "btree_top, btree(32), pgm(2)",
	)
	if buildErr != nil { t.Fatalf("build failed: %s", buildErr) }
	defer idx.Close()

	for _, i := range []int{ 0, 1, 2, 1500, 2998, 2999 } {
		v, found := idx.Lookup(keys[i])
		if !found || v != values[i] {
			t.Errorf("key %d: expected (%d,true), got (%d,%v)", keys[i], values[i], v, found)
		}
	}
}

func randomUniqueKeys(n int, seed int64) ([]uint64, []uint64, *rand.Rand) {
	rng := rand.New(rand.NewSource(seed))

	keys := make([]uint64, 0, n)
	cur := uint64(0)

	for len(keys) < n {
		cur += uint64(rng.Intn(3) + 1)
		keys = append(keys, cur)
	}

	values := make([]uint64, n)
	for i, k := range keys {
		values[i] = k ^ 0xabcdef
	}

	return keys, values, rng
}

func TestHybridTwoLayerRandomMillion(t *testing.T) {
	if testing.Short() { t.Skip("skipping million-key build in short mode") }

	const n = 1_000_000

	keys, values, rng := randomUniqueKeys(n, 7)

	idx, buildErr := BuildInMemory[uint64, uint64](
		NewSliceEntryIter(keys, values), "btree_top, pgm(8), btree(32)",
	)
	if buildErr != nil { t.Fatalf("build failed: %s", buildErr) }
	defer idx.Close()

	for i := 0; i < 2000; i++ {
		pos := rng.Intn(n)
		v, found := idx.Lookup(keys[pos])
		if !found || v != values[pos] {
			t.Fatalf("key %d: expected (%d,true), got (%d,%v)", keys[pos], values[pos], v, found)
		}
	}

	misses := 0
	for misses < 10_000 {
		probe := keys[n-1] + uint64(rng.Intn(1<<20)) + 1
		if _, found := idx.Lookup(probe); found {
			t.Fatalf("key %d was never inserted but was found", probe)
		}
		misses++
	}
}

// steppedKeys produces runs of consecutive keys separated by large gaps.
// With an epsilon below runLen-1 this forces the segmenter to emit one
// model per run; with a larger epsilon one line can cover many runs.
func steppedKeys(runs int, runLen int) ([]uint64, []uint64) {
	keys := make([]uint64, 0, runs*runLen)
	values := make([]uint64, 0, runs*runLen)

	for i := 0; i < runs; i++ {
		base := uint64(i) * 10000
		for j := 0; j < runLen; j++ {
			keys = append(keys, base+uint64(j))
			values = append(values, base+uint64(j)+1)
		}
	}

	return keys, values
}

func TestHybridOnDiskRoundTrip(t *testing.T) {
	dir := t.TempDir()

	keys, values := steppedKeys(60, 5)

	built, buildErr := BuildOnDisk[uint64, uint64](
		NewSliceEntryIter(keys, values), "btree_top, btree(4), pgm(2)", dir, 2,
	)
	if buildErr != nil { t.Fatalf("build failed: %s", buildErr) }
	built.Close()

	loaded, loadErr := Load[uint64, uint64](dir, 2)
	if loadErr != nil { t.Fatalf("load failed: %s", loadErr) }
	defer loaded.Close()

	for i, key := range keys {
		v, found := loaded.Lookup(key)
		if !found || v != values[i] {
			t.Errorf("key %d: expected (%d,true), got (%d,%v)", key, values[i], v, found)
		}
	}
}

func TestHybridOnDiskZeroThreshold(t *testing.T) {
	// threshold 0: only the base is persisted, every layer is rebuilt in
	// memory on load.
	dir := t.TempDir()

	keys, values := sortedUniqueKeys(500, 3)

	built, buildErr := BuildOnDisk[uint64, uint64](
		NewSliceEntryIter(keys, values), "btree_top, pgm(4)", dir, 0,
	)
	if buildErr != nil { t.Fatalf("build failed: %s", buildErr) }
	built.Close()

	if _, statErr := os.Stat(filepath.Join(dir, "layer0.models.pod")); !os.IsNotExist(statErr) {
		t.Fatalf("threshold 0 should not persist layer 0, stat err: %v", statErr)
	}

	loaded, loadErr := Load[uint64, uint64](dir, 0)
	if loadErr != nil { t.Fatalf("load failed: %s", loadErr) }
	defer loaded.Close()

	for i, key := range keys {
		v, found := loaded.Lookup(key)
		if !found || v != values[i] {
			t.Errorf("key %d: expected (%d,true), got (%d,%v)", key, values[i], v, found)
		}
	}
}

func TestHybridOnDiskDeterministic(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()

	keys, values := steppedKeys(80, 5)
	layout := "btree_top, btree(8), pgm(4)"

	builtA, errA := BuildOnDisk[uint64, uint64](NewSliceEntryIter(keys, values), layout, dirA, 2)
	if errA != nil { t.Fatalf("build A failed: %s", errA) }
	builtA.Close()

	builtB, errB := BuildOnDisk[uint64, uint64](NewSliceEntryIter(keys, values), layout, dirB, 2)
	if errB != nil { t.Fatalf("build B failed: %s", errB) }
	builtB.Close()

	entriesA, readErr := os.ReadDir(dirA)
	if readErr != nil { t.Fatalf("readdir failed: %s", readErr) }

	for _, entry := range entriesA {
		rawA, errReadA := os.ReadFile(filepath.Join(dirA, entry.Name()))
		if errReadA != nil { t.Fatalf("read %s failed: %s", entry.Name(), errReadA) }

		rawB, errReadB := os.ReadFile(filepath.Join(dirB, entry.Name()))
		if errReadB != nil { t.Fatalf("read %s failed: %s", entry.Name(), errReadB) }

		if !bytes.Equal(rawA, rawB) {
			t.Errorf("file %s differs between two identical builds", entry.Name())
		}
	}
}

func TestHybridDescentContainment(t *testing.T) {
	keys, values := sortedUniqueKeys(10000, 3)

	idx, buildErr := BuildInMemory[uint64, uint64](
		NewSliceEntryIter(keys, values), "btree_top, btree(32), pgm(8)",
	)
	if buildErr != nil { t.Fatalf("build failed: %s", buildErr) }
	defer idx.Close()

	rng := rand.New(rand.NewSource(11))

	for i := 0; i < 10000; i++ {
		pos := rng.Intn(len(keys))

		// Walk the same descent Lookup takes and assert the final window
		// contains the key's true base position.
		r := Range{ Lo: 0, Hi: idx.topLen() }
		for li := len(idx.layers) - 1; li >= 0; li-- {
			r = idx.layers[li].Search(keys[pos], r)
		}
		r = r.clamp(idx.base.Len())

		if pos < r.Lo || pos >= r.Hi {
			t.Fatalf("query %d: true position %d outside final range %v", i, pos, r)
		}
	}
}

func TestHybridRange(t *testing.T) {
	keys, values := sortedUniqueKeys(200, 5)

	idx, buildErr := BuildInMemory[uint64, uint64](
		NewSliceEntryIter(keys, values), "btree_top, btree(8), pgm(4)",
	)
	if buildErr != nil { t.Fatalf("build failed: %s", buildErr) }
	defer idx.Close()

	lo, hi := keys[40], keys[60]

	it := idx.Range(lo, hi)

	count := 0
	for {
		k, v, ok := it.Next()
		if !ok { break }

		if k < lo || k >= hi { t.Errorf("key %d out of requested range [%d,%d)", k, lo, hi) }

		idxPos := 0
		for idxPos < len(keys) && keys[idxPos] != k { idxPos++ }
		if idxPos >= len(keys) || values[idxPos] != v {
			t.Errorf("key %d returned unexpected value %d", k, v)
		}

		count++
	}

	if count != 20 { t.Errorf("expected 20 entries in range, got %d", count) }
}

func TestHybridRangeEdgeCases(t *testing.T) {
	keys, values := sortedUniqueKeys(100, 10)

	idx, buildErr := BuildInMemory[uint64, uint64](
		NewSliceEntryIter(keys, values), "btree_top, pgm(4)",
	)
	if buildErr != nil { t.Fatalf("build failed: %s", buildErr) }
	defer idx.Close()

	if _, _, ok := idx.Range(50, 50).Next(); ok {
		t.Errorf("empty window [50,50) should yield nothing")
	}

	if _, _, ok := idx.Range(60, 50).Next(); ok {
		t.Errorf("inverted window should yield nothing")
	}

	// Bounds on absent keys: keys are 10,20,...,1000, so [15,26) holds
	// exactly key 20.
	it := idx.Range(15, 26)

	k, _, ok := it.Next()
	if !ok || k != 20 { t.Fatalf("range(15,26): expected first key 20, got (%d,%v)", k, ok) }

	if _, _, ok := it.Next(); ok { t.Errorf("range(15,26): expected exactly one entry") }
}

func TestHybridEmptyBuild(t *testing.T) {
	idx, buildErr := BuildInMemory[uint64, uint64](
		NewSliceEntryIter[uint64, uint64](nil, nil), "btree_top, pgm(4)",
	)
	if buildErr != nil { t.Fatalf("build failed: %s", buildErr) }
	defer idx.Close()

	if _, found := idx.Lookup(1); found {
		t.Errorf("lookup on an empty index should miss")
	}

	if _, _, ok := idx.Range(0, 100).Next(); ok {
		t.Errorf("range on an empty index should yield nothing")
	}
}

func TestHybridLookupMiss(t *testing.T) {
	keys, values := sortedUniqueKeys(100, 10)

	idx, buildErr := BuildInMemory[uint64, uint64](
		NewSliceEntryIter(keys, values), "btree_top, pgm(4)",
	)
	if buildErr != nil { t.Fatalf("build failed: %s", buildErr) }
	defer idx.Close()

	if _, found := idx.Lookup(keys[5] + 1); found {
		t.Errorf("expected miss for a key never inserted")
	}
}

func TestHybridRejectsDuplicateEntries(t *testing.T) {
	keys := []uint64{ 1, 2, 2, 3 }
	values := []uint64{ 10, 20, 20, 30 }

	if _, buildErr := BuildInMemory[uint64, uint64](
		NewSliceEntryIter(keys, values), "btree_top, pgm(4)",
	); buildErr != ErrDuplicateKey {
		t.Fatalf("expected ErrDuplicateKey, got %v", buildErr)
	}
}
