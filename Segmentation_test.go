package limn

import (
	"math"
	"testing"
)


//============================================= Limn Segmentation Tests


// assertSegmentsWithinEpsilon checks that every segment's predicted
// position for each of its own covered keys is within epsilon of the
// key's true local rank.
func assertSegmentsWithinEpsilon(t *testing.T, keys []int64, epsilon int, segments []pgmSegment[int64]) {
	t.Helper()

	pos := 0
	for segIdx, seg := range segments {
		if seg.Start != pos {
			t.Fatalf("segment %d: expected start %d, got %d", segIdx, pos, seg.Start)
		}

		for local := 0; local < seg.Count; local++ {
			key := keys[pos]
			dx := saturatingSubToFloat(key, seg.Anchor)
			predicted := seg.Intercept + seg.Slope*dx

			diff := math.Abs(predicted - float64(local))
			if diff > float64(epsilon)+1e-9 {
				t.Errorf(
					"segment %d local %d: predicted %.4f, true %d, diff %.4f exceeds epsilon %d",
					segIdx, local, predicted, local, diff, epsilon,
				)
			}

			pos++
		}
	}

	if pos != len(keys) {
		t.Fatalf("segments cover %d positions, expected %d", pos, len(keys))
	}
}

func TestSegmentStreamLinearKeys(t *testing.T) {
	keys := make([]int64, 500)
	for i := range keys {
		keys[i] = int64(i)
	}

	segments, segErr := segmentStream(NewSliceKeyIter(keys), 4)
	if segErr != nil { t.Fatalf("segmentation failed: %s", segErr) }
	if len(segments) == 0 { t.Fatal("expected at least one segment") }

	assertSegmentsWithinEpsilon(t, keys, 4, segments)

	if len(segments) > 2 {
		t.Errorf("perfectly linear keys should collapse to very few segments, got %d", len(segments))
	}
}

func TestSegmentStreamSteppedKeys(t *testing.T) {
	keys := make([]int64, 0, 600)
	for i := 0; i < 200; i++ {
		base := int64(i) * 100
		keys = append(keys, base, base+1, base+2)
	}

	segments, segErr := segmentStream(NewSliceKeyIter(keys), 2)
	if segErr != nil { t.Fatalf("segmentation failed: %s", segErr) }
	if len(segments) == 0 { t.Fatal("expected at least one segment") }

	assertSegmentsWithinEpsilon(t, keys, 2, segments)
}

func TestSegmentStreamSinglePoint(t *testing.T) {
	keys := []int64{ 42 }

	segments, segErr := segmentStream(NewSliceKeyIter(keys), 4)
	if segErr != nil { t.Fatalf("segmentation failed: %s", segErr) }
	if len(segments) != 1 { t.Fatalf("expected exactly 1 segment, got %d", len(segments)) }

	if segments[0].Anchor != 42 || segments[0].Count != 1 {
		t.Fatalf("unexpected single-point segment: %+v", segments[0])
	}
}

func TestSegmentStreamEmpty(t *testing.T) {
	segments, segErr := segmentStream(NewSliceKeyIter([]int64{}), 4)
	if segErr != nil { t.Fatalf("segmentation failed: %s", segErr) }
	if len(segments) != 0 { t.Fatalf("expected no segments for empty input, got %d", len(segments)) }
}

func TestSegmentStreamRejectsDuplicates(t *testing.T) {
	cases := [][]int64{
		{ 1, 2, 2, 3 },
		{ 5, 4 },
		{ 7, 7 },
	}

	for _, keys := range cases {
		if _, segErr := segmentStream(NewSliceKeyIter(keys), 4); segErr != ErrDuplicateKey {
			t.Errorf("keys %v: expected ErrDuplicateKey, got %v", keys, segErr)
		}
	}
}
