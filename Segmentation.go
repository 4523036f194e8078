package limn

import "math"


//============================================= Limn PGM Segmentation


// pgmSegment is one run of the streaming segmentation engine: a line
//	anchored at the run's first key, covering Count consecutive positions
//	starting at Start, accurate to within the layer's epsilon.
type pgmSegment[K Key] struct {
	Anchor    K
	Slope     float64
	Intercept float64
	Start     int
	Count     int
}

// segmentStream computes the minimum-count sequence of epsilon-bounded
//	linear segments covering keys, in one forward pass.
//	Keys must be strictly increasing;
//	a duplicate or out-of-order key aborts with ErrDuplicateKey.
//
//	Each segment is anchored at its first key, so a point's constraint on
//	the segment's slope reduces to a single half-plane in slope space alone
//	(the intercept is pinned by the anchor): for local rank y at
//	anchor-relative distance dx, the line must satisfy
//	|slope*dx - y| <= epsilon, i.e. slope in [(y-eps)/dx, (y+eps)/dx].
//	Intersecting these intervals across the run gives a running [sMin,
//	sMax]; once it goes empty the run is closed and a new one starts at the
//	offending key. This is the classic optimal-PLA slope-cone narrowing,
//	specialized to an anchor-relative line so it composes directly with
//	saturatingSubToFloat.
func segmentStream[K Key](keys KeyIter[K], epsilon int) ([]pgmSegment[K], error) {
	segments := make([]pgmSegment[K], 0, keys.Len()/4+1)
	epsF := float64(epsilon)

	var anchor K
	var prev K
	havePrev := false
	anchorPos := 0
	localY := 0
	sMin, sMax := math.Inf(-1), math.Inf(1)

	pos := 0
	for {
		key, ok := keys.Next()
		if !ok { break }

		if havePrev && key <= prev { return nil, ErrDuplicateKey }
		prev = key
		havePrev = true

		if localY == 0 {
			anchor = key
			anchorPos = pos
			sMin, sMax = math.Inf(-1), math.Inf(1)
			localY = 1
			pos++
			continue
		}

		dx := saturatingSubToFloat(key, anchor)
		newSMax := (float64(localY) + epsF) / dx
		newSMin := (float64(localY) - epsF) / dx

		if newSMin > sMax || newSMax < sMin {
			segments = append(segments, pgmSegment[K]{
				Anchor:    anchor,
				Slope:     chooseSlope(sMin, sMax),
				Intercept: 0,
				Start:     anchorPos,
				Count:     localY,
			})

			anchor = key
			anchorPos = pos
			sMin, sMax = math.Inf(-1), math.Inf(1)
			localY = 1
		} else {
			if newSMin > sMin { sMin = newSMin }
			if newSMax < sMax { sMax = newSMax }
			localY++
		}

		pos++
	}

	if localY > 0 {
		segments = append(segments, pgmSegment[K]{
			Anchor:    anchor,
			Slope:     chooseSlope(sMin, sMax),
			Intercept: 0,
			Start:     anchorPos,
			Count:     localY,
		})
	}

	return segments, nil
}

// chooseSlope picks a representative slope from a feasible [sMin, sMax]
//	interval: the midpoint when both bounds are finite, the finite bound
//	when only one of the two is finite, or 0 for a lone-point segment that
//	never had any slope constraint at all.
func chooseSlope(sMin float64, sMax float64) float64 {
	loInf := math.IsInf(sMin, -1)
	hiInf := math.IsInf(sMax, 1)

	switch {
		case loInf && hiInf:
			return 0
		case loInf:
			return sMax
		case hiInf:
			return sMin
		default:
			return (sMin + sMax) / 2
	}
}
