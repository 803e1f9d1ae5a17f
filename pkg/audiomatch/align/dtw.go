package align

import "math"

// dtwResult is the outcome of aligning the clip against one candidate
// window: the accumulated path cost, the path length it is normalized by,
// and the window column where the warping path begins.
type dtwResult struct {
	cost     float64 // total cost at the terminal cell
	pathLen  int
	startCol int
}

// dtw computes a monotonic, continuity-constrained alignment between the
// clip frames (rows) and a window of the full track (columns), using
// Euclidean frame distance:
//
//	cost[r][c] = dist(r, c) + min(cost[r-1][c], cost[r][c-1], cost[r-1][c-1])
//
// The first row is not accumulated, so the clip may begin anywhere in the
// window; backtracking from the terminal cell to row zero recovers where
// it does. Deterministic: ties in the recurrence prefer the diagonal,
// then the vertical step.
func dtw(clip, window [][]float64) dtwResult {
	rows := len(clip)
	cols := len(window)

	cost := make([][]float64, rows)
	for r := range cost {
		cost[r] = make([]float64, cols)
	}

	// Free-start first row: each column is a legal path origin.
	for c := 0; c < cols; c++ {
		cost[0][c] = euclidean(clip[0], window[c])
	}
	for r := 1; r < rows; r++ {
		cost[r][0] = euclidean(clip[r], window[0]) + cost[r-1][0]
		for c := 1; c < cols; c++ {
			best := cost[r-1][c-1]
			if cost[r-1][c] < best {
				best = cost[r-1][c]
			}
			if cost[r][c-1] < best {
				best = cost[r][c-1]
			}
			cost[r][c] = euclidean(clip[r], window[c]) + best
		}
	}

	// Backtrack the optimal path from the terminal cell to the first row.
	r, c := rows-1, cols-1
	pathLen := 1
	for r > 0 {
		if c == 0 {
			r--
		} else {
			diag, up, left := cost[r-1][c-1], cost[r-1][c], cost[r][c-1]
			switch {
			case diag <= up && diag <= left:
				r--
				c--
			case up <= left:
				r--
			default:
				c--
			}
		}
		pathLen++
	}

	return dtwResult{cost: cost[rows-1][cols-1], pathLen: pathLen, startCol: c}
}

// euclidean is the per-frame distance. Both frames have the same
// dimensionality by construction.
func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
