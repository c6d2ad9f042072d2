package superpoint

import (
	"math"
	"sort"
)

// ScoreGrid holds per-cell keypoint scores in (row, col, channel) order with 64 channels.
type ScoreGrid struct {
	Height int
	Width  int
	Data   []float32
}

// At returns the score of one intra-cell channel.
func (g ScoreGrid) At(row, col, channel int) float32 {
	return g.Data[(row*g.Width+col)*UsableScoreChannels+channel]
}

// Candidate is a keypoint in feature grid pixel units.
type Candidate struct {
	X     int
	Y     int
	Score float32
}

// Decode turns a score grid into keypoints. Every intra-cell position scoring above threshold is
// a candidate; candidates are visited by descending score, ties in encounter order, and one is
// kept unless an already kept candidate lies within radius of it.
func Decode(grid ScoreGrid, radius, threshold float64) []Candidate {
	var candidates []Candidate
	for row := 0; row < grid.Height; row++ {
		for col := 0; col < grid.Width; col++ {
			for c := 0; c < UsableScoreChannels; c++ {
				score := grid.At(row, col, c)
				if float64(score) <= threshold {
					continue
				}
				candidates = append(candidates, Candidate{
					X:     col*CellSize + c%CellSize,
					Y:     row*CellSize + c/CellSize,
					Score: score,
				})
			}
		}
	}
	if len(candidates) == 0 {
		return []Candidate{}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return suppress(candidates, radius, grid.Width*CellSize, grid.Height*CellSize)
}

// suppress runs greedy non-maximum suppression over sorted candidates. Kept candidates are
// bucketed on a grid whose cells are at least radius wide, so only the 3x3 neighborhood of
// buckets needs checking.
func suppress(sorted []Candidate, radius float64, width, height int) []Candidate {
	bucket := int(math.Ceil(radius))
	if bucket < 1 {
		bucket = 1
	}
	cols, rows := width/bucket+1, height/bucket+1
	buckets := make([][]int, cols*rows)
	r2 := radius * radius

	kept := make([]Candidate, 0, len(sorted))
	for _, cand := range sorted {
		bx, by := cand.X/bucket, cand.Y/bucket
		if nearKept(cand, kept, buckets, bx, by, cols, rows, r2) {
			continue
		}
		buckets[by*cols+bx] = append(buckets[by*cols+bx], len(kept))
		kept = append(kept, cand)
	}
	return kept
}

func nearKept(cand Candidate, kept []Candidate, buckets [][]int, bx, by, cols, rows int, r2 float64) bool {
	for y := by - 1; y <= by+1; y++ {
		if y < 0 || y >= rows {
			continue
		}
		for x := bx - 1; x <= bx+1; x++ {
			if x < 0 || x >= cols {
				continue
			}
			for _, idx := range buckets[y*cols+x] {
				dx := float64(cand.X - kept[idx].X)
				dy := float64(cand.Y - kept[idx].Y)
				if dx*dx+dy*dy <= r2 {
					return true
				}
			}
		}
	}
	return false
}
