package keypoints

// ScaleLevel holds the metadata of one pyramid level.
type ScaleLevel struct {
	Factor          float64
	InvFactor       float64
	SigmaSquared    float64
	InvSigmaSquared float64
}

// ScalePyramid is the per-level scale metadata of a multiscale extractor. Level 0 is always the
// identity level.
type ScalePyramid struct {
	Ratio  float64
	Levels []ScaleLevel
}

// ComputeScalePyramid derives per-level scale factors as a geometric progression of ratio.
// levels must be positive.
func ComputeScalePyramid(levels int, ratio float64) ScalePyramid {
	sp := ScalePyramid{Ratio: ratio, Levels: make([]ScaleLevel, levels)}
	factor := 1.0
	for i := range sp.Levels {
		if i > 0 {
			factor *= ratio
		}
		sigma2 := factor * factor
		sp.Levels[i] = ScaleLevel{
			Factor:          factor,
			InvFactor:       1 / factor,
			SigmaSquared:    sigma2,
			InvSigmaSquared: 1 / sigma2,
		}
	}
	return sp
}

// NumLevels returns the number of levels.
func (sp ScalePyramid) NumLevels() int {
	return len(sp.Levels)
}

// Factors returns the scale factor of every level.
func (sp ScalePyramid) Factors() []float64 {
	return sp.collect(func(l ScaleLevel) float64 { return l.Factor })
}

// InvFactors returns the inverse scale factor of every level.
func (sp ScalePyramid) InvFactors() []float64 {
	return sp.collect(func(l ScaleLevel) float64 { return l.InvFactor })
}

// SigmaSquares returns sigma² of every level.
func (sp ScalePyramid) SigmaSquares() []float64 {
	return sp.collect(func(l ScaleLevel) float64 { return l.SigmaSquared })
}

// InvSigmaSquares returns 1/sigma² of every level.
func (sp ScalePyramid) InvSigmaSquares() []float64 {
	return sp.collect(func(l ScaleLevel) float64 { return l.InvSigmaSquared })
}

func (sp ScalePyramid) collect(f func(ScaleLevel) float64) []float64 {
	out := make([]float64, len(sp.Levels))
	for i, l := range sp.Levels {
		out[i] = f(l)
	}
	return out
}
