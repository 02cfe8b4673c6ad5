// Package blend replaces sharp corners between moves with sampled
// bezier curves so the toolhead does not need a full stop.
package blend

import (
	"math"

	"motionhost/pkg/errors"
)

// Point2 is a planar point in millimeters
type Point2 struct {
	X, Y float64
}

func (p Point2) sub(q Point2) Point2 { return Point2{p.X - q.X, p.Y - q.Y} }
func (p Point2) add(q Point2) Point2 { return Point2{p.X + q.X, p.Y + q.Y} }
func (p Point2) scale(s float64) Point2 {
	return Point2{p.X * s, p.Y * s}
}

func (p Point2) dist(q Point2) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Blender builds smoothed corners bounded by a maximum deviation from
// the sharp corner point.
type Blender struct {
	maxDeviation float64
	samples      int
}

// DefaultSamples is the number of parametric steps per blended corner
const DefaultSamples = 16

// NewBlender creates a corner blender. maxDeviation (mm) bounds how far
// the curve may diverge from the sharp corner and must be positive.
func NewBlender(maxDeviation float64, samples int) (*Blender, error) {
	if maxDeviation <= 0 || math.IsNaN(maxDeviation) {
		return nil, errors.BlendError("max deviation must be positive")
	}
	if samples < 2 {
		samples = DefaultSamples
	}
	return &Blender{maxDeviation: maxDeviation, samples: samples}, nil
}

// MaxDeviation returns the configured deviation bound
func (b *Blender) MaxDeviation() float64 {
	return b.maxDeviation
}

// BlendCorner returns an ordered sequence of points approximating a
// smoothed corner at p1 between the segments p0->p1 and p1->p2. The blend
// span is shrunk until the sampled curve stays within MaxDeviation of the
// original corner path.
func (b *Blender) BlendCorner(p0, p1, p2 Point2) ([]Point2, error) {
	if p0.dist(p1) == 0 || p1.dist(p2) == 0 {
		return nil, errors.BlendError("corner segments must have nonzero length")
	}

	// span is the fraction of each adjoining segment given to the blend
	span := 0.5
	for iter := 0; iter < 32; iter++ {
		ctrl := controlPoints(p0, p1, p2, span)
		curve := sampleBezier(ctrl, b.samples)
		if maxDeviation(curve, p0, p1, p2) <= b.maxDeviation {
			return curve, nil
		}
		span *= 0.5
	}
	return nil, errors.BlendError("blend span did not converge within deviation bound")
}

// controlPoints builds the quadratic control polygon: entry and exit
// points backed off from the corner by span, with the corner itself as
// the middle control point.
func controlPoints(p0, p1, p2 Point2, span float64) []Point2 {
	entry := p1.add(p0.sub(p1).scale(span))
	exit := p1.add(p2.sub(p1).scale(span))
	return []Point2{entry, p1, exit}
}

// sampleBezier resamples the control polygon at fixed parametric steps
// using the explicit Bernstein sum.
func sampleBezier(ctrl []Point2, samples int) []Point2 {
	n := len(ctrl) - 1
	binom := pascalRow(n)

	out := make([]Point2, 0, samples+1)
	for i := 0; i <= samples; i++ {
		t := float64(i) / float64(samples)
		var pt Point2
		for k := 0; k <= n; k++ {
			w := binom[k] * math.Pow(1-t, float64(n-k)) * math.Pow(t, float64(k))
			pt = pt.add(ctrl[k].scale(w))
		}
		out = append(out, pt)
	}
	return out
}

// pascalRow returns row n of Pascal's triangle by the additive recursion
func pascalRow(n int) []float64 {
	row := []float64{1}
	for r := 1; r <= n; r++ {
		next := make([]float64, r+1)
		next[0], next[r] = 1, 1
		for k := 1; k < r; k++ {
			next[k] = row[k-1] + row[k]
		}
		row = next
	}
	return row
}

// maxDeviation measures how far the sampled curve strays from the sharp
// corner path p0->p1->p2.
func maxDeviation(curve []Point2, p0, p1, p2 Point2) float64 {
	worst := 0.0
	for _, pt := range curve {
		d := math.Min(distToSegment(pt, p0, p1), distToSegment(pt, p1, p2))
		if d > worst {
			worst = d
		}
	}
	return worst
}

// distToSegment is the distance from p to the segment a->b
func distToSegment(p, a, b Point2) float64 {
	ab := b.sub(a)
	lenSq := ab.X*ab.X + ab.Y*ab.Y
	if lenSq == 0 {
		return p.dist(a)
	}
	t := ((p.X-a.X)*ab.X + (p.Y-a.Y)*ab.Y) / lenSq
	t = math.Max(0, math.Min(1, t))
	return p.dist(a.add(ab.scale(t)))
}
