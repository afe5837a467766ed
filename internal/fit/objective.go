package fit

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Output returns, per active nutrient, the supplied amount as a fraction of
// its target for the servings x. 1 means the target is met exactly.
func (p *Problem) Output(x []float64) []float64 {
	p.checkLen(x)
	out := make([]float64, len(p.nutrients))
	ov := mat.NewVecDense(len(out), out)
	ov.MulVec(p.contribution.T(), mat.NewVecDense(len(x), x))
	return out
}

// Penalty is the nutrient part of the objective: a squared shortfall below
// the target and a squared overage above the ratio bound, weighted per
// nutrient. Inside the band the penalty is zero.
func (p *Problem) Penalty(x []float64) float64 {
	var sum float64
	for t, o := range p.Output(x) {
		n := p.nutrients[t]
		switch {
		case o < 1:
			d := 1 - o
			sum += n.LowWeight * d * d
		case o > n.RatioBound:
			d := n.RatioBound - o
			sum += n.HighWeight * d * d
		}
	}
	return sum
}

// Value evaluates the objective: Penalty(x) + w * cost·x.
func (p *Problem) Value(x []float64) float64 {
	return p.Penalty(x) + p.costWeight*floats.Dot(p.cost, x)
}

// Gradient writes the exact gradient of Value at x into dx.
func (p *Problem) Gradient(x, dx []float64) {
	p.checkLen(dx)

	// Derivative of each nutrient's penalty with respect to its output.
	out := p.Output(x)
	for t, o := range out {
		n := p.nutrients[t]
		switch {
		case o < 1:
			out[t] = 2 * n.LowWeight * (o - 1)
		case o > n.RatioBound:
			out[t] = 2 * n.HighWeight * (o - n.RatioBound)
		default:
			out[t] = 0
		}
	}

	gv := mat.NewVecDense(len(dx), dx)
	gv.MulVec(p.contribution, mat.NewVecDense(len(out), out))
	floats.AddScaled(dx, p.costWeight, p.cost)
}

func (p *Problem) checkLen(x []float64) {
	if len(x) != p.Dim() {
		panic("servings vector length does not match ingredient count")
	}
}
