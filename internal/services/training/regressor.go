package training

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Regressor is a two-hidden-layer dense network over a fixed-width window:
// tanh(h1) -> dropout -> relu(h2) -> linear scalar. Weights are read-only
// once training returns, so Predict is safe for concurrent use.
type Regressor struct {
	lookback int
	dropout  float64

	w1 *mat.Dense
	b1 *mat.VecDense
	w2 *mat.Dense
	b2 *mat.VecDense
	w3 *mat.VecDense
	b3 *mat.VecDense
}

func newRegressor(lookback int, cfg *Config, rng *rand.Rand) *Regressor {
	h1, h2 := cfg.Hidden[0], cfg.Hidden[1]
	return &Regressor{
		lookback: lookback,
		dropout:  cfg.Dropout,
		w1:       glorot(rng, h1, lookback),
		b1:       mat.NewVecDense(h1, nil),
		w2:       glorot(rng, h2, h1),
		b2:       mat.NewVecDense(h2, nil),
		w3:       mat.NewVecDense(h2, glorot(rng, 1, h2).RawMatrix().Data),
		b3:       mat.NewVecDense(1, nil),
	}
}

func glorot(rng *rand.Rand, rows, cols int) *mat.Dense {
	limit := math.Sqrt(6 / float64(rows+cols))
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * limit
	}
	return mat.NewDense(rows, cols, data)
}

// Lookback is the window width the network was built for.
func (r *Regressor) Lookback() int { return r.lookback }

// Predict runs inference without dropout.
func (r *Regressor) Predict(_ context.Context, window []float64) ([]float64, error) {
	if len(window) != r.lookback {
		return nil, fmt.Errorf("window width %d, model expects %d", len(window), r.lookback)
	}
	a := newActivations(r)
	y := r.forward(mat.NewVecDense(len(window), append([]float64(nil), window...)), nil, a)
	return []float64{y}, nil
}

// activations holds per-example intermediates reused across a batch.
type activations struct {
	z1, a1, d1, z2, a2 *mat.VecDense
	dz1, dd1, dz2      *mat.VecDense
	mask               []float64
}

func newActivations(r *Regressor) *activations {
	h1, _ := r.w1.Dims()
	h2, _ := r.w2.Dims()
	return &activations{
		z1:   mat.NewVecDense(h1, nil),
		a1:   mat.NewVecDense(h1, nil),
		d1:   mat.NewVecDense(h1, nil),
		z2:   mat.NewVecDense(h2, nil),
		a2:   mat.NewVecDense(h2, nil),
		dz1:  mat.NewVecDense(h1, nil),
		dd1:  mat.NewVecDense(h1, nil),
		dz2:  mat.NewVecDense(h2, nil),
		mask: make([]float64, h1),
	}
}

// forward computes the scalar output. A nil rng disables dropout.
func (r *Regressor) forward(x *mat.VecDense, rng *rand.Rand, a *activations) float64 {
	a.z1.MulVec(r.w1, x)
	a.z1.AddVec(a.z1, r.b1)
	keep := 1 - r.dropout
	for i := 0; i < a.z1.Len(); i++ {
		act := math.Tanh(a.z1.AtVec(i))
		a.a1.SetVec(i, act)
		m := 1.0
		if rng != nil && r.dropout > 0 {
			m = 0
			if rng.Float64() < keep {
				m = 1 / keep
			}
		}
		a.mask[i] = m
		a.d1.SetVec(i, act*m)
	}

	a.z2.MulVec(r.w2, a.d1)
	a.z2.AddVec(a.z2, r.b2)
	for i := 0; i < a.z2.Len(); i++ {
		a.a2.SetVec(i, math.Max(0, a.z2.AtVec(i)))
	}
	return mat.Dot(r.w3, a.a2) + r.b3.AtVec(0)
}

// gradients mirrors the parameter shapes of a Regressor.
type gradients struct {
	w1 *mat.Dense
	b1 *mat.VecDense
	w2 *mat.Dense
	b2 *mat.VecDense
	w3 *mat.VecDense
	b3 *mat.VecDense
}

func newGradients(r *Regressor) *gradients {
	h1, l := r.w1.Dims()
	h2, _ := r.w2.Dims()
	return &gradients{
		w1: mat.NewDense(h1, l, nil),
		b1: mat.NewVecDense(h1, nil),
		w2: mat.NewDense(h2, h1, nil),
		b2: mat.NewVecDense(h2, nil),
		w3: mat.NewVecDense(h2, nil),
		b3: mat.NewVecDense(1, nil),
	}
}

func (g *gradients) zero() {
	g.w1.Zero()
	g.b1.Zero()
	g.w2.Zero()
	g.b2.Zero()
	g.w3.Zero()
	g.b3.Zero()
}

// backward accumulates d(loss)/d(params) for one example, where dy is the
// derivative of the batch loss with respect to this example's output.
func (r *Regressor) backward(x *mat.VecDense, dy float64, a *activations, g *gradients) {
	g.w3.AddScaledVec(g.w3, dy, a.a2)
	g.b3.SetVec(0, g.b3.AtVec(0)+dy)

	for i := 0; i < a.dz2.Len(); i++ {
		v := 0.0
		if a.z2.AtVec(i) > 0 {
			v = dy * r.w3.AtVec(i)
		}
		a.dz2.SetVec(i, v)
	}
	g.w2.RankOne(g.w2, 1, a.dz2, a.d1)
	g.b2.AddVec(g.b2, a.dz2)

	a.dd1.MulVec(r.w2.T(), a.dz2)
	for i := 0; i < a.dz1.Len(); i++ {
		act := a.a1.AtVec(i)
		a.dz1.SetVec(i, a.dd1.AtVec(i)*a.mask[i]*(1-act*act))
	}
	g.w1.RankOne(g.w1, 1, a.dz1, x)
	g.b1.AddVec(g.b1, a.dz1)
}

// params pairs each parameter's backing slice with its gradient.
func (r *Regressor) params(g *gradients) [][2][]float64 {
	return [][2][]float64{
		{r.w1.RawMatrix().Data, g.w1.RawMatrix().Data},
		{r.b1.RawVector().Data, g.b1.RawVector().Data},
		{r.w2.RawMatrix().Data, g.w2.RawMatrix().Data},
		{r.b2.RawVector().Data, g.b2.RawVector().Data},
		{r.w3.RawVector().Data, g.w3.RawVector().Data},
		{r.b3.RawVector().Data, g.b3.RawVector().Data},
	}
}
