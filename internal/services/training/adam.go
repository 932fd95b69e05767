package training

import "math"

const (
	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-7
)

// adam keeps first and second moment estimates per parameter slice.
type adam struct {
	lr   float64
	step int
	m    [][]float64
	v    [][]float64
}

func newAdam(lr float64, params [][2][]float64) *adam {
	o := &adam{lr: lr}
	for _, p := range params {
		o.m = append(o.m, make([]float64, len(p[0])))
		o.v = append(o.v, make([]float64, len(p[0])))
	}
	return o
}

func (o *adam) apply(params [][2][]float64) {
	o.step++
	c1 := 1 - math.Pow(adamBeta1, float64(o.step))
	c2 := 1 - math.Pow(adamBeta2, float64(o.step))
	for k, p := range params {
		w, g := p[0], p[1]
		m, v := o.m[k], o.v[k]
		for i := range w {
			m[i] = adamBeta1*m[i] + (1-adamBeta1)*g[i]
			v[i] = adamBeta2*v[i] + (1-adamBeta2)*g[i]*g[i]
			w[i] -= o.lr * (m[i] / c1) / (math.Sqrt(v[i]/c2) + adamEpsilon)
		}
	}
}
