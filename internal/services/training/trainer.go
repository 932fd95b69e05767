package training

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"PriceTrack/internal/services/forecast"

	"gonum.org/v1/gonum/mat"
)

// Progress is reported once per completed epoch.
type Progress struct {
	Epoch   int     `json:"epoch"`
	Epochs  int     `json:"epochs"`
	Percent int     `json:"percent"`
	Loss    float64 `json:"loss"`
	ValLoss float64 `json:"val_loss"`
}

// ProgressFunc is invoked synchronously on the training goroutine.
type ProgressFunc func(Progress)

// Trainer fits a Regressor on a price history.
type Trainer struct {
	cfg *Config
}

// NewTrainer creates a Trainer with the given hyper-parameters.
func NewTrainer(opts ...Option) *Trainer {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Trainer{cfg: cfg}
}

// Epochs is the fixed number of epochs every run performs.
func (t *Trainer) Epochs() int { return t.cfg.Epochs }

// Train normalizes prices, frames them with a size-derived lookback and fits
// the network. The returned bundle carries the scale and lookback that
// inference must reuse.
func (t *Trainer) Train(ctx context.Context, prices []float64, progress ProgressFunc) (*forecast.Trained, error) {
	if len(prices) < forecast.MinTrainingPrices {
		return nil, fmt.Errorf("%w: need at least %d prices, got %d", forecast.ErrInsufficientData, forecast.MinTrainingPrices, len(prices))
	}
	scale, err := forecast.ComputeScale(prices)
	if err != nil {
		return nil, err
	}
	lookback := forecast.ChooseLookback(len(prices))
	examples, err := forecast.FrameSequences(scale.Normalize(prices), lookback)
	if err != nil {
		return nil, err
	}

	nTrain := int(float64(len(examples)) * (1 - t.cfg.ValidationSplit))
	if nTrain < 1 {
		nTrain = len(examples)
	}
	train, val := examples[:nTrain], examples[nTrain:]

	rng := rand.New(rand.NewSource(t.cfg.Seed))
	model := newRegressor(lookback, t.cfg, rng)
	grads := newGradients(model)
	params := model.params(grads)
	opt := newAdam(t.cfg.LearningRate, params)
	act := newActivations(model)

	inputs := make([]*mat.VecDense, len(examples))
	for i, ex := range examples {
		inputs[i] = mat.NewVecDense(lookback, ex.Window)
	}

	for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		order := rng.Perm(len(train))
		var lossSum float64
		for start := 0; start < len(order); start += t.cfg.BatchSize {
			end := min(start+t.cfg.BatchSize, len(order))
			batch := float64(end - start)
			grads.zero()
			for _, idx := range order[start:end] {
				y := model.forward(inputs[idx], rng, act)
				diff := y - train[idx].Target
				lossSum += diff * diff
				model.backward(inputs[idx], 2*diff/batch, act, grads)
			}
			opt.apply(params)
		}

		p := Progress{
			Epoch:   epoch + 1,
			Epochs:  t.cfg.Epochs,
			Percent: int(math.Round(float64(epoch+1) / float64(t.cfg.Epochs) * 100)),
			Loss:    lossSum / float64(len(train)),
			ValLoss: model.meanSquaredError(inputs[nTrain:], val, act),
		}
		if progress != nil {
			progress(p)
		}
	}

	return &forecast.Trained{Model: model, Scale: scale, Lookback: lookback}, nil
}

// meanSquaredError evaluates without dropout; zero when there is no data.
func (r *Regressor) meanSquaredError(inputs []*mat.VecDense, examples []forecast.Example, a *activations) float64 {
	if len(examples) == 0 {
		return 0
	}
	var sum float64
	for i, ex := range examples {
		diff := r.forward(inputs[i], nil, a) - ex.Target
		sum += diff * diff
	}
	return sum / float64(len(examples))
}
