package training

// Option configures Trainer.
type Option func(*Config)

// Config holds hyper-parameters of the windowed regressor.
type Config struct {
	Epochs          int
	BatchSize       int
	LearningRate    float64
	ValidationSplit float64
	Dropout         float64
	Hidden          [2]int
	Seed            int64
}

func defaultConfig() *Config {
	return &Config{
		Epochs:          50,
		BatchSize:       32,
		LearningRate:    0.001,
		ValidationSplit: 0.2,
		Dropout:         0.2,
		Hidden:          [2]int{50, 25},
		Seed:            1,
	}
}

// WithEpochs sets the fixed epoch count.
func WithEpochs(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.Epochs = n
		}
	}
}

// WithBatchSize sets the mini-batch size.
func WithBatchSize(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.BatchSize = n
		}
	}
}

// WithLearningRate sets the Adam step size.
func WithLearningRate(lr float64) Option {
	return func(c *Config) {
		if lr > 0 {
			c.LearningRate = lr
		}
	}
}

// WithValidationSplit sets the trailing fraction of examples held out.
func WithValidationSplit(f float64) Option {
	return func(c *Config) {
		if f >= 0 && f < 1 {
			c.ValidationSplit = f
		}
	}
}

// WithDropout sets the dropout rate after the first hidden layer.
func WithDropout(p float64) Option {
	return func(c *Config) {
		if p >= 0 && p < 1 {
			c.Dropout = p
		}
	}
}

// WithHidden sets the widths of both hidden layers.
func WithHidden(first, second int) Option {
	return func(c *Config) {
		if first > 0 && second > 0 {
			c.Hidden = [2]int{first, second}
		}
	}
}

// WithSeed fixes weight init and shuffling.
func WithSeed(seed int64) Option {
	return func(c *Config) {
		c.Seed = seed
	}
}
