package harness

import (
	"context"
	"io"
	"log/slog"

	"github.com/roach88/nnvts/internal/device"
	"github.com/roach88/nnvts/internal/validate"
)

// Config carries the knobs of one evaluation. Defaults are applied only by
// the Execute entry points; Evaluate uses the Config it is given.
type Config struct {
	Tolerance        validate.Tolerance         `json:"tolerance" yaml:"tolerance"`
	RelaxedTolerance validate.Tolerance         `json:"relaxed_tolerance" yaml:"relaxed_tolerance"`
	Preference       device.ExecutionPreference `json:"preference" yaml:"preference"`

	// RelaxComputation selects RelaxedTolerance for every example. The
	// entry points take it from the model.
	RelaxComputation bool `json:"relax_computation" yaml:"relax_computation"`
}

// DefaultConfig returns the tolerances and preference for a version.
func DefaultConfig(v device.Version) Config {
	return Config{
		Tolerance:        validate.DefaultTolerance(v),
		RelaxedTolerance: validate.RelaxedTolerance(),
		Preference:       device.PreferFastSingleAnswer,
	}
}

// Recorder persists a finished report.
type Recorder interface {
	RecordReport(ctx context.Context, r *Report) error
}

// Option configures an Execute call or Evaluate.
type Option func(*options)

type options struct {
	cfg      *Config
	logger   *slog.Logger
	recorder Recorder
	name     string
	ctx      context.Context
}

func buildOptions(opts []Option) options {
	o := options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithConfig replaces the version defaults.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.cfg = &cfg
	}
}

// WithLogger sets the structured logger. Logs are discarded by default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRecorder persists the report once the run is complete.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithName names the report. The test name is used by default.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithContext sets the context passed to every device call.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}
