package calculation

import (
	"context"

	"github.com/rpgo/finplan/internal/domain"
)

// Engine runs simulations with a shared logger
type Engine struct {
	Logger Logger
}

// NewEngine creates an engine that logs nothing
func NewEngine() *Engine {
	return &Engine{Logger: NopLogger{}}
}

// SetLogger sets the logger for the engine. If nil is provided, a no-op logger is used.
func (e *Engine) SetLogger(l Logger) {
	if l == nil {
		e.Logger = NopLogger{}
		return
	}
	e.Logger = l
}

// Simulate runs one simulation of cfg
func (e *Engine) Simulate(cfg *domain.SimulationConfig, seed uint64) (*domain.SimulationResult, error) {
	e.Logger.Debugf("simulating %q with seed %d", cfg.Name, seed)
	res, err := simulate(cfg, seed, e.Logger)
	if err != nil {
		return nil, err
	}
	if len(res.Warnings) > 0 {
		e.Logger.Infof("simulation finished with %d warnings", len(res.Warnings))
	}
	return res, nil
}

// MonteCarlo runs cfg iterations times and summarizes the outcome at the
// given percentiles
func (e *Engine) MonteCarlo(ctx context.Context, cfg *domain.SimulationConfig, iterations int, percentiles []float64, progress ProgressFunc) (*domain.MonteCarloResult, *domain.MonteCarloSummary, error) {
	e.Logger.Infof("running %d Monte Carlo iterations of %q", iterations, cfg.Name)
	result, err := monteCarlo(ctx, cfg, iterations, progress, e.Logger)
	if err != nil {
		return nil, nil, err
	}
	return result, Summarize(result, percentiles), nil
}
