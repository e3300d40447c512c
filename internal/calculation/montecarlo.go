package calculation

import (
	"context"
	"fmt"
	"maps"
	"math"
	"math/rand"
	"runtime"
	"slices"
	"sync"

	"github.com/rpgo/finplan/internal/domain"
	"github.com/shopspring/decimal"
)

// monteCarloBatchSize is how many iterations share one seed generator
const monteCarloBatchSize = 100

// DefaultPercentiles are reported when the caller asks for none
var DefaultPercentiles = []float64{10, 25, 50, 75, 90}

// ProgressFunc is told how many iterations have finished. Calls are
// serialized.
type ProgressFunc func(done, total int)

// MonteCarloSimulate runs cfg iterations times with independent seeds
func MonteCarloSimulate(cfg *domain.SimulationConfig, iterations int) (*domain.MonteCarloResult, error) {
	return MonteCarloSimulateContext(context.Background(), cfg, iterations, nil)
}

// MonteCarloSimulateContext runs cfg iterations times across all CPUs.
// Iteration i always gets the same seed, so results are reproducible
// regardless of scheduling. Cancelling ctx stops the run with ErrCancelled.
func MonteCarloSimulateContext(ctx context.Context, cfg *domain.SimulationConfig, iterations int, progress ProgressFunc) (*domain.MonteCarloResult, error) {
	return monteCarlo(ctx, cfg, iterations, progress, NopLogger{})
}

func monteCarlo(ctx context.Context, cfg *domain.SimulationConfig, iterations int, progress ProgressFunc, logger Logger) (*domain.MonteCarloResult, error) {
	if iterations <= 0 {
		return nil, fmt.Errorf("iterations must be positive, got %d", iterations)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	// Distribution parameters are checked once up front.
	if _, err := NewSimulationState(cfg, 0); err != nil {
		return nil, err
	}

	seeds := monteCarloSeeds(iterations)
	results := make([]domain.SimulationResult, iterations)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		done      int
		firstErr  error
		semaphore = make(chan struct{}, runtime.NumCPU())
	)

	for start := 0; start < iterations; start += monteCarloBatchSize {
		end := min(start+monteCarloBatchSize, iterations)
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			for i := start; i < end; i++ {
				if ctx.Err() != nil {
					return
				}
				res, err := simulate(cfg, seeds[i], logger)

				mu.Lock()
				if err != nil {
					if firstErr == nil {
						firstErr = fmt.Errorf("iteration %d (seed %d): %w", i, seeds[i], err)
					}
					mu.Unlock()
					return
				}
				results[i] = *res
				done++
				if progress != nil {
					progress(done, iterations)
				}
				mu.Unlock()
			}
		}(start, end)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w after %d of %d iterations: %w", ErrCancelled, done, iterations, err)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	logger.Infof("completed %d Monte Carlo iterations", iterations)
	return &domain.MonteCarloResult{Iterations: results, Seeds: seeds}, nil
}

// monteCarloSeeds draws iteration seeds from one generator per batch of
// monteCarloBatchSize, seeded with the batch index
func monteCarloSeeds(iterations int) []uint64 {
	seeds := make([]uint64, iterations)
	for start := 0; start < iterations; start += monteCarloBatchSize {
		rng := rand.New(rand.NewSource(int64(start / monteCarloBatchSize)))
		for i := start; i < min(start+monteCarloBatchSize, iterations); i++ {
			seeds[i] = rng.Uint64()
		}
	}
	return seeds
}

// Summarize reduces a Monte Carlo run to final net worth statistics, the
// iterations at each requested percentile (0-100) and the mean net worth at
// each year end. A run succeeds when it ends with positive net worth.
func Summarize(result *domain.MonteCarloResult, percentiles []float64) *domain.MonteCarloSummary {
	n := len(result.Iterations)
	summary := &domain.MonteCarloSummary{
		Stats:               domain.MonteCarloStats{Iterations: n},
		MeanYearEndNetWorth: make(map[int]decimal.Decimal),
	}
	if n == 0 {
		return summary
	}
	if len(percentiles) == 0 {
		percentiles = DefaultPercentiles
	}

	finals := make([]decimal.Decimal, n)
	order := make([]int, n)
	sum := decimal.Zero
	successes := 0
	for i := range result.Iterations {
		finals[i] = result.Iterations[i].FinalNetWorth()
		order[i] = i
		sum = sum.Add(finals[i])
		if finals[i].IsPositive() {
			successes++
		}
	}
	slices.SortStableFunc(order, func(a, b int) int { return finals[a].Cmp(finals[b]) })

	count := decimal.NewFromInt(int64(n))
	mean := sum.Div(count)
	variance := decimal.Zero
	for _, v := range finals {
		d := v.Sub(mean)
		variance = variance.Add(d.Mul(d))
	}
	stdDev := decimal.NewFromFloat(math.Sqrt(variance.Div(count).InexactFloat64()))

	stats := &summary.Stats
	stats.SuccessRate = decimal.NewFromInt(int64(successes)).Div(count)
	stats.Mean = mean
	stats.StdDev = stdDev
	stats.Min = finals[order[0]]
	stats.Max = finals[order[n-1]]

	for _, p := range percentiles {
		idx := int(math.Round(p / 100 * float64(n-1)))
		idx = max(0, min(idx, n-1))
		i := order[idx]
		seed := result.Iterations[i].Seed
		stats.Percentiles = append(stats.Percentiles, domain.PercentileValue{P: p, Value: finals[i], Seed: seed})
		summary.PercentileRuns = append(summary.PercentileRuns, domain.PercentileRun{P: p, Result: &result.Iterations[i]})
	}

	totals := make(map[int]decimal.Decimal)
	counts := make(map[int]int64)
	for i := range result.Iterations {
		for year, v := range result.Iterations[i].YearEndNetWorth {
			totals[year] = totals[year].Add(v)
			counts[year]++
		}
	}
	for _, year := range slices.Sorted(maps.Keys(totals)) {
		summary.MeanYearEndNetWorth[year] = totals[year].Div(decimal.NewFromInt(counts[year]))
	}
	return summary
}
