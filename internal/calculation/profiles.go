package calculation

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/rpgo/finplan/internal/domain"
)

// SampleReturn draws one year's return from profile. Regime-switching
// profiles are sampled from their steady-state mix.
func SampleReturn(rng *rand.Rand, profile domain.ReturnProfile) (float64, error) {
	switch p := profile.(type) {
	case nil, domain.NoReturn:
		return 0, nil
	case domain.FixedReturn:
		return p.Rate, nil
	case domain.NormalReturn:
		return sampleNormal(rng, "normal return", p.Mean, p.StdDev)
	case domain.LogNormalReturn:
		return sampleLogNormal(rng, "lognormal return", p.Mean, p.StdDev)
	case domain.StudentTReturn:
		return sampleStudentT(rng, p)
	case domain.RegimeSwitchingReturn:
		if err := validateRegime(p); err != nil {
			return 0, err
		}
		total := p.BullToBear + p.BearToBull
		if total <= 0 {
			return 0, &InvalidDistributionError{Profile: "regime switching return", Reason: "transition probabilities must not both be zero"}
		}
		if rng.Float64() < p.BearToBull/total {
			return SampleReturn(rng, p.Bull)
		}
		return SampleReturn(rng, p.Bear)
	case domain.BootstrapReturn:
		if len(p.History) == 0 {
			return 0, &InvalidDistributionError{Profile: "bootstrap return", Reason: "historical series is empty"}
		}
		return p.History[rng.Intn(len(p.History))], nil
	default:
		return 0, &InvalidDistributionError{Profile: fmt.Sprintf("%T", profile), Reason: "unsupported return profile"}
	}
}

// SampleReturnSequence draws n consecutive yearly returns. Regime-switching
// profiles start in the bull regime and carry their state across years;
// bootstrap profiles with a block size above one resample contiguous blocks.
func SampleReturnSequence(rng *rand.Rand, profile domain.ReturnProfile, n int) ([]float64, error) {
	switch p := profile.(type) {
	case domain.RegimeSwitchingReturn:
		if err := validateRegime(p); err != nil {
			return nil, err
		}
		out := make([]float64, 0, n)
		bull := true
		for range n {
			current, flip := p.Bear, p.BearToBull
			if bull {
				current, flip = p.Bull, p.BullToBear
			}
			r, err := SampleReturn(rng, current)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
			if rng.Float64() < flip {
				bull = !bull
			}
		}
		return out, nil
	case domain.BootstrapReturn:
		return bootstrapSequence(rng, "bootstrap return", p.History, p.BlockSize, n)
	default:
		out := make([]float64, 0, n)
		for range n {
			r, err := SampleReturn(rng, profile)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		return out, nil
	}
}

// SampleInflation draws one year's inflation from profile
func SampleInflation(rng *rand.Rand, profile domain.InflationProfile) (float64, error) {
	switch p := profile.(type) {
	case nil, domain.NoInflation:
		return 0, nil
	case domain.FixedInflation:
		return p.Rate, nil
	case domain.NormalInflation:
		return sampleNormal(rng, "normal inflation", p.Mean, p.StdDev)
	case domain.LogNormalInflation:
		return sampleLogNormal(rng, "lognormal inflation", p.Mean, p.StdDev)
	case domain.BootstrapInflation:
		if len(p.History) == 0 {
			return 0, &InvalidDistributionError{Profile: "bootstrap inflation", Reason: "historical series is empty"}
		}
		return p.History[rng.Intn(len(p.History))], nil
	default:
		return 0, &InvalidDistributionError{Profile: fmt.Sprintf("%T", profile), Reason: "unsupported inflation profile"}
	}
}

// SampleInflationSequence draws n consecutive yearly inflation rates
func SampleInflationSequence(rng *rand.Rand, profile domain.InflationProfile, n int) ([]float64, error) {
	if p, ok := profile.(domain.BootstrapInflation); ok {
		return bootstrapSequence(rng, "bootstrap inflation", p.History, p.BlockSize, n)
	}
	out := make([]float64, 0, n)
	for range n {
		r, err := SampleInflation(rng, profile)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func sampleNormal(rng *rand.Rand, name string, mean, stdDev float64) (float64, error) {
	if !isFinite(mean) || !isFinite(stdDev) || stdDev < 0 {
		return 0, &InvalidDistributionError{Profile: name, Reason: fmt.Sprintf("std dev must be non-negative and finite, got %v", stdDev)}
	}
	return mean + stdDev*rng.NormFloat64(), nil
}

// sampleLogNormal returns exp(N(mean, stdDev)) - 1, a return whose gross
// multiplier is lognormal.
func sampleLogNormal(rng *rand.Rand, name string, mean, stdDev float64) (float64, error) {
	x, err := sampleNormal(rng, name, mean, stdDev)
	if err != nil {
		return 0, err
	}
	return math.Exp(x) - 1, nil
}

func sampleStudentT(rng *rand.Rand, p domain.StudentTReturn) (float64, error) {
	if !isFinite(p.DF) || p.DF <= 0 {
		return 0, &InvalidDistributionError{Profile: "student t return", Reason: fmt.Sprintf("degrees of freedom must be positive, got %v", p.DF)}
	}
	if !isFinite(p.Scale) || p.Scale < 0 {
		return 0, &InvalidDistributionError{Profile: "student t return", Reason: fmt.Sprintf("scale must be non-negative, got %v", p.Scale)}
	}
	z := rng.NormFloat64()
	chi2 := 2 * sampleGamma(rng, p.DF/2)
	return p.Mean + p.Scale*z/math.Sqrt(chi2/p.DF), nil
}

// sampleGamma draws Gamma(shape, 1) using Marsaglia and Tsang's method.
func sampleGamma(rng *rand.Rand, shape float64) float64 {
	if shape < 1 {
		u := rng.Float64()
		return sampleGamma(rng, shape+1) * math.Pow(u, 1/shape)
	}
	d := shape - 1.0/3
	c := 1 / math.Sqrt(9*d)
	for {
		x := rng.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}

func validateRegime(p domain.RegimeSwitchingReturn) error {
	if p.Bull == nil || p.Bear == nil {
		return &InvalidDistributionError{Profile: "regime switching return", Reason: "bull and bear profiles are required"}
	}
	for _, prob := range []float64{p.BullToBear, p.BearToBull} {
		if !isFinite(prob) || prob < 0 || prob > 1 {
			return &InvalidDistributionError{Profile: "regime switching return", Reason: fmt.Sprintf("transition probability %v outside [0, 1]", prob)}
		}
	}
	return nil
}

// bootstrapSequence resamples history. Blocks wrap around the end of the
// series.
func bootstrapSequence(rng *rand.Rand, name string, history []float64, blockSize, n int) ([]float64, error) {
	if len(history) == 0 {
		return nil, &InvalidDistributionError{Profile: name, Reason: "historical series is empty"}
	}
	if blockSize < 0 {
		return nil, &InvalidDistributionError{Profile: name, Reason: fmt.Sprintf("block size must not be negative, got %d", blockSize)}
	}
	blockSize = max(blockSize, 1)

	out := make([]float64, 0, n)
	for len(out) < n {
		start := rng.Intn(len(history))
		for i := 0; i < blockSize && len(out) < n; i++ {
			out = append(out, history[(start+i)%len(history)])
		}
	}
	return out, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
