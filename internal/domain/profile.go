package domain

// ReturnProfile is the closed set of yearly return models. Sampling lives in
// the calculation package; profiles here are plain parameters.
type ReturnProfile interface {
	isReturnProfile()
}

type NoReturn struct{}

type FixedReturn struct {
	Rate float64 `json:"rate"`
}

type NormalReturn struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// LogNormalReturn samples exp(N(Mean, StdDev)) - 1.
type LogNormalReturn struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// StudentTReturn samples Mean + Scale*t(DF) for fat-tailed years.
type StudentTReturn struct {
	Mean  float64 `json:"mean"`
	Scale float64 `json:"scale"`
	DF    float64 `json:"df"`
}

// RegimeSwitchingReturn is a two-state Markov model starting in Bull.
type RegimeSwitchingReturn struct {
	Bull       ReturnProfile `json:"bull"`
	Bear       ReturnProfile `json:"bear"`
	BullToBear float64       `json:"bull_to_bear"`
	BearToBull float64       `json:"bear_to_bull"`
}

// BootstrapReturn resamples observed yearly returns in blocks.
type BootstrapReturn struct {
	History   []float64 `json:"history"`
	BlockSize int       `json:"block_size,omitempty"`
}

func (NoReturn) isReturnProfile()              {}
func (FixedReturn) isReturnProfile()           {}
func (NormalReturn) isReturnProfile()          {}
func (LogNormalReturn) isReturnProfile()       {}
func (StudentTReturn) isReturnProfile()        {}
func (RegimeSwitchingReturn) isReturnProfile() {}
func (BootstrapReturn) isReturnProfile()       {}

// InflationProfile is the closed set of yearly inflation models
type InflationProfile interface {
	isInflationProfile()
}

type NoInflation struct{}

type FixedInflation struct {
	Rate float64 `json:"rate"`
}

type NormalInflation struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

type LogNormalInflation struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

type BootstrapInflation struct {
	History   []float64 `json:"history"`
	BlockSize int       `json:"block_size,omitempty"`
}

func (NoInflation) isInflationProfile()        {}
func (FixedInflation) isInflationProfile()     {}
func (NormalInflation) isInflationProfile()    {}
func (LogNormalInflation) isInflationProfile() {}
func (BootstrapInflation) isInflationProfile() {}

// Historical presets. Means and deviations are annual, 1928-2024 for
// equities and 1948-2025 for CPI.
var (
	SP500Fixed     = FixedReturn{Rate: 0.0990829}
	SP500Normal    = NormalReturn{Mean: 0.11471, StdDev: 0.18146}
	SP500LogNormal = LogNormalReturn{Mean: 0.11471, StdDev: 0.18146}
	SP500StudentT  = StudentTReturn{Mean: 0.11471, Scale: 0.140558, DF: 5}

	SmallCapNormal    = NormalReturn{Mean: 0.147749, StdDev: 0.278003}
	TBillsFixed       = FixedReturn{Rate: 0.0337398}
	TBillsNormal      = NormalReturn{Mean: 0.0341782, StdDev: 0.0305423}
	LongBondNormal    = NormalReturn{Mean: 0.047717, StdDev: 0.0700793}
	IntlDevNormal     = NormalReturn{Mean: 0.0778324, StdDev: 0.188273}
	EmergingNormal    = NormalReturn{Mean: 0.107264, StdDev: 0.347473}
	REITsNormal       = NormalReturn{Mean: 0.082752, StdDev: 0.195905}
	GoldNormal        = NormalReturn{Mean: 0.131744, StdDev: 0.173436}
	USInflationFixed  = FixedInflation{Rate: 0.0343436}
	USInflationNormal = NormalInflation{Mean: 0.0347068, StdDev: 0.0279436}
)

// SP500RegimeSwitching returns the bull/bear model calibrated to the S&P 500.
func SP500RegimeSwitching() RegimeSwitchingReturn {
	return RegimeSwitchingReturn{
		Bull:       NormalReturn{Mean: 0.15, StdDev: 0.12},
		Bear:       NormalReturn{Mean: -0.08, StdDev: 0.25},
		BullToBear: 0.12,
		BearToBull: 0.50,
	}
}

// ReturnPreset resolves a named preset used by configuration files.
func ReturnPreset(name string) (ReturnProfile, bool) {
	presets := map[string]ReturnProfile{
		"sp500_fixed":      SP500Fixed,
		"sp500_normal":     SP500Normal,
		"sp500_lognormal":  SP500LogNormal,
		"sp500_student_t":  SP500StudentT,
		"sp500_regime":     SP500RegimeSwitching(),
		"small_cap_normal": SmallCapNormal,
		"tbills_fixed":     TBillsFixed,
		"tbills_normal":    TBillsNormal,
		"long_bond_normal": LongBondNormal,
		"intl_dev_normal":  IntlDevNormal,
		"emerging_normal":  EmergingNormal,
		"reits_normal":     REITsNormal,
		"gold_normal":      GoldNormal,
	}
	p, ok := presets[name]
	return p, ok
}
