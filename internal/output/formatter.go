package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rpgo/finplan/internal/domain"
)

// ErrUnsupportedFormat is returned for a format name no formatter answers to
var ErrUnsupportedFormat = errors.New("unsupported report format")

// ErrMissingData is returned when a formatter needs a part of the report
// that was not produced, such as a ledger from a run without one.
var ErrMissingData = errors.New("report is missing data")

// Report is what formatters render: one simulation run, a Monte Carlo
// summary, or both. Config is optional and only supplies names.
type Report struct {
	RunID       string
	GeneratedAt time.Time
	Config      *domain.SimulationConfig
	Result      *domain.SimulationResult
	MonteCarlo  *domain.MonteCarloSummary

	// Iterations is the full Monte Carlo run, for per-iteration exports.
	Iterations *domain.MonteCarloResult
}

// Title returns the configuration name or a generic heading
func (r *Report) Title() string {
	if r.Config != nil && r.Config.Name != "" {
		return r.Config.Name
	}
	return "Simulation"
}

// AccountName returns the configured name of an account
func (r *Report) AccountName(id domain.AccountID) string {
	if r.Config != nil {
		if a, ok := r.Config.Account(id); ok && a.Name != "" {
			return a.Name
		}
		for _, e := range r.Config.Events {
			for _, eff := range e.Effects {
				if c, ok := eff.(domain.CreateAccount); ok && c.Account != nil && c.Account.ID == id && c.Account.Name != "" {
					return c.Account.Name
				}
			}
		}
	}
	if r.Result != nil {
		for _, a := range r.Result.FinalBalances {
			if a.Account == id && a.Name != "" {
				return a.Name
			}
		}
	}
	return fmt.Sprintf("account-%d", id)
}

// EventName returns the configured name of an event
func (r *Report) EventName(id domain.EventID) string {
	if r.Config != nil {
		if e, ok := r.Config.Event(id); ok && e.Name != "" {
			return e.Name
		}
	}
	return fmt.Sprintf("event-%d", id)
}

// AssetName returns the configured name of an asset
func (r *Report) AssetName(id domain.AssetID) string {
	if r.Config != nil {
		return r.Config.AssetName(id)
	}
	return fmt.Sprintf("asset-%d", id)
}

func (r *Report) requireResult(formatter string) error {
	if r.Result == nil {
		return fmt.Errorf("%w: %s needs a simulation result", ErrMissingData, formatter)
	}
	return nil
}

func (r *Report) requireMonteCarlo(formatter string) error {
	if r.MonteCarlo == nil {
		return fmt.Errorf("%w: %s needs a Monte Carlo summary", ErrMissingData, formatter)
	}
	return nil
}

// Formatter defines a pluggable output formatter that returns a byte slice.
// Implementations should be pure (no side effects besides deterministic formatting).
type Formatter interface {
	Format(report *Report) ([]byte, error)
	// Name returns a short identifier for logging / debugging.
	Name() string
}

// FormatterFunc adapter to allow ordinary functions to act as a Formatter.
type FormatterFunc struct {
	ID string
	F  func(*Report) ([]byte, error)
}

func (ff FormatterFunc) Format(r *Report) ([]byte, error) { return ff.F(r) }
func (ff FormatterFunc) Name() string                     { return ff.ID }

// WriteFormatted runs a formatter and writes the output to a timestamped
// file in dir, returning the file's path
func WriteFormatted(f Formatter, report *Report, dir, ext string) (string, error) {
	data, err := f.Format(report)
	if err != nil {
		return "", err
	}
	stamp := report.GeneratedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}
	filename := filepath.Join(dir, fmt.Sprintf("finplan_%s_%s.%s", f.Name(), stamp.Format("20060102_150405"), ext))
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", err
	}
	return filename, nil
}

// builtInFormatters stores available formatters.
var builtInFormatters = []Formatter{
	ConsoleVerboseFormatter{},
	ConsoleFormatter{},
	CSVYearlySummarizer{},
	CSVLedgerExporter{},
	HTMLFormatter{},
	JSONFormatter{},
	MonteCarloCSVFormatter{},
	MonteCarloIterationsCSVFormatter{},
}

// GetFormatterByName fetches a registered formatter.
func GetFormatterByName(name string) Formatter {
	n := NormalizeFormatName(name)
	for _, f := range builtInFormatters {
		if f.Name() == name || f.Name() == n {
			return f
		}
	}
	return nil
}

// aliasMap provides user-friendly synonyms for format names.
var aliasMap = map[string]string{
	"console-verbose": "console",
	"verbose":         "console",
	"text":            "console",
	"summary":         "console-lite",
	"csv-yearly":      "csv",
	"ledger":          "csv-ledger",
	"ledger-csv":      "csv-ledger",
	"html-report":     "html",
	"json-pretty":     "json",
	"mc-csv":          "montecarlo-csv",
	"mc-iterations":   "montecarlo-iterations-csv",
}

// NormalizeFormatName lowers and resolves aliases.
func NormalizeFormatName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if mapped, ok := aliasMap[n]; ok {
		return mapped
	}
	return n
}

// AvailableFormatterNames returns the canonical formatter names.
func AvailableFormatterNames() []string {
	names := make([]string, 0, len(builtInFormatters))
	for _, f := range builtInFormatters {
		names = append(names, f.Name())
	}
	sort.Strings(names)
	return names
}

// AvailableFormatAliases returns the supported alias keys.
func AvailableFormatAliases() []string {
	keys := make([]string, 0, len(aliasMap))
	for k := range aliasMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
