package output

import (
	"encoding/json"
	"time"

	"github.com/rpgo/finplan/internal/domain"
)

// JSONFormatter serializes the report as pretty-printed JSON.
type JSONFormatter struct{}

func (j JSONFormatter) Name() string { return "json" }

type jsonReport struct {
	RunID       string                    `json:"run_id,omitempty"`
	Name        string                    `json:"name"`
	GeneratedAt *time.Time                `json:"generated_at,omitempty"`
	Assumptions []string                  `json:"assumptions"`
	Result      *domain.SimulationResult  `json:"result,omitempty"`
	MonteCarlo  *domain.MonteCarloSummary `json:"monte_carlo,omitempty"`
}

func (j JSONFormatter) Format(report *Report) ([]byte, error) {
	out := jsonReport{
		RunID:       report.RunID,
		Name:        report.Title(),
		Assumptions: GenerateAssumptions(report.Config),
		Result:      report.Result,
		MonteCarlo:  report.MonteCarlo,
	}
	if !report.GeneratedAt.IsZero() {
		out.GeneratedAt = &report.GeneratedAt
	}
	return json.MarshalIndent(out, "", "  ")
}
