package calculation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/rpgo/finplan/internal/domain"
)

// HistoricalDataPoint is one year of an annual series
type HistoricalDataPoint struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// HistoricalStatistics summarizes a series
type HistoricalStatistics struct {
	Mean         float64 `json:"mean"`
	Median       float64 `json:"median"`
	StdDev       float64 `json:"std_dev"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Count        int     `json:"count"`
	MissingYears []int   `json:"missing_years"`
}

// HistoricalSeries is an annual return or inflation series, used to build
// bootstrap profiles
type HistoricalSeries struct {
	Name       string                `json:"name"`
	DataPoints []HistoricalDataPoint `json:"data_points"`
	MinYear    int                   `json:"min_year"`
	MaxYear    int                   `json:"max_year"`
	Statistics HistoricalStatistics  `json:"statistics"`
}

// LoadHistoricalSeries reads a year,value CSV file with a header row
func LoadHistoricalSeries(filePath, name string) (*HistoricalSeries, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	series, err := ReadHistoricalSeries(file, name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return series, nil
}

// ReadHistoricalSeries parses year,value rows. Values ending in % are read
// as percentages. Rows with an unparseable year or value are skipped.
func ReadHistoricalSeries(r io.Reader, name string) (*HistoricalSeries, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("invalid CSV format: expected at least 2 columns")
	}

	var points []HistoricalDataPoint
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read data row: %w", err)
		}
		if len(record) < 2 {
			continue
		}

		year, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			continue
		}
		value, err := parseRate(record[1])
		if err != nil {
			continue
		}
		points = append(points, HistoricalDataPoint{Year: year, Value: value})
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("no valid data points found")
	}
	slices.SortFunc(points, func(a, b HistoricalDataPoint) int { return a.Year - b.Year })

	return &HistoricalSeries{
		Name:       name,
		DataPoints: points,
		MinYear:    points[0].Year,
		MaxYear:    points[len(points)-1].Year,
		Statistics: calculateStatistics(points),
	}, nil
}

func parseRate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if pct, ok := strings.CutSuffix(s, "%"); ok {
		v, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
		return v / 100, err
	}
	return strconv.ParseFloat(s, 64)
}

// calculateStatistics expects points sorted by year
func calculateStatistics(points []HistoricalDataPoint) HistoricalStatistics {
	values := make([]float64, len(points))
	sum := 0.0
	for i, p := range points {
		values[i] = p.Value
		sum += p.Value
	}
	n := float64(len(values))
	mean := sum / n

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	stdDev := 0.0
	if len(values) > 1 {
		stdDev = math.Sqrt(variance / (n - 1))
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)
	median := sorted[len(sorted)/2]
	if len(sorted)%2 == 0 {
		median = (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2
	}

	var missing []int
	next := points[0].Year
	for _, p := range points {
		for ; next < p.Year; next++ {
			missing = append(missing, next)
		}
		next = p.Year + 1
	}

	return HistoricalStatistics{
		Mean:         mean,
		Median:       median,
		StdDev:       stdDev,
		Min:          sorted[0],
		Max:          sorted[len(sorted)-1],
		Count:        len(values),
		MissingYears: missing,
	}
}

// Values returns the series in year order
func (s *HistoricalSeries) Values() []float64 {
	values := make([]float64, len(s.DataPoints))
	for i, p := range s.DataPoints {
		values[i] = p.Value
	}
	return values
}

// ReturnProfile resamples this series as yearly returns
func (s *HistoricalSeries) ReturnProfile(blockSize int) domain.BootstrapReturn {
	return domain.BootstrapReturn{History: s.Values(), BlockSize: blockSize}
}

// InflationProfile resamples this series as yearly inflation
func (s *HistoricalSeries) InflationProfile(blockSize int) domain.BootstrapInflation {
	return domain.BootstrapInflation{History: s.Values(), BlockSize: blockSize}
}

// NormalApproximation fits a normal return profile to the series
func (s *HistoricalSeries) NormalApproximation() domain.NormalReturn {
	return domain.NormalReturn{Mean: s.Statistics.Mean, StdDev: s.Statistics.StdDev}
}

// QualityIssues flags gaps and implausible yearly values
func (s *HistoricalSeries) QualityIssues() []string {
	var issues []string
	if len(s.Statistics.MissingYears) > 0 {
		issues = append(issues, fmt.Sprintf("missing years in %s: %v", s.Name, s.Statistics.MissingYears))
	}
	for _, p := range s.DataPoints {
		if p.Value > 1 || p.Value < -0.9 {
			issues = append(issues, fmt.Sprintf("extreme value in %s for %d: %.4f", s.Name, p.Year, p.Value))
		}
	}
	return issues
}
