// Package store persists simulation runs in SQLite: a run's headline
// numbers, its year-end net worth and taxes, the ledger when one was
// collected, and Monte Carlo percentiles.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rpgo/finplan/internal/domain"
	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// ErrRunNotFound is returned when no run has the requested id
var ErrRunNotFound = errors.New("run not found")

// RunKind tells single simulations and Monte Carlo summaries apart
type RunKind string

const (
	KindSimulation RunKind = "simulation"
	KindMonteCarlo RunKind = "montecarlo"
)

// Run is the stored header of one run. For Monte Carlo runs FinalNetWorth
// is the mean across iterations and Seed is zero.
type Run struct {
	ID            string
	Name          string
	Kind          RunKind
	Seed          uint64
	Iterations    int
	StartDate     time.Time
	EndDate       time.Time
	FinalNetWorth decimal.Decimal
	SuccessRate   decimal.NullDecimal
	Warnings      int
	CreatedAt     time.Time
}

// LedgerRow is one stored ledger entry; Payload is the state event as JSON.
type LedgerRow struct {
	Seq         int
	Date        time.Time
	SourceEvent *domain.EventID
	Kind        string
	Payload     json.RawMessage
}

// Store wraps the SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New opens (or creates) the database at path and initializes the schema.
func New(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		kind            TEXT NOT NULL,
		seed            TEXT NOT NULL DEFAULT '0',
		iterations      INTEGER NOT NULL DEFAULT 1,
		start_date      TEXT,
		end_date        TEXT,
		final_net_worth TEXT NOT NULL,
		success_rate    TEXT,
		warnings        INTEGER NOT NULL DEFAULT 0,
		created_at      TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);

	CREATE TABLE IF NOT EXISTS year_end (
		run_id    TEXT NOT NULL REFERENCES runs(id),
		year      INTEGER NOT NULL,
		net_worth TEXT NOT NULL,
		PRIMARY KEY (run_id, year)
	);

	CREATE TABLE IF NOT EXISTS yearly_taxes (
		run_id          TEXT NOT NULL REFERENCES runs(id),
		year            INTEGER NOT NULL,
		ordinary_income TEXT NOT NULL,
		capital_gains   TEXT NOT NULL,
		federal_tax     TEXT NOT NULL,
		state_tax       TEXT NOT NULL,
		penalties       TEXT NOT NULL,
		total_tax       TEXT NOT NULL,
		PRIMARY KEY (run_id, year)
	);

	CREATE TABLE IF NOT EXISTS ledger (
		run_id       TEXT NOT NULL REFERENCES runs(id),
		seq          INTEGER NOT NULL,
		date         TEXT NOT NULL,
		source_event INTEGER,
		kind         TEXT NOT NULL,
		payload      TEXT NOT NULL,
		PRIMARY KEY (run_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_ledger_kind ON ledger(run_id, kind);

	CREATE TABLE IF NOT EXISTS percentiles (
		run_id TEXT NOT NULL REFERENCES runs(id),
		p      REAL NOT NULL,
		value  TEXT NOT NULL,
		seed   TEXT NOT NULL,
		PRIMARY KEY (run_id, p)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// inTx runs fn in a transaction, retrying the whole transaction on contention.
func (s *Store) inTx(fn func(tx *sql.Tx) error) error {
	return retryOnContention(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

func (s *Store) newRun(name string, kind RunKind) Run {
	return Run{ID: uuid.NewString(), Name: name, Kind: kind, CreatedAt: s.now().UTC()}
}

// ---------------------------------------------------------------------------
// Writes
// ---------------------------------------------------------------------------

// SaveSimulation stores one run under a new id.
func (s *Store) SaveSimulation(name string, result *domain.SimulationResult) (*Run, error) {
	if result == nil {
		return nil, errors.New("nil simulation result")
	}
	run := s.newRun(name, KindSimulation)
	run.Seed = result.Seed
	run.Iterations = 1
	run.StartDate = result.StartDate
	run.EndDate = result.EndDate
	run.FinalNetWorth = result.FinalNetWorth()
	run.Warnings = len(result.Warnings)

	err := s.inTx(func(tx *sql.Tx) error {
		if err := insertRun(tx, &run); err != nil {
			return err
		}
		if err := insertYearEnd(tx, run.ID, result.YearEndNetWorth); err != nil {
			return err
		}
		for _, t := range result.YearlyTaxes {
			if _, err := tx.Exec(
				`INSERT INTO yearly_taxes (run_id, year, ordinary_income, capital_gains, federal_tax, state_tax, penalties, total_tax)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				run.ID, t.Year, t.OrdinaryIncome.String(), t.CapitalGains.String(), t.FederalTax.String(),
				t.StateTax.String(), t.EarlyWithdrawalPenalties.String(), t.TotalTax.String(),
			); err != nil {
				return fmt.Errorf("insert taxes %d: %w", t.Year, err)
			}
		}
		return insertLedger(tx, run.ID, result.Ledger)
	})
	if err != nil {
		return nil, fmt.Errorf("save simulation: %w", err)
	}
	return &run, nil
}

// SaveMonteCarlo stores a Monte Carlo summary under a new id.
func (s *Store) SaveMonteCarlo(name string, summary *domain.MonteCarloSummary) (*Run, error) {
	if summary == nil {
		return nil, errors.New("nil Monte Carlo summary")
	}
	run := s.newRun(name, KindMonteCarlo)
	run.Iterations = summary.Stats.Iterations
	run.FinalNetWorth = summary.Stats.Mean
	run.SuccessRate = decimal.NewNullDecimal(summary.Stats.SuccessRate)
	for _, pr := range summary.PercentileRuns {
		if pr.Result != nil {
			run.StartDate, run.EndDate = pr.Result.StartDate, pr.Result.EndDate
			break
		}
	}

	err := s.inTx(func(tx *sql.Tx) error {
		if err := insertRun(tx, &run); err != nil {
			return err
		}
		if err := insertYearEnd(tx, run.ID, summary.MeanYearEndNetWorth); err != nil {
			return err
		}
		for _, p := range summary.Stats.Percentiles {
			if _, err := tx.Exec(
				`INSERT INTO percentiles (run_id, p, value, seed) VALUES (?, ?, ?, ?)`,
				run.ID, p.P, p.Value.String(), strconv.FormatUint(p.Seed, 10),
			); err != nil {
				return fmt.Errorf("insert percentile %g: %w", p.P, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save monte carlo: %w", err)
	}
	return &run, nil
}

func insertRun(tx *sql.Tx, run *Run) error {
	var success sql.NullString
	if run.SuccessRate.Valid {
		success = sql.NullString{String: run.SuccessRate.Decimal.String(), Valid: true}
	}
	_, err := tx.Exec(
		`INSERT INTO runs (id, name, kind, seed, iterations, start_date, end_date, final_net_worth, success_rate, warnings, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Name, string(run.Kind), strconv.FormatUint(run.Seed, 10), run.Iterations,
		formatDate(run.StartDate), formatDate(run.EndDate), run.FinalNetWorth.String(), success,
		run.Warnings, run.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func insertYearEnd(tx *sql.Tx, runID string, values map[int]decimal.Decimal) error {
	for year, nw := range values {
		if _, err := tx.Exec(`INSERT INTO year_end (run_id, year, net_worth) VALUES (?, ?, ?)`, runID, year, nw.String()); err != nil {
			return fmt.Errorf("insert year end %d: %w", year, err)
		}
	}
	return nil
}

func insertLedger(tx *sql.Tx, runID string, ledger []domain.LedgerEntry) error {
	if len(ledger) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`INSERT INTO ledger (run_id, seq, date, source_event, kind, payload) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, entry := range ledger {
		payload, err := json.Marshal(entry.Event)
		if err != nil {
			return fmt.Errorf("encode ledger entry %d: %w", i, err)
		}
		var source sql.NullInt64
		if entry.SourceEvent != nil {
			source = sql.NullInt64{Int64: int64(*entry.SourceEvent), Valid: true}
		}
		if _, err := stmt.Exec(runID, i, entry.Date.Format(dateLayout), source, entry.Event.Kind(), string(payload)); err != nil {
			return fmt.Errorf("insert ledger entry %d: %w", i, err)
		}
	}
	return nil
}

// DeleteRun removes a run and everything stored with it.
func (s *Store) DeleteRun(id string) error {
	return s.inTx(func(tx *sql.Tx) error {
		for _, table := range []string{"year_end", "yearly_taxes", "ledger", "percentiles"} {
			if _, err := tx.Exec(`DELETE FROM `+table+` WHERE run_id = ?`, id); err != nil {
				return fmt.Errorf("delete %s: %w", table, err)
			}
		}
		res, err := tx.Exec(`DELETE FROM runs WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil
	})
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

const runColumns = `id, name, kind, seed, iterations, start_date, end_date, final_net_worth, success_rate, warnings, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run                  Run
		kind, seed, netWorth string
		start, end, success  sql.NullString
		created              string
	)
	if err := row.Scan(&run.ID, &run.Name, &kind, &seed, &run.Iterations, &start, &end, &netWorth, &success, &run.Warnings, &created); err != nil {
		return nil, err
	}
	run.Kind = RunKind(kind)
	var err error
	if run.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
		return nil, fmt.Errorf("run %s seed: %w", run.ID, err)
	}
	if run.FinalNetWorth, err = decimal.NewFromString(netWorth); err != nil {
		return nil, fmt.Errorf("run %s net worth: %w", run.ID, err)
	}
	if success.Valid {
		d, err := decimal.NewFromString(success.String)
		if err != nil {
			return nil, fmt.Errorf("run %s success rate: %w", run.ID, err)
		}
		run.SuccessRate = decimal.NewNullDecimal(d)
	}
	if run.StartDate, err = parseDate(start); err != nil {
		return nil, err
	}
	if run.EndDate, err = parseDate(end); err != nil {
		return nil, err
	}
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("run %s created_at: %w", run.ID, err)
	}
	return &run, nil
}

// GetRun retrieves a run header by id.
func (s *Store) GetRun(id string) (*Run, error) {
	run, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// ListRuns returns the newest runs first; limit <= 0 returns all of them.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// YearEndNetWorth returns the stored net worth by calendar year.
func (s *Store) YearEndNetWorth(runID string) (map[int]decimal.Decimal, error) {
	rows, err := s.db.Query(`SELECT year, net_worth FROM year_end WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make(map[int]decimal.Decimal)
	for rows.Next() {
		var (
			year int
			nw   string
		)
		if err := rows.Scan(&year, &nw); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(nw)
		if err != nil {
			return nil, fmt.Errorf("year %d: %w", year, err)
		}
		values[year] = d
	}
	return values, rows.Err()
}

// YearlyTaxes returns the stored tax summaries in year order.
func (s *Store) YearlyTaxes(runID string) ([]domain.TaxSummary, error) {
	rows, err := s.db.Query(
		`SELECT year, ordinary_income, capital_gains, federal_tax, state_tax, penalties, total_tax
		 FROM yearly_taxes WHERE run_id = ? ORDER BY year`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TaxSummary
	for rows.Next() {
		var (
			t      domain.TaxSummary
			fields [6]string
		)
		if err := rows.Scan(&t.Year, &fields[0], &fields[1], &fields[2], &fields[3], &fields[4], &fields[5]); err != nil {
			return nil, err
		}
		targets := []*decimal.Decimal{&t.OrdinaryIncome, &t.CapitalGains, &t.FederalTax, &t.StateTax, &t.EarlyWithdrawalPenalties, &t.TotalTax}
		for i, f := range fields {
			d, err := decimal.NewFromString(f)
			if err != nil {
				return nil, fmt.Errorf("taxes %d: %w", t.Year, err)
			}
			*targets[i] = d
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Ledger returns the stored ledger in application order.
func (s *Store) Ledger(runID string) ([]LedgerRow, error) {
	rows, err := s.db.Query(
		`SELECT seq, date, source_event, kind, payload FROM ledger WHERE run_id = ? ORDER BY seq`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LedgerRow
	for rows.Next() {
		var (
			row     LedgerRow
			date    string
			source  sql.NullInt64
			payload string
		)
		if err := rows.Scan(&row.Seq, &date, &source, &row.Kind, &payload); err != nil {
			return nil, err
		}
		if row.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("ledger %d: %w", row.Seq, err)
		}
		if source.Valid {
			id := domain.EventID(source.Int64)
			row.SourceEvent = &id
		}
		row.Payload = json.RawMessage(payload)
		out = append(out, row)
	}
	return out, rows.Err()
}

// Percentiles returns the stored Monte Carlo percentiles in ascending order.
func (s *Store) Percentiles(runID string) ([]domain.PercentileValue, error) {
	rows, err := s.db.Query(`SELECT p, value, seed FROM percentiles WHERE run_id = ? ORDER BY p`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PercentileValue
	for rows.Next() {
		var (
			pv          domain.PercentileValue
			value, seed string
		)
		if err := rows.Scan(&pv.P, &value, &seed); err != nil {
			return nil, err
		}
		if pv.Value, err = decimal.NewFromString(value); err != nil {
			return nil, fmt.Errorf("percentile %g: %w", pv.P, err)
		}
		if pv.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
			return nil, fmt.Errorf("percentile %g seed: %w", pv.P, err)
		}
		out = append(out, pv)
	}
	return out, rows.Err()
}

func formatDate(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(dateLayout), Valid: true}
}

func parseDate(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s.String)
}
