package calculation

import (
	"errors"
	"fmt"

	"github.com/rpgo/finplan/internal/domain"
)

// Lookup failures. These are per-entity problems: they are reported as
// warnings and never abort a run.
var (
	ErrAccountNotFound        = errors.New("account not found")
	ErrNotACashAccount        = errors.New("account does not hold cash")
	ErrNotAnInvestmentAccount = errors.New("account is not an investment account")
	ErrInvalidAccountType     = errors.New("invalid account type for operation")
	ErrAssetNotFound          = errors.New("asset not found")
	ErrReturnProfileNotFound  = errors.New("return profile not found")
	ErrEventNotFound          = errors.New("event not found")
	ErrInsufficientRateData   = errors.New("insufficient market rate data")
	ErrExternalBalance        = errors.New("amount refers to the balance of an external endpoint")
)

// ErrCancelled is returned when a Monte Carlo run is stopped by its context.
var ErrCancelled = errors.New("simulation cancelled")

// LookupError reports a failed reference while evaluating a trigger, an
// amount or an effect.
type LookupError struct {
	Op  string
	ID  any
	Err error
}

func (e *LookupError) Error() string {
	if e.ID == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %v: %v", e.Op, e.ID, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

func accountNotFound(op string, id domain.AccountID) error {
	return &LookupError{Op: op, ID: id, Err: ErrAccountNotFound}
}

func eventNotFound(op string, id domain.EventID) error {
	return &LookupError{Op: op, ID: id, Err: ErrEventNotFound}
}

// ApplyError reports a state event that could not be applied.
type ApplyError struct {
	Kind    string
	Account domain.AccountID
	Err     error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply %s to account %d: %v", e.Kind, e.Account, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// InvalidDistributionError reports return or inflation profile parameters
// that cannot be sampled. It is fatal to the run.
type InvalidDistributionError struct {
	Profile string
	Reason  string
}

func (e *InvalidDistributionError) Error() string {
	return fmt.Sprintf("invalid %s distribution: %s", e.Profile, e.Reason)
}

// IsFatal reports whether err must abort a simulation run rather than be
// recorded as a warning.
func IsFatal(err error) bool {
	var dist *InvalidDistributionError
	return errors.As(err, &dist) || errors.Is(err, ErrCancelled)
}
