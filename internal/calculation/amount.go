package calculation

import (
	"fmt"

	"github.com/rpgo/finplan/internal/domain"
	"github.com/shopspring/decimal"
)

// endpoint is one side of a money movement: cash in an account, a position,
// or the outside world (both nil).
type endpoint struct {
	account *domain.AccountID
	asset   *domain.AssetCoord
}

var external = endpoint{}

func cashEndpoint(id domain.AccountID) endpoint { return endpoint{account: &id} }

func assetEndpoint(coord domain.AssetCoord) endpoint { return endpoint{asset: &coord} }

func (e endpoint) balance(s *SimulationState) (decimal.Decimal, error) {
	switch {
	case e.asset != nil:
		return s.AssetBalance(*e.asset)
	case e.account != nil:
		return s.AccountCashBalance(*e.account)
	default:
		return decimal.Zero, &LookupError{Op: "amount", Err: ErrExternalBalance}
	}
}

// EvaluateAmount resolves amount with no source or destination, so
// endpoint-relative amounts fail with ErrExternalBalance.
func EvaluateAmount(amount domain.Amount, s *SimulationState) (decimal.Decimal, error) {
	return evaluateAmount(amount, external, external, s)
}

func evaluateAmount(amount domain.Amount, from, to endpoint, s *SimulationState) (decimal.Decimal, error) {
	switch a := amount.(type) {
	case domain.Fixed:
		return a.Value, nil
	case domain.SourceBalance:
		return from.balance(s)
	case domain.ZeroTargetBalance:
		return to.balance(s)
	case domain.TargetToBalance:
		current, err := to.balance(s)
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.Max(a.Target.Sub(current), decimal.Zero), nil
	case domain.AssetBalanceAmount:
		return s.AssetBalance(a.Asset)
	case domain.AccountTotalBalance:
		return s.AccountBalance(a.Account)
	case domain.AccountCashBalance:
		return s.AccountCashBalance(a.Account)
	case domain.PercentOfBalance:
		balance, err := s.AccountBalance(a.Account)
		if err != nil {
			return decimal.Zero, err
		}
		return balance.Mul(a.Percent), nil
	case domain.InflationAdjusted:
		base, err := evaluateAmount(a.Amount, from, to, s)
		if err != nil {
			return decimal.Zero, err
		}
		adjusted, ok := s.Market.InflationAdjustedValue(s.StartDate, s.CurrentDate, base)
		if !ok {
			return decimal.Zero, &LookupError{Op: "inflation adjusted amount", Err: ErrInsufficientRateData}
		}
		return adjusted, nil
	case domain.MinOf:
		return combine(a.Left, a.Right, from, to, s, func(l, r decimal.Decimal) decimal.Decimal { return decimal.Min(l, r) })
	case domain.MaxOf:
		return combine(a.Left, a.Right, from, to, s, func(l, r decimal.Decimal) decimal.Decimal { return decimal.Max(l, r) })
	case domain.Sum:
		return combine(a.Left, a.Right, from, to, s, decimal.Decimal.Add)
	case domain.Difference:
		return combine(a.Left, a.Right, from, to, s, decimal.Decimal.Sub)
	case domain.Product:
		return combine(a.Left, a.Right, from, to, s, decimal.Decimal.Mul)
	case nil:
		return decimal.Zero, nil
	default:
		return decimal.Zero, &LookupError{Op: "amount", Err: fmt.Errorf("unsupported amount %T", amount)}
	}
}

func combine(left, right domain.Amount, from, to endpoint, s *SimulationState, op func(l, r decimal.Decimal) decimal.Decimal) (decimal.Decimal, error) {
	l, err := evaluateAmount(left, from, to, s)
	if err != nil {
		return decimal.Zero, err
	}
	r, err := evaluateAmount(right, from, to, s)
	if err != nil {
		return decimal.Zero, err
	}
	return op(l, r), nil
}
