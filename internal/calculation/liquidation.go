package calculation

import (
	"slices"
	"time"

	"github.com/rpgo/finplan/internal/domain"
	"github.com/rpgo/finplan/pkg/dateutil"
	"github.com/shopspring/decimal"
)

// longTermHoldingDays is the holding period at which a gain becomes long-term
const longTermHoldingDays = 365

// minTrade is the smallest amount of money worth moving
var minTrade = decimal.NewFromFloat(0.01)

// LotSale is the part of one lot consumed by a sale
type LotSale struct {
	LotDate       time.Time
	Units         decimal.Decimal
	CostBasis     decimal.Decimal
	Proceeds      decimal.Decimal
	ShortTermGain decimal.Decimal
	LongTermGain  decimal.Decimal
}

// LotConsumption totals the lots consumed to raise an amount
type LotConsumption struct {
	Units         decimal.Decimal
	CostBasis     decimal.Decimal
	Proceeds      decimal.Decimal
	ShortTermGain decimal.Decimal
	LongTermGain  decimal.Decimal
	Sales         []LotSale
}

func (c *LotConsumption) add(sale LotSale) {
	c.Units = c.Units.Add(sale.Units)
	c.CostBasis = c.CostBasis.Add(sale.CostBasis)
	c.Proceeds = c.Proceeds.Add(sale.Proceeds)
	c.ShortTermGain = c.ShortTermGain.Add(sale.ShortTermGain)
	c.LongTermGain = c.LongTermGain.Add(sale.LongTermGain)
	c.Sales = append(c.Sales, sale)
}

// ConsumeLots selects units worth amount at price from lots of one asset.
// Losses are not reported as negative gains.
func ConsumeLots(lots []domain.Lot, amount, price decimal.Decimal, method domain.LotMethod, date time.Time) LotConsumption {
	if !amount.IsPositive() || !price.IsPositive() || len(lots) == 0 {
		return LotConsumption{}
	}
	units := amount.Div(price)
	if method == domain.AverageCost {
		return consumeAverageCost(lots, units, price, date)
	}
	return consumeInOrder(orderLots(lots, method), units, price, date)
}

func orderLots(lots []domain.Lot, method domain.LotMethod) []domain.Lot {
	ordered := slices.Clone(lots)
	switch method {
	case domain.FIFO:
		slices.SortStableFunc(ordered, func(a, b domain.Lot) int { return a.PurchaseDate.Compare(b.PurchaseDate) })
	case domain.LIFO:
		slices.SortStableFunc(ordered, func(a, b domain.Lot) int { return b.PurchaseDate.Compare(a.PurchaseDate) })
	case domain.HighestCost:
		slices.SortStableFunc(ordered, func(a, b domain.Lot) int { return b.CostPerUnit().Cmp(a.CostPerUnit()) })
	case domain.LowestCost:
		slices.SortStableFunc(ordered, func(a, b domain.Lot) int { return a.CostPerUnit().Cmp(b.CostPerUnit()) })
	}
	return ordered
}

func consumeInOrder(lots []domain.Lot, units, price decimal.Decimal, date time.Time) LotConsumption {
	var result LotConsumption
	remaining := units
	for _, lot := range lots {
		if remaining.LessThanOrEqual(domain.LotEpsilon) {
			break
		}
		if !lot.Units.IsPositive() {
			continue
		}
		take := decimal.Min(remaining, lot.Units)
		basis := lot.CostBasis.Mul(take).Div(lot.Units)
		if take.Equal(lot.Units) {
			basis = lot.CostBasis
		}
		proceeds := take.Mul(price)
		st, lt := splitGain(proceeds.Sub(basis), lot.PurchaseDate, date)
		result.add(LotSale{
			LotDate:       lot.PurchaseDate,
			Units:         take,
			CostBasis:     basis,
			Proceeds:      proceeds,
			ShortTermGain: st,
			LongTermGain:  lt,
		})
		remaining = remaining.Sub(take)
	}
	return result
}

// consumeAverageCost sells the same fraction of every lot. Gains use the
// pooled basis per unit; each lot gives up its own basis proportionally.
func consumeAverageCost(lots []domain.Lot, units, price decimal.Decimal, date time.Time) LotConsumption {
	totalUnits, totalBasis := decimal.Zero, decimal.Zero
	for _, lot := range lots {
		totalUnits = totalUnits.Add(lot.Units)
		totalBasis = totalBasis.Add(lot.CostBasis)
	}
	if !totalUnits.IsPositive() {
		return LotConsumption{}
	}
	fraction := decimal.Min(units, totalUnits).Div(totalUnits)
	average := totalBasis.Div(totalUnits)

	var result LotConsumption
	for _, lot := range lots {
		take := lot.Units.Mul(fraction)
		if take.LessThanOrEqual(domain.LotEpsilon) {
			continue
		}
		proceeds := take.Mul(price)
		st, lt := splitGain(proceeds.Sub(take.Mul(average)), lot.PurchaseDate, date)
		result.add(LotSale{
			LotDate:       lot.PurchaseDate,
			Units:         take,
			CostBasis:     lot.CostBasis.Mul(fraction),
			Proceeds:      proceeds,
			ShortTermGain: st,
			LongTermGain:  lt,
		})
	}
	return result
}

func splitGain(gain decimal.Decimal, purchased, sold time.Time) (shortTerm, longTerm decimal.Decimal) {
	if !gain.IsPositive() {
		return decimal.Zero, decimal.Zero
	}
	if dateutil.DaysBetween(purchased, sold) >= longTermHoldingDays {
		return decimal.Zero, gain
	}
	return gain, decimal.Zero
}

// reduceLot removes a sale from the matching lot, dropping the lot once it
// is depleted at price. It reports whether a lot matched.
func reduceLot(inv *domain.Investment, asset domain.AssetID, lotDate time.Time, units, basis, price decimal.Decimal) bool {
	for i := range inv.Positions {
		lot := &inv.Positions[i]
		if lot.AssetID != asset || !lot.PurchaseDate.Equal(lotDate) {
			continue
		}
		lot.Units = lot.Units.Sub(units)
		lot.CostBasis = lot.CostBasis.Sub(basis)
		if lot.IsDepleted(price) {
			inv.Positions = slices.Delete(inv.Positions, i, i+1)
		}
		return true
	}
	return false
}

// addLot merges a purchase into the lot bought the same day, so asset and
// purchase date identify a lot.
func addLot(inv *domain.Investment, asset domain.AssetID, date time.Time, units, basis decimal.Decimal) {
	for i := range inv.Positions {
		lot := &inv.Positions[i]
		if lot.AssetID == asset && lot.PurchaseDate.Equal(date) {
			lot.Units = lot.Units.Add(units)
			lot.CostBasis = lot.CostBasis.Add(basis)
			return
		}
	}
	inv.Positions = append(inv.Positions, domain.Lot{AssetID: asset, PurchaseDate: date, Units: units, CostBasis: basis})
}

// liquidationResult is what one position sale raised
type liquidationResult struct {
	Gross decimal.Decimal
	Net   decimal.Decimal
}

// liquidate sells gross dollars of one position and credits the after-tax
// proceeds to creditTo. inv is the effect's scratch copy and is updated.
func (ec *effectContext) liquidate(inv *domain.Investment, coord domain.AssetCoord, creditTo domain.AccountID, gross, price decimal.Decimal, method domain.LotMethod) (liquidationResult, []domain.StateEvent) {
	lots := inv.LotsFor(coord.AssetID)
	available := inv.Units(coord.AssetID).Mul(price)
	gross = decimal.Min(gross, available)
	if gross.LessThanOrEqual(domain.LotEpsilon) {
		return liquidationResult{}, nil
	}

	consumed := ConsumeLots(lots, gross, price, method, ec.s.CurrentDate)
	if len(consumed.Sales) == 0 {
		return liquidationResult{}, nil
	}

	events := make([]domain.StateEvent, 0, len(consumed.Sales)+3)
	for _, sale := range consumed.Sales {
		events = append(events, domain.AssetSold{
			Asset:         coord,
			LotDate:       sale.LotDate,
			Units:         sale.Units,
			CostBasis:     sale.CostBasis,
			Proceeds:      sale.Proceeds,
			ShortTermGain: sale.ShortTermGain,
			LongTermGain:  sale.LongTermGain,
		})
		reduceLot(inv, coord.AssetID, sale.LotDate, sale.Units, sale.CostBasis, price)
	}

	proceeds := consumed.Proceeds
	net := proceeds
	switch inv.TaxStatus {
	case domain.Taxable:
		tax := ec.s.Tax.RealizedGainsTax(consumed.ShortTermGain, consumed.LongTermGain, ec.ytd)
		if consumed.ShortTermGain.IsPositive() {
			events = append(events, domain.ShortTermCapitalGainsTax{
				Gain:    consumed.ShortTermGain,
				Federal: tax.ShortTermFederal,
				State:   tax.ShortTermState,
			})
			ec.ytd = ec.ytd.Add(consumed.ShortTermGain)
		}
		if consumed.LongTermGain.IsPositive() {
			events = append(events, domain.LongTermCapitalGainsTax{
				Gain:    consumed.LongTermGain,
				Federal: tax.LongTermFederal,
				State:   tax.LongTermState,
			})
		}
		net = proceeds.Sub(tax.Total())
	case domain.TaxDeferred:
		tax := ec.s.Tax.TaxDeferredWithdrawalTax(proceeds, ec.ytd, ec.s.AgeDecimal())
		events = append(events, domain.IncomeTax{Gross: proceeds, Federal: tax.Federal, State: tax.State})
		if tax.Penalty.IsPositive() {
			events = append(events, domain.EarlyWithdrawalPenalty{
				Gross:   proceeds,
				Penalty: tax.Penalty,
				Rate:    ec.s.Tax.Config.EarlyWithdrawalPenaltyRate,
			})
		}
		ec.ytd = ec.ytd.Add(proceeds)
		net = tax.Net()
	}

	events = append(events, domain.CashCredit{To: creditTo, Amount: net, Flow: domain.FlowLiquidationProceeds})
	return liquidationResult{Gross: proceeds, Net: net}, events
}

// grossForNet estimates the sale needed to clear net after tax. Tax-deferred
// withdrawals invert the bracket schedule exactly; taxable sales estimate
// from the position's unrealized gain at the capital gains rate.
func (ec *effectContext) grossForNet(inv *domain.Investment, asset domain.AssetID, net, price decimal.Decimal) decimal.Decimal {
	cfg := ec.s.Tax.Config
	switch inv.TaxStatus {
	case domain.TaxDeferred:
		rate := cfg.StateRate
		if ec.s.BelowEarlyWithdrawalAge() {
			rate = rate.Add(cfg.EarlyWithdrawalPenaltyRate)
		}
		return GrossFromNet(net, ec.ytd, cfg.FederalBrackets, rate)
	case domain.Taxable:
		units := inv.Units(asset)
		if !units.IsPositive() || !price.IsPositive() {
			return net
		}
		basis := decimal.Zero
		for _, lot := range inv.LotsFor(asset) {
			basis = basis.Add(lot.CostBasis)
		}
		gainRatio := decimal.Max(price.Sub(basis.Div(units)).Div(price), decimal.Zero)
		effective := gainRatio.Mul(cfg.CapitalGainsRate.Add(cfg.StateRate))
		keep := decimal.Max(decimal.NewFromInt(1).Sub(effective), decimal.NewFromFloat(0.5))
		return net.Div(keep)
	default:
		return net
	}
}

// sellPosition raises up to remaining (gross or net per mode) from one
// position. Positions without a price are skipped.
func (ec *effectContext) sellPosition(coord domain.AssetCoord, creditTo domain.AccountID, remaining decimal.Decimal, mode domain.AmountMode, method domain.LotMethod) (liquidationResult, []domain.StateEvent, error) {
	inv, err := ec.investment(coord.AccountID)
	if err != nil {
		return liquidationResult{}, nil, err
	}
	price, ok := ec.s.Price(coord.AssetID)
	if !ok {
		ec.s.logger.Debugf("no price for %s, skipping", coord)
		return liquidationResult{}, nil, nil
	}
	if inv.Units(coord.AssetID).Mul(price).LessThan(minTrade) {
		return liquidationResult{}, nil, nil
	}
	gross := remaining
	if mode == domain.Net {
		gross = ec.grossForNet(inv, coord.AssetID, remaining, price)
	}
	res, events := ec.liquidate(inv, coord, creditTo, gross, price, method)
	return res, events, nil
}

// raised returns the part of res that counts against a target in mode
func raised(res liquidationResult, mode domain.AmountMode) decimal.Decimal {
	if mode == domain.Net {
		return res.Net
	}
	return res.Gross
}

// sweepResult is what a sweep sold, per source account
type sweepResult struct {
	liquidationResult
	credited map[domain.AccountID]decimal.Decimal
	order    []domain.AccountID
}

func (r *sweepResult) add(account domain.AccountID, res liquidationResult) {
	if r.credited == nil {
		r.credited = make(map[domain.AccountID]decimal.Decimal)
	}
	if _, ok := r.credited[account]; !ok {
		r.order = append(r.order, account)
	}
	r.credited[account] = r.credited[account].Add(res.Net)
	r.Gross = r.Gross.Add(res.Gross)
	r.Net = r.Net.Add(res.Net)
}

// sweep liquidates target across sources into each source's own cash, then
// moves the proceeds of every source other than to into to.
func (ec *effectContext) sweep(sources domain.WithdrawalSources, to domain.AccountID, target decimal.Decimal, mode domain.AmountMode, method domain.LotMethod, flow domain.CashFlowKind) (sweepResult, []domain.StateEvent, error) {
	var result sweepResult
	var events []domain.StateEvent
	if target.LessThan(minTrade) {
		return result, nil, nil
	}

	sell := func(coord domain.AssetCoord, amount decimal.Decimal) error {
		res, evs, err := ec.sellPosition(coord, coord.AccountID, amount, mode, method)
		if err != nil {
			return err
		}
		if len(evs) > 0 {
			result.add(coord.AccountID, res)
			events = append(events, evs...)
		}
		return nil
	}

	coords, err := ec.resolveSources(sources)
	if err != nil {
		return result, nil, err
	}

	if strategy, ok := sources.(domain.Strategy); ok && strategy.Order == domain.ProRata {
		if err := ec.sweepProRata(coords, target, sell); err != nil {
			return result, nil, err
		}
	}

	for _, coord := range coords {
		remaining := target.Sub(raised(result.liquidationResult, mode))
		if remaining.LessThan(minTrade) {
			break
		}
		if err := sell(coord, remaining); err != nil {
			return result, nil, err
		}
	}

	for _, account := range result.order {
		amount := result.credited[account]
		if account == to || !amount.IsPositive() {
			continue
		}
		events = append(events,
			domain.CashDebit{From: account, Amount: amount, Flow: domain.FlowTransfer},
			domain.CashCredit{To: to, Amount: amount, Flow: flow},
		)
	}
	return result, events, nil
}

// sweepProRata splits target across accounts by the value of their
// positions. Any shortfall is picked up by the sequential pass that follows.
func (ec *effectContext) sweepProRata(coords []domain.AssetCoord, target decimal.Decimal, sell func(domain.AssetCoord, decimal.Decimal) error) error {
	value := make(map[domain.AssetCoord]decimal.Decimal, len(coords))
	total := decimal.Zero
	for _, coord := range coords {
		inv, err := ec.investment(coord.AccountID)
		if err != nil {
			return err
		}
		price, ok := ec.s.Price(coord.AssetID)
		if !ok {
			continue
		}
		v := inv.Units(coord.AssetID).Mul(price)
		value[coord] = v
		total = total.Add(v)
	}
	if !total.IsPositive() {
		return nil
	}
	for _, coord := range coords {
		share := target.Mul(value[coord]).Div(total)
		if share.LessThan(minTrade) {
			continue
		}
		if err := sell(coord, share); err != nil {
			return err
		}
	}
	return nil
}

// resolveSources lists the positions a sweep may draw from, in draw order
func (ec *effectContext) resolveSources(sources domain.WithdrawalSources) ([]domain.AssetCoord, error) {
	switch src := sources.(type) {
	case domain.SingleAsset:
		return []domain.AssetCoord{src.Asset}, nil
	case domain.SingleAccount:
		inv, err := ec.investment(src.Account)
		if err != nil {
			return nil, err
		}
		return positionsOf(src.Account, inv), nil
	case domain.CustomSources:
		return slices.Clone(src.Assets), nil
	case domain.Strategy:
		var coords []domain.AssetCoord
		for _, id := range ec.s.withdrawalOrder(src) {
			inv, err := ec.investment(id)
			if err != nil {
				return nil, err
			}
			coords = append(coords, positionsOf(id, inv)...)
		}
		return coords, nil
	default:
		return nil, &LookupError{Op: "withdrawal sources", Err: ErrInvalidAccountType}
	}
}

func positionsOf(account domain.AccountID, inv *domain.Investment) []domain.AssetCoord {
	assets := inv.AssetIDs()
	coords := make([]domain.AssetCoord, len(assets))
	for i, asset := range assets {
		coords[i] = domain.AssetCoord{AccountID: account, AssetID: asset}
	}
	return coords
}

// withdrawalOrder returns the investment accounts a strategy draws from,
// ranked by tax status and then by account id
func (s *SimulationState) withdrawalOrder(strategy domain.Strategy) []domain.AccountID {
	var rank map[domain.TaxStatus]int
	switch strategy.Order {
	case domain.TaxEfficientEarly:
		rank = map[domain.TaxStatus]int{domain.Taxable: 0, domain.TaxDeferred: 1, domain.TaxFree: 2}
	case domain.TaxDeferredFirst:
		rank = map[domain.TaxStatus]int{domain.TaxDeferred: 0, domain.Taxable: 1, domain.TaxFree: 2}
	case domain.TaxFreeFirst:
		rank = map[domain.TaxStatus]int{domain.TaxFree: 0, domain.Taxable: 1, domain.TaxDeferred: 2}
	case domain.PenaltyAware:
		if s.BelowEarlyWithdrawalAge() {
			rank = map[domain.TaxStatus]int{domain.Taxable: 0, domain.TaxFree: 1, domain.TaxDeferred: 2}
		} else {
			rank = map[domain.TaxStatus]int{domain.Taxable: 0, domain.TaxDeferred: 1, domain.TaxFree: 2}
		}
	}

	type candidate struct {
		id     domain.AccountID
		status domain.TaxStatus
	}
	var candidates []candidate
	for id, a := range s.Accounts {
		if slices.Contains(strategy.Exclude, id) {
			continue
		}
		if inv, ok := a.Flavor.(*domain.Investment); ok {
			candidates = append(candidates, candidate{id: id, status: inv.TaxStatus})
		}
	}
	slices.SortFunc(candidates, func(a, b candidate) int {
		if rank != nil && rank[a.status] != rank[b.status] {
			return rank[a.status] - rank[b.status]
		}
		return int(a.id) - int(b.id)
	})

	ids := make([]domain.AccountID, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
	}
	return ids
}
