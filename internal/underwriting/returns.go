package underwriting

import (
	"github.com/shopspring/decimal"
)

// ReturnsInput is everything the returns calculation needs from the projection.
type ReturnsInput struct {
	InitialEquity     decimal.Decimal
	CashFlows         []YearCashFlow
	ExitCapRate       decimal.Decimal
	LoanBalanceAtExit decimal.Decimal
	SaleCostPercent   decimal.Decimal
}

// Returns summarizes the investment over the hold period.
type Returns struct {
	ExitNOI           decimal.Decimal `json:"exit_noi"`
	ExitCapRate       decimal.Decimal `json:"exit_cap_rate"`
	ExitValue         decimal.Decimal `json:"exit_value"`
	SellingCosts      decimal.Decimal `json:"selling_costs"`
	LoanBalanceAtExit decimal.Decimal `json:"loan_balance_at_exit"`
	NetSaleProceeds   decimal.Decimal `json:"net_sale_proceeds"`

	// IRR is a percentage; nil when the cash flows have no solution.
	IRR               *float64        `json:"irr"`
	EquityMultiple    decimal.Decimal `json:"equity_multiple"`
	AverageCashOnCash decimal.Decimal `json:"average_cash_on_cash"`
	TotalProfit       decimal.Decimal `json:"total_profit"`
}

// ExitValue capitalizes noi at capRate percent. A non-positive cap rate yields zero.
func ExitValue(noi, capRate decimal.Decimal) decimal.Decimal {
	if !capRate.IsPositive() {
		return decimal.Zero
	}
	return noi.Div(capRate.Div(hundred)).Round(2)
}

// Distributions returns the equity distributions per year, with the net sale
// proceeds added to the final year.
func Distributions(cashFlows []YearCashFlow, netSaleProceeds decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(cashFlows))
	for i, y := range cashFlows {
		out[i] = y.CashFlow
	}
	if len(out) > 0 {
		out[len(out)-1] = out[len(out)-1].Add(netSaleProceeds)
	}
	return out
}

// ComputeReturns derives exit proceeds and return metrics from a projection.
func ComputeReturns(in ReturnsInput) Returns {
	r := Returns{
		ExitCapRate:       in.ExitCapRate,
		LoanBalanceAtExit: in.LoanBalanceAtExit,
	}
	if len(in.CashFlows) == 0 {
		return r
	}

	r.ExitNOI = in.CashFlows[len(in.CashFlows)-1].NetOperatingIncome
	r.ExitValue = ExitValue(r.ExitNOI, in.ExitCapRate)
	r.SellingCosts = r.ExitValue.Mul(in.SaleCostPercent).Div(hundred).Round(2)
	r.NetSaleProceeds = r.ExitValue.Sub(in.LoanBalanceAtExit).Sub(r.SellingCosts)

	distributions := Distributions(in.CashFlows, r.NetSaleProceeds)
	total := decimal.Zero
	positive := decimal.Zero
	for _, d := range distributions {
		total = total.Add(d)
		if d.IsPositive() {
			positive = positive.Add(d)
		}
	}

	equity := in.InitialEquity
	r.TotalProfit = total.Sub(equity)
	if !equity.IsPositive() {
		return r
	}

	r.EquityMultiple = positive.Div(equity).Round(2)

	cfSum := decimal.Zero
	for _, y := range in.CashFlows {
		cfSum = cfSum.Add(y.CashFlow)
	}
	years := decimal.NewFromInt(int64(len(in.CashFlows)))
	r.AverageCashOnCash = cfSum.Div(years).Div(equity).Mul(hundred).Round(2)

	flows := make([]float64, 0, len(distributions)+1)
	flows = append(flows, -equity.InexactFloat64())
	for _, d := range distributions {
		flows = append(flows, d.InexactFloat64())
	}
	if rate, ok := IRR(flows); ok {
		pct := rate * 100
		r.IRR = &pct
	}
	return r
}
