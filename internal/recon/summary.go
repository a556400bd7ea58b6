package recon

import (
	"github.com/shopspring/decimal"

	"orderrecon/internal/model"
)

// SummaryStatuses 计入销售额/成本/利润汇总的状态
// 比 AcceptedStatuses 更窄：已发货但未收货的订单算作匹配，但不计入金额。
var SummaryStatuses = map[string]struct{}{
	"交易成功": {},
	"已收货":  {},
}

// BuildSummary 汇总对账结果
func BuildSummary(rows []model.ComparisonRow, official, service model.SourceStats) model.Summary {
	sum := model.Summary{
		TotalSales:    decimal.Zero,
		TotalCost:     decimal.Zero,
		TotalProfit:   decimal.Zero,
		OrderCount:    len(rows),
		OfficialStats: official,
		ServiceStats:  service,
	}

	for _, r := range rows {
		switch r.Classification {
		case model.MissingFromService:
			sum.MissingCount++
			continue
		case model.ExtraInService:
			sum.AbnormalCount++
			continue
		case model.Matched:
			sum.MatchedCount++
		default:
			continue
		}

		if _, ok := SummaryStatuses[r.Status]; !ok {
			continue
		}
		sum.SummaryCount++
		sum.TotalSales = sum.TotalSales.Add(r.SalesAmount)
		sum.TotalCost = sum.TotalCost.Add(r.CostAmount)
		sum.TotalProfit = sum.TotalProfit.Add(r.Profit)
		if r.Profit.IsNegative() {
			sum.LossCount++
		}
	}

	sum.TotalSales = sum.TotalSales.Round(2)
	sum.TotalCost = sum.TotalCost.Round(2)
	sum.TotalProfit = sum.TotalProfit.Round(2)
	return sum
}
