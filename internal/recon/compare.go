package recon

import (
	"sort"

	"github.com/shopspring/decimal"

	"orderrecon/internal/model"
)

// CompareOrders 按订单号比对官方与客服记录集
//
// 两侧在 Standardize 之后订单号唯一。两侧都有的订单：销售额以官方为准、
// 成本以客服为准，任一侧为 0 时取另一侧；状态优先官方，商品名优先客服。
// 结果按（匹配、客服漏记、异常订单）再按订单号升序排列，序号从 1 开始。
func CompareOrders(official, service []model.CanonicalRecord) []model.ComparisonRow {
	officialByNo := indexByOrderNo(official)
	serviceByNo := indexByOrderNo(service)

	rows := make([]model.ComparisonRow, 0, len(officialByNo)+len(serviceByNo))

	for no, o := range officialByNo {
		s, ok := serviceByNo[no]
		if !ok {
			rows = append(rows, rowFromRecord(o, model.MissingFromService))
			continue
		}

		sales := o.SalesAmount
		if sales.IsZero() {
			sales = s.SalesAmount
		}
		cost := s.CostAmount
		if cost.IsZero() {
			cost = o.CostAmount
		}
		status := o.Status
		if status == "" {
			status = s.Status
		}
		name := s.ProductName
		if name == "" {
			name = o.ProductName
		}

		rows = append(rows, newRow(no, name, sales, cost, status, model.Matched))
	}

	for no, s := range serviceByNo {
		if _, ok := officialByNo[no]; ok {
			continue
		}
		rows = append(rows, rowFromRecord(s, model.ExtraInService))
	}

	sort.Slice(rows, func(i, j int) bool {
		ri, rj := rows[i].Classification.Rank(), rows[j].Classification.Rank()
		if ri != rj {
			return ri < rj
		}
		return rows[i].OrderNo < rows[j].OrderNo
	})
	for i := range rows {
		rows[i].Seq = i + 1
	}
	return rows
}

func indexByOrderNo(records []model.CanonicalRecord) map[string]model.CanonicalRecord {
	out := make(map[string]model.CanonicalRecord, len(records))
	for _, r := range records {
		if _, ok := out[r.OrderNo]; ok {
			continue
		}
		out[r.OrderNo] = r
	}
	return out
}

func rowFromRecord(r model.CanonicalRecord, class model.Classification) model.ComparisonRow {
	return newRow(r.OrderNo, r.ProductName, r.SalesAmount, r.CostAmount, r.Status, class)
}

func newRow(orderNo, name string, sales, cost decimal.Decimal, status string, class model.Classification) model.ComparisonRow {
	return model.ComparisonRow{
		OrderNo:        orderNo,
		ProductName:    name,
		SalesAmount:    sales.Round(2),
		CostAmount:     cost.Round(2),
		Profit:         sales.Sub(cost).Round(2),
		Status:         status,
		Classification: class,
	}
}
