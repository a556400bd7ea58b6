package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Classification 比对结果
type Classification string

const (
	Matched            Classification = "matched"              // 匹配
	MissingFromService Classification = "missing_from_service" // 客服漏记
	ExtraInService     Classification = "extra_in_service"     // 异常订单
)

// Rank 排序权重：匹配 < 客服漏记 < 异常订单
func (c Classification) Rank() int {
	switch c {
	case Matched:
		return 0
	case MissingFromService:
		return 1
	case ExtraInService:
		return 2
	default:
		return 3
	}
}

// Label 中文展示名
func (c Classification) Label() string {
	switch c {
	case Matched:
		return "匹配"
	case MissingFromService:
		return "客服漏记"
	case ExtraInService:
		return "异常订单"
	default:
		return string(c)
	}
}

// IsDiscrepancy 是否为差异订单（需要高亮）
func (c Classification) IsDiscrepancy() bool {
	return c == MissingFromService || c == ExtraInService
}

// SourceStats 单个数据源的清洗统计
type SourceStats struct {
	Source             string `json:"source"`
	TotalRows          int    `json:"total_rows"`
	EmptyOrderRemoved  int    `json:"empty_order_removed"`
	DuplicateRows      int    `json:"duplicate_rows"`
	StatusFilteredRows int    `json:"status_filtered_rows"`
	KeptRows           int    `json:"kept_rows"`
}

// ComparisonRow 对账结果行
type ComparisonRow struct {
	Seq            int             `json:"seq"`
	OrderNo        string          `json:"order_no"`
	ProductName    string          `json:"product_name"`
	SalesAmount    decimal.Decimal `json:"sales_amount"`
	CostAmount     decimal.Decimal `json:"cost_amount"`
	Profit         decimal.Decimal `json:"profit"`
	Status         string          `json:"status"`
	Classification Classification  `json:"classification"`
}

// Summary 汇总统计
type Summary struct {
	TotalSales    decimal.Decimal `json:"total_sales"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
	OrderCount    int             `json:"order_count"`
	MatchedCount  int             `json:"matched_count"`
	SummaryCount  int             `json:"summary_count"`
	MissingCount  int             `json:"missing_count"`
	AbnormalCount int             `json:"abnormal_count"`
	LossCount     int             `json:"loss_count"`
	OfficialStats SourceStats     `json:"official_stats"`
	ServiceStats  SourceStats     `json:"service_stats"`
}

// Report 缓存中的一次对账结果
type Report struct {
	ID        string          `json:"id"`
	Rows      []ComparisonRow `json:"rows"`
	Summary   Summary         `json:"summary"`
	CreatedAt time.Time       `json:"created_at"`
}
