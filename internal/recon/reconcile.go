// Package recon 实现订单对账核心流程：标准化 -> 比对分类 -> 汇总。
//
// 流程是纯函数：不持有共享状态，不做 I/O，可被多个请求并发调用。
package recon

import (
	"github.com/shopspring/decimal"

	"orderrecon/internal/model"
)

const (
	SourceOfficial = "官方订单"
	SourceService  = "客服订单"
)

// SourceInput 单个数据源：原始表 + 列映射
type SourceInput struct {
	Table   model.RawTable
	Mapping model.ColumnMapping
}

// Input 一次对账的输入
type Input struct {
	Official    SourceInput
	Service     SourceInput
	DefaultCost decimal.Decimal
}

// Output 一次对账的输出
type Output struct {
	Rows    []model.ComparisonRow
	Summary model.Summary
}

// CheckOfficialMapping 官方订单按交易状态过滤，因此必须映射状态列
func CheckOfficialMapping(m model.ColumnMapping) error {
	if m.Status == "" {
		return NewValidationError("", "官方订单必须映射“交易状态”字段。")
	}
	return nil
}

// Reconcile 执行完整对账流程
// 官方订单按交易状态过滤；客服订单不过滤。
func Reconcile(in Input) (*Output, error) {
	if err := CheckOfficialMapping(in.Official.Mapping); err != nil {
		return nil, err
	}

	official, officialStats, err := Standardize(in.Official.Table, in.Official.Mapping, StandardizeOptions{
		Source:         SourceOfficial,
		DefaultCost:    in.DefaultCost,
		FilterByStatus: true,
	})
	if err != nil {
		return nil, err
	}

	service, serviceStats, err := Standardize(in.Service.Table, in.Service.Mapping, StandardizeOptions{
		Source:         SourceService,
		DefaultCost:    in.DefaultCost,
		FilterByStatus: false,
	})
	if err != nil {
		return nil, err
	}

	rows := CompareOrders(official, service)
	return &Output{
		Rows:    rows,
		Summary: BuildSummary(rows, officialStats, serviceStats),
	}, nil
}
