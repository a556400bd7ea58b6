package recon

import (
	"strings"

	"github.com/shopspring/decimal"

	"orderrecon/internal/model"
)

// AcceptedStatuses 官方订单过滤时视为真实成交的状态
var AcceptedStatuses = map[string]struct{}{
	"交易成功": {},
	"已发货":  {},
	"已收货":  {},
}

// StandardizeOptions 标准化选项
type StandardizeOptions struct {
	Source         string          // 数据源名称，用于错误信息与统计
	DefaultCost    decimal.Decimal // 未映射成本列或成本为空时使用
	FilterByStatus bool            // 是否按 AcceptedStatuses 过滤
}

// Standardize 将原始表按映射转换为标准记录集，并返回清洗统计
//
// 处理顺序固定：投影 -> 去空订单号 -> 统计并折叠重复订单号（保留首条）-> 状态过滤。
// 每一步的统计都基于该步之前的表状态。
func Standardize(table model.RawTable, mapping model.ColumnMapping, opts StandardizeOptions) ([]model.CanonicalRecord, model.SourceStats, error) {
	if err := validateMapping(table, mapping, opts.Source); err != nil {
		return nil, model.SourceStats{}, err
	}

	stats := model.SourceStats{Source: opts.Source}

	// 投影
	work := make([]model.CanonicalRecord, 0, len(table.Rows))
	for _, row := range table.Rows {
		rec := model.CanonicalRecord{
			OrderNo:     NormalizeOrderNumber(row[mapping.OrderNo]),
			ProductName: strings.TrimSpace(row[mapping.ProductName]),
			SalesAmount: ToNumber(row[mapping.SalesAmount], decimal.Zero),
			CostAmount:  opts.DefaultCost,
		}
		if mapping.CostAmount != "" {
			rec.CostAmount = ToNumber(row[mapping.CostAmount], opts.DefaultCost)
		}
		if mapping.Status != "" {
			rec.Status = strings.TrimSpace(row[mapping.Status])
		}
		work = append(work, rec)
	}
	stats.TotalRows = len(work)

	// 去空订单号
	nonEmpty := work[:0]
	for _, rec := range work {
		if rec.OrderNo != "" {
			nonEmpty = append(nonEmpty, rec)
		}
	}
	stats.EmptyOrderRemoved = stats.TotalRows - len(nonEmpty)
	work = nonEmpty

	// 重复订单号：统计所有参与重复的行，再保留首次出现
	occurrences := make(map[string]int, len(work))
	for _, rec := range work {
		occurrences[rec.OrderNo]++
	}
	seen := make(map[string]struct{}, len(occurrences))
	unique := make([]model.CanonicalRecord, 0, len(occurrences))
	for _, rec := range work {
		if occurrences[rec.OrderNo] > 1 {
			stats.DuplicateRows++
		}
		if _, ok := seen[rec.OrderNo]; ok {
			continue
		}
		seen[rec.OrderNo] = struct{}{}
		unique = append(unique, rec)
	}
	work = unique

	// 状态过滤
	if opts.FilterByStatus && mapping.Status != "" {
		kept := work[:0]
		for _, rec := range work {
			if _, ok := AcceptedStatuses[rec.Status]; ok {
				kept = append(kept, rec)
			}
		}
		stats.StatusFilteredRows = len(work) - len(kept)
		work = kept
	}

	stats.KeptRows = len(work)
	return work, stats, nil
}

// validateMapping 校验必填键存在，且所有非空映射都指向真实列
func validateMapping(table model.RawTable, mapping model.ColumnMapping, source string) error {
	var missing []string
	for _, f := range []model.MappingField{
		{Key: model.KeyOrderNo, Column: mapping.OrderNo},
		{Key: model.KeyProductName, Column: mapping.ProductName},
		{Key: model.KeySalesAmount, Column: mapping.SalesAmount},
	} {
		if f.Column == "" {
			missing = append(missing, f.Key)
		}
	}
	if len(missing) > 0 {
		return &MappingError{Source: source, Missing: missing}
	}

	for _, f := range mapping.Fields() {
		if f.Column != "" && !table.HasColumn(f.Column) {
			return &MappingError{Source: source, Key: f.Key, Column: f.Column}
		}
	}
	return nil
}
