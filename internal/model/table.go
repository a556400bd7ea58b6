package model

import "github.com/shopspring/decimal"

// RawTable 上传表格的原始内容（所有单元格均为文本）
type RawTable struct {
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"rows"`
}

// HasColumn 判断列是否存在
func (t RawTable) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Len 数据行数
func (t RawTable) Len() int {
	return len(t.Rows)
}

// Head 返回前 n 行（用于预览）
func (t RawTable) Head(n int) []map[string]string {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	if n < 0 {
		n = 0
	}
	return t.Rows[:n]
}

// Mapping keys, in the order they are validated and reported.
const (
	KeyOrderNo     = "order_no"
	KeyProductName = "product_name"
	KeySalesAmount = "sales_amount"
	KeyCostAmount  = "cost_amount"
	KeyStatus      = "status"
)

// ColumnMapping 标准字段 -> 源表列名
// OrderNo / ProductName / SalesAmount 必填；CostAmount / Status 可为空。
type ColumnMapping struct {
	OrderNo     string `json:"order_no"`
	ProductName string `json:"product_name"`
	SalesAmount string `json:"sales_amount"`
	CostAmount  string `json:"cost_amount"`
	Status      string `json:"status"`
}

// MappingField 一个映射项
type MappingField struct {
	Key    string
	Column string
}

// Fields 按固定顺序返回所有映射项
func (m ColumnMapping) Fields() []MappingField {
	return []MappingField{
		{Key: KeyOrderNo, Column: m.OrderNo},
		{Key: KeyStatus, Column: m.Status},
		{Key: KeyProductName, Column: m.ProductName},
		{Key: KeySalesAmount, Column: m.SalesAmount},
		{Key: KeyCostAmount, Column: m.CostAmount},
	}
}

// CanonicalRecord 标准化后的订单记录
type CanonicalRecord struct {
	OrderNo     string          `json:"order_no"`
	ProductName string          `json:"product_name"`
	SalesAmount decimal.Decimal `json:"sales_amount"`
	CostAmount  decimal.Decimal `json:"cost_amount"`
	Status      string          `json:"status"`
}
