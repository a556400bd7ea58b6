package excel_test

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"orderrecon/internal/model"
	"orderrecon/internal/service/excel"
)

func exportRows() ([]model.ComparisonRow, model.Summary) {
	d := decimal.RequireFromString
	rows := []model.ComparisonRow{
		{Seq: 1, OrderNo: "00123", ProductName: "杯子", SalesAmount: d("100.5"), CostAmount: d("30"), Profit: d("70.5"), Status: "交易成功", Classification: model.Matched},
		{Seq: 2, OrderNo: "456", ProductName: "盘子", SalesAmount: d("20"), CostAmount: d("30"), Profit: d("-10"), Status: "已收货", Classification: model.MissingFromService},
		{Seq: 3, OrderNo: "789", ProductName: "碗", SalesAmount: d("50"), CostAmount: d("60"), Profit: d("-10"), Status: "", Classification: model.Matched},
	}
	summary := model.Summary{
		TotalSales:    d("120.5"),
		TotalCost:     d("60"),
		TotalProfit:   d("60.5"),
		OrderCount:    3,
		MissingCount:  1,
		AbnormalCount: 0,
		LossCount:     1,
	}
	return rows, summary
}

func cellValue(t *testing.T, f *excelize.File, cell string) string {
	t.Helper()
	v, err := f.GetCellValue(excel.ReportSheetName, cell)
	if err != nil {
		t.Fatalf("GetCellValue(%s) failed: %v", cell, err)
	}
	return v
}

func cellStyle(t *testing.T, f *excelize.File, cell string) *excelize.Style {
	t.Helper()
	id, err := f.GetCellStyle(excel.ReportSheetName, cell)
	if err != nil {
		t.Fatalf("GetCellStyle(%s) failed: %v", cell, err)
	}
	style, err := f.GetStyle(id)
	if err != nil {
		t.Fatalf("GetStyle(%d) failed: %v", id, err)
	}
	return style
}

func hasColor(colors []string, hex string) bool {
	for _, c := range colors {
		if strings.HasSuffix(strings.ToUpper(c), hex) {
			return true
		}
	}
	return false
}

func TestExportWritesRowsAndSummary(t *testing.T) {
	rows, summary := exportRows()
	f, err := excel.NewExporter().Export(rows, summary)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 1 || got[0] != excel.ReportSheetName {
		t.Fatalf("sheets=%v", got)
	}
	for i, h := range excel.ReportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if got := cellValue(t, f, cell); got != h {
			t.Fatalf("%s=%q, want %q", cell, got, h)
		}
	}

	checks := map[string]string{
		"A2":  "1",
		"B2":  "00123",
		"D2":  "100.5",
		"F3":  "-10",
		"H2":  "匹配",
		"H3":  "客服漏记",
		"A6":  "汇总统计",
		"A7":  "总销售额",
		"B7":  "120.5",
		"A10": "订单总数",
		"B10": "3",
		"A13": "亏损订单",
		"B13": "1",
	}
	for cell, want := range checks {
		if got := cellValue(t, f, cell); got != want {
			t.Errorf("%s=%q, want %q", cell, got, want)
		}
	}
	if got := cellValue(t, f, "A5"); got != "" {
		t.Errorf("row between data and summary should be blank, A5=%q", got)
	}
}

func TestExportStyles(t *testing.T) {
	rows, summary := exportRows()
	f, err := excel.NewExporter().Export(rows, summary)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	defer f.Close()

	header := cellStyle(t, f, "C1")
	if header.Font == nil || !header.Font.Bold {
		t.Fatalf("header should be bold")
	}
	if !hasColor(header.Fill.Color, "2F75B5") {
		t.Fatalf("header fill=%v", header.Fill.Color)
	}

	plain, _ := f.GetCellStyle(excel.ReportSheetName, "C2")
	if plain != 0 {
		t.Errorf("matched profitable row should not be styled, style=%d", plain)
	}

	// 亏损且客服漏记：红字 + 浅黄底
	both := cellStyle(t, f, "H3")
	if both.Font == nil || !both.Font.Bold || !strings.HasSuffix(strings.ToUpper(both.Font.Color), "FF0000") {
		t.Errorf("loss row font=%+v", both.Font)
	}
	if !hasColor(both.Fill.Color, "FFF2CC") {
		t.Errorf("discrepancy row fill=%v", both.Fill.Color)
	}

	// 亏损但匹配：仅红字
	loss := cellStyle(t, f, "A4")
	if loss.Font == nil || !strings.HasSuffix(strings.ToUpper(loss.Font.Color), "FF0000") {
		t.Errorf("loss row font=%+v", loss.Font)
	}
	if hasColor(loss.Fill.Color, "FFF2CC") {
		t.Errorf("matched loss row should not be highlighted")
	}

	title := cellStyle(t, f, "A6")
	if title.Font == nil || !title.Font.Bold {
		t.Errorf("summary title should be bold")
	}
}

func TestExportColumnWidths(t *testing.T) {
	rows, summary := exportRows()
	rows[0].ProductName = strings.Repeat("长", 40)
	f, err := excel.NewExporter().Export(rows, summary)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	defer f.Close()

	for col, want := range map[string]float64{"A": 12, "C": 40} {
		got, err := f.GetColWidth(excel.ReportSheetName, col)
		if err != nil {
			t.Fatalf("GetColWidth failed: %v", err)
		}
		if got != want {
			t.Errorf("width %s=%v, want %v", col, got, want)
		}
	}
}

func TestExportEmptyReport(t *testing.T) {
	f, err := excel.NewExporter().Export(nil, model.Summary{})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	defer f.Close()

	if got := cellValue(t, f, "B1"); got != "订单号" {
		t.Fatalf("B1=%q", got)
	}
	if got := cellValue(t, f, "A3"); got != "汇总统计" {
		t.Fatalf("A3=%q, want summary title", got)
	}
	if got := cellValue(t, f, "B4"); got != "0" {
		t.Fatalf("B4=%q, want 0", got)
	}
}

func TestExportFileName(t *testing.T) {
	now := time.Date(2025, 3, 9, 15, 0, 0, 0, time.Local)
	if got := excel.ExportFileName(now); got != "订单对账结果_20250309.xlsx" {
		t.Fatalf("ExportFileName=%q", got)
	}

	cd := excel.ContentDisposition(now)
	if !strings.HasPrefix(cd, `attachment; filename="order-reconciliation-20250309.xlsx"`) {
		t.Fatalf("ContentDisposition=%q", cd)
	}
	if !strings.Contains(cd, "filename*=UTF-8''%E8%AE%A2%E5%8D%95") {
		t.Fatalf("ContentDisposition should carry the UTF-8 name, got %q", cd)
	}
}
