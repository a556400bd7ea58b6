package excel

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/width"

	"orderrecon/internal/model"
)

// ReportSheetName 导出工作表名
const ReportSheetName = "对账结果"

const (
	minColWidth = 12
	maxColWidth = 40
)

// ReportHeaders 导出表头
var ReportHeaders = []string{"类序号", "订单号", "商品名称", "销售额", "成本", "利润", "状态", "比对结果"}

// Exporter 对账结果导出器
type Exporter struct{}

// NewExporter 创建导出器
func NewExporter() *Exporter {
	return &Exporter{}
}

type reportStyles struct {
	header      int
	loss        int // 亏损：红色粗体
	discrepancy int // 客服漏记/异常订单：浅黄底
	both        int
	bold        int
}

func newReportStyles(f *excelize.File) (reportStyles, error) {
	var st reportStyles
	var err error

	yellow := excelize.Fill{Type: "pattern", Color: []string{"#FFF2CC"}, Pattern: 1}
	redBold := &excelize.Font{Bold: true, Color: "#FF0000"}

	if st.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#2F75B5"}, Pattern: 1},
	}); err != nil {
		return st, err
	}
	if st.loss, err = f.NewStyle(&excelize.Style{Font: redBold}); err != nil {
		return st, err
	}
	if st.discrepancy, err = f.NewStyle(&excelize.Style{Fill: yellow}); err != nil {
		return st, err
	}
	if st.both, err = f.NewStyle(&excelize.Style{Font: redBold, Fill: yellow}); err != nil {
		return st, err
	}
	if st.bold, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return st, err
	}
	return st, nil
}

// Export 将对账结果与汇总写入新工作簿
// 结果为空时仍写出表头。
func (e *Exporter) Export(rows []model.ComparisonRow, summary model.Summary) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", ReportSheetName); err != nil {
		f.Close()
		return nil, err
	}

	if err := e.write(f, rows, summary); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func (e *Exporter) write(f *excelize.File, rows []model.ComparisonRow, summary model.Summary) error {
	sheet := ReportSheetName
	styles, err := newReportStyles(f)
	if err != nil {
		return fmt.Errorf("create styles: %w", err)
	}

	widths := make([]int, len(ReportHeaders))
	track := func(col int, text string) {
		if w := displayWidth(text); w > widths[col] {
			widths[col] = w
		}
	}

	header := make([]interface{}, len(ReportHeaders))
	for i, h := range ReportHeaders {
		header[i] = h
		track(i, h)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(ReportHeaders))
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", styles.header); err != nil {
		return err
	}

	for i, r := range rows {
		rowNum := i + 2
		values := []interface{}{
			r.Seq,
			r.OrderNo,
			r.ProductName,
			r.SalesAmount.InexactFloat64(),
			r.CostAmount.InexactFloat64(),
			r.Profit.InexactFloat64(),
			r.Status,
			r.Classification.Label(),
		}
		cell := "A" + strconv.Itoa(rowNum)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
		// 订单号按文本写入，保留前导零
		if err := f.SetCellStr(sheet, "B"+strconv.Itoa(rowNum), r.OrderNo); err != nil {
			return err
		}

		for col, text := range []string{
			strconv.Itoa(r.Seq), r.OrderNo, r.ProductName,
			amountText(r.SalesAmount), amountText(r.CostAmount), amountText(r.Profit),
			r.Status, r.Classification.Label(),
		} {
			track(col, text)
		}

		style := 0
		switch {
		case r.Profit.IsNegative() && r.Classification.IsDiscrepancy():
			style = styles.both
		case r.Profit.IsNegative():
			style = styles.loss
		case r.Classification.IsDiscrepancy():
			style = styles.discrepancy
		}
		if style != 0 {
			if err := f.SetCellStyle(sheet, cell, lastCol+strconv.Itoa(rowNum), style); err != nil {
				return err
			}
		}
	}

	// 汇总区：与数据之间空一行
	start := len(rows) + 3
	titleCell := "A" + strconv.Itoa(start)
	if err := f.SetCellStr(sheet, titleCell, "汇总统计"); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, titleCell, titleCell, styles.bold); err != nil {
		return err
	}
	track(0, "汇总统计")

	for i, item := range summaryItems(summary) {
		rowNum := start + 1 + i
		pair := []interface{}{item.label, item.value}
		if err := f.SetSheetRow(sheet, "A"+strconv.Itoa(rowNum), &pair); err != nil {
			return err
		}
		track(0, item.label)
		track(1, item.text)
	}

	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, float64(clampWidth(w+2))); err != nil {
			return err
		}
	}
	return nil
}

type summaryItem struct {
	label string
	value interface{}
	text  string
}

func summaryItems(s model.Summary) []summaryItem {
	money := func(label string, d decimal.Decimal) summaryItem {
		return summaryItem{label: label, value: d.InexactFloat64(), text: amountText(d)}
	}
	count := func(label string, n int) summaryItem {
		return summaryItem{label: label, value: n, text: strconv.Itoa(n)}
	}
	return []summaryItem{
		money("总销售额", s.TotalSales),
		money("总成本", s.TotalCost),
		money("总利润", s.TotalProfit),
		count("订单总数", s.OrderCount),
		count("客服漏记", s.MissingCount),
		count("异常订单", s.AbnormalCount),
		count("亏损订单", s.LossCount),
	}
}

func amountText(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// displayWidth 东亚宽字符按 2 个字符宽计算
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

func clampWidth(w int) int {
	if w < minColWidth {
		return minColWidth
	}
	if w > maxColWidth {
		return maxColWidth
	}
	return w
}

// ExportFileName 导出文件名，如 订单对账结果_20250101.xlsx
func ExportFileName(now time.Time) string {
	return fmt.Sprintf("订单对账结果_%s.xlsx", now.Format("20060102"))
}

// ContentDisposition 构造下载头：ASCII 回退名 + RFC 5987 UTF-8 文件名
func ContentDisposition(now time.Time) string {
	fallback := fmt.Sprintf("order-reconciliation-%s.xlsx", now.Format("20060102"))
	return fmt.Sprintf("attachment; filename=\"%s\"; filename*=UTF-8''%s", fallback, url.PathEscape(ExportFileName(now)))
}
