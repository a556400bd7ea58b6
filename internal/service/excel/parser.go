package excel

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"orderrecon/internal/model"
	"orderrecon/internal/recon"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadTable 将上传文件解析为 RawTable
//
// 取第一个工作表，首个非空行为表头；表头去除首尾空白，空白单元格统一为 ""。
// 支持 .xlsx/.xlsm/.xltx 与 .csv（UTF-8 或 GB18030）。所有失败均为 *recon.ValidationError。
func ReadTable(r io.Reader, filename string) (model.RawTable, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".et" {
		return model.RawTable{}, recon.NewValidationError("", "暂不支持 .et 直接解析，请在 WPS 中另存为 .xlsx 后再上传。")
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return model.RawTable{}, recon.NewValidationError("", "读取上传文件失败：%v", err)
	}
	if len(raw) == 0 {
		return model.RawTable{}, recon.NewValidationError("", "上传文件为空。")
	}

	var rows [][]string
	if ext == ".csv" {
		rows, err = readCSVRows(raw)
		if err != nil {
			return model.RawTable{}, recon.NewValidationError("", "CSV 读取失败：%v", err)
		}
	} else {
		rows, err = readWorkbookRows(raw)
		if err != nil {
			return model.RawTable{}, recon.NewValidationError("", "Excel 读取失败：%v", err)
		}
	}

	table := buildTable(rows)
	if len(table.Columns) == 0 || table.Len() == 0 {
		return model.RawTable{}, recon.NewValidationError("", "表格没有可用数据。")
	}
	return table, nil
}

// readWorkbookRows 读取第一个工作表的原始单元格值（不套用数字格式）
func readWorkbookRows(raw []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to open excel: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
}

// readCSVRows 读取 CSV；非 UTF-8 内容按 GB18030 解码（Excel 中文版默认导出编码）
func readCSVRows(raw []byte) ([][]string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)

	var src io.Reader = bytes.NewReader(raw)
	if !utf8.Valid(raw) {
		src = transform.NewReader(src, simplifiedchinese.GB18030.NewDecoder())
	}

	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader.ReadAll()
}

// buildTable 首个非空行为表头，其后为数据行；整行为空的行被跳过
func buildTable(rows [][]string) model.RawTable {
	for len(rows) > 0 && isBlankRow(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return model.RawTable{Columns: []string{}, Rows: []map[string]string{}}
	}

	columns := headerNames(rows[0])
	table := model.RawTable{
		Columns: columns,
		Rows:    make([]map[string]string, 0, len(rows)-1),
	}

	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		rec := make(map[string]string, len(columns))
		for i, col := range columns {
			if i < len(row) {
				rec[col] = row[i]
			} else {
				rec[col] = ""
			}
		}
		table.Rows = append(table.Rows, rec)
	}
	return table
}

// headerNames 表头去空白；空表头命名为 "Unnamed: N"，重复表头追加 ".1"、".2"
func headerNames(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			name = name + "." + strconv.Itoa(n+1)
		} else {
			seen[name] = 0
		}
		names[i] = name
	}
	return names
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
