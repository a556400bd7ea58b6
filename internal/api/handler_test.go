package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"orderrecon/internal/model"
	reports "orderrecon/internal/service/store"
	"orderrecon/internal/store"
)

type upload struct {
	field    string
	filename string
	data     []byte
}

func xlsxBytes(t *testing.T, rows ...[]interface{}) []byte {
	t.Helper()
	wb := excelize.NewFile()
	defer wb.Close()
	for i := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := wb.SetSheetRow("Sheet1", cell, &rows[i]); err != nil {
			t.Fatalf("SetSheetRow failed: %v", err)
		}
	}
	buf, err := wb.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer failed: %v", err)
	}
	return buf.Bytes()
}

func multipartRequest(t *testing.T, path string, files []upload, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.filename)
		if err != nil {
			t.Fatalf("CreateFormFile failed: %v", err)
		}
		part.Write(f.data)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("multipart close failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func newTestRouter(t *testing.T, opts Options) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if opts.Reports == nil {
		opts.Reports = reports.NewMemoryStore(reports.MemoryOptions{TTL: time.Hour})
	}
	h := NewHandler(opts)
	h.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local) }
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))
	return r
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type apiResponse struct {
	OK         bool              `json:"ok"`
	Message    string            `json:"message"`
	ReportID   string            `json:"report_id"`
	TotalRows  int               `json:"total_rows"`
	TotalPages int               `json:"total_pages"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	Summary    model.Summary     `json:"summary"`
	Records    []map[string]any  `json:"records"`
	Columns    []string          `json:"columns"`
	Rows       int               `json:"rows"`
	Preview    []map[string]any  `json:"preview"`
	Runs       []store.RunRecord `json:"runs"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json %q: %v", w.Body.String(), err)
	}
	return resp
}

func officialUpload(t *testing.T) upload {
	return upload{"official_file", "official.xlsx", xlsxBytes(t,
		[]interface{}{"订单号", "商品", "金额", "交易状态"},
		[]interface{}{"1001", "杯子", 100, "交易成功"},
		[]interface{}{"1002", "盘子", 50, "已收货"},
		[]interface{}{"1003", "碗", 30, "交易关闭"},
	)}
}

func serviceUpload(t *testing.T) upload {
	return upload{"service_file", "service.xlsx", xlsxBytes(t,
		[]interface{}{"订单编号", "商品名称", "销售额", "成本"},
		[]interface{}{"1001", "杯子", 0, 40},
		[]interface{}{"1004", "勺子", 20, 5},
	)}
}

func compareFields() map[string]string {
	return map[string]string{
		"official_order_no":     "订单号",
		"official_product_name": "商品",
		"official_sales_amount": "金额",
		"official_status":       "交易状态",
		"service_order_no":      "订单编号",
		"service_product_name":  "商品名称",
		"service_sales_amount":  "销售额",
		"service_cost_amount":   "成本",
		"default_cost":          "10",
	}
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, Options{})
	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK || !decode(t, w).OK {
		t.Fatalf("health: %d %s", w.Code, w.Body.String())
	}
}

func TestInspect(t *testing.T) {
	r := newTestRouter(t, Options{})

	w := serve(r, multipartRequest(t, "/api/inspect", []upload{{"file", "official.xlsx", officialUpload(t).data}}, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if strings.Join(resp.Columns, ",") != "订单号,商品,金额,交易状态" {
		t.Fatalf("columns=%v", resp.Columns)
	}
	if resp.Rows != 3 || len(resp.Preview) != 3 {
		t.Fatalf("rows=%d preview=%d", resp.Rows, len(resp.Preview))
	}
	if resp.Preview[0]["订单号"] != "1001" {
		t.Fatalf("preview=%v", resp.Preview[0])
	}
}

func TestInspectErrors(t *testing.T) {
	r := newTestRouter(t, Options{})

	w := serve(r, multipartRequest(t, "/api/inspect", nil, map[string]string{"x": "y"}))
	if w.Code != http.StatusBadRequest || decode(t, w).Message != "请上传文件。" {
		t.Fatalf("missing file: %d %s", w.Code, w.Body.String())
	}

	w = serve(r, multipartRequest(t, "/api/inspect", []upload{{"file", "orders.et", []byte("wps")}}, nil))
	if w.Code != http.StatusBadRequest || !strings.Contains(decode(t, w).Message, ".et") {
		t.Fatalf("et file: %d %s", w.Code, w.Body.String())
	}
}

func TestCompareReportExportFlow(t *testing.T) {
	runLog, err := store.New(filepath.Join(t.TempDir(), "orderrecon.db"))
	if err != nil {
		t.Fatalf("store.New failed: %v", err)
	}
	defer runLog.Close()
	r := newTestRouter(t, Options{Runs: runLog})

	w := serve(r, multipartRequest(t, "/api/compare", []upload{officialUpload(t), serviceUpload(t)}, compareFields()))
	if w.Code != http.StatusOK {
		t.Fatalf("compare status=%d body=%s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if !resp.OK || len(resp.ReportID) != 32 {
		t.Fatalf("compare resp=%+v", resp)
	}
	if resp.TotalRows != 3 {
		t.Fatalf("total_rows=%d, want 3", resp.TotalRows)
	}
	s := resp.Summary
	if !s.TotalSales.Equal(decimal.NewFromInt(100)) || !s.TotalCost.Equal(decimal.NewFromInt(40)) || !s.TotalProfit.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("summary totals=%s/%s/%s", s.TotalSales, s.TotalCost, s.TotalProfit)
	}
	if s.OrderCount != 3 || s.MatchedCount != 1 || s.MissingCount != 1 || s.AbnormalCount != 1 {
		t.Fatalf("summary counts=%+v", s)
	}
	if s.OfficialStats.StatusFilteredRows != 1 || s.OfficialStats.KeptRows != 2 {
		t.Fatalf("official stats=%+v", s.OfficialStats)
	}

	// 分页读取
	w = serve(r, httptest.NewRequest(http.MethodGet, "/api/report/"+resp.ReportID+"?page=9&page_size=2", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("report status=%d body=%s", w.Code, w.Body.String())
	}
	page := decode(t, w)
	if page.PageSize != 10 || page.Page != 1 || page.TotalPages != 1 || page.TotalRows != 3 {
		t.Fatalf("page=%d size=%d pages=%d rows=%d", page.Page, page.PageSize, page.TotalPages, page.TotalRows)
	}
	if len(page.Records) != 3 {
		t.Fatalf("records=%d", len(page.Records))
	}
	want := []struct{ orderNo, result string }{
		{"1001", "匹配"},
		{"1002", "客服漏记"},
		{"1004", "异常订单"},
	}
	for i, rec := range page.Records {
		if rec["订单号"] != want[i].orderNo || rec["比对结果"] != want[i].result {
			t.Errorf("record[%d]=%v, want %v", i, rec, want[i])
		}
	}

	// 导出
	w = serve(r, httptest.NewRequest(http.MethodGet, "/api/export/"+resp.ReportID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("export status=%d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Fatalf("content-type=%s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "20250601") || !strings.Contains(cd, "filename*=UTF-8''") {
		t.Fatalf("content-disposition=%s", cd)
	}
	wb, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("exported file is not a workbook: %v", err)
	}
	defer wb.Close()
	if v, _ := wb.GetCellValue("对账结果", "B4"); v != "1004" {
		t.Fatalf("B4=%q, want 1004", v)
	}

	// 运行记录
	w = serve(r, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	runs := decode(t, w).Runs
	if len(runs) != 1 || runs[0].ReportID != resp.ReportID || runs[0].OfficialFile != "official.xlsx" {
		t.Fatalf("runs=%+v", runs)
	}
	if runs[0].MissingCount != 1 || !runs[0].TotalProfit.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("run=%+v", runs[0])
	}
}

func TestCompareValidation(t *testing.T) {
	r := newTestRouter(t, Options{})

	cases := []struct {
		name   string
		files  []upload
		mutate func(map[string]string)
		want   string
	}{
		{
			name:  "missing service file",
			files: []upload{officialUpload(t)},
			want:  "请同时上传官方和客服文件。",
		},
		{
			name:   "official status not mapped",
			files:  []upload{officialUpload(t), serviceUpload(t)},
			mutate: func(f map[string]string) { delete(f, "official_status") },
			want:   "官方订单必须映射“交易状态”字段。",
		},
		{
			name:   "unknown column",
			files:  []upload{officialUpload(t), serviceUpload(t)},
			mutate: func(f map[string]string) { f["service_cost_amount"] = "进价" },
			want:   "客服订单 映射字段不存在：cost_amount -> 进价",
		},
		{
			name:   "required key missing",
			files:  []upload{officialUpload(t), serviceUpload(t)},
			mutate: func(f map[string]string) { delete(f, "official_product_name") },
			want:   "官方订单 映射缺失字段：product_name",
		},
		{
			name:  "unreadable official file",
			files: []upload{{"official_file", "official.xlsx", []byte("nope")}, serviceUpload(t)},
			want:  "Excel 读取失败",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fields := compareFields()
			if tc.mutate != nil {
				tc.mutate(fields)
			}
			w := serve(r, multipartRequest(t, "/api/compare", tc.files, fields))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
			}
			resp := decode(t, w)
			if resp.OK || !strings.Contains(resp.Message, tc.want) {
				t.Fatalf("message=%q, want %q", resp.Message, tc.want)
			}
		})
	}
}

func TestReportNotFound(t *testing.T) {
	r := newTestRouter(t, Options{})
	for _, path := range []string{"/api/report/deadbeef", "/api/export/deadbeef"} {
		w := serve(r, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusNotFound {
			t.Fatalf("%s status=%d", path, w.Code)
		}
		if msg := decode(t, w).Message; msg != msgReportNotFound {
			t.Fatalf("%s message=%q", path, msg)
		}
	}
}

func TestReportEmptyResult(t *testing.T) {
	mem := reports.NewMemoryStore(reports.MemoryOptions{})
	id, err := mem.Put(context.Background(), nil, model.Summary{})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	r := newTestRouter(t, Options{Reports: mem})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/report/"+id, nil))
	resp := decode(t, w)
	if w.Code != http.StatusOK || resp.TotalPages != 1 || resp.Page != 1 || len(resp.Records) != 0 {
		t.Fatalf("empty report: %d %s", w.Code, w.Body.String())
	}
	if resp.PageSize != 50 {
		t.Fatalf("default page size=%d, want 50", resp.PageSize)
	}
}

type failingReports struct{}

func (failingReports) Put(context.Context, []model.ComparisonRow, model.Summary) (string, error) {
	return "", errors.New("cache unavailable")
}

func (failingReports) Get(context.Context, string) (*model.Report, error) {
	return nil, errors.New("cache unavailable")
}

type failingRuns struct{ calls int }

func (f *failingRuns) CreateRun(context.Context, store.RunRecord) (int64, error) {
	f.calls++
	return 0, errors.New("disk full")
}

func (f *failingRuns) ListRuns(context.Context, int) ([]store.RunRecord, error) {
	return nil, errors.New("disk full")
}

func TestCompareCacheFailure(t *testing.T) {
	r := newTestRouter(t, Options{Reports: failingReports{}})

	w := serve(r, multipartRequest(t, "/api/compare", []upload{officialUpload(t), serviceUpload(t)}, compareFields()))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if msg := decode(t, w).Message; !strings.HasPrefix(msg, "处理失败：") {
		t.Fatalf("message=%q", msg)
	}

	w = serve(r, httptest.NewRequest(http.MethodGet, "/api/report/abc", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("report status=%d", w.Code)
	}
}

func TestRunLogFailureIsNotFatal(t *testing.T) {
	runs := &failingRuns{}
	r := newTestRouter(t, Options{Runs: runs})

	w := serve(r, multipartRequest(t, "/api/compare", []upload{officialUpload(t), serviceUpload(t)}, compareFields()))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if runs.calls != 1 {
		t.Fatalf("CreateRun calls=%d, want 1", runs.calls)
	}

	w = serve(r, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("runs status=%d", w.Code)
	}
}

func TestRunsWithoutLog(t *testing.T) {
	r := newTestRouter(t, Options{})
	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	resp := decode(t, w)
	if w.Code != http.StatusOK || !resp.OK || len(resp.Runs) != 0 {
		t.Fatalf("runs: %d %s", w.Code, w.Body.String())
	}
}
