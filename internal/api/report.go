package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"orderrecon/internal/model"
	reports "orderrecon/internal/service/store"
)

// reportRecord 结果表中的一行，键名与导出表头一致
type reportRecord struct {
	Seq         int             `json:"类序号"`
	OrderNo     string          `json:"订单号"`
	ProductName string          `json:"商品名称"`
	SalesAmount decimal.Decimal `json:"销售额"`
	CostAmount  decimal.Decimal `json:"成本"`
	Profit      decimal.Decimal `json:"利润"`
	Status      string          `json:"状态"`
	Result      string          `json:"比对结果"`
}

func toRecords(rows []model.ComparisonRow) []reportRecord {
	out := make([]reportRecord, len(rows))
	for i, r := range rows {
		out[i] = reportRecord{
			Seq:         r.Seq,
			OrderNo:     r.OrderNo,
			ProductName: r.ProductName,
			SalesAmount: r.SalesAmount,
			CostAmount:  r.CostAmount,
			Profit:      r.Profit,
			Status:      r.Status,
			Result:      r.Classification.Label(),
		}
	}
	return out
}

// lookupReport 读取报告；不存在时已写出 404
func (h *Handler) lookupReport(c *gin.Context) (*model.Report, bool) {
	report, err := h.reports.Get(c.Request.Context(), c.Param("id"))
	switch {
	case err == nil:
		return report, true
	case errors.Is(err, reports.ErrNotFound):
		fail(c, http.StatusNotFound, msgReportNotFound)
	default:
		h.logger.Error("failed to load report", "report_id", c.Param("id"), "error", err)
		fail(c, http.StatusInternalServerError, msgProcessFailed+"："+err.Error())
	}
	return nil, false
}

// GetReport 分页读取对账结果
// GET /api/report/:id?page=1&page_size=50
func (h *Handler) GetReport(c *gin.Context) {
	report, ok := h.lookupReport(c)
	if !ok {
		return
	}

	p := Paginate(
		len(report.Rows),
		queryInt(c.Query("page"), 1),
		queryInt(c.Query("page_size"), h.defaultPageSize),
	)

	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"records":     toRecords(report.Rows[p.Start:p.End]),
		"page":        p.Page,
		"page_size":   p.PageSize,
		"total_rows":  p.TotalRows,
		"total_pages": p.TotalPages,
		"summary":     report.Summary,
	})
}
