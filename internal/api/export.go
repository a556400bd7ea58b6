package api

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"orderrecon/internal/service/excel"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportReport 下载对账结果 Excel
// GET /api/export/:id
func (h *Handler) ExportReport(c *gin.Context) {
	report, ok := h.lookupReport(c)
	if !ok {
		return
	}

	f, err := h.exporter.Export(report.Rows, report.Summary)
	if err != nil {
		h.logger.Error("export failed", "report_id", report.ID, "error", err)
		fail(c, http.StatusInternalServerError, msgProcessFailed)
		return
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		h.logger.Error("export failed", "report_id", report.ID, "error", err)
		fail(c, http.StatusInternalServerError, msgProcessFailed)
		return
	}

	c.Header("Content-Disposition", excel.ContentDisposition(h.now()))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
