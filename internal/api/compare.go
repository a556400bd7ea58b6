package api

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"orderrecon/internal/model"
	"orderrecon/internal/recon"
	"orderrecon/internal/store"
)

// mappingFromForm 读取 <prefix>_<key> 表单字段
func mappingFromForm(c *gin.Context, prefix string) model.ColumnMapping {
	field := func(key string) string {
		return c.PostForm(prefix + "_" + key)
	}
	return model.ColumnMapping{
		OrderNo:     field(model.KeyOrderNo),
		ProductName: field(model.KeyProductName),
		SalesAmount: field(model.KeySalesAmount),
		CostAmount:  field(model.KeyCostAmount),
		Status:      field(model.KeyStatus),
	}
}

// Compare 上传官方与客服订单并对账
// POST /api/compare
func (h *Handler) Compare(c *gin.Context) {
	officialFile, errOfficial := c.FormFile("official_file")
	serviceFile, errService := c.FormFile("service_file")
	if errOfficial != nil || errService != nil {
		fail(c, http.StatusBadRequest, "请同时上传官方和客服文件。")
		return
	}

	officialMapping := mappingFromForm(c, "official")
	serviceMapping := mappingFromForm(c, "service")
	defaultCost := recon.ToNumber(c.DefaultPostForm("default_cost", "0"), decimal.Zero)

	if err := recon.CheckOfficialMapping(officialMapping); err != nil {
		h.respondError(c, "compare", err)
		return
	}

	officialTable, serviceTable, err := readBoth(officialFile, serviceFile)
	if err != nil {
		h.respondError(c, "compare", err)
		return
	}

	out, err := recon.Reconcile(recon.Input{
		Official:    recon.SourceInput{Table: officialTable, Mapping: officialMapping},
		Service:     recon.SourceInput{Table: serviceTable, Mapping: serviceMapping},
		DefaultCost: defaultCost,
	})
	if err != nil {
		h.respondError(c, "compare", err)
		return
	}

	ctx := c.Request.Context()
	reportID, err := h.reports.Put(ctx, out.Rows, out.Summary)
	if err != nil {
		h.respondError(c, "compare", err)
		return
	}

	h.logger.Info("reconciliation finished",
		"report_id", reportID,
		"orders", out.Summary.OrderCount,
		"missing", out.Summary.MissingCount,
		"abnormal", out.Summary.AbnormalCount,
	)

	if h.runs != nil {
		_, err := h.runs.CreateRun(ctx, store.RunRecord{
			ReportID:      reportID,
			OfficialFile:  officialFile.Filename,
			ServiceFile:   serviceFile.Filename,
			OfficialKept:  out.Summary.OfficialStats.KeptRows,
			ServiceKept:   out.Summary.ServiceStats.KeptRows,
			OrderCount:    out.Summary.OrderCount,
			MatchedCount:  out.Summary.MatchedCount,
			MissingCount:  out.Summary.MissingCount,
			AbnormalCount: out.Summary.AbnormalCount,
			LossCount:     out.Summary.LossCount,
			TotalProfit:   out.Summary.TotalProfit,
			CreatedAt:     h.now(),
		})
		if err != nil {
			h.logger.Warn("failed to record run", "report_id", reportID, "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"report_id":  reportID,
		"summary":    out.Summary,
		"total_rows": len(out.Rows),
	})
}

// readBoth 并发解析两个上传文件；两者都失败时优先返回官方文件的错误
func readBoth(official, service *multipart.FileHeader) (model.RawTable, model.RawTable, error) {
	var (
		officialTable, serviceTable model.RawTable
		officialErr, serviceErr     error
	)

	var g errgroup.Group
	g.Go(func() error {
		officialTable, officialErr = readUpload(official)
		return officialErr
	})
	g.Go(func() error {
		serviceTable, serviceErr = readUpload(service)
		return serviceErr
	})
	_ = g.Wait()

	if officialErr != nil {
		return model.RawTable{}, model.RawTable{}, officialErr
	}
	if serviceErr != nil {
		return model.RawTable{}, model.RawTable{}, serviceErr
	}
	return officialTable, serviceTable, nil
}
