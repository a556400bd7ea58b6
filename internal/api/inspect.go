package api

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"orderrecon/internal/model"
	"orderrecon/internal/recon"
	"orderrecon/internal/service/excel"
)

const previewRows = 3

// Inspect 读取上传文件的列名与前几行
// POST /api/inspect
func (h *Handler) Inspect(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, "请上传文件。")
		return
	}

	table, err := readUpload(fh)
	if err != nil {
		h.respondError(c, "inspect", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"columns": table.Columns,
		"rows":    table.Len(),
		"preview": table.Head(previewRows),
	})
}

// readUpload 打开 multipart 文件并解析为表格
func readUpload(fh *multipart.FileHeader) (model.RawTable, error) {
	f, err := fh.Open()
	if err != nil {
		return model.RawTable{}, recon.NewValidationError("", "读取上传文件失败：%v", err)
	}
	defer f.Close()
	return excel.ReadTable(f, fh.Filename)
}

// respondError 输入错误返回 400，其余返回 500
func (h *Handler) respondError(c *gin.Context, op string, err error) {
	if recon.IsValidation(err) {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Error("request failed", "op", op, "error", err)
	fail(c, http.StatusInternalServerError, msgProcessFailed+"："+err.Error())
}
