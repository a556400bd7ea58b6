// Package api 对账服务的 HTTP 接口
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"orderrecon/internal/service/excel"
	reports "orderrecon/internal/service/store"
	"orderrecon/internal/store"
)

const (
	msgReportNotFound = "报告不存在或已过期，请重新处理。"
	msgProcessFailed  = "处理失败"
)

// RunLog 对账运行记录
type RunLog interface {
	CreateRun(ctx context.Context, r store.RunRecord) (int64, error)
	ListRuns(ctx context.Context, limit int) ([]store.RunRecord, error)
}

// Options 处理器依赖
type Options struct {
	Reports         reports.ReportStore
	Runs            RunLog // 可为 nil，此时不记录运行历史
	DefaultPageSize int
	Logger          *slog.Logger
}

// Handler API 处理器
type Handler struct {
	reports         reports.ReportStore
	runs            RunLog
	exporter        *excel.Exporter
	defaultPageSize int
	logger          *slog.Logger
	now             func() time.Time
}

// NewHandler 创建 API 处理器
func NewHandler(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pageSize := opts.DefaultPageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Handler{
		reports:         opts.Reports,
		runs:            opts.Runs,
		exporter:        excel.NewExporter(),
		defaultPageSize: pageSize,
		logger:          logger,
		now:             time.Now,
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/health", h.Health)

	// 上传预览
	router.POST("/inspect", h.Inspect)
	// 对账
	router.POST("/compare", h.Compare)

	// 结果查询与导出
	router.GET("/report/:id", h.GetReport)
	router.GET("/export/:id", h.ExportReport)

	// 运行历史
	router.GET("/runs", h.ListRuns)
}

// Health 健康检查
// GET /api/health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"ok": false, "message": message})
}
