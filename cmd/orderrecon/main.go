package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/shopspring/decimal"

	"orderrecon/internal/api"
	"orderrecon/internal/config"
	"orderrecon/internal/server"
	reports "orderrecon/internal/service/store"
	"orderrecon/internal/store"
	"orderrecon/internal/util"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run 启动服务并返回进程退出码；所有资源在返回前释放
func run(args []string) int {
	fs := flag.NewFlagSet("orderrecon", flag.ContinueOnError)
	port := fs.Int("port", 0, "服务端口 (config.toml 优先；仅当未显式配置 port 时生效)")
	devMode := fs.Bool("dev", false, "开发模式")
	dataDir := fs.String("dataDir", "", "数据目录 (覆盖配置文件)")
	configPath := fs.String("config", "", "配置文件路径 (默认为可执行文件同目录的 config.toml)")
	writeConfig := fs.Bool("writeConfig", false, "将当前生效的配置写入配置文件后退出 (文件已存在时不覆盖)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	fmt.Println("==========================================")
	fmt.Println("  OrderRecon - 订单对账工具")
	fmt.Println("==========================================")

	// 加载配置
	var (
		cfg  *config.AppConfig
		info config.LoadConfigInfo
		err  error
	)
	if *configPath != "" {
		cfg, info, err = config.LoadConfigAt(*configPath)
	} else {
		cfg, info, err = config.LoadConfig()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败，使用默认配置: %v\n", err)
		path := info.Path
		cfg = config.DefaultConfig()
		info = config.LoadConfigInfo{Path: path}
	}

	// 命令行参数覆盖配置
	if *port > 0 && !info.PortSpecified {
		cfg.Server.Port = *port
	}
	if *devMode {
		cfg.Server.DevMode = true
	}
	if *dataDir != "" {
		cfg.Data.DataDir = *dataDir
	}

	logger := newLogger(cfg.Server.DevMode)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("配置无效", "error", err)
		return 1
	}

	if *writeConfig {
		if err := config.SaveConfig(info.Path, cfg); err != nil {
			logger.Error("写入配置文件失败", "path", info.Path, "error", err)
			return 1
		}
		logger.Info("配置文件已生成", "path", info.Path)
		return 0
	}

	// 金额以 JSON 数字输出
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reportStore, closeReports, err := newReportStore(ctx, cfg)
	if err != nil {
		logger.Error("初始化报告缓存失败", "backend", cfg.Cache.Backend, "error", err)
		return 1
	}
	defer closeReports()

	opts := api.Options{
		Reports:         reportStore,
		DefaultPageSize: cfg.Report.DefaultPageSize,
		Logger:          logger,
	}

	// 运行记录：失败时降级为不记录
	if dir, err := config.EnsureDataDir(cfg); err != nil {
		logger.Warn("创建数据目录失败，运行记录已关闭", "error", err)
	} else if runLog, err := store.New(filepath.Join(dir, "orderrecon.db")); err != nil {
		logger.Warn("打开运行记录数据库失败，运行记录已关闭", "error", err)
	} else {
		defer runLog.Close()
		opts.Runs = runLog
		logger.Info("数据目录", "path", dir)
	}

	srv := server.NewServer(cfg, api.NewHandler(opts), logger)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	url := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)

	if !cfg.Server.DevMode {
		fmt.Printf("正在打开浏览器: %s\n", url)
		if err := util.OpenBrowserWithFallback(url); err != nil {
			fmt.Printf("无法自动打开浏览器，请手动访问: %s\n", url)
		}
	} else {
		fmt.Printf("开发模式: 请访问 %s\n", url)
	}
	fmt.Println("\n按 Ctrl+C 停止服务...")

	if err := srv.Run(ctx, addr); err != nil {
		logger.Error("服务异常退出", "error", err)
		return 1
	}
	logger.Info("服务已停止")
	return 0
}

func newLogger(dev bool) *slog.Logger {
	if dev {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// newReportStore 按配置选择报告缓存后端
func newReportStore(ctx context.Context, cfg *config.AppConfig) (reports.ReportStore, func(), error) {
	ttl, err := cfg.ReportTTL()
	if err != nil {
		return nil, nil, err
	}

	if cfg.Cache.Backend == config.CacheRedis {
		rs := reports.NewRedisStore(reports.RedisOptions{
			Addr:      cfg.Cache.RedisAddr,
			Password:  cfg.Cache.RedisPassword,
			DB:        cfg.Cache.RedisDB,
			KeyPrefix: cfg.Cache.KeyPrefix,
			TTL:       ttl,
		})
		if err := rs.Ping(ctx); err != nil {
			rs.Close()
			return nil, nil, err
		}
		return rs, func() { rs.Close() }, nil
	}

	ms := reports.NewMemoryStore(reports.MemoryOptions{
		TTL:        ttl,
		MaxEntries: cfg.Report.MaxEntries,
	})
	return ms, func() {}, nil
}
