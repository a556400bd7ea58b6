package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// 缓存后端
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// AppConfig 应用配置
type AppConfig struct {
	Server ServerConfig `toml:"server"`
	Report ReportConfig `toml:"report"`
	Cache  CacheConfig  `toml:"cache"`
	Data   DataConfig   `toml:"data"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port           int      `toml:"port"`
	DevMode        bool     `toml:"dev_mode"`
	AllowedOrigins []string `toml:"allowed_origins"`
	RateLimitRPS   float64  `toml:"rate_limit_rps"` // <= 0 关闭限流
	RateLimitBurst int      `toml:"rate_limit_burst"`
	MaxUploadMB    int64    `toml:"max_upload_mb"`
}

// ReportConfig 报告缓存配置
type ReportConfig struct {
	DefaultPageSize int    `toml:"default_page_size"`
	TTL             string `toml:"ttl"` // 如 "2h"；"0" 表示进程生命周期内有效
	MaxEntries      int    `toml:"max_entries"`
}

// CacheConfig 缓存后端配置
type CacheConfig struct {
	Backend       string `toml:"backend"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	KeyPrefix     string `toml:"key_prefix"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir string `toml:"data_dir"`
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	Path          string
	FileFound     bool
	PortSpecified bool
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:           8000,
			AllowedOrigins: []string{"*"},
			RateLimitRPS:   20,
			RateLimitBurst: 40,
			MaxUploadMB:    50,
		},
		Report: ReportConfig{
			DefaultPageSize: 50,
			TTL:             "2h",
			MaxEntries:      200,
		},
		Cache: CacheConfig{
			Backend:   CacheMemory,
			RedisAddr: "127.0.0.1:6379",
			KeyPrefix: "orderrecon:report:",
		},
		Data: DataConfig{
			DataDir: "data",
		},
	}
}

// ReportTTL 解析报告有效期
func (c *AppConfig) ReportTTL() (time.Duration, error) {
	raw := strings.TrimSpace(c.Report.TTL)
	if raw == "" || raw == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid report.ttl %q: %w", c.Report.TTL, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid report.ttl %q: must not be negative", c.Report.TTL)
	}
	return d, nil
}

// Validate 检查配置取值
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	switch c.Cache.Backend {
	case CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("invalid cache.backend %q (want %q or %q)", c.Cache.Backend, CacheMemory, CacheRedis)
	}
	if _, err := c.ReportTTL(); err != nil {
		return err
	}
	if c.Report.MaxEntries < 0 {
		return errors.New("report.max_entries must not be negative")
	}
	return nil
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

func exeDirOrCwd() string {
	dir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		return "."
	}
	return dir
}

// LoadConfig 从可执行文件同目录的 config.toml 加载配置
func LoadConfig() (*AppConfig, LoadConfigInfo, error) {
	return LoadConfigAt(filepath.Join(exeDirOrCwd(), "config.toml"))
}

// LoadConfigAt 从指定的 config.toml 加载配置
// 先加载同目录的 .env（不存在则忽略），再由 ORDERRECON_* 环境变量覆盖文件中的值。
func LoadConfigAt(path string) (*AppConfig, LoadConfigInfo, error) {
	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))
	return LoadFile(path, os.Getenv)
}

// LoadFile 从指定路径加载配置；文件不存在时使用默认配置
func LoadFile(path string, getenv func(string) string) (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{Path: path}
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		info.FileFound = true
		info.PortSpecified = isPortSpecifiedInToml(data)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// 配置文件不存在，使用默认配置
	default:
		return nil, info, err
	}

	if err := applyEnv(config, getenv); err != nil {
		return nil, info, err
	}
	return config, info, nil
}

// applyEnv 环境变量覆盖
func applyEnv(config *AppConfig, getenv func(string) string) error {
	if getenv == nil {
		return nil
	}
	if v := getenv("ORDERRECON_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid ORDERRECON_PORT %q: %w", v, err)
		}
		config.Server.Port = port
	}
	if v := getenv("ORDERRECON_CACHE_BACKEND"); v != "" {
		config.Cache.Backend = strings.ToLower(v)
	}
	if v := getenv("ORDERRECON_REDIS_ADDR"); v != "" {
		config.Cache.RedisAddr = v
	}
	if v := getenv("ORDERRECON_REDIS_PASSWORD"); v != "" {
		config.Cache.RedisPassword = v
	}
	if v := getenv("ORDERRECON_DATA_DIR"); v != "" {
		config.Data.DataDir = v
	}
	return nil
}

// ErrConfigExists 目标配置文件已存在
var ErrConfigExists = errors.New("config file already exists")

// SaveConfig 保存配置到 config.toml；文件已存在时返回 ErrConfigExists，不覆盖
func SaveConfig(path string, config *AppConfig) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%s: %w", path, ErrConfigExists)
	}
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// EnsureDataDir 确保数据目录存在，返回绝对或相对于可执行文件的路径
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := config.Data.DataDir
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(exeDirOrCwd(), dataDir)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}
	return dataDir, nil
}
