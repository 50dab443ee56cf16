package server

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config 进程级配置：启动时从环境变量读取一次（可选 .env 文件）
type Config struct {
	LogFile            string
	LogDebug           bool
	MaxHealth          float64 // 新实体初始化时的生命值上限
	TicksPerSecond     int
	MaxRequestsPerTick int // 单实体单 Tick 最多执行的请求数，0 表示不限
}

// DefaultConfig 缺省配置
func DefaultConfig() Config {
	return Config{
		LogFile:            "app.log",
		LogDebug:           false,
		MaxHealth:          100,
		TicksPerSecond:     DefaultTicksPerSecond,
		MaxRequestsPerTick: 32,
	}
}

// LoadConfig 读取 ARENA_* 环境变量，.env 不存在时静默跳过
func LoadConfig() Config {
	_ = godotenv.Load()
	cfg := DefaultConfig()
	if v := os.Getenv("ARENA_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("ARENA_LOG_DEBUG"); v == "1" || v == "true" {
		cfg.LogDebug = true
	}
	if v := os.Getenv("ARENA_MAX_HEALTH"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.MaxHealth = f
		}
	}
	if v := os.Getenv("ARENA_TICKS_PER_SECOND"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TicksPerSecond = n
		}
	}
	if v := os.Getenv("ARENA_MAX_REQUESTS_PER_TICK"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxRequestsPerTick = n
		}
	}
	return cfg
}
