package config

import (
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/luan78zao/model_downloader/internal/progress"
)

// EnvPrefix 是环境变量前缀
const EnvPrefix = "MODEL_DOWNLOADER_"

// DefaultCategories 是默认的模型目录类别
var DefaultCategories = []string{
	"checkpoints",
	"clip",
	"clip_vision",
	"controlnet",
	"diffusion_models",
	"embeddings",
	"loras",
	"text_encoders",
	"unet",
	"upscale_models",
	"vae",
}

// Config 应用配置
type Config struct {
	ServerAddr        string              // 服务器地址
	ModelsDir         string              // 模型根目录
	Folders           map[string][]string // 目录类别 -> 路径列表（第一个为主路径）
	ChunkSize         int64               // 读取分块大小
	BroadcastInterval time.Duration       // 进度广播最小间隔
	Retention         time.Duration       // 终止状态记录的保留时间
	ConnectTimeout    time.Duration       // 建立连接超时
	ReadTimeout       time.Duration       // 等待响应头超时
	ShutdownTimeout   time.Duration       // 优雅退出超时
	LogLevel          string              // 日志级别
	LogFormat         string              // 日志格式 json/text
	MetricsEnabled    bool                // 是否暴露 /metrics
}

// NewDefaultConfig 创建默认配置
func NewDefaultConfig() *Config {
	cfg := &Config{
		ServerAddr:        ":8080",
		ModelsDir:         "./models",
		ChunkSize:         progress.MiB,
		BroadcastInterval: time.Second,
		Retention:         60 * time.Second,
		ConnectTimeout:    30 * time.Second,
		ReadTimeout:       30 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		LogLevel:          "info",
		LogFormat:         "json",
		MetricsEnabled:    true,
	}
	cfg.Folders = DefaultFolders(cfg.ModelsDir)
	return cfg
}

// DefaultFolders 在 modelsDir 下为每个默认类别生成一个目录
func DefaultFolders(modelsDir string) map[string][]string {
	folders := make(map[string][]string, len(DefaultCategories))
	for _, c := range DefaultCategories {
		folders[c] = []string{filepath.Join(modelsDir, c)}
	}
	return folders
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.ServerAddr == "" {
		return errors.New("config: server address is required")
	}
	if c.ChunkSize <= 0 {
		return errors.New("config: chunk_size must be positive")
	}
	if c.BroadcastInterval <= 0 {
		return errors.New("config: broadcast_interval must be positive")
	}
	if c.Retention <= 0 {
		return errors.New("config: retention must be positive")
	}
	if c.ConnectTimeout <= 0 || c.ReadTimeout <= 0 || c.ShutdownTimeout <= 0 {
		return errors.New("config: connect_timeout, read_timeout and shutdown_timeout must be positive")
	}
	if len(c.Folders) == 0 {
		return errors.New("config: at least one folder category is required")
	}
	for name, paths := range c.Folders {
		if len(paths) == 0 {
			return errors.Errorf("config: folder %q has no paths", name)
		}
	}
	return nil
}
