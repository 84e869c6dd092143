package config

import (
	"flag"
	"os"

	"github.com/pkg/errors"
)

// Load 按默认值、.env、YAML 文件、环境变量、命令行参数的顺序构建配置
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("model_downloader", flag.ContinueOnError)

	configFile := fs.String("config", os.Getenv(EnvPrefix+"CONFIG"), "YAML 配置文件")
	addr := fs.String("addr", "", "服务器地址")
	modelsDir := fs.String("models", "", "模型根目录")
	logLevel := fs.String("log-level", "", "日志级别")

	if err := fs.Parse(args); err != nil {
		return nil, errors.Wrap(err, "parse flags")
	}

	if err := LoadDotEnv("."); err != nil {
		return nil, err
	}

	cfg := NewDefaultConfig()

	// -config 可能来自 .env
	path := *configFile
	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.LoadEnv(); err != nil {
		return nil, err
	}

	if *addr != "" {
		cfg.ServerAddr = *addr
	}
	if *modelsDir != "" {
		cfg.setModelsDir(*modelsDir)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
