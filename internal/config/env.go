package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/luan78zao/model_downloader/internal/progress"
)

// LoadDotEnv 依次加载 .env、.env.<ENV> 和 .env.local，后者优先
func LoadDotEnv(dir string) error {
	base := filepath.Join(dir, ".env")
	if _, err := os.Stat(base); err == nil {
		if err := godotenv.Load(base); err != nil {
			return errors.Wrapf(err, "load %s", base)
		}
	}

	if env := os.Getenv("ENV"); env != "" {
		envFile := filepath.Join(dir, fmt.Sprintf(".env.%s", env))
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Overload(envFile); err != nil {
				return errors.Wrapf(err, "load %s", envFile)
			}
		}
	}

	local := filepath.Join(dir, ".env.local")
	if _, err := os.Stat(local); err == nil {
		if err := godotenv.Overload(local); err != nil {
			return errors.Wrapf(err, "load %s", local)
		}
	}
	return nil
}

// LoadEnv 从 MODEL_DOWNLOADER_ 前缀的环境变量覆盖配置。
// 目录类别使用 MODEL_DOWNLOADER_FOLDER_<NAME>=path1:path2 形式。
func (c *Config) LoadEnv() error {
	if v := os.Getenv(EnvPrefix + "ADDR"); v != "" {
		c.ServerAddr = v
	}
	if v := os.Getenv(EnvPrefix + "MODELS_DIR"); v != "" {
		c.setModelsDir(v)
	}
	if v := os.Getenv(EnvPrefix + "CHUNK_SIZE"); v != "" {
		size, err := progress.ParseBytes(v)
		if err != nil {
			return errors.Wrap(err, "parse "+EnvPrefix+"CHUNK_SIZE")
		}
		c.ChunkSize = size
	}

	durations := map[string]*time.Duration{
		"BROADCAST_INTERVAL": &c.BroadcastInterval,
		"RETENTION":          &c.Retention,
		"CONNECT_TIMEOUT":    &c.ConnectTimeout,
		"READ_TIMEOUT":       &c.ReadTimeout,
		"SHUTDOWN_TIMEOUT":   &c.ShutdownTimeout,
	}
	for key, dst := range durations {
		v := os.Getenv(EnvPrefix + key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrap(err, "parse "+EnvPrefix+key)
		}
		*dst = d
	}

	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv(EnvPrefix + "METRICS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, "parse "+EnvPrefix+"METRICS_ENABLED")
		}
		c.MetricsEnabled = b
	}

	folderPrefix := EnvPrefix + "FOLDER_"
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, folderPrefix) || value == "" {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(key, folderPrefix))
		c.Folders[name] = filepath.SplitList(value)
	}
	return nil
}
