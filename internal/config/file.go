package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/luan78zao/model_downloader/internal/progress"
)

// fileConfig 用于 YAML 解析，大小和时长以字符串表示
type fileConfig struct {
	ServerAddr        string              `yaml:"server_addr"`
	ModelsDir         string              `yaml:"models_dir"`
	Folders           map[string][]string `yaml:"folders"`
	ChunkSize         string              `yaml:"chunk_size"`
	BroadcastInterval string              `yaml:"broadcast_interval"`
	Retention         string              `yaml:"retention"`
	ConnectTimeout    string              `yaml:"connect_timeout"`
	ReadTimeout       string              `yaml:"read_timeout"`
	ShutdownTimeout   string              `yaml:"shutdown_timeout"`
	LogLevel          string              `yaml:"log_level"`
	LogFormat         string              `yaml:"log_format"`
	MetricsEnabled    *bool               `yaml:"metrics_enabled"`
}

// LoadFile 将 YAML 文件中的非空字段覆盖到 c
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config file")
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return errors.Wrap(err, "parse config file")
	}

	if fc.ServerAddr != "" {
		c.ServerAddr = fc.ServerAddr
	}
	if fc.ModelsDir != "" {
		c.setModelsDir(fc.ModelsDir)
	}
	for name, paths := range fc.Folders {
		c.Folders[name] = paths
	}
	if fc.ChunkSize != "" {
		size, err := progress.ParseBytes(fc.ChunkSize)
		if err != nil {
			return errors.Wrap(err, "parse chunk_size")
		}
		c.ChunkSize = size
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"broadcast_interval", fc.BroadcastInterval, &c.BroadcastInterval},
		{"retention", fc.Retention, &c.Retention},
		{"connect_timeout", fc.ConnectTimeout, &c.ConnectTimeout},
		{"read_timeout", fc.ReadTimeout, &c.ReadTimeout},
		{"shutdown_timeout", fc.ShutdownTimeout, &c.ShutdownTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return errors.Wrapf(err, "parse %s", d.name)
		}
		*d.dst = v
	}

	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	if fc.LogFormat != "" {
		c.LogFormat = fc.LogFormat
	}
	if fc.MetricsEnabled != nil {
		c.MetricsEnabled = *fc.MetricsEnabled
	}
	return nil
}

// setModelsDir 修改模型根目录，并让仍指向旧默认路径的类别跟随移动
func (c *Config) setModelsDir(dir string) {
	old := DefaultFolders(c.ModelsDir)
	c.ModelsDir = dir
	for name, paths := range DefaultFolders(dir) {
		cur, ok := c.Folders[name]
		if !ok || (len(cur) == 1 && cur[0] == old[name][0]) {
			c.Folders[name] = paths
		}
	}
}
