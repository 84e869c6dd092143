package main

import (
	"context"
	"log"
	"os"

	"github.com/luan78zao/model_downloader/internal/app"
	"github.com/luan78zao/model_downloader/internal/config"
)

func main() {
	// 解析配置：默认值 < .env < YAML < 环境变量 < 命令行参数
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	a, err := app.NewApp(cfg, os.Stdout)
	if err != nil {
		log.Fatalf("初始化失败: %v", err)
	}

	if err := a.Run(context.Background()); err != nil {
		log.Fatalf("服务器异常退出: %v", err)
	}
}
