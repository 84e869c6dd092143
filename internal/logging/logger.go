// Package logging 定义项目内使用的结构化日志接口
package logging

import "context"

// Logger 是带 context 的结构化日志接口
//
// 可变参数按键值对解释：
//
//	log.Info(ctx, "download started", "download_id", id, "url", url)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With 返回始终携带给定键值对的子日志
	With(args ...any) Logger
}
