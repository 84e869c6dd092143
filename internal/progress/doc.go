// Package progress 计算下载进度指标并限制广播频率。
//
// 百分比、速度和剩余时间始终由字节计数和耗时推导，不单独存储：
//
//	percent := progress.Percent(downloaded, total)
//	speed, ok := progress.SpeedMBps(downloaded, time.Since(start))
//	eta, ok := progress.ETASeconds(downloaded, total, speed)
//
// Throttle 保证在一个滚动窗口内最多放行一次通知，与分块大小和链路速度无关。
package progress
