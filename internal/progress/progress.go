package progress

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MiB 是速度与分块大小使用的单位
const MiB = 1024 * 1024

// Percent 返回 floor(downloaded/total*100)，总大小未知时为 0
func Percent(downloaded, total int64) int {
	if total <= 0 || downloaded <= 0 {
		return 0
	}
	if downloaded >= total {
		return 100
	}
	return int(downloaded * 100 / total)
}

// SpeedMBps 返回自开始以来的平均速度（MB/s），尚无可用测量时 ok 为 false
func SpeedMBps(downloaded int64, elapsed time.Duration) (speed float64, ok bool) {
	secs := elapsed.Seconds()
	if downloaded <= 0 || secs <= 0 {
		return 0, false
	}
	return float64(downloaded) / MiB / secs, true
}

// ETASeconds 按当前速度估算剩余秒数
func ETASeconds(downloaded, total int64, speedMBps float64) (eta int64, ok bool) {
	if total <= 0 || speedMBps <= 0 {
		return 0, false
	}
	remaining := total - downloaded
	if remaining < 0 {
		remaining = 0
	}
	return int64(float64(remaining) / (speedMBps * MiB)), true
}

// Round2 保留两位小数
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Throttle 在每个 interval 窗口内最多放行一次
type Throttle struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewThrottle 创建限流器，第一次调用 Allow 总是放行
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{interval: interval}
}

// Allow 判断 now 时刻是否可以发送通知
func (t *Throttle) Allow(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.last.IsZero() && now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}

// FormatMB 以 MB 为单位格式化字节数
func FormatMB(b int64) string {
	return fmt.Sprintf("%.2f MB", float64(b)/MiB)
}

// FormatETA 格式化为 "Xm Ys"
func FormatETA(seconds int64) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}

// ParseBytes 解析 "1MiB"、"512KB"、"1048576" 等大小字符串。
// IEC 后缀（KiB/MiB/GiB）按 1024 进位，SI 后缀（KB/MB/GB）按 1000 进位。
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	units := []struct {
		suffix string
		mult   float64
	}{
		{"GiB", 1 << 30},
		{"MiB", 1 << 20},
		{"KiB", 1 << 10},
		{"GB", 1e9},
		{"MB", 1e6},
		{"KB", 1e3},
		{"B", 1},
	}

	mult := 1.0
	for _, u := range units {
		if strings.HasSuffix(s, u.suffix) {
			mult = u.mult
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			break
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid byte string: %q", s)
	}
	return int64(v * mult), nil
}
