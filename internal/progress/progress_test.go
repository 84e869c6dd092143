package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		downloaded, total int64
		want              int
	}{
		{0, 0, 0},
		{500, 0, 0},
		{0, 100, 0},
		{1, 3, 33},
		{2, 3, 66},
		{99, 100, 99},
		{100, 100, 100},
		{150, 100, 100},
		{-5, 100, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percent(tt.downloaded, tt.total), "Percent(%d, %d)", tt.downloaded, tt.total)
	}
}

func TestPercentAlwaysInRange(t *testing.T) {
	for total := int64(1); total < 300; total += 7 {
		for downloaded := int64(0); downloaded <= total; downloaded += 3 {
			p := Percent(downloaded, total)
			require.GreaterOrEqual(t, p, 0)
			require.LessOrEqual(t, p, 100)
		}
	}
}

func TestSpeedMBps(t *testing.T) {
	_, ok := SpeedMBps(0, time.Second)
	assert.False(t, ok)

	_, ok = SpeedMBps(MiB, 0)
	assert.False(t, ok)

	speed, ok := SpeedMBps(4*MiB, 2*time.Second)
	require.True(t, ok)
	assert.InDelta(t, 2.0, speed, 1e-9)
}

func TestETASeconds(t *testing.T) {
	_, ok := ETASeconds(MiB, 0, 1)
	assert.False(t, ok, "unknown total")

	_, ok = ETASeconds(MiB, 10*MiB, 0)
	assert.False(t, ok, "no speed yet")

	eta, ok := ETASeconds(2*MiB, 10*MiB, 2)
	require.True(t, ok)
	assert.Equal(t, int64(4), eta)

	eta, ok = ETASeconds(11*MiB, 10*MiB, 2)
	require.True(t, ok)
	assert.Equal(t, int64(0), eta)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.23, Round2(1.2345))
	assert.Equal(t, 0.0, Round2(0.001))
}

func TestThrottle(t *testing.T) {
	th := NewThrottle(time.Second)
	base := time.Unix(1000, 0)

	assert.True(t, th.Allow(base), "first call passes")
	assert.False(t, th.Allow(base.Add(10*time.Millisecond)))
	assert.False(t, th.Allow(base.Add(999*time.Millisecond)))
	assert.True(t, th.Allow(base.Add(time.Second)))
	assert.False(t, th.Allow(base.Add(1500*time.Millisecond)))
	assert.True(t, th.Allow(base.Add(2*time.Second)))
}

func TestThrottleBoundsBurst(t *testing.T) {
	th := NewThrottle(time.Second)
	base := time.Unix(0, 0)

	allowed := 0
	// 3 秒内每毫秒一个分块
	for i := 0; i < 3000; i++ {
		if th.Allow(base.Add(time.Duration(i) * time.Millisecond)) {
			allowed++
		}
	}
	assert.Equal(t, 3, allowed)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "1.50 MB", FormatMB(MiB+MiB/2))
	assert.Equal(t, "42s", FormatETA(42))
	assert.Equal(t, "2m 5s", FormatETA(125))
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"100", 100},
		{"100B", 100},
		{"1KiB", 1024},
		{"1.5KiB", 1536},
		{"1MiB", MiB},
		{"2 GiB", 2 << 30},
		{"1KB", 1000},
		{"512KB", 512000},
		{"1MB", 1000 * 1000},
	}
	for _, tt := range tests {
		got, err := ParseBytes(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}

	_, err := ParseBytes("invalid")
	assert.Error(t, err)
	_, err = ParseBytes("-1MiB")
	assert.Error(t, err)
}
