package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusDownloading.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusError.Terminal())
}

func TestDownloadClone(t *testing.T) {
	speed := 1.5
	eta := int64(10)
	end := time.Now()
	e := end
	d := &Download{ID: "a", SpeedMBps: &speed, ETASeconds: &eta, EndTime: &e}

	c := d.Clone()
	*d.SpeedMBps = 9
	*d.ETASeconds = 99
	*d.EndTime = end.Add(time.Hour)

	assert.Equal(t, 1.5, *c.SpeedMBps)
	assert.Equal(t, int64(10), *c.ETASeconds)
	assert.True(t, c.EndTime.Equal(end))
	assert.NotSame(t, d.EndTime, c.EndTime)
}
