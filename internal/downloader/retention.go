package downloader

import (
	"context"
	"sync"
	"time"

	"github.com/luan78zao/model_downloader/internal/logging"
	"github.com/luan78zao/model_downloader/internal/store"
)

// Sweeper 在记录进入终止状态后保留一段时间，然后将其删除
type Sweeper struct {
	store   *store.Store
	window  time.Duration
	metrics Metrics
	logger  logging.Logger

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

// NewSweeper 创建清理器
func NewSweeper(st *store.Store, window time.Duration, m Metrics, logger logging.Logger) *Sweeper {
	if m == nil {
		m = nopMetrics{}
	}
	return &Sweeper{
		store:   st,
		window:  window,
		metrics: m,
		logger:  logger.With("module", "retention"),
		timers:  make(map[string]*time.Timer),
	}
}

// Schedule 在 window 之后删除记录；重复调用会重新计时
func (s *Sweeper) Schedule(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if t, ok := s.timers[id]; ok {
		t.Stop()
	}
	s.timers[id] = time.AfterFunc(s.window, func() { s.evict(id) })
}

func (s *Sweeper) evict(id string) {
	s.mu.Lock()
	delete(s.timers, id)
	s.mu.Unlock()

	if s.store.Delete(id) {
		s.metrics.RecordEvicted()
		s.logger.Debug(context.Background(), "download record evicted", "download_id", id)
	}
}

// Pending 返回等待删除的记录数
func (s *Sweeper) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop 取消所有未触发的删除
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}
