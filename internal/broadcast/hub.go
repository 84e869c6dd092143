// Package broadcast 把下载进度事件推送给所有订阅者
package broadcast

import (
	"context"
	"sync"

	"github.com/luan78zao/model_downloader/internal/logging"
	"github.com/luan78zao/model_downloader/internal/model"
)

// EventDownloadProgress 是下载进度事件名
const EventDownloadProgress = "model_download_progress"

// Event 是一条广播消息
type Event struct {
	Name string         `json:"type"`
	Data model.Download `json:"data"`
}

// Hub 把事件扇出给订阅者。
// 发送不阻塞：订阅者缓冲区满时丢弃该事件并记录日志。
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]chan Event
	nextID uint64
	buffer int
	closed bool
	logger logging.Logger
}

// NewHub 创建广播中心，buffer 为每个订阅者的缓冲大小
func NewHub(buffer int, logger logging.Logger) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		subs:   make(map[uint64]chan Event),
		buffer: buffer,
		logger: logger.With("module", "broadcast"),
	}
}

// Subscribe 注册订阅者，返回事件通道和取消函数
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(ch)
			}
		})
	}
}

// Notify 向所有订阅者发送事件，失败只记录日志
func (h *Hub) Notify(event string, d model.Download) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ev := Event{Name: event, Data: d}
	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.logger.Warn(context.Background(), "subscriber buffer full, event dropped",
				"subscriber", id, "download_id", d.ID, "status", d.Status)
		}
	}
}

// Subscribers 返回当前订阅者数量
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close 关闭所有订阅者通道
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
