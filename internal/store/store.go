// Package store 保存进程内所有下载记录，是轮询和广播读取的唯一数据源
package store

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/luan78zao/model_downloader/internal/model"
)

var (
	ErrNotFound = errors.New("download not found")
	ErrExists   = errors.New("download already exists")
)

// Store 是并发安全的下载记录表。
// 它只负责记录的存在性（创建、查询、删除），进度字段由传输任务通过 Update 修改。
type Store struct {
	mu        sync.RWMutex
	downloads map[string]*model.Download
}

// New 创建一个空的记录表
func New() *Store {
	return &Store{
		downloads: make(map[string]*model.Download),
	}
}

// Create 插入新记录，创建后立即对读者可见
func (s *Store) Create(d model.Download) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.downloads[d.ID]; exists {
		return errors.Wrapf(ErrExists, "id %s", d.ID)
	}

	rec := d.Clone()
	s.downloads[d.ID] = &rec
	return nil
}

// Update 在写锁内对记录执行 fn，并返回修改后的快照。
// 记录已被删除时返回 false。
func (s *Store) Update(id string, fn func(d *model.Download)) (model.Download, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, exists := s.downloads[id]
	if !exists {
		return model.Download{}, false
	}
	fn(d)
	return d.Clone(), true
}

// Get 获取指定记录的副本
func (s *Store) Get(id string) (model.Download, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.downloads[id]
	if !exists {
		return model.Download{}, errors.Wrapf(ErrNotFound, "id %s", id)
	}
	return d.Clone(), nil
}

// List 返回所有保留中的记录，按 ID 索引
func (s *Store) List() map[string]model.Download {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]model.Download, len(s.downloads))
	for id, d := range s.downloads {
		out[id] = d.Clone()
	}
	return out
}

// Delete 删除记录，返回记录是否存在
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.downloads[id]; !exists {
		return false
	}
	delete(s.downloads, id)
	return true
}

// Len 返回记录数量
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.downloads)
}
