package kvstore

import (
	"context"
	"sync"
)

// MemoryStore 基于内存的 Store 实现，测试专用
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

// NewMemoryStore 创建 MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]string),
	}
}

// Get 读取 key 的当前值
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.data[key]
	return value, ok, nil
}

// Set 覆盖写入
func (s *MemoryStore) Set(_ context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return nil
}

// Update 持锁执行读取-修改-写回，天然串行
func (s *MemoryStore) Update(_ context.Context, key string, fn UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.data[key]
	next, err := fn(old, ok)
	if err != nil {
		return err
	}
	s.data[key] = next
	return nil
}
