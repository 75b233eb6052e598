// Package store 维护供展示层使用的近期观测窗口。
// 使用单写者模式避免锁和竞态条件。
package store

import "synthetic-funding-tracker/internal/core/model"

// DefaultCapacity 默认窗口容量
const DefaultCapacity = 1000

// Store 有界观测窗口（单写者）
// 注意：本结构体默认由驱动循环单 goroutine 写入；若要跨 goroutine 读，
// 请通过 Recent 拷贝快照传递。
type Store struct {
	// capacity 窗口容量，超出后丢弃最旧记录
	capacity int
	// obs 按追加顺序保存的观测记录
	obs []model.Observation
}

// New 创建观测窗口
// 参数 capacity: 窗口容量，<=0 时使用 DefaultCapacity
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		obs:      make([]model.Observation, 0, capacity),
	}
}

// Add 追加一条观测记录
// 超出容量时裁剪最旧的记录，保持窗口有界。
func (s *Store) Add(o model.Observation) {
	s.obs = append(s.obs, o)
	if len(s.obs) > s.capacity {
		// 原地左移避免底层数组无界增长
		n := copy(s.obs, s.obs[len(s.obs)-s.capacity:])
		s.obs = s.obs[:n]
	}
}

// Latest 获取最新一条观测记录
// 返回: 最新记录与是否存在
func (s *Store) Latest() (model.Observation, bool) {
	if len(s.obs) == 0 {
		return model.Observation{}, false
	}
	return s.obs[len(s.obs)-1], true
}

// Recent 获取最近 n 条观测记录的拷贝（按追加顺序）
// 参数 n: 条数，<=0 或超过窗口长度时返回整个窗口
func (s *Store) Recent(n int) []model.Observation {
	if n <= 0 || n > len(s.obs) {
		n = len(s.obs)
	}
	out := make([]model.Observation, n)
	copy(out, s.obs[len(s.obs)-n:])
	return out
}

// Len 获取当前窗口长度
func (s *Store) Len() int {
	return len(s.obs)
}

// Clear 清空窗口
func (s *Store) Clear() {
	s.obs = s.obs[:0]
}
