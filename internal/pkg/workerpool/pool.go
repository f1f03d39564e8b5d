package workerpool

import (
	"errors"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

var ErrPoolClosed = errors.New("worker pool is closed")

// Config Worker Pool 配置
type Config struct {
	Workers int // worker 数量
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Workers: 8,
	}
}

// Statistics 统计信息
type Statistics struct {
	mu sync.RWMutex

	Submitted int64 // 已提交
	Completed int64 // 已完成
	Failed    int64 // 失败
}

func (s *Statistics) incSubmitted() {
	s.mu.Lock()
	s.Submitted++
	s.mu.Unlock()
}

func (s *Statistics) incCompleted() {
	s.mu.Lock()
	s.Completed++
	s.mu.Unlock()
}

func (s *Statistics) incFailed() {
	s.mu.Lock()
	s.Failed++
	s.mu.Unlock()
}

// Snapshot 返回统计快照
func (s *Statistics) Snapshot() (submitted, completed, failed int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Submitted, s.Completed, s.Failed
}

// Pool 基于 ants 的后台任务池,任务内 panic 不会影响其他任务
type Pool struct {
	pool   *ants.Pool
	stats  *Statistics
	logger *zap.Logger

	closed bool
	mu     sync.RWMutex
}

// New 创建任务池
func New(cfg *Config, logger *zap.Logger) (*Pool, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	p := &Pool{
		stats:  &Statistics{},
		logger: logger,
	}

	antsPool, err := ants.NewPool(cfg.Workers,
		ants.WithPanicHandler(func(v interface{}) {
			p.stats.incFailed()
			logger.Error("worker panic recovered", zap.Any("panic", v))
		}),
	)
	if err != nil {
		return nil, err
	}
	p.pool = antsPool

	return p, nil
}

// Submit 提交任务
func (p *Pool) Submit(task func() error) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPoolClosed
	}
	p.mu.RUnlock()

	p.stats.incSubmitted()
	return p.pool.Submit(func() {
		if err := task(); err != nil {
			p.stats.incFailed()
			p.logger.Warn("worker task failed", zap.Error(err))
			return
		}
		p.stats.incCompleted()
	})
}

// Stats 当前统计
func (p *Pool) Stats() *Statistics {
	return p.stats
}

// Running 当前运行中的 worker 数
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Release 关闭任务池,等待在途任务结束(最多 timeout)
func (p *Pool) Release(timeout time.Duration) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	return p.pool.ReleaseTimeout(timeout)
}
