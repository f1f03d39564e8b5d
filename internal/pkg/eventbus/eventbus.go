package eventbus

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// EventType 事件类型标识
type EventType string

// Event 总线事件
type Event interface {
	Type() EventType
}

// Listener 事件监听器
type Listener func(ctx context.Context, event Event) error

// Subscription 订阅句柄(用于退订)
type Subscription struct {
	eventType EventType
	id        uint64
}

// Bus 进程内类型化发布/订阅总线
//
// Emit 并发调用同类型的所有监听器,任一监听器的错误或 panic 只记录日志,
// 不会阻断其他监听器。发布方与订阅方互不感知。
type Bus struct {
	mu        sync.RWMutex
	listeners map[EventType]map[uint64]Listener
	nextID    uint64
	logger    *zap.Logger
}

// New 创建事件总线
func New(logger *zap.Logger) *Bus {
	return &Bus{
		listeners: make(map[EventType]map[uint64]Listener),
		logger:    logger,
	}
}

// On 注册监听器,返回订阅句柄
func (b *Bus) On(eventType EventType, listener Listener) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.listeners[eventType] == nil {
		b.listeners[eventType] = make(map[uint64]Listener)
	}
	b.nextID++
	b.listeners[eventType][b.nextID] = listener

	return &Subscription{eventType: eventType, id: b.nextID}
}

// Off 退订
func (b *Bus) Off(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if listeners, ok := b.listeners[sub.eventType]; ok {
		delete(listeners, sub.id)
		if len(listeners) == 0 {
			delete(b.listeners, sub.eventType)
		}
	}
}

// Emit 发布事件并等待所有监听器完成
//
// 监听器之间无顺序保证,但发布方的状态变更一定先于 Emit 发生。
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	registered := b.listeners[event.Type()]
	listeners := make([]Listener, 0, len(registered))
	for _, listener := range registered {
		listeners = append(listeners, listener)
	}
	b.mu.RUnlock()

	if len(listeners) == 0 {
		return
	}

	var g errgroup.Group
	for _, listener := range listeners {
		listener := listener
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("event listener panic",
						zap.String("event_type", string(event.Type())),
						zap.Any("panic", r))
				}
			}()
			if err := listener(ctx, event); err != nil {
				b.logger.Error("event listener failed",
					zap.String("event_type", string(event.Type())),
					zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// RemoveAllListeners 移除监听器;不传类型则清空全部
func (b *Bus) RemoveAllListeners(eventTypes ...EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(eventTypes) == 0 {
		b.listeners = make(map[EventType]map[uint64]Listener)
		return
	}
	for _, eventType := range eventTypes {
		delete(b.listeners, eventType)
	}
}

// ListenerCount 返回指定类型的监听器数量
func (b *Bus) ListenerCount(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[eventType])
}
