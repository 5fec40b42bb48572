package eventbus

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrClosed = errors.New("event bus is closed")

// Envelope описывает универсальный контейнер события.
// Все поля фиксированы для версионирования и трассировки.
type Envelope struct {
	ID            string            `json:"id"`                      // Глобально уникальный идентификатор (UUID).
	Timestamp     time.Time         `json:"timestamp"`               // Время создания события (UTC).
	Source        string            `json:"source"`                  // Имя сервиса-источника.
	EventType     string            `json:"eventType"`               // Тип события (CatalogChanged, AtlasRebuilt…).
	Version       int               `json:"version"`                 // Схема полезной нагрузки.
	CorrelationID string            `json:"correlationId,omitempty"` // Для связывания цепочек.
	Priority      int               `json:"priority"`                // 0=Low … 9=Critical (для backpressure).
	Payload       []byte            `json:"payload"`                 // JSON полезной нагрузки.
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Filter позволяет подписаться только на нужные события.
type Filter struct {
	Types   []string // Если пусто, все типы.
	Sources []string // Если пусто, все источники.
}

// Subscription возвращается при подписке; позволяет отписаться.
type Subscription interface {
	Unsubscribe()
}

// Handler потребляет события.
type Handler func(ctx context.Context, ev *Envelope)

// Stats агрегированные метрики шины.
type Stats struct {
	Published uint64 `json:"published"`
	Consumed  uint64 `json:"consumed"`
	Dropped   uint64 `json:"dropped"`
	InFlight  int    `json:"inFlight"`
}

// EventBus определяет абстракцию шины событий.
type EventBus interface {
	Publish(ctx context.Context, ev *Envelope) error
	Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error)
	Metrics() Stats
	Close() error
}

//================ In-Memory implementation =================//

type memoryBus struct {
	mu     sync.RWMutex // closed и отправка в buffer
	buffer chan *Envelope
	closed bool
	done   chan struct{}

	subsMu      sync.Mutex
	subscribers map[int]subscriber
	nextID      int

	statsMu sync.Mutex
	stats   Stats
}

type subscriber struct {
	filter  Filter
	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewMemoryBus создаёт in-memory Bus с указанным буфером.
func NewMemoryBus(capacity int) EventBus {
	mb := &memoryBus{
		subscribers: make(map[int]subscriber),
		buffer:      make(chan *Envelope, capacity),
		done:        make(chan struct{}),
	}
	go mb.dispatchLoop()
	return mb
}

func (mb *memoryBus) Publish(ctx context.Context, ev *Envelope) error {
	// RLock держится до конца отправки, чтобы Close не закрыл канал под нами
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	if mb.closed {
		return ErrClosed
	}

	select {
	case mb.buffer <- ev:
		mb.count(&mb.stats.Published)
		return nil
	default:
		// Буфер заполнен, дропаем низкий приоритет (<5)
		if ev.Priority < 5 {
			mb.count(&mb.stats.Dropped)
			return nil
		}
		// Для High-priority блокируем до освобождения места или отмены контекста
		select {
		case mb.buffer <- ev:
			mb.count(&mb.stats.Published)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (mb *memoryBus) count(c *uint64) {
	mb.statsMu.Lock()
	*c++
	mb.statsMu.Unlock()
}

func (mb *memoryBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	mb.mu.RLock()
	closed := mb.closed
	mb.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	mb.subsMu.Lock()
	defer mb.subsMu.Unlock()
	id := mb.nextID
	mb.nextID++
	cctx, cancel := context.WithCancel(ctx)
	mb.subscribers[id] = subscriber{filter: f, handler: h, ctx: cctx, cancel: cancel}

	return &memSub{bus: mb, id: id}, nil
}

func (mb *memoryBus) Metrics() Stats {
	mb.statsMu.Lock()
	s := mb.stats
	mb.statsMu.Unlock()
	s.InFlight = len(mb.buffer)
	return s
}

// Close останавливает рассылку; уже принятые события доставляются
func (mb *memoryBus) Close() error {
	mb.mu.Lock()
	if mb.closed {
		mb.mu.Unlock()
		return nil
	}
	mb.closed = true
	close(mb.buffer)
	mb.mu.Unlock()

	<-mb.done
	return nil
}

// dispatchLoop рассылает события подписчикам по порядку публикации.
func (mb *memoryBus) dispatchLoop() {
	defer close(mb.done)

	for ev := range mb.buffer {
		mb.subsMu.Lock()
		subs := make([]subscriber, 0, len(mb.subscribers))
		for _, sub := range mb.subscribers {
			subs = append(subs, sub)
		}
		mb.subsMu.Unlock()

		for _, sub := range subs {
			if !matchFilter(ev, sub.filter) {
				continue
			}
			select {
			case <-sub.ctx.Done():
				continue
			default:
			}
			sub.handler(sub.ctx, ev)
			mb.count(&mb.stats.Consumed)
		}
	}
}

func matchFilter(ev *Envelope, f Filter) bool {
	match := func(val string, arr []string) bool {
		if len(arr) == 0 {
			return true
		}
		for _, v := range arr {
			if v == val {
				return true
			}
		}
		return false
	}
	return match(ev.EventType, f.Types) && match(ev.Source, f.Sources)
}

type memSub struct {
	bus *memoryBus
	id  int
}

func (s *memSub) Unsubscribe() {
	s.bus.subsMu.Lock()
	if sub, ok := s.bus.subscribers[s.id]; ok {
		sub.cancel()
		delete(s.bus.subscribers, s.id)
	}
	s.bus.subsMu.Unlock()
}
