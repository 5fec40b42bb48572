// Package store содержит синхронную ячейку состояния с подписчиками.
package store

// Subscriber получает новое значение ячейки
type Subscriber[T any] func(value T)

// Subscription возвращается при подписке; позволяет отписаться.
type Subscription interface {
	Unsubscribe()
}

type entry[T any] struct {
	id int
	fn Subscriber[T]
}

// Cell хранит значение и синхронно уведомляет подписчиков в порядке подписки.
// Ячейка не потокобезопасна: владелец сериализует доступ сам.
type Cell[T any] struct {
	value  T
	subs   []entry[T]
	nextID int
}

// NewCell создаёт ячейку с начальным значением
func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{value: initial}
}

// Get возвращает текущее значение
func (c *Cell[T]) Get() T {
	return c.value
}

// Put меняет значение без уведомления. Нужен, когда несколько ячеек
// обновляются вместе и подписчики должны увидеть их уже согласованными.
func (c *Cell[T]) Put(v T) {
	c.value = v
}

// Publish уведомляет подписчиков о текущем значении
func (c *Cell[T]) Publish() {
	// Копия: подписчик может отписаться во время рассылки
	subs := append([]entry[T](nil), c.subs...)
	for _, s := range subs {
		s.fn(c.value)
	}
}

// Set это Put + Publish
func (c *Cell[T]) Set(v T) {
	c.Put(v)
	c.Publish()
}

// Subscribe регистрирует подписчика и сразу вызывает его с текущим значением
func (c *Cell[T]) Subscribe(fn Subscriber[T]) Subscription {
	id := c.nextID
	c.nextID++
	c.subs = append(c.subs, entry[T]{id: id, fn: fn})
	fn(c.value)
	return &cellSub[T]{cell: c, id: id}
}

// Subscribers возвращает число активных подписчиков
func (c *Cell[T]) Subscribers() int {
	return len(c.subs)
}

type cellSub[T any] struct {
	cell *Cell[T]
	id   int
}

func (s *cellSub[T]) Unsubscribe() {
	subs := s.cell.subs
	for i, e := range subs {
		if e.id == s.id {
			s.cell.subs = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}
