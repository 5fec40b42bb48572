// Package editor держит состояние редактора типов блоков: каталог типов,
// выровненный с ним банк текстур и производные атласы.
//
// Редактор однопоточный: каждая мутация применяет изменения, синхронно
// уведомляет подписчиков и, если нужно, полностью пересобирает атласы до
// возврата. Доступ из нескольких горутин сериализует вызывающая сторона.
package editor

import (
	"time"

	"github.com/annel0/voxel-editor/internal/blocks"
	"github.com/annel0/voxel-editor/internal/blocks/atlas"
	"github.com/annel0/voxel-editor/internal/logging"
	"github.com/annel0/voxel-editor/internal/store"
)

// RebuildHook вызывается после каждой успешной пересборки атласов
type RebuildHook func(set atlas.Set, took time.Duration)

// Option настраивает Editor
type Option func(*Editor)

// WithGenerator задаёт генератор текстур для новых типов
func WithGenerator(gen blocks.Generator) Option {
	return func(e *Editor) { e.gen = gen }
}

// WithRebuildHook добавляет наблюдателя пересборок (метрики, трассировка)
func WithRebuildHook(hook RebuildHook) Option {
	return func(e *Editor) { e.hooks = append(e.hooks, hook) }
}

// Editor связывает каталог, банк текстур, атласы, освещение и скрипт
type Editor struct {
	catalog  *Catalog
	bank     *Bank
	atlas    *store.Cell[atlas.Set]
	lighting *store.Cell[Lighting]
	script   *store.Cell[string]

	gen        blocks.Generator
	hooks      []RebuildHook
	generation uint64
}

// New создаёт редактор и заполняет каталог встроенными типами
func New(opts ...Option) *Editor {
	e := &Editor{
		atlas:    store.NewCell(atlas.Set{}),
		lighting: store.NewCell(DefaultLighting()),
		script:   store.NewCell(DefaultScript),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.gen == nil {
		e.gen = blocks.NewBevelGenerator(0)
	}

	e.bank = newBank(e.gen, e.rebuild)
	e.catalog = newCatalog(e.bank, e.rebuild)
	e.catalog.Reset()
	return e
}

// Catalog возвращает каталог типов
func (e *Editor) Catalog() *Catalog { return e.catalog }

// Textures возвращает банк текстур
func (e *Editor) Textures() *Bank { return e.bank }

// Atlas возвращает результат последней пересборки
func (e *Editor) Atlas() atlas.Set { return e.atlas.Get() }

// SubscribeAtlas подписывает на пересборки атласов
func (e *Editor) SubscribeAtlas(fn store.Subscriber[atlas.Set]) store.Subscription {
	return e.atlas.Subscribe(fn)
}

// Lighting возвращает текущее освещение
func (e *Editor) Lighting() Lighting { return e.lighting.Get() }

// SetLighting заменяет освещение целиком; компоненты приводятся к [0, 1]
func (e *Editor) SetLighting(l Lighting) {
	e.lighting.Set(l.Clamp())
}

func (e *Editor) SubscribeLighting(fn store.Subscriber[Lighting]) store.Subscription {
	return e.lighting.Subscribe(fn)
}

// Script возвращает текст скрипта генерации
func (e *Editor) Script() string { return e.script.Get() }

func (e *Editor) SetScript(s string) { e.script.Set(s) }

func (e *Editor) SubscribeScript(fn store.Subscriber[string]) store.Subscription {
	return e.script.Subscribe(fn)
}

// rebuild это общий триггер пересборки. Все три атласа собираются во
// временный Set и публикуются вместе; при ошибке остаётся прежний Set.
func (e *Editor) rebuild() {
	start := time.Now()

	set, err := atlas.Build(e.catalog.Snapshot(), e.bank.Snapshot())
	if err != nil {
		logging.Error("Пересборка атласа отменена: %v", err)
		return
	}

	e.generation++
	set.Generation = e.generation
	took := time.Since(start)

	e.atlas.Set(set)
	for _, hook := range e.hooks {
		hook(set, took)
	}

	logging.Trace("Атлас #%d собран за %s: opaque=%d alpha=%d blending=%d",
		set.Generation, took, set.Opaque.Packed, set.Alpha.Packed, set.Blending.Packed)
}
