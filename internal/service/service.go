// Package service даёт потокобезопасный доступ к редактору и связывает его
// уведомления с хранилищем снимков, шиной событий, кешем атласов и трассировкой.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/annel0/voxel-editor/internal/blocks"
	"github.com/annel0/voxel-editor/internal/blocks/atlas"
	"github.com/annel0/voxel-editor/internal/cache"
	"github.com/annel0/voxel-editor/internal/editor"
	"github.com/annel0/voxel-editor/internal/eventbus"
	"github.com/annel0/voxel-editor/internal/logging"
	"github.com/annel0/voxel-editor/internal/observability"
	"github.com/annel0/voxel-editor/internal/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrStorageDisabled  = errors.New("snapshot storage is not configured")
	ErrUnknownGenerator = errors.New("unknown texture generator")
)

// AtlasSink получает каждый новый набор атласов; вызов не должен блокировать
type AtlasSink interface {
	Publish(set atlas.Set)
}

// Options зависимости сервиса; любая может быть nil
type Options struct {
	Storage    storage.SnapshotRepo
	Bus        eventbus.EventBus
	Sink       AtlasSink
	PNG        *cache.PNGCache
	Logger     *logging.Logger
	Generators map[string]blocks.Generator // nil = DefaultGenerators(0)
	Default    string                      // Имя генератора новых типов, по умолчанию "bevel"
	Hooks      []editor.RebuildHook
}

// EditorService сериализует доступ к однопоточному редактору одним мьютексом.
// События шины копятся во время операции и публикуются после снятия блокировки.
type EditorService struct {
	mu      sync.Mutex
	ed      *editor.Editor
	pending []*eventbus.Envelope

	store  storage.SnapshotRepo
	bus    eventbus.EventBus
	sink   AtlasSink
	png    *cache.PNGCache
	logger *logging.Logger
	gens   map[string]blocks.Generator
	tracer trace.Tracer
}

// DefaultGenerators возвращает стандартный набор генераторов текстур
func DefaultGenerators(seed int64) map[string]blocks.Generator {
	return map[string]blocks.Generator{
		"bevel":  blocks.NewBevelGenerator(seed),
		"perlin": blocks.NewPerlinGenerator(seed),
	}
}

// New создаёт редактор и сервис вокруг него
func New(opts Options) (*EditorService, error) {
	s := &EditorService{
		store:  opts.Storage,
		bus:    opts.Bus,
		sink:   opts.Sink,
		png:    opts.PNG,
		logger: opts.Logger,
		gens:   opts.Generators,
		tracer: observability.Tracer(),
	}
	if s.gens == nil {
		s.gens = DefaultGenerators(0)
	}
	name := opts.Default
	if name == "" {
		name = "bevel"
	}
	gen, ok := s.gens[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGenerator, name)
	}

	edOpts := []editor.Option{editor.WithGenerator(gen), editor.WithRebuildHook(s.onRebuild)}
	for _, h := range opts.Hooks {
		edOpts = append(edOpts, editor.WithRebuildHook(h))
	}
	s.ed = editor.New(edOpts...)

	// События стартовой пересборки никому не нужны
	s.pending = nil
	s.logger.Info("Редактор запущен: генератор %s, %d типов", name, s.ed.Catalog().Len())
	return s, nil
}

// onRebuild вызывается под мьютексом изнутри мутации редактора
func (s *EditorService) onRebuild(set atlas.Set, took time.Duration) {
	if s.sink != nil {
		s.sink.Publish(set)
	}
	packed := map[string]int{}
	widths := map[string]int{}
	for _, m := range blocks.Materials {
		packed[m.String()] = set.Get(m).Packed
		widths[m.String()] = set.Get(m).Width
	}
	s.queue(eventbus.EventAtlasRebuilt, eventbus.AtlasRebuilt{
		Generation: set.Generation,
		Packed:     packed,
		Widths:     widths,
		DurationMs: float64(took.Microseconds()) / 1000,
	})
}

func (s *EditorService) queue(eventType string, payload interface{}) {
	if s.bus == nil {
		return
	}
	ev, err := eventbus.NewEnvelope(eventType, payload)
	if err != nil {
		s.logger.Error("Событие %s не создано: %v", eventType, err)
		return
	}
	s.pending = append(s.pending, ev)
}

// unlock снимает блокировку и публикует накопленные события
func (s *EditorService) unlock(ctx context.Context) {
	events := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, ev := range events {
		if err := s.bus.Publish(ctx, ev); err != nil {
			s.logger.Warn("Событие %s не опубликовано: %v", ev.EventType, err)
		}
	}
}

func (s *EditorService) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "editor."+name, trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Types возвращает копию списка типов
func (s *EditorService) Types(ctx context.Context) []blocks.BlockType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]blocks.BlockType(nil), s.ed.Catalog().Snapshot()...)
}

func (s *EditorService) Type(ctx context.Context, index int) (blocks.BlockType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ed.Catalog().At(index)
}

func (s *EditorService) CreateType(ctx context.Context, p editor.Partial) (t blocks.BlockType, err error) {
	ctx, span := s.start(ctx, "CreateType")
	defer func() { finish(span, err) }()

	s.mu.Lock()
	defer s.unlock(ctx)

	t, err = s.ed.Catalog().Create(p)
	if err != nil {
		return t, err
	}
	s.queue(eventbus.EventCatalogChanged, eventbus.CatalogChanged{Op: "create", Index: s.ed.Catalog().Len() - 1, Types: s.ed.Catalog().Len()})
	return t, nil
}

func (s *EditorService) CloneType(ctx context.Context, index int) (t blocks.BlockType, err error) {
	ctx, span := s.start(ctx, "CloneType", attribute.Int("index", index))
	defer func() { finish(span, err) }()

	s.mu.Lock()
	defer s.unlock(ctx)

	t, err = s.ed.Catalog().Clone(index)
	if err != nil {
		return t, err
	}
	s.queue(eventbus.EventCatalogChanged, eventbus.CatalogChanged{Op: "clone", Index: s.ed.Catalog().Len() - 1, Types: s.ed.Catalog().Len()})
	return t, nil
}

func (s *EditorService) RemoveType(ctx context.Context, index int) (err error) {
	ctx, span := s.start(ctx, "RemoveType", attribute.Int("index", index))
	defer func() { finish(span, err) }()

	s.mu.Lock()
	defer s.unlock(ctx)

	if err = s.ed.Catalog().Remove(index); err != nil {
		return err
	}
	s.queue(eventbus.EventCatalogChanged, eventbus.CatalogChanged{Op: "remove", Index: index, Types: s.ed.Catalog().Len()})
	return nil
}

// UpdateType меняет поле и возвращает тип после правки
func (s *EditorService) UpdateType(ctx context.Context, index int, field editor.Field, value interface{}) (t blocks.BlockType, err error) {
	ctx, span := s.start(ctx, "UpdateType", attribute.Int("index", index), attribute.String("field", string(field)))
	defer func() { finish(span, err) }()

	s.mu.Lock()
	defer s.unlock(ctx)

	if err = s.ed.Catalog().Update(index, field, value); err != nil {
		return t, err
	}
	s.queue(eventbus.EventCatalogChanged, eventbus.CatalogChanged{Op: "update", Index: index, Field: string(field), Types: s.ed.Catalog().Len()})
	return s.ed.Catalog().At(index)
}

func (s *EditorService) Bitmap(ctx context.Context, index int, face blocks.Face) (blocks.Bitmap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ed.Textures().Bitmap(index, face)
}

func (s *EditorService) SetBitmap(ctx context.Context, index int, face blocks.Face, bmp blocks.Bitmap) (err error) {
	ctx, span := s.start(ctx, "SetBitmap", attribute.Int("index", index), attribute.String("face", face.String()))
	defer func() { finish(span, err) }()

	s.mu.Lock()
	defer s.unlock(ctx)

	if err = s.ed.Textures().SetBitmap(index, face, bmp); err != nil {
		return err
	}
	s.queue(eventbus.EventTexturesChanged, eventbus.TexturesChanged{Index: index, Face: face.String()})
	return nil
}

// Regenerate заполняет грань генератором по имени; пустое имя = генератор редактора
func (s *EditorService) Regenerate(ctx context.Context, index int, face blocks.Face, generator string) (bmp blocks.Bitmap, err error) {
	ctx, span := s.start(ctx, "Regenerate", attribute.Int("index", index), attribute.String("generator", generator))
	defer func() { finish(span, err) }()

	var gen blocks.Generator
	if generator != "" {
		var ok bool
		if gen, ok = s.gens[generator]; !ok {
			return bmp, fmt.Errorf("%w: %q", ErrUnknownGenerator, generator)
		}
	}

	s.mu.Lock()
	defer s.unlock(ctx)

	if err = s.ed.Textures().Regenerate(index, face, gen); err != nil {
		return bmp, err
	}
	s.queue(eventbus.EventTexturesChanged, eventbus.TexturesChanged{Index: index, Face: face.String()})
	return s.ed.Textures().Bitmap(index, face)
}

// Catalog возвращает сериализованный каталог
func (s *EditorService) Catalog(ctx context.Context) []blocks.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ed.Catalog().Serialize()
}

// LoadCatalog заменяет каталог; при ошибке состояние не меняется
func (s *EditorService) LoadCatalog(ctx context.Context, records []blocks.Record) (err error) {
	ctx, span := s.start(ctx, "LoadCatalog", attribute.Int("records", len(records)))
	defer func() { finish(span, err) }()

	s.mu.Lock()
	defer s.unlock(ctx)
	return s.loadLocked(records, "load")
}

func (s *EditorService) loadLocked(records []blocks.Record, op string) error {
	if err := s.ed.Catalog().Deserialize(records); err != nil {
		return err
	}
	s.queue(eventbus.EventCatalogChanged, eventbus.CatalogChanged{Op: op, Index: -1, Types: s.ed.Catalog().Len()})
	return nil
}

func (s *EditorService) Reset(ctx context.Context) {
	ctx, span := s.start(ctx, "Reset")
	defer finish(span, nil)

	s.mu.Lock()
	defer s.unlock(ctx)

	s.ed.Catalog().Reset()
	s.queue(eventbus.EventCatalogChanged, eventbus.CatalogChanged{Op: "reset", Index: -1, Types: s.ed.Catalog().Len()})
}

// SaveSnapshot сохраняет каталог, освещение и скрипт под именем
func (s *EditorService) SaveSnapshot(ctx context.Context, name string) (info storage.SnapshotInfo, err error) {
	ctx, span := s.start(ctx, "SaveSnapshot", attribute.String("snapshot", name))
	defer func() { finish(span, err) }()

	if s.store == nil {
		return info, ErrStorageDisabled
	}

	s.mu.Lock()
	snap := storage.Snapshot{
		Name:     name,
		SavedAt:  time.Now().UTC(),
		Catalog:  s.ed.Catalog().Serialize(),
		Lighting: s.ed.Lighting(),
		Script:   s.ed.Script(),
	}
	s.mu.Unlock()

	// Запись в базу идёт без блокировки редактора
	if info, err = s.store.Save(ctx, snap); err != nil {
		return info, err
	}
	s.publish(ctx, eventbus.EventSnapshotSaved, eventbus.SnapshotEvent{Name: name, Types: info.Types})
	s.logger.Info("Снимок %q сохранён (%d типов)", name, info.Types)
	return info, nil
}

// LoadSnapshot восстанавливает снимок целиком
func (s *EditorService) LoadSnapshot(ctx context.Context, name string) (err error) {
	ctx, span := s.start(ctx, "LoadSnapshot", attribute.String("snapshot", name))
	defer func() { finish(span, err) }()

	if s.store == nil {
		return ErrStorageDisabled
	}
	snap, err := s.store.Load(ctx, name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.unlock(ctx)

	if err = s.loadLocked(snap.Catalog, "snapshot"); err != nil {
		return fmt.Errorf("snapshot %q: %w", name, err)
	}
	s.ed.SetLighting(snap.Lighting)
	s.ed.SetScript(snap.Script)
	s.queue(eventbus.EventSnapshotLoaded, eventbus.SnapshotEvent{Name: name, Types: len(snap.Catalog)})
	return nil
}

func (s *EditorService) ListSnapshots(ctx context.Context) ([]storage.SnapshotInfo, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}
	return s.store.List(ctx)
}

func (s *EditorService) DeleteSnapshot(ctx context.Context, name string) error {
	if s.store == nil {
		return ErrStorageDisabled
	}
	return s.store.Delete(ctx, name)
}

func (s *EditorService) publish(ctx context.Context, eventType string, payload interface{}) {
	s.mu.Lock()
	s.queue(eventType, payload)
	s.unlock(ctx)
}

// Atlas возвращает последний набор атласов. Пиксели не меняются после
// публикации, поэтому набор можно читать и после снятия блокировки.
func (s *EditorService) Atlas(ctx context.Context) atlas.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ed.Atlas()
}

// AtlasPNG возвращает PNG атласа материала и его поколение
func (s *EditorService) AtlasPNG(ctx context.Context, m blocks.Material) ([]byte, uint64, error) {
	set := s.Atlas(ctx)
	if s.png != nil {
		data, err := s.png.Get(&set, m)
		return data, set.Generation, err
	}
	data, err := cache.EncodePNG(set.Get(m))
	return data, set.Generation, err
}

func (s *EditorService) Lighting(ctx context.Context) editor.Lighting {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ed.Lighting()
}

// SetLighting возвращает освещение после приведения к [0, 1]
func (s *EditorService) SetLighting(ctx context.Context, l editor.Lighting) editor.Lighting {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ed.SetLighting(l)
	return s.ed.Lighting()
}

func (s *EditorService) Script(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ed.Script()
}

func (s *EditorService) SetScript(ctx context.Context, script string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ed.SetScript(script)
}

// Generators возвращает имена доступных генераторов
func (s *EditorService) Generators() []string {
	names := make([]string, 0, len(s.gens))
	for name := range s.gens {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
