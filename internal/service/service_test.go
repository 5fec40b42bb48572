package service

import (
	"bytes"
	"context"
	"image/png"
	"sync"
	"testing"

	"github.com/annel0/voxel-editor/internal/blocks"
	"github.com/annel0/voxel-editor/internal/blocks/atlas"
	"github.com/annel0/voxel-editor/internal/cache"
	"github.com/annel0/voxel-editor/internal/editor"
	"github.com/annel0/voxel-editor/internal/eventbus"
	"github.com/annel0/voxel-editor/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sinkRecorder struct {
	mu   sync.Mutex
	gens []uint64
}

func (r *sinkRecorder) Publish(set atlas.Set) {
	r.mu.Lock()
	r.gens = append(r.gens, set.Generation)
	r.mu.Unlock()
}

type busRecorder struct {
	mu  sync.Mutex
	evs []string
}

func (r *busRecorder) handle(_ context.Context, ev *eventbus.Envelope) {
	r.mu.Lock()
	r.evs = append(r.evs, ev.EventType)
	r.mu.Unlock()
}

type fixture struct {
	svc   *EditorService
	bus   eventbus.EventBus
	sink  *sinkRecorder
	seen  *busRecorder
	store *storage.CatalogStorage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewCatalogStorage(storage.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	png, err := cache.NewPNGCache(1 << 20)
	require.NoError(t, err)
	t.Cleanup(png.Close)

	f := &fixture{
		bus:   eventbus.NewMemoryBus(64),
		sink:  &sinkRecorder{},
		seen:  &busRecorder{},
		store: store,
	}
	_, err = f.bus.Subscribe(context.Background(), eventbus.Filter{}, f.seen.handle)
	require.NoError(t, err)

	f.svc, err = New(Options{
		Storage:    store,
		Bus:        f.bus,
		Sink:       f.sink,
		PNG:        png,
		Generators: DefaultGenerators(1),
	})
	require.NoError(t, err)
	return f
}

// events закрывает шину, чтобы дождаться доставки, и возвращает типы событий
func (f *fixture) events(t *testing.T) []string {
	t.Helper()
	require.NoError(t, f.bus.Close())
	f.seen.mu.Lock()
	defer f.seen.mu.Unlock()
	return f.seen.evs
}

func TestNew_UnknownDefaultGenerator(t *testing.T) {
	_, err := New(Options{Default: "voronoi"})
	assert.ErrorIs(t, err, ErrUnknownGenerator)
}

func TestCreateUpdate_PublishesEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateType(ctx, editor.Partial{})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), created.Key)

	// Имя не влияет на упаковку: без AtlasRebuilt
	_, err = f.svc.UpdateType(ctx, 1, editor.FieldName, "Stone")
	require.NoError(t, err)
	updated, err := f.svc.UpdateType(ctx, 1, editor.FieldHasAlpha, true)
	require.NoError(t, err)
	assert.True(t, updated.HasAlpha)

	assert.Equal(t, []string{
		eventbus.EventAtlasRebuilt, eventbus.EventCatalogChanged,
		eventbus.EventCatalogChanged,
		eventbus.EventAtlasRebuilt, eventbus.EventCatalogChanged,
	}, f.events(t))

	f.sink.mu.Lock()
	defer f.sink.mu.Unlock()
	assert.Equal(t, []uint64{1, 2, 3}, f.sink.gens)
}

func TestFailedOperationPublishesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CloneType(ctx, 7)
	assert.ErrorIs(t, err, editor.ErrIndexOutOfRange)
	assert.ErrorIs(t, f.svc.RemoveType(ctx, -1), editor.ErrIndexOutOfRange)
	_, err = f.svc.UpdateType(ctx, 0, "color", 1)
	assert.ErrorIs(t, err, editor.ErrUnknownField)

	assert.Empty(t, f.events(t))
	assert.Len(t, f.svc.Types(ctx), 1)
}

func TestTextures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var b blocks.Bitmap
	b.Fill(1, 2, 3, 255)
	require.NoError(t, f.svc.SetBitmap(ctx, 0, blocks.FaceSide, b))
	got, err := f.svc.Bitmap(ctx, 0, blocks.FaceSide)
	require.NoError(t, err)
	assert.Equal(t, b, got)

	regen, err := f.svc.Regenerate(ctx, 0, blocks.FaceSide, "perlin")
	require.NoError(t, err)
	assert.NotEqual(t, b, regen)

	_, err = f.svc.Regenerate(ctx, 0, blocks.FaceSide, "voronoi")
	assert.ErrorIs(t, err, ErrUnknownGenerator)

	assert.Equal(t, []string{"bevel", "perlin"}, f.svc.Generators())
	assert.Equal(t, uint64(3), f.svc.Atlas(ctx).Generation)
}

func TestSnapshots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateType(ctx, editor.Partial{})
	require.NoError(t, err)
	f.svc.SetScript(ctx, "custom();")
	saved := f.svc.Catalog(ctx)

	info, err := f.svc.SaveSnapshot(ctx, "two")
	require.NoError(t, err)
	assert.Equal(t, 2, info.Types)

	f.svc.Reset(ctx)
	f.svc.SetScript(ctx, "other();")
	require.Len(t, f.svc.Types(ctx), 1)

	require.NoError(t, f.svc.LoadSnapshot(ctx, "two"))
	assert.Equal(t, saved, f.svc.Catalog(ctx))
	assert.Equal(t, "custom();", f.svc.Script(ctx))

	list, err := f.svc.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, f.svc.DeleteSnapshot(ctx, "two"))
	assert.ErrorIs(t, f.svc.LoadSnapshot(ctx, "two"), storage.ErrNotFound)

	evs := f.events(t)
	assert.Contains(t, evs, eventbus.EventSnapshotSaved)
	assert.Contains(t, evs, eventbus.EventSnapshotLoaded)
}

func TestSnapshots_StorageDisabled(t *testing.T) {
	svc, err := New(Options{})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.SaveSnapshot(ctx, "x")
	assert.ErrorIs(t, err, ErrStorageDisabled)
	assert.ErrorIs(t, svc.LoadSnapshot(ctx, "x"), ErrStorageDisabled)
	_, err = svc.ListSnapshots(ctx)
	assert.ErrorIs(t, err, ErrStorageDisabled)
	assert.ErrorIs(t, svc.DeleteSnapshot(ctx, "x"), ErrStorageDisabled)
}

func TestLoadCatalog_RejectsBadRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before := f.svc.Catalog(ctx)

	bad := append([]blocks.Record(nil), before...)
	bad[0].Textures.Side = "!!"
	assert.ErrorIs(t, f.svc.LoadCatalog(ctx, bad), blocks.ErrDecode)
	assert.Equal(t, before, f.svc.Catalog(ctx))
}

func TestAtlasPNG(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	data, gen, err := f.svc.AtlasPNG(ctx, blocks.MaterialOpaque)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), gen)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 162, img.Bounds().Dx())

	svc, err := New(Options{})
	require.NoError(t, err)
	direct, _, err := svc.AtlasPNG(ctx, blocks.MaterialBlending)
	require.NoError(t, err)
	assert.NotEmpty(t, direct)
}

func TestLighting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	l := f.svc.Lighting(ctx)
	l.Ambient.R = 5
	got := f.svc.SetLighting(ctx, l)
	assert.Equal(t, 1.0, got.Ambient.R)
	assert.Equal(t, got, f.svc.Lighting(ctx))
}

func TestConcurrentAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_, _ = f.svc.CreateType(ctx, editor.Partial{})
				_ = f.svc.Atlas(ctx)
				_ = f.svc.Types(ctx)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, f.svc.Types(ctx), 81)
	records := f.svc.Catalog(ctx)
	assert.Len(t, records, 81)
}
