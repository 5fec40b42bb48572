package cache

import (
	"bytes"
	"context"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/annel0/voxel-editor/internal/blocks"
	"github.com/annel0/voxel-editor/internal/blocks/atlas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSet(t *testing.T, generation uint64) atlas.Set {
	t.Helper()
	gen := blocks.NewBevelGenerator(9)
	types := []blocks.BlockType{{Name: "a", Model: blocks.ModelBox}}
	set, err := atlas.Build(types, []blocks.TextureSet{blocks.NewTextureSet(gen)})
	require.NoError(t, err)
	set.Generation = generation
	return set
}

func TestPNGCache(t *testing.T) {
	c, err := NewPNGCache(1 << 20)
	require.NoError(t, err)
	defer c.Close()

	set := testSet(t, 1)
	data, err := c.Get(&set, blocks.MaterialOpaque)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 162, img.Bounds().Dx())
	assert.Equal(t, 18, img.Bounds().Dy())

	again, err := c.Get(&set, blocks.MaterialOpaque)
	require.NoError(t, err)
	assert.Equal(t, data, again)
	assert.Greater(t, c.Ratio(), 0.0)

	alpha, err := c.Get(&set, blocks.MaterialAlpha)
	require.NoError(t, err)
	assert.NotEqual(t, data, alpha)
}

func TestAtlasPublisher_LatestWins(t *testing.T) {
	var mu sync.Mutex
	var written []uint64
	release := make(chan struct{})
	first := make(chan struct{})

	p := newPublisher(PublisherConfig{}, func(_ context.Context, set atlas.Set) error {
		if set.Generation == 1 {
			close(first)
			<-release
		}
		mu.Lock()
		written = append(written, set.Generation)
		mu.Unlock()
		return nil
	})

	p.Publish(testSet(t, 1))
	<-first
	// Пока пишется первое поколение, 2..5 вытесняют друг друга
	for g := uint64(2); g <= 5; g++ {
		p.Publish(testSet(t, g))
	}
	close(release)
	require.NoError(t, p.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []uint64{1, 5}, written)

	published, skipped, failed := p.Stats()
	assert.Equal(t, uint64(2), published)
	assert.Equal(t, uint64(3), skipped)
	assert.Zero(t, failed)
}

func TestAtlasPublisher_CountsFailures(t *testing.T) {
	p := newPublisher(PublisherConfig{}, func(context.Context, atlas.Set) error {
		return assert.AnError
	})
	p.Publish(testSet(t, 1))

	require.Eventually(t, func() bool {
		_, _, failed := p.Stats()
		return failed == 1
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, p.Close())
}

func TestNewAtlasPublisher_Unreachable(t *testing.T) {
	_, err := NewAtlasPublisher(PublisherConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
