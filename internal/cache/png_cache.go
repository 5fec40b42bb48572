package cache

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/annel0/voxel-editor/internal/blocks"
	"github.com/annel0/voxel-editor/internal/blocks/atlas"
	"github.com/dgraph-io/ristretto/v2"
)

// PNGCache хранит закодированные PNG атласов по ключу поколение+материал.
// Поколение растёт с каждой пересборкой, поэтому записи не инвалидируются,
// старые просто вытесняются.
type PNGCache struct {
	cache *ristretto.Cache[string, []byte]
}

// NewPNGCache создаёт кеш с бюджетом maxBytes
func NewPNGCache(maxBytes int64) (*PNGCache, error) {
	c, err := ristretto.NewCache[string, []byte](&ristretto.Config[string, []byte]{
		NumCounters: 1000,
		MaxCost:     maxBytes,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("ristretto: %w", err)
	}
	return &PNGCache{cache: c}, nil
}

func pngKey(generation uint64, m blocks.Material) string {
	return fmt.Sprintf("%d|%s", generation, m)
}

// Get возвращает PNG атласа материала из set, кодируя его при промахе
func (c *PNGCache) Get(set *atlas.Set, m blocks.Material) ([]byte, error) {
	key := pngKey(set.Generation, m)
	if data, ok := c.cache.Get(key); ok {
		return data, nil
	}

	data, err := EncodePNG(set.Get(m))
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, data, int64(len(data)))
	c.cache.Wait()
	return data, nil
}

// EncodePNG кодирует атлас в PNG без кеширования
func EncodePNG(a *atlas.Atlas) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, a.Image()); err != nil {
		return nil, fmt.Errorf("png encode %s: %w", a.Material, err)
	}
	return buf.Bytes(), nil
}

// Ratio возвращает долю попаданий
func (c *PNGCache) Ratio() float64 {
	return c.cache.Metrics.Ratio()
}

func (c *PNGCache) Close() {
	c.cache.Close()
}
