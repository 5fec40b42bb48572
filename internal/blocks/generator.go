package blocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/aquilax/go-perlin"
)

// Generator создаёт текстуры по умолчанию для новых типов блоков
type Generator interface {
	Generate() Bitmap
}

// BevelGenerator даёт почти белую текстуру со светлой фаской:
// яркость случайна в [0.9, 0.95), крайний ряд темнее (x0.9), второй светлее (x1.2).
type BevelGenerator struct {
	rng *rand.Rand
}

// NewBevelGenerator создаёт генератор; seed 0 берётся от текущего времени
func NewBevelGenerator(seed int64) *BevelGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &BevelGenerator{rng: rand.New(rand.NewSource(seed))}
}

func (g *BevelGenerator) Generate() Bitmap {
	var b Bitmap
	for y := 0; y < TextureHeight; y++ {
		for x := 0; x < TextureWidth; x++ {
			light := 0.9 + g.rng.Float64()*0.05
			v := shade(bevel(x, y, light))
			b.Set(x, y, v, v, v, 0xFF)
		}
	}
	return b
}

// PerlinGenerator даёт шумовую текстуру с той же фаской.
// Каждый вызов сдвигает область шума, так что грани не повторяются.
type PerlinGenerator struct {
	noise  *perlin.Perlin
	offset float64
}

// NewPerlinGenerator создаёт генератор шума; seed 0 берётся от текущего времени
func NewPerlinGenerator(seed int64) *PerlinGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав
	return &PerlinGenerator{noise: perlin.NewPerlin(alpha, beta, n, seed)}
}

func (g *PerlinGenerator) Generate() Bitmap {
	var b Bitmap
	for y := 0; y < TextureHeight; y++ {
		for x := 0; x < TextureWidth; x++ {
			n := g.noise.Noise2D((float64(x)+g.offset)/8, float64(y)/8) // [-1, 1]
			light := 0.75 + n*0.2
			v := shade(bevel(x, y, light))
			b.Set(x, y, v, v, v, 0xFF)
		}
	}
	g.offset += TextureWidth * 2
	return b
}

func bevel(x, y int, light float64) float64 {
	last := TextureWidth - 1
	switch {
	case x == 0 || x == last || y == 0 || y == last:
		return light * 0.9
	case x == 1 || x == last-1 || y == 1 || y == last-1:
		return light * 1.2
	}
	return light
}

// shade переводит яркость [0, 1] в байт с отсечением
func shade(light float64) uint8 {
	return uint8(math.Floor(math.Min(math.Max(light, 0), 1) * 0xFF))
}
