package atlas

import (
	"testing"

	"github.com/annel0/voxel-editor/internal/blocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gradient кодирует координаты пикселя в цвет, чтобы проверять, откуда взят байт
func gradient(tag uint8) blocks.Bitmap {
	var b blocks.Bitmap
	for y := 0; y < blocks.TextureHeight; y++ {
		for x := 0; x < blocks.TextureWidth; x++ {
			b.Set(x, y, uint8(x), uint8(y), tag, 100+tag)
		}
	}
	return b
}

func uniformSet(tag uint8) blocks.TextureSet {
	return blocks.TextureSet{Bottom: gradient(tag), Side: gradient(tag + 1), Top: gradient(tag + 2)}
}

func pixel(a *Atlas, x, y int) []byte {
	p := (y*a.Width + x) * a.Stride
	return a.Pixels[p : p+a.Stride]
}

func TestBuild_EmptyCatalogProducesMinimumAtlases(t *testing.T) {
	set, err := Build(nil, nil)
	require.NoError(t, err)

	for _, m := range blocks.Materials {
		a := set.Get(m)
		assert.Equal(t, MinSlots*SlotWidth, a.Width)
		assert.Equal(t, Height, a.Height)
		assert.Equal(t, 0, a.Packed)
		assert.Len(t, a.Pixels, a.Width*a.Height*m.Stride())
		for _, v := range a.Pixels {
			require.Zero(t, v)
		}
	}
}

func TestBuild_MinimumWidthAndGrowth(t *testing.T) {
	for count := 0; count <= 4; count++ {
		types := make([]blocks.BlockType, count)
		textures := make([]blocks.TextureSet, count)
		for i := range types {
			types[i] = blocks.BlockType{Model: blocks.ModelBox}
		}
		set, err := Build(types, textures)
		require.NoError(t, err)

		packed := count * 3
		want := MinSlots
		if packed > want {
			want = packed
		}
		assert.Equal(t, packed, set.Opaque.Packed)
		assert.Equal(t, want*SlotWidth, set.Opaque.Width, "types=%d", count)
	}
}

func TestBuild_ClassificationAndFaces(t *testing.T) {
	types := []blocks.BlockType{
		{Model: blocks.ModelBox},
		{Model: blocks.ModelCross, HasAlpha: true},
		{Model: blocks.ModelBox, HasBlending: true},
		{Model: blocks.ModelBox, IsGhost: true},
		{Model: blocks.ModelCross, IsUntextured: true, HasAlpha: true},
		{Model: blocks.ModelCross},
	}
	textures := make([]blocks.TextureSet, len(types))

	set, err := Build(types, textures)
	require.NoError(t, err)

	assert.Equal(t, 4, set.Opaque.Packed, "box (3) + cross (1)")
	assert.Equal(t, 1, set.Alpha.Packed)
	assert.Equal(t, 3, set.Blending.Packed)

	assert.Equal(t, Placement{Material: blocks.MaterialOpaque, Top: 0, Side: 1, Bottom: 2}, set.Layout[0])
	assert.Equal(t, Placement{Material: blocks.MaterialAlpha, Top: 0, Side: -1, Bottom: -1}, set.Layout[1])
	assert.Equal(t, Placement{Material: blocks.MaterialBlending, Top: 0, Side: 1, Bottom: 2}, set.Layout[2])
	assert.Equal(t, Placement{Material: blocks.MaterialOpaque, Top: -1, Side: -1, Bottom: -1}, set.Layout[3])
	assert.Equal(t, Placement{Material: blocks.MaterialAlpha, Top: -1, Side: -1, Bottom: -1}, set.Layout[4])
	assert.Equal(t, Placement{Material: blocks.MaterialOpaque, Top: 3, Side: -1, Bottom: -1}, set.Layout[5])
}

func TestBuild_PacksTopSideBottomWithBorder(t *testing.T) {
	types := []blocks.BlockType{{Model: blocks.ModelBox, HasAlpha: true}}
	textures := []blocks.TextureSet{uniformSet(10)}

	set, err := Build(types, textures)
	require.NoError(t, err)
	a := &set.Alpha
	require.Equal(t, 4, a.Stride)

	// Порядок слотов: top (tag 12), side (11), bottom (10)
	for slot, tag := range []uint8{12, 11, 10} {
		left := slot * SlotWidth
		for y := 0; y < Height; y++ {
			for x := 0; x < SlotWidth; x++ {
				sx, sy := clamp(x-1, 16), clamp(y-1, 16)
				want := []byte{uint8(sx), uint8(sy), tag, 100 + tag}
				require.Equal(t, want, pixel(a, left+x, y), "slot=%d x=%d y=%d", slot, x, y)
			}
		}
	}

	// Неиспользуемые слоты нулевые
	for y := 0; y < Height; y++ {
		for x := 3 * SlotWidth; x < a.Width; x++ {
			require.Equal(t, []byte{0, 0, 0, 0}, pixel(a, x, y))
		}
	}
}

func TestBuild_BorderReplicatesEdges(t *testing.T) {
	types := []blocks.BlockType{{Model: blocks.ModelCross}}
	textures := []blocks.TextureSet{{Top: gradient(1)}}

	set, err := Build(types, textures)
	require.NoError(t, err)
	a := &set.Opaque
	require.Equal(t, 3, a.Stride)

	// Углы рамки повторяют угловые пиксели текстуры
	assert.Equal(t, []byte{0, 0, 1}, pixel(a, 0, 0))
	assert.Equal(t, []byte{15, 0, 1}, pixel(a, 17, 0))
	assert.Equal(t, []byte{0, 15, 1}, pixel(a, 0, 17))
	assert.Equal(t, []byte{15, 15, 1}, pixel(a, 17, 17))

	// Левый/правый столбцы рамки повторяют крайний столбец той же строки
	assert.Equal(t, []byte{0, 6, 1}, pixel(a, 0, 7))
	assert.Equal(t, []byte{15, 6, 1}, pixel(a, 17, 7))

	// Верхняя/нижняя строки рамки повторяют крайнюю строку того же столбца
	assert.Equal(t, []byte{4, 0, 1}, pixel(a, 5, 0))
	assert.Equal(t, []byte{4, 15, 1}, pixel(a, 5, 17))

	// Внутренняя область это сама текстура со сдвигом на рамку
	assert.Equal(t, []byte{0, 0, 1}, pixel(a, 1, 1))
	assert.Equal(t, []byte{15, 15, 1}, pixel(a, 16, 16))
}

func TestBuild_Misaligned(t *testing.T) {
	_, err := Build(make([]blocks.BlockType, 2), make([]blocks.TextureSet, 1))
	assert.ErrorIs(t, err, ErrMisaligned)
}

func TestBuild_DoesNotAliasInput(t *testing.T) {
	types := []blocks.BlockType{{Model: blocks.ModelBox}}
	textures := []blocks.TextureSet{uniformSet(0)}

	set, err := Build(types, textures)
	require.NoError(t, err)
	before := append([]byte(nil), set.Opaque.Pixels...)

	textures[0].Top.Fill(9, 9, 9, 9)
	assert.Equal(t, before, set.Opaque.Pixels)
}

func TestAtlas_Image(t *testing.T) {
	types := []blocks.BlockType{{Model: blocks.ModelCross}, {Model: blocks.ModelCross, HasBlending: true}}
	textures := []blocks.TextureSet{{Top: gradient(3)}, {Top: gradient(4)}}

	set, err := Build(types, textures)
	require.NoError(t, err)

	img := set.Opaque.Image()
	assert.Equal(t, set.Opaque.Width, img.Bounds().Dx())
	assert.Equal(t, Height, img.Bounds().Dy())
	c := img.NRGBAAt(2, 3)
	assert.Equal(t, uint8(1), c.R)
	assert.Equal(t, uint8(2), c.G)
	assert.Equal(t, uint8(0xFF), c.A, "у непрозрачного атласа альфа 255")

	blend := set.Blending.Image()
	assert.Equal(t, uint8(104), blend.NRGBAAt(2, 3).A)
	assert.Equal(t, uint8(0), blend.NRGBAAt(SlotWidth+2, 3).A, "пустой слот прозрачен")
}
