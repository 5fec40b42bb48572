// Package atlas упаковывает видимые текстуры каталога в три атласа по материалам.
//
// Каждая текстура 16x16 занимает слот 18x18: внутренняя область это сама
// текстура, однопиксельная рамка повторяет ближайший край той же текстуры,
// чтобы фильтрация не подмешивала соседний слот. Атлас всегда шириной не
// меньше MinSlots слотов, неиспользованные слоты остаются нулевыми.
package atlas

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/annel0/voxel-editor/internal/blocks"
)

const (
	Border    = 1
	SlotWidth = blocks.TextureWidth + 2*Border
	Height    = blocks.TextureHeight + 2*Border
	MinSlots  = 9
)

var ErrMisaligned = errors.New("block types and texture sets are not aligned")

// Atlas это упакованный буфер одного материала
type Atlas struct {
	Material blocks.Material `json:"material"`
	Pixels   []byte          `json:"-"`
	Width    int             `json:"width"`
	Height   int             `json:"height"`
	Stride   int             `json:"stride"` // Байт на пиксель: 4 с альфой, 3 без
	Packed   int             `json:"packed"` // Число занятых слотов
}

// Placement показывает, куда попали грани типа. -1 означает, что грань не упакована.
type Placement struct {
	Material blocks.Material `json:"material"`
	Top      int             `json:"top"`
	Side     int             `json:"side"`
	Bottom   int             `json:"bottom"`
}

// Set это результат одной пересборки
type Set struct {
	Generation uint64      `json:"generation"`
	Opaque     Atlas       `json:"opaque"`
	Alpha      Atlas       `json:"alpha"`
	Blending   Atlas       `json:"blending"`
	Layout     []Placement `json:"layout"`
}

// Get возвращает атлас материала
func (s *Set) Get(m blocks.Material) *Atlas {
	switch m {
	case blocks.MaterialAlpha:
		return &s.Alpha
	case blocks.MaterialBlending:
		return &s.Blending
	default:
		return &s.Opaque
	}
}

// Build собирает все три атласа заново. Функция чистая: результат зависит
// только от типов и текстур, которые должны быть выровнены по индексу.
func Build(types []blocks.BlockType, textures []blocks.TextureSet) (Set, error) {
	if len(types) != len(textures) {
		return Set{}, fmt.Errorf("%w: %d types, %d texture sets", ErrMisaligned, len(types), len(textures))
	}

	var buckets [len(blocks.Materials)][]*blocks.Bitmap
	layout := make([]Placement, len(types))

	for i, t := range types {
		m := t.Material()
		place := Placement{Material: m, Top: -1, Side: -1, Bottom: -1}

		for _, face := range t.PackedFaces() {
			bmp, err := textures[i].Face(face)
			if err != nil {
				return Set{}, err
			}
			slot := len(buckets[m])
			buckets[m] = append(buckets[m], bmp)

			switch face {
			case blocks.FaceTop:
				place.Top = slot
			case blocks.FaceSide:
				place.Side = slot
			case blocks.FaceBottom:
				place.Bottom = slot
			}
		}
		layout[i] = place
	}

	set := Set{Layout: layout}
	for _, m := range blocks.Materials {
		*set.Get(m) = pack(m, buckets[m])
	}
	return set, nil
}

func pack(m blocks.Material, bitmaps []*blocks.Bitmap) Atlas {
	slots := len(bitmaps)
	if slots < MinSlots {
		slots = MinSlots
	}

	a := Atlas{
		Material: m,
		Width:    slots * SlotWidth,
		Height:   Height,
		Stride:   m.Stride(),
		Packed:   len(bitmaps),
	}
	a.Pixels = make([]byte, a.Width*a.Height*a.Stride)

	for slot, bmp := range bitmaps {
		a.blit(slot, bmp)
	}
	return a
}

// blit копирует текстуру в слот вместе с рамкой.
// Рамка берёт ближайшую строку/столбец текстуры (edge-clamp).
func (a *Atlas) blit(slot int, bmp *blocks.Bitmap) {
	rowBytes := a.Width * a.Stride
	left := slot * SlotWidth

	for y := 0; y < Height; y++ {
		sy := clamp(y-Border, blocks.TextureHeight)
		for x := 0; x < SlotWidth; x++ {
			sx := clamp(x-Border, blocks.TextureWidth)
			src := (sy*blocks.TextureWidth + sx) * blocks.BytesPerPixel
			dst := y*rowBytes + (left+x)*a.Stride
			copy(a.Pixels[dst:dst+a.Stride], bmp[src:src+a.Stride])
		}
	}
}

func clamp(v, size int) int {
	if v < 0 {
		return 0
	}
	if v >= size {
		return size - 1
	}
	return v
}

// Image переводит атлас в NRGBA; у непрозрачного атласа альфа 255
func (a *Atlas) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, a.Width, a.Height))
	for y := 0; y < a.Height; y++ {
		for x := 0; x < a.Width; x++ {
			p := (y*a.Width + x) * a.Stride
			c := color.NRGBA{R: a.Pixels[p], G: a.Pixels[p+1], B: a.Pixels[p+2], A: 0xFF}
			if a.Stride == 4 {
				c.A = a.Pixels[p+3]
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}
