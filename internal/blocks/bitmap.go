package blocks

import (
	"errors"
	"fmt"
)

const (
	TextureWidth  = 16
	TextureHeight = 16
	BytesPerPixel = 4 // RGBA
	BitmapSize    = TextureWidth * TextureHeight * BytesPerPixel
)

var ErrBitmapSize = errors.New("bitmap must be 16x16 RGBA")

// Bitmap хранит одну текстуру грани: 16x16 пикселей RGBA построчно.
// Это массив, поэтому присваивание копирует пиксели.
type Bitmap [BitmapSize]byte

// BitmapFromBytes копирует буфер вызывающей стороны в Bitmap
func BitmapFromBytes(data []byte) (Bitmap, error) {
	var b Bitmap
	if len(data) != BitmapSize {
		return b, fmt.Errorf("%w: got %d bytes, want %d", ErrBitmapSize, len(data), BitmapSize)
	}
	copy(b[:], data)
	return b, nil
}

func pixelOffset(x, y int) int {
	return (y*TextureWidth + x) * BytesPerPixel
}

// At возвращает компоненты пикселя (x, y)
func (b *Bitmap) At(x, y int) (r, g, bl, a uint8) {
	i := pixelOffset(x, y)
	return b[i], b[i+1], b[i+2], b[i+3]
}

// Set записывает пиксель (x, y)
func (b *Bitmap) Set(x, y int, r, g, bl, a uint8) {
	i := pixelOffset(x, y)
	b[i], b[i+1], b[i+2], b[i+3] = r, g, bl, a
}

// Fill заливает текстуру одним цветом
func (b *Bitmap) Fill(r, g, bl, a uint8) {
	for y := 0; y < TextureHeight; y++ {
		for x := 0; x < TextureWidth; x++ {
			b.Set(x, y, r, g, bl, a)
		}
	}
}

// TextureSet это три текстуры одного типа блока
type TextureSet struct {
	Bottom Bitmap
	Side   Bitmap
	Top    Bitmap
}

// Face возвращает указатель на текстуру грани
func (ts *TextureSet) Face(f Face) (*Bitmap, error) {
	switch f {
	case FaceBottom:
		return &ts.Bottom, nil
	case FaceSide:
		return &ts.Side, nil
	case FaceTop:
		return &ts.Top, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownFace, int(f))
}

// NewTextureSet генерирует три независимые текстуры
func NewTextureSet(gen Generator) TextureSet {
	return TextureSet{
		Bottom: gen.Generate(),
		Side:   gen.Generate(),
		Top:    gen.Generate(),
	}
}
