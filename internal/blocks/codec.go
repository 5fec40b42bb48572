package blocks

import (
	"encoding/base64"
	"errors"
	"fmt"
)

var ErrDecode = errors.New("texture decode failed")

// TexturesRecord это переносимая форма TextureSet: base64 сырых байт каждой грани
type TexturesRecord struct {
	Bottom string `json:"bottom"`
	Side   string `json:"side"`
	Top    string `json:"top"`
}

// Record это сохраняемая форма типа блока вместе с текстурами, без Key
type Record struct {
	Name         string         `json:"name"`
	Model        Model          `json:"model"`
	HasAlpha     bool           `json:"hasAlpha"`
	HasBlending  bool           `json:"hasBlending"`
	IsGhost      bool           `json:"isGhost"`
	IsUntextured bool           `json:"isUntextured"`
	Light        float64        `json:"light"`
	Textures     TexturesRecord `json:"textures"`
}

// EncodeBitmap кодирует сырые байты текстуры в base64
func EncodeBitmap(b Bitmap) string {
	return base64.StdEncoding.EncodeToString(b[:])
}

// DecodeBitmap разбирает base64 и требует ровно BitmapSize байт
func DecodeBitmap(s string) (Bitmap, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Bitmap{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	b, err := BitmapFromBytes(raw)
	if err != nil {
		return Bitmap{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return b, nil
}

// EncodeTextures кодирует все три грани
func EncodeTextures(ts TextureSet) TexturesRecord {
	return TexturesRecord{
		Bottom: EncodeBitmap(ts.Bottom),
		Side:   EncodeBitmap(ts.Side),
		Top:    EncodeBitmap(ts.Top),
	}
}

// DecodeTextures разбирает все три грани; ошибка в любой грани отменяет результат
func DecodeTextures(rec TexturesRecord) (TextureSet, error) {
	var ts TextureSet
	var err error

	if ts.Bottom, err = DecodeBitmap(rec.Bottom); err != nil {
		return TextureSet{}, fmt.Errorf("bottom: %w", err)
	}
	if ts.Side, err = DecodeBitmap(rec.Side); err != nil {
		return TextureSet{}, fmt.Errorf("side: %w", err)
	}
	if ts.Top, err = DecodeBitmap(rec.Top); err != nil {
		return TextureSet{}, fmt.Errorf("top: %w", err)
	}
	return ts, nil
}

// NewRecord собирает запись из типа и его текстур
func NewRecord(t BlockType, ts TextureSet) Record {
	return Record{
		Name:         t.Name,
		Model:        t.Model,
		HasAlpha:     t.HasAlpha,
		HasBlending:  t.HasBlending,
		IsGhost:      t.IsGhost,
		IsUntextured: t.IsUntextured,
		Light:        t.Light,
		Textures:     EncodeTextures(ts),
	}
}

// Decode восстанавливает тип (с нулевым Key) и текстуры из записи
func (r Record) Decode() (BlockType, TextureSet, error) {
	t := BlockType{
		Name:         r.Name,
		Model:        r.Model,
		HasAlpha:     r.HasAlpha,
		HasBlending:  r.HasBlending,
		IsGhost:      r.IsGhost,
		IsUntextured: r.IsUntextured,
		Light:        r.Light,
	}
	if err := t.Validate(); err != nil {
		return BlockType{}, TextureSet{}, err
	}

	ts, err := DecodeTextures(r.Textures)
	if err != nil {
		return BlockType{}, TextureSet{}, err
	}
	return t, ts, nil
}
