package editor

import (
	"fmt"

	"github.com/annel0/voxel-editor/internal/blocks"
	"github.com/annel0/voxel-editor/internal/store"
)

// Bank хранит текстуры типов блоков, выровненные по индексу с каталогом.
// Структурные изменения (добавление, клон, удаление) делает только Catalog,
// поэтому они не экспортируются.
type Bank struct {
	cell    *store.Cell[[]blocks.TextureSet]
	gen     blocks.Generator
	rebuild func()
}

func newBank(gen blocks.Generator, rebuild func()) *Bank {
	return &Bank{
		cell:    store.NewCell[[]blocks.TextureSet](nil),
		gen:     gen,
		rebuild: rebuild,
	}
}

// Len возвращает число наборов текстур
func (b *Bank) Len() int {
	return len(b.cell.Get())
}

// Snapshot возвращает текущий список. Список не изменяется на месте,
// каждая мутация публикует новый; вызывающий не должен его менять.
func (b *Bank) Snapshot() []blocks.TextureSet {
	return b.cell.Get()
}

// At возвращает копию набора текстур по индексу
func (b *Bank) At(index int) (blocks.TextureSet, error) {
	sets := b.cell.Get()
	if err := checkIndex(index, len(sets)); err != nil {
		return blocks.TextureSet{}, err
	}
	return sets[index], nil
}

// Bitmap возвращает копию текстуры грани
func (b *Bank) Bitmap(index int, face blocks.Face) (blocks.Bitmap, error) {
	ts, err := b.At(index)
	if err != nil {
		return blocks.Bitmap{}, err
	}
	bmp, err := ts.Face(face)
	if err != nil {
		return blocks.Bitmap{}, err
	}
	return *bmp, nil
}

// Subscribe подписывает на изменения списка текстур
func (b *Bank) Subscribe(fn store.Subscriber[[]blocks.TextureSet]) store.Subscription {
	return b.cell.Subscribe(fn)
}

// SetBitmap заменяет текстуру грани и пересобирает атлас
func (b *Bank) SetBitmap(index int, face blocks.Face, bmp blocks.Bitmap) error {
	next, err := b.withBitmap(index, face, bmp)
	if err != nil {
		return err
	}
	b.commit(next)
	return nil
}

// Regenerate заполняет грань новой текстурой генератора; nil = генератор банка
func (b *Bank) Regenerate(index int, face blocks.Face, gen blocks.Generator) error {
	if gen == nil {
		gen = b.gen
	}
	if err := checkIndex(index, b.Len()); err != nil {
		return err
	}
	return b.SetBitmap(index, face, gen.Generate())
}

// Encode кодирует набор текстур для сохранения
func (b *Bank) Encode(index int) (blocks.TexturesRecord, error) {
	ts, err := b.At(index)
	if err != nil {
		return blocks.TexturesRecord{}, err
	}
	return blocks.EncodeTextures(ts), nil
}

func (b *Bank) commit(next []blocks.TextureSet) {
	b.cell.Set(next)
	b.rebuild()
}

// resetAll очищает список без уведомления; каталог сразу заполняет его снова
func (b *Bank) resetAll() {
	b.cell.Put(nil)
}

// Методы with*/without вычисляют новый список, не трогая текущий.
// Каталог применяет результат вместе со своим списком (см. Catalog.commit).

func (b *Bank) withDefault() []blocks.TextureSet {
	sets := b.cell.Get()
	next := make([]blocks.TextureSet, len(sets), len(sets)+1)
	copy(next, sets)
	return append(next, blocks.NewTextureSet(b.gen))
}

func (b *Bank) withClone(index int) ([]blocks.TextureSet, error) {
	sets := b.cell.Get()
	if err := checkIndex(index, len(sets)); err != nil {
		return nil, err
	}
	next := make([]blocks.TextureSet, len(sets), len(sets)+1)
	copy(next, sets)
	// TextureSet состоит из массивов, append копирует пиксели
	return append(next, sets[index]), nil
}

func (b *Bank) without(index int) ([]blocks.TextureSet, error) {
	sets := b.cell.Get()
	if err := checkIndex(index, len(sets)); err != nil {
		return nil, err
	}
	next := make([]blocks.TextureSet, 0, len(sets)-1)
	next = append(next, sets[:index]...)
	return append(next, sets[index+1:]...), nil
}

func (b *Bank) withBitmap(index int, face blocks.Face, bmp blocks.Bitmap) ([]blocks.TextureSet, error) {
	sets := b.cell.Get()
	if err := checkIndex(index, len(sets)); err != nil {
		return nil, err
	}
	next := make([]blocks.TextureSet, len(sets))
	copy(next, sets)
	dst, err := next[index].Face(face)
	if err != nil {
		return nil, err
	}
	*dst = bmp
	return next, nil
}

func checkIndex(index, length int) error {
	if index < 0 || index >= length {
		return fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, index, length)
	}
	return nil
}
