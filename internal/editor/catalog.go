package editor

import (
	"encoding/json"
	"fmt"

	"github.com/annel0/voxel-editor/internal/blocks"
	"github.com/annel0/voxel-editor/internal/logging"
	"github.com/annel0/voxel-editor/internal/store"
)

// Field это имя редактируемого поля типа блока
type Field string

const (
	FieldName         Field = "name"
	FieldModel        Field = "model"
	FieldHasAlpha     Field = "hasAlpha"
	FieldHasBlending  Field = "hasBlending"
	FieldIsGhost      Field = "isGhost"
	FieldIsUntextured Field = "isUntextured"
	FieldLight        Field = "light"
)

// AffectsPacking сообщает, влияет ли поле на содержимое атласов
func (f Field) AffectsPacking() bool {
	switch f {
	case FieldHasAlpha, FieldHasBlending, FieldIsGhost, FieldIsUntextured, FieldModel:
		return true
	}
	return false
}

// Partial задаёт поля нового типа; nil означает значение по умолчанию
type Partial struct {
	Name         *string       `json:"name,omitempty"`
	Model        *blocks.Model `json:"model,omitempty"`
	HasAlpha     *bool         `json:"hasAlpha,omitempty"`
	HasBlending  *bool         `json:"hasBlending,omitempty"`
	IsGhost      *bool         `json:"isGhost,omitempty"`
	IsUntextured *bool         `json:"isUntextured,omitempty"`
	Light        *float64      `json:"light,omitempty"`
}

func ptr[T any](v T) *T { return &v }

// Встроенные типы, которыми заполняется каталог при сбросе
var defaultTypes = []Partial{
	{Name: ptr("Default block")},
}

// Catalog хранит упорядоченный список типов блоков. Каждая структурная
// правка применяется к банку текстур с тем же индексом в том же шаге.
type Catalog struct {
	cell    *store.Cell[[]blocks.BlockType]
	keys    *KeyGen
	bank    *Bank
	rebuild func()
}

func newCatalog(bank *Bank, rebuild func()) *Catalog {
	return &Catalog{
		cell:    store.NewCell[[]blocks.BlockType](nil),
		keys:    NewKeyGen(),
		bank:    bank,
		rebuild: rebuild,
	}
}

// Len возвращает число типов
func (c *Catalog) Len() int {
	return len(c.cell.Get())
}

// Snapshot возвращает текущий список; вызывающий не должен его менять
func (c *Catalog) Snapshot() []blocks.BlockType {
	return c.cell.Get()
}

// At возвращает тип по индексу
func (c *Catalog) At(index int) (blocks.BlockType, error) {
	types := c.cell.Get()
	if err := checkIndex(index, len(types)); err != nil {
		return blocks.BlockType{}, err
	}
	return types[index], nil
}

// Subscribe подписывает на изменения списка типов
func (c *Catalog) Subscribe(fn store.Subscriber[[]blocks.BlockType]) store.Subscription {
	return c.cell.Subscribe(fn)
}

// Create добавляет новый тип со сгенерированными текстурами
func (c *Catalog) Create(p Partial) (blocks.BlockType, error) {
	t := blocks.BlockType{
		Name:  "New Block",
		Model: blocks.ModelBox,
	}
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Model != nil {
		t.Model = *p.Model
	}
	if p.HasAlpha != nil {
		t.HasAlpha = *p.HasAlpha
	}
	if p.HasBlending != nil {
		t.HasBlending = *p.HasBlending
	}
	if p.IsGhost != nil {
		t.IsGhost = *p.IsGhost
	}
	if p.IsUntextured != nil {
		t.IsUntextured = *p.IsUntextured
	}
	if p.Light != nil {
		t.Light = *p.Light
	}
	if err := t.Validate(); err != nil {
		return blocks.BlockType{}, fmt.Errorf("%w: %w", ErrFieldValue, err)
	}

	t.Key = c.keys.Next()
	c.commit(appendType(c.cell.Get(), t), c.bank.withDefault())

	logging.Debug("Создан тип блока %q (key=%d)", t.Name, t.Key)
	return t, nil
}

// Clone добавляет копию типа index с суффиксом " (Copy)" и копиями текстур
func (c *Catalog) Clone(index int) (blocks.BlockType, error) {
	types := c.cell.Get()
	if err := checkIndex(index, len(types)); err != nil {
		return blocks.BlockType{}, err
	}
	sets, err := c.bank.withClone(index)
	if err != nil {
		return blocks.BlockType{}, err
	}

	t := types[index]
	t.Name += " (Copy)"
	t.Key = c.keys.Next()
	c.commit(appendType(types, t), sets)

	logging.Debug("Тип блока %d склонирован в %q (key=%d)", index, t.Name, t.Key)
	return t, nil
}

// Remove удаляет тип и его текстуры
func (c *Catalog) Remove(index int) error {
	types := c.cell.Get()
	if err := checkIndex(index, len(types)); err != nil {
		return err
	}
	sets, err := c.bank.without(index)
	if err != nil {
		return err
	}

	next := make([]blocks.BlockType, 0, len(types)-1)
	next = append(next, types[:index]...)
	next = append(next, types[index+1:]...)
	c.commit(next, sets)

	logging.Debug("Тип блока %d удалён", index)
	return nil
}

// Update меняет одно поле типа. Включение hasAlpha сбрасывает hasBlending
// и наоборот. Атлас пересобирается только для полей, влияющих на упаковку.
func (c *Catalog) Update(index int, field Field, value interface{}) error {
	types := c.cell.Get()
	if err := checkIndex(index, len(types)); err != nil {
		return err
	}

	t := types[index]
	if err := applyField(&t, field, value); err != nil {
		return err
	}

	next := make([]blocks.BlockType, len(types))
	copy(next, types)
	next[index] = t
	c.cell.Set(next)

	if field.AffectsPacking() {
		c.rebuild()
	}
	return nil
}

// Reset оставляет только встроенные типы и начинает ключи с 1
func (c *Catalog) Reset() {
	c.keys.Reset()
	c.cell.Put(nil)
	c.bank.resetAll()

	for _, p := range defaultTypes {
		if _, err := c.Create(p); err != nil {
			// Встроенные типы валидны; ошибка здесь означает сломанный defaultTypes
			panic(err)
		}
	}
}

// Serialize возвращает переносимый снимок каталога в порядке списка
func (c *Catalog) Serialize() []blocks.Record {
	types := c.cell.Get()
	sets := c.bank.Snapshot()

	records := make([]blocks.Record, len(types))
	for i, t := range types {
		records[i] = blocks.NewRecord(t, sets[i])
	}
	return records
}

// Deserialize заменяет оба списка снимком. Ключи назначаются заново с 1.
// При ошибке в любой записи состояние не меняется.
func (c *Catalog) Deserialize(records []blocks.Record) error {
	types := make([]blocks.BlockType, len(records))
	sets := make([]blocks.TextureSet, len(records))

	for i, rec := range records {
		t, ts, err := rec.Decode()
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		types[i] = t
		sets[i] = ts
	}

	c.keys.Reset()
	for i := range types {
		types[i].Key = c.keys.Next()
	}
	c.commit(types, sets)

	logging.Info("Каталог загружен: %d типов блоков", len(types))
	return nil
}

// commit применяет оба списка, затем уведомляет подписчиков и пересобирает атлас,
// так что ни один подписчик не видит списки разной длины.
func (c *Catalog) commit(types []blocks.BlockType, sets []blocks.TextureSet) {
	c.cell.Put(types)
	c.bank.cell.Put(sets)
	c.cell.Publish()
	c.bank.cell.Publish()
	c.rebuild()
}

func appendType(types []blocks.BlockType, t blocks.BlockType) []blocks.BlockType {
	next := make([]blocks.BlockType, len(types), len(types)+1)
	copy(next, types)
	return append(next, t)
}

func applyField(t *blocks.BlockType, field Field, value interface{}) error {
	switch field {
	case FieldName:
		s, ok := value.(string)
		if !ok {
			return fieldValueError(field, value)
		}
		t.Name = s

	case FieldModel:
		var m blocks.Model
		switch v := value.(type) {
		case blocks.Model:
			m = v
		case string:
			m = blocks.Model(v)
		default:
			return fieldValueError(field, value)
		}
		if !blocks.IsValidModel(m) {
			return fmt.Errorf("%w: %w: %q", ErrFieldValue, blocks.ErrUnknownModel, m)
		}
		t.Model = m

	case FieldHasAlpha, FieldHasBlending, FieldIsGhost, FieldIsUntextured:
		b, ok := value.(bool)
		if !ok {
			return fieldValueError(field, value)
		}
		switch field {
		case FieldHasAlpha:
			t.HasAlpha = b
			if b {
				t.HasBlending = false
			}
		case FieldHasBlending:
			t.HasBlending = b
			if b {
				t.HasAlpha = false
			}
		case FieldIsGhost:
			t.IsGhost = b
		case FieldIsUntextured:
			t.IsUntextured = b
		}

	case FieldLight:
		f, ok := toFloat(value)
		if !ok {
			return fieldValueError(field, value)
		}
		t.Light = f

	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint8:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

func fieldValueError(field Field, value interface{}) error {
	return fmt.Errorf("%w: %s = %v (%T)", ErrFieldValue, field, value, value)
}
