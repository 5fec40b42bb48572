package blocks

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrUnknownModel    = errors.New("unknown block model")
	ErrUnknownFace     = errors.New("unknown texture face")
	ErrUnknownMaterial = errors.New("unknown material")
	ErrInvalidRecord   = errors.New("invalid block type record")
)

// Model описывает форму блока для рендерера
type Model string

const (
	ModelBox   Model = "box"
	ModelCross Model = "cross" // Рисуется двумя скрещенными плоскостями, нужна только верхняя текстура
)

var (
	modelsMu sync.RWMutex
	models   = map[Model]struct{}{
		ModelBox:   {},
		ModelCross: {},
	}
)

// RegisterModel добавляет модель, которую умеет рисовать рендерер
func RegisterModel(m Model) {
	modelsMu.Lock()
	models[m] = struct{}{}
	modelsMu.Unlock()
}

// IsValidModel проверяет, зарегистрирована ли модель
func IsValidModel(m Model) bool {
	modelsMu.RLock()
	_, exists := models[m]
	modelsMu.RUnlock()
	return exists
}

// Models возвращает отсортированный список зарегистрированных моделей
func Models() []Model {
	modelsMu.RLock()
	defer modelsMu.RUnlock()

	list := make([]Model, 0, len(models))
	for m := range models {
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	return list
}

// Material определяет проход рендера и, соответственно, атлас
type Material int

const (
	MaterialOpaque Material = iota
	MaterialAlpha
	MaterialBlending
)

// Materials перечисляет все материалы в порядке атласов
var Materials = [...]Material{MaterialOpaque, MaterialAlpha, MaterialBlending}

func (m Material) String() string {
	switch m {
	case MaterialOpaque:
		return "opaque"
	case MaterialAlpha:
		return "alpha"
	case MaterialBlending:
		return "blending"
	default:
		return "unknown"
	}
}

// HasAlpha сообщает, хранит ли атлас материала альфа-канал
func (m Material) HasAlpha() bool {
	return m != MaterialOpaque
}

// Stride возвращает число байт на пиксель в атласе материала
func (m Material) Stride() int {
	if m.HasAlpha() {
		return 4
	}
	return 3
}

// ParseMaterial разбирает имя материала
func ParseMaterial(s string) (Material, error) {
	for _, m := range Materials {
		if m.String() == s {
			return m, nil
		}
	}
	return MaterialOpaque, fmt.Errorf("%w: %q", ErrUnknownMaterial, s)
}

// Face это одна из трёх граней с отдельной текстурой
type Face int

const (
	FaceBottom Face = iota
	FaceSide
	FaceTop
)

// Faces перечисляет грани в порядке хранения
var Faces = [...]Face{FaceBottom, FaceSide, FaceTop}

func (f Face) String() string {
	switch f {
	case FaceBottom:
		return "bottom"
	case FaceSide:
		return "side"
	case FaceTop:
		return "top"
	default:
		return "unknown"
	}
}

// ParseFace разбирает имя грани
func ParseFace(s string) (Face, error) {
	for _, f := range Faces {
		if f.String() == s {
			return f, nil
		}
	}
	return FaceBottom, fmt.Errorf("%w: %q", ErrUnknownFace, s)
}

// BlockType описывает тип блока в каталоге редактора.
// Key уникален в пределах каталога и не сохраняется при сериализации.
type BlockType struct {
	Key          uint64  `json:"key"`
	Name         string  `json:"name"`
	Model        Model   `json:"model"`
	HasAlpha     bool    `json:"hasAlpha"`
	HasBlending  bool    `json:"hasBlending"`
	IsGhost      bool    `json:"isGhost"`
	IsUntextured bool    `json:"isUntextured"`
	Light        float64 `json:"light"`
}

// Visible сообщает, попадают ли текстуры типа в атлас
func (t BlockType) Visible() bool {
	return !t.IsGhost && !t.IsUntextured
}

// Material возвращает материал типа; альфа имеет приоритет над смешиванием
func (t BlockType) Material() Material {
	switch {
	case t.HasAlpha:
		return MaterialAlpha
	case t.HasBlending:
		return MaterialBlending
	default:
		return MaterialOpaque
	}
}

// PackedFaces возвращает грани в порядке упаковки в атлас.
// Для cross упаковывается только верх; невидимые типы не упаковываются.
func (t BlockType) PackedFaces() []Face {
	if !t.Visible() {
		return nil
	}
	if t.Model == ModelCross {
		return []Face{FaceTop}
	}
	return []Face{FaceTop, FaceSide, FaceBottom}
}

// Validate проверяет инварианты типа
func (t BlockType) Validate() error {
	if t.HasAlpha && t.HasBlending {
		return fmt.Errorf("%w: %q has both hasAlpha and hasBlending", ErrInvalidRecord, t.Name)
	}
	if !IsValidModel(t.Model) {
		return fmt.Errorf("%w: %q", ErrUnknownModel, t.Model)
	}
	return nil
}
