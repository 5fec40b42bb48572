package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Типы событий редактора
const (
	EventCatalogChanged  = "CatalogChanged"
	EventTexturesChanged = "TexturesChanged"
	EventAtlasRebuilt    = "AtlasRebuilt"
	EventSnapshotSaved   = "SnapshotSaved"
	EventSnapshotLoaded  = "SnapshotLoaded"
)

// Source по умолчанию для событий этого сервиса
const DefaultSource = "voxel-editor"

// CatalogChanged публикуется после структурной правки или изменения поля
type CatalogChanged struct {
	Op    string `json:"op"` // create | clone | remove | update | reset | load
	Index int    `json:"index"`
	Field string `json:"field,omitempty"`
	Types int    `json:"types"`
}

// TexturesChanged публикуется после замены текстуры грани
type TexturesChanged struct {
	Index int    `json:"index"`
	Face  string `json:"face"`
}

// AtlasRebuilt публикуется после каждой успешной пересборки
type AtlasRebuilt struct {
	Generation uint64         `json:"generation"`
	Packed     map[string]int `json:"packed"`
	Widths     map[string]int `json:"widths"`
	DurationMs float64        `json:"durationMs"`
}

// SnapshotEvent публикуется при сохранении и загрузке снимка
type SnapshotEvent struct {
	Name  string `json:"name"`
	Types int    `json:"types"`
}

// NewEnvelope упаковывает payload в JSON и заполняет служебные поля
func NewEnvelope(eventType string, payload interface{}) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    DefaultSource,
		EventType: eventType,
		Version:   1,
		Payload:   data,
	}, nil
}

// Decode разбирает Payload в v
func (ev *Envelope) Decode(v interface{}) error {
	return json.Unmarshal(ev.Payload, v)
}
