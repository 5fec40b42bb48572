package storage

import (
	"context"
	"errors"
	"time"

	"github.com/annel0/voxel-editor/internal/blocks"
	"github.com/annel0/voxel-editor/internal/editor"
)

var (
	ErrNotFound = errors.New("snapshot not found")
	ErrNotReady = errors.New("storage is closed")
	ErrBadName  = errors.New("invalid snapshot name")
)

// Snapshot это именованный снимок состояния редактора
type Snapshot struct {
	Name     string          `json:"name"`
	SavedAt  time.Time       `json:"savedAt"`
	Catalog  []blocks.Record `json:"catalog"`
	Lighting editor.Lighting `json:"lighting"`
	Script   string          `json:"script"`
}

// SnapshotInfo краткое описание снимка для списка, без текстур
type SnapshotInfo struct {
	Name    string    `json:"name"`
	SavedAt time.Time `json:"savedAt"`
	Types   int       `json:"types"`
	Size    int       `json:"size"` // Размер сжатых данных в байтах
}

// SnapshotRepo определяет хранилище именованных снимков.
// Save перезаписывает снимок с тем же именем.
type SnapshotRepo interface {
	Save(ctx context.Context, snap Snapshot) (SnapshotInfo, error)
	Load(ctx context.Context, name string) (Snapshot, error)
	List(ctx context.Context) ([]SnapshotInfo, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

// ValidName проверяет имя снимка: 1..64 символа из букв, цифр, '-', '_' и '.'
func ValidName(name string) error {
	if name == "" || len(name) > 64 {
		return ErrBadName
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return ErrBadName
		}
	}
	return nil
}
