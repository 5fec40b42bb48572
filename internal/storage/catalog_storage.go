package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/annel0/voxel-editor/internal/logging"
	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"
)

const (
	snapshotPrefix = "snapshot:"
	infoPrefix     = "info:"
)

// Options настраивает CatalogStorage
type Options struct {
	Path             string // Каталог данных; база лежит в <Path>/catalog
	InMemory         bool   // Badger без диска, для тестов
	CompressionLevel int    // 1 fastest .. 4 best
}

// CatalogStorage хранит снимки каталога в BadgerDB.
// Снимок хранится как JSON, сжатый zstd; рядом лежит несжатое SnapshotInfo.
type CatalogStorage struct {
	db      *badger.DB
	dbPath  string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	mutex   sync.RWMutex
	isReady bool
}

var _ SnapshotRepo = (*CatalogStorage)(nil)

// NewCatalogStorage открывает (или создаёт) хранилище снимков
func NewCatalogStorage(o Options) (*CatalogStorage, error) {
	var opts badger.Options
	dbPath := ""
	if o.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		dbPath = filepath.Join(o.Path, "catalog")
		opts = badger.DefaultOptions(dbPath)
	}
	opts.Logger = nil // Отключаем логирование BadgerDB

	level := zstd.SpeedDefault
	if o.CompressionLevel > 0 {
		level = zstd.EncoderLevelFromZstd(o.CompressionLevel)
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, fmt.Errorf("не удалось создать zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("не удалось создать zstd decoder: %w", err)
	}

	db, err := badger.Open(opts)
	if err != nil {
		encoder.Close()
		decoder.Close()
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	logging.Info("Хранилище снимков открыто: %s", describePath(dbPath))
	return &CatalogStorage{
		db:      db,
		dbPath:  dbPath,
		encoder: encoder,
		decoder: decoder,
		isReady: true,
	}, nil
}

func describePath(p string) string {
	if p == "" {
		return "in-memory"
	}
	return p
}

// Close закрывает хранилище; повторный вызов ничего не делает
func (s *CatalogStorage) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isReady {
		return nil
	}
	s.isReady = false
	s.encoder.Close()
	s.decoder.Close()
	return s.db.Close()
}

// Save сохраняет снимок под его именем
func (s *CatalogStorage) Save(ctx context.Context, snap Snapshot) (SnapshotInfo, error) {
	if err := ValidName(snap.Name); err != nil {
		return SnapshotInfo{}, fmt.Errorf("%w: %q", err, snap.Name)
	}
	if err := ctx.Err(); err != nil {
		return SnapshotInfo{}, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isReady {
		return SnapshotInfo{}, ErrNotReady
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("ошибка сериализации снимка: %w", err)
	}
	compressed := s.encoder.EncodeAll(data, nil)

	info := SnapshotInfo{
		Name:    snap.Name,
		SavedAt: snap.SavedAt,
		Types:   len(snap.Catalog),
		Size:    len(compressed),
	}
	infoData, err := json.Marshal(info)
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("ошибка сериализации описания: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(snapshotPrefix+snap.Name), compressed); err != nil {
			return err
		}
		return txn.Set([]byte(infoPrefix+snap.Name), infoData)
	})
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}

	logging.Debug("Снимок %q сохранён: %d типов, %d байт (сырых %d)", snap.Name, info.Types, len(compressed), len(data))
	return info, nil
}

// Load читает снимок по имени
func (s *CatalogStorage) Load(ctx context.Context, name string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isReady {
		return Snapshot{}, ErrNotReady
	}

	var compressed []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(snapshotPrefix + name))
		if err != nil {
			return err
		}
		compressed, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Snapshot{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	data, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("ошибка распаковки снимка %q: %w", name, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("ошибка десериализации снимка %q: %w", name, err)
	}
	return snap, nil
}

// List возвращает описания всех снимков, отсортированные по имени
func (s *CatalogStorage) List(ctx context.Context) ([]SnapshotInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isReady {
		return nil, ErrNotReady
	}

	infos := make([]SnapshotInfo, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(infoPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var info SnapshotInfo
				if err := json.Unmarshal(val, &info); err != nil {
					return err
				}
				infos = append(infos, info)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения списка снимков: %w", err)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Delete удаляет снимок; отсутствующий снимок это ErrNotFound
func (s *CatalogStorage) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isReady {
		return ErrNotReady
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(infoPrefix + name)); err != nil {
			return err
		}
		if err := txn.Delete([]byte(snapshotPrefix + name)); err != nil {
			return err
		}
		return txn.Delete([]byte(infoPrefix + name))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("ошибка удаления из BadgerDB: %w", err)
	}
	return nil
}
