// atlas-dump собирает атласы из сериализованного каталога и пишет их в PNG.
//
//	atlas-dump -in catalog.json -out ./atlases
//	atlas-dump -snapshot forest -data ./data -out ./atlases
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/annel0/voxel-editor/internal/blocks"
	"github.com/annel0/voxel-editor/internal/blocks/atlas"
	"github.com/annel0/voxel-editor/internal/cache"
	"github.com/annel0/voxel-editor/internal/storage"
)

func main() {
	var (
		in       = flag.String("in", "", "JSON файл каталога (массив записей)")
		snapshot = flag.String("snapshot", "", "Имя снимка в хранилище вместо -in")
		dataDir  = flag.String("data", "./data", "Каталог данных хранилища снимков")
		out      = flag.String("out", ".", "Каталог для PNG")
		layout   = flag.Bool("layout", false, "Также записать layout.json с раскладкой слотов")
	)
	flag.Parse()

	records, err := loadRecords(*in, *snapshot, *dataDir)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	set, err := build(records)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		log.Fatalf("❌ %v", err)
	}
	for _, m := range blocks.Materials {
		a := set.Get(m)
		data, err := cache.EncodePNG(a)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		path := filepath.Join(*out, fmt.Sprintf("atlas_%s.png", m))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			log.Fatalf("❌ %v", err)
		}
		fmt.Printf("%-8s %4dx%-3d %3d slots -> %s\n", m, a.Width, a.Height, a.Packed, path)
	}

	if *layout {
		data, err := json.MarshalIndent(set.Layout, "", "  ")
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		if err := os.WriteFile(filepath.Join(*out, "layout.json"), data, 0o644); err != nil {
			log.Fatalf("❌ %v", err)
		}
	}
}

func loadRecords(in, snapshot, dataDir string) ([]blocks.Record, error) {
	switch {
	case snapshot != "":
		store, err := storage.NewCatalogStorage(storage.Options{Path: dataDir})
		if err != nil {
			return nil, err
		}
		defer store.Close()
		snap, err := store.Load(context.Background(), snapshot)
		if err != nil {
			return nil, err
		}
		return snap.Catalog, nil

	case in != "":
		data, err := os.ReadFile(in)
		if err != nil {
			return nil, err
		}
		var records []blocks.Record
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("%s: %w", in, err)
		}
		return records, nil
	}
	return nil, fmt.Errorf("нужен -in или -snapshot")
}

// build разбирает записи так же строго, как загрузка каталога в редакторе
func build(records []blocks.Record) (atlas.Set, error) {
	types := make([]blocks.BlockType, len(records))
	textures := make([]blocks.TextureSet, len(records))
	for i, rec := range records {
		t, ts, err := rec.Decode()
		if err != nil {
			return atlas.Set{}, fmt.Errorf("record %d: %w", i, err)
		}
		t.Key = uint64(i + 1)
		types[i] = t
		textures[i] = ts
	}
	set, err := atlas.Build(types, textures)
	if err != nil {
		return atlas.Set{}, err
	}
	set.Generation = 1
	return set, nil
}
