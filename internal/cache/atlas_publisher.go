package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/voxel-editor/internal/blocks"
	"github.com/annel0/voxel-editor/internal/blocks/atlas"
	"github.com/annel0/voxel-editor/internal/logging"
	"github.com/go-redis/redis/v8"
)

// PublisherConfig настраивает AtlasPublisher.
type PublisherConfig struct {
	Addr      string
	Password  string
	DB        int
	TTL       time.Duration // 0 = без истечения
	KeyPrefix string        // По умолчанию "editor:atlas"
}

// AtlasMeta описание атласов без пикселей; кладётся в <prefix>:meta
type AtlasMeta struct {
	Generation uint64            `json:"generation"`
	Atlases    []atlas.Atlas     `json:"atlases"`
	Layout     []atlas.Placement `json:"layout"`
}

// AtlasPublisher держит в Redis горячую копию последних атласов для
// процессов рендера: сырые пиксели в <prefix>:<material>, описание в
// <prefix>:meta и номер поколения в канал <prefix>:rebuilt.
//
// Publish не блокирует: если запись ещё идёт, ожидающий Set заменяется
// новым, и в Redis попадает только последнее поколение.
type AtlasPublisher struct {
	client *redis.Client
	config PublisherConfig
	write  func(ctx context.Context, set atlas.Set) error

	pending chan atlas.Set
	stop    chan struct{}
	wg      sync.WaitGroup

	published uint64
	skipped   uint64
	failed    uint64
}

// NewAtlasPublisher подключается к Redis и запускает фоновую запись.
func NewAtlasPublisher(config PublisherConfig) (*AtlasPublisher, error) {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "editor:atlas"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	// Проверяем соединение
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	p := newPublisher(config, nil)
	p.client = rdb
	p.write = p.writeRedis

	logging.Info("Redis atlas publisher initialized: %s (prefix %s)", config.Addr, config.KeyPrefix)
	return p, nil
}

func newPublisher(config PublisherConfig, write func(context.Context, atlas.Set) error) *AtlasPublisher {
	p := &AtlasPublisher{
		config:  config,
		write:   write,
		pending: make(chan atlas.Set, 1),
		stop:    make(chan struct{}),
	}
	p.wg.Add(1)
	go p.loop()
	return p
}

// Publish ставит Set в очередь на запись, вытесняя ещё не записанный.
func (p *AtlasPublisher) Publish(set atlas.Set) {
	for {
		select {
		case p.pending <- set:
			return
		default:
		}
		select {
		case <-p.pending:
			atomic.AddUint64(&p.skipped, 1)
		default:
		}
	}
}

func (p *AtlasPublisher) loop() {
	defer p.wg.Done()
	for {
		select {
		case set := <-p.pending:
			p.flush(set)
		case <-p.stop:
			// Последнее ожидающее поколение записываем перед выходом
			select {
			case set := <-p.pending:
				p.flush(set)
			default:
			}
			return
		}
	}
}

func (p *AtlasPublisher) flush(set atlas.Set) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.write(ctx, set); err != nil {
		atomic.AddUint64(&p.failed, 1)
		logging.Warn("Не удалось опубликовать атлас #%d: %v", set.Generation, err)
		return
	}
	atomic.AddUint64(&p.published, 1)
}

func (p *AtlasPublisher) key(suffix string) string {
	return p.config.KeyPrefix + ":" + suffix
}

// writeRedis записывает все ключи одной транзакцией и оповещает подписчиков канала
func (p *AtlasPublisher) writeRedis(ctx context.Context, set atlas.Set) error {
	meta := AtlasMeta{Generation: set.Generation, Layout: set.Layout}
	for _, m := range blocks.Materials {
		meta.Atlases = append(meta.Atlases, *set.Get(m))
	}
	metaData, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, m := range blocks.Materials {
			pipe.Set(ctx, p.key(m.String()), set.Get(m).Pixels, p.config.TTL)
		}
		pipe.Set(ctx, p.key("meta"), metaData, p.config.TTL)
		pipe.Publish(ctx, p.key("rebuilt"), set.Generation)
		return nil
	})
	return err
}

// Stats возвращает число записанных, вытесненных и неудачных публикаций
func (p *AtlasPublisher) Stats() (published, skipped, failed uint64) {
	return atomic.LoadUint64(&p.published), atomic.LoadUint64(&p.skipped), atomic.LoadUint64(&p.failed)
}

// Close дописывает ожидающий Set и закрывает соединение.
func (p *AtlasPublisher) Close() error {
	close(p.stop)
	p.wg.Wait()
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
