package agent

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/mwantia/fabric/pkg/container"
	"github.com/mwantia/memobox/internal/config"
	"github.com/mwantia/memobox/pkg/db/store"
	"github.com/mwantia/memobox/pkg/log"
	"github.com/mwantia/memobox/pkg/mediaindex"
	"github.com/mwantia/memobox/pkg/repository"
	"github.com/mwantia/memobox/pkg/storage"
	"gorm.io/gorm/logger"
)

// MemoboxAgent is the single ownership root. It opens the store, the
// storage backend and both repositories once and tears them down in
// reverse order.
type MemoboxAgent struct {
	mutex sync.RWMutex
	wait  sync.WaitGroup

	cfg *config.BaseConfig
	sc  *container.ServiceContainer
	log log.LoggerService

	store   *store.SQLiteStore
	backend storage.Backend
	items   *repository.ItemRepository
	tags    *repository.TagRepository
}

func NewAgent(cfg *config.BaseConfig) *MemoboxAgent {
	return &MemoboxAgent{
		cfg: cfg,
		sc:  container.NewServiceContainer(),
		log: log.NewLoggerService("memobox", cfg.Log),
	}
}

// NewAgentWithLogger uses logger instead of building one from the config.
func NewAgentWithLogger(cfg *config.BaseConfig, logger log.LoggerService) *MemoboxAgent {
	return &MemoboxAgent{
		cfg: cfg,
		sc:  container.NewServiceContainer(),
		log: logger,
	}
}

func (ma *MemoboxAgent) setupServices() error {
	errs := container.Errors{}

	ma.log.Debug("Registering 'LoggerService'...")
	errs.Add(container.Register[log.LoggerServiceImpl](ma.sc,
		container.With[log.LoggerService](),
		container.WithInstance(ma.log)))

	ma.log.Debug("Registering 'MetadataStore'...")
	errs.Add(container.Register[store.SQLiteStore](ma.sc,
		container.With[store.MetadataStore](),
		container.WithInstance(ma.store)))

	return errs.Errors()
}

func (ma *MemoboxAgent) namedLogger(ctx context.Context, name string) log.LoggerService {
	logger, err := log.ResolveLogger(ctx, ma.sc, "logger:"+name)
	if err != nil {
		ma.log.Warn("Failed to resolve logger '%s': %v", name, err)
		return ma.log.Named(name)
	}
	return logger
}

// Open builds every component. On failure everything opened so far is closed.
func (ma *MemoboxAgent) Open(ctx context.Context) error {
	ma.mutex.Lock()
	defer ma.mutex.Unlock()

	if ma.store != nil {
		return fmt.Errorf("agent is already open")
	}

	if err := ma.open(ctx); err != nil {
		ma.close(ctx)
		return err
	}
	return nil
}

func (ma *MemoboxAgent) open(ctx context.Context) error {
	gormLevel := logger.Silent
	if ma.log.Level() <= log.Debug {
		gormLevel = logger.Info
	}

	st, err := store.NewSQLiteStore(store.SQLiteConfig{
		Path:        ma.cfg.Metadata.SQLite.Path,
		BusyTimeout: ma.cfg.Metadata.SQLite.BusyTimeout,
		LogLevel:    gormLevel,
		Logger:      ma.log.Named("store"),
	})
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	ma.store = st

	if err := st.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect store: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate store: %w", err)
	}

	if err := ma.setupServices(); err != nil {
		return err
	}

	indexLogger := ma.namedLogger(ctx, "mediaindex")
	openIndex := func(ctx context.Context) (storage.ContentIndex, error) {
		index, err := mediaindex.Open(ctx, ma.cfg.Storage.Index, indexLogger)
		if err != nil {
			return nil, err
		}
		return index, nil
	}

	backend, err := storage.Select(ctx, ma.cfg.Storage, openIndex, ma.namedLogger(ctx, "storage"))
	if err != nil {
		return fmt.Errorf("failed to select storage backend: %w", err)
	}
	ma.backend = backend
	ma.log.Info("Using '%s' storage at '%s'", backend.Strategy(), backend.Root())

	items, err := repository.NewItemRepository(st, backend, ma.cfg.Workers.Items, ma.namedLogger(ctx, "items"))
	if err != nil {
		return fmt.Errorf("failed to create item repository: %w", err)
	}
	ma.items = items

	tags, err := repository.NewTagRepository(st, ma.cfg.Workers.Tags, ma.namedLogger(ctx, "tags"))
	if err != nil {
		return fmt.Errorf("failed to create tag repository: %w", err)
	}
	ma.tags = tags

	return nil
}

func (ma *MemoboxAgent) Items() *repository.ItemRepository {
	ma.mutex.RLock()
	defer ma.mutex.RUnlock()

	return ma.items
}

func (ma *MemoboxAgent) Tags() *repository.TagRepository {
	ma.mutex.RLock()
	defer ma.mutex.RUnlock()

	return ma.tags
}

// Close drains both repositories and releases the backend and the store.
func (ma *MemoboxAgent) Close(ctx context.Context) error {
	ma.mutex.Lock()
	defer ma.mutex.Unlock()

	return ma.close(ctx)
}

func (ma *MemoboxAgent) close(ctx context.Context) error {
	errs := container.Errors{}

	if ma.tags != nil {
		errs.Add(ma.tags.Close(ctx))
		ma.tags = nil
	}
	if ma.items != nil {
		errs.Add(ma.items.Close(ctx))
		ma.items = nil
	}
	if ma.backend != nil {
		errs.Add(ma.backend.Close())
		ma.backend = nil
	}
	if ma.store != nil {
		errs.Add(ma.store.Close())
		ma.store = nil
	}

	errs.Add(ma.sc.Cleanup(ctx))
	return errs.Errors()
}

func (ma *MemoboxAgent) shutdownTimeout() time.Duration {
	timeout, err := time.ParseDuration(ma.cfg.ShutdownTimeout)
	if err != nil {
		// Set default of 60 seconds if error
		timeout = 60 * time.Second
	}
	return timeout
}

// Serve opens the agent and logs live changes of items and tags until
// interrupted.
func (ma *MemoboxAgent) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	if err := ma.Open(ctx); err != nil {
		return err
	}

	ma.watch(ctx)
	<-ctx.Done()

	ma.log.Info("Shutting down...")
	ma.wait.Wait()

	shutdown, cancel := context.WithTimeout(context.Background(), ma.shutdownTimeout())
	defer cancel()

	if err := ma.Close(shutdown); err != nil {
		return fmt.Errorf("failed to complete agent shutdown: %w", err)
	}

	return nil
}

func (ma *MemoboxAgent) watch(ctx context.Context) {
	items := ma.Items().WatchItems(ctx)
	tags := ma.Tags().WatchTags(ctx)
	watchLog := ma.log.Named("watch")

	ma.wait.Add(2)
	go func() {
		defer ma.wait.Done()
		defer items.Close()

		for update := range items.C() {
			if update.Err != nil {
				watchLog.Warn("Item query failed: %v", update.Err)
				continue
			}
			watchLog.Info("%d items stored", len(update.Value))
		}
	}()
	go func() {
		defer ma.wait.Done()
		defer tags.Close()

		for update := range tags.C() {
			if update.Err != nil {
				watchLog.Warn("Tag query failed: %v", update.Err)
				continue
			}
			watchLog.Info("%d tags defined", len(update.Value))
		}
	}()
}
