package engine

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/Blackdeer1524/HeapDB/src"
	"github.com/Blackdeer1524/HeapDB/src/bufferpool"
	"github.com/Blackdeer1524/HeapDB/src/catalog"
	"github.com/Blackdeer1524/HeapDB/src/cfg"
	"github.com/Blackdeer1524/HeapDB/src/txns"
)

// Database wires the catalog, the lock manager and the buffer pool together.
// It is the embedding point for everything above the storage layer.
type Database struct {
	catalog *catalog.Catalog
	locker  *txns.LockManager
	pool    *bufferpool.Manager
	log     src.Logger
}

func New(
	cat *catalog.Catalog,
	locker *txns.LockManager,
	pool *bufferpool.Manager,
	log src.Logger,
) *Database {
	return &Database{
		catalog: cat,
		locker:  locker,
		pool:    pool,
		log:     log,
	}
}

// Open builds a database from configuration: a fresh catalog populated from
// the schema file (when configured), a lock manager with the configured
// timeout, and a buffer pool of the configured capacity.
func Open(config cfg.Config, fs afero.Fs, log src.Logger) (*Database, error) {
	cat := catalog.New()
	locker := txns.NewLockManager(config.LockTimeout())

	pool, err := bufferpool.New(config.PoolSize, cat, locker, log)
	if err != nil {
		return nil, fmt.Errorf("building buffer pool: %w", err)
	}

	if config.SchemaPath != "" {
		if err := cat.LoadSchema(fs, config.SchemaPath); err != nil {
			return nil, fmt.Errorf("loading schema: %w", err)
		}
	}

	return New(cat, locker, pool, log), nil
}

func (db *Database) Catalog() *catalog.Catalog {
	return db.catalog
}

func (db *Database) Pool() *bufferpool.Manager {
	return db.pool
}

func (db *Database) LockManager() *txns.LockManager {
	return db.locker
}
