package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/Blackdeer1524/HeapDB/src"
	"github.com/Blackdeer1524/HeapDB/src/cfg"
	"github.com/Blackdeer1524/HeapDB/src/engine"
	"github.com/Blackdeer1524/HeapDB/src/optimizer"
	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/pkg/utils"
)

const statsWorkers = 4

// StatsEntrypoint opens the database described by the configuration and
// reports per-table statistics. It doubles as a smoke test of the whole
// stack: catalog, heap files, buffer pool, locking and the stats scan.
type StatsEntrypoint struct {
	ConfigPath string

	db  *engine.Database
	log src.Logger
	cfg cfg.Config
}

func (e *StatsEntrypoint) Init(ctx context.Context) error {
	var (
		config cfg.Config
		err    error
	)
	if e.ConfigPath != "" {
		config, err = cfg.LoadConfig(e.ConfigPath)
	} else {
		config, err = loadEnv()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	e.cfg = config

	var log src.Logger
	if e.cfg.Environment == cfg.EnvDev {
		log = utils.Must(zap.NewDevelopment()).Sugar()
	} else {
		log = utils.Must(zap.NewProduction()).Sugar()
	}

	e.log = log

	db, err := engine.Open(config, afero.NewOsFs(), log)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	e.db = db

	return nil
}

func (e *StatsEntrypoint) Run(ctx context.Context) error {
	workers, err := ants.NewPool(statsWorkers)
	if err != nil {
		return fmt.Errorf("building worker pool: %w", err)
	}
	defer workers.Release()

	var wg sync.WaitGroup
	for _, tableID := range e.db.Catalog().TableIDs() {
		wg.Add(1)

		id := tableID
		submitErr := workers.Submit(func() {
			defer wg.Done()
			e.reportTable(id)
		})
		if submitErr != nil {
			wg.Done()
			e.log.Errorf("submitting stats task for table %d: %v", id, submitErr)
		}
	}
	wg.Wait()

	return nil
}

func (e *StatsEntrypoint) reportTable(id common.TableID) {
	name, err := e.db.Catalog().TableName(id)
	if err != nil {
		e.log.Errorf("resolving table %d: %v", id, err)
		return
	}

	tx := e.db.Begin()
	stats, err := optimizer.NewTableStats(tx.ID(), id, e.db.Pool(), e.db.Catalog())
	if err != nil {
		e.log.Errorf("collecting stats for table %q: %v", name, err)
		_ = tx.Abort()
		return
	}
	if err := tx.Commit(); err != nil {
		e.log.Errorf("committing stats scan of table %q: %v", name, err)
		return
	}

	e.log.Infof("table %q: %d tuples", name, stats.NumTuples())
}

func (e *StatsEntrypoint) Close() error {
	if e.log != nil {
		_ = e.log.Sync()
	}
	return nil
}
