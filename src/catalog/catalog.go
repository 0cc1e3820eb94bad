package catalog

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/storage/heapfile"
	"github.com/Blackdeer1524/HeapDB/src/tuple"
)

var ErrNoSuchTable = errors.New("no such table")

type TableInfo struct {
	File       *heapfile.HeapFile
	Name       string
	PrimaryKey string
}

// Catalog maps table ids and names to their heap files. Tables are added at
// runtime; re-adding a name replaces the previous binding (last write wins).
// Safe for concurrent use.
type Catalog struct {
	mu     sync.RWMutex
	tables map[common.TableID]*TableInfo
	names  map[string]common.TableID
}

func New() *Catalog {
	return &Catalog{
		tables: make(map[common.TableID]*TableInfo),
		names:  make(map[string]common.TableID),
	}
}

// AddTable registers a heap file under the given name.
func (c *Catalog) AddTable(file *heapfile.HeapFile, name, primaryKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prevID, ok := c.names[name]; ok {
		delete(c.tables, prevID)
	}

	c.tables[file.ID()] = &TableInfo{
		File:       file,
		Name:       name,
		PrimaryKey: primaryKey,
	}
	c.names[name] = file.ID()
}

// DBFile resolves a table id to its heap file.
func (c *Catalog) DBFile(id common.TableID) (*heapfile.HeapFile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info, ok := c.tables[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrNoSuchTable, id)
	}
	return info.File, nil
}

func (c *Catalog) TableByName(name string) (*TableInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	id, ok := c.names[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSuchTable, name)
	}
	return c.tables[id], nil
}

func (c *Catalog) TableName(id common.TableID) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info, ok := c.tables[id]
	if !ok {
		return "", fmt.Errorf("%w: id %d", ErrNoSuchTable, id)
	}
	return info.Name, nil
}

func (c *Catalog) TupleDesc(id common.TableID) (*tuple.TupleDesc, error) {
	file, err := c.DBFile(id)
	if err != nil {
		return nil, err
	}
	return file.Desc(), nil
}

func (c *Catalog) PrimaryKey(id common.TableID) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info, ok := c.tables[id]
	if !ok {
		return "", fmt.Errorf("%w: id %d", ErrNoSuchTable, id)
	}
	return info.PrimaryKey, nil
}

// TableIDs returns a snapshot of the registered table ids.
func (c *Catalog) TableIDs() []common.TableID {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]common.TableID, 0, len(c.tables))
	for id := range c.tables {
		ids = append(ids, id)
	}
	return ids
}

// Clear removes every table binding.
func (c *Catalog) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tables = make(map[common.TableID]*TableInfo)
	c.names = make(map[string]common.TableID)
}
