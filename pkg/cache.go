package pkg

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"cuisine/pkg/io"
	"cuisine/pkg/model"
)

type tableKey struct {
	Path     string
	ModTime  int64
	Size     int64
	Encoding string
	Comma    rune
}

// TableEntry is a loaded table with its preprocessing result. Processed is nil when
// preprocessing failed; the failure is kept so describing the table still works.
type TableEntry struct {
	Table         *io.Table
	Processed     *io.Processed
	PreprocessErr error
}

// TableCache keeps loaded tables keyed by file identity, so an edited file is
// reloaded even without an explicit invalidation.
type TableCache struct {
	mu      sync.Mutex
	entries *lru.Cache[tableKey, *TableEntry]
}

func NewTableCache(size int) (*TableCache, error) {
	entries, err := lru.New[tableKey, *TableEntry](size)
	if err != nil {
		return nil, fmt.Errorf("error creating table cache: %w", err)
	}
	return &TableCache{entries: entries}, nil
}

// Get returns the entry of path, loading it on a miss. The boolean reports a hit.
func (c *TableCache) Get(path string, opts io.LoadOptions) (*TableEntry, bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, false, &io.DataLoadError{Path: path, Err: err}
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, false, &io.DataLoadError{Path: path, Err: err}
	}
	key := tableKey{
		Path:     absPath,
		ModTime:  info.ModTime().UnixNano(),
		Size:     info.Size(),
		Encoding: opts.Encoding,
		Comma:    opts.Comma,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries.Get(key); ok {
		return entry, true, nil
	}

	table, err := io.LoadTable(path, opts)
	if err != nil {
		return nil, false, err
	}
	entry := &TableEntry{Table: table}
	entry.Processed, entry.PreprocessErr = io.Preprocess(table)
	c.entries.Add(key, entry)
	log.Debug().Str("Path", absPath).Int("Rows", table.NumRows()).Msg("Table loaded")
	return entry, false, nil
}

// Invalidate drops every entry of path and returns how many were dropped.
func (c *TableCache) Invalidate(path string) int {
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for _, key := range c.entries.Keys() {
		if key.Path == absPath && c.entries.Remove(key) {
			removed++
		}
	}
	return removed
}

func (c *TableCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
}

func (c *TableCache) Len() int {
	return c.entries.Len()
}

// ModelKey identifies a trained model: the hyperparameters plus a digest of
// everything the forest sees.
type ModelKey struct {
	Trees    int
	Seed     uint64
	MaxDepth int
	Data     uint64
}

func (k ModelKey) String() string {
	return fmt.Sprintf("%d/%d/%d/%016x", k.Trees, k.Seed, k.MaxDepth, k.Data)
}

// NewModelKey hashes the feature names, label names, training rows and targets.
func NewModelKey(params Params, meta *model.Metadata, train *io.DataSet) ModelKey {
	digest := xxhash.New()
	buf := make([]byte, 8)
	writeString := func(s string) {
		_, _ = digest.WriteString(s)
		_, _ = digest.Write([]byte{0})
	}
	writeUint := func(v uint64) {
		binary.LittleEndian.PutUint64(buf, v)
		_, _ = digest.Write(buf)
	}

	for _, name := range meta.Features.Names {
		writeString(name)
	}
	for _, name := range meta.TargetMap.Names() {
		writeString(name)
	}
	for _, row := range train.Rows() {
		for _, v := range row {
			writeUint(math.Float64bits(v))
		}
	}
	for _, label := range train.Labels() {
		writeUint(uint64(label))
	}
	return ModelKey{Trees: params.Trees, Seed: params.Seed, MaxDepth: params.MaxDepth, Data: digest.Sum64()}
}

// ModelCache memoizes trained models. Concurrent requests for the same key share
// one training.
type ModelCache struct {
	models *lru.Cache[ModelKey, *model.Model]
	group  singleflight.Group
}

func NewModelCache(size int) (*ModelCache, error) {
	models, err := lru.New[ModelKey, *model.Model](size)
	if err != nil {
		return nil, fmt.Errorf("error creating model cache: %w", err)
	}
	return &ModelCache{models: models}, nil
}

// GetOrTrain returns the cached model of key or trains one with train. The boolean
// reports a hit. Failed trainings are not cached.
func (c *ModelCache) GetOrTrain(ctx context.Context, key ModelKey, train func(ctx context.Context) (*model.Model, error)) (*model.Model, bool, error) {
	if m, ok := c.models.Get(key); ok {
		return m, true, nil
	}
	value, err, shared := c.group.Do(key.String(), func() (interface{}, error) {
		if m, ok := c.models.Get(key); ok {
			return trainedModel{model: m, cached: true}, nil
		}
		m, err := train(ctx)
		if err != nil {
			return nil, err
		}
		c.models.Add(key, m)
		return trainedModel{model: m}, nil
	})
	if err != nil {
		return nil, false, err
	}
	result := value.(trainedModel)
	return result.model, result.cached || shared, nil
}

type trainedModel struct {
	model  *model.Model
	cached bool
}

func (c *ModelCache) Purge() {
	c.models.Purge()
}

func (c *ModelCache) Len() int {
	return c.models.Len()
}
