package data

import (
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/ducminhle1904/eod-backtester/pkg/types"
)

// MemoryCache implements DataCache using in-memory storage
type MemoryCache struct {
	cache map[string][]types.Bar
	mutex sync.RWMutex
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		cache: make(map[string][]types.Bar),
	}
}

// Get returns a copy of the cached bars
func (c *MemoryCache) Get(key string) ([]types.Bar, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	bars, exists := c.cache[key]
	if !exists {
		return nil, false
	}
	return types.CopyBars(bars), true
}

// Set stores a copy of bars
func (c *MemoryCache) Set(key string, bars []types.Bar) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache[key] = types.CopyBars(bars)
}

// Clear removes all cached data
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache = make(map[string][]types.Bar)
}

// Size returns the number of cached entries
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.cache)
}

// CachedProvider wraps another DataProvider so a sweep reads each file once
type CachedProvider struct {
	provider DataProvider
	cache    DataCache
	logger   *zap.Logger
}

// NewCachedProvider creates a new cached data provider
func NewCachedProvider(provider DataProvider, logger *zap.Logger) *CachedProvider {
	return NewCachedProviderWithCache(provider, NewMemoryCache(), logger)
}

// NewCachedProviderWithCache creates a new cached data provider with custom cache
func NewCachedProviderWithCache(provider DataProvider, cache DataCache, logger *zap.Logger) *CachedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProvider{
		provider: provider,
		cache:    cache,
		logger:   logger,
	}
}

// GetName returns the name of the underlying provider with cache indication
func (p *CachedProvider) GetName() string {
	return "Cached " + p.provider.GetName()
}

// LoadData returns cached bars when present, otherwise loads and caches them
func (p *CachedProvider) LoadData(source string) ([]types.Bar, error) {
	if bars, ok := p.cache.Get(source); ok {
		p.logger.Debug("Data cache hit", zap.String("file", filepath.Base(source)))
		return bars, nil
	}

	p.logger.Info("Loading historical data", zap.String("file", filepath.Base(source)))
	bars, err := p.provider.LoadData(source)
	if err != nil {
		p.logger.Error("Failed to load data", zap.String("file", filepath.Base(source)), zap.Error(err))
		return nil, err
	}

	p.cache.Set(source, bars)
	p.logger.Info("Loaded and cached data",
		zap.String("file", filepath.Base(source)),
		zap.Int("bars", len(bars)),
	)
	return bars, nil
}

// ValidateData validates data using the underlying provider
func (p *CachedProvider) ValidateData(bars []types.Bar) error {
	return p.provider.ValidateData(bars)
}

// ClearCache clears all cached data
func (p *CachedProvider) ClearCache() {
	p.cache.Clear()
}

// GetCacheSize returns the number of cached entries
func (p *CachedProvider) GetCacheSize() int {
	return p.cache.Size()
}
