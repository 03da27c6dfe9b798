package oracle

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/fx-optimizer/internal/models"
)

// CacheKey uniquely identifies a prediction by bar, model version and model
// hyperparameters. Deterministic oracles return the same prediction for the
// same key, so repeated optimizer candidates over the same bars hit the
// cache, while candidates differing in a hyperparameter never share entries.
type CacheKey struct {
	Symbol       string
	Timeframe    models.Timeframe
	BarTime      time.Time
	ModelVersion string
	ParamsDigest string
}

// String returns string representation of cache key
func (k CacheKey) String() string {
	return fmt.Sprintf("%s:%s:%d:%s:%s", k.Symbol, k.Timeframe, k.BarTime.UnixNano(), k.ModelVersion, k.ParamsDigest)
}

// digestParams renders model hyperparameters into a deterministic string,
// sorted by name. An empty map digests to the empty string.
func digestParams(params map[string]float64) string {
	if len(params) == 0 {
		return ""
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(params[name], 'g', -1, 64))
	}
	return b.String()
}

// PredictionCache provides in-memory caching for oracle predictions
type PredictionCache struct {
	cache     *cache.Cache
	ttl       time.Duration
	maxSize   int
	mu        sync.RWMutex
	hitCount  uint64
	missCount uint64
}

// NewPredictionCache creates a new prediction cache
func NewPredictionCache(ttl time.Duration, maxSize int) *PredictionCache {
	return &PredictionCache{
		cache:   cache.New(ttl, ttl*2),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get retrieves a cached prediction
func (pc *PredictionCache) Get(key CacheKey) (Prediction, bool) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if result, found := pc.cache.Get(key.String()); found {
		if pred, ok := result.(Prediction); ok {
			pc.hitCount++
			pc.updateMetrics()
			return pred, true
		}
	}

	pc.missCount++
	pc.updateMetrics()
	return Prediction{}, false
}

// Set stores a prediction in cache
func (pc *PredictionCache) Set(key CacheKey, prediction Prediction) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.cache.ItemCount() >= pc.maxSize {
		pc.cache.DeleteExpired()
	}

	pc.cache.Set(key.String(), prediction, pc.ttl)
}

// Clear flushes the entire cache
func (pc *PredictionCache) Clear() {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	pc.cache.Flush()
	pc.hitCount = 0
	pc.missCount = 0
}

// Stats returns cache statistics
func (pc *PredictionCache) Stats() (hits, misses uint64, ratio float64) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	hits = pc.hitCount
	misses = pc.missCount
	total := hits + misses
	if total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

// ItemCount returns the number of items in cache
func (pc *PredictionCache) ItemCount() int {
	return pc.cache.ItemCount()
}

func (pc *PredictionCache) updateMetrics() {
	total := pc.hitCount + pc.missCount
	if total > 0 {
		CacheHitRatio.Set(float64(pc.hitCount) / float64(total))
	}
}
