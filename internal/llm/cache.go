package llm

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/Veraticus/balance/internal/model"
)

const (
	defaultCacheTTL  = 15 * time.Minute
	defaultCacheSize = 10_000
)

// judgmentCache memoizes model answers for identical purchases.
type judgmentCache struct {
	store *ristretto.Cache
	ttl   time.Duration
}

// newJudgmentCache creates a cache holding up to size judgments for ttl.
func newJudgmentCache(size int64, ttl time.Duration) (*judgmentCache, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: size * 10,
		MaxCost:     size,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create judgment cache: %w", err)
	}

	return &judgmentCache{store: store, ttl: ttl}, nil
}

func (c *judgmentCache) get(key string) (ClassificationResponse, bool) {
	value, ok := c.store.Get(key)
	if !ok {
		return ClassificationResponse{}, false
	}
	resp, ok := value.(ClassificationResponse)
	return resp, ok
}

func (c *judgmentCache) set(key string, resp ClassificationResponse) {
	c.store.SetWithTTL(key, resp, 1, c.ttl)
}

// wait blocks until buffered writes are visible to get.
func (c *judgmentCache) wait() {
	c.store.Wait()
}

func (c *judgmentCache) close() {
	c.store.Close()
}

// cacheKey groups purchases that should receive the same judgment.
func cacheKey(txn model.Transaction) string {
	return fmt.Sprintf("%s|%s|%.2f|%s",
		model.MerchantKey(txn.Merchant),
		model.NormalizeItemText(txn.Category),
		txn.Amount,
		txn.ItemText)
}
