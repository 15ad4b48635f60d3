package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"bookfair-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ContentLoader fetches quiz content from the backing document store.
type ContentLoader interface {
	LoadContent(ctx context.Context, quizID string) (domain.QuizContent, error)
}

// QuizCache caches quiz content with TTL to avoid repeated store hits while a
// quiz is being taken.
type QuizCache struct {
	loader ContentLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedContent
}

type cachedContent struct {
	content   domain.QuizContent
	expiresAt time.Time
}

func NewQuizCache(loader ContentLoader, ttl time.Duration) *QuizCache {
	return &QuizCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedContent),
	}
}

func (c *QuizCache) GetContent(ctx context.Context, quizID string) (domain.QuizContent, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[quizID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.content, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[quizID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.content, nil
		}
		c.mu.RUnlock()

		content, err := c.loader.LoadContent(ctx, quizID)
		if err != nil {
			return domain.QuizContent{}, err
		}

		c.mu.Lock()
		c.cache[quizID] = cachedContent{
			content:   content,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return content, nil
	})
	if err != nil {
		return domain.QuizContent{}, err
	}
	return result.(domain.QuizContent), nil
}

// Invalidate drops the cached entry so the next read reloads fresh content.
func (c *QuizCache) Invalidate(_ context.Context, quizID string) {
	c.mu.Lock()
	delete(c.cache, quizID)
	c.mu.Unlock()
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
