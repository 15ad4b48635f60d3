package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"bookfair-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ContentLoader fetches quiz content from the backing document store.
type ContentLoader interface {
	LoadContent(ctx context.Context, quizID string) (domain.QuizContent, error)
}

// QuizCache caches quiz content in Redis (hash per quiz) and falls back to a
// loader on cache miss.
// Content is stored as: HSET quiz:{quizID}:content quiz {json}
//
//	HSET quiz:{quizID}:content questions {json}
type QuizCache struct {
	client *redis.Client
	loader ContentLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuizCache(client *redis.Client, loader ContentLoader, ttl time.Duration) *QuizCache {
	return &QuizCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuizCache) GetContent(ctx context.Context, quizID string) (domain.QuizContent, error) {
	key := c.contentKey(quizID)

	fields, err := c.client.HGetAll(ctx, key).Result()
	if err == nil && len(fields) > 0 {
		return decodeContent(fields)
	}

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		fields, err := c.client.HGetAll(ctx, key).Result()
		if err == nil && len(fields) > 0 {
			return decodeContentResult(fields)
		}

		content, err := c.loader.LoadContent(ctx, quizID)
		if err != nil {
			return domain.QuizContent{}, err
		}

		quizJSON, err := json.Marshal(content.Quiz)
		if err != nil {
			return domain.QuizContent{}, fmt.Errorf("marshal quiz: %w", err)
		}
		questionsJSON, err := json.Marshal(content.Questions)
		if err != nil {
			return domain.QuizContent{}, fmt.Errorf("marshal questions: %w", err)
		}

		pipe := c.client.Pipeline()
		pipe.HSet(ctx, key, "quiz", quizJSON, "questions", questionsJSON)
		if ttl := c.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return content, nil
	})
	if err != nil {
		return domain.QuizContent{}, err
	}
	return result.(domain.QuizContent), nil
}

// Invalidate drops the cached content after an admin edit or delete.
func (c *QuizCache) Invalidate(ctx context.Context, quizID string) {
	_ = c.client.Del(ctx, c.contentKey(quizID)).Err()
}

func (c *QuizCache) contentKey(quizID string) string {
	return "quiz:" + quizID + ":content"
}

func decodeContent(fields map[string]string) (domain.QuizContent, error) {
	var content domain.QuizContent
	if err := json.Unmarshal([]byte(fields["quiz"]), &content.Quiz); err != nil {
		return domain.QuizContent{}, fmt.Errorf("unmarshal cached quiz: %w", err)
	}
	if raw, ok := fields["questions"]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &content.Questions); err != nil {
			return domain.QuizContent{}, fmt.Errorf("unmarshal cached questions: %w", err)
		}
	}
	return content, nil
}

func decodeContentResult(fields map[string]string) (interface{}, error) {
	content, err := decodeContent(fields)
	if err != nil {
		return nil, err
	}
	return content, nil
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
