package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// AnswerBuffer holds a learner's draft answers for one attempt, keyed by
// question ID (never by list index, so a re-ordered question list can't
// shift answers). Writes are last-write-wins per question. Backed by a
// Redis hash so a page reload doesn't lose progress mid-attempt.
type AnswerBuffer struct {
	Redis *redis.Client
}

func NewAnswerBuffer(rdb *redis.Client) *AnswerBuffer {
	return &AnswerBuffer{Redis: rdb}
}

func (b *AnswerBuffer) Set(ctx context.Context, attemptID, questionID, answer string, ttl time.Duration) error {
	key := bufferKey(attemptID)
	if err := b.Redis.HSet(ctx, key, questionID, answer).Err(); err != nil {
		return err
	}
	return b.Redis.Expire(ctx, key, ttl).Err()
}

func (b *AnswerBuffer) All(ctx context.Context, attemptID string) (map[string]string, error) {
	vals, err := b.Redis.HGetAll(ctx, bufferKey(attemptID)).Result()
	if err != nil {
		return nil, err
	}
	return vals, nil
}

// AnsweredCount counts non-empty entries; a blank answer is "unanswered".
func (b *AnswerBuffer) AnsweredCount(ctx context.Context, attemptID string) (int, error) {
	vals, err := b.All(ctx, attemptID)
	if err != nil {
		return 0, err
	}
	return countAnswered(vals), nil
}

func (b *AnswerBuffer) Clear(ctx context.Context, attemptID string) error {
	return b.Redis.Del(ctx, bufferKey(attemptID)).Err()
}

func countAnswered(answers map[string]string) int {
	n := 0
	for _, a := range answers {
		if strings.TrimSpace(a) != "" {
			n++
		}
	}
	return n
}

func bufferKey(attemptID string) string {
	return "attempt:" + attemptID + ":answers"
}
