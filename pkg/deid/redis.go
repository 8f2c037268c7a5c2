package deid

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Both key families share the {pii} hash tag so the allocate script only
// touches one cluster slot.
const (
	redisValuePrefix = "vault:{pii}:value:"
	redisTokenPrefix = "vault:{pii}:token:"
)

// allocateScript binds ARGV[1] (token) to KEYS[1] (value key) and stores
// ARGV[2] (record JSON) under KEYS[2] (token key) in one atomic step.
// Reply: {1, token} created, {0, token} existing pair, {2, ""} token taken.
var allocateScript = redis.NewScript(`
local existing = redis.call('GET', KEYS[1])
if existing then
  return {0, existing}
end
if redis.call('EXISTS', KEYS[2]) == 1 then
  return {2, ''}
end
redis.call('SET', KEYS[2], ARGV[2])
redis.call('SET', KEYS[1], ARGV[1])
return {1, ARGV[1]}
`)

// RedisBackend stores records in Redis. Value keys hash the original value so
// plaintext never appears in key names.
type RedisBackend struct {
	client redis.UniversalClient
}

// redisRecord mirrors TokenRecord with the original value serialised.
type redisRecord struct {
	Token         string    `json:"token"`
	OriginalValue string    `json:"original_value"`
	Category      string    `json:"category"`
	CreatedAt     time.Time `json:"created_at"`
}

func NewRedisBackend(client redis.UniversalClient) *RedisBackend {
	return &RedisBackend{client: client}
}

func valueKeyName(value, category string) string {
	sum := sha256.Sum256([]byte(value))
	return redisValuePrefix + category + ":" + hex.EncodeToString(sum[:])
}

func (b *RedisBackend) Create(ctx context.Context, rec TokenRecord) (string, error) {
	payload, err := json.Marshal(redisRecord{
		Token:         rec.Token,
		OriginalValue: rec.OriginalValue,
		Category:      rec.Category,
		CreatedAt:     rec.CreatedAt,
	})
	if err != nil {
		return "", fmt.Errorf("encode token record: %w", err)
	}

	keys := []string{valueKeyName(rec.OriginalValue, rec.Category), redisTokenPrefix + rec.Token}
	reply, err := allocateScript.Run(ctx, b.client, keys, rec.Token, payload).Slice()
	if err != nil {
		return "", fmt.Errorf("allocate token: %w", err)
	}
	if len(reply) != 2 {
		return "", fmt.Errorf("allocate token: unexpected reply %v", reply)
	}

	status, _ := reply[0].(int64)
	token, _ := reply[1].(string)
	switch status {
	case 0, 1:
		return token, nil
	case 2:
		return "", ErrTokenTaken
	default:
		return "", fmt.Errorf("allocate token: unexpected status %d", status)
	}
}

func (b *RedisBackend) FindByValue(ctx context.Context, value, category string) (TokenRecord, error) {
	token, err := b.client.Get(ctx, valueKeyName(value, category)).Result()
	if errors.Is(err, redis.Nil) {
		return TokenRecord{}, ErrNotFound
	}
	if err != nil {
		return TokenRecord{}, err
	}
	return b.FindByToken(ctx, token)
}

func (b *RedisBackend) FindByToken(ctx context.Context, token string) (TokenRecord, error) {
	raw, err := b.client.Get(ctx, redisTokenPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return TokenRecord{}, ErrNotFound
	}
	if err != nil {
		return TokenRecord{}, err
	}

	var rec redisRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return TokenRecord{}, fmt.Errorf("decode token record: %w", err)
	}
	return TokenRecord(rec), nil
}

func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}
