package deid

import (
	"context"
	"sync"
)

// Backend is the persistence layer behind the mapping store. Implementations
// must keep both (OriginalValue, Category) and Token unique and be safe for
// concurrent use.
type Backend interface {
	// Create stores rec unless its (OriginalValue, Category) pair exists, and
	// returns the token bound to the pair afterwards. It returns ErrTokenTaken
	// when rec.Token already belongs to a different pair.
	Create(ctx context.Context, rec TokenRecord) (string, error)
	FindByValue(ctx context.Context, value, category string) (TokenRecord, error)
	FindByToken(ctx context.Context, token string) (TokenRecord, error)
	Ping(ctx context.Context) error
}

type valueKey struct {
	value, category string
}

// MemoryBackend keeps records in process memory.
type MemoryBackend struct {
	mu      sync.RWMutex
	byToken map[string]TokenRecord
	byValue map[valueKey]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		byToken: make(map[string]TokenRecord),
		byValue: make(map[valueKey]string),
	}
}

func (b *MemoryBackend) Create(ctx context.Context, rec TokenRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	key := valueKey{rec.OriginalValue, rec.Category}
	if existing, ok := b.byValue[key]; ok {
		return existing, nil
	}
	if _, taken := b.byToken[rec.Token]; taken {
		return "", ErrTokenTaken
	}
	b.byToken[rec.Token] = rec
	b.byValue[key] = rec.Token
	return rec.Token, nil
}

func (b *MemoryBackend) FindByValue(ctx context.Context, value, category string) (TokenRecord, error) {
	if err := ctx.Err(); err != nil {
		return TokenRecord{}, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	token, ok := b.byValue[valueKey{value, category}]
	if !ok {
		return TokenRecord{}, ErrNotFound
	}
	return b.byToken[token], nil
}

func (b *MemoryBackend) FindByToken(ctx context.Context, token string) (TokenRecord, error) {
	if err := ctx.Err(); err != nil {
		return TokenRecord{}, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.byToken[token]
	if !ok {
		return TokenRecord{}, ErrNotFound
	}
	return rec, nil
}

func (b *MemoryBackend) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Len reports the number of stored records.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byToken)
}
