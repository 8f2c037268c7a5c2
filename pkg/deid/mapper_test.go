package deid

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/loopi346/MAIT-Privacy-Vault/pkg/dlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateOrGetIsStable(t *testing.T) {
	m := NewMapper(NewMemoryBackend(), testCatalog(t), WithMintFunc(sequentialMint()))
	ctx := context.Background()

	first, err := m.AllocateOrGet(ctx, "Maria", dlp.CodeName)
	require.NoError(t, err)
	again, err := m.AllocateOrGet(ctx, "Maria", dlp.CodeName)
	require.NoError(t, err)
	other, err := m.AllocateOrGet(ctx, "Maria", dlp.CodeEmail)
	require.NoError(t, err)

	assert.Equal(t, first, again)
	assert.NotEqual(t, first, other)

	value, found, err := m.Resolve(ctx, first)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Maria", value)
}

func TestResolveUnknownToken(t *testing.T) {
	m := NewMapper(NewMemoryBackend(), testCatalog(t))
	_, found, err := m.Resolve(context.Background(), "[NAM-zzzz9999]")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAllocateRetriesTakenTokens(t *testing.T) {
	backend := NewMemoryBackend()
	calls := 0
	mint := func(code, value string) string {
		calls++
		if calls <= 2 {
			return "[" + code + "-fixed000]"
		}
		return "[" + code + "-fresh000]"
	}
	m := NewMapper(backend, testCatalog(t), WithMintFunc(mint))
	ctx := context.Background()

	a, err := m.AllocateOrGet(ctx, "Ana", dlp.CodeName)
	require.NoError(t, err)
	b, err := m.AllocateOrGet(ctx, "Luis", dlp.CodeName)
	require.NoError(t, err)

	assert.Equal(t, "[NAM-fixed000]", a)
	assert.Equal(t, "[NAM-fresh000]", b)
	assert.Equal(t, 3, calls)
}

func TestAllocateRejectsTokensTheCatalogWouldDetect(t *testing.T) {
	calls := 0
	mint := func(code, value string) string {
		calls++
		if calls == 1 {
			// an all-digit suffix reads as an identification number
			return "[" + code + "-12345678]"
		}
		return "[" + code + "-abcdefgh]"
	}
	m := NewMapper(NewMemoryBackend(), testCatalog(t), WithMintFunc(mint))

	tok, err := m.AllocateOrGet(context.Background(), "Ana", dlp.CodeName)
	require.NoError(t, err)
	assert.Equal(t, "[NAM-abcdefgh]", tok)
	assert.Equal(t, 2, calls)
}

func TestAllocateExhaustsAttempts(t *testing.T) {
	backend := NewMemoryBackend()
	mint := func(code, value string) string { return "[" + code + "-same0000]" }
	m := NewMapper(backend, testCatalog(t), WithMintFunc(mint), WithMaxAttempts(3))
	ctx := context.Background()

	_, err := m.AllocateOrGet(ctx, "Ana", dlp.CodeName)
	require.NoError(t, err)

	_, err = m.AllocateOrGet(ctx, "Luis", dlp.CodeName)
	assert.ErrorIs(t, err, ErrTokenCollision)
	assert.Equal(t, 1, backend.Len())
}

func TestAllocateStoreFailure(t *testing.T) {
	m := NewMapper(failingBackend{}, testCatalog(t))

	_, err := m.AllocateOrGet(context.Background(), "Ana", dlp.CodeName)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, errRefused)

	_, _, err = m.Resolve(context.Background(), "[NAM-abcdefgh]")
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	assert.ErrorIs(t, m.Ping(context.Background()), ErrStoreUnavailable)
}

type slowBackend struct{ *MemoryBackend }

func (b slowBackend) FindByValue(ctx context.Context, value, category string) (TokenRecord, error) {
	<-ctx.Done()
	return TokenRecord{}, ctx.Err()
}

func TestAllocateTimesOut(t *testing.T) {
	m := NewMapper(slowBackend{NewMemoryBackend()}, testCatalog(t), WithStoreTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := m.AllocateOrGet(context.Background(), "Ana", dlp.CodeName)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Less(t, time.Since(start), time.Second)
}

func TestAllocateConcurrentFirstSightings(t *testing.T) {
	backend := NewMemoryBackend()
	m := NewMapper(backend, testCatalog(t), WithMintFunc(NewMinter("salt", 8)))

	const workers = 32
	tokens := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := m.AllocateOrGet(context.Background(), "maria@x.com", dlp.CodeEmail)
			assert.NoError(t, err)
			tokens[i] = tok
		}(i)
	}
	wg.Wait()

	for _, tok := range tokens {
		assert.Equal(t, tokens[0], tok)
	}
	assert.Equal(t, 1, backend.Len())
}
