package deid

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/loopi346/MAIT-Privacy-Vault/pkg/dlp"
	"github.com/stretchr/testify/require"
)

func testCatalog(t *testing.T) *dlp.Catalog {
	t.Helper()
	catalog, err := dlp.NewCatalog(dlp.DefaultCatalog())
	require.NoError(t, err)
	return catalog
}

// sequentialMint yields [CODE-tok00001], [CODE-tok00002], ...
func sequentialMint() MintFunc {
	var n atomic.Int64
	return func(code, value string) string {
		return fmt.Sprintf("[%s-tok%05d]", code, n.Add(1))
	}
}

func newTestService(t *testing.T, backend Backend, mode string) *Service {
	t.Helper()
	return NewService(testCatalog(t), backend, Settings{
		Mode:         mode,
		TokenSalt:    "test-salt",
		MaxAttempts:  DefaultMaxAttempts,
		StoreTimeout: time.Second,
	})
}

var errRefused = errors.New("connection refused")

// failingBackend answers every call with errRefused.
type failingBackend struct{}

func (failingBackend) Create(context.Context, TokenRecord) (string, error) { return "", errRefused }
func (failingBackend) FindByValue(context.Context, string, string) (TokenRecord, error) {
	return TokenRecord{}, errRefused
}
func (failingBackend) FindByToken(context.Context, string) (TokenRecord, error) {
	return TokenRecord{}, errRefused
}
func (failingBackend) Ping(context.Context) error { return errRefused }

// flakyBackend fails allocations after the first n successful creates.
type flakyBackend struct {
	*MemoryBackend
	allowed atomic.Int64
}

func (b *flakyBackend) Create(ctx context.Context, rec TokenRecord) (string, error) {
	if b.allowed.Add(-1) < 0 {
		return "", errRefused
	}
	return b.MemoryBackend.Create(ctx, rec)
}

type recordingAudit struct {
	mu      sync.Mutex
	records []AuditRecord
	err     error
}

func (a *recordingAudit) Record(ctx context.Context, rec AuditRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, rec)
	return a.err
}

type fakeGenerator struct {
	reply  func(prompt string) string
	err    error
	prompt string
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompt = prompt
	if g.err != nil {
		return "", g.err
	}
	return g.reply(prompt), nil
}
