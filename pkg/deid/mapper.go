package deid

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/loopi346/MAIT-Privacy-Vault/pkg/common/logger"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/dlp"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/observability/metrics"
)

const DefaultStoreTimeout = 2 * time.Second

// Mapper is the mapping store: it resolves (value, category) pairs to stable
// tokens and tokens back to values on top of a Backend.
type Mapper struct {
	backend     Backend
	catalog     *dlp.Catalog
	mint        MintFunc
	maxAttempts int
	timeout     time.Duration
	now         func() time.Time
}

type MapperOption func(*Mapper)

func WithMintFunc(fn MintFunc) MapperOption {
	return func(m *Mapper) { m.mint = fn }
}

func WithMaxAttempts(n int) MapperOption {
	return func(m *Mapper) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

func WithStoreTimeout(d time.Duration) MapperOption {
	return func(m *Mapper) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// NewMapper wires backend to a minter. Minted tokens are checked against
// catalog so a token can never be detected as PII on a later pass.
func NewMapper(backend Backend, catalog *dlp.Catalog, opts ...MapperOption) *Mapper {
	m := &Mapper{
		backend:     backend,
		catalog:     catalog,
		mint:        NewMinter("", DefaultSuffixLength),
		maxAttempts: DefaultMaxAttempts,
		timeout:     DefaultStoreTimeout,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AllocateOrGet returns the token bound to (value, code), allocating one on
// first sight.
func (m *Mapper) AllocateOrGet(ctx context.Context, value, code string) (string, error) {
	var existing TokenRecord
	err := m.call(ctx, func(ctx context.Context) error {
		var err error
		existing, err = m.backend.FindByValue(ctx, value, code)
		return err
	})
	if err == nil {
		return existing.Token, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", m.unavailable("lookup", err)
	}

	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		candidate := m.mint(code, value)
		if !IsToken(candidate) || m.catalog.Matches(candidate) {
			metrics.ObserveCollision()
			logger.WithFields(map[string]interface{}{
				"category": code,
				"attempt":  attempt,
				"reason":   "pattern",
			}).Debug("minted token rejected")
			continue
		}

		var token string
		err := m.call(ctx, func(ctx context.Context) error {
			var err error
			token, err = m.backend.Create(ctx, TokenRecord{
				Token:         candidate,
				OriginalValue: value,
				Category:      code,
				CreatedAt:     m.now(),
			})
			return err
		})
		if errors.Is(err, ErrTokenTaken) {
			metrics.ObserveCollision()
			logger.WithFields(map[string]interface{}{
				"category": code,
				"attempt":  attempt,
				"reason":   "taken",
			}).Debug("minted token rejected")
			continue
		}
		if err != nil {
			return "", m.unavailable("allocate", err)
		}
		if token == candidate {
			metrics.ObserveAllocation()
		}
		return token, nil
	}

	return "", fmt.Errorf("%w: category %s after %d attempts", ErrTokenCollision, code, m.maxAttempts)
}

// Resolve looks a token up. A missing token is reported with found == false
// and a nil error.
func (m *Mapper) Resolve(ctx context.Context, token string) (string, bool, error) {
	var rec TokenRecord
	err := m.call(ctx, func(ctx context.Context) error {
		var err error
		rec, err = m.backend.FindByToken(ctx, token)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, m.unavailable("resolve", err)
	}
	return rec.OriginalValue, true, nil
}

func (m *Mapper) Ping(ctx context.Context) error {
	if err := m.call(ctx, m.backend.Ping); err != nil {
		return m.unavailable("ping", err)
	}
	return nil
}

func (m *Mapper) call(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return fn(ctx)
}

func (m *Mapper) unavailable(op string, err error) error {
	metrics.ObserveStoreError()
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
