package deid

import (
	"context"
	"time"

	"github.com/loopi346/MAIT-Privacy-Vault/pkg/common/models"
)

const (
	ModeDurable   = "durable"
	ModeEphemeral = "ephemeral"
)

// TokenRecord binds one (original value, category) pair to its token.
type TokenRecord struct {
	Token         string    `gorm:"primaryKey;column:token;size:64" json:"token"`
	OriginalValue string    `gorm:"column:original_value;not null;uniqueIndex:idx_pii_value_category" json:"-"`
	Category      string    `gorm:"column:category;size:3;not null;uniqueIndex:idx_pii_value_category" json:"category"`
	CreatedAt     time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (TokenRecord) TableName() string {
	return "pii_token_vault"
}

// Options narrows a single anonymize call.
type Options struct {
	Categories []string
	Exclusions []string
}

type Result struct {
	AnonymizedText string
	TokensUsed     []models.TokenUse
	// Mapping is set in ephemeral mode only; it is the sole way back to the originals.
	Mapping Mapping
}

type Reconstitution struct {
	Text       string
	Resolved   int
	Unresolved int
}

// Resolver maps a token back to the value it replaced.
type Resolver interface {
	Resolve(ctx context.Context, token string) (value string, found bool, err error)
}

// Mapping is a call-scoped token to value table.
type Mapping map[string]string

func (m Mapping) Resolve(_ context.Context, token string) (string, bool, error) {
	v, ok := m[token]
	return v, ok, nil
}
