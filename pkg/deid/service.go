package deid

import (
	"context"
	"time"

	"github.com/loopi346/MAIT-Privacy-Vault/pkg/common/logger"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/common/models"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/common/requestid"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/dlp"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/observability/metrics"
)

type Settings struct {
	Mode         string
	TokenSalt    string
	SuffixLength int
	MaxAttempts  int
	StoreTimeout time.Duration
}

// Service is the anonymization engine. It holds no per-call state; the only
// persistent state lives behind the durable mapper.
type Service struct {
	catalog  *dlp.Catalog
	mapper   *Mapper
	mode     string
	mapperOp []MapperOption
	audit    AuditSink
}

func NewService(catalog *dlp.Catalog, backend Backend, settings Settings) *Service {
	opts := []MapperOption{
		WithMintFunc(NewMinter(settings.TokenSalt, settings.SuffixLength)),
		WithMaxAttempts(settings.MaxAttempts),
		WithStoreTimeout(settings.StoreTimeout),
	}
	mode := settings.Mode
	if mode != ModeEphemeral {
		mode = ModeDurable
	}
	return &Service{
		catalog:  catalog,
		mapper:   NewMapper(backend, catalog, opts...),
		mode:     mode,
		mapperOp: opts,
	}
}

// WithMapper swaps the durable mapper, mainly for tests that control minting.
func (s *Service) WithMapper(m *Mapper) *Service {
	s.mapper = m
	return s
}

// WithAudit records every completed call in sink.
func (s *Service) WithAudit(sink AuditSink) *Service {
	s.audit = sink
	return s
}

func (s *Service) Mode() string { return s.mode }

func (s *Service) Catalog() *dlp.Catalog { return s.catalog }

// Anonymize replaces detected PII with tokens. Either every detected value is
// tokenized or an error is returned with an empty Result.
func (s *Service) Anonymize(ctx context.Context, text string, opts *Options) (Result, error) {
	res, err := s.anonymize(ctx, text, opts)
	metrics.ObserveAnonymize(len(res.TokensUsed), err)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"request_id": requestid.From(ctx),
			"mode":       s.mode,
		}).WithError(err).Error("anonymize aborted")
		return Result{}, err
	}
	s.record(ctx, "anonymize", res.TokensUsed, 0)
	return res, nil
}

func (s *Service) anonymize(ctx context.Context, text string, opts *Options) (Result, error) {
	profile := s.catalog.Default()
	if opts != nil {
		var err error
		profile, err = s.catalog.Profile(dlp.ProfileOptions{
			Categories: opts.Categories,
			Exclusions: opts.Exclusions,
		})
		if err != nil {
			return Result{}, err
		}
	}

	res := Result{AnonymizedText: text, TokensUsed: []models.TokenUse{}}
	matches := dlp.Detect(text, profile)
	if len(matches) == 0 {
		return res, nil
	}

	mapper := s.mapper
	if s.mode == ModeEphemeral {
		mapper = NewMapper(NewMemoryBackend(), s.catalog, s.mapperOp...)
		res.Mapping = Mapping{}
	}

	tokens := make(map[string]string)
	for _, c := range dlp.Dedupe(matches) {
		// A value seen under an earlier category keeps that token.
		if _, done := tokens[c.Value]; done {
			continue
		}
		token, err := mapper.AllocateOrGet(ctx, c.Value, c.Code)
		if err != nil {
			return Result{}, err
		}
		tokens[c.Value] = token
		res.TokensUsed = append(res.TokensUsed, models.TokenUse{Token: token, Category: c.Code})
		if res.Mapping != nil {
			res.Mapping[token] = c.Value
		}
	}

	res.AnonymizedText = Substitute(text, matches, tokens)
	return res, nil
}

// Deanonymize reconstitutes text against the durable mapping store.
func (s *Service) Deanonymize(ctx context.Context, text string) (Reconstitution, error) {
	return s.DeanonymizeWith(ctx, text, s.mapper)
}

// DeanonymizeWith reconstitutes text against resolver, typically the Mapping
// returned by an ephemeral Anonymize call.
func (s *Service) DeanonymizeWith(ctx context.Context, text string, resolver Resolver) (Reconstitution, error) {
	rec, err := Reconstitute(ctx, text, resolver)
	metrics.ObserveDeanonymize(rec.Resolved, rec.Unresolved, err)
	if err != nil {
		logger.WithField("request_id", requestid.From(ctx)).WithError(err).Error("deanonymize aborted")
		return Reconstitution{}, err
	}
	if rec.Unresolved > 0 {
		logger.WithFields(map[string]interface{}{
			"request_id": requestid.From(ctx),
			"unresolved": rec.Unresolved,
		}).Warn("tokens left unresolved")
	}
	s.record(ctx, "deanonymize", nil, rec.Unresolved)
	return rec, nil
}

// TokenizeValue allocates or fetches the token of a single known value.
func (s *Service) TokenizeValue(ctx context.Context, value, code string) (string, error) {
	if !s.catalog.Has(code) {
		return "", dlp.NewValidationError("unknown PII category %q", code)
	}
	token, err := s.mapper.AllocateOrGet(ctx, value, code)
	if err != nil {
		return "", err
	}
	s.record(ctx, "tokenize", []models.TokenUse{{Token: token, Category: code}}, 0)
	return token, nil
}

// Resolve looks up a single token in the durable store.
func (s *Service) Resolve(ctx context.Context, token string) (string, bool, error) {
	return s.mapper.Resolve(ctx, token)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.mapper.Ping(ctx)
}
