package deid

import (
	"context"
	"fmt"

	"github.com/loopi346/MAIT-Privacy-Vault/pkg/common/models"
)

// Generator is the text-generation collaborator. It only ever receives
// anonymized text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Completion struct {
	Response         string
	AnonymizedPrompt string
	TokensUsed       []models.TokenUse
	Unresolved       int
}

// Complete anonymizes prompt, hands it to gen and reconstitutes the reply.
func (s *Service) Complete(ctx context.Context, prompt string, gen Generator, opts *Options) (Completion, error) {
	anon, err := s.Anonymize(ctx, prompt, opts)
	if err != nil {
		return Completion{}, err
	}

	reply, err := gen.Generate(ctx, anon.AnonymizedText)
	if err != nil {
		return Completion{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	var rec Reconstitution
	if anon.Mapping != nil {
		rec, err = s.DeanonymizeWith(ctx, reply, anon.Mapping)
	} else {
		rec, err = s.Deanonymize(ctx, reply)
	}
	if err != nil {
		return Completion{}, err
	}

	return Completion{
		Response:         rec.Text,
		AnonymizedPrompt: anon.AnonymizedText,
		TokensUsed:       anon.TokensUsed,
		Unresolved:       rec.Unresolved,
	}, nil
}
