package deid

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/loopi346/MAIT-Privacy-Vault/pkg/cedula"
)

const guidancePrompt = "You are a privacy and data-protection assistant. The user provides metadata about a masked national ID, never the plaintext. " +
	"Give short, actionable guidance to anonymize and store it safely. " +
	"Keep the answer under 80 words, add no legal disclaimers and never try to expose or reconstruct PII.\nMasked metadata: %s"

// CedulaGuidance asks gen for storage advice about a cédula. Only the masked
// metadata reaches the generator.
func CedulaGuidance(ctx context.Context, gen Generator, masked cedula.Masked) (string, error) {
	meta, err := json.Marshal(masked)
	if err != nil {
		return "", fmt.Errorf("encode masked cedula: %w", err)
	}
	reply, err := gen.Generate(ctx, fmt.Sprintf(guidancePrompt, meta))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	return reply, nil
}
