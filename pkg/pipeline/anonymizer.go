// Package pipeline anonymizes raw-text events from the broker and republishes
// them for downstream consumers.
package pipeline

import (
	"context"
	"fmt"

	"github.com/loopi346/MAIT-Privacy-Vault/pkg/common/logger"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/common/models"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/deid"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/dlp"
)

const (
	EventAnonymized = "anonymized-text"
	Source          = "privacy-vault"
)

type Anonymizer interface {
	Anonymize(ctx context.Context, text string, opts *deid.Options) (deid.Result, error)
}

type Publisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

type Processor struct {
	vault     Anonymizer
	publisher Publisher
}

func NewProcessor(vault Anonymizer, publisher Publisher) *Processor {
	return &Processor{vault: vault, publisher: publisher}
}

// Process is a kafka.EventHandler. Malformed events are dropped; store and
// publish failures are returned so the message is redelivered.
func (p *Processor) Process(ctx context.Context, event models.Event) error {
	text, opts, err := parseTextEvent(event)
	if err != nil {
		logger.Log.WithError(err).WithField("event_id", event.ID).Warn("dropping malformed raw-text event")
		return nil
	}

	res, err := p.vault.Anonymize(ctx, text, opts)
	if err != nil {
		if dlp.IsValidationError(err) {
			logger.Log.WithError(err).WithField("event_id", event.ID).Warn("dropping raw-text event with invalid options")
			return nil
		}
		return err
	}

	// The call mapping holds original values and never leaves the process.
	payload := map[string]interface{}{
		"original_event_id": event.ID,
		"anonymized_text":   res.AnonymizedText,
		"tokens_used":       res.TokensUsed,
	}
	return p.publisher.PublishEvent(ctx, EventAnonymized, Source, payload)
}

func parseTextEvent(event models.Event) (string, *deid.Options, error) {
	text, ok := event.Data["text"].(string)
	if !ok {
		return "", nil, fmt.Errorf("event %s: data.text missing or not a string", event.ID)
	}

	raw, present := event.Data["categories"]
	if !present || raw == nil {
		return text, nil, nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return "", nil, fmt.Errorf("event %s: data.categories must be a list", event.ID)
	}
	opts := &deid.Options{}
	for _, item := range list {
		code, ok := item.(string)
		if !ok {
			return "", nil, fmt.Errorf("event %s: category codes must be strings", event.ID)
		}
		opts.Categories = append(opts.Categories, code)
	}
	return text, opts, nil
}
