package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/loopi346/MAIT-Privacy-Vault/pkg/common/models"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/deid"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/dlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVault struct {
	gotText string
	gotOpts *deid.Options
	err     error
}

func (f *fakeVault) Anonymize(ctx context.Context, text string, opts *deid.Options) (deid.Result, error) {
	f.gotText, f.gotOpts = text, opts
	if f.err != nil {
		return deid.Result{}, f.err
	}
	return deid.Result{
		AnonymizedText: "Hola [NAM-abcd1234]",
		TokensUsed:     []models.TokenUse{{Token: "[NAM-abcd1234]", Category: dlp.CodeName}},
	}, nil
}

type fakePublisher struct {
	events []map[string]interface{}
	err    error
}

func (f *fakePublisher) PublishEvent(ctx context.Context, eventType, source string, data map[string]interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, data)
	return nil
}

func TestProcessPublishesAnonymizedText(t *testing.T) {
	vault := &fakeVault{}
	pub := &fakePublisher{}
	p := NewProcessor(vault, pub)

	err := p.Process(context.Background(), models.Event{
		ID:   "ev-1",
		Data: map[string]interface{}{"text": "Hola Maria", "categories": []interface{}{"NAM"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Hola Maria", vault.gotText)
	require.NotNil(t, vault.gotOpts)
	assert.Equal(t, []string{"NAM"}, vault.gotOpts.Categories)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "ev-1", pub.events[0]["original_event_id"])
	assert.Equal(t, "Hola [NAM-abcd1234]", pub.events[0]["anonymized_text"])
}

func TestProcessNeverPublishesOriginalValues(t *testing.T) {
	catalog, err := dlp.NewCatalog(dlp.DefaultCatalog())
	require.NoError(t, err)
	svc := deid.NewService(catalog, deid.NewMemoryBackend(), deid.Settings{
		Mode:         deid.ModeEphemeral,
		StoreTimeout: time.Second,
	})
	pub := &fakePublisher{}

	err = NewProcessor(svc, pub).Process(context.Background(), models.Event{
		ID:   "ev-2",
		Data: map[string]interface{}{"text": "mail juan@x.com"},
	})
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	assert.NotContains(t, pub.events[0], "mapping")
	raw, err := json.Marshal(pub.events[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "juan@x.com")
}

func TestProcessDropsMalformedEvents(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProcessor(&fakeVault{}, pub)

	for _, data := range []map[string]interface{}{
		{},
		{"text": 42},
		{"text": "x", "categories": "NAM"},
		{"text": "x", "categories": []interface{}{1}},
	} {
		assert.NoError(t, p.Process(context.Background(), models.Event{ID: "bad", Data: data}))
	}
	assert.Empty(t, pub.events)
}

func TestProcessDropsInvalidOptions(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProcessor(&fakeVault{err: dlp.NewValidationError("unknown category %q", "XYZ")}, pub)

	assert.NoError(t, p.Process(context.Background(), models.Event{ID: "ev", Data: map[string]interface{}{"text": "x"}}))
	assert.Empty(t, pub.events)
}

func TestProcessReturnsStoreFailures(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProcessor(&fakeVault{err: deid.ErrStoreUnavailable}, pub)

	err := p.Process(context.Background(), models.Event{ID: "ev", Data: map[string]interface{}{"text": "x"}})
	assert.ErrorIs(t, err, deid.ErrStoreUnavailable)
	assert.Empty(t, pub.events)
}

func TestProcessReturnsPublishFailures(t *testing.T) {
	p := NewProcessor(&fakeVault{}, &fakePublisher{err: errors.New("broker down")})
	assert.Error(t, p.Process(context.Background(), models.Event{ID: "ev", Data: map[string]interface{}{"text": "x"}}))
}
