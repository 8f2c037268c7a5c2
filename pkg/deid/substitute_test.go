package deid

import (
	"context"
	"errors"
	"testing"

	"github.com/loopi346/MAIT-Privacy-Vault/pkg/dlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstituteDetectedSpans(t *testing.T) {
	text := "Contact Juan Perez at juan@x.com"
	matches := []dlp.Candidate{
		{Start: 8, End: 18, Code: dlp.CodeName, Value: "Juan Perez"},
		{Start: 22, End: 32, Code: dlp.CodeEmail, Value: "juan@x.com"},
	}
	tokens := map[string]string{"Juan Perez": "[NAM-aaaa1111]", "juan@x.com": "[EMA-bbbb2222]"}

	assert.Equal(t, "Contact [NAM-aaaa1111] at [EMA-bbbb2222]", Substitute(text, matches, tokens))
}

func TestSubstituteReplacesOtherLiteralOccurrences(t *testing.T) {
	text := "id 1234567 and x1234567"
	matches := []dlp.Candidate{{Start: 3, End: 10, Code: dlp.CodeCedula, Value: "1234567"}}
	tokens := map[string]string{"1234567": "[CED-cccc3333]"}

	assert.Equal(t, "id [CED-cccc3333] and x[CED-cccc3333]", Substitute(text, matches, tokens))
}

func TestSubstituteNeverSplitsClaimedSpans(t *testing.T) {
	// "Ana" also occurs inside the email; the email span is claimed first.
	text := "Ana wrote from ana.Ana@x.com"
	matches := []dlp.Candidate{
		{Start: 15, End: 28, Code: dlp.CodeEmail, Value: "ana.Ana@x.com"},
		{Start: 0, End: 3, Code: dlp.CodeName, Value: "Ana"},
	}
	tokens := map[string]string{"ana.Ana@x.com": "[EMA-dddd4444]", "Ana": "[NAM-eeee5555]"}

	assert.Equal(t, "[NAM-eeee5555] wrote from [EMA-dddd4444]", Substitute(text, matches, tokens))
}

func TestSubstituteKeepsNamesInsideLongerWords(t *testing.T) {
	text := "Ana met McAna and Ana, not Anabel"
	matches := []dlp.Candidate{{Start: 0, End: 3, Code: dlp.CodeName, Value: "Ana"}}
	tokens := map[string]string{"Ana": "[NAM-ffff6666]"}

	assert.Equal(t, "[NAM-ffff6666] met McAna and [NAM-ffff6666], not Anabel", Substitute(text, matches, tokens))
}

func TestSubstituteNothingToDo(t *testing.T) {
	assert.Equal(t, "plain", Substitute("plain", nil, nil))
}

type errResolver struct{}

func (errResolver) Resolve(context.Context, string) (string, bool, error) {
	return "", false, errors.New("down")
}

func TestReconstitute(t *testing.T) {
	m := Mapping{"[NAM-aaaa1111]": "Maria", "[EMA-bbbb2222]": "m@x.com"}
	text := "Hi [NAM-aaaa1111], mail [EMA-bbbb2222]; again [NAM-aaaa1111] and [CED-zzzz9999]"

	rec, err := Reconstitute(context.Background(), text, m)
	require.NoError(t, err)
	assert.Equal(t, "Hi Maria, mail m@x.com; again Maria and [CED-zzzz9999]", rec.Text)
	assert.Equal(t, 2, rec.Resolved)
	assert.Equal(t, 1, rec.Unresolved)
}

func TestReconstituteIgnoresMalformedTokens(t *testing.T) {
	rec, err := Reconstitute(context.Background(), "[NAM-ab] [nam-abcd1234] [NAM ABCD]", Mapping{})
	require.NoError(t, err)
	assert.Equal(t, "[NAM-ab] [nam-abcd1234] [NAM ABCD]", rec.Text)
	assert.Zero(t, rec.Resolved)
	assert.Zero(t, rec.Unresolved)
}

func TestReconstituteFailsClosed(t *testing.T) {
	rec, err := Reconstitute(context.Background(), "x [NAM-aaaa1111]", errResolver{})
	require.Error(t, err)
	assert.Empty(t, rec.Text)
}
