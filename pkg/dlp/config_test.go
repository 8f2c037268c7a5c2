package dlp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalogDefaults(t *testing.T) {
	cfg, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Len(t, cfg.Categories, 4)
	assert.Contains(t, cfg.Exclusions, "hola")
}

func TestLoadCatalogFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := `
categories:
  - code: NAM
    kind: name
    priority: 2
  - code: IBN
    name: iban
    kind: regex
    priority: 1
    pattern: '\bES\d{22}\b'
exclusions: [Hola, Banco]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadCatalog(path)
	require.NoError(t, err)
	catalog, err := NewCatalog(cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"IBN", "NAM"}, catalog.Codes())
	got := Detect("Banco Sol ES9121000418450200051332", catalog.Default())
	assert.Equal(t, []string{"NAM:Sol", "IBN:ES9121000418450200051332"}, values(got))
}

func TestLoadCatalogRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories: []\n"), 0o600))

	_, err := LoadCatalog(path)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestNewCatalogValidation(t *testing.T) {
	cases := map[string]CatalogConfig{
		"bad code":      {Categories: []Category{{Code: "EMAIL", Kind: KindName}}},
		"duplicate":     {Categories: []Category{{Code: "NAM", Kind: KindName}, {Code: "NAM", Kind: KindName}}},
		"bad regex":     {Categories: []Category{{Code: "BAD", Kind: KindRegex, Pattern: "("}}},
		"no pattern":    {Categories: []Category{{Code: "BAD", Kind: KindRegex}}},
		"digit bounds":  {Categories: []Category{{Code: "CED", Kind: KindDigits, MinDigits: 9, MaxDigits: 7}}},
		"unknown kind":  {Categories: []Category{{Code: "CED", Kind: "ml"}}},
		"all disabled":  {Categories: []Category{{Code: "NAM", Kind: KindName, Disabled: true}}},
		"no categories": {},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewCatalog(cfg)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestWithIDBoundsDoesNotMutateSource(t *testing.T) {
	base := DefaultCatalog()
	wide := base.WithIDBounds(6, 12)

	for _, c := range base.Categories {
		if c.Kind == KindDigits {
			assert.Equal(t, DefaultIDMinDigits, c.MinDigits)
		}
	}
	for _, c := range wide.Categories {
		if c.Kind == KindDigits {
			assert.Equal(t, 6, c.MinDigits)
			assert.Equal(t, 12, c.MaxDigits)
		}
	}
}
