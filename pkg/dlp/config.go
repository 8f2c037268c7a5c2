package dlp

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Kind selects how a category finds its matches.
type Kind string

const (
	KindRegex  Kind = "regex"
	KindDigits Kind = "digits"
	KindName   Kind = "name"
)

// Default category codes.
const (
	CodeEmail  = "EMA"
	CodePhone  = "PHO"
	CodeCedula = "CED"
	CodeName   = "NAM"
)

const (
	DefaultIDMinDigits = 7
	DefaultIDMaxDigits = 9
)

type Category struct {
	Code      string `yaml:"code" json:"code"`
	Name      string `yaml:"name" json:"name"`
	Priority  int    `yaml:"priority" json:"priority"`
	Kind      Kind   `yaml:"kind" json:"kind"`
	Pattern   string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	MinDigits int    `yaml:"min_digits,omitempty" json:"min_digits,omitempty"`
	MaxDigits int    `yaml:"max_digits,omitempty" json:"max_digits,omitempty"`
	Disabled  bool   `yaml:"disabled,omitempty" json:"disabled,omitempty"`
}

type CatalogConfig struct {
	Categories []Category `yaml:"categories" json:"categories"`
	Exclusions []string   `yaml:"exclusions" json:"exclusions"`
}

// LoadCatalog reads a YAML catalog. An empty path yields DefaultCatalog.
func LoadCatalog(path string) (CatalogConfig, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return CatalogConfig{}, fmt.Errorf("read catalog: %w", err)
	}

	var cfg CatalogConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return CatalogConfig{}, ValidationError{reason: fmt.Errorf("parse catalog %s: %w", path, err)}
	}

	if len(cfg.Categories) == 0 {
		return CatalogConfig{}, ValidationError{reason: errors.New("no PII categories configured")}
	}

	return cfg, nil
}

// WithIDBounds returns a copy whose digit-run categories use min..max.
// Zero values keep the configured bounds.
func (c CatalogConfig) WithIDBounds(min, max int) CatalogConfig {
	if min == 0 && max == 0 {
		return c
	}
	out := CatalogConfig{
		Categories: make([]Category, len(c.Categories)),
		Exclusions: c.Exclusions,
	}
	copy(out.Categories, c.Categories)
	for i := range out.Categories {
		if out.Categories[i].Kind != KindDigits {
			continue
		}
		if min > 0 {
			out.Categories[i].MinDigits = min
		}
		if max > 0 {
			out.Categories[i].MaxDigits = max
		}
	}
	return out
}

// WithExclusions returns a copy with extra excluded words appended.
func (c CatalogConfig) WithExclusions(words []string) CatalogConfig {
	if len(words) == 0 {
		return c
	}
	out := c
	out.Exclusions = append(append([]string(nil), c.Exclusions...), words...)
	return out
}

func DefaultCatalog() CatalogConfig {
	return CatalogConfig{
		Categories: []Category{
			{Code: CodeEmail, Name: "email", Priority: 1, Kind: KindRegex, Pattern: `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`},
			{Code: CodePhone, Name: "phone", Priority: 2, Kind: KindRegex, Pattern: `(?:\+\d{1,3}[-.\s]?)?(?:\(\d{3}\)|\b\d{3})[-.\s]?\d{3}[-.\s]?\d{4}\b`},
			{Code: CodeCedula, Name: "cedula", Priority: 3, Kind: KindDigits, MinDigits: DefaultIDMinDigits, MaxDigits: DefaultIDMaxDigits},
			{Code: CodeName, Name: "name", Priority: 4, Kind: KindName},
		},
		Exclusions: DefaultExclusions(),
	}
}

// DefaultExclusions are capitalized words that commonly open a sentence or a
// greeting in Spanish and English prompts.
func DefaultExclusions() []string {
	return []string{
		"hola", "hello", "hi", "hey", "dear", "estimado", "estimada",
		"buenos", "buenas", "dias", "días", "tardes", "noches",
		"gracias", "thanks", "thank", "please", "por", "favor",
		"contact", "contacto", "call", "email", "llamar", "escribir",
		"the", "this", "that", "these", "those", "there", "here",
		"el", "la", "los", "las", "un", "una", "mi", "tu", "su", "yo",
		"my", "your", "our", "we", "you", "he", "she", "it", "they",
		"and", "or", "but", "if", "when", "what", "who", "how", "why",
		"señor", "señora", "sr", "sra", "mr", "mrs", "ms", "dr",
		"lunes", "martes", "miércoles", "jueves", "viernes", "sábado", "domingo",
		"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
		"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio",
		"agosto", "septiembre", "octubre", "noviembre", "diciembre",
		"january", "february", "march", "april", "june", "july",
		"august", "september", "october", "november", "december",
	}
}
