package dlp

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var codePattern = regexp.MustCompile(`^[A-Z]{3}$`)

type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func NewValidationError(format string, args ...interface{}) error {
	return ValidationError{reason: fmt.Errorf(format, args...)}
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

type compiledCategory struct {
	category Category
	re       *regexp.Regexp
}

// Catalog is the compiled, priority-ordered set of categories. It is
// immutable once built and safe for concurrent use.
type Catalog struct {
	categories []compiledCategory
	exclusions map[string]struct{}
}

func NewCatalog(cfg CatalogConfig) (*Catalog, error) {
	if len(cfg.Categories) == 0 {
		return nil, NewValidationError("no PII categories configured")
	}

	seen := make(map[string]struct{}, len(cfg.Categories))
	var compiled []compiledCategory
	for _, cat := range cfg.Categories {
		if !codePattern.MatchString(cat.Code) {
			return nil, NewValidationError("category code %q must be three uppercase letters", cat.Code)
		}
		if _, dup := seen[cat.Code]; dup {
			return nil, NewValidationError("duplicate category code %q", cat.Code)
		}
		seen[cat.Code] = struct{}{}
		if cat.Disabled {
			continue
		}

		cc := compiledCategory{category: cat}
		switch cat.Kind {
		case KindRegex, "":
			cc.category.Kind = KindRegex
			if cat.Pattern == "" {
				return nil, NewValidationError("category %s has no pattern", cat.Code)
			}
			re, err := regexp.Compile(cat.Pattern)
			if err != nil {
				return nil, ValidationError{reason: fmt.Errorf("category %s: %w", cat.Code, err)}
			}
			cc.re = re
		case KindDigits:
			if cat.MinDigits <= 0 || cat.MaxDigits < cat.MinDigits {
				return nil, NewValidationError("category %s has invalid digit bounds %d..%d", cat.Code, cat.MinDigits, cat.MaxDigits)
			}
			cc.re = regexp.MustCompile(fmt.Sprintf(`\b\d{%d,%d}\b`, cat.MinDigits, cat.MaxDigits))
		case KindName:
		default:
			return nil, NewValidationError("category %s has unknown kind %q", cat.Code, cat.Kind)
		}
		compiled = append(compiled, cc)
	}

	if len(compiled) == 0 {
		return nil, NewValidationError("every PII category is disabled")
	}

	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].category.Priority < compiled[j].category.Priority
	})

	return &Catalog{
		categories: compiled,
		exclusions: exclusionSet(cfg.Exclusions),
	}, nil
}

// Codes lists the enabled category codes in priority order.
func (c *Catalog) Codes() []string {
	codes := make([]string, len(c.categories))
	for i, cc := range c.categories {
		codes[i] = cc.category.Code
	}
	return codes
}

func (c *Catalog) Has(code string) bool {
	for _, cc := range c.categories {
		if cc.category.Code == code {
			return true
		}
	}
	return false
}

// ProfileOptions narrows a catalog for one call.
type ProfileOptions struct {
	Categories []string
	Exclusions []string
}

// Profile is the detection configuration handed to Detect.
type Profile struct {
	categories []compiledCategory
	exclusions map[string]struct{}
}

// Default is the profile with every enabled category and the configured exclusions.
func (c *Catalog) Default() Profile {
	return Profile{categories: c.categories, exclusions: c.exclusions}
}

// Profile restricts detection to opts.Categories (all when empty) and adds
// opts.Exclusions to the configured exclusion set.
func (c *Catalog) Profile(opts ProfileOptions) (Profile, error) {
	p := c.Default()

	if len(opts.Categories) > 0 {
		wanted := make(map[string]struct{}, len(opts.Categories))
		for _, code := range opts.Categories {
			code = strings.ToUpper(strings.TrimSpace(code))
			if !c.Has(code) {
				return Profile{}, NewValidationError("unknown PII category %q", code)
			}
			wanted[code] = struct{}{}
		}
		p.categories = nil
		for _, cc := range c.categories {
			if _, ok := wanted[cc.category.Code]; ok {
				p.categories = append(p.categories, cc)
			}
		}
	}

	if len(opts.Exclusions) > 0 {
		merged := make(map[string]struct{}, len(c.exclusions)+len(opts.Exclusions))
		for w := range c.exclusions {
			merged[w] = struct{}{}
		}
		for w := range exclusionSet(opts.Exclusions) {
			merged[w] = struct{}{}
		}
		p.exclusions = merged
	}

	return p, nil
}

// Matches reports whether any category of the catalog finds something in s.
func (c *Catalog) Matches(s string) bool {
	return len(Detect(s, c.Default())) > 0
}

func exclusionSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if trimmed := strings.ToLower(strings.TrimSpace(w)); trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	return set
}
