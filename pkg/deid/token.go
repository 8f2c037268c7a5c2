package deid

import (
	"crypto/sha256"
	"math/big"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	DefaultSuffixLength = 8
	DefaultMaxAttempts  = 5
)

// TokenPattern is the wire grammar of a token: "[" CODE "-" suffix "]".
var TokenPattern = regexp.MustCompile(`\[[A-Z]{3}-[a-z0-9]{4,32}\]`)

// MintFunc produces a candidate token for value in category code.
type MintFunc func(code, value string) string

// NewMinter returns a MintFunc whose suffix is the base36 tail of
// sha256(salt:value:uuid). The uuid makes every attempt distinct.
func NewMinter(salt string, length int) MintFunc {
	if length <= 0 {
		length = DefaultSuffixLength
	}
	return func(code, value string) string {
		sum := sha256.Sum256([]byte(salt + ":" + value + ":" + uuid.NewString()))
		suffix := new(big.Int).SetBytes(sum[:]).Text(36)
		if len(suffix) < length {
			suffix = strings.Repeat("0", length-len(suffix)) + suffix
		}
		return "[" + code + "-" + suffix[len(suffix)-length:] + "]"
	}
}

// IsToken reports whether s is exactly one well-formed token.
func IsToken(s string) bool {
	loc := TokenPattern.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}
