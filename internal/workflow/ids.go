package workflow

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// IDGenerator allocates workflow ids.
// Implemented by UUIDv7Generator (production) and deterministic generators in tests.
type IDGenerator interface {
	NewID(kind, subject string) string
}

// UUIDv7Generator derives ids from the workflow kind, the subject id and a
// UUIDv7. The UUIDv7 carries the creation timestamp in its high bits, which
// keeps ids time-sortable and collision-resistant.
//
// Format: "export_contract-42_01927c1e-8d0f-7c2a-9f55-2b7c6a3e5d10"
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// NewID creates a new id. Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) NewID(kind, subject string) string {
	return JoinID(kind, subject, uuid.Must(uuid.NewV7()).String())
}

// JoinID slugs each non-empty part and joins them with underscores.
func JoinID(parts ...string) string {
	slugs := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := Slug(p); s != "" {
			slugs = append(slugs, s)
		}
	}
	return strings.Join(slugs, "_")
}

// Slug NFC-normalises s, lowercases it and collapses every run of
// characters other than letters, digits and '-' into a single '-'.
func Slug(s string) string {
	s = strings.ToLower(norm.NFC.String(s))

	var b strings.Builder
	b.Grow(len(s))
	dash := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
