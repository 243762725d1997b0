// Package columns maps free-form spreadsheet headers onto canonical roles and pulls typed values
// out of rows keyed by those headers.
package columns

import (
	"strings"
	"unicode"

	"github.com/stockwatch/stockwatch/constants"
)

// MatchFunc decides whether a normalized header carries one of the normalized synonyms.
type MatchFunc func(header string, synonyms []string) bool

// ContainsAny is the default matcher: any synonym as a substring of the header.
func ContainsAny(header string, synonyms []string) bool {
	for _, syn := range synonyms {
		if syn != "" && strings.Contains(header, syn) {
			return true
		}
	}
	return false
}

// Resolver answers "does this header mean role R". It holds its own normalized copy of the vocabulary.
type Resolver struct {
	synonyms map[constants.Role][]string
	match    MatchFunc
}

type ResolverOption func(*Resolver)

// WithMatcher swaps the header/synonym comparison.
func WithMatcher(m MatchFunc) ResolverOption {
	return func(r *Resolver) {
		if m != nil {
			r.match = m
		}
	}
}

func NewResolver(vocab Vocabulary, opts ...ResolverOption) *Resolver {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	r := &Resolver{
		synonyms: make(map[constants.Role][]string, len(vocab)),
		match:    ContainsAny,
	}
	for role, syns := range vocab {
		norm := make([]string, 0, len(syns))
		for _, s := range syns {
			if n := Normalize(s); n != "" {
				norm = append(norm, n)
			}
		}
		r.synonyms[role] = norm
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve reports whether header matches any synonym of role. Unknown roles never match.
func (r *Resolver) Resolve(header string, role constants.Role) bool {
	syns := r.synonyms[role]
	if len(syns) == 0 {
		return false
	}
	return r.match(Normalize(header), syns)
}

// RoleOf returns the first role (in constants.Roles order) the header resolves to.
func (r *Resolver) RoleOf(header string) (constants.Role, bool) {
	for _, role := range constants.Roles() {
		if r.Resolve(header, role) {
			return role, true
		}
	}
	return "", false
}

// Normalize lower-cases s and drops every whitespace rune.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
