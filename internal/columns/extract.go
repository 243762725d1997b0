package columns

import (
	"strings"

	"github.com/stockwatch/stockwatch/constants"
	"github.com/stockwatch/stockwatch/internal/entity"
)

// Extractor pulls role values out of a row's fields using a Resolver.
// Multiple keys resolving to the same role: the first key in field order wins.
type Extractor struct {
	resolver *Resolver
}

func NewExtractor(resolver *Resolver) *Extractor {
	if resolver == nil {
		resolver = NewResolver(nil)
	}
	return &Extractor{resolver: resolver}
}

func (e *Extractor) Resolver() *Resolver {
	return e.resolver
}

// Extract returns float64 for numeric roles, string for text roles, nil when nothing usable exists.
// Only item-name has a fallback when no header matches; see itemNameFallback.
func (e *Extractor) Extract(fields entity.Fields, role constants.Role) any {
	if i, ok := e.matchKey(fields, role); ok {
		v := fields[i].Value
		if role.IsNumeric() {
			if n := ParseNumber(v); n != nil {
				return *n
			}
			return nil
		}
		if v == nil {
			return nil
		}
		return entity.CellString(v)
	}
	if role == constants.RoleItemName {
		if s, ok := itemNameFallback(fields); ok {
			return s
		}
	}
	return nil
}

// Quantity is Extract(quantity) typed.
func (e *Extractor) Quantity(fields entity.Fields) (float64, bool) {
	if v, ok := e.Extract(fields, constants.RoleQuantity).(float64); ok {
		return v, true
	}
	return 0, false
}

// QuantityOrZero is the current quantity used for comparisons.
func (e *Extractor) QuantityOrZero(fields entity.Fields) float64 {
	q, _ := e.Quantity(fields)
	return q
}

// Text is Extract for a text role typed.
func (e *Extractor) Text(fields entity.Fields, role constants.Role) (string, bool) {
	s, ok := e.Extract(fields, role).(string)
	return s, ok
}

// Key returns the header that a role resolved to, if any.
func (e *Extractor) Key(fields entity.Fields, role constants.Role) (string, bool) {
	if i, ok := e.matchKey(fields, role); ok {
		return fields[i].Key, true
	}
	return "", false
}

func (e *Extractor) matchKey(fields entity.Fields, role constants.Role) (int, bool) {
	for i, f := range fields {
		if e.resolver.Resolve(f.Key, role) {
			return i, true
		}
	}
	return -1, false
}

// itemNameFallback runs in two tiers. First: the first non-numeric, non-blank string, skipping
// "column…" placeholder headers and "id". Second: the first non-blank value of any key but "id",
// placeholders included.
func itemNameFallback(fields entity.Fields) (string, bool) {
	for _, f := range fields {
		k := strings.ToLower(strings.TrimSpace(f.Key))
		if strings.HasPrefix(k, "column") || k == "id" {
			continue
		}
		s, ok := f.Value.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" || ParseNumber(s) != nil {
			continue
		}
		return s, true
	}
	for _, f := range fields {
		if strings.ToLower(strings.TrimSpace(f.Key)) == "id" {
			continue
		}
		if s := strings.TrimSpace(entity.CellString(f.Value)); s != "" {
			return s, true
		}
	}
	return "", false
}
