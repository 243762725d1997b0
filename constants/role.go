package constants

import (
	"strings"
)

// Role is the canonical meaning a free-form spreadsheet column can carry.
type Role string

const (
	RoleItemName      Role = "item-name"
	RoleQuantity      Role = "quantity"
	RoleUnit          Role = "unit"
	RoleSpecification Role = "specification"
	RoleExpiry        Role = "expiry"
)

var allRoles = []Role{
	RoleItemName,
	RoleQuantity,
	RoleUnit,
	RoleSpecification,
	RoleExpiry,
}

// Roles returns the known roles in declaration order.
func Roles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// ParseRole accepts the canonical name or a few spellings seen in config files.
func ParseRole(input string) (Role, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}

	synonyms := map[string]Role{
		"name":      RoleItemName,
		"item":      RoleItemName,
		"item_name": RoleItemName,
		"itemname":  RoleItemName,
		"qty":       RoleQuantity,
		"stock":     RoleQuantity,
		"spec":      RoleSpecification,
		"expires":   RoleExpiry,
		"expiry_at": RoleExpiry,
	}
	if r, ok := synonyms[normalized]; ok {
		return r, true
	}

	for _, r := range allRoles {
		if normalized == string(r) {
			return r, true
		}
	}
	return "", false
}

// IsNumeric reports whether values of the role are coerced to numbers.
func (r Role) IsNumeric() bool {
	return r == RoleQuantity
}
