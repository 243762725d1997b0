package columns

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stockwatch/stockwatch/constants"
)

// Vocabulary is the ordered synonym list per role. Treat it as immutable once handed to a Resolver.
type Vocabulary map[constants.Role][]string

// DefaultVocabulary covers the Korean and English headers seen in inventory sheets.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		constants.RoleItemName: {
			"품목명", "품명", "상품명", "제품명", "자재명", "품목", "상품", "제품", "자재",
			"itemname", "productname", "item", "product", "name",
		},
		constants.RoleQuantity: {
			"현재재고", "재고수량", "재고량", "재고", "수량", "잔량", "보유",
			"quantity", "qty", "onhand", "stock", "count",
		},
		constants.RoleUnit: {
			"단위", "unit", "uom",
		},
		constants.RoleSpecification: {
			"규격", "사양", "스펙", "specification", "spec", "size",
		},
		constants.RoleExpiry: {
			"유통기한", "소비기한", "만료", "expiry", "expiration", "expires", "bestbefore",
		},
	}
}

// vocabularyFile is the on-disk YAML shape:
//
//	roles:
//	  item-name: [품목명, name]
//	  quantity: [재고, qty]
//	replace: false
type vocabularyFile struct {
	Roles   map[string][]string `yaml:"roles"`
	Replace bool                `yaml:"replace"`
}

// LoadVocabulary reads a YAML vocabulary. Unless the file sets replace: true, its synonyms are
// appended after the defaults of the same role.
func LoadVocabulary(path string) (Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	return ParseVocabulary(data)
}

func ParseVocabulary(data []byte) (Vocabulary, error) {
	var vf vocabularyFile
	if err := yaml.Unmarshal(data, &vf); err != nil {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}
	out := Vocabulary{}
	if !vf.Replace {
		out = DefaultVocabulary()
	}
	for name, syns := range vf.Roles {
		role, ok := constants.ParseRole(name)
		if !ok {
			return nil, fmt.Errorf("parse vocabulary: unknown role %q", name)
		}
		out[role] = append(out[role], syns...)
	}
	return out, nil
}
