package columns

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockwatch/stockwatch/constants"
	"github.com/stockwatch/stockwatch/internal/entity"
)

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   any
		want *float64
	}{
		{nil, nil},
		{"", nil},
		{"   ", nil},
		{"abc", nil},
		{"12abc", nil},
		{",", nil},
		{"1,234", entity.Float64Ptr(1234)},
		{" 45 ", entity.Float64Ptr(45)},
		{"-3.5", entity.Float64Ptr(-3.5)},
		{"0", entity.Float64Ptr(0)},
		{12.5, entity.Float64Ptr(12.5)},
		{true, nil},
		{math.NaN(), nil},
		{math.Inf(1), nil},
		{math.Inf(-1), nil},
		{"NaN", nil},
		{"Inf", nil},
		{"-infinity", nil},
		{"1e400", nil},
		{"1.5e3", entity.Float64Ptr(1500)},
	}
	for _, tc := range cases {
		got := ParseNumber(tc.in)
		if tc.want == nil {
			assert.Nil(t, got, "input %#v", tc.in)
			continue
		}
		require.NotNil(t, got, "input %#v", tc.in)
		assert.InDelta(t, *tc.want, *got, 1e-9, "input %#v", tc.in)
	}
}

func TestExtract_KoreanHeaders(t *testing.T) {
	e := NewExtractor(nil)
	fields := entity.FieldsOf("현재 재고", "45", "품목명", "볼트", "단위", "EA", "규격", "M8x20")

	assert.Equal(t, 45.0, e.Extract(fields, constants.RoleQuantity))
	assert.Equal(t, "볼트", e.Extract(fields, constants.RoleItemName))
	assert.Equal(t, "EA", e.Extract(fields, constants.RoleUnit))
	assert.Equal(t, "M8x20", e.Extract(fields, constants.RoleSpecification))
}

func TestExtract_FirstMatchingKeyWins(t *testing.T) {
	e := NewExtractor(nil)
	fields := entity.FieldsOf("안전재고", "10", "현재재고", "3")

	q, ok := e.Quantity(fields)
	require.True(t, ok)
	assert.Equal(t, 10.0, q)
}

func TestExtract_UnparseableQuantityIsAbsent(t *testing.T) {
	e := NewExtractor(nil)
	fields := entity.FieldsOf("재고", "많음", "수량", "7")

	assert.Nil(t, e.Extract(fields, constants.RoleQuantity))
	assert.Equal(t, 0.0, e.QuantityOrZero(fields))
}

func TestExtract_NoFallbackForNonNameRoles(t *testing.T) {
	e := NewExtractor(nil)
	fields := entity.FieldsOf("Column 1", "5000", "비고", "box")

	assert.Nil(t, e.Extract(fields, constants.RoleQuantity))
	assert.Nil(t, e.Extract(fields, constants.RoleUnit))
	assert.Nil(t, e.Extract(fields, constants.RoleSpecification))
}

func TestExtract_ItemNameFallback(t *testing.T) {
	e := NewExtractor(nil)

	t.Run("prefers a non-numeric string", func(t *testing.T) {
		fields := entity.FieldsOf("id", "row-1", "코드", "1001", "비고", "나사못")
		assert.Equal(t, "나사못", e.Extract(fields, constants.RoleItemName))
	})

	t.Run("placeholder headers only feed the last tier", func(t *testing.T) {
		fields := entity.FieldsOf("Column 1", "5000", "Column 2", "상품A")
		assert.Equal(t, "5000", e.Extract(fields, constants.RoleItemName))
	})

	t.Run("numbers are stringified in the last tier", func(t *testing.T) {
		fields := entity.FieldsOf("코드", 1001.0)
		assert.Equal(t, "1001", e.Extract(fields, constants.RoleItemName))
	})

	t.Run("nothing usable", func(t *testing.T) {
		fields := entity.FieldsOf("id", "row-1", "코드", "", "비고", nil)
		assert.Nil(t, e.Extract(fields, constants.RoleItemName))
	})
}

func TestExtract_MatchedNullNameHasNoFallback(t *testing.T) {
	e := NewExtractor(nil)
	fields := entity.FieldsOf("품목명", nil, "비고", "나사못")

	assert.Nil(t, e.Extract(fields, constants.RoleItemName))
}
