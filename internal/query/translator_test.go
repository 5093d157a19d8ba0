package query

import (
	"net/url"
	"testing"

	"fleetbook/internal/apperr"
	"fleetbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate_Defaults(t *testing.T) {
	desc, err := Translate(url.Values{}, ResourceVehicles)
	require.NoError(t, err)

	assert.Empty(t, desc.Filters)
	assert.Nil(t, desc.Sort)
	assert.Equal(t, 0, desc.Offset)
	assert.Equal(t, models.DefaultPageSize, desc.Limit)
}

func TestTranslate_Filters(t *testing.T) {
	raw := url.Values{
		"brand":        {"Toyota"},
		"price_by_day": {"lte:100"},
		"category":     {"car"},
	}

	desc, err := Translate(raw, ResourceVehicles)
	require.NoError(t, err)
	require.Len(t, desc.Filters, 3)

	// Filters follow sorted parameter names for determinism
	assert.Equal(t, Filter{Field: "brand", Operator: OpEq, Value: "Toyota"}, desc.Filters[0])
	assert.Equal(t, Filter{Field: "category", Operator: OpEq, Value: "CAR"}, desc.Filters[1])
	assert.Equal(t, Filter{Field: "price_by_day", Operator: OpLte, Value: 100.0}, desc.Filters[2])
}

func TestTranslate_DefaultOperatorIsEq(t *testing.T) {
	desc, err := Translate(url.Values{"year_of_production": {"2020"}}, ResourceVehicles)
	require.NoError(t, err)
	require.Len(t, desc.Filters, 1)
	assert.Equal(t, OpEq, desc.Filters[0].Operator)
	assert.Equal(t, 2020, desc.Filters[0].Value)
}

func TestTranslate_RangeOperators(t *testing.T) {
	desc, err := Translate(url.Values{"year_of_production": {"gte:2015", "lte:2020"}}, ResourceVehicles)
	require.NoError(t, err)
	require.Len(t, desc.Filters, 2)
	assert.Equal(t, OpGte, desc.Filters[0].Operator)
	assert.Equal(t, OpLte, desc.Filters[1].Operator)
}

func TestTranslate_UnknownField(t *testing.T) {
	_, err := Translate(url.Values{"colour": {"red"}}, ResourceVehicles)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))
	assert.Contains(t, err.Error(), "colour")
}

func TestTranslate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		raw  url.Values
	}{
		{"range op on brand", url.Values{"brand": {"gte:Toyota"}}},
		{"non-numeric price", url.Values{"price_by_day": {"cheap"}}},
		{"unknown enum value", url.Values{"category": {"BICYCLE"}}},
		{"bad date", url.Values{"from_date": {"June 1st"}}},
		{"empty value", url.Values{"brand": {"  "}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resource := ResourceVehicles
			if tt.name == "bad date" {
				resource = ResourceBookings
			}
			_, err := Translate(tt.raw, resource)
			require.Error(t, err)
			assert.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))
		})
	}
}

func TestTranslate_BookingFields(t *testing.T) {
	raw := url.Values{
		"status":    {"pending"},
		"from_date": {"gte:2026-06-01"},
		"owner_id":  {"cust-1"},
	}

	desc, err := Translate(raw, ResourceBookings)
	require.NoError(t, err)
	require.Len(t, desc.Filters, 3)
	assert.Equal(t, "PENDING", desc.Filters[2].Value)

	d, ok := desc.Filters[0].Value.(models.Date)
	require.True(t, ok)
	assert.Equal(t, "2026-06-01", d.String())
}

func TestTranslate_Sort(t *testing.T) {
	desc, err := Translate(url.Values{"sort": {"price_by_day"}}, ResourceVehicles)
	require.NoError(t, err)
	require.NotNil(t, desc.Sort)
	assert.Equal(t, "price_by_day", desc.Sort.Field)
	assert.False(t, desc.Sort.Descending)

	desc, err = Translate(url.Values{"sort": {"-year_of_production"}}, ResourceVehicles)
	require.NoError(t, err)
	require.NotNil(t, desc.Sort)
	assert.True(t, desc.Sort.Descending)

	// created_at is always sortable
	desc, err = Translate(url.Values{"sort": {"-created_at"}}, ResourceBookings)
	require.NoError(t, err)
	require.NotNil(t, desc.Sort)
	assert.Equal(t, "created_at", desc.Sort.Field)

	// Non-sortable and unknown fields fail
	_, err = Translate(url.Values{"sort": {"category"}}, ResourceVehicles)
	assert.Error(t, err)
	_, err = Translate(url.Values{"sort": {"bogus"}}, ResourceVehicles)
	assert.Error(t, err)
}

func TestTranslate_Pagination(t *testing.T) {
	desc, err := Translate(url.Values{"offset": {"40"}, "limit": {"10"}}, ResourceVehicles)
	require.NoError(t, err)
	assert.Equal(t, 40, desc.Offset)
	assert.Equal(t, 10, desc.Limit)

	// Limit clamps to the maximum
	desc, err = Translate(url.Values{"limit": {"5000"}}, ResourceVehicles)
	require.NoError(t, err)
	assert.Equal(t, models.MaxPageSize, desc.Limit)

	// Zero limit falls back to the default
	desc, err = Translate(url.Values{"limit": {"0"}}, ResourceVehicles)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPageSize, desc.Limit)

	_, err = Translate(url.Values{"offset": {"-1"}}, ResourceVehicles)
	assert.Error(t, err)
	_, err = Translate(url.Values{"limit": {"many"}}, ResourceVehicles)
	assert.Error(t, err)
}

func TestTranslate_Deterministic(t *testing.T) {
	raw := url.Values{
		"brand":        {"Toyota"},
		"category":     {"CAR"},
		"price_by_day": {"gte:10"},
		"sort":         {"-price_by_day"},
		"limit":        {"5"},
	}

	first, err := Translate(raw, ResourceVehicles)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Translate(raw, ResourceVehicles)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestDescriptorWithFilter(t *testing.T) {
	base := Descriptor{Filters: []Filter{{Field: "status", Operator: OpEq, Value: "PENDING"}}}
	scoped := base.WithFilter("owner_id", "cust-1")

	require.Len(t, scoped.Filters, 2)
	assert.Equal(t, "owner_id", scoped.Filters[1].Field)
	// The original descriptor is untouched
	assert.Len(t, base.Filters, 1)
}
