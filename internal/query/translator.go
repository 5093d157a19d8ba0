// Package query turns raw client filter/sort/pagination parameters into a
// structured descriptor the store can execute. Translation is pure and
// deterministic; unknown fields fail instead of being silently dropped.
package query

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"fleetbook/internal/apperr"
	"fleetbook/internal/models"
)

type Operator string

const (
	OpEq  Operator = "eq"
	OpGte Operator = "gte"
	OpLte Operator = "lte"
)

type Filter struct {
	Field    string
	Operator Operator
	Value    any
}

type Sort struct {
	Field      string
	Descending bool
}

// Descriptor is the translated query: conjunctive filters, optional sort,
// and clamped pagination.
type Descriptor struct {
	Filters []Filter
	Sort    *Sort
	Offset  int
	Limit   int
}

type fieldType int

const (
	typeString fieldType = iota
	typeNumber
	typeInt
	typeDate
	typeEnum
)

type fieldSpec struct {
	typ      fieldType
	ops      []Operator
	enum     []string
	sortable bool
}

// Resource selects the filter/sort whitelist.
type Resource string

const (
	ResourceVehicles Resource = "vehicles"
	ResourceBookings Resource = "bookings"
)

var vehicleFields = map[string]fieldSpec{
	"brand":              {typ: typeString, ops: []Operator{OpEq}, sortable: true},
	"category":           {typ: typeEnum, ops: []Operator{OpEq}, enum: []string{models.CategoryCar, models.CategoryMotorbike}, sortable: false},
	"fuel_type":          {typ: typeEnum, ops: []Operator{OpEq}, enum: []string{models.FuelPetrol, models.FuelDiesel, models.FuelElectric}},
	"gearbox":            {typ: typeEnum, ops: []Operator{OpEq}, enum: []string{models.GearboxManual, models.GearboxAutomatic}},
	"price_by_day":       {typ: typeNumber, ops: []Operator{OpEq, OpGte, OpLte}, sortable: true},
	"year_of_production": {typ: typeInt, ops: []Operator{OpEq, OpGte, OpLte}, sortable: true},
}

var bookingFields = map[string]fieldSpec{
	"vehicle_id": {typ: typeString, ops: []Operator{OpEq}},
	"owner_id":   {typ: typeString, ops: []Operator{OpEq}},
	"status":     {typ: typeEnum, ops: []Operator{OpEq}, enum: models.ValidStatuses},
	"from_date":  {typ: typeDate, ops: []Operator{OpEq, OpGte, OpLte}, sortable: true},
	"to_date":    {typ: typeDate, ops: []Operator{OpEq, OpGte, OpLte}, sortable: true},
}

// created_at is always sortable; it backs "creation order" listings.
const createdAtField = "created_at"

func fieldsFor(resource Resource) (map[string]fieldSpec, error) {
	switch resource {
	case ResourceVehicles:
		return vehicleFields, nil
	case ResourceBookings:
		return bookingFields, nil
	default:
		return nil, fmt.Errorf("unknown query resource %q", resource)
	}
}

// Translate parses raw parameters against the resource's whitelist.
// Identical params always yield an identical descriptor: filter order
// follows the sorted parameter names, not map iteration order.
func Translate(raw url.Values, resource Resource) (Descriptor, error) {
	fields, err := fieldsFor(resource)
	if err != nil {
		return Descriptor{}, apperr.Internal(err, "query translator misconfigured")
	}

	desc := Descriptor{Limit: models.DefaultPageSize}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		values := raw[name]

		switch name {
		case "sort":
			s, err := parseSort(values[len(values)-1], fields)
			if err != nil {
				return Descriptor{}, err
			}
			desc.Sort = s
			continue
		case "offset":
			offset, err := parseNonNegativeInt(name, values[len(values)-1])
			if err != nil {
				return Descriptor{}, err
			}
			desc.Offset = offset
			continue
		case "limit":
			limit, err := parseNonNegativeInt(name, values[len(values)-1])
			if err != nil {
				return Descriptor{}, err
			}
			if limit == 0 {
				limit = models.DefaultPageSize
			}
			if limit > models.MaxPageSize {
				limit = models.MaxPageSize
			}
			desc.Limit = limit
			continue
		}

		spec, ok := fields[name]
		if !ok {
			return Descriptor{}, apperr.InvalidArgument("unknown filter field %q", name)
		}

		for _, rawValue := range values {
			filter, err := parseFilter(name, rawValue, spec)
			if err != nil {
				return Descriptor{}, err
			}
			desc.Filters = append(desc.Filters, filter)
		}
	}

	return desc, nil
}

// parseFilter handles "value" and "op:value" forms.
func parseFilter(field, raw string, spec fieldSpec) (Filter, error) {
	op := OpEq
	value := raw

	if idx := strings.Index(raw, ":"); idx > 0 {
		candidate := Operator(raw[:idx])
		switch candidate {
		case OpEq, OpGte, OpLte:
			op = candidate
			value = raw[idx+1:]
		}
	}

	if !operatorAllowed(op, spec.ops) {
		return Filter{}, apperr.InvalidArgument("operator %s is not supported for field %q", op, field)
	}

	typed, err := parseValue(field, value, spec)
	if err != nil {
		return Filter{}, err
	}

	return Filter{Field: field, Operator: op, Value: typed}, nil
}

func parseValue(field, raw string, spec fieldSpec) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, apperr.InvalidArgument("empty value for filter field %q", field)
	}

	switch spec.typ {
	case typeString:
		return raw, nil
	case typeNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, apperr.InvalidArgument("field %q expects a number, got %q", field, raw)
		}
		return f, nil
	case typeInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, apperr.InvalidArgument("field %q expects an integer, got %q", field, raw)
		}
		return n, nil
	case typeDate:
		d, err := models.ParseDate(raw)
		if err != nil {
			return nil, apperr.InvalidArgument("field %q expects a date (YYYY-MM-DD), got %q", field, raw)
		}
		return d, nil
	case typeEnum:
		upper := strings.ToUpper(raw)
		for _, allowed := range spec.enum {
			if upper == allowed {
				return upper, nil
			}
		}
		return nil, apperr.InvalidArgument("field %q expects one of %s, got %q", field, strings.Join(spec.enum, ", "), raw)
	default:
		return nil, apperr.InvalidArgument("field %q has no parseable type", field)
	}
}

// parseSort handles "field" and "-field" (descending, original convention).
func parseSort(raw string, fields map[string]fieldSpec) (*Sort, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	desc := false
	switch {
	case strings.HasPrefix(raw, "-"):
		desc = true
		raw = raw[1:]
	case strings.HasPrefix(raw, "+"):
		raw = raw[1:]
	}

	if raw == createdAtField {
		return &Sort{Field: raw, Descending: desc}, nil
	}

	spec, ok := fields[raw]
	if !ok || !spec.sortable {
		return nil, apperr.InvalidArgument("cannot sort by field %q", raw)
	}
	return &Sort{Field: raw, Descending: desc}, nil
}

func parseNonNegativeInt(name, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0, apperr.InvalidArgument("%s must be a non-negative integer, got %q", name, raw)
	}
	return n, nil
}

func operatorAllowed(op Operator, allowed []Operator) bool {
	for _, a := range allowed {
		if a == op {
			return true
		}
	}
	return false
}

// WithFilter returns a copy of the descriptor with an extra equality filter
// appended. Services use it to force scoping (e.g. a customer's owner_id).
func (d Descriptor) WithFilter(field string, value any) Descriptor {
	filters := make([]Filter, 0, len(d.Filters)+1)
	filters = append(filters, d.Filters...)
	filters = append(filters, Filter{Field: field, Operator: OpEq, Value: value})
	d.Filters = filters
	return d
}
