package database

import (
	"fmt"
	"strings"

	"fleetbook/internal/query"
)

// Column maps below double as the final allowlist between the translator's
// field names and actual SQL identifiers; nothing client-supplied is ever
// interpolated into a query.
var vehicleColumns = map[string]string{
	"brand":              "brand",
	"category":           "category",
	"fuel_type":          "fuel_type",
	"gearbox":            "gearbox",
	"price_by_day":       "price_by_day",
	"year_of_production": "year_of_production",
	"created_at":         "created_at",
}

var bookingColumns = map[string]string{
	"vehicle_id": "vehicle_id",
	"owner_id":   "owner_id",
	"status":     "status",
	"from_date":  "from_date",
	"to_date":    "to_date",
	"created_at": "created_at",
}

var sqlOperators = map[query.Operator]string{
	query.OpEq:  "=",
	query.OpGte: ">=",
	query.OpLte: "<=",
}

func buildWhere(filters []query.Filter, columns map[string]string) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}

	conditions := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for _, f := range filters {
		column, ok := columns[f.Field]
		if !ok {
			return "", nil, fmt.Errorf("filter field %q has no column mapping", f.Field)
		}
		op, ok := sqlOperators[f.Operator]
		if !ok {
			return "", nil, fmt.Errorf("filter operator %q has no SQL mapping", f.Operator)
		}
		if column == "brand" {
			conditions = append(conditions, fmt.Sprintf("%s %s ? COLLATE NOCASE", column, op))
		} else {
			conditions = append(conditions, fmt.Sprintf("%s %s ?", column, op))
		}
		args = append(args, f.Value)
	}

	return " WHERE " + strings.Join(conditions, " AND "), args, nil
}

func buildOrder(s *query.Sort, columns map[string]string, fallback string) (string, error) {
	if s == nil {
		return " ORDER BY " + fallback, nil
	}
	column, ok := columns[s.Field]
	if !ok {
		return "", fmt.Errorf("sort field %q has no column mapping", s.Field)
	}
	direction := "ASC"
	if s.Descending {
		direction = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, %s", column, direction, fallback), nil
}

func buildLimit(desc query.Descriptor) (string, []any) {
	return " LIMIT ? OFFSET ?", []any{desc.Limit, desc.Offset}
}
