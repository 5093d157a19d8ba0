package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fleetbook/internal/models"
	"fleetbook/internal/query"
)

const vehicleSelectColumns = `id, brand, category, seats, model, gearbox, fuel_type,
                 engine_cc, has_sidecar, metadata, description, price_by_day,
                 year_of_production, created_at, updated_at, version`

func (db *DB) CreateVehicle(ctx context.Context, v *models.Vehicle) error {
	metadata, err := marshalMetadata(v.Metadata)
	if err != nil {
		return err
	}

	queryInsert := `INSERT INTO vehicles (
                id, brand, category, seats, model, gearbox, fuel_type, engine_cc,
                has_sidecar, metadata, description, price_by_day, year_of_production,
                created_at, updated_at, version
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	now := time.Now().UTC()
	seats, model, gearbox, fuel, engineCC, hasSidecar := attributeColumns(v)

	_, err = db.db.ExecContext(ctx, queryInsert,
		v.ID, v.Brand, v.Category,
		seats, model, gearbox, fuel, engineCC, hasSidecar,
		metadata, v.Description, v.PriceByDay, v.YearOfProduction,
		now, now, 1,
	)
	if err != nil {
		return fmt.Errorf("failed to create vehicle: %w", err)
	}

	v.CreatedAt = now
	v.UpdatedAt = now
	v.Version = 1
	return nil
}

func (db *DB) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	row := db.db.QueryRowContext(ctx,
		`SELECT `+vehicleSelectColumns+` FROM vehicles WHERE id = ?`, id)

	v, err := scanVehicle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}
	return v, nil
}

// UpdateVehicleWithVersion replaces the mutable vehicle fields, guarded by
// an optimistic version check so concurrent updates cannot clobber the
// merged-record re-validation done by the caller.
func (db *DB) UpdateVehicleWithVersion(ctx context.Context, v *models.Vehicle, fromVersion int64) error {
	metadata, err := marshalMetadata(v.Metadata)
	if err != nil {
		return err
	}

	queryUpdate := `UPDATE vehicles SET
                brand = ?, seats = ?, model = ?, gearbox = ?, fuel_type = ?,
                engine_cc = ?, has_sidecar = ?, metadata = ?, description = ?,
                price_by_day = ?, year_of_production = ?, updated_at = ?,
                version = version + 1
            WHERE id = ? AND version = ?`

	now := time.Now().UTC()
	seats, model, gearbox, fuel, engineCC, hasSidecar := attributeColumns(v)

	result, err := db.db.ExecContext(ctx, queryUpdate,
		v.Brand, seats, model, gearbox, fuel, engineCC, hasSidecar,
		metadata, v.Description, v.PriceByDay, v.YearOfProduction, now,
		v.ID, fromVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update vehicle: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}

	v.UpdatedAt = now
	v.Version = fromVersion + 1
	return nil
}

// ListVehicles applies the descriptor's filters conjunctively, then sort,
// then pagination. The returned total counts matches before pagination.
func (db *DB) ListVehicles(ctx context.Context, desc query.Descriptor) ([]models.Vehicle, int, error) {
	where, args, err := buildWhere(desc.Filters, vehicleColumns)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vehicles`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count vehicles: %w", err)
	}

	order, err := buildOrder(desc.Sort, vehicleColumns, "created_at ASC, id ASC")
	if err != nil {
		return nil, 0, err
	}
	limit, limitArgs := buildLimit(desc)

	rows, err := db.db.QueryContext(ctx,
		`SELECT `+vehicleSelectColumns+` FROM vehicles`+where+order+limit,
		append(args, limitArgs...)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []models.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan vehicle: %w", err)
		}
		vehicles = append(vehicles, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return vehicles, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVehicle(row rowScanner) (*models.Vehicle, error) {
	var (
		v          models.Vehicle
		seats      sql.NullInt64
		model      sql.NullString
		gearbox    sql.NullString
		fuel       sql.NullString
		engineCC   sql.NullInt64
		hasSidecar sql.NullBool
		metadata   sql.NullString
	)

	err := row.Scan(
		&v.ID, &v.Brand, &v.Category,
		&seats, &model, &gearbox, &fuel, &engineCC, &hasSidecar,
		&metadata, &v.Description, &v.PriceByDay, &v.YearOfProduction,
		&v.CreatedAt, &v.UpdatedAt, &v.Version,
	)
	if err != nil {
		return nil, err
	}

	switch v.Category {
	case models.CategoryCar:
		v.Car = &models.CarAttributes{
			Seats:    int(seats.Int64),
			Model:    model.String,
			Gearbox:  gearbox.String,
			FuelType: fuel.String,
		}
	case models.CategoryMotorbike:
		v.Motorbike = &models.MotorbikeAttributes{
			EngineCC:   int(engineCC.Int64),
			HasSidecar: hasSidecar.Bool,
		}
	}

	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &v.Metadata); err != nil {
			return nil, fmt.Errorf("failed to parse vehicle metadata: %w", err)
		}
	}

	return &v, nil
}

func attributeColumns(v *models.Vehicle) (seats, model, gearbox, fuel, engineCC, hasSidecar any) {
	if v.Car != nil {
		seats = v.Car.Seats
		model = v.Car.Model
		gearbox = v.Car.Gearbox
		fuel = v.Car.FuelType
	}
	if v.Motorbike != nil {
		engineCC = v.Motorbike.EngineCC
		hasSidecar = v.Motorbike.HasSidecar
	}
	return
}

func marshalMetadata(metadata map[string]any) (string, error) {
	if len(metadata) == 0 {
		return "", nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("failed to marshal vehicle metadata: %w", err)
	}
	return string(data), nil
}
