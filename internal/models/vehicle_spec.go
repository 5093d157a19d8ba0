package models

import (
	"fmt"
	"strings"
)

// VehicleSpec is the create-request shape; attributes arrive flattened
// beside the category tag, same as the Vehicle wire format.
type VehicleSpec struct {
	Brand            string         `json:"brand"`
	Category         string         `json:"category"`
	Seats            *int           `json:"seats"`
	Model            *string        `json:"model"`
	Gearbox          *string        `json:"gearbox"`
	FuelType         *string        `json:"fuel_type"`
	EngineCC         *int           `json:"engine_cc"`
	HasSidecar       *bool          `json:"has_sidecar"`
	Metadata         map[string]any `json:"metadata"`
	Description      string         `json:"description"`
	PriceByDay       float64        `json:"price_by_day"`
	YearOfProduction int            `json:"year_of_production"`
}

// ToVehicle assembles an unvalidated Vehicle from the spec.
func (s VehicleSpec) ToVehicle() Vehicle {
	v := Vehicle{
		Brand:            strings.TrimSpace(s.Brand),
		Category:         strings.ToUpper(strings.TrimSpace(s.Category)),
		Metadata:         s.Metadata,
		Description:      s.Description,
		PriceByDay:       s.PriceByDay,
		YearOfProduction: s.YearOfProduction,
	}

	switch v.Category {
	case CategoryCar:
		car := &CarAttributes{}
		if s.Seats != nil {
			car.Seats = *s.Seats
		}
		if s.Model != nil {
			car.Model = strings.ToUpper(strings.TrimSpace(*s.Model))
		}
		if s.Gearbox != nil {
			car.Gearbox = strings.ToUpper(strings.TrimSpace(*s.Gearbox))
		}
		if s.FuelType != nil {
			car.FuelType = strings.ToUpper(strings.TrimSpace(*s.FuelType))
		}
		v.Car = car
	case CategoryMotorbike:
		bike := &MotorbikeAttributes{}
		if s.EngineCC != nil {
			bike.EngineCC = *s.EngineCC
		}
		if s.HasSidecar != nil {
			bike.HasSidecar = *s.HasSidecar
		}
		v.Motorbike = bike
	}

	return v
}

// VehiclePatch carries partial updates. Nil fields stay untouched;
// metadata keys are merged into the existing mapping. Category itself is
// immutable: switching a car to a motorbike is a new vehicle.
type VehiclePatch struct {
	Brand            *string        `json:"brand"`
	Seats            *int           `json:"seats"`
	Model            *string        `json:"model"`
	Gearbox          *string        `json:"gearbox"`
	FuelType         *string        `json:"fuel_type"`
	EngineCC         *int           `json:"engine_cc"`
	HasSidecar       *bool          `json:"has_sidecar"`
	Metadata         map[string]any `json:"metadata"`
	Description      *string        `json:"description"`
	PriceByDay       *float64       `json:"price_by_day"`
	YearOfProduction *int           `json:"year_of_production"`
}

// ApplyTo merges the patch into the vehicle. The caller re-validates the
// merged record afterwards; brand and fuel_type can each independently
// break the Tesla rule, so partial checks are not enough.
func (p VehiclePatch) ApplyTo(v *Vehicle) error {
	if p.Brand != nil {
		v.Brand = strings.TrimSpace(*p.Brand)
	}
	if p.Description != nil {
		v.Description = *p.Description
	}
	if p.PriceByDay != nil {
		v.PriceByDay = *p.PriceByDay
	}
	if p.YearOfProduction != nil {
		v.YearOfProduction = *p.YearOfProduction
	}
	if len(p.Metadata) > 0 {
		if v.Metadata == nil {
			v.Metadata = make(map[string]any, len(p.Metadata))
		}
		for k, val := range p.Metadata {
			v.Metadata[k] = val
		}
	}

	if p.Seats != nil || p.Model != nil || p.Gearbox != nil || p.FuelType != nil {
		if v.Category != CategoryCar || v.Car == nil {
			return fmt.Errorf("car attributes cannot be set on a %s", strings.ToLower(v.Category))
		}
		if p.Seats != nil {
			v.Car.Seats = *p.Seats
		}
		if p.Model != nil {
			v.Car.Model = strings.ToUpper(strings.TrimSpace(*p.Model))
		}
		if p.Gearbox != nil {
			v.Car.Gearbox = strings.ToUpper(strings.TrimSpace(*p.Gearbox))
		}
		if p.FuelType != nil {
			v.Car.FuelType = strings.ToUpper(strings.TrimSpace(*p.FuelType))
		}
	}

	if p.EngineCC != nil || p.HasSidecar != nil {
		if v.Category != CategoryMotorbike || v.Motorbike == nil {
			return fmt.Errorf("motorbike attributes cannot be set on a %s", strings.ToLower(v.Category))
		}
		if p.EngineCC != nil {
			v.Motorbike.EngineCC = *p.EngineCC
		}
		if p.HasSidecar != nil {
			v.Motorbike.HasSidecar = *p.HasSidecar
		}
	}

	return nil
}
