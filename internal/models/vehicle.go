package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CarAttributes holds the car-specific part of a vehicle record.
type CarAttributes struct {
	Seats    int    `json:"seats" yaml:"seats"`
	Model    string `json:"model" yaml:"model"`
	Gearbox  string `json:"gearbox" yaml:"gearbox"`
	FuelType string `json:"fuel_type" yaml:"fuel_type"`
}

// MotorbikeAttributes holds the motorbike-specific part of a vehicle record.
type MotorbikeAttributes struct {
	EngineCC   int  `json:"engine_cc" yaml:"engine_cc"`
	HasSidecar bool `json:"has_sidecar" yaml:"has_sidecar"`
}

// Vehicle is a rentable unit. Exactly one of Car / Motorbike is set,
// selected by Category; JSON flattens the attribute set beside the
// category tag.
type Vehicle struct {
	ID               string
	Brand            string
	Category         string
	Car              *CarAttributes
	Motorbike        *MotorbikeAttributes
	Metadata         map[string]any
	Description      string
	PriceByDay       float64
	YearOfProduction int
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Version          int64
}

// vehicleJSON is the flattened wire shape.
type vehicleJSON struct {
	ID               string         `json:"id"`
	Brand            string         `json:"brand"`
	Category         string         `json:"category"`
	Seats            *int           `json:"seats,omitempty"`
	Model            *string        `json:"model,omitempty"`
	Gearbox          *string        `json:"gearbox,omitempty"`
	FuelType         *string        `json:"fuel_type,omitempty"`
	EngineCC         *int           `json:"engine_cc,omitempty"`
	HasSidecar       *bool          `json:"has_sidecar,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	Description      string         `json:"description,omitempty"`
	PriceByDay       float64        `json:"price_by_day"`
	YearOfProduction int            `json:"year_of_production"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	Version          int64          `json:"version"`
}

func (v Vehicle) MarshalJSON() ([]byte, error) {
	out := vehicleJSON{
		ID:               v.ID,
		Brand:            v.Brand,
		Category:         v.Category,
		Metadata:         v.Metadata,
		Description:      v.Description,
		PriceByDay:       v.PriceByDay,
		YearOfProduction: v.YearOfProduction,
		CreatedAt:        v.CreatedAt,
		UpdatedAt:        v.UpdatedAt,
		Version:          v.Version,
	}

	switch v.Category {
	case CategoryCar:
		if v.Car != nil {
			out.Seats = &v.Car.Seats
			out.Model = &v.Car.Model
			out.Gearbox = &v.Car.Gearbox
			out.FuelType = &v.Car.FuelType
		}
	case CategoryMotorbike:
		if v.Motorbike != nil {
			out.EngineCC = &v.Motorbike.EngineCC
			out.HasSidecar = &v.Motorbike.HasSidecar
		}
	}

	return json.Marshal(out)
}

func (v *Vehicle) UnmarshalJSON(data []byte) error {
	var in vehicleJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	v.ID = in.ID
	v.Brand = in.Brand
	v.Category = strings.ToUpper(strings.TrimSpace(in.Category))
	v.Metadata = in.Metadata
	v.Description = in.Description
	v.PriceByDay = in.PriceByDay
	v.YearOfProduction = in.YearOfProduction
	v.CreatedAt = in.CreatedAt
	v.UpdatedAt = in.UpdatedAt
	v.Version = in.Version
	v.Car = nil
	v.Motorbike = nil

	switch v.Category {
	case CategoryCar:
		car := CarAttributes{}
		if in.Seats != nil {
			car.Seats = *in.Seats
		}
		if in.Model != nil {
			car.Model = strings.ToUpper(strings.TrimSpace(*in.Model))
		}
		if in.Gearbox != nil {
			car.Gearbox = strings.ToUpper(strings.TrimSpace(*in.Gearbox))
		}
		if in.FuelType != nil {
			car.FuelType = strings.ToUpper(strings.TrimSpace(*in.FuelType))
		}
		v.Car = &car
	case CategoryMotorbike:
		bike := MotorbikeAttributes{}
		if in.EngineCC != nil {
			bike.EngineCC = *in.EngineCC
		}
		if in.HasSidecar != nil {
			bike.HasSidecar = *in.HasSidecar
		}
		v.Motorbike = &bike
	}

	return nil
}

// IsTesla reports whether the brand falls under the Tesla fuel constraint.
func (v *Vehicle) IsTesla() bool {
	return strings.EqualFold(strings.TrimSpace(v.Brand), "Tesla")
}

// Validate checks every field-level invariant on the full record. Update
// paths must call it on the merged record, not just on changed fields.
func (v *Vehicle) Validate() error {
	if strings.TrimSpace(v.Brand) == "" {
		return fmt.Errorf("brand is required")
	}
	if len(v.Description) > MaxDescriptionLength {
		return fmt.Errorf("description must be at most %d characters", MaxDescriptionLength)
	}
	if v.PriceByDay <= 0 {
		return fmt.Errorf("price_by_day must be greater than 0")
	}
	if v.YearOfProduction < MinYearOfProduction || v.YearOfProduction > MaxYearOfProduction {
		return fmt.Errorf("year_of_production must be between %d and %d", MinYearOfProduction, MaxYearOfProduction)
	}

	switch v.Category {
	case CategoryCar:
		if v.Car == nil || v.Motorbike != nil {
			return fmt.Errorf("category %s requires car attributes only", CategoryCar)
		}
		return v.validateCar()
	case CategoryMotorbike:
		if v.Motorbike == nil || v.Car != nil {
			return fmt.Errorf("category %s requires motorbike attributes only", CategoryMotorbike)
		}
		return v.validateMotorbike()
	default:
		return fmt.Errorf("unknown category %q", v.Category)
	}
}

func (v *Vehicle) validateCar() error {
	car := v.Car
	if car.Seats < 1 {
		return fmt.Errorf("seats must be at least 1")
	}
	if strings.TrimSpace(car.Model) == "" {
		return fmt.Errorf("model is required for cars")
	}
	switch car.Gearbox {
	case GearboxManual, GearboxAutomatic:
	default:
		return fmt.Errorf("gearbox must be %s or %s", GearboxManual, GearboxAutomatic)
	}
	switch car.FuelType {
	case FuelPetrol, FuelDiesel, FuelElectric:
	default:
		return fmt.Errorf("fuel_type must be one of %s, %s, %s", FuelPetrol, FuelDiesel, FuelElectric)
	}
	// Tesla выпускает только электромобили
	if v.IsTesla() && car.FuelType != FuelElectric {
		return fmt.Errorf("Tesla vehicles must have %s fuel_type", FuelElectric)
	}
	return nil
}

func (v *Vehicle) validateMotorbike() error {
	if v.Motorbike.EngineCC <= 0 {
		return fmt.Errorf("engine_cc must be greater than 0")
	}
	return nil
}
