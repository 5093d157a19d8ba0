package models

const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusRejected  = "REJECTED"
	StatusCancelled = "CANCELLED"
)

const (
	CategoryCar       = "CAR"
	CategoryMotorbike = "MOTORBIKE"
)

const (
	GearboxManual    = "MANUAL"
	GearboxAutomatic = "AUTOMATIC"
)

const (
	FuelPetrol   = "PETROL"
	FuelDiesel   = "DIESEL"
	FuelElectric = "ELECTRIC"
)

const (
	RoleAdmin            = "Admin"
	RoleCarManager       = "CarManager"
	RoleMotorbikeManager = "MotorbikeManager"
	RoleCustomer         = "Customer"
)

const (
	// DateFormat is the wire format for booking dates.
	DateFormat = "2006-01-02"

	// MaxDescriptionLength ограничение длины описания транспорта
	MaxDescriptionLength = 250

	// MinYearOfProduction / MaxYearOfProduction допустимый диапазон года выпуска
	MinYearOfProduction = 1900
	MaxYearOfProduction = 2030

	// DefaultPageSize размер страницы по умолчанию для списков
	DefaultPageSize = 20

	// MaxPageSize максимальный размер страницы
	MaxPageSize = 100

	// VehicleCacheTTL время жизни кэша транспорта
	VehicleCacheTTL = 30 * 60 // 30 минут в секундах
)

// ValidStatuses lists every booking status the store accepts.
var ValidStatuses = []string{StatusPending, StatusConfirmed, StatusRejected, StatusCancelled}

// ValidRoles lists every principal role the directory accepts.
var ValidRoles = []string{RoleAdmin, RoleCarManager, RoleMotorbikeManager, RoleCustomer}

func IsValidStatus(s string) bool {
	for _, v := range ValidStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func IsValidRole(r string) bool {
	for _, v := range ValidRoles {
		if v == r {
			return true
		}
	}
	return false
}
