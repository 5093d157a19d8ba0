package models

// Principal is an authenticated caller resolved from an API key.
// The directory is loaded once at startup and read-only afterwards.
type Principal struct {
	Key     string `yaml:"key"`
	Role    string `yaml:"role"`
	OwnerID string `yaml:"owner_id"`
	Name    string `yaml:"name"`
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

func (p Principal) IsManager() bool {
	return p.Role == RoleCarManager || p.Role == RoleMotorbikeManager
}

func (p Principal) IsCustomer() bool {
	return p.Role == RoleCustomer
}

// ManagedCategory returns the vehicle category a manager role is scoped to,
// or "" for roles without a category scope.
func (p Principal) ManagedCategory() string {
	switch p.Role {
	case RoleCarManager:
		return CategoryCar
	case RoleMotorbikeManager:
		return CategoryMotorbike
	default:
		return ""
	}
}
