package auth

import (
	"fmt"
	"strings"

	"fleetbook/internal/apperr"
	"fleetbook/internal/models"
)

// Directory maps API keys to principals. It is built once at startup and
// never mutated afterwards, so lookups need no locking.
type Directory struct {
	byKey map[string]models.Principal
}

func NewDirectory(principals []models.Principal) (*Directory, error) {
	byKey := make(map[string]models.Principal, len(principals))
	for _, p := range principals {
		key := strings.TrimSpace(p.Key)
		if key == "" {
			return nil, fmt.Errorf("principal %q has empty api key", p.Name)
		}
		if !models.IsValidRole(p.Role) {
			return nil, fmt.Errorf("principal %q has unknown role %q", p.Name, p.Role)
		}
		if p.Role == models.RoleCustomer && strings.TrimSpace(p.OwnerID) == "" {
			return nil, fmt.Errorf("customer principal %q requires owner_id", p.Name)
		}
		if _, dup := byKey[key]; dup {
			return nil, fmt.Errorf("duplicate api key for principal %q", p.Name)
		}
		p.Key = key
		byKey[key] = p
	}
	return &Directory{byKey: byKey}, nil
}

// Resolve returns the principal for an API key. Unknown or empty keys fail
// with an Unauthenticated error; the boundary turns that into a 401.
func (d *Directory) Resolve(apiKey string) (models.Principal, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return models.Principal{}, apperr.Unauthenticated("missing api key")
	}
	p, ok := d.byKey[key]
	if !ok {
		return models.Principal{}, apperr.Unauthenticated("invalid api key")
	}
	return p, nil
}

// Len returns the number of registered principals.
func (d *Directory) Len() int {
	return len(d.byKey)
}
