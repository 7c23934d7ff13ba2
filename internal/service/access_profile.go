package service

import (
	"context"
	"fmt"

	"backend/internal/model"
)

// ModuleAccess is the per-module summary returned to authenticated clients.
type ModuleAccess struct {
	HasAccess  bool   `json:"has_access"`
	DataAccess string `json:"data_access"`
}

// AccessProfile is the payload for /me: the principal's flat permission codes
// plus a module-by-module access summary the frontend uses to build its menu.
type AccessProfile struct {
	Permissions []string                `json:"permissions"`
	Modules     map[string]ModuleAccess `json:"modules"`
}

// BuildAccessProfile assembles the access profile for a principal.
func BuildAccessProfile(ctx context.Context, r PermissionResolver, p Principal) (*AccessProfile, error) {
	codes, err := r.FlatCodes(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve permissions: %w", err)
	}

	modules := make(map[string]ModuleAccess, len(crudModules))
	for _, m := range crudModules {
		scope, err := r.DataAccessFor(ctx, p, m)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve access for module %s: %w", m, err)
		}
		modules[m] = ModuleAccess{
			HasAccess:  scope != model.DataAccessNone,
			DataAccess: scope,
		}
	}

	return &AccessProfile{Permissions: codes, Modules: modules}, nil
}
