package service

import (
	"context"
	"fmt"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
)

// resolveScope translates the resolver's data-access answer for a module into
// a repository filter. "none" forbids the call outright; "own" narrows to the
// caller's records; "team" narrows to the caller's tenant when multi-tenancy
// is on (and behaves like "all" when it is off); "all" applies no filter.
func resolveScope(ctx context.Context, resolver PermissionResolver, p Principal, module string, multiTenant bool) (repository.ScopeFilter, error) {
	scope, err := resolver.DataAccessFor(ctx, p, module)
	if err != nil {
		return repository.ScopeFilter{}, fmt.Errorf("failed to resolve data access: %w", err)
	}

	switch scope {
	case model.DataAccessNone:
		return repository.ScopeFilter{}, fmt.Errorf("%w: no access to %s", ErrForbidden, module)
	case model.DataAccessOwn:
		uid := p.UserID
		return repository.ScopeFilter{CreatedByID: &uid}, nil
	case model.DataAccessTeam:
		if multiTenant && p.TenantID != nil {
			tid := *p.TenantID
			return repository.ScopeFilter{TenantID: &tid}, nil
		}
		return repository.ScopeFilter{}, nil
	default: // all
		return repository.ScopeFilter{}, nil
	}
}

// inScope re-applies the resolved scope to a single record on
// get/update/delete so the row-level rule holds beyond list queries.
func inScope(scope repository.ScopeFilter, createdByID uuid.UUID, tenantID *uuid.UUID) bool {
	if scope.CreatedByID != nil && createdByID != *scope.CreatedByID {
		return false
	}
	if scope.TenantID != nil && (tenantID == nil || *tenantID != *scope.TenantID) {
		return false
	}
	return true
}
