package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
)

// PermissionResolver answers point-in-time permission questions for a
// principal. Pure read path: absence of data means deny, only a store
// failure is an error — and callers must treat that error as deny too.
type PermissionResolver interface {
	// HasPermission checks code against the role's legacy flat grant set:
	// exact match, then "<module>:*", then "admin:*", then deny.
	HasPermission(ctx context.Context, p Principal, code string) (bool, error)
	// DataAccessFor returns the role's data scope for a module, "none" when
	// no module grant exists.
	DataAccessFor(ctx context.Context, p Principal, module string) (string, error)
	// FieldVisibility returns the role's field grant, {false,false} when no
	// row exists. Never returns editable without visible.
	FieldVisibility(ctx context.Context, p Principal, module, field string) (model.FieldAccess, error)
	// FlatCodes returns the principal's full flat code set (for /me).
	FlatCodes(ctx context.Context, p Principal) ([]string, error)
	// InvalidateRole drops cached flat codes after a grant edit.
	InvalidateRole(roleID uuid.UUID)
}

type permissionResolver struct {
	roleRepo    repository.RoleRepository
	grantRepo   repository.GrantRepository
	multiTenant bool // TenantScopeGuard: fixed for the process lifetime

	cache    sync.Map // roleID (uuid.UUID) -> flatCacheEntry
	cacheTTL time.Duration
}

type flatCacheEntry struct {
	codes     []string
	expiresAt time.Time
}

// NewPermissionResolver builds the resolver. multiTenant is read once from
// deployment config and injected; it must never change at runtime.
func NewPermissionResolver(roleRepo repository.RoleRepository, grantRepo repository.GrantRepository, multiTenant bool) PermissionResolver {
	return &permissionResolver{
		roleRepo:    roleRepo,
		grantRepo:   grantRepo,
		multiTenant: multiTenant,
		cacheTTL:    5 * time.Minute,
	}
}

// matchFlatCode applies the wildcard rules over a flat code set, in order:
// exact, module wildcard, super-admin wildcard. No other rule exists.
func matchFlatCode(codes map[string]bool, code string) bool {
	if codes[code] {
		return true
	}
	if i := strings.Index(code, ":"); i > 0 {
		if codes[code[:i]+":*"] {
			return true
		}
	}
	return codes["admin:*"]
}

// roleFor loads the principal's role and applies tenant scoping: with the
// guard enabled, a tenant-scoped role is only visible to principals of the
// same tenant; tenant-less roles are global. Returns nil (deny) when the
// principal has no role or fails the tenant check.
func (r *permissionResolver) roleFor(ctx context.Context, p Principal) (*model.Role, error) {
	if p.RoleID == nil {
		return nil, nil
	}

	role, err := r.roleRepo.FindByID(ctx, *p.RoleID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load role: %w", err)
	}

	if role.Status != model.RoleStatusActive {
		return nil, nil
	}

	if r.multiTenant && role.TenantID != nil {
		if p.TenantID == nil || *p.TenantID != *role.TenantID {
			return nil, nil
		}
	}

	return role, nil
}

func (r *permissionResolver) flatCodesForRole(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	if entry, ok := r.cache.Load(roleID); ok {
		cached := entry.(flatCacheEntry)
		if time.Now().Before(cached.expiresAt) {
			return cached.codes, nil
		}
	}

	codes, err := r.grantRepo.FlatPermissionCodes(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load flat grants: %w", err)
	}

	r.cache.Store(roleID, flatCacheEntry{
		codes:     codes,
		expiresAt: time.Now().Add(r.cacheTTL),
	})

	return codes, nil
}

func (r *permissionResolver) HasPermission(ctx context.Context, p Principal, code string) (bool, error) {
	role, err := r.roleFor(ctx, p)
	if err != nil {
		return false, err
	}
	if role == nil {
		return false, nil
	}

	codes, err := r.flatCodesForRole(ctx, role.ID)
	if err != nil {
		return false, err
	}

	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}

	return matchFlatCode(set, code), nil
}

func (r *permissionResolver) DataAccessFor(ctx context.Context, p Principal, module string) (string, error) {
	role, err := r.roleFor(ctx, p)
	if err != nil {
		return model.DataAccessNone, err
	}
	if role == nil {
		return model.DataAccessNone, nil
	}

	grant, err := r.grantRepo.GetModuleGrant(ctx, role.ID, module)
	if err != nil {
		if repository.IsNotFound(err) {
			return model.DataAccessNone, nil // default-deny
		}
		return model.DataAccessNone, fmt.Errorf("failed to load module grant: %w", err)
	}

	if !grant.HasAccess {
		return model.DataAccessNone, nil
	}
	return grant.DataAccess, nil
}

func (r *permissionResolver) FieldVisibility(ctx context.Context, p Principal, module, field string) (model.FieldAccess, error) {
	deny := model.FieldAccess{}

	role, err := r.roleFor(ctx, p)
	if err != nil {
		return deny, err
	}
	if role == nil {
		return deny, nil
	}

	grant, err := r.grantRepo.GetFieldGrant(ctx, role.ID, module, field)
	if err != nil {
		if repository.IsNotFound(err) {
			return deny, nil // default-deny
		}
		return deny, fmt.Errorf("failed to load field grant: %w", err)
	}

	// A field is never editable without also being visible.
	editable := grant.IsEditable && grant.IsVisible
	return model.FieldAccess{Visible: grant.IsVisible, Editable: editable}, nil
}

func (r *permissionResolver) FlatCodes(ctx context.Context, p Principal) ([]string, error) {
	role, err := r.roleFor(ctx, p)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return []string{}, nil
	}
	return r.flatCodesForRole(ctx, role.ID)
}

func (r *permissionResolver) InvalidateRole(roleID uuid.UUID) {
	r.cache.Delete(roleID)
}
