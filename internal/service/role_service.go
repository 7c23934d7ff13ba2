package service

import (
	"context"
	"fmt"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateRoleRequest struct {
	Code        string  `json:"code" binding:"required"`
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Priority    int     `json:"priority"`
	TenantID    *string `json:"tenant_id"`
}

type UpdateRoleRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Priority    *int    `json:"priority"`
	Status      *string `json:"status"`
}

type RoleResponse struct {
	ID          string               `json:"id"`
	TenantID    *string              `json:"tenant_id"`
	Code        string               `json:"code"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Priority    int                  `json:"priority"`
	IsSystem    bool                 `json:"is_system"`
	Status      string               `json:"status"`
	Permissions []PermissionResponse `json:"permissions"`
	CreatedAt   string               `json:"created_at"`
}

type PermissionResponse struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Module      string `json:"module"`
	Action      string `json:"action"`
	Name        string `json:"name"`
	IsDangerous bool   `json:"is_dangerous"`
	RequiresMfa bool   `json:"requires_mfa"`
}

// --- Interface ---

type RoleService interface {
	ListRoles(ctx context.Context, tenantID *uuid.UUID) ([]RoleResponse, error)
	GetRole(ctx context.Context, id string) (*RoleResponse, error)
	CreateRole(ctx context.Context, req CreateRoleRequest) (*RoleResponse, error)
	UpdateRole(ctx context.Context, id string, req UpdateRoleRequest) (*RoleResponse, error)
	DeleteRole(ctx context.Context, id string) error
	ListPermissions(ctx context.Context) ([]PermissionResponse, error)
	SeedDefaults(ctx context.Context) error
}

type roleService struct {
	roleRepo     repository.RoleRepository
	grantRepo    repository.GrantRepository
	grantService GrantService
}

func NewRoleService(roleRepo repository.RoleRepository, grantRepo repository.GrantRepository, grantService GrantService) RoleService {
	return &roleService{roleRepo: roleRepo, grantRepo: grantRepo, grantService: grantService}
}

// --- Implementation ---

func (s *roleService) ListRoles(ctx context.Context, tenantID *uuid.UUID) ([]RoleResponse, error) {
	roles, err := s.roleRepo.ListAll(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}

	res := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		res = append(res, toRoleResponse(r))
	}
	return res, nil
}

func (s *roleService) GetRole(ctx context.Context, id string) (*RoleResponse, error) {
	roleID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid role id", ErrInvalid)
	}

	role, err := s.roleRepo.FindByIDWithPermissions(ctx, roleID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, fmt.Errorf("%w: role %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to fetch role: %w", err)
	}

	resp := toRoleResponse(*role)
	return &resp, nil
}

func (s *roleService) CreateRole(ctx context.Context, req CreateRoleRequest) (*RoleResponse, error) {
	role := model.Role{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Priority:    req.Priority,
		IsSystem:    false,
		Status:      model.RoleStatusActive,
	}

	if req.TenantID != nil && *req.TenantID != "" {
		tid, err := uuid.Parse(*req.TenantID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid tenant id", ErrInvalid)
		}
		role.TenantID = &tid
	}

	if err := s.roleRepo.Create(ctx, &role); err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}

	return s.GetRole(ctx, role.ID.String())
}

func (s *roleService) UpdateRole(ctx context.Context, id string, req UpdateRoleRequest) (*RoleResponse, error) {
	roleID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid role id", ErrInvalid)
	}

	role, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, fmt.Errorf("%w: role %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to fetch role: %w", err)
	}

	if req.Name != nil {
		role.Name = *req.Name
	}
	if req.Description != nil {
		role.Description = *req.Description
	}
	if req.Priority != nil {
		role.Priority = *req.Priority
	}
	if req.Status != nil {
		if *req.Status != model.RoleStatusActive && *req.Status != model.RoleStatusInactive {
			return nil, fmt.Errorf("%w: status must be active or inactive", ErrInvalid)
		}
		if role.IsSystem && *req.Status == model.RoleStatusInactive {
			return nil, fmt.Errorf("%w: cannot deactivate system role '%s'", ErrForbidden, role.Code)
		}
		role.Status = *req.Status
	}

	if err := s.roleRepo.Update(ctx, role); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	return s.GetRole(ctx, id)
}

func (s *roleService) DeleteRole(ctx context.Context, id string) error {
	roleID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: invalid role id", ErrInvalid)
	}

	role, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		if repository.IsNotFound(err) {
			return fmt.Errorf("%w: role %s", ErrNotFound, id)
		}
		return fmt.Errorf("failed to fetch role: %w", err)
	}

	if role.IsSystem {
		return fmt.Errorf("%w: cannot delete system role '%s'", ErrForbidden, role.Code)
	}

	if err := s.roleRepo.Delete(ctx, roleID); err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}

	return nil
}

func (s *roleService) ListPermissions(ctx context.Context) ([]PermissionResponse, error) {
	perms, err := s.grantRepo.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permissions: %w", err)
	}

	res := make([]PermissionResponse, 0, len(perms))
	for _, p := range perms {
		res = append(res, toPermissionResponse(p))
	}
	return res, nil
}

// --- Seeding ---

// crudModules are the functional modules gated by the permission engine.
var crudModules = []string{"users", "roles", "notes", "leads", "projects", "students", "audit", "stats"}

// maskedFields lists the fields each module exposes to field-level grants.
var maskedFields = map[string][]string{
	"leads":    {"phone", "email", "estimated_value"},
	"students": {"phone", "email", "date_of_birth", "guardian_name"},
}

// SeedDefaults upserts the permission catalog and creates the three system
// roles when missing, pushing each new role's grant tree through the grant
// writer so seeded state obeys the same invariants as administrator edits.
// Roles that already exist are left alone, grants included.
func (s *roleService) SeedDefaults(ctx context.Context) error {
	catalog := defaultPermissionCatalog()
	for i := range catalog {
		if err := s.grantRepo.FindOrCreatePermission(ctx, &catalog[i]); err != nil {
			return fmt.Errorf("failed to seed permission '%s': %w", catalog[i].Code, err)
		}
	}

	permByCode := make(map[string]model.Permission, len(catalog))
	for _, p := range catalog {
		permByCode[p.Code] = p
	}

	for _, def := range defaultRoles() {
		_, err := s.roleRepo.FindByCode(ctx, def.code)
		if err == nil {
			// Existing roles keep whatever grant tree administrators gave
			// them; re-pushing the defaults here would revert their edits
			// on every restart.
			continue
		}
		if !repository.IsNotFound(err) {
			return fmt.Errorf("failed to look up role '%s': %w", def.code, err)
		}

		role := &model.Role{
			Code:        def.code,
			Name:        def.name,
			Description: def.description,
			Priority:    def.priority,
			IsSystem:    true,
			Status:      model.RoleStatusActive,
		}
		if err := s.roleRepo.Create(ctx, role); err != nil {
			return fmt.Errorf("failed to seed role '%s': %w", def.code, err)
		}

		payload := def.grants(permByCode)
		if err := s.grantService.ApplyRoleGrants(ctx, role.ID.String(), payload, nil); err != nil {
			return fmt.Errorf("failed to seed grants for role '%s': %w", def.code, err)
		}
	}

	return nil
}

type roleSeed struct {
	code        string
	name        string
	description string
	priority    int
	grants      func(permByCode map[string]model.Permission) ApplyRoleGrantsRequest
}

func defaultPermissionCatalog() []model.Permission {
	perms := []model.Permission{
		{Code: "admin:*", Module: "admin", Action: "*", Name: "Full system access", IsDangerous: true, RequiresMfa: true},
	}

	actions := []struct {
		action    string
		dangerous bool
	}{
		{"read", false},
		{"create", false},
		{"update", false},
		{"delete", true},
	}

	for _, module := range crudModules {
		for _, a := range actions {
			if module == "audit" || module == "stats" {
				// read-only modules
				if a.action != "read" {
					continue
				}
			}
			perms = append(perms, model.Permission{
				Code:        module + ":" + a.action,
				Module:      module,
				Action:      a.action,
				Resource:    module,
				Name:        a.action + " " + module,
				IsDangerous: a.dangerous,
			})
		}
	}

	return perms
}

func defaultRoles() []roleSeed {
	grantAll := func(module string, codes []string, dataAccess string, permByCode map[string]model.Permission) ModuleGrantInput {
		flags := make([]PermissionFlagInput, 0, len(codes))
		for _, c := range codes {
			if p, ok := permByCode[c]; ok {
				flags = append(flags, PermissionFlagInput{PermissionID: p.ID.String(), Granted: true})
			}
		}
		fields := make([]FieldFlagInput, 0)
		for _, f := range maskedFields[module] {
			fields = append(fields, FieldFlagInput{FieldID: f, IsVisible: true, IsEditable: true})
		}
		return ModuleGrantInput{
			ModuleID:    module,
			DataAccess:  &dataAccess,
			Permissions: flags,
			Fields:      fields,
		}
	}

	return []roleSeed{
		{
			code: "admin", name: "Administrator", priority: 100,
			description: "Full access to every module",
			grants: func(permByCode map[string]model.Permission) ApplyRoleGrantsRequest {
				req := ApplyRoleGrantsRequest{}
				for _, m := range crudModules {
					codes := []string{m + ":read", m + ":create", m + ":update", m + ":delete"}
					req.ModuleGrants = append(req.ModuleGrants, grantAll(m, codes, model.DataAccessAll, permByCode))
				}
				if p, ok := permByCode["admin:*"]; ok {
					req.PermissionIDs = append(req.PermissionIDs, p.ID.String())
				}
				return req
			},
		},
		{
			code: "manager", name: "Manager", priority: 50,
			description: "Team-wide access, no destructive user operations",
			grants: func(permByCode map[string]model.Permission) ApplyRoleGrantsRequest {
				req := ApplyRoleGrantsRequest{}
				for _, m := range crudModules {
					codes := []string{m + ":read", m + ":create", m + ":update"}
					if m != "users" && m != "roles" {
						codes = append(codes, m+":delete")
					}
					req.ModuleGrants = append(req.ModuleGrants, grantAll(m, codes, model.DataAccessTeam, permByCode))
				}
				return req
			},
		},
		{
			code: "staff", name: "Staff", priority: 10,
			description: "Own-record access to the day-to-day modules",
			grants: func(permByCode map[string]model.Permission) ApplyRoleGrantsRequest {
				req := ApplyRoleGrantsRequest{}
				for _, m := range []string{"notes", "leads", "projects", "students"} {
					codes := []string{m + ":read", m + ":create", m + ":update"}
					g := grantAll(m, codes, model.DataAccessOwn, permByCode)
					// staff see contact fields but cannot edit them
					for i := range g.Fields {
						g.Fields[i].IsEditable = false
					}
					req.ModuleGrants = append(req.ModuleGrants, g)
				}
				return req
			},
		},
	}
}

// --- Helpers ---

func toRoleResponse(r model.Role) RoleResponse {
	perms := make([]PermissionResponse, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, toPermissionResponse(p))
	}

	var tenantID *string
	if r.TenantID != nil {
		s := r.TenantID.String()
		tenantID = &s
	}

	return RoleResponse{
		ID:          r.ID.String(),
		TenantID:    tenantID,
		Code:        r.Code,
		Name:        r.Name,
		Description: r.Description,
		Priority:    r.Priority,
		IsSystem:    r.IsSystem,
		Status:      r.Status,
		Permissions: perms,
		CreatedAt:   r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func toPermissionResponse(p model.Permission) PermissionResponse {
	return PermissionResponse{
		ID:          p.ID.String(),
		Code:        p.Code,
		Module:      p.Module,
		Action:      p.Action,
		Name:        p.Name,
		IsDangerous: p.IsDangerous,
		RequiresMfa: p.RequiresMfa,
	}
}
