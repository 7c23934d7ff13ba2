package service

import (
	"context"
	"encoding/json"
	"fmt"

	"backend/internal/model"
	"backend/internal/repository"
	ws "backend/internal/websocket"

	"github.com/google/uuid"
)

// --- DTOs ---

// PermissionFlagInput marks one catalog permission granted or revoked inside
// a module entry.
type PermissionFlagInput struct {
	PermissionID string `json:"permission_id"`
	Granted      bool   `json:"granted"`
}

// FieldFlagInput carries the caller's visibility/editability wishes for one
// field. Editability is coerced, not trusted.
type FieldFlagInput struct {
	FieldID    string `json:"field_id"`
	IsVisible  bool   `json:"is_visible"`
	IsEditable bool   `json:"is_editable"`
}

// ModuleGrantInput is one module's slice of the submitted grant tree.
// HasAccess and DataAccess are optional; absent values are computed.
type ModuleGrantInput struct {
	ModuleID    string                `json:"module_id"`
	HasAccess   *bool                 `json:"has_access"`
	DataAccess  *string               `json:"data_access"`
	Permissions []PermissionFlagInput `json:"permissions"`
	Fields      []FieldFlagInput      `json:"fields"`
}

// ApplyRoleGrantsRequest is the full grant tree for one role. PermissionIDs
// is the optional explicit legacy override, unioned with whatever the tree
// itself implies.
type ApplyRoleGrantsRequest struct {
	ModuleGrants  []ModuleGrantInput `json:"module_grants"`
	PermissionIDs []string           `json:"permission_ids"`
}

// ModuleGrantResponse is one module's resolved tree returned by GetRoleGrants.
type ModuleGrantResponse struct {
	ModuleID   string             `json:"module_id"`
	HasAccess  bool               `json:"has_access"`
	DataAccess string             `json:"data_access"`
	Fields     []FieldGrantDetail `json:"fields"`
}

type FieldGrantDetail struct {
	FieldID    string `json:"field_id"`
	IsVisible  bool   `json:"is_visible"`
	IsEditable bool   `json:"is_editable"`
}

// --- Interface ---

// GrantService is the writer side of the permission engine: it validates and
// normalizes a role's full grant tree, derives the legacy flat projection and
// commits both as a single unit of work.
type GrantService interface {
	ApplyRoleGrants(ctx context.Context, roleID string, req ApplyRoleGrantsRequest, actingUserID *uuid.UUID) error
	GetRoleGrants(ctx context.Context, roleID string) ([]ModuleGrantResponse, error)
}

type grantService struct {
	roleRepo  repository.RoleRepository
	grantRepo repository.GrantRepository
	txManager repository.TransactionManager
	resolver  PermissionResolver
	auditor   AuditRecorder
	hub       *ws.Hub
}

func NewGrantService(
	roleRepo repository.RoleRepository,
	grantRepo repository.GrantRepository,
	txManager repository.TransactionManager,
	resolver PermissionResolver,
	auditor AuditRecorder,
	hub *ws.Hub,
) GrantService {
	return &grantService{
		roleRepo:  roleRepo,
		grantRepo: grantRepo,
		txManager: txManager,
		resolver:  resolver,
		auditor:   auditor,
		hub:       hub,
	}
}

// --- Normalization (pure, no I/O) ---

// normalizedGrant is one module entry after defaulting and self-healing.
type normalizedGrant struct {
	Module       model.ModuleGrant
	Fields       []model.FieldGrant
	GrantedPerms []uuid.UUID
}

var validDataAccess = map[string]bool{
	model.DataAccessNone: true,
	model.DataAccessOwn:  true,
	model.DataAccessTeam: true,
	model.DataAccessAll:  true,
}

// normalizeModuleGrants applies the defaulting rules to a submitted grant
// tree before any I/O happens:
//   - entries without a module id are skipped;
//   - hasAccess defaults to "any permission in the entry is granted";
//   - dataAccess defaults to team when access is granted, none otherwise,
//     and an out-of-range value falls back to that same computed default;
//   - isEditable is forced false whenever isVisible is false.
func normalizeModuleGrants(roleID uuid.UUID, inputs []ModuleGrantInput) []normalizedGrant {
	out := make([]normalizedGrant, 0, len(inputs))

	for _, in := range inputs {
		if in.ModuleID == "" {
			continue
		}

		granted := make([]uuid.UUID, 0, len(in.Permissions))
		anyGranted := false
		for _, p := range in.Permissions {
			if !p.Granted {
				continue
			}
			pid, err := uuid.Parse(p.PermissionID)
			if err != nil {
				continue
			}
			anyGranted = true
			granted = append(granted, pid)
		}

		hasAccess := anyGranted
		if in.HasAccess != nil {
			hasAccess = *in.HasAccess
		}

		dataAccess := model.DataAccessNone
		if hasAccess {
			dataAccess = model.DataAccessTeam
		}
		if in.DataAccess != nil && validDataAccess[*in.DataAccess] {
			dataAccess = *in.DataAccess
		}
		if !hasAccess {
			// hasAccess=false pins the scope to none regardless of input
			dataAccess = model.DataAccessNone
		}

		fields := make([]model.FieldGrant, 0, len(in.Fields))
		for _, f := range in.Fields {
			if f.FieldID == "" {
				continue
			}
			editable := f.IsEditable
			if !f.IsVisible {
				editable = false // editable implies visible; self-heal, never reject
			}
			fields = append(fields, model.FieldGrant{
				RoleID:     roleID,
				ModuleID:   in.ModuleID,
				FieldID:    f.FieldID,
				IsVisible:  f.IsVisible,
				IsEditable: editable,
			})
		}

		out = append(out, normalizedGrant{
			Module: model.ModuleGrant{
				RoleID:     roleID,
				ModuleID:   in.ModuleID,
				HasAccess:  hasAccess,
				DataAccess: dataAccess,
			},
			Fields:       fields,
			GrantedPerms: granted,
		})
	}

	return out
}

// projectLegacyGrants derives the flat permission-id set a normalized tree
// implies: exactly the ids flagged granted, nothing inferred from module
// access alone. A module may have hasAccess=true and contribute nothing —
// the flat set backs legacy exact/wildcard checks, the tree backs the
// resolver; the two signals are independent.
func projectLegacyGrants(grants []normalizedGrant, override []string) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	out := make([]uuid.UUID, 0)

	add := func(id uuid.UUID) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}

	for _, raw := range override {
		if id, err := uuid.Parse(raw); err == nil {
			add(id)
		}
	}
	for _, g := range grants {
		for _, id := range g.GrantedPerms {
			add(id)
		}
	}

	return out
}

// --- Writer ---

// ApplyRoleGrants replaces the role's full grant tree and its legacy flat
// projection in one transaction. A failure at any step rolls everything
// back; the role's prior grants stay intact. Re-submitting the same payload
// is always safe — every step is a full replace, not an increment.
func (s *grantService) ApplyRoleGrants(ctx context.Context, roleID string, req ApplyRoleGrantsRequest, actingUserID *uuid.UUID) error {
	rid, err := uuid.Parse(roleID)
	if err != nil {
		return fmt.Errorf("%w: invalid role id", ErrInvalid)
	}

	role, err := s.roleRepo.FindByID(ctx, rid)
	if err != nil {
		if repository.IsNotFound(err) {
			return fmt.Errorf("%w: role %s", ErrNotFound, roleID)
		}
		return fmt.Errorf("failed to load role: %w", err)
	}

	normalized := normalizeModuleGrants(rid, req.ModuleGrants)
	finalLegacyIDs := projectLegacyGrants(normalized, req.PermissionIDs)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Same-role writers must serialize: without the row lock two
		// concurrent applies can interleave their flat-table delete/insert
		// and commit a union neither of them submitted.
		if _, err := s.roleRepo.FindByIDForUpdate(txCtx, rid); err != nil {
			if repository.IsNotFound(err) {
				return fmt.Errorf("%w: role %s", ErrNotFound, roleID)
			}
			return fmt.Errorf("failed to lock role: %w", err)
		}
		for _, g := range normalized {
			if err := s.grantRepo.ReplaceModuleGrant(txCtx, &g.Module); err != nil {
				return fmt.Errorf("failed to replace module grant %q: %w", g.Module.ModuleID, err)
			}
			if err := s.grantRepo.ReplaceFieldGrants(txCtx, rid, g.Module.ModuleID, g.Fields); err != nil {
				return fmt.Errorf("failed to replace field grants %q: %w", g.Module.ModuleID, err)
			}
		}
		if err := s.grantRepo.DeleteLegacyGrants(txCtx, rid); err != nil {
			return fmt.Errorf("failed to clear legacy grants: %w", err)
		}
		if len(finalLegacyIDs) > 0 {
			if err := s.grantRepo.InsertLegacyGrants(txCtx, rid, finalLegacyIDs); err != nil {
				return fmt.Errorf("failed to insert legacy grants: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Committed: drop cached flat codes and notify connected admin UIs.
	if s.resolver != nil {
		s.resolver.InvalidateRole(rid)
	}
	if s.hub != nil {
		msg, _ := json.Marshal(map[string]interface{}{
			"event":   "role.grants.updated",
			"role_id": rid.String(),
		})
		s.hub.Broadcast <- msg
	}
	if s.auditor != nil {
		details, _ := json.Marshal(map[string]interface{}{
			"modules":    len(normalized),
			"legacy_ids": len(finalLegacyIDs),
		})
		s.auditor.Record(ctx, actingUserID, model.ActionApplyRoleGrants, rid.String(), role.Name, string(details))
	}

	return nil
}

// GetRoleGrants returns the committed grant tree for a role, module grants
// zipped with their field grants.
func (s *grantService) GetRoleGrants(ctx context.Context, roleID string) ([]ModuleGrantResponse, error) {
	rid, err := uuid.Parse(roleID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid role id", ErrInvalid)
	}

	if _, err := s.roleRepo.FindByID(ctx, rid); err != nil {
		if repository.IsNotFound(err) {
			return nil, fmt.Errorf("%w: role %s", ErrNotFound, roleID)
		}
		return nil, fmt.Errorf("failed to load role: %w", err)
	}

	grants, err := s.grantRepo.ListModuleGrants(ctx, rid)
	if err != nil {
		return nil, fmt.Errorf("failed to list module grants: %w", err)
	}

	out := make([]ModuleGrantResponse, 0, len(grants))
	for _, g := range grants {
		fields, err := s.grantRepo.ListFieldGrants(ctx, rid, g.ModuleID)
		if err != nil {
			return nil, fmt.Errorf("failed to list field grants: %w", err)
		}
		details := make([]FieldGrantDetail, 0, len(fields))
		for _, f := range fields {
			details = append(details, FieldGrantDetail{
				FieldID:    f.FieldID,
				IsVisible:  f.IsVisible,
				IsEditable: f.IsEditable,
			})
		}
		out = append(out, ModuleGrantResponse{
			ModuleID:   g.ModuleID,
			HasAccess:  g.HasAccess,
			DataAccess: g.DataAccess,
			Fields:     details,
		})
	}

	return out, nil
}
