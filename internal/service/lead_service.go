package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"

	"backend/internal/model"
	"backend/internal/repository"
	ws "backend/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateLeadRequest struct {
	Name           string          `json:"name" binding:"required"`
	CompanyName    string          `json:"company_name"`
	Phone          string          `json:"phone"`
	Email          string          `json:"email"`
	Source         string          `json:"source"`
	EstimatedValue decimal.Decimal `json:"estimated_value"`
}

type UpdateLeadRequest struct {
	Name           *string          `json:"name"`
	CompanyName    *string          `json:"company_name"`
	Phone          *string          `json:"phone"`
	Email          *string          `json:"email"`
	Source         *string          `json:"source"`
	Status         *string          `json:"status"`
	EstimatedValue *decimal.Decimal `json:"estimated_value"`
	AssignedToID   *string          `json:"assigned_to_id"`
}

// LeadResponse uses pointers for field-gated attributes: a nil value means
// the caller's role may not see that field, distinct from an empty one.
type LeadResponse struct {
	ID             uuid.UUID        `json:"id"`
	Name           string           `json:"name"`
	CompanyName    string           `json:"company_name"`
	Phone          *string          `json:"phone,omitempty"`
	Email          *string          `json:"email,omitempty"`
	Source         string           `json:"source"`
	Status         string           `json:"status"`
	EstimatedValue *decimal.Decimal `json:"estimated_value,omitempty"`
	AssignedTo     string           `json:"assigned_to"`
	CreatedAt      string           `json:"created_at"`
	UpdatedAt      string           `json:"updated_at"`
}

// --- Interface ---

type LeadService interface {
	CreateLead(ctx context.Context, p Principal, req CreateLeadRequest) (*LeadResponse, error)
	GetLead(ctx context.Context, p Principal, id string) (*LeadResponse, error)
	ListLeads(ctx context.Context, p Principal, status, search string, page, limit int) ([]LeadResponse, int64, error)
	UpdateLead(ctx context.Context, p Principal, id string, req UpdateLeadRequest) (*LeadResponse, error)
	DeleteLead(ctx context.Context, p Principal, id string) error
}

type leadService struct {
	repo        repository.LeadRepository
	resolver    PermissionResolver
	auditor     AuditRecorder
	hub         *ws.Hub
	multiTenant bool
}

func NewLeadService(repo repository.LeadRepository, resolver PermissionResolver, auditor AuditRecorder, hub *ws.Hub, multiTenant bool) LeadService {
	return &leadService{repo: repo, resolver: resolver, auditor: auditor, hub: hub, multiTenant: multiTenant}
}

var validLeadStatuses = map[string]bool{
	model.LeadStatusNew:       true,
	model.LeadStatusContacted: true,
	model.LeadStatusQualified: true,
	model.LeadStatusWon:       true,
	model.LeadStatusLost:      true,
}

// --- CRUD ---

func (s *leadService) CreateLead(ctx context.Context, p Principal, req CreateLeadRequest) (*LeadResponse, error) {
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			return nil, fmt.Errorf("%w: invalid email format", ErrInvalid)
		}
	}

	lead := &model.Lead{
		TenantID:       p.TenantID,
		CreatedByID:    p.UserID,
		Name:           req.Name,
		CompanyName:    req.CompanyName,
		Phone:          req.Phone,
		Email:          req.Email,
		Source:         req.Source,
		Status:         model.LeadStatusNew,
		EstimatedValue: req.EstimatedValue,
	}

	if err := s.repo.Create(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}

	if s.auditor != nil {
		uid := p.UserID
		s.auditor.Record(ctx, &uid, model.ActionCreateLead, lead.ID.String(), lead.Name, "")
	}

	return s.maskLead(ctx, p, lead)
}

func (s *leadService) GetLead(ctx context.Context, p Principal, id string) (*LeadResponse, error) {
	lead, err := s.fetchInScope(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return s.maskLead(ctx, p, lead)
}

func (s *leadService) ListLeads(ctx context.Context, p Principal, status, search string, page, limit int) ([]LeadResponse, int64, error) {
	scope, err := resolveScope(ctx, s.resolver, p, "leads", s.multiTenant)
	if err != nil {
		return nil, 0, err
	}

	leads, total, err := s.repo.List(ctx, scope, status, search, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list leads: %w", err)
	}

	// Field grants are per-role, so resolve visibility once for the page.
	access, err := s.fieldAccess(ctx, p)
	if err != nil {
		return nil, 0, err
	}

	res := make([]LeadResponse, 0, len(leads))
	for i := range leads {
		res = append(res, *applyLeadMask(&leads[i], access))
	}
	return res, total, nil
}

func (s *leadService) UpdateLead(ctx context.Context, p Principal, id string, req UpdateLeadRequest) (*LeadResponse, error) {
	lead, err := s.fetchInScope(ctx, p, id)
	if err != nil {
		return nil, err
	}

	access, err := s.fieldAccess(ctx, p)
	if err != nil {
		return nil, err
	}

	// Gated fields must be editable for the caller's role.
	if req.Phone != nil && !access["phone"].Editable {
		return nil, fmt.Errorf("%w: field 'phone' is not editable", ErrForbidden)
	}
	if req.Email != nil && !access["email"].Editable {
		return nil, fmt.Errorf("%w: field 'email' is not editable", ErrForbidden)
	}
	if req.EstimatedValue != nil && !access["estimated_value"].Editable {
		return nil, fmt.Errorf("%w: field 'estimated_value' is not editable", ErrForbidden)
	}

	if req.Name != nil {
		lead.Name = *req.Name
	}
	if req.CompanyName != nil {
		lead.CompanyName = *req.CompanyName
	}
	if req.Phone != nil {
		lead.Phone = *req.Phone
	}
	if req.Email != nil {
		if *req.Email != "" {
			if _, err := mail.ParseAddress(*req.Email); err != nil {
				return nil, fmt.Errorf("%w: invalid email format", ErrInvalid)
			}
		}
		lead.Email = *req.Email
	}
	if req.Source != nil {
		lead.Source = *req.Source
	}
	if req.Status != nil {
		if !validLeadStatuses[*req.Status] {
			return nil, fmt.Errorf("%w: status must be one of: NEW, CONTACTED, QUALIFIED, WON, LOST", ErrInvalid)
		}
		lead.Status = *req.Status
	}
	if req.EstimatedValue != nil {
		lead.EstimatedValue = *req.EstimatedValue
	}

	assigned := false
	if req.AssignedToID != nil && *req.AssignedToID != "" {
		aid, parseErr := uuid.Parse(*req.AssignedToID)
		if parseErr != nil {
			return nil, fmt.Errorf("%w: invalid assignee id", ErrInvalid)
		}
		if lead.AssignedToID == nil || *lead.AssignedToID != aid {
			assigned = true
		}
		lead.AssignedToID = &aid
		lead.AssignedTo = nil // stale preload
	}

	if err := s.repo.Update(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to update lead: %w", err)
	}

	if s.auditor != nil {
		uid := p.UserID
		action := model.ActionUpdateLead
		if assigned {
			action = model.ActionAssignLead
		}
		s.auditor.Record(ctx, &uid, action, lead.ID.String(), lead.Name, "")
	}

	if assigned && s.hub != nil {
		msg, _ := json.Marshal(map[string]interface{}{
			"event":          "lead.assigned",
			"lead_id":        lead.ID.String(),
			"assigned_to_id": lead.AssignedToID.String(),
		})
		s.hub.Broadcast <- msg
	}

	return s.maskLead(ctx, p, lead)
}

func (s *leadService) DeleteLead(ctx context.Context, p Principal, id string) error {
	lead, err := s.fetchInScope(ctx, p, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, lead.ID); err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}

	if s.auditor != nil {
		uid := p.UserID
		s.auditor.Record(ctx, &uid, model.ActionDeleteLead, lead.ID.String(), lead.Name, "")
	}

	return nil
}

// --- Helpers ---

func (s *leadService) fetchInScope(ctx context.Context, p Principal, id string) (*model.Lead, error) {
	scope, err := resolveScope(ctx, s.resolver, p, "leads", s.multiTenant)
	if err != nil {
		return nil, err
	}

	lid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid lead id", ErrInvalid)
	}

	lead, err := s.repo.FindByID(ctx, lid)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, fmt.Errorf("%w: lead %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to fetch lead: %w", err)
	}

	if !inScope(scope, lead.CreatedByID, lead.TenantID) {
		return nil, fmt.Errorf("%w: lead is outside your data scope", ErrForbidden)
	}

	return lead, nil
}

var leadGatedFields = []string{"phone", "email", "estimated_value"}

func (s *leadService) fieldAccess(ctx context.Context, p Principal) (map[string]model.FieldAccess, error) {
	access := make(map[string]model.FieldAccess, len(leadGatedFields))
	for _, f := range leadGatedFields {
		fa, err := s.resolver.FieldVisibility(ctx, p, "leads", f)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve field access: %w", err)
		}
		access[f] = fa
	}
	return access, nil
}

func (s *leadService) maskLead(ctx context.Context, p Principal, lead *model.Lead) (*LeadResponse, error) {
	access, err := s.fieldAccess(ctx, p)
	if err != nil {
		return nil, err
	}
	return applyLeadMask(lead, access), nil
}

// applyLeadMask elides gated fields the role may not see.
func applyLeadMask(lead *model.Lead, access map[string]model.FieldAccess) *LeadResponse {
	assignedTo := ""
	if lead.AssignedTo != nil {
		assignedTo = lead.AssignedTo.Username
	}

	resp := &LeadResponse{
		ID:          lead.ID,
		Name:        lead.Name,
		CompanyName: lead.CompanyName,
		Source:      lead.Source,
		Status:      lead.Status,
		AssignedTo:  assignedTo,
		CreatedAt:   lead.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:   lead.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}

	if access["phone"].Visible {
		phone := lead.Phone
		resp.Phone = &phone
	}
	if access["email"].Visible {
		email := lead.Email
		resp.Email = &email
	}
	if access["estimated_value"].Visible {
		value := lead.EstimatedValue
		resp.EstimatedValue = &value
	}

	return resp
}
