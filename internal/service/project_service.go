package service

import (
	"context"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateProjectRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Budget      decimal.Decimal `json:"budget"`
	OwnerID     *string         `json:"owner_id"`
	StartDate   *time.Time      `json:"start_date"`
	EndDate     *time.Time      `json:"end_date"`
}

type UpdateProjectRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Status      *string          `json:"status"`
	Budget      *decimal.Decimal `json:"budget"`
	OwnerID     *string          `json:"owner_id"`
	StartDate   *time.Time       `json:"start_date"`
	EndDate     *time.Time       `json:"end_date"`
}

type ProjectResponse struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	Budget      decimal.Decimal `json:"budget"`
	Owner       string          `json:"owner"`
	StartDate   *time.Time      `json:"start_date"`
	EndDate     *time.Time      `json:"end_date"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

// --- Interface ---

type ProjectService interface {
	CreateProject(ctx context.Context, p Principal, req CreateProjectRequest) (*ProjectResponse, error)
	GetProject(ctx context.Context, p Principal, id string) (*ProjectResponse, error)
	ListProjects(ctx context.Context, p Principal, status, search string, page, limit int) ([]ProjectResponse, int64, error)
	UpdateProject(ctx context.Context, p Principal, id string, req UpdateProjectRequest) (*ProjectResponse, error)
	DeleteProject(ctx context.Context, p Principal, id string) error
}

type projectService struct {
	repo        repository.ProjectRepository
	resolver    PermissionResolver
	auditor     AuditRecorder
	multiTenant bool
}

func NewProjectService(repo repository.ProjectRepository, resolver PermissionResolver, auditor AuditRecorder, multiTenant bool) ProjectService {
	return &projectService{repo: repo, resolver: resolver, auditor: auditor, multiTenant: multiTenant}
}

var validProjectStatuses = map[string]bool{
	model.ProjectStatusPlanning:  true,
	model.ProjectStatusActive:    true,
	model.ProjectStatusOnHold:    true,
	model.ProjectStatusCompleted: true,
	model.ProjectStatusCancelled: true,
}

// --- CRUD ---

func (s *projectService) CreateProject(ctx context.Context, p Principal, req CreateProjectRequest) (*ProjectResponse, error) {
	if req.Budget.IsNegative() {
		return nil, fmt.Errorf("%w: budget cannot be negative", ErrInvalid)
	}

	project := &model.Project{
		TenantID:    p.TenantID,
		CreatedByID: p.UserID,
		Name:        req.Name,
		Description: req.Description,
		Status:      model.ProjectStatusPlanning,
		Budget:      req.Budget,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}

	if req.OwnerID != nil && *req.OwnerID != "" {
		oid, err := uuid.Parse(*req.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid owner id", ErrInvalid)
		}
		project.OwnerID = &oid
	}

	if err := s.repo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	if s.auditor != nil {
		uid := p.UserID
		s.auditor.Record(ctx, &uid, model.ActionCreateProject, project.ID.String(), project.Name, "")
	}

	return toProjectResponse(project), nil
}

func (s *projectService) GetProject(ctx context.Context, p Principal, id string) (*ProjectResponse, error) {
	project, err := s.fetchInScope(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return toProjectResponse(project), nil
}

func (s *projectService) ListProjects(ctx context.Context, p Principal, status, search string, page, limit int) ([]ProjectResponse, int64, error) {
	scope, err := resolveScope(ctx, s.resolver, p, "projects", s.multiTenant)
	if err != nil {
		return nil, 0, err
	}

	projects, total, err := s.repo.List(ctx, scope, status, search, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}

	res := make([]ProjectResponse, 0, len(projects))
	for i := range projects {
		res = append(res, *toProjectResponse(&projects[i]))
	}
	return res, total, nil
}

func (s *projectService) UpdateProject(ctx context.Context, p Principal, id string, req UpdateProjectRequest) (*ProjectResponse, error) {
	project, err := s.fetchInScope(ctx, p, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.Status != nil {
		if !validProjectStatuses[*req.Status] {
			return nil, fmt.Errorf("%w: invalid project status", ErrInvalid)
		}
		project.Status = *req.Status
	}
	if req.Budget != nil {
		if req.Budget.IsNegative() {
			return nil, fmt.Errorf("%w: budget cannot be negative", ErrInvalid)
		}
		project.Budget = *req.Budget
	}
	if req.OwnerID != nil && *req.OwnerID != "" {
		oid, parseErr := uuid.Parse(*req.OwnerID)
		if parseErr != nil {
			return nil, fmt.Errorf("%w: invalid owner id", ErrInvalid)
		}
		project.OwnerID = &oid
		project.Owner = nil // stale preload
	}
	if req.StartDate != nil {
		project.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		project.EndDate = req.EndDate
	}

	if err := s.repo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	if s.auditor != nil {
		uid := p.UserID
		s.auditor.Record(ctx, &uid, model.ActionUpdateProject, project.ID.String(), project.Name, "")
	}

	return toProjectResponse(project), nil
}

func (s *projectService) DeleteProject(ctx context.Context, p Principal, id string) error {
	project, err := s.fetchInScope(ctx, p, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, project.ID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	if s.auditor != nil {
		uid := p.UserID
		s.auditor.Record(ctx, &uid, model.ActionDeleteProject, project.ID.String(), project.Name, "")
	}

	return nil
}

// --- Helpers ---

func (s *projectService) fetchInScope(ctx context.Context, p Principal, id string) (*model.Project, error) {
	scope, err := resolveScope(ctx, s.resolver, p, "projects", s.multiTenant)
	if err != nil {
		return nil, err
	}

	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid project id", ErrInvalid)
	}

	project, err := s.repo.FindByID(ctx, pid)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, fmt.Errorf("%w: project %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to fetch project: %w", err)
	}

	if !inScope(scope, project.CreatedByID, project.TenantID) {
		return nil, fmt.Errorf("%w: project is outside your data scope", ErrForbidden)
	}

	return project, nil
}

func toProjectResponse(p *model.Project) *ProjectResponse {
	owner := ""
	if p.Owner != nil {
		owner = p.Owner.Username
	}
	return &ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Status:      p.Status,
		Budget:      p.Budget,
		Owner:       owner,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		CreatedAt:   p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:   p.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
