package service

import (
	"context"
	"fmt"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateNoteRequest struct {
	Title       string  `json:"title" binding:"required"`
	Body        string  `json:"body"`
	RelatedType string  `json:"related_type"`
	RelatedID   *string `json:"related_id"`
	IsPinned    bool    `json:"is_pinned"`
}

type UpdateNoteRequest struct {
	Title    *string `json:"title"`
	Body     *string `json:"body"`
	IsPinned *bool   `json:"is_pinned"`
}

type NoteResponse struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	RelatedType string     `json:"related_type"`
	RelatedID   *uuid.UUID `json:"related_id"`
	IsPinned    bool       `json:"is_pinned"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   string     `json:"created_at"`
	UpdatedAt   string     `json:"updated_at"`
}

// --- Interface ---

type NoteService interface {
	CreateNote(ctx context.Context, p Principal, req CreateNoteRequest) (*NoteResponse, error)
	GetNote(ctx context.Context, p Principal, id string) (*NoteResponse, error)
	ListNotes(ctx context.Context, p Principal, relatedType, search string, page, limit int) ([]NoteResponse, int64, error)
	UpdateNote(ctx context.Context, p Principal, id string, req UpdateNoteRequest) (*NoteResponse, error)
	DeleteNote(ctx context.Context, p Principal, id string) error
}

type noteService struct {
	repo        repository.NoteRepository
	resolver    PermissionResolver
	auditor     AuditRecorder
	multiTenant bool
}

func NewNoteService(repo repository.NoteRepository, resolver PermissionResolver, auditor AuditRecorder, multiTenant bool) NoteService {
	return &noteService{repo: repo, resolver: resolver, auditor: auditor, multiTenant: multiTenant}
}

var validRelatedTypes = map[string]bool{"": true, "leads": true, "projects": true, "students": true}

// --- CRUD ---

func (s *noteService) CreateNote(ctx context.Context, p Principal, req CreateNoteRequest) (*NoteResponse, error) {
	if !validRelatedTypes[req.RelatedType] {
		return nil, fmt.Errorf("%w: related_type must be one of: leads, projects, students", ErrInvalid)
	}

	note := &model.Note{
		TenantID:    p.TenantID,
		CreatedByID: p.UserID,
		Title:       req.Title,
		Body:        req.Body,
		RelatedType: req.RelatedType,
		IsPinned:    req.IsPinned,
	}

	if req.RelatedID != nil && *req.RelatedID != "" {
		rid, err := uuid.Parse(*req.RelatedID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid related id", ErrInvalid)
		}
		note.RelatedID = &rid
	}

	if err := s.repo.Create(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	if s.auditor != nil {
		uid := p.UserID
		s.auditor.Record(ctx, &uid, model.ActionCreateNote, note.ID.String(), note.Title, "")
	}

	return toNoteResponse(note), nil
}

func (s *noteService) GetNote(ctx context.Context, p Principal, id string) (*NoteResponse, error) {
	note, _, err := s.fetchInScope(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return toNoteResponse(note), nil
}

func (s *noteService) ListNotes(ctx context.Context, p Principal, relatedType, search string, page, limit int) ([]NoteResponse, int64, error) {
	scope, err := resolveScope(ctx, s.resolver, p, "notes", s.multiTenant)
	if err != nil {
		return nil, 0, err
	}

	notes, total, err := s.repo.List(ctx, scope, relatedType, search, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notes: %w", err)
	}

	res := make([]NoteResponse, 0, len(notes))
	for i := range notes {
		res = append(res, *toNoteResponse(&notes[i]))
	}
	return res, total, nil
}

func (s *noteService) UpdateNote(ctx context.Context, p Principal, id string, req UpdateNoteRequest) (*NoteResponse, error) {
	note, _, err := s.fetchInScope(ctx, p, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		note.Title = *req.Title
	}
	if req.Body != nil {
		note.Body = *req.Body
	}
	if req.IsPinned != nil {
		note.IsPinned = *req.IsPinned
	}

	if err := s.repo.Update(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}

	if s.auditor != nil {
		uid := p.UserID
		s.auditor.Record(ctx, &uid, model.ActionUpdateNote, note.ID.String(), note.Title, "")
	}

	return toNoteResponse(note), nil
}

func (s *noteService) DeleteNote(ctx context.Context, p Principal, id string) error {
	note, _, err := s.fetchInScope(ctx, p, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, note.ID); err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}

	if s.auditor != nil {
		uid := p.UserID
		s.auditor.Record(ctx, &uid, model.ActionDeleteNote, note.ID.String(), note.Title, "")
	}

	return nil
}

// fetchInScope loads a note and verifies the caller's data-access scope
// covers it, so single-record operations honor the same rule as lists.
func (s *noteService) fetchInScope(ctx context.Context, p Principal, id string) (*model.Note, repository.ScopeFilter, error) {
	scope, err := resolveScope(ctx, s.resolver, p, "notes", s.multiTenant)
	if err != nil {
		return nil, scope, err
	}

	nid, err := uuid.Parse(id)
	if err != nil {
		return nil, scope, fmt.Errorf("%w: invalid note id", ErrInvalid)
	}

	note, err := s.repo.FindByID(ctx, nid)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, scope, fmt.Errorf("%w: note %s", ErrNotFound, id)
		}
		return nil, scope, fmt.Errorf("failed to fetch note: %w", err)
	}

	if !inScope(scope, note.CreatedByID, note.TenantID) {
		return nil, scope, fmt.Errorf("%w: note is outside your data scope", ErrForbidden)
	}

	return note, scope, nil
}

func toNoteResponse(n *model.Note) *NoteResponse {
	createdBy := ""
	if n.CreatedBy != nil {
		createdBy = n.CreatedBy.Username
	}
	return &NoteResponse{
		ID:          n.ID,
		Title:       n.Title,
		Body:        n.Body,
		RelatedType: n.RelatedType,
		RelatedID:   n.RelatedID,
		IsPinned:    n.IsPinned,
		CreatedBy:   createdBy,
		CreatedAt:   n.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:   n.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
