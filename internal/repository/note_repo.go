package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NoteRepository interface {
	Create(ctx context.Context, note *model.Note) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Note, error)
	List(ctx context.Context, scope ScopeFilter, relatedType, search string, page, limit int) ([]model.Note, int64, error)
	Update(ctx context.Context, note *model.Note) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type noteRepository struct {
	db *gorm.DB
}

func NewNoteRepository(db *gorm.DB) NoteRepository {
	return &noteRepository{db: db}
}

func (r *noteRepository) Create(ctx context.Context, note *model.Note) error {
	return GetDB(ctx, r.db).Create(note).Error
}

func (r *noteRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Note, error) {
	var note model.Note
	if err := GetDB(ctx, r.db).Preload("CreatedBy").First(&note, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &note, nil
}

func (r *noteRepository) List(ctx context.Context, scope ScopeFilter, relatedType, search string, page, limit int) ([]model.Note, int64, error) {
	q := scope.apply(GetDB(ctx, r.db).Model(&model.Note{}))

	if relatedType != "" {
		q = q.Where("related_type = ?", relatedType)
	}
	if search != "" {
		q = q.Where("title ILIKE ? OR body ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notes []model.Note
	offset := (page - 1) * limit
	if err := q.Preload("CreatedBy").Order("is_pinned desc, created_at desc").Offset(offset).Limit(limit).Find(&notes).Error; err != nil {
		return nil, 0, err
	}

	return notes, total, nil
}

func (r *noteRepository) Update(ctx context.Context, note *model.Note) error {
	return GetDB(ctx, r.db).Save(note).Error
}

func (r *noteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Note{}).Error
}
