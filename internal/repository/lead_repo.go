package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LeadRepository interface {
	Create(ctx context.Context, lead *model.Lead) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Lead, error)
	List(ctx context.Context, scope ScopeFilter, status, search string, page, limit int) ([]model.Lead, int64, error)
	Update(ctx context.Context, lead *model.Lead) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type leadRepository struct {
	db *gorm.DB
}

func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &leadRepository{db: db}
}

func (r *leadRepository) Create(ctx context.Context, lead *model.Lead) error {
	return GetDB(ctx, r.db).Create(lead).Error
}

func (r *leadRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Lead, error) {
	var lead model.Lead
	if err := GetDB(ctx, r.db).Preload("AssignedTo").First(&lead, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *leadRepository) List(ctx context.Context, scope ScopeFilter, status, search string, page, limit int) ([]model.Lead, int64, error) {
	q := scope.apply(GetDB(ctx, r.db).Model(&model.Lead{}))

	if status != "" {
		q = q.Where("status = ?", status)
	}
	if search != "" {
		pattern := "%" + search + "%"
		q = q.Where("name ILIKE ? OR company_name ILIKE ? OR email ILIKE ? OR phone ILIKE ?", pattern, pattern, pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var leads []model.Lead
	offset := (page - 1) * limit
	if err := q.Preload("AssignedTo").Order("created_at desc").Offset(offset).Limit(limit).Find(&leads).Error; err != nil {
		return nil, 0, err
	}

	return leads, total, nil
}

func (r *leadRepository) Update(ctx context.Context, lead *model.Lead) error {
	return GetDB(ctx, r.db).Save(lead).Error
}

func (r *leadRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Lead{}).Error
}
