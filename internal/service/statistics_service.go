package service

import (
	"context"

	"backend/internal/model"

	"gorm.io/gorm"
)

// StatisticsResponse carries the dashboard counters per module.
type StatisticsResponse struct {
	TotalUsers     int64 `json:"total_users"`
	TotalRoles     int64 `json:"total_roles"`
	TotalNotes     int64 `json:"total_notes"`
	TotalLeads     int64 `json:"total_leads"`
	TotalProjects  int64 `json:"total_projects"`
	TotalStudents  int64 `json:"total_students"`
	OpenLeads      int64 `json:"open_leads"`
	ActiveProjects int64 `json:"active_projects"`
}

type StatisticsService interface {
	GetStatistics(ctx context.Context) (StatisticsResponse, error)
}

type statisticsService struct {
	db *gorm.DB
}

func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{db: db}
}

// GetStatistics aggregates per-module record counts for the dashboard
func (s *statisticsService) GetStatistics(ctx context.Context) (StatisticsResponse, error) {
	var resp StatisticsResponse

	counts := []struct {
		target *int64
		model  interface{}
	}{
		{&resp.TotalUsers, &model.User{}},
		{&resp.TotalRoles, &model.Role{}},
		{&resp.TotalNotes, &model.Note{}},
		{&resp.TotalLeads, &model.Lead{}},
		{&resp.TotalProjects, &model.Project{}},
		{&resp.TotalStudents, &model.Student{}},
	}
	for _, c := range counts {
		if err := s.db.WithContext(ctx).Model(c.model).Count(c.target).Error; err != nil {
			return resp, err
		}
	}

	if err := s.db.WithContext(ctx).Model(&model.Lead{}).
		Where("status IN ?", []string{model.LeadStatusNew, model.LeadStatusContacted, model.LeadStatusQualified}).
		Count(&resp.OpenLeads).Error; err != nil {
		return resp, err
	}

	if err := s.db.WithContext(ctx).Model(&model.Project{}).
		Where("status = ?", model.ProjectStatusActive).
		Count(&resp.ActiveProjects).Error; err != nil {
		return resp, err
	}

	return resp, nil
}
