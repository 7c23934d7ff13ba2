package service

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateStudentRequest struct {
	FullName     string     `json:"full_name" binding:"required"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	DateOfBirth  *time.Time `json:"date_of_birth"`
	GuardianName string     `json:"guardian_name"`
	Course       string     `json:"course"`
	EnrolledAt   *time.Time `json:"enrolled_at"`
}

type UpdateStudentRequest struct {
	FullName     *string    `json:"full_name"`
	Email        *string    `json:"email"`
	Phone        *string    `json:"phone"`
	DateOfBirth  *time.Time `json:"date_of_birth"`
	GuardianName *string    `json:"guardian_name"`
	Course       *string    `json:"course"`
	Status       *string    `json:"status"`
}

// StudentResponse gates contact and personal fields per the caller's field
// grants; nil means hidden.
type StudentResponse struct {
	ID           uuid.UUID  `json:"id"`
	FullName     string     `json:"full_name"`
	Email        *string    `json:"email,omitempty"`
	Phone        *string    `json:"phone,omitempty"`
	DateOfBirth  *time.Time `json:"date_of_birth,omitempty"`
	GuardianName *string    `json:"guardian_name,omitempty"`
	Course       string     `json:"course"`
	Status       string     `json:"status"`
	EnrolledAt   *time.Time `json:"enrolled_at"`
	CreatedAt    string     `json:"created_at"`
	UpdatedAt    string     `json:"updated_at"`
}

// --- Interface ---

type StudentService interface {
	CreateStudent(ctx context.Context, p Principal, req CreateStudentRequest) (*StudentResponse, error)
	GetStudent(ctx context.Context, p Principal, id string) (*StudentResponse, error)
	ListStudents(ctx context.Context, p Principal, status, search string, page, limit int) ([]StudentResponse, int64, error)
	UpdateStudent(ctx context.Context, p Principal, id string, req UpdateStudentRequest) (*StudentResponse, error)
	DeleteStudent(ctx context.Context, p Principal, id string) error
}

type studentService struct {
	repo        repository.StudentRepository
	resolver    PermissionResolver
	auditor     AuditRecorder
	multiTenant bool
}

func NewStudentService(repo repository.StudentRepository, resolver PermissionResolver, auditor AuditRecorder, multiTenant bool) StudentService {
	return &studentService{repo: repo, resolver: resolver, auditor: auditor, multiTenant: multiTenant}
}

var validStudentStatuses = map[string]bool{
	model.StudentStatusEnrolled:  true,
	model.StudentStatusPaused:    true,
	model.StudentStatusGraduated: true,
	model.StudentStatusDropped:   true,
}

// --- CRUD ---

func (s *studentService) CreateStudent(ctx context.Context, p Principal, req CreateStudentRequest) (*StudentResponse, error) {
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			return nil, fmt.Errorf("%w: invalid email format", ErrInvalid)
		}
	}

	student := &model.Student{
		TenantID:     p.TenantID,
		CreatedByID:  p.UserID,
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        req.Phone,
		DateOfBirth:  req.DateOfBirth,
		GuardianName: req.GuardianName,
		Course:       req.Course,
		Status:       model.StudentStatusEnrolled,
		EnrolledAt:   req.EnrolledAt,
	}

	if err := s.repo.Create(ctx, student); err != nil {
		return nil, fmt.Errorf("failed to create student: %w", err)
	}

	if s.auditor != nil {
		uid := p.UserID
		s.auditor.Record(ctx, &uid, model.ActionCreateStudent, student.ID.String(), student.FullName, "")
	}

	return s.maskStudent(ctx, p, student)
}

func (s *studentService) GetStudent(ctx context.Context, p Principal, id string) (*StudentResponse, error) {
	student, err := s.fetchInScope(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return s.maskStudent(ctx, p, student)
}

func (s *studentService) ListStudents(ctx context.Context, p Principal, status, search string, page, limit int) ([]StudentResponse, int64, error) {
	scope, err := resolveScope(ctx, s.resolver, p, "students", s.multiTenant)
	if err != nil {
		return nil, 0, err
	}

	students, total, err := s.repo.List(ctx, scope, status, search, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list students: %w", err)
	}

	access, err := s.fieldAccess(ctx, p)
	if err != nil {
		return nil, 0, err
	}

	res := make([]StudentResponse, 0, len(students))
	for i := range students {
		res = append(res, *applyStudentMask(&students[i], access))
	}
	return res, total, nil
}

func (s *studentService) UpdateStudent(ctx context.Context, p Principal, id string, req UpdateStudentRequest) (*StudentResponse, error) {
	student, err := s.fetchInScope(ctx, p, id)
	if err != nil {
		return nil, err
	}

	access, err := s.fieldAccess(ctx, p)
	if err != nil {
		return nil, err
	}

	if req.Phone != nil && !access["phone"].Editable {
		return nil, fmt.Errorf("%w: field 'phone' is not editable", ErrForbidden)
	}
	if req.Email != nil && !access["email"].Editable {
		return nil, fmt.Errorf("%w: field 'email' is not editable", ErrForbidden)
	}
	if req.DateOfBirth != nil && !access["date_of_birth"].Editable {
		return nil, fmt.Errorf("%w: field 'date_of_birth' is not editable", ErrForbidden)
	}
	if req.GuardianName != nil && !access["guardian_name"].Editable {
		return nil, fmt.Errorf("%w: field 'guardian_name' is not editable", ErrForbidden)
	}

	if req.FullName != nil {
		student.FullName = *req.FullName
	}
	if req.Email != nil {
		if *req.Email != "" {
			if _, err := mail.ParseAddress(*req.Email); err != nil {
				return nil, fmt.Errorf("%w: invalid email format", ErrInvalid)
			}
		}
		student.Email = *req.Email
	}
	if req.Phone != nil {
		student.Phone = *req.Phone
	}
	if req.DateOfBirth != nil {
		student.DateOfBirth = req.DateOfBirth
	}
	if req.GuardianName != nil {
		student.GuardianName = *req.GuardianName
	}
	if req.Course != nil {
		student.Course = *req.Course
	}
	if req.Status != nil {
		if !validStudentStatuses[*req.Status] {
			return nil, fmt.Errorf("%w: invalid student status", ErrInvalid)
		}
		student.Status = *req.Status
	}

	if err := s.repo.Update(ctx, student); err != nil {
		return nil, fmt.Errorf("failed to update student: %w", err)
	}

	if s.auditor != nil {
		uid := p.UserID
		s.auditor.Record(ctx, &uid, model.ActionUpdateStudent, student.ID.String(), student.FullName, "")
	}

	return s.maskStudent(ctx, p, student)
}

func (s *studentService) DeleteStudent(ctx context.Context, p Principal, id string) error {
	student, err := s.fetchInScope(ctx, p, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, student.ID); err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}

	if s.auditor != nil {
		uid := p.UserID
		s.auditor.Record(ctx, &uid, model.ActionDeleteStudent, student.ID.String(), student.FullName, "")
	}

	return nil
}

// --- Helpers ---

func (s *studentService) fetchInScope(ctx context.Context, p Principal, id string) (*model.Student, error) {
	scope, err := resolveScope(ctx, s.resolver, p, "students", s.multiTenant)
	if err != nil {
		return nil, err
	}

	sid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid student id", ErrInvalid)
	}

	student, err := s.repo.FindByID(ctx, sid)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, fmt.Errorf("%w: student %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to fetch student: %w", err)
	}

	if !inScope(scope, student.CreatedByID, student.TenantID) {
		return nil, fmt.Errorf("%w: student is outside your data scope", ErrForbidden)
	}

	return student, nil
}

var studentGatedFields = []string{"phone", "email", "date_of_birth", "guardian_name"}

func (s *studentService) fieldAccess(ctx context.Context, p Principal) (map[string]model.FieldAccess, error) {
	access := make(map[string]model.FieldAccess, len(studentGatedFields))
	for _, f := range studentGatedFields {
		fa, err := s.resolver.FieldVisibility(ctx, p, "students", f)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve field access: %w", err)
		}
		access[f] = fa
	}
	return access, nil
}

func (s *studentService) maskStudent(ctx context.Context, p Principal, student *model.Student) (*StudentResponse, error) {
	access, err := s.fieldAccess(ctx, p)
	if err != nil {
		return nil, err
	}
	return applyStudentMask(student, access), nil
}

func applyStudentMask(st *model.Student, access map[string]model.FieldAccess) *StudentResponse {
	resp := &StudentResponse{
		ID:         st.ID,
		FullName:   st.FullName,
		Course:     st.Course,
		Status:     st.Status,
		EnrolledAt: st.EnrolledAt,
		CreatedAt:  st.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:  st.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}

	if access["email"].Visible {
		email := st.Email
		resp.Email = &email
	}
	if access["phone"].Visible {
		phone := st.Phone
		resp.Phone = &phone
	}
	if access["date_of_birth"].Visible {
		resp.DateOfBirth = st.DateOfBirth
	}
	if access["guardian_name"].Visible {
		guardian := st.GuardianName
		resp.GuardianName = &guardian
	}

	return resp
}
