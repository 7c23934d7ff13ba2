package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"os"
	"regexp"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DTOs for Request validation
type CreateUserRequest struct {
	Username string  `json:"username" binding:"required"`
	Email    string  `json:"email" binding:"required,email"`
	Phone    string  `json:"phone"`
	Password string  `json:"password" binding:"required,min=6"`
	RoleID   string  `json:"role_id" binding:"required"`
	TenantID *string `json:"tenant_id"`
}

type UpdateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email" binding:"omitempty,email"`
	Phone    string `json:"phone"`
	RoleID   string `json:"role_id"`
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// DTO for returning User without exposing sensitive data (e.g. password)
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	TenantID  *string   `json:"tenant_id"`
	RoleID    *string   `json:"role_id"`
	RoleCode  string    `json:"role_code"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	IsActive  bool      `json:"is_active"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

// UserService defines the interface for business logic related to User
type UserService interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error)
	RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error)
	GetUserByID(ctx context.Context, id string) (*UserResponse, error)
	ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
	UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*UserResponse, error)
	DeleteUser(ctx context.Context, id string) error
	SeedAdmin(ctx context.Context) error
}

type userService struct {
	repo     repository.UserRepository
	roleRepo repository.RoleRepository
	auditor  AuditRecorder
}

// NewUserService returns a new instance of UserService
func NewUserService(repo repository.UserRepository, roleRepo repository.RoleRepository, auditor AuditRecorder) UserService {
	return &userService{repo: repo, roleRepo: roleRepo, auditor: auditor}
}

// Helper: parse model to standard json API response
func mapToResponse(user *model.User) *UserResponse {
	resp := &UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Phone:     user.Phone,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: user.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if user.TenantID != nil {
		s := user.TenantID.String()
		resp.TenantID = &s
	}
	if user.RoleID != nil {
		s := user.RoleID.String()
		resp.RoleID = &s
	}
	if user.Role != nil {
		resp.RoleCode = user.Role.Code
	}
	return resp
}

func (s *userService) CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	// Basic Email format validation fallback
	emailRegex := regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,4}$`)
	if !emailRegex.MatchString(req.Email) {
		return nil, errors.New("invalid email format")
	}

	roleID, err := uuid.Parse(req.RoleID)
	if err != nil {
		return nil, errors.New("invalid role id")
	}
	role, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		return nil, errors.New("role not found")
	}

	// Double check username/email uniqueness via repo directly
	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, errors.New("username already exists")
	}

	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, errors.New("email already exists")
	}

	// Hash password automatically
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	user := &model.User{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: string(hashedPassword),
		RoleID:   &role.ID,
		IsActive: true,
	}

	if req.TenantID != nil && *req.TenantID != "" {
		tid, parseErr := uuid.Parse(*req.TenantID)
		if parseErr != nil {
			return nil, errors.New("invalid tenant id")
		}
		user.TenantID = &tid
	} else if role.TenantID != nil {
		// tenant-scoped role implies the user's tenant
		user.TenantID = role.TenantID
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	if s.auditor != nil {
		s.auditor.Record(ctx, nil, model.ActionCreateUser, user.ID.String(), user.Username, "")
	}

	user.Role = role
	return mapToResponse(user), nil
}

// GetJWTSecret returns the token signing key shared by token issuance, the
// auth middleware and the websocket upgrade. Release deployments must set
// JWT_SECRET; refusing to start beats signing production tokens with the
// development fallback.
func GetJWTSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			panic("FATAL: JWT_SECRET environment variable is required in production mode")
		}
		secret = "default_super_secret_key" // Development fallback only — DO NOT use in production
	}
	return []byte(secret)
}

// issueTokens builds the access token claims the middleware reads back into
// a Principal, plus a persisted opaque refresh token.
func (s *userService) issueTokens(ctx context.Context, user *model.User) (*TokenResponse, error) {
	claims := jwt.MapClaims{
		"sub": user.ID.String(),
		"exp": time.Now().Add(24 * time.Hour).Unix(),
	}
	if user.Role != nil {
		claims["role"] = user.Role.Code
	}
	if user.RoleID != nil {
		claims["role_id"] = user.RoleID.String()
	}
	if user.TenantID != nil {
		claims["tenant_id"] = user.TenantID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(GetJWTSecret())
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, errors.New("failed to generate refresh token")
	}
	refresh := hex.EncodeToString(raw)

	rt := &model.RefreshToken{
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}
	if err := s.repo.SaveRefreshToken(ctx, rt); err != nil {
		return nil, errors.New("failed to persist refresh token")
	}

	return &TokenResponse{Token: tokenString, RefreshToken: refresh}, nil
}

func (s *userService) Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error) {
	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, errors.New("invalid email or password")
	}

	if !user.IsActive {
		return nil, errors.New("account is disabled")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, errors.New("invalid email or password")
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	if s.auditor != nil {
		uid := user.ID
		s.auditor.Record(ctx, &uid, model.ActionLogin, user.ID.String(), user.Username, "")
	}

	return tokens, nil
}

func (s *userService) RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error) {
	rt, err := s.repo.GetRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, errors.New("invalid refresh token")
	}

	if time.Now().After(rt.ExpiresAt) {
		_ = s.repo.DeleteRefreshToken(ctx, rt.Token)
		return nil, errors.New("refresh token expired")
	}

	// Rotate: the old token is single-use.
	if err := s.repo.DeleteRefreshToken(ctx, rt.Token); err != nil {
		return nil, errors.New("failed to rotate refresh token")
	}

	user, err := s.repo.GetByID(ctx, rt.UserID.String())
	if err != nil {
		return nil, errors.New("user not found")
	}

	return s.issueTokens(ctx, user)
}

func (s *userService) GetUserByID(ctx context.Context, id string) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.New("user not found")
	}
	return mapToResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}

	users, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	var responses []UserResponse
	for _, u := range users {
		responses = append(responses, *mapToResponse(&u))
	}

	return responses, total, nil
}

func (s *userService) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.New("user not found")
	}

	if req.RoleID != "" {
		roleID, parseErr := uuid.Parse(req.RoleID)
		if parseErr != nil {
			return nil, errors.New("invalid role id")
		}
		role, roleErr := s.roleRepo.FindByID(ctx, roleID)
		if roleErr != nil {
			return nil, errors.New("role not found")
		}
		user.RoleID = &role.ID
		user.Role = role
	}

	if req.Username != "" && req.Username != user.Username {
		if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
			return nil, errors.New("username already exists")
		}
		user.Username = req.Username
	}

	if req.Email != "" && req.Email != user.Email {
		if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
			return nil, errors.New("email already exists")
		}
		user.Email = req.Email
	}

	if req.Phone != "" {
		user.Phone = req.Phone
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	if s.auditor != nil {
		s.auditor.Record(ctx, nil, model.ActionUpdateUser, user.ID.String(), user.Username, "")
	}

	return mapToResponse(user), nil
}

func (s *userService) DeleteUser(ctx context.Context, id string) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return errors.New("user not found")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if s.auditor != nil {
		s.auditor.Record(ctx, nil, model.ActionDeleteUser, id, user.Username, "")
	}

	return nil
}

// SeedAdmin guarantees a first login exists on a fresh database. It is a
// no-op once the admin account is present. The password comes from
// ADMIN_PASSWORD; the fallback is for local development only.
func (s *userService) SeedAdmin(ctx context.Context) error {
	if _, err := s.repo.GetByUsername(ctx, "admin"); err == nil {
		return nil
	}

	role, err := s.roleRepo.FindByCode(ctx, "admin")
	if err != nil {
		return errors.New("admin role not seeded")
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.New("failed to hash admin password")
	}

	user := &model.User{
		Username: "admin",
		Email:    "admin@localhost",
		Password: string(hashedPassword),
		RoleID:   &role.ID,
		IsActive: true,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return err
	}

	if s.auditor != nil {
		s.auditor.Record(ctx, nil, model.ActionCreateUser, user.ID.String(), user.Username, "seeded")
	}

	return nil
}
