package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"dress-rental/internal/apperr"
	"dress-rental/internal/auth"
	"dress-rental/internal/models"
	"dress-rental/internal/repositories"
	"dress-rental/internal/timeutil"
)

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id int) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, u *models.User) error
	UpdatePassword(ctx context.Context, id int, hash string) error
	SetActive(ctx context.Context, id int, active bool) error
	UpdateLastLogin(ctx context.Context, id int, at time.Time) error
	Delete(ctx context.Context, id int) error
	CountActiveAdministrators(ctx context.Context) (int, error)
}

type UserService struct {
	Repo       UserStore
	JWTManager *auth.JWTManager
	Activity   ActivityRecorder
}

func NewUserService(repo UserStore, jwtManager *auth.JWTManager, activity ActivityRecorder) *UserService {
	if activity == nil {
		activity = nopRecorder{}
	}
	return &UserService{Repo: repo, JWTManager: jwtManager, Activity: activity}
}

var roles = []string{models.RoleAdministrator, models.RoleStaff}

func errInvalidCredentials() error {
	return apperr.Validation(apperr.CodeInvalidCredentials, "invalid username or password")
}

func userNotFound(id int) error {
	return apperr.NotFound(apperr.CodeUserNotFound, fmt.Sprintf("user %d not found", id))
}

// Login checks the password, and the TOTP code once 2FA is on, then issues a token
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, errInvalidCredentials()
	}

	u, err := s.Repo.GetByUsername(ctx, username)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, errInvalidCredentials()
	}
	if err != nil {
		return nil, apperr.Persistence("get user", err)
	}
	if !auth.VerifyPassword(u.PasswordHash, req.Password) {
		log.Printf("[Auth] failed login for %q", username)
		return nil, errInvalidCredentials()
	}
	if !u.IsActive {
		return nil, apperr.Validation(apperr.CodeAccountInactive, "account is deactivated")
	}
	if u.TOTPEnabled {
		if strings.TrimSpace(req.TOTPCode) == "" {
			return nil, apperr.Validation(apperr.CodeTOTPRequired, "authentication code required")
		}
		if !ValidTOTP(u.TOTPSecret, req.TOTPCode) {
			return nil, apperr.Validation(apperr.CodeInvalidTOTP, "invalid authentication code")
		}
	}

	token, err := s.JWTManager.GenerateToken(u)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	now := timeutil.Now()
	if err := s.Repo.UpdateLastLogin(ctx, u.ID, now); err != nil {
		log.Printf("[Auth] update last login for user %d: %v", u.ID, err)
	}
	u.LastLogin = &now

	ctx = auth.WithSession(ctx, &auth.Session{UserID: u.ID, Username: u.Username, Role: u.Role})
	s.Activity.Record(ctx, models.ActionLogin, "users", u.ID, "")
	log.Printf("[Auth] %s logged in", u.Username)
	return &models.AuthResponse{Token: token, User: u}, nil
}

// Logout only records the event; tokens are stateless and expire on their own
func (s *UserService) Logout(ctx context.Context) {
	if sess := auth.SessionFrom(ctx); sess != nil {
		s.Activity.Record(ctx, models.ActionLogout, "users", sess.UserID, "")
	}
}

func (s *UserService) ChangePassword(ctx context.Context, userID int, req *models.ChangePasswordRequest) error {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.VerifyPassword(u.PasswordHash, req.OldPassword) {
		return apperr.Validation(apperr.CodeInvalidCredentials, "current password is incorrect")
	}
	if err := ValidatePassword(req.NewPassword); err != nil {
		return err
	}
	if err := s.setPassword(ctx, userID, req.NewPassword); err != nil {
		return err
	}
	s.Activity.Record(ctx, models.ActionPasswordChange, "users", userID, "")
	return nil
}

func (s *UserService) setPassword(ctx context.Context, userID int, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Repo.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return userNotFound(userID)
		}
		return apperr.Persistence("update password", err)
	}
	return nil
}

func validRole(role string) (string, error) {
	if role == "" {
		return models.RoleStaff, nil
	}
	if !slices.Contains(roles, role) {
		return "", invalid("role must be %s or %s", models.RoleAdministrator, models.RoleStaff)
	}
	return role, nil
}

func validateProfile(fullName, email, phone string) error {
	if err := requireText("full name", fullName, 100); err != nil {
		return err
	}
	if email != "" {
		if err := ValidateEmail(email); err != nil {
			return err
		}
	}
	if phone != "" {
		if err := ValidatePhone(phone); err != nil {
			return err
		}
	}
	return nil
}

func (s *UserService) CreateUser(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	if err := requireText("username", username, 50); err != nil {
		return nil, err
	}
	role, err := validRole(req.Role)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Username: username,
		Role:     role,
		FullName: strings.TrimSpace(req.FullName),
		Email:    strings.TrimSpace(req.Email),
		Phone:    strings.TrimSpace(req.Phone),
		IsActive: true,
	}
	if err := validateProfile(u.FullName, u.Email, u.Phone); err != nil {
		return nil, err
	}
	if err := ValidatePassword(req.Password); err != nil {
		return nil, err
	}
	u.PasswordHash, err = auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repositories.ErrDuplicateUsername) {
			return nil, apperr.Validation(apperr.CodeDuplicateUsername, fmt.Sprintf("username %q is taken", username))
		}
		return nil, apperr.Persistence("create user", err)
	}
	log.Printf("[Auth] created %s user %s", u.Role, u.Username)
	s.Activity.Record(ctx, models.ActionCreate, "users", u.ID, u.Username+" ("+u.Role+")")
	return u, nil
}

func (s *UserService) GetUser(ctx context.Context, id int) (*models.User, error) {
	u, err := s.Repo.Get(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, userNotFound(id)
	}
	return u, apperr.Persistence("get user", err)
}

func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.Repo.List(ctx)
	return users, apperr.Persistence("list users", err)
}

// UpdateUser changes profile and role, and the password when one is given
func (s *UserService) UpdateUser(ctx context.Context, id int, req *models.UpdateUserRequest) (*models.User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	role, err := validRole(req.Role)
	if err != nil {
		return nil, err
	}
	if req.Role == "" {
		role = u.Role
	}
	if u.Role == models.RoleAdministrator && role != models.RoleAdministrator && u.IsActive {
		if err := s.requireAnotherAdmin(ctx); err != nil {
			return nil, err
		}
	}

	u.FullName = strings.TrimSpace(req.FullName)
	u.Email = strings.TrimSpace(req.Email)
	u.Phone = strings.TrimSpace(req.Phone)
	u.Role = role
	if err := validateProfile(u.FullName, u.Email, u.Phone); err != nil {
		return nil, err
	}
	if req.Password != "" {
		if err := ValidatePassword(req.Password); err != nil {
			return nil, err
		}
	}

	if err := s.Repo.Update(ctx, u); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, userNotFound(id)
		}
		return nil, apperr.Persistence("update user", err)
	}
	if req.Password != "" {
		if err := s.setPassword(ctx, id, req.Password); err != nil {
			return nil, err
		}
	}
	s.Activity.Record(ctx, models.ActionUpdate, "users", id, u.Username)
	return u, nil
}

// ToggleActive flips the account state. The last active administrator
// cannot be deactivated.
func (s *UserService) ToggleActive(ctx context.Context, id int) (*models.User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.IsActive && u.Role == models.RoleAdministrator {
		if err := s.requireAnotherAdmin(ctx); err != nil {
			return nil, err
		}
	}
	if err := s.Repo.SetActive(ctx, id, !u.IsActive); err != nil {
		return nil, apperr.Persistence("set user active", err)
	}
	u.IsActive = !u.IsActive
	s.Activity.Record(ctx, models.ActionUpdate, "users", id, fmt.Sprintf("active=%t", u.IsActive))
	return u, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id int) error {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if sess := auth.SessionFrom(ctx); sess != nil && sess.UserID == id {
		return invalid("you cannot delete your own account")
	}
	if u.IsActive && u.Role == models.RoleAdministrator {
		if err := s.requireAnotherAdmin(ctx); err != nil {
			return err
		}
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return userNotFound(id)
		}
		return apperr.Persistence("delete user", err)
	}
	log.Printf("[Auth] deleted user %s", u.Username)
	s.Activity.Record(ctx, models.ActionDelete, "users", id, u.Username)
	return nil
}

func (s *UserService) requireAnotherAdmin(ctx context.Context) error {
	n, err := s.Repo.CountActiveAdministrators(ctx)
	if err != nil {
		return apperr.Persistence("count administrators", err)
	}
	if n <= 1 {
		return invalid("at least one active administrator is required")
	}
	return nil
}

// EnsureBootstrapAdmin creates the configured administrator on an empty
// install. It does nothing when an active administrator already exists or
// no password is configured.
func (s *UserService) EnsureBootstrapAdmin(ctx context.Context, username, password string) error {
	n, err := s.Repo.CountActiveAdministrators(ctx)
	if err != nil {
		return fmt.Errorf("count administrators: %w", err)
	}
	if n > 0 {
		return nil
	}
	if password == "" {
		log.Printf("[Auth] no active administrator and bootstrap.admin_password is empty")
		return nil
	}
	_, err = s.CreateUser(ctx, &models.CreateUserRequest{
		Username: username,
		Password: password,
		Role:     models.RoleAdministrator,
		FullName: "Administrator",
	})
	return err
}
