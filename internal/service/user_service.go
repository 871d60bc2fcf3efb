package service

import (
	"context"
	"strings"

	"feedhub/internal/models"
	"feedhub/internal/repository"
	"feedhub/internal/validation"
)

type UserService struct {
	userRepo    repository.UserRepository
	credentials *CredentialService
}

type SignupInput struct {
	Email    string
	Name     string
	Password string
}

// AuthResult is returned by a successful login.
type AuthResult struct {
	Token  string `json:"token"`
	UserID uint   `json:"userId"`
}

func NewUserService(userRepo repository.UserRepository, credentials *CredentialService) *UserService {
	return &UserService{userRepo: userRepo, credentials: credentials}
}

// Signup validates the input, hashes the password and creates the user.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)

	var fields []models.FieldError
	if err := validation.ValidateEmail(in.Email); err != nil {
		fields = append(fields, models.FieldError{Field: "email", Message: "Email is invalid"})
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		fields = append(fields, models.FieldError{Field: "password", Message: "Password too short!"})
	}
	if in.Name == "" {
		fields = append(fields, models.FieldError{Field: "name", Message: "Name is required"})
	}
	if len(fields) > 0 {
		return nil, models.NewValidationError("Validation failed.", fields...)
	}

	hashed, err := s.credentials.Hash(in.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Email:    in.Email,
		Name:     in.Name,
		Password: hashed,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks the credentials and issues a session token.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if models.IsKind(err, models.KindNotFound) {
			return nil, models.NewUnauthorizedError("A user with this email could not be found.")
		}
		return nil, err
	}
	if !s.credentials.Verify(password, user.Password) {
		return nil, models.NewUnauthorizedError("Wrong password!")
	}

	token, err := s.credentials.IssueToken(user.ID, user.Email)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{Token: token, UserID: user.ID}, nil
}

// GetUser returns the authenticated user with their post references.
func (s *UserService) GetUser(ctx context.Context, actor *models.Identity) (*models.User, error) {
	if err := RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, actor.UserID)
}

// GetProfile returns any user by id. Callers gate access themselves.
func (s *UserService) GetProfile(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// GetStatus returns the authenticated user's status line.
func (s *UserService) GetStatus(ctx context.Context, actor *models.Identity) (string, error) {
	user, err := s.GetUser(ctx, actor)
	if err != nil {
		return "", err
	}
	return user.Status, nil
}

// UpdateStatus replaces the authenticated user's status line.
func (s *UserService) UpdateStatus(ctx context.Context, actor *models.Identity, status string) (*models.User, error) {
	if err := RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, models.NewValidationError("Validation failed, entered data is incorrect.",
			models.FieldError{Field: "status", Message: "Status must not be empty"})
	}
	return s.userRepo.UpdateStatus(ctx, actor.UserID, status)
}
