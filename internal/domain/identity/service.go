package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/lifeline/lifeline/internal/platform/apperr"
	"github.com/lifeline/lifeline/internal/platform/auth"
)

type Service struct {
	repo   Repository
	tokens *auth.TokenIssuer
}

func NewService(repo Repository, tokens *auth.TokenIssuer) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// RegisterInput is the register request payload.
type RegisterInput struct {
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Password       string     `json:"password"`
	Role           string     `json:"role"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
}

// Register creates an ACTIVE user. Role defaults to PATIENT when absent.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Name == "" {
		return nil, apperr.Validation("name is required")
	}
	if in.Email == "" {
		return nil, apperr.Validation("email is required")
	}
	if len(in.Password) < 8 {
		return nil, apperr.Validation("password must be at least 8 characters")
	}
	if in.Role == "" {
		in.Role = RolePatient
	}
	if !ValidRole(in.Role) {
		return nil, apperr.Validation("unknown role: %s", in.Role)
	}

	if existing, err := s.repo.GetByEmail(ctx, in.Email); err == nil && existing != nil {
		return nil, apperr.Validation("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	u := &User{
		Name:           in.Name,
		Email:          in.Email,
		PasswordHash:   string(hash),
		Role:           in.Role,
		Status:         StatusActive,
		OrganizationID: in.OrganizationID,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, apperr.Internal(err)
	}
	return u, nil
}

// Login verifies credentials and issues an access/refresh token pair.
// Inactive users cannot log in.
func (s *Service) Login(ctx context.Context, email, password string) (*User, *TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, apperr.Unauthorized("invalid credentials")
	}
	if !u.IsActive() {
		return nil, nil, apperr.Unauthorized("account is inactive")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, nil, apperr.Unauthorized("invalid credentials")
	}

	pair, err := s.issueTokens(u)
	if err != nil {
		return nil, nil, err
	}
	return u, pair, nil
}

// OAuthInput is the social-login payload. Provider and the provider's
// verified email identify the account.
type OAuthInput struct {
	Provider string `json:"provider"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

// OAuthLogin signs a user in through an external identity provider. A first
// login provisions an ACTIVE patient account; later logins reuse it. OAuth
// accounts get a random throwaway password so they cannot be used with the
// password login until the user sets one.
func (s *Service) OAuthLogin(ctx context.Context, in OAuthInput) (*User, *TokenPair, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Provider == "" {
		return nil, nil, apperr.Validation("provider is required")
	}
	if in.Email == "" {
		return nil, nil, apperr.Validation("email is required")
	}

	u, err := s.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		name := in.Name
		if name == "" {
			name = in.Email
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
		if err != nil {
			return nil, nil, apperr.Internal(err)
		}
		u = &User{
			Name:         name,
			Email:        in.Email,
			PasswordHash: string(hash),
			Role:         RolePatient,
			Status:       StatusActive,
		}
		if err := s.repo.Create(ctx, u); err != nil {
			return nil, nil, apperr.Internal(err)
		}
	}
	if !u.IsActive() {
		return nil, nil, apperr.Unauthorized("account is inactive")
	}

	pair, err := s.issueTokens(u)
	if err != nil {
		return nil, nil, err
	}
	return u, pair, nil
}

// Refresh exchanges a valid refresh token for a fresh pair. The user must
// still be active.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.Parse(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return nil, apperr.Unauthorized("invalid refresh token")
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, apperr.Unauthorized("invalid refresh token")
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Unauthorized("invalid refresh token")
	}
	if !u.IsActive() {
		return nil, apperr.Unauthorized("account is inactive")
	}
	return s.issueTokens(u)
}

// VerifyToken resolves an access token to its user.
func (s *Service) VerifyToken(ctx context.Context, accessToken string) (*User, error) {
	claims, err := s.tokens.Parse(accessToken, auth.TokenTypeAccess)
	if err != nil {
		return nil, apperr.Unauthorized("invalid token")
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, apperr.Unauthorized("invalid token")
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Unauthorized("invalid token")
	}
	if !u.IsActive() {
		return nil, apperr.Unauthorized("account is inactive")
	}
	return u, nil
}

func (s *Service) issueTokens(u *User) (*TokenPair, error) {
	orgID := ""
	if u.OrganizationID != nil {
		orgID = u.OrganizationID.String()
	}
	access, err := s.tokens.IssueAccess(u.ID.String(), u.Role, orgID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	refresh, err := s.tokens.IssueRefresh(u.ID.String(), u.Role, orgID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("user")
	}
	return u, nil
}

// UpdateProfileInput holds the mutable profile fields.
type UpdateProfileInput struct {
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
}

func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, in UpdateProfileInput) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("user")
	}
	if in.Name != "" {
		u.Name = in.Name
	}
	if in.Email != "" {
		u.Email = strings.TrimSpace(strings.ToLower(in.Email))
	}
	if in.OrganizationID != nil {
		u.OrganizationID = in.OrganizationID
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, apperr.Internal(err)
	}
	return u, nil
}

// Deactivate soft-deletes the user by flipping status to INACTIVE.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return apperr.NotFound("user")
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusInactive); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// ListActiveByOrganization feeds the notification fan-out to hospital staff.
func (s *Service) ListActiveByOrganization(ctx context.Context, orgID uuid.UUID) ([]*User, error) {
	return s.repo.ListActiveByOrganization(ctx, orgID)
}

// ListActiveByRole feeds the notification fan-out to emergency center staff.
func (s *Service) ListActiveByRole(ctx context.Context, role string) ([]*User, error) {
	return s.repo.ListActiveByRole(ctx, role)
}
