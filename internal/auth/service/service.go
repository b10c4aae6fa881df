package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"leadpipe_backend/internal/auth/password"
	"leadpipe_backend/internal/auth/repository"
	"leadpipe_backend/internal/auth/token"
	"leadpipe_backend/internal/auth/transport"
	"leadpipe_backend/internal/events"
	"leadpipe_backend/platform/apperr"
	"leadpipe_backend/platform/httpkit"
	"leadpipe_backend/platform/logger"

	"github.com/google/uuid"
)

const msgInvalidCredentials = "invalid credentials"

type Service struct {
	repo   repository.UserStore
	issuer *token.Issuer
	bus    events.Bus
	log    *logger.Logger
	now    func() time.Time
}

func New(repo repository.UserStore, issuer *token.Issuer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		issuer: issuer,
		bus:    bus,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a user in the given organization and signs them in.
func (s *Service) Register(ctx context.Context, req transport.RegisterRequest) (transport.AuthResponse, error) {
	orgID, err := uuid.Parse(req.OrganizationID)
	if err != nil {
		return transport.AuthResponse{}, apperr.Validation("organization_id must be a UUID")
	}
	email := normalizeEmail(req.Email)

	role := req.Role
	if role == "" {
		role = httpkit.RoleUser
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return transport.AuthResponse{}, apperr.Internal("failed to hash password", err)
	}

	now := s.now().Truncate(time.Microsecond)
	user := repository.User{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Email:          email,
		PasswordHash:   hash,
		FirstName:      trimmed(req.FirstName),
		LastName:       trimmed(req.LastName),
		Role:           role,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	reserved, err := s.repo.ReserveEmail(ctx, orgID, email, user.ID)
	if err != nil {
		return transport.AuthResponse{}, apperr.Internal("failed to register user", err)
	}
	if !reserved {
		s.log.AuthEvent("register", email, false, "email exists")
		return transport.AuthResponse{}, apperr.Conflict("email already registered for this organization").WithCode(apperr.CodeEmailExists)
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if releaseErr := s.repo.ReleaseEmail(ctx, orgID, email); releaseErr != nil {
			s.log.DatabaseError("release_email", releaseErr)
		}
		return transport.AuthResponse{}, apperr.Internal("failed to register user", err)
	}

	s.log.AuthEvent("register", email, true, "")
	s.bus.Publish(ctx, events.UserRegistered{
		BaseEvent:      events.NewBaseEvent(),
		OrganizationID: orgID,
		UserID:         user.ID,
		Email:          email,
		Role:           role,
	})

	return s.authResponse(user)
}

// Login checks the password of an organization's user and issues a token.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req transport.LoginRequest) (transport.AuthResponse, error) {
	orgID, err := uuid.Parse(req.OrganizationID)
	if err != nil {
		return transport.AuthResponse{}, invalidCredentials()
	}
	email := normalizeEmail(req.Email)

	user, err := s.repo.GetUserByEmail(ctx, orgID, email)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.AuthEvent("login", email, false, "unknown email")
		return transport.AuthResponse{}, invalidCredentials()
	}
	if err != nil {
		return transport.AuthResponse{}, apperr.Internal("failed to load user", err)
	}

	if err := password.Compare(user.PasswordHash, req.Password); err != nil {
		s.log.AuthEvent("login", email, false, "wrong password")
		return transport.AuthResponse{}, invalidCredentials()
	}

	s.log.AuthEvent("login", email, true, "")
	return s.authResponse(user)
}

func (s *Service) authResponse(user repository.User) (transport.AuthResponse, error) {
	signed, expiresAt, err := s.issuer.Sign(user.ID, user.OrganizationID, user.Role)
	if err != nil {
		return transport.AuthResponse{}, apperr.Internal("failed to sign token", err)
	}
	return transport.AuthResponse{
		Token:     signed,
		ExpiresAt: expiresAt,
		User: transport.UserResponse{
			ID:             user.ID,
			OrganizationID: user.OrganizationID,
			Email:          user.Email,
			FirstName:      user.FirstName,
			LastName:       user.LastName,
			Role:           user.Role,
			CreatedAt:      user.CreatedAt,
			UpdatedAt:      user.UpdatedAt,
		},
	}, nil
}

func invalidCredentials() error {
	return apperr.Unauthorized(msgInvalidCredentials).WithCode(apperr.CodeInvalidCredentials)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
