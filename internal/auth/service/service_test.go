package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"leadpipe_backend/internal/auth/repository"
	"leadpipe_backend/internal/auth/token"
	"leadpipe_backend/internal/auth/transport"
	"leadpipe_backend/internal/events"
	"leadpipe_backend/platform/apperr"
	"leadpipe_backend/platform/httpkit"
	"leadpipe_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

type memUsers struct {
	mu        sync.Mutex
	emails    map[string]uuid.UUID
	users     map[uuid.UUID]repository.User
	createErr error
}

func newMemUsers() *memUsers {
	return &memUsers{emails: map[string]uuid.UUID{}, users: map[uuid.UUID]repository.User{}}
}

func emailKey(org uuid.UUID, email string) string { return org.String() + "|" + email }

func (m *memUsers) ReserveEmail(_ context.Context, org uuid.UUID, email string, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.emails[emailKey(org, email)]; ok {
		return false, nil
	}
	m.emails[emailKey(org, email)] = id
	return true, nil
}

func (m *memUsers) ReleaseEmail(_ context.Context, org uuid.UUID, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.emails, emailKey(org, email))
	return nil
}

func (m *memUsers) CreateUser(_ context.Context, u repository.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.users[u.ID] = u
	return nil
}

func (m *memUsers) GetUserByEmail(_ context.Context, org uuid.UUID, email string) (repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.emails[emailKey(org, email)]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	u, ok := m.users[id]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

type registered struct {
	mu  sync.Mutex
	got []events.UserRegistered
}

func (r *registered) Handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, e.(events.UserRegistered))
	return nil
}

func newTestService(t *testing.T) (*Service, *memUsers, *events.InMemoryBus, *registered) {
	t.Helper()
	store := newMemUsers()
	bus := events.NewInMemoryBus(logger.Discard())
	seen := &registered{}
	bus.Subscribe(events.UserRegistered{}.EventName(), seen)
	svc := New(store, token.NewIssuer(testSecret, time.Hour), bus, logger.Discard())
	return svc, store, bus, seen
}

func TestRegisterThenLogin(t *testing.T) {
	svc, _, bus, seen := newTestService(t)
	org := uuid.New()

	reg, err := svc.Register(context.Background(), transport.RegisterRequest{
		OrganizationID: org.String(),
		Email:          "  Ada@Example.com ",
		Password:       "correct horse",
		Role:           httpkit.RoleSales,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	bus.Wait()

	if reg.User.Email != "ada@example.com" || reg.User.Role != httpkit.RoleSales {
		t.Fatalf("unexpected user %+v", reg.User)
	}
	if len(seen.got) != 1 || seen.got[0].UserID != reg.User.ID {
		t.Fatalf("expected one UserRegistered event, got %+v", seen.got)
	}

	login, err := svc.Login(context.Background(), transport.LoginRequest{
		OrganizationID: org.String(),
		Email:          "ada@example.com",
		Password:       "correct horse",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.User.ID != reg.User.ID {
		t.Fatalf("expected same user, got %s vs %s", login.User.ID, reg.User.ID)
	}
}

func TestRegisterDefaultsRoleToUser(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	reg, err := svc.Register(context.Background(), transport.RegisterRequest{
		OrganizationID: uuid.NewString(),
		Email:          "bob@example.com",
		Password:       "longenough",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.User.Role != httpkit.RoleUser {
		t.Fatalf("expected role user, got %q", reg.User.Role)
	}
}

func TestRegisterDuplicateEmailIsScopedPerOrganization(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	org := uuid.New()
	req := transport.RegisterRequest{OrganizationID: org.String(), Email: "dup@example.com", Password: "longenough"}

	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := svc.Register(context.Background(), req)
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.ResponseCode() != apperr.CodeEmailExists || appErr.HTTPStatus() != http.StatusConflict {
		t.Fatalf("expected 409 EMAIL_EXISTS, got %v", err)
	}

	req.OrganizationID = uuid.NewString()
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("expected same email in another organization to succeed, got %v", err)
	}
}

func TestRegisterReleasesEmailWhenUserWriteFails(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	store.createErr = errors.New("primary down")
	req := transport.RegisterRequest{OrganizationID: uuid.NewString(), Email: "x@example.com", Password: "longenough"}

	if _, err := svc.Register(context.Background(), req); !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}

	store.createErr = nil
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("expected retry to succeed after release, got %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	org := uuid.New()
	if _, err := svc.Register(context.Background(), transport.RegisterRequest{
		OrganizationID: org.String(), Email: "eve@example.com", Password: "longenough",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	cases := []transport.LoginRequest{
		{OrganizationID: org.String(), Email: "eve@example.com", Password: "wrongpassword"},
		{OrganizationID: org.String(), Email: "nobody@example.com", Password: "longenough"},
		{OrganizationID: uuid.NewString(), Email: "eve@example.com", Password: "longenough"},
	}
	for _, req := range cases {
		_, err := svc.Login(context.Background(), req)
		var appErr *apperr.Error
		if !errors.As(err, &appErr) || appErr.ResponseCode() != apperr.CodeInvalidCredentials || appErr.HTTPStatus() != http.StatusUnauthorized {
			t.Errorf("%s: expected 401 INVALID_CREDENTIALS, got %v", req.Email, err)
		}
	}
}

type jwtConfig struct{}

func (jwtConfig) GetJWTAccessSecret() string { return testSecret }

func TestIssuedTokenPassesAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _, _, _ := newTestService(t)
	org := uuid.New()

	reg, err := svc.Register(context.Background(), transport.RegisterRequest{
		OrganizationID: org.String(), Email: "mgr@example.com", Password: "longenough", Role: httpkit.RoleManager,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	engine := gin.New()
	engine.GET("/me", httpkit.AuthRequired(jwtConfig{}), func(c *gin.Context) {
		id := httpkit.MustGetIdentity(c)
		if id == nil {
			return
		}
		c.String(http.StatusOK, strings.Join([]string{id.OrganizationID().String(), id.UserID().String(), id.Role()}, "|"))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+reg.Token)
	engine.ServeHTTP(w, req)

	want := strings.Join([]string{org.String(), reg.User.ID.String(), httpkit.RoleManager}, "|")
	if w.Code != http.StatusOK || w.Body.String() != want {
		t.Fatalf("expected 200 %q, got %d %q", want, w.Code, w.Body.String())
	}
}
