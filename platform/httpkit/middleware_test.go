package httpkit

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"leadpipe_backend/platform/apperr"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type jwtConfig struct{ secret string }

func (c jwtConfig) GetJWTAccessSecret() string { return c.secret }

func signToken(t *testing.T, secret string, claims AccessClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newTestEngine(roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthRequired(jwtConfig{secret: "s3cret"}))
	if len(roles) > 0 {
		r.Use(RequireRole(roles...))
	}
	r.GET("/whoami", func(c *gin.Context) {
		id := MustGetIdentity(c)
		if id == nil {
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"user": id.UserID().String(),
			"org":  id.OrganizationID().String(),
			"role": id.Role(),
		})
	})
	return r
}

func doRequest(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func validClaims(userID, orgID uuid.UUID, role string) AccessClaims {
	return AccessClaims{
		Org:  orgID.String(),
		Role: role,
		Type: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestAuthRequiredSetsIdentity(t *testing.T) {
	userID, orgID := uuid.New(), uuid.New()
	token := signToken(t, "s3cret", validClaims(userID, orgID, RoleSales))

	w := doRequest(newTestEngine(), token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["user"] != userID.String() || body["org"] != orgID.String() || body["role"] != RoleSales {
		t.Fatalf("unexpected identity %v", body)
	}
}

func TestAuthRequiredRejectsMissingAndForeignTokens(t *testing.T) {
	r := newTestEngine()

	if w := doRequest(r, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	foreign := signToken(t, "other", validClaims(uuid.New(), uuid.New(), RoleAdmin))
	if w := doRequest(r, foreign); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong secret, got %d", w.Code)
	}

	refresh := validClaims(uuid.New(), uuid.New(), RoleAdmin)
	refresh.Type = "refresh"
	if w := doRequest(r, signToken(t, "s3cret", refresh)); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-access token, got %d", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	r := newTestEngine(RoleAdmin, RoleManager)

	sales := signToken(t, "s3cret", validClaims(uuid.New(), uuid.New(), RoleSales))
	if w := doRequest(r, sales); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for sales, got %d", w.Code)
	}

	manager := signToken(t, "s3cret", validClaims(uuid.New(), uuid.New(), RoleManager))
	if w := doRequest(r, manager); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for manager, got %d", w.Code)
	}
}

func TestHandleErrorMapsKinds(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apperr.InvalidStage("target stage does not exist"), http.StatusBadRequest, apperr.CodeInvalidStage},
		{apperr.NotFound("lead not found"), http.StatusNotFound, apperr.CodeNotFound},
		{errors.New("socket closed"), http.StatusInternalServerError, apperr.CodeInternal},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		if !HandleError(c, tc.err) {
			t.Fatal("expected error to be handled")
		}
		if w.Code != tc.status {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.status, w.Code)
		}
		var body ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Code != tc.code {
			t.Errorf("%v: expected code %s, got %s", tc.err, tc.code, body.Code)
		}
	}
}
