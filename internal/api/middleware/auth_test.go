package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/rateboard/internal/api/dto"
	"github.com/hugh/rateboard/internal/apperr"
	"github.com/hugh/rateboard/internal/auth"
	"github.com/hugh/rateboard/internal/database/models"
	"github.com/hugh/rateboard/internal/permission"
	"github.com/hugh/rateboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMembers struct {
	memberships map[uuid.UUID]*models.OrganizationMembership
	err         error
	calls       int
}

func (f *fakeMembers) GetMembership(_ context.Context, userID, orgID uuid.UUID) (*models.OrganizationMembership, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	m, ok := f.memberships[orgID]
	if !ok || m.UserID != userID {
		return nil, nil
	}
	return m, nil
}

type gateFixture struct {
	jwt     *auth.JWTService
	members *fakeMembers
	gate    *Gate
	userID  uuid.UUID
	orgID   uuid.UUID
	token   string
}

func newGateFixture(t *testing.T, role models.Role, status models.MembershipStatus) *gateFixture {
	t.Helper()
	jwtService := auth.NewJWTService("test-secret", time.Hour, time.Hour)
	userID, orgID := uuid.New(), uuid.New()

	members := &fakeMembers{memberships: map[uuid.UUID]*models.OrganizationMembership{
		orgID: {
			Base:           models.Base{ID: uuid.New()},
			UserID:         userID,
			OrganizationID: orgID,
			Role:           role,
			Permissions:    permission.ForRole(role),
			Status:         status,
		},
	}}

	token, err := jwtService.GenerateToken(userID, "member@example.com", nil)
	require.NoError(t, err)

	return &gateFixture{
		jwt:     jwtService,
		members: members,
		gate:    NewGate(jwtService, members, testutil.Logger()),
		userID:  userID,
		orgID:   orgID,
		token:   token,
	}
}

// serve routes path through a chi router so URL params resolve.
func (f *gateFixture) serve(t *testing.T, mw func(http.Handler) http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.With(mw).Get("/api/v1/organization/{id}/things", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, f.userID, GetUserID(r.Context()))
		m := GetMembership(r.Context())
		require.NotNil(t, m)
		assert.Equal(t, f.orgID, m.OrganizationID)
		w.WriteHeader(http.StatusOK)
	})
	r.With(mw).Get("/api/v1/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, f.userID, GetUserID(r.Context()))
		assert.Nil(t, GetMembership(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
	r.With(mw).Get("/dashboard", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func (f *gateFixture) orgPath() string {
	return "/api/v1/organization/" + f.orgID.String() + "/things"
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body dto.Envelope
	testutil.ParseJSONResponse(t, rec, &body)
	require.NotNil(t, body.Error)
	assert.False(t, body.Success)
	return body.Error.Code
}

func TestTokenFromRequest(t *testing.T) {
	t.Run("authorization header first", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer header-token")
		req.AddCookie(&http.Cookie{Name: "token", Value: "cookie-token"})
		req.Header.Set("X-Auth-Token", "x-token")
		assert.Equal(t, "header-token", TokenFromRequest(req))
	})

	t.Run("cookie second", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: "cookie-token"})
		req.Header.Set("X-Auth-Token", "x-token")
		assert.Equal(t, "cookie-token", TokenFromRequest(req))
	})

	t.Run("x-auth-token last", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic abc")
		req.Header.Set("X-Auth-Token", "x-token")
		assert.Equal(t, "x-token", TokenFromRequest(req))
	})

	t.Run("none", func(t *testing.T) {
		assert.Empty(t, TokenFromRequest(httptest.NewRequest(http.MethodGet, "/", nil)))
	})
}

func TestGate_Authenticated(t *testing.T) {
	f := newGateFixture(t, models.RoleEmployee, models.MembershipStatusActive)

	t.Run("valid token", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, http.MethodGet, "/api/v1/me", nil, f.token)
		rec := f.serve(t, f.gate.Authenticated(), req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Zero(t, f.members.calls)
	})

	t.Run("missing token", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, http.MethodGet, "/api/v1/me", nil)
		rec := f.serve(t, f.gate.Authenticated(), req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, apperr.CodeUnauthenticated, errorCode(t, rec))
	})

	t.Run("invite token rejected", func(t *testing.T) {
		inviteToken, err := f.jwt.GenerateInviteToken(f.userID, f.orgID)
		require.NoError(t, err)
		req := testutil.AuthenticatedRequest(t, http.MethodGet, "/api/v1/me", nil, inviteToken)
		rec := f.serve(t, f.gate.Authenticated(), req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := auth.NewJWTService("test-secret", -time.Minute, time.Hour)
		token, err := expired.GenerateToken(f.userID, "member@example.com", nil)
		require.NoError(t, err)
		req := testutil.AuthenticatedRequest(t, http.MethodGet, "/api/v1/me", nil, token)
		rec := f.serve(t, f.gate.Authenticated(), req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("page request redirects to login", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req.Header.Set("Accept", "text/html")
		rec := f.serve(t, f.gate.Authenticated(), req)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})
}

func TestGate_RequireOrg(t *testing.T) {
	t.Run("owner wildcard satisfies criteria update", func(t *testing.T) {
		f := newGateFixture(t, models.RoleOwner, models.MembershipStatusActive)
		req := testutil.AuthenticatedRequest(t, http.MethodGet, f.orgPath(), nil, f.token)
		rec := f.serve(t, f.gate.RequireOrg(permission.CriteriaUpdate, permission.OrganizationAll), req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("employee lacks invite permission", func(t *testing.T) {
		f := newGateFixture(t, models.RoleEmployee, models.MembershipStatusActive)
		req := testutil.AuthenticatedRequest(t, http.MethodGet, f.orgPath(), nil, f.token)
		rec := f.serve(t, f.gate.RequireOrg(permission.OrganizationAll, permission.OrganizationInvite), req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, apperr.CodeForbidden, errorCode(t, rec))
	})

	t.Run("employee can read criteria", func(t *testing.T) {
		f := newGateFixture(t, models.RoleEmployee, models.MembershipStatusActive)
		req := testutil.AuthenticatedRequest(t, http.MethodGet, f.orgPath(), nil, f.token)
		rec := f.serve(t, f.gate.RequireOrg(permission.CriteriaRead), req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("other organization", func(t *testing.T) {
		f := newGateFixture(t, models.RoleOwner, models.MembershipStatusActive)
		req := testutil.AuthenticatedRequest(t, http.MethodGet, "/api/v1/organization/"+uuid.NewString()+"/things", nil, f.token)
		rec := f.serve(t, f.gate.RequireOrg(permission.OrganizationAll), req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, apperr.CodeForbiddenOrg, errorCode(t, rec))
	})

	t.Run("malformed organization id", func(t *testing.T) {
		f := newGateFixture(t, models.RoleOwner, models.MembershipStatusActive)
		req := testutil.AuthenticatedRequest(t, http.MethodGet, "/api/v1/organization/not-a-uuid/things", nil, f.token)
		rec := f.serve(t, f.gate.RequireOrg(permission.OrganizationAll), req)
		assert.Equal(t, apperr.CodeForbiddenOrg, errorCode(t, rec))
	})

	t.Run("invited membership is not enough", func(t *testing.T) {
		f := newGateFixture(t, models.RoleSupervisor, models.MembershipStatusInvited)
		req := testutil.AuthenticatedRequest(t, http.MethodGet, f.orgPath(), nil, f.token)
		rec := f.serve(t, f.gate.RequireOrg(permission.CriteriaRead), req)
		assert.Equal(t, apperr.CodeForbiddenOrg, errorCode(t, rec))
	})

	t.Run("permissions are re-read from the store", func(t *testing.T) {
		f := newGateFixture(t, models.RoleOwner, models.MembershipStatusActive)
		f.members.memberships[f.orgID].Permissions = []string{permission.CriteriaRead}

		req := testutil.AuthenticatedRequest(t, http.MethodGet, f.orgPath(), nil, f.token)
		rec := f.serve(t, f.gate.RequireOrg(permission.OrganizationAll), req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, 1, f.members.calls)
	})

	t.Run("store failure", func(t *testing.T) {
		f := newGateFixture(t, models.RoleOwner, models.MembershipStatusActive)
		f.members.err = errors.New("connection refused")
		req := testutil.AuthenticatedRequest(t, http.MethodGet, f.orgPath(), nil, f.token)
		rec := f.serve(t, f.gate.RequireOrg(permission.OrganizationAll), req)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestGate_Authorize_EmptyRequirementAnyActiveMember(t *testing.T) {
	f := newGateFixture(t, models.RoleEmployee, models.MembershipStatusActive)

	r := chi.NewRouter()
	var got *models.OrganizationMembership
	r.Get("/org/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, m, err := f.gate.Authorize(r, Requirement{OrgParam: "id"})
		require.NoError(t, err)
		got = m
	})

	req := testutil.AuthenticatedRequest(t, http.MethodGet, "/org/"+f.orgID.String(), nil, f.token)
	r.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, got)
	assert.Equal(t, models.RoleEmployee, got.Role)
}
