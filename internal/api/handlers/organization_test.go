package handlers_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/hugh/rateboard/internal/api/dto"
	"github.com/hugh/rateboard/internal/apperr"
	"github.com/hugh/rateboard/internal/database/models"
	"github.com/hugh/rateboard/internal/invite"
	"github.com/hugh/rateboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orgFixture struct {
	*testEnv
	org        *models.Organization
	ownerToken string
}

func setupOrg(t *testing.T) *orgFixture {
	t.Helper()
	e := setupTestEnv(t)
	owner := testutil.CreateTestUser(t, e.db, "owner@example.com")
	org := testutil.CreateTestOrg(t, e.db, owner, "Acme")
	return &orgFixture{testEnv: e, org: org, ownerToken: testutil.GenerateTestToken(t, e.db, e.jwt, owner)}
}

func (f *orgFixture) path(suffix string) string {
	return "/api/v1/organization/" + f.org.ID.String() + suffix
}

// member adds an ACTIVE member with role and returns a session token for it.
func (f *orgFixture) member(t *testing.T, email string, role models.Role) string {
	t.Helper()
	user := testutil.CreateTestUser(t, f.db, email)
	testutil.CreateTestMembership(t, f.db, user, f.org, role, models.MembershipStatusActive)
	return testutil.GenerateTestToken(t, f.db, f.jwt, user)
}

func TestOrganizationHandler_Invite(t *testing.T) {
	f := setupOrg(t)

	t.Run("owner invites a new employee", func(t *testing.T) {
		rr := f.do(t, http.MethodPost, f.path("/invite"), map[string]string{
			"email": "New@Example.com",
			"role":  "EMPLOYEE",
		}, f.ownerToken)
		testutil.AssertStatus(t, rr, http.StatusOK)

		env := decode(t, rr)
		assert.Equal(t, "Invitation sent", env.Message)

		var result invite.Result
		decodeData(t, env, &result)
		assert.Equal(t, "new@example.com", result.Email)
		assert.Equal(t, models.RoleEmployee, result.Role)
		assert.Equal(t, models.MembershipStatusInvited, result.Status)
		assert.Equal(t, f.org.ID, result.Organization.ID)
		assert.True(t, result.InviteSent)

		sent := f.sender.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "new@example.com", sent[0].To)
	})

	t.Run("already a member", func(t *testing.T) {
		rr := f.do(t, http.MethodPost, f.path("/invite"), map[string]string{
			"email": "owner@example.com",
			"role":  "SUPERVISOR",
		}, f.ownerToken)
		testutil.AssertStatus(t, rr, http.StatusConflict)
		assert.Equal(t, apperr.CodeUserAlreadyMember, decode(t, rr).Error.Code)
	})

	t.Run("owner role is not invitable", func(t *testing.T) {
		rr := f.do(t, http.MethodPost, f.path("/invite"), map[string]string{
			"email": "boss@example.com",
			"role":  "OWNER",
		}, f.ownerToken)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		assert.Contains(t, decode(t, rr).Error.Details, "role")
	})

	t.Run("email failure keeps the membership", func(t *testing.T) {
		f.sender.Err = errors.New("smtp down")
		defer func() { f.sender.Err = nil }()

		rr := f.do(t, http.MethodPost, f.path("/invite"), map[string]string{
			"email": "later@example.com",
			"role":  "SUPERVISOR",
		}, f.ownerToken)
		testutil.AssertStatus(t, rr, http.StatusBadGateway)

		env := decode(t, rr)
		assert.False(t, env.Success)
		assert.Equal(t, apperr.CodeInviteEmailFailed, env.Error.Code)

		var result invite.Result
		decodeData(t, env, &result)
		assert.Equal(t, "later@example.com", result.Email)
		assert.False(t, result.InviteSent)
	})

	t.Run("employee may not invite", func(t *testing.T) {
		token := f.member(t, "employee@example.com", models.RoleEmployee)
		rr := f.do(t, http.MethodPost, f.path("/invite"), map[string]string{
			"email": "friend@example.com",
			"role":  "EMPLOYEE",
		}, token)
		testutil.AssertStatus(t, rr, http.StatusForbidden)
		assert.Equal(t, apperr.CodeForbidden, decode(t, rr).Error.Code)
	})

	t.Run("outsider is not a member", func(t *testing.T) {
		outsider := testutil.CreateTestUser(t, f.db, "outsider@example.com")
		token := testutil.GenerateTestToken(t, f.db, f.jwt, outsider)

		rr := f.do(t, http.MethodPost, f.path("/invite"), map[string]string{
			"email": "friend@example.com",
			"role":  "EMPLOYEE",
		}, token)
		testutil.AssertStatus(t, rr, http.StatusForbidden)
		assert.Equal(t, apperr.CodeForbiddenOrg, decode(t, rr).Error.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		rr := f.do(t, http.MethodPost, f.path("/invite"), map[string]string{
			"email": "friend@example.com",
			"role":  "EMPLOYEE",
		}, "")
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})
}

func TestOrganizationHandler_ResendInvite(t *testing.T) {
	f := setupOrg(t)

	rr := f.do(t, http.MethodPost, f.path("/invite"), map[string]string{
		"email": "pending@example.com",
		"role":  "EMPLOYEE",
	}, f.ownerToken)
	testutil.AssertStatus(t, rr, http.StatusOK)

	rr = f.do(t, http.MethodPost, f.path("/invite/resend"), map[string]string{"email": "pending@example.com"}, f.ownerToken)
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, "Invitation resent", decode(t, rr).Message)
	assert.Len(t, f.sender.Sent(), 2)

	rr = f.do(t, http.MethodPost, f.path("/invite/resend"), map[string]string{"email": "nobody@example.com"}, f.ownerToken)
	testutil.AssertStatus(t, rr, http.StatusNotFound)
	assert.Equal(t, apperr.CodeInviteNotFound, decode(t, rr).Error.Code)
}

func TestOrganizationHandler_Employees(t *testing.T) {
	f := setupOrg(t)
	for i := 1; i <= 12; i++ {
		f.member(t, fmt.Sprintf("emp-%02d@example.com", i), models.RoleEmployee)
	}
	f.member(t, "sup@example.com", models.RoleSupervisor)

	t.Run("paginates", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, f.path("/members/employees?page=2&size=5"), nil, f.ownerToken)
		testutil.AssertStatus(t, rr, http.StatusOK)

		env := decode(t, rr)
		var members []dto.MemberDTO
		decodeData(t, env, &members)
		assert.Len(t, members, 5)

		require.NotNil(t, env.Pagination)
		assert.Equal(t, 2, env.Pagination.Page)
		assert.Equal(t, 5, env.Pagination.Size)
		assert.Equal(t, int64(12), env.Pagination.TotalCount)
		assert.Equal(t, 3, env.Pagination.TotalPages)
		assert.True(t, env.Pagination.HasNextPage)
		assert.True(t, env.Pagination.HasPrevPage)

		for _, m := range members {
			assert.Equal(t, models.RoleEmployee, m.Role)
			assert.NotEmpty(t, m.Email)
		}
	})

	t.Run("searches by email", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, f.path("/members/employees?search=EMP-03"), nil, f.ownerToken)
		testutil.AssertStatus(t, rr, http.StatusOK)

		env := decode(t, rr)
		var members []dto.MemberDTO
		decodeData(t, env, &members)
		require.Len(t, members, 1)
		assert.Equal(t, "emp-03@example.com", members[0].Email)
		assert.Equal(t, int64(1), env.Pagination.TotalCount)
	})

	t.Run("like wildcards are literal", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, f.path("/members/employees?search=%25"), nil, f.ownerToken)
		testutil.AssertStatus(t, rr, http.StatusOK)
		assert.Equal(t, int64(0), decode(t, rr).Pagination.TotalCount)
	})

	t.Run("supervisor may list", func(t *testing.T) {
		var sup models.User
		require.NoError(t, f.db.First(&sup, "email = ?", "sup@example.com").Error)
		token := testutil.GenerateTestToken(t, f.db, f.jwt, &sup)

		rr := f.do(t, http.MethodGet, f.path("/members/employees"), nil, token)
		testutil.AssertStatus(t, rr, http.StatusOK)
		assert.Equal(t, int64(12), decode(t, rr).Pagination.TotalCount)
	})

	t.Run("employee may not list", func(t *testing.T) {
		var emp models.User
		require.NoError(t, f.db.First(&emp, "email = ?", "emp-01@example.com").Error)
		token := testutil.GenerateTestToken(t, f.db, f.jwt, &emp)

		rr := f.do(t, http.MethodGet, f.path("/members/employees"), nil, token)
		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})
}

func TestOrganizationHandler_Employees_SortedByName(t *testing.T) {
	f := setupOrg(t)
	names := map[string][2]string{
		"c@example.com": {"Grace", "Hopper"},
		"a@example.com": {"Ada", "Lovelace"},
		"d@example.com": {"Grace", "Brewster"},
		"b@example.com": {"Alan", "Turing"},
	}
	for email, n := range names {
		f.member(t, email, models.RoleEmployee)
		require.NoError(t, f.db.Model(&models.User{}).Where("email = ?", email).
			Updates(map[string]interface{}{"first_name": n[0], "last_name": n[1]}).Error)
	}

	rr := f.do(t, http.MethodGet, f.path("/members/employees"), nil, f.ownerToken)
	testutil.AssertStatus(t, rr, http.StatusOK)

	var members []dto.MemberDTO
	decodeData(t, decode(t, rr), &members)

	got := make([]string, len(members))
	for i, m := range members {
		got[i] = m.FirstName + " " + m.LastName
	}
	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing", "Grace Brewster", "Grace Hopper"}, got)
}

func TestOrganizationHandler_Supervisors(t *testing.T) {
	f := setupOrg(t)
	f.member(t, "sup-a@example.com", models.RoleSupervisor)
	f.member(t, "sup-b@example.com", models.RoleSupervisor)
	f.member(t, "emp@example.com", models.RoleEmployee)

	rr := f.do(t, http.MethodGet, f.path("/members/supervisors"), nil, f.ownerToken)
	testutil.AssertStatus(t, rr, http.StatusOK)

	env := decode(t, rr)
	var members []dto.MemberDTO
	decodeData(t, env, &members)
	assert.Len(t, members, 2)
	assert.Equal(t, 1, env.Pagination.TotalPages)
	assert.False(t, env.Pagination.HasNextPage)
}
