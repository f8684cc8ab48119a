package handlers_test

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/hugh/rateboard/internal/apperr"
	"github.com/hugh/rateboard/internal/database/models"
	"github.com/hugh/rateboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *orgFixture) createCriteria(t *testing.T, name string, weight int) models.Criteria {
	t.Helper()
	rr := f.do(t, http.MethodPost, f.path("/criteria"), map[string]interface{}{
		"name":        name,
		"description": "How well " + name + " is handled",
		"weight":      weight,
	}, f.ownerToken)
	testutil.AssertStatus(t, rr, http.StatusCreated)

	var c models.Criteria
	decodeData(t, decode(t, rr), &c)
	return c
}

func TestCriteriaHandler_CRUD(t *testing.T) {
	f := setupOrg(t)

	created := f.createCriteria(t, "Communication", 3)
	assert.Equal(t, "Communication", created.Name)
	assert.Equal(t, 3, created.Weight)
	assert.True(t, created.IsActive)
	assert.Equal(t, f.org.ID, created.OrganizationID)

	t.Run("duplicate name", func(t *testing.T) {
		rr := f.do(t, http.MethodPost, f.path("/criteria"), map[string]interface{}{"name": "Communication"}, f.ownerToken)
		testutil.AssertStatus(t, rr, http.StatusConflict)
		assert.Equal(t, apperr.CodeCriteriaAlreadyExists, decode(t, rr).Error.Code)
	})

	t.Run("weight out of range", func(t *testing.T) {
		rr := f.do(t, http.MethodPost, f.path("/criteria"), map[string]interface{}{"name": "Heavy", "weight": 101}, f.ownerToken)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		assert.Contains(t, decode(t, rr).Error.Details, "weight")
	})

	t.Run("list with search", func(t *testing.T) {
		f.createCriteria(t, "Punctuality", 1)

		rr := f.do(t, http.MethodGet, f.path("/criteria"), nil, f.ownerToken)
		testutil.AssertStatus(t, rr, http.StatusOK)
		env := decode(t, rr)
		var all []models.Criteria
		decodeData(t, env, &all)
		assert.Len(t, all, 2)
		assert.Equal(t, int64(2), env.Pagination.TotalCount)

		rr = f.do(t, http.MethodGet, f.path("/criteria?search=punct"), nil, f.ownerToken)
		testutil.AssertStatus(t, rr, http.StatusOK)
		var found []models.Criteria
		decodeData(t, decode(t, rr), &found)
		require.Len(t, found, 1)
		assert.Equal(t, "Punctuality", found[0].Name)
	})

	t.Run("partial update", func(t *testing.T) {
		rr := f.do(t, http.MethodPatch, f.path("/criteria/"+created.ID.String()), map[string]interface{}{
			"weight":   5,
			"isActive": false,
		}, f.ownerToken)
		testutil.AssertStatus(t, rr, http.StatusOK)

		var updated models.Criteria
		decodeData(t, decode(t, rr), &updated)
		assert.Equal(t, "Communication", updated.Name)
		assert.Equal(t, 5, updated.Weight)
		assert.False(t, updated.IsActive)
	})

	t.Run("empty update", func(t *testing.T) {
		rr := f.do(t, http.MethodPatch, f.path("/criteria/"+created.ID.String()), map[string]interface{}{}, f.ownerToken)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("delete frees the name", func(t *testing.T) {
		rr := f.do(t, http.MethodDelete, f.path("/criteria/"+created.ID.String()), nil, f.ownerToken)
		testutil.AssertStatus(t, rr, http.StatusOK)

		rr = f.do(t, http.MethodDelete, f.path("/criteria/"+created.ID.String()), nil, f.ownerToken)
		testutil.AssertStatus(t, rr, http.StatusNotFound)
		assert.Equal(t, apperr.CodeCriteriaNotFound, decode(t, rr).Error.Code)

		f.createCriteria(t, "Communication", 2)
	})

	t.Run("unknown id", func(t *testing.T) {
		rr := f.do(t, http.MethodPatch, f.path("/criteria/"+uuid.NewString()), map[string]interface{}{"weight": 2}, f.ownerToken)
		testutil.AssertStatus(t, rr, http.StatusNotFound)

		rr = f.do(t, http.MethodPatch, f.path("/criteria/not-a-uuid"), map[string]interface{}{"weight": 2}, f.ownerToken)
		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})
}

func TestCriteriaHandler_Permissions(t *testing.T) {
	f := setupOrg(t)
	c := f.createCriteria(t, "Quality", 1)
	employee := f.member(t, "employee@example.com", models.RoleEmployee)

	rr := f.do(t, http.MethodGet, f.path("/criteria"), nil, employee)
	testutil.AssertStatus(t, rr, http.StatusOK)

	rr = f.do(t, http.MethodPost, f.path("/criteria"), map[string]interface{}{"name": "Speed"}, employee)
	testutil.AssertStatus(t, rr, http.StatusForbidden)

	rr = f.do(t, http.MethodDelete, f.path("/criteria/"+c.ID.String()), nil, employee)
	testutil.AssertStatus(t, rr, http.StatusForbidden)
}

func TestCriteriaHandler_ScopedToOrganization(t *testing.T) {
	f := setupOrg(t)
	c := f.createCriteria(t, "Quality", 1)

	// An owner of another organization cannot reach it through their own org.
	other := testutil.CreateTestUser(t, f.db, "rival@example.com")
	rivalOrg := testutil.CreateTestOrg(t, f.db, other, "Rival")
	rivalToken := testutil.GenerateTestToken(t, f.db, f.jwt, other)

	path := "/api/v1/organization/" + rivalOrg.ID.String() + "/criteria/" + c.ID.String()
	rr := f.do(t, http.MethodDelete, path, nil, rivalToken)
	testutil.AssertStatus(t, rr, http.StatusNotFound)

	rr = f.do(t, http.MethodDelete, f.path("/criteria/"+c.ID.String()), nil, rivalToken)
	testutil.AssertStatus(t, rr, http.StatusForbidden)

	var n int64
	require.NoError(t, f.db.Model(&models.Criteria{}).Where("id = ?", c.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}
