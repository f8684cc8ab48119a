package handlers_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/rateboard/internal/api/dto"
	"github.com/hugh/rateboard/internal/api/handlers"
	"github.com/hugh/rateboard/internal/api/middleware"
	"github.com/hugh/rateboard/internal/auth"
	"github.com/hugh/rateboard/internal/invite"
	"github.com/hugh/rateboard/internal/permission"
	"github.com/hugh/rateboard/internal/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db          *gorm.DB
	jwt         *auth.JWTService
	authService *auth.Service
	sender      *testutil.FakeSender
	router      *chi.Mux
}

// envelope mirrors dto.Envelope with a raw data payload.
type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Error      *dto.ErrorBody  `json:"error"`
	Pagination *dto.Pagination `json:"pagination"`
	Token      string          `json:"token"`
	Message    string          `json:"message"`
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	jwtService := testutil.CreateTestJWTService()
	hasher := testutil.CreateTestHasher()
	logger := testutil.Logger()
	sender := &testutil.FakeSender{}

	authService := auth.NewService(db, jwtService, hasher, logger)
	invites := invite.NewService(db, jwtService, hasher, sender, invite.Config{
		HostURL:      testutil.TestHostURL,
		InviteExpiry: 72 * time.Hour,
	}, logger)

	gate := middleware.NewGate(jwtService, authService, logger)
	authHandler := handlers.NewAuthHandler(authService, handlers.CookieConfig{}, logger)
	orgHandler := handlers.NewOrganizationHandler(db, invites, logger)
	criteriaHandler := handlers.NewCriteriaHandler(db, logger)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Post("/auth/accept-invite", authHandler.AcceptInvite)
		r.With(gate.Authenticated()).Get("/auth/whoami", authHandler.WhoAmI)

		r.Route("/organization/{id}", func(r chi.Router) {
			r.With(gate.RequireOrg(permission.CriteriaRead)).Get("/criteria", criteriaHandler.List)
			r.With(gate.RequireOrg(permission.CriteriaCreate, permission.OrganizationAll)).Post("/criteria", criteriaHandler.Create)
			r.With(gate.RequireOrg(permission.CriteriaUpdate, permission.OrganizationAll)).Patch("/criteria/{criteriaId}", criteriaHandler.Update)
			r.With(gate.RequireOrg(permission.CriteriaDelete, permission.OrganizationAll)).Delete("/criteria/{criteriaId}", criteriaHandler.Delete)

			r.With(gate.RequireOrg(permission.OrganizationAll, permission.OrganizationInvite)).Post("/invite", orgHandler.Invite)
			r.With(gate.RequireOrg(permission.OrganizationAll, permission.OrganizationInvite)).Post("/invite/resend", orgHandler.ResendInvite)
			r.With(gate.RequireOrg(permission.UserAll, permission.UserAssignAssigned)).Get("/members/employees", orgHandler.Employees)
			r.With(gate.RequireOrg(permission.UserAll, permission.UserAssignAssigned)).Get("/members/supervisors", orgHandler.Supervisors)
		})
	})

	return &testEnv{
		db:          db,
		jwt:         jwtService,
		authService: authService,
		sender:      sender,
		router:      r,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.AuthenticatedRequest(t, method, path, body, token)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	testutil.ParseJSONResponse(t, rr, &env)
	return env
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.NotEmpty(t, env.Data, "response has no data")
	require.NoError(t, json.Unmarshal(env.Data, v))
}
