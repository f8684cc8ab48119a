package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/rateboard/internal/api/response"
	"github.com/hugh/rateboard/internal/apperr"
	"github.com/hugh/rateboard/internal/auth"
	"github.com/hugh/rateboard/internal/database/models"
	"github.com/hugh/rateboard/internal/permission"
)

type contextKey string

const (
	IdentityKey   contextKey = "identity"
	MembershipKey contextKey = "membership"
)

// OrgParam is the chi URL parameter holding the organization id.
const OrgParam = "id"

// Identity is the authenticated caller.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Claims *auth.Claims
}

// Requirement describes what a route demands. With an empty OrgParam only a
// valid session is required. With an empty Permissions list any ACTIVE
// membership of the organization is enough.
type Requirement struct {
	OrgParam    string
	Permissions []string
}

// Gate verifies session tokens and enforces permissions against the current
// membership state in the store.
type Gate struct {
	tokens  auth.TokenService
	members auth.MembershipFinder
	logger  *slog.Logger
}

func NewGate(tokens auth.TokenService, members auth.MembershipFinder, logger *slog.Logger) *Gate {
	return &Gate{tokens: tokens, members: members, logger: logger}
}

// TokenFromRequest looks in the Authorization header, then the token cookie,
// then X-Auth-Token.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		if t := strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")); t != "" {
			return t
		}
	}
	if cookie, err := r.Cookie("token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.Header.Get("X-Auth-Token")
}

// Authorize resolves the caller and, when req names an organization, the
// caller's ACTIVE membership in it holding at least one required permission.
func (g *Gate) Authorize(r *http.Request, req Requirement) (*Identity, *models.OrganizationMembership, error) {
	token := TokenFromRequest(r)
	if token == "" {
		return nil, nil, apperr.Unauthenticated("Authentication required")
	}

	claims, err := g.tokens.ValidateToken(token)
	if err != nil {
		return nil, nil, apperr.Wrap(err, apperr.KindUnauthenticated, apperr.CodeUnauthenticated, "Invalid or expired token")
	}
	identity := &Identity{UserID: claims.UserID, Email: claims.Email, Claims: claims}

	if req.OrgParam == "" {
		return identity, nil, nil
	}

	forbiddenOrg := apperr.Forbidden(apperr.CodeForbiddenOrg, "You are not a member of this organization")

	orgID, err := uuid.Parse(chi.URLParam(r, req.OrgParam))
	if err != nil {
		return identity, nil, forbiddenOrg
	}

	// Token claims may be stale; permissions are always read from the store.
	membership, err := g.members.GetMembership(r.Context(), claims.UserID, orgID)
	if err != nil {
		return identity, nil, apperr.Internal(err)
	}
	if membership == nil || !membership.IsActive() {
		return identity, nil, forbiddenOrg
	}

	if !permission.Authorize(membership.Permissions, req.Permissions) {
		return identity, membership, apperr.Forbidden(apperr.CodeForbidden, "You do not have permission to perform this action")
	}

	return identity, membership, nil
}

// Require is Authorize as middleware. Identity and membership are stored in
// the request context.
func (g *Gate) Require(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, membership, err := g.Authorize(r, req)
			if err != nil {
				if apperr.From(err).Kind == apperr.KindUnauthenticated && isPageRequest(r) {
					http.Redirect(w, r, "/login", http.StatusFound)
					return
				}
				response.Error(w, r, g.logger, err)
				return
			}

			setLogUser(r.Context(), identity.UserID)
			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			if membership != nil {
				ctx = context.WithValue(ctx, MembershipKey, membership)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authenticated requires a valid session only.
func (g *Gate) Authenticated() func(http.Handler) http.Handler {
	return g.Require(Requirement{})
}

// RequireOrg requires an ACTIVE membership in the organization from the URL
// holding any of permissions.
func (g *Gate) RequireOrg(permissions ...string) func(http.Handler) http.Handler {
	return g.Require(Requirement{OrgParam: OrgParam, Permissions: permissions})
}

func isPageRequest(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html") && !strings.HasPrefix(r.URL.Path, "/api/")
}

func GetIdentity(ctx context.Context) *Identity {
	if id, ok := ctx.Value(IdentityKey).(*Identity); ok {
		return id
	}
	return nil
}

func GetUserID(ctx context.Context) uuid.UUID {
	if id := GetIdentity(ctx); id != nil {
		return id.UserID
	}
	return uuid.Nil
}

func GetMembership(ctx context.Context) *models.OrganizationMembership {
	if m, ok := ctx.Value(MembershipKey).(*models.OrganizationMembership); ok {
		return m
	}
	return nil
}
