package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hugh/rateboard/internal/api/dto"
	"github.com/hugh/rateboard/internal/api/middleware"
	"github.com/hugh/rateboard/internal/auth"
	"github.com/hugh/rateboard/internal/web"
)

// PageHandler serves the server-rendered pages. The forms on them post to the
// JSON API.
type PageHandler struct {
	authService auth.Authenticator
	pages       *web.Pages
	logger      *slog.Logger
}

func NewPageHandler(authService auth.Authenticator, pages *web.Pages, logger *slog.Logger) *PageHandler {
	return &PageHandler{authService: authService, pages: pages, logger: logger}
}

func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "login.html", nil)
}

func (h *PageHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "signup.html", nil)
}

func (h *PageHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "accept_invite.html", map[string]string{
		"Token": r.URL.Query().Get("token"),
	})
}

// Home lists the signed in user's organizations.
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.GetUserByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	whoami := dto.NewWhoAmIResponse(user)
	h.render(w, r, "home.html", map[string]interface{}{
		"User":        whoami.UserDTO,
		"Memberships": whoami.Memberships,
	})
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, name string, data interface{}) {
	if h.pages == nil {
		http.Error(w, "Templates not loaded", http.StatusInternalServerError)
		return
	}

	if err := h.pages.Render(w, http.StatusOK, name, data); err != nil {
		h.logger.Error("render page", "page", name, "path", r.URL.Path, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
