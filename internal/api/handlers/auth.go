package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hugh/rateboard/internal/api/dto"
	"github.com/hugh/rateboard/internal/api/middleware"
	"github.com/hugh/rateboard/internal/api/response"
	"github.com/hugh/rateboard/internal/apperr"
	"github.com/hugh/rateboard/internal/auth"
)

// CookieConfig controls the session cookie set for the web pages.
type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
}

type AuthHandler struct {
	authService auth.Authenticator
	cookie      CookieConfig
	logger      *slog.Logger
}

func NewAuthHandler(authService auth.Authenticator, cookie CookieConfig, logger *slog.Logger) *AuthHandler {
	if cookie.MaxAge <= 0 {
		cookie.MaxAge = 24 * time.Hour
	}
	return &AuthHandler{authService: authService, cookie: cookie, logger: logger}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		response.Error(w, r, h.logger, apperr.Validation(errors))
		return
	}

	result, err := h.authService.Register(r.Context(), auth.RegisterInput{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		Password:         req.Password,
		OrganizationName: req.OrganizationName,
	})
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	h.setSessionCookie(w, result.Token)
	response.JSON(w, http.StatusCreated, dto.Envelope{
		Success: true,
		Token:   result.Token,
		Data: dto.RegisterResponse{
			User:         dto.NewUserDTO(result.User),
			Organization: dto.NewOrganizationDTO(result.Organization),
			Membership:   dto.NewMembershipDTO(result.Membership),
		},
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		response.Error(w, r, h.logger, apperr.Validation(errors))
		return
	}

	resp, err := h.authService.Login(r.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	h.setSessionCookie(w, resp.Token)
	response.JSON(w, http.StatusOK, dto.Envelope{
		Success: true,
		Token:   resp.Token,
		Data:    dto.AuthResponse{User: dto.NewUserDTO(resp.User)},
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		MaxAge:   -1,
	})

	response.JSON(w, http.StatusOK, dto.Envelope{Success: true, Message: "Logged out"})
}

func (h *AuthHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	var req dto.AcceptInviteRequest
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		response.Error(w, r, h.logger, apperr.Validation(errors))
		return
	}

	resp, err := h.authService.AcceptInvite(r.Context(), auth.AcceptInviteInput{
		Token:     req.Token,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	data := dto.AuthResponse{User: dto.NewUserDTO(resp.User)}
	if resp.Membership != nil {
		m := dto.NewMembershipDTO(resp.Membership)
		data.Membership = &m
	}

	h.setSessionCookie(w, resp.Token)
	response.JSON(w, http.StatusOK, dto.Envelope{
		Success: true,
		Token:   resp.Token,
		Data:    data,
	})
}

func (h *AuthHandler) WhoAmI(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.GetUserByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	response.OK(w, http.StatusOK, dto.NewWhoAmIResponse(user))
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.cookie.MaxAge.Seconds()),
	})
}
