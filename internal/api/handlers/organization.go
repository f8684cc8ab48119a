package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hugh/rateboard/internal/api/dto"
	"github.com/hugh/rateboard/internal/api/middleware"
	"github.com/hugh/rateboard/internal/api/response"
	"github.com/hugh/rateboard/internal/apperr"
	"github.com/hugh/rateboard/internal/database/models"
	"github.com/hugh/rateboard/internal/invite"
	"gorm.io/gorm"
)

type OrganizationHandler struct {
	db      *gorm.DB
	invites *invite.Service
	logger  *slog.Logger
}

func NewOrganizationHandler(db *gorm.DB, invites *invite.Service, logger *slog.Logger) *OrganizationHandler {
	return &OrganizationHandler{db: db, invites: invites, logger: logger}
}

func (h *OrganizationHandler) Invite(w http.ResponseWriter, r *http.Request) {
	var req dto.InviteRequest
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		response.Error(w, r, h.logger, apperr.Validation(errors))
		return
	}

	membership := middleware.GetMembership(r.Context())
	inviter := invite.Inviter{UserID: middleware.GetUserID(r.Context())}

	result, err := h.invites.Invite(r.Context(), inviter, membership.OrganizationID, req.Email, req.Role)
	if err != nil {
		h.writeInviteError(w, r, err, result)
		return
	}

	response.JSON(w, http.StatusOK, dto.Envelope{
		Success: true,
		Data:    result,
		Message: "Invitation sent",
	})
}

func (h *OrganizationHandler) ResendInvite(w http.ResponseWriter, r *http.Request) {
	var req dto.ResendInviteRequest
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		response.Error(w, r, h.logger, apperr.Validation(errors))
		return
	}

	membership := middleware.GetMembership(r.Context())
	inviter := invite.Inviter{UserID: middleware.GetUserID(r.Context())}

	result, err := h.invites.Resend(r.Context(), inviter, membership.OrganizationID, req.Email)
	if err != nil {
		h.writeInviteError(w, r, err, result)
		return
	}

	response.JSON(w, http.StatusOK, dto.Envelope{
		Success: true,
		Data:    result,
		Message: "Invitation resent",
	})
}

// writeInviteError includes the result when the membership was committed
// before the failure.
func (h *OrganizationHandler) writeInviteError(w http.ResponseWriter, r *http.Request, err error, result *invite.Result) {
	if result == nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.ErrorWithData(w, r, h.logger, err, result)
}

func (h *OrganizationHandler) Employees(w http.ResponseWriter, r *http.Request) {
	h.listMembers(w, r, models.RoleEmployee)
}

func (h *OrganizationHandler) Supervisors(w http.ResponseWriter, r *http.Request) {
	h.listMembers(w, r, models.RoleSupervisor)
}

// listMembers pages through members of one role in name order, optionally
// filtered by a case-insensitive match on email or name.
func (h *OrganizationHandler) listMembers(w http.ResponseWriter, r *http.Request, role models.Role) {
	orgID := middleware.GetMembership(r.Context()).OrganizationID
	params := dto.ParsePagination(r)
	search := dto.SearchTerm(r)

	query := func() *gorm.DB {
		q := h.db.WithContext(r.Context()).
			Model(&models.OrganizationMembership{}).
			Joins("JOIN users ON users.id = organization_memberships.user_id AND users.deleted_at IS NULL").
			Where("organization_memberships.organization_id = ? AND organization_memberships.role = ?", orgID, role)
		if search != "" {
			like := "%" + escapeLike(search) + "%"
			q = q.Where(
				"(LOWER(users.email) LIKE LOWER(?) ESCAPE '\\' OR LOWER(users.first_name) LIKE LOWER(?) ESCAPE '\\' OR LOWER(users.last_name) LIKE LOWER(?) ESCAPE '\\')",
				like, like, like,
			)
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	var memberships []models.OrganizationMembership
	if err := query().
		Preload("User").
		Order("users.first_name ASC, users.last_name ASC, users.email ASC").
		Offset(params.Offset()).
		Limit(params.Size).
		Find(&memberships).Error; err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	members := make([]dto.MemberDTO, len(memberships))
	for i := range memberships {
		members[i] = dto.NewMemberDTO(&memberships[i])
	}

	response.Paginated(w, members, dto.NewPagination(params.Page, params.Size, total))
}
