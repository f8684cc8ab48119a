package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/rateboard/internal/api/dto"
	"github.com/hugh/rateboard/internal/api/middleware"
	"github.com/hugh/rateboard/internal/api/response"
	"github.com/hugh/rateboard/internal/apperr"
	"github.com/hugh/rateboard/internal/database/models"
	"gorm.io/gorm"
)

var (
	errCriteriaNotFound = apperr.NotFound(apperr.CodeCriteriaNotFound, "Criteria not found")
	errCriteriaExists   = apperr.Conflict(apperr.CodeCriteriaAlreadyExists, "Criteria with this name already exists")
)

// CriteriaHandler manages rating criteria. Every query is scoped to the
// organization the gate resolved, so ids from other organizations 404.
type CriteriaHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewCriteriaHandler(db *gorm.DB, logger *slog.Logger) *CriteriaHandler {
	return &CriteriaHandler{db: db, logger: logger}
}

func (h *CriteriaHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetMembership(r.Context()).OrganizationID
	params := dto.ParsePagination(r)

	search := dto.SearchTerm(r)
	query := func() *gorm.DB {
		q := h.db.WithContext(r.Context()).Model(&models.Criteria{}).Where("organization_id = ?", orgID)
		if search != "" {
			q = q.Where("LOWER(name) LIKE LOWER(?) ESCAPE '\\'", "%"+escapeLike(search)+"%")
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	var criteria []models.Criteria
	if err := query().Order("name ASC").Offset(params.Offset()).Limit(params.Size).Find(&criteria).Error; err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	response.Paginated(w, criteria, dto.NewPagination(params.Page, params.Size, total))
}

func (h *CriteriaHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateCriteriaRequest
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		response.Error(w, r, h.logger, apperr.Validation(fields))
		return
	}

	criteria := models.Criteria{
		OrganizationID: middleware.GetMembership(r.Context()).OrganizationID,
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		Weight:         dto.MinCriteriaWeight,
		IsActive:       true,
	}
	if req.Weight != nil {
		criteria.Weight = *req.Weight
	}

	if err := h.db.WithContext(r.Context()).Create(&criteria).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			response.Error(w, r, h.logger, errCriteriaExists)
			return
		}
		response.Error(w, r, h.logger, err)
		return
	}

	response.OK(w, http.StatusCreated, criteria)
}

func (h *CriteriaHandler) Update(w http.ResponseWriter, r *http.Request) {
	criteria, err := h.find(r)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	var req dto.UpdateCriteriaRequest
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		response.Error(w, r, h.logger, apperr.Validation(fields))
		return
	}

	if err := h.db.WithContext(r.Context()).Model(criteria).Updates(req.Updates()).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			response.Error(w, r, h.logger, errCriteriaExists)
			return
		}
		response.Error(w, r, h.logger, err)
		return
	}

	if err := h.db.WithContext(r.Context()).First(criteria, "id = ?", criteria.ID).Error; err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	response.OK(w, http.StatusOK, criteria)
}

func (h *CriteriaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	criteria, err := h.find(r)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	// Hard delete so the (organization, name) pair can be reused.
	if err := h.db.WithContext(r.Context()).Unscoped().Delete(criteria).Error; err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, dto.Envelope{Success: true, Message: "Criteria deleted"})
}

func (h *CriteriaHandler) find(r *http.Request) (*models.Criteria, error) {
	id, err := uuid.Parse(chi.URLParam(r, "criteriaId"))
	if err != nil {
		return nil, errCriteriaNotFound
	}

	var criteria models.Criteria
	err = h.db.WithContext(r.Context()).
		Where("id = ? AND organization_id = ?", id, middleware.GetMembership(r.Context()).OrganizationID).
		First(&criteria).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errCriteriaNotFound
	}
	if err != nil {
		return nil, err
	}
	return &criteria, nil
}

// escapeLike escapes LIKE wildcards in user input.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
