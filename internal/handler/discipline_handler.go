package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/escolalink/disciplina-api/internal/models"
	"github.com/escolalink/disciplina-api/internal/service"
	appErrors "github.com/escolalink/disciplina-api/pkg/errors"
	"github.com/escolalink/disciplina-api/pkg/response"
)

// DisciplineHandler exposes disciplinary record endpoints.
type DisciplineHandler struct {
	discipline *service.DisciplineService
}

// NewDisciplineHandler constructs DisciplineHandler.
func NewDisciplineHandler(discipline *service.DisciplineService) *DisciplineHandler {
	return &DisciplineHandler{discipline: discipline}
}

// CreateNote godoc
// @Summary Record a disciplinary note
// @Tags Discipline
// @Accept json
// @Produce json
// @Param payload body service.RecordNoteRequest true "Note payload"
// @Success 201 {object} response.Envelope
// @Router /discipline/notes [post]
func (h *DisciplineHandler) CreateNote(c *gin.Context) {
	var req service.RecordNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.RecordedBy = claims.UserID
	}
	result, err := h.discipline.RecordNote(c.Request.Context(), req)
	if err != nil {
		// The record may have been committed even when the score write
		// failed. Surface the warning but keep the created payload.
		if result != nil && appErrors.IsCode(err, appErrors.ErrScoreOutOfSync.Code) {
			response.JSON(c, http.StatusCreated, result, nil, map[string]interface{}{
				"warning": appErrors.FromError(err).Message,
			})
			return
		}
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// CreateCommendation godoc
// @Summary Record a commendation
// @Tags Discipline
// @Accept json
// @Produce json
// @Param payload body service.RecordCommendationRequest true "Commendation payload"
// @Success 201 {object} response.Envelope
// @Router /discipline/commendations [post]
func (h *DisciplineHandler) CreateCommendation(c *gin.Context) {
	var req service.RecordCommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.RecordedBy = claims.UserID
	}
	result, err := h.discipline.RecordCommendation(c.Request.Context(), req)
	if err != nil {
		if result != nil && appErrors.IsCode(err, appErrors.ErrScoreOutOfSync.Code) {
			response.JSON(c, http.StatusCreated, result, nil, map[string]interface{}{
				"warning": appErrors.FromError(err).Message,
			})
			return
		}
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// CreateAbsence godoc
// @Summary Record an absence
// @Tags Discipline
// @Accept json
// @Produce json
// @Param payload body service.RecordAbsenceRequest true "Absence payload"
// @Success 201 {object} response.Envelope
// @Router /discipline/absences [post]
func (h *DisciplineHandler) CreateAbsence(c *gin.Context) {
	var req service.RecordAbsenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.RecordedBy = claims.UserID
	}
	absence, err := h.discipline.RecordAbsence(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, absence)
}

// ListHistory godoc
// @Summary Merged discipline history for a student
// @Tags Discipline
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/history [get]
func (h *DisciplineHandler) ListHistory(c *gin.Context) {
	items, err := h.discipline.ListHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// DeleteHistoryItem godoc
// @Summary Delete a history record
// @Tags Discipline
// @Produce json
// @Param category path string true "Record category" Enums(note, commendation, sanction, absence)
// @Param id path string true "Record ID"
// @Success 204 "No Content"
// @Router /discipline/{category}/{id} [delete]
func (h *DisciplineHandler) DeleteHistoryItem(c *gin.Context) {
	category := models.HistoryCategory(c.Param("category"))
	if err := h.discipline.DeleteHistoryItem(c.Request.Context(), category, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// BulkApply godoc
// @Summary Apply a note or commendation to a whole class
// @Tags Discipline
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body service.BulkApplyRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/discipline/bulk [post]
func (h *DisciplineHandler) BulkApply(c *gin.Context) {
	var req service.BulkApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.RecordedBy = claims.UserID
	}
	summary, err := h.discipline.BulkApply(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
