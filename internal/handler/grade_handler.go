package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/escolalink/disciplina-api/internal/middleware"
	"github.com/escolalink/disciplina-api/internal/service"
	"github.com/escolalink/disciplina-api/pkg/response"
)

// GradeHandler exposes the disciplinary grade read model.
type GradeHandler struct {
	discipline *service.DisciplineService
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(discipline *service.DisciplineService) *GradeHandler {
	return &GradeHandler{discipline: discipline}
}

// Summary godoc
// @Summary Current disciplinary score and display tier
// @Tags Grades
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/grade [get]
func (h *GradeHandler) Summary(c *gin.Context) {
	summary, cached, err := h.discipline.GradeSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}
