package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vidyadesk/school-api/internal/models"
	"github.com/vidyadesk/school-api/internal/service"
	appErrors "github.com/vidyadesk/school-api/pkg/errors"
	"github.com/vidyadesk/school-api/pkg/response"
)

// ResultHandler exposes result submission and marksheet endpoints.
type ResultHandler struct {
	results *service.ResultService
}

// NewResultHandler constructs ResultHandler.
func NewResultHandler(results *service.ResultService) *ResultHandler {
	return &ResultHandler{results: results}
}

// Submit godoc
// @Summary Record results for a cohort sitting
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body models.SubmitResultsRequest true "Cohort results"
// @Success 201 {object} response.Envelope
// @Router /result/submit [post]
func (h *ResultHandler) Submit(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	var req models.SubmitResultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	n, err := h.results.Submit(c.Request.Context(), claims.Tenant, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"recorded": n})
}

// Marksheet godoc
// @Summary Fetch a student's marksheet
// @Tags Results
// @Produce json
// @Param registrationNo query string true "Registration number"
// @Param class query string true "Class"
// @Param session query string true "Session"
// @Param examType query string true "Exam type"
// @Param tenant query string false "School name, required without a session"
// @Success 200 {object} response.Envelope
// @Router /result/marksheet [get]
func (h *ResultHandler) Marksheet(c *gin.Context) {
	tenant, _, ok := requestTenant(c)
	if !ok {
		return
	}
	var req models.MarksheetRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid marksheet query"))
		return
	}
	sheet, err := h.results.Marksheet(c.Request.Context(), tenant, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet, nil)
}

// MarksheetPDF godoc
// @Summary Download a marksheet as PDF
// @Tags Results
// @Produce application/pdf
// @Param registrationNo query string true "Registration number"
// @Param class query string true "Class"
// @Param session query string true "Session"
// @Param examType query string true "Exam type"
// @Param tenant query string false "School name, required without a session"
// @Success 200 {string} string "PDF document"
// @Router /result/marksheet/pdf [get]
func (h *ResultHandler) MarksheetPDF(c *gin.Context) {
	tenant, tenantAddress, ok := requestTenant(c)
	if !ok {
		return
	}
	var req models.MarksheetRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid marksheet query"))
		return
	}
	pdf, err := h.results.MarksheetPDF(c.Request.Context(), tenant, tenantAddress, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("marksheet-%s-%s.pdf", req.RegistrationNo, req.ExamType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// ListCohort godoc
// @Summary Results recorded for one class sitting
// @Tags Results
// @Produce json
// @Param class query string true "Class"
// @Param medium query string true "Medium"
// @Param stream query string false "Stream"
// @Param session query string true "Session"
// @Param examType query string true "Exam type"
// @Success 200 {object} response.Envelope
// @Router /result/class [get]
func (h *ResultHandler) ListCohort(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	var q models.CohortQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid cohort query"))
		return
	}
	results, err := h.results.ListCohort(c.Request.Context(), claims.Tenant, q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// EditRoster godoc
// @Summary Cohort results paired with each student's current standing
// @Tags Results
// @Produce json
// @Param class query string true "Class"
// @Param medium query string true "Medium"
// @Param stream query string false "Stream"
// @Param session query string true "Session"
// @Param examType query string true "Exam type"
// @Success 200 {object} response.Envelope
// @Router /result/edit [get]
func (h *ResultHandler) EditRoster(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	var q models.CohortQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid cohort query"))
		return
	}
	rows, err := h.results.EditRoster(c.Request.Context(), claims.Tenant, q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Update godoc
// @Summary Replace the subject scores of a recorded result
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body models.UpdateResultRequest true "Result payload"
// @Success 200 {object} response.Envelope
// @Router /result/edit [put]
func (h *ResultHandler) Update(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	var req models.UpdateResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	result, err := h.results.Update(c.Request.Context(), claims.Tenant, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
