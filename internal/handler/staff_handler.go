package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vidyadesk/school-api/internal/models"
	"github.com/vidyadesk/school-api/internal/service"
	appErrors "github.com/vidyadesk/school-api/pkg/errors"
	"github.com/vidyadesk/school-api/pkg/response"
)

// StaffHandler exposes employee management endpoints.
type StaffHandler struct {
	staff *service.StaffService
}

// NewStaffHandler constructs StaffHandler.
func NewStaffHandler(staff *service.StaffService) *StaffHandler {
	return &StaffHandler{staff: staff}
}

// Register godoc
// @Summary Enroll an employee
// @Tags Staff
// @Accept json
// @Produce json
// @Param payload body models.RegisterStaffRequest true "Employee payload"
// @Success 201 {object} response.Envelope
// @Router /staff/register [post]
func (h *StaffHandler) Register(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	var req models.RegisterStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	staff, err := h.staff.Register(c.Request.Context(), claims.Tenant, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, staff)
}

// Get godoc
// @Summary Employee details
// @Tags Staff
// @Produce json
// @Param empId path string true "Employee id"
// @Success 200 {object} response.Envelope
// @Router /staff/{empId} [get]
func (h *StaffHandler) Get(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	staff, err := h.staff.Get(c.Request.Context(), claims.Tenant, c.Param("empId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, staff, nil)
}

// List godoc
// @Summary List employees
// @Tags Staff
// @Produce json
// @Param jobTitle query string false "Job title"
// @Success 200 {object} response.Envelope
// @Router /staff [get]
func (h *StaffHandler) List(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	staff, err := h.staff.List(c.Request.Context(), claims.Tenant, c.Query("jobTitle"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, staff, nil)
}

// Delete godoc
// @Summary Remove an employee
// @Tags Staff
// @Param empId path string true "Employee id"
// @Success 204
// @Router /staff/{empId} [delete]
func (h *StaffHandler) Delete(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	if err := h.staff.Delete(c.Request.Context(), claims.Tenant, c.Param("empId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Payroll godoc
// @Summary Headcount and salary totals by job title
// @Tags Staff
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /staff/payroll [get]
func (h *StaffHandler) Payroll(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	summary, err := h.staff.Payroll(c.Request.Context(), claims.Tenant)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
