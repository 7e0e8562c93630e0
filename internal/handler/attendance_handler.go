package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vidyadesk/school-api/internal/models"
	"github.com/vidyadesk/school-api/internal/service"
	appErrors "github.com/vidyadesk/school-api/pkg/errors"
	"github.com/vidyadesk/school-api/pkg/response"
)

// AttendanceHandler exposes class and staff attendance endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

type amendAttendanceRequest struct {
	Records models.AttendanceEntryList `json:"records"`
}

// Mark godoc
// @Summary Mark a class sheet for one day
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.MarkAttendanceRequest true "Sheet"
// @Success 201 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	var req models.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	att, err := h.attendance.Mark(c.Request.Context(), claims.Tenant, claims.Name, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, att)
}

// Sheet godoc
// @Summary Fetch the class sheet for one day
// @Tags Attendance
// @Produce json
// @Param date query string true "Day (YYYY-MM-DD)"
// @Param class query string true "Class"
// @Param medium query string true "Medium"
// @Param stream query string false "Stream"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) Sheet(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	att, err := h.attendance.Sheet(c.Request.Context(), claims.Tenant,
		c.Query("date"), c.Query("class"), c.Query("medium"), c.Query("stream"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, att, nil)
}

// Amend godoc
// @Summary Replace the marks of an existing sheet
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Sheet id"
// @Param payload body handler.amendAttendanceRequest true "Records"
// @Success 200 {object} response.Envelope
// @Router /attendance/{id} [put]
func (h *AttendanceHandler) Amend(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	var req amendAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if err := h.attendance.Amend(c.Request.Context(), claims.Tenant, c.Param("id"), req.Records); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "attendance amended")
}

// Report godoc
// @Summary Class sheets over a date range
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.AttendanceReportRequest true "Range"
// @Success 200 {object} response.Envelope
// @Router /attendance/report [post]
func (h *AttendanceHandler) Report(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	var req models.AttendanceReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	sheets, err := h.attendance.Report(c.Request.Context(), claims.Tenant, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheets, nil)
}

// Purge godoc
// @Summary Drop every sheet of one cohort
// @Tags Attendance
// @Produce json
// @Param class query string true "Class"
// @Param medium query string true "Medium"
// @Param stream query string false "Stream"
// @Success 200 {object} response.Envelope
// @Router /attendance [delete]
func (h *AttendanceHandler) Purge(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	n, err := h.attendance.Purge(c.Request.Context(), claims.Tenant,
		c.Query("class"), c.Query("medium"), c.Query("stream"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"deleted": n}, nil)
}

// MarkStaff godoc
// @Summary Mark a staff sheet for one day
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.MarkStaffAttendanceRequest true "Sheet"
// @Success 201 {object} response.Envelope
// @Router /attendance/staff [post]
func (h *AttendanceHandler) MarkStaff(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	var req models.MarkStaffAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	att, err := h.attendance.MarkStaff(c.Request.Context(), claims.Tenant, claims.Name, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, att)
}

// StaffSheet godoc
// @Summary Fetch the staff sheet for one day
// @Tags Attendance
// @Produce json
// @Param date query string true "Day (YYYY-MM-DD)"
// @Param jobTitle query string true "Job title"
// @Success 200 {object} response.Envelope
// @Router /attendance/staff [get]
func (h *AttendanceHandler) StaffSheet(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	att, err := h.attendance.StaffSheet(c.Request.Context(), claims.Tenant, c.Query("date"), c.Query("jobTitle"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, att, nil)
}

// AmendStaff godoc
// @Summary Replace the marks of an existing staff sheet
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Sheet id"
// @Param payload body handler.amendAttendanceRequest true "Records"
// @Success 200 {object} response.Envelope
// @Router /attendance/staff/{id} [put]
func (h *AttendanceHandler) AmendStaff(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	var req amendAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if err := h.attendance.AmendStaff(c.Request.Context(), claims.Tenant, c.Param("id"), req.Records); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "staff attendance amended")
}

// StaffReport godoc
// @Summary Staff sheets over a date range
// @Tags Attendance
// @Produce json
// @Param from query string true "From (YYYY-MM-DD)"
// @Param to query string true "To (YYYY-MM-DD)"
// @Param jobTitle query string true "Job title"
// @Success 200 {object} response.Envelope
// @Router /attendance/staff/report [get]
func (h *AttendanceHandler) StaffReport(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	sheets, err := h.attendance.StaffReport(c.Request.Context(), claims.Tenant,
		c.Query("from"), c.Query("to"), c.Query("jobTitle"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheets, nil)
}

// PurgeStaff godoc
// @Summary Drop every staff sheet of one job title
// @Tags Attendance
// @Produce json
// @Param jobTitle query string true "Job title"
// @Success 200 {object} response.Envelope
// @Router /attendance/staff [delete]
func (h *AttendanceHandler) PurgeStaff(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	n, err := h.attendance.PurgeStaff(c.Request.Context(), claims.Tenant, c.Query("jobTitle"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"deleted": n}, nil)
}
