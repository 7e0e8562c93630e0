package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vidyadesk/school-api/internal/models"
	"github.com/vidyadesk/school-api/internal/service"
	appErrors "github.com/vidyadesk/school-api/pkg/errors"
	"github.com/vidyadesk/school-api/pkg/export"
	"github.com/vidyadesk/school-api/pkg/response"
)

// StudentHandler exposes enrollment and roster endpoints.
type StudentHandler struct {
	students *service.StudentService
	csv      *export.CSVExporter
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students *service.StudentService) *StudentHandler {
	return &StudentHandler{students: students, csv: export.NewCSVExporter()}
}

func studentFilterFromQuery(c *gin.Context) models.StudentFilter {
	return models.StudentFilter{
		Class:  c.Query("class"),
		Medium: c.Query("medium"),
		Stream: c.Query("stream"),
		Search: strings.TrimSpace(c.Query("search")),
	}
}

// Register godoc
// @Summary Register a student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body models.RegisterStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /students/register [post]
func (h *StudentHandler) Register(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	var req models.RegisterStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	student, receipt, err := h.students.Register(c.Request.Context(), claims.Tenant, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"student": student, "receipt": receipt})
}

// Overview godoc
// @Summary Class-wise headcounts
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students/overview [get]
func (h *StudentHandler) Overview(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	overview, err := h.students.Overview(c.Request.Context(), claims.Tenant)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}

// List godoc
// @Summary List students of a class
// @Tags Students
// @Produce json
// @Param class query string false "Class"
// @Param medium query string false "Medium"
// @Param stream query string false "Stream"
// @Param search query string false "Search by name or registration number"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	students, err := h.students.List(c.Request.Context(), claims.Tenant, studentFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// Get godoc
// @Summary Student details
// @Tags Students
// @Produce json
// @Param registrationNo path string true "Registration number"
// @Success 200 {object} response.Envelope
// @Router /students/details/{registrationNo} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	student, err := h.students.Get(c.Request.Context(), claims.Tenant, c.Param("registrationNo"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Update godoc
// @Summary Edit a student profile
// @Tags Students
// @Accept json
// @Produce json
// @Param registrationNo path string true "Registration number"
// @Param payload body models.UpdateStudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Router /students/edit/{registrationNo} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	var req models.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	student, err := h.students.Update(c.Request.Context(), claims.Tenant, c.Param("registrationNo"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Remove a student
// @Tags Students
// @Param registrationNo path string true "Registration number"
// @Success 204
// @Router /students/{registrationNo} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	if err := h.students.Delete(c.Request.Context(), claims.Tenant, c.Param("registrationNo")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// BulkDelete godoc
// @Summary Remove a batch of students
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body models.BulkDeleteRequest true "Registration numbers"
// @Success 200 {object} response.Envelope
// @Router /students/delete-multiple [post]
func (h *StudentHandler) BulkDelete(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	var req models.BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	n, err := h.students.BulkDelete(c.Request.Context(), claims.Tenant, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"deleted": n}, nil)
}

// SetClassFees godoc
// @Summary Set the fee structure for a cohort
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body models.ClassFeesRequest true "Fee structure"
// @Success 200 {object} response.Envelope
// @Router /students/total-fees [put]
func (h *StudentHandler) SetClassFees(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	var req models.ClassFeesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	n, err := h.students.SetClassFees(c.Request.Context(), claims.Tenant, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"updated": n}, nil)
}

// Export godoc
// @Summary Download the filtered roster as CSV
// @Tags Students
// @Produce text/csv
// @Success 200 {string} string "CSV document"
// @Router /students/export [get]
func (h *StudentHandler) Export(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	ds, err := h.students.ExportRoster(c.Request.Context(), claims.Tenant, studentFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	payload, err := h.csv.Render(ds)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("roster-%s.csv", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", payload)
}

// Import godoc
// @Summary Bulk-enroll students from a CSV upload
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV document"
// @Success 200 {object} response.Envelope
// @Router /students/import [post]
func (h *StudentHandler) Import(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file upload is required"))
		return
	}
	src, err := file.Open()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "could not read upload"))
		return
	}
	defer src.Close()

	report, err := h.students.ImportRoster(c.Request.Context(), claims.Tenant, src)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
