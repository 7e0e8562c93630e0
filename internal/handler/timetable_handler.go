package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vidyadesk/school-api/internal/models"
	"github.com/vidyadesk/school-api/internal/service"
	appErrors "github.com/vidyadesk/school-api/pkg/errors"
	"github.com/vidyadesk/school-api/pkg/response"
)

// TimetableHandler exposes exam schedule endpoints.
type TimetableHandler struct {
	timetables *service.TimetableService
}

// NewTimetableHandler constructs TimetableHandler.
func NewTimetableHandler(timetables *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{timetables: timetables}
}

// Publish godoc
// @Summary Publish or replace an exam schedule
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body models.PublishTimetableRequest true "Schedule"
// @Success 200 {object} response.Envelope
// @Router /exam-timetable [post]
func (h *TimetableHandler) Publish(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	var req models.PublishTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	tt, err := h.timetables.Publish(c.Request.Context(), claims.Tenant, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tt, nil)
}

// Get godoc
// @Summary Published schedule for one class and exam
// @Tags Timetable
// @Produce json
// @Param class query string true "Class"
// @Param medium query string true "Medium"
// @Param examType query string true "Exam type"
// @Param tenant query string false "School name, required without a session"
// @Success 200 {object} response.Envelope
// @Router /exam-timetable [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	tenant, _, ok := requestTenant(c)
	if !ok {
		return
	}
	tt, err := h.timetables.Get(c.Request.Context(), tenant,
		c.Query("class"), c.Query("medium"), c.Query("examType"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tt, nil)
}
