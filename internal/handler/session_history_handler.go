package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vidyadesk/school-api/internal/models"
	"github.com/vidyadesk/school-api/internal/service"
	appErrors "github.com/vidyadesk/school-api/pkg/errors"
	"github.com/vidyadesk/school-api/pkg/response"
)

// SessionHistoryHandler exposes the session archive endpoints.
type SessionHistoryHandler struct {
	histories *service.SessionHistoryService
}

// NewSessionHistoryHandler constructs SessionHistoryHandler.
func NewSessionHistoryHandler(histories *service.SessionHistoryService) *SessionHistoryHandler {
	return &SessionHistoryHandler{histories: histories}
}

// List godoc
// @Summary List archived session records
// @Tags SessionHistory
// @Produce json
// @Param session query string false "Session"
// @Param class query string false "Class"
// @Param medium query string false "Medium"
// @Param stream query string false "Stream"
// @Param search query string false "Search by name or registration number"
// @Success 200 {object} response.Envelope
// @Router /sessionHistory [get]
func (h *SessionHistoryHandler) List(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	filter := models.SessionHistoryFilter{
		Session: c.Query("session"),
		Class:   c.Query("class"),
		Medium:  c.Query("medium"),
		Stream:  c.Query("stream"),
		Search:  strings.TrimSpace(c.Query("search")),
	}
	histories, err := h.histories.List(c.Request.Context(), claims.Tenant, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, histories, nil)
}

// Promote godoc
// @Summary Close out a cohort's session after the terminal exam
// @Tags SessionHistory
// @Accept json
// @Produce json
// @Param payload body models.CohortQuery true "Cohort"
// @Success 200 {object} response.Envelope
// @Router /sessionHistory/promote [post]
func (h *SessionHistoryHandler) Promote(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	var q models.CohortQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	report, err := h.histories.Promote(c.Request.Context(), claims.Tenant, q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Amend godoc
// @Summary Amend an archived session record
// @Tags SessionHistory
// @Accept json
// @Produce json
// @Param registrationNo path string true "Registration number"
// @Param session path string true "Session"
// @Param class path string true "Class"
// @Param payload body models.HistoryEditRequest true "Fields to amend"
// @Success 200 {object} response.Envelope
// @Router /sessionHistory/edit/{registrationNo}/{session}/{class} [patch]
func (h *SessionHistoryHandler) Amend(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	var req models.HistoryEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	history, err := h.histories.Amend(c.Request.Context(), claims.Tenant,
		c.Param("registrationNo"), c.Param("session"), c.Param("class"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// SettleDues godoc
// @Summary Record a payment against an archived session balance
// @Tags SessionHistory
// @Accept json
// @Produce json
// @Param registrationNo path string true "Registration number"
// @Param session path string true "Session"
// @Param class path string true "Class"
// @Param payload body models.HistoryPaymentRequest true "Payment"
// @Success 200 {object} response.Envelope
// @Router /sessionHistory/edit/{registrationNo}/{session}/{class} [put]
func (h *SessionHistoryHandler) SettleDues(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	var req models.HistoryPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	receipt, err := h.histories.SettleDues(c.Request.Context(), claims.Tenant,
		c.Param("registrationNo"), c.Param("session"), c.Param("class"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, receipt, nil)
}
