package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vidyadesk/school-api/internal/models"
	"github.com/vidyadesk/school-api/internal/service"
	appErrors "github.com/vidyadesk/school-api/pkg/errors"
	"github.com/vidyadesk/school-api/pkg/response"
)

// FeeHandler exposes payment and receipt endpoints.
type FeeHandler struct {
	fees *service.FeeService
}

// NewFeeHandler constructs FeeHandler.
func NewFeeHandler(fees *service.FeeService) *FeeHandler {
	return &FeeHandler{fees: fees}
}

func receiptNoParam(c *gin.Context) (int64, bool) {
	receiptNo, err := strconv.ParseInt(c.Param("receiptNo"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "receipt number must be numeric"))
		return 0, false
	}
	return receiptNo, true
}

// RecordPayment godoc
// @Summary Record a fee payment and issue a receipt
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body models.PaymentRequest true "Payment"
// @Success 201 {object} response.Envelope
// @Router /fees/pay [post]
func (h *FeeHandler) RecordPayment(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	var req models.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	receipt, err := h.fees.RecordPayment(c.Request.Context(), claims.Tenant, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, receipt)
}

// GetReceipt godoc
// @Summary Fetch one receipt by number
// @Tags Fees
// @Produce json
// @Param receiptNo path int true "Receipt number"
// @Success 200 {object} response.Envelope
// @Router /fees/receipt/{receiptNo} [get]
func (h *FeeHandler) GetReceipt(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	receiptNo, ok := receiptNoParam(c)
	if !ok {
		return
	}
	receipt, err := h.fees.GetReceipt(c.Request.Context(), claims.Tenant, receiptNo)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, receipt, nil)
}

// EditReceipt godoc
// @Summary Correct an issued receipt
// @Tags Fees
// @Accept json
// @Produce json
// @Param receiptNo path int true "Receipt number"
// @Param payload body models.ReceiptEditRequest true "Corrected receipt"
// @Success 200 {object} response.Envelope
// @Router /fees/receipt/{receiptNo} [put]
func (h *FeeHandler) EditReceipt(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	receiptNo, ok := receiptNoParam(c)
	if !ok {
		return
	}
	var req models.ReceiptEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	receipt, err := h.fees.EditReceipt(c.Request.Context(), claims.Tenant, receiptNo, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, receipt, nil)
}

// Transactions godoc
// @Summary A student's receipts, newest first
// @Tags Fees
// @Produce json
// @Param registrationNo path string true "Registration number"
// @Success 200 {object} response.Envelope
// @Router /fees/transactions/{registrationNo} [get]
func (h *FeeHandler) Transactions(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	receipts, err := h.fees.Transactions(c.Request.Context(), claims.Tenant, c.Param("registrationNo"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, receipts, nil)
}

// Daywise godoc
// @Summary Receipts issued on one calendar day
// @Tags Fees
// @Produce json
// @Param date query string false "Day (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Router /fees/daywise [get]
func (h *FeeHandler) Daywise(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	collection, err := h.fees.Daywise(c.Request.Context(), claims.Tenant, c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, collection, nil)
}
