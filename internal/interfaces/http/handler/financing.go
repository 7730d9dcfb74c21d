package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	financingapp "github.com/realestate/backend/internal/application/financing"
	"github.com/realestate/backend/internal/domain/shared"
	"github.com/realestate/backend/internal/interfaces/http/dto"
)

// maxImportFileSize caps bank statement uploads
const maxImportFileSize = 5 << 20

// FinancingHandler handles financing, payment and amendment endpoints
type FinancingHandler struct {
	BaseHandler
	financingService *financingapp.FinancingService
}

// NewFinancingHandler creates a new FinancingHandler
func NewFinancingHandler(financingService *financingapp.FinancingService) *FinancingHandler {
	return &FinancingHandler{
		financingService: financingService,
	}
}

// tenant resolves the tenant or answers 401
func (h *FinancingHandler) tenant(c *gin.Context) (uuid.UUID, bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identification required")
		return uuid.Nil, false
	}
	return tenantID, true
}

// pathID parses a uuid path parameter or answers 400
func (h *FinancingHandler) pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

// PreviewSchedule godoc
// @Summary      Preview an installment schedule
// @Description  Generates the lot and urban development schedules for the given terms without persisting anything
// @Tags         financings
// @Accept       json
// @Produce      json
// @Param        request body financingapp.PreviewScheduleRequest true "Schedule terms"
// @Success      200 {object} dto.Response{data=financingapp.ScheduleResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /financings/schedule/preview [post]
func (h *FinancingHandler) PreviewSchedule(c *gin.Context) {
	var req financingapp.PreviewScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	schedule, err := h.financingService.PreviewSchedule(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, schedule)
}

// ValidateSaleDates godoc
// @Summary      Validate sale dates
// @Description  Checks that the first payment dates are not before the sale date
// @Tags         financings
// @Accept       json
// @Produce      json
// @Param        request body financingapp.ValidateSaleDatesRequest true "Sale dates"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /financings/validate-dates [post]
func (h *FinancingHandler) ValidateSaleDates(c *gin.Context) {
	var req financingapp.ValidateSaleDatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	if err := h.financingService.ValidateSaleDates(c.Request.Context(), req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"valid": true})
}

// Create godoc
// @Summary      Create a financing
// @Description  Validates the terms, generates both schedules and persists the financing of a sale
// @Tags         financings
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID"
// @Param        request body financingapp.CreateFinancingRequest true "Financing terms"
// @Success      201 {object} dto.Response{data=financingapp.FinancingResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /financings [post]
func (h *FinancingHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	var req financingapp.CreateFinancingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.CreatedBy = getUserID(c)

	f, err := h.financingService.CreateFinancing(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, f)
}

// GetByID godoc
// @Summary      Get a financing
// @Description  Returns the financing with its combined calendar as of today
// @Tags         financings
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID"
// @Param        id path string true "Financing ID" format(uuid)
// @Success      200 {object} dto.Response{data=financingapp.FinancingResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /financings/{id} [get]
func (h *FinancingHandler) GetByID(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	f, err := h.financingService.GetFinancing(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, f)
}

// GetCalendar godoc
// @Summary      Get the installment calendar
// @Description  Returns the combined, date ordered calendar with a summary; filter by stream with ?stream=LOT or URBAN_DEVELOPMENT
// @Tags         financings
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID"
// @Param        id path string true "Financing ID" format(uuid)
// @Param        stream query string false "Stream filter" Enums(LOT, URBAN_DEVELOPMENT)
// @Success      200 {object} dto.Response{data=financingapp.CalendarResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /financings/{id}/installments [get]
func (h *FinancingHandler) GetCalendar(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	cal, err := h.financingService.GetCalendar(c.Request.Context(), tenantID, id, c.Query("stream"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cal)
}

// RecordLateFee godoc
// @Summary      Record an accrued late fee
// @Description  Sets the late fee accrued on an installment; the fee is settled before principal by later payments
// @Tags         financings
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID"
// @Param        id path string true "Financing ID" format(uuid)
// @Param        installmentId path string true "Installment ID" format(uuid)
// @Param        request body financingapp.RecordLateFeeRequest true "Accrued fee"
// @Success      200 {object} dto.Response{data=financingapp.InstallmentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /financings/{id}/installments/{installmentId}/late-fee [put]
func (h *FinancingHandler) RecordLateFee(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	installmentID, ok := h.pathID(c, "installmentId")
	if !ok {
		return
	}

	var req financingapp.RecordLateFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	inst, err := h.financingService.RecordLateFee(c.Request.Context(), tenantID, id, installmentID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inst)
}

// ApplyPayment godoc
// @Summary      Apply a manual payment
// @Description  Allocates the amount to outstanding installments in due date order; any residual is reported, not rejected
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID"
// @Param        Idempotency-Key header string false "Idempotency key"
// @Param        id path string true "Financing ID" format(uuid)
// @Param        request body financingapp.ApplyPaymentRequest true "Payment"
// @Success      201 {object} dto.Response{data=financingapp.PaymentResultResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /financings/{id}/payments [post]
func (h *FinancingHandler) ApplyPayment(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req financingapp.ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.CreatedBy = getUserID(c)

	result, err := h.financingService.ApplyPayment(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// ListPayments godoc
// @Summary      List payments
// @Description  Lists the payments of a financing ordered by operation date
// @Tags         payments
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID"
// @Param        id path string true "Financing ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Param        status query string false "Payment status" Enums(ACTIVE, CANCELLED)
// @Param        kind query string false "Payment kind" Enums(MANUAL, AUTO_APPROVED)
// @Success      200 {object} dto.Response{data=[]financingapp.PaymentResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /financings/{id}/payments [get]
func (h *FinancingHandler) ListPayments(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var filter financingapp.PaymentListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = shared.DefaultFilter().PageSize
	}

	payments, total, err := h.financingService.ListPayments(c.Request.Context(), tenantID, id, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, payments, total, filter.Page, filter.PageSize)
}

// ApplyAutoApprovedBatch godoc
// @Summary      Apply an auto-approved batch
// @Description  Allocates the parent amount once and records one payment per bank transaction; sub-payment amounts must add up to the parent amount
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID"
// @Param        Idempotency-Key header string false "Idempotency key"
// @Param        id path string true "Financing ID" format(uuid)
// @Param        request body financingapp.AutoApprovedBatchRequest true "Batch"
// @Success      201 {object} dto.Response{data=financingapp.BatchResultResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /financings/{id}/payments/auto-approved [post]
func (h *FinancingHandler) ApplyAutoApprovedBatch(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req financingapp.AutoApprovedBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.CreatedBy = getUserID(c)

	result, err := h.financingService.ApplyAutoApprovedBatch(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// ImportAutoApprovedBatch godoc
// @Summary      Import an auto-approved batch from a bank statement
// @Description  Parses a CSV statement (bank_name, reference, code_operation, operation_date, amount) and applies it as one batch
// @Tags         payments
// @Accept       multipart/form-data
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID"
// @Param        Idempotency-Key header string false "Idempotency key"
// @Param        id path string true "Financing ID" format(uuid)
// @Param        file formData file true "CSV statement"
// @Param        operation_date formData string true "Batch operation date (YYYY-MM-DD)"
// @Param        amount_paid formData number false "Parent amount; defaults to the statement total"
// @Param        observation formData string false "Observation"
// @Success      201 {object} dto.Response{data=financingapp.BatchResultResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      413 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /financings/{id}/payments/auto-approved/import [post]
func (h *FinancingHandler) ImportAutoApprovedBatch(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req financingapp.ImportBatchRequest
	if err := c.ShouldBind(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.CreatedBy = getUserID(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.BadRequest(c, "file is required")
		return
	}
	defer file.Close()

	if header.Size > maxImportFileSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeTooLarge, "file exceeds maximum size of 5MB")
		return
	}

	result, err := h.financingService.ImportAutoApprovedBatch(c.Request.Context(), tenantID, id, file, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// CancelPayment godoc
// @Summary      Cancel a payment
// @Description  Reverses the allocations of a payment and marks it cancelled; a reason is required
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID"
// @Param        id path string true "Payment ID" format(uuid)
// @Param        request body financingapp.CancelPaymentRequest true "Cancellation"
// @Success      200 {object} dto.Response{data=financingapp.CancelPaymentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payments/{id}/cancel [post]
func (h *FinancingHandler) CancelPayment(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req financingapp.CancelPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.financingService.CancelPayment(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ApplyAmendment godoc
// @Summary      Amend the installment calendar
// @Description  Replaces the unpaid part of the calendar; paid installments must be preserved and the new total must match the old total plus the additional amount
// @Tags         amendments
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID"
// @Param        id path string true "Financing ID" format(uuid)
// @Param        request body financingapp.ApplyAmendmentRequest true "Amendment"
// @Success      201 {object} dto.Response{data=financingapp.AmendmentResultResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /financings/{id}/amendments [post]
func (h *FinancingHandler) ApplyAmendment(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req financingapp.ApplyAmendmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.CreatedBy = getUserID(c)

	result, err := h.financingService.ApplyAmendment(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// ListAmendments godoc
// @Summary      List amendments
// @Description  Returns the amendment audit trail of a financing, oldest first
// @Tags         amendments
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID"
// @Param        id path string true "Financing ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]financingapp.AmendmentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /financings/{id}/amendments [get]
func (h *FinancingHandler) ListAmendments(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	amendments, err := h.financingService.ListAmendments(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, amendments)
}
