package financing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/realestate/backend/internal/domain/financing"
)

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

// ==================== Schedule DTOs ====================

// StreamTermsInput are the terms of one stream in a request
type StreamTermsInput struct {
	Principal    decimal.Decimal  `json:"principal" binding:"required,gt=0"`
	Quantity     int              `json:"quantity" binding:"required,min=1"`
	FirstDueDate string           `json:"first_due_date" binding:"required,date"`
	AnnualRate   *decimal.Decimal `json:"annual_rate"` // fraction, 0.12 = 12%
	Rule         string           `json:"rule" binding:"omitempty,oneof=FLAT FRENCH"`
}

// PreviewScheduleRequest asks for a schedule without persisting it
type PreviewScheduleRequest struct {
	Currency string            `json:"currency" binding:"omitempty,len=3"`
	Lot      StreamTermsInput  `json:"lot" binding:"required"`
	Hu       *StreamTermsInput `json:"hu"`
}

// CreateFinancingRequest generates and stores the schedule of a sale
type CreateFinancingRequest struct {
	SaleID   uuid.UUID         `json:"sale_id" binding:"required"`
	SaleDate string            `json:"sale_date" binding:"required,date"`
	Currency string            `json:"currency" binding:"omitempty,len=3"`
	Lot      StreamTermsInput  `json:"lot" binding:"required"`
	Hu       *StreamTermsInput `json:"hu"`
	// CreatedBy is set from the authenticated user, never from the body
	CreatedBy *uuid.UUID `json:"-"`
}

// ValidateSaleDatesRequest checks the dates proposed for a new sale
type ValidateSaleDatesRequest struct {
	SaleDate           string `json:"sale_date" binding:"required,date"`
	PaymentDate        string `json:"payment_date" binding:"required,date"`
	FirstPaymentDateHu string `json:"first_payment_date_hu" binding:"omitempty,date"`
}

// ==================== Payment DTOs ====================

// ApplyPaymentRequest registers a manual payment
type ApplyPaymentRequest struct {
	Amount        decimal.Decimal `json:"amount" binding:"required,gt=0"`
	OperationDate string          `json:"operation_date" binding:"required,date"`
	Reference     string          `json:"reference" binding:"max=100"`
	CodeOperation string          `json:"code_operation" binding:"max=100"`
	BankName      string          `json:"bank_name" binding:"max=100"`
	Observation   string          `json:"observation" binding:"max=500"`
	CreatedBy     *uuid.UUID      `json:"-"`
}

// SubPaymentInput is one bank transaction of an auto-approved batch
type SubPaymentInput struct {
	BankName      string          `json:"bank_name" binding:"required,max=100"`
	Reference     string          `json:"reference" binding:"required,max=100"`
	CodeOperation string          `json:"code_operation" binding:"required,max=100"`
	OperationDate string          `json:"operation_date" binding:"omitempty,date"`
	Amount        decimal.Decimal `json:"amount" binding:"required,gt=0"`
	FileIndex     int             `json:"file_index" binding:"gte=0"`
}

// AutoApprovedBatchRequest applies a set of bank transactions as one payment
type AutoApprovedBatchRequest struct {
	AmountPaid    decimal.Decimal   `json:"amount_paid" binding:"required,gt=0"`
	OperationDate string            `json:"operation_date" binding:"required,date"`
	SubPayments   []SubPaymentInput `json:"sub_payments" binding:"required,min=1,dive"`
	Observation   string            `json:"observation" binding:"max=500"`
	CreatedBy     *uuid.UUID        `json:"-"`
}

// ImportBatchRequest carries the form fields sent with a statement upload.
// AmountPaid defaults to the sum of the statement rows.
type ImportBatchRequest struct {
	AmountPaid    *decimal.Decimal `form:"amount_paid"`
	OperationDate string           `form:"operation_date" binding:"required,date"`
	Observation   string           `form:"observation" binding:"max=500"`
	CreatedBy     *uuid.UUID       `form:"-"`
}

// CancelPaymentRequest reverses a payment
type CancelPaymentRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// PaymentListFilter narrows a payment listing
type PaymentListFilter struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Status   string `form:"status" binding:"omitempty,oneof=ACTIVE CANCELLED"`
	Kind     string `form:"kind" binding:"omitempty,oneof=MANUAL AUTO_APPROVED"`
}

// ==================== Installment DTOs ====================

// RecordLateFeeRequest sets the accrued late fee of an installment
type RecordLateFeeRequest struct {
	Accrued decimal.Decimal `json:"accrued" binding:"gte=0"`
}

// AmendmentInstallmentInput is one entry of an amendment's replacement list
type AmendmentInstallmentInput struct {
	Number  int             `json:"number" binding:"required,min=1"`
	DueDate string          `json:"due_date" binding:"required,date"`
	Amount  decimal.Decimal `json:"amount" binding:"gte=0"`
	Status  string          `json:"status" binding:"omitempty,oneof=PENDING PAID EXPIRED"`
}

// ApplyAmendmentRequest adjusts a financing total and replaces one stream
type ApplyAmendmentRequest struct {
	AdditionalAmount decimal.Decimal             `json:"additional_amount"`
	Stream           string                      `json:"stream" binding:"omitempty,oneof=LOT URBAN_DEVELOPMENT"`
	Installments     []AmendmentInstallmentInput `json:"installments" binding:"required,min=1,dive"`
	Observation      string                      `json:"observation" binding:"max=500"`
	CreatedBy        *uuid.UUID                  `json:"-"`
}

// ==================== Responses ====================

// StreamTermsResponse echoes the stored terms of a stream
type StreamTermsResponse struct {
	Principal    decimal.Decimal `json:"principal"`
	Quantity     int             `json:"quantity"`
	FirstDueDate string          `json:"first_due_date"`
	AnnualRate   decimal.Decimal `json:"annual_rate"`
	Rule         string          `json:"rule"`
}

// InstallmentResponse is an installment as seen on the request day
type InstallmentResponse struct {
	ID               uuid.UUID       `json:"id,omitempty"`
	Stream           string          `json:"stream"`
	Number           int             `json:"number"`
	DueDate          string          `json:"due_date"`
	DueAmount        decimal.Decimal `json:"due_amount"`
	PrincipalPortion decimal.Decimal `json:"principal_portion"`
	InterestPortion  decimal.Decimal `json:"interest_portion"`
	AmountPaid       decimal.Decimal `json:"amount_paid"`
	AmountPending    decimal.Decimal `json:"amount_pending"`
	LateFeeAccrued   decimal.Decimal `json:"late_fee_accrued"`
	LateFeePaid      decimal.Decimal `json:"late_fee_paid"`
	LateFeePending   decimal.Decimal `json:"late_fee_pending"`
	Status           string          `json:"status"`
}

// ScheduleResponse is a generated schedule
type ScheduleResponse struct {
	Currency     string                `json:"currency"`
	Total        decimal.Decimal       `json:"total"`
	Lot          []InstallmentResponse `json:"lot"`
	Hu           []InstallmentResponse `json:"hu,omitempty"`
	Installments []InstallmentResponse `json:"installments"` // combined, date ordered
}

// CalendarSummaryResponse aggregates a calendar
type CalendarSummaryResponse struct {
	TotalDue           decimal.Decimal      `json:"total_due"`
	TotalPaid          decimal.Decimal      `json:"total_paid"`
	TotalPending       decimal.Decimal      `json:"total_pending"`
	LateFeeAccrued     decimal.Decimal      `json:"late_fee_accrued"`
	LateFeeOutstanding decimal.Decimal      `json:"late_fee_outstanding"`
	OverdueAmount      decimal.Decimal      `json:"overdue_amount"`
	OverdueCount       int                  `json:"overdue_count"`
	PaidCount          int                  `json:"paid_count"`
	InstallmentCount   int                  `json:"installment_count"`
	NextDue            *InstallmentResponse `json:"next_due,omitempty"`
}

// CalendarResponse is the combined view of a financing's streams
type CalendarResponse struct {
	FinancingID  uuid.UUID               `json:"financing_id"`
	AsOf         string                  `json:"as_of"`
	Installments []InstallmentResponse   `json:"installments"`
	Summary      CalendarSummaryResponse `json:"summary"`
}

// FinancingResponse is a stored financing with its calendar
type FinancingResponse struct {
	ID          uuid.UUID            `json:"id"`
	TenantID    uuid.UUID            `json:"tenant_id"`
	SaleID      uuid.UUID            `json:"sale_id"`
	Currency    string               `json:"currency"`
	SaleDate    string               `json:"sale_date"`
	TotalAmount decimal.Decimal      `json:"total_amount"`
	LotTerms    StreamTermsResponse  `json:"lot_terms"`
	HuTerms     *StreamTermsResponse `json:"hu_terms,omitempty"`
	Version     int                  `json:"version"`
	Calendar    CalendarResponse     `json:"calendar"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// AllocationResponse is one installment paid by a payment
type AllocationResponse struct {
	InstallmentID    uuid.UUID       `json:"installment_id"`
	Stream           string          `json:"stream"`
	Number           int             `json:"number"`
	PrincipalApplied decimal.Decimal `json:"principal_applied"`
	LateFeeApplied   decimal.Decimal `json:"late_fee_applied"`
}

// PaymentResponse is a payment with its allocations
type PaymentResponse struct {
	ID            uuid.UUID            `json:"id"`
	FinancingID   uuid.UUID            `json:"financing_id"`
	Kind          string               `json:"kind"`
	Status        string               `json:"status"`
	Amount        decimal.Decimal      `json:"amount"`
	Allocated     decimal.Decimal      `json:"allocated"`
	Unapplied     decimal.Decimal      `json:"unapplied"`
	OperationDate string               `json:"operation_date"`
	Reference     string               `json:"reference,omitempty"`
	CodeOperation string               `json:"code_operation,omitempty"`
	BankName      string               `json:"bank_name,omitempty"`
	FileIndex     *int                 `json:"file_index,omitempty"`
	BatchID       *uuid.UUID           `json:"batch_id,omitempty"`
	Observation   string               `json:"observation,omitempty"`
	CancelReason  string               `json:"cancel_reason,omitempty"`
	CancelledAt   *time.Time           `json:"cancelled_at,omitempty"`
	CreatedBy     *uuid.UUID           `json:"created_by,omitempty"`
	Allocations   []AllocationResponse `json:"allocations"`
	CreatedAt     time.Time            `json:"created_at"`
}

// PaymentResultResponse is the outcome of applying a manual payment
type PaymentResultResponse struct {
	Payment      PaymentResponse       `json:"payment"`
	Allocated    decimal.Decimal       `json:"allocated"`
	Residual     decimal.Decimal       `json:"residual"`
	Installments []InstallmentResponse `json:"installments"` // the installments touched
}

// BatchResultResponse is the outcome of an auto-approved batch
type BatchResultResponse struct {
	BatchID      uuid.UUID             `json:"batch_id"`
	Payments     []PaymentResponse     `json:"payments"`
	Allocated    decimal.Decimal       `json:"allocated"`
	Residual     decimal.Decimal       `json:"residual"`
	Installments []InstallmentResponse `json:"installments"`
}

// CancelPaymentResponse is the outcome of a cancellation
type CancelPaymentResponse struct {
	Payment      PaymentResponse       `json:"payment"`
	Reversed     decimal.Decimal       `json:"reversed"`
	Installments []InstallmentResponse `json:"installments"`
}

// SnapshotResponse is an installment as it was recorded in an amendment
type SnapshotResponse struct {
	Number     int             `json:"number"`
	DueDate    string          `json:"due_date"`
	DueAmount  decimal.Decimal `json:"due_amount"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	Status     string          `json:"status"`
}

// AmendmentResponse is an amendment audit record
type AmendmentResponse struct {
	ID               uuid.UUID          `json:"id"`
	FinancingID      uuid.UUID          `json:"financing_id"`
	Stream           string             `json:"stream"`
	AdditionalAmount decimal.Decimal    `json:"additional_amount"`
	PreviousTotal    decimal.Decimal    `json:"previous_total"`
	NewTotal         decimal.Decimal    `json:"new_total"`
	Observation      string             `json:"observation,omitempty"`
	Previous         []SnapshotResponse `json:"previous"`
	Result           []SnapshotResponse `json:"result"`
	CreatedBy        *uuid.UUID         `json:"created_by,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
}

// AmendmentResultResponse is the outcome of applying an amendment
type AmendmentResultResponse struct {
	Amendment  AmendmentResponse `json:"amendment"`
	RemovedIDs []uuid.UUID       `json:"removed_installment_ids,omitempty"`
	Calendar   CalendarResponse  `json:"calendar"`
}

// ==================== Converters ====================

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// ToInstallmentResponse converts an installment, deriving its status for today
func ToInstallmentResponse(i *financing.Installment, today time.Time) InstallmentResponse {
	return InstallmentResponse{
		ID:               i.ID,
		Stream:           string(i.Stream),
		Number:           i.Number,
		DueDate:          formatDate(i.DueDate),
		DueAmount:        i.DueAmount,
		PrincipalPortion: i.PrincipalPortion,
		InterestPortion:  i.InterestPortion,
		AmountPaid:       i.AmountPaid,
		AmountPending:    i.AmountPending(),
		LateFeeAccrued:   i.LateFeeAccrued,
		LateFeePaid:      i.LateFeePaid,
		LateFeePending:   i.LateFeePending(),
		Status:           string(i.EffectiveStatus(today)),
	}
}

// ToInstallmentResponses converts a list of installments
func ToInstallmentResponses(items []*financing.Installment, today time.Time) []InstallmentResponse {
	out := make([]InstallmentResponse, len(items))
	for i, inst := range items {
		out[i] = ToInstallmentResponse(inst, today)
	}
	return out
}

// ToScheduleResponse converts a generated schedule
func ToScheduleResponse(s *financing.Schedule, currency string, today time.Time) ScheduleResponse {
	resp := ScheduleResponse{
		Currency:     currency,
		Total:        s.Total,
		Lot:          ToInstallmentResponses(s.Lot, today),
		Installments: ToInstallmentResponses(s.Combined(), today),
	}
	if len(s.Hu) > 0 {
		resp.Hu = ToInstallmentResponses(s.Hu, today)
	}
	return resp
}

// ToCalendarResponse converts a combined calendar
func ToCalendarResponse(financingID uuid.UUID, cal financing.CombinedCalendar, today time.Time) CalendarResponse {
	items := make([]InstallmentResponse, len(cal.Entries))
	for i, e := range cal.Entries {
		items[i] = ToInstallmentResponse(e.Installment, today)
	}
	sum := cal.Summary
	resp := CalendarResponse{
		FinancingID:  financingID,
		AsOf:         formatDate(today),
		Installments: items,
		Summary: CalendarSummaryResponse{
			TotalDue:           sum.TotalDue,
			TotalPaid:          sum.TotalPaid,
			TotalPending:       sum.TotalPending,
			LateFeeAccrued:     sum.LateFeeAccrued,
			LateFeeOutstanding: sum.LateFeeOutstanding,
			OverdueAmount:      sum.OverdueAmount,
			OverdueCount:       sum.OverdueCount,
			PaidCount:          sum.PaidCount,
			InstallmentCount:   sum.InstallmentCount,
		},
	}
	if sum.NextDue != nil {
		next := ToInstallmentResponse(sum.NextDue, today)
		resp.Summary.NextDue = &next
	}
	return resp
}

func toStreamTermsResponse(t financing.StreamTerms) StreamTermsResponse {
	return StreamTermsResponse{
		Principal:    t.Principal,
		Quantity:     t.Quantity,
		FirstDueDate: formatDate(t.FirstDueDate),
		AnnualRate:   t.AnnualRate,
		Rule:         string(t.EffectiveRule()),
	}
}

// ToFinancingResponse converts a financing and its calendar as seen today
func ToFinancingResponse(f *financing.Financing, today time.Time) FinancingResponse {
	resp := FinancingResponse{
		ID:          f.ID,
		TenantID:    f.TenantID,
		SaleID:      f.SaleID,
		Currency:    string(f.Currency),
		SaleDate:    formatDate(f.SaleDate),
		TotalAmount: f.TotalAmount,
		LotTerms:    toStreamTermsResponse(f.LotTerms),
		Version:     f.Version,
		Calendar:    ToCalendarResponse(f.ID, f.Calendar(today), today),
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
	if f.HuTerms != nil {
		hu := toStreamTermsResponse(*f.HuTerms)
		resp.HuTerms = &hu
	}
	return resp
}

// ToPaymentResponse converts a payment
func ToPaymentResponse(p *financing.Payment) PaymentResponse {
	allocations := make([]AllocationResponse, len(p.Allocations))
	for i, a := range p.Allocations {
		allocations[i] = AllocationResponse{
			InstallmentID:    a.InstallmentID,
			Stream:           string(a.Stream),
			Number:           a.Number,
			PrincipalApplied: a.PrincipalApplied,
			LateFeeApplied:   a.LateFeeApplied,
		}
	}
	return PaymentResponse{
		ID:            p.ID,
		FinancingID:   p.FinancingID,
		Kind:          string(p.Kind),
		Status:        string(p.Status),
		Amount:        p.Amount,
		Allocated:     p.TotalAllocated(),
		Unapplied:     p.Unapplied,
		OperationDate: formatDate(p.OperationDate),
		Reference:     p.Reference,
		CodeOperation: p.CodeOperation,
		BankName:      p.BankName,
		FileIndex:     p.FileIndex,
		BatchID:       p.BatchID,
		Observation:   p.Observation,
		CancelReason:  p.CancelReason,
		CancelledAt:   p.CancelledAt,
		CreatedBy:     p.CreatedBy,
		Allocations:   allocations,
		CreatedAt:     p.CreatedAt,
	}
}

// ToPaymentResponses converts a payment listing
func ToPaymentResponses(payments []financing.Payment) []PaymentResponse {
	out := make([]PaymentResponse, len(payments))
	for i := range payments {
		out[i] = ToPaymentResponse(&payments[i])
	}
	return out
}

func toSnapshotResponses(items []financing.InstallmentSnapshot) []SnapshotResponse {
	out := make([]SnapshotResponse, len(items))
	for i, s := range items {
		out[i] = SnapshotResponse{
			Number:     s.Number,
			DueDate:    formatDate(s.DueDate),
			DueAmount:  s.DueAmount,
			AmountPaid: s.AmountPaid,
			Status:     string(s.Status),
		}
	}
	return out
}

// ToAmendmentResponse converts an amendment audit record
func ToAmendmentResponse(a *financing.Amendment) AmendmentResponse {
	return AmendmentResponse{
		ID:               a.ID,
		FinancingID:      a.FinancingID,
		Stream:           string(a.Stream),
		AdditionalAmount: a.AdditionalAmount,
		PreviousTotal:    a.PreviousTotal,
		NewTotal:         a.NewTotal,
		Observation:      a.Observation,
		Previous:         toSnapshotResponses(a.Previous),
		Result:           toSnapshotResponses(a.Result),
		CreatedBy:        a.CreatedBy,
		CreatedAt:        a.CreatedAt,
	}
}

// ToAmendmentResponses converts an amendment listing
func ToAmendmentResponses(items []financing.Amendment) []AmendmentResponse {
	out := make([]AmendmentResponse, len(items))
	for i := range items {
		out[i] = ToAmendmentResponse(&items[i])
	}
	return out
}
