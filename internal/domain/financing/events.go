package financing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/realestate/backend/internal/domain/shared"
)

// AggregateTypeFinancing is the aggregate type carried by financing events
const AggregateTypeFinancing = "Financing"

// Event types
const (
	EventTypeFinancingCreated = "FinancingCreated"
	EventTypePaymentApplied   = "PaymentApplied"
	EventTypePaymentCancelled = "PaymentCancelled"
	EventTypeAmendmentApplied = "AmendmentApplied"
	EventTypeLateFeeRecorded  = "LateFeeRecorded"
)

// FinancingCreatedEvent is raised when a schedule is generated for a sale
type FinancingCreatedEvent struct {
	shared.BaseDomainEvent
	SaleID           uuid.UUID       `json:"sale_id"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	InstallmentCount int             `json:"installment_count"`
}

// PaymentAppliedEvent is raised for every payment allocated to the calendar
type PaymentAppliedEvent struct {
	shared.BaseDomainEvent
	PaymentID uuid.UUID       `json:"payment_id"`
	Kind      PaymentKind     `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	Allocated decimal.Decimal `json:"allocated"`
	Unapplied decimal.Decimal `json:"unapplied"`
	BatchID   *uuid.UUID      `json:"batch_id,omitempty"`
}

// PaymentCancelledEvent is raised when a payment is reversed
type PaymentCancelledEvent struct {
	shared.BaseDomainEvent
	PaymentID uuid.UUID       `json:"payment_id"`
	Reversed  decimal.Decimal `json:"reversed"`
	Reason    string          `json:"reason"`
}

// AmendmentAppliedEvent is raised when an amendment replaces part of the schedule
type AmendmentAppliedEvent struct {
	shared.BaseDomainEvent
	AmendmentID      uuid.UUID       `json:"amendment_id"`
	AdditionalAmount decimal.Decimal `json:"additional_amount"`
	NewTotal         decimal.Decimal `json:"new_total"`
}

// LateFeeRecordedEvent is raised when the accrued late fee of an installment changes
type LateFeeRecordedEvent struct {
	shared.BaseDomainEvent
	InstallmentID uuid.UUID       `json:"installment_id"`
	Previous      decimal.Decimal `json:"previous"`
	Accrued       decimal.Decimal `json:"accrued"`
}

func newEvent(eventType string, f *Financing) shared.BaseDomainEvent {
	return shared.NewBaseDomainEvent(eventType, AggregateTypeFinancing, f.ID, f.TenantID)
}
