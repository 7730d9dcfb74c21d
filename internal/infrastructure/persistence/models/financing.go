package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/realestate/backend/internal/domain/financing"
	"github.com/realestate/backend/internal/domain/shared/valueobject"
)

// StreamTermsRecord is the stored form of one stream's terms
type StreamTermsRecord struct {
	Principal    decimal.Decimal `json:"principal"`
	Quantity     int             `json:"quantity"`
	FirstDueDate time.Time       `json:"first_due_date"`
	AnnualRate   decimal.Decimal `json:"annual_rate"`
	Rule         string          `json:"rule"`
}

func streamTermsRecord(t financing.StreamTerms) StreamTermsRecord {
	return StreamTermsRecord{
		Principal:    t.Principal,
		Quantity:     t.Quantity,
		FirstDueDate: t.FirstDueDate,
		AnnualRate:   t.AnnualRate,
		Rule:         string(t.Rule),
	}
}

func (r StreamTermsRecord) toDomain() financing.StreamTerms {
	return financing.StreamTerms{
		Principal:    r.Principal,
		Quantity:     r.Quantity,
		FirstDueDate: r.FirstDueDate,
		AnnualRate:   r.AnnualRate,
		Rule:         financing.AmortizationRule(r.Rule),
	}
}

// FinancingModel is the persistence model for the Financing aggregate root
type FinancingModel struct {
	TenantAggregateModel
	SaleID       uuid.UUID                      `gorm:"type:uuid;not null;uniqueIndex"`
	Currency     string                         `gorm:"type:varchar(3);not null"`
	SaleDate     time.Time                      `gorm:"type:date;not null"`
	LotTerms     JSONColumn[StreamTermsRecord]  `gorm:"type:jsonb;not null"`
	HuTerms      JSONColumn[*StreamTermsRecord] `gorm:"type:jsonb"`
	TotalAmount  decimal.Decimal                `gorm:"type:decimal(18,2);not null"`
	Installments []InstallmentModel             `gorm:"foreignKey:FinancingID;references:ID"`
}

// TableName returns the table name for GORM
func (FinancingModel) TableName() string {
	return "financings"
}

// ToDomain converts the model and its preloaded installments to the aggregate
func (m *FinancingModel) ToDomain() *financing.Financing {
	f := &financing.Financing{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		SaleID:              m.SaleID,
		Currency:            valueobject.Currency(m.Currency),
		SaleDate:            m.SaleDate.UTC(),
		LotTerms:            m.LotTerms.Data.toDomain(),
		TotalAmount:         m.TotalAmount,
		Installments:        make([]*financing.Installment, len(m.Installments)),
	}
	if m.HuTerms.Data != nil {
		hu := m.HuTerms.Data.toDomain()
		f.HuTerms = &hu
	}
	for i := range m.Installments {
		f.Installments[i] = m.Installments[i].ToDomain()
	}
	return f
}

// FinancingModelFromDomain converts the aggregate header. Installments are
// converted separately so callers can write only the rows that changed.
func FinancingModelFromDomain(f *financing.Financing) *FinancingModel {
	m := &FinancingModel{
		SaleID:      f.SaleID,
		Currency:    string(f.Currency),
		SaleDate:    f.SaleDate,
		LotTerms:    NewJSONColumn(streamTermsRecord(f.LotTerms)),
		TotalAmount: f.TotalAmount,
	}
	m.FromDomainTenantAggregateRoot(f.TenantAggregateRoot)
	if f.HuTerms != nil {
		hu := streamTermsRecord(*f.HuTerms)
		m.HuTerms = NewJSONColumn(&hu)
	}
	return m
}

// InstallmentModel is the persistence model for an installment
type InstallmentModel struct {
	TenantModel
	FinancingID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_installment_calendar,priority:1"`
	Stream           string          `gorm:"type:varchar(20);not null"`
	Number           int             `gorm:"not null"`
	DueDate          time.Time       `gorm:"type:date;not null;index:idx_installment_calendar,priority:2"`
	DueAmount        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	PrincipalPortion decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	InterestPortion  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	AmountPaid       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	LateFeeAccrued   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	LateFeePaid      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Status           string          `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (InstallmentModel) TableName() string {
	return "financing_installments"
}

// ToDomain converts the model to a domain installment
func (m *InstallmentModel) ToDomain() *financing.Installment {
	return &financing.Installment{
		BaseEntity:       m.BaseModel.ToDomain(),
		TenantID:         m.TenantID,
		FinancingID:      m.FinancingID,
		Stream:           financing.StreamKind(m.Stream),
		Number:           m.Number,
		DueDate:          financing.NormalizeDate(m.DueDate),
		DueAmount:        m.DueAmount,
		PrincipalPortion: m.PrincipalPortion,
		InterestPortion:  m.InterestPortion,
		AmountPaid:       m.AmountPaid,
		LateFeeAccrued:   m.LateFeeAccrued,
		LateFeePaid:      m.LateFeePaid,
		Status:           financing.InstallmentStatus(m.Status),
	}
}

// InstallmentModelFromDomain converts a domain installment
func InstallmentModelFromDomain(i *financing.Installment) InstallmentModel {
	m := InstallmentModel{
		TenantModel:      TenantModel{TenantID: i.TenantID},
		FinancingID:      i.FinancingID,
		Stream:           string(i.Stream),
		Number:           i.Number,
		DueDate:          i.DueDate,
		DueAmount:        i.DueAmount,
		PrincipalPortion: i.PrincipalPortion,
		InterestPortion:  i.InterestPortion,
		AmountPaid:       i.AmountPaid,
		LateFeeAccrued:   i.LateFeeAccrued,
		LateFeePaid:      i.LateFeePaid,
		Status:           string(i.Status),
	}
	m.FromDomainBaseEntity(i.BaseEntity)
	return m
}

// InstallmentModelsFromDomain converts a slice of installments
func InstallmentModelsFromDomain(items []*financing.Installment) []InstallmentModel {
	out := make([]InstallmentModel, len(items))
	for i, inst := range items {
		out[i] = InstallmentModelFromDomain(inst)
	}
	return out
}
