package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/realestate/backend/internal/domain/financing"
)

// AmendmentModel is the audit record of an applied amendment
type AmendmentModel struct {
	TenantModel
	FinancingID      uuid.UUID                                   `gorm:"type:uuid;not null;index"`
	Stream           string                                      `gorm:"type:varchar(20);not null"`
	AdditionalAmount decimal.Decimal                             `gorm:"type:decimal(18,2);not null"`
	PreviousTotal    decimal.Decimal                             `gorm:"type:decimal(18,2);not null"`
	NewTotal         decimal.Decimal                             `gorm:"type:decimal(18,2);not null"`
	Observation      string                                      `gorm:"type:text"`
	Previous         JSONColumn[[]financing.InstallmentSnapshot] `gorm:"type:jsonb;not null"`
	Result           JSONColumn[[]financing.InstallmentSnapshot] `gorm:"type:jsonb;not null"`
	CreatedBy        *uuid.UUID                                  `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (AmendmentModel) TableName() string {
	return "financing_amendments"
}

// ToDomain converts the model to a domain amendment
func (m *AmendmentModel) ToDomain() *financing.Amendment {
	return &financing.Amendment{
		BaseEntity:       m.BaseModel.ToDomain(),
		TenantID:         m.TenantID,
		FinancingID:      m.FinancingID,
		Stream:           financing.StreamKind(m.Stream),
		AdditionalAmount: m.AdditionalAmount,
		PreviousTotal:    m.PreviousTotal,
		NewTotal:         m.NewTotal,
		Observation:      m.Observation,
		Previous:         m.Previous.Data,
		Result:           m.Result.Data,
		CreatedBy:        m.CreatedBy,
	}
}

// AmendmentModelFromDomain converts a domain amendment
func AmendmentModelFromDomain(a *financing.Amendment) *AmendmentModel {
	m := &AmendmentModel{
		TenantModel:      TenantModel{TenantID: a.TenantID},
		FinancingID:      a.FinancingID,
		Stream:           string(a.Stream),
		AdditionalAmount: a.AdditionalAmount,
		PreviousTotal:    a.PreviousTotal,
		NewTotal:         a.NewTotal,
		Observation:      a.Observation,
		Previous:         NewJSONColumn(a.Previous),
		Result:           NewJSONColumn(a.Result),
		CreatedBy:        a.CreatedBy,
	}
	m.FromDomainBaseEntity(a.BaseEntity)
	return m
}
