// Package models contains the GORM persistence models of the financing engine.
// Models carry every ORM tag and table mapping so the domain stays free of
// infrastructure concerns; each model converts to and from its domain type.
//
// Structure:
//   - base.go: shared columns (BaseModel, TenantModel, TenantAggregateModel)
//   - jsonb.go: JSON column types
//   - financing.go: financings and installments
//   - payment.go: payments and their allocations
//   - amendment.go: amendment audit records
package models
