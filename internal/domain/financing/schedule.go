package financing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/realestate/backend/internal/domain/shared"
	"github.com/realestate/backend/internal/domain/shared/valueobject"
)

// AmortizationRule selects how a principal is divided into installments
type AmortizationRule string

const (
	// RuleFlat divides the principal evenly with no interest
	RuleFlat AmortizationRule = "FLAT"
	// RuleFrench is a fixed-payment annuity with monthly compounding
	RuleFrench AmortizationRule = "FRENCH"
)

// IsValid checks if the rule is known
func (r AmortizationRule) IsValid() bool {
	return r == RuleFlat || r == RuleFrench
}

// StreamTerms are the financing terms of a single stream
type StreamTerms struct {
	Principal    decimal.Decimal
	Quantity     int
	FirstDueDate time.Time
	// AnnualRate is a fraction, 0.12 means 12% a year
	AnnualRate decimal.Decimal
	Rule       AmortizationRule
}

// EffectiveRule resolves an empty rule: FRENCH when a rate is configured,
// FLAT otherwise.
func (t StreamTerms) EffectiveRule() AmortizationRule {
	if t.Rule != "" {
		return t.Rule
	}
	if t.AnnualRate.IsPositive() {
		return RuleFrench
	}
	return RuleFlat
}

// FinancingTerms are the terms of a sale's financing: the LOT stream and an
// optional URBAN_DEVELOPMENT (HU) stream.
type FinancingTerms struct {
	Currency valueobject.Currency
	Lot      StreamTerms
	Hu       *StreamTerms
}

// Schedule is the output of schedule generation
type Schedule struct {
	Lot   []*Installment
	Hu    []*Installment
	Total decimal.Decimal
}

// Combined returns the merged calendar of both streams
func (s *Schedule) Combined() []*Installment {
	return MergeStreams(s.Lot, s.Hu)
}

// All returns both streams, LOT first
func (s *Schedule) All() []*Installment {
	all := make([]*Installment, 0, len(s.Lot)+len(s.Hu))
	all = append(all, s.Lot...)
	return append(all, s.Hu...)
}

// GenerateSchedule produces the installments for every stream of the terms.
// Returned installments are not persisted and carry no ID.
func GenerateSchedule(terms FinancingTerms) (*Schedule, error) {
	if err := ValidateTerms(terms); err != nil {
		return nil, err
	}

	lot, err := generateStream(StreamLot, terms.Currency, terms.Lot)
	if err != nil {
		return nil, err
	}
	schedule := &Schedule{Lot: lot}

	if terms.Hu != nil {
		hu, err := generateStream(StreamUrbanDevelopment, terms.Currency, *terms.Hu)
		if err != nil {
			return nil, err
		}
		schedule.Hu = hu
	}

	schedule.Total = TotalDue(schedule.All())
	return schedule, nil
}

func generateStream(kind StreamKind, currency valueobject.Currency, terms StreamTerms) ([]*Installment, error) {
	var (
		principals []decimal.Decimal
		interests  []decimal.Decimal
		err        error
	)
	switch terms.EffectiveRule() {
	case RuleFrench:
		principals, interests = frenchAmortization(terms.Principal, terms.AnnualRate, terms.Quantity)
	default:
		principals, err = flatAmortization(terms.Principal, currency, terms.Quantity)
		if err != nil {
			return nil, err
		}
		interests = make([]decimal.Decimal, terms.Quantity)
		for i := range interests {
			interests[i] = decimal.Zero
		}
	}

	dates := DueDates(terms.FirstDueDate, terms.Quantity)
	installments := make([]*Installment, terms.Quantity)
	for i := range terms.Quantity {
		installments[i] = &Installment{
			Stream:           kind,
			Number:           i + 1,
			DueDate:          dates[i],
			DueAmount:        principals[i].Add(interests[i]),
			PrincipalPortion: principals[i],
			InterestPortion:  interests[i],
			AmountPaid:       decimal.Zero,
			LateFeeAccrued:   decimal.Zero,
			LateFeePaid:      decimal.Zero,
			Status:           InstallmentStatusPending,
		}
	}
	return installments, nil
}

// flatAmortization splits the principal evenly; the last share absorbs the
// rounding remainder so the shares sum to the principal exactly.
func flatAmortization(principal decimal.Decimal, currency valueobject.Currency, n int) ([]decimal.Decimal, error) {
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	money, err := valueobject.NewMoney(principal, currency)
	if err != nil {
		return nil, shared.NewDomainError(CodeInvalidTerms, err.Error())
	}
	parts, err := money.Split(n)
	if err != nil {
		return nil, shared.NewDomainError(CodeInvalidTerms, err.Error())
	}
	out := make([]decimal.Decimal, n)
	for i, p := range parts {
		out[i] = p.Amount()
	}
	return out, nil
}

// frenchAmortization computes a fixed monthly annuity P*r/(1-(1+r)^-n) with
// r = annualRate/12. Interest is charged on the outstanding balance each
// period; the last period takes whatever principal is left so principal
// portions sum to P exactly.
func frenchAmortization(principal, annualRate decimal.Decimal, n int) (principals, interests []decimal.Decimal) {
	p := valueobject.RoundMoney(principal)
	r := annualRate.Div(decimal.NewFromInt(12))
	one := decimal.NewFromInt(1)

	growth := one
	for range n {
		growth = growth.Mul(one.Add(r)).Round(18)
	}
	payment := valueobject.RoundMoney(p.Mul(r).Mul(growth).Div(growth.Sub(one)))

	principals = make([]decimal.Decimal, n)
	interests = make([]decimal.Decimal, n)
	balance := p
	for i := range n {
		interest := valueobject.RoundMoney(balance.Mul(r))
		share := payment.Sub(interest)
		if i == n-1 || share.GreaterThan(balance) {
			share = balance
		}
		if share.IsNegative() {
			share = decimal.Zero
		}
		principals[i] = share
		interests[i] = interest
		balance = balance.Sub(share)
	}
	return principals, interests
}

// ValidateTerms checks financing terms before generation
func ValidateTerms(terms FinancingTerms) error {
	var details []shared.FieldError
	if terms.Currency != "" && !terms.Currency.IsValid() {
		details = append(details, shared.FieldError{
			Field: "currency", Code: "UNSUPPORTED", Message: fmt.Sprintf("unsupported currency %q", terms.Currency),
		})
	}
	details = append(details, validateStreamTerms("lot", terms.Lot)...)
	if terms.Hu != nil {
		details = append(details, validateStreamTerms("hu", *terms.Hu)...)
	}
	if len(details) > 0 {
		return shared.NewValidationError(CodeInvalidTerms, "Invalid financing terms", details)
	}
	return nil
}

// MaxInstallments bounds the quantity of a single stream
const MaxInstallments = 600

func validateStreamTerms(prefix string, t StreamTerms) []shared.FieldError {
	checks := []func() *shared.FieldError{
		func() *shared.FieldError {
			if !t.Principal.IsPositive() {
				return &shared.FieldError{Field: prefix + ".principal", Code: "NOT_POSITIVE", Message: "principal must be greater than zero"}
			}
			if !IsCentAmount(t.Principal) {
				return &shared.FieldError{Field: prefix + ".principal", Code: "INVALID_PRECISION", Message: "principal cannot have more than 2 decimal places"}
			}
			// every installment must carry at least one cent
			if t.Quantity > 0 && t.Principal.Shift(2).LessThan(decimal.NewFromInt(int64(t.Quantity))) {
				return &shared.FieldError{Field: prefix + ".principal", Code: "TOO_SMALL", Message: fmt.Sprintf("principal cannot cover %d installments of at least 0.01", t.Quantity)}
			}
			return nil
		},
		func() *shared.FieldError {
			if t.Quantity <= 0 || t.Quantity > MaxInstallments {
				return &shared.FieldError{Field: prefix + ".quantity", Code: "OUT_OF_RANGE", Message: fmt.Sprintf("quantity must be between 1 and %d", MaxInstallments)}
			}
			return nil
		},
		func() *shared.FieldError {
			if t.FirstDueDate.IsZero() {
				return &shared.FieldError{Field: prefix + ".first_due_date", Code: "REQUIRED", Message: "first due date is required"}
			}
			return nil
		},
		func() *shared.FieldError {
			if t.AnnualRate.IsNegative() {
				return &shared.FieldError{Field: prefix + ".annual_rate", Code: "NEGATIVE", Message: "annual rate cannot be negative"}
			}
			return nil
		},
		func() *shared.FieldError {
			if t.Rule != "" && !t.Rule.IsValid() {
				return &shared.FieldError{Field: prefix + ".rule", Code: "UNKNOWN", Message: fmt.Sprintf("unknown amortization rule %q", t.Rule)}
			}
			if t.Rule == RuleFrench && !t.AnnualRate.IsPositive() {
				return &shared.FieldError{Field: prefix + ".annual_rate", Code: "REQUIRED", Message: "FRENCH rule requires a positive annual rate"}
			}
			if t.Rule == RuleFlat && t.AnnualRate.IsPositive() {
				return &shared.FieldError{Field: prefix + ".annual_rate", Code: "NOT_ALLOWED", Message: "FLAT rule does not accept an annual rate"}
			}
			return nil
		},
	}
	return collect(checks)
}

func collect(checks []func() *shared.FieldError) []shared.FieldError {
	var out []shared.FieldError
	for _, check := range checks {
		if fe := check(); fe != nil {
			out = append(out, *fe)
		}
	}
	return out
}
