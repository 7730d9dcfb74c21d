package financing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/realestate/backend/internal/domain/financing"
	"github.com/realestate/backend/internal/domain/shared"
	"github.com/realestate/backend/internal/domain/shared/valueobject"
	"github.com/realestate/backend/internal/infrastructure/config"
	csvimport "github.com/realestate/backend/internal/infrastructure/import"
	"github.com/realestate/backend/internal/infrastructure/logger"
	"github.com/realestate/backend/internal/infrastructure/telemetry"
)

// Error codes raised at the service boundary
const (
	CodeInvalidInput      = "INVALID_INPUT"
	CodeInvalidImportFile = "INVALID_IMPORT_FILE"
)

const spanService = "financing"

// FinancingService runs the financing engine against storage. Every mutation
// holds the financing lock and one transaction; events go out after commit.
type FinancingService struct {
	uow            financing.UnitOfWork
	reads          financing.Repositories
	locker         shared.Locker
	cfg            config.FinancingConfig
	clock          shared.Clock
	eventPublisher shared.EventPublisher
	metrics        *telemetry.FinancingMetrics
	logger         *zap.Logger
}

// NewFinancingService creates a new FinancingService. reads serves unlocked
// queries outside any transaction.
func NewFinancingService(
	uow financing.UnitOfWork,
	reads financing.Repositories,
	locker shared.Locker,
	cfg config.FinancingConfig,
) *FinancingService {
	return &FinancingService{
		uow:    uow,
		reads:  reads,
		locker: locker,
		cfg:    cfg,
		clock:  shared.SystemClock{},
		logger: zap.NewNop(),
	}
}

// SetEventPublisher sets the publisher that receives domain events after commit
func (s *FinancingService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the recorder for lock wait times
func (s *FinancingService) SetMetrics(m *telemetry.FinancingMetrics) {
	s.metrics = m
}

// SetClock overrides the source of "today"
func (s *FinancingService) SetClock(c shared.Clock) {
	s.clock = c
}

// SetLogger sets the base logger; request fields are added from the context
func (s *FinancingService) SetLogger(l *zap.Logger) {
	if l != nil {
		s.logger = l
	}
}

func (s *FinancingService) today() time.Time {
	return financing.NormalizeDate(s.clock.Now())
}

// ==================== Schedule ====================

// PreviewSchedule generates a schedule without storing anything
func (s *FinancingService) PreviewSchedule(ctx context.Context, req PreviewScheduleRequest) (*ScheduleResponse, error) {
	_, span := telemetry.StartServiceSpan(ctx, spanService, "preview_schedule")
	defer span.End()

	terms, err := s.buildTerms(req.Currency, req.Lot, req.Hu)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	schedule, err := financing.GenerateSchedule(terms)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	resp := ToScheduleResponse(schedule, string(terms.Currency), s.today())
	return &resp, nil
}

// ValidateSaleDates checks the temporal ordering of a new sale's dates
func (s *FinancingService) ValidateSaleDates(ctx context.Context, req ValidateSaleDatesRequest) error {
	dates := financing.SaleDates{}
	var err error
	if dates.SaleDate, err = parseDate("sale_date", req.SaleDate); err != nil {
		return err
	}
	if dates.PaymentDate, err = parseDate("payment_date", req.PaymentDate); err != nil {
		return err
	}
	if req.FirstPaymentDateHu != "" {
		hu, err := parseDate("first_payment_date_hu", req.FirstPaymentDateHu)
		if err != nil {
			return err
		}
		dates.FirstPaymentDateHu = &hu
	}
	return financing.ValidateSaleDates(dates, s.clock.Now())
}

// saleDatesOf takes the payment dates of a new sale from the first due date
// of each stream
func saleDatesOf(saleDate time.Time, terms financing.FinancingTerms) financing.SaleDates {
	dates := financing.SaleDates{SaleDate: saleDate, PaymentDate: terms.Lot.FirstDueDate}
	if terms.Hu != nil {
		hu := terms.Hu.FirstDueDate
		dates.FirstPaymentDateHu = &hu
	}
	return dates
}

// ==================== Financings ====================

// CreateFinancing generates the schedule of a sale and stores it
func (s *FinancingService) CreateFinancing(ctx context.Context, tenantID uuid.UUID, req CreateFinancingRequest) (*FinancingResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "create_financing",
		"tenant_id", tenantID.String(),
		"sale_id", req.SaleID.String(),
	)
	defer span.End()

	saleDate, err := parseDate("sale_date", req.SaleDate)
	if err != nil {
		return nil, err
	}
	terms, err := s.buildTerms(req.Currency, req.Lot, req.Hu)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := financing.ValidateSaleDates(saleDatesOf(saleDate, terms), s.clock.Now()); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	f, err := financing.NewFinancing(tenantID, req.SaleID, saleDate, terms)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if req.CreatedBy != nil {
		f.SetCreatedBy(*req.CreatedBy)
	}

	err = s.uow.Do(ctx, func(repos financing.Repositories) error {
		existing, err := repos.Financings.FindBySaleID(ctx, tenantID, req.SaleID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if existing != nil {
			return shared.NewDomainError(shared.ErrAlreadyExists.Code, "Sale already has a financing")
		}
		return repos.Financings.Create(ctx, f)
	})
	if err != nil {
		err = persistenceError("create financing", err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publish(ctx, f)
	logger.Enrich(ctx, s.logger).Info("financing created",
		zap.String("financing_id", f.ID.String()),
		zap.String("sale_id", f.SaleID.String()),
		zap.String("total_amount", f.TotalAmount.StringFixed(2)),
		zap.Int("installments", len(f.Installments)),
	)
	resp := ToFinancingResponse(f, s.today())
	return &resp, nil
}

// GetFinancing returns a financing and its calendar
func (s *FinancingService) GetFinancing(ctx context.Context, tenantID, id uuid.UUID) (*FinancingResponse, error) {
	f, err := s.reads.Financings.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, persistenceError("load financing", err)
	}
	resp := ToFinancingResponse(f, s.today())
	return &resp, nil
}

// GetCalendar returns the combined calendar of a financing. An empty stream
// merges both streams.
func (s *FinancingService) GetCalendar(ctx context.Context, tenantID, id uuid.UUID, stream string) (*CalendarResponse, error) {
	var kind financing.StreamKind
	if stream != "" {
		kind = financing.StreamKind(strings.ToUpper(stream))
		if !kind.IsValid() {
			return nil, shared.NewValidationError(CodeInvalidInput, "Unknown stream", []shared.FieldError{
				{Field: "stream", Code: "INVALID_VALUE", Message: "must be LOT or URBAN_DEVELOPMENT"},
			})
		}
	}

	f, err := s.reads.Financings.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, persistenceError("load financing", err)
	}
	today := s.today()
	installments := f.Installments
	if kind != "" {
		installments = f.Stream(kind)
	}
	resp := ToCalendarResponse(f.ID, financing.BuildCombinedCalendar(installments, today), today)
	return &resp, nil
}

// RecordLateFee sets the accrued late fee of one installment
func (s *FinancingService) RecordLateFee(ctx context.Context, tenantID, financingID, installmentID uuid.UUID, req RecordLateFeeRequest) (*InstallmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "record_late_fee",
		"financing_id", financingID.String(),
		"installment_id", installmentID.String(),
	)
	defer span.End()

	var inst *financing.Installment
	f, err := s.mutate(ctx, tenantID, financingID, "record late fee", func(ctx context.Context, repos financing.Repositories, f *financing.Financing) error {
		var err error
		if inst, err = f.RecordLateFee(installmentID, req.Accrued); err != nil {
			return err
		}
		return repos.Financings.SaveWithLock(ctx, f, []*financing.Installment{inst})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	logger.Enrich(ctx, s.logger).Info("late fee recorded",
		zap.String("financing_id", f.ID.String()),
		zap.String("installment_id", inst.ID.String()),
		zap.String("accrued", inst.LateFeeAccrued.StringFixed(2)),
	)
	resp := ToInstallmentResponse(inst, s.today())
	return &resp, nil
}

// ==================== Payments ====================

// ApplyPayment allocates a manual payment against the calendar. Money left
// after every installment is settled is kept as unapplied residual.
func (s *FinancingService) ApplyPayment(ctx context.Context, tenantID, financingID uuid.UUID, req ApplyPaymentRequest) (*PaymentResultResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "apply_payment",
		"financing_id", financingID.String(),
		"amount", req.Amount.String(),
	)
	defer span.End()

	opDate, err := parseDate("operation_date", req.OperationDate)
	if err != nil {
		return nil, err
	}
	payment, err := financing.NewManualPayment(tenantID, financingID, financing.PaymentInput{
		Amount:        req.Amount,
		OperationDate: opDate,
		Reference:     req.Reference,
		CodeOperation: req.CodeOperation,
		BankName:      req.BankName,
		Observation:   req.Observation,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	payment.CreatedBy = req.CreatedBy

	var result *financing.AllocationResult
	telemetry.WithProfilingLabels(ctx, map[string]string{"operation": "apply_payment"}, func(c context.Context) {
		_, err = s.mutate(c, tenantID, financingID, "apply payment", func(ctx context.Context, repos financing.Repositories, f *financing.Financing) error {
			if payment.CodeOperation != "" {
				keys, err := repos.Payments.FindActiveOperationKeys(ctx, f.ID)
				if err != nil {
					return err
				}
				if containsKey(keys, payment.OperationKey()) {
					return shared.NewDomainError(financing.CodeDuplicateOperation,
						fmt.Sprintf("Bank operation %s/%s already registered", payment.CodeOperation, payment.Reference))
				}
			}
			var err error
			if result, err = f.ApplyPayment(payment); err != nil {
				return err
			}
			if err := repos.Payments.Create(ctx, payment); err != nil {
				return err
			}
			return repos.Financings.SaveWithLock(ctx, f, result.Touched)
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		"allocated", result.Allocated.String(),
		"residual", result.Residual.String(),
	)
	logger.Enrich(ctx, s.logger).Info("payment applied",
		zap.String("financing_id", financingID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("amount", payment.Amount.StringFixed(2)),
		zap.String("allocated", result.Allocated.StringFixed(2)),
		zap.String("unapplied", payment.Unapplied.StringFixed(2)),
	)
	return &PaymentResultResponse{
		Payment:      ToPaymentResponse(payment),
		Allocated:    result.Allocated,
		Residual:     result.Residual,
		Installments: ToInstallmentResponses(result.Touched, s.today()),
	}, nil
}

// ListPayments returns a page of the payments of a financing
func (s *FinancingService) ListPayments(ctx context.Context, tenantID, financingID uuid.UUID, filter PaymentListFilter) ([]PaymentResponse, int64, error) {
	if _, err := s.reads.Financings.FindByID(ctx, tenantID, financingID); err != nil {
		return nil, 0, persistenceError("load financing", err)
	}

	f := financing.PaymentFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  "operation_date",
			OrderDir: filter.OrderDir,
		},
		Status: financing.PaymentStatus(filter.Status),
		Kind:   financing.PaymentKind(filter.Kind),
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = shared.DefaultFilter().PageSize
	}
	if f.OrderDir == "" {
		f.OrderDir = "asc"
	}

	payments, total, err := s.reads.Payments.FindByFinancing(ctx, tenantID, financingID, f)
	if err != nil {
		return nil, 0, persistenceError("list payments", err)
	}
	return ToPaymentResponses(payments), total, nil
}

// ApplyAutoApprovedBatch applies a batch of bank transactions as a single
// allocation and records one payment per transaction
func (s *FinancingService) ApplyAutoApprovedBatch(ctx context.Context, tenantID, financingID uuid.UUID, req AutoApprovedBatchRequest) (*BatchResultResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "apply_auto_approved_batch",
		"financing_id", financingID.String(),
		"amount_paid", req.AmountPaid.String(),
		"sub_payments", len(req.SubPayments),
	)
	defer span.End()

	batch, err := toBatch(req)
	if err != nil {
		return nil, err
	}
	resp, err := s.applyBatch(ctx, tenantID, financingID, batch, req.CreatedBy)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return resp, nil
}

// ImportAutoApprovedBatch parses a bank statement and applies its rows as an
// auto-approved batch. Row problems are all reported in one validation error
// and nothing is applied.
func (s *FinancingService) ImportAutoApprovedBatch(ctx context.Context, tenantID, financingID uuid.UUID, r io.Reader, req ImportBatchRequest) (*BatchResultResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "import_auto_approved_batch",
		"financing_id", financingID.String(),
	)
	defer span.End()

	opDate, err := parseDate("operation_date", req.OperationDate)
	if err != nil {
		return nil, err
	}
	statement, err := csvimport.ParseStatement(r, s.cfg.ImportMaxRows)
	if err != nil {
		err = importFileError(err)
		telemetry.RecordError(span, err)
		return nil, err
	}
	if statement.HasErrors() {
		details := make([]shared.FieldError, len(statement.Errors))
		for i, e := range statement.Errors {
			field := fmt.Sprintf("row[%d]", e.Row)
			if e.Column != "" {
				field += "." + e.Column
			}
			details[i] = shared.FieldError{Field: field, Code: e.Code, Message: e.Message}
		}
		err := shared.NewValidationError(CodeInvalidImportFile,
			fmt.Sprintf("Statement has %d invalid row(s)", len(statement.Errors)), details)
		telemetry.RecordError(span, err)
		return nil, err
	}

	amountPaid := statement.Total()
	if req.AmountPaid != nil {
		amountPaid = *req.AmountPaid
	}
	telemetry.SetAttributes(span, "rows", len(statement.SubPayments), "amount_paid", amountPaid.String())

	resp, err := s.applyBatch(ctx, tenantID, financingID, financing.AutoApprovedBatch{
		AmountPaid:    amountPaid,
		OperationDate: opDate,
		SubPayments:   statement.SubPayments,
		Observation:   req.Observation,
	}, req.CreatedBy)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return resp, nil
}

func (s *FinancingService) applyBatch(ctx context.Context, tenantID, financingID uuid.UUID, batch financing.AutoApprovedBatch, createdBy *uuid.UUID) (*BatchResultResponse, error) {
	var result *financing.BatchResult
	var err error
	telemetry.WithProfilingLabels(ctx, map[string]string{"operation": "apply_batch"}, func(c context.Context) {
		_, err = s.mutate(c, tenantID, financingID, "apply auto-approved batch", func(ctx context.Context, repos financing.Repositories, f *financing.Financing) error {
			keys, err := repos.Payments.FindActiveOperationKeys(ctx, f.ID)
			if err != nil {
				return err
			}
			if result, err = f.ApplyAutoApprovedBatch(batch, keys); err != nil {
				return err
			}
			for _, p := range result.Payments {
				p.CreatedBy = createdBy
			}
			if err := repos.Payments.Create(ctx, result.Payments...); err != nil {
				return err
			}
			return repos.Financings.SaveWithLock(ctx, f, result.Touched)
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Enrich(ctx, s.logger).Info("auto-approved batch applied",
		zap.String("financing_id", financingID.String()),
		zap.String("batch_id", result.BatchID.String()),
		zap.Int("sub_payments", len(result.Payments)),
		zap.String("amount_paid", batch.AmountPaid.StringFixed(2)),
		zap.String("allocated", result.Allocated.StringFixed(2)),
		zap.String("residual", result.Residual.StringFixed(2)),
	)
	payments := make([]PaymentResponse, len(result.Payments))
	for i, p := range result.Payments {
		payments[i] = ToPaymentResponse(p)
	}
	return &BatchResultResponse{
		BatchID:      result.BatchID,
		Payments:     payments,
		Allocated:    result.Allocated,
		Residual:     result.Residual,
		Installments: ToInstallmentResponses(result.Touched, s.today()),
	}, nil
}

// CancelPayment reverses exactly what a payment allocated
func (s *FinancingService) CancelPayment(ctx context.Context, tenantID, paymentID uuid.UUID, req CancelPaymentRequest) (*CancelPaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "cancel_payment",
		"payment_id", paymentID.String(),
	)
	defer span.End()

	if strings.TrimSpace(req.Reason) == "" {
		return nil, financing.ErrCancelReasonRequired
	}
	// The payment names the financing to lock; it is reloaded under the lock
	found, err := s.reads.Payments.FindByID(ctx, tenantID, paymentID)
	if err != nil {
		err = persistenceError("load payment", err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	var payment *financing.Payment
	var touched []*financing.Installment
	_, err = s.mutate(ctx, tenantID, found.FinancingID, "cancel payment", func(ctx context.Context, repos financing.Repositories, f *financing.Financing) error {
		var err error
		if payment, err = repos.Payments.FindByID(ctx, tenantID, paymentID); err != nil {
			return err
		}
		if touched, err = f.CancelPayment(payment, req.Reason, s.clock.Now()); err != nil {
			return err
		}
		if err := repos.Payments.Update(ctx, payment); err != nil {
			return err
		}
		return repos.Financings.SaveWithLock(ctx, f, touched)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	logger.Enrich(ctx, s.logger).Info("payment cancelled",
		zap.String("financing_id", payment.FinancingID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("reversed", payment.TotalAllocated().StringFixed(2)),
	)
	return &CancelPaymentResponse{
		Payment:      ToPaymentResponse(payment),
		Reversed:     payment.TotalAllocated(),
		Installments: ToInstallmentResponses(touched, s.today()),
	}, nil
}

// ==================== Amendments ====================

// ApplyAmendment moves the financing total by a signed amount and replaces
// one stream's installments
func (s *FinancingService) ApplyAmendment(ctx context.Context, tenantID, financingID uuid.UUID, req ApplyAmendmentRequest) (*AmendmentResultResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "apply_amendment",
		"financing_id", financingID.String(),
		"additional_amount", req.AdditionalAmount.String(),
		"installments", len(req.Installments),
	)
	defer span.End()

	amendReq, err := toAmendmentRequest(req)
	if err != nil {
		return nil, err
	}

	var outcome *financing.AmendmentOutcome
	f, err := s.mutate(ctx, tenantID, financingID, "apply amendment", func(ctx context.Context, repos financing.Repositories, f *financing.Financing) error {
		var err error
		if outcome, err = f.ApplyAmendment(amendReq); err != nil {
			return err
		}
		outcome.Amendment.CreatedBy = req.CreatedBy
		if len(outcome.Removed) > 0 {
			ids := make([]uuid.UUID, len(outcome.Removed))
			for i, inst := range outcome.Removed {
				ids[i] = inst.ID
			}
			if err := repos.Financings.DeleteInstallments(ctx, ids); err != nil {
				return err
			}
		}
		changed := append(append([]*financing.Installment{}, outcome.Updated...), outcome.Created...)
		if err := repos.Financings.SaveWithLock(ctx, f, changed); err != nil {
			return err
		}
		return repos.Amendments.Create(ctx, outcome.Amendment)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	logger.Enrich(ctx, s.logger).Info("amendment applied",
		zap.String("financing_id", f.ID.String()),
		zap.String("amendment_id", outcome.Amendment.ID.String()),
		zap.String("stream", string(outcome.Amendment.Stream)),
		zap.String("new_total", outcome.Amendment.NewTotal.StringFixed(2)),
		zap.Int("updated", len(outcome.Updated)),
		zap.Int("created", len(outcome.Created)),
		zap.Int("removed", len(outcome.Removed)),
	)
	today := s.today()
	resp := &AmendmentResultResponse{
		Amendment: ToAmendmentResponse(outcome.Amendment),
		Calendar:  ToCalendarResponse(f.ID, f.Calendar(today), today),
	}
	for _, inst := range outcome.Removed {
		resp.RemovedIDs = append(resp.RemovedIDs, inst.ID)
	}
	return resp, nil
}

// ListAmendments returns the amendment history of a financing, oldest first
func (s *FinancingService) ListAmendments(ctx context.Context, tenantID, financingID uuid.UUID) ([]AmendmentResponse, error) {
	if _, err := s.reads.Financings.FindByID(ctx, tenantID, financingID); err != nil {
		return nil, persistenceError("load financing", err)
	}
	items, err := s.reads.Amendments.FindByFinancing(ctx, tenantID, financingID)
	if err != nil {
		return nil, persistenceError("list amendments", err)
	}
	return ToAmendmentResponses(items), nil
}

// ==================== Helpers ====================

// mutate loads the financing under its lock inside one transaction and runs
// fn against it. Domain events are published only after commit.
func (s *FinancingService) mutate(
	ctx context.Context,
	tenantID, financingID uuid.UUID,
	op string,
	fn func(ctx context.Context, repos financing.Repositories, f *financing.Financing) error,
) (*financing.Financing, error) {
	release, err := s.acquire(ctx, financingID)
	if err != nil {
		return nil, err
	}
	defer release()

	var f *financing.Financing
	err = s.uow.Do(ctx, func(repos financing.Repositories) error {
		loaded, err := repos.Financings.FindByID(ctx, tenantID, financingID)
		if err != nil {
			return err
		}
		f = loaded
		return fn(ctx, repos, loaded)
	})
	if err != nil {
		if f != nil {
			f.ClearDomainEvents()
		}
		return nil, persistenceError(op, err)
	}
	s.publish(ctx, f)
	return f, nil
}

func (s *FinancingService) acquire(ctx context.Context, financingID uuid.UUID) (func(), error) {
	start := time.Now()
	release, err := s.locker.Acquire(ctx, LockKey(financingID))
	s.metrics.RecordLockWait(ctx, time.Since(start), err == nil)
	if err == nil {
		return release, nil
	}
	if errors.Is(err, shared.ErrLockTimeout) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	return nil, shared.WrapDomainError(shared.ErrPersistenceFailure.Code, "Failed to acquire financing lock", err)
}

// LockKey is the lock name serializing mutations of one financing
func LockKey(financingID uuid.UUID) string {
	return "financing:" + financingID.String()
}

func (s *FinancingService) publish(ctx context.Context, f *financing.Financing) {
	events := f.GetDomainEvents()
	if s.eventPublisher != nil && len(events) > 0 {
		if err := s.eventPublisher.Publish(ctx, events...); err != nil {
			// State is already committed; handlers are best effort
			logger.Enrich(ctx, s.logger).Warn("failed to publish financing events",
				zap.String("financing_id", f.ID.String()),
				zap.Int("events", len(events)),
				zap.Error(err),
			)
		}
	}
	f.ClearDomainEvents()
}

// persistenceError keeps domain errors as they are and reports everything
// else as a PERSISTENCE_FAILURE
func persistenceError(op string, err error) error {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	return shared.WrapDomainError(shared.ErrPersistenceFailure.Code, "Failed to "+op, err)
}

func importFileError(err error) error {
	var missing *csvimport.MissingColumnsError
	if errors.As(err, &missing) {
		details := make([]shared.FieldError, len(missing.Columns))
		for i, c := range missing.Columns {
			details[i] = shared.FieldError{Field: c, Code: csvimport.ErrCodeRequiredField, Message: "column is missing from the header"}
		}
		return shared.NewValidationError(CodeInvalidImportFile, "Statement is missing required columns", details)
	}
	return shared.WrapDomainError(CodeInvalidImportFile, err.Error(), err)
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, shared.NewValidationError(CodeInvalidInput, "Invalid date", []shared.FieldError{
			{Field: field, Code: "INVALID_FORMAT", Message: "must be a date formatted as YYYY-MM-DD"},
		})
	}
	return t, nil
}

func (s *FinancingService) buildTerms(currency string, lot StreamTermsInput, hu *StreamTermsInput) (financing.FinancingTerms, error) {
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}
	terms := financing.FinancingTerms{Currency: valueobject.DefaultCurrency}
	if currency != "" {
		c, err := valueobject.ParseCurrency(currency)
		if err != nil {
			return terms, shared.NewValidationError(financing.CodeInvalidTerms, "Unsupported currency", []shared.FieldError{
				{Field: "currency", Code: "INVALID_VALUE", Message: err.Error()},
			})
		}
		terms.Currency = c
	}

	var err error
	if terms.Lot, err = s.streamTerms("lot", lot); err != nil {
		return terms, err
	}
	if hu != nil {
		huTerms, err := s.streamTerms("hu", *hu)
		if err != nil {
			return terms, err
		}
		terms.Hu = &huTerms
	}
	return terms, nil
}

func (s *FinancingService) streamTerms(prefix string, in StreamTermsInput) (financing.StreamTerms, error) {
	first, err := parseDate(prefix+".first_due_date", in.FirstDueDate)
	if err != nil {
		return financing.StreamTerms{}, err
	}
	if s.cfg.MaxInstallments > 0 && in.Quantity > s.cfg.MaxInstallments {
		return financing.StreamTerms{}, shared.NewValidationError(financing.CodeInvalidTerms, "Too many installments", []shared.FieldError{
			{Field: prefix + ".quantity", Code: "OUT_OF_RANGE", Message: fmt.Sprintf("must be at most %d", s.cfg.MaxInstallments)},
		})
	}
	terms := financing.StreamTerms{
		Principal:    in.Principal,
		Quantity:     in.Quantity,
		FirstDueDate: first,
		AnnualRate:   decimal.Zero,
		Rule:         financing.AmortizationRule(strings.ToUpper(in.Rule)),
	}
	if in.AnnualRate != nil {
		terms.AnnualRate = *in.AnnualRate
	}
	return terms, nil
}

func toBatch(req AutoApprovedBatchRequest) (financing.AutoApprovedBatch, error) {
	opDate, err := parseDate("operation_date", req.OperationDate)
	if err != nil {
		return financing.AutoApprovedBatch{}, err
	}
	batch := financing.AutoApprovedBatch{
		AmountPaid:    req.AmountPaid,
		OperationDate: opDate,
		SubPayments:   make([]financing.SubPayment, len(req.SubPayments)),
		Observation:   req.Observation,
	}
	for i, sp := range req.SubPayments {
		// A sub-payment without its own date takes the batch date
		var spDate time.Time
		if sp.OperationDate != "" {
			if spDate, err = parseDate(fmt.Sprintf("sub_payments[%d].operation_date", i), sp.OperationDate); err != nil {
				return financing.AutoApprovedBatch{}, err
			}
		}
		fileIndex := sp.FileIndex
		if fileIndex == 0 {
			fileIndex = i + 1
		}
		batch.SubPayments[i] = financing.SubPayment{
			BankName:      sp.BankName,
			Reference:     sp.Reference,
			CodeOperation: sp.CodeOperation,
			OperationDate: spDate,
			Amount:        sp.Amount,
			FileIndex:     fileIndex,
		}
	}
	return batch, nil
}

func toAmendmentRequest(req ApplyAmendmentRequest) (financing.AmendmentRequest, error) {
	out := financing.AmendmentRequest{
		AdditionalAmount: req.AdditionalAmount,
		Stream:           financing.StreamKind(strings.ToUpper(req.Stream)),
		Installments:     make([]financing.AmendmentInstallment, len(req.Installments)),
		Observation:      req.Observation,
	}
	for i, in := range req.Installments {
		due, err := parseDate(fmt.Sprintf("installments[%d].due_date", i), in.DueDate)
		if err != nil {
			return financing.AmendmentRequest{}, err
		}
		out.Installments[i] = financing.AmendmentInstallment{
			Number:  in.Number,
			DueDate: due,
			Amount:  in.Amount,
			Status:  financing.InstallmentStatus(strings.ToUpper(in.Status)),
		}
	}
	return out, nil
}

func containsKey(keys []financing.OperationKey, k financing.OperationKey) bool {
	for _, existing := range keys {
		if existing == k {
			return true
		}
	}
	return false
}
