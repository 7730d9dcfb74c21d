package financing

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/realestate/backend/internal/domain/financing"
	"github.com/realestate/backend/internal/domain/shared"
)

// MockFinancingRepository is a mock implementation of FinancingRepository
type MockFinancingRepository struct {
	mock.Mock
}

func (m *MockFinancingRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*financing.Financing, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*financing.Financing), args.Error(1)
}

func (m *MockFinancingRepository) FindBySaleID(ctx context.Context, tenantID, saleID uuid.UUID) (*financing.Financing, error) {
	args := m.Called(ctx, tenantID, saleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*financing.Financing), args.Error(1)
}

func (m *MockFinancingRepository) Create(ctx context.Context, f *financing.Financing) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockFinancingRepository) SaveWithLock(ctx context.Context, f *financing.Financing, changed []*financing.Installment) error {
	args := m.Called(ctx, f, changed)
	return args.Error(0)
}

func (m *MockFinancingRepository) DeleteInstallments(ctx context.Context, ids []uuid.UUID) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

// MockPaymentRepository is a mock implementation of PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*financing.Payment, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*financing.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByFinancing(ctx context.Context, tenantID, financingID uuid.UUID, filter financing.PaymentFilter) ([]financing.Payment, int64, error) {
	args := m.Called(ctx, tenantID, financingID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]financing.Payment), args.Get(1).(int64), args.Error(2)
}

func (m *MockPaymentRepository) FindActiveOperationKeys(ctx context.Context, financingID uuid.UUID) ([]financing.OperationKey, error) {
	args := m.Called(ctx, financingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]financing.OperationKey), args.Error(1)
}

func (m *MockPaymentRepository) Create(ctx context.Context, payments ...*financing.Payment) error {
	args := m.Called(ctx, payments)
	return args.Error(0)
}

func (m *MockPaymentRepository) Update(ctx context.Context, p *financing.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

// MockAmendmentRepository is a mock implementation of AmendmentRepository
type MockAmendmentRepository struct {
	mock.Mock
}

func (m *MockAmendmentRepository) Create(ctx context.Context, a *financing.Amendment) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAmendmentRepository) FindByFinancing(ctx context.Context, tenantID, financingID uuid.UUID) ([]financing.Amendment, error) {
	args := m.Called(ctx, tenantID, financingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]financing.Amendment), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// stubUnitOfWork hands the same repositories to every transaction
type stubUnitOfWork struct {
	repos financing.Repositories
	calls int
}

func (u *stubUnitOfWork) Do(_ context.Context, fn func(repos financing.Repositories) error) error {
	u.calls++
	return fn(u.repos)
}

// stubLocker records acquired keys and can be told to fail
type stubLocker struct {
	mu       sync.Mutex
	err      error
	keys     []string
	released int
}

func (l *stubLocker) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.keys = append(l.keys, key)
	return func() {
		l.mu.Lock()
		l.released++
		l.mu.Unlock()
	}, nil
}
