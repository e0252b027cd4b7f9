//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"handyai-billing/internal/domain/model"
	"handyai-billing/internal/domain/ports/adapter"
	"handyai-billing/internal/domain/ports/repository"
	"handyai-billing/internal/usecase"
)

// =============================
// Adapters
// =============================

// ---- Mock BillingClient ----

type MockBillingClient struct {
	mu sync.Mutex

	StartConnectionFunc      func(l adapter.ConnectionListener)
	ReadyFunc                func() bool
	QueryProductsFunc        func(ctx context.Context, ids []string, typ model.ProductType) ([]model.Product, adapter.ResponseCode, error)
	QueryActivePurchasesFunc func(ctx context.Context, typ model.ProductType) ([]model.PurchaseRecord, adapter.ResponseCode, error)
	LaunchPurchaseFlowFunc   func(ctx context.Context, product model.Product, offerToken string) (adapter.ResponseCode, error)
	ConsumePurchaseFunc      func(ctx context.Context, purchaseToken string) (adapter.ResponseCode, error)

	ProductQueries int // number of QueryProducts calls
}

var _ adapter.BillingClient = (*MockBillingClient)(nil)

func (m *MockBillingClient) StartConnection(l adapter.ConnectionListener) {
	if m.StartConnectionFunc != nil {
		m.StartConnectionFunc(l)
	}
}

func (m *MockBillingClient) Ready() bool {
	if m.ReadyFunc != nil {
		return m.ReadyFunc()
	}
	return true
}

func (m *MockBillingClient) SetPurchasesListener(l adapter.PurchasesListener) {}

func (m *MockBillingClient) QueryProducts(ctx context.Context, ids []string, typ model.ProductType) ([]model.Product, adapter.ResponseCode, error) {
	m.mu.Lock()
	m.ProductQueries++
	m.mu.Unlock()
	if m.QueryProductsFunc != nil {
		return m.QueryProductsFunc(ctx, ids, typ)
	}
	return nil, adapter.ResponseOK, nil
}

func (m *MockBillingClient) QueryActivePurchases(ctx context.Context, typ model.ProductType) ([]model.PurchaseRecord, adapter.ResponseCode, error) {
	if m.QueryActivePurchasesFunc != nil {
		return m.QueryActivePurchasesFunc(ctx, typ)
	}
	return nil, adapter.ResponseOK, nil
}

func (m *MockBillingClient) LaunchPurchaseFlow(ctx context.Context, product model.Product, offerToken string) (adapter.ResponseCode, error) {
	if m.LaunchPurchaseFlowFunc != nil {
		return m.LaunchPurchaseFlowFunc(ctx, product, offerToken)
	}
	return adapter.ResponseOK, nil
}

func (m *MockBillingClient) ConsumePurchase(ctx context.Context, purchaseToken string) (adapter.ResponseCode, error) {
	if m.ConsumePurchaseFunc != nil {
		return m.ConsumePurchaseFunc(ctx, purchaseToken)
	}
	return adapter.ResponseOK, nil
}

// ---- Mock VerifyClient ----

type MockVerifyClient struct {
	mu       sync.Mutex
	Requests []adapter.VerifyRequest

	VerifyPurchaseFunc func(ctx context.Context, req adapter.VerifyRequest) (*adapter.VerifyResponse, error)
}

var _ adapter.VerifyClient = (*MockVerifyClient)(nil)

func (m *MockVerifyClient) VerifyPurchase(ctx context.Context, req adapter.VerifyRequest) (*adapter.VerifyResponse, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.VerifyPurchaseFunc != nil {
		return m.VerifyPurchaseFunc(ctx, req)
	}
	return &adapter.VerifyResponse{Success: true, Data: &model.Entitlement{Plan: model.PlanMonthly}}, nil
}

// =============================
// Repositories
// =============================

// ---- Mock PreferenceStore ----

type MockPrefs struct {
	mu      sync.Mutex
	UserID  string
	Premium bool
	Plan    model.Plan
	SetN    int

	GetUserIDFunc        func(ctx context.Context) (string, error)
	SetPremiumStatusFunc func(ctx context.Context, premium bool, plan model.Plan) error
}

var _ repository.PreferenceStore = (*MockPrefs)(nil)

func (m *MockPrefs) GetUserID(ctx context.Context) (string, error) {
	if m.GetUserIDFunc != nil {
		return m.GetUserIDFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.UserID, nil
}

func (m *MockPrefs) SetPremiumStatus(ctx context.Context, premium bool, plan model.Plan) error {
	if m.SetPremiumStatusFunc != nil {
		return m.SetPremiumStatusFunc(ctx, premium, plan)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Premium = premium
	m.Plan = plan
	m.SetN++
	return nil
}

// ---- Mock VerificationQueue ----

// MockVerifyQueue mirrors the unique-work semantics of the redis queue: one
// outstanding claim per purchase token, FIFO job list.
type MockVerifyQueue struct {
	mu      sync.Mutex
	Jobs    []*model.VerificationJob
	claimed map[string]bool

	EnqueueFunc func(ctx context.Context, job *model.VerificationJob) (bool, error)
}

var _ repository.VerificationQueue = (*MockVerifyQueue)(nil)

func NewMockVerifyQueue() *MockVerifyQueue {
	return &MockVerifyQueue{claimed: make(map[string]bool)}
}

func (m *MockVerifyQueue) Enqueue(ctx context.Context, job *model.VerificationJob) (bool, error) {
	if m.EnqueueFunc != nil {
		return m.EnqueueFunc(ctx, job)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimed[job.Purchase.Token] {
		return false, nil
	}
	m.claimed[job.Purchase.Token] = true
	cp := *job
	m.Jobs = append(m.Jobs, &cp)
	return true, nil
}

func (m *MockVerifyQueue) Dequeue(ctx context.Context, wait time.Duration) (*model.VerificationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Jobs) == 0 {
		return nil, nil
	}
	job := m.Jobs[0]
	m.Jobs = m.Jobs[1:]
	return job, nil
}

func (m *MockVerifyQueue) Requeue(ctx context.Context, job *model.VerificationJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.Jobs = append(m.Jobs, &cp)
	return nil
}

func (m *MockVerifyQueue) Complete(ctx context.Context, job *model.VerificationJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claimed, job.Purchase.Token)
	return nil
}

// =============================
// Use-case collaborators
// =============================

// ---- Mock SignatureChecker ----

type MockSignatureChecker struct {
	VerifyFunc func(signedData, signature string) bool
}

var _ usecase.SignatureChecker = (*MockSignatureChecker)(nil)

func (m *MockSignatureChecker) Verify(signedData, signature string) bool {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(signedData, signature)
	}
	return true
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
// It writes to io.Discard to prevent logs from cluttering test output.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
