package providers

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	domainErrors "github.com/staffdesk/hradmin/internal/domain/errors"
	"github.com/staffdesk/hradmin/internal/domain/payout"
)

// MockProvider simulates a gateway for local runs and tests.
type MockProvider struct {
	name        string
	failureRate float64 // 0.0 to 1.0
	latency     time.Duration
	timeoutRate float64 // 0.0 to 1.0
	pending     bool
}

type MockProviderOption func(*MockProvider)

func WithFailureRate(rate float64) MockProviderOption {
	return func(p *MockProvider) { p.failureRate = rate }
}

func WithLatency(d time.Duration) MockProviderOption {
	return func(p *MockProvider) { p.latency = d }
}

func WithTimeoutRate(rate float64) MockProviderOption {
	return func(p *MockProvider) { p.timeoutRate = rate }
}

// WithPendingStatus makes accepted payouts come back as "pending" instead of "success".
func WithPendingStatus() MockProviderOption {
	return func(p *MockProvider) { p.pending = true }
}

func NewMockProvider(name string, opts ...MockProviderOption) *MockProvider {
	p := &MockProvider{
		name:    name,
		latency: 100 * time.Millisecond,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *MockProvider) Name() string { return p.name }

func (p *MockProvider) SendPayout(ctx context.Context, req payout.Request) (*payout.SendResult, error) {
	select {
	case <-time.After(p.latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) || req.Amount <= 0 {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrInvalidAmount, req.Amount)
	}
	if req.Phone == "" {
		return nil, fmt.Errorf("%w: phone number is required", domainErrors.ErrProviderRejected)
	}

	if rand.Float64() < p.timeoutRate {
		return nil, domainErrors.ErrProviderTimeout
	}

	if rand.Float64() < p.failureRate {
		return &payout.SendResult{
			Status:  "failed",
			Message: fmt.Sprintf("%s: simulated failure for payout %s", p.name, req.ExternalID),
		}, domainErrors.ErrProviderRejected
	}

	status := "success"
	if p.pending {
		status = "pending"
	}
	return &payout.SendResult{
		Status:    status,
		Message:   "payout accepted",
		Reference: fmt.Sprintf("%s_po_%s", p.name, uuid.New().String()[:8]),
	}, nil
}
