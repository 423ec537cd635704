package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker/v2"
	domainErrors "github.com/staffdesk/hradmin/internal/domain/errors"
	"github.com/staffdesk/hradmin/internal/domain/payout"
	"github.com/staffdesk/hradmin/internal/infrastructure/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name  string
	calls int
	fn    func(req payout.Request) (*payout.SendResult, error)
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) SendPayout(_ context.Context, req payout.Request) (*payout.SendResult, error) {
	s.calls++
	return s.fn(req)
}

func TestNewFactory_WithDefaultProvider(t *testing.T) {
	factory := NewFactory(DefaultBreakerConfig(), nil)

	assert.Len(t, factory.providers, 1)
	assert.Contains(t, factory.providers, "mock")
	assert.Len(t, factory.circuitBreakers, 1)
}

func TestNewFactory_WithCustomProviders(t *testing.T) {
	factory := NewFactory(DefaultBreakerConfig(), nil, NewMockProvider("test-provider"))

	assert.Len(t, factory.providers, 1)
	assert.Contains(t, factory.providers, "test-provider")
}

func TestFactory_Get_Unknown(t *testing.T) {
	factory := NewFactory(DefaultBreakerConfig(), nil)

	provider, breaker, err := factory.Get("unknown")
	assert.True(t, errors.Is(err, domainErrors.ErrProviderNotFound))
	assert.Nil(t, provider)
	assert.Nil(t, breaker)

	_, err = factory.Sender("unknown")
	assert.Error(t, err)
}

func TestGateway_Send_PassesThrough(t *testing.T) {
	stub := &stubProvider{name: "gw", fn: func(req payout.Request) (*payout.SendResult, error) {
		return &payout.SendResult{Status: "success", Reference: req.ExternalID}, nil
	}}
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics("test", reg)
	gateway, err := NewFactory(DefaultBreakerConfig(), metrics, stub).Sender("gw")
	require.NoError(t, err)

	res, err := gateway.Send(context.Background(), testRequest())

	require.NoError(t, err)
	assert.Equal(t, "po_1_EMP001_0_abcdef12", res.Reference)
	assert.Equal(t, "gw", gateway.Name())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CircuitBreakerRequests.WithLabelValues("gw", "success")))
}

func TestGateway_BreakerOpensOnOutages(t *testing.T) {
	stub := &stubProvider{name: "gw", fn: func(payout.Request) (*payout.SendResult, error) {
		return nil, domainErrors.ErrProviderUnavailable
	}}
	cfg := BreakerConfig{MinRequests: 3, FailureRatio: 0.6, Timeout: time.Minute}
	factory := NewFactory(cfg, observability.NewMetrics("test", prometheus.NewRegistry()), stub)
	gateway, err := factory.Sender("gw")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := gateway.Send(context.Background(), testRequest())
		require.Error(t, err)
	}

	_, breaker, _ := factory.Get("gw")
	assert.Equal(t, gobreaker.StateOpen, breaker.State())

	_, err = gateway.Send(context.Background(), testRequest())
	assert.True(t, errors.Is(err, domainErrors.ErrProviderUnavailable))
	assert.Equal(t, 3, stub.calls, "open breaker must not call the provider")
	assert.Equal(t, float64(gobreaker.StateOpen), testutil.ToFloat64(factory.metrics.CircuitBreakerState.WithLabelValues("gw")))
}

func TestGateway_RejectionsDoNotTripBreaker(t *testing.T) {
	stub := &stubProvider{name: "gw", fn: func(payout.Request) (*payout.SendResult, error) {
		return &payout.SendResult{Status: "failed"}, domainErrors.ErrProviderRejected
	}}
	cfg := BreakerConfig{MinRequests: 2, FailureRatio: 0.5, Timeout: time.Minute}
	factory := NewFactory(cfg, nil, stub)
	gateway, err := factory.Sender("gw")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := gateway.Send(context.Background(), testRequest())
		assert.True(t, errors.Is(err, domainErrors.ErrProviderRejected))
	}

	_, breaker, _ := factory.Get("gw")
	assert.Equal(t, gobreaker.StateClosed, breaker.State())
	assert.Equal(t, 5, stub.calls)
}
