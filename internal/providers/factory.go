package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	domainErrors "github.com/staffdesk/hradmin/internal/domain/errors"
	"github.com/staffdesk/hradmin/internal/domain/payout"
	"github.com/staffdesk/hradmin/internal/infrastructure/observability"
)

// BreakerConfig tunes the circuit breaker wrapped around every provider.
type BreakerConfig struct {
	// MinRequests is the number of calls in a window before the breaker may trip.
	MinRequests  uint32
	FailureRatio float64
	Timeout      time.Duration
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MinRequests:  10,
		FailureRatio: 0.6,
		Timeout:      30 * time.Second,
	}
}

// Factory keeps the registered providers and their circuit breakers.
type Factory struct {
	cfg             BreakerConfig
	metrics         *observability.Metrics
	providers       map[string]Provider
	circuitBreakers map[string]*gobreaker.CircuitBreaker[*payout.SendResult]
}

// NewFactory registers providersList. With no providers a mock named "mock" is registered.
func NewFactory(cfg BreakerConfig, metrics *observability.Metrics, providersList ...Provider) *Factory {
	f := &Factory{
		cfg:             cfg,
		metrics:         metrics,
		providers:       make(map[string]Provider),
		circuitBreakers: make(map[string]*gobreaker.CircuitBreaker[*payout.SendResult]),
	}

	if len(providersList) == 0 {
		f.Register(NewMockProvider("mock",
			WithLatency(200*time.Millisecond),
			WithFailureRate(0.05),
		))
	} else {
		for _, p := range providersList {
			f.Register(p)
		}
	}

	return f
}

func (f *Factory) Register(p Provider) {
	f.providers[p.Name()] = p
	f.circuitBreakers[p.Name()] = gobreaker.NewCircuitBreaker[*payout.SendResult](gobreaker.Settings{
		Name:        p.Name(),
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     f.cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < f.cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= f.cfg.FailureRatio
		},
		// A gateway that answers "no" is healthy; only outages count against it.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, domainErrors.ErrProviderRejected) ||
				errors.Is(err, domainErrors.ErrInvalidAmount)
		},
		OnStateChange: func(name string, _ gobreaker.State, to gobreaker.State) {
			if f.metrics != nil {
				f.metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
}

func (f *Factory) Get(name string) (Provider, *gobreaker.CircuitBreaker[*payout.SendResult], error) {
	p, ok := f.providers[name]
	if !ok {
		return nil, nil, fmt.Errorf("unknown provider %q: %w", name, domainErrors.ErrProviderNotFound)
	}
	return p, f.circuitBreakers[name], nil
}

// Sender returns the breaker-guarded gateway for the named provider.
func (f *Factory) Sender(name string) (*Gateway, error) {
	p, breaker, err := f.Get(name)
	if err != nil {
		return nil, err
	}
	return &Gateway{provider: p, breaker: breaker, metrics: f.metrics}, nil
}

// Gateway sends payouts through one provider behind its circuit breaker.
type Gateway struct {
	provider Provider
	breaker  *gobreaker.CircuitBreaker[*payout.SendResult]
	metrics  *observability.Metrics
}

func (g *Gateway) Name() string { return g.provider.Name() }

func (g *Gateway) Send(ctx context.Context, req payout.Request) (*payout.SendResult, error) {
	start := time.Now()
	result, err := g.breaker.Execute(func() (*payout.SendResult, error) {
		return g.provider.SendPayout(ctx, req)
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: circuit %s is %s", domainErrors.ErrProviderUnavailable, g.breaker.Name(), g.breaker.State())
	}

	if g.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		g.metrics.PayoutSendDuration.WithLabelValues(g.provider.Name(), outcome).Observe(time.Since(start).Seconds())
		g.metrics.CircuitBreakerRequests.WithLabelValues(g.provider.Name(), outcome).Inc()
	}

	return result, err
}
