package bootstrap

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/staffdesk/hradmin/internal/infrastructure/config"
	"github.com/staffdesk/hradmin/internal/infrastructure/observability"
	"github.com/staffdesk/hradmin/internal/providers"
)

// Gateway builds the payout sender selected by cfg.Provider, wrapped in its
// circuit breaker.
func Gateway(cfg *config.PayoutConfig, metrics *observability.Metrics, logger zerolog.Logger) (*providers.Gateway, error) {
	breaker := providers.DefaultBreakerConfig()
	if cfg.CircuitBreakerThreshold > 0 {
		breaker.MinRequests = uint32(cfg.CircuitBreakerThreshold)
	}
	if cfg.CircuitBreakerTimeout > 0 {
		breaker.Timeout = cfg.CircuitBreakerTimeout
	}

	var p providers.Provider
	switch cfg.Provider {
	case "mock", "":
		p = providers.NewMockProvider("mock")
	case "http":
		p = providers.NewHTTPProvider("http", cfg.BaseURL, cfg.APIKey, cfg.RequestTimeout,
			providers.WithLogger(logger))
	default:
		return nil, fmt.Errorf("unknown payout provider %q", cfg.Provider)
	}

	gw, err := providers.NewFactory(breaker, metrics, p).Sender(p.Name())
	if err != nil {
		return nil, err
	}
	logger.Info().Str("provider", gw.Name()).Msg("Payout gateway ready")
	return gw, nil
}
