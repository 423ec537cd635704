package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	domainErrors "github.com/staffdesk/hradmin/internal/domain/errors"
	"github.com/staffdesk/hradmin/internal/domain/payout"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPProvider talks to a JSON payout gateway over HTTP.
type HTTPProvider struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

type HTTPProviderOption func(*HTTPProvider)

func WithHTTPClient(c *http.Client) HTTPProviderOption {
	return func(p *HTTPProvider) { p.httpClient = c }
}

func WithLogger(l zerolog.Logger) HTTPProviderOption {
	return func(p *HTTPProvider) { p.logger = l }
}

func NewHTTPProvider(name, baseURL, apiKey string, timeout time.Duration, opts ...HTTPProviderOption) *HTTPProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	p := &HTTPProvider{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
		logger:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *HTTPProvider) Name() string { return p.name }

// payoutRequest is the gateway's wire format.
type payoutRequest struct {
	Amount      string `json:"amount"`
	PhoneNumber string `json:"phone_number"`
	Medium      string `json:"medium"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	UserID      string `json:"user_id"`
	ExternalID  string `json:"external_id"`
	Message     string `json:"message"`
}

type payoutResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Reference string `json:"reference"`
}

// ErrorResponse is the body the gateway sends with non-2xx statuses.
type ErrorResponse struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *ErrorResponse) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("gateway error %d: %s", e.StatusCode, e.Message)
}

// FormatAmount renders a finite amount as a plain decimal string.
func FormatAmount(amount float64) (string, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "", fmt.Errorf("%w: amount is not a number", domainErrors.ErrInvalidAmount)
	}
	d := decimal.NewFromFloat(amount)
	if !d.IsPositive() {
		return "", fmt.Errorf("%w: amount must be greater than 0, got %s", domainErrors.ErrInvalidAmount, d.String())
	}
	return d.String(), nil
}

func (p *HTTPProvider) SendPayout(ctx context.Context, req payout.Request) (*payout.SendResult, error) {
	amount, err := FormatAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payoutRequest{
		Amount:      amount,
		PhoneNumber: req.Phone,
		Medium:      string(req.Medium),
		Name:        req.Name,
		Email:       req.Email,
		UserID:      req.UserID,
		ExternalID:  req.ExternalID,
		Message:     req.Message,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payout request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/payouts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create payout request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.ExternalID)
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", domainErrors.ErrProviderTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", domainErrors.ErrProviderUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errResp := &ErrorResponse{StatusCode: resp.StatusCode}
		if jsonErr := json.Unmarshal(respBody, errResp); jsonErr != nil || errResp.Message == "" {
			errResp.Message = strings.TrimSpace(string(respBody))
		}
		p.logger.Warn().
			Str("provider", p.name).
			Int("status", resp.StatusCode).
			Str("external_id", req.ExternalID).
			Str("message", errResp.Message).
			Msg("Gateway returned non-2xx response")

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %w", domainErrors.ErrProviderUnavailable, errResp)
		}
		return nil, fmt.Errorf("%w: %w", domainErrors.ErrProviderRejected, errResp)
	}

	var out payoutResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("failed to decode payout response: %w", err)
	}

	result := &payout.SendResult{
		Status:    out.Status,
		Message:   out.Message,
		Reference: out.Reference,
	}
	if !result.Success() {
		return result, fmt.Errorf("%w: status %q: %s", domainErrors.ErrProviderRejected, out.Status, out.Message)
	}
	return result, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
