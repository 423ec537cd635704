package providers

import (
	"context"

	"github.com/staffdesk/hradmin/internal/domain/payout"
)

// Provider is a payout gateway able to credit a mobile wallet.
type Provider interface {
	// Name returns the provider name.
	Name() string
	// SendPayout submits one payout and waits for the gateway's answer.
	SendPayout(ctx context.Context, req payout.Request) (*payout.SendResult, error)
}
