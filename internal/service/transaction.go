package service

import "context"

// TransactionManager wraps several repository calls in one database transaction.
// Repositories pick the transaction up from the context passed to fn.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
