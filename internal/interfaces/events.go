package interfaces

import "context"

// FailedTransactionHook is told about every payment that did not succeed.
// Callers log and discard its errors.
type FailedTransactionHook interface {
	OnFailedTransaction(ctx context.Context, fields map[string]string) error
}

// CompletedPaymentPublisher announces successful payments to downstream
// order processing. Implementations suppress duplicate announcements.
type CompletedPaymentPublisher interface {
	PublishCompleted(ctx context.Context, fields map[string]string) error
}
