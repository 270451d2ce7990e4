package leave

import "context"

type StoreAPI interface {
	// InTx runs fn inside a single transaction, committing only when fn returns nil.
	InTx(ctx context.Context, fn func(tx TxStore) error) error
	ListForUser(ctx context.Context, userID string) ([]LeaveRequest, error)
	ListAll(ctx context.Context, limit, offset int) (RequestListResult, error)
	RequestByID(ctx context.Context, requestID string) (LeaveRequest, error)
}

// TxStore holds the operations that must share the create or resolve transaction.
type TxStore interface {
	LockUser(ctx context.Context, userID string) (Balance, error)
	PendingRequestForUser(ctx context.Context, userID string) (LeaveRequest, bool, error)
	InsertRequest(ctx context.Context, req LeaveRequest) (LeaveRequest, error)
	LockRequest(ctx context.Context, requestID string) (LeaveRequest, error)
	DebitBalance(ctx context.Context, userID string, days int) (Balance, error)
	ResolveRequest(ctx context.Context, requestID string, status Status, comment string) (LeaveRequest, error)
}
