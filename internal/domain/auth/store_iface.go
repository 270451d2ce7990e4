package auth

import "context"

type StoreAPI interface {
	CreateUser(ctx context.Context, user User) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
	UserByID(ctx context.Context, userID string) (User, error)
	PendingRequestCount(ctx context.Context, userID string) (int, error)
	EnsureUser(ctx context.Context, user User) (User, bool, error)
}
