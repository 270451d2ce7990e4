package leave

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leavelite/internal/apperror"
	"leavelite/internal/domain/auth"
	"leavelite/internal/platform/config"
)

func newTestService(store StoreAPI) *Service {
	return NewService(store, config.DefaultPolicy(), nil)
}

func intPtr(v int) *int { return &v }

func createInput(userID, start, end string) CreateInput {
	return CreateInput{UserID: userID, StartDate: start, EndDate: end, Reason: "travel"}
}

func TestCreateValidationOrder(t *testing.T) {
	store := newMemoryStore()
	store.addUser("u1", 10)
	svc := newTestService(store)

	tests := []struct {
		name    string
		input   CreateInput
		kind    apperror.Kind
		message string
	}{
		{name: "missing reason", input: CreateInput{UserID: "u1", StartDate: "2025-01-01", EndDate: "2025-01-02", Reason: "  "}, kind: apperror.KindValidation, message: "start date, end date and reason are required"},
		{name: "missing start", input: CreateInput{UserID: "u1", EndDate: "2025-01-02", Reason: "x"}, kind: apperror.KindValidation, message: "start date, end date and reason are required"},
		{name: "bad date", input: createInput("u1", "2025-13-01", "2025-01-02"), kind: apperror.KindValidation, message: "invalid date"},
		{name: "start after end", input: createInput("u1", "2025-01-05", "2025-01-02"), kind: apperror.KindValidation, message: "start after end"},
		{name: "start after end ignores requested days", input: CreateInput{UserID: "u1", StartDate: "2025-01-05", EndDate: "2025-01-02", Reason: "x", RequestedDays: intPtr(2)}, kind: apperror.KindValidation, message: "start after end"},
		{name: "requested days mismatch", input: CreateInput{UserID: "u1", StartDate: "2025-01-01", EndDate: "2025-01-01", Reason: "x", RequestedDays: intPtr(30)}, kind: apperror.KindValidation, message: "requested days do not match date range"},
		{name: "too long", input: createInput("u1", "2025-01-01", "2025-02-05"), kind: apperror.KindValidation, message: "exceeds 30 days"},
		{name: "unknown user", input: createInput("ghost", "2025-01-01", "2025-01-02"), kind: apperror.KindNotFound},
		{name: "over balance", input: createInput("u1", "2025-01-01", "2025-01-15"), kind: apperror.KindInsufficientBalance, message: "requested 15 days but only 10 available"},
		{name: "insecure document", input: CreateInput{UserID: "u1", StartDate: "2025-01-01", EndDate: "2025-01-02", Reason: "x", DocumentRef: "http://files.example.com/a.pdf"}, kind: apperror.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.input)
			require.Error(t, err)
			appErr, ok := apperror.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.kind, appErr.Kind)
			if tt.message != "" {
				assert.Equal(t, tt.message, appErr.Message)
			}
		})
	}
	assert.Zero(t, store.count())
}

func TestCreateStoresComputedDays(t *testing.T) {
	store := newMemoryStore()
	store.addUser("u1", 10)
	svc := newTestService(store)

	req, err := svc.Create(context.Background(), CreateInput{
		UserID:        "u1",
		StartDate:     "2025-03-03",
		EndDate:       "2025-03-05",
		Reason:        " family ",
		DocumentRef:   "https://res.cloudinary.com/demo/raw/upload/note.pdf",
		RequestedDays: intPtr(3),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, req.Days)
	assert.Equal(t, StatusPending, req.Status)
	assert.Equal(t, "family", req.Reason)
	assert.Equal(t, "https://res.cloudinary.com/demo/raw/upload/note.pdf", req.DocumentRef)
	assert.Equal(t, 10, store.balance("u1"), "creation must not touch the balance")
}

func TestCreateZeroRequestedDaysFallsBackToComputed(t *testing.T) {
	store := newMemoryStore()
	store.addUser("u1", 10)
	svc := newTestService(store)

	req, err := svc.Create(context.Background(), CreateInput{UserID: "u1", StartDate: "2025-03-03", EndDate: "2025-03-04", Reason: "x", RequestedDays: intPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, 2, req.Days)
}

func TestCreateSecondPendingConflicts(t *testing.T) {
	store := newMemoryStore()
	store.addUser("u1", 10)
	svc := newTestService(store)

	first, err := svc.Create(context.Background(), createInput("u1", "2025-01-01", "2025-01-02"))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), createInput("u1", "2025-02-01", "2025-02-01"))
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.KindConflict, appErr.Kind)
	summary, ok := appErr.Details.(RequestSummary)
	require.True(t, ok)
	assert.Equal(t, first.ID, summary.ID)
	assert.Equal(t, "2025-01-01", summary.StartDate)
	assert.Equal(t, 1, store.count())
}

func TestCreateWithZeroBalanceFailsBeforePersisting(t *testing.T) {
	store := newMemoryStore()
	store.addUser("u1", 0)
	svc := newTestService(store)

	_, err := svc.Create(context.Background(), createInput("u1", "2025-01-01", "2025-01-01"))
	assert.Equal(t, apperror.KindInsufficientBalance, apperror.KindOf(err))
	assert.Zero(t, store.inserts)
}

func TestCreateRejectsDisallowedDocumentHost(t *testing.T) {
	store := newMemoryStore()
	store.addUser("u1", 5)
	policy := config.DefaultPolicy()
	policy.AllowedDocumentHosts = []string{"res.cloudinary.com"}
	svc := NewService(store, policy, nil)

	_, err := svc.Create(context.Background(), CreateInput{UserID: "u1", StartDate: "2025-01-01", EndDate: "2025-01-01", Reason: "x", DocumentRef: "https://evil.example.com/a.pdf"})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.Zero(t, store.count())
}

func TestEndToEndApproval(t *testing.T) {
	store := newMemoryStore()
	store.addUser("u1", 5)
	svc := newTestService(store)
	ctx := context.Background()

	req, err := svc.Create(ctx, createInput("u1", "2025-01-01", "2025-01-03"))
	require.NoError(t, err)
	assert.Equal(t, 3, req.Days)
	assert.Equal(t, StatusPending, req.Status)

	result, err := svc.Resolve(ctx, ResolveInput{RequestID: req.ID, Action: ActionApprove, Comment: "ok", CallerRole: auth.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, result.Request.Status)
	assert.Equal(t, "ok", result.Request.AdminComment)
	assert.Equal(t, 3, result.Request.Days)
	assert.NotNil(t, result.Request.ResolvedAt)
	assert.Equal(t, 2, result.User.AvailableLeave)
	assert.Equal(t, 2, store.balance("u1"))

	_, err = svc.Resolve(ctx, ResolveInput{RequestID: req.ID, Action: ActionApprove, CallerRole: auth.RoleAdmin})
	assert.ErrorIs(t, err, ErrAlreadyProcessedConflict)
	assert.Equal(t, 2, store.balance("u1"))
}

func TestResolveRejectKeepsBalance(t *testing.T) {
	store := newMemoryStore()
	store.addUser("u1", 5)
	svc := newTestService(store)
	ctx := context.Background()

	req, err := svc.Create(ctx, createInput("u1", "2025-01-01", "2025-01-03"))
	require.NoError(t, err)

	result, err := svc.Resolve(ctx, ResolveInput{RequestID: req.ID, Action: ActionReject, CallerRole: auth.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, result.Request.Status)
	assert.Equal(t, "", result.Request.AdminComment)
	assert.Equal(t, 5, result.User.AvailableLeave)
	assert.Equal(t, 5, store.balance("u1"))

	_, err = svc.Resolve(ctx, ResolveInput{RequestID: req.ID, Action: ActionApprove, CallerRole: auth.RoleAdmin})
	assert.ErrorIs(t, err, ErrAlreadyProcessedConflict)
	assert.Equal(t, 5, store.balance("u1"))
}

func TestApproveExactBalanceThenExhausted(t *testing.T) {
	store := newMemoryStore()
	store.addUser("u1", 3)
	svc := newTestService(store)
	ctx := context.Background()

	req, err := svc.Create(ctx, createInput("u1", "2025-01-01", "2025-01-03"))
	require.NoError(t, err)
	result, err := svc.Resolve(ctx, ResolveInput{RequestID: req.ID, Action: ActionApprove, CallerRole: auth.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, 0, result.User.AvailableLeave)

	_, err = svc.Create(ctx, createInput("u1", "2025-02-01", "2025-02-01"))
	assert.Equal(t, apperror.KindInsufficientBalance, apperror.KindOf(err))
}

func TestApproveRechecksBalance(t *testing.T) {
	store := newMemoryStore()
	store.addUser("u1", 5)
	svc := newTestService(store)
	ctx := context.Background()

	req, err := svc.Create(ctx, createInput("u1", "2025-01-01", "2025-01-04"))
	require.NoError(t, err)
	store.addUser("u1", 2)

	_, err = svc.Resolve(ctx, ResolveInput{RequestID: req.ID, Action: ActionApprove, CallerRole: auth.RoleAdmin})
	assert.Equal(t, apperror.KindInsufficientBalance, apperror.KindOf(err))
	assert.Equal(t, 2, store.balance("u1"))

	stored, err := store.RequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
}

func TestResolveLegacyRowRecomputesDays(t *testing.T) {
	store := newMemoryStore()
	store.addUser("u1", 10)
	svc := newTestService(store)
	ctx := context.Background()

	req, err := svc.Create(ctx, createInput("u1", "2025-01-01", "2025-01-04"))
	require.NoError(t, err)
	store.mu.Lock()
	legacy := store.requests[req.ID]
	legacy.Days = 0
	store.requests[req.ID] = legacy
	store.mu.Unlock()

	result, err := svc.Resolve(ctx, ResolveInput{RequestID: req.ID, Action: ActionApprove, CallerRole: auth.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, 6, result.User.AvailableLeave)
}

func TestResolveErrors(t *testing.T) {
	store := newMemoryStore()
	store.addUser("u1", 10)
	svc := newTestService(store)
	ctx := context.Background()
	req, err := svc.Create(ctx, createInput("u1", "2025-01-01", "2025-01-02"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		input ResolveInput
		kind  apperror.Kind
	}{
		{name: "employee caller", input: ResolveInput{RequestID: req.ID, Action: ActionApprove, CallerRole: auth.RoleEmployee}, kind: apperror.KindAuthorization},
		{name: "missing request", input: ResolveInput{RequestID: "nope", Action: ActionApprove, CallerRole: auth.RoleAdmin}, kind: apperror.KindNotFound},
		{name: "invalid action", input: ResolveInput{RequestID: req.ID, Action: "cancel", CallerRole: auth.RoleAdmin}, kind: apperror.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Resolve(ctx, tt.input)
			assert.Equal(t, tt.kind, apperror.KindOf(err))
		})
	}
	assert.Equal(t, 10, store.balance("u1"))
}

func TestConcurrentApprovalsDebitOnce(t *testing.T) {
	store := newMemoryStore()
	store.addUser("u1", 10)
	svc := newTestService(store)
	ctx := context.Background()
	req, err := svc.Create(ctx, createInput("u1", "2025-01-01", "2025-01-03"))
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Resolve(ctx, ResolveInput{RequestID: req.ID, Action: ActionApprove, CallerRole: auth.RoleAdmin})
		}()
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 7, store.balance("u1"))
}

func TestListForUserNewestFirst(t *testing.T) {
	store := newMemoryStore()
	store.addUser("u1", 10)
	store.addUser("u2", 10)
	svc := newTestService(store)
	ctx := context.Background()

	first, err := svc.Create(ctx, createInput("u1", "2025-01-01", "2025-01-01"))
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, ResolveInput{RequestID: first.ID, Action: ActionReject, CallerRole: auth.RoleAdmin})
	require.NoError(t, err)
	second, err := svc.Create(ctx, createInput("u1", "2025-02-01", "2025-02-01"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, createInput("u2", "2025-02-01", "2025-02-01"))
	require.NoError(t, err)

	mine, err := svc.ListForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)

	_, err = svc.ListAll(ctx, auth.RoleEmployee, 10, 0)
	assert.Equal(t, apperror.KindAuthorization, apperror.KindOf(err))

	all, err := svc.ListAll(ctx, auth.RoleAdmin, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, all.Total)
	assert.Len(t, all.Requests, 2)
}

func TestGetRestrictsToOwnerOrAdmin(t *testing.T) {
	store := newMemoryStore()
	store.addUser("u1", 10)
	svc := newTestService(store)
	ctx := context.Background()
	req, err := svc.Create(ctx, createInput("u1", "2025-01-01", "2025-01-01"))
	require.NoError(t, err)

	_, err = svc.Get(ctx, auth.Identity{UserID: "u1", Role: auth.RoleEmployee}, req.ID)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, auth.Identity{UserID: "admin", Role: auth.RoleAdmin}, req.ID)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, auth.Identity{UserID: "u2", Role: auth.RoleEmployee}, req.ID)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

type failingStore struct {
	memoryStore
	err error
}

func (f *failingStore) InTx(context.Context, func(tx TxStore) error) error { return f.err }

func TestStoreFailuresMapToDependency(t *testing.T) {
	svc := newTestService(&failingStore{err: errors.New("connection refused")})

	_, err := svc.Create(context.Background(), createInput("u1", "2025-01-01", "2025-01-01"))
	assert.Equal(t, apperror.KindDependency, apperror.KindOf(err))

	svc = newTestService(&failingStore{err: ErrRetryable})
	_, err = svc.Resolve(context.Background(), ResolveInput{RequestID: "r1", Action: ActionApprove, CallerRole: auth.RoleAdmin})
	assert.Equal(t, apperror.KindDependency, apperror.KindOf(err))

	svc = newTestService(&failingStore{err: ErrPendingExists})
	_, err = svc.Create(context.Background(), createInput("u1", "2025-01-01", "2025-01-01"))
	assert.ErrorIs(t, err, ErrPendingConflict)
}
