package leave

import (
	"context"
	"maps"
	"sort"
	"strconv"
	"sync"
	"time"
)

// memoryStore mimics the postgres store: InTx holds a single lock and rolls back on error.
type memoryStore struct {
	mu       sync.Mutex
	users    map[string]int
	requests map[string]LeaveRequest
	seq      int
	clock    time.Time
	inserts  int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:    map[string]int{},
		requests: map[string]LeaveRequest{},
		clock:    time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (m *memoryStore) addUser(id string, balance int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = balance
}

func (m *memoryStore) balance(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

func (m *memoryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *memoryStore) InTx(_ context.Context, fn func(tx TxStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := maps.Clone(m.users)
	requests := maps.Clone(m.requests)
	seq := m.seq
	if err := fn(&memoryTx{m: m}); err != nil {
		m.users, m.requests, m.seq = users, requests, seq
		return err
	}
	return nil
}

func (m *memoryStore) ListForUser(_ context.Context, userID string) ([]LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []LeaveRequest{}
	for _, req := range m.requests {
		if req.UserID == userID {
			out = append(out, req)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *memoryStore) ListAll(_ context.Context, limit, offset int) (RequestListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]LeaveRequest, 0, len(m.requests))
	for _, req := range m.requests {
		all = append(all, req)
	}
	sortNewestFirst(all)
	total := len(all)
	if offset > total {
		offset = total
	}
	end := min(offset+limit, total)
	return RequestListResult{Requests: all[offset:end], Total: total}, nil
}

func (m *memoryStore) RequestByID(_ context.Context, requestID string) (LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[requestID]
	if !ok {
		return LeaveRequest{}, ErrNotFound
	}
	return req, nil
}

func sortNewestFirst(requests []LeaveRequest) {
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
}

type memoryTx struct {
	m *memoryStore
}

func (t *memoryTx) LockUser(_ context.Context, userID string) (Balance, error) {
	available, ok := t.m.users[userID]
	if !ok {
		return Balance{}, ErrNotFound
	}
	return Balance{UserID: userID, AvailableLeave: available}, nil
}

func (t *memoryTx) PendingRequestForUser(_ context.Context, userID string) (LeaveRequest, bool, error) {
	for _, req := range t.m.requests {
		if req.UserID == userID && req.Status == StatusPending {
			return req, true, nil
		}
	}
	return LeaveRequest{}, false, nil
}

func (t *memoryTx) InsertRequest(_ context.Context, req LeaveRequest) (LeaveRequest, error) {
	for _, existing := range t.m.requests {
		if existing.UserID == req.UserID && existing.Status == StatusPending {
			return LeaveRequest{}, ErrPendingExists
		}
	}
	t.m.seq++
	t.m.inserts++
	req.ID = "req-" + strconv.Itoa(t.m.seq)
	req.CreatedAt = t.m.clock.Add(time.Duration(t.m.seq) * time.Minute)
	t.m.requests[req.ID] = req
	return req, nil
}

func (t *memoryTx) LockRequest(_ context.Context, requestID string) (LeaveRequest, error) {
	req, ok := t.m.requests[requestID]
	if !ok {
		return LeaveRequest{}, ErrNotFound
	}
	return req, nil
}

func (t *memoryTx) DebitBalance(_ context.Context, userID string, days int) (Balance, error) {
	available := t.m.users[userID]
	if available < days {
		return Balance{}, ErrInsufficientBalance
	}
	t.m.users[userID] = max(0, available-days)
	return Balance{UserID: userID, AvailableLeave: t.m.users[userID]}, nil
}

func (t *memoryTx) ResolveRequest(_ context.Context, requestID string, status Status, comment string) (LeaveRequest, error) {
	req, ok := t.m.requests[requestID]
	if !ok || req.Status != StatusPending {
		return LeaveRequest{}, ErrAlreadyProcessed
	}
	now := t.m.clock.Add(24 * time.Hour)
	req.Status = status
	req.AdminComment = comment
	req.ResolvedAt = &now
	t.m.requests[requestID] = req
	return req, nil
}
