package leave

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

const requestColumns = `r.id, r.user_id, r.start_date, r.end_date, r.days, r.reason, r.document_ref,
      r.status, r.admin_comment, r.created_at, r.resolved_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner, extra ...any) (LeaveRequest, error) {
	var req LeaveRequest
	var documentRef *string
	dest := []any{
		&req.ID, &req.UserID, &req.StartDate, &req.EndDate, &req.Days, &req.Reason, &documentRef,
		&req.Status, &req.AdminComment, &req.CreatedAt, &req.ResolvedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LeaveRequest{}, ErrNotFound
		}
		return LeaveRequest{}, classify(err)
	}
	if documentRef != nil {
		req.DocumentRef = *documentRef
	}
	return req, nil
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func (s *Store) ListForUser(ctx context.Context, userID string) ([]LeaveRequest, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests r
    WHERE r.user_id = $1
    ORDER BY r.created_at DESC, r.id DESC
  `, userID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := []LeaveRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, classify(rows.Err())
}

func (s *Store) ListAll(ctx context.Context, limit, offset int) (RequestListResult, error) {
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM leave_requests").Scan(&total); err != nil {
		return RequestListResult{}, classify(err)
	}

	rows, err := s.DB.Query(ctx, `
    SELECT `+requestColumns+`, u.name, u.email
    FROM leave_requests r
    JOIN users u ON u.id = r.user_id
    ORDER BY r.created_at DESC, r.id DESC
    LIMIT $1 OFFSET $2
  `, limit, offset)
	if err != nil {
		return RequestListResult{}, classify(err)
	}
	defer rows.Close()

	out := []LeaveRequest{}
	for rows.Next() {
		var name, email string
		req, err := scanRequest(rows, &name, &email)
		if err != nil {
			return RequestListResult{}, err
		}
		req.UserName = name
		req.UserEmail = email
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return RequestListResult{}, classify(err)
	}
	return RequestListResult{Requests: out, Total: total}, nil
}

func (s *Store) RequestByID(ctx context.Context, requestID string) (LeaveRequest, error) {
	var name, email string
	req, err := scanRequest(s.DB.QueryRow(ctx, `
    SELECT `+requestColumns+`, u.name, u.email
    FROM leave_requests r
    JOIN users u ON u.id = r.user_id
    WHERE r.id = $1
  `, requestID), &name, &email)
	if err != nil {
		return LeaveRequest{}, err
	}
	req.UserName = name
	req.UserEmail = email
	return req, nil
}

func (t *txStore) LockUser(ctx context.Context, userID string) (Balance, error) {
	out := Balance{UserID: userID}
	err := t.tx.QueryRow(ctx, `
    SELECT available_leave
    FROM users
    WHERE id = $1
    FOR UPDATE
  `, userID).Scan(&out.AvailableLeave)
	if errors.Is(err, pgx.ErrNoRows) {
		return Balance{}, ErrNotFound
	}
	if err != nil {
		return Balance{}, classify(err)
	}
	return out, nil
}

func (t *txStore) PendingRequestForUser(ctx context.Context, userID string) (LeaveRequest, bool, error) {
	req, err := scanRequest(t.tx.QueryRow(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests r
    WHERE r.user_id = $1 AND r.status = $2
    ORDER BY r.created_at DESC
    LIMIT 1
  `, userID, StatusPending))
	if errors.Is(err, ErrNotFound) {
		return LeaveRequest{}, false, nil
	}
	if err != nil {
		return LeaveRequest{}, false, err
	}
	return req, true, nil
}

func (t *txStore) InsertRequest(ctx context.Context, req LeaveRequest) (LeaveRequest, error) {
	err := t.tx.QueryRow(ctx, `
    INSERT INTO leave_requests (user_id, start_date, end_date, days, reason, document_ref, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id, admin_comment, created_at
  `, req.UserID, req.StartDate, req.EndDate, req.Days, req.Reason, nullable(req.DocumentRef), req.Status).
		Scan(&req.ID, &req.AdminComment, &req.CreatedAt)
	if err != nil {
		return LeaveRequest{}, classify(err)
	}
	return req, nil
}

func (t *txStore) LockRequest(ctx context.Context, requestID string) (LeaveRequest, error) {
	return scanRequest(t.tx.QueryRow(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests r
    WHERE r.id = $1
    FOR UPDATE
  `, requestID))
}

// DebitBalance subtracts days only while the balance covers them.
func (t *txStore) DebitBalance(ctx context.Context, userID string, days int) (Balance, error) {
	out := Balance{UserID: userID}
	err := t.tx.QueryRow(ctx, `
    UPDATE users
    SET available_leave = GREATEST(available_leave - $2, 0)
    WHERE id = $1 AND available_leave >= $2
    RETURNING available_leave
  `, userID, days).Scan(&out.AvailableLeave)
	if errors.Is(err, pgx.ErrNoRows) {
		return Balance{}, ErrInsufficientBalance
	}
	if err != nil {
		return Balance{}, classify(err)
	}
	return out, nil
}

// ResolveRequest moves a pending request to its terminal status. A request that is no longer
// pending yields ErrAlreadyProcessed.
func (t *txStore) ResolveRequest(ctx context.Context, requestID string, status Status, comment string) (LeaveRequest, error) {
	req, err := scanRequest(t.tx.QueryRow(ctx, `
    UPDATE leave_requests r
    SET status = $2, admin_comment = $3, resolved_at = now()
    WHERE r.id = $1 AND r.status = $4
    RETURNING `+requestColumns+`
  `, requestID, status, comment, StatusPending))
	if errors.Is(err, ErrNotFound) {
		return LeaveRequest{}, ErrAlreadyProcessed
	}
	return req, err
}
