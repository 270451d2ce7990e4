package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"leavelite/internal/apperror"
	"leavelite/internal/domain/auth"
	"leavelite/internal/platform/config"
)

var (
	ErrAlreadyProcessedConflict = apperror.Conflict("already processed")
	ErrPendingConflict          = apperror.Conflict("a pending leave request already exists")
)

type Service struct {
	Store  StoreAPI
	Policy config.Policy
	Logger *zap.Logger
}

func NewService(store StoreAPI, policy config.Policy, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{Store: store, Policy: policy, Logger: logger.Named("leave.service")}
}

// Create validates a new request against the date range, the policy and the user's balance,
// then persists it as Pending. The balance is not touched.
func (s *Service) Create(ctx context.Context, input CreateInput) (LeaveRequest, error) {
	reason := strings.TrimSpace(input.Reason)
	if strings.TrimSpace(input.StartDate) == "" || strings.TrimSpace(input.EndDate) == "" || reason == "" {
		return LeaveRequest{}, apperror.Validation("start date, end date and reason are required")
	}

	start, err := ParseDate(input.StartDate)
	if err != nil {
		return LeaveRequest{}, apperror.Validation("invalid date")
	}
	end, err := ParseDate(input.EndDate)
	if err != nil {
		return LeaveRequest{}, apperror.Validation("invalid date")
	}
	if start.After(end) {
		return LeaveRequest{}, apperror.Validation("start after end")
	}

	days := DaysBetween(start, end)
	if input.RequestedDays != nil && *input.RequestedDays > 0 && *input.RequestedDays != days {
		return LeaveRequest{}, apperror.Validation("requested days do not match date range").
			WithDetails(map[string]int{"requested": *input.RequestedDays, "computed": days})
	}
	if days > s.Policy.MaxRequestDays {
		return LeaveRequest{}, apperror.Validation(fmt.Sprintf("exceeds %d days", s.Policy.MaxRequestDays))
	}

	documentRef := strings.TrimSpace(input.DocumentRef)

	var created LeaveRequest
	err = s.Store.InTx(ctx, func(tx TxStore) error {
		balance, err := tx.LockUser(ctx, input.UserID)
		if err != nil {
			return err
		}

		existing, found, err := tx.PendingRequestForUser(ctx, input.UserID)
		if err != nil {
			return err
		}
		if found {
			return ErrPendingConflict.WithDetails(existing.Summary())
		}

		if balance.AvailableLeave <= 0 {
			return apperror.InsufficientBalance("no leave balance available").
				WithDetails(BalanceDetails{Requested: days, Available: balance.AvailableLeave})
		}
		if days > balance.AvailableLeave {
			return apperror.InsufficientBalance(fmt.Sprintf("requested %d days but only %d available", days, balance.AvailableLeave)).
				WithDetails(BalanceDetails{Requested: days, Available: balance.AvailableLeave})
		}

		if documentRef != "" {
			if err := ValidateDocumentRef(documentRef, s.Policy.AllowedDocumentHosts); err != nil {
				return apperror.Validation(err.Error())
			}
		}

		created, err = tx.InsertRequest(ctx, LeaveRequest{
			UserID:      input.UserID,
			StartDate:   start,
			EndDate:     end,
			Days:        days,
			Reason:      reason,
			DocumentRef: documentRef,
			Status:      StatusPending,
		})
		return err
	})
	if err != nil {
		return LeaveRequest{}, s.mapError(err, "create leave request")
	}

	s.Logger.Info("leave request created",
		zap.String("requestId", created.ID),
		zap.String("userId", created.UserID),
		zap.Int("days", created.Days),
	)
	return created, nil
}

// Resolve moves a pending request to Approved or Rejected. Approval debits the owner's balance
// by the request's days in the same transaction as the status change.
func (s *Service) Resolve(ctx context.Context, input ResolveInput) (ResolveResult, error) {
	if input.CallerRole != auth.RoleAdmin {
		return ResolveResult{}, apperror.Authorization("only administrators may resolve leave requests")
	}

	var result ResolveResult
	err := s.Store.InTx(ctx, func(tx TxStore) error {
		req, err := tx.LockRequest(ctx, input.RequestID)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return ErrAlreadyProcessedConflict.WithDetails(req.Summary())
		}

		days := req.Days
		if days <= 0 {
			days = DaysBetween(req.StartDate, req.EndDate)
		}

		var status Status
		var balance Balance
		switch input.Action {
		case ActionApprove:
			balance, err = tx.LockUser(ctx, req.UserID)
			if err != nil {
				return err
			}
			if balance.AvailableLeave < days {
				return apperror.InsufficientBalance(fmt.Sprintf("request needs %d days but only %d available", days, balance.AvailableLeave)).
					WithDetails(BalanceDetails{Requested: days, Available: balance.AvailableLeave})
			}
			balance, err = tx.DebitBalance(ctx, req.UserID, days)
			if err != nil {
				return err
			}
			status = StatusApproved
		case ActionReject:
			balance, err = tx.LockUser(ctx, req.UserID)
			if err != nil {
				return err
			}
			status = StatusRejected
		default:
			return apperror.Validation("invalid action")
		}

		updated, err := tx.ResolveRequest(ctx, req.ID, status, strings.TrimSpace(input.Comment))
		if err != nil {
			return err
		}
		result = ResolveResult{Request: updated, User: balance}
		return nil
	})
	if err != nil {
		return ResolveResult{}, s.mapError(err, "resolve leave request")
	}

	s.Logger.Info("leave request resolved",
		zap.String("requestId", result.Request.ID),
		zap.String("status", string(result.Request.Status)),
		zap.Int("availableLeave", result.User.AvailableLeave),
	)
	return result, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]LeaveRequest, error) {
	requests, err := s.Store.ListForUser(ctx, userID)
	if err != nil {
		return nil, s.mapError(err, "list leave requests")
	}
	return requests, nil
}

func (s *Service) ListAll(ctx context.Context, callerRole string, limit, offset int) (RequestListResult, error) {
	if callerRole != auth.RoleAdmin {
		return RequestListResult{}, apperror.Authorization("only administrators may list all leave requests")
	}
	result, err := s.Store.ListAll(ctx, limit, offset)
	if err != nil {
		return RequestListResult{}, s.mapError(err, "list leave requests")
	}
	return result, nil
}

// Get returns one request to its owner or to an administrator.
func (s *Service) Get(ctx context.Context, caller auth.Identity, requestID string) (LeaveRequest, error) {
	req, err := s.Store.RequestByID(ctx, requestID)
	if err != nil {
		return LeaveRequest{}, s.mapError(err, "load leave request")
	}
	if !caller.IsAdmin() && req.UserID != caller.UserID {
		return LeaveRequest{}, apperror.NotFound("leave request not found")
	}
	return req, nil
}

func (s *Service) mapError(err error, op string) error {
	if _, ok := apperror.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return apperror.NotFound("leave request or user not found")
	case errors.Is(err, ErrPendingExists):
		return ErrPendingConflict
	case errors.Is(err, ErrAlreadyProcessed):
		return ErrAlreadyProcessedConflict
	case errors.Is(err, ErrInsufficientBalance):
		return apperror.InsufficientBalance("insufficient leave balance")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperror.Dependency(err, "request cancelled")
	}
	s.Logger.Error(op+" failed", zap.Error(err))
	return apperror.Dependency(err, op+" failed")
}
