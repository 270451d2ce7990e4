package leavehandler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"leavelite/internal/domain/auth"
	"leavelite/internal/domain/leave"
	"leavelite/internal/transport/http/api"
	"leavelite/internal/transport/http/middleware"
	"leavelite/internal/transport/http/shared"
)

type Service interface {
	Create(ctx context.Context, input leave.CreateInput) (leave.LeaveRequest, error)
	Resolve(ctx context.Context, input leave.ResolveInput) (leave.ResolveResult, error)
	ListForUser(ctx context.Context, userID string) ([]leave.LeaveRequest, error)
	ListAll(ctx context.Context, callerRole string, limit, offset int) (leave.RequestListResult, error)
	Get(ctx context.Context, caller auth.Identity, requestID string) (leave.LeaveRequest, error)
}

type Handler struct {
	Service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave/requests", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/", h.handleCreateRequest)
		r.Get("/mine", h.handleListMine)
		r.With(middleware.RequireRole(auth.RoleAdmin)).Get("/", h.handleListAll)
		r.Get("/{requestID}", h.handleGetRequest)
		r.Get("/{requestID}/slip", h.handleDecisionSlip)
		r.With(middleware.RequireRole(auth.RoleAdmin)).Patch("/{requestID}", h.handleResolve)
		r.With(middleware.RequireRole(auth.RoleAdmin)).Post("/{requestID}/approve", h.handleResolveAction(leave.ActionApprove))
		r.With(middleware.RequireRole(auth.RoleAdmin)).Post("/{requestID}/reject", h.handleResolveAction(leave.ActionReject))
	})
}

type requestResponse struct {
	ID           string       `json:"id"`
	UserID       string       `json:"userId"`
	UserName     string       `json:"userName,omitempty"`
	UserEmail    string       `json:"userEmail,omitempty"`
	StartDate    string       `json:"startDate"`
	EndDate      string       `json:"endDate"`
	Days         int          `json:"days"`
	Reason       string       `json:"reason"`
	DocumentRef  string       `json:"documentRef,omitempty"`
	Status       leave.Status `json:"status"`
	AdminComment string       `json:"adminComment"`
	CreatedAt    time.Time    `json:"createdAt"`
	ResolvedAt   *time.Time   `json:"resolvedAt,omitempty"`
}

func toResponse(req leave.LeaveRequest) requestResponse {
	return requestResponse{
		ID:           req.ID,
		UserID:       req.UserID,
		UserName:     req.UserName,
		UserEmail:    req.UserEmail,
		StartDate:    req.StartDate.Format(leave.DateLayout),
		EndDate:      req.EndDate.Format(leave.DateLayout),
		Days:         req.Days,
		Reason:       req.Reason,
		DocumentRef:  req.DocumentRef,
		Status:       req.Status,
		AdminComment: req.AdminComment,
		CreatedAt:    req.CreatedAt,
		ResolvedAt:   req.ResolvedAt,
	}
}

func toResponses(reqs []leave.LeaveRequest) []requestResponse {
	out := make([]requestResponse, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, toResponse(req))
	}
	return out
}

type createRequestPayload struct {
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Reason      string `json:"reason" validate:"max=2000"`
	DocumentRef string `json:"documentRef" validate:"max=2048"`
	Days        *int   `json:"days"`
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload createRequestPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), requestID)
		return
	}
	if shared.Reject(w, payload, requestID) {
		return
	}

	created, err := h.Service.Create(r.Context(), leave.CreateInput{
		UserID:        user.UserID,
		StartDate:     payload.StartDate,
		EndDate:       payload.EndDate,
		Reason:        payload.Reason,
		DocumentRef:   payload.DocumentRef,
		RequestedDays: payload.Days,
	})
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	w.Header().Set("Location", "/api/v1/leave/requests/"+created.ID)
	api.Created(w, toResponse(created), requestID)
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	requests, err := h.Service.ListForUser(r.Context(), user.UserID)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, toResponses(requests), requestID)
}

func (h *Handler) handleListAll(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	page := shared.ParsePagination(r)
	result, err := h.Service.ListAll(r.Context(), user.Role, page.Limit, page.Offset)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(result.Total))
	api.Success(w, toResponses(result.Requests), requestID)
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	req, err := h.Service.Get(r.Context(), user, chi.URLParam(r, "requestID"))
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, toResponse(req), requestID)
}

type resolvePayload struct {
	Action  string `json:"action" validate:"required"`
	Comment string `json:"comment" validate:"max=2000"`
}

type resolveResponse struct {
	Request requestResponse `json:"request"`
	User    leave.Balance   `json:"user"`
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload resolvePayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), requestID)
		return
	}
	if shared.Reject(w, payload, requestID) {
		return
	}
	h.resolve(w, r, leave.ParseAction(payload.Action), payload.Comment)
}

type commentPayload struct {
	Comment string `json:"comment" validate:"max=2000"`
}

// handleResolveAction serves the approve and reject shortcuts. The body is optional.
func (h *Handler) handleResolveAction(action leave.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetRequestID(r.Context())
		var payload commentPayload
		if err := shared.DecodeJSON(r, &payload); err != nil && !errors.Is(err, shared.ErrEmptyBody) {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), requestID)
			return
		}
		if shared.Reject(w, payload, requestID) {
			return
		}
		h.resolve(w, r, action, payload.Comment)
	}
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request, action leave.Action, comment string) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	result, err := h.Service.Resolve(r.Context(), leave.ResolveInput{
		RequestID:  chi.URLParam(r, "requestID"),
		Action:     action,
		Comment:    comment,
		CallerRole: user.Role,
	})
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, resolveResponse{Request: toResponse(result.Request), User: result.User}, requestID)
}

func (h *Handler) handleDecisionSlip(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	req, err := h.Service.Get(r.Context(), user, chi.URLParam(r, "requestID"))
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}

	var buf bytes.Buffer
	if err := leave.WriteDecisionSlip(&buf, req); err != nil {
		api.FailError(w, err, requestID)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="leave-`+req.ID+`.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}
