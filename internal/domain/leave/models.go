package leave

import "time"

type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

type LeaveRequest struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	StartDate    time.Time  `json:"startDate"`
	EndDate      time.Time  `json:"endDate"`
	Days         int        `json:"days"`
	Reason       string     `json:"reason"`
	DocumentRef  string     `json:"documentRef,omitempty"`
	Status       Status     `json:"status"`
	AdminComment string     `json:"adminComment"`
	CreatedAt    time.Time  `json:"createdAt"`
	ResolvedAt   *time.Time `json:"resolvedAt,omitempty"`
	UserName     string     `json:"userName,omitempty"`
	UserEmail    string     `json:"userEmail,omitempty"`
}

// Summary is the short form returned alongside a conflicting pending request.
func (r LeaveRequest) Summary() RequestSummary {
	return RequestSummary{
		ID:        r.ID,
		StartDate: r.StartDate.Format(DateLayout),
		EndDate:   r.EndDate.Format(DateLayout),
		Days:      r.Days,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
	}
}

type RequestSummary struct {
	ID        string    `json:"id"`
	StartDate string    `json:"startDate"`
	EndDate   string    `json:"endDate"`
	Days      int       `json:"days"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Balance is the slice of a user row the ledger reads and writes.
type Balance struct {
	UserID         string `json:"id"`
	AvailableLeave int    `json:"availableLeave"`
}

type CreateInput struct {
	UserID        string
	StartDate     string
	EndDate       string
	Reason        string
	DocumentRef   string
	RequestedDays *int
}

type ResolveInput struct {
	RequestID  string
	Action     Action
	Comment    string
	CallerRole string
}

type ResolveResult struct {
	Request LeaveRequest `json:"request"`
	User    Balance      `json:"user"`
}

type RequestListResult struct {
	Requests []LeaveRequest
	Total    int
}

type BalanceDetails struct {
	Requested int `json:"requested"`
	Available int `json:"available"`
}
