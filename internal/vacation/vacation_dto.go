package vacation

import "time"

type CreateRequest struct {
	StartDate string `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" binding:"required,datetime=2006-01-02"`
	Type      Type   `json:"type" binding:"required,oneof=annual sick personal unpaid other"`
	Reason    string `json:"reason" binding:"max=2000"`

	// SubmitImmediately skips the draft state and transitions straight
	// to pending in the same transaction, when the client submits a
	// final payload rather than staging a draft first.
	SubmitImmediately bool `json:"submit_immediately"`
}

type ModifyRequest struct {
	StartDate string `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" binding:"required,datetime=2006-01-02"`
	Type      Type   `json:"type" binding:"required,oneof=annual sick personal unpaid other"`
	Reason    string `json:"reason" binding:"max=2000"`
}

type ApproveRequest struct {
	Comment string `json:"comment" binding:"max=2000"`
}

type RejectRequest struct {
	Reason string `json:"reason" binding:"required,max=2000"`
}

type Response struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	TeamID         *string    `json:"team_id,omitempty"`
	PeriodID       *string    `json:"period_id,omitempty"`
	StartDate      string     `json:"start_date"`
	EndDate        string     `json:"end_date"`
	Type           Type       `json:"type"`
	Status         Status     `json:"status"`
	Reason         string     `json:"reason"`
	DaysCount      int        `json:"days_count"`
	ApproverID      *string    `json:"approver_id,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	ApproverComment string     `json:"approver_comment,omitempty"`
	RejectedReason  string     `json:"rejected_reason,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func mapToResponse(r Request) Response {
	resp := Response{
		ID:             r.ID.String(),
		UserID:         r.UserID.String(),
		StartDate:      r.StartDate.Format("2006-01-02"),
		EndDate:        r.EndDate.Format("2006-01-02"),
		Type:           r.Type,
		Status:         r.Status,
		Reason:         r.Reason,
		DaysCount:       r.DaysCount,
		RejectedReason:  r.RejectedReason,
		ApproverComment: r.ApproverComment,
		ApprovedAt:      r.ApprovedAt,
		CreatedAt:       r.CreatedAt,
	}
	if r.TeamID != nil {
		s := r.TeamID.String()
		resp.TeamID = &s
	}
	if r.PeriodID != nil {
		s := r.PeriodID.String()
		resp.PeriodID = &s
	}
	if r.ApproverID != nil {
		s := r.ApproverID.String()
		resp.ApproverID = &s
	}
	return resp
}

func mapToListResponse(reqs []Request) []Response {
	out := make([]Response, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, mapToResponse(r))
	}
	return out
}

type BalanceResponse struct {
	PeriodID       string `json:"period_id"`
	PeriodName     string `json:"period_name"`
	TotalAvailable int    `json:"total_available"`
	Remaining      int    `json:"remaining"`
	Pending        int    `json:"pending"`
}
