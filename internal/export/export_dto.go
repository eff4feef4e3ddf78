// Package export implements a scope-filtered, restartable projection
// of vacation requests serialized as CSV or XLSX, with role-based row
// filtering and start/end/status/team/user query knobs.
package export

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"vacationplanner/internal/vacation"
)

// Format selects the output serialization. Only these two are
// supported; no PDF/JSON export.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Filter narrows the projected rows before the Principal's scope is
// intersected in by Service.Stream.
type Filter struct {
	From   *time.Time
	To     *time.Time
	Status vacation.Status
	TeamID *uuid.UUID
	UserID *uuid.UUID
}

// Row is one flattened projection record, shaped for a spreadsheet
// column set rather than the nested JSON vacation.Response uses.
type Row struct {
	RequestID      string
	UserEmail      string
	UserFullName   string
	Type           string
	Status         string
	StartDate      string
	EndDate        string
	DaysCount      int
	Reason         string
	ApproverEmail  string
	ApprovedAt     string
	RejectedReason string
}

var columns = []string{
	"Request ID", "Employee Email", "Employee Name", "Type", "Status",
	"Start Date", "End Date", "Days", "Reason", "Approver Email",
	"Approved At", "Rejected Reason",
}

func (r Row) values() []string {
	return []string{
		r.RequestID, r.UserEmail, r.UserFullName, r.Type, r.Status,
		r.StartDate, r.EndDate, strconv.Itoa(r.DaysCount), r.Reason, r.ApproverEmail,
		r.ApprovedAt, r.RejectedReason,
	}
}
