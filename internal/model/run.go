package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/admitguard/admitguard/internal/sheet"
)

// RunStatus is the final outcome of one pipeline execution.
type RunStatus string

const (
	RunSuccess RunStatus = "Success"
	RunPartial RunStatus = "Partial"
	RunFailed  RunStatus = "Failed"
)

// RunRecord is the audit entry for one pipeline execution. It is built up
// by the steps as the run progresses and appended to the run-log tab at the
// end; it is never mutated after being written.
type RunRecord struct {
	ID        string
	StartedAt time.Time
	EndedAt   time.Time

	RawRowsRead        int
	NewRowsFound       int
	AcceptedWritten    int
	RejectedWritten    int
	ExceptionWritten   int
	ExceptionsApproved int

	ShortlistAdded       int
	ShortlistTotal       int
	ShortlistNotSelected int

	Errors []string
	Status RunStatus
}

// NewRunRecord starts a run record with a timestamp-shaped id.
func NewRunRecord(now time.Time) *RunRecord {
	return &RunRecord{
		ID:        now.Format("20060102-150405"),
		StartedAt: now,
	}
}

// AddError records a step-tagged failure message.
func (r *RunRecord) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// Finish stamps the end time and derives the final status: Failed when
// errors occurred and no new rows were found, Partial when errors occurred
// but some progress was made, Success otherwise.
func (r *RunRecord) Finish(now time.Time) {
	r.EndedAt = now
	switch {
	case len(r.Errors) > 0 && r.NewRowsFound == 0:
		r.Status = RunFailed
	case len(r.Errors) > 0:
		r.Status = RunPartial
	default:
		r.Status = RunSuccess
	}
}

// ErrorText joins the recorded errors for the run-log row, "None" when the
// run was clean.
func (r *RunRecord) ErrorText() string {
	if len(r.Errors) == 0 {
		return "None"
	}
	return strings.Join(r.Errors, "; ")
}

// RunLogColumns are the run-log tab columns, in write order.
var RunLogColumns = []string{
	"Run ID", "Start Time", "End Time", "Raw Rows Read",
	"New Rows Found", "Clean Written", "Rejected Written",
	"Exception Written", "Exceptions Approved",
	"Interview Added (This Run)", "Interview Total", "Interview Not Selected",
	"Errors", "Status",
}

const runLogTimeLayout = "2006-01-02 15:04:05"

// Row projects the run record into a run-log row.
func (r *RunRecord) Row() sheet.Row {
	return sheet.Row{
		"Run ID":                     r.ID,
		"Start Time":                 r.StartedAt.Format(runLogTimeLayout),
		"End Time":                   r.EndedAt.Format(runLogTimeLayout),
		"Raw Rows Read":              strconv.Itoa(r.RawRowsRead),
		"New Rows Found":             strconv.Itoa(r.NewRowsFound),
		"Clean Written":              strconv.Itoa(r.AcceptedWritten),
		"Rejected Written":           strconv.Itoa(r.RejectedWritten),
		"Exception Written":          strconv.Itoa(r.ExceptionWritten),
		"Exceptions Approved":        strconv.Itoa(r.ExceptionsApproved),
		"Interview Added (This Run)": strconv.Itoa(r.ShortlistAdded),
		"Interview Total":            strconv.Itoa(r.ShortlistTotal),
		"Interview Not Selected":     strconv.Itoa(r.ShortlistNotSelected),
		"Errors":                     r.ErrorText(),
		"Status":                     string(r.Status),
	}
}
