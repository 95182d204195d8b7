package model

import (
	"time"

	"github.com/admitguard/admitguard/internal/sheet"
)

// Canonical column names shared by the raw intake tab and the bucket tabs.
const (
	ColFirstName     = "First Name"
	ColLastName      = "Last Name"
	ColPhone         = "Phone Number"
	ColEmail         = "Email Address"
	ColAadhaar       = "Aadhaar Number"
	ColGender        = "Gender"
	ColDateOfBirth   = "Date of Birth"
	ColState         = "State"
	ColCity          = "City"
	ColQualification = "Highest Qualification"
	ColGradYear      = "Graduation Year"
	ColCGPA          = "CGPA"
	ColPercentage    = "Total Percentage"
	ColExperience    = "Total Experience"

	ColSubmissionID = "Submission ID"
	ColRespondentID = "Respondent ID"
	ColSubmittedAt  = "Submitted at"

	ColMarker = "Pipeline Status"
)

// Columns added by the pipeline itself.
const (
	ColProcessedAt     = "Processed At"
	ColRejectReasons   = "Rejection Reasons"
	ColRejectedAt      = "Rejected At"
	ColExceptionReason = "Exception Reason"
	ColReviewStatus    = "Status"
	ColReviewerRemark  = "Reviewer Remark"
	ColFlaggedAt       = "Flagged At"
	ColTestScore       = "Test Score"
	ColRank            = "Rank"
	ColInterviewStatus = "Interview Status"
	ColInterviewDate   = "Interview Date"
	ColInterviewer     = "Interviewer"
)

// ColScoreEmail is the identifier column of the external score tab.
const ColScoreEmail = "Email ID"

// BaseColumns is the canonical column order for applicant fields, used when
// a bucket tab is written for the first time.
var BaseColumns = []string{
	ColFirstName, ColLastName, ColPhone, ColEmail,
	ColAadhaar, ColGender, ColDateOfBirth, ColState, ColCity,
	ColQualification, ColGradYear, ColCGPA, ColPercentage, ColExperience,
}

// MandatoryColumns are the raw columns that must be non-empty for a record
// to pass validation.
var MandatoryColumns = []string{
	ColFirstName, ColLastName, ColPhone, ColEmail,
	ColAadhaar, ColGender, ColDateOfBirth, ColState, ColCity,
	ColQualification, ColGradYear, ColCGPA, ColPercentage,
}

// SubmissionMetaColumns are form-submission metadata columns. They are
// stripped from accepted/rejected rows but kept on exception rows so an
// approved exception can carry them back.
var SubmissionMetaColumns = []string{ColSubmissionID, ColRespondentID, ColSubmittedAt}

// ExceptionOnlyColumns exist only on exception rows and are stripped when a
// row migrates to the accepted tab.
var ExceptionOnlyColumns = []string{ColExceptionReason, ColReviewStatus, ColReviewerRemark, ColFlaggedAt, ColMarker}

// Marker values written back to the raw tab's Pipeline Status column.
const (
	MarkerAccepted  = "Processed - Clean"
	MarkerRejected  = "Processed - Rejected"
	MarkerException = "Processed - Exception"
	MarkerApproved  = "Approved - Clean"
)

// Disposition is the outcome of classifying a single raw record.
type Disposition string

const (
	Accept    Disposition = "accept"
	Reject    Disposition = "reject"
	Exception Disposition = "exception"
)

// Classification is the ephemeral result of running the eligibility rules
// over one raw record. It is immediately projected into a bucket row and
// never persisted as-is.
type Classification struct {
	Disposition Disposition
	Reasons     []string
	At          time.Time
}

// ReviewStatus is the reviewer-settable state of an exception row.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// RawRecord is one applicant submission from the raw intake tab.
type RawRecord struct {
	FirstName     string
	LastName      string
	Phone         string
	Email         string
	Aadhaar       string
	Gender        string
	DateOfBirth   string
	State         string
	City          string
	Qualification string
	GradYear      string
	CGPA          string
	Percentage    string
	Experience    string

	SubmissionID string
	RespondentID string
	SubmittedAt  string

	// Marker is the processing marker already present on the row, empty if
	// the row has never been evaluated.
	Marker string

	// Extra preserves columns the schema does not know about so they
	// survive the projection into bucket rows.
	Extra sheet.Row
}

// knownColumns maps every canonical raw column to a setter used by
// RawFromRow. Unknown columns land in Extra.
var knownColumns = map[string]func(*RawRecord, string){
	ColFirstName:     func(r *RawRecord, v string) { r.FirstName = v },
	ColLastName:      func(r *RawRecord, v string) { r.LastName = v },
	ColPhone:         func(r *RawRecord, v string) { r.Phone = v },
	ColEmail:         func(r *RawRecord, v string) { r.Email = v },
	ColAadhaar:       func(r *RawRecord, v string) { r.Aadhaar = v },
	ColGender:        func(r *RawRecord, v string) { r.Gender = v },
	ColDateOfBirth:   func(r *RawRecord, v string) { r.DateOfBirth = v },
	ColState:         func(r *RawRecord, v string) { r.State = v },
	ColCity:          func(r *RawRecord, v string) { r.City = v },
	ColQualification: func(r *RawRecord, v string) { r.Qualification = v },
	ColGradYear:      func(r *RawRecord, v string) { r.GradYear = v },
	ColCGPA:          func(r *RawRecord, v string) { r.CGPA = v },
	ColPercentage:    func(r *RawRecord, v string) { r.Percentage = v },
	ColExperience:    func(r *RawRecord, v string) { r.Experience = v },
	ColSubmissionID:  func(r *RawRecord, v string) { r.SubmissionID = v },
	ColRespondentID:  func(r *RawRecord, v string) { r.RespondentID = v },
	ColSubmittedAt:   func(r *RawRecord, v string) { r.SubmittedAt = v },
	ColMarker:        func(r *RawRecord, v string) { r.Marker = v },
}

// RawFromRow builds a RawRecord from a sheet row. Columns outside the
// canonical schema are kept in Extra.
func RawFromRow(row sheet.Row) RawRecord {
	var rec RawRecord
	for col, val := range row {
		if set, ok := knownColumns[col]; ok {
			set(&rec, val)
			continue
		}
		if rec.Extra == nil {
			rec.Extra = sheet.Row{}
		}
		rec.Extra[col] = val
	}
	return rec
}

// Field returns the value of a canonical raw column by name, falling back
// to Extra for unknown columns.
func (r RawRecord) Field(col string) string {
	switch col {
	case ColFirstName:
		return r.FirstName
	case ColLastName:
		return r.LastName
	case ColPhone:
		return r.Phone
	case ColEmail:
		return r.Email
	case ColAadhaar:
		return r.Aadhaar
	case ColGender:
		return r.Gender
	case ColDateOfBirth:
		return r.DateOfBirth
	case ColState:
		return r.State
	case ColCity:
		return r.City
	case ColQualification:
		return r.Qualification
	case ColGradYear:
		return r.GradYear
	case ColCGPA:
		return r.CGPA
	case ColPercentage:
		return r.Percentage
	case ColExperience:
		return r.Experience
	case ColSubmissionID:
		return r.SubmissionID
	case ColRespondentID:
		return r.RespondentID
	case ColSubmittedAt:
		return r.SubmittedAt
	case ColMarker:
		return r.Marker
	default:
		return r.Extra[col]
	}
}

// Row projects the record back into a sheet row. The processing marker is
// never included: it belongs only to the raw tab. Submission metadata is
// included only when withMeta is true.
func (r RawRecord) Row(withMeta bool) sheet.Row {
	row := sheet.Row{
		ColFirstName:     r.FirstName,
		ColLastName:      r.LastName,
		ColPhone:         r.Phone,
		ColEmail:         r.Email,
		ColAadhaar:       r.Aadhaar,
		ColGender:        r.Gender,
		ColDateOfBirth:   r.DateOfBirth,
		ColState:         r.State,
		ColCity:          r.City,
		ColQualification: r.Qualification,
		ColGradYear:      r.GradYear,
		ColCGPA:          r.CGPA,
		ColPercentage:    r.Percentage,
		ColExperience:    r.Experience,
	}
	if withMeta {
		row[ColSubmissionID] = r.SubmissionID
		row[ColRespondentID] = r.RespondentID
		row[ColSubmittedAt] = r.SubmittedAt
	}
	for col, val := range r.Extra {
		row[col] = val
	}
	return row
}

// FullName joins first and last name for log lines.
func (r RawRecord) FullName() string {
	switch {
	case r.FirstName == "":
		return r.LastName
	case r.LastName == "":
		return r.FirstName
	default:
		return r.FirstName + " " + r.LastName
	}
}
