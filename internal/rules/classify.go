package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/admitguard/admitguard/internal/model"
)

var (
	emailRe = regexp.MustCompile(`^[\w.-]+@[\w.-]+\.\w{2,}$`)
	phoneRe = regexp.MustCompile(`^[6-9]\d{9}$`)
	idRe    = regexp.MustCompile(`^\d{12}$`)
)

// Seen accumulates identifiers observed so far. Duplicate detection is a
// fold over the batch: the first occurrence of an identifier passes and
// marks it, later occurrences in the same run are rejected.
type Seen struct {
	Emails   map[string]bool
	Aadhaars map[string]bool
}

// NewSeen creates an empty accumulator.
func NewSeen() *Seen {
	return &Seen{
		Emails:   make(map[string]bool),
		Aadhaars: make(map[string]bool),
	}
}

// AddEmails seeds the email set (already-processed rows from prior runs).
func (s *Seen) AddEmails(emails ...string) {
	for _, e := range emails {
		if e != "" {
			s.Emails[e] = true
		}
	}
}

// AddAadhaars seeds the Aadhaar set (ids already present in the buckets).
func (s *Seen) AddAadhaars(ids ...string) {
	for _, id := range ids {
		if id != "" {
			s.Aadhaars[id] = true
		}
	}
}

// isNullish reports a missing or placeholder value ("nan"/"none" come from
// upstream form exports).
func isNullish(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "" || v == "nan" || v == "none"
}

// Classify runs every eligibility rule over a normalized record and
// decides its disposition. Hard failures force Reject and suppress any
// soft reasons; soft failures alone route to Exception; a clean record is
// Accepted. As a side effect the record's email and Aadhaar are marked
// seen so later duplicates in the same batch fail.
func Classify(rec model.RawRecord, th Thresholds, seen *Seen, now time.Time) model.Classification {
	var hard, soft []string

	for _, col := range model.MandatoryColumns {
		if isNullish(rec.Field(col)) {
			hard = append(hard, fmt.Sprintf("'%s' is missing", col))
		}
	}

	if rec.Email != "" && !emailRe.MatchString(rec.Email) {
		hard = append(hard, fmt.Sprintf("Invalid email format: '%s'", rec.Email))
	}

	if seen.Emails[rec.Email] {
		hard = append(hard, fmt.Sprintf("Duplicate email: '%s'", rec.Email))
	} else if rec.Email != "" {
		seen.Emails[rec.Email] = true
	}

	if rec.Phone != "" && !phoneRe.MatchString(rec.Phone) {
		hard = append(hard, fmt.Sprintf("Invalid phone '%s' (must be 10 digits, start with 6-9)", rec.Phone))
	}

	if rec.Aadhaar != "" {
		if !idRe.MatchString(rec.Aadhaar) {
			hard = append(hard, fmt.Sprintf("Invalid Aadhaar '%s' (must be 12 digits)", rec.Aadhaar))
		}
		if seen.Aadhaars[rec.Aadhaar] {
			hard = append(hard, fmt.Sprintf("Duplicate Aadhaar: '%s'", rec.Aadhaar))
		} else {
			seen.Aadhaars[rec.Aadhaar] = true
		}
	}

	hard, soft = checkPercentage(rec.Percentage, th, hard, soft)
	hard, soft = checkCGPA(rec.CGPA, th, hard, soft)
	hard = checkGradYear(rec.GradYear, th, hard)
	hard = checkExperience(rec.Experience, th, hard)

	switch {
	case len(hard) > 0:
		return model.Classification{Disposition: model.Reject, Reasons: hard, At: now}
	case len(soft) > 0:
		return model.Classification{Disposition: model.Exception, Reasons: soft, At: now}
	default:
		return model.Classification{Disposition: model.Accept, At: now}
	}
}

// checkPercentage applies the three-way buffered comparison: out of range
// or below min-buffer is hard, inside the buffer window is soft, at or
// above the minimum passes.
func checkPercentage(raw string, th Thresholds, hard, soft []string) ([]string, []string) {
	if isNullish(raw) {
		return hard, soft
	}
	pct, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return append(hard, fmt.Sprintf("Invalid percentage value: '%s'", strings.TrimSpace(raw))), soft
	}
	switch {
	case pct < 0 || pct > 100:
		hard = append(hard, fmt.Sprintf("Percentage %s out of range (0-100)", fmtNum(pct)))
	case pct < th.MinPercentage-th.BufferPct:
		hard = append(hard, fmt.Sprintf("Percentage %s%% is below minimum %s%%", fmtNum(pct), fmtNum(th.MinPercentage)))
	case pct < th.MinPercentage:
		soft = append(soft, fmt.Sprintf("Percentage %s%% is slightly below minimum %s%% (within %s%% buffer)",
			fmtNum(pct), fmtNum(th.MinPercentage), fmtNum(th.BufferPct)))
	}
	return hard, soft
}

func checkCGPA(raw string, th Thresholds, hard, soft []string) ([]string, []string) {
	if isNullish(raw) {
		return hard, soft
	}
	cgpa, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return append(hard, fmt.Sprintf("Invalid CGPA value: '%s'", strings.TrimSpace(raw))), soft
	}
	switch {
	case cgpa < 0 || cgpa > 10:
		hard = append(hard, fmt.Sprintf("CGPA %s out of range (0-10)", fmtNum(cgpa)))
	case cgpa < th.MinCGPA-th.BufferCGPA:
		hard = append(hard, fmt.Sprintf("CGPA %s is below minimum %s", fmtNum(cgpa), fmtNum(th.MinCGPA)))
	case cgpa < th.MinCGPA:
		soft = append(soft, fmt.Sprintf("CGPA %s is slightly below minimum %s (within %s buffer)",
			fmtNum(cgpa), fmtNum(th.MinCGPA), fmtNum(th.BufferCGPA)))
	}
	return hard, soft
}

// checkGradYear treats an empty year as 0 so it fails the range check, the
// same way the intake forms have always surfaced missing years.
func checkGradYear(raw string, th Thresholds, hard []string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = "0"
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return append(hard, "Invalid graduation year")
	}
	if year < th.GradYearMin || year > th.GradYearMax {
		hard = append(hard, fmt.Sprintf("Graduation year %d out of range (%d-%d)", year, th.GradYearMin, th.GradYearMax))
	}
	return hard
}

func checkExperience(raw string, th Thresholds, hard []string) []string {
	if isNullish(raw) {
		return hard
	}
	exp, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return append(hard, fmt.Sprintf("Invalid experience value: '%s'", strings.TrimSpace(raw)))
	}
	if exp < 0 || exp > th.MaxExperience {
		hard = append(hard, fmt.Sprintf("Experience %s yrs out of range (0-%s)", fmtNum(exp), fmtNum(th.MaxExperience)))
	}
	return hard
}

// fmtNum renders a float without trailing zeros (58 not 58.000000).
func fmtNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
