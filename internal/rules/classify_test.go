package rules

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/admitguard/admitguard/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var testNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

// validRecord returns a record that passes every rule.
func validRecord() model.RawRecord {
	return model.RawRecord{
		FirstName:     "Rahul",
		LastName:      "Sharma",
		Phone:         "9876543210",
		Email:         "rahul.sharma@example.com",
		Aadhaar:       "123456789012",
		Gender:        "Male",
		DateOfBirth:   "2000-01-15",
		State:         "Delhi",
		City:          "New Delhi",
		Qualification: "B.Tech",
		GradYear:      "2020",
		CGPA:          "8.5",
		Percentage:    "75",
		Experience:    "2",
	}
}

func TestClassify_CleanRecordAccepted(t *testing.T) {
	cls := Classify(validRecord(), Defaults(), NewSeen(), testNow)

	assert.Equal(t, model.Accept, cls.Disposition)
	assert.Empty(t, cls.Reasons)
	assert.Equal(t, testNow, cls.At)
}

func TestClassify_MissingMandatoryField(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.RawRecord)
		reason string
	}{
		{"empty first name", func(r *model.RawRecord) { r.FirstName = "" }, "'First Name' is missing"},
		{"nan gender", func(r *model.RawRecord) { r.Gender = "nan" }, "'Gender' is missing"},
		{"none city", func(r *model.RawRecord) { r.City = "None" }, "'City' is missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(&rec)

			cls := Classify(rec, Defaults(), NewSeen(), testNow)
			assert.Equal(t, model.Reject, cls.Disposition)
			assert.Contains(t, cls.Reasons, tt.reason)
		})
	}
}

func TestClassify_InvalidEmailFormat(t *testing.T) {
	rec := validRecord()
	rec.Email = "not-an-email"

	cls := Classify(rec, Defaults(), NewSeen(), testNow)
	assert.Equal(t, model.Reject, cls.Disposition)
	assert.Contains(t, cls.Reasons, "Invalid email format: 'not-an-email'")
}

func TestClassify_DuplicateEmail(t *testing.T) {
	seen := NewSeen()

	first := Classify(validRecord(), Defaults(), seen, testNow)
	require.Equal(t, model.Accept, first.Disposition)

	dup := validRecord()
	dup.Aadhaar = "999999999999"
	second := Classify(dup, Defaults(), seen, testNow)
	assert.Equal(t, model.Reject, second.Disposition)
	assert.Contains(t, second.Reasons, "Duplicate email: 'rahul.sharma@example.com'")
}

func TestClassify_InvalidEmailStillMarksSeen(t *testing.T) {
	seen := NewSeen()

	bad := validRecord()
	bad.Email = "broken@"
	first := Classify(bad, Defaults(), seen, testNow)
	require.Equal(t, model.Reject, first.Disposition)

	again := validRecord()
	again.Email = "broken@"
	again.Aadhaar = "999999999999"
	second := Classify(again, Defaults(), seen, testNow)
	assert.Contains(t, second.Reasons, "Duplicate email: 'broken@'")
}

func TestClassify_InvalidPhone(t *testing.T) {
	tests := []struct {
		name  string
		phone string
	}{
		{"too short", "98765"},
		{"bad leading digit", "1876543210"},
		{"eleven digits", "98765432109"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			rec.Phone = tt.phone

			cls := Classify(rec, Defaults(), NewSeen(), testNow)
			assert.Equal(t, model.Reject, cls.Disposition)
			assert.Contains(t, cls.Reasons,
				fmt.Sprintf("Invalid phone '%s' (must be 10 digits, start with 6-9)", tt.phone))
		})
	}
}

func TestClassify_AadhaarRules(t *testing.T) {
	t.Run("invalid length", func(t *testing.T) {
		rec := validRecord()
		rec.Aadhaar = "12345"

		cls := Classify(rec, Defaults(), NewSeen(), testNow)
		assert.Equal(t, model.Reject, cls.Disposition)
		assert.Contains(t, cls.Reasons, "Invalid Aadhaar '12345' (must be 12 digits)")
	})

	t.Run("duplicate", func(t *testing.T) {
		seen := NewSeen()
		require.Equal(t, model.Accept, Classify(validRecord(), Defaults(), seen, testNow).Disposition)

		dup := validRecord()
		dup.Email = "other@example.com"
		cls := Classify(dup, Defaults(), seen, testNow)
		assert.Equal(t, model.Reject, cls.Disposition)
		assert.Contains(t, cls.Reasons, "Duplicate Aadhaar: '123456789012'")
	})

	t.Run("empty never counts as duplicate", func(t *testing.T) {
		seen := NewSeen()
		a := validRecord()
		a.Aadhaar = ""
		b := validRecord()
		b.Aadhaar = ""
		b.Email = "other@example.com"

		Classify(a, Defaults(), seen, testNow)
		cls := Classify(b, Defaults(), seen, testNow)
		assert.NotContains(t, cls.Reasons, "Duplicate Aadhaar: ''")
	})
}

func TestClassify_PercentageBuffer(t *testing.T) {
	tests := []struct {
		name       string
		percentage string
		expected   model.Disposition
	}{
		{"at minimum", "60", model.Accept},
		{"above minimum", "75.5", model.Accept},
		{"inside buffer", "59.5", model.Exception},
		{"at buffer floor", "59", model.Exception},
		{"below buffer", "58.9", model.Reject},
		{"above range", "101", model.Reject},
		{"negative", "-1", model.Reject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			rec.Percentage = tt.percentage

			cls := Classify(rec, Defaults(), NewSeen(), testNow)
			assert.Equal(t, tt.expected, cls.Disposition)
		})
	}
}

func TestClassify_CGPABuffer(t *testing.T) {
	tests := []struct {
		name     string
		cgpa     string
		expected model.Disposition
	}{
		{"at minimum", "6", model.Accept},
		{"inside buffer", "5.95", model.Exception},
		{"at buffer floor", "5.9", model.Exception},
		{"below buffer", "5.85", model.Reject},
		{"above range", "10.5", model.Reject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			rec.CGPA = tt.cgpa

			cls := Classify(rec, Defaults(), NewSeen(), testNow)
			assert.Equal(t, tt.expected, cls.Disposition)
		})
	}
}

func TestClassify_HardFailureSuppressesSoftReasons(t *testing.T) {
	rec := validRecord()
	rec.Phone = "12345"
	rec.Percentage = "59.5"

	cls := Classify(rec, Defaults(), NewSeen(), testNow)
	assert.Equal(t, model.Reject, cls.Disposition)
	for _, reason := range cls.Reasons {
		assert.NotContains(t, reason, "slightly below")
	}
}

func TestClassify_GraduationYear(t *testing.T) {
	tests := []struct {
		name     string
		year     string
		expected model.Disposition
	}{
		{"in range", "2015", model.Accept},
		{"too old", "2005", model.Reject},
		{"future", "2030", model.Reject},
		{"garbage", "soon", model.Reject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			rec.GradYear = tt.year

			cls := Classify(rec, Defaults(), NewSeen(), testNow)
			assert.Equal(t, tt.expected, cls.Disposition)
		})
	}
}

func TestClassify_Experience(t *testing.T) {
	rec := validRecord()
	rec.Experience = "45"

	cls := Classify(rec, Defaults(), NewSeen(), testNow)
	assert.Equal(t, model.Reject, cls.Disposition)
	assert.Contains(t, cls.Reasons, "Experience 45 yrs out of range (0-40)")

	rec.Experience = ""
	cls = Classify(rec, Defaults(), NewSeen(), testNow)
	assert.Equal(t, model.Accept, cls.Disposition)
}

func TestClassify_InvalidNumericValues(t *testing.T) {
	rec := validRecord()
	rec.Percentage = "seventy"
	rec.CGPA = "high"

	cls := Classify(rec, Defaults(), NewSeen(), testNow)
	assert.Equal(t, model.Reject, cls.Disposition)
	assert.Contains(t, cls.Reasons, "Invalid percentage value: 'seventy'")
	assert.Contains(t, cls.Reasons, "Invalid CGPA value: 'high'")
}
