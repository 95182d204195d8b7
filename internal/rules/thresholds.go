// Package rules implements the eligibility rule set: typed business
// thresholds resolved from the Config tab, and the classifier that routes a
// normalized record into accept / reject / exception.
package rules

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Threshold parameter names as they appear in the Config tab.
const (
	ParamBufferPct     = "Exception Buffer PCT"
	ParamBufferCGPA    = "Exception Buffer CGPA"
	ParamMinPercentage = "Min Percentage"
	ParamMinCGPA       = "Min CGPA"
	ParamGradYearMin   = "Graduation Year Min"
	ParamGradYearMax   = "Graduation Year Max"
	ParamMaxExperience = "Max Experience"
	ParamMinTestScore  = "Min Test Score"
)

// Thresholds are the resolved business limits used by the classifier and
// the shortlist builder.
type Thresholds struct {
	MinPercentage float64
	MinCGPA       float64
	BufferPct     float64
	BufferCGPA    float64
	GradYearMin   int
	GradYearMax   int
	MaxExperience float64
	MinTestScore  float64
}

// Defaults returns the documented fallback thresholds.
func Defaults() Thresholds {
	return Thresholds{
		MinPercentage: 60,
		MinCGPA:       6.0,
		BufferPct:     1.0,
		BufferCGPA:    0.1,
		GradYearMin:   2010,
		GradYearMax:   2025,
		MaxExperience: 40,
		MinTestScore:  40,
	}
}

// Resolve turns the Config tab's parameter/value pairs into thresholds.
// It never fails: an absent or unparsable value keeps that parameter's
// default, with a warning so a typo in the Config tab is visible in the
// logs rather than silently shifting admissions criteria.
func Resolve(params map[string]string) Thresholds {
	th := Defaults()
	resolveFloat(params, ParamBufferPct, &th.BufferPct)
	resolveFloat(params, ParamBufferCGPA, &th.BufferCGPA)
	resolveFloat(params, ParamMinPercentage, &th.MinPercentage)
	resolveFloat(params, ParamMinCGPA, &th.MinCGPA)
	resolveInt(params, ParamGradYearMin, &th.GradYearMin)
	resolveInt(params, ParamGradYearMax, &th.GradYearMax)
	resolveFloat(params, ParamMaxExperience, &th.MaxExperience)
	resolveFloat(params, ParamMinTestScore, &th.MinTestScore)
	return th
}

func resolveFloat(params map[string]string, name string, dst *float64) {
	raw, ok := params[name]
	if !ok || strings.TrimSpace(raw) == "" {
		return
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		zap.L().Warn("rules: unparsable config value, keeping default",
			zap.String("parameter", name),
			zap.String("value", raw),
			zap.Float64("default", *dst))
		return
	}
	*dst = v
}

func resolveInt(params map[string]string, name string, dst *int) {
	raw, ok := params[name]
	if !ok || strings.TrimSpace(raw) == "" {
		return
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		zap.L().Warn("rules: unparsable config value, keeping default",
			zap.String("parameter", name),
			zap.String("value", raw),
			zap.Int("default", *dst))
		return
	}
	*dst = v
}
