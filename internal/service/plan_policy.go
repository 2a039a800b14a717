package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/sma-merit-api/internal/models"
	"github.com/noah-isme/sma-merit-api/pkg/config"
	appErrors "github.com/noah-isme/sma-merit-api/pkg/errors"
)

// Plan status policies selectable through PLAN_STATUS_POLICY.
const (
	PolicyCutoff       = "cutoff"
	PolicyAlwaysOnTime = "always_on_time"
)

var weekLabelPattern = regexp.MustCompile(`(?i)^\s*week\s+(\d{1,3})\s*$`)

// StatusPolicy decides the status stored with a plan submission.
type StatusPolicy interface {
	Status(week int, submittedAt time.Time) models.PlanStatus
}

// NewStatusPolicy builds the policy named by configuration.
func NewStatusPolicy(cfg config.PlanConfig, location *time.Location) (StatusPolicy, error) {
	if location == nil {
		location = time.UTC
	}
	switch strings.ToLower(cfg.StatusPolicy) {
	case "", PolicyCutoff:
		if cfg.CutoffHour < 0 || cfg.CutoffHour > 23 {
			return nil, fmt.Errorf("plan cutoff hour %d out of range", cfg.CutoffHour)
		}
		return &CutoffPolicy{
			Weekday:   cfg.CutoffWeekday,
			Hour:      cfg.CutoffHour,
			TermStart: cfg.TermStart,
			Location:  location,
		}, nil
	case PolicyAlwaysOnTime:
		return AlwaysOnTimePolicy{}, nil
	}
	return nil, fmt.Errorf("unknown plan status policy %q", cfg.StatusPolicy)
}

// AlwaysOnTimePolicy marks every submission on time.
type AlwaysOnTimePolicy struct{}

// Status implements StatusPolicy.
func (AlwaysOnTimePolicy) Status(int, time.Time) models.PlanStatus {
	return models.PlanOnTime
}

// CutoffPolicy compares the submission time with a weekly deadline.
//
// With a term start, week N is due on the first cutoff weekday on or after
// TermStart + (N-1) weeks, at Hour, and a submission is on time when it lands
// strictly before that instant. Without a term start the deadline is
// relative: a submission is on time only on the cutoff weekday before Hour.
type CutoffPolicy struct {
	Weekday   time.Weekday
	Hour      int
	TermStart *time.Time
	Location  *time.Location
}

// Status implements StatusPolicy.
func (p *CutoffPolicy) Status(week int, submittedAt time.Time) models.PlanStatus {
	local := submittedAt.In(p.Location)
	if p.TermStart == nil {
		if local.Weekday() == p.Weekday && local.Hour() < p.Hour {
			return models.PlanOnTime
		}
		return models.PlanLate
	}
	if submittedAt.Before(p.Deadline(week)) {
		return models.PlanOnTime
	}
	return models.PlanLate
}

// Deadline returns the due instant of a week. It requires TermStart.
func (p *CutoffPolicy) Deadline(week int) time.Time {
	start := time.Date(p.TermStart.Year(), p.TermStart.Month(), p.TermStart.Day(), 0, 0, 0, 0, p.Location)
	day := start.AddDate(0, 0, 7*(week-1))
	offset := (int(p.Weekday) - int(day.Weekday()) + 7) % 7
	day = day.AddDate(0, 0, offset)
	return time.Date(day.Year(), day.Month(), day.Day(), p.Hour, 0, 0, 0, p.Location)
}

// ParseWeekLabel extracts N from a "Week N" label bounded by maxWeeks.
func ParseWeekLabel(label string, maxWeeks int) (int, string, error) {
	m := weekLabelPattern.FindStringSubmatch(label)
	if m == nil {
		return 0, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("week label %q must look like \"Week N\"", label))
	}
	n, _ := strconv.Atoi(m[1])
	if n < 1 || (maxWeeks > 0 && n > maxWeeks) {
		return 0, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("week must be between 1 and %d", maxWeeks))
	}
	return n, fmt.Sprintf("Week %d", n), nil
}
