package entity

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// apiDateLayout is the ISO-8601 calendar date layout expected by Cost Explorer.
const apiDateLayout = "2006-01-02"

// Granularity selects how wide a reporting period is.
type Granularity string

const (
	// GranularityDaily reports on the previous full local day.
	GranularityDaily Granularity = "daily"
	// GranularityMonthToDate reports from the first day of yesterday's month
	// through yesterday. On the first of a month that is the whole previous month.
	GranularityMonthToDate Granularity = "month_to_date"
)

// ReportingPeriod is an inclusive range of local calendar dates in Timezone.
type ReportingPeriod struct {
	Start    civil.Date     `json:"start"`
	End      civil.Date     `json:"end"`
	Timezone string         `json:"timezone"`
	Location *time.Location `json:"-"`
}

// APIStart returns the inclusive start date in the cost API's format.
func (p ReportingPeriod) APIStart() string {
	return p.Start.String()
}

// APIEnd returns the exclusive end date in the cost API's format.
func (p ReportingPeriod) APIEnd() string {
	return p.End.AddDays(1).String()
}

// StartInstant is the local midnight that opens the period.
func (p ReportingPeriod) StartInstant() time.Time {
	return p.Start.In(p.location()).UTC()
}

// EndInstant is the local midnight that closes the period.
func (p ReportingPeriod) EndInstant() time.Time {
	return p.End.AddDays(1).In(p.location()).UTC()
}

// Days returns the number of calendar days covered.
func (p ReportingPeriod) Days() int {
	return p.End.DaysSince(p.Start) + 1
}

// SingleDay reports whether the period covers exactly one date.
func (p ReportingPeriod) SingleDay() bool {
	return p.Start == p.End
}

// Contains reports whether d falls inside the period.
func (p ReportingPeriod) Contains(d civil.Date) bool {
	return !d.Before(p.Start) && !d.After(p.End)
}

func (p ReportingPeriod) String() string {
	if p.SingleDay() {
		return fmt.Sprintf("%s (%s)", p.Start, p.Timezone)
	}
	return fmt.Sprintf("%s ~ %s (%s)", p.Start, p.End, p.Timezone)
}

func (p ReportingPeriod) location() *time.Location {
	if p.Location != nil {
		return p.Location
	}
	return time.UTC
}

// ParseAPIDate parses a date returned by the cost API.
func ParseAPIDate(s string) (civil.Date, error) {
	t, err := time.Parse(apiDateLayout, s)
	if err != nil {
		return civil.Date{}, err
	}
	return civil.DateOf(t), nil
}
